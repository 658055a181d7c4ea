// Package mcp provides a Model Context Protocol server for refinery.
//
// It exposes the resume database (search, candidate detail, listing, stats)
// and the refinement pipeline itself as MCP tools over stdio transport, plus
// database statistics as an MCP resource.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hurttlocker/refinery/internal/ingest"
	"github.com/hurttlocker/refinery/internal/refine"
	"github.com/hurttlocker/refinery/internal/store"
)

// ServerConfig holds configuration for the MCP server.
type ServerConfig struct {
	Store    *store.SQLiteStore
	Pipeline refine.Config
	Version  string
}

// dbMu serializes all MCP tool calls that touch the database.
// The mcp-go library dispatches handlers concurrently via goroutines.
// SQLite (even with WAL) supports only one writer at a time, and concurrent
// reads during writes can return stale results. A global mutex ensures
// correct ordering: imports complete before searches see their data.
var dbMu sync.Mutex

// NewServer creates a configured MCP server with all refinery tools and
// resources.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}

	s := server.NewMCPServer(
		"Refinery",
		ver,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(true, false),
	)

	registerSearchTool(s, cfg.Store)
	registerCandidateTool(s, cfg.Store)
	registerListTool(s, cfg.Store)
	registerStatsTool(s, cfg.Store)
	registerRefineTool(s, cfg.Pipeline)
	registerImportTool(s, cfg.Store, cfg.Pipeline)

	registerStatsResource(s, cfg.Store)

	return s
}

// --- Tools ---

func registerSearchTool(s *server.MCPServer, st *store.SQLiteStore) {
	tool := mcp.NewTool("refinery_search",
		mcp.WithDescription("Search resume candidates by skill, city, education level, minimum years of experience, or free-text keywords. All filters are ANDed."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("query",
			mcp.Description("Free-text keywords matched against name, city, education and skills"),
		),
		mcp.WithString("skill",
			mcp.Description("Filter by skill name (partial match)"),
		),
		mcp.WithString("city",
			mcp.Description("Filter by city (partial match)"),
		),
		mcp.WithString("education",
			mcp.Description("Filter by education level (partial match)"),
		),
		mcp.WithNumber("min_years",
			mcp.Description("Minimum total years of work experience"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		q := store.SearchQuery{}
		if v, err := req.RequireString("query"); err == nil {
			q.Query = v
		}
		if v, err := req.RequireString("skill"); err == nil {
			q.Skill = v
		}
		if v, err := req.RequireString("city"); err == nil {
			q.City = v
		}
		if v, err := req.RequireString("education"); err == nil {
			q.Education = v
		}
		if v, err := req.RequireFloat("min_years"); err == nil && v > 0 {
			q.MinYears = int(v)
		}
		if q.Query == "" && q.Skill == "" && q.City == "" && q.Education == "" && q.MinYears == 0 {
			return mcp.NewToolResultError("provide at least one search criterion"), nil
		}

		results, err := st.SearchCandidates(ctx, q)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search error: %v", err)), nil
		}

		type summary struct {
			ID             int64  `json:"id"`
			Name           string `json:"name"`
			City           string `json:"city,omitempty"`
			EducationLevel string `json:"education_level,omitempty"`
			Phone          string `json:"phone,omitempty"`
			SourceFile     string `json:"source_file,omitempty"`
		}
		out := make([]summary, 0, len(results))
		for _, c := range results {
			out = append(out, summary{
				ID:             c.ID,
				Name:           c.Name,
				City:           c.City,
				EducationLevel: c.EducationLevel,
				Phone:          c.Phone,
				SourceFile:     c.SourceFile,
			})
		}

		data, _ := json.MarshalIndent(out, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerCandidateTool(s *server.MCPServer, st *store.SQLiteStore) {
	tool := mcp.NewTool("refinery_candidate",
		mcp.WithDescription("Get a candidate's full record: basics, work experiences, education history, skills, job intentions, self evaluation and certifications."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("Candidate row ID"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		idVal, err := req.RequireFloat("id")
		if err != nil {
			return mcp.NewToolResultError("id is required"), nil
		}

		detail, err := st.GetCandidate(ctx, int64(idVal))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("candidate error: %v", err)), nil
		}

		data, _ := json.MarshalIndent(detail, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerListTool(s *server.MCPServer, st *store.SQLiteStore) {
	tool := mcp.NewTool("refinery_list",
		mcp.WithDescription("List imported candidates newest first with per-candidate experience, education and skill counts."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of candidates to return (default: 50)"),
		),
		mcp.WithNumber("offset",
			mcp.Description("Number of candidates to skip"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		limit, offset := 50, 0
		if v, err := req.RequireFloat("limit"); err == nil && v > 0 {
			limit = int(v)
		}
		if v, err := req.RequireFloat("offset"); err == nil && v > 0 {
			offset = int(v)
		}

		listings, err := st.ListCandidates(ctx, limit, offset)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list error: %v", err)), nil
		}

		data, _ := json.MarshalIndent(listings, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerStatsTool(s *server.MCPServer, st *store.SQLiteStore) {
	tool := mcp.NewTool("refinery_stats",
		mcp.WithDescription("Get resume database statistics: candidate, experience, education, skill and certification totals, optionally grouped by skill, education or city."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("by",
			mcp.Description("Group statistics by dimension"),
			mcp.Enum("skill", "education", "city"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		groupBy := ""
		if v, err := req.RequireString("by"); err == nil {
			groupBy = v
		}

		stats, err := st.Stats(ctx, groupBy)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("stats error: %v", err)), nil
		}

		data, _ := json.MarshalIndent(stats, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerRefineTool(s *server.MCPServer, base refine.Config) {
	tool := mcp.NewTool("refinery_refine",
		mcp.WithDescription("Run the extraction refinement pipeline over a raw extraction batch: time normalization, source grounding, overlap dedup, confidence scoring, entity resolution, relation inference and optional knowledge-graph conversion. Returns the refined batch with stats."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("extractions",
			mcp.Required(),
			mcp.Description("JSON array of extraction items (or an object with an 'extractions' key)"),
		),
		mcp.WithString("source_text",
			mcp.Description("The source document text for grounding. Empty disables grounding."),
		),
		mcp.WithString("source_file",
			mcp.Description("Source file name recorded on each item"),
		),
		mcp.WithBoolean("kg",
			mcp.Description("Also convert the refined batch to knowledge-graph format (default: false)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := req.RequireString("extractions")
		if err != nil {
			return mcp.NewToolResultError("extractions is required"), nil
		}

		items, err := ingest.DecodeBatch([]byte(raw))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid extractions: %v", err)), nil
		}

		sourceText := ""
		if v, err := req.RequireString("source_text"); err == nil {
			sourceText = v
		}
		sourceFile := ""
		if v, err := req.RequireString("source_file"); err == nil {
			sourceFile = v
		}

		cfg := base
		if sourceText == "" {
			cfg.SourceGrounding = false
		}
		if kg, err := req.RequireBool("kg"); err == nil {
			cfg.KGInjection = kg
		}

		result := refine.New(sourceText, cfg, sourceFile).Process(items)

		data, _ := json.MarshalIndent(result, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerImportTool(s *server.MCPServer, st *store.SQLiteStore, base refine.Config) {
	tool := mcp.NewTool("refinery_import",
		mcp.WithDescription("Refine a raw extraction batch and store it as one resume. The batch must contain a candidate item. Returns the new candidate ID."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("extractions",
			mcp.Required(),
			mcp.Description("JSON array of extraction items (or an object with an 'extractions' key)"),
		),
		mcp.WithString("source_text",
			mcp.Description("The source document text for grounding. Empty disables grounding."),
		),
		mcp.WithString("source_file",
			mcp.Description("Source file name; resume metadata (name, city, position) is parsed from it when structured"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		raw, err := req.RequireString("extractions")
		if err != nil {
			return mcp.NewToolResultError("extractions is required"), nil
		}

		items, err := ingest.DecodeBatch([]byte(raw))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid extractions: %v", err)), nil
		}

		sourceText := ""
		if v, err := req.RequireString("source_text"); err == nil {
			sourceText = v
		}
		sourceFile := "mcp-import"
		if v, err := req.RequireString("source_file"); err == nil && v != "" {
			v = strings.ReplaceAll(v, "..", "")
			v = strings.ReplaceAll(v, "/", "-")
			v = strings.ReplaceAll(v, "\\", "-")
			if v != "" {
				sourceFile = v
			}
		}

		cfg := base
		if sourceText == "" {
			cfg.SourceGrounding = false
		}

		result := refine.New(sourceText, cfg, sourceFile).Process(items)

		id, err := st.ImportExtractions(ctx, result.Extractions, sourceFile)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("import error: %v", err)), nil
		}

		out := map[string]any{
			"candidate_id": id,
			"items":        len(result.Extractions),
			"relations":    len(result.InferredRelations),
			"message":      fmt.Sprintf("Imported candidate %d from %d refined item(s)", id, len(result.Extractions)),
		}
		data, _ := json.MarshalIndent(out, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

// --- Resources ---

func registerStatsResource(s *server.MCPServer, st *store.SQLiteStore) {
	resource := mcp.NewResource(
		"refinery://stats",
		"Resume Database Statistics",
		mcp.WithResourceDescription("Candidate, experience, education, skill and certification totals."),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(resource, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		stats, err := st.Stats(ctx, "")
		if err != nil {
			return nil, fmt.Errorf("getting stats: %w", err)
		}

		data, _ := json.MarshalIndent(stats, "", "  ")
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}
