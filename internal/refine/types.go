// Package refine implements the extraction refinement pipeline for Refinery.
//
// Upstream extraction (LLM or otherwise) produces noisy, unordered items.
// This package turns them into grounded, deduplicated, confidence-scored,
// entity-resolved and relation-augmented records through six stages:
// source grounding, overlap dedup, confidence scoring, entity resolution,
// relation inference and knowledge-graph formatting. Each stage consumes its
// input list and returns a new one; input items are never mutated in place
// (stages clone before patching), with the single documented exception of
// source-file tagging in the pipeline controller.
package refine

import (
	"encoding/json"
	"fmt"
)

// Well-known extraction types. The type tag is open-ended — unrecognized
// tags degrade scoring and KG classification instead of erroring.
const (
	TypeEntity     = "entity"
	TypeRule       = "rule"
	TypeConstraint = "constraint"
	TypeEvent      = "event"
	TypeState      = "state"
	TypeRelation   = "relation"
	TypeCandidate  = "candidate"
)

// MatchType is the precision tier of a grounding match.
type MatchType string

const (
	MatchExact      MatchType = "exact"
	MatchNormalized MatchType = "normalized"
	MatchFuzzy      MatchType = "fuzzy"
	MatchNone       MatchType = "none"
)

// Location records where an item's text was found in the source document.
// An unlocated item (match_type "none") has nil offsets and line.
type Location struct {
	CharStart  *int      `json:"char_start"`
	CharEnd    *int      `json:"char_end"`
	Line       *int      `json:"line"`
	MatchType  MatchType `json:"match_type"`
	Confidence float64   `json:"confidence"`
}

// Interval returns the half-open character range [start, end) and whether
// both endpoints are known. Items without a full interval are excluded from
// overlap comparison.
func (l *Location) Interval() (start, end int, ok bool) {
	if l == nil || l.CharStart == nil || l.CharEnd == nil {
		return 0, 0, false
	}
	return *l.CharStart, *l.CharEnd, true
}

// locationJSON is the wire shape of Location. char_interval mirrors
// char_start/char_end as a 2-element array so consumers that index the tuple
// keep working.
type locationJSON struct {
	CharStart    *int      `json:"char_start"`
	CharEnd      *int      `json:"char_end"`
	CharInterval [2]*int   `json:"char_interval"`
	Line         *int      `json:"line"`
	MatchType    MatchType `json:"match_type"`
	Confidence   float64   `json:"confidence"`
}

// MarshalJSON emits the location with a redundant char_interval tuple.
func (l Location) MarshalJSON() ([]byte, error) {
	return json.Marshal(locationJSON{
		CharStart:    l.CharStart,
		CharEnd:      l.CharEnd,
		CharInterval: [2]*int{l.CharStart, l.CharEnd},
		Line:         l.Line,
		MatchType:    l.MatchType,
		Confidence:   l.Confidence,
	})
}

// UnmarshalJSON accepts either explicit offsets or just a char_interval pair.
func (l *Location) UnmarshalJSON(data []byte) error {
	var raw locationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	l.CharStart = raw.CharStart
	l.CharEnd = raw.CharEnd
	if l.CharStart == nil {
		l.CharStart = raw.CharInterval[0]
	}
	if l.CharEnd == nil {
		l.CharEnd = raw.CharInterval[1]
	}
	l.Line = raw.Line
	l.MatchType = raw.MatchType
	l.Confidence = raw.Confidence
	return nil
}

// Item is one extraction produced by the upstream extractor, refined in
// place-value terms by the pipeline. Attributes is an open mapping of
// domain-specific keys (company, school, trigger_context, ...).
//
// Confidence zero means "not yet scored"; the scorer overwrites it and later
// stages treat zero as absent.
type Item struct {
	ID           string         `json:"id,omitempty"`
	Type         string         `json:"type,omitempty"`
	Text         string         `json:"text,omitempty"`
	Summary      string         `json:"summary,omitempty"`
	Attributes   map[string]any `json:"attributes,omitempty"`
	From         string         `json:"from,omitempty"`
	To           string         `json:"to,omitempty"`
	RelationType string         `json:"relation_type,omitempty"`
	SourceFile   string         `json:"source_file,omitempty"`
	Location     *Location      `json:"source_location,omitempty"`
	Confidence   float64        `json:"confidence,omitempty"`
}

// Clone returns a shallow copy of the item. The Attributes map is shared
// with the original; stages that patch attributes must copy it first.
func (it *Item) Clone() *Item {
	cp := *it
	return &cp
}

// Attr returns the named attribute rendered as a string, or "" when absent
// or empty.
func (it *Item) Attr(key string) string {
	if it.Attributes == nil {
		return ""
	}
	v, ok := it.Attributes[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// confidenceOr returns the item's confidence, or def when unscored.
func (it *Item) confidenceOr(def float64) float64 {
	if it.Confidence == 0 {
		return def
	}
	return it.Confidence
}

// truthy mirrors loose JSON truthiness: empty strings, zero numbers, empty
// collections, nil and false all count as absent.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case float64:
		return x != 0
	case int:
		return x != 0
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		return true
	}
}

// populatedAttrs counts the item's informative fields: summary, relation
// endpoints, and every truthy attribute. Text, location, type and confidence
// are deliberately excluded — they describe the match, not the content.
func (it *Item) populatedAttrs() int {
	n := 0
	if it.Summary != "" {
		n++
	}
	if it.From != "" {
		n++
	}
	if it.To != "" {
		n++
	}
	for _, v := range it.Attributes {
		if truthy(v) {
			n++
		}
	}
	return n
}

// Relation is an explicit or inferred link between two records. Inferred
// relations carry a scope label and the Inferred marker.
type Relation struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	Type       string  `json:"type"`
	TargetName string  `json:"target_name,omitempty"`
	Scope      string  `json:"scope,omitempty"`
	Confidence float64 `json:"confidence"`
	Inferred   bool    `json:"inferred,omitempty"`
}

// Result is the full output of one pipeline run.
type Result struct {
	Extractions       []*Item    `json:"extractions"`
	InferredRelations []Relation `json:"inferred_relations"`
	KGFormat          *Graph     `json:"kg_format,omitempty"`
	Stats             Stats      `json:"stats"`
}

// Distribution buckets item confidences into three bands.
type Distribution struct {
	High   int `json:"high (>=0.7)"`
	Medium int `json:"medium (0.3-0.7)"`
	Low    int `json:"low (<0.3)"`
}

// Stats summarizes one pipeline run.
type Stats struct {
	TotalExtractions       int            `json:"total_extractions"`
	ByType                 map[string]int `json:"by_type"`
	AvgConfidence          float64        `json:"avg_confidence"`
	ConfidenceDistribution Distribution   `json:"confidence_distribution"`
	MatchQuality           map[string]int `json:"match_quality"`
	InferredRelations      int            `json:"inferred_relations"`
}
