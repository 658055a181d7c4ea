package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hurttlocker/refinery/internal/config"
	"github.com/hurttlocker/refinery/internal/ingest"
	"github.com/hurttlocker/refinery/internal/refine"
	"github.com/hurttlocker/refinery/internal/store"
)

// processOpts collects the flags shared by process and import.
type processOpts struct {
	batchPath  string
	sourcePath string
	sourceFile string
	configPath string
	presetPath string
	dbPath     string
	outputPath string
	kg         bool
	noResolve  bool
	noRelate   bool
	quiet      bool
}

func parseProcessArgs(args []string) (processOpts, error) {
	var opts processOpts
	i := 0
	next := func(flag string) (string, error) {
		i++
		if i >= len(args) {
			return "", fmt.Errorf("%s requires a value", flag)
		}
		return args[i], nil
	}

	for ; i < len(args); i++ {
		arg := args[i]
		var err error
		switch {
		case arg == "--source":
			opts.sourcePath, err = next(arg)
		case arg == "--source-file":
			opts.sourceFile, err = next(arg)
		case arg == "--config":
			opts.configPath, err = next(arg)
		case arg == "--preset":
			opts.presetPath, err = next(arg)
		case arg == "--db":
			opts.dbPath, err = next(arg)
		case arg == "--output" || arg == "-o":
			opts.outputPath, err = next(arg)
		case arg == "--kg":
			opts.kg = true
		case arg == "--no-resolve":
			opts.noResolve = true
		case arg == "--no-relations":
			opts.noRelate = true
		case arg == "--quiet" || arg == "-q":
			opts.quiet = true
		case strings.HasPrefix(arg, "-"):
			return opts, fmt.Errorf("unknown flag: %s", arg)
		default:
			if opts.batchPath != "" {
				return opts, fmt.Errorf("unexpected argument: %s", arg)
			}
			opts.batchPath = arg
		}
		if err != nil {
			return opts, err
		}
	}

	if opts.batchPath == "" {
		return opts, fmt.Errorf("no extraction batch specified")
	}
	return opts, nil
}

// refineBatch loads, configures and runs the pipeline for both the process
// and import commands.
func refineBatch(opts processOpts) (*refine.Result, string, error) {
	resolved, err := config.Resolve(config.ResolveOptions{
		ConfigPath: opts.configPath,
		PresetPath: opts.presetPath,
		CLIDBPath:  opts.dbPath,
	})
	if err != nil {
		return nil, "", err
	}

	items, err := ingest.LoadBatch(opts.batchPath)
	if err != nil {
		return nil, "", err
	}

	sourceText := ""
	if opts.sourcePath != "" {
		sourceText, err = ingest.ReadSource(opts.sourcePath)
		if err != nil {
			return nil, "", err
		}
	}

	sourceFile := opts.sourceFile
	if sourceFile == "" {
		if opts.sourcePath != "" {
			sourceFile = filepath.Base(opts.sourcePath)
		} else {
			sourceFile = filepath.Base(opts.batchPath)
		}
	}

	cfg := resolved.Pipeline
	if sourceText == "" {
		cfg.SourceGrounding = false
	}
	if opts.kg {
		cfg.KGInjection = true
	}
	if opts.noResolve {
		cfg.EntityResolution = false
	}
	if opts.noRelate {
		cfg.RelationInference = false
	}

	p := refine.New(sourceText, cfg, sourceFile)
	if !opts.quiet {
		p.ProgressFn = func(stage, detail string) {
			fmt.Fprintf(os.Stderr, "  [%s] %s\n", stage, detail)
		}
	}

	return p.Process(items), resolved.DBPath.Value, nil
}

func runProcess(args []string) error {
	opts, err := parseProcessArgs(args)
	if err != nil {
		return fmt.Errorf("usage: refinery process <batch.json> [--source <file>] [--kg] [-o <out.json>]: %w", err)
	}

	result, _, err := refineBatch(opts)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}

	if opts.outputPath != "" {
		if err := os.WriteFile(opts.outputPath, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", opts.outputPath, err)
		}
		if !opts.quiet {
			fmt.Fprintf(os.Stderr, "Wrote %d item(s) to %s\n", len(result.Extractions), opts.outputPath)
		}
		return nil
	}

	fmt.Println(string(data))
	return nil
}

func runDBImport(args []string) error {
	opts, err := parseProcessArgs(args)
	if err != nil {
		return fmt.Errorf("usage: refinery import <batch.json> [--source <file>] [--db <path>]: %w", err)
	}

	result, dbPath, err := refineBatch(opts)
	if err != nil {
		return err
	}

	s, err := store.NewStore(store.StoreConfig{DBPath: dbPath})
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer s.Close()

	sourceFile := opts.sourceFile
	if sourceFile == "" {
		if opts.sourcePath != "" {
			sourceFile = filepath.Base(opts.sourcePath)
		} else {
			sourceFile = filepath.Base(opts.batchPath)
		}
	}

	id, err := s.ImportExtractions(context.Background(), result.Extractions, sourceFile)
	if err != nil {
		return err
	}

	fmt.Printf("Imported candidate %d (%d item(s), %d relation(s)) from %s\n",
		id, len(result.Extractions), len(result.InferredRelations), sourceFile)
	return nil
}

// runParseName exposes the filename metadata parser directly, useful for
// checking what a recruiting-platform filename will contribute.
func runParseName(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: refinery parse-name <filename>")
	}

	meta := ingest.ParseFilename(args[0])
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))

	if hints := meta.ContextHints(); hints != "" {
		fmt.Println()
		fmt.Println(hints)
	}
	return nil
}
