package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

const version = "0.1.0-dev"

func main() {
	// Best-effort; a missing .env is fine.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	var err error
	switch os.Args[1] {
	case "process":
		err = runProcess(os.Args[2:])
	case "import":
		err = runDBImport(os.Args[2:])
	case "search":
		err = runSearch(os.Args[2:])
	case "detail":
		err = runDetail(os.Args[2:])
	case "list":
		err = runList(os.Args[2:])
	case "stats":
		err = runStats(os.Args[2:])
	case "delete":
		err = runDelete(os.Args[2:])
	case "parse-name":
		err = runParseName(os.Args[2:])
	case "mcp":
		err = runMCP(os.Args[2:])
	case "config":
		err = runConfig(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("refinery %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`refinery %s — Extraction refinement pipeline for resume data

Usage:
  refinery <command> [arguments]

Commands:
  process <batch.json>   Refine a raw extraction batch and print the result
  import <batch.json>    Refine a batch and store it as a resume
  search [query]         Search stored candidates
  detail <id>            Show a candidate's full record
  list                   List stored candidates
  stats                  Show database statistics
  delete <id>            Delete a candidate and all associated data
  parse-name <filename>  Parse recruiting metadata from a resume filename
  mcp                    Serve the MCP stdio server
  config                 Print the resolved configuration
  version                Print version

Process Flags:
  --source <file>        Source document for grounding
  --source-file <name>   Source file name recorded on items
  --preset <file>        JSON pipeline preset
  --kg                   Include knowledge-graph output
  --no-resolve           Skip entity resolution
  --no-relations         Skip relation inference
  -o, --output <file>    Write result JSON to a file
  -q, --quiet            Suppress per-stage progress

Search Flags:
  --skill <name>         Filter by skill
  --city <name>          Filter by city
  --education <level>    Filter by education level
  --min-years <n>        Minimum years of experience

Global Flags:
  --config <file>        Config file path (default: ~/.refinery/config.yaml)
  --db <file>            Database path override
  -h, --help             Show this help message
  -v, --version          Print version
`, version)
}
