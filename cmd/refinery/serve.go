package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/server"

	"github.com/hurttlocker/refinery/internal/config"
	"github.com/hurttlocker/refinery/internal/mcp"
	"github.com/hurttlocker/refinery/internal/store"
)

func runMCP(args []string) error {
	var configPath, dbPath string

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
		switch arg {
		case "--config":
			configPath, err = next(arg)
		case "--db":
			dbPath, err = next(arg)
		default:
			return fmt.Errorf("unknown flag: %s", arg)
		}
		if err != nil {
			return err
		}
	}

	resolved, err := config.Resolve(config.ResolveOptions{
		ConfigPath: configPath,
		CLIDBPath:  dbPath,
	})
	if err != nil {
		return err
	}

	s, err := store.NewStore(store.StoreConfig{DBPath: resolved.DBPath.Value})
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer s.Close()

	srv := mcp.NewServer(mcp.ServerConfig{
		Store:    s,
		Pipeline: resolved.Pipeline,
		Version:  version,
	})
	return server.ServeStdio(srv)
}

func runConfig(args []string) error {
	var configPath, dbPath string

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
		case arg == "--config":
			configPath, err = next(arg)
		case arg == "--db":
			dbPath, err = next(arg)
		case strings.HasPrefix(arg, "-"):
			return fmt.Errorf("unknown flag: %s", arg)
		default:
			return fmt.Errorf("unexpected argument: %s", arg)
		}
		if err != nil {
			return err
		}
	}

	resolved, err := config.Resolve(config.ResolveOptions{
		ConfigPath: configPath,
		CLIDBPath:  dbPath,
	})
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(resolved, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
