// Package config resolves refinery configuration from, in order of
// precedence: CLI flags, environment variables, a YAML config file, and
// built-in defaults. Resolved values remember which layer they came from
// so `refinery config` can explain itself.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hurttlocker/refinery/internal/refine"
)

type ValueSource string

const (
	SourceDefault ValueSource = "default"
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceCLI     ValueSource = "cli"
)

type ResolvedValue struct {
	Value  string      `json:"value"`
	Source ValueSource `json:"source"`
	From   string      `json:"from,omitempty"`
}

type ResolveOptions struct {
	ConfigPath string
	CLIDBPath  string
	PresetPath string
}

// Resolved is the fully layered refinery configuration.
type Resolved struct {
	ConfigPath string        `json:"config_path"`
	DBPath     ResolvedValue `json:"db_path"`
	Pipeline   refine.Config `json:"pipeline"`
}

const (
	// DefaultDBPath is where the resume database lives unless overridden.
	DefaultDBPath = "~/.refinery/resumes.db"

	// EnvDBPath overrides the database location.
	EnvDBPath = "REFINERY_DB_PATH"
)

// filePipeline mirrors refine.Config with pointer fields so absent keys
// keep their defaults when overlaying.
type filePipeline struct {
	TimeNormalization *bool `yaml:"time_normalization" json:"time_normalization"`
	SourceGrounding   *bool `yaml:"source_grounding" json:"source_grounding"`
	OverlapDedup      *bool `yaml:"overlap_dedup" json:"overlap_dedup"`
	ConfidenceScoring *bool `yaml:"confidence_scoring" json:"confidence_scoring"`
	EntityResolution  *bool `yaml:"entity_resolution" json:"entity_resolution"`
	RelationInference *bool `yaml:"relation_inference" json:"relation_inference"`
	KGInjection       *bool `yaml:"kg_injection" json:"kg_injection"`

	ConfidenceThreshold       *float64 `yaml:"confidence_threshold" json:"confidence_threshold"`
	OverlapThreshold          *float64 `yaml:"overlap_threshold" json:"overlap_threshold"`
	EntitySimilarityThreshold *float64 `yaml:"entity_similarity_threshold" json:"entity_similarity_threshold"`
	TypeAwareDedup            *bool    `yaml:"type_aware_dedup" json:"type_aware_dedup"`
}

type fileConfig struct {
	DBPath   string       `yaml:"db_path"`
	Pipeline filePipeline `yaml:"pipeline"`
}

// presetFile is the JSON preset shape. Presets may wrap the settings in a
// "pipeline_config" object or place them at the top level.
type presetFile struct {
	PipelineConfig *filePipeline `json:"pipeline_config"`
}

// DefaultPipeline returns the built-in pipeline configuration.
func DefaultPipeline() refine.Config {
	return refine.DefaultConfig()
}

func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".refinery", "config.yaml")
}

// Resolve layers defaults, the config file, a JSON preset, environment
// variables and CLI overrides into one Resolved view. A missing config
// file is not an error; a named preset that cannot be read is.
func Resolve(opts ResolveOptions) (Resolved, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = DefaultConfigPath()
	}

	out := Resolved{
		ConfigPath: path,
		DBPath:     ResolvedValue{Value: ExpandUserPath(DefaultDBPath), Source: SourceDefault},
		Pipeline:   refine.DefaultConfig(),
	}

	cfg, err := loadConfig(path)
	if err != nil {
		return out, err
	}
	if cfg != nil {
		if v := strings.TrimSpace(cfg.DBPath); v != "" {
			out.DBPath = ResolvedValue{Value: ExpandUserPath(v), Source: SourceConfig, From: path}
		}
		overlay(&out.Pipeline, cfg.Pipeline)
	}

	if opts.PresetPath != "" {
		out.Pipeline, err = LoadPreset(opts.PresetPath, out.Pipeline)
		if err != nil {
			return out, err
		}
	}

	if v := strings.TrimSpace(os.Getenv(EnvDBPath)); v != "" {
		out.DBPath = ResolvedValue{Value: ExpandUserPath(v), Source: SourceEnv, From: EnvDBPath}
	}
	if v := strings.TrimSpace(opts.CLIDBPath); v != "" {
		out.DBPath = ResolvedValue{Value: ExpandUserPath(v), Source: SourceCLI, From: "--db"}
	}

	return out, nil
}

// LoadPreset applies a JSON preset file on top of a pipeline config.
func LoadPreset(path string, base refine.Config) (refine.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("reading preset %s: %w", path, err)
	}

	var wrapper presetFile
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return base, fmt.Errorf("parsing preset %s: %w", path, err)
	}

	fp := wrapper.PipelineConfig
	if fp == nil {
		var bare filePipeline
		if err := json.Unmarshal(data, &bare); err != nil {
			return base, fmt.Errorf("parsing preset %s: %w", path, err)
		}
		fp = &bare
	}

	overlay(&base, *fp)
	return base, nil
}

func loadConfig(path string) (*fileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

func overlay(dst *refine.Config, src filePipeline) {
	setBool(&dst.TimeNormalization, src.TimeNormalization)
	setBool(&dst.SourceGrounding, src.SourceGrounding)
	setBool(&dst.OverlapDedup, src.OverlapDedup)
	setBool(&dst.ConfidenceScoring, src.ConfidenceScoring)
	setBool(&dst.EntityResolution, src.EntityResolution)
	setBool(&dst.RelationInference, src.RelationInference)
	setBool(&dst.KGInjection, src.KGInjection)
	setBool(&dst.TypeAwareDedup, src.TypeAwareDedup)
	setFloat(&dst.ConfidenceThreshold, src.ConfidenceThreshold)
	setFloat(&dst.OverlapThreshold, src.OverlapThreshold)
	setFloat(&dst.EntitySimilarityThreshold, src.EntitySimilarityThreshold)
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

// ExpandUserPath resolves a leading ~/ against the user's home directory.
func ExpandUserPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
