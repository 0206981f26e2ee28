package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the layered configuration for an evaluation run: where
// datasets live, how the LLM Client talks to a provider, how Sandboxes
// are capped, and how the Evaluator schedules attempts.
type Config struct {
	Dataset   DatasetConfig   `toml:"dataset"`
	LLM       LLMConfig       `toml:"llm"`
	Sandbox   SandboxConfig   `toml:"sandbox"`
	Evaluator EvaluatorConfig `toml:"evaluator"`
	Observer  ObserverConfig  `toml:"observer"`
}

// DatasetConfig selects which benchmark dataset to run and where its file
// lives on disk.
type DatasetConfig struct {
	Name string `toml:"name"` // "humaneval" or "mbpp"
	Path string `toml:"path"`
}

// LLMConfig addresses the OpenAI-compatible endpoint the Coding Agent
// drives.
type LLMConfig struct {
	Provider    string  `toml:"provider"`
	Model       string  `toml:"model"`
	APIKey      string  `toml:"api_key"`
	BaseURL     string  `toml:"base_url"`
	Temperature float64 `toml:"temperature"`
}

// SandboxConfig controls the resource caps every provisioned Sandbox
// gets, mirroring the Caps fields in sandbox.go.
type SandboxConfig struct {
	BaseImage       string `toml:"base_image"`
	MaxMemoryMB     int64  `toml:"max_memory_mb"`
	MaxCPUCores     float64 `toml:"max_cpu_cores"`
	NetworkDisabled bool   `toml:"network_disabled"`
}

// EvaluatorConfig controls the run-level budgets: attempts per task,
// agent iteration budget, per-attempt wall clock, and worker pool size.
type EvaluatorConfig struct {
	OutputDir        string `toml:"output_dir"`
	NumAttempts      int    `toml:"num_attempts"`
	MaxIterations    int    `toml:"max_iterations"`
	TimeoutSeconds   int    `toml:"timeout_seconds"`
	Workers          int    `toml:"workers"`
}

// ObserverConfig toggles the optional OTEL-backed Tracer decorator.
type ObserverConfig struct {
	Enabled     bool   `toml:"enabled"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
}

// Default returns a Config with every field set to a usable default: a
// local OpenAI-compatible endpoint, a conservative Sandbox cap, and a
// single attempt per task with no parallelism.
func Default() Config {
	return Config{
		Dataset: DatasetConfig{Name: "humaneval", Path: "HumanEval.jsonl"},
		LLM:     LLMConfig{Provider: "openai-compat", Model: "gpt-4", BaseURL: "http://localhost:8080/v1", Temperature: 0.2},
		Sandbox: SandboxConfig{
			BaseImage:       "python:3.11-slim",
			MaxMemoryMB:     512,
			MaxCPUCores:     1.0,
			NetworkDisabled: true,
		},
		Evaluator: EvaluatorConfig{
			OutputDir:      "results",
			NumAttempts:    1,
			MaxIterations:  10,
			TimeoutSeconds: 300,
			Workers:        1,
		},
	}
}

// Load reads config: defaults -> TOML file (best-effort, ignored if
// absent or malformed) -> env var overrides (env wins).
func Load(path string) Config {
	cfg := Default()

	if path == "" {
		path = "junebench.toml"
	}

	if data, err := os.ReadFile(path); err == nil {
		_ = toml.Unmarshal(data, &cfg)
	}

	if v := os.Getenv("JUNEBENCH_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("JUNEBENCH_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("JUNEBENCH_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("JUNEBENCH_DATASET_PATH"); v != "" {
		cfg.Dataset.Path = v
	}
	if v := os.Getenv("JUNEBENCH_OUTPUT_DIR"); v != "" {
		cfg.Evaluator.OutputDir = v
	}
	if v := os.Getenv("JUNEBENCH_OTLP_ENDPOINT"); v != "" {
		cfg.Observer.OTLPEndpoint = v
	}
	if os.Getenv("JUNEBENCH_OBSERVER_ENABLED") == "true" || os.Getenv("JUNEBENCH_OBSERVER_ENABLED") == "1" {
		cfg.Observer.Enabled = true
	}

	// Fallback: an observer with an endpoint configured but not
	// explicitly enabled is still turned on, mirroring the teacher's
	// cross-field fallback-chaining style.
	if !cfg.Observer.Enabled && cfg.Observer.OTLPEndpoint != "" {
		cfg.Observer.Enabled = true
	}

	return cfg
}
