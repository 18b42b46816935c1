package graphweave

import (
	"os"
	"path/filepath"
)

// Config holds all configuration for the graphweave engine.
type Config struct {
	// DBPath is the full path to the SQLite database file.
	// If empty, defaults to ~/.graphweave/<DBName>.db
	DBPath string `json:"db_path" yaml:"db_path"`

	// DBName is the name for the database (used when DBPath is empty).
	// Defaults to "graphweave". The file will be <DBName>.db inside the
	// storage directory (~/.graphweave/ or working dir).
	DBName string `json:"db_name" yaml:"db_name"`

	// StorageDir controls where the database is created when DBPath
	// is not explicitly set. Options: "home" (default) uses ~/.graphweave/,
	// "local" uses the current working directory.
	StorageDir string `json:"storage_dir" yaml:"storage_dir"`

	// LLM providers. Chat drives extraction; Embedding is optional and
	// enables entity description embeddings for cross-run similarity.
	Chat      LLMConfig `json:"chat" yaml:"chat"`
	Embedding LLMConfig `json:"embedding" yaml:"embedding"`

	// Text sources. CorpusDir switches expansion to a local document
	// directory; otherwise TavilyAPIKey selects web search.
	TavilyAPIKey string `json:"tavily_api_key" yaml:"tavily_api_key"`
	CorpusDir    string `json:"corpus_dir" yaml:"corpus_dir"`

	// SearchQPS throttles text source queries across all concurrent
	// runs. Zero disables throttling.
	SearchQPS float64 `json:"search_qps" yaml:"search_qps"`

	// Per-entity text sourcing
	SearchResultLimit int `json:"search_result_limit" yaml:"search_result_limit"`
	MaxSourceTextLen  int `json:"max_source_text_len" yaml:"max_source_text_len"`

	// Graph building
	MaxIterations        int `json:"max_iterations" yaml:"max_iterations"`
	MaxRelations         int `json:"max_relations" yaml:"max_relations"`
	MaxRelationsPerRound int `json:"max_relations_per_round" yaml:"max_relations_per_round"`

	// Workers bounds how many seeds build in parallel.
	Workers int `json:"workers" yaml:"workers"`

	// Sub-graph sampling
	SampleSize int `json:"sample_size" yaml:"sample_size"`

	// RunsDir is where per-run extraction logs are written.
	RunsDir string `json:"runs_dir" yaml:"runs_dir"`

	// RandomSeed makes runs reproducible when non-zero.
	RandomSeed int64 `json:"random_seed" yaml:"random_seed"`

	// Embedding dimensions (must match model)
	EmbeddingDim int `json:"embedding_dim" yaml:"embedding_dim"`
}

// LLMConfig configures a single LLM provider endpoint.
type LLMConfig struct {
	Provider string `json:"provider" yaml:"provider"` // ollama, openai, custom
	Model    string `json:"model" yaml:"model"`
	BaseURL  string `json:"base_url" yaml:"base_url"`
	APIKey   string `json:"api_key" yaml:"api_key"`
}

// DefaultConfig returns a Config with sensible defaults for local
// inference. Database is stored in ~/.graphweave/graphweave.db by default.
func DefaultConfig() Config {
	return Config{
		DBName:     "graphweave",
		StorageDir: "home",
		Chat: LLMConfig{
			Provider: "ollama",
			Model:    "llama3.1:8b",
			BaseURL:  "http://localhost:11434",
		},
		Embedding: LLMConfig{
			Provider: "ollama",
			Model:    "nomic-embed-text",
			BaseURL:  "http://localhost:11434",
		},
		SearchResultLimit:    10,
		MaxSourceTextLen:     2000,
		MaxIterations:        15,
		MaxRelations:         30,
		MaxRelationsPerRound: 15,
		Workers:              4,
		SampleSize:           8,
		RunsDir:              "runs",
		EmbeddingDim:         768,
	}
}

// resolveDBPath computes the final database path from config fields.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	name := c.DBName
	if name == "" {
		name = "graphweave"
	}

	switch c.StorageDir {
	case "local", "cwd":
		return name + ".db"
	default: // "home" or empty
		home, err := os.UserHomeDir()
		if err != nil {
			return name + ".db" // fallback to cwd
		}
		return filepath.Join(home, ".graphweave", name+".db")
	}
}
