package graphweave

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxIterations != 15 || cfg.MaxRelations != 30 || cfg.MaxRelationsPerRound != 15 {
		t.Errorf("graph limits = %d/%d/%d", cfg.MaxIterations, cfg.MaxRelations, cfg.MaxRelationsPerRound)
	}
	if cfg.SampleSize != 8 || cfg.SearchResultLimit != 10 || cfg.MaxSourceTextLen != 2000 {
		t.Errorf("sampling/search defaults = %d/%d/%d", cfg.SampleSize, cfg.SearchResultLimit, cfg.MaxSourceTextLen)
	}
	if cfg.Workers != 4 || cfg.RunsDir != "runs" {
		t.Errorf("runner defaults = %d/%q", cfg.Workers, cfg.RunsDir)
	}
	if cfg.Chat.Provider == "" {
		t.Error("default chat provider missing")
	}
}

func TestResolveDBPath(t *testing.T) {
	c := Config{DBPath: "/tmp/explicit.db"}
	if got := c.resolveDBPath(); got != "/tmp/explicit.db" {
		t.Errorf("explicit path = %q", got)
	}

	c = Config{DBName: "mydb", StorageDir: "local"}
	if got := c.resolveDBPath(); got != "mydb.db" {
		t.Errorf("local path = %q", got)
	}

	c = Config{StorageDir: "home"}
	got := c.resolveDBPath()
	if filepath.Base(got) != "graphweave.db" {
		t.Errorf("home path = %q", got)
	}
}

func TestApplyDefaultsFillsZeroValues(t *testing.T) {
	cfg := Config{MaxIterations: 3}
	applyDefaults(&cfg)
	if cfg.MaxIterations != 3 {
		t.Errorf("explicit value overwritten: %d", cfg.MaxIterations)
	}
	if cfg.MaxRelations != 30 || cfg.SampleSize != 8 || cfg.Workers != 4 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestNewRejectsMissingChatProvider(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Chat.Provider = ""
	cfg.TavilyAPIKey = "key"
	if _, err := New(cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
}

func TestNewRejectsMissingTextSource(t *testing.T) {
	cfg := DefaultConfig()
	if _, err := New(cfg); !errors.Is(err, ErrNoTextSource) {
		t.Fatalf("err = %v, want ErrNoTextSource", err)
	}
}

func TestSentinelErrorsArePrefixed(t *testing.T) {
	for _, err := range []error{
		ErrInvalidConfig, ErrNoTextSource, ErrEmptySeed,
		ErrRunNotFound, ErrEmptyGraph, ErrEmbeddingUnavailable,
	} {
		if !strings.HasPrefix(err.Error(), "graphweave: ") {
			t.Errorf("sentinel %q lacks package prefix", err)
		}
	}
}
