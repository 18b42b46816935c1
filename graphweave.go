// Package graphweave builds knowledge graphs by iterative LLM-driven
// entity expansion and extracts topologically interesting sub-graphs from
// them. The Engine wires the collaborators together: a chat LLM for
// extraction, a text source (web search or a local corpus) for per-entity
// material, an append-only run log for crash-safe persistence, and a
// SQLite store for finished runs and samples.
package graphweave

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync/atomic"
	"time"

	"github.com/lcv-dev/graphweave/graph"
	"github.com/lcv-dev/graphweave/llm"
	"github.com/lcv-dev/graphweave/runlog"
	"github.com/lcv-dev/graphweave/sample"
	"github.com/lcv-dev/graphweave/search"
	"github.com/lcv-dev/graphweave/store"
)

// Engine is the main entry point for graph construction and sampling.
type Engine interface {
	// BuildGraph runs the full expansion loop for one seed entity,
	// persists the run, and returns it. A partial result is returned
	// together with the error when the run aborts midway.
	BuildGraph(ctx context.Context, seed string) (*RunResult, error)

	// BuildAll builds graphs for many seeds with bounded parallelism.
	// One outcome is returned per seed, in input order.
	BuildAll(ctx context.Context, seeds []string) []RunOutcome

	// Sample extracts a sub-graph from a stored run using the named
	// method ("mixed" picks an algorithm at random) and persists it.
	Sample(ctx context.Context, runID int64, method string) (sample.Result, error)

	// Replay rebuilds a run's graph from its extraction log on disk,
	// bypassing the store entirely.
	Replay(ctx context.Context, dir string) (graph.BuildResult, error)

	// EmbedRun embeds the descriptions of a stored run's entities so
	// near-duplicates can be found across runs.
	EmbedRun(ctx context.Context, runID int64) error

	// SimilarEntities finds the stored entities nearest to the given
	// text, across all embedded runs.
	SimilarEntities(ctx context.Context, text string, k int) ([]store.EntityMatch, error)

	// Runs lists the stored runs, newest first.
	Runs(ctx context.Context) ([]store.Run, error)

	// Store returns the underlying store for diagnostic access.
	Store() *store.Store

	// Close cleanly shuts down the engine.
	Close() error
}

// RunResult is one persisted graph build.
type RunResult struct {
	RunID int64             `json:"run_id"`
	Dir   string            `json:"dir"`
	Build graph.BuildResult `json:"build"`
}

// RunOutcome pairs a seed with its build result or failure.
type RunOutcome struct {
	Seed   string     `json:"seed"`
	Result *RunResult `json:"result,omitempty"`
	Err    error      `json:"-"`
}

// engine is the concrete implementation of Engine.
type engine struct {
	cfg      Config
	store    *store.Store
	chatLLM  llm.Provider
	embedLLM llm.Provider
	searcher search.Searcher
	limiter  *RateLimiter

	runSeq atomic.Int64 // distinguishes rng streams of concurrent runs
}

// New creates a graphweave engine with the given configuration.
func New(cfg Config) (Engine, error) {
	applyDefaults(&cfg)

	if cfg.Chat.Provider == "" {
		return nil, fmt.Errorf("%w: chat provider is required", ErrInvalidConfig)
	}

	var searcher search.Searcher
	switch {
	case cfg.CorpusDir != "":
		corpus, err := search.NewCorpus(cfg.CorpusDir)
		if err != nil {
			return nil, fmt.Errorf("opening corpus: %w", err)
		}
		searcher = corpus
	case cfg.TavilyAPIKey != "":
		searcher = search.NewTavily(cfg.TavilyAPIKey, "")
	default:
		return nil, ErrNoTextSource
	}

	s, err := store.New(cfg.resolveDBPath(), cfg.EmbeddingDim)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	chatLLM, err := llm.NewProvider(llm.Config{
		Provider: cfg.Chat.Provider,
		Model:    cfg.Chat.Model,
		BaseURL:  cfg.Chat.BaseURL,
		APIKey:   cfg.Chat.APIKey,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("creating chat provider: %w", err)
	}

	var embedLLM llm.Provider
	if cfg.Embedding.Provider != "" {
		embedLLM, err = llm.NewProvider(llm.Config{
			Provider: cfg.Embedding.Provider,
			Model:    cfg.Embedding.Model,
			BaseURL:  cfg.Embedding.BaseURL,
			APIKey:   cfg.Embedding.APIKey,
		})
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("creating embedding provider: %w", err)
		}
	}

	return &engine{
		cfg:      cfg,
		store:    s,
		chatLLM:  chatLLM,
		embedLLM: embedLLM,
		searcher: searcher,
		limiter:  NewRateLimiter(cfg.SearchQPS),
	}, nil
}

func applyDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.SearchResultLimit <= 0 {
		cfg.SearchResultLimit = def.SearchResultLimit
	}
	if cfg.MaxSourceTextLen <= 0 {
		cfg.MaxSourceTextLen = def.MaxSourceTextLen
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = def.MaxIterations
	}
	if cfg.MaxRelations <= 0 {
		cfg.MaxRelations = def.MaxRelations
	}
	if cfg.MaxRelationsPerRound <= 0 {
		cfg.MaxRelationsPerRound = def.MaxRelationsPerRound
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = def.SampleSize
	}
	if cfg.RunsDir == "" {
		cfg.RunsDir = def.RunsDir
	}
	if cfg.EmbeddingDim <= 0 {
		cfg.EmbeddingDim = def.EmbeddingDim
	}
}

// newRng derives a fresh random source. With a configured RandomSeed each
// run still gets a distinct, reproducible stream.
func (e *engine) newRng() *rand.Rand {
	seq := e.runSeq.Add(1)
	base := e.cfg.RandomSeed
	if base == 0 {
		base = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(base + seq))
}

// throttledSource applies the shared search rate limit to a text source.
type throttledSource struct {
	inner   graph.Sourcer
	limiter *RateLimiter
}

func (t throttledSource) SourceText(ctx context.Context, entityName string) (string, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return t.inner.SourceText(ctx, entityName)
}

func (e *engine) BuildGraph(ctx context.Context, seed string) (*RunResult, error) {
	seed = strings.TrimSpace(seed)
	if seed == "" {
		return nil, ErrEmptySeed
	}

	run, err := runlog.Start(e.cfg.RunsDir, seed)
	if err != nil {
		return nil, fmt.Errorf("starting run log: %w", err)
	}

	sourcer := throttledSource{
		inner: &search.Source{
			Searcher:   e.searcher,
			Limit:      e.cfg.SearchResultLimit,
			MaxTextLen: e.cfg.MaxSourceTextLen,
		},
		limiter: e.limiter,
	}
	builder := graph.NewEngine(graph.Params{
		MaxIterations:        e.cfg.MaxIterations,
		MaxRelations:         e.cfg.MaxRelations,
		MaxRelationsPerRound: e.cfg.MaxRelationsPerRound,
	}, graph.NewLLMExtractor(e.chatLLM), sourcer, run, e.newRng())

	start := time.Now()
	res, buildErr := builder.Build(ctx, seed)

	if err := run.Finish(res); err != nil {
		slog.Warn("engine: writing run summary failed", "dir", run.Dir(), "error", err)
	}
	runID, err := e.store.SaveRun(ctx, run.Dir(), res)
	if err != nil {
		if buildErr != nil {
			return nil, fmt.Errorf("saving run after build failure (%v): %w", buildErr, err)
		}
		return nil, fmt.Errorf("saving run: %w", err)
	}

	slog.Info("engine: run complete",
		"run_id", runID,
		"seed", seed,
		"entities", len(res.Entities),
		"relations", len(res.Relations),
		"iterations", res.Stats.Iterations,
		"stop_reason", res.Stats.StopReason,
		"elapsed", time.Since(start).Round(time.Millisecond))

	return &RunResult{RunID: runID, Dir: run.Dir(), Build: res}, buildErr
}

func (e *engine) Sample(ctx context.Context, runID int64, method string) (sample.Result, error) {
	if _, err := e.store.GetRun(ctx, runID); err != nil {
		return sample.Result{}, fmt.Errorf("%w: id %d", ErrRunNotFound, runID)
	}
	entities, relations, err := e.store.RunGraph(ctx, runID)
	if err != nil {
		return sample.Result{}, fmt.Errorf("loading run graph: %w", err)
	}
	if len(entities) == 0 {
		return sample.Result{}, ErrEmptyGraph
	}

	sampler := sample.New(sample.DefaultConfig(), e.newRng())
	res := sampler.Sample(entities, relations, e.cfg.SampleSize, method)
	if _, err := e.store.SaveSample(ctx, runID, res); err != nil {
		return sample.Result{}, fmt.Errorf("saving sample: %w", err)
	}
	return res, nil
}

func (e *engine) Replay(ctx context.Context, dir string) (graph.BuildResult, error) {
	if err := ctx.Err(); err != nil {
		return graph.BuildResult{}, err
	}
	eng, err := runlog.Replay(dir)
	if err != nil {
		return graph.BuildResult{}, err
	}
	info, err := runlog.LoadInfo(dir)
	if err != nil {
		return graph.BuildResult{}, err
	}
	reg := eng.Registry()
	return graph.BuildResult{
		Seed:           info.Seed,
		Entities:       reg.Entities(),
		Relations:      reg.Relations(),
		ExpansionOrder: eng.ExpansionOrder(),
	}, nil
}

func (e *engine) EmbedRun(ctx context.Context, runID int64) error {
	if e.embedLLM == nil {
		return ErrEmbeddingUnavailable
	}
	entities, _, err := e.store.RunGraph(ctx, runID)
	if err != nil {
		return fmt.Errorf("loading run graph: %w", err)
	}
	if len(entities) == 0 {
		return ErrEmptyGraph
	}

	texts := make([]string, len(entities))
	for i, ent := range entities {
		texts[i] = ent.Name + ": " + ent.Description
	}
	embeddings, err := e.embedLLM.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding entities: %w", err)
	}
	if len(embeddings) != len(entities) {
		return fmt.Errorf("got %d embeddings for %d entities", len(embeddings), len(entities))
	}
	for i, ent := range entities {
		if err := e.store.UpsertEntityEmbedding(ctx, runID, ent.ID, embeddings[i]); err != nil {
			return fmt.Errorf("storing embedding for %s: %w", ent.ID, err)
		}
	}
	slog.Info("engine: run embedded", "run_id", runID, "entities", len(entities))
	return nil
}

func (e *engine) SimilarEntities(ctx context.Context, text string, k int) ([]store.EntityMatch, error) {
	if e.embedLLM == nil {
		return nil, ErrEmbeddingUnavailable
	}
	if k <= 0 {
		k = 10
	}
	embeddings, err := e.embedLLM.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("embedding query returned no vectors")
	}
	return e.store.SimilarEntities(ctx, embeddings[0], k)
}

func (e *engine) Runs(ctx context.Context) ([]store.Run, error) {
	return e.store.ListRuns(ctx)
}

func (e *engine) Store() *store.Store {
	return e.store
}

func (e *engine) Close() error {
	return e.store.Close()
}
