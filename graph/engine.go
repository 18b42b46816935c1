package graph

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

// Extractor turns source text about a focus entity into candidate entities
// and relations. Implementations may call an LLM; the engine only depends
// on this contract. Returning an empty result is not an error.
type Extractor interface {
	Extract(ctx context.Context, focusEntity, sourceText string) (ExtractionResult, error)
}

// Sourcer supplies the raw text an extraction round works on, typically
// backed by a web search or a local document corpus.
type Sourcer interface {
	SourceText(ctx context.Context, entityName string) (string, error)
}

// RoundRecorder persists one record per extraction round. Records are
// append-only; replaying them in order rebuilds the engine's graph.
type RoundRecorder interface {
	Record(rec RoundRecord) error
}

// RoundRecord is the persisted form of one extraction round.
type RoundRecord struct {
	Round      int              `json:"round"`
	Focus      string           `json:"focus"`
	Extraction ExtractionResult `json:"extraction"`
}

// Params bounds one graph build run.
type Params struct {
	MaxIterations        int // expansion rounds after the seed round
	MaxRelations         int // driver-level cap on total accepted relations
	MaxRelationsPerRound int // consistency-filter cap per batch
}

// DefaultParams mirrors the production defaults.
func DefaultParams() Params {
	return Params{
		MaxIterations:        15,
		MaxRelations:         30,
		MaxRelationsPerRound: 15,
	}
}

// BuildStats counts what happened during a run.
type BuildStats struct {
	Iterations       int           `json:"iterations"`
	EmptyRounds      int           `json:"empty_rounds"`
	DroppedRelations int           `json:"dropped_relations"`
	Elapsed          time.Duration `json:"elapsed"`
	StopReason       string        `json:"stop_reason"`
}

// BuildResult is the finished graph handed to sampling and, beyond this
// package, to question authoring.
type BuildResult struct {
	Seed           string     `json:"seed"`
	Entities       []Entity   `json:"entities"`
	Relations      []Relation `json:"relations"`
	ExpansionOrder []string   `json:"expansion_order"` // entity IDs, append-only
	Stats          BuildStats `json:"stats"`
}

// Engine owns all mutable state for one graph build run: the entity and
// relation tables, the scheduler, and the expansion order. Construct one
// Engine per run; nothing is shared between runs, so runs may proceed in
// parallel. Within a run the expansion loop is strictly sequential.
type Engine struct {
	params    Params
	reg       *Registry
	sched     *Scheduler
	extractor Extractor
	sourcer   Sourcer
	recorder  RoundRecorder
	rng       *rand.Rand

	expansion []string // entity IDs in pick order
	seen      map[RelationKey]bool
	stats     BuildStats
}

// NewEngine creates an engine for a single run. recorder may be nil when no
// round persistence is wanted.
func NewEngine(params Params, extractor Extractor, sourcer Sourcer, recorder RoundRecorder, rng *rand.Rand) *Engine {
	if params.MaxIterations <= 0 {
		params.MaxIterations = DefaultParams().MaxIterations
	}
	if params.MaxRelations <= 0 {
		params.MaxRelations = DefaultParams().MaxRelations
	}
	if params.MaxRelationsPerRound <= 0 {
		params.MaxRelationsPerRound = DefaultParams().MaxRelationsPerRound
	}
	return &Engine{
		params:    params,
		reg:       NewRegistry(),
		sched:     NewScheduler(rng),
		extractor: extractor,
		sourcer:   sourcer,
		recorder:  recorder,
		rng:       rng,
		seen:      make(map[RelationKey]bool),
	}
}

// Registry exposes the engine's graph for sampling and inspection.
func (e *Engine) Registry() *Registry { return e.reg }

// ExpansionOrder returns the entity IDs in pick order, seed first.
func (e *Engine) ExpansionOrder() []string {
	order := make([]string, len(e.expansion))
	copy(order, e.expansion)
	return order
}

// Build runs the full expansion loop for one seed entity. The returned
// result is valid even when err is non-nil: extractor failures abort the
// loop but the partial graph may still be sampled.
func (e *Engine) Build(ctx context.Context, seed string) (BuildResult, error) {
	start := time.Now()

	// The seed is registered before anything else and is the one entity
	// allowed to stay relation-less.
	seedID, _ := e.reg.Merge(Entity{
		Name:        seed,
		Type:        EntityConcept,
		Description: "seed entity: " + seed,
	})
	e.expansion = append(e.expansion, seedID)
	e.sched.MarkProcessed(seed)

	slog.Info("graph: build started", "seed", seed,
		"max_iterations", e.params.MaxIterations, "max_relations", e.params.MaxRelations)

	if err := e.round(ctx, 0, seed); err != nil {
		e.stats.StopReason = "extractor failure"
		return e.result(seed, start), err
	}

	for iter := 1; iter <= e.params.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			e.stats.StopReason = "cancelled"
			return e.result(seed, start), err
		}
		if e.reg.RelationCount() >= e.params.MaxRelations {
			e.stats.StopReason = "relation cap"
			break
		}

		next, ok := e.sched.Next(e.reg)
		if !ok {
			e.stats.StopReason = "starvation"
			break
		}

		if id := e.reg.FindIDByName(next); id != "" {
			e.expansion = append(e.expansion, id)
		}
		e.stats.Iterations = iter

		slog.Info("graph: expanding", "iteration", iter, "focus", next,
			"entities", e.reg.EntityCount(), "relations", e.reg.RelationCount())

		if err := e.round(ctx, iter, next); err != nil {
			e.stats.StopReason = "extractor failure"
			return e.result(seed, start), err
		}
	}

	if e.stats.StopReason == "" {
		e.stats.StopReason = "iteration cap"
	}
	res := e.result(seed, start)
	slog.Info("graph: build finished", "seed", seed,
		"entities", len(res.Entities), "relations", len(res.Relations),
		"iterations", e.stats.Iterations, "stop", e.stats.StopReason,
		"elapsed", res.Stats.Elapsed.Round(time.Millisecond))
	return res, nil
}

// round performs one extraction round for the focus entity: fetch source
// text, extract, merge, and persist the round record.
func (e *Engine) round(ctx context.Context, iter int, focus string) error {
	text, err := e.sourcer.SourceText(ctx, focus)
	if err != nil {
		return fmt.Errorf("sourcing text for %q: %w", focus, err)
	}

	res, err := e.extractor.Extract(ctx, focus, text)
	if err != nil {
		return fmt.Errorf("extracting from %q round: %w", focus, err)
	}

	if res.Empty() {
		e.stats.EmptyRounds++
		slog.Debug("graph: empty extraction round", "round", iter, "focus", focus)
	}

	e.Merge(res)

	if e.recorder != nil {
		if err := e.recorder.Record(RoundRecord{Round: iter, Focus: focus, Extraction: res}); err != nil {
			// Persistence is best-effort; the in-memory graph is authoritative.
			slog.Warn("graph: recording round failed", "round", iter, "error", err)
		}
	}
	return nil
}

// MergeStats reports the outcome of merging one extraction batch.
type MergeStats struct {
	NewEntities  int
	NewRelations int
	Dropped      int
}

// Merge feeds one extraction batch through the consistency filter and into
// the registry. Only entities participating in an accepted relation are
// kept, so no batch can introduce isolated nodes. Newly created entities
// are reported to the scheduler as discovered this round.
func (e *Engine) Merge(res ExtractionResult) MergeStats {
	var stats MergeStats

	// Candidates whose key already exists in the graph (by normalized
	// endpoint names) are redundant and must not consume filter budget.
	candidates := make([]ExtractedRelation, 0, len(res.Relations))
	for _, c := range res.Relations {
		key := RelationKey{
			Source: NormalizeName(c.Source),
			Label:  c.Label,
			Target: NormalizeName(c.Target),
		}
		if e.seen[key] {
			continue
		}
		candidates = append(candidates, c)
	}

	known := make(map[string]bool, e.reg.EntityCount())
	for _, n := range e.reg.Names() {
		known[NormalizeName(n)] = true
	}

	filtered := FilterRelations(candidates, known, e.params.MaxRelationsPerRound)
	stats.Dropped = filtered.Dropped
	e.stats.DroppedRelations += filtered.Dropped

	// Index the extracted entities by normalized name so accepted relation
	// endpoints can carry their full type and description.
	byName := make(map[string]ExtractedEntity, len(res.Entities))
	for _, ent := range res.Entities {
		if ent.Name == "" {
			continue
		}
		byName[NormalizeName(ent.Name)] = ent
	}

	var discovered []string
	mergeEndpoint := func(name string) string {
		ent, ok := byName[NormalizeName(name)]
		if !ok {
			// Endpoint named only inside a relation: admit it as a bare
			// concept so the relation can resolve.
			ent = ExtractedEntity{
				Name:        name,
				Type:        EntityConcept,
				Description: "entity referenced in relation: " + name,
			}
		}
		typ := ent.Type
		if typ == "" {
			typ = EntityConcept
		}
		id, isNew := e.reg.Merge(Entity{
			Name:        ent.Name,
			Type:        typ,
			Description: ent.Description,
		})
		if isNew {
			stats.NewEntities++
			discovered = append(discovered, ent.Name)
		}
		return id
	}

	for _, c := range filtered.Accepted {
		srcID := mergeEndpoint(c.Source)
		tgtID := mergeEndpoint(c.Target)

		added, err := e.reg.AddRelation(Relation{
			SourceID:   srcID,
			TargetID:   tgtID,
			Label:      c.Label,
			SourceName: c.Source,
			TargetName: c.Target,
		})
		if err != nil {
			slog.Warn("graph: dropping malformed relation",
				"source", c.Source, "target", c.Target, "error", err)
			stats.Dropped++
			continue
		}
		if added {
			stats.NewRelations++
		}
		e.seen[RelationKey{
			Source: NormalizeName(c.Source),
			Label:  c.Label,
			Target: NormalizeName(c.Target),
		}] = true
	}

	e.sched.MarkDiscovered(discovered)
	return stats
}

// Replay rebuilds the graph from persisted round records, in order. The
// scheduler state is advanced the same way a live run would advance it, so
// a replayed engine can resume expansion.
func (e *Engine) Replay(records []RoundRecord) {
	for i, rec := range records {
		if i == 0 {
			seedID, _ := e.reg.Merge(Entity{
				Name:        rec.Focus,
				Type:        EntityConcept,
				Description: "seed entity: " + rec.Focus,
			})
			e.expansion = append(e.expansion, seedID)
			e.sched.MarkProcessed(rec.Focus)
		} else {
			e.sched.MarkProcessed(rec.Focus)
			e.sched.ClearDiscovered()
			if id := e.reg.FindIDByName(rec.Focus); id != "" {
				e.expansion = append(e.expansion, id)
			}
		}
		e.Merge(rec.Extraction)
	}
}

func (e *Engine) result(seed string, start time.Time) BuildResult {
	e.stats.Elapsed = time.Since(start)
	order := make([]string, len(e.expansion))
	copy(order, e.expansion)
	return BuildResult{
		Seed:           seed,
		Entities:       e.reg.Entities(),
		Relations:      e.reg.Relations(),
		ExpansionOrder: order,
		Stats:          e.stats,
	}
}
