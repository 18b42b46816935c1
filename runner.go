package graphweave

import (
	"context"
	"log/slog"
	"sync"
)

// BuildAll builds graphs for many seeds concurrently. Parallelism is
// bounded by Workers; each seed gets its own run directory, engine state,
// and random stream, so failures stay isolated to their outcome slot.
func (e *engine) BuildAll(ctx context.Context, seeds []string) []RunOutcome {
	outcomes := make([]RunOutcome, len(seeds))
	sem := make(chan struct{}, e.cfg.Workers)
	var wg sync.WaitGroup

	for i, seed := range seeds {
		wg.Add(1)
		go func(i int, seed string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				outcomes[i] = RunOutcome{Seed: seed, Err: ctx.Err()}
				return
			}

			res, err := e.BuildGraph(ctx, seed)
			if err != nil {
				slog.Warn("engine: seed build failed", "seed", seed, "error", err)
			}
			outcomes[i] = RunOutcome{Seed: seed, Result: res, Err: err}
		}(i, seed)
	}
	wg.Wait()
	return outcomes
}
