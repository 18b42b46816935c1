package graph

import "log/slog"

// FilterResult reports what the consistency filter kept and dropped.
type FilterResult struct {
	Accepted []ExtractedRelation
	Dropped  int // candidates never reachable from the known frontier
	Rounds   int
}

// maxFilterRounds is a safety bound on frontier-growth passes. The loop
// terminates on its own when a full pass accepts nothing; this only guards
// against pathological inputs.
const maxFilterRounds = 100

// FilterRelations keeps only candidate relations reachable from the
// existing graph, growing the known frontier breadth-first until a full
// pass accepts nothing, the accepted count reaches maxRelations, or no
// candidates remain. A relation is admissible when either endpoint is
// already known, or the known set is empty (the seed round bootstraps from
// nothing). Accepting a relation adds both endpoints to the frontier, so
// chains of new entities are admitted as long as the chain anchors to the
// graph. Candidates never accepted are dropped: this is what keeps orphan
// sub-graphs out of the store.
func FilterRelations(candidates []ExtractedRelation, known map[string]bool, maxRelations int) FilterResult {
	var res FilterResult

	// Work on a copy of the frontier; callers keep ownership of known.
	frontier := make(map[string]bool, len(known))
	for name := range known {
		frontier[name] = true
	}

	seen := make(map[RelationKey]bool)
	pending := make([]ExtractedRelation, 0, len(candidates))
	for _, c := range candidates {
		key := RelationKey{Source: c.Source, Label: c.Label, Target: c.Target}
		if seen[key] || c.Source == "" || c.Target == "" {
			res.Dropped++
			continue
		}
		seen[key] = true
		pending = append(pending, c)
	}

	for len(pending) > 0 && len(res.Accepted) < maxRelations && res.Rounds < maxFilterRounds {
		res.Rounds++
		var next []ExtractedRelation
		added := 0

		for _, c := range pending {
			if len(res.Accepted) >= maxRelations {
				next = append(next, c)
				continue
			}
			srcKnown := frontier[NormalizeName(c.Source)]
			tgtKnown := frontier[NormalizeName(c.Target)]
			// An empty frontier only occurs on the seed round, and only
			// until the first acceptance: the batch bootstraps off itself.
			if srcKnown || tgtKnown || len(frontier) == 0 {
				res.Accepted = append(res.Accepted, c)
				frontier[NormalizeName(c.Source)] = true
				frontier[NormalizeName(c.Target)] = true
				added++
				continue
			}
			next = append(next, c)
		}

		pending = next
		if added == 0 {
			break
		}
	}

	res.Dropped += len(pending)
	if res.Dropped > 0 {
		slog.Debug("graph: filter dropped unreachable relations",
			"dropped", res.Dropped, "accepted", len(res.Accepted), "rounds", res.Rounds)
	}
	return res
}
