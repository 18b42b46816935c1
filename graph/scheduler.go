package graph

import (
	"log/slog"
	"math/rand"
)

// Scheduler picks the next entity to explore. It holds the per-run
// exploration state: which entities were already explored, which were
// discovered in the most recent round, and which entity was explored last.
// The zero value is not usable; construct with NewScheduler.
type Scheduler struct {
	rng          *rand.Rand
	processed    map[string]bool // normalized names already explored
	discovered   map[string]bool // normalized names discovered this round
	lastExpanded string          // raw name of the previous pick
}

// NewScheduler creates a scheduler driven by the given random source. The
// source must be seedable by tests; the scheduler never touches the global
// generator.
func NewScheduler(rng *rand.Rand) *Scheduler {
	return &Scheduler{
		rng:        rng,
		processed:  make(map[string]bool),
		discovered: make(map[string]bool),
	}
}

// MarkProcessed records an entity as explored without it having been picked
// (used for the seed entity).
func (s *Scheduler) MarkProcessed(name string) {
	s.processed[NormalizeName(name)] = true
	s.lastExpanded = name
}

// ClearDiscovered resets the discovered-this-round set, as picking does.
// Used when replaying persisted rounds.
func (s *Scheduler) ClearDiscovered() {
	s.discovered = make(map[string]bool)
}

// MarkDiscovered records entity names that entered the graph during the
// current round.
func (s *Scheduler) MarkDiscovered(names []string) {
	for _, n := range names {
		s.discovered[NormalizeName(n)] = true
	}
}

// Processed reports whether the named entity was already explored.
func (s *Scheduler) Processed(name string) bool {
	return s.processed[NormalizeName(name)]
}

// Next picks the next entity to explore from the graph, or returns
// ok=false when every entity has been explored (starvation; the driver
// stops normally). On success the pick is recorded: it joins the processed
// set, becomes lastExpanded, and the discovered-this-round set is cleared
// for the next extraction round.
func (s *Scheduler) Next(g *Registry) (name string, ok bool) {
	// Candidates: all entity names not yet explored, insertion order.
	var candidates []string
	for _, n := range g.Names() {
		if !s.processed[NormalizeName(n)] {
			candidates = append(candidates, n)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}

	var latest, previous []string
	for _, n := range candidates {
		if s.discovered[NormalizeName(n)] {
			latest = append(latest, n)
		} else {
			previous = append(previous, n)
		}
	}

	// Keep the newest frontier locally attached: of the entities discovered
	// this round, scan only those one hop from the previous pick. The full
	// discovered set stays eligible as an event's time-pivot target, and
	// stands unshrunk when nothing is one hop away.
	latestAll := latest
	if s.lastExpanded != "" && len(latest) > 0 {
		var near []string
		for _, n := range latest {
			if g.Distance(n, s.lastExpanded) == 1 {
				near = append(near, n)
			}
		}
		if len(near) > 0 {
			latest = near
		}
	}

	type group struct {
		scan     []string // candidates iterated in random order
		eligible []string // membership set for the event time pivot
	}
	var groups []group
	if len(latest) > 0 {
		groups = append(groups, group{scan: latest, eligible: latestAll})
	}
	if len(previous) > 0 {
		groups = append(groups, group{scan: previous, eligible: previous})
	}
	s.rng.Shuffle(len(groups), func(i, j int) {
		groups[i], groups[j] = groups[j], groups[i]
	})

	var pick, fallbackEvent string
	for _, grp := range groups {
		var groupEvent string
		pick, groupEvent = s.tryPick(g, grp.scan, grp.eligible)
		if fallbackEvent == "" {
			fallbackEvent = groupEvent
		}
		if pick != "" {
			break
		}
	}

	if pick == "" {
		pick = fallbackEvent
	}
	if pick == "" {
		pick = candidates[s.rng.Intn(len(candidates))]
		slog.Debug("graph: scheduler falling back to random candidate", "pick", pick)
	}

	s.processed[NormalizeName(pick)] = true
	s.lastExpanded = pick
	s.discovered = make(map[string]bool)
	return pick, true
}

// tryPick scans the group in random order. Non-event entities are returned
// immediately. For an event entity the scheduler pivots to one of its
// time-typed neighbours among the eligible names (events tend to balloon
// into unrelated sub-topics; their time anchor is the useful hop). The
// first event seen is reported so the caller can use it as a last resort.
func (s *Scheduler) tryPick(g *Registry, scan, eligible []string) (pick, firstEvent string) {
	inGroup := make(map[string]bool, len(eligible))
	for _, n := range eligible {
		inGroup[NormalizeName(n)] = true
	}

	shuffled := make([]string, len(scan))
	copy(shuffled, scan)
	s.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	for _, candidate := range shuffled {
		if g.TypeOf(candidate) != EntityEvent {
			return candidate, firstEvent
		}

		if firstEvent == "" {
			firstEvent = candidate
		}

		for _, t := range s.timeNeighbors(g, candidate) {
			norm := NormalizeName(t)
			if inGroup[norm] && !s.processed[norm] {
				return t, firstEvent
			}
		}
	}
	return "", firstEvent
}

// timeNeighbors returns the time-typed entities directly related to the
// named event, deduplicated, in relation order.
func (s *Scheduler) timeNeighbors(g *Registry, eventName string) []string {
	want := NormalizeName(eventName)
	seen := make(map[string]bool)
	var out []string

	add := func(name string) {
		norm := NormalizeName(name)
		if !seen[norm] && g.TypeOf(name) == EntityTime {
			seen[norm] = true
			out = append(out, name)
		}
	}

	for _, r := range g.Relations() {
		switch want {
		case NormalizeName(r.SourceName):
			add(r.TargetName)
		case NormalizeName(r.TargetName):
			add(r.SourceName)
		}
	}
	return out
}
