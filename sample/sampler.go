// Package sample extracts topologically interesting sub-graphs from a
// finished knowledge graph. Four algorithms each build a different shape
// (an augmented chain, a community with a long internal path, two bridged
// hubs, a maximal chain); a mixed mode picks one at random. All of them
// degrade to a plain random sample rather than fail, and every result is
// an induced sub-graph: a relation is returned only when both endpoints
// are in the returned node set.
package sample

import (
	"log/slog"
	"math/rand"

	"github.com/lcv-dev/graphweave/graph"
)

// Sampling method names, recorded on every Result.
const (
	MethodAugmentedChain    = "augmented_chain"
	MethodCommunityCorePath = "community_core_path"
	MethodDualCoreBridge    = "dual_core_bridge"
	MethodMaxChain          = "max_chain"
	MethodMixed             = "mixed"
	MethodFallbackRandom    = "fallback_random"
)

// Result is a sampled sub-graph plus its topology description, the unit
// of output consumed by downstream question authoring.
type Result struct {
	Nodes     []graph.Entity         `json:"nodes"`
	Relations []graph.Relation       `json:"relations"`
	Method    string                 `json:"method"`
	Topology  map[string]interface{} `json:"topology_info"`
}

// Config tunes the sampling heuristics. These are shape knobs, not
// correctness parameters.
type Config struct {
	MinPathLength  int // pad community paths shorter than this
	CommunityDepth int // BFS expansion depth around the community center
	MinCoreDegree  int // minimum degree for a node to anchor a community
	PairRetries    int // attempts to find a non-adjacent node pair
	ChainSeeds     int // DFS start points for the max-chain search
	PathSeeds      int // shortest-path start points inside a community
}

// DefaultConfig returns the production sampling parameters.
func DefaultConfig() Config {
	return Config{
		MinPathLength:  3,
		CommunityDepth: 2,
		MinCoreDegree:  2,
		PairRetries:    10,
		ChainSeeds:     10,
		PathSeeds:      5,
	}
}

// Sampler runs sub-graph extraction over one graph. It holds no graph
// state itself and is cheap to construct; the random source must be
// seedable so tests are deterministic. A Sampler is not safe for
// concurrent use because of the shared rng; concurrent samples of the
// same graph each get their own Sampler.
type Sampler struct {
	cfg Config
	rng *rand.Rand
}

// New creates a sampler with the given configuration and random source.
func New(cfg Config, rng *rand.Rand) *Sampler {
	def := DefaultConfig()
	if cfg.MinPathLength <= 0 {
		cfg.MinPathLength = def.MinPathLength
	}
	if cfg.CommunityDepth <= 0 {
		cfg.CommunityDepth = def.CommunityDepth
	}
	if cfg.MinCoreDegree <= 0 {
		cfg.MinCoreDegree = def.MinCoreDegree
	}
	if cfg.PairRetries <= 0 {
		cfg.PairRetries = def.PairRetries
	}
	if cfg.ChainSeeds <= 0 {
		cfg.ChainSeeds = def.ChainSeeds
	}
	if cfg.PathSeeds <= 0 {
		cfg.PathSeeds = def.PathSeeds
	}
	return &Sampler{cfg: cfg, rng: rng}
}

// Sample extracts a sub-graph of at most size nodes using the named
// method. Graphs smaller than the requested size always take the random
// fallback. The returned Topology map carries both the algorithm-specific
// fields and the degree statistics from AnalyzeTopology.
func (s *Sampler) Sample(entities []graph.Entity, relations []graph.Relation, size int, method string) Result {
	g := buildUndirected(entities, relations)

	if len(g.nodes) < size || len(g.nodes) == 0 {
		slog.Debug("sample: graph smaller than requested size, using fallback",
			"nodes", len(g.nodes), "size", size)
		return s.finish(s.fallbackRandom(g, size))
	}

	if method == MethodMixed || method == "" {
		methods := []string{
			MethodAugmentedChain,
			MethodCommunityCorePath,
			MethodDualCoreBridge,
			MethodMaxChain,
		}
		method = methods[s.rng.Intn(len(methods))]
		slog.Debug("sample: mixed mode selected algorithm", "method", method)
	}

	var res Result
	switch method {
	case MethodAugmentedChain:
		res = s.augmentedChain(g, size)
	case MethodCommunityCorePath:
		res = s.communityCorePath(g, size)
	case MethodDualCoreBridge:
		res = s.dualCoreBridge(g, size)
	case MethodMaxChain:
		res = s.maxChain(g, size)
	default:
		slog.Warn("sample: unknown method, using fallback", "method", method)
		res = s.fallbackRandom(g, size)
	}
	return s.finish(res)
}

// finish merges topology statistics into the algorithm's own info.
func (s *Sampler) finish(res Result) Result {
	stats := AnalyzeTopology(res.Nodes, res.Relations)
	merged := stats.Map()
	merged["algorithm_used"] = res.Method
	for k, v := range res.Topology {
		merged[k] = v
	}
	res.Topology = merged
	return res
}

// --- shared graph scaffolding ---

// undirected is the in-memory view the algorithms walk: ordered node IDs,
// an adjacency list with stable neighbour order, and lookups back to the
// source entities and relations.
type undirected struct {
	nodes     []string            // entity IDs, input order
	adj       map[string][]string // neighbour IDs, first-seen order
	adjSet    map[string]map[string]bool
	entities  map[string]graph.Entity
	relations []graph.Relation
}

func buildUndirected(entities []graph.Entity, relations []graph.Relation) *undirected {
	g := &undirected{
		adj:       make(map[string][]string),
		adjSet:    make(map[string]map[string]bool),
		entities:  make(map[string]graph.Entity, len(entities)),
		relations: relations,
	}
	for _, e := range entities {
		if _, ok := g.entities[e.ID]; ok {
			continue
		}
		g.entities[e.ID] = e
		g.nodes = append(g.nodes, e.ID)
		g.adjSet[e.ID] = make(map[string]bool)
	}
	for _, r := range relations {
		if _, ok := g.entities[r.SourceID]; !ok {
			continue
		}
		if _, ok := g.entities[r.TargetID]; !ok {
			continue
		}
		g.link(r.SourceID, r.TargetID)
		g.link(r.TargetID, r.SourceID)
	}
	return g
}

func (g *undirected) link(a, b string) {
	if a == b || g.adjSet[a][b] {
		return
	}
	g.adjSet[a][b] = true
	g.adj[a] = append(g.adj[a], b)
}

func (g *undirected) hasEdge(a, b string) bool {
	return g.adjSet[a][b]
}

func (g *undirected) degree(id string) int {
	return len(g.adj[id])
}

// shortestPath runs BFS between two nodes. ok is false when no path
// exists; callers branch on it instead of treating absence as an error.
func (g *undirected) shortestPath(from, to string) (path []string, ok bool) {
	if from == to {
		return []string{from}, true
	}
	prev := map[string]string{from: from}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range g.adj[cur] {
			if _, seen := prev[n]; seen {
				continue
			}
			prev[n] = cur
			if n == to {
				for at := to; at != from; at = prev[at] {
					path = append(path, at)
				}
				path = append(path, from)
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return path, true
			}
			queue = append(queue, n)
		}
	}
	return nil, false
}

// component returns the connected component containing start, in BFS
// order.
func (g *undirected) component(start string) []string {
	visited := map[string]bool{start: true}
	order := []string{start}
	for i := 0; i < len(order); i++ {
		for _, n := range g.adj[order[i]] {
			if !visited[n] {
				visited[n] = true
				order = append(order, n)
			}
		}
	}
	return order
}

// induced builds a Result from the chosen node IDs: resolve entities in
// input order and keep only relations with both endpoints inside the set.
func (g *undirected) induced(chosen map[string]bool, method string, topology map[string]interface{}) Result {
	var nodes []graph.Entity
	for _, id := range g.nodes {
		if chosen[id] {
			nodes = append(nodes, g.entities[id])
		}
	}
	var rels []graph.Relation
	for _, r := range g.relations {
		if chosen[r.SourceID] && chosen[r.TargetID] {
			rels = append(rels, r)
		}
	}
	return Result{Nodes: nodes, Relations: rels, Method: method, Topology: topology}
}

// pick returns up to n random distinct elements of items.
func (s *Sampler) pick(items []string, n int) []string {
	if n >= len(items) {
		n = len(items)
	}
	if n <= 0 {
		return nil
	}
	idx := s.rng.Perm(len(items))[:n]
	out := make([]string, n)
	for i, j := range idx {
		out[i] = items[j]
	}
	return out
}

// fallbackRandom is the degraded path: a plain uniform node sample with
// induced relations. Used for undersized graphs and unknown methods.
func (s *Sampler) fallbackRandom(g *undirected, size int) Result {
	chosen := make(map[string]bool)
	for _, id := range s.pick(g.nodes, size) {
		chosen[id] = true
	}
	return g.induced(chosen, MethodFallbackRandom, map[string]interface{}{
		"is_fallback": true,
	})
}
