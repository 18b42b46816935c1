package sample

import "sort"

// augmentedChain samples a shortest path between two distant nodes, then
// hangs one or two extra neighbours off each backbone node. The result
// reads as a storyline with side detail.
func (s *Sampler) augmentedChain(g *undirected, size int) Result {
	start := g.nodes[s.rng.Intn(len(g.nodes))]
	end := ""
	for attempt := 0; attempt < s.cfg.PairRetries; attempt++ {
		var far []string
		for _, id := range g.nodes {
			if id != start && !g.hasEdge(start, id) {
				far = append(far, id)
			}
		}
		if len(far) > 0 {
			end = far[s.rng.Intn(len(far))]
			break
		}
		start = g.nodes[s.rng.Intn(len(g.nodes))]
	}
	if end == "" {
		pair := s.pick(g.nodes, 2)
		start = pair[0]
		if len(pair) > 1 {
			end = pair[1]
		} else {
			end = start
		}
	}

	path, ok := g.shortestPath(start, end)
	if !ok {
		// Disconnected pair: stay inside start's component.
		comp := g.component(start)
		if len(comp) >= 2 {
			others := comp[1:]
			end = others[s.rng.Intn(len(others))]
			path, _ = g.shortestPath(start, end)
		} else {
			path = []string{start}
		}
	}
	if len(path) > size {
		path = path[:size]
	}

	chosen := make(map[string]bool, len(path))
	for _, id := range path {
		chosen[id] = true
	}

	augmented := 0
	for _, id := range path {
		if len(chosen) >= size {
			break
		}
		var avail []string
		for _, n := range g.adj[id] {
			if !chosen[n] {
				avail = append(avail, n)
			}
		}
		want := 1 + s.rng.Intn(2)
		if room := size - len(chosen); want > room {
			want = room
		}
		for _, n := range s.pick(avail, want) {
			chosen[n] = true
			augmented++
		}
	}

	return g.induced(chosen, MethodAugmentedChain, map[string]interface{}{
		"has_main_path":   true,
		"path_length":     len(path),
		"augmented_nodes": augmented,
	})
}

// communityCorePath grows a dense neighbourhood around a high-degree
// center, then extracts the longest shortest path inside it so the
// community still contains a multi-hop storyline.
func (s *Sampler) communityCorePath(g *undirected, size int) Result {
	candidates := g.nodes
	var cores []string
	for _, id := range g.nodes {
		if g.degree(id) >= s.cfg.MinCoreDegree {
			cores = append(cores, id)
		}
	}
	if len(cores) > 0 {
		candidates = cores
	}
	center := candidates[0]
	for _, id := range candidates[1:] {
		if g.degree(id) > g.degree(center) {
			center = id
		}
	}

	community := map[string]bool{center: true}
	order := []string{center}
	target := size * 3 / 2
	for depth := 0; depth < s.cfg.CommunityDepth; depth++ {
		var layer []string
		for _, id := range order {
			for _, n := range g.adj[id] {
				if !community[n] {
					community[n] = true
					layer = append(layer, n)
				}
			}
		}
		order = append(order, layer...)
		if len(order) >= target {
			break
		}
	}
	if len(order) > 2*size {
		kept := map[string]bool{center: true}
		var rest []string
		for _, id := range order {
			if id != center {
				rest = append(rest, id)
			}
		}
		for _, id := range s.pick(rest, target-1) {
			kept[id] = true
		}
		var trimmed []string
		for _, id := range order {
			if kept[id] {
				trimmed = append(trimmed, id)
			}
		}
		order = trimmed
		community = kept
	}

	// Longest shortest path found from a handful of random seeds. An
	// exhaustive all-pairs scan is not worth it on communities this small,
	// but a single seed misses too often.
	var longest []string
	for _, from := range s.pick(order, s.cfg.PathSeeds) {
		for _, to := range order {
			if to == from {
				continue
			}
			if p, ok := g.shortestPath(from, to); ok && pathInside(p, community) && len(p) > len(longest) {
				longest = p
			}
		}
	}
	if len(longest) == 0 {
		longest = []string{center}
	}
	if len(longest) > size {
		longest = longest[:size]
	}

	chosen := make(map[string]bool, size)
	for _, id := range longest {
		chosen[id] = true
	}
	if len(longest) < s.cfg.MinPathLength || len(chosen) < size {
		var rest []string
		for _, id := range order {
			if !chosen[id] {
				rest = append(rest, id)
			}
		}
		for _, id := range s.pick(rest, size-len(chosen)) {
			chosen[id] = true
		}
	}

	return g.induced(chosen, MethodCommunityCorePath, map[string]interface{}{
		"has_main_path":     true,
		"core_path_length":  len(longest),
		"community_size":    len(order),
		"is_dense_subgraph": true,
		"community_center":  g.entities[center].Name,
	})
}

// dualCoreBridge picks two high-degree, non-adjacent hubs, connects them
// by a shortest path, and fills the remaining quota with the hubs'
// neighbourhoods, half each.
func (s *Sampler) dualCoreBridge(g *undirected, size int) Result {
	if len(g.nodes) < 2 {
		return s.fallbackRandom(g, size)
	}
	byDegree := make([]string, len(g.nodes))
	copy(byDegree, g.nodes)
	sort.SliceStable(byDegree, func(i, j int) bool {
		return g.degree(byDegree[i]) > g.degree(byDegree[j])
	})

	core1, core2 := "", ""
	for i := 0; i < len(byDegree) && core2 == ""; i++ {
		for j := i + 1; j < len(byDegree); j++ {
			if !g.hasEdge(byDegree[i], byDegree[j]) {
				core1, core2 = byDegree[i], byDegree[j]
				break
			}
		}
	}
	if core2 == "" {
		// Fully interconnected top: any two distinct nodes will do.
		pair := s.pick(g.nodes, 2)
		core1, core2 = pair[0], pair[1]
	}

	bridge, ok := g.shortestPath(core1, core2)
	if !ok {
		bridge = []string{core1, core2}
	}
	if len(bridge) > size {
		bridge = bridge[:size]
	}
	chosen := make(map[string]bool, size)
	for _, id := range bridge {
		chosen[id] = true
	}

	fill := func(core string, quota int) {
		var avail []string
		for _, n := range g.adj[core] {
			if !chosen[n] {
				avail = append(avail, n)
			}
		}
		for _, n := range s.pick(avail, quota) {
			chosen[n] = true
		}
	}
	remaining := size - len(chosen)
	if remaining > 0 {
		fill(core1, remaining/2)
	}
	if room := size - len(chosen); room > 0 {
		fill(core2, room)
	}
	if room := size - len(chosen); room > 0 {
		var avail []string
		for _, n := range g.adj[core1] {
			if !chosen[n] {
				avail = append(avail, n)
			}
		}
		for _, n := range g.adj[core2] {
			if !chosen[n] {
				avail = append(avail, n)
			}
		}
		for _, n := range s.pick(avail, room) {
			chosen[n] = true
		}
	}

	return g.induced(chosen, MethodDualCoreBridge, map[string]interface{}{
		"has_dual_cores":     true,
		"bridge_path_length": len(bridge),
		"core1_degree":       g.degree(core1),
		"core2_degree":       g.degree(core2),
		"is_complex_network": true,
	})
}

// maxChain looks for the longest simple path reachable by bounded DFS
// from a few random seeds, then pads the chain with first- and
// second-order neighbours.
func (s *Sampler) maxChain(g *undirected, size int) Result {
	if len(g.nodes) < 2 {
		return s.fallbackRandom(g, size)
	}
	maxDepth := size / 2
	if maxDepth < 2 {
		maxDepth = 2
	}

	var chain []string
	for _, seed := range s.pick(g.nodes, s.cfg.ChainSeeds) {
		if p := g.longestDFSPath(seed, maxDepth); len(p) > len(chain) {
			chain = p
		}
	}
	if len(chain) == 0 {
		chain = []string{g.nodes[s.rng.Intn(len(g.nodes))]}
	}
	if len(chain) > size {
		chain = chain[:size]
	}

	chosen := make(map[string]bool, size)
	for _, id := range chain {
		chosen[id] = true
	}
	expanded := 0
	addNeighbours := func(of []string) {
		for _, id := range of {
			if len(chosen) >= size {
				return
			}
			var avail []string
			for _, n := range g.adj[id] {
				if !chosen[n] {
					avail = append(avail, n)
				}
			}
			room := size - len(chosen)
			for _, n := range s.pick(avail, room) {
				chosen[n] = true
				expanded++
			}
		}
	}
	addNeighbours(chain)
	if len(chosen) < size {
		var firstOrder []string
		for id := range chosen {
			firstOrder = append(firstOrder, id)
		}
		sort.Strings(firstOrder)
		addNeighbours(firstOrder)
	}

	ratio := 0.0
	if len(chosen) > 0 {
		ratio = float64(expanded) / float64(len(chosen))
	}
	return g.induced(chosen, MethodMaxChain, map[string]interface{}{
		"has_long_chain":           true,
		"chain_length":             len(chain),
		"chain_coverage":           float64(len(chain)) / float64(len(chosen)),
		"neighbor_expansion_ratio": ratio,
		"is_chain_centered":        true,
	})
}

// longestDFSPath returns the longest simple path found from start with
// the given depth cap. Depth-first with backtracking; the cap keeps the
// search linear in practice on the graph sizes this package sees.
func (g *undirected) longestDFSPath(start string, maxDepth int) []string {
	best := []string{start}
	onPath := map[string]bool{start: true}
	path := []string{start}
	var walk func()
	walk = func() {
		if len(path) > len(best) {
			best = append([]string(nil), path...)
		}
		if len(path) >= maxDepth {
			return
		}
		for _, n := range g.adj[path[len(path)-1]] {
			if onPath[n] {
				continue
			}
			onPath[n] = true
			path = append(path, n)
			walk()
			path = path[:len(path)-1]
			onPath[n] = false
		}
	}
	walk()
	return best
}

func pathInside(path []string, set map[string]bool) bool {
	for _, id := range path {
		if !set[id] {
			return false
		}
	}
	return true
}
