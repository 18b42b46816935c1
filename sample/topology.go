package sample

import "github.com/lcv-dev/graphweave/graph"

// TopologyStats describes the degree structure of a sampled sub-graph.
// Degree counts only the relations inside the sample.
type TopologyStats struct {
	TotalNodes     int     `json:"total_nodes"`
	TotalEdges     int     `json:"total_edges"`
	AvgDegree      float64 `json:"avg_degree"`
	MaxDegree      int     `json:"max_degree"`
	DegreeVariance float64 `json:"degree_variance"`
	Complexity     string  `json:"topology_complexity"`
}

// AnalyzeTopology computes degree statistics over the induced edges and
// classifies the sample's complexity:
//
//	high    maxDegree >= 3 and degree variance > 1
//	medium  maxDegree >= 2
//	low     otherwise
//
// Parallel relations between the same pair still count once per relation,
// matching how question difficulty scales with stated facts rather than
// distinct neighbours.
func AnalyzeTopology(nodes []graph.Entity, relations []graph.Relation) TopologyStats {
	stats := TopologyStats{TotalNodes: len(nodes), Complexity: "low"}
	if len(nodes) == 0 {
		return stats
	}

	degree := make(map[string]int, len(nodes))
	for _, n := range nodes {
		degree[n.ID] = 0
	}
	for _, r := range relations {
		_, srcIn := degree[r.SourceID]
		_, tgtIn := degree[r.TargetID]
		if !srcIn || !tgtIn {
			continue
		}
		stats.TotalEdges++
		degree[r.SourceID]++
		if r.TargetID != r.SourceID {
			degree[r.TargetID]++
		}
	}

	sum := 0
	for _, n := range nodes {
		d := degree[n.ID]
		sum += d
		if d > stats.MaxDegree {
			stats.MaxDegree = d
		}
	}
	stats.AvgDegree = float64(sum) / float64(len(nodes))
	for _, n := range nodes {
		diff := float64(degree[n.ID]) - stats.AvgDegree
		stats.DegreeVariance += diff * diff
	}
	stats.DegreeVariance /= float64(len(nodes))

	switch {
	case stats.MaxDegree >= 3 && stats.DegreeVariance > 1:
		stats.Complexity = "high"
	case stats.MaxDegree >= 2:
		stats.Complexity = "medium"
	}
	return stats
}

// Map flattens the stats for merging into a Result's topology info.
func (t TopologyStats) Map() map[string]interface{} {
	return map[string]interface{}{
		"total_nodes":         t.TotalNodes,
		"total_edges":         t.TotalEdges,
		"avg_degree":          t.AvgDegree,
		"max_degree":          t.MaxDegree,
		"degree_variance":     t.DegreeVariance,
		"topology_complexity": t.Complexity,
	}
}
