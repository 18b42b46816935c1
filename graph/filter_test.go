package graph

import "testing"

func rel(source, label, target string) ExtractedRelation {
	return ExtractedRelation{Source: source, Label: label, Target: target}
}

func TestFilterBootstrapsOnlyUntilFirstAcceptance(t *testing.T) {
	// Empty known set: the first candidate seeds the frontier, after which
	// unconnected candidates must anchor or be dropped.
	res := FilterRelations([]ExtractedRelation{
		rel("a", "near", "b"),
		rel("x", "near", "y"),
	}, map[string]bool{}, 15)

	if len(res.Accepted) != 1 {
		t.Fatalf("accepted %d relations, want 1", len(res.Accepted))
	}
	if res.Accepted[0].Source != "a" {
		t.Errorf("accepted %+v, want the first candidate", res.Accepted[0])
	}
	if res.Dropped != 1 {
		t.Errorf("dropped = %d, want 1", res.Dropped)
	}
}

func TestFilterGrowsFrontierAcrossPasses(t *testing.T) {
	// c-d anchors only through b-c, which anchors only through a-b. The
	// candidate order forces one new acceptance per pass.
	known := map[string]bool{"a": true}
	res := FilterRelations([]ExtractedRelation{
		rel("c", "near", "d"),
		rel("b", "near", "c"),
		rel("a", "near", "b"),
	}, known, 15)

	if len(res.Accepted) != 3 {
		t.Fatalf("accepted %d relations, want 3", len(res.Accepted))
	}
	if res.Rounds < 3 {
		t.Errorf("rounds = %d, want at least 3", res.Rounds)
	}
	if res.Dropped != 0 {
		t.Errorf("dropped = %d, want 0", res.Dropped)
	}
	// Caller's known set must be untouched.
	if len(known) != 1 {
		t.Errorf("known set mutated: %v", known)
	}
}

func TestFilterDropsUnreachable(t *testing.T) {
	res := FilterRelations([]ExtractedRelation{
		rel("a", "near", "b"),
		rel("x", "near", "y"),
		rel("y", "near", "z"),
	}, map[string]bool{"a": true}, 15)

	if len(res.Accepted) != 1 {
		t.Fatalf("accepted %d relations, want 1", len(res.Accepted))
	}
	if res.Dropped != 2 {
		t.Errorf("dropped = %d, want 2", res.Dropped)
	}
}

func TestFilterRespectsCap(t *testing.T) {
	res := FilterRelations([]ExtractedRelation{
		rel("a", "near", "b"),
		rel("a", "near", "c"),
		rel("a", "near", "d"),
	}, map[string]bool{"a": true}, 2)

	if len(res.Accepted) != 2 {
		t.Fatalf("accepted %d relations, want cap of 2", len(res.Accepted))
	}
	if res.Dropped != 1 {
		t.Errorf("dropped = %d, want 1", res.Dropped)
	}
}

func TestFilterDedupsAndSkipsBlankEndpoints(t *testing.T) {
	res := FilterRelations([]ExtractedRelation{
		rel("a", "near", "b"),
		rel("a", "near", "b"), // duplicate key
		rel("", "near", "b"),
		rel("a", "near", ""),
		rel("a", "far", "b"), // same pair, different label: distinct
	}, map[string]bool{"a": true}, 15)

	if len(res.Accepted) != 2 {
		t.Fatalf("accepted %d relations, want 2", len(res.Accepted))
	}
	if res.Dropped != 3 {
		t.Errorf("dropped = %d, want 3", res.Dropped)
	}
}

func TestFilterNormalizesEndpointNames(t *testing.T) {
	res := FilterRelations([]ExtractedRelation{
		rel("Quantum  Computing", "studied by", "b"),
	}, map[string]bool{NormalizeName("quantum computing"): true}, 15)

	if len(res.Accepted) != 1 {
		t.Fatalf("accepted %d relations, want 1", len(res.Accepted))
	}
}
