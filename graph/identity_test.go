package graph

import (
	"strings"
	"testing"
)

func TestEntityIDDeterministic(t *testing.T) {
	first := EntityID("Quantum Computing", EntityConcept)
	if !strings.HasPrefix(first, "entity_") {
		t.Fatalf("id %q lacks prefix", first)
	}
	if len(first) != len("entity_")+16 {
		t.Fatalf("id %q has wrong hash length", first)
	}
	for i := 0; i < 5; i++ {
		if got := EntityID("Quantum Computing", EntityConcept); got != first {
			t.Fatalf("id unstable: %q then %q", first, got)
		}
	}
}

func TestEntityIDNormalizesNameAndType(t *testing.T) {
	a := EntityID("  Quantum   Computing ", "Concept")
	b := EntityID("quantum computing", "concept")
	if a != b {
		t.Errorf("normalized variants got distinct ids: %q vs %q", a, b)
	}

	c := EntityID("AI", EntityConcept)
	d := EntityID("artificial intelligence", EntityConcept)
	if c != d {
		t.Errorf("synonym variants got distinct ids: %q vs %q", c, d)
	}

	if EntityID("mercury", "planet") == EntityID("mercury", "element") {
		t.Error("same name with different types must get distinct ids")
	}
}

func TestRegistryMergeKeepsLongerFields(t *testing.T) {
	g := NewRegistry()

	id, isNew := g.Merge(Entity{Name: "CERN", Type: EntityOrg, Description: "lab"})
	if !isNew {
		t.Fatal("first merge not reported as new")
	}

	id2, isNew := g.Merge(Entity{Name: "CERN", Type: EntityOrg, Description: "European physics laboratory"})
	if isNew || id2 != id {
		t.Fatalf("re-merge: id %q (want %q), isNew %v", id2, id, isNew)
	}
	if got := g.Entity(id).Description; got != "European physics laboratory" {
		t.Errorf("longer description not kept: %q", got)
	}

	g.Merge(Entity{Name: "CERN", Type: EntityOrg, Description: "x"})
	if got := g.Entity(id).Description; got != "European physics laboratory" {
		t.Errorf("shorter description replaced longer: %q", got)
	}
	if g.EntityCount() != 1 {
		t.Errorf("entity count = %d, want 1", g.EntityCount())
	}
}

func TestAddRelationRequiresEndpoints(t *testing.T) {
	g := NewRegistry()
	aID, _ := g.Merge(Entity{Name: "a", Type: EntityConcept})

	if _, err := g.AddRelation(Relation{SourceID: aID, TargetID: "entity_0000000000000000", Label: "near"}); err == nil {
		t.Fatal("expected error for missing target")
	}
	if g.RelationCount() != 0 {
		t.Fatalf("relation count = %d after failed add", g.RelationCount())
	}
}

func TestAddRelationDirectionSensitiveDedup(t *testing.T) {
	g := NewRegistry()
	aID, _ := g.Merge(Entity{Name: "a", Type: EntityConcept})
	bID, _ := g.Merge(Entity{Name: "b", Type: EntityConcept})

	forward := Relation{SourceID: aID, TargetID: bID, Label: "near", SourceName: "a", TargetName: "b"}
	if added, err := g.AddRelation(forward); err != nil || !added {
		t.Fatalf("first add: added=%v err=%v", added, err)
	}
	if added, _ := g.AddRelation(forward); added {
		t.Fatal("duplicate key was added")
	}

	// Reversed direction is a distinct key.
	reverse := Relation{SourceID: bID, TargetID: aID, Label: "near", SourceName: "b", TargetName: "a"}
	if added, err := g.AddRelation(reverse); err != nil || !added {
		t.Fatalf("reverse add: added=%v err=%v", added, err)
	}
	if g.RelationCount() != 2 {
		t.Fatalf("relation count = %d, want 2", g.RelationCount())
	}
}

func TestFindIDByNameUsesNormalization(t *testing.T) {
	g := NewRegistry()
	id, _ := g.Merge(Entity{Name: "Machine Learning", Type: EntityConcept})

	if got := g.FindIDByName("  machine   learning "); got != id {
		t.Errorf("FindIDByName = %q, want %q", got, id)
	}
	if got := g.FindIDByName("ML"); got != id {
		t.Errorf("synonym lookup = %q, want %q", got, id)
	}
	if got := g.FindIDByName("unknown"); got != "" {
		t.Errorf("missing name returned %q", got)
	}
}

func TestDistance(t *testing.T) {
	g := NewRegistry()
	aID, _ := g.Merge(Entity{Name: "a", Type: EntityConcept})
	bID, _ := g.Merge(Entity{Name: "b", Type: EntityConcept})
	cID, _ := g.Merge(Entity{Name: "c", Type: EntityConcept})
	g.Merge(Entity{Name: "island", Type: EntityConcept})

	g.AddRelation(Relation{SourceID: aID, TargetID: bID, Label: "near", SourceName: "a", TargetName: "b"})
	g.AddRelation(Relation{SourceID: bID, TargetID: cID, Label: "near", SourceName: "b", TargetName: "c"})

	tests := []struct {
		from, to string
		want     int
	}{
		{"a", "a", 0},
		{"a", "b", 1},
		{"a", "c", 2},
		{"c", "a", 2},
		{"a", "island", -1},
		{"a", "never seen", -1},
	}
	for _, tt := range tests {
		if got := g.Distance(tt.from, tt.to); got != tt.want {
			t.Errorf("Distance(%q, %q) = %d, want %d", tt.from, tt.to, got, tt.want)
		}
	}
}
