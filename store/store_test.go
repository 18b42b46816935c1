//go:build cgo

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/lcv-dev/graphweave/graph"
	"github.com/lcv-dev/graphweave/sample"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"), 4)
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testBuildResult() graph.BuildResult {
	entities := []graph.Entity{
		{ID: graph.EntityID("quantum computing", graph.EntityConcept), Name: "quantum computing", Type: graph.EntityConcept, Description: "computation using quantum effects"},
		{ID: graph.EntityID("Google", graph.EntityOrg), Name: "Google", Type: graph.EntityOrg, Description: "technology company"},
	}
	return graph.BuildResult{
		Seed:     "quantum computing",
		Entities: entities,
		Relations: []graph.Relation{
			{SourceID: entities[1].ID, TargetID: entities[0].ID, Label: "invests in",
				SourceName: "Google", TargetName: "quantum computing"},
		},
		Stats: graph.BuildStats{Iterations: 2, StopReason: "starvation"},
	}
}

func TestSaveAndLoadRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	runID, err := s.SaveRun(ctx, "runs/20260831_120000_quantum", testBuildResult())
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	run, err := s.GetRun(ctx, runID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Seed != "quantum computing" || run.EntityCount != 2 || run.RelationCount != 1 {
		t.Fatalf("run = %+v", run)
	}
	if run.StopReason != "starvation" {
		t.Errorf("stop reason = %q", run.StopReason)
	}

	entities, relations, err := s.RunGraph(ctx, runID)
	if err != nil {
		t.Fatalf("RunGraph: %v", err)
	}
	if len(entities) != 2 || len(relations) != 1 {
		t.Fatalf("got %d entities, %d relations", len(entities), len(relations))
	}
	if entities[0].Name != "quantum computing" {
		t.Errorf("entity order not preserved: %q first", entities[0].Name)
	}
	if relations[0].Label != "invests in" {
		t.Errorf("relation label = %q", relations[0].Label)
	}
}

func TestGetRunMissing(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetRun(context.Background(), 999); err == nil {
		t.Fatal("expected error for missing run")
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	res := testBuildResult()
	if _, err := s.SaveRun(ctx, "runs/first", res); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if _, err := s.SaveRun(ctx, "runs/second", res); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].Dir != "runs/second" {
		t.Errorf("newest run not first: %q", runs[0].Dir)
	}
}

func TestSaveAndListSamples(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	res := testBuildResult()
	runID, err := s.SaveRun(ctx, "runs/sampled", res)
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	sampleRes := sample.Result{
		Nodes:     res.Entities,
		Relations: res.Relations,
		Method:    sample.MethodAugmentedChain,
		Topology:  map[string]interface{}{"topology_complexity": "low", "has_main_path": true},
	}
	if _, err := s.SaveSample(ctx, runID, sampleRes); err != nil {
		t.Fatalf("SaveSample: %v", err)
	}

	samples, err := s.ListSamples(ctx, runID)
	if err != nil {
		t.Fatalf("ListSamples: %v", err)
	}
	if len(samples) != 1 {
		t.Fatalf("got %d samples, want 1", len(samples))
	}
	got := samples[0]
	if got.Method != sample.MethodAugmentedChain || len(got.Nodes) != 2 || len(got.Relations) != 1 {
		t.Fatalf("sample = %+v", got)
	}
	if got.Topology["topology_complexity"] != "low" {
		t.Errorf("topology = %v", got.Topology)
	}
}

func TestEntityEmbeddingKNN(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	res := testBuildResult()
	runID, err := s.SaveRun(ctx, "runs/embedded", res)
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	near := []float32{1, 0, 0, 0}
	far := []float32{0, 0, 0, 1}
	if err := s.UpsertEntityEmbedding(ctx, runID, res.Entities[0].ID, near); err != nil {
		t.Fatalf("UpsertEntityEmbedding: %v", err)
	}
	if err := s.UpsertEntityEmbedding(ctx, runID, res.Entities[1].ID, far); err != nil {
		t.Fatalf("UpsertEntityEmbedding: %v", err)
	}

	matches, err := s.SimilarEntities(ctx, []float32{0.9, 0.1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("SimilarEntities: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
	if matches[0].Name != "quantum computing" {
		t.Errorf("nearest = %q, want quantum computing", matches[0].Name)
	}
	if matches[0].Distance >= matches[1].Distance {
		t.Errorf("distances not ascending: %v, %v", matches[0].Distance, matches[1].Distance)
	}
}

func TestEmbeddingDimensionChecked(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	res := testBuildResult()
	runID, err := s.SaveRun(ctx, "runs/dim", res)
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if err := s.UpsertEntityEmbedding(ctx, runID, res.Entities[0].ID, []float32{1, 2}); err == nil {
		t.Fatal("expected dimension error")
	}
	if _, err := s.SimilarEntities(ctx, []float32{1, 2}, 1); err == nil {
		t.Fatal("expected dimension error")
	}
}
