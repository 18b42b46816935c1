// Package runlog persists graph build runs as plain JSON on disk. Each
// run gets its own directory under a base dir; every extraction round is
// appended as a numbered file, so a run can be rebuilt later purely by
// replaying its records in file order. Nothing in a run directory is ever
// rewritten except the run_info.json summary.
package runlog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lcv-dev/graphweave/graph"
)

const (
	infoFile         = "run_info.json"
	extractionSuffix = "_extraction.json"
)

// Info is the run_info.json summary written when a run starts and
// rewritten once when it finishes.
type Info struct {
	Seed          string            `json:"seed"`
	StartedAt     time.Time         `json:"started_at"`
	FinishedAt    *time.Time        `json:"finished_at,omitempty"`
	Status        string            `json:"status"`
	EntityCount   int               `json:"entity_count,omitempty"`
	RelationCount int               `json:"relation_count,omitempty"`
	Stats         *graph.BuildStats `json:"stats,omitempty"`
}

// Run is one open run directory. It implements graph.RoundRecorder and
// may be shared across goroutines of the same run.
type Run struct {
	dir string

	mu  sync.Mutex
	seq int
}

// Start creates a fresh run directory under baseDir, named after the
// current time and the seed entity, and writes the initial summary.
func Start(baseDir, seed string) (*Run, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("runlog: create base dir: %w", err)
	}
	stamp := time.Now().Format("20060102_150405")
	name := stamp + "_" + sanitize(seed)
	dir := filepath.Join(baseDir, name)
	for n := 2; ; n++ {
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			break
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("runlog: create run dir: %w", err)
		}
		dir = filepath.Join(baseDir, fmt.Sprintf("%s_%d", name, n))
	}

	r := &Run{dir: dir}
	info := Info{Seed: seed, StartedAt: time.Now(), Status: "running"}
	if err := writeJSON(filepath.Join(dir, infoFile), info); err != nil {
		return nil, err
	}
	slog.Info("runlog: run started", "dir", dir, "seed", seed)
	return r, nil
}

// Dir returns the run directory path.
func (r *Run) Dir() string { return r.dir }

// Record appends one extraction round as the next numbered file.
func (r *Run) Record(rec graph.RoundRecord) error {
	r.mu.Lock()
	seq := r.seq
	r.seq++
	r.mu.Unlock()

	path := filepath.Join(r.dir, fmt.Sprintf("%04d%s", seq, extractionSuffix))
	if err := writeJSON(path, rec); err != nil {
		return err
	}
	return nil
}

// Finish rewrites the run summary with final counts and stats.
func (r *Run) Finish(res graph.BuildResult) error {
	info, err := LoadInfo(r.dir)
	if err != nil {
		info = Info{Seed: res.Seed, StartedAt: time.Now()}
	}
	now := time.Now()
	info.FinishedAt = &now
	info.Status = "finished"
	info.EntityCount = len(res.Entities)
	info.RelationCount = len(res.Relations)
	stats := res.Stats
	info.Stats = &stats
	return writeJSON(filepath.Join(r.dir, infoFile), info)
}

// LoadInfo reads a run directory's summary.
func LoadInfo(dir string) (Info, error) {
	var info Info
	data, err := os.ReadFile(filepath.Join(dir, infoFile))
	if err != nil {
		return info, fmt.Errorf("runlog: read run info: %w", err)
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return info, fmt.Errorf("runlog: decode run info: %w", err)
	}
	return info, nil
}

// Load reads every extraction record in a run directory, in file order.
func Load(dir string) ([]graph.RoundRecord, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("runlog: read run dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), extractionSuffix) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	records := make([]graph.RoundRecord, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("runlog: read record %s: %w", name, err)
		}
		var rec graph.RoundRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("runlog: decode record %s: %w", name, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Replay rebuilds a graph engine from a persisted run. The engine has no
// extractor or text source attached; it serves inspection and sampling.
func Replay(dir string) (*graph.Engine, error) {
	records, err := Load(dir)
	if err != nil {
		return nil, err
	}
	eng := graph.NewEngine(graph.DefaultParams(), nil, nil, nil, rand.New(rand.NewSource(0)))
	eng.Replay(records)
	slog.Info("runlog: run replayed", "dir", dir, "rounds", len(records),
		"entities", eng.Registry().EntityCount(), "relations", eng.Registry().RelationCount())
	return eng, nil
}

// List returns the run directories under baseDir, newest name last.
func List(baseDir string) ([]string, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("runlog: list runs: %w", err)
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(baseDir, e.Name()))
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("runlog: encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("runlog: write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// sanitize turns a seed entity name into a directory-safe slug.
func sanitize(seed string) string {
	var b strings.Builder
	for _, r := range seed {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
		if b.Len() >= 40 {
			break
		}
	}
	if b.Len() == 0 {
		return "run"
	}
	return b.String()
}
