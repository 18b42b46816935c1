// Package store persists finished runs, their graphs, and sampled
// sub-graphs in SQLite. Entity description embeddings live in a
// sqlite-vec virtual table so near-duplicate entities can be found by
// KNN over runs.
package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/lcv-dev/graphweave/graph"
	"github.com/lcv-dev/graphweave/sample"
)

func init() {
	sqlite_vec.Auto()
}

// Run represents a row in the runs table.
type Run struct {
	ID            int64  `json:"id"`
	Dir           string `json:"dir"`
	Seed          string `json:"seed"`
	Status        string `json:"status"`
	Iterations    int    `json:"iterations"`
	StopReason    string `json:"stop_reason"`
	EntityCount   int    `json:"entity_count"`
	RelationCount int    `json:"relation_count"`
	CreatedAt     string `json:"created_at"`
}

// Sample represents a row in the samples table, with the JSON columns
// decoded.
type Sample struct {
	ID        int64                  `json:"id"`
	RunID     int64                  `json:"run_id"`
	Method    string                 `json:"method"`
	Nodes     []graph.Entity         `json:"nodes"`
	Relations []graph.Relation       `json:"relations"`
	Topology  map[string]interface{} `json:"topology_info"`
}

// EntityMatch is one KNN result over entity description embeddings.
type EntityMatch struct {
	RunID    int64   `json:"run_id"`
	EntityID string  `json:"entity_id"`
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
}

// Store wraps the SQLite database for all graphweave persistence.
type Store struct {
	db           *sql.DB
	embeddingDim int
}

// New opens (or creates) a SQLite database at the given path and
// initialises the schema including the sqlite-vec virtual table.
func New(dbPath string, embeddingDim int) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL(embeddingDim)); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	// Connection pool settings for SQLite.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db, embeddingDim: embeddingDim}

	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// EmbeddingDim returns the configured embedding dimension.
func (s *Store) EmbeddingDim() int {
	return s.embeddingDim
}

// --- Run operations ---

// SaveRun inserts a finished run with its full graph in one transaction
// and returns the run ID. dir is the run's log directory and must be
// unique.
func (s *Store) SaveRun(ctx context.Context, dir string, res graph.BuildResult) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin save run: %w", err)
	}
	defer tx.Rollback()

	row, err := tx.ExecContext(ctx, `
		INSERT INTO runs (dir, seed, status, iterations, stop_reason, entity_count, relation_count, finished_at)
		VALUES (?, ?, 'finished', ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, dir, res.Seed, res.Stats.Iterations, res.Stats.StopReason, len(res.Entities), len(res.Relations))
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	runID, err := row.LastInsertId()
	if err != nil {
		return 0, err
	}

	entStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_entities (run_id, entity_id, name, entity_type, description)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing entity insert: %w", err)
	}
	defer entStmt.Close()
	for _, e := range res.Entities {
		if _, err := entStmt.ExecContext(ctx, runID, e.ID, e.Name, e.Type, e.Description); err != nil {
			return 0, fmt.Errorf("inserting entity %s: %w", e.ID, err)
		}
	}

	relStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_relations (run_id, source_id, target_id, label, source_name, target_name)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing relation insert: %w", err)
	}
	defer relStmt.Close()
	for _, r := range res.Relations {
		if _, err := relStmt.ExecContext(ctx, runID, r.SourceID, r.TargetID, r.Label, r.SourceName, r.TargetName); err != nil {
			return 0, fmt.Errorf("inserting relation %s->%s: %w", r.SourceID, r.TargetID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing run: %w", err)
	}
	return runID, nil
}

// GetRun returns one run row by ID.
func (s *Store) GetRun(ctx context.Context, id int64) (Run, error) {
	var r Run
	err := s.db.QueryRowContext(ctx, `
		SELECT id, dir, seed, status, iterations, COALESCE(stop_reason, ''),
		       entity_count, relation_count, created_at
		FROM runs WHERE id = ?
	`, id).Scan(&r.ID, &r.Dir, &r.Seed, &r.Status, &r.Iterations, &r.StopReason,
		&r.EntityCount, &r.RelationCount, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return r, fmt.Errorf("run %d not found", id)
	}
	return r, err
}

// ListRuns returns all runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, dir, seed, status, iterations, COALESCE(stop_reason, ''),
		       entity_count, relation_count, created_at
		FROM runs ORDER BY id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Dir, &r.Seed, &r.Status, &r.Iterations, &r.StopReason,
			&r.EntityCount, &r.RelationCount, &r.CreatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunGraph loads the stored entities and relations of a run, in
// insertion order.
func (s *Store) RunGraph(ctx context.Context, runID int64) ([]graph.Entity, []graph.Relation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entity_id, name, entity_type, COALESCE(description, '')
		FROM run_entities WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var entities []graph.Entity
	for rows.Next() {
		var e graph.Entity
		if err := rows.Scan(&e.ID, &e.Name, &e.Type, &e.Description); err != nil {
			return nil, nil, err
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	relRows, err := s.db.QueryContext(ctx, `
		SELECT source_id, target_id, label, COALESCE(source_name, ''), COALESCE(target_name, '')
		FROM run_relations WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, nil, err
	}
	defer relRows.Close()

	var relations []graph.Relation
	for relRows.Next() {
		var r graph.Relation
		if err := relRows.Scan(&r.SourceID, &r.TargetID, &r.Label, &r.SourceName, &r.TargetName); err != nil {
			return nil, nil, err
		}
		relations = append(relations, r)
	}
	return entities, relations, relRows.Err()
}

// --- Sample operations ---

// SaveSample stores a sampled sub-graph for a run and returns its ID.
func (s *Store) SaveSample(ctx context.Context, runID int64, res sample.Result) (int64, error) {
	nodes, err := json.Marshal(res.Nodes)
	if err != nil {
		return 0, fmt.Errorf("encoding sample nodes: %w", err)
	}
	relations, err := json.Marshal(res.Relations)
	if err != nil {
		return 0, fmt.Errorf("encoding sample relations: %w", err)
	}
	topology, err := json.Marshal(res.Topology)
	if err != nil {
		return 0, fmt.Errorf("encoding sample topology: %w", err)
	}

	row, err := s.db.ExecContext(ctx, `
		INSERT INTO samples (run_id, method, nodes, relations, topology)
		VALUES (?, ?, ?, ?, ?)
	`, runID, res.Method, string(nodes), string(relations), string(topology))
	if err != nil {
		return 0, fmt.Errorf("inserting sample: %w", err)
	}
	return row.LastInsertId()
}

// ListSamples returns the stored samples of a run, oldest first.
func (s *Store) ListSamples(ctx context.Context, runID int64) ([]Sample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, method, nodes, relations, COALESCE(topology, '{}')
		FROM samples WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var (
			sm        Sample
			nodes     string
			relations string
			topology  string
		)
		if err := rows.Scan(&sm.ID, &sm.RunID, &sm.Method, &nodes, &relations, &topology); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(nodes), &sm.Nodes); err != nil {
			return nil, fmt.Errorf("decoding sample %d nodes: %w", sm.ID, err)
		}
		if err := json.Unmarshal([]byte(relations), &sm.Relations); err != nil {
			return nil, fmt.Errorf("decoding sample %d relations: %w", sm.ID, err)
		}
		if err := json.Unmarshal([]byte(topology), &sm.Topology); err != nil {
			return nil, fmt.Errorf("decoding sample %d topology: %w", sm.ID, err)
		}
		samples = append(samples, sm)
	}
	return samples, rows.Err()
}

// --- Embedding operations ---

// UpsertEntityEmbedding stores a description embedding for one stored
// entity of a run.
func (s *Store) UpsertEntityEmbedding(ctx context.Context, runID int64, entityID string, embedding []float32) error {
	if len(embedding) != s.embeddingDim {
		return fmt.Errorf("embedding dimension %d, want %d", len(embedding), s.embeddingDim)
	}
	var rowid int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM run_entities WHERE run_id = ? AND entity_id = ?",
		runID, entityID).Scan(&rowid)
	if err == sql.ErrNoRows {
		return fmt.Errorf("entity %s not stored for run %d", entityID, runID)
	}
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO vec_entities (entity_rowid, embedding) VALUES (?, ?)",
		rowid, serializeFloat32(embedding))
	return err
}

// SimilarEntities runs a KNN query over entity description embeddings
// across all runs, nearest first.
func (s *Store) SimilarEntities(ctx context.Context, queryEmbedding []float32, k int) ([]EntityMatch, error) {
	if len(queryEmbedding) != s.embeddingDim {
		return nil, fmt.Errorf("embedding dimension %d, want %d", len(queryEmbedding), s.embeddingDim)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.run_id, e.entity_id, e.name, v.distance
		FROM vec_entities v
		JOIN run_entities e ON e.id = v.entity_rowid
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY v.distance
	`, serializeFloat32(queryEmbedding), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []EntityMatch
	for rows.Next() {
		var m EntityMatch
		if err := rows.Scan(&m.RunID, &m.EntityID, &m.Name, &m.Distance); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
