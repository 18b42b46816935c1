package store

import "fmt"

// schemaSQL returns the DDL for all tables. embeddingDim controls the
// vec0 virtual table dimension.
func schemaSQL(embeddingDim int) string {
	return fmt.Sprintf(`
-- One row per graph build run
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY,
    dir TEXT NOT NULL UNIQUE,
    seed TEXT NOT NULL,
    status TEXT DEFAULT 'running',
    iterations INTEGER DEFAULT 0,
    stop_reason TEXT,
    entity_count INTEGER DEFAULT 0,
    relation_count INTEGER DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    finished_at DATETIME
);

-- Knowledge graph nodes, scoped to their run
CREATE TABLE IF NOT EXISTS run_entities (
    id INTEGER PRIMARY KEY,
    run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    entity_id TEXT NOT NULL,
    name TEXT NOT NULL,
    entity_type TEXT NOT NULL,
    description TEXT,
    UNIQUE(run_id, entity_id)
);

-- Knowledge graph edges, scoped to their run
CREATE TABLE IF NOT EXISTS run_relations (
    id INTEGER PRIMARY KEY,
    run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    source_id TEXT NOT NULL,
    target_id TEXT NOT NULL,
    label TEXT NOT NULL,
    source_name TEXT,
    target_name TEXT
);

-- Sampled sub-graphs, stored as JSON documents
CREATE TABLE IF NOT EXISTS samples (
    id INTEGER PRIMARY KEY,
    run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    method TEXT NOT NULL,
    nodes JSON NOT NULL,
    relations JSON NOT NULL,
    topology JSON,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Entity description embeddings via sqlite-vec
CREATE VIRTUAL TABLE IF NOT EXISTS vec_entities USING vec0(
    entity_rowid INTEGER PRIMARY KEY,
    embedding float[%d]
);

-- Indexes
CREATE INDEX IF NOT EXISTS idx_run_entities_run ON run_entities(run_id);
CREATE INDEX IF NOT EXISTS idx_run_entities_name ON run_entities(name);
CREATE INDEX IF NOT EXISTS idx_run_relations_run ON run_relations(run_id);
CREATE INDEX IF NOT EXISTS idx_run_relations_source ON run_relations(source_id);
CREATE INDEX IF NOT EXISTS idx_run_relations_target ON run_relations(target_id);
CREATE INDEX IF NOT EXISTS idx_samples_run ON samples(run_id);
`, embeddingDim)
}
