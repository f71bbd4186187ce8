// Package sqlitestore provides a graph.CheckpointStore backed by SQLite.
package sqlitestore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tailored-agentic-units/flowgraph/orchestrate/graph"
)

//go:embed schema.sql
var schemaSQL string

// Store keeps one row per run id. It implements graph.CheckpointStore.
type Store struct {
	db *sql.DB
}

var _ graph.CheckpointStore = (*Store)(nil)

// Open creates or opens a SQLite database at path and applies the schema.
// Use ":memory:" for a throwaway store.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

func (s *Store) Save(ctx context.Context, cp graph.Checkpoint) error {
	path, err := json.Marshal(cp.Path)
	if err != nil {
		return fmt.Errorf("checkpoint %s: marshal path: %w", cp.RunID, err)
	}
	data, err := json.Marshal(cp.Data)
	if err != nil {
		return fmt.Errorf("checkpoint %s: marshal data: %w", cp.RunID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (run_id, graph, node, step, path, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			graph = excluded.graph,
			node = excluded.node,
			step = excluded.step,
			path = excluded.path,
			data = excluded.data,
			created_at = excluded.created_at
	`, cp.RunID, cp.Graph, cp.Node, cp.Step, string(path), string(data), cp.Timestamp.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("checkpoint %s: save: %w", cp.RunID, err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, runID string) (graph.Checkpoint, error) {
	var (
		cp        graph.Checkpoint
		path      string
		data      string
		createdAt string
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, graph, node, step, path, data, created_at
		FROM checkpoints WHERE run_id = ?
	`, runID).Scan(&cp.RunID, &cp.Graph, &cp.Node, &cp.Step, &path, &data, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return graph.Checkpoint{}, fmt.Errorf("%w: %s", graph.ErrCheckpointNotFound, runID)
	}
	if err != nil {
		return graph.Checkpoint{}, fmt.Errorf("checkpoint %s: load: %w", runID, err)
	}

	if err := json.Unmarshal([]byte(path), &cp.Path); err != nil {
		return graph.Checkpoint{}, fmt.Errorf("checkpoint %s: unmarshal path: %w", runID, err)
	}
	if err := json.Unmarshal([]byte(data), &cp.Data); err != nil {
		return graph.Checkpoint{}, fmt.Errorf("checkpoint %s: unmarshal data: %w", runID, err)
	}
	cp.Timestamp, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return graph.Checkpoint{}, fmt.Errorf("checkpoint %s: parse timestamp: %w", runID, err)
	}

	return cp, nil
}

func (s *Store) Delete(ctx context.Context, runID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("delete failed: %s: %w", runID, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id FROM checkpoints ORDER BY run_id`)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list checkpoints: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
