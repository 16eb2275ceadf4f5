// Package checkpoint persists per-thread pipeline snapshots so interrupted
// turns can be inspected or resumed.
package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"parley/internal/domain"
	"parley/internal/usecase/orchestrate"
)

// SQLiteStore implements orchestrate.CheckpointStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the checkpoint database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS checkpoints (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			thread_id TEXT NOT NULL,
			stage     TEXT NOT NULL,
			state     TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_checkpoints_thread ON checkpoints(thread_id, id);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate checkpoint db: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save appends a snapshot of state taken after the named stage.
func (s *SQLiteStore) Save(ctx context.Context, threadID, stage string, state *domain.AgentState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return domain.NewDomainError("SQLiteStore.Save", domain.ErrMemoryStore, err.Error())
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO checkpoints (thread_id, stage, state) VALUES (?, ?, ?)",
		threadID, stage, string(raw),
	)
	if err != nil {
		return domain.NewDomainError("SQLiteStore.Save", domain.ErrMemoryStore, err.Error())
	}
	return nil
}

// Latest returns the newest snapshot for the thread and the stage it
// followed, or ErrNotFound when the thread has none.
func (s *SQLiteStore) Latest(ctx context.Context, threadID string) (*domain.AgentState, string, error) {
	var stage, raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT stage, state FROM checkpoints WHERE thread_id = ? ORDER BY id DESC LIMIT 1",
		threadID,
	).Scan(&stage, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", domain.ErrNotFound
	}
	if err != nil {
		return nil, "", domain.NewDomainError("SQLiteStore.Latest", domain.ErrMemoryStore, err.Error())
	}

	var state domain.AgentState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, "", domain.NewDomainError("SQLiteStore.Latest", domain.ErrParse, err.Error())
	}
	return &state, stage, nil
}

// Compile-time interface check.
var _ orchestrate.CheckpointStore = (*SQLiteStore)(nil)
