package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"parley/internal/domain"
)

// SQLiteStore implements domain.MemoryStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and runs the
// schema migration. Use ":memory:" for an in-process database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open memory db: %w", err)
	}
	// modernc.org/sqlite serializes access through one connection; more
	// connections only add lock contention.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate memory db: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS memories (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			metadata   TEXT NOT NULL DEFAULT '{}',
			updated_at TEXT NOT NULL
		)
	`)
	return err
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Store upserts a value under key.
func (s *SQLiteStore) Store(ctx context.Context, key, value string, metadata map[string]any) error {
	if metadata == nil {
		metadata = map[string]any{}
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return domain.NewDomainError("SQLiteStore.Store", domain.ErrMemoryStore, err.Error())
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO memories (key, value, metadata, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, metadata = excluded.metadata, updated_at = excluded.updated_at
	`, key, value, string(metaJSON), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return domain.NewDomainError("SQLiteStore.Store", domain.ErrMemoryStore, err.Error())
	}
	return nil
}

// Retrieve implements domain.MemoryStore.
func (s *SQLiteStore) Retrieve(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM memories WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", domain.NewDomainError("SQLiteStore.Retrieve", domain.ErrMemoryStore, err.Error())
	}
	return value, nil
}

// Search returns records whose value contains the query, newest first. The
// score is uniform: substring match carries no ranking signal.
func (s *SQLiteStore) Search(ctx context.Context, query string, limit int) ([]domain.MemoryRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, value, metadata FROM memories
		WHERE value LIKE '%' || ? || '%'
		ORDER BY updated_at DESC
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, domain.NewDomainError("SQLiteStore.Search", domain.ErrMemoryStore, err.Error())
	}
	defer rows.Close()

	var records []domain.MemoryRecord
	for rows.Next() {
		var rec domain.MemoryRecord
		var metaJSON string
		if err := rows.Scan(&rec.Key, &rec.Value, &metaJSON); err != nil {
			return nil, domain.NewDomainError("SQLiteStore.Search", domain.ErrMemoryStore, err.Error())
		}
		if err := json.Unmarshal([]byte(metaJSON), &rec.Metadata); err != nil {
			rec.Metadata = nil
		}
		rec.Score = 1.0
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewDomainError("SQLiteStore.Search", domain.ErrMemoryStore, err.Error())
	}
	return records, nil
}

// Compile-time interface check.
var _ domain.MemoryStore = (*SQLiteStore)(nil)
