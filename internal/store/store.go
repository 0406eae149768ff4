// Package store persists the collaborator-owned state: the conversation log
// and a single cached copy of the last published snapshot.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/onglet/internal/corpus"
)

// Store wraps the sqlite database holding messages and the snapshot cache.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path with WAL and the
// production pragmas, and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if path == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// AppendMessage appends one conversation entry.
func (s *Store) AppendMessage(ctx context.Context, m corpus.Message) error {
	citations, err := json.Marshal(m.Citations)
	if err != nil {
		return fmt.Errorf("store: marshal citations: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO messages (id, role, content, citations_json, created_at) VALUES (?, ?, ?, ?, ?)`,
		m.ID, string(m.Role), m.Content, string(citations), m.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("store: insert message: %w", err)
	}
	return nil
}

// Messages returns the whole conversation log in chronological order.
func (s *Store) Messages(ctx context.Context) ([]corpus.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, content, citations_json, created_at FROM messages ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("store: query messages: %w", err)
	}
	defer rows.Close()

	var out []corpus.Message
	for rows.Next() {
		var m corpus.Message
		var role, citations string
		var createdAt int64
		if err := rows.Scan(&m.ID, &role, &m.Content, &citations, &createdAt); err != nil {
			return nil, fmt.Errorf("store: scan message: %w", err)
		}
		m.Role = corpus.Role(role)
		m.CreatedAt = time.UnixMilli(createdAt).UTC()
		if err := json.Unmarshal([]byte(citations), &m.Citations); err != nil {
			return nil, fmt.Errorf("store: decode citations: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ClearMessages deletes the whole conversation log.
func (s *Store) ClearMessages(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages`); err != nil {
		return fmt.Errorf("store: clear messages: %w", err)
	}
	return nil
}

// SaveSnapshot replaces the cached snapshot.
func (s *Store) SaveSnapshot(ctx context.Context, snap *corpus.Snapshot) error {
	blob, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("store: marshal snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshot_cache (id, snapshot_json, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET snapshot_json = excluded.snapshot_json, updated_at = excluded.updated_at`,
		string(blob), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("store: save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the cached snapshot, or nil when none was saved.
func (s *Store) LoadSnapshot(ctx context.Context) (*corpus.Snapshot, error) {
	var blob string
	err := s.db.QueryRowContext(ctx,
		`SELECT snapshot_json FROM snapshot_cache WHERE id = 1`).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: load snapshot: %w", err)
	}
	var snap corpus.Snapshot
	if err := json.Unmarshal([]byte(blob), &snap); err != nil {
		return nil, fmt.Errorf("store: decode snapshot: %w", err)
	}
	return &snap, nil
}
