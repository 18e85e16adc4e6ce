// SPDX-License-Identifier: MIT

package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ManuGH/playercount/internal/persistence/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS audit_entries (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	raw_id     TEXT    NOT NULL UNIQUE,
	seen_count INTEGER NOT NULL DEFAULT 1,
	last_seen  TEXT
);`

// SQLiteStore keeps the audit log in an audit_entries table. Row order
// (seq) is log order. Each Update is one transaction on a single-connection
// pool, and only changed rows are written.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenSQLiteStore opens (creating if needed) the database at path.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("audit: sqlite dir: %w", err)
	}
	db, err := sqlite.Open(path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit: sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// DB exposes the handle for health checks.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

// Load reads every entry in log order.
func (s *SQLiteStore) Load(ctx context.Context) (*Log, error) {
	return loadSQLite(ctx, s.db)
}

// Update runs fn inside a transaction and writes back changed entries.
func (s *SQLiteStore) Update(ctx context.Context, fn func(*Log) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return writeErr("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	before, err := loadSQLite(ctx, tx)
	if err != nil {
		return err
	}
	after := NewLog(before.Entries()...)
	if err := fn(after); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO audit_entries (raw_id, seen_count, last_seen) VALUES (?, ?, ?)
ON CONFLICT(raw_id) DO UPDATE SET seen_count = excluded.seen_count, last_seen = excluded.last_seen`)
	if err != nil {
		return writeErr("prepare", err)
	}
	defer stmt.Close()

	for _, e := range after.Entries() {
		if prev, ok := before.Find(e.RawID); ok && prev.Count == e.Count && prev.LastSeen.Equal(e.LastSeen) {
			continue
		}
		if _, err := stmt.ExecContext(ctx, e.RawID, e.Count, formatSQLiteTime(e.LastSeen)); err != nil {
			return writeErr("upsert "+e.RawID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return writeErr("commit", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func loadSQLite(ctx context.Context, q queryer) (*Log, error) {
	rows, err := q.QueryContext(ctx, `SELECT raw_id, seen_count, last_seen FROM audit_entries ORDER BY seq`)
	if err != nil {
		return nil, readErr("query", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e    Entry
			seen sql.NullString
		)
		if err := rows.Scan(&e.RawID, &e.Count, &seen); err != nil {
			return nil, readErr("scan", err)
		}
		if seen.Valid && seen.String != "" {
			ts, err := time.Parse(time.RFC3339, seen.String)
			if err != nil {
				return nil, readErr("parse last_seen", err)
			}
			e.LastSeen = ts
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, readErr("rows", err)
	}
	return NewLog(entries...), nil
}

func formatSQLiteTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}
