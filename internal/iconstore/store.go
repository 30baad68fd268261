// Package iconstore is the serving layer's on-disk storage cache of icon-set
// blobs, backed by SQLite.
package iconstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Get for unknown prefixes.
var ErrNotFound = errors.New("icon set not found")

const schema = `CREATE TABLE IF NOT EXISTS icon_sets (
	prefix     TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	icon_count INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
)`

// Entry summarizes one stored set.
type Entry struct {
	Prefix    string
	IconCount int
	UpdatedAt time.Time
}

// Store provides SQLite-backed storage of serialized icon sets.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// Open opens (creating if needed) a store at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o750); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	dsn := "file:" + cleanPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Purge removes every stored set.
func (s *Store) Purge(ctx context.Context) error {
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM icon_sets`); err != nil {
		return fmt.Errorf("purge icon sets: %w", err)
	}
	return nil
}

// Put stores or replaces the blob for prefix.
func (s *Store) Put(ctx context.Context, prefix string, data []byte, iconCount int) error {
	if strings.TrimSpace(prefix) == "" {
		return fmt.Errorf("prefix is required")
	}
	_, err := s.sqlDB.ExecContext(ctx, `
		INSERT INTO icon_sets (prefix, data, icon_count, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(prefix) DO UPDATE SET
			data = excluded.data,
			icon_count = excluded.icon_count,
			updated_at = excluded.updated_at`,
		prefix, data, iconCount, s.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put icon set %s: %w", prefix, err)
	}
	return nil
}

// Get returns the blob stored for prefix.
func (s *Store) Get(ctx context.Context, prefix string) ([]byte, error) {
	var data []byte
	err := s.sqlDB.QueryRowContext(ctx, `SELECT data FROM icon_sets WHERE prefix = ?`, prefix).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", prefix, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get icon set %s: %w", prefix, err)
	}
	return data, nil
}

// List returns every stored set ordered by prefix.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT prefix, icon_count, updated_at FROM icon_sets ORDER BY prefix`)
	if err != nil {
		return nil, fmt.Errorf("list icon sets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var e Entry
		var updated int64
		if err := rows.Scan(&e.Prefix, &e.IconCount, &updated); err != nil {
			return nil, fmt.Errorf("scan icon set: %w", err)
		}
		e.UpdatedAt = time.UnixMilli(updated)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list icon sets: %w", err)
	}
	return out, nil
}
