// Package storage holds durable CacheStore implementations.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"RiskScanner/internal/domain"
	"RiskScanner/internal/ports"
)

const cacheTable = "cache_entries"

const schema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	cache_key  TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS cache_entries_expires_at ON cache_entries (expires_at);
`

// SQLiteStore persists cached responses as JSON rows. Timestamps are stored
// as Unix nanoseconds.
type SQLiteStore struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var _ ports.CacheStore = (*SQLiteStore)(nil)

// OpenSQLiteStore opens dsn with the pure-Go driver and creates the schema.
func OpenSQLiteStore(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection keeps in-memory databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return NewSQLiteStore(db), nil
}

// NewSQLiteStore wraps an already migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, sb: sq.StatementBuilder.PlaceholderFormat(sq.Question)}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get returns the entry for key when it is still live. An expired row is
// deleted on the way out and reported as a miss.
func (s *SQLiteStore) Get(ctx context.Context, key string, now time.Time) (domain.Response, bool, error) {
	query, args, err := s.sb.Select("payload", "expires_at").
		From(cacheTable).
		Where(sq.Eq{"cache_key": key}).
		ToSql()
	if err != nil {
		return domain.Response{}, false, fmt.Errorf("build select: %w", err)
	}

	var (
		payload string
		expires int64
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&payload, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Response{}, false, nil
	}
	if err != nil {
		return domain.Response{}, false, fmt.Errorf("select entry: %w", err)
	}

	if now.UnixNano() >= expires {
		if _, err := s.Purge(ctx, now); err != nil {
			return domain.Response{}, false, err
		}
		return domain.Response{}, false, nil
	}

	var resp domain.Response
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		return domain.Response{}, false, fmt.Errorf("decode entry %s: %w", key, err)
	}
	return resp, true, nil
}

// Put upserts the entry for key.
func (s *SQLiteStore) Put(ctx context.Context, key string, resp domain.Response, createdAt time.Time, ttl time.Duration) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode entry %s: %w", key, err)
	}

	query, args, err := s.sb.Insert(cacheTable).
		Columns("cache_key", "payload", "created_at", "expires_at").
		Values(key, string(payload), createdAt.UnixNano(), createdAt.Add(ttl).UnixNano()).
		Suffix("ON CONFLICT (cache_key) DO UPDATE SET payload = excluded.payload, created_at = excluded.created_at, expires_at = excluded.expires_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert entry: %w", err)
	}
	return nil
}

// Purge deletes every row expired at now and reports how many went.
func (s *SQLiteStore) Purge(ctx context.Context, now time.Time) (int64, error) {
	query, args, err := s.sb.Delete(cacheTable).
		Where(sq.LtOrEq{"expires_at": now.UnixNano()}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build purge: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("purge entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge rows affected: %w", err)
	}
	return n, nil
}
