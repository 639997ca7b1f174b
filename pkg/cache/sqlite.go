package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteCache implements Service on a single-file SQLite database, so values
// survive process restarts.
type SQLiteCache struct {
	db    *sql.DB
	table string
}

// NewSQLiteCache opens (or creates) the database at path and ensures the
// key-value table exists.
func NewSQLiteCache(path string, opts ...SQLiteOption) (*SQLiteCache, error) {
	cfg := &SQLiteConfig{
		Table:       "kv",
		BusyTimeout: 5 * time.Second,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if !tableNamePattern.MatchString(cfg.Table) {
		return nil, fmt.Errorf("invalid table name %q", cfg.Table)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one connection keeps pragmas applied and serialises writers
	db.SetMaxOpenConns(1)

	c := &SQLiteCache{db: db, table: cfg.Table}
	if err := c.migrate(cfg.BusyTimeout); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return c, nil
}

func (c *SQLiteCache) migrate(busy time.Duration) error {
	stmts := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds()),
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			key        TEXT PRIMARY KEY,
			value      BLOB NOT NULL,
			expires_at INTEGER NOT NULL DEFAULT 0
		)`, c.table),
	}
	for _, stmt := range stmts {
		if _, err := c.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", strings.SplitN(stmt, "\n", 2)[0], err)
		}
	}
	return nil
}

func (c *SQLiteCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := encodeValue(value)
	if err != nil {
		return err
	}
	var expiresAt int64
	if expiration > 0 {
		expiresAt = time.Now().Add(expiration).UnixNano()
	}
	_, err = c.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (key, value, expires_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`, c.table),
		key, data, expiresAt)
	if err != nil {
		return fmt.Errorf("sqlite set: %w", err)
	}
	return nil
}

func (c *SQLiteCache) Get(ctx context.Context, key string, dest interface{}) error {
	var (
		data      []byte
		expiresAt int64
	)
	err := c.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT value, expires_at FROM %s WHERE key = ?", c.table), key).
		Scan(&data, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrCacheMiss
		}
		return fmt.Errorf("sqlite get: %w", err)
	}
	if expiresAt > 0 && time.Now().UnixNano() > expiresAt {
		_ = c.Delete(ctx, key)
		return ErrCacheMiss
	}
	return decodeValue(data, dest)
}

func (c *SQLiteCache) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if _, err := c.db.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE key = ?", c.table), key); err != nil {
			return fmt.Errorf("sqlite delete: %w", err)
		}
	}
	return nil
}

func (c *SQLiteCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	now := time.Now().UnixNano()
	for _, key := range keys {
		var n int
		err := c.db.QueryRowContext(ctx,
			fmt.Sprintf("SELECT COUNT(1) FROM %s WHERE key = ? AND (expires_at = 0 OR expires_at >= ?)", c.table),
			key, now).Scan(&n)
		if err != nil {
			return false, fmt.Errorf("sqlite exists: %w", err)
		}
		if n > 0 {
			return true, nil
		}
	}
	return false, nil
}

// Close closes the database.
func (c *SQLiteCache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
