package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

var sqliteDialect = &sqlDialect{
	get:       "SELECT v FROM kv WHERE k = ?",
	set:       "INSERT INTO kv (k, v) VALUES (?, ?) ON CONFLICT(k) DO UPDATE SET v = excluded.v",
	scanRange: "SELECT k, v FROM kv WHERE k >= ? AND k < ? ORDER BY k",
	scanFrom:  "SELECT k, v FROM kv WHERE k >= ? ORDER BY k",
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex // serializes writers; SQLite allows one at a time
}

// NewSQLite creates a new SQLite store and runs migrations.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	// For in-memory databases, use shared cache so all connections in the pool
	// see the same data.
	if dsn == ":memory:" {
		dsn = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS kv (
			k BLOB PRIMARY KEY,
			v BLOB NOT NULL
		) WITHOUT ROWID`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n  SQL: %s", err, m)
		}
	}
	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, fn func(KV) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return runTx(ctx, s.db, nil, sqliteDialect, false, fn)
}

func (s *SQLiteStore) View(ctx context.Context, fn func(KV) error) error {
	return runTx(ctx, s.db, nil, sqliteDialect, true, fn)
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
