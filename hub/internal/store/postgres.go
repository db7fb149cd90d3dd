package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var postgresDialect = &sqlDialect{
	get:       "SELECT v FROM kv WHERE k = $1",
	set:       "INSERT INTO kv (k, v) VALUES ($1, $2) ON CONFLICT (k) DO UPDATE SET v = EXCLUDED.v",
	scanRange: "SELECT k, v FROM kv WHERE k >= $1 AND k < $2 ORDER BY k",
	scanFrom:  "SELECT k, v FROM kv WHERE k >= $1 ORDER BY k",
}

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres creates a new PostgreSQL store and runs migrations.
func NewPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &PostgresStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *PostgresStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS kv (
			k BYTEA PRIMARY KEY,
			v BYTEA NOT NULL
		)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n  SQL: %s", err, m)
		}
	}
	return nil
}

// Update runs at SERIALIZABLE; a serialization failure aborts the call like
// any other error.
func (s *PostgresStore) Update(ctx context.Context, fn func(KV) error) error {
	return runTx(ctx, s.db, &sql.TxOptions{Isolation: sql.LevelSerializable}, postgresDialect, false, fn)
}

func (s *PostgresStore) View(ctx context.Context, fn func(KV) error) error {
	return runTx(ctx, s.db, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}, postgresDialect, true, fn)
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
