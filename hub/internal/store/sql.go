package store

import (
	"context"
	"database/sql"
	"fmt"
)

// sqlDialect holds the statements a database/sql backend runs against its kv table.
type sqlDialect struct {
	get       string
	set       string
	scanRange string // prefix, end
	scanFrom  string // prefix, no upper bound
}

// sqlKV is a KV bound to one database transaction.
type sqlKV struct {
	tx       *sql.Tx
	d        *sqlDialect
	readOnly bool
}

func (kv *sqlKV) Get(ctx context.Context, key []byte) ([]byte, error) {
	var v []byte
	err := kv.tx.QueryRowContext(ctx, kv.d.get, key).Scan(&v)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (kv *sqlKV) Set(ctx context.Context, key, value []byte) error {
	if kv.readOnly {
		return ErrReadOnly
	}
	_, err := kv.tx.ExecContext(ctx, kv.d.set, key, value)
	return err
}

func (kv *sqlKV) Iterate(ctx context.Context, prefix []byte, fn func(key, value []byte) error) error {
	var (
		rows *sql.Rows
		err  error
	)
	if end := PrefixEnd(prefix); end != nil {
		rows, err = kv.tx.QueryContext(ctx, kv.d.scanRange, prefix, end)
	} else {
		rows, err = kv.tx.QueryContext(ctx, kv.d.scanFrom, prefix)
	}
	if err != nil {
		return err
	}

	// Drain before calling fn: fn may issue queries on the same transaction.
	var pairs []kvPair
	for rows.Next() {
		var p kvPair
		if err := rows.Scan(&p.key, &p.value); err != nil {
			_ = rows.Close()
			return err
		}
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()

	for _, p := range pairs {
		if err := fn(p.key, p.value); err != nil {
			return err
		}
	}
	return nil
}

// runTx runs fn in a database transaction, committing only when fn succeeds.
// Read-only transactions are always rolled back.
func runTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, d *sqlDialect, readOnly bool, fn func(KV) error) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&sqlKV{tx: tx, d: d, readOnly: readOnly}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if readOnly {
		_ = tx.Rollback()
		return nil
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
