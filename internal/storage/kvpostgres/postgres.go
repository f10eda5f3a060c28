// Package kvpostgres adapts a PostgreSQL table to the internal/storage KV
// contract, for deployments that already run Postgres for the rest of
// their infrastructure and would rather not operate a second embedded
// store for the ledger log.
package kvpostgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/usageledger/ledgerd/internal/storage"
)

// DB adapts a single key/value table to storage.KV.
type DB struct {
	conn *sql.DB
}

// Open connects to dsn and ensures the backing table exists.
func Open(ctx context.Context, dsn string) (*DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("kvpostgres: open: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("kvpostgres: ping: %w", err)
	}
	db := &DB{conn: conn}
	if err := db.initSchema(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) initSchema(ctx context.Context) error {
	_, err := d.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS ledger_kv (
			k BYTEA PRIMARY KEY,
			v BYTEA NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("kvpostgres: init schema: %w", err)
	}
	return nil
}

func (d *DB) Read(ctx context.Context, key []byte) ([]byte, error) {
	var v []byte
	err := d.conn.QueryRowContext(ctx, `SELECT v FROM ledger_kv WHERE k = $1`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return nil, storage.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (d *DB) Write(ctx context.Context, key, value []byte) error {
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO ledger_kv (k, v) VALUES ($1, $2)
		ON CONFLICT (k) DO UPDATE SET v = EXCLUDED.v`, key, value)
	return err
}

func (d *DB) Delete(ctx context.Context, key []byte) error {
	_, err := d.conn.ExecContext(ctx, `DELETE FROM ledger_kv WHERE k = $1`, key)
	return err
}

func (d *DB) Batch(ctx context.Context, ops []storage.BatchOperation) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("kvpostgres: begin batch: %w", err)
	}
	for _, op := range ops {
		switch op.Type {
		case storage.BatchPut:
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO ledger_kv (k, v) VALUES ($1, $2)
				ON CONFLICT (k) DO UPDATE SET v = EXCLUDED.v`, op.Key, op.Value); err != nil {
				tx.Rollback()
				return err
			}
		case storage.BatchDelete:
			if _, err := tx.ExecContext(ctx, `DELETE FROM ledger_kv WHERE k = $1`, op.Key); err != nil {
				tx.Rollback()
				return err
			}
		default:
			tx.Rollback()
			return fmt.Errorf("kvpostgres: unknown batch op %d", op.Type)
		}
	}
	return tx.Commit()
}

func (d *DB) Iterator(ctx context.Context, start, end []byte) (storage.Iterator, error) {
	var rows *sql.Rows
	var err error
	switch {
	case start == nil && end == nil:
		rows, err = d.conn.QueryContext(ctx, `SELECT k, v FROM ledger_kv ORDER BY k`)
	case end == nil:
		rows, err = d.conn.QueryContext(ctx, `SELECT k, v FROM ledger_kv WHERE k >= $1 ORDER BY k`, start)
	default:
		rows, err = d.conn.QueryContext(ctx, `SELECT k, v FROM ledger_kv WHERE k >= $1 AND k < $2 ORDER BY k`, start, end)
	}
	if err != nil {
		return nil, fmt.Errorf("kvpostgres: iterate: %w", err)
	}
	return &iterator{rows: rows}, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

type iterator struct {
	rows       *sql.Rows
	key, value []byte
	err        error
}

func (it *iterator) Next() bool {
	if !it.rows.Next() {
		return false
	}
	var k, v []byte
	if err := it.rows.Scan(&k, &v); err != nil {
		it.err = err
		return false
	}
	it.key, it.value = k, v
	return true
}

func (it *iterator) Key() []byte   { return it.key }
func (it *iterator) Value() []byte { return it.value }
func (it *iterator) Error() error {
	if it.err != nil {
		return it.err
	}
	return it.rows.Err()
}
func (it *iterator) Close() error { return it.rows.Close() }
