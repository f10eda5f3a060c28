// Package kvsqlite adapts an embedded modernc.org/sqlite database to the
// internal/storage KV contract, for single-binary deployments that want a
// durable log without a running pebble process or an external Postgres.
package kvsqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/usageledger/ledgerd/internal/storage"
)

// DB adapts a single key/value table to storage.KV.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) a sqlite database file at path.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("kvsqlite: open %s: %w", path, err)
	}
	conn.SetMaxOpenConns(1) // sqlite allows one writer at a time
	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) initSchema() error {
	_, err := d.conn.Exec(`
		CREATE TABLE IF NOT EXISTS ledger_kv (
			k BLOB PRIMARY KEY,
			v BLOB NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("kvsqlite: init schema: %w", err)
	}
	return nil
}

func (d *DB) Read(ctx context.Context, key []byte) ([]byte, error) {
	var v []byte
	err := d.conn.QueryRowContext(ctx, `SELECT v FROM ledger_kv WHERE k = ?`, key).Scan(&v)
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
		INSERT INTO ledger_kv (k, v) VALUES (?, ?)
		ON CONFLICT(k) DO UPDATE SET v = excluded.v`, key, value)
	return err
}

func (d *DB) Delete(ctx context.Context, key []byte) error {
	_, err := d.conn.ExecContext(ctx, `DELETE FROM ledger_kv WHERE k = ?`, key)
	return err
}

func (d *DB) Batch(ctx context.Context, ops []storage.BatchOperation) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("kvsqlite: begin batch: %w", err)
	}
	for _, op := range ops {
		switch op.Type {
		case storage.BatchPut:
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO ledger_kv (k, v) VALUES (?, ?)
				ON CONFLICT(k) DO UPDATE SET v = excluded.v`, op.Key, op.Value); err != nil {
				tx.Rollback()
				return err
			}
		case storage.BatchDelete:
			if _, err := tx.ExecContext(ctx, `DELETE FROM ledger_kv WHERE k = ?`, op.Key); err != nil {
				tx.Rollback()
				return err
			}
		default:
			tx.Rollback()
			return fmt.Errorf("kvsqlite: unknown batch op %d", op.Type)
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
		rows, err = d.conn.QueryContext(ctx, `SELECT k, v FROM ledger_kv WHERE k >= ? ORDER BY k`, start)
	default:
		rows, err = d.conn.QueryContext(ctx, `SELECT k, v FROM ledger_kv WHERE k >= ? AND k < ? ORDER BY k`, start, end)
	}
	if err != nil {
		return nil, fmt.Errorf("kvsqlite: iterate: %w", err)
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
