// Package kvleveldb adapts a syndtr/goleveldb database to the
// internal/storage KV contract. It is offered as a lighter-weight
// alternative to the pebble backend for single-process deployments.
package kvleveldb

import (
	"context"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/usageledger/ledgerd/internal/storage"
)

// DB adapts *leveldb.DB to storage.KV.
type DB struct {
	db *leveldb.DB
}

// Open opens (or creates) a leveldb database at dir.
func Open(dir string) (*DB, error) {
	db, err := leveldb.OpenFile(dir, &opt.Options{})
	if err != nil {
		return nil, fmt.Errorf("kvleveldb: open %s: %w", dir, err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Read(ctx context.Context, key []byte) ([]byte, error) {
	if d.db == nil {
		return nil, storage.ErrClosed
	}
	val, err := d.db.Get(key, nil)
	if err != nil {
		if err == errors.ErrNotFound {
			return nil, storage.ErrKeyNotFound
		}
		return nil, err
	}
	return val, nil
}

func (d *DB) Write(ctx context.Context, key, value []byte) error {
	if d.db == nil {
		return storage.ErrClosed
	}
	return d.db.Put(key, value, &opt.WriteOptions{Sync: true})
}

func (d *DB) Delete(ctx context.Context, key []byte) error {
	if d.db == nil {
		return storage.ErrClosed
	}
	return d.db.Delete(key, &opt.WriteOptions{Sync: true})
}

func (d *DB) Batch(ctx context.Context, ops []storage.BatchOperation) error {
	if d.db == nil {
		return storage.ErrClosed
	}
	batch := new(leveldb.Batch)
	for _, op := range ops {
		switch op.Type {
		case storage.BatchPut:
			batch.Put(op.Key, op.Value)
		case storage.BatchDelete:
			batch.Delete(op.Key)
		default:
			return fmt.Errorf("kvleveldb: unknown batch op %d", op.Type)
		}
	}
	return d.db.Write(batch, &opt.WriteOptions{Sync: true})
}

func (d *DB) Iterator(ctx context.Context, start, end []byte) (storage.Iterator, error) {
	if d.db == nil {
		return nil, storage.ErrClosed
	}
	it := d.db.NewIterator(&util.Range{Start: start, Limit: end}, nil)
	return &iterator{iter: it}, nil
}

func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	return err
}

type iterator struct {
	iter interface {
		Next() bool
		Key() []byte
		Value() []byte
		Error() error
		Release()
	}
}

func (it *iterator) Next() bool      { return it.iter.Next() }
func (it *iterator) Key() []byte     { return it.iter.Key() }
func (it *iterator) Value() []byte   { return it.iter.Value() }
func (it *iterator) Error() error    { return it.iter.Error() }
func (it *iterator) Close() error    { it.iter.Release(); return nil }
