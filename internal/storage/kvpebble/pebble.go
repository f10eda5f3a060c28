// Package kvpebble adapts a cockroachdb/pebble database to the
// internal/storage KV contract. It is the production backend: pebble.Sync
// is passed on every write and batch commit so append_tx and
// persist_state never acknowledge before the write is durable.
package kvpebble

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/usageledger/ledgerd/internal/storage"
)

// DB adapts *pebble.DB to storage.KV.
type DB struct {
	db *pebble.DB
}

// Open opens (or creates) a pebble database at dir.
func Open(dir string) (*DB, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("kvpebble: open %s: %w", dir, err)
	}
	return &DB{db: db}, nil
}

func (p *DB) Read(ctx context.Context, key []byte) ([]byte, error) {
	if p.db == nil {
		return nil, storage.ErrClosed
	}
	val, closer, err := p.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, storage.ErrKeyNotFound
		}
		return nil, err
	}
	defer closer.Close()
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (p *DB) Write(ctx context.Context, key, value []byte) error {
	if p.db == nil {
		return storage.ErrClosed
	}
	return p.db.Set(key, value, pebble.Sync)
}

func (p *DB) Delete(ctx context.Context, key []byte) error {
	if p.db == nil {
		return storage.ErrClosed
	}
	return p.db.Delete(key, pebble.Sync)
}

func (p *DB) Batch(ctx context.Context, ops []storage.BatchOperation) error {
	if p.db == nil {
		return storage.ErrClosed
	}
	batch := p.db.NewBatch()
	defer batch.Close()
	for _, op := range ops {
		switch op.Type {
		case storage.BatchPut:
			if err := batch.Set(op.Key, op.Value, nil); err != nil {
				return err
			}
		case storage.BatchDelete:
			if err := batch.Delete(op.Key, nil); err != nil {
				return err
			}
		default:
			return fmt.Errorf("kvpebble: unknown batch op %d", op.Type)
		}
	}
	return batch.Commit(pebble.Sync)
}

func (p *DB) Iterator(ctx context.Context, start, end []byte) (storage.Iterator, error) {
	if p.db == nil {
		return nil, storage.ErrClosed
	}
	it, _ := p.db.NewIter(&pebble.IterOptions{LowerBound: start, UpperBound: end})
	return &iterator{iter: it, start: start, end: end}, nil
}

func (p *DB) Close() error {
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}

type iterator struct {
	iter       *pebble.Iterator
	start, end []byte
	current    struct{ key, value []byte }
}

func (it *iterator) Next() bool {
	if it.current.key == nil {
		if it.start == nil {
			it.iter.First()
		} else {
			it.iter.SeekGE(it.start)
		}
	} else {
		it.iter.Next()
	}
	if !it.iter.Valid() {
		return false
	}
	key := it.iter.Key()
	if it.end != nil && bytes.Compare(key, it.end) >= 0 {
		return false
	}
	val := it.iter.Value()
	keyCopy := make([]byte, len(key))
	copy(keyCopy, key)
	valCopy := make([]byte, len(val))
	copy(valCopy, val)
	it.current.key = keyCopy
	it.current.value = valCopy
	return true
}

func (it *iterator) Key() []byte   { return it.current.key }
func (it *iterator) Value() []byte { return it.current.value }
func (it *iterator) Error() error  { return it.iter.Error() }
func (it *iterator) Close() error  { return it.iter.Close() }
