// Package kvmemory provides an in-process KV backend with no persistence,
// used by tests and by standalone/replay-only runs that never need a
// durable log.
package kvmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/usageledger/ledgerd/internal/storage"
)

// DB is a goroutine-safe in-memory KV store.
type DB struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// New returns an empty in-memory store.
func New() *DB {
	return &DB{data: make(map[string][]byte)}
}

func (d *DB) Read(ctx context.Context, key []byte) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil, storage.ErrClosed
	}
	v, ok := d.data[string(key)]
	if !ok {
		return nil, storage.ErrKeyNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (d *DB) Write(ctx context.Context, key, value []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return storage.ErrClosed
	}
	v := make([]byte, len(value))
	copy(v, value)
	d.data[string(key)] = v
	return nil
}

func (d *DB) Delete(ctx context.Context, key []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return storage.ErrClosed
	}
	delete(d.data, string(key))
	return nil
}

func (d *DB) Batch(ctx context.Context, ops []storage.BatchOperation) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return storage.ErrClosed
	}
	for _, op := range ops {
		switch op.Type {
		case storage.BatchPut:
			v := make([]byte, len(op.Value))
			copy(v, op.Value)
			d.data[string(op.Key)] = v
		case storage.BatchDelete:
			delete(d.data, string(op.Key))
		}
	}
	return nil
}

func (d *DB) Iterator(ctx context.Context, start, end []byte) (storage.Iterator, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil, storage.ErrClosed
	}
	keys := make([]string, 0, len(d.data))
	for k := range d.data {
		if start != nil && k < string(start) {
			continue
		}
		if end != nil && k >= string(end) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	entries := make([][2][]byte, len(keys))
	for i, k := range keys {
		entries[i] = [2][]byte{[]byte(k), d.data[k]}
	}
	return &iterator{entries: entries, idx: -1}, nil
}

func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

type iterator struct {
	entries [][2][]byte
	idx     int
}

func (it *iterator) Next() bool {
	it.idx++
	return it.idx < len(it.entries)
}

func (it *iterator) Key() []byte   { return it.entries[it.idx][0] }
func (it *iterator) Value() []byte { return it.entries[it.idx][1] }
func (it *iterator) Error() error  { return nil }
func (it *iterator) Close() error  { return nil }
