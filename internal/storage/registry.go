package storage

import (
	"context"
	"fmt"

	"github.com/usageledger/ledgerd/internal/storage/kvleveldb"
	"github.com/usageledger/ledgerd/internal/storage/kvmemory"
	"github.com/usageledger/ledgerd/internal/storage/kvpebble"
	"github.com/usageledger/ledgerd/internal/storage/kvpostgres"
	"github.com/usageledger/ledgerd/internal/storage/kvsqlite"
)

// Backend names accepted by Open / the CLI's --backend flag.
const (
	BackendPebble  = "pebble"
	BackendLevelDB = "leveldb"
	BackendSQLite  = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory  = "memory"
)

// Store bundles the transaction log and the state snapshot behind the
// storage backend contract (§4.5): append_tx, load_state, persist_state,
// load_txs_from.
type Store struct {
	Log      *Log
	Snapshot *SnapshotStore
	kv       KV
}

// Open opens the named KV backend at addr (a directory for pebble/leveldb,
// a file path for sqlite, a DSN for postgres, ignored for memory) and
// wires it into a Store. snapshotPath is the file the state snapshot is
// written to; it may point anywhere on local disk regardless of which KV
// backend holds the log, since the snapshot is always a plain file.
func Open(ctx context.Context, backend, addr, snapshotPath string) (*Store, error) {
	kv, err := openBackend(ctx, backend, addr)
	if err != nil {
		return nil, err
	}
	log, err := NewLog(ctx, kv)
	if err != nil {
		kv.Close()
		return nil, err
	}
	return &Store{
		Log:      log,
		Snapshot: NewSnapshotStore(snapshotPath),
		kv:       kv,
	}, nil
}

func openBackend(ctx context.Context, backend, addr string) (KV, error) {
	switch backend {
	case BackendPebble:
		return kvpebble.Open(addr)
	case BackendLevelDB:
		return kvleveldb.Open(addr)
	case BackendSQLite:
		return kvsqlite.Open(addr)
	case BackendPostgres:
		return kvpostgres.Open(ctx, addr)
	case BackendMemory:
		return kvmemory.New(), nil
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", backend)
	}
}

// Close releases the underlying KV backend.
func (s *Store) Close() error {
	return s.kv.Close()
}
