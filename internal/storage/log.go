package storage

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/pierrec/lz4"

	"github.com/usageledger/ledgerd/internal/domain"
	"github.com/usageledger/ledgerd/internal/evidence"
)

const (
	txKeyPrefix  = "tx/"
	cursorKey    = "meta/next_tx_id"
	logKeyLen    = len(txKeyPrefix) + 8
)

// Log is the append-only transaction log described in the storage backend
// contract: dense, monotone, zero-based tx ids, fsync-before-acknowledge
// writes (delegated to the underlying KV), backed by any KV implementation.
type Log struct {
	kv KV

	mu   sync.Mutex
	next uint64

	// compress enables lz4 framing for stored tx payloads at or above
	// compressThreshold bytes. Off by default; large deployments with long
	// log segments can turn it on to trade CPU for disk.
	compress          bool
	compressThreshold int
}

// NewLog opens a Log over kv, recovering its tx id cursor from the stored
// cursor key (or zero, for a fresh log).
func NewLog(ctx context.Context, kv KV) (*Log, error) {
	l := &Log{kv: kv, compressThreshold: 4096}
	b, err := kv.Read(ctx, []byte(cursorKey))
	if err != nil {
		if err == ErrKeyNotFound {
			return l, nil
		}
		return nil, fmt.Errorf("storage: read log cursor: %w", err)
	}
	if len(b) != 8 {
		return nil, fmt.Errorf("storage: corrupt log cursor (%d bytes)", len(b))
	}
	l.next = binary.BigEndian.Uint64(b)
	return l, nil
}

// EnableCompression turns on lz4 framing for tx payloads at or above
// threshold bytes; most transactions are small enough never to trigger it.
func (l *Log) EnableCompression(threshold int) {
	l.compress = true
	l.compressThreshold = threshold
}

func txKey(id uint64) []byte {
	k := make([]byte, logKeyLen)
	copy(k, txKeyPrefix)
	binary.BigEndian.PutUint64(k[len(txKeyPrefix):], id)
	return k
}

// AppendTx atomically appends tx's canonical encoding and advances the
// cursor in a single batch, so a crash between the two is impossible:
// either both land or neither does.
func (l *Log) AppendTx(ctx context.Context, tx domain.Transaction) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.next
	payload, err := evidence.CanonicalBytes(tx)
	if err != nil {
		return 0, fmt.Errorf("storage: encode tx %d: %w", id, err)
	}
	stored, flag := l.maybeCompress(payload)

	cursor := make([]byte, 8)
	binary.BigEndian.PutUint64(cursor, id+1)

	record := append([]byte{flag}, stored...)
	ops := []BatchOperation{
		{Type: BatchPut, Key: txKey(id), Value: record},
		{Type: BatchPut, Key: []byte(cursorKey), Value: cursor},
	}
	if err := l.kv.Batch(ctx, ops); err != nil {
		return 0, fmt.Errorf("storage: append tx %d: %w", id, err)
	}
	l.next = id + 1
	return id, nil
}

// NextTxID returns the id that would be assigned to the next appended
// transaction, i.e. one past the last committed entry.
func (l *Log) NextTxID() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.next
}

// LoadTxsFrom returns every transaction with id >= fromTxID, in order.
func (l *Log) LoadTxsFrom(ctx context.Context, fromTxID uint64) ([]domain.Transaction, error) {
	start := txKey(fromTxID)
	end := []byte(txKeyPrefix + "\xff\xff\xff\xff\xff\xff\xff\xff\xff")
	it, err := l.kv.Iterator(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("storage: iterate log: %w", err)
	}
	defer it.Close()

	var txs []domain.Transaction
	for it.Next() {
		record := it.Value()
		if len(record) == 0 {
			return nil, fmt.Errorf("storage: empty log record at %x", it.Key())
		}
		payload, err := l.maybeDecompress(record[0], record[1:])
		if err != nil {
			return nil, fmt.Errorf("storage: decompress log record at %x: %w", it.Key(), err)
		}
		var tx domain.Transaction
		if err := evidence.DecodeCanonical(payload, &tx); err != nil {
			return nil, fmt.Errorf("storage: decode log record at %x: %w", it.Key(), err)
		}
		txs = append(txs, tx)
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("storage: iterate log: %w", err)
	}
	return txs, nil
}

const (
	flagPlain      byte = 0
	flagCompressed byte = 1
)

func (l *Log) maybeCompress(payload []byte) ([]byte, byte) {
	if !l.compress || len(payload) < l.compressThreshold {
		return payload, flagPlain
	}
	compressed := make([]byte, lz4.CompressBlockBound(len(payload)))
	n, err := lz4.CompressBlock(payload, compressed, nil)
	if err != nil || n == 0 || n >= len(payload) {
		return payload, flagPlain
	}
	framed := make([]byte, 8+n)
	binary.BigEndian.PutUint64(framed[:8], uint64(len(payload)))
	copy(framed[8:], compressed[:n])
	return framed, flagCompressed
}

func (l *Log) maybeDecompress(flag byte, data []byte) ([]byte, error) {
	if flag == flagPlain {
		return data, nil
	}
	if len(data) < 8 {
		return nil, fmt.Errorf("truncated compressed record")
	}
	origLen := binary.BigEndian.Uint64(data[:8])
	out := make([]byte, origLen)
	n, err := lz4.UncompressBlock(data[8:], out)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}
