package kvmemory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/usageledger/ledgerd/internal/storage"
)

func TestReadWriteRoundTrip(t *testing.T) {
	db := New()
	ctx := context.Background()

	_, err := db.Read(ctx, []byte("missing"))
	require.ErrorIs(t, err, storage.ErrKeyNotFound)

	require.NoError(t, db.Write(ctx, []byte("k1"), []byte("v1")))
	v, err := db.Read(ctx, []byte("k1"))
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), v)
}

func TestDelete(t *testing.T) {
	db := New()
	ctx := context.Background()
	require.NoError(t, db.Write(ctx, []byte("k1"), []byte("v1")))
	require.NoError(t, db.Delete(ctx, []byte("k1")))
	_, err := db.Read(ctx, []byte("k1"))
	require.ErrorIs(t, err, storage.ErrKeyNotFound)
}

func TestBatchAppliesAllOrNothingOnSuccess(t *testing.T) {
	db := New()
	ctx := context.Background()
	require.NoError(t, db.Write(ctx, []byte("keep"), []byte("v")))

	ops := []storage.BatchOperation{
		{Type: storage.BatchPut, Key: []byte("a"), Value: []byte("1")},
		{Type: storage.BatchPut, Key: []byte("b"), Value: []byte("2")},
		{Type: storage.BatchDelete, Key: []byte("keep")},
	}
	require.NoError(t, db.Batch(ctx, ops))

	va, err := db.Read(ctx, []byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), va)
	_, err = db.Read(ctx, []byte("keep"))
	require.ErrorIs(t, err, storage.ErrKeyNotFound)
}

func TestIteratorOrdersAndBounds(t *testing.T) {
	db := New()
	ctx := context.Background()
	for _, k := range []string{"c", "a", "b", "d"} {
		require.NoError(t, db.Write(ctx, []byte(k), []byte(k)))
	}

	it, err := db.Iterator(ctx, []byte("a"), []byte("d"))
	require.NoError(t, err)
	defer it.Close()

	var got []string
	for it.Next() {
		got = append(got, string(it.Key()))
	}
	require.NoError(t, it.Error())
	require.Equal(t, []string{"a", "b", "c"}, got)
}

func TestClosedDBRejectsOperations(t *testing.T) {
	db := New()
	ctx := context.Background()
	require.NoError(t, db.Close())

	_, err := db.Read(ctx, []byte("k"))
	require.ErrorIs(t, err, storage.ErrClosed)
	require.ErrorIs(t, db.Write(ctx, []byte("k"), []byte("v")), storage.ErrClosed)
}
