package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/usageledger/ledgerd/internal/domain"
	"github.com/usageledger/ledgerd/internal/engine"
	"github.com/usageledger/ledgerd/internal/evidence"
	"github.com/usageledger/ledgerd/internal/signing"
	"github.com/usageledger/ledgerd/internal/state"
	"github.com/usageledger/ledgerd/internal/storage"
	"github.com/usageledger/ledgerd/internal/storage/kvmemory"
)

type stubReplayer struct{}

func (stubReplayer) ReplaySlice(domain.SettlementKey, uint64, uint64) (evidence.Hash, domain.ReplaySummary, error) {
	return evidence.Hash{}, domain.ReplaySummary{}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := &storage.Store{}
	kv := kvmemory.New()
	log, err := storage.NewLog(context.Background(), kv)
	require.NoError(t, err)
	store.Log = log
	store.Snapshot = storage.NewSnapshotStore(t.TempDir() + "/snapshot.cbor")

	st := state.New([]domain.Address{"rMinter"})
	machine := engine.NewStateMachine(signing.NoopVerifier{}, stubReplayer{}, nil)
	node := NewNode(st, machine, store, NewPublisher())
	return NewServer(node, func() int64 { return 1000 })
}

func TestHandleSubmitMintAndQueryAccount(t *testing.T) {
	srv := newTestServer(t)

	body, err := json.Marshal(submitRequest{Transaction: domain.Transaction{
		Signer: "rMinter",
		Kind:   domain.KindMint,
		To:     "rAlice",
		Amount: 500,
	}})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/transactions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/accounts/rAlice", nil)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var acct domain.Account
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &acct))
	require.EqualValues(t, 500, acct.Balance)
}

func TestHandleSubmitRejectsUnauthorizedMinter(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(submitRequest{Transaction: domain.Transaction{
		Signer: "rNotAMinter",
		Kind:   domain.KindMint,
		To:     "rAlice",
		Amount: 10,
	}})

	req := httptest.NewRequest(http.MethodPost, "/v1/transactions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandleAccountNotFound(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/accounts/rGhost", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleSettlementNotFoundBadPath(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/settlements/rOwner", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
