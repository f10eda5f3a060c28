package replay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/usageledger/ledgerd/internal/domain"
	"github.com/usageledger/ledgerd/internal/storage"
	"github.com/usageledger/ledgerd/internal/storage/kvmemory"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	ctx := context.Background()
	kv := kvmemory.New()
	log, err := storage.NewLog(ctx, kv)
	require.NoError(t, err)
	return &storage.Store{Log: log, Snapshot: storage.NewSnapshotStore(t.TempDir() + "/snapshot.cbor")}
}

func TestToTipFromGenesisAppliesEveryLoggedTx(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	txs := []domain.Transaction{
		{Signer: "rMinter", Kind: domain.KindMint, To: "rAlice", Amount: 100},
		{Signer: "rAlice", Kind: domain.KindOpenMeter, Owner: "rAlice", ServiceID: "svc", Deposit: 50, Nonce: 0},
	}
	for _, tx := range txs {
		_, err := store.Log.AppendTx(ctx, tx)
		require.NoError(t, err)
	}

	svc := NewService(store)
	st, err := svc.ToTip(ctx, []domain.Address{"rMinter"})
	require.NoError(t, err)
	require.True(t, st.AuthorizedMinters["rMinter"])
	require.Equal(t, uint64(2), st.NextTxID)
	require.True(t, st.Meters[domain.MeterKey{Owner: "rAlice", ServiceID: "svc"}].Active)
	require.Equal(t, uint64(50), st.Accounts["rAlice"].Balance)
}

func TestToTipRejectsOnInvalidLoggedTx(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Log.AppendTx(ctx, domain.Transaction{Signer: "rAlice", Kind: domain.KindCloseMeter, Owner: "rAlice", ServiceID: "svc"})
	require.NoError(t, err)

	svc := NewService(store)
	_, err = svc.ToTip(ctx, nil)
	require.Error(t, err)
}

func TestToTipResumesFromSnapshotCursor(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Log.AppendTx(ctx, domain.Transaction{Signer: "rMinter", Kind: domain.KindMint, To: "rAlice", Amount: 100})
	require.NoError(t, err)
	_, err = store.Log.AppendTx(ctx, domain.Transaction{Signer: "rAlice", Kind: domain.KindOpenMeter, Owner: "rAlice", ServiceID: "svc", Deposit: 50, Nonce: 0})
	require.NoError(t, err)
	_, err = store.Log.AppendTx(ctx, domain.Transaction{Signer: "rAlice", Kind: domain.KindCloseMeter, Owner: "rAlice", ServiceID: "svc", Nonce: 1})
	require.NoError(t, err)

	svc := NewService(store)
	midState, err := svc.ToTip(ctx, []domain.Address{"rMinter"})
	require.NoError(t, err)
	require.NoError(t, store.Snapshot.PersistState(midState, midState.NextTxID))

	_, err = store.Log.AppendTx(ctx, domain.Transaction{Signer: "rAlice", Kind: domain.KindOpenMeter, Owner: "rAlice", ServiceID: "svc", Deposit: 50, Nonce: 2})
	require.NoError(t, err)

	finalState, err := svc.ToTip(ctx, []domain.Address{"rMinter"})
	require.NoError(t, err)
	require.Equal(t, uint64(4), finalState.NextTxID)
	require.True(t, finalState.Meters[domain.MeterKey{Owner: "rAlice", ServiceID: "svc"}].Active)
}

// unitPricing charges units * unitPrice with no fixed component.
func unitPricing(unitPrice uint64) domain.Pricing {
	return domain.Pricing{Kind: domain.PricingUnitPrice, UnitPrice: unitPrice}
}

// consumptionTxs seeds a funded, open meter for rAlice/svc (tx 0, 1) and two
// Consume transactions against it (tx 2, 3) costing 50 and 30 respectively,
// for a window gross of 80. No policy is published, so a recomputed split
// falls back to attributing the whole gross to the operator.
func consumptionTxs() []domain.Transaction {
	return []domain.Transaction{
		{Signer: "rMinter", Kind: domain.KindMint, To: "rAlice", Amount: 1000},
		{Signer: "rAlice", Kind: domain.KindOpenMeter, Owner: "rAlice", ServiceID: "svc", Deposit: 100, Nonce: 0},
		{Signer: "rAlice", Kind: domain.KindConsume, Owner: "rAlice", ServiceID: "svc", Units: 5, Pricing: unitPricing(10), Nonce: 1},
		{Signer: "rAlice", Kind: domain.KindConsume, Owner: "rAlice", ServiceID: "svc", Units: 3, Pricing: unitPricing(10), Nonce: 2},
	}
}

func settlementKey() domain.SettlementKey {
	return domain.SettlementKey{Owner: "rAlice", ServiceID: "svc", WindowID: "w1"}
}

func TestReplaySliceComputesSettlementSummary(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	for _, tx := range consumptionTxs() {
		_, err := store.Log.AppendTx(ctx, tx)
		require.NoError(t, err)
	}

	svc := NewService(store)
	hash, summary, err := svc.ReplaySlice(settlementKey(), 2, 4)
	require.NoError(t, err)
	require.NotEqual(t, [32]byte{}, hash)
	require.Equal(t, uint64(2), summary.TxCount)
	require.Equal(t, uint64(80), summary.GrossSpent)
	require.Equal(t, uint64(80), summary.OperatorShare)
	require.Equal(t, uint64(0), summary.ProtocolFee)
	require.Equal(t, uint64(0), summary.ReserveLocked)
}

// TestReplaySliceAppliesPublishedPolicySplit covers the path where a
// published policy's bps split applies, rather than the no-policy
// fallback: the global scope policy (80/15/5) is published ahead of any
// usage, so the recomputed summary must carry the same split a genuine
// ProposeSettlement would have bound.
func TestReplaySliceAppliesPublishedPolicySplit(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	txs := append([]domain.Transaction{
		{Signer: "rOperator", Kind: domain.KindPublishPolicyVersion, Scope: domain.GlobalScope, Version: 1,
			OperatorShareBps: 8000, ProtocolFeeBps: 1500, ReserveBps: 500},
	}, consumptionTxs()...)
	for _, tx := range txs {
		_, err := store.Log.AppendTx(ctx, tx)
		require.NoError(t, err)
	}

	svc := NewService(store)
	hash, summary, err := svc.ReplaySlice(settlementKey(), 3, 5)
	require.NoError(t, err)
	require.NotEqual(t, [32]byte{}, hash)
	require.Equal(t, uint64(80), summary.GrossSpent)
	require.Equal(t, uint64(64), summary.OperatorShare)
	require.Equal(t, uint64(12), summary.ProtocolFee)
	require.Equal(t, uint64(4), summary.ReserveLocked)
	require.Equal(t, summary.GrossSpent, summary.OperatorShare+summary.ProtocolFee+summary.ReserveLocked)
}

// TestReplaySliceIgnoresUnrelatedConsume checks that Consume transactions
// for a different owner/service inside the window are excluded from the
// settlement's gross_spent, per the (owner, service_id) filter.
func TestReplaySliceIgnoresUnrelatedConsume(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	txs := append(consumptionTxs(),
		domain.Transaction{Signer: "rMinter", Kind: domain.KindMint, To: "rBob", Amount: 1000},
		domain.Transaction{Signer: "rBob", Kind: domain.KindOpenMeter, Owner: "rBob", ServiceID: "svc", Deposit: 100, Nonce: 0},
		domain.Transaction{Signer: "rBob", Kind: domain.KindConsume, Owner: "rBob", ServiceID: "svc", Units: 9, Pricing: unitPricing(10), Nonce: 1},
	)
	for _, tx := range txs {
		_, err := store.Log.AppendTx(ctx, tx)
		require.NoError(t, err)
	}

	svc := NewService(store)
	_, summary, err := svc.ReplaySlice(settlementKey(), 2, 7)
	require.NoError(t, err)
	require.Equal(t, uint64(80), summary.GrossSpent)
}

func TestReplaySliceIsCached(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	for _, tx := range consumptionTxs() {
		_, err := store.Log.AppendTx(ctx, tx)
		require.NoError(t, err)
	}

	svc := NewService(store)
	hash1, summary1, err := svc.ReplaySlice(settlementKey(), 2, 4)
	require.NoError(t, err)
	hash2, summary2, err := svc.ReplaySlice(settlementKey(), 2, 4)
	require.NoError(t, err)
	require.Equal(t, hash1, hash2)
	require.Equal(t, summary1, summary2)
}

func TestReplaySliceRejectsOutOfRange(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	for _, tx := range consumptionTxs() {
		_, err := store.Log.AppendTx(ctx, tx)
		require.NoError(t, err)
	}

	svc := NewService(store)
	_, _, err := svc.ReplaySlice(settlementKey(), 0, 10)
	require.Error(t, err)
}

func TestVerifyBundlesConcurrently(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	for _, tx := range consumptionTxs() {
		_, err := store.Log.AppendTx(ctx, tx)
		require.NoError(t, err)
	}

	svc := NewService(store)
	hash, summary, err := svc.ReplaySlice(settlementKey(), 2, 4)
	require.NoError(t, err)

	good := domain.EvidenceBundle{
		SettlementKey:         settlementKey(),
		FromTxID:              2,
		ToTxID:                4,
		ReplayHash:            hash[:],
		ReplaySummary:         summary,
		SchemaVersion:         domain.SupportedSchemaVersion,
		ReplayProtocolVersion: domain.SupportedReplayProtocolVersion,
	}
	bad := good
	bad.ReplaySummary.GrossSpent++
	malformed := good
	malformed.ToTxID = malformed.FromTxID

	results, err := svc.VerifyBundles(ctx, []domain.EvidenceBundle{good, bad, malformed})
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.True(t, results[0].Matches)
	require.NoError(t, results[0].Err)
	require.False(t, results[1].Matches)
	require.NoError(t, results[1].Err)
	require.Error(t, results[2].Err)
}
