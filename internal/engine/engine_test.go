package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/usageledger/ledgerd/internal/domain"
	"github.com/usageledger/ledgerd/internal/evidence"
	"github.com/usageledger/ledgerd/internal/ledgererr"
	"github.com/usageledger/ledgerd/internal/signing"
	"github.com/usageledger/ledgerd/internal/state"
)

type stubReplayer struct {
	hash    [32]byte
	summary domain.ReplaySummary
	err     error
}

func (r stubReplayer) ReplaySlice(key domain.SettlementKey, fromTxID, toTxID uint64) ([32]byte, domain.ReplaySummary, error) {
	return r.hash, r.summary, r.err
}

func now(v int64) domain.Context {
	return domain.Context{Mode: domain.ModeLive, Now: &v}
}

func newMachine() *StateMachine {
	return NewStateMachine(signing.NoopVerifier{}, stubReplayer{}, nil)
}

func TestMintRequiresAuthorizedMinter(t *testing.T) {
	s := state.New(nil)
	m := newMachine()

	tx := domain.Transaction{Signer: "rMinter", Kind: domain.KindMint, To: "rAlice", Amount: 100}
	_, err := m.Submit(s, tx, domain.Context{Mode: domain.ModeLive, Minters: map[domain.Address]bool{}})
	require.True(t, ledgererr.Is(err, ledgererr.InvalidTransaction))
}

func TestMintCreditsBalance(t *testing.T) {
	s := state.New(nil)
	m := newMachine()
	ctx := domain.Context{Mode: domain.ModeLive, Minters: map[domain.Address]bool{"rMinter": true}}

	tx := domain.Transaction{Signer: "rMinter", Kind: domain.KindMint, To: "rAlice", Amount: 100}
	next, err := m.Submit(s, tx, ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(100), next.Accounts["rAlice"].Balance)
	require.Equal(t, uint64(1), next.NextTxID)
	require.Equal(t, uint64(0), s.NextTxID, "original state must not be mutated")
}

func TestOpenMeterLocksDeposit(t *testing.T) {
	s := state.New(nil)
	s.Accounts["rAlice"] = domain.Account{Balance: 1000}
	m := newMachine()

	tx := domain.Transaction{Signer: "rAlice", Kind: domain.KindOpenMeter, Owner: "rAlice", ServiceID: "svc", Deposit: 300}
	next, err := m.Submit(s, tx, now(1000))
	require.NoError(t, err)
	require.Equal(t, uint64(700), next.Accounts["rAlice"].Balance)
	meter := next.Meters[domain.MeterKey{Owner: "rAlice", ServiceID: "svc"}]
	require.True(t, meter.Active)
	require.Equal(t, uint64(300), meter.LockedDeposit)
}

func TestOpenMeterRejectsInsufficientBalance(t *testing.T) {
	s := state.New(nil)
	s.Accounts["rAlice"] = domain.Account{Balance: 100}
	m := newMachine()

	tx := domain.Transaction{Signer: "rAlice", Kind: domain.KindOpenMeter, Owner: "rAlice", ServiceID: "svc", Deposit: 300}
	_, err := m.Submit(s, tx, now(1000))
	require.Error(t, err)
}

func TestOpenMeterRejectsDuplicateActive(t *testing.T) {
	s := state.New(nil)
	s.Accounts["rAlice"] = domain.Account{Balance: 1000}
	s.Meters[domain.MeterKey{Owner: "rAlice", ServiceID: "svc"}] = domain.Meter{Active: true}
	m := newMachine()

	tx := domain.Transaction{Signer: "rAlice", Kind: domain.KindOpenMeter, Owner: "rAlice", ServiceID: "svc", Deposit: 300}
	_, err := m.Submit(s, tx, now(1000))
	require.Error(t, err)
}

func TestConsumeDirectDeductsCost(t *testing.T) {
	s := state.New(nil)
	s.Accounts["rAlice"] = domain.Account{Balance: 1000}
	s.Meters[domain.MeterKey{Owner: "rAlice", ServiceID: "svc"}] = domain.Meter{Active: true}
	m := newMachine()

	tx := domain.Transaction{
		Signer: "rAlice", Kind: domain.KindConsume, Owner: "rAlice", ServiceID: "svc",
		Units: 10, Pricing: domain.Pricing{Kind: domain.PricingUnitPrice, UnitPrice: 5},
	}
	next, err := m.Submit(s, tx, now(1000))
	require.NoError(t, err)
	require.Equal(t, uint64(950), next.Accounts["rAlice"].Balance)
	meter := next.Meters[domain.MeterKey{Owner: "rAlice", ServiceID: "svc"}]
	require.Equal(t, uint64(10), meter.TotalUnits)
	require.Equal(t, uint64(50), meter.TotalSpent)
}

func TestConsumeRejectsWithoutActiveMeter(t *testing.T) {
	s := state.New(nil)
	s.Accounts["rAlice"] = domain.Account{Balance: 1000}
	m := newMachine()

	tx := domain.Transaction{
		Signer: "rAlice", Kind: domain.KindConsume, Owner: "rAlice", ServiceID: "svc",
		Units: 10, Pricing: domain.Pricing{Kind: domain.PricingUnitPrice, UnitPrice: 5},
	}
	_, err := m.Submit(s, tx, now(1000))
	require.Error(t, err)
}

func TestConsumeDelegatedRequiresV2PayloadAndValidAt(t *testing.T) {
	s := state.New(nil)
	s.Accounts["rAlice"] = domain.Account{Balance: 1000}
	s.Meters[domain.MeterKey{Owner: "rAlice", ServiceID: "svc"}] = domain.Meter{Active: true}
	m := newMachine()

	proof := &domain.DelegationProof{Issuer: "rAlice", Audience: "rOperator", ServiceID: "svc", Ability: "consume", IAT: 0, Exp: 2000}
	tx := domain.Transaction{
		Signer: "rOperator", Kind: domain.KindConsume, Owner: "rAlice", ServiceID: "svc",
		Units: 1, Pricing: domain.Pricing{Kind: domain.PricingUnitPrice, UnitPrice: 1},
		DelegationProof: proof, NonceAccount: "rAlice",
	}
	_, err := m.Submit(s, tx, now(1000))
	require.True(t, ledgererr.Is(err, ledgererr.DelegatedConsumeRequiresV2))

	tx.PayloadVersion = domain.DelegatedConsumePayloadVersion
	_, err = m.Submit(s, tx, now(1000))
	require.True(t, ledgererr.Is(err, ledgererr.ValidAtMissing))

	validAt := int64(999)
	tx.ValidAt = &validAt
	next, err := m.Submit(s, tx, now(1000))
	require.NoError(t, err)
	require.Equal(t, uint64(1), next.Accounts["rAlice"].Nonce)
}

func TestConsumeDelegatedRejectsRevoked(t *testing.T) {
	s := state.New(nil)
	s.Accounts["rAlice"] = domain.Account{Balance: 1000}
	s.Meters[domain.MeterKey{Owner: "rAlice", ServiceID: "svc"}] = domain.Meter{Active: true}
	m := newMachine()

	proof := domain.DelegationProof{Issuer: "rAlice", Audience: "rOperator", ServiceID: "svc", Ability: "consume", IAT: 0, Exp: 2000}
	capID, err := evidence.CapabilityID(proof)
	require.NoError(t, err)
	s.Revoked[capID] = true

	validAt := int64(999)
	tx := domain.Transaction{
		Signer: "rOperator", Kind: domain.KindConsume, Owner: "rAlice", ServiceID: "svc",
		Units: 1, Pricing: domain.Pricing{Kind: domain.PricingUnitPrice, UnitPrice: 1},
		DelegationProof: &proof, NonceAccount: "rAlice", ValidAt: &validAt,
		PayloadVersion: domain.DelegatedConsumePayloadVersion,
	}
	_, err = m.Submit(s, tx, now(1000))
	require.True(t, ledgererr.Is(err, ledgererr.DelegationRevoked))
}

func TestCloseMeterReturnsDeposit(t *testing.T) {
	s := state.New(nil)
	s.Accounts["rAlice"] = domain.Account{Balance: 700}
	s.Meters[domain.MeterKey{Owner: "rAlice", ServiceID: "svc"}] = domain.Meter{Active: true, LockedDeposit: 300}
	m := newMachine()

	tx := domain.Transaction{Signer: "rAlice", Kind: domain.KindCloseMeter, Owner: "rAlice", ServiceID: "svc"}
	next, err := m.Submit(s, tx, now(1000))
	require.NoError(t, err)
	require.Equal(t, uint64(1000), next.Accounts["rAlice"].Balance)
	require.False(t, next.Meters[domain.MeterKey{Owner: "rAlice", ServiceID: "svc"}].Active)
}

func TestProposeSettlementRequiresConservation(t *testing.T) {
	s := state.New(nil)
	m := newMachine()

	tx := domain.Transaction{
		Signer: "rAlice", Kind: domain.KindProposeSettlement, Owner: "rAlice", ServiceID: "svc", WindowID: "w1",
		FromTxID: 0, ToTxID: 10, GrossSpent: 100, OperatorShare: 80, ProtocolFee: 15, ReserveLocked: 4,
	}
	_, err := m.Submit(s, tx, now(1000))
	require.True(t, ledgererr.Is(err, ledgererr.SettlementConservationViolation))
}

func TestProposeSettlementRejectsOverlap(t *testing.T) {
	s := state.New(nil)
	s.Settlements[domain.SettlementKey{Owner: "rAlice", ServiceID: "svc", WindowID: "w0"}] = domain.Settlement{FromTxID: 0, ToTxID: 10}
	m := newMachine()

	tx := domain.Transaction{
		Signer: "rAlice", Kind: domain.KindProposeSettlement, Owner: "rAlice", ServiceID: "svc", WindowID: "w1",
		FromTxID: 5, ToTxID: 15, GrossSpent: 100, OperatorShare: 100,
	}
	_, err := m.Submit(s, tx, now(1000))
	require.True(t, ledgererr.Is(err, ledgererr.DuplicateSettlementWindow))
}

func TestFullSettlementClaimLifecycle(t *testing.T) {
	s := state.New(nil)
	s.Accounts["rAlice"] = domain.Account{Balance: 0}
	m := newMachine()

	proposeTx := domain.Transaction{
		Signer: "rAlice", Kind: domain.KindProposeSettlement, Owner: "rAlice", ServiceID: "svc", WindowID: "w1",
		FromTxID: 0, ToTxID: 10, GrossSpent: 1000, OperatorShare: 800, ProtocolFee: 150, ReserveLocked: 50,
	}
	s, err := m.Submit(s, proposeTx, now(1000))
	require.NoError(t, err)
	require.Equal(t, domain.SettlementProposed, s.Settlements[proposeTx.SettlementKey()].Status)

	finalizeTx := domain.Transaction{Signer: "rAlice", Kind: domain.KindFinalizeSettlement, Owner: "rAlice", ServiceID: "svc", WindowID: "w1", Nonce: 1}
	s, err = m.Submit(s, finalizeTx, now(1000))
	require.NoError(t, err)
	require.Equal(t, domain.SettlementFinalized, s.Settlements[proposeTx.SettlementKey()].Status)

	claimTx := domain.Transaction{
		Signer: "rOperator", Kind: domain.KindSubmitClaim, Operator: "rOperator", Owner: "rAlice", ServiceID: "svc", WindowID: "w1", ClaimAmount: 500,
	}
	next, hints, err := m.SubmitWithHints(s, claimTx, now(1000))
	require.NoError(t, err)
	require.NotEmpty(t, hints.ClaimID)
	claim := next.Claims[hints.ClaimID]
	require.Equal(t, domain.ClaimPending, claim.Status)

	payTx := domain.Transaction{Signer: "rAlice", Kind: domain.KindPayClaim, Operator: "rOperator", Owner: "rAlice", ServiceID: "svc", WindowID: "w1", Nonce: 2}
	next, err = m.Submit(next, payTx, now(1000))
	require.NoError(t, err)
	require.Equal(t, domain.ClaimPaid, next.Claims[hints.ClaimID].Status)
	require.Equal(t, uint64(500), next.Accounts["rOperator"].Balance)
}

func TestSubmitClaimRejectsAmountExceedingPayable(t *testing.T) {
	s := state.New(nil)
	key := domain.SettlementKey{Owner: "rAlice", ServiceID: "svc", WindowID: "w1"}
	s.Settlements[key] = domain.Settlement{Status: domain.SettlementFinalized, OperatorShare: 100}
	m := newMachine()

	tx := domain.Transaction{Signer: "rOperator", Kind: domain.KindSubmitClaim, Operator: "rOperator", Owner: "rAlice", ServiceID: "svc", WindowID: "w1", ClaimAmount: 200}
	_, err := m.Submit(s, tx, now(1000))
	require.True(t, ledgererr.Is(err, ledgererr.ClaimAmountExceedsPayable))
}

func TestOpenDisputeRejectsAfterWindowExpires(t *testing.T) {
	s := state.New(nil)
	finalizedAt := int64(1000)
	windowSecs := uint64(100)
	key := domain.SettlementKey{Owner: "rAlice", ServiceID: "svc", WindowID: "w1"}
	s.Settlements[key] = domain.Settlement{Status: domain.SettlementFinalized, FinalizedAt: &finalizedAt, DisputeWindowSecs: &windowSecs}
	m := newMachine()

	tx := domain.Transaction{Signer: "rAlice", Kind: domain.KindOpenDispute, Owner: "rAlice", ServiceID: "svc", WindowID: "w1"}
	_, err := m.Submit(s, tx, now(1000+101))
	require.True(t, ledgererr.Is(err, ledgererr.DisputeWindowExpired))

	_, err = m.Submit(s, tx, now(1000+50))
	require.NoError(t, err)
}

func TestResolveDisputeRequiresMatchingReplay(t *testing.T) {
	s := state.New(nil)
	key := domain.SettlementKey{Owner: "rAlice", ServiceID: "svc", WindowID: "w1"}
	s.Settlements[key] = domain.Settlement{Status: domain.SettlementDisputed, FromTxID: 0, ToTxID: 5, GrossSpent: 100, OperatorShare: 80, ProtocolFee: 15, ReserveLocked: 5}
	s.Disputes[key] = domain.Dispute{Status: domain.DisputeOpen}

	replayHash := [32]byte{9, 9, 9}
	summary := domain.ReplaySummary{FromTxID: 0, ToTxID: 5, TxCount: 5, GrossSpent: 100, OperatorShare: 80, ProtocolFee: 15, ReserveLocked: 5}
	m := NewStateMachine(signing.NoopVerifier{}, stubReplayer{hash: replayHash, summary: summary}, nil)

	bundle := &domain.EvidenceBundle{
		SettlementKey: key, FromTxID: 0, ToTxID: 5, ReplayHash: replayHash[:], ReplaySummary: summary,
		SchemaVersion: domain.SupportedSchemaVersion, ReplayProtocolVersion: domain.SupportedReplayProtocolVersion,
	}
	tx := domain.Transaction{
		Signer: "rAlice", Kind: domain.KindResolveDispute, Owner: "rAlice", ServiceID: "svc", WindowID: "w1",
		Verdict: "Upheld", EvidenceBundle: bundle, ReplayHash: replayHash[:], ReplaySummary: &summary,
	}
	next, err := m.Submit(s, tx, now(1000))
	require.NoError(t, err)
	require.Equal(t, domain.SettlementResolved, next.Settlements[key].Status)
	require.Equal(t, domain.DisputeUpheld, next.Disputes[key].Status)
}

func TestResolveDisputeRejectsOnReplayMismatch(t *testing.T) {
	s := state.New(nil)
	key := domain.SettlementKey{Owner: "rAlice", ServiceID: "svc", WindowID: "w1"}
	s.Settlements[key] = domain.Settlement{Status: domain.SettlementDisputed, FromTxID: 0, ToTxID: 5, GrossSpent: 100, OperatorShare: 80, ProtocolFee: 15, ReserveLocked: 5}
	s.Disputes[key] = domain.Dispute{Status: domain.DisputeOpen}

	claimedHash := [32]byte{1}
	actualHash := [32]byte{2}
	summary := domain.ReplaySummary{FromTxID: 0, ToTxID: 5, TxCount: 5, GrossSpent: 100, OperatorShare: 80, ProtocolFee: 15, ReserveLocked: 5}
	m := NewStateMachine(signing.NoopVerifier{}, stubReplayer{hash: actualHash, summary: summary}, nil)

	bundle := &domain.EvidenceBundle{
		SettlementKey: key, FromTxID: 0, ToTxID: 5, ReplayHash: claimedHash[:], ReplaySummary: summary,
		SchemaVersion: domain.SupportedSchemaVersion, ReplayProtocolVersion: domain.SupportedReplayProtocolVersion,
	}
	tx := domain.Transaction{
		Signer: "rAlice", Kind: domain.KindResolveDispute, Owner: "rAlice", ServiceID: "svc", WindowID: "w1",
		Verdict: "Dismissed", EvidenceBundle: bundle, ReplayHash: claimedHash[:], ReplaySummary: &summary,
	}
	_, err := m.Submit(s, tx, now(1000))
	require.True(t, ledgererr.Is(err, ledgererr.ReplayMismatch))
}

func TestPublishPolicyVersionMustStartAtOne(t *testing.T) {
	s := state.New(nil)
	m := newMachine()

	tx := domain.Transaction{Signer: "rAlice", Kind: domain.KindPublishPolicyVersion, Scope: domain.GlobalScope, Version: 2, EffectiveFromTxID: 0}
	_, err := m.Submit(s, tx, now(1000))
	require.True(t, ledgererr.Is(err, ledgererr.PolicyVersionConflict))

	tx.Version = 1
	next, err := m.Submit(s, tx, now(1000))
	require.NoError(t, err)
	require.Equal(t, domain.PolicyPublished, next.Policies[domain.GlobalScope][1].Status)
}

func TestSupersedePolicyVersionRequiresPublished(t *testing.T) {
	s := state.New(nil)
	s.Policies[domain.GlobalScope] = map[uint64]domain.PolicyVersion{
		1: {Version: 1, Status: domain.PolicySuperseded},
	}
	m := newMachine()

	tx := domain.Transaction{Signer: "rAlice", Kind: domain.KindSupersedePolicyVersion, Scope: domain.GlobalScope, Version: 1}
	_, err := m.Submit(s, tx, now(1000))
	require.True(t, ledgererr.Is(err, ledgererr.PolicyVersionConflict))
}

func TestHookVetoPreventsStateChange(t *testing.T) {
	s := state.New(nil)
	s.Accounts["rAlice"] = domain.Account{Balance: 1000}
	m := NewStateMachine(signing.NoopVerifier{}, stubReplayer{}, vetoingHook{})

	tx := domain.Transaction{Signer: "rAlice", Kind: domain.KindOpenMeter, Owner: "rAlice", ServiceID: "svc", Deposit: 100}
	next, err := m.Submit(s, tx, now(1000))
	require.Error(t, err)
	require.Same(t, s, next)
}

type vetoingHook struct{ NoopHook }

func (vetoingHook) BeforeMeterOpen(domain.Transaction) error {
	return ledgererr.New(ledgererr.InvalidTransaction, "vetoed")
}
