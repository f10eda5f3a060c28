package engine

import (
	"github.com/usageledger/ledgerd/internal/domain"
	"github.com/usageledger/ledgerd/internal/evidence"
	"github.com/usageledger/ledgerd/internal/state"
)

// Apply performs the minimal field updates for one already-validated
// transaction and returns the resulting state. It never rejects: every
// precondition has already been checked by Validate, and hints carries the
// quantities Validate computed so apply never recomputes (and cannot
// disagree with) them. The caller's state is not mutated in place; Apply
// works on, and returns, a fresh clone.
func Apply(s *state.State, tx domain.Transaction, hints domain.ApplyHints, ctx domain.Context) *state.State {
	next := s.Clone()
	next.NextTxID = s.NextTxID + 1

	if hints.NonceAccount != "" {
		acct := next.Accounts[hints.NonceAccount]
		acct.Nonce++
		next.Accounts[hints.NonceAccount] = acct
	}

	switch tx.Kind {
	case domain.KindMint:
		applyMint(next, tx)
	case domain.KindOpenMeter:
		applyOpenMeter(next, tx)
	case domain.KindConsume:
		applyConsume(next, tx, hints)
	case domain.KindCloseMeter:
		applyCloseMeter(next, tx)
	case domain.KindRevokeDelegation:
		applyRevokeDelegation(next, tx)
	case domain.KindProposeSettlement:
		applyProposeSettlement(next, tx, hints)
	case domain.KindFinalizeSettlement:
		applyFinalizeSettlement(next, tx, ctx)
	case domain.KindSubmitClaim:
		applySubmitClaim(next, tx, hints)
	case domain.KindPayClaim:
		applyPayClaim(next, tx, hints)
	case domain.KindOpenDispute:
		applyOpenDispute(next, tx, ctx)
	case domain.KindResolveDispute:
		applyResolveDispute(next, tx)
	case domain.KindPublishPolicyVersion:
		applyPublishPolicyVersion(next, tx)
	case domain.KindSupersedePolicyVersion:
		applySupersedePolicyVersion(next, tx)
	}

	return next
}

func applyMint(s *state.State, tx domain.Transaction) {
	acct := s.Accounts[tx.To]
	acct.Balance += tx.Amount
	s.Accounts[tx.To] = acct
}

func applyOpenMeter(s *state.State, tx domain.Transaction) {
	acct := s.Accounts[tx.Owner]
	acct.Balance -= tx.Deposit
	s.Accounts[tx.Owner] = acct

	key := tx.MeterKey()
	meter := s.Meters[key]
	meter.LockedDeposit += tx.Deposit
	meter.Active = true
	s.Meters[key] = meter
}

func applyConsume(s *state.State, tx domain.Transaction, hints domain.ApplyHints) {
	acct := s.Accounts[tx.Owner]
	acct.Balance -= hints.Cost
	s.Accounts[tx.Owner] = acct

	key := tx.MeterKey()
	meter := s.Meters[key]
	meter.TotalUnits += tx.Units
	meter.TotalSpent += hints.Cost
	s.Meters[key] = meter

	if tx.DelegationProof != nil {
		capID, err := evidence.CapabilityID(*tx.DelegationProof)
		if err == nil {
			consumption := s.Consumption[capID]
			consumption.UnitsUsed += tx.Units
			consumption.CostUsed += hints.Cost
			s.Consumption[capID] = consumption
		}
	}
}

func applyCloseMeter(s *state.State, tx domain.Transaction) {
	key := tx.MeterKey()
	meter := s.Meters[key]

	acct := s.Accounts[tx.Owner]
	acct.Balance += meter.LockedDeposit
	s.Accounts[tx.Owner] = acct

	meter.LockedDeposit = 0
	meter.Active = false
	s.Meters[key] = meter
}

func applyRevokeDelegation(s *state.State, tx domain.Transaction) {
	s.Revoked[tx.CapabilityID] = true
}

func applyProposeSettlement(s *state.State, tx domain.Transaction, hints domain.ApplyHints) {
	s.Settlements[tx.SettlementKey()] = domain.Settlement{
		Status:            domain.SettlementProposed,
		FromTxID:          tx.FromTxID,
		ToTxID:            tx.ToTxID,
		GrossSpent:        tx.GrossSpent,
		OperatorShare:     tx.OperatorShare,
		ProtocolFee:       tx.ProtocolFee,
		ReserveLocked:     tx.ReserveLocked,
		EvidenceHash:      tx.EvidenceHash,
		DisputeWindowSecs: hints.BoundDisputeWindowSecs,
		SchemaVersion:     domain.SupportedSchemaVersion,
	}
}

func applyFinalizeSettlement(s *state.State, tx domain.Transaction, ctx domain.Context) {
	key := tx.SettlementKey()
	settlement := s.Settlements[key]
	settlement.Status = domain.SettlementFinalized
	if now, ok := ctx.RequireNow(); ok {
		settlement.FinalizedAt = &now
	}
	s.Settlements[key] = settlement
}

func applySubmitClaim(s *state.State, tx domain.Transaction, hints domain.ApplyHints) {
	s.Claims[hints.ClaimID] = domain.Claim{
		ClaimID:       hints.ClaimID,
		Operator:      tx.Operator,
		SettlementKey: tx.SettlementKey(),
		ClaimAmount:   tx.ClaimAmount,
		Status:        domain.ClaimPending,
	}
}

func applyPayClaim(s *state.State, tx domain.Transaction, hints domain.ApplyHints) {
	claim := s.Claims[hints.ClaimID]
	claim.Status = domain.ClaimPaid
	s.Claims[hints.ClaimID] = claim

	acct := s.Accounts[tx.Operator]
	acct.Balance += claim.ClaimAmount
	s.Accounts[tx.Operator] = acct
}

func applyOpenDispute(s *state.State, tx domain.Transaction, ctx domain.Context) {
	key := tx.SettlementKey()
	opened := int64(0)
	if now, ok := ctx.RequireNow(); ok {
		opened = now
	}
	s.Disputes[key] = domain.Dispute{
		Status:   domain.DisputeOpen,
		OpenedAt: opened,
	}

	settlement := s.Settlements[key]
	settlement.Status = domain.SettlementDisputed
	s.Settlements[key] = settlement
}

func applyResolveDispute(s *state.State, tx domain.Transaction) {
	key := tx.SettlementKey()

	dispute := s.Disputes[key]
	if tx.Verdict == "Upheld" {
		dispute.Status = domain.DisputeUpheld
	} else {
		dispute.Status = domain.DisputeDismissed
	}
	dispute.ResolutionAudit = &domain.ResolutionAudit{
		ReplayHash:            tx.ReplayHash,
		ReplaySummary:         *tx.ReplaySummary,
		ReplayProtocolVersion: domain.SupportedReplayProtocolVersion,
	}
	s.Disputes[key] = dispute

	settlement := s.Settlements[key]
	settlement.Status = domain.SettlementResolved
	settlement.ReplayHash = tx.ReplayHash
	settlement.ReplaySummary = tx.ReplaySummary
	s.Settlements[key] = settlement
}

func applyPublishPolicyVersion(s *state.State, tx domain.Transaction) {
	versions, ok := s.Policies[tx.Scope]
	if !ok {
		versions = make(map[uint64]domain.PolicyVersion)
		s.Policies[tx.Scope] = versions
	}
	versions[tx.Version] = domain.PolicyVersion{
		ScopeKey:          tx.Scope,
		Version:           tx.Version,
		EffectiveFromTxID: tx.EffectiveFromTxID,
		Status:            domain.PolicyPublished,
		OperatorShareBps:  tx.OperatorShareBps,
		ProtocolFeeBps:    tx.ProtocolFeeBps,
		ReserveBps:        tx.ReserveBps,
		DisputeWindowSecs: tx.DisputeWindowSecs,
	}
}

func applySupersedePolicyVersion(s *state.State, tx domain.Transaction) {
	versions := s.Policies[tx.Scope]
	pv := versions[tx.Version]
	pv.Status = domain.PolicySuperseded
	versions[tx.Version] = pv
}
