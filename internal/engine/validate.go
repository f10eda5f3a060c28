package engine

import (
	"bytes"

	"github.com/usageledger/ledgerd/internal/domain"
	"github.com/usageledger/ledgerd/internal/evidence"
	"github.com/usageledger/ledgerd/internal/ledgererr"
	"github.com/usageledger/ledgerd/internal/signing"
	"github.com/usageledger/ledgerd/internal/state"
)

// Validate runs the full pipeline (shape, authorization, nonce, domain,
// delegation, settlement) for one transaction against the given state and
// returns the hints apply needs, or a rejection. Validate never mutates s.
func Validate(s *state.State, tx domain.Transaction, ctx domain.Context, verifier signing.Verifier, replayer Replayer) (domain.ApplyHints, error) {
	if tx.PayloadVersion == 0 {
		tx.PayloadVersion = domain.DefaultPayloadVersion
	}

	switch tx.Kind {
	case domain.KindMint:
		return validateMint(s, tx, ctx, verifier)
	case domain.KindOpenMeter:
		return validateOpenMeter(s, tx, ctx, verifier)
	case domain.KindConsume:
		return validateConsume(s, tx, ctx, verifier)
	case domain.KindCloseMeter:
		return validateCloseMeter(s, tx, ctx, verifier)
	case domain.KindRevokeDelegation:
		return validateRevokeDelegation(s, tx, ctx, verifier)
	case domain.KindProposeSettlement:
		return validateProposeSettlement(s, tx, ctx, verifier)
	case domain.KindFinalizeSettlement:
		return validateFinalizeSettlement(s, tx, ctx, verifier)
	case domain.KindSubmitClaim:
		return validateSubmitClaim(s, tx, ctx, verifier)
	case domain.KindPayClaim:
		return validatePayClaim(s, tx, ctx, verifier)
	case domain.KindOpenDispute:
		return validateOpenDispute(s, tx, ctx, verifier)
	case domain.KindResolveDispute:
		return validateResolveDispute(s, tx, ctx, verifier, replayer)
	case domain.KindPublishPolicyVersion:
		return validatePublishPolicyVersion(s, tx, ctx, verifier)
	case domain.KindSupersedePolicyVersion:
		return validateSupersedePolicyVersion(s, tx, ctx, verifier)
	default:
		return domain.ApplyHints{}, ledgererr.Newf(ledgererr.InvalidTransaction, "unknown transaction kind %q", tx.Kind)
	}
}

// verifySignature checks the signature of a directly-signed (non-delegated)
// transaction against the stated signer. Replay mode never verifies
// signatures, since legacy log entries may be unsigned.
func verifySignature(tx domain.Transaction, ctx domain.Context, verifier signing.Verifier) error {
	if ctx.Mode == domain.ModeReplay {
		return nil
	}
	payload, err := evidence.SigningPayload(tx)
	if err != nil {
		return ledgererr.Wrap(ledgererr.InvalidTransaction, "encode signing payload", err)
	}
	if !verifier.Verify(tx.Signer, payload, tx.Signature) {
		return ledgererr.New(ledgererr.SignatureVerificationFailed, "signature verification failed")
	}
	return nil
}

// checkAndBindNonce requires account.nonce == tx.nonce for the resolved
// nonce account.
func checkAndBindNonce(s *state.State, nonceAccount domain.Address, tx domain.Transaction) error {
	acct := s.Accounts[nonceAccount]
	if acct.Nonce != tx.Nonce {
		return ledgererr.Newf(ledgererr.InvalidTransaction, "nonce mismatch for %s: account=%d tx=%d", nonceAccount, acct.Nonce, tx.Nonce)
	}
	return nil
}

func validateMint(s *state.State, tx domain.Transaction, ctx domain.Context, verifier signing.Verifier) (domain.ApplyHints, error) {
	if tx.To == "" || tx.Amount == 0 {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.InvalidTransaction, "mint requires to and amount > 0")
	}
	if !ctx.Minters[tx.Signer] {
		return domain.ApplyHints{}, ledgererr.Newf(ledgererr.InvalidTransaction, "signer %s is not an authorized minter", tx.Signer)
	}
	if err := verifySignature(tx, ctx, verifier); err != nil {
		return domain.ApplyHints{}, err
	}
	// Mint is not account-issued: it does not consume a nonce.
	return domain.ApplyHints{}, nil
}

func validateOpenMeter(s *state.State, tx domain.Transaction, ctx domain.Context, verifier signing.Verifier) (domain.ApplyHints, error) {
	if tx.Owner == "" || tx.ServiceID == "" || tx.Deposit == 0 {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.InvalidTransaction, "open_meter requires owner, service_id, deposit > 0")
	}
	if tx.Signer != tx.Owner {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.InvalidTransaction, "signer must be owner")
	}
	if err := verifySignature(tx, ctx, verifier); err != nil {
		return domain.ApplyHints{}, err
	}
	if err := checkAndBindNonce(s, tx.Signer, tx); err != nil {
		return domain.ApplyHints{}, err
	}
	acct := s.Accounts[tx.Owner]
	if acct.Balance < tx.Deposit {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.InvalidTransaction, "insufficient balance for deposit")
	}
	if m, ok := s.Meters[tx.MeterKey()]; ok && m.Active {
		return domain.ApplyHints{}, ledgererr.Newf(ledgererr.InvalidTransaction, "meter already active for %s/%s", tx.Owner, tx.ServiceID)
	}
	return domain.ApplyHints{NonceAccount: tx.Signer}, nil
}

func validateConsume(s *state.State, tx domain.Transaction, ctx domain.Context, verifier signing.Verifier) (domain.ApplyHints, error) {
	if tx.Owner == "" || tx.ServiceID == "" || tx.Units == 0 {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.InvalidTransaction, "consume requires owner, service_id, units > 0")
	}
	if err := tx.Pricing.Validate(); err != nil {
		return domain.ApplyHints{}, ledgererr.Wrap(ledgererr.InvalidTransaction, "invalid pricing", err)
	}

	delegated := tx.DelegationProof != nil
	var nonceAccount domain.Address

	switch {
	case !delegated && tx.Signer == tx.Owner:
		if err := verifySignature(tx, ctx, verifier); err != nil {
			return domain.ApplyHints{}, err
		}
		nonceAccount = tx.Signer

	case delegated:
		if tx.PayloadVersion != domain.DelegatedConsumePayloadVersion {
			return domain.ApplyHints{}, ledgererr.New(ledgererr.DelegatedConsumeRequiresV2, "delegated consume requires payload_version 2")
		}
		if tx.ValidAt == nil {
			return domain.ApplyHints{}, ledgererr.New(ledgererr.ValidAtMissing, "delegated consume requires valid_at")
		}
		if tx.NonceAccount == "" || tx.NonceAccount != tx.Owner {
			return domain.ApplyHints{}, ledgererr.New(ledgererr.NonceAccountMissingOrInvalid, "delegated consume requires nonce_account == owner")
		}
		if err := verifySignature(tx, ctx, verifier); err != nil {
			return domain.ApplyHints{}, err
		}
		nonceAccount = tx.Owner

	default:
		return domain.ApplyHints{}, ledgererr.New(ledgererr.DelegationProofMissing, "consume requires signer == owner or a delegation proof")
	}

	if err := checkAndBindNonce(s, nonceAccount, tx); err != nil {
		return domain.ApplyHints{}, err
	}

	meter, ok := s.Meters[tx.MeterKey()]
	if !ok || !meter.Active {
		return domain.ApplyHints{}, ledgererr.Newf(ledgererr.InvalidTransaction, "no active meter for %s/%s", tx.Owner, tx.ServiceID)
	}

	cost, ok := tx.Pricing.Cost(tx.Units)
	if !ok {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.InvalidTransaction, "cost computation overflowed")
	}
	acct := s.Accounts[tx.Owner]
	if acct.Balance < cost {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.InvalidTransaction, "insufficient balance for consume cost")
	}

	var capID domain.CapabilityID
	if delegated {
		proof := *tx.DelegationProof
		if proof.Issuer != tx.Owner {
			return domain.ApplyHints{}, ledgererr.New(ledgererr.DelegationIssuerOwnerMismatch, "delegation issuer must equal meter owner")
		}
		if proof.Audience != tx.Signer {
			return domain.ApplyHints{}, ledgererr.New(ledgererr.DelegationAudienceSignerMismatch, "delegation audience must equal signer")
		}
		if proof.ServiceID != tx.ServiceID || proof.Ability != "consume" {
			return domain.ApplyHints{}, ledgererr.New(ledgererr.DelegationScopeMismatch, "delegation scope does not match consume target")
		}
		id, err := evidence.CapabilityID(proof)
		if err != nil {
			return domain.ApplyHints{}, ledgererr.Wrap(ledgererr.InvalidTransaction, "derive capability id", err)
		}
		capID = id
		if s.Revoked[capID] {
			return domain.ApplyHints{}, ledgererr.New(ledgererr.DelegationRevoked, "delegation has been revoked")
		}
		validAt := *tx.ValidAt
		if !(proof.IAT <= validAt && validAt < proof.Exp) {
			return domain.ApplyHints{}, ledgererr.New(ledgererr.DelegationExpiredOrNotYetValid, "valid_at outside [iat, exp)")
		}
		if ctx.Mode == domain.ModeLive {
			now, haveNow := ctx.RequireNow()
			if !haveNow {
				return domain.ApplyHints{}, ledgererr.New(ledgererr.ValidAtMissing, "live mode requires a reference time")
			}
			if validAt > now {
				return domain.ApplyHints{}, ledgererr.New(ledgererr.ReferenceTimeFuture, "valid_at is in the future")
			}
			if ctx.MaxAge != nil && validAt < now-int64(*ctx.MaxAge) {
				return domain.ApplyHints{}, ledgererr.New(ledgererr.ReferenceTimeTooOld, "valid_at older than max_age")
			}
		}
		consumption := s.Consumption[capID]
		if proof.Caveats.MaxUnits != nil {
			used, ok := domain.CheckedAdd(consumption.UnitsUsed, tx.Units)
			if !ok || used > *proof.Caveats.MaxUnits {
				return domain.ApplyHints{}, ledgererr.New(ledgererr.CapabilityLimitExceeded, "max_units exceeded")
			}
		}
		if proof.Caveats.MaxCost != nil {
			used, ok := domain.CheckedAdd(consumption.CostUsed, cost)
			if !ok || used > *proof.Caveats.MaxCost {
				return domain.ApplyHints{}, ledgererr.New(ledgererr.CapabilityLimitExceeded, "max_cost exceeded")
			}
		}
	}

	return domain.ApplyHints{Cost: cost, NonceAccount: nonceAccount}, nil
}

func validateCloseMeter(s *state.State, tx domain.Transaction, ctx domain.Context, verifier signing.Verifier) (domain.ApplyHints, error) {
	if tx.Owner == "" || tx.ServiceID == "" {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.InvalidTransaction, "close_meter requires owner, service_id")
	}
	if tx.Signer != tx.Owner {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.InvalidTransaction, "signer must be owner")
	}
	if err := verifySignature(tx, ctx, verifier); err != nil {
		return domain.ApplyHints{}, err
	}
	if err := checkAndBindNonce(s, tx.Signer, tx); err != nil {
		return domain.ApplyHints{}, err
	}
	meter, ok := s.Meters[tx.MeterKey()]
	if !ok || !meter.Active {
		return domain.ApplyHints{}, ledgererr.Newf(ledgererr.InvalidTransaction, "no active meter for %s/%s", tx.Owner, tx.ServiceID)
	}
	return domain.ApplyHints{NonceAccount: tx.Signer}, nil
}

func validateRevokeDelegation(s *state.State, tx domain.Transaction, ctx domain.Context, verifier signing.Verifier) (domain.ApplyHints, error) {
	if tx.CapabilityID == "" {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.InvalidTransaction, "revoke_delegation requires capability_id")
	}
	if err := verifySignature(tx, ctx, verifier); err != nil {
		return domain.ApplyHints{}, err
	}
	if err := checkAndBindNonce(s, tx.Signer, tx); err != nil {
		return domain.ApplyHints{}, err
	}
	return domain.ApplyHints{NonceAccount: tx.Signer}, nil
}

func validateProposeSettlement(s *state.State, tx domain.Transaction, ctx domain.Context, verifier signing.Verifier) (domain.ApplyHints, error) {
	if tx.Owner == "" || tx.ServiceID == "" || tx.WindowID == "" {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.InvalidTransaction, "propose_settlement requires owner, service_id, window_id")
	}
	if tx.Signer != tx.Owner {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.InvalidTransaction, "signer must be owner")
	}
	if err := verifySignature(tx, ctx, verifier); err != nil {
		return domain.ApplyHints{}, err
	}
	if err := checkAndBindNonce(s, tx.Signer, tx); err != nil {
		return domain.ApplyHints{}, err
	}
	if tx.FromTxID >= tx.ToTxID {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.InvalidTransaction, "settlement window must be non-empty")
	}
	sum, ok := domain.CheckedAdd(tx.OperatorShare, tx.ProtocolFee)
	if ok {
		sum, ok = domain.CheckedAdd(sum, tx.ReserveLocked)
	}
	if !ok || sum != tx.GrossSpent {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.SettlementConservationViolation, "operator_share + protocol_fee + reserve_locked != gross_spent")
	}
	key := tx.SettlementKey()
	if _, exists := s.Settlements[key]; exists {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.DuplicateSettlementWindow, "settlement window already exists")
	}
	for k, existing := range s.Settlements {
		if k.Owner != tx.Owner || k.ServiceID != tx.ServiceID {
			continue
		}
		if tx.FromTxID < existing.ToTxID && existing.FromTxID < tx.ToTxID {
			return domain.ApplyHints{}, ledgererr.New(ledgererr.DuplicateSettlementWindow, "settlement window overlaps an existing settlement")
		}
	}

	hints := domain.ApplyHints{NonceAccount: tx.Signer}
	if pv, ok := s.EffectivePolicy(tx.Owner, tx.ServiceID); ok {
		w := pv.DisputeWindowSecs
		hints.BoundDisputeWindowSecs = &w
	}
	return hints, nil
}

func validateFinalizeSettlement(s *state.State, tx domain.Transaction, ctx domain.Context, verifier signing.Verifier) (domain.ApplyHints, error) {
	if tx.Owner == "" || tx.ServiceID == "" || tx.WindowID == "" {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.InvalidTransaction, "finalize_settlement requires owner, service_id, window_id")
	}
	if tx.Signer != tx.Owner {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.InvalidTransaction, "signer must be owner")
	}
	if err := verifySignature(tx, ctx, verifier); err != nil {
		return domain.ApplyHints{}, err
	}
	if err := checkAndBindNonce(s, tx.Signer, tx); err != nil {
		return domain.ApplyHints{}, err
	}
	settlement, ok := s.Settlements[tx.SettlementKey()]
	if !ok {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.SettlementNotFound, "settlement not found")
	}
	if settlement.Status != domain.SettlementProposed {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.SettlementNotProposed, "settlement is not in Proposed status")
	}
	return domain.ApplyHints{NonceAccount: tx.Signer}, nil
}

func validateSubmitClaim(s *state.State, tx domain.Transaction, ctx domain.Context, verifier signing.Verifier) (domain.ApplyHints, error) {
	if tx.Operator == "" || tx.Owner == "" || tx.ServiceID == "" || tx.WindowID == "" || tx.ClaimAmount == 0 {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.InvalidTransaction, "submit_claim requires operator, owner, service_id, window_id, amount > 0")
	}
	if tx.Signer != tx.Operator {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.InvalidTransaction, "signer must be operator")
	}
	if err := verifySignature(tx, ctx, verifier); err != nil {
		return domain.ApplyHints{}, err
	}
	if err := checkAndBindNonce(s, tx.Signer, tx); err != nil {
		return domain.ApplyHints{}, err
	}
	key := tx.SettlementKey()
	settlement, ok := s.Settlements[key]
	if !ok {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.SettlementNotFound, "settlement not found")
	}
	if settlement.Status != domain.SettlementFinalized {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.SettlementNotFinalized, "settlement is not Finalized")
	}
	paid := domain.PaidClaims(s.ClaimsFor(key))
	payable, ok := domain.CheckedAdd(paid, tx.ClaimAmount)
	if !ok || payable > settlement.OperatorShare {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.ClaimAmountExceedsPayable, "claim amount exceeds payable operator share")
	}
	claimID := domain.NewClaimID(key, tx.Operator, tx.ClaimAmount, s.NextTxID)
	return domain.ApplyHints{NonceAccount: tx.Signer, ClaimID: claimID}, nil
}

func validatePayClaim(s *state.State, tx domain.Transaction, ctx domain.Context, verifier signing.Verifier) (domain.ApplyHints, error) {
	if tx.Operator == "" || tx.Owner == "" || tx.ServiceID == "" || tx.WindowID == "" {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.InvalidTransaction, "pay_claim requires operator, owner, service_id, window_id")
	}
	if tx.Signer != tx.Owner {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.InvalidTransaction, "signer must be owner")
	}
	if err := verifySignature(tx, ctx, verifier); err != nil {
		return domain.ApplyHints{}, err
	}
	if err := checkAndBindNonce(s, tx.Signer, tx); err != nil {
		return domain.ApplyHints{}, err
	}
	key := tx.SettlementKey()
	claim, found := findPendingClaim(s, key, tx.Operator)
	if !found {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.ClaimNotPending, "no pending claim for operator on this settlement")
	}
	return domain.ApplyHints{NonceAccount: tx.Signer, ClaimID: claim.ClaimID}, nil
}

func findPendingClaim(s *state.State, key domain.SettlementKey, operator domain.Address) (domain.Claim, bool) {
	for _, c := range s.ClaimsFor(key) {
		if c.Operator == operator && c.Status == domain.ClaimPending {
			return c, true
		}
	}
	return domain.Claim{}, false
}

func validateOpenDispute(s *state.State, tx domain.Transaction, ctx domain.Context, verifier signing.Verifier) (domain.ApplyHints, error) {
	if tx.Owner == "" || tx.ServiceID == "" || tx.WindowID == "" {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.InvalidTransaction, "open_dispute requires owner, service_id, window_id")
	}
	if tx.Signer != tx.Owner {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.InvalidTransaction, "signer must be owner")
	}
	if err := verifySignature(tx, ctx, verifier); err != nil {
		return domain.ApplyHints{}, err
	}
	if err := checkAndBindNonce(s, tx.Signer, tx); err != nil {
		return domain.ApplyHints{}, err
	}
	key := tx.SettlementKey()
	settlement, ok := s.Settlements[key]
	if !ok {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.SettlementNotFound, "settlement not found")
	}
	if settlement.Status != domain.SettlementFinalized {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.SettlementNotFinalized, "settlement is not Finalized")
	}
	if d, exists := s.Disputes[key]; exists && d.Status == domain.DisputeOpen {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.DisputeAlreadyOpen, "a dispute is already open for this settlement")
	}
	if settlement.DisputeWindowSecs != nil {
		if now, ok := ctx.RequireNow(); ok && settlement.FinalizedAt != nil {
			if now > *settlement.FinalizedAt+int64(*settlement.DisputeWindowSecs) {
				return domain.ApplyHints{}, ledgererr.New(ledgererr.DisputeWindowExpired, "dispute window has elapsed")
			}
		}
	}
	return domain.ApplyHints{NonceAccount: tx.Signer}, nil
}

func validateResolveDispute(s *state.State, tx domain.Transaction, ctx domain.Context, verifier signing.Verifier, replayer Replayer) (domain.ApplyHints, error) {
	if tx.Owner == "" || tx.ServiceID == "" || tx.WindowID == "" {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.InvalidTransaction, "resolve_dispute requires owner, service_id, window_id")
	}
	if tx.Signer != tx.Owner {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.InvalidTransaction, "signer must be owner")
	}
	if err := verifySignature(tx, ctx, verifier); err != nil {
		return domain.ApplyHints{}, err
	}
	if err := checkAndBindNonce(s, tx.Signer, tx); err != nil {
		return domain.ApplyHints{}, err
	}
	key := tx.SettlementKey()
	dispute, ok := s.Disputes[key]
	if !ok {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.DisputeNotFound, "dispute not found")
	}
	if dispute.Status != domain.DisputeOpen {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.DisputeNotOpen, "dispute is not Open")
	}
	if tx.EvidenceBundle == nil || len(tx.ReplayHash) == 0 || tx.ReplaySummary == nil {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.InvalidEvidenceBundle, "resolve_dispute requires an evidence bundle, replay_hash and replay_summary")
	}
	if err := tx.EvidenceBundle.ValidateShape(); err != nil {
		return domain.ApplyHints{}, ledgererr.Wrap(ledgererr.InvalidEvidenceBundle, "evidence bundle failed shape validation", err)
	}
	if !bytes.Equal(tx.EvidenceBundle.ReplayHash, tx.ReplayHash) || !tx.EvidenceBundle.ReplaySummary.Equal(*tx.ReplaySummary) {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.InvalidEvidenceBundle, "evidence bundle does not match top-level replay fields")
	}

	settlement, ok := s.Settlements[key]
	if !ok {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.SettlementNotFound, "settlement not found")
	}

	recomputedHash, recomputedSummary, err := replayer.ReplaySlice(key, settlement.FromTxID, settlement.ToTxID)
	if err != nil {
		return domain.ApplyHints{}, ledgererr.Wrap(ledgererr.StorageIO, "replay settlement window", err)
	}
	if !bytes.Equal(recomputedHash[:], tx.ReplayHash) {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.ReplayMismatch, "submitted replay_hash does not match recomputed replay")
	}
	if !recomputedSummary.Equal(*tx.ReplaySummary) {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.ReplayMismatch, "submitted replay_summary does not match recomputed replay")
	}
	if recomputedSummary.GrossSpent != settlement.GrossSpent ||
		recomputedSummary.OperatorShare != settlement.OperatorShare ||
		recomputedSummary.ProtocolFee != settlement.ProtocolFee ||
		recomputedSummary.ReserveLocked != settlement.ReserveLocked {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.ReplayMismatch, "replay totals do not match settlement totals")
	}

	return domain.ApplyHints{NonceAccount: tx.Signer}, nil
}

func validatePublishPolicyVersion(s *state.State, tx domain.Transaction, ctx domain.Context, verifier signing.Verifier) (domain.ApplyHints, error) {
	if tx.Scope == "" || tx.Version == 0 {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.InvalidPolicyParameters, "publish_policy_version requires scope and version > 0")
	}
	if tx.OperatorShareBps+tx.ProtocolFeeBps+tx.ReserveBps > domain.BpsTotal {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.InvalidPolicyParameters, "bps splits exceed 10000")
	}
	if err := verifySignature(tx, ctx, verifier); err != nil {
		return domain.ApplyHints{}, err
	}
	if err := checkAndBindNonce(s, tx.Signer, tx); err != nil {
		return domain.ApplyHints{}, err
	}
	latest, exists := s.LatestVersion(tx.Scope)
	if !exists {
		if tx.Version != 1 {
			return domain.ApplyHints{}, ledgererr.New(ledgererr.PolicyVersionConflict, "first policy version for a scope must be version 1")
		}
	} else if tx.Version <= latest {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.PolicyVersionConflict, "policy versions must strictly increase within a scope")
	}
	if tx.EffectiveFromTxID < s.NextTxID {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.RetroactivePolicyForbidden, "effective_from_tx_id must not be retroactive")
	}
	return domain.ApplyHints{NonceAccount: tx.Signer}, nil
}

func validateSupersedePolicyVersion(s *state.State, tx domain.Transaction, ctx domain.Context, verifier signing.Verifier) (domain.ApplyHints, error) {
	if tx.Scope == "" || tx.Version == 0 {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.InvalidPolicyParameters, "supersede_policy_version requires scope and version > 0")
	}
	if err := verifySignature(tx, ctx, verifier); err != nil {
		return domain.ApplyHints{}, err
	}
	if err := checkAndBindNonce(s, tx.Signer, tx); err != nil {
		return domain.ApplyHints{}, err
	}
	versions, ok := s.Policies[tx.Scope]
	if !ok {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.PolicyNotFound, "no policy versions for scope")
	}
	pv, ok := versions[tx.Version]
	if !ok {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.PolicyNotFound, "policy version not found")
	}
	if pv.Status != domain.PolicyPublished {
		return domain.ApplyHints{}, ledgererr.New(ledgererr.PolicyVersionConflict, "policy version is not Published")
	}
	return domain.ApplyHints{NonceAccount: tx.Signer}, nil
}
