package domain

// TxKind tags the transaction payload variant.
type TxKind string

const (
	KindMint                    TxKind = "Mint"
	KindOpenMeter               TxKind = "OpenMeter"
	KindConsume                 TxKind = "Consume"
	KindCloseMeter              TxKind = "CloseMeter"
	KindRevokeDelegation        TxKind = "RevokeDelegation"
	KindProposeSettlement       TxKind = "ProposeSettlement"
	KindFinalizeSettlement      TxKind = "FinalizeSettlement"
	KindSubmitClaim             TxKind = "SubmitClaim"
	KindPayClaim                TxKind = "PayClaim"
	KindOpenDispute             TxKind = "OpenDispute"
	KindResolveDispute          TxKind = "ResolveDispute"
	KindPublishPolicyVersion    TxKind = "PublishPolicyVersion"
	KindSupersedePolicyVersion  TxKind = "SupersedePolicyVersion"
)

// DefaultPayloadVersion is used by Mint, OpenMeter, CloseMeter,
// RevokeDelegation, settlement/claim/dispute/policy transactions, and
// direct (non-delegated) Consume.
const DefaultPayloadVersion = 1

// DelegatedConsumePayloadVersion is required for any Consume transaction
// carrying a DelegationProof.
const DelegatedConsumePayloadVersion = 2

// Transaction is the canonical wire record. Its fields are declared in a
// fixed order so that canonical encoding (internal/evidence) never depends
// on which Kind is set; every variant simply leaves its irrelevant fields
// at their zero value. This single flat shape is what both the signature
// payload and replay_hash input serialize.
type Transaction struct {
	Signer         Address
	Nonce          uint64
	PayloadVersion uint32
	Kind           TxKind
	Signature      []byte

	NonceAccount    Address
	ValidAt         *int64
	DelegationProof *DelegationProof

	// Mint
	To     Address
	Amount uint64

	// OpenMeter / Consume / CloseMeter / settlement & claim variants
	Owner     Address
	ServiceID ServiceID

	// OpenMeter
	Deposit uint64

	// Consume
	Units   uint64
	Pricing Pricing

	// RevokeDelegation
	CapabilityID CapabilityID

	// ProposeSettlement / FinalizeSettlement / SubmitClaim / PayClaim /
	// OpenDispute / ResolveDispute
	WindowID string

	// ProposeSettlement
	FromTxID      uint64
	ToTxID        uint64
	GrossSpent    uint64
	OperatorShare uint64
	ProtocolFee   uint64
	ReserveLocked uint64
	EvidenceHash  []byte

	// SubmitClaim / PayClaim
	Operator    Address
	ClaimAmount uint64

	// OpenDispute
	ReasonCode string

	// ResolveDispute
	Verdict         string
	ReplaySummary   *ReplaySummary
	ReplayHash      []byte
	EvidenceBundle  *EvidenceBundle

	// PublishPolicyVersion / SupersedePolicyVersion
	Scope             string
	Version           uint64
	EffectiveFromTxID uint64
	OperatorShareBps  uint64
	ProtocolFeeBps    uint64
	ReserveBps        uint64
	DisputeWindowSecs uint64
}

// SettlementKey builds the settlement key a transaction refers to, for
// variants that address one.
func (t Transaction) SettlementKey() SettlementKey {
	return SettlementKey{Owner: t.Owner, ServiceID: t.ServiceID, WindowID: t.WindowID}
}

// MeterKey builds the meter key a transaction refers to, for variants that
// address one.
func (t Transaction) MeterKey() MeterKey {
	return MeterKey{Owner: t.Owner, ServiceID: t.ServiceID}
}

// ApplyHints carries quantities the validator already computed so the
// applier never recomputes (and cannot disagree with) them.
type ApplyHints struct {
	// Cost is the computed Consume cost (units * unit_price, or fixed_cost).
	Cost uint64

	// NonceAccount is the resolved account whose nonce is checked and
	// incremented: the signer for direct operations, the owner for
	// delegated consume.
	NonceAccount Address

	// BoundDisputeWindowSecs is the dispute_window_secs copied from the
	// most specific effective PolicyVersion at propose time (scope
	// precedence owner_service > owner > global), nil if no policy is in
	// effect; a policy whose window is 0 yields a pointer to 0.
	// operator_share/protocol_fee/reserve_locked are taken
	// directly from the transaction, validated for conservation; the
	// policy's bps fields are not re-derived onto the settlement.
	BoundDisputeWindowSecs *uint64

	// ClaimID is the deterministically derived id assigned to a new claim
	// by SubmitClaim.
	ClaimID string
}
