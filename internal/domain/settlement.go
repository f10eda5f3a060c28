package domain

// SettlementStatus is the lifecycle state of a Settlement.
type SettlementStatus string

const (
	SettlementProposed  SettlementStatus = "Proposed"
	SettlementFinalized SettlementStatus = "Finalized"
	SettlementDisputed  SettlementStatus = "Disputed"
	SettlementResolved  SettlementStatus = "Resolved"
)

// Settlement aggregates usage over a half-open transaction window
// [FromTxID, ToTxID) for one (owner, service_id) pair. OperatorShare +
// ProtocolFee + ReserveLocked must always equal GrossSpent.
type Settlement struct {
	Status SettlementStatus

	FromTxID uint64
	ToTxID   uint64

	GrossSpent    uint64
	OperatorShare uint64
	ProtocolFee   uint64
	ReserveLocked uint64

	EvidenceHash []byte

	FinalizedAt       *int64
	DisputeWindowSecs *uint64

	ReplayHash    []byte
	ReplaySummary *ReplaySummary

	SchemaVersion uint32
}

// PaidClaims returns the sum of amounts already paid against this
// settlement, given the set of claims keyed against it.
func PaidClaims(claims []Claim) uint64 {
	var total uint64
	for _, c := range claims {
		if c.Status == ClaimPaid {
			total += c.ClaimAmount
		}
	}
	return total
}
