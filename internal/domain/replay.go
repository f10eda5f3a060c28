package domain

import "fmt"

// ReplaySummary is the aggregate of settlement-relevant transitions over a
// tx range [FromTxID, ToTxID), computed by replaying that range.
type ReplaySummary struct {
	FromTxID uint64
	ToTxID   uint64
	TxCount  uint64

	GrossSpent    uint64
	OperatorShare uint64
	ProtocolFee   uint64
	ReserveLocked uint64
}

// Equal reports whether two summaries carry identical totals. Used to
// compare a submitted ResolveDispute summary against the one the node
// recomputes.
func (s ReplaySummary) Equal(o ReplaySummary) bool {
	return s.FromTxID == o.FromTxID &&
		s.ToTxID == o.ToTxID &&
		s.TxCount == o.TxCount &&
		s.GrossSpent == o.GrossSpent &&
		s.OperatorShare == o.OperatorShare &&
		s.ProtocolFee == o.ProtocolFee &&
		s.ReserveLocked == o.ReserveLocked
}

// SupportedSchemaVersion and SupportedReplayProtocolVersion are the only
// versions this build of the engine accepts. A bump to the canonical
// encoding (internal/evidence) must bump ReplayProtocolVersion.
const (
	SupportedSchemaVersion         = 1
	SupportedReplayProtocolVersion = 1
)

// EvidenceBundle is the evidence package submitted with a ResolveDispute
// transaction, binding a settlement to the replay that justifies a
// verdict.
type EvidenceBundle struct {
	SettlementKey SettlementKey
	FromTxID      uint64
	ToTxID        uint64
	EvidenceHash  []byte
	ReplayHash    []byte
	ReplaySummary ReplaySummary

	SchemaVersion         uint32
	ReplayProtocolVersion uint32
}

// ValidateShape checks the structural rules an evidence bundle must
// satisfy independent of any particular settlement's stored state.
func (b EvidenceBundle) ValidateShape() error {
	if b.FromTxID >= b.ToTxID {
		return fmt.Errorf("from_tx_id %d >= to_tx_id %d", b.FromTxID, b.ToTxID)
	}
	if b.ReplaySummary.TxCount != b.ToTxID-b.FromTxID {
		return fmt.Errorf("replay_summary.tx_count %d != to_tx_id-from_tx_id %d", b.ReplaySummary.TxCount, b.ToTxID-b.FromTxID)
	}
	if len(b.ReplayHash) == 0 {
		return fmt.Errorf("replay_hash is empty")
	}
	if b.SchemaVersion != SupportedSchemaVersion {
		return fmt.Errorf("unsupported schema_version %d", b.SchemaVersion)
	}
	if b.ReplayProtocolVersion != SupportedReplayProtocolVersion {
		return fmt.Errorf("unsupported replay_protocol_version %d", b.ReplayProtocolVersion)
	}
	return nil
}
