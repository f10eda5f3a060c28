package domain

// DisputeStatus is the lifecycle state of a Dispute.
type DisputeStatus string

const (
	DisputeOpen      DisputeStatus = "Open"
	DisputeUpheld    DisputeStatus = "Upheld"
	DisputeDismissed DisputeStatus = "Dismissed"
)

// ResolutionAudit is recorded on a Dispute once it is resolved; it binds
// the resolution to the replay that justified it.
type ResolutionAudit struct {
	ReplayHash            []byte
	ReplaySummary         ReplaySummary
	ReplayProtocolVersion uint32
}

// Dispute is keyed by SettlementKey in the state container. Only one Open
// dispute may exist per settlement at a time; resolution is terminal.
type Dispute struct {
	Status          DisputeStatus
	OpenedAt        int64
	ResolutionAudit *ResolutionAudit
}
