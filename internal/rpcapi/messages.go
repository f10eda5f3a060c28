package rpcapi

import "github.com/usageledger/ledgerd/internal/domain"

// SubmitRequest wraps one transaction plus the Live-mode ambient fields
// the caller must supply, same shape as internal/api's HTTP submit body.
type SubmitRequest struct {
	Transaction domain.Transaction
	MaxAgeSecs  *uint64
}

// SubmitResponse carries back anything the engine derived that the caller
// could not have computed itself.
type SubmitResponse struct {
	ClaimID string
}

// GetSettlementRequest identifies one settlement.
type GetSettlementRequest struct {
	Key domain.SettlementKey
}

// GetSettlementResponse is empty-valued (zero Settlement, Found=false) when
// no settlement exists at the given key.
type GetSettlementResponse struct {
	Settlement domain.Settlement
	Found      bool
}

// GetClaimRequest identifies one claim by its derived id.
type GetClaimRequest struct {
	ClaimID string
}

type GetClaimResponse struct {
	Claim domain.Claim
	Found bool
}

// GetDisputeRequest identifies the dispute attached to a settlement.
type GetDisputeRequest struct {
	Key domain.SettlementKey
}

type GetDisputeResponse struct {
	Dispute domain.Dispute
	Found   bool
}
