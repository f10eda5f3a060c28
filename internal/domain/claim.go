package domain

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// ClaimStatus is the lifecycle state of a Claim.
type ClaimStatus string

const (
	ClaimPending  ClaimStatus = "Pending"
	ClaimPaid     ClaimStatus = "Paid"
	ClaimRejected ClaimStatus = "Rejected"
)

// Claim is an operator's request to be paid out of a finalized
// settlement's operator share.
type Claim struct {
	ClaimID       string
	Operator      Address
	SettlementKey SettlementKey
	ClaimAmount   uint64
	Status        ClaimStatus
}

// claimNamespace scopes deterministic claim ids away from any other use of
// uuid.NewSHA1 in the process; it is an arbitrary fixed value, not a secret.
var claimNamespace = uuid.MustParse("6f6e8c1a-8f2e-4e8a-9b0e-2a6b6d6b6c7a")

// NewClaimID derives a stable claim identifier from the transaction that
// created it. The apply function must be a pure function of state and
// transaction, so the id cannot be sourced from a random generator or a
// clock; it is instead a deterministic v5 UUID (RFC 4122) over the
// settlement key, operator, claimed amount, and the assigning tx_id, which
// also makes it trivially reproducible by replay.
func NewClaimID(key SettlementKey, operator Address, amount uint64, txID uint64) string {
	buf := make([]byte, 0, 64)
	buf = append(buf, []byte(key.Owner)...)
	buf = append(buf, 0)
	buf = append(buf, []byte(key.ServiceID)...)
	buf = append(buf, 0)
	buf = append(buf, []byte(key.WindowID)...)
	buf = append(buf, 0)
	buf = append(buf, []byte(operator)...)
	buf = append(buf, 0)
	var amountBuf [8]byte
	binary.BigEndian.PutUint64(amountBuf[:], amount)
	buf = append(buf, amountBuf[:]...)
	var txBuf [8]byte
	binary.BigEndian.PutUint64(txBuf[:], txID)
	buf = append(buf, txBuf[:]...)
	return uuid.NewSHA1(claimNamespace, buf).String()
}

// ClaimKeyString returns a human-readable key for log messages and map
// indexing where a struct key is inconvenient.
func ClaimKeyString(key SettlementKey) string {
	return fmt.Sprintf("%s/%s/%s", key.Owner, key.ServiceID, key.WindowID)
}
