package domain

import "fmt"

// PolicyStatus is the lifecycle state of a PolicyVersion.
type PolicyStatus string

const (
	PolicyPublished  PolicyStatus = "Published"
	PolicySuperseded PolicyStatus = "Superseded"
)

// GlobalScope is the scope key used when no owner- or service-specific
// policy applies.
const GlobalScope = "global"

// OwnerScope builds the scope key for an owner-wide policy override.
func OwnerScope(owner Address) string {
	return fmt.Sprintf("owner:%s", owner)
}

// OwnerServiceScope builds the scope key for an owner+service policy
// override, the most specific scope.
func OwnerServiceScope(owner Address, service ServiceID) string {
	return fmt.Sprintf("owner_service:%s:%s", owner, service)
}

// PolicyVersion pins the basis-point split and dispute window that applies
// to settlements proposed under its scope. Within a scope, versions
// strictly increase and published versions are immutable; only a newer
// version can supersede an older one.
type PolicyVersion struct {
	ScopeKey            string
	Version             uint64
	EffectiveFromTxID   uint64
	Status              PolicyStatus
	OperatorShareBps    uint64
	ProtocolFeeBps      uint64
	ReserveBps          uint64
	DisputeWindowSecs   uint64
}

// BpsTotal is the fixed denominator for basis-point splits: one part in
// ten thousand.
const BpsTotal = 10_000

// SplitGross computes the operator/protocol/reserve split of gross over
// this policy's bps values. protocol_fee and reserve round down; the
// residue is absorbed into operator_share so the three always sum exactly
// to gross.
func (p PolicyVersion) SplitGross(gross uint64) (operatorShare, protocolFee, reserveLocked uint64, ok bool) {
	protocolFee, ok = mulDivFloor(gross, p.ProtocolFeeBps, BpsTotal)
	if !ok {
		return 0, 0, 0, false
	}
	reserveLocked, ok = mulDivFloor(gross, p.ReserveBps, BpsTotal)
	if !ok {
		return 0, 0, 0, false
	}
	if protocolFee+reserveLocked > gross {
		return 0, 0, 0, false
	}
	operatorShare = gross - protocolFee - reserveLocked
	return operatorShare, protocolFee, reserveLocked, true
}

func mulDivFloor(value, bps, denom uint64) (uint64, bool) {
	product, ok := CheckedMul(value, bps)
	if !ok {
		return 0, false
	}
	return product / denom, true
}
