package domain

// Caveats bound a delegation proof's usage. A nil pointer means the cap is
// unset (unbounded) for that dimension.
type Caveats struct {
	MaxUnits *uint64
	MaxCost  *uint64
}

// DelegationProof is a capability granted by Issuer to Audience, scoped to
// a service and ability, valid over [IAT, Exp). CapabilityID is not stored
// on the proof itself; it is derived from the proof's canonical bytes by
// internal/evidence so that domain stays free of hashing concerns.
type DelegationProof struct {
	Issuer    Address
	Audience  Address
	ServiceID ServiceID
	Ability   string
	IAT       int64
	Exp       int64
	Caveats   Caveats
}

// CapabilityConsumption tracks cumulative usage against a delegation
// proof's caveats, keyed by CapabilityID in the state container.
type CapabilityConsumption struct {
	UnitsUsed uint64
	CostUsed  uint64
}
