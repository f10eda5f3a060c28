package domain

// Meter is a per-(owner, service_id) usage ledger. TotalUnits and
// TotalSpent are non-decreasing across the meter's lifetime, even across a
// close/reopen cycle; LockedDeposit is returned to the owner on close.
type Meter struct {
	TotalUnits    uint64
	TotalSpent    uint64
	LockedDeposit uint64
	Active        bool
}
