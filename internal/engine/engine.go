// Package engine implements the transaction engine: the pure validate and
// apply functions, the state machine that composes them with a pluggable
// hook, and the hook interface itself.
package engine

import (
	"github.com/usageledger/ledgerd/internal/domain"
	"github.com/usageledger/ledgerd/internal/evidence"
)

// Replayer recomputes the replay hash and summary over a committed tx
// range. Validate needs it only for ResolveDispute, where a submitted
// evidence bundle must be checked against a fresh replay of the
// settlement's bound window. It is implemented by internal/replay and
// injected here rather than imported, so the dependency runs
// replay -> engine and not the reverse.
type Replayer interface {
	ReplaySlice(key domain.SettlementKey, fromTxID, toTxID uint64) (evidence.Hash, domain.ReplaySummary, error)
}
