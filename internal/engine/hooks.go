package engine

import (
	"github.com/usageledger/ledgerd/internal/domain"
	"github.com/usageledger/ledgerd/internal/state"
)

// Hook is the extension seam for metrics, audit trails, or out-of-band
// event publication. Before-hooks may veto a transaction after validation
// but before apply; after-hooks observe a committed transition and must
// not mutate state. Implementations may be stateful but must behave
// deterministically given the same transaction stream, since a hook that
// branches on anything but its inputs would make replay diverge from live
// execution.
type Hook interface {
	BeforeMeterOpen(tx domain.Transaction) error
	BeforeConsume(tx domain.Transaction) error
	BeforeMeterClose(tx domain.Transaction) error

	OnMeterOpened(tx domain.Transaction, next *state.State)
	OnConsumeRecorded(tx domain.Transaction, next *state.State)
	OnMeterClosed(tx domain.Transaction, next *state.State)
}

// NoopHook vetoes nothing and observes nothing. It is the default hook for
// callers that need no side-recording.
type NoopHook struct{}

func (NoopHook) BeforeMeterOpen(domain.Transaction) error  { return nil }
func (NoopHook) BeforeConsume(domain.Transaction) error    { return nil }
func (NoopHook) BeforeMeterClose(domain.Transaction) error { return nil }

func (NoopHook) OnMeterOpened(domain.Transaction, *state.State)     {}
func (NoopHook) OnConsumeRecorded(domain.Transaction, *state.State) {}
func (NoopHook) OnMeterClosed(domain.Transaction, *state.State)     {}
