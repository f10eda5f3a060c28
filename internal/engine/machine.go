package engine

import (
	"github.com/usageledger/ledgerd/internal/domain"
	"github.com/usageledger/ledgerd/internal/ledgererr"
	"github.com/usageledger/ledgerd/internal/signing"
	"github.com/usageledger/ledgerd/internal/state"
)

// StateMachine composes validate -> pre-hook -> apply -> post-hook against
// a pluggable Hook. A pre-hook veto yields rejection with no state change;
// post-hooks observe an already-committed transition and must not mutate
// the returned state.
type StateMachine struct {
	Verifier signing.Verifier
	Replayer Replayer
	Hook     Hook
}

// NewStateMachine builds a StateMachine with the given collaborators. A nil
// Hook is replaced with NoopHook.
func NewStateMachine(verifier signing.Verifier, replayer Replayer, hook Hook) *StateMachine {
	if hook == nil {
		hook = NoopHook{}
	}
	return &StateMachine{Verifier: verifier, Replayer: replayer, Hook: hook}
}

// Submit runs one transaction through the full pipeline and returns the
// resulting state, or rejects with no change to s.
func (m *StateMachine) Submit(s *state.State, tx domain.Transaction, ctx domain.Context) (*state.State, error) {
	next, _, err := m.SubmitWithHints(s, tx, ctx)
	return next, err
}

// SubmitWithHints is Submit plus the ApplyHints the validator computed,
// for callers (the HTTP API reporting a derived claim id) that need them
// without re-deriving anything themselves.
func (m *StateMachine) SubmitWithHints(s *state.State, tx domain.Transaction, ctx domain.Context) (*state.State, domain.ApplyHints, error) {
	hints, err := Validate(s, tx, ctx, m.Verifier, m.Replayer)
	if err != nil {
		return s, domain.ApplyHints{}, err
	}

	if err := m.runPreHook(tx); err != nil {
		return s, domain.ApplyHints{}, err
	}

	next := Apply(s, tx, hints, ctx)

	m.runPostHook(tx, next)

	return next, hints, nil
}

func (m *StateMachine) runPreHook(tx domain.Transaction) error {
	switch tx.Kind {
	case domain.KindOpenMeter:
		return wrapHookErr(m.Hook.BeforeMeterOpen(tx))
	case domain.KindConsume:
		return wrapHookErr(m.Hook.BeforeConsume(tx))
	case domain.KindCloseMeter:
		return wrapHookErr(m.Hook.BeforeMeterClose(tx))
	default:
		return nil
	}
}

func (m *StateMachine) runPostHook(tx domain.Transaction, next *state.State) {
	switch tx.Kind {
	case domain.KindOpenMeter:
		m.Hook.OnMeterOpened(tx, next)
	case domain.KindConsume:
		m.Hook.OnConsumeRecorded(tx, next)
	case domain.KindCloseMeter:
		m.Hook.OnMeterClosed(tx, next)
	}
}

func wrapHookErr(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*ledgererr.Error); ok {
		return err
	}
	return ledgererr.Wrap(ledgererr.InvalidTransaction, "rejected by hook", err)
}
