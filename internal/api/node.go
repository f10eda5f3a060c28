// Package api exposes the ledger over HTTP: transaction submission and
// read-only queries over settlements, claims, disputes, meters and
// accounts, grounded on the teacher's rpc package but scoped to this
// domain's entities instead of XRPL ledger/account/tx objects. Settlement
// lifecycle transitions are also published over a websocket event feed
// (ws.go): Node.Submit hands each committed transition to the Publisher,
// so subscribers learn of them without polling.
package api

import (
	"context"
	"fmt"
	"sync"

	"github.com/usageledger/ledgerd/internal/domain"
	"github.com/usageledger/ledgerd/internal/engine"
	"github.com/usageledger/ledgerd/internal/state"
	"github.com/usageledger/ledgerd/internal/storage"
)

// Node owns the live in-memory state and the pipeline that mutates it: one
// transaction at a time, serialized by mu, appended to the log only after
// it is applied so a crash mid-append never leaves the in-memory state
// ahead of the log.
type Node struct {
	mu        sync.RWMutex
	state     *state.State
	machine   *engine.StateMachine
	store     *storage.Store
	publisher *Publisher
}

// NewNode wraps an already-replayed state with the machine and store that
// will drive it forward. Callers typically build initial via
// replay.Service.ToTip at startup. publisher may be nil, in which case
// settlement transitions are simply not broadcast.
func NewNode(initial *state.State, machine *engine.StateMachine, store *storage.Store, publisher *Publisher) *Node {
	return &Node{state: initial, machine: machine, store: store, publisher: publisher}
}

// Submit validates and applies tx against the current state, appends it to
// the log only on success, and returns the hints the engine computed (so
// callers, e.g. the HTTP handler, can report the derived claim id back to
// the caller without a follow-up query).
func (n *Node) Submit(ctx context.Context, tx domain.Transaction, txCtx domain.Context) (domain.ApplyHints, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	next, hints, err := n.machine.SubmitWithHints(n.state, tx, txCtx)
	if err != nil {
		return domain.ApplyHints{}, err
	}

	if _, err := n.store.Log.AppendTx(ctx, tx); err != nil {
		return domain.ApplyHints{}, fmt.Errorf("api: append to log: %w", err)
	}

	n.state = next
	n.publishTransition(tx, next)
	return hints, nil
}

// publishTransition broadcasts a SettlementEvent for the four transaction
// kinds that move a settlement through its lifecycle. It reads the fresh
// status back out of next rather than guessing it from tx.Kind, since
// ResolveDispute's resulting status depends on tx.Verdict.
func (n *Node) publishTransition(tx domain.Transaction, next *state.State) {
	if n.publisher == nil {
		return
	}
	switch tx.Kind {
	case domain.KindProposeSettlement, domain.KindFinalizeSettlement, domain.KindOpenDispute, domain.KindResolveDispute:
	default:
		return
	}
	key := tx.SettlementKey()
	settlement, ok := next.Settlements[key]
	if !ok {
		return
	}
	n.publisher.PublishSettlementTransition(string(tx.Kind), key, settlement.Status)
}

// Snapshot persists the current state so the next restart doesn't replay
// the whole log from genesis.
func (n *Node) Snapshot() error {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.store.Snapshot.PersistState(n.state, n.store.Log.NextTxID())
}

// View runs fn against a read-only snapshot of the current state. fn must
// not retain or mutate the pointer past the call.
func (n *Node) View(fn func(*state.State)) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	fn(n.state)
}
