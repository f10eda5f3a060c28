// Package signing provides the signature verifier the engine consumes.
// Per the core/external boundary, the engine only ever sees the Verifier
// interface; concrete cryptography (or its absence, in Replay mode) is
// supplied by the caller.
package signing

import "github.com/usageledger/ledgerd/internal/domain"

// Verifier checks whether a signature over a canonical payload was
// produced by the named signer. Implementations must be safe for
// concurrent read-only use; the engine invokes Verify at most once per
// transaction and never mutates verifier state.
type Verifier interface {
	Verify(signer domain.Address, payload []byte, signature []byte) bool
}

// NoopVerifier accepts every signature unconditionally. It is the
// Verifier the replay service installs, since legacy or historical log
// entries may carry no usable signature and replay must never depend on
// cryptography to reproduce state.
type NoopVerifier struct{}

func (NoopVerifier) Verify(domain.Address, []byte, []byte) bool { return true }
