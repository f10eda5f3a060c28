package evidence

import (
	"bytes"
	"encoding/hex"

	cryptocommon "github.com/usageledger/ledgerd/internal/crypto/common"
	"github.com/usageledger/ledgerd/internal/domain"
)

// Hash is the fixed 256-bit hash the spec calls H: the first 32 bytes of a
// SHA-512 digest.
type Hash = [32]byte

// HashBytes computes H(b).
func HashBytes(b []byte) Hash {
	return cryptocommon.Sha512Half(b)
}

// TransactionBytes returns the canonical bytes of a transaction with its
// Signature field cleared. Clearing the signature makes this the same
// byte string whether it is used before signing (the signing payload) or
// after (the replay_hash input over an already-signed log entry), so a
// single function serves both roles exactly as specified.
func TransactionBytes(tx domain.Transaction) ([]byte, error) {
	tx.Signature = nil
	return CanonicalBytes(tx)
}

// SigningPayload is an alias for TransactionBytes kept for call-site
// clarity at the point a signature is produced or checked.
func SigningPayload(tx domain.Transaction) ([]byte, error) {
	return TransactionBytes(tx)
}

// ReplaySlice computes H(canonical_bytes(tx_i) for i in the slice),
// concatenating each transaction's canonical bytes before hashing once.
func ReplaySlice(txs []domain.Transaction) (Hash, error) {
	var buf bytes.Buffer
	for _, tx := range txs {
		b, err := TransactionBytes(tx)
		if err != nil {
			return Hash{}, err
		}
		buf.Write(b)
	}
	return HashBytes(buf.Bytes()), nil
}

// CapabilityID derives the stable capability_id of a delegation proof from
// its canonical bytes.
func CapabilityID(proof domain.DelegationProof) (domain.CapabilityID, error) {
	b, err := CanonicalBytes(proof)
	if err != nil {
		return "", err
	}
	h := HashBytes(b)
	return domain.CapabilityID(hex.EncodeToString(h[:])), nil
}
