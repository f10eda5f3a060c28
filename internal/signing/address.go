package signing

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/decred/dcrd/crypto/ripemd160"

	"github.com/usageledger/ledgerd/internal/domain"
)

// DeriveAddress derives an Address from a compressed public key using the
// standard hash160 construction (ripemd160(sha256(pubkey))), rendered as a
// hex-prefixed string. This is a demo/fixture convenience used by
// GenerateKeyPair; the engine itself never derives or compares
// addresses by key, only by the wire-supplied Address value.
func DeriveAddress(compressedPubKey []byte) domain.Address {
	sha := sha256.Sum256(compressedPubKey)
	r := ripemd160.New()
	r.Write(sha[:])
	hash160 := r.Sum(nil)
	return domain.Address("0x" + strings.ToUpper(hex.EncodeToString(hash160)))
}
