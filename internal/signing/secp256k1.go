package signing

import (
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	cryptocommon "github.com/usageledger/ledgerd/internal/crypto/common"
	"github.com/usageledger/ledgerd/internal/domain"
)

// Secp256k1Verifier checks live signatures against a registry of known
// signer public keys. Addresses are registered explicitly rather than
// derived implicitly from a signature, since the engine never trusts a
// signature to assert its own signer identity.
type Secp256k1Verifier struct {
	mu   sync.RWMutex
	keys map[domain.Address]*secp256k1.PublicKey
}

// NewSecp256k1Verifier returns an empty verifier; call RegisterKey for
// every address it must be able to check.
func NewSecp256k1Verifier() *Secp256k1Verifier {
	return &Secp256k1Verifier{keys: make(map[domain.Address]*secp256k1.PublicKey)}
}

// RegisterKey associates an address with the compressed public key that
// must have produced any signature attributed to it.
func (v *Secp256k1Verifier) RegisterKey(addr domain.Address, compressedPubKey []byte) error {
	pub, err := secp256k1.ParsePubKey(compressedPubKey)
	if err != nil {
		return fmt.Errorf("parse public key for %s: %w", addr, err)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.keys[addr] = pub
	return nil
}

// Verify reports whether signature is a valid DER-encoded secp256k1/ECDSA
// signature over Sha512Half(payload) by the key registered to signer.
func (v *Secp256k1Verifier) Verify(signer domain.Address, payload []byte, signature []byte) bool {
	v.mu.RLock()
	pub, ok := v.keys[signer]
	v.mu.RUnlock()
	if !ok {
		return false
	}
	sig, err := ecdsa.ParseDERSignature(signature)
	if err != nil {
		return false
	}
	hash := cryptocommon.Sha512Half(payload)
	return sig.Verify(hash[:], pub)
}

// KeyPair is a convenience bundle for test fixtures; the CLI has no
// key-generation command.
type KeyPair struct {
	Address    domain.Address
	PrivateKey *secp256k1.PrivateKey
	PublicKey  *secp256k1.PublicKey
}

// GenerateKeyPair creates a fresh secp256k1 key pair and derives its
// address via DeriveAddress.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	pub := priv.PubKey()
	return &KeyPair{
		Address:    DeriveAddress(pub.SerializeCompressed()),
		PrivateKey: priv,
		PublicKey:  pub,
	}, nil
}

// Sign produces a DER-encoded signature over Sha512Half(payload), for use
// by test fixtures. The engine itself never signs; it only verifies.
func (kp *KeyPair) Sign(payload []byte) []byte {
	hash := cryptocommon.Sha512Half(payload)
	sig := ecdsa.Sign(kp.PrivateKey, hash[:])
	return sig.Serialize()
}

// PublicKeyHex returns the compressed public key as a lower-case hex
// string, suitable for RegisterKey callers reading from config.
func (kp *KeyPair) PublicKeyHex() string {
	return hex.EncodeToString(kp.PublicKey.SerializeCompressed())
}
