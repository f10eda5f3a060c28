// Package evidence implements the single canonical byte serialization the
// system uses both as a signature payload and as replay_hash input, plus
// the hashing and bundle-shape checks built on top of it. Any change to
// the encoding here is a breaking protocol change and must be paired with
// a bump of domain.SupportedReplayProtocolVersion.
package evidence

import (
	"bytes"

	"github.com/ugorji/go/codec"
)

// cborHandle encodes structs positionally (declared field order, not a
// field-name map) and sorts any map keys it does encounter, so the output
// never depends on map iteration order or insertion history.
var cborHandle = newCborHandle()

func newCborHandle() *codec.CborHandle {
	h := &codec.CborHandle{}
	h.Canonical = true
	h.StructToArray = true
	return h
}

// CanonicalBytes encodes v using the fixed canonical CBOR handle.
func CanonicalBytes(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := codec.NewEncoder(&buf, cborHandle)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeCanonical decodes b, previously produced by CanonicalBytes, into v.
// It uses the same struct-to-array handle, so v must be the same
// concrete type the bytes were encoded from.
func DecodeCanonical(b []byte, v interface{}) error {
	dec := codec.NewDecoder(bytes.NewReader(b), cborHandle)
	return dec.Decode(v)
}
