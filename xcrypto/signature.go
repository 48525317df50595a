package xcrypto

import (
	"crypto/ed25519"
	"fmt"
)

// Sign produces a detached Ed25519 signature over msg.
func Sign(priv PrivateKey, msg []byte) Signature {
	raw := ed25519.Sign(ed25519.PrivateKey(priv), msg)
	var sig Signature
	copy(sig[:], raw)
	return sig
}

// Verify reports whether sig is a valid Ed25519 signature over msg by the
// holder of pub. A malformed or zero-value key always fails verification
// rather than panicking.
func Verify(pub PublicKey, msg []byte, sig Signature) bool {
	return ed25519.Verify(ed25519.PublicKey(pub[:]), msg, sig[:])
}

// AssetId derives the 16-byte asset identifier from its defining fields:
// the truncated domain hash of meta_data‖creator, per the asset-identity
// rule (distinct creators or distinct metadata always yield distinct ids).
func AssetId(metaData []byte, creator PublicKey) [16]byte {
	full := DomainHashConcat(metaData, creator[:])
	var id [16]byte
	copy(id[:], full[:16])
	return id
}

// MustPublicKeyFromHex is PublicKeyFromHex for call sites (genesis loading,
// tests) that treat a malformed constant as a programmer error.
func MustPublicKeyFromHex(s string) PublicKey {
	pk, err := PublicKeyFromHex(s)
	if err != nil {
		panic(fmt.Sprintf("xcrypto: %v", err))
	}
	return pk
}
