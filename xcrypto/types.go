// Package xcrypto is the crypto façade: Ed25519 keys and signatures, and
// the domain hash function, all as fixed-size comparable array types so
// they can be used directly as map keys and struct fields without a
// separate hex-string encoding layer.
package xcrypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// PublicKey identifies a wallet. 32 bytes, Ed25519-class.
type PublicKey [32]byte

// Signature is a detached Ed25519 signature, 64 bytes.
type Signature [64]byte

// Hash is the 32-byte output of the domain hash function.
type Hash [32]byte

// PrivateKey is an Ed25519 private key (64 bytes: seed + public half).
type PrivateKey ed25519.PrivateKey

// String renders the key as lowercase hex, for logs and JSON-RPC output.
func (k PublicKey) String() string { return hex.EncodeToString(k[:]) }

// String renders the hash as lowercase hex.
func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// IsZero reports whether h is the all-zero hash (used as a genesis sentinel).
func (h Hash) IsZero() bool { return h == Hash{} }

// PublicKeyFromHex decodes a 64-char hex string into a PublicKey.
func PublicKeyFromHex(s string) (PublicKey, error) {
	var pk PublicKey
	b, err := hex.DecodeString(s)
	if err != nil {
		return pk, fmt.Errorf("invalid public key hex: %w", err)
	}
	if len(b) != len(pk) {
		return pk, fmt.Errorf("public key must be %d bytes, got %d", len(pk), len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

// HashFromHex decodes a 64-char hex string into a Hash.
func HashFromHex(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("invalid hash hex: %w", err)
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("hash must be %d bytes, got %d", len(h), len(b))
	}
	copy(h[:], b)
	return h, nil
}

// GenerateKeyPair creates a fresh Ed25519 key pair.
func GenerateKeyPair() (PrivateKey, PublicKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, PublicKey{}, err
	}
	var pk PublicKey
	copy(pk[:], pub)
	return PrivateKey(priv), pk, nil
}

// Public derives the public half of priv.
func (priv PrivateKey) Public() PublicKey {
	var pk PublicKey
	copy(pk[:], ed25519.PrivateKey(priv).Public().(ed25519.PublicKey))
	return pk
}
