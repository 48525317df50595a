package xcrypto

import "crypto/sha256"

// DomainHash computes the SHA-256 domain hash used throughout the ledger:
// transaction ids, asset ids (before truncation), and block/content digests.
func DomainHash(data []byte) Hash {
	return Hash(sha256.Sum256(data))
}

// DomainHashConcat hashes the concatenation of parts without allocating an
// intermediate joined slice for the common multi-field case (e.g. asset id
// derivation from meta_data‖creator).
func DomainHashConcat(parts ...[]byte) Hash {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}
