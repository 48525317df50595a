package ledger

import "github.com/dmoshi/dimoshi-core/xcrypto"

// TxHash computes the stable transaction hash: the domain hash of the
// transaction's canonical encoded bytes, including its signature field.
func TxHash(encoded []byte) xcrypto.Hash {
	return xcrypto.DomainHash(encoded)
}
