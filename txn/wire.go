package txn

import (
	"github.com/dmoshi/dimoshi-core/codec"
	"github.com/dmoshi/dimoshi-core/ledger"
	"github.com/dmoshi/dimoshi-core/xcrypto"
)

// NetworkID is the fixed wire network id this release validates messages
// against. Configurable per deployment would belong to the genesis/config
// layer; the core only needs one consistent value to check against.
const NetworkID uint8 = 1

// wireHash computes the transaction hash: the domain hash of the complete
// wire message (header, payload, and trailing signature), per the
// transaction-hash rule in the domain model.
func wireHash(messageType codec.MessageType, payload []byte, sig xcrypto.Signature) xcrypto.Hash {
	wire := codec.EncodeMessage(NetworkID, uint16(messageType), payload, sig)
	return ledger.TxHash(wire)
}

// verifySignature checks sig against payload under the fixed wire framing
// for messageType, using pub as the signer.
func verifySignature(messageType codec.MessageType, payload []byte, pub xcrypto.PublicKey, sig xcrypto.Signature) bool {
	signed := codec.SigningBytes(NetworkID, uint16(messageType), payload)
	return xcrypto.Verify(pub, signed, sig)
}
