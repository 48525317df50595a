package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/dmoshi/dimoshi-core/xcrypto"
)

// Offer is one entry in an order-book price level: the wallet that posted
// it, the remaining amount, and the transaction hash that created it.
// Identity for ordering purposes is position (insertion order), not these
// fields — two offers from the same wallet and tx hash are never merged.
type Offer struct {
	Wallet xcrypto.PublicKey
	Amount uint64
	TxHash xcrypto.Hash
}

const offerRecordSize = 32 + 8 + 32

// EncodeOffer produces the canonical encoding of an Offer.
func EncodeOffer(o Offer) []byte {
	out := make([]byte, offerRecordSize)
	copy(out[0:32], o.Wallet[:])
	binary.LittleEndian.PutUint64(out[32:40], o.Amount)
	copy(out[40:72], o.TxHash[:])
	return out
}

// DecodeOffer parses an Offer from its canonical encoding.
func DecodeOffer(buf []byte) (Offer, error) {
	if len(buf) != offerRecordSize {
		return Offer{}, fmt.Errorf("ledger: malformed offer record")
	}
	var o Offer
	copy(o.Wallet[:], buf[0:32])
	o.Amount = binary.LittleEndian.Uint64(buf[32:40])
	copy(o.TxHash[:], buf[40:72])
	return o, nil
}

// CloseOffer represents a filled counter-party returned by a matching pass:
// the wallet whose resting offer was filled, the price it was filled at,
// and the amount filled.
type CloseOffer struct {
	Wallet xcrypto.PublicKey
	Price  uint64
	Amount uint64
}
