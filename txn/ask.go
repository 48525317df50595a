package txn

import (
	"github.com/dmoshi/dimoshi-core/codec"
	"github.com/dmoshi/dimoshi-core/ledger"
	"github.com/dmoshi/dimoshi-core/orderbook"
	"github.com/dmoshi/dimoshi-core/store"
	"github.com/dmoshi/dimoshi-core/xcrypto"
)

// Ask posts a sell order for an asset at a declared price; matching bids
// are filled immediately and any unmatched amount rests on the asks
// ladder.
type Ask struct {
	Author          xcrypto.PublicKey
	Asset           ledger.TradeAsset
	Seed            uint64
	AuthorSignature xcrypto.Signature
}

const askFixedSize = 32 + tradeAssetRecordSize + 8

// Payload encodes the signable fields of the transaction.
func (a *Ask) Payload() []byte {
	w := codec.NewWriter(askFixedSize)
	w.PutFixed(0, a.Author[:])
	w.PutFixed(32, encodeTradeAssetRecord(a.Asset))
	w.PutU64(32+tradeAssetRecordSize, a.Seed)
	return w.Bytes()
}

// DecodeAskPayload parses the signable fields from their canonical
// encoding.
func DecodeAskPayload(buf []byte) (*Ask, error) {
	r, err := codec.NewReader(buf, askFixedSize)
	if err != nil {
		return nil, err
	}
	a := &Ask{}
	copy(a.Author[:], r.Fixed(0, 32))
	asset, err := decodeTradeAssetRecord(r.Fixed(32, tradeAssetRecordSize))
	if err != nil {
		return nil, err
	}
	a.Asset = asset
	a.Seed = r.U64(32 + tradeAssetRecordSize)
	return a, nil
}

// Hash implements Transaction.
func (a *Ask) Hash() xcrypto.Hash {
	return wireHash(codec.MessageAsk, a.Payload(), a.AuthorSignature)
}

// Verify implements Transaction.
func (a *Ask) Verify(cfg ledger.Configuration) bool {
	if !verifySignature(codec.MessageAsk, a.Payload(), a.Author, a.AuthorSignature) {
		return false
	}
	return CheckPermission(cfg, ledger.PermAsk, a.Author)
}

// Apply implements Transaction.
func (a *Ask) Apply(fork *store.Fork, cfg ledger.Configuration) error {
	bids, err := loadLadder(fork, string(store.BucketOrderBookBids), a.Asset.Id)
	if err != nil {
		return err
	}
	asks, err := loadLadder(fork, string(store.BucketOrderBookAsks), a.Asset.Id)
	if err != nil {
		return err
	}

	remainingBids, fills, unfilled := orderbook.CloseAsk(bids, a.Asset.Price, a.Asset.Amount)

	view := NewWalletView(fork)
	for _, fill := range fills {
		total := fill.Price * fill.Amount
		if err := view.TransferBalance(fill.Wallet, a.Author, total); err != nil {
			return err
		}
		if err := view.MoveBundle(a.Author, fill.Wallet, a.Asset.Id, fill.Amount); err != nil {
			return err
		}
	}
	view.Flush()

	if unfilled > 0 {
		asks = orderbook.AddAsk(asks, a.Asset.Price, ledger.Offer{Wallet: a.Author, Amount: unfilled, TxHash: a.Hash()})
	}

	saveLadder(fork, string(store.BucketOrderBookBids), a.Asset.Id, remainingBids)
	saveLadder(fork, string(store.BucketOrderBookAsks), a.Asset.Id, asks)
	return nil
}
