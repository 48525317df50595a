package txn

import (
	"github.com/dmoshi/dimoshi-core/codec"
	"github.com/dmoshi/dimoshi-core/ledger"
	"github.com/dmoshi/dimoshi-core/orderbook"
	"github.com/dmoshi/dimoshi-core/store"
	"github.com/dmoshi/dimoshi-core/xcrypto"
)

// Bid posts a buy order for an asset at a declared price; matching asks
// are filled immediately and any unmatched amount rests on the bids
// ladder.
type Bid struct {
	Author          xcrypto.PublicKey
	Asset           ledger.TradeAsset
	Seed            uint64
	AuthorSignature xcrypto.Signature
}

const bidFixedSize = 32 + tradeAssetRecordSize + 8

// Payload encodes the signable fields of the transaction.
func (b *Bid) Payload() []byte {
	w := codec.NewWriter(bidFixedSize)
	w.PutFixed(0, b.Author[:])
	w.PutFixed(32, encodeTradeAssetRecord(b.Asset))
	w.PutU64(32+tradeAssetRecordSize, b.Seed)
	return w.Bytes()
}

// DecodeBidPayload parses the signable fields from their canonical
// encoding.
func DecodeBidPayload(buf []byte) (*Bid, error) {
	r, err := codec.NewReader(buf, bidFixedSize)
	if err != nil {
		return nil, err
	}
	b := &Bid{}
	copy(b.Author[:], r.Fixed(0, 32))
	asset, err := decodeTradeAssetRecord(r.Fixed(32, tradeAssetRecordSize))
	if err != nil {
		return nil, err
	}
	b.Asset = asset
	b.Seed = r.U64(32 + tradeAssetRecordSize)
	return b, nil
}

// Hash implements Transaction.
func (b *Bid) Hash() xcrypto.Hash {
	return wireHash(codec.MessageBid, b.Payload(), b.AuthorSignature)
}

// Verify implements Transaction.
func (b *Bid) Verify(cfg ledger.Configuration) bool {
	if !verifySignature(codec.MessageBid, b.Payload(), b.Author, b.AuthorSignature) {
		return false
	}
	return CheckPermission(cfg, ledger.PermBid, b.Author)
}

// Apply implements Transaction.
func (b *Bid) Apply(fork *store.Fork, cfg ledger.Configuration) error {
	asks, err := loadLadder(fork, string(store.BucketOrderBookAsks), b.Asset.Id)
	if err != nil {
		return err
	}
	bids, err := loadLadder(fork, string(store.BucketOrderBookBids), b.Asset.Id)
	if err != nil {
		return err
	}

	remainingAsks, fills, unfilled := orderbook.CloseBid(asks, b.Asset.Price, b.Asset.Amount)

	view := NewWalletView(fork)
	for _, fill := range fills {
		total := fill.Price * fill.Amount
		if err := view.TransferBalance(b.Author, fill.Wallet, total); err != nil {
			return err
		}
		if err := view.MoveBundle(fill.Wallet, b.Author, b.Asset.Id, fill.Amount); err != nil {
			return err
		}
	}
	view.Flush()

	if unfilled > 0 {
		bids = orderbook.AddBid(bids, b.Asset.Price, ledger.Offer{Wallet: b.Author, Amount: unfilled, TxHash: b.Hash()})
	}

	saveLadder(fork, string(store.BucketOrderBookAsks), b.Asset.Id, remainingAsks)
	saveLadder(fork, string(store.BucketOrderBookBids), b.Asset.Id, bids)
	return nil
}

func loadLadder(reader store.Reader, bucket string, id ledger.AssetId) ([]orderbook.Level, error) {
	raw, err := reader.Get(bucket, ledger.OrderBookKey(id))
	if err == store.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return orderbook.DecodeLevels(raw)
}

func saveLadder(fork *store.Fork, bucket string, id ledger.AssetId, levels []orderbook.Level) {
	fork.Set(bucket, ledger.OrderBookKey(id), orderbook.EncodeLevels(levels))
}
