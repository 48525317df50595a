package txn

import (
	"github.com/dmoshi/dimoshi-core/codec"
	"github.com/dmoshi/dimoshi-core/internal/feeshare"
	"github.com/dmoshi/dimoshi-core/ledger"
	"github.com/dmoshi/dimoshi-core/store"
	"github.com/dmoshi/dimoshi-core/xcrypto"
)

func tradeSelector(f ledger.Fees) ledger.Fee { return f.Trade }

const tradeAssetRecordSize = 16 + 8 + 8

func encodeTradeAssetRecord(a ledger.TradeAsset) []byte {
	out := make([]byte, tradeAssetRecordSize)
	copy(out[0:16], a.Id[:])
	putU64(out[16:24], a.Amount)
	putU64(out[24:32], a.Price)
	return out
}

func decodeTradeAssetRecord(buf []byte) (ledger.TradeAsset, error) {
	if len(buf) != tradeAssetRecordSize {
		return ledger.TradeAsset{}, codec.ErrSegmentOutOfBounds
	}
	var a ledger.TradeAsset
	copy(a.Id[:], buf[0:16])
	a.Amount = getU64(buf[16:24])
	a.Price = getU64(buf[24:32])
	return a, nil
}

// TradeOffer is the co-signed inner record of a Trade transaction: the
// seller's listed assets and unit prices, and the strategy governing who
// pays the service and third-party fees.
type TradeOffer struct {
	Buyer    xcrypto.PublicKey
	Seller   xcrypto.PublicKey
	Assets   []ledger.TradeAsset
	Strategy ledger.FeeStrategy
}

const tradeOfferFixedSize = 32 + 32 + 8 + 1

// OfferRawBytes produces the canonical, self-contained encoding of the
// offer, independent of any outer message framing.
func (o *TradeOffer) OfferRawBytes() []byte {
	w := codec.NewWriter(tradeOfferFixedSize)
	w.PutFixed(0, o.Buyer[:])
	w.PutFixed(32, o.Seller[:])
	w.PutRecords(64, len(o.Assets), func(i int) []byte { return encodeTradeAssetRecord(o.Assets[i]) })
	w.PutU8(72, uint8(o.Strategy))
	return w.Bytes()
}

// DecodeTradeOffer parses a TradeOffer from its raw bytes.
func DecodeTradeOffer(buf []byte) (*TradeOffer, error) {
	r, err := codec.NewReader(buf, tradeOfferFixedSize)
	if err != nil {
		return nil, err
	}
	o := &TradeOffer{}
	copy(o.Buyer[:], r.Fixed(0, 32))
	copy(o.Seller[:], r.Fixed(32, 32))
	if _, err := r.Records(64, tradeAssetRecordSize, func(elem []byte) error {
		a, err := decodeTradeAssetRecord(elem)
		if err != nil {
			return err
		}
		o.Assets = append(o.Assets, a)
		return nil
	}); err != nil {
		return nil, err
	}
	o.Strategy = ledger.FeeStrategy(r.U8(72))
	return o, nil
}

// Trade is a two-party asset sale authored by the buyer, with the seller's
// listing co-signed via the embedded TradeOffer.
type Trade struct {
	Offer           TradeOffer
	Seed            uint64
	SellerSignature xcrypto.Signature
	DataInfo        string
	BuyerSignature  xcrypto.Signature
}

const tradeFixedSize = 8 + 64 + 8 + 8

// Payload encodes the signable fields of the outer message (author =
// buyer).
func (t *Trade) Payload() []byte {
	w := codec.NewWriter(tradeFixedSize)
	w.PutU64(0, t.Seed)
	w.PutFixed(8, t.SellerSignature[:])
	w.PutString(72, t.DataInfo)
	w.PutBytes(80, t.Offer.OfferRawBytes())
	return w.Bytes()
}

// DecodeTradePayload parses the signable fields from their canonical
// encoding.
func DecodeTradePayload(buf []byte) (*Trade, error) {
	r, err := codec.NewReader(buf, tradeFixedSize)
	if err != nil {
		return nil, err
	}
	t := &Trade{}
	t.Seed = r.U64(0)
	copy(t.SellerSignature[:], r.Fixed(8, 64))
	dataInfo, err := r.String(72)
	if err != nil {
		return nil, err
	}
	t.DataInfo = dataInfo
	offerBytes, err := r.Bytes(80)
	if err != nil {
		return nil, err
	}
	offer, err := DecodeTradeOffer(offerBytes)
	if err != nil {
		return nil, err
	}
	t.Offer = *offer
	return t, nil
}

// Hash implements Transaction.
func (t *Trade) Hash() xcrypto.Hash {
	return wireHash(codec.MessageTrade, t.Payload(), t.BuyerSignature)
}

// Verify implements Transaction. The buyer is treated as the fee-strategy
// sender and the seller as the recipient: the buyer authors the outer
// message and initiates the trade.
func (t *Trade) Verify(cfg ledger.Configuration) bool {
	o := &t.Offer
	if !Distinct(o.Buyer, o.Seller) {
		return false
	}
	if o.Strategy == ledger.StrategyIntermediary || !o.Strategy.Valid() {
		return false
	}
	if !xcrypto.Verify(o.Seller, o.OfferRawBytes(), t.SellerSignature) {
		return false
	}
	if !verifySignature(codec.MessageTrade, t.Payload(), o.Buyer, t.BuyerSignature) {
		return false
	}
	return CheckPermission(cfg, ledger.PermTrade, o.Buyer, o.Seller)
}

// Apply implements Transaction.
func (t *Trade) Apply(fork *store.Fork, cfg ledger.Configuration) error {
	o := &t.Offer
	view := NewWalletView(fork)
	principals := feeshare.Principals{Sender: o.Buyer, Recipient: o.Seller}

	serviceFeeOwed := feeshare.Split(feeshare.Line{Creator: cfg.Fees.GenesisWallet, Owed: cfg.Fees.Trade}, o.Strategy, principals)
	for payer, amount := range serviceFeeOwed {
		if err := view.TransferBalance(payer, cfg.Fees.GenesisWallet, amount); err != nil {
			return err
		}
	}
	view.Flush()

	checkpoint := fork.Checkpoint()
	if err := t.settle(fork, view, principals); err != nil {
		if rbErr := fork.RollbackTo(checkpoint); rbErr != nil {
			return rbErr
		}
		return err
	}
	return nil
}

func (t *Trade) settle(fork *store.Fork, view *WalletView, principals feeshare.Principals) error {
	o := &t.Offer
	bundles := make([]feeshare.AssetAmount, len(o.Assets))
	for i, a := range o.Assets {
		bundles[i] = feeshare.AssetAmount{Id: a.Id, Amount: a.Amount}
	}
	lines, err := feeshare.ComputeLines(fork, bundles, tradeSelector)
	if err != nil {
		return err
	}
	for _, line := range lines {
		owed := feeshare.Split(line, o.Strategy, principals)
		for payer, amount := range owed {
			if err := view.TransferBalance(payer, line.Creator, amount); err != nil {
				return err
			}
		}
	}

	totalPrice := ledger.TotalPrice(o.Assets)
	if err := view.TransferBalance(o.Buyer, o.Seller, totalPrice); err != nil {
		return err
	}
	for _, a := range o.Assets {
		if err := view.MoveBundle(o.Seller, o.Buyer, a.Id, a.Amount); err != nil {
			return err
		}
	}
	view.Flush()
	return nil
}
