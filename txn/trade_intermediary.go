package txn

import (
	"github.com/dmoshi/dimoshi-core/codec"
	"github.com/dmoshi/dimoshi-core/internal/feeshare"
	"github.com/dmoshi/dimoshi-core/ledger"
	"github.com/dmoshi/dimoshi-core/store"
	"github.com/dmoshi/dimoshi-core/xcrypto"
)

// TradeIntermediaryOffer is a TradeOffer plus the intermediary wallet and
// its commission.
type TradeIntermediaryOffer struct {
	TradeOffer
	Intermediary xcrypto.PublicKey
	Commission   uint64
}

const tradeIntermediaryOfferFixedSize = tradeOfferFixedSize + 32 + 8

// OfferRawBytes produces the canonical, self-contained encoding of the
// offer, independent of any outer message framing.
func (o *TradeIntermediaryOffer) OfferRawBytes() []byte {
	w := codec.NewWriter(tradeIntermediaryOfferFixedSize)
	w.PutFixed(0, o.Buyer[:])
	w.PutFixed(32, o.Seller[:])
	w.PutRecords(64, len(o.Assets), func(i int) []byte { return encodeTradeAssetRecord(o.Assets[i]) })
	w.PutU8(72, uint8(o.Strategy))
	w.PutFixed(73, o.Intermediary[:])
	w.PutU64(105, o.Commission)
	return w.Bytes()
}

// DecodeTradeIntermediaryOffer parses a TradeIntermediaryOffer from its raw
// bytes.
func DecodeTradeIntermediaryOffer(buf []byte) (*TradeIntermediaryOffer, error) {
	r, err := codec.NewReader(buf, tradeIntermediaryOfferFixedSize)
	if err != nil {
		return nil, err
	}
	o := &TradeIntermediaryOffer{}
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
	copy(o.Intermediary[:], r.Fixed(73, 32))
	o.Commission = r.U64(105)
	return o, nil
}

// TradeIntermediary is a Trade whose service and commission fees may be
// routed to a third-party intermediary. The offer carries only the seller's
// co-signature; the intermediary does not sign it.
type TradeIntermediary struct {
	Offer           TradeIntermediaryOffer
	Seed            uint64
	SellerSignature xcrypto.Signature
	DataInfo        string
	BuyerSignature  xcrypto.Signature
}

const tradeIntermediaryFixedSize = 8 + 64 + 8 + 8

// Payload encodes the signable fields of the outer message (author =
// buyer).
func (t *TradeIntermediary) Payload() []byte {
	w := codec.NewWriter(tradeIntermediaryFixedSize)
	w.PutU64(0, t.Seed)
	w.PutFixed(8, t.SellerSignature[:])
	w.PutString(72, t.DataInfo)
	w.PutBytes(80, t.Offer.OfferRawBytes())
	return w.Bytes()
}

// DecodeTradeIntermediaryPayload parses the signable fields from their
// canonical encoding.
func DecodeTradeIntermediaryPayload(buf []byte) (*TradeIntermediary, error) {
	r, err := codec.NewReader(buf, tradeIntermediaryFixedSize)
	if err != nil {
		return nil, err
	}
	t := &TradeIntermediary{}
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
	offer, err := DecodeTradeIntermediaryOffer(offerBytes)
	if err != nil {
		return nil, err
	}
	t.Offer = *offer
	return t, nil
}

// Hash implements Transaction.
func (t *TradeIntermediary) Hash() xcrypto.Hash {
	return wireHash(codec.MessageTradeIntermediary, t.Payload(), t.BuyerSignature)
}

// Verify implements Transaction.
func (t *TradeIntermediary) Verify(cfg ledger.Configuration) bool {
	o := &t.Offer
	if !Distinct(o.Buyer, o.Seller, o.Intermediary) {
		return false
	}
	if !o.Strategy.Valid() {
		return false
	}
	if !xcrypto.Verify(o.Seller, o.OfferRawBytes(), t.SellerSignature) {
		return false
	}
	if !verifySignature(codec.MessageTradeIntermediary, t.Payload(), o.Buyer, t.BuyerSignature) {
		return false
	}
	return CheckPermission(cfg, ledger.PermTradeIntermediary, o.Buyer, o.Seller, o.Intermediary)
}

// Apply implements Transaction.
func (t *TradeIntermediary) Apply(fork *store.Fork, cfg ledger.Configuration) error {
	o := &t.Offer
	view := NewWalletView(fork)
	principals := feeshare.Principals{Sender: o.Buyer, Recipient: o.Seller, Intermediary: o.Intermediary}

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

func (t *TradeIntermediary) settle(fork *store.Fork, view *WalletView, principals feeshare.Principals) error {
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

	commissionOwed := feeshare.Split(feeshare.Line{Creator: o.Intermediary, Owed: o.Commission}, o.Strategy, principals)
	for payer, amount := range commissionOwed {
		if err := view.TransferBalance(payer, o.Intermediary, amount); err != nil {
			return err
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
