package txn

import (
	"github.com/dmoshi/dimoshi-core/codec"
	"github.com/dmoshi/dimoshi-core/internal/feeshare"
	"github.com/dmoshi/dimoshi-core/ledger"
	"github.com/dmoshi/dimoshi-core/store"
	"github.com/dmoshi/dimoshi-core/xcrypto"
)

// ExchangeIntermediaryOffer is the co-signed inner record of an
// ExchangeIntermediary transaction: an ExchangeOffer plus the intermediary
// wallet and its commission.
type ExchangeIntermediaryOffer struct {
	ExchangeOffer
	Intermediary xcrypto.PublicKey
	Commission   uint64
}

const exchangeIntermediaryOfferFixedSize = exchangeOfferFixedSize + 32 + 8

// OfferRawBytes produces the canonical, self-contained encoding of the
// offer, independent of any outer message framing.
func (o *ExchangeIntermediaryOffer) OfferRawBytes() []byte {
	w := codec.NewWriter(exchangeIntermediaryOfferFixedSize)
	w.PutFixed(0, o.Sender[:])
	w.PutRecords(32, len(o.SenderAssets), func(i int) []byte { return encodeBundleRecord(o.SenderAssets[i]) })
	w.PutU64(40, o.SenderValue)
	w.PutFixed(48, o.Recipient[:])
	w.PutRecords(80, len(o.RecipientAssets), func(i int) []byte { return encodeBundleRecord(o.RecipientAssets[i]) })
	w.PutU8(88, uint8(o.Strategy))
	w.PutFixed(89, o.Intermediary[:])
	w.PutU64(121, o.Commission)
	return w.Bytes()
}

// DecodeExchangeIntermediaryOffer parses an ExchangeIntermediaryOffer from
// its raw bytes.
func DecodeExchangeIntermediaryOffer(buf []byte) (*ExchangeIntermediaryOffer, error) {
	r, err := codec.NewReader(buf, exchangeIntermediaryOfferFixedSize)
	if err != nil {
		return nil, err
	}
	o := &ExchangeIntermediaryOffer{}
	copy(o.Sender[:], r.Fixed(0, 32))
	if _, err := r.Records(32, bundleRecordSize, func(elem []byte) error {
		b, err := decodeBundleRecord(elem)
		if err != nil {
			return err
		}
		o.SenderAssets = append(o.SenderAssets, b)
		return nil
	}); err != nil {
		return nil, err
	}
	o.SenderValue = r.U64(40)
	copy(o.Recipient[:], r.Fixed(48, 32))
	if _, err := r.Records(80, bundleRecordSize, func(elem []byte) error {
		b, err := decodeBundleRecord(elem)
		if err != nil {
			return err
		}
		o.RecipientAssets = append(o.RecipientAssets, b)
		return nil
	}); err != nil {
		return nil, err
	}
	o.Strategy = ledger.FeeStrategy(r.U8(88))
	copy(o.Intermediary[:], r.Fixed(89, 32))
	o.Commission = r.U64(121)
	return o, nil
}

// ExchangeIntermediary is an Exchange whose service and commission fees may
// be routed to a third-party intermediary. The offer carries only the
// sender's co-signature; the intermediary does not sign it.
type ExchangeIntermediary struct {
	Offer              ExchangeIntermediaryOffer
	Seed               uint64
	SenderSignature    xcrypto.Signature
	DataInfo           string
	RecipientSignature xcrypto.Signature
}

const exchangeIntermediaryFixedSize = 8 + 64 + 8 + 8

// Payload encodes the signable fields of the outer message (author =
// recipient).
func (e *ExchangeIntermediary) Payload() []byte {
	w := codec.NewWriter(exchangeIntermediaryFixedSize)
	w.PutU64(0, e.Seed)
	w.PutFixed(8, e.SenderSignature[:])
	w.PutString(72, e.DataInfo)
	w.PutBytes(80, e.Offer.OfferRawBytes())
	return w.Bytes()
}

// DecodeExchangeIntermediaryPayload parses the signable fields from their
// canonical encoding.
func DecodeExchangeIntermediaryPayload(buf []byte) (*ExchangeIntermediary, error) {
	r, err := codec.NewReader(buf, exchangeIntermediaryFixedSize)
	if err != nil {
		return nil, err
	}
	e := &ExchangeIntermediary{}
	e.Seed = r.U64(0)
	copy(e.SenderSignature[:], r.Fixed(8, 64))
	dataInfo, err := r.String(72)
	if err != nil {
		return nil, err
	}
	e.DataInfo = dataInfo
	offerBytes, err := r.Bytes(80)
	if err != nil {
		return nil, err
	}
	offer, err := DecodeExchangeIntermediaryOffer(offerBytes)
	if err != nil {
		return nil, err
	}
	e.Offer = *offer
	return e, nil
}

// Hash implements Transaction.
func (e *ExchangeIntermediary) Hash() xcrypto.Hash {
	return wireHash(codec.MessageExchangeIntermediary, e.Payload(), e.RecipientSignature)
}

// Verify implements Transaction.
func (e *ExchangeIntermediary) Verify(cfg ledger.Configuration) bool {
	o := &e.Offer
	if !Distinct(o.Sender, o.Recipient, o.Intermediary) {
		return false
	}
	if !o.Strategy.Valid() {
		return false
	}
	if !xcrypto.Verify(o.Sender, o.OfferRawBytes(), e.SenderSignature) {
		return false
	}
	if !verifySignature(codec.MessageExchangeIntermediary, e.Payload(), o.Recipient, e.RecipientSignature) {
		return false
	}
	return CheckPermission(cfg, ledger.PermExchangeIntermediary, o.Sender, o.Recipient, o.Intermediary)
}

// Apply implements Transaction.
func (e *ExchangeIntermediary) Apply(fork *store.Fork, cfg ledger.Configuration) error {
	o := &e.Offer
	view := NewWalletView(fork)
	principals := feeshare.Principals{Sender: o.Sender, Recipient: o.Recipient, Intermediary: o.Intermediary}

	serviceFeeOwed := feeshare.Split(feeshare.Line{Creator: cfg.Fees.GenesisWallet, Owed: cfg.Fees.Exchange}, o.Strategy, principals)
	for payer, amount := range serviceFeeOwed {
		if err := view.TransferBalance(payer, cfg.Fees.GenesisWallet, amount); err != nil {
			return err
		}
	}
	view.Flush()

	checkpoint := fork.Checkpoint()
	if err := e.settle(fork, view, principals); err != nil {
		if rbErr := fork.RollbackTo(checkpoint); rbErr != nil {
			return rbErr
		}
		return err
	}
	return nil
}

func (e *ExchangeIntermediary) settle(fork *store.Fork, view *WalletView, principals feeshare.Principals) error {
	o := &e.Offer
	bundles := assetAmounts(append(append([]ledger.AssetBundle{}, o.SenderAssets...), o.RecipientAssets...))
	lines, err := feeshare.ComputeLines(fork, bundles, exchangeSelector)
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

	if err := view.TransferBalance(o.Sender, o.Recipient, o.SenderValue); err != nil {
		return err
	}
	for _, b := range o.SenderAssets {
		if err := view.MoveBundle(o.Sender, o.Recipient, b.Id, b.Amount); err != nil {
			return err
		}
	}
	for _, b := range o.RecipientAssets {
		if err := view.MoveBundle(o.Recipient, o.Sender, b.Id, b.Amount); err != nil {
			return err
		}
	}
	view.Flush()
	return nil
}
