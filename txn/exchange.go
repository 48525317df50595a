package txn

import (
	"github.com/dmoshi/dimoshi-core/codec"
	"github.com/dmoshi/dimoshi-core/internal/feeshare"
	"github.com/dmoshi/dimoshi-core/ledger"
	"github.com/dmoshi/dimoshi-core/store"
	"github.com/dmoshi/dimoshi-core/xcrypto"
)

func exchangeSelector(f ledger.Fees) ledger.Fee { return f.Exchange }

// ExchangeOffer is the co-signed inner record of an Exchange transaction.
// Its canonical bytes (OfferRawBytes) are signed independently by the
// sender, never as part of the outer message's own signing bytes.
type ExchangeOffer struct {
	Sender          xcrypto.PublicKey
	SenderAssets    []ledger.AssetBundle
	SenderValue     uint64
	Recipient       xcrypto.PublicKey
	RecipientAssets []ledger.AssetBundle
	Strategy        ledger.FeeStrategy
}

const exchangeOfferFixedSize = 32 + 8 + 8 + 32 + 8 + 1

// OfferRawBytes produces the canonical, self-contained encoding of the
// offer, independent of any outer message framing.
func (o *ExchangeOffer) OfferRawBytes() []byte {
	w := codec.NewWriter(exchangeOfferFixedSize)
	w.PutFixed(0, o.Sender[:])
	w.PutRecords(32, len(o.SenderAssets), func(i int) []byte { return encodeBundleRecord(o.SenderAssets[i]) })
	w.PutU64(40, o.SenderValue)
	w.PutFixed(48, o.Recipient[:])
	w.PutRecords(80, len(o.RecipientAssets), func(i int) []byte { return encodeBundleRecord(o.RecipientAssets[i]) })
	w.PutU8(88, uint8(o.Strategy))
	return w.Bytes()
}

// DecodeExchangeOffer parses an ExchangeOffer from its raw bytes.
func DecodeExchangeOffer(buf []byte) (*ExchangeOffer, error) {
	r, err := codec.NewReader(buf, exchangeOfferFixedSize)
	if err != nil {
		return nil, err
	}
	o := &ExchangeOffer{}
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
	return o, nil
}

// Exchange is a two-party asset swap authored by the recipient, with the
// sender's terms co-signed via the embedded ExchangeOffer.
type Exchange struct {
	Offer              ExchangeOffer
	Seed               uint64
	SenderSignature    xcrypto.Signature
	DataInfo           string
	RecipientSignature xcrypto.Signature
}

const exchangeFixedSize = 8 + 64 + 8 + 8 // seed + sender_sig + datainfo seg + offer seg

// Payload encodes the signable fields of the outer message (author =
// recipient). It embeds the offer's raw bytes and the sender's signature
// over them, both of which the recipient's own signature also covers.
func (e *Exchange) Payload() []byte {
	w := codec.NewWriter(exchangeFixedSize)
	w.PutU64(0, e.Seed)
	w.PutFixed(8, e.SenderSignature[:])
	w.PutString(72, e.DataInfo)
	w.PutBytes(80, e.Offer.OfferRawBytes())
	return w.Bytes()
}

// DecodeExchangePayload parses the signable fields from their canonical
// encoding.
func DecodeExchangePayload(buf []byte) (*Exchange, error) {
	r, err := codec.NewReader(buf, exchangeFixedSize)
	if err != nil {
		return nil, err
	}
	e := &Exchange{}
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
	offer, err := DecodeExchangeOffer(offerBytes)
	if err != nil {
		return nil, err
	}
	e.Offer = *offer
	return e, nil
}

// Hash implements Transaction.
func (e *Exchange) Hash() xcrypto.Hash {
	return wireHash(codec.MessageExchange, e.Payload(), e.RecipientSignature)
}

// Verify implements Transaction.
func (e *Exchange) Verify(cfg ledger.Configuration) bool {
	o := &e.Offer
	if !Distinct(o.Sender, o.Recipient) {
		return false
	}
	if o.Strategy == ledger.StrategyIntermediary || !o.Strategy.Valid() {
		return false
	}
	if !xcrypto.Verify(o.Sender, o.OfferRawBytes(), e.SenderSignature) {
		return false
	}
	if !verifySignature(codec.MessageExchange, e.Payload(), o.Recipient, e.RecipientSignature) {
		return false
	}
	return CheckPermission(cfg, ledger.PermExchange, o.Sender, o.Recipient)
}

// Apply implements Transaction.
func (e *Exchange) Apply(fork *store.Fork, cfg ledger.Configuration) error {
	o := &e.Offer
	view := NewWalletView(fork)
	principals := feeshare.Principals{Sender: o.Sender, Recipient: o.Recipient}

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

func (e *Exchange) settle(fork *store.Fork, view *WalletView, principals feeshare.Principals) error {
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

func assetAmounts(bundles []ledger.AssetBundle) []feeshare.AssetAmount {
	out := make([]feeshare.AssetAmount, len(bundles))
	for i, b := range bundles {
		out[i] = feeshare.AssetAmount{Id: b.Id, Amount: b.Amount}
	}
	return out
}
