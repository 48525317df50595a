package txn

import (
	"testing"

	"github.com/dmoshi/dimoshi-core/codec"
	"github.com/dmoshi/dimoshi-core/ledger"
	"github.com/dmoshi/dimoshi-core/store"
	"github.com/dmoshi/dimoshi-core/xcrypto"
)

func signedTradeIntermediary(t *testing.T, sellerPriv xcrypto.PrivateKey, seller xcrypto.PublicKey, buyerPriv xcrypto.PrivateKey, buyer, intermediary xcrypto.PublicKey, strategy ledger.FeeStrategy, assets []ledger.TradeAsset, commission uint64) *TradeIntermediary {
	t.Helper()
	offer := TradeIntermediaryOffer{
		TradeOffer:   TradeOffer{Buyer: buyer, Seller: seller, Assets: assets, Strategy: strategy},
		Intermediary: intermediary,
		Commission:   commission,
	}
	tr := &TradeIntermediary{Offer: offer, Seed: 1}
	tr.SellerSignature = xcrypto.Sign(sellerPriv, offer.OfferRawBytes())
	tr.BuyerSignature = xcrypto.Sign(buyerPriv, codec.SigningBytes(NetworkID, uint16(codec.MessageTradeIntermediary), tr.Payload()))
	return tr
}

func TestTradeIntermediaryOfferRawBytesRoundTrip(t *testing.T) {
	_, buyer, _ := xcrypto.GenerateKeyPair()
	_, seller, _ := xcrypto.GenerateKeyPair()
	_, intermediary, _ := xcrypto.GenerateKeyPair()
	offer := TradeIntermediaryOffer{
		TradeOffer:   TradeOffer{Buyer: buyer, Seller: seller, Strategy: ledger.StrategyIntermediary},
		Intermediary: intermediary,
		Commission:   12,
	}
	decoded, err := DecodeTradeIntermediaryOffer(offer.OfferRawBytes())
	if err != nil {
		t.Fatalf("DecodeTradeIntermediaryOffer: %v", err)
	}
	if decoded.Intermediary != intermediary || decoded.Commission != 12 {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
}

func TestTradeIntermediaryApplyPaysCommissionToIntermediary(t *testing.T) {
	sellerPriv, seller, _ := xcrypto.GenerateKeyPair()
	buyerPriv, buyer, _ := xcrypto.GenerateKeyPair()
	_, intermediary, _ := xcrypto.GenerateKeyPair()
	_, genesis, _ := xcrypto.GenerateKeyPair()

	f := store.NewFork(store.NewMemReader())
	view := NewWalletView(f)
	if err := view.CreditBalance(buyer, 100); err != nil {
		t.Fatalf("seed buyer balance: %v", err)
	}
	view.Flush()

	cfg := ledger.Configuration{Fees: ledger.TransactionFees{Trade: 0, GenesisWallet: genesis}, Permissions: ledger.TransactionPermissions{GlobalMask: ^uint32(0)}}
	tr := signedTradeIntermediary(t, sellerPriv, seller, buyerPriv, buyer, intermediary, ledger.StrategySender, nil, 15)

	if !tr.Verify(cfg) {
		t.Fatalf("expected Verify to succeed")
	}
	if err := tr.Apply(f, cfg); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	view = NewWalletView(f)
	buyerWallet, err := view.Get(buyer)
	if err != nil {
		t.Fatalf("Get buyer: %v", err)
	}
	if buyerWallet.Balance != 100-15 {
		t.Fatalf("buyer balance = %d, want %d", buyerWallet.Balance, 100-15)
	}
	intermediaryWallet, err := view.Get(intermediary)
	if err != nil {
		t.Fatalf("Get intermediary: %v", err)
	}
	if intermediaryWallet.Balance != 15 {
		t.Fatalf("intermediary balance = %d, want 15", intermediaryWallet.Balance)
	}
}
