package txn

import (
	"testing"

	"github.com/dmoshi/dimoshi-core/codec"
	"github.com/dmoshi/dimoshi-core/ledger"
	"github.com/dmoshi/dimoshi-core/store"
	"github.com/dmoshi/dimoshi-core/xcrypto"
)

func signedAddAssets(t *testing.T, priv xcrypto.PrivateKey, author xcrypto.PublicKey, metaAssets []ledger.MetaAsset) *AddAssets {
	t.Helper()
	a := &AddAssets{Author: author, Seed: 1, MetaAssets: metaAssets}
	a.AuthorSignature = xcrypto.Sign(priv, codec.SigningBytes(NetworkID, uint16(codec.MessageAddAssets), a.Payload()))
	return a
}

func TestAddAssetsPayloadRoundTrip(t *testing.T) {
	_, author, _ := xcrypto.GenerateKeyPair()
	_, receiver, _ := xcrypto.GenerateKeyPair()
	metaAssets := []ledger.MetaAsset{{Receiver: receiver, MetaData: "ticket", Amount: 5, Fees: ledger.Fees{Trade: ledger.Fee{Fixed: 2}}}}
	a := &AddAssets{Author: author, Seed: 7, MetaAssets: metaAssets}

	decoded, err := DecodeAddAssetsPayload(a.Payload())
	if err != nil {
		t.Fatalf("DecodeAddAssetsPayload: %v", err)
	}
	if decoded.Author != author || decoded.Seed != 7 {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
	if len(decoded.MetaAssets) != 1 || decoded.MetaAssets[0].MetaData != "ticket" || decoded.MetaAssets[0].Amount != 5 {
		t.Fatalf("meta assets mismatch: %+v", decoded.MetaAssets)
	}
}

func TestAddAssetsVerifyRejectsTamperedPayload(t *testing.T) {
	priv, author, _ := xcrypto.GenerateKeyPair()
	_, receiver, _ := xcrypto.GenerateKeyPair()
	a := signedAddAssets(t, priv, author, []ledger.MetaAsset{{Receiver: receiver, MetaData: "x", Amount: 1}})
	a.Seed = 999
	cfg := ledger.Configuration{Permissions: ledger.TransactionPermissions{GlobalMask: ^uint32(0)}}
	if a.Verify(cfg) {
		t.Fatalf("expected Verify to fail after tampering with seed")
	}
}

func TestAddAssetsVerifyRejectsMissingPermission(t *testing.T) {
	priv, author, _ := xcrypto.GenerateKeyPair()
	_, receiver, _ := xcrypto.GenerateKeyPair()
	a := signedAddAssets(t, priv, author, []ledger.MetaAsset{{Receiver: receiver, MetaData: "x", Amount: 1}})
	cfg := ledger.Configuration{Permissions: ledger.TransactionPermissions{GlobalMask: 0}}
	if a.Verify(cfg) {
		t.Fatalf("expected Verify to fail without PermAddAssets")
	}
}

func TestAddAssetsApplyMintsAndCreditsReceiver(t *testing.T) {
	priv, author, _ := xcrypto.GenerateKeyPair()
	_, receiver, _ := xcrypto.GenerateKeyPair()
	_, genesis, _ := xcrypto.GenerateKeyPair()

	f := store.NewFork(store.NewMemReader())
	view := NewWalletView(f)
	if err := view.CreditBalance(author, 1000); err != nil {
		t.Fatalf("seed author balance: %v", err)
	}
	view.Flush()

	cfg := ledger.Configuration{
		Fees:        ledger.TransactionFees{AddAssetsBase: 10, AddAssetsPerUnit: 2, GenesisWallet: genesis},
		Permissions: ledger.TransactionPermissions{GlobalMask: ^uint32(0)},
	}
	metaAssets := []ledger.MetaAsset{{Receiver: receiver, MetaData: "widget", Amount: 5}}
	a := signedAddAssets(t, priv, author, metaAssets)

	if !a.Verify(cfg) {
		t.Fatalf("expected Verify to succeed")
	}
	if err := a.Apply(f, cfg); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	view = NewWalletView(f)
	authorWallet, err := view.Get(author)
	if err != nil {
		t.Fatalf("Get author: %v", err)
	}
	if authorWallet.Balance != 1000-(10+2*5) {
		t.Fatalf("author balance = %d, want %d", authorWallet.Balance, 1000-(10+2*5))
	}
	receiverWallet, err := view.Get(receiver)
	if err != nil {
		t.Fatalf("Get receiver: %v", err)
	}
	id := ledger.NewAssetId("widget", author)
	if receiverWallet.BundleAmount(id) != 5 {
		t.Fatalf("receiver asset amount = %d, want 5", receiverWallet.BundleAmount(id))
	}
	info, exists, err := GetAssetInfo(f, id)
	if err != nil || !exists {
		t.Fatalf("GetAssetInfo: exists=%v err=%v", exists, err)
	}
	if info.TotalAmount != 5 || info.Creator != author {
		t.Fatalf("asset info mismatch: %+v", info)
	}
}

func TestAddAssetsApplyRejectsFeeScheduleMismatchOnTopUp(t *testing.T) {
	priv, author, _ := xcrypto.GenerateKeyPair()
	_, receiver, _ := xcrypto.GenerateKeyPair()
	_, genesis, _ := xcrypto.GenerateKeyPair()

	f := store.NewFork(store.NewMemReader())
	view := NewWalletView(f)
	if err := view.CreditBalance(author, 1000); err != nil {
		t.Fatalf("seed author balance: %v", err)
	}
	view.Flush()

	cfg := ledger.Configuration{
		Fees:        ledger.TransactionFees{GenesisWallet: genesis},
		Permissions: ledger.TransactionPermissions{GlobalMask: ^uint32(0)},
	}
	first := signedAddAssets(t, priv, author, []ledger.MetaAsset{{Receiver: receiver, MetaData: "widget", Amount: 1, Fees: ledger.Fees{Trade: ledger.Fee{Fixed: 1}}}})
	if err := first.Apply(f, cfg); err != nil {
		t.Fatalf("first Apply: %v", err)
	}

	second := signedAddAssets(t, priv, author, []ledger.MetaAsset{{Receiver: receiver, MetaData: "widget", Amount: 1, Fees: ledger.Fees{Trade: ledger.Fee{Fixed: 2}}}})
	err := second.Apply(f, cfg)
	if err == nil {
		t.Fatalf("expected InvalidAssetInfo on fee schedule mismatch")
	}
}
