package txn

import (
	"testing"

	"github.com/dmoshi/dimoshi-core/codec"
	"github.com/dmoshi/dimoshi-core/ledger"
	"github.com/dmoshi/dimoshi-core/store"
	"github.com/dmoshi/dimoshi-core/xcrypto"
)

func signedTransfer(t *testing.T, priv xcrypto.PrivateKey, author, recipient xcrypto.PublicKey, amount uint64, assets []ledger.AssetBundle) *Transfer {
	t.Helper()
	tr := &Transfer{Author: author, Recipient: recipient, Amount: amount, Assets: assets, Seed: 1}
	tr.AuthorSignature = xcrypto.Sign(priv, codec.SigningBytes(NetworkID, uint16(codec.MessageTransfer), tr.Payload()))
	return tr
}

func TestTransferPayloadRoundTrip(t *testing.T) {
	_, author, _ := xcrypto.GenerateKeyPair()
	_, recipient, _ := xcrypto.GenerateKeyPair()
	tr := &Transfer{Author: author, Recipient: recipient, Amount: 42, Seed: 3, DataInfo: "memo"}

	decoded, err := DecodeTransferPayload(tr.Payload())
	if err != nil {
		t.Fatalf("DecodeTransferPayload: %v", err)
	}
	if decoded.Author != author || decoded.Recipient != recipient || decoded.Amount != 42 || decoded.DataInfo != "memo" {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
}

func TestTransferVerifyRejectsSelfTransfer(t *testing.T) {
	priv, author, _ := xcrypto.GenerateKeyPair()
	tr := signedTransfer(t, priv, author, author, 1, nil)
	cfg := ledger.Configuration{Permissions: ledger.TransactionPermissions{GlobalMask: ^uint32(0)}}
	if tr.Verify(cfg) {
		t.Fatalf("expected Verify to reject Author == Recipient")
	}
}

func TestTransferApplyMovesBalanceAndThirdPartyFee(t *testing.T) {
	priv, author, _ := xcrypto.GenerateKeyPair()
	_, recipient, _ := xcrypto.GenerateKeyPair()
	_, creator, _ := xcrypto.GenerateKeyPair()
	_, genesis, _ := xcrypto.GenerateKeyPair()
	assetID := ledger.AssetId{8}

	f := store.NewFork(store.NewMemReader())
	f.Set(string(store.BucketAssets), ledger.AssetKey(assetID), ledger.AssetInfo{
		Creator: creator, TotalAmount: 20, Fees: ledger.Fees{Transfer: ledger.Fee{Fixed: 3}},
	}.Encode())

	view := NewWalletView(f)
	if err := view.CreditBalance(author, 500); err != nil {
		t.Fatalf("seed author balance: %v", err)
	}
	authorWallet, err := view.Get(author)
	if err != nil {
		t.Fatalf("Get author: %v", err)
	}
	authorWallet.Credit(assetID, 20)
	view.Flush()

	cfg := ledger.Configuration{
		Fees:        ledger.TransactionFees{Transfer: 5, GenesisWallet: genesis},
		Permissions: ledger.TransactionPermissions{GlobalMask: ^uint32(0)},
	}
	tr := signedTransfer(t, priv, author, recipient, 100, []ledger.AssetBundle{{Id: assetID, Amount: 20}})

	if !tr.Verify(cfg) {
		t.Fatalf("expected Verify to succeed")
	}
	if err := tr.Apply(f, cfg); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	view = NewWalletView(f)
	authorWallet, err = view.Get(author)
	if err != nil {
		t.Fatalf("Get author: %v", err)
	}
	// flat transfer fee (5) + third-party fee (3) + moved amount (100)
	if authorWallet.Balance != 500-5-3-100 {
		t.Fatalf("author balance = %d, want %d", authorWallet.Balance, 500-5-3-100)
	}
	if authorWallet.BundleAmount(assetID) != 0 {
		t.Fatalf("author asset amount = %d, want 0", authorWallet.BundleAmount(assetID))
	}
	recipientWallet, err := view.Get(recipient)
	if err != nil {
		t.Fatalf("Get recipient: %v", err)
	}
	if recipientWallet.Balance != 100 {
		t.Fatalf("recipient balance = %d, want 100", recipientWallet.Balance)
	}
	if recipientWallet.BundleAmount(assetID) != 20 {
		t.Fatalf("recipient asset amount = %d, want 20", recipientWallet.BundleAmount(assetID))
	}
	creatorWallet, err := view.Get(creator)
	if err != nil {
		t.Fatalf("Get creator: %v", err)
	}
	if creatorWallet.Balance != 3 {
		t.Fatalf("creator balance = %d, want 3", creatorWallet.Balance)
	}
}

func TestTransferApplyRollsBackOnMissingAssetButKeepsFlatFee(t *testing.T) {
	priv, author, _ := xcrypto.GenerateKeyPair()
	_, recipient, _ := xcrypto.GenerateKeyPair()
	_, genesis, _ := xcrypto.GenerateKeyPair()
	missingID := ledger.AssetId{99}

	f := store.NewFork(store.NewMemReader())
	view := NewWalletView(f)
	if err := view.CreditBalance(author, 50); err != nil {
		t.Fatalf("seed author balance: %v", err)
	}
	view.Flush()

	cfg := ledger.Configuration{
		Fees:        ledger.TransactionFees{Transfer: 4, GenesisWallet: genesis},
		Permissions: ledger.TransactionPermissions{GlobalMask: ^uint32(0)},
	}
	tr := signedTransfer(t, priv, author, recipient, 10, []ledger.AssetBundle{{Id: missingID, Amount: 1}})

	err := tr.Apply(f, cfg)
	if err == nil {
		t.Fatalf("expected AssetNotFound for unknown asset")
	}

	view = NewWalletView(f)
	authorWallet, gErr := view.Get(author)
	if gErr != nil {
		t.Fatalf("Get author: %v", gErr)
	}
	if authorWallet.Balance != 50-4 {
		t.Fatalf("author balance = %d, want %d (fee kept, rest rolled back)", authorWallet.Balance, 50-4)
	}
}
