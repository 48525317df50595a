package txn

import (
	"testing"

	"github.com/dmoshi/dimoshi-core/ledger"
	"github.com/dmoshi/dimoshi-core/store"
	"github.com/dmoshi/dimoshi-core/xcrypto"
)

func TestWalletViewCachesAcrossGets(t *testing.T) {
	f := store.NewFork(store.NewMemReader())
	view := NewWalletView(f)
	_, pub, _ := xcrypto.GenerateKeyPair()

	if err := view.CreditBalance(pub, 10); err != nil {
		t.Fatalf("CreditBalance: %v", err)
	}
	w, err := view.Get(pub)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if w.Balance != 10 {
		t.Fatalf("balance = %d, want 10 (should see the uncommitted credit via the cache)", w.Balance)
	}
}

func TestWalletViewFlushWritesEveryTouchedWalletOnce(t *testing.T) {
	f := store.NewFork(store.NewMemReader())
	view := NewWalletView(f)
	_, pub, _ := xcrypto.GenerateKeyPair()

	if err := view.CreditBalance(pub, 5); err != nil {
		t.Fatalf("CreditBalance: %v", err)
	}
	if err := view.CreditBalance(pub, 3); err != nil {
		t.Fatalf("CreditBalance: %v", err)
	}
	view.Flush()

	raw, err := f.Get(string(store.BucketWallets), ledger.WalletKey(pub))
	if err != nil {
		t.Fatalf("Get from fork: %v", err)
	}
	w, err := ledger.DecodeWallet(raw)
	if err != nil {
		t.Fatalf("DecodeWallet: %v", err)
	}
	if w.Balance != 8 {
		t.Fatalf("flushed balance = %d, want 8", w.Balance)
	}
}

func TestWalletViewTransferBalanceFailsWithoutMutatingEitherSide(t *testing.T) {
	f := store.NewFork(store.NewMemReader())
	view := NewWalletView(f)
	_, from, _ := xcrypto.GenerateKeyPair()
	_, to, _ := xcrypto.GenerateKeyPair()

	if err := view.CreditBalance(from, 5); err != nil {
		t.Fatalf("CreditBalance: %v", err)
	}
	err := view.TransferBalance(from, to, 100)
	if err == nil {
		t.Fatalf("expected InsufficientFunds")
	}

	fromWallet, gErr := view.Get(from)
	if gErr != nil {
		t.Fatalf("Get from: %v", gErr)
	}
	if fromWallet.Balance != 5 {
		t.Fatalf("from balance = %d, want 5 (debit should not apply on a failed transfer)", fromWallet.Balance)
	}
	toWallet, gErr := view.Get(to)
	if gErr != nil {
		t.Fatalf("Get to: %v", gErr)
	}
	if toWallet.Balance != 0 {
		t.Fatalf("to balance = %d, want 0", toWallet.Balance)
	}
}

func TestWalletViewMoveBundleMovesAssetAmount(t *testing.T) {
	f := store.NewFork(store.NewMemReader())
	view := NewWalletView(f)
	_, from, _ := xcrypto.GenerateKeyPair()
	_, to, _ := xcrypto.GenerateKeyPair()
	id := ledger.AssetId{1}

	fromWallet, err := view.Get(from)
	if err != nil {
		t.Fatalf("Get from: %v", err)
	}
	fromWallet.Credit(id, 10)

	if err := view.MoveBundle(from, to, id, 4); err != nil {
		t.Fatalf("MoveBundle: %v", err)
	}

	if fromWallet.BundleAmount(id) != 6 {
		t.Fatalf("from asset amount = %d, want 6", fromWallet.BundleAmount(id))
	}
	toWallet, err := view.Get(to)
	if err != nil {
		t.Fatalf("Get to: %v", err)
	}
	if toWallet.BundleAmount(id) != 4 {
		t.Fatalf("to asset amount = %d, want 4", toWallet.BundleAmount(id))
	}
}
