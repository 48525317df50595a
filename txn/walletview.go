package txn

import (
	"github.com/dmoshi/dimoshi-core/ledger"
	"github.com/dmoshi/dimoshi-core/store"
	"github.com/dmoshi/dimoshi-core/xcrypto"
)

// WalletView is the "updated_wallets" local map the spec calls for: inside
// one execute(), it caches every wallet touched so that a later read in the
// same execution sees an earlier write without re-fetching from the fork,
// and each Flush call writes every touched wallet back to the fork once
// (a transaction kind may call Flush more than once).
type WalletView struct {
	fork    *store.Fork
	cache   map[xcrypto.PublicKey]*ledger.Wallet
	touched []xcrypto.PublicKey
}

// NewWalletView creates a WalletView backed by fork.
func NewWalletView(fork *store.Fork) *WalletView {
	return &WalletView{fork: fork, cache: make(map[xcrypto.PublicKey]*ledger.Wallet)}
}

// Get returns the wallet for pub, loading it from the fork (or
// synthesizing a zero wallet) on first touch and caching it thereafter.
func (v *WalletView) Get(pub xcrypto.PublicKey) (*ledger.Wallet, error) {
	if w, ok := v.cache[pub]; ok {
		return w, nil
	}
	raw, err := v.fork.Get(string(store.BucketWallets), ledger.WalletKey(pub))
	var w ledger.Wallet
	if err == store.ErrNotFound {
		w = ledger.ZeroWallet()
	} else if err != nil {
		return nil, err
	} else {
		w, err = ledger.DecodeWallet(raw)
		if err != nil {
			return nil, err
		}
	}
	v.cache[pub] = &w
	v.touched = append(v.touched, pub)
	return &w, nil
}

// Flush writes every wallet touched through Get back to the fork.
func (v *WalletView) Flush() {
	for _, pub := range v.touched {
		v.fork.Set(string(store.BucketWallets), ledger.WalletKey(pub), v.cache[pub].Encode())
	}
}

// DebitBalance debits amount dimoshi from pub's wallet balance.
func (v *WalletView) DebitBalance(pub xcrypto.PublicKey, amount uint64) error {
	w, err := v.Get(pub)
	if err != nil {
		return err
	}
	return w.DebitBalance(amount)
}

// CreditBalance credits amount dimoshi to pub's wallet balance.
func (v *WalletView) CreditBalance(pub xcrypto.PublicKey, amount uint64) error {
	w, err := v.Get(pub)
	if err != nil {
		return err
	}
	w.CreditBalance(amount)
	return nil
}

// TransferBalance moves amount dimoshi from one wallet to another, failing
// with InsufficientFunds (and crediting nothing) if the debit fails.
func (v *WalletView) TransferBalance(from, to xcrypto.PublicKey, amount uint64) error {
	if amount == 0 {
		return nil
	}
	if err := v.DebitBalance(from, amount); err != nil {
		return err
	}
	return v.CreditBalance(to, amount)
}

// MoveBundle moves amount units of id from one wallet to another.
func (v *WalletView) MoveBundle(from, to xcrypto.PublicKey, id ledger.AssetId, amount uint64) error {
	if amount == 0 {
		return nil
	}
	fromWallet, err := v.Get(from)
	if err != nil {
		return err
	}
	if err := fromWallet.Debit(id, amount); err != nil {
		return err
	}
	toWallet, err := v.Get(to)
	if err != nil {
		return err
	}
	toWallet.Credit(id, amount)
	return nil
}
