package txn

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/dmoshi/dimoshi-core/ledger"
	"github.com/dmoshi/dimoshi-core/store"
	"github.com/dmoshi/dimoshi-core/xcrypto"
)

var errPlainInfra = errors.New("txn_test: simulated infra failure")

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "dimoshi.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// fakeTx is a minimal Transaction used to exercise Execute's contract in
// isolation from any concrete transaction kind.
type fakeTx struct {
	hash      xcrypto.Hash
	verifies  bool
	applyErr  error
	applyFunc func(fork *store.Fork) error
}

func (f *fakeTx) Hash() xcrypto.Hash                                { return f.hash }
func (f *fakeTx) Verify(cfg ledger.Configuration) bool              { return f.verifies }
func (f *fakeTx) Apply(fork *store.Fork, cfg ledger.Configuration) error {
	if f.applyFunc != nil {
		return f.applyFunc(fork)
	}
	return f.applyErr
}

func TestExecuteRejectsFailedVerification(t *testing.T) {
	s := openTestStore(t)
	tx := &fakeTx{hash: xcrypto.Hash{1}, verifies: false}
	_, err := Execute(s, tx, ledger.Configuration{})
	if err != ErrVerificationFailed {
		t.Fatalf("got err=%v, want ErrVerificationFailed", err)
	}

	snap, err := s.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	defer snap.Close()
	if _, err := snap.Get(string(store.BucketTxStatus), ledger.TxStatusKey(tx.hash)); err != store.ErrNotFound {
		t.Fatalf("expected no TxStatus recorded for a verification failure, got err=%v", err)
	}
}

func TestExecuteRecordsSuccessStatusAndCommits(t *testing.T) {
	s := openTestStore(t)
	var pub xcrypto.PublicKey
	pub[0] = 42
	tx := &fakeTx{
		hash:     xcrypto.Hash{2},
		verifies: true,
		applyFunc: func(fork *store.Fork) error {
			view := NewWalletView(fork)
			if err := view.CreditBalance(pub, 7); err != nil {
				return err
			}
			view.Flush()
			return nil
		},
	}
	status, err := Execute(s, tx, ledger.Configuration{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !status.Ok() {
		t.Fatalf("expected successful status, got %+v", status)
	}

	snap, err := s.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	defer snap.Close()
	raw, err := snap.Get(string(store.BucketTxStatus), ledger.TxStatusKey(tx.hash))
	if err != nil {
		t.Fatalf("Get TxStatus: %v", err)
	}
	recorded, err := DecodeStatus(raw)
	if err != nil || !recorded.Ok() {
		t.Fatalf("recorded status = %+v, err=%v", recorded, err)
	}

	raw, err = snap.Get(string(store.BucketWallets), ledger.WalletKey(pub))
	if err != nil {
		t.Fatalf("Get wallet: %v", err)
	}
	w, err := ledger.DecodeWallet(raw)
	if err != nil || w.Balance != 7 {
		t.Fatalf("wallet = %+v, err=%v", w, err)
	}
}

func TestExecuteRecordsBusinessFailureStatusWithoutPropagatingError(t *testing.T) {
	s := openTestStore(t)
	tx := &fakeTx{
		hash:     xcrypto.Hash{3},
		verifies: true,
		applyErr: ledger.NewExecError(ledger.ErrorKindInsufficientFunds, "not enough dimoshi"),
	}
	status, err := Execute(s, tx, ledger.Configuration{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if status.Kind != ledger.ErrorKindInsufficientFunds {
		t.Fatalf("status.Kind = %v, want InsufficientFunds", status.Kind)
	}
}

func TestExecutePropagatesInfraErrorWithoutRecordingStatus(t *testing.T) {
	s := openTestStore(t)
	tx := &fakeTx{hash: xcrypto.Hash{4}, verifies: true, applyErr: errPlainInfra}
	_, err := Execute(s, tx, ledger.Configuration{})
	if err != errPlainInfra {
		t.Fatalf("got err=%v, want errPlainInfra", err)
	}

	snap, err := s.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	defer snap.Close()
	if _, err := snap.Get(string(store.BucketTxStatus), ledger.TxStatusKey(tx.hash)); err != store.ErrNotFound {
		t.Fatalf("expected no TxStatus recorded for an infra failure, got err=%v", err)
	}
}

func TestCheckPermissionHonorsPerWalletOverride(t *testing.T) {
	_, pub, _ := xcrypto.GenerateKeyPair()
	cfg := ledger.Configuration{Permissions: ledger.TransactionPermissions{
		GlobalMask: 0,
		Overrides:  map[xcrypto.PublicKey]uint32{pub: ledger.PermTransfer},
	}}
	if !CheckPermission(cfg, ledger.PermTransfer, pub) {
		t.Fatalf("expected override to grant PermTransfer")
	}
}

func TestDistinctDetectsDuplicates(t *testing.T) {
	_, a, _ := xcrypto.GenerateKeyPair()
	_, b, _ := xcrypto.GenerateKeyPair()
	if !Distinct(a, b) {
		t.Fatalf("expected distinct keys to pass")
	}
	if Distinct(a, b, a) {
		t.Fatalf("expected a repeated key to fail")
	}
}
