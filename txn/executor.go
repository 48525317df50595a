// Package txn is the transaction executor: the per-transaction-kind
// verify()/execute(fork) rules, the permission gate, the FeeStrategy split,
// and the common atomic-against-the-fork execution contract described by
// the core's component design.
package txn

import (
	"errors"

	"github.com/dmoshi/dimoshi-core/ledger"
	"github.com/dmoshi/dimoshi-core/store"
	"github.com/dmoshi/dimoshi-core/xcrypto"
)

// ErrVerificationFailed is returned by Execute when Verify() rejects the
// transaction before execution. Per the error-handling design, a
// verification failure is never recorded in TxStatus — the message is
// simply dropped.
var ErrVerificationFailed = errors.New("txn: verification failed")

// Transaction is the common contract every transaction kind implements.
type Transaction interface {
	// Hash returns the transaction's stable hash, used as its TxStatus key.
	Hash() xcrypto.Hash
	// Verify performs structural validation and signature verification. It
	// touches only the transaction's own bytes and cfg's permission
	// snapshot, so the host may run it in parallel across transactions.
	Verify(cfg ledger.Configuration) bool
	// Apply executes the transaction against fork. On a business-rule
	// failure it must return a *ledger.ExecError and must itself have
	// rolled the fork back to the point just after its service fee was
	// collected — Execute does not perform any rollback of its own.
	Apply(fork *store.Fork, cfg ledger.Configuration) error
}

// Execute runs the common contract for tx against s: verify, then apply,
// then record the outcome in TxStatus and commit the fork. Returns
// ErrVerificationFailed (not committed, not recorded) if Verify rejects
// the transaction. Any error returned that is not a *ledger.ExecError is
// an infrastructure failure and the fork is discarded uncommitted.
func Execute(s *store.Store, tx Transaction, cfg ledger.Configuration) (Status, error) {
	if !tx.Verify(cfg) {
		return Status{}, ErrVerificationFailed
	}

	fork, err := s.Fork()
	if err != nil {
		return Status{}, err
	}

	status := Status{Kind: ledger.ErrorKindNone}
	if applyErr := tx.Apply(fork, cfg); applyErr != nil {
		var execErr *ledger.ExecError
		if !errors.As(applyErr, &execErr) {
			return Status{}, applyErr
		}
		status = Status{Kind: execErr.Kind}
	}

	fork.Set(string(store.BucketTxStatus), ledger.TxStatusKey(tx.Hash()), status.Encode())
	if err := s.Apply(fork); err != nil {
		return Status{}, err
	}
	return status, nil
}

// CheckPermission reports whether every participant in participants is
// allowed to engage in a transaction requiring permission bit, per the
// effective mask (per-wallet override else global mask) in cfg.
func CheckPermission(cfg ledger.Configuration, bit uint32, participants ...xcrypto.PublicKey) bool {
	for _, p := range participants {
		if !cfg.Permissions.Allows(p, bit) {
			return false
		}
	}
	return true
}

// Distinct reports whether every key in keys is pairwise distinct.
func Distinct(keys ...xcrypto.PublicKey) bool {
	seen := make(map[xcrypto.PublicKey]bool, len(keys))
	for _, k := range keys {
		if seen[k] {
			return false
		}
		seen[k] = true
	}
	return true
}
