// Package feeshare holds the strategy-split and self-payer-suppression
// logic shared between the fee estimator (fees package, read-only) and the
// transaction executor (txn package, mutating), so the two can never drift
// apart on who owes what.
package feeshare

import (
	"github.com/dmoshi/dimoshi-core/ledger"
	"github.com/dmoshi/dimoshi-core/store"
	"github.com/dmoshi/dimoshi-core/xcrypto"
)

// AssetAmount names an asset and the quantity a third-party fee is
// computed against (a bundle changing hands, or a trade line item).
type AssetAmount struct {
	Id     ledger.AssetId
	Amount uint64
}

// Line is one asset's resolved third-party fee: who created it and how
// much is owed in total for the amount being moved.
type Line struct {
	Id      ledger.AssetId
	Creator xcrypto.PublicKey
	Owed    uint64
}

// FeeSelector picks the relevant Fee out of an asset's immutable Fees
// schedule (trade, exchange, or transfer) for the transaction kind in
// progress.
type FeeSelector func(ledger.Fees) ledger.Fee

// ComputeLines fetches AssetInfo for each bundle from reader and computes
// the third-party fee owed for it. Returns ledger.ErrorKindAssetNotFound
// (wrapped in a *ledger.ExecError) if any asset is unknown.
func ComputeLines(reader store.Reader, bundles []AssetAmount, selector FeeSelector) ([]Line, error) {
	lines := make([]Line, 0, len(bundles))
	for _, b := range bundles {
		raw, err := reader.Get(string(store.BucketAssets), ledger.AssetKey(b.Id))
		if err != nil {
			return nil, ledger.NewExecError(ledger.ErrorKindAssetNotFound, "asset "+b.Id.String()+" not found")
		}
		info, err := ledger.DecodeAssetInfo(raw)
		if err != nil {
			return nil, err
		}
		fee := selector(info.Fees)
		lines = append(lines, Line{Id: b.Id, Creator: info.Creator, Owed: fee.ApplyTo(b.Amount)})
	}
	return lines, nil
}

// Principals names the wallets playing fee-paying roles in a transaction.
// Fields not applicable to the transaction's strategy are left zero.
type Principals struct {
	Sender       xcrypto.PublicKey
	Recipient    xcrypto.PublicKey
	Intermediary xcrypto.PublicKey
}

// Split resolves one Line into a map of payer -> amount owed to the line's
// creator, under strategy. A payer that is also the line's creator has
// its leg suppressed entirely (a self-transfer is a no-op, not a credit to
// itself of its own fee). RecipientAndSender splits the owed amount in two
// halves via the two-payer-halves rule, sender as payer of record.
func Split(line Line, strategy ledger.FeeStrategy, p Principals) map[xcrypto.PublicKey]uint64 {
	out := make(map[xcrypto.PublicKey]uint64)
	add := func(payer xcrypto.PublicKey, amount uint64) {
		if amount == 0 || payer == line.Creator {
			return
		}
		out[payer] += amount
	}
	switch strategy {
	case ledger.StrategyRecipient:
		add(p.Recipient, line.Owed)
	case ledger.StrategySender:
		add(p.Sender, line.Owed)
	case ledger.StrategyRecipientAndSender:
		senderShare, recipientShare := ledger.SplitHalves(line.Owed)
		add(p.Sender, senderShare)
		add(p.Recipient, recipientShare)
	case ledger.StrategyIntermediary:
		add(p.Intermediary, line.Owed)
	}
	return out
}

// SplitAll applies Split across every line and accumulates the result into
// a single payer -> total-owed map, merging contributions to the same
// payer across different assets. It does not resolve which creator each
// contribution is destined for; callers that need that (the executor, to
// credit creators) should iterate lines individually with Split.
func SplitAll(lines []Line, strategy ledger.FeeStrategy, p Principals) map[xcrypto.PublicKey]uint64 {
	totals := make(map[xcrypto.PublicKey]uint64)
	for _, line := range lines {
		for payer, amount := range Split(line, strategy, p) {
			totals[payer] += amount
		}
	}
	return totals
}
