// Package fees is the fee-estimation engine: a pure, read-only companion to
// the transaction executor (package txn) that reports the dimoshi each
// principal is expected to pay for a transaction, without mutating state.
// It shares its strategy-split and self-payer-suppression logic with txn
// through the internal feeshare package so the two can never drift apart.
package fees

import (
	"github.com/dmoshi/dimoshi-core/internal/feeshare"
	"github.com/dmoshi/dimoshi-core/ledger"
	"github.com/dmoshi/dimoshi-core/store"
	"github.com/dmoshi/dimoshi-core/xcrypto"
)

func tradeSelector(f ledger.Fees) ledger.Fee    { return f.Trade }
func exchangeSelector(f ledger.Fees) ledger.Fee { return f.Exchange }
func transferSelector(f ledger.Fees) ledger.Fee { return f.Transfer }

func addToTotals(totals map[xcrypto.PublicKey]uint64, contributions map[xcrypto.PublicKey]uint64) {
	for payer, amount := range contributions {
		totals[payer] += amount
	}
}

// AddAssets estimates the flat service fee an AddAssets transaction owes;
// there is no third-party component and no strategy.
func AddAssets(cfg ledger.Configuration, author xcrypto.PublicKey, totalAmount uint64) map[xcrypto.PublicKey]uint64 {
	return map[xcrypto.PublicKey]uint64{author: cfg.Fees.AddAssetsFee(totalAmount)}
}

// DeleteAssets estimates the flat DeleteAssets service fee.
func DeleteAssets(cfg ledger.Configuration, author xcrypto.PublicKey) map[xcrypto.PublicKey]uint64 {
	return map[xcrypto.PublicKey]uint64{author: cfg.Fees.DeleteAssets}
}

// Transfer estimates the Transfer service fee plus the third-party fees
// owed to each asset's creator for the bundles changing hands, all paid by
// the sender.
func Transfer(reader store.Reader, cfg ledger.Configuration, sender xcrypto.PublicKey, assets []feeshare.AssetAmount) (map[xcrypto.PublicKey]uint64, error) {
	totals := map[xcrypto.PublicKey]uint64{sender: cfg.Fees.Transfer}
	lines, err := feeshare.ComputeLines(reader, assets, transferSelector)
	if err != nil {
		return nil, err
	}
	addToTotals(totals, feeshare.SplitAll(lines, ledger.StrategySender, feeshare.Principals{Sender: sender}))
	return totals, nil
}

func invalidStrategy(kind string) error {
	return ledger.NewExecError(ledger.ErrorKindInvalidTransaction, "strategy not accepted by "+kind)
}

// Exchange estimates the Exchange service fee plus third-party asset fees
// across both principals' bundles. Intermediary is not an accepted
// strategy for a plain Exchange.
func Exchange(reader store.Reader, cfg ledger.Configuration, strategy ledger.FeeStrategy, sender, recipient xcrypto.PublicKey, senderAssets, recipientAssets []feeshare.AssetAmount) (map[xcrypto.PublicKey]uint64, error) {
	if strategy == ledger.StrategyIntermediary {
		return nil, invalidStrategy("exchange")
	}
	principals := feeshare.Principals{Sender: sender, Recipient: recipient}
	totals := make(map[xcrypto.PublicKey]uint64)
	addToTotals(totals, feeshare.Split(feeshare.Line{Creator: cfg.Fees.GenesisWallet, Owed: cfg.Fees.Exchange}, strategy, principals))

	combined := append(append([]feeshare.AssetAmount{}, senderAssets...), recipientAssets...)
	lines, err := feeshare.ComputeLines(reader, combined, exchangeSelector)
	if err != nil {
		return nil, err
	}
	addToTotals(totals, feeshare.SplitAll(lines, strategy, principals))
	return totals, nil
}

// ExchangeIntermediary estimates the Exchange service fee, third-party
// asset fees, and the intermediary's commission, all split per strategy
// (Intermediary included).
func ExchangeIntermediary(reader store.Reader, cfg ledger.Configuration, strategy ledger.FeeStrategy, sender, recipient, intermediary xcrypto.PublicKey, commission uint64, senderAssets, recipientAssets []feeshare.AssetAmount) (map[xcrypto.PublicKey]uint64, error) {
	principals := feeshare.Principals{Sender: sender, Recipient: recipient, Intermediary: intermediary}
	totals := make(map[xcrypto.PublicKey]uint64)
	addToTotals(totals, feeshare.Split(feeshare.Line{Creator: cfg.Fees.GenesisWallet, Owed: cfg.Fees.Exchange}, strategy, principals))
	addToTotals(totals, feeshare.Split(feeshare.Line{Creator: intermediary, Owed: commission}, strategy, principals))

	combined := append(append([]feeshare.AssetAmount{}, senderAssets...), recipientAssets...)
	lines, err := feeshare.ComputeLines(reader, combined, exchangeSelector)
	if err != nil {
		return nil, err
	}
	addToTotals(totals, feeshare.SplitAll(lines, strategy, principals))
	return totals, nil
}

// Trade estimates the Trade service fee plus third-party trade fees on the
// assets changing hands. Intermediary is not an accepted strategy for a
// plain Trade.
func Trade(reader store.Reader, cfg ledger.Configuration, strategy ledger.FeeStrategy, buyer, seller xcrypto.PublicKey, assets []feeshare.AssetAmount) (map[xcrypto.PublicKey]uint64, error) {
	if strategy == ledger.StrategyIntermediary {
		return nil, invalidStrategy("trade")
	}
	// In Trade, the buyer authors the outer message and stands as "sender"
	// for strategy-split purposes; the seller is the "recipient".
	principals := feeshare.Principals{Sender: buyer, Recipient: seller}
	totals := make(map[xcrypto.PublicKey]uint64)
	addToTotals(totals, feeshare.Split(feeshare.Line{Creator: cfg.Fees.GenesisWallet, Owed: cfg.Fees.Trade}, strategy, principals))

	lines, err := feeshare.ComputeLines(reader, assets, tradeSelector)
	if err != nil {
		return nil, err
	}
	addToTotals(totals, feeshare.SplitAll(lines, strategy, principals))
	return totals, nil
}

// TradeIntermediary estimates the Trade service fee, third-party trade
// fees, and the intermediary's commission.
func TradeIntermediary(reader store.Reader, cfg ledger.Configuration, strategy ledger.FeeStrategy, buyer, seller, intermediary xcrypto.PublicKey, commission uint64, assets []feeshare.AssetAmount) (map[xcrypto.PublicKey]uint64, error) {
	principals := feeshare.Principals{Sender: buyer, Recipient: seller, Intermediary: intermediary}
	totals := make(map[xcrypto.PublicKey]uint64)
	addToTotals(totals, feeshare.Split(feeshare.Line{Creator: cfg.Fees.GenesisWallet, Owed: cfg.Fees.Trade}, strategy, principals))
	addToTotals(totals, feeshare.Split(feeshare.Line{Creator: intermediary, Owed: commission}, strategy, principals))

	lines, err := feeshare.ComputeLines(reader, assets, tradeSelector)
	if err != nil {
		return nil, err
	}
	addToTotals(totals, feeshare.SplitAll(lines, strategy, principals))
	return totals, nil
}
