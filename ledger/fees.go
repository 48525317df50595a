package ledger

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// UFract64 is an unsigned rational with a denominator that fits in 64 bits,
// used for fractional fee rates. All execution-time arithmetic on UFract64
// is integer-only: fixed-point fraction_num/fraction_den, never float64.
type UFract64 struct {
	Num uint64
	Den uint64
}

// ParseUFract64 parses decimal text such as "0.0" or "0.25" into a
// UFract64. Parsing is the one place a decimal library is allowed to touch
// this value — decimal.Decimal never appears past this boundary, so the
// fee-application hot path stays integer-only per the no-floating-point
// rule.
func ParseUFract64(s string) (UFract64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return UFract64{}, fmt.Errorf("ledger: invalid fraction %q: %w", s, err)
	}
	if d.IsNegative() {
		return UFract64{}, fmt.Errorf("ledger: fraction %q must be non-negative", s)
	}
	exp := d.Exponent()
	if exp > 0 {
		d = d.Shift(exp)
		exp = 0
	}
	den := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(-exp)), nil)
	num := new(big.Int).Set(d.Coefficient())
	g := new(big.Int).GCD(nil, nil, new(big.Int).Abs(num), new(big.Int).Set(den))
	if g.Sign() != 0 {
		num.Div(num, g)
		den.Div(den, g)
	}
	if !num.IsUint64() || !den.IsUint64() {
		return UFract64{}, fmt.Errorf("ledger: fraction %q exceeds 64-bit precision", s)
	}
	return UFract64{Num: num.Uint64(), Den: den.Uint64()}, nil
}

// Apply computes floor(fraction * amount) using integer arithmetic, with the
// intermediate product carried in a 128-bit-capable big.Int to avoid
// overflow for large amounts and numerators.
func (f UFract64) Apply(amount uint64) uint64 {
	if f.Den == 0 {
		return 0
	}
	product := new(big.Int).Mul(big.NewInt(0).SetUint64(f.Num), new(big.Int).SetUint64(amount))
	product.Div(product, new(big.Int).SetUint64(f.Den))
	return product.Uint64()
}

// Fee is an asset fee with a flat component, charged once per transfer of
// any amount, and a fractional component proportional to the amount.
type Fee struct {
	Fixed    uint64
	Fraction UFract64
}

// ApplyTo computes the total fee owed for amount units of the asset this
// Fee schedules: fixed + floor(fraction * amount).
func (f Fee) ApplyTo(amount uint64) uint64 {
	return f.Fixed + f.Fraction.Apply(amount)
}

// Equal reports whether two Fee schedules are identical, used by AddAssets
// to detect a fee-schedule mismatch against a pre-existing AssetInfo.
func (f Fee) Equal(o Fee) bool {
	return f.Fixed == o.Fixed && f.Fraction == o.Fraction
}

// Fees is the immutable per-asset fee schedule set at asset creation.
type Fees struct {
	Trade    Fee
	Exchange Fee
	Transfer Fee
}

// Equal reports whether two Fees schedules are identical field-by-field.
func (f Fees) Equal(o Fees) bool {
	return f.Trade.Equal(o.Trade) && f.Exchange.Equal(o.Exchange) && f.Transfer.Equal(o.Transfer)
}

// SplitHalves divides a fee F between two payers using integer division;
// the odd remainder stays with the payer of record (the first return
// value), per the two-payer-halves rule.
func SplitHalves(total uint64) (payerOfRecordShare, otherShare uint64) {
	half := total / 2
	otherShare = half
	payerOfRecordShare = total - half
	return payerOfRecordShare, otherShare
}
