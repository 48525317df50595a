package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/dmoshi/dimoshi-core/codec"
	"github.com/dmoshi/dimoshi-core/xcrypto"
)

const feeRecordSize = 8 + 16 // fixed(8) + fraction{num(8),den(8)}
const feesRecordSize = 3 * feeRecordSize

func encodeFee(f Fee) []byte {
	out := make([]byte, feeRecordSize)
	binary.LittleEndian.PutUint64(out[0:8], f.Fixed)
	binary.LittleEndian.PutUint64(out[8:16], f.Fraction.Num)
	binary.LittleEndian.PutUint64(out[16:24], f.Fraction.Den)
	return out
}

func decodeFee(buf []byte) Fee {
	return Fee{
		Fixed: binary.LittleEndian.Uint64(buf[0:8]),
		Fraction: UFract64{
			Num: binary.LittleEndian.Uint64(buf[8:16]),
			Den: binary.LittleEndian.Uint64(buf[16:24]),
		},
	}
}

func encodeFees(f Fees) []byte {
	out := make([]byte, 0, feesRecordSize)
	out = append(out, encodeFee(f.Trade)...)
	out = append(out, encodeFee(f.Exchange)...)
	out = append(out, encodeFee(f.Transfer)...)
	return out
}

func decodeFees(buf []byte) (Fees, error) {
	if len(buf) != feesRecordSize {
		return Fees{}, fmt.Errorf("ledger: malformed fees record")
	}
	return Fees{
		Trade:    decodeFee(buf[0:feeRecordSize]),
		Exchange: decodeFee(buf[feeRecordSize : 2*feeRecordSize]),
		Transfer: decodeFee(buf[2*feeRecordSize : 3*feeRecordSize]),
	}, nil
}

// AssetInfo is the global registry entry for an AssetId: who created it,
// which transaction introduced it, how many units exist in total, and its
// immutable fee schedule.
type AssetInfo struct {
	Creator     xcrypto.PublicKey
	Origin      xcrypto.Hash
	TotalAmount uint64
	Fees        Fees
}

const assetInfoFixedSize = 32 + 32 + 8 + feesRecordSize

// Encode produces the canonical encoding of a.
func (a AssetInfo) Encode() []byte {
	w := codec.NewWriter(assetInfoFixedSize)
	w.PutFixed(0, a.Creator[:])
	w.PutFixed(32, a.Origin[:])
	w.PutU64(64, a.TotalAmount)
	w.PutFixed(72, encodeFees(a.Fees))
	return w.Bytes()
}

// DecodeAssetInfo parses an AssetInfo from its canonical encoding.
func DecodeAssetInfo(buf []byte) (AssetInfo, error) {
	r, err := codec.NewReader(buf, assetInfoFixedSize)
	if err != nil {
		return AssetInfo{}, err
	}
	var a AssetInfo
	copy(a.Creator[:], r.Fixed(0, 32))
	copy(a.Origin[:], r.Fixed(32, 32))
	a.TotalAmount = r.U64(64)
	fees, err := decodeFees(r.Fixed(72, feesRecordSize))
	if err != nil {
		return AssetInfo{}, err
	}
	a.Fees = fees
	return a, nil
}

// MetaAsset is one entry of an AddAssets transaction's mint list. Its
// AssetId is derived from (MetaData, the minting transaction's author).
type MetaAsset struct {
	Receiver xcrypto.PublicKey
	MetaData string
	Amount   uint64
	Fees     Fees
}

const metaAssetFixedSize = 32 + 8 + 8 + feesRecordSize

// Encode produces the canonical encoding of m.
func (m MetaAsset) Encode() []byte {
	w := codec.NewWriter(metaAssetFixedSize)
	w.PutFixed(0, m.Receiver[:])
	w.PutString(32, m.MetaData)
	w.PutU64(40, m.Amount)
	w.PutFixed(48, encodeFees(m.Fees))
	return w.Bytes()
}

// DecodeMetaAsset parses a MetaAsset from its canonical encoding.
func DecodeMetaAsset(buf []byte) (MetaAsset, error) {
	r, err := codec.NewReader(buf, metaAssetFixedSize)
	if err != nil {
		return MetaAsset{}, err
	}
	var m MetaAsset
	copy(m.Receiver[:], r.Fixed(0, 32))
	metaData, err := r.String(32)
	if err != nil {
		return MetaAsset{}, err
	}
	m.MetaData = metaData
	m.Amount = r.U64(40)
	fees, err := decodeFees(r.Fixed(48, feesRecordSize))
	if err != nil {
		return MetaAsset{}, err
	}
	m.Fees = fees
	return m, nil
}

// TradeAsset extends AssetBundle with a per-unit price in dimoshi, used by
// Trade/TradeIntermediary transactions.
type TradeAsset struct {
	Id     AssetId
	Amount uint64
	Price  uint64
}

const tradeAssetRecordSize = 16 + 8 + 8

func encodeTradeAsset(t TradeAsset) []byte {
	out := make([]byte, tradeAssetRecordSize)
	copy(out[0:16], t.Id[:])
	binary.LittleEndian.PutUint64(out[16:24], t.Amount)
	binary.LittleEndian.PutUint64(out[24:32], t.Price)
	return out
}

func decodeTradeAsset(buf []byte) (TradeAsset, error) {
	if len(buf) != tradeAssetRecordSize {
		return TradeAsset{}, fmt.Errorf("ledger: malformed trade asset record")
	}
	var t TradeAsset
	copy(t.Id[:], buf[0:16])
	t.Amount = binary.LittleEndian.Uint64(buf[16:24])
	t.Price = binary.LittleEndian.Uint64(buf[24:32])
	return t, nil
}

// TotalPrice computes Σ amount_i * price_i across a set of TradeAssets, the
// quantity a Trade transaction moves from buyer to seller.
func TotalPrice(assets []TradeAsset) uint64 {
	var total uint64
	for _, a := range assets {
		total += a.Amount * a.Price
	}
	return total
}
