package ledger

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/dmoshi/dimoshi-core/codec"
	"github.com/dmoshi/dimoshi-core/xcrypto"
)

// Permission bits, one per transaction kind that is subject to the
// permission gate.
const (
	PermAddAssets uint32 = 1 << iota
	PermDeleteAssets
	PermExchange
	PermExchangeIntermediary
	PermTrade
	PermTradeIntermediary
	PermTransfer
	PermBid
	PermAsk
)

// TransactionFees enumerates the flat, per-transaction-kind service fees
// and names the genesis wallet that receives them.
type TransactionFees struct {
	AddAssetsBase    uint64
	AddAssetsPerUnit uint64
	DeleteAssets     uint64
	Exchange         uint64
	Trade            uint64
	Transfer         uint64
	GenesisWallet    xcrypto.PublicKey
}

// AddAssetsFee computes the total AddAssets service fee for totalAmount
// units requested across the transaction's MetaAsset list.
func (f TransactionFees) AddAssetsFee(totalAmount uint64) uint64 {
	return f.AddAssetsBase + f.AddAssetsPerUnit*totalAmount
}

// TransactionPermissions carries the global allow-mask and per-wallet
// overrides checked by the permission gate before verify/execute.
type TransactionPermissions struct {
	GlobalMask uint32
	Overrides  map[xcrypto.PublicKey]uint32
}

// EffectiveMask returns the per-wallet override if one is set, else the
// global mask.
func (p TransactionPermissions) EffectiveMask(wallet xcrypto.PublicKey) uint32 {
	if mask, ok := p.Overrides[wallet]; ok {
		return mask
	}
	return p.GlobalMask
}

// Allows reports whether wallet is permitted to participate in a
// transaction requiring bit.
func (p TransactionPermissions) Allows(wallet xcrypto.PublicKey, bit uint32) bool {
	return p.EffectiveMask(wallet)&bit != 0
}

// Configuration is the process-wide, replicated fee schedule and
// permission table, changeable only by a configuration-change transaction
// processed by the host consensus layer.
type Configuration struct {
	Fees        TransactionFees
	Permissions TransactionPermissions
}

const transactionFeesFixedSize = 8*6 + 32 // six u64 fees + genesis wallet

func encodeTransactionFees(f TransactionFees) []byte {
	w := codec.NewWriter(transactionFeesFixedSize)
	w.PutU64(0, f.AddAssetsBase)
	w.PutU64(8, f.AddAssetsPerUnit)
	w.PutU64(16, f.DeleteAssets)
	w.PutU64(24, f.Exchange)
	w.PutU64(32, f.Trade)
	w.PutU64(40, f.Transfer)
	w.PutFixed(48, f.GenesisWallet[:])
	return w.Bytes()
}

func decodeTransactionFees(buf []byte) (TransactionFees, error) {
	if len(buf) != transactionFeesFixedSize {
		return TransactionFees{}, fmt.Errorf("ledger: malformed transaction fees record")
	}
	var f TransactionFees
	f.AddAssetsBase = binary.LittleEndian.Uint64(buf[0:8])
	f.AddAssetsPerUnit = binary.LittleEndian.Uint64(buf[8:16])
	f.DeleteAssets = binary.LittleEndian.Uint64(buf[16:24])
	f.Exchange = binary.LittleEndian.Uint64(buf[24:32])
	f.Trade = binary.LittleEndian.Uint64(buf[32:40])
	f.Transfer = binary.LittleEndian.Uint64(buf[40:48])
	copy(f.GenesisWallet[:], buf[48:80])
	return f, nil
}

func encodeOverrideEntry(key xcrypto.PublicKey, mask uint32) []byte {
	out := make([]byte, 32+4)
	copy(out[0:32], key[:])
	binary.LittleEndian.PutUint32(out[32:36], mask)
	return out
}

func decodeOverrideEntry(buf []byte) (xcrypto.PublicKey, uint32, error) {
	if len(buf) != 36 {
		return xcrypto.PublicKey{}, 0, fmt.Errorf("ledger: malformed permission override entry")
	}
	var key xcrypto.PublicKey
	copy(key[:], buf[0:32])
	return key, binary.LittleEndian.Uint32(buf[32:36]), nil
}

const configurationFixedSize = transactionFeesFixedSize + 4 + 8 // fees + global mask + overrides seg

// Encode produces the canonical encoding of c. Overrides are sorted by key
// so the encoding is deterministic across replicas.
func (c Configuration) Encode() []byte {
	w := codec.NewWriter(configurationFixedSize)
	w.PutFixed(0, encodeTransactionFees(c.Fees))
	w.PutU32(transactionFeesFixedSize, c.Permissions.GlobalMask)

	keys := make([]xcrypto.PublicKey, 0, len(c.Permissions.Overrides))
	for k := range c.Permissions.Overrides {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i][:], keys[j][:]) < 0 })

	w.PutRecords(transactionFeesFixedSize+4, len(keys), func(i int) []byte {
		return encodeOverrideEntry(keys[i], c.Permissions.Overrides[keys[i]])
	})
	return w.Bytes()
}

// DecodeConfiguration parses a Configuration from its canonical encoding.
func DecodeConfiguration(buf []byte) (Configuration, error) {
	r, err := codec.NewReader(buf, configurationFixedSize)
	if err != nil {
		return Configuration{}, err
	}
	fees, err := decodeTransactionFees(r.Fixed(0, transactionFeesFixedSize))
	if err != nil {
		return Configuration{}, err
	}
	var c Configuration
	c.Fees = fees
	c.Permissions.GlobalMask = r.U32(transactionFeesFixedSize)
	c.Permissions.Overrides = make(map[xcrypto.PublicKey]uint32)
	if _, err := r.Records(transactionFeesFixedSize+4, 36, func(elem []byte) error {
		key, mask, err := decodeOverrideEntry(elem)
		if err != nil {
			return err
		}
		c.Permissions.Overrides[key] = mask
		return nil
	}); err != nil {
		return Configuration{}, err
	}
	return c, nil
}
