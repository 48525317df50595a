package ledger

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/dmoshi/dimoshi-core/codec"
	"github.com/dmoshi/dimoshi-core/xcrypto"
)

// AssetId is the 16-byte identifier derived from (meta_data, creator).
type AssetId [16]byte

// String renders the id as lowercase hex.
func (id AssetId) String() string { return hex.EncodeToString(id[:]) }

// NewAssetId derives the AssetId for metaData minted by creator.
func NewAssetId(metaData string, creator xcrypto.PublicKey) AssetId {
	return AssetId(xcrypto.AssetId([]byte(metaData), creator))
}

// AssetBundle is a quantity of one asset held in a wallet. Identity is the
// AssetId alone; Amount must always be strictly positive — a bundle
// reaching zero is removed from its wallet rather than kept at zero.
type AssetBundle struct {
	Id     AssetId
	Amount uint64
}

const assetBundleRecordSize = 16 + 8

func encodeAssetBundle(b AssetBundle) []byte {
	out := make([]byte, assetBundleRecordSize)
	copy(out[0:16], b.Id[:])
	binary.LittleEndian.PutUint64(out[16:24], b.Amount)
	return out
}

func decodeAssetBundle(buf []byte) (AssetBundle, error) {
	if len(buf) != assetBundleRecordSize {
		return AssetBundle{}, fmt.Errorf("ledger: malformed asset bundle record")
	}
	var b AssetBundle
	copy(b.Id[:], buf[0:16])
	b.Amount = binary.LittleEndian.Uint64(buf[16:24])
	return b, nil
}

// Wallet is the mapping-key-addressed per-PublicKey account record:
// a dimoshi balance and an insertion-ordered, duplicate-free-by-id sequence
// of asset holdings.
type Wallet struct {
	Balance uint64
	Assets  []AssetBundle
}

// ZeroWallet is the synthesized value returned for a PublicKey that has
// never been written to the wallets index.
func ZeroWallet() Wallet { return Wallet{} }

// indexOf returns the position of id in w.Assets, or -1.
func (w *Wallet) indexOf(id AssetId) int {
	for i, b := range w.Assets {
		if b.Id == id {
			return i
		}
	}
	return -1
}

// BundleAmount returns the held amount of id, 0 if the wallet holds none.
func (w *Wallet) BundleAmount(id AssetId) uint64 {
	if i := w.indexOf(id); i >= 0 {
		return w.Assets[i].Amount
	}
	return 0
}

// Credit adds amount units of id to the wallet, merging into an existing
// bundle for id if present, else appending a new bundle at the tail
// (preserving insertion order).
func (w *Wallet) Credit(id AssetId, amount uint64) {
	if amount == 0 {
		return
	}
	if i := w.indexOf(id); i >= 0 {
		w.Assets[i].Amount += amount
		return
	}
	w.Assets = append(w.Assets, AssetBundle{Id: id, Amount: amount})
}

// Debit removes amount units of id from the wallet, returning
// InsufficientAssets if the wallet does not hold enough. A bundle whose
// amount reaches zero is removed entirely.
func (w *Wallet) Debit(id AssetId, amount uint64) error {
	if amount == 0 {
		return nil
	}
	i := w.indexOf(id)
	if i < 0 || w.Assets[i].Amount < amount {
		return NewExecError(ErrorKindInsufficientAssets, fmt.Sprintf("wallet holds insufficient %s", id))
	}
	w.Assets[i].Amount -= amount
	if w.Assets[i].Amount == 0 {
		w.Assets = append(w.Assets[:i], w.Assets[i+1:]...)
	}
	return nil
}

// CreditBalance adds amount dimoshi to the wallet's balance.
func (w *Wallet) CreditBalance(amount uint64) { w.Balance += amount }

// DebitBalance removes amount dimoshi from the wallet's balance, returning
// InsufficientFunds if the balance would underflow.
func (w *Wallet) DebitBalance(amount uint64) error {
	if w.Balance < amount {
		return NewExecError(ErrorKindInsufficientFunds, "balance below requested debit")
	}
	w.Balance -= amount
	return nil
}

const walletFixedSize = 8 + 8 // balance(8) + assets offset/count(8)

// Encode produces the canonical encoding of w.
func (w Wallet) Encode() []byte {
	writer := codec.NewWriter(walletFixedSize)
	writer.PutU64(0, w.Balance)
	writer.PutRecords(8, len(w.Assets), func(i int) []byte { return encodeAssetBundle(w.Assets[i]) })
	return writer.Bytes()
}

// DecodeWallet parses a Wallet from its canonical encoding.
func DecodeWallet(buf []byte) (Wallet, error) {
	r, err := codec.NewReader(buf, walletFixedSize)
	if err != nil {
		return Wallet{}, err
	}
	var w Wallet
	w.Balance = r.U64(0)
	if _, err := r.Records(8, assetBundleRecordSize, func(elem []byte) error {
		b, err := decodeAssetBundle(elem)
		if err != nil {
			return err
		}
		w.Assets = append(w.Assets, b)
		return nil
	}); err != nil {
		return Wallet{}, err
	}
	return w, nil
}
