package txn

import (
	"github.com/dmoshi/dimoshi-core/codec"
	"github.com/dmoshi/dimoshi-core/ledger"
	"github.com/dmoshi/dimoshi-core/store"
	"github.com/dmoshi/dimoshi-core/xcrypto"
)

// bundleRecordSize mirrors ledger's private assetBundleRecordSize (16 id +
// 8 amount); duplicated here since AssetBundle's wire encoding is a txn
// concern, not a ledger one.
const bundleRecordSize = 16 + 8

func encodeBundleRecord(b ledger.AssetBundle) []byte {
	out := make([]byte, bundleRecordSize)
	copy(out[0:16], b.Id[:])
	putU64(out[16:24], b.Amount)
	return out
}

func decodeBundleRecord(buf []byte) (ledger.AssetBundle, error) {
	if len(buf) != bundleRecordSize {
		return ledger.AssetBundle{}, codec.ErrSegmentOutOfBounds
	}
	var b ledger.AssetBundle
	copy(b.Id[:], buf[0:16])
	b.Amount = getU64(buf[16:24])
	return b, nil
}

// DeleteAssets burns previously-minted assets the author created, reducing
// its own holdings and the asset's total_amount.
type DeleteAssets struct {
	Author          xcrypto.PublicKey
	Bundles         []ledger.AssetBundle
	Seed            uint64
	AuthorSignature xcrypto.Signature
}

const deleteAssetsFixedSize = 32 + 8 + 8

// Payload encodes the signable fields of the transaction.
func (d *DeleteAssets) Payload() []byte {
	w := codec.NewWriter(deleteAssetsFixedSize)
	w.PutFixed(0, d.Author[:])
	w.PutU64(32, d.Seed)
	w.PutRecords(40, len(d.Bundles), func(i int) []byte { return encodeBundleRecord(d.Bundles[i]) })
	return w.Bytes()
}

// DecodeDeleteAssetsPayload parses the signable fields from their
// canonical encoding.
func DecodeDeleteAssetsPayload(buf []byte) (*DeleteAssets, error) {
	r, err := codec.NewReader(buf, deleteAssetsFixedSize)
	if err != nil {
		return nil, err
	}
	d := &DeleteAssets{}
	copy(d.Author[:], r.Fixed(0, 32))
	d.Seed = r.U64(32)
	if _, err := r.Records(40, bundleRecordSize, func(elem []byte) error {
		b, err := decodeBundleRecord(elem)
		if err != nil {
			return err
		}
		d.Bundles = append(d.Bundles, b)
		return nil
	}); err != nil {
		return nil, err
	}
	return d, nil
}

// Hash implements Transaction.
func (d *DeleteAssets) Hash() xcrypto.Hash {
	return wireHash(codec.MessageDeleteAssets, d.Payload(), d.AuthorSignature)
}

// Verify implements Transaction.
func (d *DeleteAssets) Verify(cfg ledger.Configuration) bool {
	if !verifySignature(codec.MessageDeleteAssets, d.Payload(), d.Author, d.AuthorSignature) {
		return false
	}
	return CheckPermission(cfg, ledger.PermDeleteAssets, d.Author)
}

// Apply implements Transaction.
func (d *DeleteAssets) Apply(fork *store.Fork, cfg ledger.Configuration) error {
	view := NewWalletView(fork)
	if err := view.TransferBalance(d.Author, cfg.Fees.GenesisWallet, cfg.Fees.DeleteAssets); err != nil {
		return err
	}
	view.Flush()

	checkpoint := fork.Checkpoint()
	if err := d.burn(fork, view); err != nil {
		if rbErr := fork.RollbackTo(checkpoint); rbErr != nil {
			return rbErr
		}
		return err
	}
	return nil
}

func (d *DeleteAssets) burn(fork *store.Fork, view *WalletView) error {
	author, err := view.Get(d.Author)
	if err != nil {
		return err
	}
	for _, b := range d.Bundles {
		info, exists, err := GetAssetInfo(fork, b.Id)
		if !exists || err != nil {
			return ledger.NewExecError(ledger.ErrorKindInvalidTransaction, "asset "+b.Id.String()+" not found")
		}
		if info.Creator != d.Author {
			return ledger.NewExecError(ledger.ErrorKindInvalidTransaction, "only the creator may delete "+b.Id.String())
		}
		if err := author.Debit(b.Id, b.Amount); err != nil {
			return err
		}
		info.TotalAmount -= b.Amount
		if info.TotalAmount == 0 {
			DeleteAssetInfo(fork, b.Id)
		} else {
			SetAssetInfo(fork, b.Id, info)
		}
	}
	view.Flush()
	return nil
}
