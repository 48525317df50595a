package txn

import (
	"github.com/dmoshi/dimoshi-core/codec"
	"github.com/dmoshi/dimoshi-core/ledger"
	"github.com/dmoshi/dimoshi-core/store"
	"github.com/dmoshi/dimoshi-core/xcrypto"
)

// AddAssets mints one or more new MetaAssets, or tops up an existing asset
// whose fee schedule matches exactly, crediting each receiver.
type AddAssets struct {
	Author          xcrypto.PublicKey
	Seed            uint64
	MetaAssets      []ledger.MetaAsset
	AuthorSignature xcrypto.Signature
}

const addAssetsFixedSize = 32 + 8 + 8

// Payload encodes the signable fields of the transaction.
func (a *AddAssets) Payload() []byte {
	w := codec.NewWriter(addAssetsFixedSize)
	w.PutFixed(0, a.Author[:])
	w.PutU64(32, a.Seed)
	blobs := make([][]byte, len(a.MetaAssets))
	for i, m := range a.MetaAssets {
		blobs[i] = m.Encode()
	}
	w.PutBlobSeq(40, blobs)
	return w.Bytes()
}

// DecodeAddAssetsPayload parses the signable fields from their canonical
// encoding.
func DecodeAddAssetsPayload(buf []byte) (*AddAssets, error) {
	r, err := codec.NewReader(buf, addAssetsFixedSize)
	if err != nil {
		return nil, err
	}
	a := &AddAssets{}
	copy(a.Author[:], r.Fixed(0, 32))
	a.Seed = r.U64(32)
	if _, err := r.BlobSeq(40, func(elem []byte) error {
		m, err := ledger.DecodeMetaAsset(elem)
		if err != nil {
			return err
		}
		a.MetaAssets = append(a.MetaAssets, m)
		return nil
	}); err != nil {
		return nil, err
	}
	return a, nil
}

// Hash implements Transaction.
func (a *AddAssets) Hash() xcrypto.Hash {
	return wireHash(codec.MessageAddAssets, a.Payload(), a.AuthorSignature)
}

// Verify implements Transaction.
func (a *AddAssets) Verify(cfg ledger.Configuration) bool {
	if !verifySignature(codec.MessageAddAssets, a.Payload(), a.Author, a.AuthorSignature) {
		return false
	}
	return CheckPermission(cfg, ledger.PermAddAssets, a.Author)
}

// totalAmount sums the requested amount across every MetaAsset in the
// transaction.
func (a *AddAssets) totalAmount() uint64 {
	var total uint64
	for _, m := range a.MetaAssets {
		total += m.Amount
	}
	return total
}

// Apply implements Transaction.
func (a *AddAssets) Apply(fork *store.Fork, cfg ledger.Configuration) error {
	view := NewWalletView(fork)
	fee := cfg.Fees.AddAssetsFee(a.totalAmount())
	if err := view.TransferBalance(a.Author, cfg.Fees.GenesisWallet, fee); err != nil {
		return err
	}
	view.Flush()

	checkpoint := fork.Checkpoint()
	if err := a.mint(fork, view); err != nil {
		if rbErr := fork.RollbackTo(checkpoint); rbErr != nil {
			return rbErr
		}
		return err
	}
	return nil
}

func (a *AddAssets) mint(fork *store.Fork, view *WalletView) error {
	for _, m := range a.MetaAssets {
		id := ledger.NewAssetId(m.MetaData, a.Author)
		info, exists, err := GetAssetInfo(fork, id)
		if err != nil {
			return err
		}
		if exists {
			if !info.Fees.Equal(m.Fees) {
				return ledger.NewExecError(ledger.ErrorKindInvalidAssetInfo, "fee schedule mismatch for asset "+id.String())
			}
		} else {
			info = ledger.AssetInfo{Creator: a.Author, Origin: a.Hash(), Fees: m.Fees}
		}
		info.TotalAmount += m.Amount
		SetAssetInfo(fork, id, info)

		w, err := view.Get(m.Receiver)
		if err != nil {
			return err
		}
		w.Credit(id, m.Amount)
	}
	view.Flush()
	return nil
}
