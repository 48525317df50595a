package txn

import (
	"github.com/dmoshi/dimoshi-core/codec"
	"github.com/dmoshi/dimoshi-core/internal/feeshare"
	"github.com/dmoshi/dimoshi-core/ledger"
	"github.com/dmoshi/dimoshi-core/store"
	"github.com/dmoshi/dimoshi-core/xcrypto"
)

func transferSelector(f ledger.Fees) ledger.Fee { return f.Transfer }

// Transfer moves dimoshi and asset bundles from the author to a recipient,
// charging the flat transfer fee plus each moved asset's third-party
// transfer fee, all paid by the sender.
type Transfer struct {
	Author          xcrypto.PublicKey
	Recipient       xcrypto.PublicKey
	Amount          uint64
	Assets          []ledger.AssetBundle
	Seed            uint64
	DataInfo        string
	AuthorSignature xcrypto.Signature
}

const transferFixedSize = 32 + 32 + 8 + 8 + 8 + 8

// Payload encodes the signable fields of the transaction.
func (t *Transfer) Payload() []byte {
	w := codec.NewWriter(transferFixedSize)
	w.PutFixed(0, t.Author[:])
	w.PutFixed(32, t.Recipient[:])
	w.PutU64(64, t.Amount)
	w.PutRecords(72, len(t.Assets), func(i int) []byte { return encodeBundleRecord(t.Assets[i]) })
	w.PutU64(80, t.Seed)
	w.PutString(88, t.DataInfo)
	return w.Bytes()
}

// DecodeTransferPayload parses the signable fields from their canonical
// encoding.
func DecodeTransferPayload(buf []byte) (*Transfer, error) {
	r, err := codec.NewReader(buf, transferFixedSize)
	if err != nil {
		return nil, err
	}
	t := &Transfer{}
	copy(t.Author[:], r.Fixed(0, 32))
	copy(t.Recipient[:], r.Fixed(32, 32))
	t.Amount = r.U64(64)
	if _, err := r.Records(72, bundleRecordSize, func(elem []byte) error {
		b, err := decodeBundleRecord(elem)
		if err != nil {
			return err
		}
		t.Assets = append(t.Assets, b)
		return nil
	}); err != nil {
		return nil, err
	}
	t.Seed = r.U64(80)
	dataInfo, err := r.String(88)
	if err != nil {
		return nil, err
	}
	t.DataInfo = dataInfo
	return t, nil
}

// Hash implements Transaction.
func (t *Transfer) Hash() xcrypto.Hash {
	return wireHash(codec.MessageTransfer, t.Payload(), t.AuthorSignature)
}

// Verify implements Transaction.
func (t *Transfer) Verify(cfg ledger.Configuration) bool {
	if t.Author == t.Recipient {
		return false
	}
	if !verifySignature(codec.MessageTransfer, t.Payload(), t.Author, t.AuthorSignature) {
		return false
	}
	return CheckPermission(cfg, ledger.PermTransfer, t.Author, t.Recipient)
}

// Apply implements Transaction.
func (t *Transfer) Apply(fork *store.Fork, cfg ledger.Configuration) error {
	view := NewWalletView(fork)
	if err := view.TransferBalance(t.Author, cfg.Fees.GenesisWallet, cfg.Fees.Transfer); err != nil {
		return err
	}
	view.Flush()

	checkpoint := fork.Checkpoint()
	if err := t.move(fork, view); err != nil {
		if rbErr := fork.RollbackTo(checkpoint); rbErr != nil {
			return rbErr
		}
		return err
	}
	return nil
}

func (t *Transfer) move(fork *store.Fork, view *WalletView) error {
	bundles := make([]feeshare.AssetAmount, len(t.Assets))
	for i, b := range t.Assets {
		bundles[i] = feeshare.AssetAmount{Id: b.Id, Amount: b.Amount}
	}
	lines, err := feeshare.ComputeLines(fork, bundles, transferSelector)
	if err != nil {
		return err
	}
	for _, line := range lines {
		owed := feeshare.Split(line, ledger.StrategySender, feeshare.Principals{Sender: t.Author})
		for payer, amount := range owed {
			if err := view.TransferBalance(payer, line.Creator, amount); err != nil {
				return err
			}
		}
	}

	if err := view.TransferBalance(t.Author, t.Recipient, t.Amount); err != nil {
		return err
	}
	for _, b := range t.Assets {
		if err := view.MoveBundle(t.Author, t.Recipient, b.Id, b.Amount); err != nil {
			return err
		}
	}
	view.Flush()
	return nil
}
