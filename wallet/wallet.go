package wallet

import (
	"github.com/dmoshi/dimoshi-core/codec"
	"github.com/dmoshi/dimoshi-core/ledger"
	"github.com/dmoshi/dimoshi-core/txn"
	"github.com/dmoshi/dimoshi-core/xcrypto"
)

// Wallet holds a key pair and provides transaction-building helpers for
// AddAssets, DeleteAssets and Transfer. Exchange, Trade, Bid and Ask have
// no helper here; build them from package txn's types directly.
type Wallet struct {
	priv xcrypto.PrivateKey
	pub  xcrypto.PublicKey
}

// New creates a Wallet from an existing private key.
func New(priv xcrypto.PrivateKey) *Wallet {
	return &Wallet{priv: priv, pub: priv.Public()}
}

// Generate creates a Wallet with a freshly generated key pair.
func Generate() (*Wallet, error) {
	priv, _, err := xcrypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return New(priv), nil
}

// PrivKey returns the raw private key (handle with care).
func (w *Wallet) PrivKey() xcrypto.PrivateKey {
	return w.priv
}

// PubKey returns the hex-encoded ed25519 public key, used as this
// wallet's address on the ledger.
func (w *Wallet) PubKey() string {
	return w.pub.String()
}

// PublicKey returns the raw public key.
func (w *Wallet) PublicKey() xcrypto.PublicKey {
	return w.pub
}

func (w *Wallet) sign(messageType codec.MessageType, payload []byte) xcrypto.Signature {
	return xcrypto.Sign(w.priv, codec.SigningBytes(txn.NetworkID, uint16(messageType), payload))
}

// Transfer builds and signs a Transfer moving amount plus any asset
// bundles to recipient.
func (w *Wallet) Transfer(recipient xcrypto.PublicKey, amount uint64, assets []ledger.AssetBundle, seed uint64, dataInfo string) *txn.Transfer {
	t := &txn.Transfer{
		Author:    w.pub,
		Recipient: recipient,
		Amount:    amount,
		Assets:    assets,
		Seed:      seed,
		DataInfo:  dataInfo,
	}
	t.AuthorSignature = w.sign(codec.MessageTransfer, t.Payload())
	return t
}

// AddAssets builds and signs an AddAssets transaction minting the given
// asset definitions to this wallet.
func (w *Wallet) AddAssets(metaAssets []ledger.MetaAsset, seed uint64) *txn.AddAssets {
	t := &txn.AddAssets{
		Author:     w.pub,
		MetaAssets: metaAssets,
		Seed:       seed,
	}
	t.AuthorSignature = w.sign(codec.MessageAddAssets, t.Payload())
	return t
}

// DeleteAssets builds and signs a DeleteAssets transaction burning the
// given asset bundles from this wallet's balances.
func (w *Wallet) DeleteAssets(bundles []ledger.AssetBundle, seed uint64) *txn.DeleteAssets {
	t := &txn.DeleteAssets{
		Author:  w.pub,
		Bundles: bundles,
		Seed:    seed,
	}
	t.AuthorSignature = w.sign(codec.MessageDeleteAssets, t.Payload())
	return t
}
