package ledger

import "github.com/dmoshi/dimoshi-core/xcrypto"

// Key builders for the store's logical indices (store.BucketWallets etc.),
// kept in one place so every package agrees on how identifiers map to keys.

// WalletKey returns the store key for a wallet's PublicKey.
func WalletKey(pub xcrypto.PublicKey) []byte { return append([]byte{}, pub[:]...) }

// AssetKey returns the store key for an AssetId.
func AssetKey(id AssetId) []byte { return append([]byte{}, id[:]...) }

// TxStatusKey returns the store key for a transaction hash's status entry.
func TxStatusKey(hash xcrypto.Hash) []byte { return append([]byte{}, hash[:]...) }

// ConfigurationKey is the single reserved key the Configuration record is
// stored under.
var ConfigurationKey = []byte("configuration")

// OrderBookKey returns the store key for an AssetId's OpenOffers record in
// the order-book bid and ask buckets.
func OrderBookKey(id AssetId) []byte { return append([]byte{}, id[:]...) }
