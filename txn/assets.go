package txn

import (
	"github.com/dmoshi/dimoshi-core/ledger"
	"github.com/dmoshi/dimoshi-core/store"
)

// GetAssetInfo fetches the AssetInfo for id from fork, returning
// (zero, false, nil) if the asset has never existed or has been fully
// deleted.
func GetAssetInfo(fork *store.Fork, id ledger.AssetId) (ledger.AssetInfo, bool, error) {
	raw, err := fork.Get(string(store.BucketAssets), ledger.AssetKey(id))
	if err == store.ErrNotFound {
		return ledger.AssetInfo{}, false, nil
	}
	if err != nil {
		return ledger.AssetInfo{}, false, err
	}
	info, err := ledger.DecodeAssetInfo(raw)
	if err != nil {
		return ledger.AssetInfo{}, false, err
	}
	return info, true, nil
}

// SetAssetInfo writes info for id into the fork.
func SetAssetInfo(fork *store.Fork, id ledger.AssetId, info ledger.AssetInfo) {
	fork.Set(string(store.BucketAssets), ledger.AssetKey(id), info.Encode())
}

// DeleteAssetInfo removes the AssetInfo entry for id from the fork, used
// once total_amount reaches zero via DeleteAssets.
func DeleteAssetInfo(fork *store.Fork, id ledger.AssetId) {
	fork.Delete(string(store.BucketAssets), ledger.AssetKey(id))
}
