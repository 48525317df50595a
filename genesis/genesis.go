// Package genesis loads the YAML bootstrap file that seeds a fresh node:
// the initial fee schedule, permission mask, and genesis wallet
// allocation. This is distinct from ledger.Configuration, the on-chain
// binary record committed to the store — genesis.Spec is read once at
// process start and used to build that first Configuration plus the
// opening wallet balances.
package genesis

import (
	"fmt"
	"os"

	"github.com/dmoshi/dimoshi-core/ledger"
	"github.com/dmoshi/dimoshi-core/store"
	"github.com/dmoshi/dimoshi-core/xcrypto"
	"gopkg.in/yaml.v3"
)

// DefaultSupply is the default genesis wallet allocation: 13,700,000 DMC,
// i.e. 13,700,000 × 10^8 dimoshi (the indivisible unit).
const DefaultSupply = 13_700_000 * 1_0000_0000

// Spec is the parsed bootstrap file.
type Spec struct {
	ChainID string `yaml:"chain_id"`

	GenesisWallet string `yaml:"genesis_wallet"`
	InitialSupply uint64 `yaml:"initial_supply"`

	Fees struct {
		AddAssetsBase    uint64 `yaml:"add_assets_base"`
		AddAssetsPerUnit uint64 `yaml:"add_assets_per_unit"`
		DeleteAssets     uint64 `yaml:"delete_assets"`
		Exchange         uint64 `yaml:"exchange"`
		Trade            uint64 `yaml:"trade"`
		Transfer         uint64 `yaml:"transfer"`
	} `yaml:"fees"`

	PermissionsGlobalMask uint32 `yaml:"permissions_global_mask"`

	Alloc map[string]uint64 `yaml:"alloc"`
}

// Load reads and parses a bootstrap YAML file from path.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("genesis: read %s: %w", path, err)
	}
	spec := &Spec{}
	if err := yaml.Unmarshal(data, spec); err != nil {
		return nil, fmt.Errorf("genesis: parse %s: %w", path, err)
	}
	if spec.InitialSupply == 0 {
		spec.InitialSupply = DefaultSupply
	}
	return spec, nil
}

// Configuration converts spec into the on-chain ledger.Configuration
// record: the fee schedule plus global permission mask. Per-wallet
// permission overrides are not part of the genesis file; the override
// table starts empty.
func (s *Spec) Configuration() (ledger.Configuration, error) {
	genesisWallet, err := xcrypto.PublicKeyFromHex(s.GenesisWallet)
	if err != nil {
		return ledger.Configuration{}, fmt.Errorf("genesis: genesis_wallet: %w", err)
	}
	return ledger.Configuration{
		Fees: ledger.TransactionFees{
			AddAssetsBase:    s.Fees.AddAssetsBase,
			AddAssetsPerUnit: s.Fees.AddAssetsPerUnit,
			DeleteAssets:     s.Fees.DeleteAssets,
			Exchange:         s.Fees.Exchange,
			Trade:            s.Fees.Trade,
			Transfer:         s.Fees.Transfer,
			GenesisWallet:    genesisWallet,
		},
		Permissions: ledger.TransactionPermissions{
			GlobalMask: s.PermissionsGlobalMask,
			Overrides:  make(map[xcrypto.PublicKey]uint32),
		},
	}, nil
}

// Bootstrap writes the genesis Configuration and the initial wallet
// allocation (genesis wallet plus any extra alloc entries) into a fresh
// Store. Calling it twice against the same Store overwrites those wallet
// records (replacing any balance or assets they held) rather than adding
// to them.
func Bootstrap(s *store.Store, spec *Spec) error {
	cfg, err := spec.Configuration()
	if err != nil {
		return err
	}

	fork, err := s.Fork()
	if err != nil {
		return err
	}
	fork.Set(string(store.BucketConfiguration), ledger.ConfigurationKey, cfg.Encode())

	genesisWallet := ledger.ZeroWallet()
	genesisWallet.CreditBalance(spec.InitialSupply)
	fork.Set(string(store.BucketWallets), ledger.WalletKey(cfg.Fees.GenesisWallet), genesisWallet.Encode())

	for hexKey, balance := range spec.Alloc {
		pub, err := xcrypto.PublicKeyFromHex(hexKey)
		if err != nil {
			return fmt.Errorf("genesis: alloc entry %q: %w", hexKey, err)
		}
		w := ledger.ZeroWallet()
		w.CreditBalance(balance)
		fork.Set(string(store.BucketWallets), ledger.WalletKey(pub), w.Encode())
	}

	return s.Apply(fork)
}
