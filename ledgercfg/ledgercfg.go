// Package ledgercfg holds the process-wide handle to the replicated
// ledger.Configuration record: the fee schedule and permission table
// every transaction is verified and executed against. It is loaded once
// from a store.Reader at process start; Replace and ReloadFrom swap it
// atomically, so concurrent readers never observe a torn value. Nothing
// else in this repository calls Replace or ReloadFrom, and package txn
// defines no configuration-change transaction.
package ledgercfg

import (
	"fmt"
	"sync/atomic"

	"github.com/dmoshi/dimoshi-core/ledger"
	"github.com/dmoshi/dimoshi-core/store"
)

// Handle is a process-wide, concurrency-safe holder of the current
// Configuration. A zero Handle holds no Configuration until Replace
// installs one (Get panics before then); Load returns a seeded Handle.
type Handle struct {
	current atomic.Pointer[ledger.Configuration]
}

// Load reads the Configuration record out of reader and returns a Handle
// seeded with it.
func Load(reader store.Reader) (*Handle, error) {
	raw, err := reader.Get(string(store.BucketConfiguration), ledger.ConfigurationKey)
	if err != nil {
		return nil, fmt.Errorf("ledgercfg: load configuration: %w", err)
	}
	cfg, err := ledger.DecodeConfiguration(raw)
	if err != nil {
		return nil, fmt.Errorf("ledgercfg: decode configuration: %w", err)
	}
	h := &Handle{}
	h.current.Store(&cfg)
	return h, nil
}

// Get returns the current Configuration. The returned value is a
// snapshot: callers that hold onto it across a Replace see the old value,
// which is the desired behavior for a single transaction's verify/execute
// pass.
func (h *Handle) Get() ledger.Configuration {
	return *h.current.Load()
}

// Replace atomically installs cfg as the current Configuration; Get calls
// that follow return it.
func (h *Handle) Replace(cfg ledger.Configuration) {
	h.current.Store(&cfg)
}

// ReloadFrom re-reads the Configuration record from reader and installs it.
func (h *Handle) ReloadFrom(reader store.Reader) error {
	raw, err := reader.Get(string(store.BucketConfiguration), ledger.ConfigurationKey)
	if err != nil {
		return fmt.Errorf("ledgercfg: reload configuration: %w", err)
	}
	cfg, err := ledger.DecodeConfiguration(raw)
	if err != nil {
		return fmt.Errorf("ledgercfg: decode configuration: %w", err)
	}
	h.Replace(cfg)
	return nil
}
