package config

import (
	"path/filepath"
	"testing"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Validators = []string{"aa00000000000000000000000000000000000000000000000000000000000000"[:64]}
	return cfg
}

func TestDefaultConfigWithValidatorPassesValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejectsEmptyChainID(t *testing.T) {
	cfg := validConfig()
	cfg.ChainID = ""
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for empty chain_id")
	}
}

func TestValidateRejectsEmptyGenesisPath(t *testing.T) {
	cfg := validConfig()
	cfg.GenesisPath = ""
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for empty genesis_path")
	}
}

func TestValidateRejectsSamePorts(t *testing.T) {
	cfg := validConfig()
	cfg.P2PPort = cfg.RPCPort
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for identical rpc_port and p2p_port")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	cfg := validConfig()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.ChainID != cfg.ChainID || loaded.GenesisPath != cfg.GenesisPath {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
}
