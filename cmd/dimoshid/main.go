// Command dimoshid starts a dimoshi node: it opens the local store,
// bootstraps genesis on a fresh database, wires the consensus engine,
// the RPC surface, and the stub P2P listener, then runs until signalled.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/dmoshi/dimoshi-core/config"
	"github.com/dmoshi/dimoshi-core/consensus"
	"github.com/dmoshi/dimoshi-core/crypto/certgen"
	"github.com/dmoshi/dimoshi-core/events"
	"github.com/dmoshi/dimoshi-core/genesis"
	"github.com/dmoshi/dimoshi-core/ledger"
	"github.com/dmoshi/dimoshi-core/ledgercfg"
	"github.com/dmoshi/dimoshi-core/network"
	"github.com/dmoshi/dimoshi-core/rpc"
	"github.com/dmoshi/dimoshi-core/store"
	"github.com/dmoshi/dimoshi-core/wallet"
)

var log = logrus.WithField("component", "dimoshid")

func main() {
	cfgPath := flag.String("config", "config.json", "path to config file")
	keyPath := flag.String("key", "validator.key", "path to keystore file")
	genKey := flag.Bool("genkey", false, "generate a new validator key and exit")
	genCerts := flag.String("gencerts", "", "generate CA + node TLS certs into the given directory and exit (requires node ID from config)")
	flag.Parse()

	// Read keystore password from environment (not CLI flags — they leak via ps).
	password := os.Getenv("DIMOSHI_PASSWORD")
	if password == "" {
		log.Warn("DIMOSHI_PASSWORD not set — keystore will use an empty password")
	}

	if *genKey {
		w, err := wallet.Generate()
		if err != nil {
			log.WithError(err).Fatal("generate wallet")
		}
		if err := wallet.SaveKey(*keyPath, password, w.PrivKey()); err != nil {
			log.WithError(err).Fatal("save key")
		}
		fmt.Printf("Generated key. Public key (validator address): %s\n", w.PubKey())
		fmt.Printf("Saved to: %s\n", *keyPath)
		return
	}

	if *genCerts != "" {
		cfgForCerts, err := loadConfig(*cfgPath)
		if err != nil {
			log.WithError(err).Fatal("config")
		}
		if err := certgen.GenerateAll(*genCerts, cfgForCerts.NodeID, nil); err != nil {
			log.WithError(err).Fatal("gencerts")
		}
		fmt.Printf("Certificates generated in %s for node %q\n", *genCerts, cfgForCerts.NodeID)
		return
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		log.WithError(err).Fatal("config")
	}

	privKey, err := wallet.LoadKey(*keyPath, password)
	if err != nil {
		log.WithError(err).Fatal("load validator key")
	}
	pubKey := privKey.Public()

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.WithError(err).Fatal("mkdir data dir")
	}
	s, err := store.Open(cfg.DataDir + "/dimoshi.db")
	if err != nil {
		log.WithError(err).Fatal("open store")
	}
	defer s.Close()

	if err := bootstrapIfFresh(s, cfg.GenesisPath); err != nil {
		log.WithError(err).Fatal("genesis bootstrap")
	}

	snap, err := s.Snapshot()
	if err != nil {
		log.WithError(err).Fatal("snapshot")
	}
	cfgHandle, err := ledgercfg.Load(snap)
	snap.Close()
	if err != nil {
		log.WithError(err).Fatal("load ledger configuration")
	}

	emitter := events.NewEmitter()
	engine := consensus.New(s, cfgHandle, emitter, privKey, pubKey)

	tlsCfg, err := config.LoadTLSConfig(cfg.TLS)
	if err != nil {
		log.WithError(err).Fatal("tls")
	}
	if tlsCfg != nil {
		log.Info("mTLS enabled for P2P")
	}

	p2pAddr := fmt.Sprintf(":%d", cfg.P2PPort)
	node := network.NewNode(cfg.NodeID, p2pAddr, network.EngineSubmitter{Engine: engine}, tlsCfg)
	if err := node.Start(); err != nil {
		log.WithError(err).Fatal("p2p start")
	}
	defer node.Stop()
	log.WithField("addr", p2pAddr).Info("P2P listening")

	for _, sp := range cfg.SeedPeers {
		if err := node.AddPeer(sp.ID, sp.Addr); err != nil {
			log.WithError(err).WithField("peer", sp.ID).Warn("seed peer connect failed")
			continue
		}
		log.WithField("peer", sp.ID).WithField("addr", sp.Addr).Info("connected to seed peer")
	}

	rpcAddr := fmt.Sprintf(":%d", cfg.RPCPort)
	rpcHandler := rpc.NewHandler(s, cfgHandle, engine)
	rpcServer := rpc.NewServer(rpcAddr, rpcHandler, cfg.RPCAuthToken)
	if err := rpcServer.Start(); err != nil {
		log.WithError(err).Fatal("rpc start")
	}
	defer rpcServer.Stop()
	log.WithField("addr", rpcAddr).Info("RPC listening")
	if cfg.RPCAuthToken != "" {
		log.Info("RPC Bearer token authentication enabled")
	}

	log.WithField("validator", pubKey.String()).Info("node running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down")
	// Deferred calls run in LIFO: rpcServer.Stop → node.Stop → s.Close
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.WithField("path", path).Warn("config file not found, using defaults")
			return config.DefaultConfig(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// bootstrapIfFresh runs the one-time genesis load when the store has no
// Configuration record yet; an already-initialised store is left alone.
func bootstrapIfFresh(s *store.Store, genesisPath string) error {
	snap, err := s.Snapshot()
	if err != nil {
		return err
	}
	_, getErr := snap.Get(string(store.BucketConfiguration), ledger.ConfigurationKey)
	snap.Close()
	if getErr != store.ErrNotFound {
		return getErr // nil if already present, or a real read error
	}

	spec, err := genesis.Load(genesisPath)
	if err != nil {
		return fmt.Errorf("load genesis spec: %w", err)
	}
	if err := genesis.Bootstrap(s, spec); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	log.WithField("chain_id", spec.ChainID).Info("genesis bootstrapped")
	return nil
}
