// Package consensus is the ambient batch-processing loop: it takes the
// ordered transaction batches the host consensus layer (out of scope for
// this module, per the core's component boundary) delivers, and runs them
// through txn.Execute one at a time, in order, on a single goroutine —
// exactly the sequential-per-fork model the core's concurrency section
// assumes. It does not implement BFT agreement, block proposal, or P2P
// replication; it only serializes execution and keeps a signed local
// record (a Commit) of which batches this node has processed, in the same
// shape the teacher's PoA.ProduceBlock commits a block: compute a root,
// sign, commit, flush.
package consensus

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/dmoshi/dimoshi-core/codec"
	"github.com/dmoshi/dimoshi-core/events"
	"github.com/dmoshi/dimoshi-core/ledgercfg"
	"github.com/dmoshi/dimoshi-core/store"
	"github.com/dmoshi/dimoshi-core/txn"
	"github.com/dmoshi/dimoshi-core/xcrypto"
)

// Commit is the local attestation that this node executed a batch of
// transactions, in order, reaching the TxRoot below. It is not a consensus
// artifact — no other node is required to agree with it — only a
// local audit record and a monotonic height counter for Engine.Tip.
type Commit struct {
	Height    uint64
	PrevHash  xcrypto.Hash
	TxRoot    xcrypto.Hash
	TxCount   int
	Proposer  xcrypto.PublicKey
	Signature xcrypto.Signature
}

const commitFixedSize = 8 + 32 + 32 + 8 + 32 + 64

func (c Commit) signingBytes() []byte {
	w := codec.NewWriter(commitFixedSize)
	w.PutU64(0, c.Height)
	w.PutFixed(8, c.PrevHash[:])
	w.PutFixed(40, c.TxRoot[:])
	w.PutU64(72, uint64(c.TxCount))
	w.PutFixed(80, c.Proposer[:])
	return w.Bytes()
}

// Encode is the canonical on-disk representation of a Commit, including
// its signature.
func (c Commit) Encode() []byte {
	w := codec.NewWriter(commitFixedSize)
	w.PutU64(0, c.Height)
	w.PutFixed(8, c.PrevHash[:])
	w.PutFixed(40, c.TxRoot[:])
	w.PutU64(72, uint64(c.TxCount))
	w.PutFixed(80, c.Proposer[:])
	w.PutFixed(112, c.Signature[:])
	return w.Bytes()
}

// DecodeCommit parses a Commit from its canonical encoding.
func DecodeCommit(buf []byte) (Commit, error) {
	r, err := codec.NewReader(buf, commitFixedSize)
	if err != nil {
		return Commit{}, err
	}
	var c Commit
	c.Height = r.U64(0)
	copy(c.PrevHash[:], r.Fixed(8, 32))
	copy(c.TxRoot[:], r.Fixed(40, 32))
	c.TxCount = int(r.U64(72))
	copy(c.Proposer[:], r.Fixed(80, 32))
	copy(c.Signature[:], r.Fixed(112, 64))
	return c, nil
}

// CommitKey is the store key a Commit is indexed under.
func CommitKey(height uint64) []byte {
	w := codec.NewWriter(8)
	w.PutU64(0, height)
	return w.Bytes()
}

// Engine drives sequential execution of ordered transaction batches
// against a Store, guarding the current tip behind a sync.RWMutex.
// ProcessBatch holds the write lock for the whole batch, so Tip blocks
// while a batch is in progress.
type Engine struct {
	mu      sync.RWMutex
	tip     Commit
	haveTip bool

	store   *store.Store
	cfg     *ledgercfg.Handle
	emitter *events.Emitter
	privKey xcrypto.PrivateKey
	pubKey  xcrypto.PublicKey
	log     *logrus.Entry
}

// New creates an Engine for the local node identified by privKey, reading
// the process-wide Configuration through cfg and emitting execution events
// through emitter.
func New(s *store.Store, cfg *ledgercfg.Handle, emitter *events.Emitter, privKey xcrypto.PrivateKey, pubKey xcrypto.PublicKey) *Engine {
	return &Engine{
		store:   s,
		cfg:     cfg,
		emitter: emitter,
		privKey: privKey,
		pubKey:  pubKey,
		log:     logrus.WithField("component", "consensus"),
	}
}

// Tip returns the most recently committed batch record. The second return
// value is false if no batch has been processed yet.
func (e *Engine) Tip() (Commit, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tip, e.haveTip
}

// ProcessBatch executes txs in order against the store, one txn.Execute
// call per transaction (each already atomic and self-committing per the
// executor's contract), then records and signs a local Commit covering the
// whole batch. A transaction that fails verification is dropped from the
// batch (never recorded, per the error-handling design) and does not
// advance TxCount; a transaction whose Apply fails a business rule is still
// included (it committed its rolled-back-except-fee state and a non-Ok
// TxStatus). Only an infrastructure error aborts ProcessBatch outright.
func (e *Engine) ProcessBatch(txs []txn.Transaction) (Commit, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	prevHash := xcrypto.Hash{}
	nextHeight := uint64(1)
	if e.haveTip {
		prevHash = e.tip.TxRoot
		nextHeight = e.tip.Height + 1
	}

	cfg := e.cfg.Get()
	hashes := make([][]byte, 0, len(txs))
	processed := 0
	for _, tx := range txs {
		status, err := txn.Execute(e.store, tx, cfg)
		if err == txn.ErrVerificationFailed {
			continue
		}
		if err != nil {
			return Commit{}, fmt.Errorf("consensus: execute: %w", err)
		}
		h := tx.Hash()
		hashes = append(hashes, h[:])
		processed++
		e.emitter.Emit(events.Event{
			Type:        txEventType(status.Ok()),
			TxID:        h.String(),
			BatchHeight: int64(nextHeight),
			Data:        map[string]any{"ok": status.Ok()},
		})
	}

	commit := Commit{
		Height:   nextHeight,
		PrevHash: prevHash,
		TxRoot:   xcrypto.DomainHashConcat(hashes...),
		TxCount:  processed,
		Proposer: e.pubKey,
	}
	commit.Signature = xcrypto.Sign(e.privKey, commit.signingBytes())

	fork, err := e.store.Fork()
	if err != nil {
		return Commit{}, err
	}
	fork.Set(string(store.BucketCommits), CommitKey(commit.Height), commit.Encode())
	if err := e.store.Apply(fork); err != nil {
		return Commit{}, err
	}

	e.tip = commit
	e.haveTip = true

	e.emitter.Emit(events.Event{
		Type:        events.EventBatchCommit,
		BatchHeight: int64(commit.Height),
		Data:        map[string]any{"tx_root": commit.TxRoot.String(), "tx_count": commit.TxCount},
	})

	e.log.WithFields(logrus.Fields{
		"height":   commit.Height,
		"tx_count": commit.TxCount,
		"tx_root":  commit.TxRoot.String(),
	}).Info("batch committed")

	return commit, nil
}

func txEventType(ok bool) events.EventType {
	if ok {
		return events.EventTxExecuted
	}
	return events.EventTxFailed
}
