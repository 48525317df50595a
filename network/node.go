package network

import (
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dmoshi/dimoshi-core/consensus"
	"github.com/dmoshi/dimoshi-core/txn"
)

// EngineSubmitter adapts a *consensus.Engine to BatchSubmitter, discarding
// the resulting Commit. Each call runs the given transactions as their own
// batch; a single peer-relayed transaction becomes a one-transaction batch,
// the same way rpc.submitTx submits one.
type EngineSubmitter struct {
	Engine *consensus.Engine
}

func (s EngineSubmitter) ProcessBatch(txs []txn.Transaction) error {
	_, err := s.Engine.ProcessBatch(txs)
	return err
}

// MessageHandler is called for each received message.
type MessageHandler func(peer *Peer, msg Message)

// DefaultMaxPeers is the default limit on simultaneous peer connections.
const DefaultMaxPeers = 50

// BatchSubmitter hands a decoded transaction to the node's consensus
// engine. Satisfied by a thin adapter over *consensus.Engine — network
// stays decoupled from the engine's package so this stub can be swapped
// for a real gossip layer without touching consensus.
type BatchSubmitter interface {
	ProcessBatch(txs []txn.Transaction) error
}

// Node is a minimal stub peer registry: it accepts TCP connections,
// exchanges length-prefixed JSON messages, and forwards any MsgTx payload
// to the local submitter. It performs no gossip, no block sync, and no
// peer discovery beyond the seed list handed to it at startup — real P2P
// replication is outside this module's boundary.
type Node struct {
	nodeID     string
	listenAddr string
	submitter  BatchSubmitter
	tlsConfig  *tls.Config // nil → plain TCP
	maxPeers   int
	log        *logrus.Entry

	mu       sync.RWMutex
	peers    map[string]*Peer
	handlers map[MsgType]MessageHandler

	listener net.Listener
	stopCh   chan struct{}
}

// NewNode creates a Node that will listen on listenAddr.
// If tlsCfg is non-nil the listener and outgoing connections use TLS.
func NewNode(nodeID, listenAddr string, submitter BatchSubmitter, tlsCfg *tls.Config) *Node {
	n := &Node{
		nodeID:     nodeID,
		listenAddr: listenAddr,
		submitter:  submitter,
		tlsConfig:  tlsCfg,
		maxPeers:   DefaultMaxPeers,
		peers:      make(map[string]*Peer),
		handlers:   make(map[MsgType]MessageHandler),
		stopCh:     make(chan struct{}),
		log:        logrus.WithField("component", "network"),
	}
	n.Handle(MsgTx, n.handleTx)
	return n
}

// Handle registers a handler for msg type.
func (n *Node) Handle(typ MsgType, h MessageHandler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[typ] = h
}

// Start begins accepting connections.
func (n *Node) Start() error {
	var ln net.Listener
	var err error
	if n.tlsConfig != nil {
		ln, err = tls.Listen("tcp", n.listenAddr, n.tlsConfig)
	} else {
		ln, err = net.Listen("tcp", n.listenAddr)
	}
	if err != nil {
		return fmt.Errorf("listen %s: %w", n.listenAddr, err)
	}
	n.listener = ln
	go n.acceptLoop()
	return nil
}

// Stop shuts down the node.
func (n *Node) Stop() {
	close(n.stopCh)
	if n.listener != nil {
		n.listener.Close()
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, p := range n.peers {
		p.Close()
	}
}

// AddPeer dials addr and registers the peer.
func (n *Node) AddPeer(id, addr string) error {
	peer, err := Connect(id, addr, n.tlsConfig)
	if err != nil {
		return err
	}
	n.mu.Lock()
	n.peers[id] = peer
	n.mu.Unlock()
	go n.readLoop(peer)

	hello, err := json.Marshal(map[string]string{"node_id": n.nodeID})
	if err != nil {
		n.log.WithError(err).Error("marshal hello")
		return nil
	}
	if err := peer.Send(Message{Type: MsgHello, Payload: hello}); err != nil {
		n.log.WithError(err).WithField("peer", id).Error("send hello")
	}
	return nil
}

// Peer returns the connected peer with the given id, or nil if not found.
func (n *Node) Peer(id string) *Peer {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.peers[id]
}

// Broadcast sends msg to all connected peers.
func (n *Node) Broadcast(msg Message) {
	n.mu.RLock()
	peers := make([]*Peer, 0, len(n.peers))
	for _, p := range n.peers {
		peers = append(peers, p)
	}
	n.mu.RUnlock()
	for _, p := range peers {
		if err := p.Send(msg); err != nil {
			n.log.WithError(err).WithField("peer", p.ID).Error("broadcast")
		}
	}
}

// BroadcastTx hex-encodes a transaction's wire bytes and sends it to all
// connected peers as a MsgTx.
func (n *Node) BroadcastTx(wire []byte) {
	payload, err := json.Marshal(hex.EncodeToString(wire))
	if err != nil {
		n.log.WithError(err).Error("marshal tx payload")
		return
	}
	n.Broadcast(Message{Type: MsgTx, Payload: payload})
}

func (n *Node) acceptLoop() {
	for {
		conn, err := n.listener.Accept()
		if err != nil {
			select {
			case <-n.stopCh:
				return
			default:
				n.log.WithError(err).Error("accept")
				time.Sleep(100 * time.Millisecond)
				continue
			}
		}
		n.mu.RLock()
		peerCount := len(n.peers)
		n.mu.RUnlock()
		if peerCount >= n.maxPeers {
			n.log.WithField("max_peers", n.maxPeers).WithField("remote", conn.RemoteAddr()).Warn("rejecting connection: max peers reached")
			conn.Close()
			continue
		}
		peer := NewPeer(conn.RemoteAddr().String(), conn.RemoteAddr().String(), conn)
		n.mu.Lock()
		n.peers[peer.ID] = peer
		n.mu.Unlock()
		go n.readLoop(peer)
	}
}

func (n *Node) readLoop(peer *Peer) {
	defer func() {
		if r := recover(); r != nil {
			n.log.WithField("peer", peer.ID).Errorf("readLoop panic: %v", r)
		}
		peer.Close()
		n.mu.Lock()
		delete(n.peers, peer.ID)
		n.mu.Unlock()
	}()
	for {
		msg, err := peer.Receive()
		if err != nil {
			return
		}
		n.mu.RLock()
		h, ok := n.handlers[msg.Type]
		n.mu.RUnlock()
		if ok {
			h(peer, msg)
		}
	}
}

func (n *Node) handleTx(_ *Peer, msg Message) {
	var wireHex string
	if err := json.Unmarshal(msg.Payload, &wireHex); err != nil {
		n.log.WithError(err).Error("unmarshal tx payload")
		return
	}
	wire, err := hex.DecodeString(wireHex)
	if err != nil {
		n.log.WithError(err).Error("decode tx wire hex")
		return
	}
	tx, err := txn.DecodeTransaction(wire)
	if err != nil {
		n.log.WithError(err).Error("decode tx")
		return
	}
	if err := n.submitter.ProcessBatch([]txn.Transaction{tx}); err != nil {
		n.log.WithError(err).Error("submit tx")
	}
}
