// Copyright (c) 2025 The clst developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package node implements the accept loop, peer table, gossip/flood relay,
// and chain-sync orchestration described by the wire protocol, grounded on
// the original NetworkManager/Connection pairing and the Stratum server's
// accept-goroutine-per-connection shutdown discipline.
package node

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/decred/dcrd/lru"

	"github.com/clst-chain/clst-node/block"
	"github.com/clst-chain/clst-node/chain"
	"github.com/clst-chain/clst-node/internal/clsterr"
	"github.com/clst-chain/clst-node/peer"
	"github.com/clst-chain/clst-node/txn"
	"github.com/clst-chain/clst-node/wire"
)

// seenCacheLimit bounds the gossip-dedup LRU: once this many hashes have
// been flooded, the oldest are evicted. It is sized well above a single
// block's transaction count so a slow peer's retransmits still dedup.
const seenCacheLimit = 8192

// dialBacklog bounds how many PEER_LIST-driven outbound dials run at once.
const dialBacklog = 8

// blockFailureThreshold is how many consecutive add_foreign_block failures
// trigger a CHAIN_REQUEST broadcast, per §4.7.
const blockFailureThreshold = 3

// peerRecord is one PeerTable entry: a peer is uniquely identified by
// (Address, Port), mirroring the original Peer struct.
type peerRecord struct {
	Address string
	Port    int
	Kind    wire.NodeKind
	ID      string
}

func (r peerRecord) key() string {
	return r.Address + ":" + strconv.Itoa(r.Port)
}

// Node owns the listener, the PeerTable, the ConnectionTable, and the
// gossip-dedup cache. It consumes a *chain.Chain as its single source of
// truth; Node never mutates the mempool or balances directly.
type Node struct {
	id   string
	kind wire.NodeKind
	host string
	port int

	chain *chain.Chain

	listener net.Listener

	peersMu sync.Mutex
	peers   map[string]peerRecord
	conns   map[*peer.Peer]struct{}

	seen *lru.Cache[string]

	foreignBlockFailures atomic.Int32

	dialSem chan struct{}

	wg       sync.WaitGroup
	quit     chan struct{}
	quitOnce sync.Once
}

// New constructs a Node bound to (host, port) with the given kind, backed
// by chain. It does not start listening; call Start for that.
func New(c *chain.Chain, host string, port int, kind wire.NodeKind) *Node {
	return &Node{
		id:      randomID(),
		kind:    kind,
		host:    host,
		port:    port,
		chain:   c,
		peers:   make(map[string]peerRecord),
		conns:   make(map[*peer.Peer]struct{}),
		seen:    lru.NewCache[string](seenCacheLimit),
		dialSem: make(chan struct{}, dialBacklog),
		quit:    make(chan struct{}),
	}
}

func randomID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "0000000000000000"
	}
	return hex.EncodeToString(b[:])
}

// Start begins listening for inbound connections and accepting them in the
// background.
func (n *Node) Start() error {
	ln, err := net.Listen("tcp", net.JoinHostPort(n.host, strconv.Itoa(n.port)))
	if err != nil {
		return clsterr.Wrap(clsterr.Network, "failed to listen on "+n.host+":"+strconv.Itoa(n.port), err)
	}
	n.listener = ln

	n.wg.Add(1)
	go n.acceptLoop()

	log.Infof("node %s listening on %s as %s", n.id, ln.Addr(), n.kind)
	return nil
}

// Stop proceeds through the shutdown sequence: stop accepting, close every
// connection (both directions), join every I/O goroutine. Every Send flushes
// its frame before returning, so no buffered writes are left; a Send still
// in flight when its connection closes fails. It does not close the store; the caller does that
// last.
func (n *Node) Stop() {
	n.quitOnce.Do(func() { close(n.quit) })
	if n.listener != nil {
		_ = n.listener.Close()
	}

	n.peersMu.Lock()
	for p := range n.conns {
		_ = p.Close()
	}
	n.peersMu.Unlock()

	n.wg.Wait()
	log.Infof("node %s stopped", n.id)
}

func (n *Node) acceptLoop() {
	defer n.wg.Done()
	for {
		conn, err := n.listener.Accept()
		if err != nil {
			select {
			case <-n.quit:
				return
			default:
				log.Warnf("accept error: %v", err)
				continue
			}
		}
		p := peer.New(conn, false)
		n.registerConn(p)
		n.wg.Add(1)
		go n.runConnection(p)
	}
}

// Connect dials (address, port), performs the handshake, and starts the
// connection's read loop in the background.
func (n *Node) Connect(address string, port int) error {
	conn, err := net.Dial("tcp", net.JoinHostPort(address, strconv.Itoa(port)))
	if err != nil {
		return clsterr.Wrap(clsterr.Network, "failed to connect to "+address+":"+strconv.Itoa(port), err)
	}
	p := peer.New(conn, true)
	n.registerConn(p)

	if err := n.sendHandshake(p); err != nil {
		n.unregisterConn(p)
		return err
	}

	n.wg.Add(1)
	go n.runConnection(p)
	return nil
}

func (n *Node) registerConn(p *peer.Peer) {
	n.peersMu.Lock()
	n.conns[p] = struct{}{}
	n.peersMu.Unlock()
}

func (n *Node) unregisterConn(p *peer.Peer) {
	n.peersMu.Lock()
	delete(n.conns, p)
	if p.ID != "" {
		for key, rec := range n.peers {
			if rec.ID == p.ID {
				delete(n.peers, key)
				break
			}
		}
	}
	n.peersMu.Unlock()
	_ = p.Close()
}

func (n *Node) sendHandshake(p *peer.Peer) error {
	return p.Send(wire.Message{
		Type:     wire.Handshake,
		SenderID: n.id,
		Payload:  wire.EncodeHandshake(wire.Handshake{Kind: n.kind, ListenPort: n.port}),
	})
}

func (n *Node) runConnection(p *peer.Peer) {
	defer n.wg.Done()
	defer n.unregisterConn(p)

	if err := p.ReadLoop(func(msg wire.Message) error {
		return n.handleMessage(p, msg)
	}); err != nil {
		log.Debugf("connection to %s ended: %v", p.RemoteAddr(), err)
	}
}

func (n *Node) handleMessage(p *peer.Peer, msg wire.Message) error {
	switch msg.Type {
	case wire.Handshake:
		return n.onHandshake(p, msg)
	case wire.Transaction:
		return n.onTransaction(p, msg)
	case wire.Block:
		return n.onBlock(p, msg)
	case wire.ChainRequest:
		return n.onChainRequest(p)
	case wire.ChainResponse:
		return n.onChainResponse(p, msg)
	case wire.PeerList:
		return n.onPeerList(msg)
	case wire.Ping:
		return p.Send(wire.Message{Type: wire.Pong, SenderID: n.id})
	case wire.Pong:
		return nil
	default:
		log.Debugf("dropping unhandled message type from %s", p.RemoteAddr())
		return nil
	}
}

func (n *Node) onHandshake(p *peer.Peer, msg wire.Message) error {
	hs, err := wire.DecodeHandshake(msg.Payload)
	if err != nil {
		log.Debugf("malformed handshake from %s: %v", p.RemoteAddr(), err)
		return nil
	}
	p.Kind = hs.Kind
	p.ListenPort = hs.ListenPort
	p.ID = msg.SenderID

	if n.isSelf(p) {
		log.Debugf("dropping self-connection from %s", p.RemoteAddr())
		return clsterr.New(clsterr.Network, "self-connection detected")
	}

	rec := peerRecord{Address: remoteHost(p.RemoteAddr()), Port: hs.ListenPort, Kind: hs.Kind, ID: msg.SenderID}
	n.peersMu.Lock()
	n.peers[rec.key()] = rec
	n.peersMu.Unlock()

	return p.Send(wire.Message{
		Type:     wire.PeerList,
		SenderID: n.id,
		Payload:  wire.EncodePeerList(n.peerList()),
	})
}

func (n *Node) isSelf(p *peer.Peer) bool {
	if p.ListenPort != n.port {
		return false
	}
	host := remoteHost(p.RemoteAddr())
	ip := net.ParseIP(host)
	return ip != nil && (ip.IsLoopback() || host == n.host)
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

func (n *Node) peerList() []wire.PeerInfo {
	n.peersMu.Lock()
	defer n.peersMu.Unlock()
	out := make([]wire.PeerInfo, 0, len(n.peers))
	for _, rec := range n.peers {
		out = append(out, wire.PeerInfo{Address: rec.Address, Port: rec.Port, Kind: rec.Kind, ID: rec.ID})
	}
	return out
}

func (n *Node) onTransaction(p *peer.Peer, msg wire.Message) error {
	tx, err := wire.DecodeTransaction(msg.Payload)
	if err != nil {
		log.Debugf("malformed transaction from %s: %v", p.RemoteAddr(), err)
		return nil
	}
	if !tx.IsValid() {
		log.Debugf("dropping invalid transaction %s from %s", tx.Hash, p.RemoteAddr())
		return nil
	}
	if n.chain.HasTransaction(tx.Hash) || n.seen.Contains(tx.Hash) {
		return nil
	}
	if err := n.chain.AddLocalTransaction(tx); err != nil {
		log.Debugf("rejected transaction %s from %s: %v", tx.Hash, p.RemoteAddr(), err)
		return nil
	}
	n.seen.Add(tx.Hash)
	n.broadcast(msg, p)
	return nil
}

func (n *Node) onBlock(p *peer.Peer, msg wire.Message) error {
	b, err := wire.DecodeBlock(msg.Payload)
	if err != nil {
		log.Debugf("malformed block from %s: %v", p.RemoteAddr(), err)
		return nil
	}
	if n.chain.HasBlock(b.Hash) || n.seen.Contains(b.Hash) {
		return nil
	}

	if err := n.chain.AddForeignBlock(b); err != nil {
		log.Debugf("rejected block %d (%s) from %s: %v", b.BlockNumber, b.Hash, p.RemoteAddr(), err)
		if n.foreignBlockFailures.Add(1) >= blockFailureThreshold {
			n.foreignBlockFailures.Store(0)
			n.broadcast(wire.Message{Type: wire.ChainRequest, SenderID: n.id}, nil)
		}
		return nil
	}

	n.foreignBlockFailures.Store(0)
	n.seen.Add(b.Hash)
	n.broadcast(msg, p)
	return nil
}

func (n *Node) onChainRequest(p *peer.Peer) error {
	if n.kind == wire.WalletNode {
		return nil
	}
	return p.Send(wire.Message{
		Type:     wire.ChainResponse,
		SenderID: n.id,
		Payload:  wire.EncodeChainResponse(n.chain.Snapshot()),
	})
}

func (n *Node) onChainResponse(p *peer.Peer, msg wire.Message) error {
	blocks, err := wire.DecodeChainResponse(msg.Payload)
	if err != nil {
		log.Debugf("malformed chain response from %s: %v", p.RemoteAddr(), err)
		return nil
	}
	adopted, err := n.chain.ReplaceChain(blocks)
	if err != nil {
		log.Debugf("candidate chain from %s rejected: %v", p.RemoteAddr(), err)
		return nil
	}
	if adopted {
		log.Infof("adopted chain from %s at height %d", p.RemoteAddr(), n.chain.Height())
	}
	return nil
}

func (n *Node) onPeerList(msg wire.Message) error {
	peers, err := wire.DecodePeerList(msg.Payload)
	if err != nil {
		log.Debugf("malformed peer list: %v", err)
		return nil
	}
	for _, candidate := range peers {
		if candidate.ID == n.id || (candidate.Port == n.port && isLoopbackHost(candidate.Address)) {
			continue
		}
		key := peerRecord{Address: candidate.Address, Port: candidate.Port}.key()
		n.peersMu.Lock()
		_, known := n.peers[key]
		n.peersMu.Unlock()
		if known {
			continue
		}
		n.dialAsync(candidate.Address, candidate.Port)
	}
	return nil
}

func isLoopbackHost(host string) bool {
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (n *Node) dialAsync(address string, port int) {
	select {
	case n.dialSem <- struct{}{}:
	default:
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer func() { <-n.dialSem }()
		if err := n.Connect(address, port); err != nil {
			log.Debugf("outbound connect to %s:%d failed: %v", address, port, err)
		}
	}()
}

// broadcast floods msg to every connection except except (pass nil to flood
// to all).
func (n *Node) broadcast(msg wire.Message, except *peer.Peer) {
	n.peersMu.Lock()
	targets := make([]*peer.Peer, 0, len(n.conns))
	for p := range n.conns {
		if p != except {
			targets = append(targets, p)
		}
	}
	n.peersMu.Unlock()

	for _, p := range targets {
		if err := p.Send(msg); err != nil {
			log.Debugf("failed to relay to %s: %v", p.RemoteAddr(), err)
		}
	}
}

// SubmitTransaction injects a locally created transaction (e.g. from a
// wallet collaborator) and floods it to every connected peer.
func (n *Node) SubmitTransaction(tx *txn.Transaction) error {
	if err := n.chain.AddLocalTransaction(tx); err != nil {
		return err
	}
	n.seen.Add(tx.Hash)
	n.broadcast(wire.EncodeTransactionMessage(n.id, tx), nil)
	return nil
}

// BroadcastMinedBlock floods a locally mined block to every connected peer.
func (n *Node) BroadcastMinedBlock(b *block.Block) {
	n.seen.Add(b.Hash)
	n.broadcast(wire.Message{Type: wire.Block, SenderID: n.id, Payload: wire.EncodeBlock(b)}, nil)
}

// PeerCount reports the number of currently tracked PeerTable entries.
func (n *Node) PeerCount() int {
	n.peersMu.Lock()
	defer n.peersMu.Unlock()
	return len(n.peers)
}

// ID returns this node's session identifier.
func (n *Node) ID() string { return n.id }

// String renders a short human-readable summary, used by log lines and
// diagnostics.
func (n *Node) String() string {
	return fmt.Sprintf("node(%s %s:%d %s)", n.id, n.host, n.port, n.kind)
}
