// Copyright (c) 2025 The clst developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"strconv"
	"strings"

	"github.com/clst-chain/clst-node/internal/clsterr"
)

// NodeKind distinguishes a full node (mines, serves chain sync) from a
// wallet node (neither).
type NodeKind int

const (
	FullNode NodeKind = iota
	WalletNode
)

// String renders the wire name of a node kind.
func (k NodeKind) String() string {
	if k == WalletNode {
		return "WALLET_NODE"
	}
	return "FULL_NODE"
}

// ParseNodeKind parses the wire name of a node kind.
func ParseNodeKind(s string) (NodeKind, error) {
	switch s {
	case "FULL_NODE":
		return FullNode, nil
	case "WALLET_NODE":
		return WalletNode, nil
	default:
		return 0, clsterr.New(clsterr.Protocol, "unknown node kind: "+s)
	}
}

// Handshake is the HANDSHAKE payload: node kind and the peer's listen port
// (not the ephemeral outbound port the connection arrived on).
type Handshake struct {
	Kind       NodeKind
	ListenPort int
}

// EncodeHandshake renders a HANDSHAKE payload.
func EncodeHandshake(h Handshake) string {
	return joinFields(h.Kind.String(), strconv.Itoa(h.ListenPort))
}

// DecodeHandshake parses a HANDSHAKE payload.
func DecodeHandshake(payload string) (Handshake, error) {
	fields, err := splitFields(payload, 2)
	if err != nil {
		return Handshake{}, err
	}
	kind, err := ParseNodeKind(fields[0])
	if err != nil {
		return Handshake{}, err
	}
	port, err := strconv.Atoi(fields[1])
	if err != nil {
		return Handshake{}, clsterr.Wrap(clsterr.Protocol, "malformed handshake port", err)
	}
	return Handshake{Kind: kind, ListenPort: port}, nil
}

// PeerInfo is one entry of a PEER_LIST payload.
type PeerInfo struct {
	Address string
	Port    int
	Kind    NodeKind
	ID      string
}

const peerFieldCount = 4

// EncodePeerList renders a PEER_LIST payload: peerCount | (address | port |
// kind | id) × peerCount.
func EncodePeerList(peers []PeerInfo) string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(len(peers)))
	for _, p := range peers {
		sb.WriteString(sep)
		sb.WriteString(joinFields(p.Address, strconv.Itoa(p.Port), p.Kind.String(), p.ID))
	}
	return sb.String()
}

// DecodePeerList parses a PEER_LIST payload.
func DecodePeerList(payload string) ([]PeerInfo, error) {
	parts := strings.Split(payload, sep)
	if len(parts) == 0 {
		return nil, clsterr.New(clsterr.Protocol, "malformed peer list: missing count")
	}
	count, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, clsterr.Wrap(clsterr.Protocol, "malformed peer list count", err)
	}
	rest := parts[1:]
	if len(rest) != count*peerFieldCount {
		return nil, clsterr.New(clsterr.Protocol, "malformed peer list: field count mismatch")
	}
	peers := make([]PeerInfo, 0, count)
	for i := 0; i < count; i++ {
		g := rest[i*peerFieldCount : (i+1)*peerFieldCount]
		port, err := strconv.Atoi(g[1])
		if err != nil {
			return nil, clsterr.Wrap(clsterr.Protocol, "malformed peer list port", err)
		}
		kind, err := ParseNodeKind(g[2])
		if err != nil {
			return nil, err
		}
		peers = append(peers, PeerInfo{Address: g[0], Port: port, Kind: kind, ID: g[3]})
	}
	return peers, nil
}
