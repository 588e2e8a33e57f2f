// Copyright (c) 2025 The clst developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wire implements the framed message envelope and the typed
// payload codecs carried over a peer connection: HANDSHAKE, TRANSACTION,
// BLOCK, CHAIN_REQUEST, CHAIN_RESPONSE, PEER_LIST, PING, PONG.
package wire

import (
	"strconv"
	"strings"

	"github.com/clst-chain/clst-node/internal/clsterr"
)

// MessageType tags the payload carried in a Message.
type MessageType int

const (
	Handshake MessageType = iota
	Transaction
	Block
	ChainRequest
	ChainResponse
	PeerList
	Ping
	Pong
)

var typeNames = map[MessageType]string{
	Handshake:     "HANDSHAKE",
	Transaction:   "TRANSACTION",
	Block:         "BLOCK",
	ChainRequest:  "CHAIN_REQUEST",
	ChainResponse: "CHAIN_RESPONSE",
	PeerList:      "PEER_LIST",
	Ping:          "PING",
	Pong:          "PONG",
}

var namesToType = func() map[string]MessageType {
	m := make(map[string]MessageType, len(typeNames))
	for t, n := range typeNames {
		m[n] = t
	}
	return m
}()

// String renders the wire name of a message type ("HANDSHAKE", ...).
func (t MessageType) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return "UNKNOWN"
}

// sep is the hard field separator used throughout the wire format.
const sep = "|"

// Message is the envelope every frame carries: type | sender_id | payload.
// Each frame on the wire is terminated by a newline, appended/stripped by
// the peer package, not by this package.
type Message struct {
	Type     MessageType
	SenderID string
	Payload  string
}

// Serialize renders the envelope as type|sender_id|payload, without a
// trailing newline.
func (m Message) Serialize() string {
	return m.Type.String() + sep + m.SenderID + sep + m.Payload
}

// ParseMessage decodes a single frame (newline already stripped). The
// payload is treated as the single remainder after the first two
// separators, since payloads are themselves '|'-delimited and must not be
// torn apart here.
func ParseMessage(line string) (Message, error) {
	parts := strings.SplitN(line, sep, 3)
	if len(parts) < 2 {
		return Message{}, clsterr.New(clsterr.Protocol, "malformed envelope: too few fields")
	}
	t, ok := namesToType[parts[0]]
	if !ok {
		return Message{}, clsterr.New(clsterr.Protocol, "malformed envelope: unknown message type "+parts[0])
	}
	payload := ""
	if len(parts) == 3 {
		payload = parts[2]
	}
	return Message{Type: t, SenderID: parts[1], Payload: payload}, nil
}

func joinFields(fields ...string) string {
	return strings.Join(fields, sep)
}

func splitFields(payload string, n int) ([]string, error) {
	if payload == "" && n == 0 {
		return nil, nil
	}
	parts := strings.Split(payload, sep)
	if len(parts) != n {
		return nil, clsterr.New(clsterr.Protocol, "malformed payload: expected "+strconv.Itoa(n)+" fields, got "+strconv.Itoa(len(parts)))
	}
	return parts, nil
}
