// Copyright (c) 2025 The clst developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package peer implements one newline-framed, bidirectional TCP connection:
// a serialized read loop and a mutex-serialized write path, grounded on the
// bufio.Reader/Writer connection idiom used for mobile miner sessions.
package peer

import (
	"bufio"
	"net"
	"strings"
	"sync"

	"github.com/clst-chain/clst-node/internal/clsterr"
	"github.com/clst-chain/clst-node/wire"
)

// Peer wraps one TCP connection to another node. Reads happen on whatever
// goroutine calls ReadLoop; writes from any goroutine are serialized by
// writeMu, so flooding to many peers concurrently from Node is safe.
type Peer struct {
	conn   net.Conn
	reader *bufio.Reader

	writeMu sync.Mutex
	writer  *bufio.Writer

	// ID, Kind, and ListenPort are populated from the peer's HANDSHAKE;
	// they are zero-valued until then.
	ID         string
	Kind       wire.NodeKind
	ListenPort int

	// Outbound reports whether this side dialed the connection.
	Outbound bool

	closeOnce sync.Once
}

// New wraps an already-connected socket.
func New(conn net.Conn, outbound bool) *Peer {
	return &Peer{
		conn:     conn,
		reader:   bufio.NewReader(conn),
		writer:   bufio.NewWriter(conn),
		Outbound: outbound,
	}
}

// RemoteAddr returns the underlying connection's remote address string.
func (p *Peer) RemoteAddr() string {
	return p.conn.RemoteAddr().String()
}

// Send serializes msg and writes it as one newline-terminated frame.
// Concurrent Send calls from different goroutines are serialized.
func (p *Peer) Send(msg wire.Message) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if _, err := p.writer.WriteString(msg.Serialize()); err != nil {
		return clsterr.Wrap(clsterr.Network, "failed to write to peer "+p.RemoteAddr(), err)
	}
	if err := p.writer.WriteByte('\n'); err != nil {
		return clsterr.Wrap(clsterr.Network, "failed to write to peer "+p.RemoteAddr(), err)
	}
	if err := p.writer.Flush(); err != nil {
		return clsterr.Wrap(clsterr.Network, "failed to flush to peer "+p.RemoteAddr(), err)
	}
	return nil
}

// ReadLoop blocks reading newline-framed messages and invoking handle for
// each one, until the connection errs or closes. A frame that fails to
// parse is logged and dropped, not passed to handle: a malformed remote
// must not stall the node.
func (p *Peer) ReadLoop(handle func(wire.Message) error) error {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil {
			return clsterr.Wrap(clsterr.Network, "connection to peer "+p.RemoteAddr()+" closed", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}

		msg, err := wire.ParseMessage(line)
		if err != nil {
			log.Debugf("dropping malformed frame from %s: %v", p.RemoteAddr(), err)
			continue
		}
		if err := handle(msg); err != nil {
			return err
		}
	}
}

// Close closes the underlying connection. It is safe to call more than
// once.
func (p *Peer) Close() error {
	var err error
	p.closeOnce.Do(func() {
		err = p.conn.Close()
	})
	return err
}
