// Copyright (c) 2025 The clst developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Command clst-node runs a full or wallet node: it loads the chain from a
// local LevelDB store, opens the peer-to-peer listener, and — for a full
// node configured with a miner address — mines continuously off the
// network I/O path until shut down.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/clst-chain/clst-node/chain"
	"github.com/clst-chain/clst-node/internal/clsterr"
	"github.com/clst-chain/clst-node/node"
	"github.com/clst-chain/clst-node/store"
	"github.com/clst-chain/clst-node/wire"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "clst-node:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := ensureDir(cfg.DataDir); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := ensureDir(cfg.LogDir); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	if err := initLogRotator(cfg.logFilePath()); err != nil {
		return fmt.Errorf("initializing log rotator: %w", err)
	}
	initLoggers(cfg.DebugLevel)

	if cfg.Clean {
		if err := os.RemoveAll(cfg.storePath()); err != nil {
			return fmt.Errorf("clearing store at %s: %w", cfg.storePath(), err)
		}
	}

	db, err := store.Open(cfg.storePath())
	if err != nil {
		return err
	}

	c, err := chain.Load(db, cfg.isWallet(), cfg.Difficulty)
	if err != nil {
		_ = db.Close()
		return err
	}

	kind := wire.FullNode
	if cfg.isWallet() {
		kind = wire.WalletNode
	}
	n := node.New(c, cfg.Host, cfg.Port, kind)
	if err := n.Start(); err != nil {
		_ = db.Close()
		return err
	}

	for _, addr := range cfg.ConnectPeer {
		host, portStr, err := net.SplitHostPort(addr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "clst-node: skipping malformed --connect value %q: %v\n", addr, err)
			continue
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "clst-node: skipping malformed --connect value %q: %v\n", addr, err)
			continue
		}
		if err := n.Connect(host, port); err != nil {
			fmt.Fprintf(os.Stderr, "clst-node: failed to connect to %s: %v\n", addr, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	if !cfg.isWallet() && strings.TrimSpace(cfg.MinerReward) != "" {
		go mineLoop(ctx, c, n, cfg.MinerReward)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	cancel()
	n.Stop()
	return db.Close()
}

// mineLoop repeatedly mines blocks off the network I/O path until ctx is
// canceled, broadcasting each successfully mined block to every peer.
// MiningForbidden failures (empty-block quota exhausted) back off briefly
// rather than spinning.
func mineLoop(ctx context.Context, c *chain.Chain, n *node.Node, minerAddress string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		b, err := c.Mine(ctx, minerAddress)
		if err != nil {
			if clsterr.KindIs(err, clsterr.MiningForbidden) {
				select {
				case <-ctx.Done():
					return
				case <-time.After(2 * time.Second):
				}
				continue
			}
			continue
		}
		n.BroadcastMinedBlock(b)
	}
}
