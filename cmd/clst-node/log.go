// Copyright (c) 2025 The clst developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"os"

	"github.com/btcsuite/btclog"
	rotator "github.com/jrick/logrotate/rotator"

	"github.com/clst-chain/clst-node/chain"
	"github.com/clst-chain/clst-node/node"
	"github.com/clst-chain/clst-node/peer"
	"github.com/clst-chain/clst-node/store"
)

// logRotator writes logged bytes to both stdout and a size-rolled log
// file; it is nil until initLogRotator runs.
var logRotator *rotator.Rotator

// logWriter implements io.Writer, fanning every write out to stdout and
// the rotator.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	os.Stdout.Write(p)
	return logRotator.Write(p)
}

// initLogRotator opens (creating if necessary) the rotating log file at
// logFile, rolling at 10 MiB and keeping 3 prior rolls.
func initLogRotator(logFile string) error {
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return err
	}
	logRotator = r
	return nil
}

// initLoggers wires one subsystem logger per package at level, matching the
// backend/subsystem-tag pattern used throughout the btcsuite family.
func initLoggers(level string) {
	backend := btclog.NewBackend(logWriter{})

	lvl, ok := btclog.LevelFromString(level)
	if !ok {
		lvl = btclog.LevelInfo
	}

	newLogger := func(tag string) btclog.Logger {
		l := backend.Logger(tag)
		l.SetLevel(lvl)
		return l
	}

	store.UseLogger(newLogger("STOR"))
	chain.UseLogger(newLogger("CHAN"))
	peer.UseLogger(newLogger("PEER"))
	node.UseLogger(newLogger("NODE"))
}
