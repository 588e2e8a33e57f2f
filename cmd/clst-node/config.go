// Copyright (c) 2025 The clst developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"

	"github.com/clst-chain/clst-node/block"
	"github.com/clst-chain/clst-node/chaincfg"
)

const (
	defaultHost       = "0.0.0.0"
	defaultPort       = 9590
	defaultKind       = "full"
	defaultDataDir    = "data"
	defaultLogDir     = "logs"
	defaultLogFile    = "clst.log"
	defaultDebugLevel = "info"
)

// config holds the operator-set configuration surface: host, port, node
// kind, initial difficulty clamp, and whether to discard on-disk state
// before load.
type config struct {
	Host        string   `short:"a" long:"host" description:"Interface to bind the listener to" default:"0.0.0.0"`
	Port        int      `short:"p" long:"port" description:"TCP port to listen on" default:"9590"`
	Kind        string   `short:"k" long:"kind" description:"Node kind: full or wallet" default:"full"`
	Difficulty  int      `short:"d" long:"difficulty" description:"Initial mining difficulty, clamped to [1,8]" default:"4"`
	DataDir     string   `long:"datadir" description:"Directory holding the LevelDB store" default:"data"`
	LogDir      string   `long:"logdir" description:"Directory for rotated log files" default:"logs"`
	DebugLevel  string   `long:"debuglevel" description:"Logging level: trace, debug, info, warn, error, critical, off" default:"info"`
	Clean       bool     `long:"clean" description:"Discard on-disk state before loading the chain"`
	MinerReward string   `long:"miner" description:"Address to receive mining rewards; required for a full node that mines"`
	ConnectPeer []string `short:"c" long:"connect" description:"host:port of a peer to dial at startup; may be repeated"`
}

func defaultConfig() config {
	return config{
		Host:       defaultHost,
		Port:       defaultPort,
		Kind:       defaultKind,
		Difficulty: chaincfg.DefaultDifficulty,
		DataDir:    defaultDataDir,
		LogDir:     defaultLogDir,
		DebugLevel: defaultDebugLevel,
	}
}

// loadConfig parses CLI flags on top of the defaults.
func loadConfig() (*config, error) {
	cfg := defaultConfig()
	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		return nil, err
	}
	cfg.Difficulty = block.ClampDifficulty(cfg.Difficulty)
	return &cfg, nil
}

func (c *config) isWallet() bool {
	return c.Kind == "wallet"
}

func (c *config) storePath() string {
	return filepath.Join(c.DataDir, "chaindb")
}

func (c *config) logFilePath() string {
	return filepath.Join(c.LogDir, defaultLogFile)
}

func ensureDir(path string) error {
	return os.MkdirAll(path, 0700)
}
