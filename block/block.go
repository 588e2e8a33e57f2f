// Copyright (c) 2025 The clst developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package block implements the block header+transaction-list form, its
// canonical hash, the proof-of-work mining loop, and transaction-list
// validation.
package block

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/clst-chain/clst-node/crypto"
	"github.com/clst-chain/clst-node/internal/clsterr"
	"github.com/clst-chain/clst-node/txn"
)

// MinDifficulty and MaxDifficulty bound the operator-set difficulty.
const (
	MinDifficulty = 1
	MaxDifficulty = 8
)

// yieldEvery is how often the mining loop checks its context for
// cancellation; mining itself has no other exit condition.
const yieldEvery = 4096

// ErrMiningAborted is returned by Mine when ctx is canceled before a valid
// nonce is found.
var ErrMiningAborted = errors.New("block: mining aborted")

// Block is a header plus its ordered transaction list.
type Block struct {
	BlockNumber  int64
	Timestamp    int64
	PreviousHash string
	Hash         string
	Nonce        uint64
	Difficulty   int
	Transactions []*txn.Transaction
}

// Height returns the block's height, satisfying balance.ChainBlock.
func (b *Block) Height() int64 { return b.BlockNumber }

// Txs returns the block's transaction list, satisfying balance.ChainBlock.
func (b *Block) Txs() []*txn.Transaction { return b.Transactions }

// ClampDifficulty clamps d to [MinDifficulty, MaxDifficulty].
func ClampDifficulty(d int) int {
	if d < MinDifficulty {
		return MinDifficulty
	}
	if d > MaxDifficulty {
		return MaxDifficulty
	}
	return d
}

// New constructs a candidate block ready for mining: nonce zero, timestamp
// now, hash unset.
func New(blockNumber int64, previousHash string, difficulty int, transactions []*txn.Transaction) *Block {
	return &Block{
		BlockNumber:  blockNumber,
		Timestamp:    time.Now().Unix(),
		PreviousHash: previousHash,
		Difficulty:   ClampDifficulty(difficulty),
		Transactions: transactions,
	}
}

// canonical renders the byte-exact block hash input:
// fmt(blockNumber) || fmt(timestamp) || previousHash || fmt(nonce), followed
// by sender || receiver || fmt(amount) for every transaction in order.
func (b *Block) canonical() string {
	var sb strings.Builder
	sb.WriteString(strconv.FormatInt(b.BlockNumber, 10))
	sb.WriteString(strconv.FormatInt(b.Timestamp, 10))
	sb.WriteString(b.PreviousHash)
	sb.WriteString(strconv.FormatUint(b.Nonce, 10))
	for _, tx := range b.Transactions {
		sb.WriteString(tx.Sender)
		sb.WriteString(tx.Receiver)
		sb.WriteString(strconv.FormatFloat(tx.Amount, 'g', -1, 64))
	}
	return sb.String()
}

// CalculateHash recomputes the block hash from its current content.
func (b *Block) CalculateHash() string {
	return crypto.Sha256Hex([]byte(b.canonical()))
}

// hasLeadingZeros reports whether hashHex (0x-prefixed) has at least
// difficulty leading hex zeros after the prefix.
func hasLeadingZeros(hashHex string, difficulty int) bool {
	stripped := strings.TrimPrefix(hashHex, "0x")
	if len(stripped) < difficulty {
		return false
	}
	for i := 0; i < difficulty; i++ {
		if stripped[i] != '0' {
			return false
		}
	}
	return true
}

// MeetsDifficulty reports whether b.Hash satisfies b.Difficulty.
func (b *Block) MeetsDifficulty() bool {
	return hasLeadingZeros(b.Hash, b.Difficulty)
}

// Mine resets Nonce to zero and brute-forces it, incrementing before each
// attempt (so the first nonce tried is 1), until CalculateHash satisfies
// Difficulty, assigning Hash on success. The only loop exit is success,
// unless ctx is canceled, in which case Mine returns ErrMiningAborted.
func (b *Block) Mine(ctx context.Context) error {
	b.Nonce = 0
	for {
		for i := 0; i < yieldEvery; i++ {
			b.Nonce++
			hash := b.CalculateHash()
			if hasLeadingZeros(hash, b.Difficulty) {
				b.Hash = hash
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ErrMiningAborted
		default:
		}
	}
}

// ValidateTransactions enforces the §4.3 rules: the genesis block carries
// exactly one Genesis-to-Genesis, zero-amount transaction; every other
// block carries exactly one coinbase transaction as its last element, and
// every transaction is individually valid.
func (b *Block) ValidateTransactions() error {
	if b.BlockNumber == 0 {
		if len(b.Transactions) != 1 {
			return clsterr.New(clsterr.InvalidBlock, "genesis block must carry exactly one transaction")
		}
		tx := b.Transactions[0]
		if !tx.IsGenesisSentinel() || tx.Amount != 0 {
			return clsterr.New(clsterr.InvalidBlock, "genesis transaction must be Genesis->Genesis, amount 0")
		}
		return nil
	}

	if len(b.Transactions) == 0 {
		return clsterr.New(clsterr.InvalidBlock, "non-genesis block must carry a coinbase transaction")
	}

	coinbaseCount := 0
	last := b.Transactions[len(b.Transactions)-1]
	for i, tx := range b.Transactions {
		if tx.IsCoinbase() {
			coinbaseCount++
			if i != len(b.Transactions)-1 {
				return clsterr.New(clsterr.InvalidBlock, "coinbase transaction must be the last element")
			}
			continue
		}
		if !tx.IsValid() {
			return clsterr.New(clsterr.InvalidBlock, "block contains an invalid transaction: "+tx.Hash)
		}
	}
	if coinbaseCount != 1 {
		return clsterr.New(clsterr.InvalidBlock, "block must carry exactly one coinbase transaction")
	}
	if !last.IsCoinbase() {
		return clsterr.New(clsterr.InvalidBlock, "last transaction must be the coinbase")
	}
	return nil
}

// Validate checks hash integrity and the difficulty target in addition to
// ValidateTransactions; it does not check the link to a predecessor (the
// Chain does that, since it alone knows the predecessor).
func (b *Block) Validate() error {
	if b.BlockNumber != 0 {
		if b.Hash != b.CalculateHash() {
			return clsterr.New(clsterr.InvalidBlock, "block hash does not match recomputed hash")
		}
		if !b.MeetsDifficulty() {
			return clsterr.New(clsterr.InvalidBlock, "block hash does not meet its difficulty target")
		}
	}
	return b.ValidateTransactions()
}
