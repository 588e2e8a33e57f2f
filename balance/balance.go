// Copyright (c) 2025 The clst developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package balance maps addresses to their projected balance and applies
// transactions against that projection, mirroring the original
// balanceMapping component.
package balance

import (
	"sync"

	"github.com/clst-chain/clst-node/crypto"
	"github.com/clst-chain/clst-node/txn"
)

// Store is the subset of the store package's contract that BalanceState
// needs: a place to durably persist balance:<address> rows and
// journal:<address>:<timestamp>:<txhash> audit rows in one atomic batch.
type Store interface {
	PutBalanceBatch(updates map[string]float64, journal []JournalEntry) error
}

// JournalEntry is one audit row recording a single credit or debit side of
// an applied transaction. It is write-only: nothing in this package reads
// journal entries back.
type JournalEntry struct {
	Address     string
	TxHash      string
	Amount      float64
	IsCredit    bool
	BlockHeight int64
	Timestamp   int64
}

// State is the in-memory address -> balance projection.
type State struct {
	mu       sync.RWMutex
	balances map[string]float64
	store    Store
}

// New creates an empty balance state, optionally backed by store (nil is
// valid: a State can be used purely in-memory, e.g. in tests).
func New(store Store) *State {
	return &State{
		balances: make(map[string]float64),
		store:    store,
	}
}

// Get returns address's balance; an address with no recorded balance is 0.
func (s *State) Get(address string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[address]
}

// Set assigns address's balance directly, bypassing transaction semantics.
// Used by callers restoring a snapshot.
func (s *State) Set(address string, amount float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[address] = amount
}

// GetAll returns a snapshot copy of every known (address, balance) pair.
func (s *State) GetAll() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]float64, len(s.balances))
	for addr, amt := range s.balances {
		out[addr] = amt
	}
	return out
}

// apply mutates state in memory for tx at blockHeight and reports what
// changed. It does not touch the store; callers that need durability call
// persist (Apply) or aggregate across a whole block (ApplyAll) themselves.
func (s *State) apply(tx *txn.Transaction, blockHeight int64) (ok bool, updates map[string]float64, journal []JournalEntry) {
	if tx.IsGenesisSentinel() {
		return true, nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.Sender == crypto.GenesisSender {
		newReceiver := s.balances[tx.Receiver] + tx.Amount
		s.balances[tx.Receiver] = newReceiver
		return true, map[string]float64{tx.Receiver: newReceiver},
			[]JournalEntry{{
				Address: tx.Receiver, TxHash: tx.Hash, Amount: tx.Amount,
				IsCredit: true, BlockHeight: blockHeight, Timestamp: tx.Timestamp,
			}}
	}

	senderBalance := s.balances[tx.Sender]
	if senderBalance < tx.Amount {
		return false, nil, nil
	}

	newSender := senderBalance - tx.Amount
	newReceiver := s.balances[tx.Receiver] + tx.Amount
	s.balances[tx.Sender] = newSender
	s.balances[tx.Receiver] = newReceiver

	return true, map[string]float64{tx.Sender: newSender, tx.Receiver: newReceiver},
		[]JournalEntry{
			{Address: tx.Sender, TxHash: tx.Hash, Amount: tx.Amount, IsCredit: false, BlockHeight: blockHeight, Timestamp: tx.Timestamp},
			{Address: tx.Receiver, TxHash: tx.Hash, Amount: tx.Amount, IsCredit: true, BlockHeight: blockHeight, Timestamp: tx.Timestamp},
		}
}

// Apply processes tx against the balance state and persists the result
// immediately in its own batch. Apply returns false without mutating
// anything on insufficient funds.
func (s *State) Apply(tx *txn.Transaction, blockHeight int64) bool {
	ok, updates, journal := s.apply(tx, blockHeight)
	if !ok {
		return false
	}
	return s.persist(updates, journal)
}

// ApplyAll processes every transaction in txs in order, aggregating every
// resulting balance update and journal row instead of persisting per
// transaction, so the caller (Chain) can issue one atomic batch write
// alongside the block that carries them. Every transaction is evaluated
// against a working copy of the balances first; if any fails, nothing in
// the live state is touched and ApplyAll returns false.
func (s *State) ApplyAll(txs []*txn.Transaction, blockHeight int64) (ok bool, updates map[string]float64, journal []JournalEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := make(map[string]float64)
	get := func(addr string) float64 {
		if v, ok := working[addr]; ok {
			return v
		}
		return s.balances[addr]
	}

	updates = make(map[string]float64)
	for _, tx := range txs {
		if tx.IsGenesisSentinel() {
			continue
		}

		if tx.Sender == crypto.GenesisSender {
			newReceiver := get(tx.Receiver) + tx.Amount
			working[tx.Receiver] = newReceiver
			updates[tx.Receiver] = newReceiver
			journal = append(journal, JournalEntry{
				Address: tx.Receiver, TxHash: tx.Hash, Amount: tx.Amount,
				IsCredit: true, BlockHeight: blockHeight, Timestamp: tx.Timestamp,
			})
			continue
		}

		senderBalance := get(tx.Sender)
		if senderBalance < tx.Amount {
			return false, nil, nil
		}

		newSender := senderBalance - tx.Amount
		newReceiver := get(tx.Receiver) + tx.Amount
		working[tx.Sender] = newSender
		working[tx.Receiver] = newReceiver
		updates[tx.Sender] = newSender
		updates[tx.Receiver] = newReceiver
		journal = append(journal,
			JournalEntry{Address: tx.Sender, TxHash: tx.Hash, Amount: tx.Amount, IsCredit: false, BlockHeight: blockHeight, Timestamp: tx.Timestamp},
			JournalEntry{Address: tx.Receiver, TxHash: tx.Hash, Amount: tx.Amount, IsCredit: true, BlockHeight: blockHeight, Timestamp: tx.Timestamp},
		)
	}

	for addr, amt := range working {
		s.balances[addr] = amt
	}
	return true, updates, journal
}

// CanAfford reports whether tx.Sender currently has at least tx.Amount,
// without mutating state. Genesis-sourced transactions always pass.
func (s *State) CanAfford(tx *txn.Transaction) bool {
	if tx.Sender == crypto.GenesisSender {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[tx.Sender] >= tx.Amount
}

func (s *State) persist(updates map[string]float64, journal []JournalEntry) bool {
	if s.store == nil {
		return true
	}
	return s.store.PutBalanceBatch(updates, journal) == nil
}

// reset zeroes every currently known balance, in place.
func (s *State) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for addr := range s.balances {
		s.balances[addr] = 0
	}
}

// ProjectFrom rebuilds the balance state from scratch: zero all known
// balances, then apply every non-Genesis-to-Genesis transaction in every
// block of chain, in order, in memory only: nothing is written to the store.
// It is deterministic and idempotent.
func (s *State) ProjectFrom(blocks []ChainBlock) {
	s.reset()
	for _, blk := range blocks {
		for _, tx := range blk.Txs() {
			if tx.IsGenesisSentinel() {
				continue
			}
			s.apply(tx, blk.Height())
		}
	}
}

// ChainBlock is the minimal view ProjectFrom needs of a chain block,
// satisfied by *block.Block without this package importing block (which
// would create an import cycle, since block does not need balance).
type ChainBlock interface {
	Height() int64
	Txs() []*txn.Transaction
}
