// Copyright (c) 2025 The clst developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chain implements the Chain aggregate: the append-only block
// history, the pending-transaction mempool, and the projected balance
// state, all governed by a single mutual-exclusion discipline, per the
// original node's chain/mempool/balance trio.
package chain

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/clst-chain/clst-node/balance"
	"github.com/clst-chain/clst-node/block"
	"github.com/clst-chain/clst-node/chaincfg"
	"github.com/clst-chain/clst-node/crypto"
	"github.com/clst-chain/clst-node/internal/clsterr"
	"github.com/clst-chain/clst-node/txn"
	"github.com/clst-chain/clst-node/wire"
)

// Store is the subset of the store package's contract Chain needs. It is
// single-writer: only Chain ever calls these methods.
type Store interface {
	PutBlock(b *block.Block) error
	GetBlock(height int64) (*block.Block, error)
	PutTx(hash, payload string) error
	DeleteTx(hash string) error
	GetAllTxs() (map[string]string, error)
	PutBlockAndBalances(b *block.Block, updates map[string]float64, journal []balance.JournalEntry) error
	PutBalanceBatch(updates map[string]float64, journal []balance.JournalEntry) error
	PutWorldState(height int64, balances map[string]float64) error
}

// Chain owns the block history, the mempool, and the projected balance
// state as one logical aggregate, guarded by a single lock.
type Chain struct {
	mu         sync.RWMutex
	blocks     []*block.Block
	mempool    *mempool
	balances   *balance.State
	store      Store
	isWallet   bool
	difficulty int
}

// Load rebuilds a Chain from store: it scans block:0, block:1, … until a
// gap, writing the genesis block first if the store was empty; projects
// the balance state from the resulting history; then loads any tx:… entry
// whose hash does not appear in any block into the mempool.
func Load(store Store, isWallet bool, difficulty int) (*Chain, error) {
	c := &Chain{
		mempool:    newMempool(),
		store:      store,
		isWallet:   isWallet,
		difficulty: block.ClampDifficulty(difficulty),
	}
	c.balances = balance.New(store)

	for height := int64(0); ; height++ {
		b, err := store.GetBlock(height)
		if err != nil {
			return nil, err
		}
		if b == nil {
			break
		}
		c.blocks = append(c.blocks, b)
	}

	if len(c.blocks) == 0 {
		genesis := newGenesisBlock()
		if err := store.PutBlock(genesis); err != nil {
			return nil, err
		}
		c.blocks = []*block.Block{genesis}
		log.Infof("wrote genesis block %s", genesis.Hash)
	}

	c.balances.ProjectFrom(toChainBlocks(c.blocks))

	confirmed := make(map[string]bool)
	for _, b := range c.blocks {
		for _, tx := range b.Transactions {
			confirmed[tx.Hash] = true
		}
	}
	pending, err := store.GetAllTxs()
	if err != nil {
		return nil, err
	}
	for hash, payload := range pending {
		if confirmed[hash] {
			continue
		}
		tx, err := wire.DecodeTransaction(payload)
		if err != nil {
			log.Warnf("discarding corrupt pending transaction %s: %v", hash, err)
			_ = store.DeleteTx(hash)
			continue
		}
		c.mempool.Add(tx)
	}
	log.Infof("loaded chain at height %d with %d pending transactions", c.blocks[len(c.blocks)-1].BlockNumber, c.mempool.Len())

	return c, nil
}

// newGenesisBlock builds the fixed, network-compatible genesis block. Its
// hash is never recomputed from content; it is the baked constant.
func newGenesisBlock() *block.Block {
	sentinel := txn.NewGenesisSentinel(chaincfg.GenesisTimestamp)
	return &block.Block{
		BlockNumber:  0,
		Timestamp:    chaincfg.GenesisTimestamp,
		PreviousHash: "0x0",
		Hash:         chaincfg.GenesisHash,
		Nonce:        chaincfg.GenesisNonce,
		Difficulty:   0,
		Transactions: []*txn.Transaction{sentinel},
	}
}

// AddLocalTransaction validates tx, checks sender solvency against the
// current balance projection, and appends it to the mempool. A transaction
// already pending is accepted silently (not an error).
func (c *Chain) AddLocalTransaction(tx *txn.Transaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := tx.Validate(); err != nil {
		return err
	}
	if tx.Sender != crypto.GenesisSender && !c.balances.CanAfford(tx) {
		return clsterr.New(clsterr.InvalidTransaction, "insufficient balance for sender "+tx.Sender)
	}
	if c.mempool.Has(tx.Hash) {
		return nil
	}

	c.mempool.Add(tx)
	if err := c.store.PutTx(tx.Hash, wire.EncodeTransaction(tx)); err != nil {
		return err
	}
	return nil
}

// Mine composes a candidate block from the current mempool plus a coinbase
// paying the current reward to minerAddress, mines it, and on success
// appends it to the chain, applies its transactions to the balance
// projection, persists block and balances in one atomic batch, and clears
// the mined transactions from the mempool. ctx bounds the mining loop;
// canceling it aborts the attempt without mutating the chain.
func (c *Chain) Mine(ctx context.Context, minerAddress string) (*block.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isWallet {
		return nil, clsterr.New(clsterr.MiningForbidden, "wallet nodes do not mine")
	}

	emptyCount := 0
	for _, b := range c.blocks {
		if len(b.Transactions) <= 1 {
			emptyCount++
		}
	}
	if c.mempool.Len() == 0 && emptyCount >= chaincfg.EmptyBlockLimit {
		return nil, clsterr.New(clsterr.MiningForbidden, "empty-block quota exhausted")
	}

	pending := c.mempool.Txs()
	for _, tx := range pending {
		if tx.Sender != crypto.GenesisSender && !c.balances.CanAfford(tx) {
			return nil, clsterr.New(clsterr.MiningForbidden, "mempool transaction no longer affordable: "+tx.Hash)
		}
	}

	tip := c.blocks[len(c.blocks)-1]
	coinbase := txn.NewCoinbase(minerAddress, chaincfg.CurrentReward(time.Now()))
	blockTxs := make([]*txn.Transaction, 0, len(pending)+1)
	blockTxs = append(blockTxs, pending...)
	blockTxs = append(blockTxs, coinbase)

	candidate := block.New(tip.BlockNumber+1, tip.Hash, c.difficulty, blockTxs)
	if err := candidate.Mine(ctx); err != nil {
		return nil, err
	}
	if err := candidate.ValidateTransactions(); err != nil {
		return nil, err
	}

	if err := c.commitBlock(candidate); err != nil {
		return nil, err
	}

	for _, tx := range pending {
		c.mempool.Remove(tx.Hash)
		if err := c.store.DeleteTx(tx.Hash); err != nil {
			log.Warnf("failed to drop mined transaction %s from the pending set: %v", tx.Hash, err)
		}
	}

	log.Infof("mined block %d (%s), reward %s to %s", candidate.BlockNumber, candidate.Hash,
		strconv.FormatFloat(coinbase.Amount, 'f', -1, 64), minerAddress)
	return candidate, nil
}

// AddForeignBlock validates and appends a block received from a peer.
func (c *Chain) AddForeignBlock(b *block.Block) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tip := c.blocks[len(c.blocks)-1]

	if b.BlockNumber == tip.BlockNumber {
		if b.Hash == tip.Hash {
			return nil
		}
		return clsterr.New(clsterr.ChainIntegrity, "same-height divergence from tip at block "+strconv.FormatInt(b.BlockNumber, 10))
	}
	if b.PreviousHash != tip.Hash {
		return clsterr.New(clsterr.InvalidBlock, "foreign block does not link to current tip")
	}
	if err := b.Validate(); err != nil {
		return err
	}

	if err := c.commitBlock(b); err != nil {
		return err
	}
	for _, tx := range b.Transactions {
		c.mempool.Remove(tx.Hash)
		_ = c.store.DeleteTx(tx.Hash)
	}

	log.Infof("appended foreign block %d (%s)", b.BlockNumber, b.Hash)
	return nil
}

// commitBlock applies b's transactions to the balance projection and
// persists the block and every resulting balance/journal update in one
// atomic batch, then appends b to the in-memory history and writes a
// worldstate:<height> snapshot of the post-block balances. It does not
// touch the mempool; callers do that afterward.
func (c *Chain) commitBlock(b *block.Block) error {
	ok, updates, journal := c.balances.ApplyAll(b.Transactions, b.BlockNumber)
	if !ok {
		return clsterr.New(clsterr.InvalidBlock, "block contains a transaction no longer affordable against current balances")
	}
	if err := c.store.PutBlockAndBalances(b, updates, journal); err != nil {
		return err
	}
	c.blocks = append(c.blocks, b)
	if err := c.store.PutWorldState(b.BlockNumber, c.balances.GetAll()); err != nil {
		log.Warnf("failed to write worldstate snapshot at height %d: %v", b.BlockNumber, err)
	}
	return nil
}

// ReplaceChain implements the best-work fork-choice rule: candidate is
// validated in isolation, and adopted only if its total work strictly
// exceeds the current chain's. Transactions from replaced blocks that do
// not reappear in candidate are pushed back to the mempool.
func (c *Chain) ReplaceChain(candidate []*block.Block) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(candidate) == 0 || candidate[0].Hash != chaincfg.GenesisHash {
		return false, clsterr.New(clsterr.ChainIntegrity, "candidate chain genesis hash mismatch")
	}
	if err := candidate[0].ValidateTransactions(); err != nil {
		return false, clsterr.Wrap(clsterr.ChainIntegrity, "candidate genesis block invalid", err)
	}

	for i := 1; i < len(candidate); i++ {
		b := candidate[i]
		if b.Hash != b.CalculateHash() {
			return false, clsterr.New(clsterr.InvalidBlock, "candidate block hash mismatch at height "+strconv.FormatInt(b.BlockNumber, 10))
		}
		if !b.MeetsDifficulty() {
			return false, clsterr.New(clsterr.InvalidBlock, "candidate block fails its difficulty target at height "+strconv.FormatInt(b.BlockNumber, 10))
		}
		if b.PreviousHash != candidate[i-1].Hash {
			return false, clsterr.New(clsterr.InvalidBlock, "candidate chain link mismatch at height "+strconv.FormatInt(b.BlockNumber, 10))
		}
		if err := b.ValidateTransactions(); err != nil {
			return false, err
		}
	}

	if chainWork(candidate) <= chainWork(c.blocks) {
		return false, nil
	}

	replacedTxs := make(map[string]*txn.Transaction)
	for _, b := range c.blocks {
		for _, tx := range b.Transactions {
			replacedTxs[tx.Hash] = tx
		}
	}
	for _, b := range candidate {
		for _, tx := range b.Transactions {
			delete(replacedTxs, tx.Hash)
		}
	}

	c.blocks = candidate
	c.balances.ProjectFrom(toChainBlocks(c.blocks))
	for _, b := range c.blocks {
		if err := c.store.PutBlock(b); err != nil {
			return false, err
		}
	}
	finalBalances := c.balances.GetAll()
	if err := c.store.PutBalanceBatch(finalBalances, nil); err != nil {
		return false, err
	}
	if err := c.store.PutWorldState(c.blocks[len(c.blocks)-1].BlockNumber, finalBalances); err != nil {
		log.Warnf("failed to write worldstate snapshot after chain replacement at height %d: %v", c.blocks[len(c.blocks)-1].BlockNumber, err)
	}

	c.mempool.Clear()
	for _, tx := range replacedTxs {
		if tx.IsGenesisSentinel() || tx.IsCoinbase() {
			continue
		}
		c.mempool.Add(tx)
		if err := c.store.PutTx(tx.Hash, wire.EncodeTransaction(tx)); err != nil {
			log.Warnf("failed to re-queue orphaned transaction %s: %v", tx.Hash, err)
		}
	}

	log.Infof("adopted candidate chain at height %d; %d transactions of the replaced chain are absent from it", c.blocks[len(c.blocks)-1].BlockNumber, len(replacedTxs))
	return true, nil
}

// chainWork computes Σ 2^block.difficulty over blocks.
func chainWork(blocks []*block.Block) int64 {
	var total int64
	for _, b := range blocks {
		total += int64(1) << uint(b.Difficulty)
	}
	return total
}

// IsValid reports whether every non-genesis block links to its predecessor,
// its stored hash matches its recomputed hash, and its transactions are
// valid.
func (c *Chain) IsValid() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := 1; i < len(c.blocks); i++ {
		b := c.blocks[i]
		if b.PreviousHash != c.blocks[i-1].Hash {
			return false
		}
		if b.Hash != b.CalculateHash() {
			return false
		}
		if err := b.ValidateTransactions(); err != nil {
			return false
		}
	}
	return true
}

// Height returns the current tip's block number.
func (c *Chain) Height() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.blocks[len(c.blocks)-1].BlockNumber
}

// Tip returns the current last block.
func (c *Chain) Tip() *block.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.blocks[len(c.blocks)-1]
}

// Snapshot returns a read-only copy of the full block history, for callers
// (chain sync, the explorer collaborator) that need a consistent view
// without holding the chain lock.
func (c *Chain) Snapshot() []*block.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*block.Block, len(c.blocks))
	copy(out, c.blocks)
	return out
}

// Balance returns address's current projected balance.
func (c *Chain) Balance(address string) float64 {
	return c.balances.Get(address)
}

// Mempool returns the pending transactions, in insertion order.
func (c *Chain) Mempool() []*txn.Transaction {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mempool.Txs()
}

// HasBlock reports whether hash already appears in the chain's history.
func (c *Chain) HasBlock(hash string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, b := range c.blocks {
		if b.Hash == hash {
			return true
		}
	}
	return false
}

// HasTransaction reports whether hash is pending in the mempool.
func (c *Chain) HasTransaction(hash string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mempool.Has(hash)
}

func toChainBlocks(blocks []*block.Block) []balance.ChainBlock {
	out := make([]balance.ChainBlock, len(blocks))
	for i, b := range blocks {
		out[i] = b
	}
	return out
}
