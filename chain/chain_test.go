// Copyright (c) 2025 The clst developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clst-chain/clst-node/block"
	"github.com/clst-chain/clst-node/chaincfg"
	"github.com/clst-chain/clst-node/crypto"
	"github.com/clst-chain/clst-node/internal/clsterr"
	"github.com/clst-chain/clst-node/txn"
)

const testDifficulty = 1

func mineCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func fundedAddress(t *testing.T) (address string, kp *crypto.KeyPair) {
	t.Helper()
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	return crypto.AddressFromPublicKeyHex(kp.PublicKeyHex()), kp
}

func signTx(t *testing.T, kp *crypto.KeyPair, receiver string, amount float64) *txn.Transaction {
	t.Helper()
	sender := crypto.AddressFromPublicKeyHex(kp.PublicKeyHex())
	tx := txn.New(sender, receiver, amount)
	err := tx.Sign(kp.PublicKeyHex(), func(hash string) (string, error) {
		return crypto.Sign(kp.Priv, hash)
	})
	require.NoError(t, err)
	return tx
}

// Scenario 1: booting against an empty store writes the fixed genesis block.
func TestLoadBootsGenesis(t *testing.T) {
	store := newMemStore()
	c, err := Load(store, false, testDifficulty)
	require.NoError(t, err)

	assert.Equal(t, int64(0), c.Height())
	assert.Equal(t, chaincfg.GenesisHash, c.Tip().Hash)
	assert.True(t, c.IsValid())

	stored, err := store.GetBlock(0)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, chaincfg.GenesisHash, stored.Hash)
}

// Scenario 2: mining with an empty mempool produces a coinbase-only block.
func TestMineEmptyBlock(t *testing.T) {
	store := newMemStore()
	c, err := Load(store, false, testDifficulty)
	require.NoError(t, err)

	miner, _ := fundedAddress(t)
	b, err := c.Mine(mineCtx(t), miner)
	require.NoError(t, err)

	assert.Equal(t, int64(1), b.BlockNumber)
	require.Len(t, b.Transactions, 1)
	assert.True(t, b.Transactions[0].IsCoinbase())
	assert.Equal(t, int64(1), c.Height())
	assert.Equal(t, chaincfg.CurrentReward(time.Now()), c.Balance(miner))
}

// Scenario 3: a transaction submitted locally is included and settled by the
// next mined block.
func TestSendThenMineSettlesBalances(t *testing.T) {
	store := newMemStore()
	c, err := Load(store, false, testDifficulty)
	require.NoError(t, err)

	reward := chaincfg.CurrentReward(time.Now())
	transfer := reward / 2
	sender, kp := fundedAddress(t)
	_, err = c.Mine(mineCtx(t), sender)
	require.NoError(t, err)
	require.Equal(t, reward, c.Balance(sender))

	tx := signTx(t, kp, "0xreceiver", transfer)
	require.NoError(t, c.AddLocalTransaction(tx))
	assert.True(t, c.HasTransaction(tx.Hash))

	b, err := c.Mine(mineCtx(t), sender)
	require.NoError(t, err)

	require.Len(t, b.Transactions, 2)
	assert.Equal(t, tx.Hash, b.Transactions[0].Hash)
	assert.True(t, b.Transactions[1].IsCoinbase())

	assert.InDelta(t, reward-transfer+reward, c.Balance(sender), 1e-9)
	assert.Equal(t, transfer, c.Balance("0xreceiver"))
	assert.False(t, c.HasTransaction(tx.Hash))
}

// Scenario 4: a transaction from an address with insufficient balance is
// rejected without mutating the mempool or balances.
func TestAddLocalTransactionRejectsInsufficientBalance(t *testing.T) {
	store := newMemStore()
	c, err := Load(store, false, testDifficulty)
	require.NoError(t, err)

	sender, kp := fundedAddress(t)
	tx := signTx(t, kp, "0xreceiver", 5)

	err = c.AddLocalTransaction(tx)
	require.Error(t, err)
	assert.True(t, clsterr.KindIs(err, clsterr.InvalidTransaction))
	assert.False(t, c.HasTransaction(tx.Hash))
	assert.Equal(t, 0.0, c.Balance(sender))
}

// Scenario 5: when a higher-work candidate chain arrives, it replaces the
// current chain and any of its transactions absent from the winning chain
// are requeued into the mempool.
func TestReplaceChainAdoptsHigherWorkAndRequeuesOrphans(t *testing.T) {
	store := newMemStore()
	c, err := Load(store, false, testDifficulty)
	require.NoError(t, err)

	reward := chaincfg.CurrentReward(time.Now())
	miner, kp := fundedAddress(t)
	_, err = c.Mine(mineCtx(t), miner)
	require.NoError(t, err)

	tx := signTx(t, kp, "0xreceiver", reward/2)
	require.NoError(t, c.AddLocalTransaction(tx))

	_, err = c.Mine(mineCtx(t), miner)
	require.NoError(t, err)
	require.Equal(t, int64(2), c.Height())

	losingWork := chainWork(c.Snapshot())
	genesis := newGenesisBlock()
	altMiner, _ := fundedAddress(t)
	alt1 := block.New(1, genesis.Hash, 2, []*txn.Transaction{txn.NewCoinbase(altMiner, reward)})
	require.NoError(t, alt1.Mine(mineCtx(t)))
	alt2 := block.New(2, alt1.Hash, 2, []*txn.Transaction{txn.NewCoinbase(altMiner, reward)})
	require.NoError(t, alt2.Mine(mineCtx(t)))

	candidate := []*block.Block{genesis, alt1, alt2}
	require.Greater(t, chainWork(candidate), losingWork)

	adopted, err := c.ReplaceChain(candidate)
	require.NoError(t, err)
	assert.True(t, adopted)

	assert.Equal(t, alt2.Hash, c.Tip().Hash)
	assert.Equal(t, reward*2, c.Balance(altMiner))
	assert.True(t, c.HasTransaction(tx.Hash), "the orphaned transfer must be requeued into the mempool")
}

// Scenario 6: reloading a store that already holds a mined history rebuilds
// an identical tip and identical balances, as if recovering from a restart.
func TestLoadRecoversIdenticalStateAfterRestart(t *testing.T) {
	store := newMemStore()
	c1, err := Load(store, false, testDifficulty)
	require.NoError(t, err)

	miner, kp := fundedAddress(t)
	_, err = c1.Mine(mineCtx(t), miner)
	require.NoError(t, err)

	reward := chaincfg.CurrentReward(time.Now())
	tx := signTx(t, kp, "0xreceiver", reward/2)
	require.NoError(t, c1.AddLocalTransaction(tx))
	_, err = c1.Mine(mineCtx(t), miner)
	require.NoError(t, err)

	wantTip := c1.Tip().Hash
	wantMinerBalance := c1.Balance(miner)
	wantReceiverBalance := c1.Balance("0xreceiver")

	c2, err := Load(store, false, testDifficulty)
	require.NoError(t, err)

	assert.Equal(t, wantTip, c2.Tip().Hash)
	assert.Equal(t, c1.Height(), c2.Height())
	assert.Equal(t, wantMinerBalance, c2.Balance(miner))
	assert.Equal(t, wantReceiverBalance, c2.Balance("0xreceiver"))
	assert.Empty(t, c2.Mempool())
}
