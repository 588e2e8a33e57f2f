// Copyright (c) 2025 The clst developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"sync"

	"github.com/clst-chain/clst-node/balance"
	"github.com/clst-chain/clst-node/block"
)

// memStore is a map-backed Store used only by tests, standing in for the
// real LevelDB-backed store so chain behavior can be exercised without
// touching disk.
type memStore struct {
	mu          sync.Mutex
	blocks      map[int64]*block.Block
	txs         map[string]string
	balances    map[string]float64
	worldstates map[int64]map[string]float64
}

func newMemStore() *memStore {
	return &memStore{
		blocks:      make(map[int64]*block.Block),
		txs:         make(map[string]string),
		balances:    make(map[string]float64),
		worldstates: make(map[int64]map[string]float64),
	}
}

func (m *memStore) PutBlock(b *block.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocks[b.BlockNumber] = b
	return nil
}

func (m *memStore) GetBlock(height int64) (*block.Block, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blocks[height], nil
}

func (m *memStore) PutTx(hash, payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs[hash] = payload
	return nil
}

func (m *memStore) DeleteTx(hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.txs, hash)
	return nil
}

func (m *memStore) GetAllTxs() (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.txs))
	for k, v := range m.txs {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) PutBalanceBatch(updates map[string]float64, _ []balance.JournalEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for addr, amt := range updates {
		m.balances[addr] = amt
	}
	return nil
}

func (m *memStore) PutBlockAndBalances(b *block.Block, updates map[string]float64, journal []balance.JournalEntry) error {
	if err := m.PutBlock(b); err != nil {
		return err
	}
	return m.PutBalanceBatch(updates, journal)
}

func (m *memStore) PutWorldState(height int64, balances map[string]float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := make(map[string]float64, len(balances))
	for addr, amt := range balances {
		snapshot[addr] = amt
	}
	m.worldstates[height] = snapshot
	return nil
}
