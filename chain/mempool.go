// Copyright (c) 2025 The clst developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import "github.com/clst-chain/clst-node/txn"

// mempool is the deduplicated, hash-keyed set of pending transactions.
// It is not safe for concurrent use on its own; callers hold the owning
// Chain's lock.
type mempool struct {
	order []string
	byTx  map[string]*txn.Transaction
}

func newMempool() *mempool {
	return &mempool{byTx: make(map[string]*txn.Transaction)}
}

// Has reports whether hash is already pending.
func (m *mempool) Has(hash string) bool {
	_, ok := m.byTx[hash]
	return ok
}

// Add appends tx if its hash is not already pending; it is a silent no-op
// otherwise, matching the chain-level dedup contract.
func (m *mempool) Add(tx *txn.Transaction) {
	if m.Has(tx.Hash) {
		return
	}
	m.order = append(m.order, tx.Hash)
	m.byTx[tx.Hash] = tx
}

// Remove drops hash from the pool, if present.
func (m *mempool) Remove(hash string) {
	if !m.Has(hash) {
		return
	}
	delete(m.byTx, hash)
	for i, h := range m.order {
		if h == hash {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Txs returns the pending transactions in insertion order.
func (m *mempool) Txs() []*txn.Transaction {
	out := make([]*txn.Transaction, 0, len(m.order))
	for _, h := range m.order {
		out = append(out, m.byTx[h])
	}
	return out
}

// Clear empties the pool.
func (m *mempool) Clear() {
	m.order = nil
	m.byTx = make(map[string]*txn.Transaction)
}

// Len reports the number of pending transactions.
func (m *mempool) Len() int {
	return len(m.order)
}
