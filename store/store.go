// Copyright (c) 2025 The clst developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package store implements the durable, content-addressed key-value layer
// the chain uses for blocks, transactions, balances, and the audit
// journal, grounded on the original BlockchainDB's LevelDB usage.
package store

import (
	"strconv"
	"strings"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/clst-chain/clst-node/balance"
	"github.com/clst-chain/clst-node/block"
	"github.com/clst-chain/clst-node/internal/clsterr"
	"github.com/clst-chain/clst-node/wire"
)

// Key prefixes per the store key schema.
const (
	blockPrefix      = "block:"
	txPrefix         = "tx:"
	balancePrefix    = "balance:"
	journalPrefix    = "journal:"
	worldstatePrefix = "worldstate:"
)

// LevelDB is the KV store implementation backing a Chain's persistence.
// It is single-writer: only the chain package writes to it; the explorer
// and API collaborators are expected to use the read-only accessors.
type LevelDB struct {
	db *leveldb.DB
}

// Open opens (creating if missing) a LevelDB store at path.
func Open(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, clsterr.Wrap(clsterr.Store, "failed to open store at "+path, err)
	}
	return &LevelDB{db: db}, nil
}

// Close releases the underlying database handle. It must be the last
// shutdown step, per the node's shutdown sequence.
func (s *LevelDB) Close() error {
	if err := s.db.Close(); err != nil {
		return clsterr.Wrap(clsterr.Store, "failed to close store", err)
	}
	return nil
}

func blockKey(height int64) []byte {
	return []byte(blockPrefix + strconv.FormatInt(height, 10))
}

func txKey(hash string) []byte {
	return []byte(txPrefix + hash)
}

func balanceKey(address string) []byte {
	return []byte(balancePrefix + address)
}

// PutBlock persists a block under block:<n>, using the same byte layout as
// the wire BLOCK payload (minus the envelope).
func (s *LevelDB) PutBlock(b *block.Block) error {
	if err := s.db.Put(blockKey(b.BlockNumber), []byte(wire.EncodeBlock(b)), nil); err != nil {
		return clsterr.Wrap(clsterr.Store, "failed to save block", err)
	}
	return nil
}

// GetBlock loads block:<height>. A missing entry yields (nil, nil); an entry
// that fails to decode yields a Store-kind error naming the height. Chain
// loading stops with that error: nothing skips or quarantines a corrupt
// block entry automatically (DeleteBlock removes one on request).
func (s *LevelDB) GetBlock(height int64) (*block.Block, error) {
	raw, err := s.db.Get(blockKey(height), nil)
	if err != nil {
		if err == errors.ErrNotFound {
			return nil, nil
		}
		return nil, clsterr.Wrap(clsterr.Store, "failed to read block", err)
	}
	b, err := wire.DecodeBlock(string(raw))
	if err != nil {
		log.Errorf("corrupt block entry at height %d: %v", height, err)
		return nil, clsterr.Wrap(clsterr.Store, "corrupt block entry at height "+strconv.FormatInt(height, 10), err)
	}
	return b, nil
}

// DeleteBlock removes a quarantined block entry.
func (s *LevelDB) DeleteBlock(height int64) error {
	if err := s.db.Delete(blockKey(height), nil); err != nil {
		return clsterr.Wrap(clsterr.Store, "failed to delete block", err)
	}
	log.Debugf("quarantined block at height %d removed", height)
	return nil
}

// PutTx persists a pending transaction under tx:<hash>.
func (s *LevelDB) PutTx(hash, payload string) error {
	if err := s.db.Put(txKey(hash), []byte(payload), nil); err != nil {
		return clsterr.Wrap(clsterr.Store, "failed to save transaction", err)
	}
	return nil
}

// GetAllTxs returns every currently stored pending transaction as its raw
// payload, keyed by hash. It does not decode the payloads; chain.Load
// discards any entry that fails to decode.
func (s *LevelDB) GetAllTxs() (map[string]string, error) {
	return s.ScanPrefix(txPrefix)
}

// DeleteTx removes a tx:<hash> entry once its transaction has landed in a
// block.
func (s *LevelDB) DeleteTx(hash string) error {
	if err := s.db.Delete(txKey(hash), nil); err != nil {
		return clsterr.Wrap(clsterr.Store, "failed to delete transaction", err)
	}
	return nil
}

// ScanPrefix returns every (key-without-prefix, value) pair whose key
// begins with prefix, as a map (so with no defined iteration order).
func (s *LevelDB) ScanPrefix(prefix string) (map[string]string, error) {
	out := make(map[string]string)
	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()
	for iter.Next() {
		key := strings.TrimPrefix(string(iter.Key()), prefix)
		out[key] = string(iter.Value())
	}
	if err := iter.Error(); err != nil {
		return nil, clsterr.Wrap(clsterr.Store, "failed prefix scan over "+prefix, err)
	}
	return out, nil
}

// PutBlockAndBalances persists a block together with the balance and
// journal updates it caused in one atomic batch, so a crash cannot observe
// the block without its balance effects or vice versa.
func (s *LevelDB) PutBlockAndBalances(b *block.Block, updates map[string]float64, journal []balance.JournalEntry) error {
	batch := new(leveldb.Batch)
	batch.Put(blockKey(b.BlockNumber), []byte(wire.EncodeBlock(b)))
	appendBalanceBatch(batch, updates, journal)
	if err := s.db.Write(batch, nil); err != nil {
		return clsterr.Wrap(clsterr.Store, "failed to write block and balance batch", err)
	}
	return nil
}

// PutBalanceBatch implements balance.Store: it atomically writes every
// balance:<address> update alongside its journal:<address>:<ts>:<txhash>
// audit rows, so a crash cannot observe one without the other.
func (s *LevelDB) PutBalanceBatch(updates map[string]float64, journal []balance.JournalEntry) error {
	batch := new(leveldb.Batch)
	appendBalanceBatch(batch, updates, journal)
	if err := s.db.Write(batch, nil); err != nil {
		return clsterr.Wrap(clsterr.Store, "failed to write balance batch", err)
	}
	return nil
}

// appendBalanceBatch adds every balance:<address> update and
// journal:<address>:<timestamp>:<txhash> row to an in-progress batch.
func appendBalanceBatch(batch *leveldb.Batch, updates map[string]float64, journal []balance.JournalEntry) {
	for addr, amt := range updates {
		batch.Put(balanceKey(addr), []byte(strconv.FormatFloat(amt, 'f', -1, 64)))
	}
	for _, j := range journal {
		key := journalPrefix + j.Address + ":" + strconv.FormatInt(j.Timestamp, 10) + ":" + j.TxHash
		value := strings.Join([]string{
			j.Address, j.TxHash,
			strconv.FormatFloat(j.Amount, 'g', -1, 64),
			strconv.FormatBool(j.IsCredit),
			strconv.FormatInt(j.BlockHeight, 10),
			strconv.FormatInt(j.Timestamp, 10),
		}, "|")
		batch.Put([]byte(key), []byte(value))
	}
}

// GetBalance loads balance:<address>; an address with no stored balance is
// 0, matching the in-memory BalanceState default.
func (s *LevelDB) GetBalance(address string) (float64, error) {
	raw, err := s.db.Get(balanceKey(address), nil)
	if err != nil {
		if err == errors.ErrNotFound {
			return 0, nil
		}
		return 0, clsterr.Wrap(clsterr.Store, "failed to read balance", err)
	}
	amt, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return 0, clsterr.Wrap(clsterr.Store, "corrupt balance entry for "+address, err)
	}
	return amt, nil
}

// PutWorldState writes the worldstate:<height> snapshot: newline-terminated
// address:balance lines, for the out-of-scope explorer/API collaborators.
func (s *LevelDB) PutWorldState(height int64, balances map[string]float64) error {
	var sb strings.Builder
	for addr, amt := range balances {
		sb.WriteString(addr)
		sb.WriteString(":")
		sb.WriteString(strconv.FormatFloat(amt, 'f', -1, 64))
		sb.WriteString("\n")
	}
	key := []byte(worldstatePrefix + strconv.FormatInt(height, 10))
	if err := s.db.Put(key, []byte(sb.String()), nil); err != nil {
		return clsterr.Wrap(clsterr.Store, "failed to write world-state snapshot", err)
	}
	return nil
}
