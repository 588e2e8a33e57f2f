// Copyright (c) 2025 The clst developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"strconv"
	"strings"

	"github.com/clst-chain/clst-node/block"
	"github.com/clst-chain/clst-node/internal/clsterr"
	"github.com/clst-chain/clst-node/txn"
)

// blockHeaderFieldCount is the number of fields a BLOCK payload carries
// before its per-transaction fields: blockNumber, timestamp, previousHash,
// hash, nonce, difficulty, txCount.
const blockHeaderFieldCount = 7

// EncodeBlock renders a BLOCK payload: blockNumber | timestamp |
// previousHash | hash | nonce | difficulty | txCount | tx_1_fields… |
// tx_n_fields…
func EncodeBlock(b *block.Block) string {
	var sb strings.Builder
	sb.WriteString(joinFields(
		strconv.FormatInt(b.BlockNumber, 10),
		strconv.FormatInt(b.Timestamp, 10),
		b.PreviousHash,
		b.Hash,
		strconv.FormatUint(b.Nonce, 10),
		strconv.Itoa(b.Difficulty),
		strconv.Itoa(len(b.Transactions)),
	))
	for _, tx := range b.Transactions {
		sb.WriteString(sep)
		sb.WriteString(EncodeTransaction(tx))
	}
	return sb.String()
}

// DecodeBlock parses a BLOCK payload.
func DecodeBlock(payload string) (*block.Block, error) {
	parts := strings.Split(payload, sep)
	if len(parts) < blockHeaderFieldCount {
		return nil, clsterr.New(clsterr.Protocol, "malformed block payload: too few header fields")
	}

	blockNumber, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, clsterr.Wrap(clsterr.Protocol, "malformed block number", err)
	}
	timestamp, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, clsterr.Wrap(clsterr.Protocol, "malformed block timestamp", err)
	}
	nonce, err := strconv.ParseUint(parts[4], 10, 64)
	if err != nil {
		return nil, clsterr.Wrap(clsterr.Protocol, "malformed block nonce", err)
	}
	difficulty, err := strconv.Atoi(parts[5])
	if err != nil {
		return nil, clsterr.Wrap(clsterr.Protocol, "malformed block difficulty", err)
	}
	txCount, err := strconv.Atoi(parts[6])
	if err != nil {
		return nil, clsterr.Wrap(clsterr.Protocol, "malformed block tx count", err)
	}

	rest := parts[blockHeaderFieldCount:]
	if len(rest) != txCount*txFieldCount {
		return nil, clsterr.New(clsterr.Protocol, "malformed block payload: tx field count mismatch")
	}

	transactions, err := decodeTxGroup(rest, txCount)
	if err != nil {
		return nil, err
	}

	return &block.Block{
		BlockNumber:  blockNumber,
		Timestamp:    timestamp,
		PreviousHash: parts[2],
		Hash:         parts[3],
		Nonce:        nonce,
		Difficulty:   difficulty,
		Transactions: transactions,
	}, nil
}

// decodeTxGroup splits fields into count consecutive 7-field transaction
// groups, used by both BLOCK and CHAIN_RESPONSE decoding.
func decodeTxGroup(fields []string, count int) ([]*txn.Transaction, error) {
	txs := make([]*txn.Transaction, 0, count)
	for i := 0; i < count; i++ {
		group := fields[i*txFieldCount : (i+1)*txFieldCount]
		tx, err := decodeTransactionFields(group)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}
