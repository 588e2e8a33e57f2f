// Copyright (c) 2025 The clst developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"strconv"

	"github.com/clst-chain/clst-node/internal/clsterr"
	"github.com/clst-chain/clst-node/txn"
)

// txFieldCount is the number of '|'-delimited fields one transaction
// contributes to a TRANSACTION, BLOCK, or CHAIN_RESPONSE payload.
const txFieldCount = 7

// EncodeTransaction renders tx's 7 wire fields: sender | senderPublicKey |
// receiver | amount | timestamp | hash | signature.
func EncodeTransaction(tx *txn.Transaction) string {
	return joinFields(
		tx.Sender,
		tx.SenderPublicKey,
		tx.Receiver,
		strconv.FormatFloat(tx.Amount, 'g', -1, 64),
		strconv.FormatInt(tx.Timestamp, 10),
		tx.Hash,
		tx.Signature,
	)
}

// decodeTransactionFields builds a Transaction from its already-split 7
// wire fields.
func decodeTransactionFields(f []string) (*txn.Transaction, error) {
	amount, err := strconv.ParseFloat(f[3], 64)
	if err != nil {
		return nil, clsterr.Wrap(clsterr.Protocol, "malformed transaction amount", err)
	}
	timestamp, err := strconv.ParseInt(f[4], 10, 64)
	if err != nil {
		return nil, clsterr.Wrap(clsterr.Protocol, "malformed transaction timestamp", err)
	}
	return &txn.Transaction{
		Sender:          f[0],
		SenderPublicKey: f[1],
		Receiver:        f[2],
		Amount:          amount,
		Timestamp:       timestamp,
		Hash:            f[5],
		Signature:       f[6],
	}, nil
}

// DecodeTransaction parses a TRANSACTION payload.
func DecodeTransaction(payload string) (*txn.Transaction, error) {
	fields, err := splitFields(payload, txFieldCount)
	if err != nil {
		return nil, err
	}
	return decodeTransactionFields(fields)
}

// EncodeTransactionMessage wraps a serialized TRANSACTION payload in an envelope.
func EncodeTransactionMessage(senderID string, tx *txn.Transaction) Message {
	return Message{Type: Transaction, SenderID: senderID, Payload: EncodeTransaction(tx)}
}
