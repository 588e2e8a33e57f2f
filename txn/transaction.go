// Copyright (c) 2025 The clst developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package txn implements the canonical transaction form: construction,
// canonical hashing, signing, and the validity predicate.
package txn

import (
	"strconv"
	"time"

	"github.com/clst-chain/clst-node/crypto"
	"github.com/clst-chain/clst-node/internal/clsterr"
)

// Transaction is a signed value-transfer, or the sentinel Genesis-to-Genesis
// transaction, or a coinbase mint (sender Genesis, any other receiver).
type Transaction struct {
	Sender          string
	SenderPublicKey string
	Receiver        string
	Amount          float64
	Timestamp       int64
	Hash            string
	Signature       string
}

// New constructs a pending, unsigned transaction. The hash is computed over
// the canonical form, which includes the (currently empty) public key.
func New(sender, receiver string, amount float64) *Transaction {
	tx := &Transaction{
		Sender:    sender,
		Receiver:  receiver,
		Amount:    amount,
		Timestamp: time.Now().Unix(),
	}
	tx.Hash = tx.calculateHash()
	return tx
}

// NewCoinbase builds the mint transaction appended to every mined block.
// Sender is always crypto.GenesisSender; the public key and signature stay
// empty, exactly like the Genesis-to-Genesis sentinel.
func NewCoinbase(receiver string, amount float64) *Transaction {
	tx := &Transaction{
		Sender:    crypto.GenesisSender,
		Receiver:  receiver,
		Amount:    amount,
		Timestamp: time.Now().Unix(),
	}
	tx.Hash = tx.calculateHash()
	return tx
}

// NewGenesisSentinel builds the single sender==receiver=="Genesis", amount
// 0 transaction carried by the genesis block.
func NewGenesisSentinel(timestamp int64) *Transaction {
	tx := &Transaction{
		Sender:    crypto.GenesisSender,
		Receiver:  crypto.GenesisSender,
		Amount:    0,
		Timestamp: timestamp,
	}
	tx.Hash = tx.calculateHash()
	return tx
}

// canonical renders the byte-exact hash input:
// sender || senderPublicKey || receiver || fmt(amount) || fmt(timestamp).
func (t *Transaction) canonical() string {
	return t.Sender + t.SenderPublicKey + t.Receiver +
		formatAmount(t.Amount) + strconv.FormatInt(t.Timestamp, 10)
}

func (t *Transaction) calculateHash() string {
	return crypto.Sha256Hex([]byte(t.canonical()))
}

// formatAmount renders amount in the shortest decimal representation, the
// form every implementation must agree on byte-for-byte for hashing.
func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'g', -1, 64)
}

// Sign assigns the signer's public key, recomputes the hash so the public
// key is covered by it, and signs that hash with signHash. Callers (such as
// the wallet package) supply a signHash bound to their private key; Sign
// itself stays crypto-agnostic about key storage.
func (t *Transaction) Sign(pubKeyHex string, signHash func(msgHashHex string) (string, error)) error {
	t.SenderPublicKey = pubKeyHex
	t.Hash = t.calculateHash()

	sig, err := signHash(t.Hash)
	if err != nil {
		return clsterr.Wrap(clsterr.InvalidTransaction, "failed to sign transaction", err)
	}
	t.Signature = sig
	return nil
}

// IsCoinbase reports whether t is a mint transaction: sender Genesis with a
// non-Genesis receiver.
func (t *Transaction) IsCoinbase() bool {
	return t.Sender == crypto.GenesisSender && t.Receiver != crypto.GenesisSender
}

// IsGenesisSentinel reports whether t is the sender==receiver=="Genesis"
// bootstrap transaction.
func (t *Transaction) IsGenesisSentinel() bool {
	return t.Sender == crypto.GenesisSender && t.Receiver == crypto.GenesisSender
}

// IsValid implements the §4.2 validity predicate.
func (t *Transaction) IsValid() bool {
	if t.IsGenesisSentinel() {
		return true
	}

	if t.Sender == "" || t.Receiver == "" {
		return false
	}
	if t.Amount <= 0 {
		return false
	}
	if t.Hash != t.calculateHash() {
		return false
	}

	// Coinbase transactions are structurally guaranteed valid by block
	// validation (exactly one, last, built by the miner); they carry no
	// public key or signature to check here.
	if t.IsCoinbase() {
		return true
	}

	if crypto.AddressFromPublicKeyHex(t.SenderPublicKey) != t.Sender {
		return false
	}
	return crypto.Verify(t.SenderPublicKey, t.Hash, t.Signature)
}

// Validate is IsValid expressed as a typed error, for callers (Chain) that
// need to report why a transaction was rejected.
func (t *Transaction) Validate() error {
	if t.IsValid() {
		return nil
	}
	return clsterr.New(clsterr.InvalidTransaction, "transaction failed validity predicate: "+t.Hash)
}

// Equal reports field-wise equality, used by the wire codec round-trip
// tests.
func (t *Transaction) Equal(o *Transaction) bool {
	if t == nil || o == nil {
		return t == o
	}
	return t.Sender == o.Sender &&
		t.SenderPublicKey == o.SenderPublicKey &&
		t.Receiver == o.Receiver &&
		t.Amount == o.Amount &&
		t.Timestamp == o.Timestamp &&
		t.Hash == o.Hash &&
		t.Signature == o.Signature
}
