// Copyright (c) 2025 The clst developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wallet is the thin signing collaborator the node hands key
// material to; on-disk key persistence is out of this module's scope.
package wallet

import (
	"github.com/clst-chain/clst-node/crypto"
	"github.com/clst-chain/clst-node/txn"
)

// Wallet holds a key pair in memory and signs transactions with it.
type Wallet struct {
	keys *crypto.KeyPair
}

// New generates a fresh key pair and wraps it in a Wallet.
func New() (*Wallet, error) {
	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return &Wallet{keys: kp}, nil
}

// FromKeyPair wraps an already-loaded key pair, e.g. one a caller restored
// from disk (that restoration itself lives outside this module).
func FromKeyPair(kp *crypto.KeyPair) *Wallet {
	return &Wallet{keys: kp}
}

// Address returns this wallet's address, derived from its public key.
func (w *Wallet) Address() string {
	return crypto.AddressFromPublicKeyHex(w.keys.PublicKeyHex())
}

// PublicKeyHex returns this wallet's uncompressed public key hex.
func (w *Wallet) PublicKeyHex() string {
	return w.keys.PublicKeyHex()
}

// NewTransaction builds an unsigned transfer from this wallet to receiver.
func (w *Wallet) NewTransaction(receiver string, amount float64) *txn.Transaction {
	return txn.New(w.Address(), receiver, amount)
}

// Sign signs tx with this wallet's private key, assigning the public key
// and recomputing the hash first, per the transaction signing contract.
func (w *Wallet) Sign(tx *txn.Transaction) error {
	return tx.Sign(w.keys.PublicKeyHex(), func(msgHashHex string) (string, error) {
		return crypto.Sign(w.keys.Priv, msgHashHex)
	})
}
