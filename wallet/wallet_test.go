// Copyright (c) 2025 The clst developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWalletSignsValidTransaction(t *testing.T) {
	w, err := New()
	require.NoError(t, err)

	tx := w.NewTransaction("0xreceiver", 5)
	require.NoError(t, w.Sign(tx))

	assert.Equal(t, w.Address(), tx.Sender)
	assert.True(t, tx.IsValid())
}

func TestFromKeyPairReproducesSameAddress(t *testing.T) {
	w1, err := New()
	require.NoError(t, err)

	w2 := FromKeyPair(w1.keys)
	assert.Equal(t, w1.Address(), w2.Address())
	assert.Equal(t, w1.PublicKeyHex(), w2.PublicKeyHex())
}
