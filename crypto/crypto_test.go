// Copyright (c) 2025 The clst developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKeyPairAndAddress(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	pub := kp.PublicKeyHex()
	assert.True(t, len(pub) > 2)
	assert.Equal(t, "0x04", pub[:4])

	addr := AddressFromPublicKeyHex(pub)
	assert.Equal(t, "0x", addr[:2])
	assert.Len(t, addr, 2+addressHexLen)
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	hash := Sha256Hex([]byte("hello clst"))
	sig, err := Sign(kp.Priv, hash)
	require.NoError(t, err)

	assert.True(t, Verify(kp.PublicKeyHex(), hash, sig))
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	kp1, err := GenerateKeyPair()
	require.NoError(t, err)
	kp2, err := GenerateKeyPair()
	require.NoError(t, err)

	hash := Sha256Hex([]byte("hello clst"))
	sig, err := Sign(kp1.Priv, hash)
	require.NoError(t, err)

	assert.False(t, Verify(kp2.PublicKeyHex(), hash, sig))
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	hash := Sha256Hex([]byte("original"))
	sig, err := Sign(kp.Priv, hash)
	require.NoError(t, err)

	tampered := Sha256Hex([]byte("tampered"))
	assert.False(t, Verify(kp.PublicKeyHex(), tampered, sig))
}

func TestSha256HexIsDeterministic(t *testing.T) {
	a := Sha256Hex([]byte("same input"))
	b := Sha256Hex([]byte("same input"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, Sha256Hex([]byte("different input")))
}
