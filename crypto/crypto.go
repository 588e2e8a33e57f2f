// Copyright (c) 2025 The clst developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package crypto implements the hashing and ECDSA-over-secp256k1 primitives
// that back transaction signing and address derivation.
package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// GenesisSender is the sentinel sender/receiver identity used for the
// genesis transaction and for every coinbase/mint transaction.
const GenesisSender = "Genesis"

// addressHexLen is the number of hex characters kept from the SHA-256 of a
// public key to form an address (40 hex chars == 20 bytes).
const addressHexLen = 40

// ErrInvalidPublicKey is returned when a hex-encoded public key cannot be
// parsed onto the secp256k1 curve.
var ErrInvalidPublicKey = errors.New("crypto: invalid public key")

// ErrInvalidSignature is returned when a hex-encoded signature is not a
// valid DER-encoded ECDSA signature.
var ErrInvalidSignature = errors.New("crypto: invalid signature")

// KeyPair is a secp256k1 private/public key pair.
type KeyPair struct {
	Priv *btcec.PrivateKey
	Pub  *btcec.PublicKey
}

// GenerateKeyPair creates a fresh secp256k1 key pair.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, err
	}
	return &KeyPair{Priv: priv, Pub: priv.PubKey()}, nil
}

// PublicKeyHex renders the uncompressed public key (0x04 || X || Y) as a
// lowercase hex string prefixed with 0x.
func (k *KeyPair) PublicKeyHex() string {
	return "0x" + hex.EncodeToString(k.Pub.SerializeUncompressed())
}

// Sha256Hex returns the SHA-256 digest of data as lowercase hex prefixed
// with 0x.
func Sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return "0x" + hex.EncodeToString(sum[:])
}

// AddressFromPublicKeyHex derives an address from an uncompressed
// public-key hex string: 0x + first 40 hex chars of the SHA-256 of the hex
// text with its 0x prefix stripped (the ASCII characters, not the decoded
// key bytes).
func AddressFromPublicKeyHex(pubKeyHex string) string {
	stripped := strings.TrimPrefix(pubKeyHex, "0x")
	digest := sha256.Sum256([]byte(stripped))
	full := hex.EncodeToString(digest[:])
	return "0x" + full[:addressHexLen]
}

// Sign signs msgHashHex (a 0x-prefixed hex digest) with priv and returns a
// DER-encoded signature as 0x-prefixed hex.
func Sign(priv *btcec.PrivateKey, msgHashHex string) (string, error) {
	digest, err := decodeHashHex(msgHashHex)
	if err != nil {
		return "", err
	}
	sig := ecdsa.Sign(priv, digest)
	return "0x" + hex.EncodeToString(sig.Serialize()), nil
}

// Verify reports whether sigHex is a valid DER-encoded ECDSA signature over
// msgHashHex by the key encoded in pubKeyHex.
func Verify(pubKeyHex, msgHashHex, sigHex string) bool {
	pub, err := ParsePublicKeyHex(pubKeyHex)
	if err != nil {
		return false
	}
	digest, err := decodeHashHex(msgHashHex)
	if err != nil {
		return false
	}
	sigBytes, err := hex.DecodeString(strings.TrimPrefix(sigHex, "0x"))
	if err != nil {
		return false
	}
	sig, err := ecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return false
	}
	return sig.Verify(digest, pub)
}

// ParsePublicKeyHex parses an uncompressed secp256k1 public key hex string
// (with or without the 0x prefix) into a *btcec.PublicKey.
func ParsePublicKeyHex(pubKeyHex string) (*btcec.PublicKey, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(pubKeyHex, "0x"))
	if err != nil {
		return nil, ErrInvalidPublicKey
	}
	pub, err := btcec.ParsePubKey(raw)
	if err != nil {
		return nil, ErrInvalidPublicKey
	}
	return pub, nil
}

func decodeHashHex(hashHex string) ([]byte, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(hashHex, "0x"))
	if err != nil {
		return nil, errors.New("crypto: malformed hash hex")
	}
	return raw, nil
}
