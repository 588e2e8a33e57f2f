// Copyright (c) 2025 The clst developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clst-chain/clst-node/block"
	"github.com/clst-chain/clst-node/txn"
)

func sampleTx() *txn.Transaction {
	return &txn.Transaction{
		Sender:          "0xsender",
		SenderPublicKey: "0x04abcdef",
		Receiver:        "0xreceiver",
		Amount:          12.5,
		Timestamp:       1745026508,
		Hash:            "0xdeadbeef",
		Signature:       "304402abc",
	}
}

func sampleBlock() *block.Block {
	return &block.Block{
		BlockNumber:  3,
		Timestamp:    1745026600,
		PreviousHash: "0xprevious",
		Hash:         "0x00001234",
		Nonce:        9001,
		Difficulty:   4,
		Transactions: []*txn.Transaction{
			sampleTx(),
			txn.NewCoinbase("0xminer", 50),
		},
	}
}

func TestMessageRoundTrip(t *testing.T) {
	msg := Message{Type: Transaction, SenderID: "node-1", Payload: EncodeTransaction(sampleTx())}
	line := msg.Serialize()

	parsed, err := ParseMessage(line)
	require.NoError(t, err)
	assert.Equal(t, msg, parsed)
}

func TestParseMessageRejectsUnknownType(t *testing.T) {
	_, err := ParseMessage("BOGUS|node-1|payload")
	assert.Error(t, err)
}

func TestParseMessageRejectsTooFewFields(t *testing.T) {
	_, err := ParseMessage("HANDSHAKE")
	assert.Error(t, err)
}

func TestParseMessageAllowsEmptyPayload(t *testing.T) {
	msg, err := ParseMessage("PING|node-1|")
	require.NoError(t, err)
	assert.Equal(t, Ping, msg.Type)
	assert.Equal(t, "", msg.Payload)
}

func TestTransactionRoundTrip(t *testing.T) {
	tx := sampleTx()
	decoded, err := DecodeTransaction(EncodeTransaction(tx))
	require.NoError(t, err)
	assert.True(t, tx.Equal(decoded))
}

func TestDecodeTransactionRejectsWrongFieldCount(t *testing.T) {
	_, err := DecodeTransaction("0xa|0xb|0xc")
	assert.Error(t, err)
}

func TestDecodeTransactionRejectsMalformedAmount(t *testing.T) {
	fields := []string{"0xa", "0x04", "0xb", "notanumber", "1", "0xhash", "0xsig"}
	_, err := decodeTransactionFields(fields)
	assert.Error(t, err)
}

func TestBlockRoundTrip(t *testing.T) {
	b := sampleBlock()
	decoded, err := DecodeBlock(EncodeBlock(b))
	require.NoError(t, err)

	assert.Equal(t, b.BlockNumber, decoded.BlockNumber)
	assert.Equal(t, b.Timestamp, decoded.Timestamp)
	assert.Equal(t, b.PreviousHash, decoded.PreviousHash)
	assert.Equal(t, b.Hash, decoded.Hash)
	assert.Equal(t, b.Nonce, decoded.Nonce)
	assert.Equal(t, b.Difficulty, decoded.Difficulty)
	require.Len(t, decoded.Transactions, len(b.Transactions))
	for i, tx := range b.Transactions {
		assert.True(t, tx.Equal(decoded.Transactions[i]))
	}
}

func TestDecodeBlockRejectsTxCountMismatch(t *testing.T) {
	payload := EncodeBlock(sampleBlock()) + "|extrafield"
	_, err := DecodeBlock(payload)
	assert.Error(t, err)
}

func TestDecodeBlockRejectsTooFewHeaderFields(t *testing.T) {
	_, err := DecodeBlock("1|2|3")
	assert.Error(t, err)
}

func TestHandshakeRoundTrip(t *testing.T) {
	h := Handshake{Kind: FullNode, ListenPort: 8333}
	decoded, err := DecodeHandshake(EncodeHandshake(h))
	require.NoError(t, err)
	assert.Equal(t, h, decoded)
}

func TestParseNodeKindRejectsUnknown(t *testing.T) {
	_, err := ParseNodeKind("ALIEN_NODE")
	assert.Error(t, err)
}

func TestPeerListRoundTrip(t *testing.T) {
	peers := []PeerInfo{
		{Address: "127.0.0.1", Port: 8333, Kind: FullNode, ID: "node-1"},
		{Address: "10.0.0.5", Port: 8334, Kind: WalletNode, ID: "node-2"},
	}
	decoded, err := DecodePeerList(EncodePeerList(peers))
	require.NoError(t, err)
	assert.Equal(t, peers, decoded)
}

func TestPeerListRoundTripEmpty(t *testing.T) {
	decoded, err := DecodePeerList(EncodePeerList(nil))
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestDecodePeerListRejectsFieldMismatch(t *testing.T) {
	_, err := DecodePeerList("1|127.0.0.1|8333|FULL_NODE")
	assert.Error(t, err)
}

func TestChainResponseRoundTrip(t *testing.T) {
	blocks := []*block.Block{sampleBlock(), sampleBlock()}
	blocks[1].BlockNumber = 4

	decoded, err := DecodeChainResponse(EncodeChainResponse(blocks))
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	for i, b := range blocks {
		assert.Equal(t, b.BlockNumber, decoded[i].BlockNumber)
		assert.Equal(t, b.Hash, decoded[i].Hash)
		require.Len(t, decoded[i].Transactions, len(b.Transactions))
		for j, tx := range b.Transactions {
			assert.True(t, tx.Equal(decoded[i].Transactions[j]))
		}
	}
}

func TestChainResponseRoundTripEmpty(t *testing.T) {
	decoded, err := DecodeChainResponse(EncodeChainResponse(nil))
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestDecodeChainResponseRejectsTruncatedBody(t *testing.T) {
	_, err := DecodeChainResponse("1|0|0|prev|hash|1|2|1")
	assert.Error(t, err)
}
