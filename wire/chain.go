// Copyright (c) 2025 The clst developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"strconv"
	"strings"

	"github.com/clst-chain/clst-node/block"
	"github.com/clst-chain/clst-node/internal/clsterr"
)

// EncodeChainResponse renders a CHAIN_RESPONSE payload: blockCount |
// block_1_fields… (each block laid out exactly as a BLOCK payload).
func EncodeChainResponse(blocks []*block.Block) string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(len(blocks)))
	for _, b := range blocks {
		sb.WriteString(sep)
		sb.WriteString(EncodeBlock(b))
	}
	return sb.String()
}

// DecodeChainResponse parses a CHAIN_RESPONSE payload back into an ordered
// block list.
func DecodeChainResponse(payload string) ([]*block.Block, error) {
	parts := strings.Split(payload, sep)
	if len(parts) == 0 {
		return nil, clsterr.New(clsterr.Protocol, "malformed chain response: missing count")
	}
	count, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, clsterr.Wrap(clsterr.Protocol, "malformed chain response count", err)
	}

	rest := parts[1:]
	blocks := make([]*block.Block, 0, count)
	i := 0
	for b := 0; b < count; b++ {
		if i+blockHeaderFieldCount > len(rest) {
			return nil, clsterr.New(clsterr.Protocol, "malformed chain response: truncated block header")
		}
		txCount, err := strconv.Atoi(rest[i+6])
		if err != nil {
			return nil, clsterr.Wrap(clsterr.Protocol, "malformed chain response block tx count", err)
		}
		fieldsInBlock := blockHeaderFieldCount + txCount*txFieldCount
		if i+fieldsInBlock > len(rest) {
			return nil, clsterr.New(clsterr.Protocol, "malformed chain response: truncated block body")
		}
		blockPayload := strings.Join(rest[i:i+fieldsInBlock], sep)
		blk, err := DecodeBlock(blockPayload)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, blk)
		i += fieldsInBlock
	}
	if i != len(rest) {
		return nil, clsterr.New(clsterr.Protocol, "malformed chain response: trailing fields")
	}
	return blocks, nil
}
