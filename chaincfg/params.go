// Copyright (c) 2025 The clst developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaincfg holds the network-compatible constants every node must
// agree on bit-exact: the genesis block, the initial mining reward, and
// the halving schedule.
package chaincfg

import "time"

// Genesis constants, fixed for network compatibility. These must never
// change: a node that disagrees on any of these cannot sync with the rest
// of the network.
const (
	// GenesisTimestamp is the Unix timestamp baked into the genesis block.
	GenesisTimestamp int64 = 1745026508

	// GenesisNonce is the nonce baked into the genesis block.
	GenesisNonce uint64 = 27701

	// GenesisHash is the genesis block's hash; it is never recomputed
	// from content, only compared against.
	GenesisHash = "0x0000eb99d08f42f3c322b891f18212c85aa05365166964973a56d03e7da36f80"

	// InitialReward is the mining reward paid for the first halving
	// epoch.
	InitialReward float64 = 50.0

	// HalvingDays is the number of days between reward halvings.
	HalvingDays = 30

	// MinimumReward is the floor the halving schedule never drops below.
	MinimumReward float64 = 0.01

	// EmptyBlockLimit is the number of coinbase-only blocks (including
	// genesis) a chain may carry before mining requires a non-empty
	// mempool.
	EmptyBlockLimit = 3

	// DefaultDifficulty is the operator-set default difficulty for a
	// freshly configured node.
	DefaultDifficulty = 4
)

// DifficultyMin and DifficultyMax bound the operator-set difficulty.
const (
	DifficultyMin = 1
	DifficultyMax = 8
)

const halvingInterval = time.Duration(HalvingDays) * 24 * time.Hour

// CurrentReward returns the mining reward in effect at t, per the halving
// schedule anchored at GenesisTimestamp: R0 / 2^floor((t-genesis)/H),
// floored at MinimumReward.
func CurrentReward(t time.Time) float64 {
	elapsed := t.Sub(time.Unix(GenesisTimestamp, 0))
	if elapsed < 0 {
		elapsed = 0
	}
	halvings := int(elapsed / halvingInterval)

	reward := InitialReward
	for i := 0; i < halvings; i++ {
		reward /= 2.0
		if reward < MinimumReward {
			return MinimumReward
		}
	}
	if reward < MinimumReward {
		return MinimumReward
	}
	return reward
}
