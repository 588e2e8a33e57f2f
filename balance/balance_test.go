// Copyright (c) 2025 The clst developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package balance

import (
	"reflect"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"

	"github.com/clst-chain/clst-node/txn"
)

func TestApplyCoinbaseCreditsReceiver(t *testing.T) {
	s := New(nil)
	coinbase := txn.NewCoinbase("0xminer", 50)
	assert.True(t, s.Apply(coinbase, 1))
	assert.Equal(t, 50.0, s.Get("0xminer"))
}

func TestApplyRejectsInsufficientBalanceWithoutMutation(t *testing.T) {
	s := New(nil)
	tx := txn.New("0xa", "0xb", 10)
	assert.False(t, s.Apply(tx, 1))
	assert.Equal(t, 0.0, s.Get("0xa"))
	assert.Equal(t, 0.0, s.Get("0xb"))
}

func TestApplyDebitsSenderCreditsReceiver(t *testing.T) {
	s := New(nil)
	s.Set("0xa", 100)

	tx := txn.New("0xa", "0xb", 30)
	assert.True(t, s.Apply(tx, 1))
	assert.Equal(t, 70.0, s.Get("0xa"))
	assert.Equal(t, 30.0, s.Get("0xb"))
}

func TestCanAfford(t *testing.T) {
	s := New(nil)
	s.Set("0xa", 5)

	assert.True(t, s.CanAfford(txn.New("0xa", "0xb", 5)))
	assert.False(t, s.CanAfford(txn.New("0xa", "0xb", 5.01)))
	assert.True(t, s.CanAfford(txn.NewCoinbase("0xb", 1000)))
}

type fakeBlock struct {
	height int64
	txs    []*txn.Transaction
}

func (f fakeBlock) Height() int64              { return f.height }
func (f fakeBlock) Txs() []*txn.Transaction    { return f.txs }

func TestProjectFromIsDeterministicAndIdempotent(t *testing.T) {
	blocks := []ChainBlock{
		fakeBlock{height: 0, txs: []*txn.Transaction{txn.NewGenesisSentinel(1745026508)}},
		fakeBlock{height: 1, txs: []*txn.Transaction{txn.NewCoinbase("0xminer", 50)}},
		fakeBlock{height: 2, txs: []*txn.Transaction{
			txn.New("0xminer", "0xb", 10),
			txn.NewCoinbase("0xminer", 50),
		}},
	}

	s1 := New(nil)
	s1.ProjectFrom(blocks)
	s2 := New(nil)
	s2.ProjectFrom(blocks)

	assert.Equal(t, s1.GetAll(), s2.GetAll())
	assert.Equal(t, 90.0, s1.Get("0xminer"))
	assert.Equal(t, 10.0, s1.Get("0xb"))

	s1.ProjectFrom(blocks)
	assert.Equal(t, 90.0, s1.Get("0xminer"))
}

func TestApplyAllAggregatesAcrossTransactions(t *testing.T) {
	s := New(nil)
	s.Set("0xa", 100)

	txs := []*txn.Transaction{
		txn.New("0xa", "0xb", 30),
		txn.NewCoinbase("0xminer", 50),
	}
	ok, updates, journal := s.ApplyAll(txs, 5)
	assert.True(t, ok)
	assert.Equal(t, 70.0, updates["0xa"])
	assert.Equal(t, 30.0, updates["0xb"])
	assert.Equal(t, 50.0, updates["0xminer"])
	assert.Len(t, journal, 3)
}

func TestApplyAllFailsWithoutPartialMutationVisible(t *testing.T) {
	s := New(nil)
	s.Set("0xa", 5)

	txs := []*txn.Transaction{
		txn.NewCoinbase("0xb", 50),
		txn.New("0xa", "0xc", 100),
	}
	ok, _, _ := s.ApplyAll(txs, 1)
	assert.False(t, ok)
	assert.Equal(t, 0.0, s.Get("0xb"))
	assert.Equal(t, 5.0, s.Get("0xa"))
}

func TestApplyAllUpdatesTable(t *testing.T) {
	cases := []struct {
		name    string
		initial map[string]float64
		txs     []*txn.Transaction
		want    map[string]float64
	}{
		{
			name:    "single transfer",
			initial: map[string]float64{"0xa": 100},
			txs:     []*txn.Transaction{txn.New("0xa", "0xb", 40)},
			want:    map[string]float64{"0xa": 60, "0xb": 40},
		},
		{
			name:    "transfer plus coinbase",
			initial: map[string]float64{"0xa": 20},
			txs: []*txn.Transaction{
				txn.New("0xa", "0xb", 5),
				txn.NewCoinbase("0xminer", 50),
			},
			want: map[string]float64{"0xa": 15, "0xb": 5, "0xminer": 50},
		},
		{
			name:    "chained transfers within one block",
			initial: map[string]float64{"0xa": 10},
			txs: []*txn.Transaction{
				txn.New("0xa", "0xb", 10),
				txn.New("0xb", "0xc", 4),
			},
			want: map[string]float64{"0xa": 0, "0xb": 6, "0xc": 4},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := New(nil)
			for addr, amt := range tc.initial {
				s.Set(addr, amt)
			}

			ok, updates, _ := s.ApplyAll(tc.txs, 1)
			if !ok {
				t.Fatalf("ApplyAll unexpectedly rejected case %q", tc.name)
			}
			if !reflect.DeepEqual(updates, tc.want) {
				t.Fatalf("case %q: updates did not match expected balances\ngot:\n%swant:\n%s",
					tc.name, spew.Sdump(updates), spew.Sdump(tc.want))
			}
		})
	}
}
