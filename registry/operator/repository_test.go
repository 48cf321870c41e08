// Copyright (c) 2025 The core-lido developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package operator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRepositoryAssignsSequentialIDs(t *testing.T) {
	repo := NewRepository()

	for want := uint64(0); want < 5; want++ {
		id := repo.Add(&Operator{Active: true})
		assert.Equal(t, want, id)
	}
	assert.Equal(t, uint64(5), repo.Len())
	assert.Equal(t, uint64(5), repo.ActiveLen())
}

func TestRepositoryGetUnknown(t *testing.T) {
	repo := NewRepository()
	repo.Add(&Operator{})

	assert.NotNil(t, repo.Get(0))
	assert.Nil(t, repo.Get(1))
	assert.Nil(t, repo.Get(math.MaxUint64))
}

func TestRepositoryActiveCache(t *testing.T) {
	repo := NewRepository()
	op := &Operator{Active: true}
	repo.Add(op)
	repo.Add(&Operator{Active: true})

	repo.SetActive(op, false)
	assert.Equal(t, uint64(1), repo.ActiveLen())

	// same state twice must not skew the cache
	repo.SetActive(op, false)
	assert.Equal(t, uint64(1), repo.ActiveLen())

	repo.SetActive(op, true)
	assert.Equal(t, uint64(2), repo.ActiveLen())
}

func TestRepositoryIDs(t *testing.T) {
	repo := NewRepository()
	for i := 0; i < 4; i++ {
		repo.Add(&Operator{})
	}

	assert.Equal(t, []uint64{0, 1, 2, 3}, repo.IDs(0, 10))
	assert.Equal(t, []uint64{1, 2}, repo.IDs(1, 2))
	assert.Equal(t, []uint64{}, repo.IDs(4, 10))
	assert.Equal(t, []uint64{}, repo.IDs(0, 0))
	// offset+limit overflow must clamp, not wrap
	assert.Equal(t, []uint64{3}, repo.IDs(3, math.MaxUint64))
}

func TestRepositoryRestore(t *testing.T) {
	repo := NewRepository()
	repo.Add(&Operator{Active: true})

	repo.Restore([]*Operator{
		{ID: 0, Active: true},
		{ID: 1, Active: false},
		{ID: 2, Active: true},
	})

	assert.Equal(t, uint64(3), repo.Len())
	assert.Equal(t, uint64(2), repo.ActiveLen())
}

func TestIsPenalized(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name string
		op   Operator
		want bool
	}{
		{"clean", Operator{}, false},
		{"stuck exceeds refunded", Operator{Stuck: 2, Refunded: 1}, true},
		{"fully refunded", Operator{Stuck: 2, Refunded: 2}, false},
		{"cooldown running", Operator{StuckPenaltyEndAt: uint64(now.Unix()) + 100}, true},
		{"cooldown elapsed", Operator{StuckPenaltyEndAt: uint64(now.Unix())}, false},
		{"refunded but cooling down", Operator{Stuck: 1, Refunded: 1, StuckPenaltyEndAt: uint64(now.Unix()) + 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.op.IsPenalized(now))
			assert.Equal(t, !tt.want, tt.op.PenaltyCleared(now))
		})
	}
}

func TestActiveValidators(t *testing.T) {
	op := Operator{Deposited: 7, Exited: 3}
	assert.Equal(t, uint64(4), op.ActiveValidators())
}
