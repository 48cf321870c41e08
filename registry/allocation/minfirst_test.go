// Copyright (c) 2025 The core-lido developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package allocation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMinFirstFillsLowestFirst(t *testing.T) {
	candidates := []Candidate{
		{ID: 0, Current: 5, Max: 10},
		{ID: 1, Current: 1, Max: 10},
		{ID: 2, Current: 3, Max: 10},
	}

	grants, allocated := MinFirst(candidates, 4)

	assert.Equal(t, uint64(4), allocated)
	// fills 1 -> 2,3 then 2 -> 4, then 2 and 1 tie at 4, lowest index wins
	assert.Equal(t, []uint64{0, 3, 1}, grants)
}

func TestMinFirstTiesGoToLowestID(t *testing.T) {
	candidates := []Candidate{
		{ID: 0, Current: 2, Max: 10},
		{ID: 1, Current: 2, Max: 10},
	}

	grants, allocated := MinFirst(candidates, 3)

	assert.Equal(t, uint64(3), allocated)
	assert.Equal(t, []uint64{2, 1}, grants)
}

func TestMinFirstRespectsMax(t *testing.T) {
	candidates := []Candidate{
		{ID: 0, Current: 9, Max: 10},
		{ID: 1, Current: 0, Max: 2},
	}

	grants, allocated := MinFirst(candidates, 100)

	assert.Equal(t, uint64(3), allocated)
	assert.Equal(t, []uint64{1, 2}, grants)
}

func TestMinFirstEmptyCandidates(t *testing.T) {
	grants, allocated := MinFirst(nil, 5)

	assert.Equal(t, uint64(0), allocated)
	assert.Empty(t, grants)
}

func TestMinFirstZeroCount(t *testing.T) {
	grants, allocated := MinFirst([]Candidate{{ID: 0, Current: 0, Max: 5}}, 0)

	assert.Equal(t, uint64(0), allocated)
	assert.Equal(t, []uint64{0}, grants)
}

func TestMinFirstConservation(t *testing.T) {
	candidates := []Candidate{
		{ID: 0, Current: 0, Max: 7},
		{ID: 1, Current: 4, Max: 5},
		{ID: 2, Current: 2, Max: 9},
	}

	for count := uint64(0); count <= 25; count++ {
		grants, allocated := MinFirst(candidates, count)

		var sum uint64
		for i, g := range grants {
			sum += g
			assert.LessOrEqual(t, candidates[i].Current+g, candidates[i].Max)
		}
		assert.Equal(t, allocated, sum)
		if allocated < count {
			// only falls short when every bucket is full
			assert.Equal(t, uint64(7+1+7), allocated)
		}
	}
}
