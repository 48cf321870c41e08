// Copyright (c) 2025 The core-lido developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeReceivesChangeSets(t *testing.T) {
	reg, _ := newTestRegistry(t)

	changes, cancel := reg.Subscribe(8)
	defer cancel()

	_, _, err := reg.AddOperator(manager, "foo", rewardAddr)
	require.NoError(t, err)
	_, err = reg.AddKeys(keyManager, 0, 3)
	require.NoError(t, err)

	cs := <-changes
	assert.Equal(t, uint64(1), cs.Seq)
	assert.Equal(t, "addOperator", cs.Op)

	cs = <-changes
	assert.Equal(t, uint64(2), cs.Seq)
	assert.Equal(t, "addKeys", cs.Op)
}

func TestSubscribeDropsWhenFull(t *testing.T) {
	reg, _ := newTestRegistry(t)

	changes, cancel := reg.Subscribe(1)
	defer cancel()

	reg.AddOperator(manager, "a", rewardAddr)
	reg.AddOperator(manager, "b", rewardAddr) // dropped, buffer full

	cs := <-changes
	assert.Equal(t, uint64(1), cs.Seq)
	select {
	case cs := <-changes:
		t.Fatalf("unexpected change set %d", cs.Seq)
	default:
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	reg, _ := newTestRegistry(t)

	changes, cancel := reg.Subscribe(8)
	cancel()
	cancel() // idempotent

	reg.AddOperator(manager, "a", rewardAddr)

	_, open := <-changes
	assert.False(t, open)
}

func TestOnChangeRunsSynchronously(t *testing.T) {
	reg, _ := newTestRegistry(t)

	var seen []string
	reg.OnChange(func(cs *ChangeSet) {
		seen = append(seen, cs.Op)
	})

	_, _, err := reg.AddOperator(manager, "foo", rewardAddr)
	require.NoError(t, err)
	assert.Equal(t, []string{"addOperator"}, seen)

	// failed mutations publish nothing
	_, _, err = reg.AddOperator(manager, "", rewardAddr)
	require.Error(t, err)
	assert.Len(t, seen, 1)
}

func TestFailedMutationPublishesNothing(t *testing.T) {
	reg, _ := newTestRegistry(t)

	changes, cancel := reg.Subscribe(8)
	defer cancel()

	_, err := reg.SetVettedCount(router, 99, 1)
	require.Error(t, err)

	select {
	case cs := <-changes:
		t.Fatalf("unexpected change set for op %q", cs.Op)
	default:
	}
}
