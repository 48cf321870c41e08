// Copyright (c) 2025 The core-lido developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package directory

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nnsW3/core-lido/registry/operator"
	"github.com/nnsW3/core-lido/registry/reverts"
)

var (
	moduleAddr = common.BytesToAddress([]byte("module"))
	rewardAddr = common.BytesToAddress([]byte("reward"))
)

func newService() *Service {
	return New(operator.NewRepository(), 3, 16, moduleAddr)
}

func TestAdd(t *testing.T) {
	svc := newService()

	op, err := svc.Add("foo", rewardAddr)
	require.NoError(t, err)

	assert.Equal(t, uint64(0), op.ID)
	assert.Equal(t, "foo", op.Name)
	assert.Equal(t, rewardAddr, op.RewardAddress)
	assert.True(t, op.Active)
	assert.Zero(t, op.TotalAdded)
	assert.Zero(t, op.Vetted)
	assert.Zero(t, op.Deposited)
	assert.Equal(t, uint64(1), svc.Count())
	assert.Equal(t, uint64(1), svc.ActiveCount())
}

func TestAddRejectsBadInput(t *testing.T) {
	svc := newService()

	_, err := svc.Add("", rewardAddr)
	assert.True(t, reverts.IsInvalidArgument(err))

	_, err = svc.Add(strings.Repeat("x", 17), rewardAddr)
	assert.True(t, reverts.IsInvalidArgument(err))

	_, err = svc.Add("foo", common.Address{})
	assert.True(t, reverts.IsInvalidArgument(err))

	_, err = svc.Add("foo", moduleAddr)
	assert.True(t, reverts.IsInvalidArgument(err))
}

func TestAddCapacity(t *testing.T) {
	svc := newService()

	for i := 0; i < 3; i++ {
		_, err := svc.Add("foo", rewardAddr)
		require.NoError(t, err)
	}

	_, err := svc.Add("one too many", rewardAddr)
	assert.True(t, reverts.IsCapacityExceeded(err))
	assert.Equal(t, uint64(3), svc.Count())
}

func TestSetName(t *testing.T) {
	svc := newService()
	op, _ := svc.Add("foo", rewardAddr)

	require.NoError(t, svc.SetName(op.ID, "bar"))
	assert.Equal(t, "bar", op.Name)

	assert.True(t, reverts.IsNoOp(svc.SetName(op.ID, "bar")))
	assert.True(t, reverts.IsNotFound(svc.SetName(99, "bar")))
	assert.True(t, reverts.IsInvalidArgument(svc.SetName(op.ID, "")))
}

func TestSetRewardAddress(t *testing.T) {
	svc := newService()
	op, _ := svc.Add("foo", rewardAddr)
	other := common.BytesToAddress([]byte("other"))

	require.NoError(t, svc.SetRewardAddress(op.ID, other))
	assert.Equal(t, other, op.RewardAddress)

	assert.True(t, reverts.IsNoOp(svc.SetRewardAddress(op.ID, other)))
	assert.True(t, reverts.IsInvalidArgument(svc.SetRewardAddress(op.ID, moduleAddr)))
	assert.True(t, reverts.IsNotFound(svc.SetRewardAddress(99, rewardAddr)))
}

func TestSetActive(t *testing.T) {
	svc := newService()
	op, _ := svc.Add("foo", rewardAddr)

	_, err := svc.SetActive(op.ID, true)
	assert.True(t, reverts.IsInvalidTransition(err))

	_, err = svc.SetActive(op.ID, false)
	require.NoError(t, err)
	assert.False(t, op.Active)
	assert.Equal(t, uint64(0), svc.ActiveCount())

	_, err = svc.SetActive(op.ID, false)
	assert.True(t, reverts.IsInvalidTransition(err))

	_, err = svc.SetActive(99, true)
	assert.True(t, reverts.IsNotFound(err))
}

func TestIsActiveLenient(t *testing.T) {
	svc := newService()
	op, _ := svc.Add("foo", rewardAddr)

	assert.True(t, svc.IsActive(op.ID))
	assert.False(t, svc.IsActive(42))

	svc.SetActive(op.ID, false)
	assert.False(t, svc.IsActive(op.ID))
}
