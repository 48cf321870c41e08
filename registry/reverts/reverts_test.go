// Copyright (c) 2025 The core-lido developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestKinds(t *testing.T) {
	tests := []struct {
		err  *ErrRevert
		kind Kind
		is   func(error) bool
	}{
		{NotFound("x"), KindNotFound, IsNotFound},
		{InvalidArgument("x"), KindInvalidArgument, IsInvalidArgument},
		{InvalidStateTransition("x"), KindInvalidStateTransition, IsInvalidTransition},
		{NoOp("x"), KindNoOp, IsNoOp},
		{Unauthorized("x"), KindUnauthorized, IsUnauthorized},
		{CapacityExceeded("x"), KindCapacityExceeded, IsCapacityExceeded},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.kind, tt.err.Kind())
		assert.Equal(t, tt.kind, KindOf(tt.err))
		assert.True(t, tt.is(tt.err))
		assert.True(t, IsRevertErr(tt.err))
	}
}

func TestMessageFormatting(t *testing.T) {
	err := NotFound("no operator with id %d", 42)
	assert.EqualError(t, err, "no operator with id 42")
}

func TestKindOfWrapped(t *testing.T) {
	err := errors.Wrap(NoOp("nothing to do"), "calling registry")
	assert.Equal(t, KindNoOp, KindOf(err))
	assert.True(t, IsNoOp(err))
	assert.True(t, IsRevertErr(err))
}

func TestNonRevert(t *testing.T) {
	err := errors.New("disk on fire")
	assert.Equal(t, KindUnknown, KindOf(err))
	assert.False(t, IsRevertErr(err))
	assert.False(t, IsRevertErr(nil))
	assert.False(t, IsNoOp(nil))
}
