// Copyright (c) 2025 The core-lido developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package utils

import (
	"github.com/nnsW3/core-lido/registry/reverts"
)

// RevertError maps a registry revert to its http status. Non-revert errors
// pass through and respond with 500.
func RevertError(err error) error {
	if err == nil {
		return nil
	}
	switch reverts.KindOf(err) {
	case reverts.KindNotFound:
		return NotFound(err)
	case reverts.KindInvalidArgument, reverts.KindNoOp:
		return BadRequest(err)
	case reverts.KindInvalidStateTransition, reverts.KindCapacityExceeded:
		return Conflict(err)
	case reverts.KindUnauthorized:
		return Forbidden(err)
	default:
		return err
	}
}
