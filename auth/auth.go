// Copyright (c) 2025 The core-lido developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package auth implements capability checks for registry callers.
package auth

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/nnsW3/core-lido/registry"
)

// Static is a fixed capability table, built once at startup and read-only
// afterwards.
type Static struct {
	grants map[common.Address]map[registry.Role]bool
}

// NewStatic builds a table from role to holder lists.
func NewStatic(grants map[registry.Role][]common.Address) *Static {
	byAddr := make(map[common.Address]map[registry.Role]bool)
	for role, holders := range grants {
		for _, addr := range holders {
			if byAddr[addr] == nil {
				byAddr[addr] = make(map[registry.Role]bool)
			}
			byAddr[addr][role] = true
		}
	}
	return &Static{grants: byAddr}
}

func (s *Static) HasCapability(caller common.Address, role registry.Role) bool {
	return s.grants[caller][role]
}

// AllowAll grants every capability to every caller. For tests and local
// single-tenant runs only.
type AllowAll struct{}

func (AllowAll) HasCapability(common.Address, registry.Role) bool { return true }
