// Copyright (c) 2025 The core-lido developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"
)

// Role is a capability required to call a mutating operation. The registry
// never interprets roles itself; it only asks the Authorizer.
type Role string

const (
	// RoleManageOperators covers operator CRUD and module-level tuning.
	RoleManageOperators Role = "manage-operators"
	// RoleManageKeys covers signing-key count changes.
	RoleManageKeys Role = "manage-keys"
	// RoleStakingRouter covers vetted/stuck/exited/refunded reporting,
	// target limits and deposit consumption.
	RoleStakingRouter Role = "staking-router"
	// RoleUnsafeAdmin covers the administrative count override that
	// bypasses the monotonic-exited rule.
	RoleUnsafeAdmin Role = "unsafe-admin"
)

// Authorizer is the external capability checker consulted before any
// mutating operation touches state.
type Authorizer interface {
	HasCapability(caller common.Address, role Role) bool
}

// KeyStore receives notifications when an operator's stored key-blob count
// changes. The registry itself never holds key material.
type KeyStore interface {
	OnKeysChanged(operatorID uint64, countDelta int64)
}

// Defaults mirror the reference staking module deployment.
const (
	DefaultMaxOperators         = 200
	DefaultMaxNameLength        = 255
	DefaultMaxStuckPenaltyDelay = 365 * 24 * 60 * 60 // seconds
)

// Config carries the immutable module parameters supplied at
// initialization.
type Config struct {
	ModuleType    string
	ModuleAddress common.Address // the module's own address; rejected as a reward address

	MaxOperators         uint64
	MaxNameLength        uint64
	StuckPenaltyDelay    uint64 // seconds, tunable later within the maximum
	MaxStuckPenaltyDelay uint64

	Clock clockwork.Clock
}

func (c Config) withDefaults() Config {
	if c.MaxOperators == 0 {
		c.MaxOperators = DefaultMaxOperators
	}
	if c.MaxNameLength == 0 {
		c.MaxNameLength = DefaultMaxNameLength
	}
	if c.MaxStuckPenaltyDelay == 0 {
		c.MaxStuckPenaltyDelay = DefaultMaxStuckPenaltyDelay
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	return c
}
