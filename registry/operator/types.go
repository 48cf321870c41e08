// Copyright (c) 2025 The core-lido developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package operator

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// TargetLimitMode tells how an operator's target validator limit is applied.
type TargetLimitMode uint8

const (
	TargetLimitDisabled TargetLimitMode = iota // no limit applied
	TargetLimitSoft                            // limit recorded but not enforced on depositable counts
	TargetLimitHard                            // depositable counts capped at the limit
)

func (m TargetLimitMode) String() string {
	switch m {
	case TargetLimitDisabled:
		return "disabled"
	case TargetLimitSoft:
		return "soft"
	case TargetLimitHard:
		return "hard"
	default:
		return "unknown"
	}
}

// Operator is a single node operator record. Records are created once and
// never removed; the id is the insertion-order index.
type Operator struct {
	ID            uint64
	Name          string
	RewardAddress common.Address
	Active        bool

	TotalAdded uint64 // signing keys ever added, only lowered by key invalidation
	Vetted     uint64 // keys approved as safe to deposit, deposited <= vetted <= total added
	Deposited  uint64 // keys that received a full validator deposit
	Exited     uint64 // validators that fully exited, exited <= deposited
	Stuck      uint64 // validators overdue for exit, stuck <= deposited - exited
	Refunded   uint64 // stuck validators for which compensation was repaid

	StuckPenaltyEndAt uint64 // unix seconds, zero means no countdown running

	TargetLimitMode TargetLimitMode
	TargetLimit     uint64
}

// ActiveValidators returns the number of currently running validators.
func (o *Operator) ActiveValidators() uint64 {
	return o.Deposited - o.Exited
}

// IsPenalized reports whether the operator is penalized at the given time:
// outstanding stuck validators exceed refunded ones, or the penalty
// cool-down has not elapsed.
func (o *Operator) IsPenalized(now time.Time) bool {
	if o.Stuck > o.Refunded {
		return true
	}
	return uint64(now.Unix()) < o.StuckPenaltyEndAt
}

// PenaltyCleared reports whether the penalty bookkeeping may be reset.
func (o *Operator) PenaltyCleared(now time.Time) bool {
	return !o.IsPenalized(now)
}
