// Copyright (c) 2025 The core-lido developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/nnsW3/core-lido/registry/operator"
)

// ChangeKind names a single observable state change.
type ChangeKind string

const (
	ChangeOperatorAdded        ChangeKind = "OperatorAdded"
	ChangeNameSet              ChangeKind = "NameSet"
	ChangeRewardAddressSet     ChangeKind = "RewardAddressSet"
	ChangeActiveSet            ChangeKind = "ActiveSet"
	ChangeTotalKeys            ChangeKind = "TotalKeysChanged"
	ChangeVettedKeys           ChangeKind = "VettedKeysChanged"
	ChangeDepositedKeys        ChangeKind = "DepositedKeysChanged"
	ChangeExitedKeys           ChangeKind = "ExitedKeysChanged"
	ChangeStuckPenaltyState    ChangeKind = "StuckPenaltyStateChanged"
	ChangeTargetLimit          ChangeKind = "TargetLimitChanged"
	ChangeStuckPenaltyDelaySet ChangeKind = "StuckPenaltyDelayChanged"
	ChangePenaltyCleared       ChangeKind = "PenaltyCleared"
	ChangeNonce                ChangeKind = "NonceChanged"
	ChangeRewardsDistributed   ChangeKind = "RewardsDistributed"
)

// PenaltyState is the stuck/refunded/cool-down triple reported whenever any
// of the three moved.
type PenaltyState struct {
	Stuck             uint64 `json:"stuck"`
	Refunded          uint64 `json:"refunded"`
	StuckPenaltyEndAt uint64 `json:"stuckPenaltyEndAt"`
}

// TargetLimitState is the target-limit pair after a change.
type TargetLimitState struct {
	Mode  operator.TargetLimitMode `json:"mode"`
	Limit uint64                   `json:"limit"`
}

// Change is one observable field change. Exactly the fields relevant to its
// kind are set; counters always carry the new value.
type Change struct {
	Kind       ChangeKind        `json:"kind"`
	OperatorID *uint64           `json:"operatorId,omitempty"`
	Name       string            `json:"name,omitempty"`
	Address    *common.Address   `json:"address,omitempty"`
	Active     *bool             `json:"active,omitempty"`
	Count      *uint64           `json:"count,omitempty"`
	Penalty    *PenaltyState     `json:"penalty,omitempty"`
	Target     *TargetLimitState `json:"target,omitempty"`
	Shares     *big.Int          `json:"shares,omitempty"`
}

// ChangeSet is the structured output of one mutating call. External
// observers can reconstruct from it exactly which fields changed and
// whether the nonce advanced.
type ChangeSet struct {
	Seq     uint64    `json:"seq"` // assigned when published to the feed
	Op      string    `json:"op"`
	Time    time.Time `json:"time"`
	Nonce   uint64    `json:"nonce"` // nonce after the call
	Bumped  bool      `json:"nonceBumped"`
	Changes []Change  `json:"changes"`
}

func newChangeSet(op string, now time.Time) *ChangeSet {
	return &ChangeSet{Op: op, Time: now}
}

func (cs *ChangeSet) add(c Change) *ChangeSet {
	cs.Changes = append(cs.Changes, c)
	return cs
}

func (cs *ChangeSet) operatorAdded(id uint64, name string, addr common.Address) *ChangeSet {
	return cs.add(Change{Kind: ChangeOperatorAdded, OperatorID: &id, Name: name, Address: &addr})
}

func (cs *ChangeSet) nameSet(id uint64, name string) *ChangeSet {
	return cs.add(Change{Kind: ChangeNameSet, OperatorID: &id, Name: name})
}

func (cs *ChangeSet) rewardAddressSet(id uint64, addr common.Address) *ChangeSet {
	return cs.add(Change{Kind: ChangeRewardAddressSet, OperatorID: &id, Address: &addr})
}

func (cs *ChangeSet) activeSet(id uint64, active bool) *ChangeSet {
	return cs.add(Change{Kind: ChangeActiveSet, OperatorID: &id, Active: &active})
}

func (cs *ChangeSet) countChanged(kind ChangeKind, id, count uint64) *ChangeSet {
	return cs.add(Change{Kind: kind, OperatorID: &id, Count: &count})
}

func (cs *ChangeSet) penaltyChanged(id uint64, op *operator.Operator) *ChangeSet {
	return cs.add(Change{Kind: ChangeStuckPenaltyState, OperatorID: &id, Penalty: &PenaltyState{
		Stuck:             op.Stuck,
		Refunded:          op.Refunded,
		StuckPenaltyEndAt: op.StuckPenaltyEndAt,
	}})
}

func (cs *ChangeSet) targetLimitChanged(id uint64, mode operator.TargetLimitMode, limit uint64) *ChangeSet {
	return cs.add(Change{Kind: ChangeTargetLimit, OperatorID: &id, Target: &TargetLimitState{Mode: mode, Limit: limit}})
}

func (cs *ChangeSet) penaltyDelaySet(delay uint64) *ChangeSet {
	return cs.add(Change{Kind: ChangeStuckPenaltyDelaySet, Count: &delay})
}

func (cs *ChangeSet) penaltyCleared(id uint64) *ChangeSet {
	return cs.add(Change{Kind: ChangePenaltyCleared, OperatorID: &id})
}

func (cs *ChangeSet) rewardsDistributed(id uint64, addr common.Address, shares *big.Int) *ChangeSet {
	return cs.add(Change{Kind: ChangeRewardsDistributed, OperatorID: &id, Address: &addr, Shares: shares})
}

func (cs *ChangeSet) nonceChanged(nonce uint64) *ChangeSet {
	return cs.add(Change{Kind: ChangeNonce, Count: &nonce})
}
