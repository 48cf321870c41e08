// Copyright (c) 2025 The core-lido developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package summary

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/nnsW3/core-lido/registry/operator"
	"github.com/nnsW3/core-lido/registry/reverts"
)

// OperatorSummary is the per-operator view served to key-selection
// consumers.
type OperatorSummary struct {
	TargetLimitMode   operator.TargetLimitMode `json:"targetLimitMode"`
	TargetLimit       uint64                   `json:"targetLimit"`
	Stuck             uint64                   `json:"stuckValidatorsCount"`
	Refunded          uint64                   `json:"refundedValidatorsCount"`
	StuckPenaltyEndAt uint64                   `json:"stuckPenaltyEndTimestamp"`
	Exited            uint64                   `json:"totalExitedValidators"`
	Deposited         uint64                   `json:"totalDepositedValidators"`
	Depositable       uint64                   `json:"depositableValidatorsCount"`
}

// ModuleSummary aggregates over all operators. Exited and deposited history
// counts for every operator; depositable counts for active ones only.
type ModuleSummary struct {
	Exited      uint64 `json:"totalExitedValidators"`
	Deposited   uint64 `json:"totalDepositedValidators"`
	Depositable uint64 `json:"depositableValidatorsCount"`
}

// Aggregator derives summaries from the ledger. It never mutates operator
// state. Module summaries are memoized per nonce: every input of the module
// summary bumps the nonce when it changes, so a cached value stays valid
// for as long as the nonce stands.
type Aggregator struct {
	repo  *operator.Repository
	cache *lru.Cache // nonce -> *ModuleSummary
}

const moduleSummaryCacheSize = 8

func New(repo *operator.Repository) *Aggregator {
	cache, _ := lru.New(moduleSummaryCacheSize)
	return &Aggregator{repo: repo, cache: cache}
}

// Depositable returns the number of additional keys currently eligible for
// funding: the vetted surplus, capped by a hard target limit on the
// operator's running validator count. Inactive operators contribute zero.
func Depositable(op *operator.Operator) uint64 {
	if !op.Active {
		return 0
	}
	depositable := op.Vetted - op.Deposited
	if op.TargetLimitMode == operator.TargetLimitHard {
		running := op.Deposited - op.Exited
		headroom := uint64(0)
		if op.TargetLimit > running {
			headroom = op.TargetLimit - running
		}
		if depositable > headroom {
			depositable = headroom
		}
	}
	return depositable
}

func (a *Aggregator) Operator(id uint64) (*OperatorSummary, error) {
	op := a.repo.Get(id)
	if op == nil {
		return nil, reverts.NotFound("no operator with id %d", id)
	}
	return &OperatorSummary{
		TargetLimitMode:   op.TargetLimitMode,
		TargetLimit:       op.TargetLimit,
		Stuck:             op.Stuck,
		Refunded:          op.Refunded,
		StuckPenaltyEndAt: op.StuckPenaltyEndAt,
		Exited:            op.Exited,
		Deposited:         op.Deposited,
		Depositable:       Depositable(op),
	}, nil
}

// Reset drops all memoized summaries. Needed whenever operator state
// changes without the nonce moving forward, e.g. a snapshot restore.
func (a *Aggregator) Reset() {
	a.cache.Purge()
}

// Module returns the module-wide summary for the given nonce.
func (a *Aggregator) Module(nonce uint64) *ModuleSummary {
	if cached, ok := a.cache.Get(nonce); ok {
		return cached.(*ModuleSummary)
	}

	sum := &ModuleSummary{}
	_ = a.repo.ForEach(func(op *operator.Operator) error {
		sum.Exited += op.Exited
		sum.Deposited += op.Deposited
		sum.Depositable += Depositable(op)
		return nil
	})

	a.cache.Add(nonce, sum)
	return sum
}
