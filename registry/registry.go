// Copyright (c) 2025 The core-lido developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/nnsW3/core-lido/log"
	"github.com/nnsW3/core-lido/registry/allocation"
	"github.com/nnsW3/core-lido/registry/directory"
	"github.com/nnsW3/core-lido/registry/ledger"
	"github.com/nnsW3/core-lido/registry/operator"
	"github.com/nnsW3/core-lido/registry/reverts"
	"github.com/nnsW3/core-lido/registry/rewards"
	"github.com/nnsW3/core-lido/registry/summary"
)

var logger = log.WithContext("pkg", "registry")

// Registry is the node-operator ledger and validator-key accounting engine.
// Every mutating operation runs under one exclusive critical section, so
// invariant checks, the state transition and the nonce bump are indivisible;
// reads share a lock and always observe a committed state.
type Registry struct {
	mu   sync.RWMutex
	cfg  Config
	auth Authorizer
	keys KeyStore

	repo       *operator.Repository
	directory  *directory.Service
	ledger     *ledger.Service
	aggregator *summary.Aggregator

	nonce uint64
	feed  *feed
}

// New creates a registry with all counters zeroed. keys may be nil when no
// key-blob store is attached.
func New(cfg Config, auth Authorizer, keys KeyStore) *Registry {
	cfg = cfg.withDefaults()
	repo := operator.NewRepository()
	return &Registry{
		cfg:        cfg,
		auth:       auth,
		keys:       keys,
		repo:       repo,
		directory:  directory.New(repo, cfg.MaxOperators, cfg.MaxNameLength, cfg.ModuleAddress),
		ledger:     ledger.New(repo, cfg.Clock, cfg.StuckPenaltyDelay, cfg.MaxStuckPenaltyDelay),
		aggregator: summary.New(repo),
		feed:       newFeed(),
	}
}

func (r *Registry) authorize(caller common.Address, role Role) error {
	if r.auth == nil || !r.auth.HasCapability(caller, role) {
		return reverts.Unauthorized("caller %s lacks capability %q", caller, role)
	}
	return nil
}

func (r *Registry) changeSet(op string) *ChangeSet {
	return newChangeSet(op, r.cfg.Clock.Now())
}

func (r *Registry) bumpNonce(cs *ChangeSet) {
	r.nonce++
	cs.Bumped = true
	cs.nonceChanged(r.nonce)
}

// commit finalizes a successful mutation: fix the post-call nonce on the
// record, refresh gauges and hand the record to the feed.
func (r *Registry) commit(cs *ChangeSet) {
	cs.Nonce = r.nonce
	metricNonce.Set(int64(r.nonce))
	metricOperators.Set(int64(r.repo.Len()))
	metricActiveOperators.Set(int64(r.repo.ActiveLen()))
	r.feed.publish(cs)
}

func countResult(op string, err error) {
	result := "ok"
	if err != nil {
		result = reverts.KindOf(err).String()
	}
	metricMutations.AddWithLabel(1, map[string]string{"op": op, "result": result})
}

//
// Operator directory
//

// AddOperator registers a new operator. The record starts active with all
// counts zeroed.
func (r *Registry) AddOperator(caller common.Address, name string, rewardAddress common.Address) (id uint64, cs *ChangeSet, err error) {
	defer func() { countResult("add_operator", err) }()
	if err = r.authorize(caller, RoleManageOperators); err != nil {
		return 0, nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	logger.Debug("adding operator", "name", name, "rewardAddress", rewardAddress)
	op, err := r.directory.Add(name, rewardAddress)
	if err != nil {
		logger.Info("add operator failed", "name", name, "error", err)
		return 0, nil, err
	}

	cs = r.changeSet("addOperator").operatorAdded(op.ID, op.Name, op.RewardAddress)
	r.bumpNonce(cs)
	r.commit(cs)
	logger.Info("added operator", "id", op.ID, "name", op.Name)
	return op.ID, cs, nil
}

// SetName renames an operator. Names are not key-selection data, so the
// nonce stays put.
func (r *Registry) SetName(caller common.Address, id uint64, name string) (cs *ChangeSet, err error) {
	defer func() { countResult("set_name", err) }()
	if err = r.authorize(caller, RoleManageOperators); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if err = r.directory.SetName(id, name); err != nil {
		return nil, err
	}
	cs = r.changeSet("setName").nameSet(id, name)
	r.commit(cs)
	return cs, nil
}

// SetRewardAddress points an operator's rewards elsewhere; no nonce bump.
func (r *Registry) SetRewardAddress(caller common.Address, id uint64, addr common.Address) (cs *ChangeSet, err error) {
	defer func() { countResult("set_reward_address", err) }()
	if err = r.authorize(caller, RoleManageOperators); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if err = r.directory.SetRewardAddress(id, addr); err != nil {
		return nil, err
	}
	cs = r.changeSet("setRewardAddress").rewardAddressSet(id, addr)
	r.commit(cs)
	return cs, nil
}

// Activate brings a deactivated operator back into deposit rotation.
func (r *Registry) Activate(caller common.Address, id uint64) (*ChangeSet, error) {
	return r.setActive(caller, id, true)
}

// Deactivate takes an operator out of deposit rotation; its deposited and
// exited history still counts toward module totals.
func (r *Registry) Deactivate(caller common.Address, id uint64) (*ChangeSet, error) {
	return r.setActive(caller, id, false)
}

func (r *Registry) setActive(caller common.Address, id uint64, active bool) (cs *ChangeSet, err error) {
	defer func() { countResult("set_active", err) }()
	if err = r.authorize(caller, RoleManageOperators); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	logger.Debug("setting operator active flag", "id", id, "active", active)
	op, err := r.directory.SetActive(id, active)
	if err != nil {
		logger.Info("set active failed", "id", id, "error", err)
		return nil, err
	}

	cs = r.changeSet("setActive").activeSet(op.ID, active)
	r.bumpNonce(cs)
	r.commit(cs)
	logger.Info("operator active flag set", "id", id, "active", active)
	return cs, nil
}

//
// Key-count ledger
//

// AddKeys raises an operator's total added key count after the key-blob
// store accepted new keys.
func (r *Registry) AddKeys(caller common.Address, id, count uint64) (cs *ChangeSet, err error) {
	defer func() { countResult("add_keys", err) }()
	if err = r.authorize(caller, RoleManageKeys); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	op, err := r.ledger.AddKeys(id, count)
	if err != nil {
		logger.Info("add keys failed", "id", id, "error", err)
		return nil, err
	}

	cs = r.changeSet("addKeys").countChanged(ChangeTotalKeys, id, op.TotalAdded)
	r.bumpNonce(cs)
	r.commit(cs)
	if r.keys != nil {
		r.keys.OnKeysChanged(id, int64(count))
	}
	logger.Info("added keys", "id", id, "count", count, "totalAdded", op.TotalAdded)
	return cs, nil
}

// InvalidateKeysRange truncates every not-yet-deposited key of the
// operators in [from, to]; vetted ceilings follow the totals down.
func (r *Registry) InvalidateKeysRange(caller common.Address, from, to uint64) (cs *ChangeSet, err error) {
	defer func() { countResult("invalidate_keys_range", err) }()
	if err = r.authorize(caller, RoleManageKeys); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	logger.Debug("invalidating key range", "from", from, "to", to)
	trims, err := r.ledger.InvalidateKeysRange(from, to)
	if err != nil {
		logger.Info("invalidate keys failed", "from", from, "to", to, "error", err)
		return nil, err
	}
	if len(trims) == 0 {
		return nil, reverts.NoOp("no keys to invalidate in range [%d, %d]", from, to)
	}

	cs = r.changeSet("invalidateKeysRange")
	for _, trim := range trims {
		cs.countChanged(ChangeTotalKeys, trim.Op.ID, trim.Op.TotalAdded)
		cs.countChanged(ChangeVettedKeys, trim.Op.ID, trim.Op.Vetted)
	}
	r.bumpNonce(cs)
	r.commit(cs)
	if r.keys != nil {
		for _, trim := range trims {
			r.keys.OnKeysChanged(trim.Op.ID, -int64(trim.Trimmed))
		}
	}
	logger.Info("invalidated keys", "from", from, "to", to, "operators", len(trims))
	return cs, nil
}

// SetVettedCount moves the deposit-ready ceiling for one operator.
func (r *Registry) SetVettedCount(caller common.Address, id, vetted uint64) (cs *ChangeSet, err error) {
	defer func() { countResult("set_vetted_count", err) }()
	if err = r.authorize(caller, RoleStakingRouter); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	logger.Debug("setting vetted count", "id", id, "vetted", vetted)
	op, err := r.ledger.SetVetted(id, vetted)
	if err != nil {
		if !reverts.IsNoOp(err) {
			logger.Info("set vetted count failed", "id", id, "error", err)
		}
		return nil, err
	}

	cs = r.changeSet("setVettedCount").countChanged(ChangeVettedKeys, id, op.Vetted)
	r.bumpNonce(cs)
	r.commit(cs)
	logger.Info("vetted count set", "id", id, "vetted", vetted)
	return cs, nil
}

// UpdateStuckCounts applies a batch of absolute stuck counts reported by
// the staking router. The nonce advances once per call even when no
// operator moved: the router's refresh is itself observable.
func (r *Registry) UpdateStuckCounts(caller common.Address, ids, counts []uint64) (cs *ChangeSet, err error) {
	defer func() { countResult("update_stuck_counts", err) }()
	if err = r.authorize(caller, RoleStakingRouter); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	changed, err := r.ledger.UpdateStuck(ids, counts)
	if err != nil {
		logger.Info("update stuck counts failed", "error", err)
		return nil, err
	}

	cs = r.changeSet("updateStuckCounts")
	for _, op := range changed {
		cs.penaltyChanged(op.ID, op)
	}
	r.bumpNonce(cs)
	r.commit(cs)
	logger.Info("stuck counts updated", "batch", len(ids), "changed", len(changed))
	return cs, nil
}

// UpdateExitedCounts applies a batch of absolute exited counts. Decreases
// are rejected on this path. The nonce advances once per call.
func (r *Registry) UpdateExitedCounts(caller common.Address, ids, counts []uint64) (cs *ChangeSet, err error) {
	defer func() { countResult("update_exited_counts", err) }()
	if err = r.authorize(caller, RoleStakingRouter); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	changed, err := r.ledger.UpdateExited(ids, counts)
	if err != nil {
		logger.Info("update exited counts failed", "error", err)
		return nil, err
	}

	cs = r.changeSet("updateExitedCounts")
	for _, op := range changed {
		cs.countChanged(ChangeExitedKeys, op.ID, op.Exited)
	}
	r.bumpNonce(cs)
	r.commit(cs)
	logger.Info("exited counts updated", "batch", len(ids), "changed", len(changed))
	return cs, nil
}

// UpdateRefundedCount records repaid stuck-validator compensation. Penalty
// status may flip, but key selection is untouched, so no nonce bump.
func (r *Registry) UpdateRefundedCount(caller common.Address, id, count uint64) (cs *ChangeSet, err error) {
	defer func() { countResult("update_refunded_count", err) }()
	if err = r.authorize(caller, RoleStakingRouter); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	op, err := r.ledger.UpdateRefunded(id, count)
	if err != nil {
		if !reverts.IsNoOp(err) {
			logger.Info("update refunded count failed", "id", id, "error", err)
		}
		return nil, err
	}

	cs = r.changeSet("updateRefundedCount").penaltyChanged(id, op)
	r.commit(cs)
	logger.Info("refunded count updated", "id", id, "refunded", count)
	return cs, nil
}

// UnsafeSetCounts overrides exited and stuck counts without the
// monotonicity rule. Separate capability; use with care.
func (r *Registry) UnsafeSetCounts(caller common.Address, id, exited, stuck uint64) (cs *ChangeSet, err error) {
	defer func() { countResult("unsafe_set_counts", err) }()
	if err = r.authorize(caller, RoleUnsafeAdmin); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	logger.Debug("unsafe count override", "id", id, "exited", exited, "stuck", stuck)
	exitedChanged, stuckChanged, op, err := r.ledger.UnsafeSetCounts(id, exited, stuck)
	if err != nil {
		if !reverts.IsNoOp(err) {
			logger.Info("unsafe count override failed", "id", id, "error", err)
		}
		return nil, err
	}

	cs = r.changeSet("unsafeSetCounts")
	if exitedChanged {
		cs.countChanged(ChangeExitedKeys, id, op.Exited)
	}
	if stuckChanged {
		cs.penaltyChanged(id, op)
	}
	r.bumpNonce(cs)
	r.commit(cs)
	logger.Info("unsafe count override applied", "id", id, "exited", exited, "stuck", stuck)
	return cs, nil
}

// SetTargetLimit tunes how many validators an operator should run; hard
// mode caps its depositable count.
func (r *Registry) SetTargetLimit(caller common.Address, id uint64, mode operator.TargetLimitMode, limit uint64) (cs *ChangeSet, err error) {
	defer func() { countResult("set_target_limit", err) }()
	if err = r.authorize(caller, RoleStakingRouter); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	op, err := r.ledger.SetTargetLimit(id, mode, limit)
	if err != nil {
		if !reverts.IsNoOp(err) {
			logger.Info("set target limit failed", "id", id, "error", err)
		}
		return nil, err
	}

	cs = r.changeSet("setTargetLimit").targetLimitChanged(id, op.TargetLimitMode, op.TargetLimit)
	r.bumpNonce(cs)
	r.commit(cs)
	logger.Info("target limit set", "id", id, "mode", mode, "limit", op.TargetLimit)
	return cs, nil
}

// SetStuckPenaltyDelay tunes the penalty cool-down. Signals a change but
// leaves the nonce alone.
func (r *Registry) SetStuckPenaltyDelay(caller common.Address, delay uint64) (cs *ChangeSet, err error) {
	defer func() { countResult("set_stuck_penalty_delay", err) }()
	if err = r.authorize(caller, RoleManageOperators); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if err = r.ledger.SetStuckPenaltyDelay(delay); err != nil {
		return nil, err
	}
	cs = r.changeSet("setStuckPenaltyDelay").penaltyDelaySet(delay)
	r.commit(cs)
	logger.Info("stuck penalty delay set", "delay", delay)
	return cs, nil
}

// ClearPenalty resets penalty bookkeeping once an operator has refunded
// its stuck validators and sat out the cool-down. Callable by anyone.
func (r *Registry) ClearPenalty(id uint64) (cs *ChangeSet, err error) {
	defer func() { countResult("clear_penalty", err) }()
	r.mu.Lock()
	defer r.mu.Unlock()

	op, err := r.ledger.ClearPenalty(id)
	if err != nil {
		if !reverts.IsNoOp(err) {
			logger.Info("clear penalty failed", "id", id, "error", err)
		}
		return nil, err
	}

	cs = r.changeSet("clearPenalty").penaltyCleared(op.ID)
	r.commit(cs)
	logger.Info("penalty cleared", "id", id)
	return cs, nil
}

// ConsumeDeposits hands out count deposits across active, non-penalized
// operators, always filling the operator with the fewest running
// validators first. The full count must be satisfiable.
func (r *Registry) ConsumeDeposits(caller common.Address, count uint64) (grants map[uint64]uint64, cs *ChangeSet, err error) {
	defer func() { countResult("consume_deposits", err) }()
	if err = r.authorize(caller, RoleStakingRouter); err != nil {
		return nil, nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if count == 0 {
		return nil, nil, reverts.InvalidArgument("deposit count is zero")
	}

	logger.Debug("consuming deposits", "count", count)
	now := r.cfg.Clock.Now()
	var candidates []allocation.Candidate
	_ = r.repo.ForEach(func(op *operator.Operator) error {
		if !op.Active || op.IsPenalized(now) {
			return nil
		}
		depositable := summary.Depositable(op)
		if depositable == 0 {
			return nil
		}
		running := op.ActiveValidators()
		candidates = append(candidates, allocation.Candidate{
			ID:      op.ID,
			Current: running,
			Max:     running + depositable,
		})
		return nil
	})

	perCandidate, allocated := allocation.MinFirst(candidates, count)
	if allocated < count {
		err = reverts.InvalidArgument("only %d of %d requested deposits are depositable", allocated, count)
		logger.Info("consume deposits failed", "error", err)
		return nil, nil, err
	}

	ids := make([]uint64, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}
	changed, err := r.ledger.ApplyDeposits(ids, perCandidate)
	if err != nil {
		return nil, nil, err
	}

	cs = r.changeSet("consumeDeposits")
	grants = make(map[uint64]uint64, len(changed))
	for _, op := range changed {
		cs.countChanged(ChangeDepositedKeys, op.ID, op.Deposited)
	}
	for i, c := range candidates {
		if perCandidate[i] > 0 {
			grants[c.ID] = perCandidate[i]
		}
	}
	r.bumpNonce(cs)
	r.commit(cs)
	logger.Info("deposits consumed", "count", count, "operators", len(grants))
	return grants, cs, nil
}

// DistributeRewards computes the share table for total reward shares and
// emits it as change records. The ledger itself is not modified and the
// nonce does not move. Callable by anyone, like penalty clearing.
func (r *Registry) DistributeRewards(total *big.Int) (shares []rewards.Share, cs *ChangeSet, err error) {
	defer func() { countResult("distribute_rewards", err) }()
	r.mu.Lock()
	defer r.mu.Unlock()

	shares, err = rewards.Distribute(r.repo, total, r.cfg.Clock.Now())
	if err != nil {
		logger.Info("reward distribution failed", "error", err)
		return nil, nil, err
	}

	cs = r.changeSet("distributeRewards")
	for _, share := range shares {
		if share.Shares.Sign() > 0 {
			cs.rewardsDistributed(share.OperatorID, share.RewardAddress, share.Shares)
		}
	}
	r.commit(cs)
	metricRewardsDistributions.Add(1)
	logger.Info("rewards distributed", "total", total, "recipients", len(cs.Changes))
	return shares, cs, nil
}

//
// Reads
//

// Operator returns a copy of the record, safe to hold after the call.
func (r *Registry) Operator(id uint64) (operator.Operator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	op, err := r.directory.Get(id)
	if err != nil {
		return operator.Operator{}, err
	}
	return *op, nil
}

// IsActive never fails; unknown operators read as inactive.
func (r *Registry) IsActive(id uint64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.directory.IsActive(id)
}

// IDs lists up to limit operator ids starting at offset, ascending.
func (r *Registry) IDs(offset, limit uint64) []uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.directory.IDs(offset, limit)
}

func (r *Registry) Count() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.directory.Count()
}

func (r *Registry) ActiveCount() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.directory.ActiveCount()
}

// Nonce is the key-selection change counter. Consumers cache key-selection
// reads for as long as it stands still.
func (r *Registry) Nonce() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nonce
}

func (r *Registry) OperatorSummary(id uint64) (*summary.OperatorSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.aggregator.Operator(id)
}

func (r *Registry) ModuleSummary() *summary.ModuleSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.aggregator.Module(r.nonce)
}

func (r *Registry) IsPenalized(id uint64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, err := r.directory.Get(id); err != nil {
		return false, err
	}
	return r.ledger.IsPenalized(id), nil
}

// PenaltyCleared reports whether no penalty bookkeeping remains at all.
func (r *Registry) PenaltyCleared(id uint64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, err := r.directory.Get(id); err != nil {
		return false, err
	}
	return r.ledger.PenaltyCleared(id), nil
}

// RewardsDistribution previews the share table without emitting records.
func (r *Registry) RewardsDistribution(total *big.Int) ([]rewards.Share, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return rewards.Distribute(r.repo, total, r.cfg.Clock.Now())
}

func (r *Registry) StuckPenaltyDelay() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ledger.StuckPenaltyDelay()
}

func (r *Registry) ModuleType() string {
	return r.cfg.ModuleType
}

//
// Change feed
//

// Subscribe returns a channel of committed change sets. Slow subscribers
// lose records once their buffer fills.
func (r *Registry) Subscribe(buffer int) (<-chan *ChangeSet, func()) {
	return r.feed.subscribe(buffer)
}

// OnChange registers a hook that runs synchronously inside every mutation,
// before the call returns. Hooks must be fast and must not call back into
// the registry.
func (r *Registry) OnChange(fn func(*ChangeSet)) {
	r.feed.onChange(fn)
}
