// Copyright (c) 2025 The core-lido developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"math"

	"github.com/jonboulle/clockwork"

	"github.com/nnsW3/core-lido/registry/operator"
	"github.com/nnsW3/core-lido/registry/reverts"
)

// Service owns the per-operator key counters and the validation rules
// relating them. Batch updates are two-phase: every entry is validated in
// array order before any entry is applied, so a failing batch leaves the
// ledger untouched.
type Service struct {
	repo  *operator.Repository
	clock clockwork.Clock

	stuckPenaltyDelay    uint64 // seconds
	maxStuckPenaltyDelay uint64
}

func New(repo *operator.Repository, clock clockwork.Clock, stuckPenaltyDelay, maxStuckPenaltyDelay uint64) *Service {
	return &Service{
		repo:                 repo,
		clock:                clock,
		stuckPenaltyDelay:    stuckPenaltyDelay,
		maxStuckPenaltyDelay: maxStuckPenaltyDelay,
	}
}

// KeyTrim reports an operator whose key counts were truncated.
type KeyTrim struct {
	Op      *operator.Operator
	Trimmed uint64
}

func (s *Service) get(id uint64) (*operator.Operator, error) {
	op := s.repo.Get(id)
	if op == nil {
		return nil, reverts.NotFound("no operator with id %d", id)
	}
	return op, nil
}

// SetVetted moves the "ready to use" ceiling. The caller supplies an
// absolute value which must already sit inside [deposited, totalAdded].
func (s *Service) SetVetted(id, vetted uint64) (*operator.Operator, error) {
	op, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if !op.Active {
		return nil, reverts.InvalidStateTransition("operator %d is not active", id)
	}
	if vetted < op.Deposited || vetted > op.TotalAdded {
		return nil, reverts.InvalidArgument("vetted count %d outside [%d, %d]", vetted, op.Deposited, op.TotalAdded)
	}
	if vetted == op.Vetted {
		return nil, reverts.NoOp("operator %d vetted count is already %d", id, vetted)
	}
	op.Vetted = vetted
	return op, nil
}

// applyStuck writes a new stuck count and restarts the penalty countdown
// when the operator runs out of stuck validators.
func (s *Service) applyStuck(op *operator.Operator, stuck uint64) {
	op.Stuck = stuck
	if stuck == 0 {
		if end := uint64(s.clock.Now().Unix()) + s.stuckPenaltyDelay; end > op.StuckPenaltyEndAt {
			op.StuckPenaltyEndAt = end
		}
	}
}

// UpdateStuck applies a batch of absolute stuck counts. It returns the
// operators whose count actually moved; an empty batch is valid and
// returns nothing.
func (s *Service) UpdateStuck(ids, counts []uint64) ([]*operator.Operator, error) {
	if len(ids) != len(counts) {
		return nil, reverts.InvalidArgument("ids and counts length mismatch: %d != %d", len(ids), len(counts))
	}
	for i, id := range ids {
		op, err := s.get(id)
		if err != nil {
			return nil, err
		}
		if counts[i] > op.Deposited-op.Exited {
			return nil, reverts.InvalidArgument("stuck count %d exceeds %d active validators of operator %d",
				counts[i], op.Deposited-op.Exited, id)
		}
	}

	var changed []*operator.Operator
	for i, id := range ids {
		op := s.repo.Get(id)
		if op.Stuck == counts[i] {
			continue
		}
		s.applyStuck(op, counts[i])
		changed = append(changed, op)
	}
	return changed, nil
}

// UpdateExited applies a batch of absolute exited counts. Exited counts
// never decrease on this path.
func (s *Service) UpdateExited(ids, counts []uint64) ([]*operator.Operator, error) {
	if len(ids) != len(counts) {
		return nil, reverts.InvalidArgument("ids and counts length mismatch: %d != %d", len(ids), len(counts))
	}
	for i, id := range ids {
		op, err := s.get(id)
		if err != nil {
			return nil, err
		}
		if counts[i] < op.Exited {
			return nil, reverts.InvalidStateTransition("exited count of operator %d decreased: %d < %d",
				id, counts[i], op.Exited)
		}
		// subtraction form: counts[i]+op.Stuck must not wrap
		if counts[i] > op.Deposited || op.Stuck > op.Deposited-counts[i] {
			return nil, reverts.InvalidArgument("exited count %d plus %d stuck exceeds %d deposited of operator %d",
				counts[i], op.Stuck, op.Deposited, id)
		}
	}

	var changed []*operator.Operator
	for i, id := range ids {
		op := s.repo.Get(id)
		if op.Exited == counts[i] {
			continue
		}
		op.Exited = counts[i]
		changed = append(changed, op)
	}
	return changed, nil
}

// UpdateRefunded records repaid compensation for stuck validators. It only
// affects penalty status, never key selection.
func (s *Service) UpdateRefunded(id, count uint64) (*operator.Operator, error) {
	op, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if op.Refunded == count {
		return nil, reverts.NoOp("operator %d refunded count is already %d", id, count)
	}
	op.Refunded = count
	return op, nil
}

// UnsafeSetCounts overrides exited and stuck counts, bypassing the
// monotonic-exited rule. Cross-field consistency still holds.
func (s *Service) UnsafeSetCounts(id, exited, stuck uint64) (exitedChanged, stuckChanged bool, op *operator.Operator, err error) {
	op, err = s.get(id)
	if err != nil {
		return false, false, nil, err
	}
	if exited > op.Deposited {
		return false, false, nil, reverts.InvalidArgument("exited count %d exceeds %d deposited of operator %d", exited, op.Deposited, id)
	}
	if stuck > op.Deposited-exited {
		return false, false, nil, reverts.InvalidArgument("stuck count %d exceeds %d active validators of operator %d", stuck, op.Deposited-exited, id)
	}
	if op.Exited == exited && op.Stuck == stuck {
		return false, false, nil, reverts.NoOp("operator %d counts unchanged", id)
	}
	exitedChanged = op.Exited != exited
	stuckChanged = op.Stuck != stuck
	op.Exited = exited
	if stuckChanged {
		s.applyStuck(op, stuck)
	}
	return exitedChanged, stuckChanged, op, nil
}

// MaxTotalKeys bounds an operator's total added key count. Keeping totals
// within int64 means every key-count delta fits the KeyStore's signed
// notification.
const MaxTotalKeys = uint64(math.MaxInt64)

// AddKeys raises the total added key count after new key blobs were stored.
func (s *Service) AddKeys(id, count uint64) (*operator.Operator, error) {
	if count == 0 {
		return nil, reverts.InvalidArgument("key count is zero")
	}
	op, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if count > MaxTotalKeys-op.TotalAdded {
		return nil, reverts.InvalidArgument("key count %d overflows total %d of operator %d", count, op.TotalAdded, id)
	}
	op.TotalAdded += count
	return op, nil
}

// InvalidateKeysRange truncates every not-yet-deposited key of the
// operators in the id range [from, to], forcing vetted down to match.
func (s *Service) InvalidateKeysRange(from, to uint64) ([]KeyTrim, error) {
	if from > to {
		return nil, reverts.InvalidArgument("invalid operator id range [%d, %d]", from, to)
	}
	if to >= s.repo.Len() {
		return nil, reverts.NotFound("no operator with id %d", to)
	}

	var trims []KeyTrim
	for id := from; id <= to; id++ {
		op := s.repo.Get(id)
		if op.TotalAdded == op.Deposited {
			continue
		}
		trims = append(trims, KeyTrim{Op: op, Trimmed: op.TotalAdded - op.Deposited})
		op.TotalAdded = op.Deposited
		op.Vetted = op.Deposited
	}
	return trims, nil
}

// ApplyDeposits consumes depositable keys. Grants come from the allocation
// strategy and must each fit under the operator's vetted ceiling.
func (s *Service) ApplyDeposits(ids, counts []uint64) ([]*operator.Operator, error) {
	for i, id := range ids {
		op, err := s.get(id)
		if err != nil {
			return nil, err
		}
		// subtraction form: op.Deposited+counts[i] must not wrap
		if counts[i] > op.Vetted-op.Deposited {
			return nil, reverts.InvalidArgument("deposit grant %d exceeds vetted ceiling of operator %d", counts[i], id)
		}
	}
	var changed []*operator.Operator
	for i, id := range ids {
		if counts[i] == 0 {
			continue
		}
		op := s.repo.Get(id)
		op.Deposited += counts[i]
		changed = append(changed, op)
	}
	return changed, nil
}

// ClearPenalty resets the penalty bookkeeping. Valid only once the operator
// is no longer penalized; reading penalized state never mutates.
func (s *Service) ClearPenalty(id uint64) (*operator.Operator, error) {
	op, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if op.IsPenalized(s.clock.Now()) {
		return nil, reverts.InvalidStateTransition("operator %d is still penalized", id)
	}
	if op.StuckPenaltyEndAt == 0 {
		return nil, reverts.NoOp("operator %d penalty already cleared", id)
	}
	op.StuckPenaltyEndAt = 0
	return op, nil
}

// SetTargetLimit sets the target validator limit and its application mode.
func (s *Service) SetTargetLimit(id uint64, mode operator.TargetLimitMode, limit uint64) (*operator.Operator, error) {
	if mode > operator.TargetLimitHard {
		return nil, reverts.InvalidArgument("unknown target limit mode %d", mode)
	}
	op, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if mode == operator.TargetLimitDisabled {
		limit = 0
	}
	if op.TargetLimitMode == mode && op.TargetLimit == limit {
		return nil, reverts.NoOp("operator %d target limit unchanged", id)
	}
	op.TargetLimitMode = mode
	op.TargetLimit = limit
	return op, nil
}

func (s *Service) StuckPenaltyDelay() uint64 {
	return s.stuckPenaltyDelay
}

// SetStuckPenaltyDelay tunes the penalty cool-down, bounded by the
// configured maximum.
func (s *Service) SetStuckPenaltyDelay(delay uint64) error {
	if delay > s.maxStuckPenaltyDelay {
		return reverts.InvalidArgument("stuck penalty delay %d exceeds maximum %d", delay, s.maxStuckPenaltyDelay)
	}
	if delay == s.stuckPenaltyDelay {
		return reverts.NoOp("stuck penalty delay is already %d", delay)
	}
	s.stuckPenaltyDelay = delay
	return nil
}

// RestoreStuckPenaltyDelay reinstates a persisted delay without bounds
// checks or signals.
func (s *Service) RestoreStuckPenaltyDelay(delay uint64) {
	s.stuckPenaltyDelay = delay
}

func (s *Service) IsPenalized(id uint64) bool {
	op := s.repo.Get(id)
	return op != nil && op.IsPenalized(s.clock.Now())
}

// PenaltyCleared reports whether the operator carries no penalty state at
// all: nothing outstanding and no countdown left to reset.
func (s *Service) PenaltyCleared(id uint64) bool {
	op := s.repo.Get(id)
	return op != nil && op.Stuck <= op.Refunded && op.StuckPenaltyEndAt == 0
}
