// Copyright (c) 2025 The core-lido developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package directory

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/nnsW3/core-lido/registry/operator"
	"github.com/nnsW3/core-lido/registry/reverts"
)

// Service owns operator identity and life cycle: creation, naming, reward
// address, the active flag and the cached counts derived from them.
type Service struct {
	repo *operator.Repository

	maxOperators  uint64
	maxNameLength uint64
	moduleAddress common.Address
}

func New(repo *operator.Repository, maxOperators, maxNameLength uint64, moduleAddress common.Address) *Service {
	return &Service{
		repo:          repo,
		maxOperators:  maxOperators,
		maxNameLength: maxNameLength,
		moduleAddress: moduleAddress,
	}
}

func (s *Service) checkName(name string) error {
	if len(name) == 0 {
		return reverts.InvalidArgument("operator name is empty")
	}
	if uint64(len(name)) > s.maxNameLength {
		return reverts.InvalidArgument("operator name exceeds %d characters", s.maxNameLength)
	}
	return nil
}

func (s *Service) checkRewardAddress(addr common.Address) error {
	if addr == (common.Address{}) {
		return reverts.InvalidArgument("reward address is zero")
	}
	if addr == s.moduleAddress {
		return reverts.InvalidArgument("reward address equals the module address")
	}
	return nil
}

// Add creates a new operator record. The record starts active with all
// counts zeroed and gets the next sequential id.
func (s *Service) Add(name string, rewardAddress common.Address) (*operator.Operator, error) {
	if err := s.checkName(name); err != nil {
		return nil, err
	}
	if err := s.checkRewardAddress(rewardAddress); err != nil {
		return nil, err
	}
	if s.repo.Len() >= s.maxOperators {
		return nil, reverts.CapacityExceeded("operator count is at the maximum of %d", s.maxOperators)
	}

	op := &operator.Operator{
		Name:          name,
		RewardAddress: rewardAddress,
		Active:        true,
	}
	s.repo.Add(op)
	return op, nil
}

func (s *Service) SetName(id uint64, name string) error {
	if err := s.checkName(name); err != nil {
		return err
	}
	op := s.repo.Get(id)
	if op == nil {
		return reverts.NotFound("no operator with id %d", id)
	}
	if op.Name == name {
		return reverts.NoOp("operator %d is already named %q", id, name)
	}
	op.Name = name
	return nil
}

func (s *Service) SetRewardAddress(id uint64, addr common.Address) error {
	if err := s.checkRewardAddress(addr); err != nil {
		return err
	}
	op := s.repo.Get(id)
	if op == nil {
		return reverts.NotFound("no operator with id %d", id)
	}
	if op.RewardAddress == addr {
		return reverts.NoOp("operator %d reward address already set", id)
	}
	op.RewardAddress = addr
	return nil
}

// SetActive flips the active flag. Re-entering the current state is an
// invalid transition, not a no-op: activation is an explicit life-cycle step.
func (s *Service) SetActive(id uint64, active bool) (*operator.Operator, error) {
	op := s.repo.Get(id)
	if op == nil {
		return nil, reverts.NotFound("no operator with id %d", id)
	}
	if op.Active == active {
		return nil, reverts.InvalidStateTransition("operator %d active flag is already %t", id, active)
	}
	s.repo.SetActive(op, active)
	return op, nil
}

// IsActive never fails: unknown ids read as inactive.
func (s *Service) IsActive(id uint64) bool {
	op := s.repo.Get(id)
	return op != nil && op.Active
}

func (s *Service) Get(id uint64) (*operator.Operator, error) {
	op := s.repo.Get(id)
	if op == nil {
		return nil, reverts.NotFound("no operator with id %d", id)
	}
	return op, nil
}

func (s *Service) IDs(offset, limit uint64) []uint64 {
	return s.repo.IDs(offset, limit)
}

func (s *Service) Count() uint64 {
	return s.repo.Len()
}

func (s *Service) ActiveCount() uint64 {
	return s.repo.ActiveLen()
}
