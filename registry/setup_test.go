// Copyright (c) 2025 The core-lido developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

var (
	moduleAddr = common.BytesToAddress([]byte("module"))
	rewardAddr = common.BytesToAddress([]byte("reward"))

	manager    = common.BytesToAddress([]byte("manager"))
	keyManager = common.BytesToAddress([]byte("key-manager"))
	router     = common.BytesToAddress([]byte("router"))
	admin      = common.BytesToAddress([]byte("admin"))
	nobody     = common.BytesToAddress([]byte("nobody"))
)

// roleTable grants each test caller exactly its own role.
type roleTable map[common.Address]Role

func (t roleTable) HasCapability(caller common.Address, role Role) bool {
	return t[caller] == role
}

func testGrants() roleTable {
	return roleTable{
		manager:    RoleManageOperators,
		keyManager: RoleManageKeys,
		router:     RoleStakingRouter,
		admin:      RoleUnsafeAdmin,
	}
}

// keyStoreSpy records key-count notifications.
type keyStoreSpy struct {
	mu     sync.Mutex
	deltas map[uint64][]int64
}

func newKeyStoreSpy() *keyStoreSpy {
	return &keyStoreSpy{deltas: make(map[uint64][]int64)}
}

func (s *keyStoreSpy) OnKeysChanged(operatorID uint64, countDelta int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deltas[operatorID] = append(s.deltas[operatorID], countDelta)
}

const testPenaltyDelay = 5 * 24 * 60 * 60

func newTestRegistry(t *testing.T) (*Registry, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Unix(1_700_000_000, 0))
	reg := New(Config{
		ModuleType:        "curated-onchain-v1",
		ModuleAddress:     moduleAddr,
		StuckPenaltyDelay: testPenaltyDelay,
		Clock:             clock,
	}, testGrants(), nil)
	return reg, clock
}

type TestFunc func(t *testing.T)

// TestSequence chains registry calls so state-machine tests read as the
// operation order they exercise.
type TestSequence struct {
	reg *Registry

	funcs []TestFunc
	mu    sync.Mutex
}

func NewSequence(reg *Registry) *TestSequence {
	return &TestSequence{funcs: make([]TestFunc, 0), reg: reg}
}

func (ts *TestSequence) AddFunc(f TestFunc) *TestSequence {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.funcs = append(ts.funcs, f)
	return ts
}

func (ts *TestSequence) AddOperator(name string, addr common.Address) *TestSequence {
	return ts.AddFunc(func(t *testing.T) {
		id, _, err := ts.reg.AddOperator(manager, name, addr)
		if err != nil {
			t.Fatalf("failed to add operator %q: %v", name, err)
		}
		t.Logf("added operator %q as id %d", name, id)
	})
}

func (ts *TestSequence) AddKeys(id, count uint64) *TestSequence {
	return ts.AddFunc(func(t *testing.T) {
		if _, err := ts.reg.AddKeys(keyManager, id, count); err != nil {
			t.Fatalf("failed to add %d keys to operator %d: %v", count, id, err)
		}
		t.Logf("added %d keys to operator %d", count, id)
	})
}

func (ts *TestSequence) SetVetted(id, vetted uint64) *TestSequence {
	return ts.AddFunc(func(t *testing.T) {
		if _, err := ts.reg.SetVettedCount(router, id, vetted); err != nil {
			t.Fatalf("failed to vet %d keys of operator %d: %v", vetted, id, err)
		}
		t.Logf("vetted %d keys of operator %d", vetted, id)
	})
}

func (ts *TestSequence) ConsumeDeposits(count uint64) *TestSequence {
	return ts.AddFunc(func(t *testing.T) {
		grants, _, err := ts.reg.ConsumeDeposits(router, count)
		if err != nil {
			t.Fatalf("failed to consume %d deposits: %v", count, err)
		}
		t.Logf("consumed %d deposits: %v", count, grants)
	})
}

func (ts *TestSequence) UpdateExited(id, count uint64) *TestSequence {
	return ts.AddFunc(func(t *testing.T) {
		if _, err := ts.reg.UpdateExitedCounts(router, []uint64{id}, []uint64{count}); err != nil {
			t.Fatalf("failed to set exited count of operator %d to %d: %v", id, count, err)
		}
		t.Logf("set exited count of operator %d to %d", id, count)
	})
}

func (ts *TestSequence) UpdateStuck(id, count uint64) *TestSequence {
	return ts.AddFunc(func(t *testing.T) {
		if _, err := ts.reg.UpdateStuckCounts(router, []uint64{id}, []uint64{count}); err != nil {
			t.Fatalf("failed to set stuck count of operator %d to %d: %v", id, count, err)
		}
		t.Logf("set stuck count of operator %d to %d", id, count)
	})
}

func (ts *TestSequence) Deactivate(id uint64) *TestSequence {
	return ts.AddFunc(func(t *testing.T) {
		if _, err := ts.reg.Deactivate(manager, id); err != nil {
			t.Fatalf("failed to deactivate operator %d: %v", id, err)
		}
		t.Logf("deactivated operator %d", id)
	})
}

func (ts *TestSequence) Run(t *testing.T) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	for _, f := range ts.funcs {
		f(t)
	}
}

// OperatorAssertions collects expectations on one operator and checks them
// in a single step.
type OperatorAssertions struct {
	reg *Registry
	id  uint64

	active      *bool
	counts      *[4]uint64 // totalAdded, vetted, deposited, exited
	stuck       *uint64
	depositable *uint64
}

func AssertOperator(reg *Registry, id uint64) *OperatorAssertions {
	return &OperatorAssertions{reg: reg, id: id}
}

func (oa *OperatorAssertions) Active(expected bool) *OperatorAssertions {
	oa.active = &expected
	return oa
}

func (oa *OperatorAssertions) Counts(totalAdded, vetted, deposited, exited uint64) *OperatorAssertions {
	oa.counts = &[4]uint64{totalAdded, vetted, deposited, exited}
	return oa
}

func (oa *OperatorAssertions) Stuck(expected uint64) *OperatorAssertions {
	oa.stuck = &expected
	return oa
}

func (oa *OperatorAssertions) Depositable(expected uint64) *OperatorAssertions {
	oa.depositable = &expected
	return oa
}

func (oa *OperatorAssertions) Check(t *testing.T) {
	t.Helper()

	op, err := oa.reg.Operator(oa.id)
	if err != nil {
		t.Fatalf("failed to read operator %d: %v", oa.id, err)
	}
	if oa.active != nil {
		assert.Equal(t, *oa.active, op.Active, "operator %d active", oa.id)
	}
	if oa.counts != nil {
		got := [4]uint64{op.TotalAdded, op.Vetted, op.Deposited, op.Exited}
		assert.Equal(t, *oa.counts, got, "operator %d counts", oa.id)
	}
	if oa.stuck != nil {
		assert.Equal(t, *oa.stuck, op.Stuck, "operator %d stuck", oa.id)
	}
	if oa.depositable != nil {
		sum, err := oa.reg.OperatorSummary(oa.id)
		if err != nil {
			t.Fatalf("failed to read summary of operator %d: %v", oa.id, err)
		}
		assert.Equal(t, *oa.depositable, sum.Depositable, "operator %d depositable", oa.id)
	}
}

// assertInvariants checks the ledger invariants over every operator.
func assertInvariants(t *testing.T, reg *Registry) {
	t.Helper()
	for _, id := range reg.IDs(0, reg.Count()) {
		op, err := reg.Operator(id)
		if err != nil {
			t.Fatalf("failed to read operator %d: %v", id, err)
		}
		assert.LessOrEqual(t, op.Deposited, op.Vetted, "operator %d: deposited <= vetted", id)
		assert.LessOrEqual(t, op.Vetted, op.TotalAdded, "operator %d: vetted <= totalAdded", id)
		assert.LessOrEqual(t, op.Exited, op.Deposited, "operator %d: exited <= deposited", id)
		assert.LessOrEqual(t, op.Stuck, op.Deposited-op.Exited, "operator %d: stuck <= active", id)
	}
}
