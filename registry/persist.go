// Copyright (c) 2025 The core-lido developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/nnsW3/core-lido/registry/operator"
)

// Store is the key-value persistence the registry snapshots into.
type Store interface {
	Put(key, val []byte) error
	Get(key []byte) ([]byte, error)
	IsNotFound(err error) bool
}

var stateKey = []byte("registry-state")

type snapshot struct {
	ModuleType        string
	Nonce             uint64
	StuckPenaltyDelay uint64
	Operators         []*operator.Operator
}

// Save writes the full ledger state under a single key. The snapshot is
// taken under the read lock, so it is always a committed state.
func (r *Registry) Save(store Store) error {
	r.mu.RLock()
	snap := snapshot{
		ModuleType:        r.cfg.ModuleType,
		Nonce:             r.nonce,
		StuckPenaltyDelay: r.ledger.StuckPenaltyDelay(),
		Operators:         r.repo.All(),
	}
	data, err := rlp.EncodeToBytes(&snap)
	r.mu.RUnlock()
	if err != nil {
		return errors.Wrap(err, "encode registry snapshot")
	}
	if err := store.Put(stateKey, data); err != nil {
		return errors.Wrap(err, "put registry snapshot")
	}
	logger.Debug("saved registry snapshot", "operators", len(snap.Operators), "nonce", snap.Nonce)
	return nil
}

// Restore loads a snapshot previously written by Save. A missing snapshot
// leaves the registry empty. The module type must match the configured one.
func (r *Registry) Restore(store Store) error {
	data, err := store.Get(stateKey)
	if err != nil {
		if store.IsNotFound(err) {
			return nil
		}
		return errors.Wrap(err, "get registry snapshot")
	}

	var snap snapshot
	if err := rlp.DecodeBytes(data, &snap); err != nil {
		return errors.Wrap(err, "decode registry snapshot")
	}
	if snap.ModuleType != r.cfg.ModuleType {
		return errors.Errorf("snapshot module type %q does not match configured %q", snap.ModuleType, r.cfg.ModuleType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.repo.Restore(snap.Operators)
	r.ledger.RestoreStuckPenaltyDelay(snap.StuckPenaltyDelay)
	r.nonce = snap.Nonce
	// the snapshot's nonce may collide with one already memoized
	r.aggregator.Reset()
	metricNonce.Set(int64(r.nonce))
	metricOperators.Set(int64(r.repo.Len()))
	metricActiveOperators.Set(int64(r.repo.ActiveLen()))
	logger.Info("restored registry snapshot", "operators", len(snap.Operators), "nonce", snap.Nonce)
	return nil
}
