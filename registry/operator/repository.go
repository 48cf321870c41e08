// Copyright (c) 2025 The core-lido developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package operator

// Repository holds every operator record in insertion order. It carries no
// locking of its own; the registry serializes access around it.
type Repository struct {
	operators []*Operator
	active    uint64
}

func NewRepository() *Repository {
	return &Repository{}
}

// Add appends a record and assigns the next sequential id.
func (r *Repository) Add(op *Operator) uint64 {
	op.ID = uint64(len(r.operators))
	r.operators = append(r.operators, op)
	if op.Active {
		r.active++
	}
	return op.ID
}

// Get returns the record for id, or nil if id was never allocated.
func (r *Repository) Get(id uint64) *Operator {
	if id >= uint64(len(r.operators)) {
		return nil
	}
	return r.operators[id]
}

func (r *Repository) Len() uint64 {
	return uint64(len(r.operators))
}

func (r *Repository) ActiveLen() uint64 {
	return r.active
}

// SetActive flips the active flag, keeping the active-count cache in sync.
// The caller must have verified the transition is valid.
func (r *Repository) SetActive(op *Operator, active bool) {
	if op.Active == active {
		return
	}
	op.Active = active
	if active {
		r.active++
	} else {
		r.active--
	}
}

// IDs returns up to limit ids starting at offset, in ascending order.
func (r *Repository) IDs(offset, limit uint64) []uint64 {
	count := uint64(len(r.operators))
	if offset >= count || limit == 0 {
		return []uint64{}
	}
	end := offset + limit
	if end > count || end < offset { // second test guards overflow
		end = count
	}
	ids := make([]uint64, 0, end-offset)
	for id := offset; id < end; id++ {
		ids = append(ids, id)
	}
	return ids
}

// ForEach visits every record in id order, stopping at the first error.
func (r *Repository) ForEach(fn func(*Operator) error) error {
	for _, op := range r.operators {
		if err := fn(op); err != nil {
			return err
		}
	}
	return nil
}

// All returns the backing slice, in id order. Used for snapshots.
func (r *Repository) All() []*Operator {
	return r.operators
}

// Restore replaces the repository content with a snapshot.
func (r *Repository) Restore(ops []*Operator) {
	r.operators = ops
	r.active = 0
	for _, op := range ops {
		if op.Active {
			r.active++
		}
	}
}
