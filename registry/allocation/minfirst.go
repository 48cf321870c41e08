// Copyright (c) 2025 The core-lido developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package allocation

// Candidate is one bucket the strategy may fill: Current running validators
// and the absolute Max it may grow to.
type Candidate struct {
	ID      uint64
	Current uint64
	Max     uint64
}

// MinFirst distributes count units across candidates one unit at a time,
// always to the bucket with the lowest current fill (ties to the lowest id).
// It returns the units granted per candidate, in input order, and the total
// actually allocated, which falls short of count once all buckets are full.
func MinFirst(candidates []Candidate, count uint64) ([]uint64, uint64) {
	grants := make([]uint64, len(candidates))
	fill := make([]uint64, len(candidates))
	for i, c := range candidates {
		fill[i] = c.Current
	}

	var allocated uint64
	for allocated < count {
		best := -1
		for i, c := range candidates {
			if fill[i] >= c.Max {
				continue
			}
			if best == -1 || fill[i] < fill[best] {
				best = i
			}
		}
		if best == -1 {
			break
		}
		fill[best]++
		grants[best]++
		allocated++
	}
	return grants, allocated
}
