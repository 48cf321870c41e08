// Copyright (c) 2025 The core-lido developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package rewards

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/nnsW3/core-lido/registry/operator"
	"github.com/nnsW3/core-lido/registry/reverts"
)

// Share is one operator's slice of a reward distribution. Penalized
// operators appear with zero shares: they carry no weight at all.
type Share struct {
	OperatorID    uint64         `json:"operatorId"`
	RewardAddress common.Address `json:"rewardAddress"`
	Shares        *big.Int       `json:"shares"`
	Penalized     bool           `json:"penalized"`
}

// Distribute splits total reward shares across active operators, weighted
// by their running validator count (deposited minus exited). Flooring
// remainders are handed out one unit at a time in ascending id order, so
// the result always sums to exactly total. An empty distribution (no
// eligible weight, or zero total) is not an error.
func Distribute(repo *operator.Repository, total *big.Int, now time.Time) ([]Share, error) {
	if total == nil || total.Sign() < 0 {
		return nil, reverts.InvalidArgument("total shares must be non-negative")
	}

	var shares []Share
	sumWeights := new(big.Int)
	weights := make(map[uint64]*big.Int)

	_ = repo.ForEach(func(op *operator.Operator) error {
		if !op.Active {
			return nil
		}
		weight := op.ActiveValidators()
		if weight == 0 {
			return nil
		}
		share := Share{
			OperatorID:    op.ID,
			RewardAddress: op.RewardAddress,
			Shares:        new(big.Int),
			Penalized:     op.IsPenalized(now),
		}
		if !share.Penalized {
			w := new(big.Int).SetUint64(weight)
			weights[op.ID] = w
			sumWeights.Add(sumWeights, w)
		}
		shares = append(shares, share)
		return nil
	})

	if sumWeights.Sign() == 0 || total.Sign() == 0 {
		return []Share{}, nil
	}

	distributed := new(big.Int)
	for i := range shares {
		w, ok := weights[shares[i].OperatorID]
		if !ok {
			continue
		}
		shares[i].Shares.Div(new(big.Int).Mul(total, w), sumWeights)
		distributed.Add(distributed, shares[i].Shares)
	}

	// remainder goes to weighted operators in id order, one unit each
	remainder := new(big.Int).Sub(total, distributed)
	one := big.NewInt(1)
	for i := range shares {
		if remainder.Sign() == 0 {
			break
		}
		if _, ok := weights[shares[i].OperatorID]; !ok {
			continue
		}
		shares[i].Shares.Add(shares[i].Shares, one)
		remainder.Sub(remainder, one)
	}

	return shares, nil
}
