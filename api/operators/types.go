// Copyright (c) 2025 The core-lido developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package operators

import "github.com/ethereum/go-ethereum/common"

// Operator is the wire form of an operator record.
type Operator struct {
	ID                uint64         `json:"id"`
	Name              string         `json:"name"`
	RewardAddress     common.Address `json:"rewardAddress"`
	Active            bool           `json:"active"`
	TotalAdded        uint64         `json:"totalAddedValidators"`
	Vetted            uint64         `json:"totalVettedValidators"`
	Deposited         uint64         `json:"totalDepositedValidators"`
	Exited            uint64         `json:"totalExitedValidators"`
	Stuck             uint64         `json:"stuckValidatorsCount"`
	Refunded          uint64         `json:"refundedValidatorsCount"`
	StuckPenaltyEndAt uint64         `json:"stuckPenaltyEndTimestamp"`
	TargetLimitMode   string         `json:"targetLimitMode"`
	TargetLimit       uint64         `json:"targetValidatorsCount"`
}

type AddOperatorRequest struct {
	Name          string         `json:"name"`
	RewardAddress common.Address `json:"rewardAddress"`
}

type SetNameRequest struct {
	Name string `json:"name"`
}

type SetRewardAddressRequest struct {
	RewardAddress common.Address `json:"rewardAddress"`
}

type SetActiveRequest struct {
	Active bool `json:"active"`
}

type CountRequest struct {
	Count uint64 `json:"count"`
}

type InvalidateKeysRequest struct {
	From uint64 `json:"from"`
	To   uint64 `json:"to"`
}

type BatchCountsRequest struct {
	IDs    []uint64 `json:"ids"`
	Counts []uint64 `json:"counts"`
}

type UnsafeCountsRequest struct {
	Exited uint64 `json:"exited"`
	Stuck  uint64 `json:"stuck"`
}

type TargetLimitRequest struct {
	Mode  string `json:"mode"`
	Limit uint64 `json:"limit"`
}
