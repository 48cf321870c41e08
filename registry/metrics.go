// Copyright (c) 2025 The core-lido developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import "github.com/nnsW3/core-lido/metrics"

var (
	metricMutations            = metrics.CounterVec("registry_mutation_count", []string{"op", "result"})
	metricNonce                = metrics.Gauge("registry_nonce")
	metricOperators            = metrics.Gauge("registry_operator_count")
	metricActiveOperators      = metrics.Gauge("registry_active_operator_count")
	metricRewardsDistributions = metrics.Counter("registry_rewards_distribution_count")
)
