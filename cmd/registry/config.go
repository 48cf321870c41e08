// Copyright (c) 2025 The core-lido developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nnsW3/core-lido/auth"
	"github.com/nnsW3/core-lido/registry"
)

// fileConfig is the yaml module config. Zero fields fall back to registry
// defaults.
type fileConfig struct {
	Module struct {
		Type                 string `yaml:"type"`
		Address              string `yaml:"address"`
		MaxOperators         uint64 `yaml:"maxOperators"`
		MaxNameLength        uint64 `yaml:"maxNameLength"`
		StuckPenaltyDelay    uint64 `yaml:"stuckPenaltyDelay"`
		MaxStuckPenaltyDelay uint64 `yaml:"maxStuckPenaltyDelay"`
	} `yaml:"module"`
	Grants map[string][]string `yaml:"grants"`
}

var knownRoles = map[string]registry.Role{
	string(registry.RoleManageOperators): registry.RoleManageOperators,
	string(registry.RoleManageKeys):      registry.RoleManageKeys,
	string(registry.RoleStakingRouter):   registry.RoleStakingRouter,
	string(registry.RoleUnsafeAdmin):     registry.RoleUnsafeAdmin,
}

func loadConfig(path string) (registry.Config, *auth.Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return registry.Config{}, nil, errors.Wrap(err, "read config")
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return registry.Config{}, nil, errors.Wrap(err, "parse config")
	}
	if fc.Module.Type == "" {
		return registry.Config{}, nil, errors.New("config: module.type is required")
	}
	if !common.IsHexAddress(fc.Module.Address) {
		return registry.Config{}, nil, errors.Errorf("config: module.address: expected hex address, got %q", fc.Module.Address)
	}

	grants := make(map[registry.Role][]common.Address)
	for name, holders := range fc.Grants {
		role, ok := knownRoles[name]
		if !ok {
			return registry.Config{}, nil, errors.Errorf("config: unknown role %q", name)
		}
		for _, raw := range holders {
			if !common.IsHexAddress(raw) {
				return registry.Config{}, nil, errors.Errorf("config: role %q: expected hex address, got %q", name, raw)
			}
			grants[role] = append(grants[role], common.HexToAddress(raw))
		}
	}

	cfg := registry.Config{
		ModuleType:           fc.Module.Type,
		ModuleAddress:        common.HexToAddress(fc.Module.Address),
		MaxOperators:         fc.Module.MaxOperators,
		MaxNameLength:        fc.Module.MaxNameLength,
		StuckPenaltyDelay:    fc.Module.StuckPenaltyDelay,
		MaxStuckPenaltyDelay: fc.Module.MaxStuckPenaltyDelay,
	}
	return cfg, auth.NewStatic(grants), nil
}
