// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"fmt"

	"github.com/gudtech/dbr/internal/instance"
	"github.com/gudtech/dbr/internal/instance/mysql"
	"github.com/gudtech/dbr/internal/instance/postgres"
	"github.com/gudtech/dbr/internal/instance/sqlite"
)

// Dial opens a pool for info according to its Module.
func Dial(ctx context.Context, info instance.Info) (instance.Pool, error) {
	switch info.Module {
	case instance.ModuleMySQL:
		return mysql.Open(ctx, info)
	case instance.ModuleSQLite:
		return sqlite.Open(ctx, info)
	case instance.ModulePostgres:
		return postgres.Open(ctx, info)
	default:
		return nil, fmt.Errorf("instance %q: unknown module %q", info.Handle, info.Module)
	}
}

// BuildRegistry dials every instance in cfg and returns a populated
// Registry. On a dial failure it closes whatever was already opened
// before returning the error, so callers never leak a partial pool set.
func BuildRegistry(ctx context.Context, cfg *Config) (*instance.Registry, error) {
	reg := instance.NewRegistry()
	var opened []*instance.Instance

	for _, ic := range cfg.Instances {
		info := ic.Info()
		pool, err := Dial(ctx, info)
		if err != nil {
			for _, inst := range opened {
				inst.Close()
			}
			return nil, fmt.Errorf("dialing instance %q: %w", info.Handle, err)
		}
		inst := instance.New(info, pool)
		opened = append(opened, inst)
		reg.Insert(inst)
	}
	return reg, nil
}
