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

// Package instance is the instance registry and per-instance database
// handle: a mapping from (schema handle, tenant tag) to a physical
// database instance, each owning a per-type weak-valued record cache.
package instance

import "strings"

// Module names a database backend. It is a closed set, with a
// named fallback for anything else so loader errors stay self-describing
// rather than silently coercing to a default.
type Module struct {
	name    string
	unknown bool
}

var (
	ModuleMySQL    = Module{name: "mysql"}
	ModuleSQLite   = Module{name: "sqlite"}
	ModulePostgres = Module{name: "postgres"}
)

// ParseModule parses the dbr_instances.module column, case-insensitively.
func ParseModule(s string) Module {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mysql":
		return ModuleMySQL
	case "sqlite":
		return ModuleSQLite
	case "postgres", "postgresql":
		return ModulePostgres
	default:
		return Module{name: s, unknown: true}
	}
}

// String returns the canonical module name, or the original unrecognized
// text if ParseModule didn't match a known backend.
func (m Module) String() string { return m.name }

// Known reports whether m is one of the three supported backends.
func (m Module) Known() bool { return !m.unknown }
