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

package instance

import "github.com/gudtech/dbr/internal/catalog"

// ID identifies one row of dbr_instances.
type ID int64

// Info is the static metadata describing one physical database instance:
// everything needed to dial it and to decide whether it is colocated with
// another instance.
type Info struct {
	ID       ID
	Module   Module
	Handle   string
	Class    string
	Tag      *string
	DBName   string
	User     string
	Password string
	Host     string
	SchemaID catalog.SchemaID

	// DatabaseFile is set only for Module == ModuleSQLite, where Host/User
	///Password are meaningless and the instance is addressed by path.
	DatabaseFile *string

	ReadOnly bool
}

// Colocated reports whether i and other are the same physical database
// server: equality of (module, user, password, host). DBName is
// intentionally excluded — two schemas on the same server, reached with
// the same credentials, still colocate; a relation between their tables
// compiles to a JOIN rather than a subquery. For ModuleSQLite, which has
// no host or credentials, two instances colocate only when both name the
// same DatabaseFile.
func (i Info) Colocated(other Info) bool {
	if i.Module != other.Module {
		return false
	}
	if i.Module == ModuleSQLite {
		return i.DatabaseFile != nil && other.DatabaseFile != nil && *i.DatabaseFile == *other.DatabaseFile
	}
	return i.User == other.User && i.Password == other.Password && i.Host == other.Host
}
