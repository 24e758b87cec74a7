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

import "context"

// Rows is the minimal row-iteration surface the core needs. *sql.Rows
// already satisfies it structurally; the postgres driver package adapts
// pgx.Rows to it (see internal/instance/postgres).
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
	Columns() ([]string, error)
}

// Pool is the abstract operation set the core invokes against a physical
// database instance: acquiring/using a connection to run a statement.
// Connection pooling, retry, and row decoding internals are the wire-level
// driver's business — this interface exists so
// the resolver and active-record code never branch on Module.
type Pool interface {
	QueryContext(ctx context.Context, query string, args ...any) (Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) error
	PingContext(ctx context.Context) error
	Close() error
}
