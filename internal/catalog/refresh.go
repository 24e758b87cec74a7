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

package catalog

import (
	"context"
	"sync/atomic"

	"github.com/jmoiron/sqlx"
)

// Live holds the process-wide catalog and supports full-replace refresh:
// readers always see a complete, self-consistent Catalog, never a
// half-rebuilt one ("refresh is a full replace, not in-place
// mutation").
type Live struct {
	ptr atomic.Pointer[Catalog]
}

// NewLive wraps an already-built Catalog.
func NewLive(c *Catalog) *Live {
	l := &Live{}
	l.ptr.Store(c)
	return l
}

// Get returns the current catalog snapshot.
func (l *Live) Get() *Catalog {
	return l.ptr.Load()
}

// Refresh rebuilds the catalog from db and swaps it in atomically.
func (l *Live) Refresh(ctx context.Context, db *sqlx.DB) error {
	next, err := Load(ctx, db)
	if err != nil {
		return err
	}
	l.ptr.Store(next)
	return nil
}
