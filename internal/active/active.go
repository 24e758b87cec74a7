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

// Package active provides the mutable, shared handle type over a cached
// record: its snapshot semantics and the partial-update protocol. An
// Active[T] is the sole strong holder of a recordcache.Slot[T]; once every
// Active[T] referencing a slot is gone the cache's weak reference to it
// goes dangling.
package active

import (
	"context"
	"fmt"
	"strings"

	"github.com/gudtech/dbr/internal/dbrerr"
	"github.com/gudtech/dbr/internal/recordcache"
)

// PartialModel is an immutable value describing which fields of T to
// overlay on an existing snapshot. ID is structurally present but
// runtime-forbidden to set: ApplyPartial and Set reject any partial whose
// ID returns non-nil.
type PartialModel[T any] interface {
	// ID returns the partial's id field, or nil if absent. A non-nil
	// value is always rejected by ApplyPartial/Set.
	ID() *int64
	// Columns lists the present fields as (column name, bind value)
	// pairs, in the order they should appear in a SET clause. An empty
	// slice means "no fields present".
	Columns() []Column
	// Apply overlays every present field onto data. It is a total
	// function: a missing field is a no-op.
	Apply(data *T)
}

// Column is one present field of a partial update.
type Column struct {
	Name  string
	Value any
}

// Field is a generated per-field descriptor: how to read and write one
// column of T. Record types built against this package hand-write one of
// these per field, the way a caller of an ORM's runtime (rather than its
// codegen) would; the macro/DSL front-end that would generate them is out
// of scope for this library.
type Field[T any, V any] struct {
	Name string
	Get  func(*T) V
	Set  func(*T, V)
}

// Updater is the subset of a pool a setter needs: executing a single
// UPDATE statement. Implemented by internal/instance's pool adapters.
type Updater interface {
	ExecContext(ctx context.Context, query string, args ...any) error
}

// Active is a live handle to a cached snapshot of one row, identified by
// id, sharing a recordcache.Slot[T] with every other Active[T] that has
// fetched the same (T, id).
type Active[T any] struct {
	id   int64
	slot *recordcache.Slot[T]
}

// FromSlot builds an Active handle over an already-cached slot, typically
// the return value of recordcache.Insert.
func FromSlot[T any](id int64, slot *recordcache.Slot[T]) Active[T] {
	return Active[T]{id: id, slot: slot}
}

// ID returns the record's primary key.
func (a Active[T]) ID() int64 { return a.id }

// Snapshot clones the interior snapshot under the record's mutex.
func (a Active[T]) Snapshot() T { return a.slot.Snapshot() }

// ApplyPartial overlays partial's present fields onto the cached snapshot
// under the record's mutex. It does not touch the database; callers that
// need the write persisted use Set.
func (a Active[T]) ApplyPartial(partial PartialModel[T]) error {
	if partial.ID() != nil {
		return dbrerr.ErrCannotSetID
	}
	return a.slot.Mutate(func(data *T) error {
		partial.Apply(data)
		return nil
	})
}

// SetSnapshot replaces the cached snapshot outright.
func (a Active[T]) SetSnapshot(v T) error {
	a.slot.Replace(v)
	return nil
}

// GetField reads one field from the current snapshot.
func GetField[T any, V any](a Active[T], f Field[T, V]) V {
	data := a.Snapshot()
	return f.Get(&data)
}

// SetField issues a single-column UPDATE against the owning instance's
// pool, then applies the same change locally so the cache reflects the
// write. A driver failure leaves the cache untouched.
func SetField[T any, V any](ctx context.Context, a Active[T], pool Updater, tableName, idColumn string, f Field[T, V], value V) error {
	query := fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ?", tableName, f.Name, idColumn)
	if err := pool.ExecContext(ctx, query, value, a.id); err != nil {
		return &dbrerr.Driver{Err: err}
	}
	return a.slot.Mutate(func(data *T) error {
		f.Set(data, value)
		return nil
	})
}

// Set issues one multi-column UPDATE containing only partial's present
// columns, in insertion order, then applies the partial locally. If no
// columns are present it returns success without contacting the database,
// matching the aggregate `set` contract.
func Set[T any](ctx context.Context, a Active[T], pool Updater, tableName, idColumn string, partial PartialModel[T]) error {
	if partial.ID() != nil {
		return dbrerr.ErrCannotSetID
	}

	cols := partial.Columns()
	if len(cols) == 0 {
		return nil
	}

	setClauses := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, c := range cols {
		setClauses[i] = c.Name + " = ?"
		args = append(args, c.Value)
	}
	args = append(args, a.id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", tableName, strings.Join(setClauses, ", "), idColumn)
	if err := pool.ExecContext(ctx, query, args...); err != nil {
		return &dbrerr.Driver{Err: err}
	}

	return a.slot.Mutate(func(data *T) error {
		partial.Apply(data)
		return nil
	})
}
