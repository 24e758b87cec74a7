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

package active_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gudtech/dbr/internal/active"
	"github.com/gudtech/dbr/internal/dbrerr"
	"github.com/gudtech/dbr/internal/recordcache"
)

type song struct {
	ID    int64
	Name  string
	Likes int64
}

type namePartial struct {
	id   *int64
	name *string
}

func (p namePartial) ID() *int64 { return p.id }

func (p namePartial) Columns() []active.Column {
	var cols []active.Column
	if p.name != nil {
		cols = append(cols, active.Column{Name: "name", Value: *p.name})
	}
	return cols
}

func (p namePartial) Apply(data *song) {
	if p.name != nil {
		data.Name = *p.name
	}
}

var nameField = active.Field[song, string]{
	Name: "name",
	Get:  func(s *song) string { return s.Name },
	Set:  func(s *song, v string) { s.Name = v },
}

type fakeUpdater struct {
	queries []string
	args    [][]any
	err     error
}

func (f *fakeUpdater) ExecContext(ctx context.Context, query string, args ...any) error {
	f.queries = append(f.queries, query)
	f.args = append(f.args, args)
	return f.err
}

func newActive(t *testing.T, v song) active.Active[song] {
	t.Helper()
	c := recordcache.New()
	slot := recordcache.Insert(c, v.ID, v)
	return active.FromSlot(v.ID, slot)
}

// TestApplyPartialRejectsID covers the id-rejection scenario:
// apply_partial({id: Some(5), ...}) must fail with CannotSetID and leave
// the snapshot unchanged.
func TestApplyPartialRejectsID(t *testing.T) {
	a := newActive(t, song{ID: 5, Name: "before"})
	id := int64(5)
	name := "x"

	err := a.ApplyPartial(namePartial{id: &id, name: &name})
	if !errors.Is(err, dbrerr.ErrCannotSetID) {
		t.Fatalf("ApplyPartial error = %v, want ErrCannotSetID", err)
	}
	if got := a.Snapshot().Name; got != "before" {
		t.Errorf("Snapshot().Name = %q, want unchanged %q", got, "before")
	}
}

func TestApplyPartialOverlaysPresentFields(t *testing.T) {
	a := newActive(t, song{ID: 1, Name: "before", Likes: 3})
	name := "after"

	if err := a.ApplyPartial(namePartial{name: &name}); err != nil {
		t.Fatalf("ApplyPartial: %v", err)
	}
	got := a.Snapshot()
	if got.Name != "after" || got.Likes != 3 {
		t.Errorf("Snapshot = %+v, want Name=after Likes=3 (missing fields untouched)", got)
	}
}

func TestSetFieldPersistsThenAppliesLocally(t *testing.T) {
	a := newActive(t, song{ID: 7, Name: "before"})
	u := &fakeUpdater{}

	if err := active.SetField(context.Background(), a, u, "song", "id", nameField, "after"); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	if got := active.GetField(a, nameField); got != "after" {
		t.Errorf("GetField = %q, want %q without any further cache operation", got, "after")
	}
	if len(u.queries) != 1 || u.queries[0] != "UPDATE song SET name = ? WHERE id = ?" {
		t.Errorf("queries = %v", u.queries)
	}
	if diff := len(u.args[0]); diff != 2 || u.args[0][0] != "after" || u.args[0][1] != int64(7) {
		t.Errorf("args = %v", u.args[0])
	}
}

func TestSetFieldDriverFailureLeavesCacheUntouched(t *testing.T) {
	a := newActive(t, song{ID: 7, Name: "before"})
	u := &fakeUpdater{err: errors.New("connection refused")}

	err := active.SetField(context.Background(), a, u, "song", "id", nameField, "after")
	var driverErr *dbrerr.Driver
	if !errors.As(err, &driverErr) {
		t.Fatalf("SetField error = %v, want *dbrerr.Driver", err)
	}
	if got := active.GetField(a, nameField); got != "before" {
		t.Errorf("GetField = %q, want unchanged %q after a driver failure", got, "before")
	}
}

func TestSetWithNoColumnsSkipsDatabase(t *testing.T) {
	a := newActive(t, song{ID: 1, Name: "before"})
	u := &fakeUpdater{}

	if err := active.Set(context.Background(), a, u, "song", "id", namePartial{}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if len(u.queries) != 0 {
		t.Errorf("Set issued %d queries for an empty partial, want 0", len(u.queries))
	}
}

func TestSetIssuesOneMultiColumnUpdate(t *testing.T) {
	a := newActive(t, song{ID: 1, Name: "before"})
	u := &fakeUpdater{}
	name := "after"

	if err := active.Set(context.Background(), a, u, "song", "id", namePartial{name: &name}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if len(u.queries) != 1 || u.queries[0] != "UPDATE song SET name = ? WHERE id = ?" {
		t.Errorf("queries = %v", u.queries)
	}
	if got := a.Snapshot().Name; got != "after" {
		t.Errorf("Snapshot().Name = %q, want %q", got, "after")
	}
}
