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

package query_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gudtech/dbr/internal/catalog"
	"github.com/gudtech/dbr/internal/dbrcontext"
	"github.com/gudtech/dbr/internal/dbrerr"
	"github.com/gudtech/dbr/internal/instance"
	"github.com/gudtech/dbr/internal/query"
)

// Fixture matching the worked resolver scenarios: schema "ops" holding
// song{id,name,album_id,likes} and album{id,name,artist_id}; schema
// "other" holding artist{id,name,genre}. song.album_id -> album.id and
// album.artist_id -> artist.id.
const (
	schemaOps   catalog.SchemaID = 1
	schemaOther catalog.SchemaID = 2

	tableSong   catalog.TableID = 1
	tableAlbum  catalog.TableID = 2
	tableArtist catalog.TableID = 3

	fieldSongID      catalog.FieldID = 1
	fieldSongName    catalog.FieldID = 2
	fieldSongAlbumID catalog.FieldID = 3
	fieldSongLikes   catalog.FieldID = 4
	fieldAlbumID     catalog.FieldID = 5
	fieldAlbumName   catalog.FieldID = 6
	fieldAlbumArtist catalog.FieldID = 7
	fieldArtistID    catalog.FieldID = 8
	fieldArtistName  catalog.FieldID = 9
	fieldArtistGenre catalog.FieldID = 10

	relationSongAlbum   catalog.RelationID = 1
	relationAlbumArtist catalog.RelationID = 2
)

func fixtureCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Build(
		[]catalog.Schema{
			{ID: schemaOps, Handle: "ops", DisplayName: "ops"},
			{ID: schemaOther, Handle: "other", DisplayName: "other"},
		},
		[]catalog.Table{
			{ID: tableSong, SchemaID: schemaOps, Name: "song"},
			{ID: tableAlbum, SchemaID: schemaOps, Name: "album"},
			{ID: tableArtist, SchemaID: schemaOther, Name: "artist"},
		},
		[]catalog.Field{
			{ID: fieldSongID, TableID: tableSong, Name: "id", IsPrimaryKey: true, DataType: catalog.DataTypeBigInt},
			{ID: fieldSongName, TableID: tableSong, Name: "name", DataType: catalog.DataTypeVarChar},
			{ID: fieldSongAlbumID, TableID: tableSong, Name: "album_id", DataType: catalog.DataTypeBigInt},
			{ID: fieldSongLikes, TableID: tableSong, Name: "likes", DataType: catalog.DataTypeBigInt},
			{ID: fieldAlbumID, TableID: tableAlbum, Name: "id", IsPrimaryKey: true, DataType: catalog.DataTypeBigInt},
			{ID: fieldAlbumName, TableID: tableAlbum, Name: "name", DataType: catalog.DataTypeVarChar},
			{ID: fieldAlbumArtist, TableID: tableAlbum, Name: "artist_id", DataType: catalog.DataTypeBigInt},
			{ID: fieldArtistID, TableID: tableArtist, Name: "id", IsPrimaryKey: true, DataType: catalog.DataTypeBigInt},
			{ID: fieldArtistName, TableID: tableArtist, Name: "name", DataType: catalog.DataTypeVarChar},
			{ID: fieldArtistGenre, TableID: tableArtist, Name: "genre", DataType: catalog.DataTypeVarChar},
		},
		[]catalog.Relation{
			{ID: relationSongAlbum, FromTableID: tableSong, FromFieldID: fieldSongAlbumID, ToTableID: tableAlbum, ToFieldID: fieldAlbumID},
			{ID: relationAlbumArtist, FromTableID: tableAlbum, FromFieldID: fieldAlbumArtist, ToTableID: tableArtist, ToFieldID: fieldArtistID},
		},
	)
	if err != nil {
		t.Fatalf("fixtureCatalog: %v", err)
	}
	return c
}

// fixtureContext builds a dbrcontext.Context for the given fixture
// catalog where ops and other are colocated iff colocated is true.
func fixtureContext(t *testing.T, cat *catalog.Catalog, colocated bool) *dbrcontext.Context {
	t.Helper()

	opsInfo := instance.Info{ID: 1, Module: instance.ModuleMySQL, Handle: "ops", DBName: "ops", User: "u", Password: "p", Host: "h", SchemaID: schemaOps}
	otherHost := "h"
	if !colocated {
		otherHost = "h2"
	}
	otherInfo := instance.Info{ID: 2, Module: instance.ModuleMySQL, Handle: "other", DBName: "other", User: "u", Password: "p", Host: otherHost, SchemaID: schemaOther}

	reg := instance.NewRegistry()
	reg.Insert(instance.New(opsInfo, nil))
	reg.Insert(instance.New(otherInfo, nil))

	return &dbrcontext.Context{Registry: reg, Catalog: cat}
}

func TestResolveS1SimplePredicateWithLimit(t *testing.T) {
	cat := fixtureCatalog(t)
	ctx := fixtureContext(t, cat, true)

	sel := query.NewSelect(tableSong)
	sel.Fields = []catalog.FieldID{fieldSongID, fieldSongName, fieldSongAlbumID, fieldSongLikes}
	sel.Filters = &query.PredicateFilter{Predicate: query.FilterPredicate{
		Path:  query.RelationPath{Base: tableSong, Field: "name"},
		Op:    query.OpEq,
		Value: "The Detail",
	}}
	sel.Limit = 10

	resolved, err := sel.Resolve(ctx)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	sql, binds, err := resolved.AsSQL()
	if err != nil {
		t.Fatalf("AsSQL: %v", err)
	}

	wantSQL := "SELECT song.id, song.name, song.album_id, song.likes FROM ops.song AS song WHERE song.name = ? LIMIT ?"
	if sql != wantSQL {
		t.Errorf("sql = %q, want %q", sql, wantSQL)
	}
	if diff := cmp.Diff([]any{"The Detail", 10}, binds); diff != "" {
		t.Errorf("binds mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveS2ColocatedJoinChain(t *testing.T) {
	cat := fixtureCatalog(t)
	ctx := fixtureContext(t, cat, true)

	sel := query.NewSelect(tableSong)
	sel.Fields = []catalog.FieldID{fieldSongID}
	sel.Filters = &query.PredicateFilter{Predicate: query.FilterPredicate{
		Path:  query.RelationPath{Base: tableSong, Relations: []string{"album", "artist"}, Field: "genre"},
		Op:    query.OpLike,
		Value: "math%",
	}}
	sel.Order = []query.OrderField{{FieldName: "id", Direction: query.OrderUnspecified}}

	resolved, err := sel.Resolve(ctx)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	sql, binds, err := resolved.AsSQL()
	if err != nil {
		t.Fatalf("AsSQL: %v", err)
	}

	wantSQL := "SELECT song.id FROM ops.song AS song " +
		"JOIN ops.album AS album1 ON (song.album_id = album1.id) " +
		"JOIN other.artist AS artist1 ON (album1.artist_id = artist1.id) " +
		"WHERE artist1.genre LIKE ? ORDER BY id"
	if sql != wantSQL {
		t.Errorf("sql = %q, want %q", sql, wantSQL)
	}
	if diff := cmp.Diff([]any{"math%"}, binds); diff != "" {
		t.Errorf("binds mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveS3NonColocatedBecomesExternalSubquery(t *testing.T) {
	cat := fixtureCatalog(t)
	ctx := fixtureContext(t, cat, false)

	sel := query.NewSelect(tableSong)
	sel.Fields = []catalog.FieldID{fieldSongID}
	sel.Filters = &query.PredicateFilter{Predicate: query.FilterPredicate{
		Path:  query.RelationPath{Base: tableSong, Relations: []string{"album", "artist"}, Field: "genre"},
		Op:    query.OpLike,
		Value: "math%",
	}}

	resolved, err := sel.Resolve(ctx)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if _, _, err := resolved.AsSQL(); err == nil {
		t.Fatal("AsSQL: want ErrUnfinished, got nil")
	} else if !errors.Is(err, dbrerr.ErrUnfinished) {
		t.Errorf("AsSQL error = %v, want ErrUnfinished", err)
	}
}

func TestResolveS4PrefixSharedAliases(t *testing.T) {
	cat := fixtureCatalog(t)
	ctx := fixtureContext(t, cat, true)

	sel := query.NewSelect(tableSong)
	sel.Fields = []catalog.FieldID{fieldSongID}
	leftPred := query.FilterPredicate{
		Path:  query.RelationPath{Base: tableSong, Relations: []string{"album", "artist"}, Field: "genre"},
		Op:    query.OpLike,
		Value: "math%",
	}
	rightOrLeft := query.FilterPredicate{
		Path:  query.RelationPath{Base: tableSong, Relations: []string{"album", "artist"}, Field: "genre"},
		Op:    query.OpLike,
		Value: "%rock%",
	}
	rightOrRight := query.FilterPredicate{
		Path:  query.RelationPath{Base: tableSong, Relations: []string{"album"}, Field: "id"},
		Op:    query.OpEq,
		Value: int64(4),
	}
	sel.Filters = &query.AndFilter{Children: []query.FilterTree{
		&query.PredicateFilter{Predicate: leftPred},
		&query.OrFilter{
			Left:  &query.PredicateFilter{Predicate: rightOrLeft},
			Right: &query.PredicateFilter{Predicate: rightOrRight},
		},
	}}

	resolved, err := sel.Resolve(ctx)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	sql, binds, err := resolved.AsSQL()
	if err != nil {
		t.Fatalf("AsSQL: %v", err)
	}

	wantSQL := "SELECT song.id FROM ops.song AS song " +
		"JOIN ops.album AS album1 ON (song.album_id = album1.id) " +
		"JOIN other.artist AS artist1 ON (album1.artist_id = artist1.id) " +
		"WHERE artist1.genre LIKE ? AND (artist1.genre LIKE ? OR album1.id = ?)"
	if sql != wantSQL {
		t.Errorf("sql = %q, want %q", sql, wantSQL)
	}
	if diff := cmp.Diff([]any{"math%", "%rock%", int64(4)}, binds); diff != "" {
		t.Errorf("binds mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveDistinctRelationsIntoSameTableGetIndependentAliases(t *testing.T) {
	// A second relation from album to artist (e.g. a "co_artist" column)
	// should get its own counter, independent of the album->artist alias,
	// per the "counter keyed by last relation" design note. The registry
	// operates purely on relation ids, so this is exercised directly
	// without going through catalog name resolution.
	const relationAlbumCoArtist catalog.RelationID = 3

	registry := query.NewTableRegistry()
	chain1 := query.NewRelationChain(tableAlbum).Push(relationAlbumArtist)
	chain2 := query.NewRelationChain(tableAlbum).Push(relationAlbumCoArtist)

	_, idx1, err := registry.Add(chain1)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	_, idx2, err := registry.Add(chain2)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if idx1 != 1 || idx2 != 1 {
		t.Errorf("idx1=%d idx2=%d, want both 1 (independent per-relation counters)", idx1, idx2)
	}
}

func TestResolveNonColocatedSubqueryTargetWithoutPrimaryKeyFails(t *testing.T) {
	const (
		schemaA catalog.SchemaID = 10
		schemaB catalog.SchemaID = 11

		tableParent catalog.TableID = 20
		tableChild  catalog.TableID = 21

		fieldParentID     catalog.FieldID = 30
		fieldParentChild  catalog.FieldID = 31
		fieldChildID      catalog.FieldID = 32
		fieldChildName    catalog.FieldID = 33
		relationParentKid catalog.RelationID = 40
	)

	cat, err := catalog.Build(
		[]catalog.Schema{
			{ID: schemaA, Handle: "a", DisplayName: "a"},
			{ID: schemaB, Handle: "b", DisplayName: "b"},
		},
		[]catalog.Table{
			{ID: tableParent, SchemaID: schemaA, Name: "parent"},
			{ID: tableChild, SchemaID: schemaB, Name: "child"},
		},
		[]catalog.Field{
			{ID: fieldParentID, TableID: tableParent, Name: "id", IsPrimaryKey: true, DataType: catalog.DataTypeBigInt},
			{ID: fieldParentChild, TableID: tableParent, Name: "child_id", DataType: catalog.DataTypeBigInt},
			// child has no primary key field: nothing sets IsPrimaryKey.
			{ID: fieldChildID, TableID: tableChild, Name: "id", DataType: catalog.DataTypeBigInt},
			{ID: fieldChildName, TableID: tableChild, Name: "name", DataType: catalog.DataTypeVarChar},
		},
		[]catalog.Relation{
			{ID: relationParentKid, FromTableID: tableParent, FromFieldID: fieldParentChild, ToTableID: tableChild, ToFieldID: fieldChildID},
		},
	)
	if err != nil {
		t.Fatalf("catalog.Build: %v", err)
	}

	reg := instance.NewRegistry()
	reg.Insert(instance.New(instance.Info{ID: 1, Module: instance.ModuleMySQL, Handle: "a", Host: "h1", SchemaID: schemaA}, nil))
	reg.Insert(instance.New(instance.Info{ID: 2, Module: instance.ModuleMySQL, Handle: "b", Host: "h2", SchemaID: schemaB}, nil))
	ctx := &dbrcontext.Context{Registry: reg, Catalog: cat}

	sel := query.NewSelect(tableParent)
	sel.Fields = []catalog.FieldID{fieldParentID}
	sel.Filters = &query.PredicateFilter{Predicate: query.FilterPredicate{
		Path:  query.RelationPath{Base: tableParent, Relations: []string{"child"}, Field: "name"},
		Op:    query.OpEq,
		Value: "x",
	}}

	_, err = sel.Resolve(ctx)
	if err == nil {
		t.Fatal("Resolve: want error, got nil")
	}
	if !errors.Is(err, dbrerr.ErrUnsupportedPK) {
		t.Errorf("Resolve error = %v, want ErrUnsupportedPK", err)
	}
}
