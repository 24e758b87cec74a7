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

// Package catalog is the in-memory schema/table/field/relation graph that
// drives query resolution: name/id lookup in both directions, and reverse
// indexing of relations by destination table name.
package catalog

import (
	"fmt"

	"github.com/gudtech/dbr/internal/dbrerr"
)

// Schema is a named grouping of tables, typically backed by its own
// physical database per (handle, tenant tag) pair.
type Schema struct {
	ID          SchemaID
	Handle      string
	DisplayName string

	// Tables indexes by table name within this schema, populated by Build.
	Tables map[string]TableID
}

// Table is a relational table: its fields, primary key (if any), and the
// relations that originate from it, keyed by destination table name to
// preserve multiplicity (two relations may point at the same table).
type Table struct {
	ID       TableID
	SchemaID SchemaID
	Name     string

	PrimaryKey *FieldID
	Fields     map[string]FieldID
	Relations  map[string][]RelationID
}

// LookupField resolves a field name on this table.
func (t *Table) LookupField(name string) (FieldID, error) {
	id, ok := t.Fields[name]
	if !ok {
		return 0, &dbrerr.MissingField{Table: t.Name, Ident: name}
	}
	return id, nil
}

// LookupRelation returns every relation from this table to the named
// destination table (possibly more than one, or none).
func (t *Table) LookupRelation(toTableName string) ([]RelationID, error) {
	ids, ok := t.Relations[toTableName]
	if !ok {
		return nil, &dbrerr.MissingRelation{From: t.Name, To: toTableName}
	}
	return ids, nil
}

// Field describes one column.
type Field struct {
	ID           FieldID
	TableID      TableID
	Name         string
	DataType     DataType
	Nullable     bool
	Signed       bool
	MaxValue     uint64
	IsPrimaryKey bool
	TransID      *uint32
}

// Relation is a directional many-to-one join predicate: from.FromField =
// to.ToField. Multiple relations between the same pair of tables are
// permitted; FindRelation fails with ErrAmbiguousRelation when a name
// resolves to more than one.
type Relation struct {
	ID          RelationID
	FromTableID TableID
	FromFieldID FieldID
	ToTableID   TableID
	ToFieldID   FieldID
}

// Catalog is the full graph, built once per process (or per refresh) from
// four row sources. It is immutable after Build; Live.Refresh (refresh.go)
// replaces it wholesale rather than mutating in place.
type Catalog struct {
	Schemas   map[SchemaID]*Schema
	Tables    map[TableID]*Table
	Fields    map[FieldID]*Field
	Relations map[RelationID]*Relation

	namedSchemas map[string]SchemaID
}

// Build constructs a Catalog from the four bootstrap row sets
// and runs the rebuild pass: populate each table's fields/primary key,
// each table's outgoing relations keyed by destination table name, and
// each schema's table-name index.
func Build(schemas []Schema, tables []Table, fields []Field, relations []Relation) (*Catalog, error) {
	c := &Catalog{
		Schemas:      make(map[SchemaID]*Schema, len(schemas)),
		Tables:       make(map[TableID]*Table, len(tables)),
		Fields:       make(map[FieldID]*Field, len(fields)),
		Relations:    make(map[RelationID]*Relation, len(relations)),
		namedSchemas: make(map[string]SchemaID, len(schemas)),
	}

	for i := range schemas {
		s := schemas[i]
		s.Tables = make(map[string]TableID)
		c.Schemas[s.ID] = &s
		c.namedSchemas[s.Handle] = s.ID
	}
	for i := range tables {
		t := tables[i]
		t.Fields = make(map[string]FieldID)
		t.Relations = make(map[string][]RelationID)
		c.Tables[t.ID] = &t
	}
	for i := range fields {
		f := fields[i]
		c.Fields[f.ID] = &f
	}
	for i := range relations {
		r := relations[i]
		c.Relations[r.ID] = &r
	}

	c.rebuild()
	return c, nil
}

// rebuild populates the cross-references derived from the flat id-keyed
// maps: table.Fields/PrimaryKey from fields, table.Relations from
// relations (keyed by destination table name, appended so multiplicity is
// preserved), and schema.Tables from tables.
func (c *Catalog) rebuild() {
	for tableID, table := range c.Tables {
		if schema, ok := c.Schemas[table.SchemaID]; ok {
			schema.Tables[table.Name] = tableID
		}
	}

	for fieldID, field := range c.Fields {
		table, ok := c.Tables[field.TableID]
		if !ok {
			continue
		}
		table.Fields[field.Name] = fieldID
		if field.IsPrimaryKey {
			id := fieldID
			table.PrimaryKey = &id
		}
	}

	for relationID, relation := range c.Relations {
		toTable, ok := c.Tables[relation.ToTableID]
		if !ok {
			continue
		}
		fromTable, ok := c.Tables[relation.FromTableID]
		if !ok {
			continue
		}
		fromTable.Relations[toTable.Name] = append(fromTable.Relations[toTable.Name], relationID)
	}
}

// LookupSchema resolves a schema by id.
func (c *Catalog) LookupSchema(id SchemaID) (*Schema, error) {
	s, ok := c.Schemas[id]
	if !ok {
		return nil, &dbrerr.MissingSchema{Ident: fmt.Sprintf("%d", id)}
	}
	return s, nil
}

// LookupSchemaByName resolves a schema by handle.
func (c *Catalog) LookupSchemaByName(handle string) (*Schema, error) {
	id, ok := c.namedSchemas[handle]
	if !ok {
		return nil, &dbrerr.MissingSchema{Ident: handle}
	}
	return c.Schemas[id], nil
}

// LookupTable resolves a table by id.
func (c *Catalog) LookupTable(id TableID) (*Table, error) {
	t, ok := c.Tables[id]
	if !ok {
		return nil, &dbrerr.MissingTable{Ident: fmt.Sprintf("%d", id)}
	}
	return t, nil
}

// LookupTableByName resolves a table by name within a schema.
func (c *Catalog) LookupTableByName(schemaID SchemaID, name string) (*Table, error) {
	schema, err := c.LookupSchema(schemaID)
	if err != nil {
		return nil, err
	}
	id, ok := schema.Tables[name]
	if !ok {
		return nil, &dbrerr.MissingTable{Schema: schema.Handle, Ident: name}
	}
	return c.Tables[id], nil
}

// LookupField resolves a field by id.
func (c *Catalog) LookupField(id FieldID) (*Field, error) {
	f, ok := c.Fields[id]
	if !ok {
		return nil, &dbrerr.MissingField{Ident: fmt.Sprintf("%d", id)}
	}
	return f, nil
}

// LookupRelation resolves a relation by id.
func (c *Catalog) LookupRelation(id RelationID) (*Relation, error) {
	r, ok := c.Relations[id]
	if !ok {
		return nil, &dbrerr.MissingRelation{}
	}
	return r, nil
}

// FindRelation resolves the unique relation from fromTable to the table
// named toTableName. It fails with a MissingRelation if none match, or
// with dbrerr.ErrAmbiguousRelation if more than one does.
func (c *Catalog) FindRelation(fromTable *Table, toTableName string) (*Relation, error) {
	ids, err := fromTable.LookupRelation(toTableName)
	if err != nil {
		return nil, err
	}
	switch len(ids) {
	case 0:
		return nil, &dbrerr.MissingRelation{From: fromTable.Name, To: toTableName}
	case 1:
		return c.LookupRelation(ids[0])
	default:
		return nil, fmt.Errorf("%w: from %q to %q (%d candidates)", dbrerr.ErrAmbiguousRelation, fromTable.Name, toTableName, len(ids))
	}
}
