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
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schemaRow, tableRow, fieldRow, and relationRow mirror the dbr_* bootstrap
// tables' row shape for sqlx.StructScan.
type schemaRow struct {
	ID          SchemaID `db:"schema_id"`
	Handle      string   `db:"handle"`
	DisplayName string   `db:"display_name"`
}

type tableRow struct {
	ID       TableID  `db:"table_id"`
	SchemaID SchemaID `db:"schema_id"`
	Name     string   `db:"name"`
}

type fieldRow struct {
	ID           FieldID  `db:"field_id"`
	TableID      TableID  `db:"table_id"`
	Name         string   `db:"name"`
	DataType     DataType `db:"data_type"`
	IsNullable   bool     `db:"is_nullable"`
	IsSigned     bool     `db:"is_signed"`
	MaxValue     uint64   `db:"max_value"`
	IsPrimaryKey bool     `db:"is_pkey"`
	TransID      *uint32  `db:"trans_id"`
}

type relationRow struct {
	ID          RelationID `db:"relationship_id"`
	FromTableID TableID    `db:"from_table_id"`
	FromFieldID FieldID    `db:"from_field_id"`
	ToTableID   TableID    `db:"to_table_id"`
	ToFieldID   FieldID    `db:"to_field_id"`
}

const (
	schemasQuery   = `SELECT schema_id, handle, display_name FROM dbr_schemas`
	tablesQuery    = `SELECT table_id, schema_id, name FROM dbr_tables`
	fieldsQuery    = `SELECT field_id, table_id, name, data_type, is_nullable, is_signed, max_value, is_pkey, trans_id FROM dbr_fields`
	relationsQuery = `SELECT relationship_id, from_table_id, from_field_id, to_table_id, to_field_id FROM dbr_relationships`
)

// Load fetches the four bootstrap row sets from db and builds a Catalog.
// This is the only place the catalog performs I/O; everything else in this
// package is synchronous, in-memory graph construction.
func Load(ctx context.Context, db *sqlx.DB) (*Catalog, error) {
	var schemaRows []schemaRow
	if err := db.SelectContext(ctx, &schemaRows, schemasQuery); err != nil {
		return nil, fmt.Errorf("fetching dbr_schemas: %w", err)
	}
	var tableRows []tableRow
	if err := db.SelectContext(ctx, &tableRows, tablesQuery); err != nil {
		return nil, fmt.Errorf("fetching dbr_tables: %w", err)
	}
	var fieldRows []fieldRow
	if err := db.SelectContext(ctx, &fieldRows, fieldsQuery); err != nil {
		return nil, fmt.Errorf("fetching dbr_fields: %w", err)
	}
	var relationRows []relationRow
	if err := db.SelectContext(ctx, &relationRows, relationsQuery); err != nil {
		return nil, fmt.Errorf("fetching dbr_relationships: %w", err)
	}

	schemas := make([]Schema, len(schemaRows))
	for i, r := range schemaRows {
		schemas[i] = Schema{ID: r.ID, Handle: r.Handle, DisplayName: r.DisplayName}
	}
	tables := make([]Table, len(tableRows))
	for i, r := range tableRows {
		tables[i] = Table{ID: r.ID, SchemaID: r.SchemaID, Name: r.Name}
	}
	fields := make([]Field, len(fieldRows))
	for i, r := range fieldRows {
		fields[i] = Field{
			ID:           r.ID,
			TableID:      r.TableID,
			Name:         r.Name,
			DataType:     r.DataType,
			Nullable:     r.IsNullable,
			Signed:       r.IsSigned,
			MaxValue:     r.MaxValue,
			IsPrimaryKey: r.IsPrimaryKey,
			TransID:      r.TransID,
		}
	}
	relations := make([]Relation, len(relationRows))
	for i, r := range relationRows {
		relations[i] = Relation{
			ID:          r.ID,
			FromTableID: r.FromTableID,
			FromFieldID: r.FromFieldID,
			ToTableID:   r.ToTableID,
			ToFieldID:   r.ToFieldID,
		}
	}

	return Build(schemas, tables, fields, relations)
}
