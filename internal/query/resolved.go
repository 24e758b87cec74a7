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

package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gudtech/dbr/internal/catalog"
	"github.com/gudtech/dbr/internal/dbrcontext"
	"github.com/gudtech/dbr/internal/dbrerr"
	"github.com/gudtech/dbr/internal/instance"
)

// ResolvedTable is a catalog table bound to the physical instance that
// hosts it.
type ResolvedTable struct {
	Instance *instance.Instance
	Table    *catalog.Table
}

func resolveTable(ctx *dbrcontext.Context, table *catalog.Table) (ResolvedTable, error) {
	inst, err := ctx.InstanceBySchema(table.SchemaID)
	if err != nil {
		return ResolvedTable{}, err
	}
	return ResolvedTable{Instance: inst, Table: table}, nil
}

// Instanced renders the table's name with its alias suffix, or bare if
// index is nil (the unaliased base table).
func (t ResolvedTable) Instanced(index *JoinedTableIndex) string {
	if index != nil {
		return fmt.Sprintf("%s%s", t.Table.Name, index.String())
	}
	return t.Table.Name
}

// InstancedWithSchema renders "database.table AS alias" for use in a
// FROM or JOIN clause.
func (t ResolvedTable) InstancedWithSchema(index *JoinedTableIndex) string {
	return fmt.Sprintf("%s.%s AS %s", t.Instance.Info.DBName, t.Table.Name, t.Instanced(index))
}

// ResolvedJoin is one JOIN clause: a chain's destination table joined
// back to its parent chain's table on the relation's foreign key.
type ResolvedJoin struct {
	Length            int
	FromTable         ResolvedTable
	FromField         *catalog.Field
	FromInstanceIndex *JoinedTableIndex
	ToTable           ResolvedTable
	ToField           *catalog.Field
	ToInstanceIndex   *JoinedTableIndex
}

func (j ResolvedJoin) key() string {
	from := -1
	if j.FromInstanceIndex != nil {
		from = int(*j.FromInstanceIndex)
	}
	to := -1
	if j.ToInstanceIndex != nil {
		to = int(*j.ToInstanceIndex)
	}
	return fmt.Sprintf("%d.%d.%d.%d.%d.%d", j.FromTable.Table.ID, j.FromField.ID, from, j.ToTable.Table.ID, j.ToField.ID, to)
}

// AsSQL renders one JOIN clause.
func (j ResolvedJoin) AsSQL() string {
	return fmt.Sprintf(
		"JOIN %s ON (%s.%s = %s.%s)",
		j.ToTable.InstancedWithSchema(j.ToInstanceIndex),
		j.FromTable.Instanced(j.FromInstanceIndex),
		j.FromField.Name,
		j.ToTable.Instanced(j.ToInstanceIndex),
		j.ToField.Name,
	)
}

// ResolvedFilter is a leaf of a resolved filter tree: either a renderable
// predicate or an external subquery awaiting materialization.
type ResolvedFilter struct {
	ExternalSubquery *ResolvedSelect

	Table      ResolvedTable
	TableIndex *JoinedTableIndex
	Field      *catalog.Field
	Op         FilterOp
	Value      any
}

// ResolvedFilterTree mirrors FilterTree with every path/table name
// resolved to a concrete alias and field.
type ResolvedFilterTree interface {
	isResolvedFilterTree()
}

type ResolvedOr struct{ Left, Right ResolvedFilterTree }
type ResolvedAnd struct{ Children []ResolvedFilterTree }
type ResolvedPredicate struct{ Filter ResolvedFilter }

func (*ResolvedOr) isResolvedFilterTree()        {}
func (*ResolvedAnd) isResolvedFilterTree()       {}
func (*ResolvedPredicate) isResolvedFilterTree() {}

// renderFilterTree renders a resolved filter tree's WHERE-clause body (no
// leading "WHERE") and returns its bind values in left-to-right emission
// order. An unresolved external subquery anywhere in the tree fails the
// whole render with ErrUnfinished.
func renderFilterTree(t ResolvedFilterTree) (string, []any, error) {
	switch v := t.(type) {
	case *ResolvedOr:
		leftSQL, leftArgs, err := renderFilterTree(v.Left)
		if err != nil {
			return "", nil, err
		}
		rightSQL, rightArgs, err := renderFilterTree(v.Right)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("(%s OR %s)", leftSQL, rightSQL), append(leftArgs, rightArgs...), nil

	case *ResolvedAnd:
		parts := make([]string, 0, len(v.Children))
		var args []any
		for _, c := range v.Children {
			sql, a, err := renderFilterTree(c)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, sql)
			args = append(args, a...)
		}
		return strings.Join(parts, " AND "), args, nil

	case *ResolvedPredicate:
		f := v.Filter
		if f.ExternalSubquery != nil {
			return "", nil, dbrerr.ErrUnfinished
		}
		alias := f.Table.Instanced(f.TableIndex)
		sql := fmt.Sprintf("%s.%s %s ?", alias, f.Field.Name, f.Op.symbol())
		return sql, []any{f.Value}, nil

	default:
		return "", nil, fmt.Errorf("query: unknown resolved filter tree node %T", t)
	}
}

// ResolvedSelect is a Select with every name bound to a concrete table,
// field, instance, and join alias: everything needed to render SQL.
type ResolvedSelect struct {
	Fields       []*catalog.Field
	PrimaryTable ResolvedTable
	Joins        []ResolvedJoin
	Filters      ResolvedFilterTree
	Order        []resolvedOrder
	Limit        any
	hasLimit     bool
}

type resolvedOrder struct {
	Field     *catalog.Field
	Direction OrderDirection
}

// AsSQL renders the statement and its ordered bind vector. It fails with
// ErrUnfinished if any external subquery in the filter tree has not yet
// been materialized and substituted by the caller.
func (s *ResolvedSelect) AsSQL() (string, []any, error) {
	schemaTable := s.PrimaryTable.InstancedWithSchema(nil)
	table := s.PrimaryTable.Instanced(nil)

	fieldNames := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		fieldNames[i] = fmt.Sprintf("%s.%s", table, f.Name)
	}

	var whereSQL string
	var args []any
	if s.Filters != nil {
		filterSQL, filterArgs, err := renderFilterTree(s.Filters)
		if err != nil {
			return "", nil, err
		}
		whereSQL = "WHERE " + filterSQL
		args = append(args, filterArgs...)
	}

	joins := make([]ResolvedJoin, len(s.Joins))
	copy(joins, s.Joins)
	sort.SliceStable(joins, func(i, j int) bool { return joins[i].Length < joins[j].Length })
	joinSQL := make([]string, len(joins))
	for i, j := range joins {
		joinSQL[i] = j.AsSQL()
	}

	var orderSQL string
	if len(s.Order) > 0 {
		parts := make([]string, len(s.Order))
		for i, o := range s.Order {
			dir := ""
			switch o.Direction {
			case OrderAscending:
				dir = " ASC"
			case OrderDescending:
				dir = " DESC"
			}
			parts[i] = o.Field.Name + dir
		}
		orderSQL = "ORDER BY " + strings.Join(parts, ", ")
	}

	var limitSQL string
	if s.hasLimit {
		args = append(args, s.Limit)
		limitSQL = "LIMIT ?"
	}

	sql := strings.TrimSpace(fmt.Sprintf(
		"SELECT %s FROM %s %s %s %s %s",
		strings.Join(fieldNames, ", "),
		schemaTable,
		strings.Join(joinSQL, " "),
		whereSQL,
		orderSQL,
		limitSQL,
	))
	sql = strings.Join(strings.Fields(sql), " ")

	return sql, args, nil
}
