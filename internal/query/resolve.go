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

	"github.com/gudtech/dbr/internal/catalog"
	"github.com/gudtech/dbr/internal/dbrcontext"
	"github.com/gudtech/dbr/internal/dbrerr"
)

// Resolve lowers s into a ResolvedSelect against ctx: every relation hop
// in s.Filters is walked, extending the join-alias registry for
// colocated hops and recursing into an external subquery at the first
// non-colocated one.
func (s *Select) Resolve(ctx *dbrcontext.Context) (*ResolvedSelect, error) {
	table, err := ctx.Catalog.LookupTable(s.PrimaryTable)
	if err != nil {
		return nil, err
	}
	resolvedTable, err := resolveTable(ctx, table)
	if err != nil {
		return nil, err
	}

	resolvedFields := make([]*catalog.Field, 0, len(s.Fields))
	for _, fieldID := range s.Fields {
		field, err := ctx.Catalog.LookupField(fieldID)
		if err != nil {
			return nil, err
		}
		resolvedFields = append(resolvedFields, field)
	}

	registry := NewTableRegistry()

	var resolvedFilters ResolvedFilterTree
	if s.Filters != nil {
		resolvedFilters, err = resolveFilterTree(ctx, s.Filters, table.ID, registry)
		if err != nil {
			return nil, err
		}
	}

	var joins []ResolvedJoin
	seen := make(map[string]bool)
	for _, rc := range registry.TableInstances() {
		relationID, ok := rc.Chain.LastRelation()
		if !ok {
			continue
		}
		relation, err := ctx.Catalog.LookupRelation(relationID)
		if err != nil {
			return nil, err
		}
		fromTable, err := ctx.Catalog.LookupTable(relation.FromTableID)
		if err != nil {
			return nil, err
		}
		fromField, err := ctx.Catalog.LookupField(relation.FromFieldID)
		if err != nil {
			return nil, err
		}
		toTable, err := ctx.Catalog.LookupTable(relation.ToTableID)
		if err != nil {
			return nil, err
		}
		toField, err := ctx.Catalog.LookupField(relation.ToFieldID)
		if err != nil {
			return nil, err
		}

		resolvedFrom, err := resolveTable(ctx, fromTable)
		if err != nil {
			return nil, err
		}
		resolvedTo, err := resolveTable(ctx, toTable)
		if err != nil {
			return nil, err
		}

		toIndex := rc.ToIndex
		join := ResolvedJoin{
			Length:            rc.Chain.Len(),
			FromTable:         resolvedFrom,
			FromField:         fromField,
			FromInstanceIndex: rc.FromIndex,
			ToTable:           resolvedTo,
			ToField:           toField,
			ToInstanceIndex:   &toIndex,
		}
		if !seen[join.key()] {
			seen[join.key()] = true
			joins = append(joins, join)
		}
	}

	var resolvedOrders []resolvedOrder
	for _, o := range s.Order {
		fieldID, err := table.LookupField(o.FieldName)
		if err != nil {
			return nil, err
		}
		field, err := ctx.Catalog.LookupField(fieldID)
		if err != nil {
			return nil, err
		}
		resolvedOrders = append(resolvedOrders, resolvedOrder{Field: field, Direction: o.Direction})
	}

	return &ResolvedSelect{
		Fields:       resolvedFields,
		PrimaryTable: resolvedTable,
		Joins:        joins,
		Filters:      resolvedFilters,
		Order:        resolvedOrders,
		Limit:        s.Limit,
		hasLimit:     s.Limit != nil,
	}, nil
}

func resolveFilterTree(ctx *dbrcontext.Context, t FilterTree, baseTableID catalog.TableID, registry *TableRegistry) (ResolvedFilterTree, error) {
	switch v := t.(type) {
	case *OrFilter:
		left, err := resolveFilterTree(ctx, v.Left, baseTableID, registry)
		if err != nil {
			return nil, err
		}
		right, err := resolveFilterTree(ctx, v.Right, baseTableID, registry)
		if err != nil {
			return nil, err
		}
		return &ResolvedOr{Left: left, Right: right}, nil

	case *AndFilter:
		children := make([]ResolvedFilterTree, 0, len(v.Children))
		for _, c := range v.Children {
			rc, err := resolveFilterTree(ctx, c, baseTableID, registry)
			if err != nil {
				return nil, err
			}
			children = append(children, rc)
		}
		return &ResolvedAnd{Children: children}, nil

	case *PredicateFilter:
		return resolvePredicate(ctx, v.Predicate, baseTableID, registry)

	default:
		return nil, fmt.Errorf("query: unknown filter tree node %T", t)
	}
}

func resolvePredicate(ctx *dbrcontext.Context, pred FilterPredicate, baseTableID catalog.TableID, registry *TableRegistry) (ResolvedFilterTree, error) {
	currentChain := NewRelationChain(baseTableID)

	fromTable, err := ctx.Catalog.LookupTable(baseTableID)
	if err != nil {
		return nil, err
	}

	var lastTableIndex *JoinedTableIndex

	for i, toTableName := range pred.Path.Relations {
		relation, err := ctx.Catalog.FindRelation(fromTable, toTableName)
		if err != nil {
			return nil, err
		}

		toTable, err := ctx.Catalog.LookupTable(relation.ToTableID)
		if err != nil {
			return nil, err
		}

		colocated, err := ctx.IsColocated(relation)
		if err != nil {
			return nil, err
		}

		if colocated {
			currentChain = currentChain.Push(relation.ID)
			_, toIndex, err := registry.Add(currentChain)
			if err != nil {
				return nil, err
			}
			idx := toIndex
			lastTableIndex = &idx
			fromTable = toTable
			continue
		}

		primaryKey := toTable.PrimaryKey
		if primaryKey == nil {
			return nil, fmt.Errorf("resolving subquery on table %q: %w", toTable.Name, dbrerr.ErrUnsupportedPK)
		}

		subquery := NewSelect(toTable.ID)
		subquery.Fields = []catalog.FieldID{*primaryKey}
		subquery.Filters = &PredicateFilter{Predicate: FilterPredicate{
			Path: RelationPath{
				Base:      toTable.ID,
				Relations: append([]string(nil), pred.Path.Relations[i+1:]...),
				Field:     pred.Path.Field,
			},
			Op:    pred.Op,
			Value: pred.Value,
		}}

		resolvedSubquery, err := subquery.Resolve(ctx)
		if err != nil {
			return nil, err
		}
		return &ResolvedPredicate{Filter: ResolvedFilter{ExternalSubquery: resolvedSubquery}}, nil
	}

	fieldID, err := fromTable.LookupField(pred.Path.Field)
	if err != nil {
		return nil, err
	}
	field, err := ctx.Catalog.LookupField(fieldID)
	if err != nil {
		return nil, err
	}
	resolvedTable, err := resolveTable(ctx, fromTable)
	if err != nil {
		return nil, err
	}

	return &ResolvedPredicate{Filter: ResolvedFilter{
		Table:      resolvedTable,
		TableIndex: lastTableIndex,
		Field:      field,
		Op:         pred.Op,
		Value:      pred.Value,
	}}, nil
}
