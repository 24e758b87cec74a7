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

// Package query is the compact query DSL's AST plus the resolver that
// lowers it to SQL: given a Select rooted at a table and a dbrcontext
// describing which instance owns which schema, Resolve decides, hop by
// hop, whether a named relation compiles to a JOIN or a correlated
// subquery, and As SQL renders the result as a positional-placeholder
// statement with its ordered bind vector.
package query

import "github.com/gudtech/dbr/internal/catalog"

// OrderDirection is a column's sort direction in a Select's ORDER BY.
type OrderDirection int

const (
	OrderUnspecified OrderDirection = iota
	OrderAscending
	OrderDescending
)

// FilterOp is a predicate's comparison operator.
type FilterOp int

const (
	OpEq FilterOp = iota
	OpNotEq
	OpLike
	OpNotLike
)

func (op FilterOp) symbol() string {
	switch op {
	case OpEq:
		return "="
	case OpNotEq:
		return "!="
	case OpLike:
		return "LIKE"
	case OpNotLike:
		return "NOT LIKE"
	default:
		return "="
	}
}

// RelationPath names a field reached by following zero or more named
// relations starting from a base table: "starting from Base, follow each
// entry of Relations in turn, then read Field on the final table".
type RelationPath struct {
	Base      catalog.TableID
	Relations []string
	Field     string
}

// FilterPredicate is one leaf comparison in a filter tree.
type FilterPredicate struct {
	Path  RelationPath
	Op    FilterOp
	Value any
}

// FilterTree is And/Or/Predicate, exactly as spec'd: Or never flattens,
// And flattens one level, Predicate is a leaf.
type FilterTree interface {
	isFilterTree()
}

// OrFilter is a binary disjunction. Never produced by Reduce from an And.
type OrFilter struct {
	Left, Right FilterTree
}

// AndFilter is an n-ary conjunction.
type AndFilter struct {
	Children []FilterTree
}

// PredicateFilter wraps a single leaf predicate.
type PredicateFilter struct {
	Predicate FilterPredicate
}

func (*OrFilter) isFilterTree()        {}
func (*AndFilter) isFilterTree()       {}
func (*PredicateFilter) isFilterTree() {}

// Reduce canonicalizes a filter tree: And([]) collapses to nil, And([x])
// collapses to reduce(x), nested And is flattened one level, Or is a
// fixed point (never flattened, since distribution would change
// semantics), and Predicate is a fixed point. Reduce is idempotent and
// semantics-preserving: reduce(reduce(f)) == reduce(f) for every f, and
// the rows matching f are exactly the rows matching reduce(f).
func Reduce(t FilterTree) FilterTree {
	switch v := t.(type) {
	case nil:
		return nil
	case *OrFilter:
		return v
	case *AndFilter:
		switch len(v.Children) {
		case 0:
			return nil
		case 1:
			return Reduce(v.Children[0])
		default:
			var children []FilterTree
			for _, c := range v.Children {
				rc := Reduce(c)
				if rc == nil {
					continue
				}
				if ac, ok := rc.(*AndFilter); ok {
					children = append(children, ac.Children...)
				} else {
					children = append(children, rc)
				}
			}
			switch len(children) {
			case 0:
				return nil
			case 1:
				return children[0]
			}
			return &AndFilter{Children: children}
		}
	default:
		return t
	}
}

// OrderField is one ORDER BY entry, resolved against the Select's base
// table only (cross-table ordering is out of scope).
type OrderField struct {
	FieldName string
	Direction OrderDirection
}

// Select is the unresolved query: a set of fields off a primary table,
// an optional filter tree, ordering, and a limit bind value.
type Select struct {
	Fields       []catalog.FieldID
	PrimaryTable catalog.TableID
	Filters      FilterTree
	Order        []OrderField
	Limit        any
}

// NewSelect returns an empty Select rooted at table.
func NewSelect(table catalog.TableID) *Select {
	return &Select{PrimaryTable: table}
}

// CanBeSubquery reports whether this Select could serve as a correlated
// subquery: exactly one selected field. The resolver always constructs
// subqueries this way (selecting the child table's primary key) but the
// guard is exposed so callers building their own nested Selects can
// check it before handing one to Resolve in a predicate position.
func (s *Select) CanBeSubquery() bool {
	return len(s.Fields) == 1
}
