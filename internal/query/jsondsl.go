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
	"encoding/json"
	"fmt"

	"github.com/gudtech/dbr/internal/catalog"
)

// jsonFilter is the wire shape of a FilterTree node, discriminated by
// Type. It exists so the resolve CLI subcommand can accept a query as a
// flat JSON document instead of requiring a Go caller to build the AST by
// hand.
type jsonFilter struct {
	Type      string       `json:"type"`
	Children  []jsonFilter `json:"children,omitempty"`
	Left      *jsonFilter  `json:"left,omitempty"`
	Right     *jsonFilter  `json:"right,omitempty"`
	Relations []string     `json:"relations,omitempty"`
	Field     string       `json:"field,omitempty"`
	Op        string       `json:"op,omitempty"`
	Value     any          `json:"value,omitempty"`
}

type jsonOrder struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

// JSONSelect is the wire shape of a Select.
type JSONSelect struct {
	Table  int64       `json:"table"`
	Fields []int64     `json:"fields"`
	Filter *jsonFilter `json:"filter,omitempty"`
	Order  []jsonOrder `json:"order,omitempty"`
	Limit  any         `json:"limit,omitempty"`
}

// DecodeSelect parses a JSONSelect document into a *Select.
func DecodeSelect(data []byte) (*Select, error) {
	var js JSONSelect
	if err := json.Unmarshal(data, &js); err != nil {
		return nil, fmt.Errorf("decoding select: %w", err)
	}

	sel := NewSelect(catalog.TableID(js.Table))
	for _, f := range js.Fields {
		sel.Fields = append(sel.Fields, catalog.FieldID(f))
	}
	for _, o := range js.Order {
		dir, err := parseOrderDirection(o.Direction)
		if err != nil {
			return nil, err
		}
		sel.Order = append(sel.Order, OrderField{FieldName: o.Field, Direction: dir})
	}
	sel.Limit = js.Limit

	if js.Filter != nil {
		tree, err := js.Filter.toFilterTree(sel.PrimaryTable)
		if err != nil {
			return nil, err
		}
		sel.Filters = tree
	}
	return sel, nil
}

func (jf *jsonFilter) toFilterTree(base catalog.TableID) (FilterTree, error) {
	switch jf.Type {
	case "and":
		children := make([]FilterTree, 0, len(jf.Children))
		for i := range jf.Children {
			c, err := jf.Children[i].toFilterTree(base)
			if err != nil {
				return nil, err
			}
			children = append(children, c)
		}
		return &AndFilter{Children: children}, nil
	case "or":
		if jf.Left == nil || jf.Right == nil {
			return nil, fmt.Errorf("or filter requires both left and right")
		}
		left, err := jf.Left.toFilterTree(base)
		if err != nil {
			return nil, err
		}
		right, err := jf.Right.toFilterTree(base)
		if err != nil {
			return nil, err
		}
		return &OrFilter{Left: left, Right: right}, nil
	case "predicate", "":
		op, err := parseFilterOp(jf.Op)
		if err != nil {
			return nil, err
		}
		return &PredicateFilter{Predicate: FilterPredicate{
			Path:  RelationPath{Base: base, Relations: jf.Relations, Field: jf.Field},
			Op:    op,
			Value: jf.Value,
		}}, nil
	default:
		return nil, fmt.Errorf("unknown filter type %q", jf.Type)
	}
}

func parseFilterOp(s string) (FilterOp, error) {
	switch s {
	case "eq", "":
		return OpEq, nil
	case "neq":
		return OpNotEq, nil
	case "like":
		return OpLike, nil
	case "notlike":
		return OpNotLike, nil
	default:
		return 0, fmt.Errorf("unknown filter op %q", s)
	}
}

func parseOrderDirection(s string) (OrderDirection, error) {
	switch s {
	case "", "unspecified":
		return OrderUnspecified, nil
	case "asc":
		return OrderAscending, nil
	case "desc":
		return OrderDescending, nil
	default:
		return 0, fmt.Errorf("unknown order direction %q", s)
	}
}
