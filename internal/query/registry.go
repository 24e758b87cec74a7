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
)

// JoinedTableIndex disambiguates repeated uses of the same physical table
// within one resolved query (e.g. album1, album2).
type JoinedTableIndex int

func (i JoinedTableIndex) String() string {
	return fmt.Sprintf("%d", int(i))
}

// RelationChain is an ordered list of relation ids starting at a base
// table: the path a predicate's walk has taken so far. Two chains with
// the same base and the same relation sequence are the same chain.
type RelationChain struct {
	Base      catalog.TableID
	Relations []catalog.RelationID
}

// NewRelationChain starts an empty chain at base.
func NewRelationChain(base catalog.TableID) RelationChain {
	return RelationChain{Base: base}
}

// Push returns a new chain with relation appended.
func (c RelationChain) Push(relation catalog.RelationID) RelationChain {
	next := make([]catalog.RelationID, len(c.Relations)+1)
	copy(next, c.Relations)
	next[len(c.Relations)] = relation
	return RelationChain{Base: c.Base, Relations: next}
}

// Parent returns the chain without its last relation. Calling Parent on
// an empty chain returns the chain unchanged.
func (c RelationChain) Parent() RelationChain {
	if len(c.Relations) == 0 {
		return c
	}
	return RelationChain{Base: c.Base, Relations: c.Relations[:len(c.Relations)-1]}
}

// LastRelation returns the chain's final relation, or ok=false for an
// empty chain (the unextended base table).
func (c RelationChain) LastRelation() (id catalog.RelationID, ok bool) {
	if len(c.Relations) == 0 {
		return 0, false
	}
	return c.Relations[len(c.Relations)-1], true
}

// Len returns the number of relation hops in the chain.
func (c RelationChain) Len() int { return len(c.Relations) }

func (c RelationChain) key() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d", c.Base)
	for _, r := range c.Relations {
		fmt.Fprintf(&b, "/%d", r)
	}
	return b.String()
}

type registryEntry struct {
	chain     RelationChain
	prevIndex *JoinedTableIndex
	index     JoinedTableIndex
}

// TableRegistry assigns each distinct relation chain reached while
// resolving one Select a JoinedTableIndex, so that two paths reaching the
// same table get distinct aliases and two predicates sharing a chain
// prefix share that prefix's alias. The counter backing an index is keyed
// by the chain's last relation, not by its destination table, so two
// different relations into the same table get independent counters while
// repeated traversal of the same relation reuses its alias.
type TableRegistry struct {
	entries  map[string]registryEntry
	order    []RelationChain
	counters map[catalog.RelationID]int
}

// NewTableRegistry returns an empty registry.
func NewTableRegistry() *TableRegistry {
	return &TableRegistry{
		entries:  make(map[string]registryEntry),
		counters: make(map[catalog.RelationID]int),
	}
}

// Add registers chain (a non-empty relation chain) if not already
// present, and returns the previous chain's index (nil when chain has
// length 1, i.e. its parent is the unaliased base table) and this
// chain's own index.
func (r *TableRegistry) Add(chain RelationChain) (prevIndex *JoinedTableIndex, index JoinedTableIndex, err error) {
	key := chain.key()
	if e, ok := r.entries[key]; ok {
		return e.prevIndex, e.index, nil
	}

	lastRelation, ok := chain.LastRelation()
	if !ok {
		return nil, 0, fmt.Errorf("table registry: cannot assign an alias to the unextended base table")
	}

	if pe, ok := r.entries[chain.Parent().key()]; ok {
		idx := pe.index
		prevIndex = &idx
	}

	r.counters[lastRelation]++
	index = JoinedTableIndex(r.counters[lastRelation])

	r.entries[key] = registryEntry{chain: chain, prevIndex: prevIndex, index: index}
	r.order = append(r.order, chain)
	return prevIndex, index, nil
}

// RegisteredChain is one entry of TableInstances: a chain plus the
// aliases of its two endpoints.
type RegisteredChain struct {
	Chain     RelationChain
	FromIndex *JoinedTableIndex
	ToIndex   JoinedTableIndex
}

// TableInstances returns every chain registered during resolution,
// sorted by ascending chain length (ties keep registration order) so
// that parent joins are emitted before the children that depend on their
// alias.
func (r *TableRegistry) TableInstances() []RegisteredChain {
	out := make([]RegisteredChain, 0, len(r.order))
	for _, chain := range r.order {
		e := r.entries[chain.key()]
		out = append(out, RegisteredChain{Chain: chain, FromIndex: e.prevIndex, ToIndex: e.index})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Chain.Len() < out[j].Chain.Len()
	})
	return out
}
