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

// Package recordcache is the per-instance, per-record-type cache that
// deduplicates "active" records by primary key: at most one live
// RecordMetadata[T] slot exists per (T, id) at any time, and it is held
// only weakly by the cache — strong references live exclusively in the
// active-record handles built on top of a Slot (see internal/active).
//
// The top-level type-indexed map is guarded by a single reader-writer
// lock; each Slot has its own mutex, and no code in this package ever
// holds both at once across anything that could block.
package recordcache

import (
	"reflect"
	"sync"
	"weak"

	"github.com/gudtech/dbr/internal/dbrerr"
)

// Slot is the cached interior of one record: its data plus a logical
// update counter bumped on every overwrite. It is the Go analogue of the
// original's RecordMetadata<T> { update_time, data }.
type Slot[T any] struct {
	mu         sync.Mutex
	updateTime uint64
	data       T
}

func newSlot[T any](data T) *Slot[T] {
	return &Slot[T]{data: data}
}

// Snapshot returns a lock-scoped copy of the current data.
func (s *Slot[T]) Snapshot() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// UpdateTime returns the slot's logical update counter.
func (s *Slot[T]) UpdateTime() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateTime
}

// Replace atomically overwrites the slot's data, bumping UpdateTime. Every
// Active[T] handle sharing this slot observes the new value on its next
// Snapshot call.
func (s *Slot[T]) Replace(data T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	s.updateTime++
}

// Mutate locks the slot and runs fn against a pointer to its data,
// bumping UpdateTime once fn returns without error. Used by partial-update
// application, which must read-modify-write under a single lock instead of
// racing a Snapshot/Replace pair.
func (s *Slot[T]) Mutate(fn func(*T) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fn(&s.data); err != nil {
		return err
	}
	s.updateTime++
	return nil
}

// store is the per-type map: id -> weak(Slot[T]). Strong references exist
// only inside the Active[T] handles callers hold; once the last one drops,
// the weak pointer goes dangling and is replaced (not evicted) on the next
// Insert.
type store[T any] struct {
	mu      sync.RWMutex
	records map[int64]weak.Pointer[Slot[T]]
}

func newStore[T any]() *store[T] {
	return &store[T]{records: make(map[int64]weak.Pointer[Slot[T]])}
}

// Cache is the type-indexed container: one store[T] per distinct record
// type T, created lazily on first use. This mirrors the original's
// TypeId-keyed HashMap<TypeId, Box<dyn Any>>.
type Cache struct {
	mu     sync.RWMutex
	stores map[reflect.Type]any
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{stores: make(map[reflect.Type]any)}
}

func storeFor[T any](c *Cache) *store[T] {
	key := reflect.TypeFor[T]()

	c.mu.RLock()
	if s, ok := c.stores[key]; ok {
		c.mu.RUnlock()
		return s.(*store[T])
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.stores[key]; ok {
		return s.(*store[T])
	}
	s := newStore[T]()
	c.stores[key] = s
	return s
}

// Insert records value under id. If no live slot exists for (T, id) yet, a
// fresh one is allocated and returned. If a live slot already exists, its
// interior is overwritten in place (so every existing Active[T] view of
// that slot observes the new value) and the same slot is returned.
func Insert[T any](c *Cache, id int64, value T) *Slot[T] {
	s := storeFor[T](c)

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[id]; ok {
		if slot := existing.Value(); slot != nil {
			slot.Replace(value)
			return slot
		}
	}

	slot := newSlot(value)
	s.records[id] = weak.Make(slot)
	return slot
}

// Lookup upgrades the weak reference for (T, id). It never implicitly
// fetches from a database; a miss is reported as RecordNotFetched.
func Lookup[T any](c *Cache, id int64) (*Slot[T], error) {
	s := storeFor[T](c)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if existing, ok := s.records[id]; ok {
		if slot := existing.Value(); slot != nil {
			return slot, nil
		}
	}
	return nil, &dbrerr.RecordNotFetched{ID: id}
}

// TypeStats reports the slot counts for one record type, for the debug
// HTTP surface.
type TypeStats struct {
	TypeName string
	Total    int // entries still present in the map, live or dangling
	Live     int // entries whose weak pointer still upgrades
}

// statser is implemented by every store[T]; Stats type-asserts to it so it
// can summarize a Cache without knowing any of its element types.
type statser interface {
	stats() (total, live int)
}

func (s *store[T]) stats() (total, live int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total = len(s.records)
	for _, ref := range s.records {
		if ref.Value() != nil {
			live++
		}
	}
	return total, live
}

// Stats returns per-type slot counts across every store the cache has
// lazily created.
func (c *Cache) Stats() []TypeStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]TypeStats, 0, len(c.stores))
	for typ, s := range c.stores {
		total, live := s.(statser).stats()
		out = append(out, TypeStats{TypeName: typ.String(), Total: total, Live: live})
	}
	return out
}
