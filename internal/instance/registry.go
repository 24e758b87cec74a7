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

package instance

import (
	"sync"

	"github.com/gudtech/dbr/internal/catalog"
	"github.com/gudtech/dbr/internal/dbrerr"
)

type handleTagKey struct {
	handle string
	tag    string
}

type schemaTagKey struct {
	schema catalog.SchemaID
	tag    string
}

// Registry is the process-wide map from (schema handle, tenant tag) to a
// live Instance. Lookup falls back from a tenant-specific entry to a
// common, untagged one exactly as rust-dbr's DbrInstances does: a tag that
// has no dedicated instance shares whatever instance was registered with
// no tag at all.
//
// Insert is only meant to be called while building the registry at
// startup (or during a catalog refresh). Insert takes the write lock and
// every lookup the read lock, so concurrent calls do not race.
type Registry struct {
	mu        sync.RWMutex
	instances map[ID]*Instance
	byHandle  map[handleTagKey]ID
	bySchema  map[schemaTagKey]ID
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		instances: make(map[ID]*Instance),
		byHandle:  make(map[handleTagKey]ID),
		bySchema:  make(map[schemaTagKey]ID),
	}
}

// Insert registers inst under its handle and schema, both with its own tag
// (if any) and, when tag is nil, as the common fallback for that
// handle/schema.
func (r *Registry) Insert(inst *Instance) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.instances[inst.Info.ID] = inst

	tag := ""
	if inst.Info.Tag != nil {
		tag = *inst.Info.Tag
	}
	r.byHandle[handleTagKey{handle: inst.Info.Handle, tag: tag}] = inst.Info.ID
	r.bySchema[schemaTagKey{schema: inst.Info.SchemaID, tag: tag}] = inst.Info.ID
}

// All returns every registered instance, in no particular order. Used by
// the admin HTTP surface to enumerate caches; not meant for lookup paths.
func (r *Registry) All() []*Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Instance, 0, len(r.instances))
	for _, inst := range r.instances {
		out = append(out, inst)
	}
	return out
}

// LookupByID returns the instance with the given id.
func (r *Registry) LookupByID(id ID) (*Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if inst, ok := r.instances[id]; ok {
		return inst, nil
	}
	return nil, &dbrerr.MissingInstance{ID: (*int64)(&id)}
}

// LookupByHandle resolves an instance by its dbr_instances.handle and an
// optional tenant tag, falling back to the common (untagged) instance for
// that handle when no tagged entry exists.
func (r *Registry) LookupByHandle(handle string, tag *string) (*Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	commonID, hasCommon := r.byHandle[handleTagKey{handle: handle}]

	if tag != nil {
		if id, ok := r.byHandle[handleTagKey{handle: handle, tag: *tag}]; ok {
			return r.instances[id], nil
		}
	}
	if hasCommon {
		return r.instances[commonID], nil
	}

	tagStr := ""
	if tag != nil {
		tagStr = *tag
	}
	return nil, &dbrerr.MissingInstance{Handle: handle, Tag: tagStr}
}

// LookupBySchema resolves an instance by the schema it hosts and an
// optional tenant tag, with the same common-instance fallback as
// LookupByHandle.
func (r *Registry) LookupBySchema(schemaID catalog.SchemaID, tag *string) (*Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	commonID, hasCommon := r.bySchema[schemaTagKey{schema: schemaID}]

	if tag != nil {
		if id, ok := r.bySchema[schemaTagKey{schema: schemaID, tag: *tag}]; ok {
			return r.instances[id], nil
		}
	}
	if hasCommon {
		return r.instances[commonID], nil
	}

	tagStr := ""
	if tag != nil {
		tagStr = *tag
	}
	return nil, &dbrerr.MissingInstance{Tag: tagStr}
}
