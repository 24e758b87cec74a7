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

import "github.com/gudtech/dbr/internal/recordcache"

// Instance is a live handle to one physical database: its static Info,
// its dedicated weak-valued record cache, and the pool used to reach it.
// Every Instance owns exactly one Cache, so two Active[T] handles for the
// same (T, id) fetched through the same Instance always share a slot;
// fetching the same row through two different Instances (e.g. a tenant's
// dedicated instance and the common fallback) does not.
type Instance struct {
	Info  Info
	Cache *recordcache.Cache
	Pool  Pool
}

// New wraps an already-dialed pool with a fresh cache.
func New(info Info, pool Pool) *Instance {
	return &Instance{Info: info, Cache: recordcache.New(), Pool: pool}
}

// Close releases the instance's pool.
func (i *Instance) Close() error {
	return i.Pool.Close()
}
