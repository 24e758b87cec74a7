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

// Package server is the admin HTTP surface: health checks and debug
// introspection over the running catalog, instance registry, and record
// caches. It carries no query-serving routes of its own — resolving and
// issuing queries is a library operation (see internal/query), not a
// network one.
package server

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"

	"github.com/gudtech/dbr/internal/catalog"
	"github.com/gudtech/dbr/internal/instance"
	"github.com/gudtech/dbr/internal/log"
)

// Server holds the shared, already-built state the admin routes report on.
type Server struct {
	Version  string
	Logger   log.Logger
	Catalog  *catalog.Live
	Registry *instance.Registry

	// caches lists every instance's record cache, for /debug/cache. Built
	// once by NewServer from Registry; instances inserted into the registry
	// afterwards do not appear here.
	caches []namedCache
}

type namedCache struct {
	handle string
	tag    string
	cache  *instance.Instance
}

// NewServer builds a Server and snapshots the registry's current
// instances for /debug/cache.
func NewServer(version string, logger log.Logger, live *catalog.Live, registry *instance.Registry) *Server {
	s := &Server{Version: version, Logger: logger, Catalog: live, Registry: registry}
	for _, inst := range registry.All() {
		tag := ""
		if inst.Info.Tag != nil {
			tag = *inst.Info.Tag
		}
		s.caches = append(s.caches, namedCache{handle: inst.Info.Handle, tag: tag, cache: inst})
	}
	return s
}

// Router builds the chi router exposing the admin surface.
func Router(s *Server) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.StripSlashes)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/debug/metadata", s.handleDebugMetadata)
	r.Get("/debug/cache", s.handleDebugCache)

	return r
}

type healthzResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, healthzResponse{Status: "ok", Version: s.Version})
}

type metadataResponse struct {
	Schemas   int `json:"schemas"`
	Tables    int `json:"tables"`
	Fields    int `json:"fields"`
	Relations int `json:"relations"`
}

func (s *Server) handleDebugMetadata(w http.ResponseWriter, r *http.Request) {
	cat := s.Catalog.Get()
	render.JSON(w, r, metadataResponse{
		Schemas:   len(cat.Schemas),
		Tables:    len(cat.Tables),
		Fields:    len(cat.Fields),
		Relations: len(cat.Relations),
	})
}

type cacheTypeStats struct {
	Type  string `json:"type"`
	Total int    `json:"total"`
	Live  int    `json:"live"`
}

type instanceCacheStats struct {
	InstanceID int64            `json:"instance_id"`
	Handle     string           `json:"handle"`
	Types      []cacheTypeStats `json:"types"`
}

func (s *Server) handleDebugCache(w http.ResponseWriter, r *http.Request) {
	out := make([]instanceCacheStats, 0, len(s.caches))
	for _, nc := range s.caches {
		entry := instanceCacheStats{
			InstanceID: int64(nc.cache.Info.ID),
			Handle:     nc.handle,
		}
		for _, st := range nc.cache.Cache.Stats() {
			entry.Types = append(entry.Types, cacheTypeStats{Type: st.TypeName, Total: st.Total, Live: st.Live})
		}
		sort.Slice(entry.Types, func(i, j int) bool { return entry.Types[i].Type < entry.Types[j].Type })
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InstanceID < out[j].InstanceID })
	render.JSON(w, r, out)
}
