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

package instance_test

import (
	"errors"
	"testing"

	"github.com/gudtech/dbr/internal/dbrerr"
	"github.com/gudtech/dbr/internal/instance"
)

func tag(s string) *string { return &s }

// TestLookupByHandleFallsBackToCommonInstance covers the no-tag-match fallback.
func TestLookupByHandleFallsBackToCommonInstance(t *testing.T) {
	reg := instance.NewRegistry()
	common := instance.New(instance.Info{ID: 1, Handle: "ops"}, nil)
	reg.Insert(common)

	got, err := reg.LookupByHandle("ops", tag("c1"))
	if err != nil {
		t.Fatalf("LookupByHandle: %v", err)
	}
	if got != common {
		t.Error("LookupByHandle did not fall back to the common instance")
	}
}

func TestLookupByHandlePrefersTaggedInstance(t *testing.T) {
	reg := instance.NewRegistry()
	common := instance.New(instance.Info{ID: 1, Handle: "ops"}, nil)
	tagged := instance.New(instance.Info{ID: 2, Handle: "ops", Tag: tag("c1")}, nil)
	reg.Insert(common)
	reg.Insert(tagged)

	got, err := reg.LookupByHandle("ops", tag("c1"))
	if err != nil {
		t.Fatalf("LookupByHandle: %v", err)
	}
	if got != tagged {
		t.Error("LookupByHandle did not prefer the tenant-specific instance over the common one")
	}
}

func TestLookupByHandleWithNoCommonAndNoTagMatchIsMissing(t *testing.T) {
	reg := instance.NewRegistry()
	tagged := instance.New(instance.Info{ID: 1, Handle: "ops", Tag: tag("c1")}, nil)
	reg.Insert(tagged)

	_, err := reg.LookupByHandle("ops", tag("c2"))
	var missing *dbrerr.MissingInstance
	if !errors.As(err, &missing) {
		t.Fatalf("LookupByHandle error = %v, want *dbrerr.MissingInstance", err)
	}
	if missing.Handle != "ops" || missing.Tag != "c2" {
		t.Errorf("missing = %+v, want Handle=ops Tag=c2", missing)
	}
}

func TestColocatedComparesModuleUserPasswordHostNotDBName(t *testing.T) {
	a := instance.Info{Module: instance.ModuleMySQL, User: "u", Password: "p", Host: "h", DBName: "db1"}
	b := instance.Info{Module: instance.ModuleMySQL, User: "u", Password: "p", Host: "h", DBName: "db2"}
	c := instance.Info{Module: instance.ModuleMySQL, User: "u", Password: "p", Host: "other-host", DBName: "db1"}

	if !a.Colocated(b) {
		t.Error("instances with identical (module,user,password,host) but different dbname should be colocated")
	}
	if a.Colocated(c) {
		t.Error("instances with different host should not be colocated")
	}
}
