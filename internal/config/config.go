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

// Package config decodes and validates the on-disk instance catalog: the
// list of physical database instances a process should dial, one entry
// per dbr_instances row, using the same yaml-tagged, validator-tagged
// Config-struct shape used elsewhere in this codebase for one struct per
// plugin kind, generalized here into one struct covering the three
// backends this module knows how to dial (mysql, sqlite, postgres).
package config

import (
	"fmt"
	"io"
	"os"

	yaml "github.com/goccy/go-yaml"
	"github.com/go-playground/validator/v10"

	"github.com/gudtech/dbr/internal/catalog"
	"github.com/gudtech/dbr/internal/instance"
)

// InstanceConfig is one dbr_instances row as it appears in the on-disk
// catalog file.
type InstanceConfig struct {
	ID       int64   `yaml:"id" validate:"required"`
	Module   string  `yaml:"module" validate:"required,oneof=mysql sqlite postgres"`
	Handle   string  `yaml:"handle" validate:"required"`
	Class    string  `yaml:"class"`
	Tag      *string `yaml:"tag"`
	SchemaID int64   `yaml:"schemaId" validate:"required"`

	DBName   string `yaml:"dbname"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`

	// DatabaseFile is required for, and only meaningful to, module: sqlite.
	DatabaseFile *string `yaml:"databaseFile"`
	ReadOnly     bool    `yaml:"readOnly"`
}

// Config is the top-level instance-catalog document.
type Config struct {
	Instances []InstanceConfig `yaml:"instances" validate:"required,dive"`
}

// Load reads and validates the instance catalog at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening instance catalog %q: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses and validates an instance catalog document from r.
func Decode(r io.Reader) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decoding instance catalog: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid instance catalog: %w", err)
	}
	for _, ic := range cfg.Instances {
		if ic.Module == "sqlite" && ic.DatabaseFile == nil {
			return nil, fmt.Errorf("instance %q: module sqlite requires databaseFile", ic.Handle)
		}
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Info converts an on-disk row into the instance.Info the registry and
// dialers consume.
func (ic InstanceConfig) Info() instance.Info {
	return instance.Info{
		ID:           instance.ID(ic.ID),
		Module:       instance.ParseModule(ic.Module),
		Handle:       ic.Handle,
		Class:        ic.Class,
		Tag:          ic.Tag,
		SchemaID:     catalog.SchemaID(ic.SchemaID),
		DBName:       ic.DBName,
		User:         ic.User,
		Password:     ic.Password,
		Host:         ic.Host,
		DatabaseFile: ic.DatabaseFile,
		ReadOnly:     ic.ReadOnly,
	}
}
