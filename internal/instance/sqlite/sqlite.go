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

// Package sqlite opens a sqlite-family instance, addressed by
// DatabaseFile rather than host/credentials, and adapts *sql.DB to
// instance.Pool.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/gudtech/dbr/internal/instance"
)

// Open opens the sqlite file named by info.DatabaseFile. Unlike the
// network-backed drivers, there is no dial to retry: a missing or
// unreadable file fails immediately.
func Open(ctx context.Context, info instance.Info) (instance.Pool, error) {
	if info.DatabaseFile == nil {
		return nil, fmt.Errorf("sqlite instance %q: missing database file", info.Handle)
	}

	dsn := *info.DatabaseFile
	if info.ReadOnly {
		dsn += "?mode=ro"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to open sqlite instance %q: %w", info.Handle, err)
	}

	return &pool{db: db}, nil
}

type pool struct {
	db *sql.DB
}

func (p *pool) QueryContext(ctx context.Context, query string, args ...any) (instance.Rows, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (p *pool) ExecContext(ctx context.Context, query string, args ...any) error {
	_, err := p.db.ExecContext(ctx, query, args...)
	return err
}

func (p *pool) PingContext(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *pool) Close() error {
	return p.db.Close()
}
