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

// Package postgres dials a postgres-family instance via pgxpool,
// following the DSN shape of the yugabytedb source, and adapts
// pgxpool.Pool to instance.Pool.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gudtech/dbr/internal/instance"
)

// Open dials a postgres instance described by info, retrying the initial
// ping with bounded exponential backoff.
func Open(ctx context.Context, info instance.Info) (instance.Pool, error) {
	uri := fmt.Sprintf("postgres://%s:%s@%s/%s", info.User, info.Password, info.Host, info.DBName)

	db, err := pgxpool.New(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	op := func() (struct{}, error) {
		if err := db.Ping(ctx); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	}
	if _, err := backoff.Retry(ctx, op,
		backoff.WithMaxElapsedTime(30*time.Second),
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to connect to postgres instance %q: %w", info.Handle, err)
	}

	return &pool{db: db}, nil
}

type pool struct {
	db *pgxpool.Pool
}

func (p *pool) QueryContext(ctx context.Context, query string, args ...any) (instance.Rows, error) {
	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &rowsAdapter{rows: rows}, nil
}

func (p *pool) ExecContext(ctx context.Context, query string, args ...any) error {
	_, err := p.db.Exec(ctx, query, args...)
	return err
}

func (p *pool) PingContext(ctx context.Context) error {
	return p.db.Ping(ctx)
}

func (p *pool) Close() error {
	p.db.Close()
	return nil
}

// rowsAdapter narrows pgx.Rows to instance.Rows: Close loses its
// (nothing-returning) signature and Columns maps field descriptions down
// to bare names, matching what database/sql's *sql.Rows.Columns reports.
type rowsAdapter struct {
	rows pgx.Rows
}

func (a *rowsAdapter) Next() bool             { return a.rows.Next() }
func (a *rowsAdapter) Scan(dest ...any) error { return a.rows.Scan(dest...) }
func (a *rowsAdapter) Err() error             { return a.rows.Err() }
func (a *rowsAdapter) Close() error {
	a.rows.Close()
	return nil
}
func (a *rowsAdapter) Columns() ([]string, error) {
	fds := a.rows.FieldDescriptions()
	cols := make([]string, len(fds))
	for i, fd := range fds {
		cols[i] = fd.Name
	}
	return cols, nil
}
