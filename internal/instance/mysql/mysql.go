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

// Package mysql dials a mysql-family instance and adapts *sql.DB to
// instance.Pool. DSN construction mirrors the singlestore source's
// pattern; retrying the initial dial mirrors the yugabytedb source's
// backoff-wrapped Ping.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	_ "github.com/go-sql-driver/mysql"

	"github.com/gudtech/dbr/internal/instance"
)

// Open dials a mysql instance described by info and returns it wrapped as
// an instance.Pool. It retries the initial ping with bounded exponential
// backoff so a pool created during process startup can ride out a
// database that hasn't finished coming up yet.
func Open(ctx context.Context, info instance.Info) (instance.Pool, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true", info.User, info.Password, info.Host, info.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}

	op := func() (struct{}, error) {
		if err := db.PingContext(ctx); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	}
	if _, err := backoff.Retry(ctx, op,
		backoff.WithMaxElapsedTime(30*time.Second),
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to connect to mysql instance %q: %w", info.Handle, err)
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
