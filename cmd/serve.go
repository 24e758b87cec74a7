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

package cmd

import (
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	_ "github.com/go-sql-driver/mysql"

	"github.com/gudtech/dbr/internal/catalog"
	"github.com/gudtech/dbr/internal/config"
	"github.com/gudtech/dbr/internal/server"
)

type serveFlags struct {
	address string
	port    int
}

func newServeCommand(root *Command) *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "dial every configured instance and serve the admin HTTP surface",
		RunE: func(c *cobra.Command, args []string) error {
			return runServe(c, root, flags)
		},
	}
	cmd.Flags().StringVarP(&flags.address, "address", "a", "127.0.0.1", "address to bind the admin HTTP surface to")
	cmd.Flags().IntVarP(&flags.port, "port", "p", 5454, "port to bind the admin HTTP surface to")
	return cmd
}

func runServe(c *cobra.Command, root *Command, flags serveFlags) error {
	ctx := c.Context()
	logger, err := root.setup(c.OutOrStdout(), c.ErrOrStderr())
	if err != nil {
		return err
	}

	cfg, err := config.Load(root.cfg.InstancesFile)
	if err != nil {
		return fmt.Errorf("loading instance catalog: %w", err)
	}

	registry, err := config.BuildRegistry(ctx, cfg)
	if err != nil {
		return fmt.Errorf("dialing instances: %w", err)
	}

	if root.cfg.MetadataDSN == "" {
		return fmt.Errorf("--metadata-dsn is required to load the schema/table/field/relation catalog")
	}
	metadataDB, err := sqlx.ConnectContext(ctx, "mysql", root.cfg.MetadataDSN)
	if err != nil {
		return fmt.Errorf("connecting to metadata database: %w", err)
	}
	defer metadataDB.Close()

	cat, err := catalog.Load(ctx, metadataDB)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	live := catalog.NewLive(cat)

	watcher, err := config.Watch(root.cfg.InstancesFile, logger, func(*config.Config) {
		logger.InfoContext(ctx, "instance catalog file changed; restart to pick up new instances")
	})
	if err != nil {
		logger.WarnContext(ctx, "instance catalog watch disabled", "error", err)
	} else {
		defer watcher.Close()
	}

	srv := server.NewServer("dev", logger, live, registry)
	addr := fmt.Sprintf("%s:%d", flags.address, flags.port)
	logger.InfoContext(ctx, "admin HTTP surface listening", "address", addr)

	return http.ListenAndServe(addr, server.Router(srv))
}
