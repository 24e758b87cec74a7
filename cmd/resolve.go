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
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	_ "github.com/go-sql-driver/mysql"

	"github.com/gudtech/dbr/internal/catalog"
	"github.com/gudtech/dbr/internal/config"
	"github.com/gudtech/dbr/internal/dbrcontext"
	"github.com/gudtech/dbr/internal/instance"
	"github.com/gudtech/dbr/internal/query"
)

type resolveFlags struct {
	queryFile string
	tenant    int64
	hasTenant bool
}

func newResolveCommand(root *Command) *cobra.Command {
	var flags resolveFlags

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "resolve a JSON-encoded select into SQL and bind values, without dialing any instance",
		RunE: func(c *cobra.Command, args []string) error {
			return runResolve(c, root, flags)
		},
	}
	cmd.Flags().StringVarP(&flags.queryFile, "query", "q", "-", "path to a JSON-encoded select, or - for stdin")
	cmd.Flags().Int64Var(&flags.tenant, "tenant", 0, "tenant id to resolve instance fallback for")
	return cmd
}

func runResolve(c *cobra.Command, root *Command, flags resolveFlags) error {
	ctx := c.Context()
	if _, err := root.setup(c.OutOrStdout(), c.ErrOrStderr()); err != nil {
		return err
	}
	flags.hasTenant = c.Flags().Changed("tenant")

	cfg, err := config.Load(root.cfg.InstancesFile)
	if err != nil {
		return fmt.Errorf("loading instance catalog: %w", err)
	}

	reg := instance.NewRegistry()
	for _, ic := range cfg.Instances {
		reg.Insert(instance.New(ic.Info(), nil))
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

	data, err := readQuery(c, flags.queryFile)
	if err != nil {
		return err
	}
	sel, err := query.DecodeSelect(data)
	if err != nil {
		return err
	}

	dctx := &dbrcontext.Context{Registry: reg, Catalog: cat}
	if flags.hasTenant {
		dctx.TenantID = &flags.tenant
	}

	resolved, err := sel.Resolve(dctx)
	if err != nil {
		return fmt.Errorf("resolving select: %w", err)
	}
	sqlText, binds, err := resolved.AsSQL()
	if err != nil {
		return fmt.Errorf("rendering sql: %w", err)
	}

	out := struct {
		SQL   string `json:"sql"`
		Binds []any  `json:"binds"`
	}{SQL: sqlText, Binds: binds}

	enc := json.NewEncoder(c.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func readQuery(c *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(c.InOrStdin())
	}
	return os.ReadFile(path)
}
