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

// Package cmd wires the cobra command tree: serve (admin HTTP surface
// over a dialed instance registry) and resolve (print the SQL + binds a
// Select compiles to, reading the metadata database but without dialing
// any configured instance).
package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/gudtech/dbr/internal/log"
)

// Config holds the flags shared across subcommands.
type Config struct {
	InstancesFile string
	MetadataDSN   string
	LoggingFormat string
	LogLevel      string
}

// Command is the root cobra.Command plus the state its subcommands share.
type Command struct {
	*cobra.Command

	cfg    Config
	logger log.Logger
}

// NewCommand builds the root command. It carries no RunE of its own;
// serve and resolve are where work actually happens.
func NewCommand() *Command {
	c := &Command{cfg: Config{LoggingFormat: "standard", LogLevel: log.Info}}

	c.Command = &cobra.Command{
		Use:           "dbr",
		Short:         "dbr resolves cross-database record queries into SQL",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := c.Command.PersistentFlags()
	flags.StringVarP(&c.cfg.InstancesFile, "instances", "i", "instances.yaml", "path to the instance catalog YAML file")
	flags.StringVar(&c.cfg.MetadataDSN, "metadata-dsn", "", "mysql DSN of the database holding dbr_schemas/dbr_tables/dbr_fields/dbr_relationships")
	flags.StringVar(&c.cfg.LoggingFormat, "logging-format", c.cfg.LoggingFormat, "logging format, either 'standard' or 'json'")
	flags.StringVar(&c.cfg.LogLevel, "log-level", c.cfg.LogLevel, "logging level: DEBUG, INFO, WARN, or ERROR")

	c.Command.AddCommand(newServeCommand(c))
	c.Command.AddCommand(newResolveCommand(c))

	return c
}

// setup builds the logger from the root flags. Subcommands call this
// first so a flag-parsing error never reaches a half-initialized logger.
func (c *Command) setup(out, errOut io.Writer) (log.Logger, error) {
	logger, err := log.NewLogger(c.cfg.LoggingFormat, c.cfg.LogLevel, out, errOut)
	if err != nil {
		return nil, err
	}
	c.logger = logger
	return logger, nil
}

// Execute runs the command tree against os.Args (via cobra's own
// Command.Execute), returning any error for the caller's main to report.
func (c *Command) Execute() error {
	return c.Command.ExecuteContext(context.Background())
}
