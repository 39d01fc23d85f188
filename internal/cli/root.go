// Package cli implements the catalogctl command tree.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/yigit/enrollplan/internal/catalog"
	"github.com/yigit/enrollplan/internal/catalogio"
	"github.com/yigit/enrollplan/internal/pkg/logger"
	"github.com/yigit/enrollplan/internal/seed"
)

type rootOptions struct {
	configPath  string
	catalogPath string
	verbose     bool
}

// NewRootCmd builds the catalogctl command
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "catalogctl",
		Short: "Catalog import, prerequisite resolution and transcript ingestion tools",
		Long: `catalogctl works with enrollment catalogs outside the API server.

It validates and imports catalog files (CSV, Parquet or JSON snapshots), resolves
prerequisite trees, checks candidate schedules for conflicts and ingests
transcript documents in bulk.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			level := logger.InfoLevel
			if opts.verbose {
				level = logger.DebugLevel
			}
			logger.Configure(logger.Config{Level: level, Pretty: true, Output: os.Stderr})
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "configs/config.yaml", "Path to the server config file")
	cmd.PersistentFlags().StringVar(&opts.catalogPath, "catalog", "", "Catalog file (.csv, .parquet or .json); the demo catalog when empty")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose logging")

	cmd.AddCommand(newImportCmd(opts))
	cmd.AddCommand(newConvertCmd())
	cmd.AddCommand(newResolveCmd(opts))
	cmd.AddCommand(newConflictsCmd(opts))
	cmd.AddCommand(newIngestCmd(opts))
	cmd.AddCommand(newTokenCmd(opts))

	return cmd
}

// loadSnapshot builds a snapshot from the --catalog file or the demo catalog
func (o *rootOptions) loadSnapshot() (*catalog.Snapshot, error) {
	if o.catalogPath == "" {
		return catalog.NewSnapshot(seed.DemoCatalog())
	}
	courses, sections, err := catalogio.LoadFile(o.catalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog %s: %w", o.catalogPath, err)
	}
	return catalog.NewSnapshot(courses, sections)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
