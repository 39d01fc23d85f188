package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/yigit/enrollplan/internal/app/migrations"
	"github.com/yigit/enrollplan/internal/app/repositories"
	"github.com/yigit/enrollplan/internal/catalog"
	"github.com/yigit/enrollplan/internal/catalogio"
	"github.com/yigit/enrollplan/internal/config"
	"github.com/yigit/enrollplan/internal/db"
	"github.com/yigit/enrollplan/internal/pkg/logger"
)

func newImportCmd(opts *rootOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Validate a catalog file and load it into Postgres",
		Long: `Validate a catalog file and upsert its courses and sections into the
Postgres catalog. The shared Redis snapshot is dropped afterwards so servers
pick up the new catalog on their next refresh.`,
		Example: `  # Check a file without touching the database
  catalogctl import fall.csv --dry-run

  # Import a Parquet export
  catalogctl import fall.parquet --config configs/config.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lgr := logger.Component("import")

			courses, sections, err := catalogio.LoadFile(args[0])
			if err != nil {
				return err
			}
			if _, err := catalog.NewSnapshot(courses, sections); err != nil {
				return fmt.Errorf("catalog is inconsistent: %w", err)
			}
			lgr.Info().Int("courses", len(courses)).Int("sections", len(sections)).Msg("Catalog file is valid")
			if dryRun {
				return nil
			}

			cfg, err := config.LoadConfig(opts.configPath)
			if err != nil {
				return err
			}
			if cfg.Database.Driver != "postgres" {
				return errors.New("import needs the postgres database driver")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			database, err := db.NewPostgresDB(cfg)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := migrations.NewMigrator(database.Pool, lgr).Migrate(ctx); err != nil {
				return err
			}
			if err := repositories.NewCatalogRepository(database.Pool).ImportCatalog(ctx, courses, sections); err != nil {
				return err
			}
			lgr.Info().Msg("Catalog imported")

			if cfg.Redis.Addr != "" {
				cache := catalog.NewRedisCache(catalog.RedisCacheConfig{
					Addr:     cfg.Redis.Addr,
					Password: cfg.Redis.Password,
					DB:       cfg.Redis.DB,
					Key:      cfg.Redis.Key,
					TTL:      cfg.Redis.TTL,
				})
				defer cache.Close()
				if err := cache.Invalidate(ctx); err != nil {
					lgr.Warn().Err(err).Msg("Failed to drop cached catalog snapshot")
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate only")
	return cmd
}

func newConvertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "convert <in.csv> <out.parquet>",
		Short: "Validate a CSV catalog and write it as Parquet",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			rows, err := catalogio.ReadCSV(in)
			if err != nil {
				return err
			}
			if _, _, err := catalogio.Build(rows); err != nil {
				return err
			}

			out, err := os.Create(args[1])
			if err != nil {
				return err
			}
			if err := catalogio.WriteParquet(out, rows); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
			logger.Info().Int("rows", len(rows)).Str("out", args[1]).Msg("Catalog converted")
			return nil
		},
	}
}
