package main

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fastprodman/priestwallet/internal/config"
	"github.com/fastprodman/priestwallet/internal/infra/logging"
	"github.com/fastprodman/priestwallet/internal/infra/pgutils"
	"github.com/fastprodman/priestwallet/pkg/envconf"
	"github.com/rs/zerolog/log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var baseFS embed.FS

//go:embed test_data/*.sql
var devFS embed.FS

const (
	baseMigrationsTable = "schema_migrations"
	seedMigrationsTable = "seed_migrations"
)

type migratorConfig struct {
	Postgres config.PostgresConfig
	Log      config.LogConfig
	AppEnv   string `envconfig:"APP_ENV" default:"PROD"`
	Down     bool   `envconfig:"MIGRATE_DOWN" default:"false"`
}

func main() {
	err := migrateAll()
	if err != nil {
		log.Error().Err(err).Msg("migration run failed")
		os.Exit(1)
	}

	log.Info().Msg("migration run finished successfully")
}

func migrateAll() error {
	cfg := new(migratorConfig)

	err := envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Setup(os.Stdout, cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := pgutils.OpenDB(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	//nolint:errcheck
	defer db.Close()

	dev := cfg.AppEnv == "DEV"

	if cfg.Down {
		if dev {
			err = runMigrations(db, devFS, "test_data", seedMigrationsTable, true)
			if err != nil {
				return fmt.Errorf("dev seed rollback failed: %w", err)
			}
		}

		err = runMigrations(db, baseFS, "migrations", baseMigrationsTable, true)
		if err != nil {
			return fmt.Errorf("base rollback failed: %w", err)
		}

		log.Info().Msg("migrations rolled back")

		return nil
	}

	err = runMigrations(db, baseFS, "migrations", baseMigrationsTable, false)
	if err != nil {
		return fmt.Errorf("base migrations failed: %w", err)
	}

	log.Info().Msg("base migrations applied")

	if dev {
		err = runMigrations(db, devFS, "test_data", seedMigrationsTable, false)
		if err != nil {
			return fmt.Errorf("dev seed migrations failed: %w", err)
		}

		log.Info().Msg("dev seed migrations applied")
	}

	return nil
}

// runMigrations applies one embedded directory. Each directory keeps its own
// version table so seed files can reuse version numbers.
func runMigrations(db *sql.DB, fsys embed.FS, dir, table string, down bool) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: table})
	if err != nil {
		return fmt.Errorf("init postgres driver: %w", err)
	}

	src, err := iofs.New(fsys, dir)
	if err != nil {
		return fmt.Errorf("iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrate instance: %w", err)
	}

	if down {
		err = m.Down()
	} else {
		err = m.Up()
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply %s: %w", dir, err)
	}

	version, dirty, verr := m.Version()
	if verr == nil {
		log.Info().Str("dir", dir).Uint("version", version).Bool("dirty", dirty).Msg("migration state")
	}

	return nil
}
