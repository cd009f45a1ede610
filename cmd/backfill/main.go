// Command backfill credits priests for completed bookings whose payment was
// never settled, e.g. bookings completed before the wallet existed.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fastprodman/priestwallet/internal/config"
	"github.com/fastprodman/priestwallet/internal/infra/logging"
	"github.com/fastprodman/priestwallet/internal/infra/pgutils"
	"github.com/fastprodman/priestwallet/internal/services/commission"
	"github.com/fastprodman/priestwallet/pkg/envconf"
	"github.com/rs/zerolog/log"
)

type backfillConfig struct {
	Postgres  config.PostgresConfig
	Log       config.LogConfig
	BatchSize int `envconfig:"BACKFILL_BATCH_SIZE" default:"100"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("backfill failed")
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg := new(backfillConfig)

	err := envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Setup(os.Stdout, cfg.Log.Level, cfg.Log.Format)

	db, err := pgutils.OpenDB(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	//nolint:errcheck
	defer db.Close()

	engine := commission.New(db)

	var total commission.Report

	// Frozen or failing bookings stay unsettled, so stop once a batch makes
	// no progress.
	for {
		report, err := engine.SettlePending(ctx, cfg.BatchSize)

		total.Scanned += report.Scanned
		total.Settled += report.Settled
		total.AlreadyProcessed += report.AlreadyProcessed
		total.Frozen += report.Frozen
		total.Failed += report.Failed
		total.Credited += report.Credited

		if err != nil {
			log.Warn().Err(err).Msg("some bookings could not be settled")
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if report.Settled == 0 || report.Scanned < cfg.BatchSize {
			break
		}
	}

	log.Info().
		Int("scanned", total.Scanned).
		Int("settled", total.Settled).
		Int("already_processed", total.AlreadyProcessed).
		Int("frozen", total.Frozen).
		Int("failed", total.Failed).
		Int64("credited_paise", total.Credited).
		Msg("backfill finished")

	if total.Failed > 0 {
		return fmt.Errorf("%d bookings failed to settle", total.Failed)
	}

	return nil
}
