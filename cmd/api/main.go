package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fastprodman/priestwallet/internal/api"
	"github.com/fastprodman/priestwallet/internal/config"
	"github.com/fastprodman/priestwallet/internal/infra/logging"
	"github.com/fastprodman/priestwallet/internal/infra/pgutils"
	"github.com/fastprodman/priestwallet/internal/infra/redislock"
	"github.com/fastprodman/priestwallet/internal/metrics"
	"github.com/fastprodman/priestwallet/internal/payout"
	"github.com/fastprodman/priestwallet/internal/services/commission"
	"github.com/fastprodman/priestwallet/internal/services/wallet"
	"github.com/fastprodman/priestwallet/internal/services/withdrawal"
	"github.com/fastprodman/priestwallet/pkg/envconf"
	"github.com/fastprodman/priestwallet/pkg/shutdownqueue"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running api: %v\n", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	cfg := new(apiConfig)

	err := envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	logging.Setup(os.Stdout, cfg.Log.Level, cfg.Log.Format)

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serr := shutdownqueue.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	// --- Infra ---
	db, err := pgutils.OpenDB(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}

	shutdownqueue.Add("postgres", func(context.Context) error {
		return db.Close()
	})

	locker, err := newLocker(ctx, cfg.Redis)
	if err != nil {
		return err
	}

	gateway, err := payout.New(cfg.Gateway)
	if err != nil {
		return fmt.Errorf("payout gateway: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db, "priestwallet"),
	)
	ledgerMetrics := metrics.New(registry)

	// --- Services ---
	walletSrv := wallet.New(db)
	withdrawalSrv := withdrawal.New(db, gateway,
		withdrawal.WithLocker(locker),
		withdrawal.WithMetrics(ledgerMetrics),
		withdrawal.WithGatewayTimeout(cfg.Gateway.Timeout),
	)
	commissionSrv := commission.New(db,
		commission.WithLocker(locker),
		commission.WithMetrics(ledgerMetrics),
	)

	// --- HTTP server ---
	handler := api.NewRouter(
		api.NewHandler(walletSrv, withdrawalSrv, commissionSrv),
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	)
	srv := api.NewServer(cfg.HTTP, handler)

	// Registered last so it is shut down first.
	shutdownqueue.Add("http server", func(c context.Context) error {
		err := srv.Shutdown(c)
		if err != nil {
			return fmt.Errorf("shutdown srv: %w", err)
		}

		return nil
	})

	errCh := make(chan error, 1)

	go func() {
		serr := srv.ListenAndServe()
		// http.ErrServerClosed is the normal path during Shutdown
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
			return
		}

		errCh <- nil
	}()

	log.Info().Str("addr", cfg.HTTP.Addr).Bool("payout_live", cfg.Gateway.IsLive()).Msg("API started")

	select {
	case <-ctx.Done():
		return nil
	case serr := <-errCh:
		if serr != nil {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	}
}

// newLocker connects to Redis when configured; without it writes are
// serialised by Postgres row locks alone.
func newLocker(ctx context.Context, cfg config.RedisConfig) (redislock.Locker, error) {
	if !cfg.Enabled() {
		log.Info().Msg("redis not configured, per-priest locking disabled")

		return redislock.Noop{}, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)

	err = client.Ping(ctx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("ping redis: %w", err)
	}

	shutdownqueue.Add("redis", func(context.Context) error {
		return client.Close()
	})

	locker, err := redislock.New(client, cfg.LockTTL, cfg.LockWait)
	if err != nil {
		return nil, fmt.Errorf("redis locker: %w", err)
	}

	return locker, nil
}
