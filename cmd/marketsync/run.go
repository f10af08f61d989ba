package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goran-ethernal/MarketSync/internal/common"
	"github.com/goran-ethernal/MarketSync/internal/config"
	"github.com/goran-ethernal/MarketSync/internal/cursor"
	"github.com/goran-ethernal/MarketSync/internal/db"
	"github.com/goran-ethernal/MarketSync/internal/lease"
	"github.com/goran-ethernal/MarketSync/internal/logger"
	"github.com/goran-ethernal/MarketSync/internal/metrics"
	"github.com/goran-ethernal/MarketSync/internal/migrations"
	"github.com/goran-ethernal/MarketSync/internal/projector"
	"github.com/goran-ethernal/MarketSync/internal/rpc"
	"github.com/goran-ethernal/MarketSync/internal/source"
	"github.com/goran-ethernal/MarketSync/internal/store"
	"github.com/goran-ethernal/MarketSync/internal/syncer"
	"github.com/goran-ethernal/MarketSync/internal/types"
	"github.com/goran-ethernal/MarketSync/pkg/api"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const stopTimeout = 10 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the synchronizer",
	Long: `Run the synchronizer until interrupted. The metrics server and the
read-only query API are started alongside it when enabled in the configuration.`,
	RunE: runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	fmt.Fprintf(cmd.OutOrStdout(), banner, version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := componentLogger(cfg, "")
	logger.SetDefaultLogger(log)
	defer log.Close() //nolint:errcheck

	sqlDB, err := db.OpenWithRetry(ctx, cfg.DB, componentLogger(cfg, common.ComponentDB))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer sqlDB.Close()

	if err := migrations.RunMigrations(componentLogger(cfg, common.ComponentDB), sqlDB); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Infow("connecting to ledger", "rpc_url", cfg.Chain.RPCURL)
	ethClient, err := rpc.NewClient(ctx, cfg.Chain, componentLogger(cfg, common.ComponentRPC))
	if err != nil {
		return fmt.Errorf("failed to create RPC client: %w", err)
	}
	defer ethClient.Close()

	contractABI, err := source.LoadABI(cfg.Chain.ABIPath)
	if err != nil {
		return err
	}

	finality, err := types.ParseBlockFinality(cfg.Sync.Finality)
	if err != nil {
		return err
	}

	eventSource := source.New(ethClient, cfg.Chain.Address(), contractABI,
		componentLogger(cfg, common.ComponentEventSource))
	head := source.NewHead(ethClient, finality)
	cursorStore := cursor.NewStore(sqlDB, componentLogger(cfg, common.ComponentCursorStore))
	entityStore := store.NewStore(sqlDB, componentLogger(cfg, common.ComponentEntityStore))

	var tickLease syncer.Lease
	if cfg.Lease.IsEnabled() {
		redisLease, err := lease.NewRedis(ctx, cfg.Lease, componentLogger(cfg, common.ComponentLease))
		if err != nil {
			return fmt.Errorf("failed to create tick lease: %w", err)
		}
		defer redisLease.Close()
		tickLease = redisLease
		log.Infow("tick lease enabled", "key", cfg.Lease.Key, "ttl", cfg.Lease.TTL)
	}

	synchronizer, err := syncer.New(
		cfg.Sync,
		head,
		eventSource,
		cursorStore,
		projector.NewSet(entityStore, componentLogger(cfg, common.ComponentProjector)),
		tickLease,
		componentLogger(cfg, common.ComponentSyncer),
	)
	if err != nil {
		return fmt.Errorf("failed to create synchronizer: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics, map[string]metrics.HealthCheck{
			common.ComponentDB: sqlDB.PingContext,
			common.ComponentRPC: func(ctx context.Context) error {
				_, err := head.HeadBlockNumber(ctx)
				return err
			},
		}, componentLogger(cfg, common.ComponentMetrics))
		if err := metricsServer.Start(gctx); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
			defer cancel()
			if err := metricsServer.Stop(stopCtx); err != nil {
				log.Warnw("failed to stop metrics server", "error", err)
			}
		}()
	}

	if cfg.API != nil && cfg.API.Enabled {
		apiServer := api.NewServer(cfg.API, entityStore, synchronizer, componentLogger(cfg, common.ComponentAPI))
		g.Go(func() error { return apiServer.Start(gctx) })
	}

	g.Go(func() error { return synchronizer.Run(gctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info("shutdown complete")
	return nil
}
