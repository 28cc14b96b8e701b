package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yourorg/listings-api/feed"
	"github.com/yourorg/listings-api/internal/cache"
	"github.com/yourorg/listings-api/internal/config"
	"github.com/yourorg/listings-api/internal/events"
	"github.com/yourorg/listings-api/internal/logger"
	"github.com/yourorg/listings-api/internal/redisx"
	"github.com/yourorg/listings-api/internal/store"
	"github.com/yourorg/listings-api/internal/syncer"
)

// Standalone scheduled syncer for deployments that want feed ingestion on
// an interval instead of (or in addition to) the on-demand API trigger.
func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	runOnce := flag.Bool("once", false, "run a single sync and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	st, err := store.Open(cfg.Database.DSN)
	if err != nil {
		log.Error("store open failed", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	setupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := st.Ping(setupCtx); err != nil {
		cancel()
		log.Error("postgres ping failed", "error", err)
		os.Exit(1)
	}
	if err := st.Migrate(setupCtx); err != nil {
		cancel()
		log.Error("postgres migrate failed", "error", err)
		os.Exit(1)
	}
	cancel()

	var warmer *cache.Warmer
	if cfg.Redis.Enabled() {
		rdb := redisx.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		warmer = &cache.Warmer{Redis: rdb, Store: st, TTL: cfg.Sync.CacheTTL, Log: log}
	}

	sy := &syncer.Syncer{
		Fetcher: feed.NewClient(cfg.Feed.Timeout),
		Sink:    st,
		Pub:     events.NewInMemory(16),
		Sources: cfg.EnabledSources(),
		Workers: cfg.Sync.Workers,
		Log:     log,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run := func() {
		stats, err := sy.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("sync run failed", "error", err, "synced", stats.Synced)
			return
		}
		log.Info("sync run complete", "sources", stats.Sources, "skipped", stats.Skipped, "synced", stats.Synced)
		if warmer != nil && stats.Synced > 0 {
			if err := warmer.WarmOnce(ctx); err != nil {
				log.Warn("listings cache warm failed", "error", err)
			}
		}
	}

	run()
	if *runOnce {
		return
	}

	ticker := time.NewTicker(cfg.Sync.Interval)
	defer ticker.Stop()
	log.Info("syncer scheduled", "interval", cfg.Sync.Interval, "sources", len(sy.Sources))
	for {
		select {
		case <-ctx.Done():
			log.Info("syncer stopping", "reason", ctx.Err())
			return
		case <-ticker.C:
			run()
		}
	}
}
