package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
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

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
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

	var rdb *redisx.Client
	if cfg.Redis.Enabled() {
		rdb = redisx.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(pingCtx); err != nil {
			log.Warn("redis unreachable, serving without cache", "error", err)
			rdb = nil
		}
		cancel()
	}

	pub := events.NewInMemory(256)
	sy := &syncer.Syncer{
		Fetcher: feed.NewClient(cfg.Feed.Timeout),
		Sink:    st,
		Pub:     pub,
		Sources: cfg.EnabledSources(),
		Workers: cfg.Sync.Workers,
		Log:     log,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if rdb != nil {
		warmer := &cache.Warmer{Pub: pub, Redis: rdb, Store: st, TTL: cfg.Sync.CacheTTL, Log: log}
		go warmer.Run(ctx)
	}

	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: BuildRouter(RouterDeps{
			Store:    st,
			Redis:    rdb,
			Syncer:   sy,
			Log:      log,
			CacheTTL: cfg.Sync.CacheTTL,
		}),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("listings-api listening", "port", cfg.Server.Port, "sources", len(sy.Sources))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
