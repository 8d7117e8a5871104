package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/visitmap/visitmap/internal/api"
	"github.com/visitmap/visitmap/internal/config"
	"github.com/visitmap/visitmap/internal/events"
	"github.com/visitmap/visitmap/internal/health"
	"github.com/visitmap/visitmap/internal/logger"
	"github.com/visitmap/visitmap/internal/observability"
	"github.com/visitmap/visitmap/internal/rendercache"
	"github.com/visitmap/visitmap/internal/store"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.FromEnv()
	if os.Getenv("WORKER_VERSION") == "" {
		cfg.WorkerVersion = Version
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   strings.ToLower(os.Getenv("LOG_CONSOLE")) == "true",
		Component: "server",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	observability.ExposeBuildInfo(Version)
	appLog.Info("starting server", "addr", cfg.Addr, "version", Version)

	h := &api.Handlers{Cfg: cfg, Logger: appLog}
	var ready health.Pinger

	if err := cfg.ValidateDatabase(); err != nil {
		// requests still get a response: 500 with the config error
		appLog.Error("database not configured", "err", err)
		h.ConfigErr = err
	} else {
		st, err := store.Open(cfg.DatabaseURL, cfg.DatabaseToken, appLog, cfg.DBOpTimeout)
		if err != nil {
			appLog.Error("failed to open database", "err", err)
			return 1
		}
		defer func() { _ = st.Close() }()
		h.Store = st
		ready = st
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Cache.Enabled && h.ConfigErr == nil {
		cache, err := rendercache.New(ctx, cfg.Cache.RedisAddr, cfg.DatabaseURL,
			cfg.Cache.TTL, cfg.Cache.OpTimeout, appLog)
		if err != nil {
			appLog.Warn("canvas cache disabled", "err", err)
		} else {
			defer func() { _ = cache.Close() }()
			h.Cache = cache
		}
	}

	if cfg.Events.Enabled {
		pub, err := events.NewPublisher(
			strings.Split(cfg.Events.Brokers, ","),
			cfg.Events.Topic, cfg.Events.QueueSize, appLog)
		if err != nil {
			appLog.Warn("visit events disabled", "err", err)
		} else {
			defer func() { _ = pub.Close() }()
			h.Events = pub
		}
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.NewRouter(h, ready, cfg.MetricsEnabled),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("http listen", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		appLog.Info("server stopped")
		return 0
	case err := <-errCh:
		appLog.Error("server exited with error", "err", err)
		return 1
	}
}
