package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mohammed-shakir/geoshape-index/internal/app"
	"github.com/mohammed-shakir/geoshape-index/internal/core/config"
	"github.com/mohammed-shakir/geoshape-index/internal/core/router"
	"github.com/mohammed-shakir/geoshape-index/internal/core/server"
	"github.com/mohammed-shakir/geoshape-index/internal/logger"
	"github.com/mohammed-shakir/geoshape-index/internal/metrics"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load(".env")
	cfg := config.FromEnv()

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		Service:   "geoshape",
		Component: "server",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := metrics.Init(metrics.Config{
		Enabled: cfg.MetricsEnabled,
		Addr:    cfg.MetricsAddr,
		Build: metrics.BuildInfo{
			Version:   Version,
			Revision:  os.Getenv("BUILD_REVISION"),
			BuildDate: os.Getenv("BUILD_DATE"),
		},
	})
	if srv := p.Server(); srv != nil {
		go func() {
			appLog.Info("metrics listen", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				appLog.Error("metrics server exited", "err", err)
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	a, err := app.Build(ctx, cfg, appLog)
	if err != nil {
		appLog.Error("startup failed", "err", err)
		return 1
	}
	defer func() { _ = a.Close() }()

	if a.Consumer != nil {
		go func() {
			if err := a.Consumer.Start(ctx); err != nil {
				appLog.Error("kafka consumer stopped", "err", err)
			}
		}()
	}

	var (
		indexer  router.Indexer
		searcher router.Searcher
	)
	if a.Indexer != nil {
		indexer, searcher = a.Indexer, a.Searcher
	}
	api := router.New(a.Schema, indexer, searcher, appLog)

	appLog.Info("starting geoshape server", "addr", cfg.Addr, "version", Version, "store", cfg.Store.Enabled)
	if err := server.Run(ctx, cfg, appLog, server.NewHandler(appLog, api, p.Handler(), a.Checks)); err != nil {
		appLog.Error("server exited", "err", err)
		return 1
	}
	return 0
}
