package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/surfsup-climate-api/internal/cache"
	"github.com/kjstillabower/surfsup-climate-api/internal/config"
	"github.com/kjstillabower/surfsup-climate-api/internal/dataset"
	httphandler "github.com/kjstillabower/surfsup-climate-api/internal/http"
	"github.com/kjstillabower/surfsup-climate-api/internal/lifecycle"
	"github.com/kjstillabower/surfsup-climate-api/internal/observability"
	"github.com/kjstillabower/surfsup-climate-api/internal/service"
	"github.com/kjstillabower/surfsup-climate-api/internal/traffic"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	startCtx, startCancel := context.WithTimeout(context.Background(), 10*time.Second)
	store, err := dataset.Open(startCtx, cfg.DatasetPath, cfg.DatasetDSN, cfg.DatasetMaxOpenConns, logger)
	if err != nil {
		startCancel()
		logger.Fatal("dataset", zap.Error(err), zap.String("path", cfg.DatasetPath))
	}
	bounds, err := dataset.LoadBounds(startCtx, store)
	startCancel()
	if err != nil {
		if errors.Is(err, dataset.ErrNoData) {
			logger.Fatal("dataset has no measurements", zap.String("path", cfg.DatasetPath))
		}
		logger.Fatal("dataset bounds", zap.Error(err))
	}
	logger.Info("dataset loaded",
		zap.String("path", cfg.DatasetPath),
		zap.String("oldest", bounds.Oldest),
		zap.String("most_recent", bounds.MostRecent),
		zap.String("one_year_cutoff", bounds.OneYearCutoff))

	cacheSvc, memcacheCloser := newCache(cfg)
	if memcacheCloser != nil {
		if err := memcacheCloser.Ping(); err != nil {
			logger.Warn("memcached unreachable at startup; requests fall through to the dataset", zap.Error(err))
		}
	}
	logger.Info("cache backend", zap.String("backend", cfg.CacheBackend))
	climateService := service.NewClimateService(store, bounds, cacheSvc, cfg.CacheTTL, cfg.CoalesceTimeout)

	healthConfig := &httphandler.HealthConfig{
		DatasetPing:        store.Ping,
		Outcomes:           traffic.NewTracker(cfg.HealthErrorWindow),
		DegradedMinSamples: cfg.HealthMinSamples,
		DegradedErrorPct:   cfg.HealthErrorPct,
	}
	if memcacheCloser != nil {
		healthConfig.CachePing = memcacheCloser.Ping
	}
	handler := httphandler.NewHandler(climateService, healthConfig, logger, cfg.ErrorStatusCodes)

	router := mux.NewRouter()
	router.Use(httphandler.CorrelationIDMiddleware(logger))
	router.Use(httphandler.MetricsMiddleware)
	router.Use(httphandler.TimeoutMiddleware(cfg.RequestTimeout))
	router.Handle("/metrics", observability.MetricsHandler())
	handler.Register(router)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	inFlight := httphandler.InFlightCount()
	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}

	if memcacheCloser != nil {
		if err := memcacheCloser.Close(); err != nil {
			logger.Error("memcached close", zap.Error(err))
		}
	}
	if err := store.Close(); err != nil {
		logger.Error("dataset close", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// newCache builds the response cache for cfg.CacheBackend. The second result is non-nil
// only for memcached, which needs pinging and closing.
func newCache(cfg *config.Config) (cache.Cache, *cache.MemcachedCache) {
	switch cfg.CacheBackend {
	case "memcached":
		mc := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		return mc, mc
	case "none":
		return cache.NoopCache{}, nil
	default:
		return cache.NewInMemoryCache(), nil
	}
}
