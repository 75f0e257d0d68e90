package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"signage-cms/internal/config"
	database "signage-cms/internal/db"
	"signage-cms/internal/logging"
	"signage-cms/internal/metrics"
	"signage-cms/internal/publish"
	"signage-cms/internal/scheduler"
	"signage-cms/internal/storage"

	// Alias to avoid clashing with the srv variable.
	apiserver "signage-cms/internal/api/server"
)

func main() {
	// 1. Configuration
	cfg, err := config.Load(config.NeedAuth, config.NeedStorage)
	if err != nil {
		// No logger yet: fall back to a production one for this single line.
		zap.Must(zap.NewProduction()).Fatal("config", zap.Error(err))
	}

	log := logging.New(cfg.Server.Environment, cfg.Server.LogLevel)
	defer func() { _ = log.Sync() }()
	log.Info("starting signage api")

	// 2. Database
	db, err := database.New(cfg, log)
	if err != nil {
		log.Fatal("database", zap.Error(err))
	}
	if err := db.AutoMigrate(); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}
	if err := db.SeedTimeTags(cfg.Seed.TimeTagsFile); err != nil {
		log.Fatal("seed time tags", zap.Error(err))
	}

	// 3. Storage + on-demand publishing
	store, err := storage.New(cfg)
	if err != nil {
		log.Fatal("storage", zap.Error(err))
	}
	loc, err := time.LoadLocation(cfg.Server.Timezone)
	if err != nil {
		log.Fatal("timezone", zap.Error(err))
	}
	publisher := publish.New(db.DB, store, scheduler.RealClock{}, log, publish.Options{
		HorizonDays: cfg.Publisher.HorizonDays,
		Location:    loc,
	})

	// 4. Metrics
	metrics.Register()
	publish.RegisterMetrics()
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		log.Info("metrics exposed", zap.String("addr", cfg.Server.MetricsPort))
		if err := http.ListenAndServe(cfg.Server.MetricsPort, mux); err != nil {
			log.Warn("metrics server", zap.Error(err))
		}
	}()

	// 5. API
	srv, err := apiserver.New(cfg, db, publisher, log)
	if err != nil {
		log.Fatal("api server", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("api server failed", zap.Error(err))
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown", zap.Error(err))
		}
	}
}
