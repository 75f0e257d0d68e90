package main

import (
	"context"
	"flag"
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
	"signage-cms/internal/publish"
	"signage-cms/internal/scheduler"
	"signage-cms/internal/storage"
)

func main() {
	simulate := flag.Bool("simulate", false, "print manifests to stdout instead of uploading them")
	once := flag.Bool("once", false, "run a single publish pass and exit")
	flag.Parse()

	// 1. Configuration. The publisher serves no API, so no JWT secret is
	// needed; a simulated run never touches storage.
	needs := []config.Need{config.NeedStorage}
	if *simulate {
		needs = nil
	}
	cfg, err := config.Load(needs...)
	if err != nil {
		zap.Must(zap.NewProduction()).Fatal("config", zap.Error(err))
	}
	log := logging.New(cfg.Server.Environment, cfg.Server.LogLevel)
	defer func() { _ = log.Sync() }()
	log.Info("starting manifest publisher", zap.Bool("simulate", *simulate))

	// 2. Infrastructure
	db, err := database.New(cfg, log)
	if err != nil {
		log.Fatal("database", zap.Error(err))
	}
	if err := db.AutoMigrate(); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}
	store, err := storage.New(cfg)
	if err != nil {
		log.Fatal("storage", zap.Error(err))
	}
	loc, err := time.LoadLocation(cfg.Server.Timezone)
	if err != nil {
		log.Fatal("timezone", zap.Error(err))
	}

	// 3. Metrics
	publish.RegisterMetrics()
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		log.Info("metrics exposed", zap.String("addr", cfg.Server.MetricsPort))
		if err := http.ListenAndServe(cfg.Server.MetricsPort, mux); err != nil {
			log.Warn("metrics server", zap.Error(err))
		}
	}()

	// 4. Worker
	worker := publish.New(db.DB, store, scheduler.RealClock{}, log, publish.Options{
		Interval:    time.Duration(cfg.Publisher.IntervalSeconds) * time.Second,
		HorizonDays: cfg.Publisher.HorizonDays,
		Location:    loc,
		Simulate:    *simulate,
		Out:         os.Stdout,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *once {
		if err := worker.RunOnce(ctx); err != nil {
			log.Fatal("publish pass failed", zap.Error(err))
		}
		return
	}
	worker.Run(ctx)
}
