package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"go-report-stream/internal/api"
	"go-report-stream/internal/api/handler"
	"go-report-stream/internal/config"
	"go-report-stream/internal/health"
	"go-report-stream/internal/logging"
	"go-report-stream/internal/pipeline"
	"go-report-stream/internal/registry"
	"go-report-stream/internal/store"
	"go-report-stream/internal/telemetry"
	"go-report-stream/pkg/router"
)

// @title Report Stream API
// @version 1.0
// @description Streaming report pipeline control API
// @BasePath /api/v1
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logging.New(cfg.Logging.Level, cfg.Logging.Pretty)

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Store.Path).Msg("failed to open store")
	}
	defer db.Close()

	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)
	events := telemetry.NewEvents(log, metrics, db)

	reg := registry.New()
	mgr := pipeline.NewManager(reg, events, log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	monitor := health.New(health.Config{
		Interval:    cfg.Health.Interval,
		MemoryLimit: cfg.Health.MemoryLimit,
	}, mgr, mgr, events, log)
	go monitor.Run(ctx)

	r := router.New(log)
	api.RegisterRoutes(r, &handler.Handlers{
		Manager:           mgr,
		Store:             db,
		Log:               log,
		DefaultChunkSize:  cfg.Pipeline.ChunkSize,
		DefaultMaxDemand:  cfg.Pipeline.MaxDemand,
		DefaultPartitions: cfg.Pipeline.PartitionCount,
	})

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	log.Info().Str("addr", addr).Msg("server starting")
	if err := r.Start(addr); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
