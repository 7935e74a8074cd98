package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"

	httpadapter "github.com/gidroatlas/atlas-service/internal/adapter/http"
	kafkaadapter "github.com/gidroatlas/atlas-service/internal/adapter/kafka"
	"github.com/gidroatlas/atlas-service/internal/adapter/registry"
	"github.com/gidroatlas/atlas-service/internal/catalog"
	"github.com/gidroatlas/atlas-service/internal/config"
	"github.com/gidroatlas/atlas-service/internal/observability"
	"github.com/gidroatlas/atlas-service/internal/pipeline"
)

func main() {
	_ = godotenv.Load(".env.local")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	client := registry.NewClient(cfg.APIBaseURL, cfg.APITimeout, cfg.APIRateLimit, logger, metrics)
	reg := registry.NewCachedClient(client, cfg.APICacheSize, cfg.APICacheTTL)
	logger.Info("registry client configured",
		"base_url", cfg.APIBaseURL,
		"rate_limit", cfg.APIRateLimit,
		"cache_size", cfg.APICacheSize,
		"cache_ttl", cfg.APICacheTTL,
	)

	cat := catalog.New(reg, nil, logger)

	// Publishing is optional; without Kafka the pipeline only refreshes the catalog.
	var loader pipeline.BatchLoader
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		loader = writer
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	p := pipeline.New(
		pipeline.NewExtractor(cat, logger),
		pipeline.NewTransformer(logger),
		loader, logger, metrics, cfg.BatchSize,
	)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, cat, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := p.Run(ctx, cfg.SyncSchedule); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
