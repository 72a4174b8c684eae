package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/covid-tracker-service/internal/adapter/diseasesh"
	httpadapter "github.com/couchcryptid/covid-tracker-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/covid-tracker-service/internal/adapter/kafka"
	"github.com/couchcryptid/covid-tracker-service/internal/adapter/mapbox"
	"github.com/couchcryptid/covid-tracker-service/internal/config"
	"github.com/couchcryptid/covid-tracker-service/internal/observability"
	"github.com/couchcryptid/covid-tracker-service/internal/tracker"
)

func main() {
	// A missing .env is fine; the environment wins either way.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	source := diseasesh.NewClient(cfg.DiseaseAPIURL, cfg.DiseaseAPITimeout, logger)
	opts := tracker.Options{HistoryDays: cfg.HistoryDays}

	// Coordinate backfill is feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN.
	if cfg.MapboxEnabled {
		opts.Geocoder = mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox coordinate backfill enabled", "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox coordinate backfill disabled")
	}

	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		opts.Publisher = writer
		logger.Info("kafka snapshot feed enabled", "topic", cfg.KafkaSnapshotTopic, "brokers", cfg.KafkaBrokers)
	}

	t := tracker.New(source, opts, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, t, t, cfg.APIRateLimit, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return t.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("service error", "error", err)
	}

	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
