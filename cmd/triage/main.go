package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	httpadapter "github.com/vietwatch/report-triage/internal/adapter/http"
	kafkaadapter "github.com/vietwatch/report-triage/internal/adapter/kafka"
	"github.com/vietwatch/report-triage/internal/adapter/nominatim"
	"github.com/vietwatch/report-triage/internal/config"
	"github.com/vietwatch/report-triage/internal/domain"
	"github.com/vietwatch/report-triage/internal/gazetteer"
	"github.com/vietwatch/report-triage/internal/observability"
	"github.com/vietwatch/report-triage/internal/pipeline"
	"github.com/vietwatch/report-triage/internal/resolver"
	"github.com/vietwatch/report-triage/internal/window"
)

// windowCapacity caps the in-memory corroboration window. At sustained storm
// traffic this is well above an hour of reports.
const windowCapacity = 10000

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	table, err := gazetteer.Load()
	if err != nil {
		logger.Error("failed to load gazetteer", "error", err)
		os.Exit(1)
	}
	landmarks, districts, provinces := table.Size()
	logger.Info("gazetteer loaded", "landmarks", landmarks, "districts", districts, "provinces", provinces)

	res := resolver.New(table, logger, metrics)
	if cfg.GeocoderEnabled {
		client := nominatim.NewClient(cfg.GeocoderURL, cfg.GeocoderTimeout, logger)
		cached := nominatim.NewCachedGeocoder(client, cfg.GeocoderCacheSize, metrics)
		res.EnableExternal(cached, cfg.GeocoderMinInterval, cfg.GeocoderTimeout)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("external geocoder enabled", "url", cfg.GeocoderURL,
			"cache_size", cfg.GeocoderCacheSize, "min_interval", cfg.GeocoderMinInterval)
	} else {
		metrics.GeocodeEnabled.Set(0)
		logger.Info("external geocoder disabled")
	}

	win := window.New(domain.CorroborationWindow*time.Minute, windowCapacity, nil)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(res, win, metrics, logger)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, &statusReporter{table: table, window: win}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start triage pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
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
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}

// statusReporter exposes gazetteer and window state on /statusz.
type statusReporter struct {
	table  *gazetteer.Table
	window *window.Window
}

func (s *statusReporter) TriageStatus(_ context.Context) httpadapter.TriageStatus {
	landmarks, districts, provinces := s.table.Size()
	return httpadapter.TriageStatus{
		GazetteerLandmarks: landmarks,
		GazetteerDistricts: districts,
		GazetteerProvinces: provinces,
		WindowReports:      s.window.Len(),
	}
}
