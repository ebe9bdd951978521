package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/drivewatch/correlator/internal/api"
	"github.com/drivewatch/correlator/internal/config"
	"github.com/drivewatch/correlator/internal/handler"
	"github.com/drivewatch/correlator/internal/metrics"
	correlatorNats "github.com/drivewatch/correlator/internal/nats"
	"github.com/drivewatch/correlator/internal/report"
	"github.com/drivewatch/correlator/internal/store"
)

func main() {
	// Initialize logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting drivewatch disk correlator")

	configPath := flag.String("config", "", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	hostID := cfg.ResolveHostID()

	logger.Info("Configuration loaded",
		"nats_url", cfg.NATSURL,
		"queue", cfg.Queue,
		"sensors_subject", cfg.Subjects.Sensors,
		"egress_subject", cfg.Subjects.Egress,
		"logging_subject", cfg.Subjects.Logging,
		"http_addr", cfg.HTTPAddr,
		"report_file", cfg.ReportFile,
		"host_id", hostID)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to NATS
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer nc.Close()

	logger.Info("Connected to NATS")

	prometheusMetrics := metrics.NewMetrics()

	state := store.NewState()
	incidents := store.NewIncidentStore(cfg.IncidentHistory, cfg.IncidentDedupe)
	reportWriter := report.NewWriter(cfg.ReportFile, logger)

	egress := correlatorNats.NewPublisher(nc, cfg.Subjects.Egress, logger)
	incidentSink := correlatorNats.NewIncidentPublisher(nc, cfg.Subjects.Logging, logger)

	dispatcher := handler.NewDispatcher(hostID, state, incidents, reportWriter, egress, incidentSink, prometheusMetrics, logger)
	subscriber := correlatorNats.NewSubscriber(nc, cfg.Subjects.Sensors, cfg.Queue, dispatcher, logger)

	// Create HTTP API
	httpAPI := api.NewHTTPAPI(state, incidents, nc)
	mux := http.NewServeMux()
	httpAPI.SetupRoutes(mux)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	// Start HTTP server
	go func() {
		logger.Info("Starting HTTP server", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	// Start sensor subscriber
	go func() {
		logger.Info("Starting sensor subscriber")
		if err := subscriber.Run(ctx); err != nil {
			logger.Error("Sensor subscriber error", "error", err)
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Disk correlator started successfully")
	<-sigChan

	logger.Info("Shutting down disk correlator...")

	// Cancel context to stop the subscriber
	cancel()

	// Shutdown HTTP server
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("Disk correlator stopped")
}
