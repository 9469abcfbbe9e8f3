package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	kafkaadapter "github.com/i474232898/weather-warnings/internal/adapter/kafka"
	httpapi "github.com/i474232898/weather-warnings/internal/api/http"
	"github.com/i474232898/weather-warnings/internal/config"
	"github.com/i474232898/weather-warnings/internal/observability"
	"github.com/i474232898/weather-warnings/internal/scheduler"
	"github.com/i474232898/weather-warnings/internal/store"
	"github.com/i474232898/weather-warnings/internal/warnings"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the poller and HTTP API (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireRegions(); err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err != nil {
		return err
	}
	metrics := observability.NewMetrics()

	cache := newCache(cfg, logger, metrics)

	// Display surfaces every region reports to.
	states := store.NewStateStore()
	reporters := warnings.Reporters{
		states,
		warnings.ReporterFunc(func(s warnings.RegionState) {
			metrics.RegionAlerts.WithLabelValues(s.RegionID.String()).Set(float64(s.State))
		}),
	}
	if len(cfg.KafkaBrokers) > 0 {
		writer := kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic, observability.Component(logger, "kafka"))
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error().Err(err).Msg("kafka writer close error")
			}
		}()
		reporters = append(reporters, writer)
		logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("publishing region states to kafka")
	}

	views := attachRegions(cfg, cache, reporters, logger)
	defer detachAll(views)
	logger.Info().Int("regions", len(views)).Msg("regions attached")

	// Scheduler drives refreshes; the first one runs immediately.
	sched := scheduler.New(cache, cfg.RefreshInterval(), observability.Component(logger, "scheduler"))
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	app := httpapi.NewApp(serviceName, true)
	httpapi.RegisterRoutes(app, cache, states)

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("http server starting")
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error().Err(err).Msg("fiber server stopped")
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error during shutdown")
	}
	return nil
}
