package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/i474232898/weather-warnings/internal/config"
	"github.com/i474232898/weather-warnings/internal/observability"
	"github.com/i474232898/weather-warnings/internal/warnings"
	"github.com/i474232898/weather-warnings/internal/warnings/providers"
)

const serviceName = "weather-warnings"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	serve := newServeCmd()

	root := &cobra.Command{
		Use:   serviceName,
		Short: "Poll ČHMÚ weather warnings and serve per-region alert lists",
		Long: `weather-warnings polls the ČHMÚ weather warnings feed on a fixed interval,
keeps the latest good snapshot in memory and derives the active alerts for
every configured ORP region.

Configuration is read from the environment (and .env), optionally overlaid
by the YAML file named in CONFIG_FILE.`,
		SilenceUsage: true,
		RunE:         serve.RunE,
	}

	root.AddCommand(serve, newListCmd())
	return root
}

// newCache builds the feed cache with its HTTP fetcher.
func newCache(cfg *config.AppConfig, logger zerolog.Logger, metrics *observability.Metrics) *warnings.Cache {
	if cfg.InsecureSkipVerify {
		logger.Warn().Str("url", cfg.FeedURL).Msg("TLS certificate verification is disabled for the feed")
	}

	client := providers.NewHTTPClient(cfg.FetchTimeout, cfg.InsecureSkipVerify)
	fetcher := providers.NewCHMIFetcher(client, cfg.FeedURL, providers.DefaultBreakerConfig,
		observability.Component(logger, "fetcher"))

	return warnings.NewCache(fetcher, observability.Component(logger, "cache"), metrics,
		warnings.WithTimeout(cfg.FetchTimeout))
}

// attachRegions creates and attaches one view per valid region. Rejected
// region entries are logged and skipped.
func attachRegions(cfg *config.AppConfig, cache *warnings.Cache, reporter warnings.Reporter, logger zerolog.Logger) []*warnings.RegionView {
	for _, regionErr := range cfg.RegionErrors {
		logger.Error().Err(regionErr).Msg("skipping region")
	}

	views := make([]*warnings.RegionView, 0, len(cfg.Regions))
	for _, r := range cfg.Regions {
		v := warnings.NewRegionView(r.ID, r.Name, reporter)
		v.Attach(cache)
		views = append(views, v)
	}
	return views
}

func detachAll(views []*warnings.RegionView) {
	for _, v := range views {
		v.Detach()
	}
}
