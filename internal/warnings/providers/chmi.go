package providers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// DefaultCHMIURL is the ČHMÚ warnings feed broken down by ORP region.
const DefaultCHMIURL = "https://data.pocasi-data.cz/data/vystrahy/v1/vystrahy-orp-detail.json"

// CHMIFetcher implements warnings.Fetcher for the ČHMÚ feed.
type CHMIFetcher struct {
	name    string
	url     string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

func NewCHMIFetcher(client *http.Client, url string, breaker BreakerConfig, logger zerolog.Logger) *CHMIFetcher {
	if url == "" {
		url = DefaultCHMIURL
	}
	return &CHMIFetcher{
		name:    "chmi",
		url:     url,
		client:  client,
		circuit: newCircuitBreaker("chmi", breaker, logger),
	}
}

func (p *CHMIFetcher) Name() string {
	return p.name
}

func (p *CHMIFetcher) Fetch(ctx context.Context) ([]byte, error) {
	return getWithBreaker(ctx, p.client, p.circuit, p.url)
}
