package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"finsage/cache"
	"finsage/config"
	"finsage/market"
	"finsage/models"
	"finsage/observability"
	"finsage/services"
)

var rootCmd = &cobra.Command{
	Use:   "finsage",
	Short: "Market data acquisition and technical indicator pipeline",
	Long: `FinSage fetches stock quotes through a multi-tier provider fallback,
retrieves OHLCV history, computes technical indicators (SMA, RSI, ATR),
and serves the enriched data over a REST API.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildMarketService assembles the provider chain, caches, and pipeline
// service from configuration. Shared by the server and the one-shot
// CLI commands.
func buildMarketService(cfg *config.Config) (*market.Service, error) {
	quotes := cache.NewTTLCache(cfg.QuoteTTL())
	data := cache.NewBoundedCache(cfg.Cache.DataCapacity, cfg.DataTTL())

	google := services.NewGoogleService(cfg.Providers.GoogleBaseURL)
	yahoo := services.NewYahooService(cfg.Providers.YahooBaseURL)

	providers := []services.SnapshotProvider{google, yahoo}
	if cfg.HasAlpaca() {
		providers = append(providers, services.NewAlpacaService(cfg.Providers.Alpaca.APIKey, cfg.Providers.Alpaca.APISecret, ""))
	} else {
		observability.Info("Alpaca credentials not set, snapshot chain runs without the alpaca tier")
	}

	defaults := make(map[string]float64, len(services.DefaultPrices))
	for symbol, price := range services.DefaultPrices {
		defaults[symbol] = price
	}
	table, err := cfg.LoadPriceTable()
	if err != nil {
		return nil, err
	}
	for symbol, price := range table {
		defaults[symbol] = price
	}

	chain := services.NewSnapshotChain(quotes, defaults, providers...)

	svc := market.New(market.Options{
		Snapshots:    chain,
		History:      yahoo,
		Fundamentals: yahoo,
		QuoteCache:   quotes,
		DataCache:    data,
		Retry: services.RetryConfig{
			MaxRetries:     cfg.Retry.MaxRetries,
			InitialBackoff: cfg.RetryBackoff(),
			MaxBackoff:     services.DefaultRetryConfig.MaxBackoff,
		},
		HistoryPeriod:    models.HistoryPeriod(cfg.Market.HistoryPeriod),
		BatchConcurrency: cfg.Market.BatchConcurrency,
	})
	return svc, nil
}
