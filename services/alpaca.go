package services

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"finsage/models"
)

// AlpacaService fetches snapshots from the Alpaca market data API. It is
// an optional third tier of the fallback chain, enabled only when API
// credentials are configured.
type AlpacaService struct {
	dataClient *marketdata.Client
}

// NewAlpacaService creates a new AlpacaService instance. An empty baseURL
// selects the production data endpoint; tests point it at a local server.
func NewAlpacaService(apiKey, apiSecret, baseURL string) *AlpacaService {
	dataClient := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	})

	return &AlpacaService{
		dataClient: dataClient,
	}
}

// Name identifies the provider in logs, metrics, and errors.
func (s *AlpacaService) Name() string {
	return models.SourceAlpaca
}

// FetchSnapshot retrieves the latest snapshot for a symbol. SDK failures
// are reported as transient; an unknown symbol surfaces as a snapshot
// with no trade or daily bar.
func (s *AlpacaService) FetchSnapshot(ctx context.Context, symbol string) (*models.Snapshot, error) {
	return WithCircuitBreaker(ctx, BreakerAlpaca, func() (*models.Snapshot, error) {
		snap, err := s.dataClient.GetSnapshot(symbol, marketdata.GetSnapshotRequest{})
		if err != nil {
			return nil, NewProviderError(s.Name(), symbol, fmt.Errorf("%w: %v", ErrTransient, err))
		}
		if snap == nil || snap.LatestTrade == nil || snap.DailyBar == nil {
			return nil, NewProviderError(s.Name(), symbol, fmt.Errorf("%w: no market data", ErrNotFound))
		}

		price := snap.LatestTrade.Price
		var change, changePct float64
		if snap.PrevDailyBar != nil && snap.PrevDailyBar.Close != 0 {
			change = price - snap.PrevDailyBar.Close
			changePct = change / snap.PrevDailyBar.Close * 100
		}

		return &models.Snapshot{
			Symbol:        symbol,
			Price:         price,
			Change:        change,
			ChangePercent: changePct,
			Volume:        int64(snap.DailyBar.Volume),
			Source:        models.SourceAlpaca,
			FetchedAt:     time.Now().UTC(),
		}, nil
	})
}
