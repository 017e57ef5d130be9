package services

import (
	"context"
	"errors"
	"time"

	"finsage/cache"
	"finsage/models"
	"finsage/observability"
)

// GenericDefaultPrice backs the last-resort snapshot for symbols absent
// from the default price table.
const GenericDefaultPrice = 100.0

// Default cache sizing. Quotes go stale in about a minute; history and
// fundamentals windows live longer but are bounded because each entry
// can hold a year of bars.
const (
	DefaultQuoteTTL     = 1 * time.Minute
	DefaultDataTTL      = 30 * time.Minute
	DefaultDataCapacity = 128
)

// DefaultPrices seeds the last-resort tier with plausible prices for
// common symbols. Deployments overlay this from a config file.
var DefaultPrices = map[string]float64{
	"AAPL":  175.0,
	"MSFT":  380.0,
	"GOOGL": 140.0,
	"AMZN":  155.0,
	"NVDA":  480.0,
	"META":  350.0,
	"TSLA":  250.0,
	"SPY":   450.0,
	"QQQ":   390.0,
}

// ErrorClass maps a provider failure to its metrics label.
func ErrorClass(err error) string {
	switch {
	case errors.Is(err, ErrTransient):
		return "transient"
	case errors.Is(err, ErrBadFormat):
		return "bad_format"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "other"
	}
}

// SnapshotChain walks snapshot providers in priority order and degrades
// to a static default when every tier fails. GetSnapshot therefore never
// returns an error; callers inspect Source to see how far it fell.
type SnapshotChain struct {
	providers []SnapshotProvider
	defaults  map[string]float64
	quotes    *cache.TTLCache
}

// NewSnapshotChain builds a chain over the given providers, consulted in
// order. defaults may be nil, in which case only the generic price backs
// the last-resort tier.
func NewSnapshotChain(quotes *cache.TTLCache, defaults map[string]float64, providers ...SnapshotProvider) *SnapshotChain {
	return &SnapshotChain{
		providers: providers,
		defaults:  defaults,
		quotes:    quotes,
	}
}

// GetSnapshot returns a snapshot for symbol, always. Each tier's output,
// the static default included, is cached under the same key so repeat
// requests inside the TTL window skip the provider walk entirely.
// Concurrent misses on the same key are not coalesced; each walks the
// chain and the last write wins.
func (c *SnapshotChain) GetSnapshot(ctx context.Context, symbol string) *models.Snapshot {
	metrics := observability.GetMetrics()
	cacheKey := "quote:" + symbol

	if cached, ok := c.quotes.Get(cacheKey); ok {
		metrics.RecordCacheHit("quote")
		return cached.(*models.Snapshot)
	}
	metrics.RecordCacheMiss("quote")

	for _, p := range c.providers {
		metrics.RecordProviderRequest(p.Name(), "snapshot")
		timer := metrics.NewTimer()
		snap, err := p.FetchSnapshot(ctx, symbol)
		timer.ObserveProvider(p.Name(), "snapshot")
		if err != nil {
			observability.Warn("snapshot provider failed, falling through",
				"provider", p.Name(),
				"symbol", symbol,
				"error", err)
			metrics.RecordProviderError(p.Name(), "snapshot", ErrorClass(err))
			continue
		}

		metrics.RecordSnapshotSource(p.Name())
		c.quotes.Set(cacheKey, snap)
		return snap
	}

	snap := c.defaultSnapshot(symbol)
	observability.WithSymbol(symbol).Warn("all snapshot providers failed, serving static default",
		"price", snap.Price)
	metrics.RecordSnapshotSource(models.SourceFallback)
	c.quotes.Set(cacheKey, snap)
	return snap
}

// defaultSnapshot fabricates the last-resort snapshot. Price comes from
// the default table when the symbol is known; everything else is zero so
// the Source field is the only claim the data makes.
func (c *SnapshotChain) defaultSnapshot(symbol string) *models.Snapshot {
	price := GenericDefaultPrice
	if p, ok := c.defaults[symbol]; ok {
		price = p
	}
	return &models.Snapshot{
		Symbol:    symbol,
		Price:     price,
		Source:    models.SourceFallback,
		FetchedAt: time.Now().UTC(),
	}
}
