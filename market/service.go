// Package market orchestrates the data pipeline: snapshots through the
// fallback chain, history through the retry wrapper and data cache, and
// enrichment that layers indicator values onto snapshots.
package market

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"finsage/cache"
	"finsage/indicators"
	"finsage/models"
	"finsage/observability"
	"finsage/risk"
	"finsage/services"
)

// SnapshotSource yields a snapshot for any symbol without failing; the
// fallback chain is the production implementation.
type SnapshotSource interface {
	GetSnapshot(ctx context.Context, symbol string) *models.Snapshot
}

// Options wires a Service. Caches are injected so callers share them
// with the sweep job and the admin endpoints; nil caches get private
// defaults, which is what unit tests want.
type Options struct {
	Snapshots    SnapshotSource
	History      services.HistoryProvider
	Fundamentals services.FundamentalsProvider

	QuoteCache *cache.TTLCache
	DataCache  *cache.BoundedCache

	Retry            services.RetryConfig
	Risk             *risk.Scorer
	HistoryPeriod    models.HistoryPeriod
	BatchConcurrency int
}

// Service is the facade the HTTP handlers and CLI commands call.
type Service struct {
	snapshots    SnapshotSource
	history      services.HistoryProvider
	fundamentals services.FundamentalsProvider

	quoteCache *cache.TTLCache
	dataCache  *cache.BoundedCache

	retry            services.RetryConfig
	risk             *risk.Scorer
	historyPeriod    models.HistoryPeriod
	batchConcurrency int
}

// New builds a Service, filling unset options with defaults.
func New(opts Options) *Service {
	if opts.Retry == (services.RetryConfig{}) {
		opts.Retry = services.DefaultRetryConfig
	}
	if opts.HistoryPeriod == "" {
		opts.HistoryPeriod = models.Period1Y
	}
	if opts.BatchConcurrency < 1 {
		opts.BatchConcurrency = 1
	}
	if opts.Risk == nil {
		opts.Risk = risk.NewScorer()
	}
	if opts.QuoteCache == nil {
		opts.QuoteCache = cache.NewTTLCache(services.DefaultQuoteTTL)
	}
	if opts.DataCache == nil {
		opts.DataCache = cache.NewBoundedCache(services.DefaultDataCapacity, services.DefaultDataTTL)
	}

	return &Service{
		snapshots:        opts.Snapshots,
		history:          opts.History,
		fundamentals:     opts.Fundamentals,
		quoteCache:       opts.QuoteCache,
		dataCache:        opts.DataCache,
		retry:            opts.Retry,
		risk:             opts.Risk,
		historyPeriod:    opts.HistoryPeriod,
		batchConcurrency: opts.BatchConcurrency,
	}
}

// GetSnapshot returns a snapshot for symbol. It never fails; in the
// worst case the chain serves its static default.
func (s *Service) GetSnapshot(ctx context.Context, symbol string) *models.Snapshot {
	return s.snapshots.GetSnapshot(ctx, symbol)
}

// GetHistory returns OHLCV bars for the period, consulting the data
// cache first and retrying transient provider failures.
func (s *Service) GetHistory(ctx context.Context, symbol string, period models.HistoryPeriod) ([]models.Bar, error) {
	if period == "" {
		period = s.historyPeriod
	}
	metrics := observability.GetMetrics()
	key := "history:" + symbol + ":" + string(period)

	if cached, ok := s.dataCache.Get(key); ok {
		metrics.RecordCacheHit("data")
		return cached.([]models.Bar), nil
	}
	metrics.RecordCacheMiss("data")

	label := providerLabel(s.history)
	metrics.RecordProviderRequest(label, "history")
	timer := metrics.NewTimer()

	var bars []models.Bar
	err := services.WithRetry(ctx, s.retry, func() error {
		fetched, err := s.history.FetchHistory(ctx, symbol, period)
		if err != nil {
			return err
		}
		bars = fetched
		return nil
	})
	timer.ObserveProvider(label, "history")
	if err != nil {
		metrics.RecordProviderError(label, "history", services.ErrorClass(err))
		return nil, err
	}

	s.dataCache.Set(key, bars)
	return bars, nil
}

// GetEnrichedSnapshot combines a snapshot with indicator values computed
// over the service's default history window. Unlike GetSnapshot this can
// fail: enrichment without history would report misleading nulls for
// indicators the caller expects.
func (s *Service) GetEnrichedSnapshot(ctx context.Context, symbol string) (models.EnrichedRecord, error) {
	snap := s.GetSnapshot(ctx, symbol)

	bars, err := s.GetHistory(ctx, symbol, s.historyPeriod)
	if err != nil {
		return models.EnrichedRecord{}, fmt.Errorf("enrich %s: %w", symbol, err)
	}

	return s.enrich(snap, bars), nil
}

func (s *Service) enrich(snap *models.Snapshot, bars []models.Bar) models.EnrichedRecord {
	closes := indicators.Closes(bars)

	rec := models.EnrichedRecord{Snapshot: *snap}
	rec.SMA20 = latestPtr(indicators.SMA(closes, 20))
	rec.SMA50 = latestPtr(indicators.SMA(closes, 50))
	rec.SMA200 = latestPtr(indicators.SMA(closes, 200))
	rec.RSI14 = latestPtr(indicators.RSI(closes, indicators.DefaultRSIPeriod))
	rec.ATR14 = latestPtr(indicators.ATR(bars, indicators.DefaultATRPeriod))
	rec.AvgVolume30D = avgVolume(bars, 30)
	rec.Range52W = rangeOf(bars)
	rec.DayChangePct = snap.ChangePercent

	// No risk score until RSI leaves its warm-up window; a score built
	// purely from defaults would say nothing about the symbol.
	if rec.RSI14 != nil {
		in := risk.DefaultInput()
		in.RSI = *rec.RSI14
		if snap.PERatio != 0 {
			in.PE = snap.PERatio
		}
		if rec.ATR14 != nil {
			in.ATR = *rec.ATR14
		}
		score := s.risk.Score(in)
		rec.RiskScore = &score
		observability.GetMetrics().RecordRiskScore(risk.ModelVersion, score)
	}

	return rec
}

// GetMultipleSnapshots enriches each symbol, substituting a placeholder
// record for failures so one bad symbol never sinks the batch. Order of
// results matches the input order.
func (s *Service) GetMultipleSnapshots(ctx context.Context, symbols []string) []models.EnrichedRecord {
	timer := observability.GetMetrics().NewTimer()
	defer timer.ObserveBatch()

	results := make([]models.EnrichedRecord, len(symbols))

	if s.batchConcurrency <= 1 {
		for i, symbol := range symbols {
			results[i] = s.enrichOne(ctx, symbol)
		}
		return results
	}

	sem := make(chan struct{}, s.batchConcurrency)
	var wg sync.WaitGroup
	for i, symbol := range symbols {
		sem <- struct{}{}
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = s.enrichOne(ctx, symbol)
		}(i, symbol)
	}
	wg.Wait()

	return results
}

func (s *Service) enrichOne(ctx context.Context, symbol string) models.EnrichedRecord {
	rec, err := s.GetEnrichedSnapshot(ctx, symbol)
	if err != nil {
		observability.WithSymbol(symbol).Warn("batch enrichment failed, substituting placeholder",
			"error", err)
		observability.GetMetrics().RecordBatchSymbol("error")
		return models.NewErrorRecord(symbol, err)
	}
	observability.GetMetrics().RecordBatchSymbol("ok")
	return rec
}

// GetFundamentals returns valuation figures, cached alongside history in
// the bounded data cache.
func (s *Service) GetFundamentals(ctx context.Context, symbol string) (*models.Fundamentals, error) {
	metrics := observability.GetMetrics()
	key := "fundamentals:" + symbol

	if cached, ok := s.dataCache.Get(key); ok {
		metrics.RecordCacheHit("data")
		return cached.(*models.Fundamentals), nil
	}
	metrics.RecordCacheMiss("data")

	label := providerLabel(s.fundamentals)
	metrics.RecordProviderRequest(label, "fundamentals")
	timer := metrics.NewTimer()

	var fundamentals *models.Fundamentals
	err := services.WithRetry(ctx, s.retry, func() error {
		fetched, err := s.fundamentals.FetchFundamentals(ctx, symbol)
		if err != nil {
			return err
		}
		fundamentals = fetched
		return nil
	})
	timer.ObserveProvider(label, "fundamentals")
	if err != nil {
		metrics.RecordProviderError(label, "fundamentals", services.ErrorClass(err))
		return nil, err
	}

	s.dataCache.Set(key, fundamentals)
	return fundamentals, nil
}

// ClearCache empties both caches and returns how many entries they held.
func (s *Service) ClearCache() int {
	removed := s.quoteCache.Len() + s.dataCache.Len()
	s.quoteCache.Clear()
	s.dataCache.Clear()
	observability.Info("caches cleared", "entries_removed", removed)
	return removed
}

// CacheStats reports the combined contents of both caches, keys sorted
// for stable output.
func (s *Service) CacheStats() models.CacheStats {
	keys := append(s.quoteCache.Keys(), s.dataCache.Keys()...)
	sort.Strings(keys)
	return models.CacheStats{
		Size: len(keys),
		Keys: keys,
	}
}

// QuoteCache exposes the injected quote cache for the sweep job.
func (s *Service) QuoteCache() *cache.TTLCache {
	return s.quoteCache
}

// DataCache exposes the injected data cache for the sweep job.
func (s *Service) DataCache() *cache.BoundedCache {
	return s.dataCache
}

func latestPtr(series []float64) *float64 {
	v := indicators.Latest(series)
	if indicators.IsMarker(v) {
		return nil
	}
	return &v
}

// avgVolume averages volume over the trailing n bars, or the whole
// window when shorter.
func avgVolume(bars []models.Bar, n int) float64 {
	if len(bars) == 0 {
		return 0
	}
	start := len(bars) - n
	if start < 0 {
		start = 0
	}
	window := bars[start:]
	var sum float64
	for _, b := range window {
		sum += float64(b.Volume)
	}
	return sum / float64(len(window))
}

// rangeOf spans the whole retrieved window. For windows shorter than a
// year the "52 week" range is really the window's range; callers accept
// that approximation.
func rangeOf(bars []models.Bar) *models.Range52W {
	if len(bars) == 0 {
		return nil
	}
	r := &models.Range52W{High: bars[0].High, Low: bars[0].Low}
	for _, b := range bars[1:] {
		if b.High > r.High {
			r.High = b.High
		}
		if b.Low < r.Low {
			r.Low = b.Low
		}
	}
	return r
}

func providerLabel(p any) string {
	if named, ok := p.(interface{ Name() string }); ok {
		return named.Name()
	}
	return "unknown"
}
