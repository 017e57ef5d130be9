package models

import "time"

// Snapshot source tiers, in fallback priority order.
const (
	SourceGoogle   = "google"
	SourceYahoo    = "yahoo"
	SourceAlpaca   = "alpaca"
	SourceFallback = "fallback"
)

// Snapshot is a single point-in-time quote for a symbol. Source records
// which provider tier produced it; a Snapshot is immutable once built.
type Snapshot struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Volume        int64     `json:"volume"`
	MarketCap     float64   `json:"market_cap,omitempty"`
	PERatio       float64   `json:"pe_ratio,omitempty"`
	EPS           float64   `json:"eps,omitempty"`
	High52W       float64   `json:"high_52w,omitempty"`
	Low52W        float64   `json:"low_52w,omitempty"`
	Source        string    `json:"source"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// Bar is one OHLCV candle. Timestamp is a millisecond epoch.
// Invariants: High >= max(Open, Close); Low <= min(Open, Close);
// Volume >= 0; timestamps strictly increase within a series.
type Bar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    int64   `json:"volume"`
}

// Time returns the bar's timestamp as a time.Time.
func (b Bar) Time() time.Time {
	return time.UnixMilli(b.Timestamp)
}

// Range52W is the high/low span of a retrieved history window. For periods
// shorter than a year it covers just that window, not a calendar year.
type Range52W struct {
	High float64 `json:"high"`
	Low  float64 `json:"low"`
}

// EnrichedRecord is a Snapshot extended with derived indicator values.
// Indicator fields are nil while the underlying series is still inside its
// warm-up window, so they serialize as null rather than a fake zero.
// Error is set only on batch placeholders (see NewErrorRecord).
type EnrichedRecord struct {
	Snapshot
	SMA20        *float64  `json:"sma_20"`
	SMA50        *float64  `json:"sma_50"`
	SMA200       *float64  `json:"sma_200"`
	RSI14        *float64  `json:"rsi_14"`
	ATR14        *float64  `json:"atr_14"`
	AvgVolume30D float64   `json:"avg_volume_30d"`
	Range52W     *Range52W `json:"range_52w"`
	DayChangePct float64   `json:"day_change_pct"`
	RiskScore    *float64  `json:"risk_score,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// NewErrorRecord builds the placeholder substituted for a symbol whose
// enrichment failed inside a batch: numeric fields zeroed, Error set, and
// the symbol preserved so the batch result stays aligned with its input.
func NewErrorRecord(symbol string, err error) EnrichedRecord {
	rec := EnrichedRecord{}
	rec.Symbol = symbol
	if err != nil {
		rec.Error = err.Error()
	}
	return rec
}

// CacheStats summarizes the live cache contents for the admin endpoint.
type CacheStats struct {
	Size int      `json:"size"`
	Keys []string `json:"keys"`
}

// HistoryPeriod is a provider range token accepted by the history endpoint.
type HistoryPeriod string

const (
	Period1D  HistoryPeriod = "1d"
	Period5D  HistoryPeriod = "5d"
	Period1Mo HistoryPeriod = "1mo"
	Period3Mo HistoryPeriod = "3mo"
	Period6Mo HistoryPeriod = "6mo"
	Period1Y  HistoryPeriod = "1y"
	Period2Y  HistoryPeriod = "2y"
	Period5Y  HistoryPeriod = "5y"
	Period10Y HistoryPeriod = "10y"
	PeriodYTD HistoryPeriod = "ytd"
	PeriodMax HistoryPeriod = "max"
)

// Interval returns the candle interval paired with the period. The table is
// fixed; unrecognized periods map to daily candles.
func (p HistoryPeriod) Interval() string {
	switch p {
	case Period1D:
		return "1m"
	case Period5D:
		return "5m"
	case Period1Mo:
		return "1h"
	case Period3Mo, Period6Mo, Period1Y, Period2Y, Period5Y, Period10Y, PeriodYTD, PeriodMax:
		return "1d"
	default:
		return "1d"
	}
}

// Valid reports whether the period is one of the recognized range tokens.
func (p HistoryPeriod) Valid() bool {
	switch p {
	case Period1D, Period5D, Period1Mo, Period3Mo, Period6Mo,
		Period1Y, Period2Y, Period5Y, Period10Y, PeriodYTD, PeriodMax:
		return true
	}
	return false
}
