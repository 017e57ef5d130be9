package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fundamentals holds the slower-moving valuation figures for a symbol.
// Monetary amounts use decimal to avoid float drift when they are compared
// or re-serialized downstream; PERatio stays a plain ratio.
type Fundamentals struct {
	Symbol     string          `json:"symbol"`
	MarketCap  decimal.Decimal `json:"market_cap"`
	PERatio    float64         `json:"pe_ratio"`
	EPS        decimal.Decimal `json:"eps"`
	Week52High decimal.Decimal `json:"week52_high"`
	Week52Low  decimal.Decimal `json:"week52_low"`
	FetchedAt  time.Time       `json:"fetched_at"`
}
