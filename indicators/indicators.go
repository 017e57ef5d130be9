// Package indicators implements the technical indicator math used to
// enrich quote responses: simple moving averages, Wilder's relative
// strength index, and Wilder's average true range.
//
// Every function returns a series the same length as its input. Indices
// inside the warm-up window hold NaN rather than a value; test for it with
// IsMarker, never with ==. Insufficient data is never an error.
package indicators

import (
	"math"

	"finsage/models"
)

// Default lookback periods for the oscillator and volatility indicators.
const (
	DefaultRSIPeriod = 14
	DefaultATRPeriod = 14
)

// IsMarker reports whether v is the "not yet available" marker.
func IsMarker(v float64) bool {
	return math.IsNaN(v)
}

// SMA returns the arithmetic mean over a trailing window of period prices.
// The first period-1 entries are markers; if the series is shorter than
// the period (or the period is not positive), every entry is a marker.
func SMA(prices []float64, period int) []float64 {
	out := markers(len(prices))
	if period <= 0 || len(prices) < period {
		return out
	}

	var sum float64
	for i, p := range prices {
		sum += p
		if i >= period {
			sum -= prices[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// RSI returns Wilder's momentum oscillator over per-step price deltas.
// The seed value at index period averages the first period gains and
// losses; later values apply Wilder smoothing. Output is always within
// [0,100], and the first period entries are markers.
func RSI(prices []float64, period int) []float64 {
	out := markers(len(prices))
	if period <= 0 || len(prices) <= period {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		delta := prices[i] - prices[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss += -delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(prices); i++ {
		delta := prices[i] - prices[i-1]
		var gain, loss float64
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

// rsiValue is 100 exactly when the smoothed loss is zero.
func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// ATR returns Wilder's average true range. The seed value at index period
// is the simple mean of the first period true ranges; later values apply
// Wilder smoothing. Output is non-negative for bars honoring the OHLC
// invariants, and the first period entries are markers.
func ATR(bars []models.Bar, period int) []float64 {
	out := markers(len(bars))
	if period <= 0 || len(bars) <= period {
		return out
	}

	var sum float64
	for i := 1; i <= period; i++ {
		sum += trueRange(bars[i], bars[i-1].Close)
	}
	atr := sum / float64(period)
	out[period] = atr

	for i := period + 1; i < len(bars); i++ {
		tr := trueRange(bars[i], bars[i-1].Close)
		atr = (atr*float64(period-1) + tr) / float64(period)
		out[i] = atr
	}
	return out
}

// trueRange covers the bar's own spread plus any gap from the prior close.
func trueRange(b models.Bar, prevClose float64) float64 {
	hl := b.High - b.Low
	hc := math.Abs(b.High - prevClose)
	lc := math.Abs(b.Low - prevClose)
	return math.Max(hl, math.Max(hc, lc))
}

// Latest scans from the end and returns the last non-marker entry, or the
// marker itself if the whole series is still warming up.
func Latest(series []float64) float64 {
	for i := len(series) - 1; i >= 0; i-- {
		if !IsMarker(series[i]) {
			return series[i]
		}
	}
	return math.NaN()
}

// Closes extracts the closing-price series from a bar window.
func Closes(bars []models.Bar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

// AllIndicators bundles the three series computed from one bar window.
// Each series is aligned index-for-index with the input bars.
type AllIndicators struct {
	SMA []float64
	RSI []float64
	ATR []float64
}

// CalculateAll computes SMA, RSI, and ATR over one bar window.
func CalculateAll(bars []models.Bar, smaPeriod, rsiPeriod, atrPeriod int) AllIndicators {
	closes := Closes(bars)
	return AllIndicators{
		SMA: SMA(closes, smaPeriod),
		RSI: RSI(closes, rsiPeriod),
		ATR: ATR(bars, atrPeriod),
	}
}

func markers(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
