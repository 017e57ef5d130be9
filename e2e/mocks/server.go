// Package mocks provides an HTTP mock server standing in for the upstream
// quote APIs during end-to-end tests.
package mocks

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// baseTimestamp anchors generated bar series at 2024-01-02 00:00 UTC.
const baseTimestamp int64 = 1704153600

// MockServer serves configurable responses for the Google-style JSONP
// quote endpoint and the Yahoo-style quote and chart endpoints. Unknown
// symbols get well-formed empty payloads, the same shape the live
// endpoints produce, so not-found classification is exercised for real.
type MockServer struct {
	mu     sync.RWMutex
	server *httptest.Server

	googleQuotes map[string]GoogleQuote
	yahooQuotes  map[string]YahooQuote
	yahooBars    map[string][]ChartBar

	// Error injection: a non-zero status short-circuits the endpoint.
	googleStatus     int
	yahooQuoteStatus int
	yahooChartStatus int

	requestLog []RequestLog
}

// RequestLog records one incoming request for test assertions.
type RequestLog struct {
	Method string
	Path   string
	Query  string
}

// NewMockServer starts a mock server seeded with default data for AAPL
// and MSFT. Callers must Close it.
func NewMockServer() *MockServer {
	m := &MockServer{
		googleQuotes: make(map[string]GoogleQuote),
		yahooQuotes:  make(map[string]YahooQuote),
		yahooBars:    make(map[string][]ChartBar),
		requestLog:   make([]RequestLog, 0),
	}
	m.setDefaults()
	m.server = httptest.NewServer(m)
	return m
}

func (m *MockServer) setDefaults() {
	m.googleQuotes["AAPL"] = GoogleQuote{
		Symbol:        "AAPL",
		LastPrice:     "189.84",
		Change:        "+1.23",
		ChangePercent: "0.65",
		Volume:        "54.3M",
		MarketCap:     "2.95T",
		PERatio:       "29.4",
		EPS:           "6.46",
		High52W:       "199.62",
		Low52W:        "164.08",
	}
	m.googleQuotes["MSFT"] = GoogleQuote{
		Symbol:        "MSFT",
		LastPrice:     "411.22",
		Change:        "-2.10",
		ChangePercent: "-0.51",
		Volume:        "21.7M",
		MarketCap:     "3.06T",
		PERatio:       "35.1",
		EPS:           "11.71",
		High52W:       "430.82",
		Low52W:        "309.45",
	}
	m.yahooQuotes["AAPL"] = YahooQuote{
		Symbol:                     "AAPL",
		RegularMarketPrice:         190.12,
		RegularMarketChange:        1.51,
		RegularMarketChangePercent: 0.80,
		RegularMarketVolume:        54300000,
		MarketCap:                  2.95e12,
		TrailingPE:                 29.4,
		EPSTrailingTwelveMonths:    6.46,
		FiftyTwoWeekHigh:           199.62,
		FiftyTwoWeekLow:            164.08,
	}
	m.yahooQuotes["MSFT"] = YahooQuote{
		Symbol:                     "MSFT",
		RegularMarketPrice:         410.80,
		RegularMarketChange:        -2.52,
		RegularMarketChangePercent: -0.61,
		RegularMarketVolume:        21700000,
		MarketCap:                  3.06e12,
		TrailingPE:                 35.1,
		EPSTrailingTwelveMonths:    11.71,
		FiftyTwoWeekHigh:           430.82,
		FiftyTwoWeekLow:            309.45,
	}
	m.yahooBars["AAPL"] = DailyUptrend(300, 100.0, 0.5)
	m.yahooBars["MSFT"] = DailyUptrend(300, 300.0, 0.25)
}

// DailyUptrend generates n daily bars with strictly increasing closes:
// close_i = start + i*step, open one below close, high one above, low two
// below, constant volume. The shape makes indicator outputs predictable
// (RSI pegs at 100, true range is a constant 3 units once warm).
func DailyUptrend(n int, start, step float64) []ChartBar {
	bars := make([]ChartBar, n)
	for i := range bars {
		c := start + float64(i)*step
		bars[i] = ChartBar{
			Timestamp: baseTimestamp + int64(i)*86400,
			Open:      c - 1,
			High:      c + 1,
			Low:       c - 2,
			Close:     c,
			Volume:    1_000_000,
		}
	}
	return bars
}

// URL returns the mock server's base URL.
func (m *MockServer) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockServer) Close() {
	m.server.Close()
}

// ServeHTTP routes requests to the endpoint handlers and logs them.
func (m *MockServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requestLog = append(m.requestLog, RequestLog{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
	})
	m.mu.Unlock()

	path := r.URL.Path
	switch {
	case strings.HasSuffix(path, "/info"):
		m.handleGoogle(w, r)
	case strings.HasPrefix(path, "/v7/finance/quote"):
		m.handleYahooQuote(w, r)
	case strings.HasPrefix(path, "/v8/finance/chart/"):
		m.handleYahooChart(w, r)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// handleGoogle emits the JSONP-era payload: a comment prefix wrapping a
// JSON array. Unknown symbols produce an empty array.
func (m *MockServer) handleGoogle(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	status := m.googleStatus
	q, ok := m.googleQuotes[r.URL.Query().Get("q")]
	m.mu.RUnlock()

	if status != 0 {
		http.Error(w, "injected failure", status)
		return
	}

	quotes := []GoogleQuote{}
	if ok {
		quotes = append(quotes, q)
	}
	payload, _ := json.Marshal(quotes)
	fmt.Fprintf(w, "\n// %s", payload)
}

func (m *MockServer) handleYahooQuote(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	status := m.yahooQuoteStatus
	q, ok := m.yahooQuotes[r.URL.Query().Get("symbols")]
	m.mu.RUnlock()

	if status != 0 {
		http.Error(w, "injected failure", status)
		return
	}

	var envelope yahooQuoteEnvelope
	envelope.QuoteResponse.Result = []YahooQuote{}
	if ok {
		envelope.QuoteResponse.Result = append(envelope.QuoteResponse.Result, q)
	}
	json.NewEncoder(w).Encode(envelope)
}

func (m *MockServer) handleYahooChart(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimPrefix(r.URL.Path, "/v8/finance/chart/")

	m.mu.RLock()
	status := m.yahooChartStatus
	bars, ok := m.yahooBars[symbol]
	m.mu.RUnlock()

	if status != 0 {
		http.Error(w, "injected failure", status)
		return
	}

	var envelope yahooChartEnvelope
	envelope.Chart.Result = []yahooChartResult{}
	if ok {
		result := yahooChartResult{Timestamp: make([]int64, 0, len(bars))}
		quote := yahooChartQuote{}
		for _, b := range bars {
			result.Timestamp = append(result.Timestamp, b.Timestamp)
			quote.Open = append(quote.Open, b.Open)
			quote.High = append(quote.High, b.High)
			quote.Low = append(quote.Low, b.Low)
			quote.Close = append(quote.Close, b.Close)
			quote.Volume = append(quote.Volume, b.Volume)
		}
		result.Indicators.Quote = []yahooChartQuote{quote}
		envelope.Chart.Result = append(envelope.Chart.Result, result)
	}
	json.NewEncoder(w).Encode(envelope)
}

// SetGoogleStatus makes the JSONP endpoint return the given HTTP status.
// Zero restores normal behavior.
func (m *MockServer) SetGoogleStatus(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.googleStatus = status
}

// SetYahooQuoteStatus makes the quote endpoint return the given HTTP
// status. Zero restores normal behavior.
func (m *MockServer) SetYahooQuoteStatus(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.yahooQuoteStatus = status
}

// SetYahooChartStatus makes the chart endpoint return the given HTTP
// status. Zero restores normal behavior.
func (m *MockServer) SetYahooChartStatus(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.yahooChartStatus = status
}

// SetYahooBars replaces the chart series served for a symbol.
func (m *MockServer) SetYahooBars(symbol string, bars []ChartBar) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.yahooBars[symbol] = bars
}

// CountRequests returns how many logged requests have paths containing
// substr.
func (m *MockServer) CountRequests(substr string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, entry := range m.requestLog {
		if strings.Contains(entry.Path, substr) {
			n++
		}
	}
	return n
}

// GetRequestLog returns a copy of all logged requests.
func (m *MockServer) GetRequestLog() []RequestLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]RequestLog{}, m.requestLog...)
}

// ClearRequestLog clears the request log.
func (m *MockServer) ClearRequestLog() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestLog = m.requestLog[:0]
}
