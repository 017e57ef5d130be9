package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"finsage/models"
)

const yahooQuotePayload = `{
	"quoteResponse": {
		"result": [
			{
				"symbol": "AAPL",
				"regularMarketPrice": 175.50,
				"regularMarketChange": 2.35,
				"regularMarketChangePercent": 1.36,
				"regularMarketVolume": 50250000,
				"marketCap": 2850000000000,
				"trailingPE": 28.5,
				"epsTrailingTwelveMonths": 6.05,
				"fiftyTwoWeekHigh": 199.62,
				"fiftyTwoWeekLow": 164.08
			}
		],
		"error": null
	}
}`

func TestNewYahooService(t *testing.T) {
	service := NewYahooService("")
	if service == nil {
		t.Fatal("NewYahooService should not return nil")
	}
	if service.httpClient == nil {
		t.Error("httpClient should not be nil")
	}
	if service.baseURL != "https://query1.finance.yahoo.com" {
		t.Errorf("baseURL = %v, want 'https://query1.finance.yahoo.com'", service.baseURL)
	}
	if service.Name() != "yahoo" {
		t.Errorf("Name() = %v, want 'yahoo'", service.Name())
	}
}

func TestYahooFetchSnapshot(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v7/finance/quote" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("symbols") != "AAPL" {
			t.Errorf("symbols = %s, want AAPL", r.URL.Query().Get("symbols"))
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(yahooQuotePayload))
	}))
	defer server.Close()

	service := NewYahooService(server.URL)
	snap, err := service.FetchSnapshot(context.Background(), "AAPL")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Symbol != "AAPL" {
		t.Errorf("Symbol = %v, want AAPL", snap.Symbol)
	}
	if snap.Price != 175.50 {
		t.Errorf("Price = %v, want 175.50", snap.Price)
	}
	if snap.Change != 2.35 {
		t.Errorf("Change = %v, want 2.35", snap.Change)
	}
	if snap.Volume != 50250000 {
		t.Errorf("Volume = %v, want 50250000", snap.Volume)
	}
	if snap.PERatio != 28.5 {
		t.Errorf("PERatio = %v, want 28.5", snap.PERatio)
	}
	if snap.Low52W != 164.08 {
		t.Errorf("Low52W = %v, want 164.08", snap.Low52W)
	}
	if snap.Source != "yahoo" {
		t.Errorf("Source = %v, want yahoo", snap.Source)
	}
}

func TestYahooFetchSnapshot_EmptyResultIsNotFound(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quoteResponse": {"result": [], "error": null}}`))
	}))
	defer server.Close()

	service := NewYahooService(server.URL)
	_, err := service.FetchSnapshot(context.Background(), "NOSUCH")

	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestYahooFetchSnapshot_MalformedBodyIsBadFormat(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quoteResponse": {`))
	}))
	defer server.Close()

	service := NewYahooService(server.URL)
	_, err := service.FetchSnapshot(context.Background(), "AAPL")

	if !errors.Is(err, ErrBadFormat) {
		t.Errorf("expected bad-format error, got %v", err)
	}
}

func TestYahooFetchSnapshot_RateLimitIsTransient(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	service := NewYahooService(server.URL)
	_, err := service.FetchSnapshot(context.Background(), "AAPL")

	if !IsTransient(err) {
		t.Errorf("expected transient error for 429, got %v", err)
	}
}

func TestYahooFetchHistory(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v8/finance/chart/AAPL" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		query := r.URL.Query()
		if query.Get("range") != "1y" {
			t.Errorf("range = %s, want 1y", query.Get("range"))
		}
		if query.Get("interval") != "1d" {
			t.Errorf("interval = %s, want 1d", query.Get("interval"))
		}

		w.Write([]byte(`{
			"chart": {
				"result": [
					{
						"timestamp": [1700000000, 1700086400, 1700172800],
						"indicators": {
							"quote": [
								{
									"open":   [100.0, 101.0, 102.0],
									"high":   [105.0, 106.0, 107.0],
									"low":    [99.0, 100.0, 101.0],
									"close":  [104.0, 105.0, 106.0],
									"volume": [1000000, 1100000, 1200000]
								}
							]
						}
					}
				]
			}
		}`))
	}))
	defer server.Close()

	service := NewYahooService(server.URL)
	bars, err := service.FetchHistory(context.Background(), "AAPL", models.Period1Y)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 3 {
		t.Fatalf("got %d bars, want 3", len(bars))
	}
	// Upstream timestamps are seconds; bars carry milliseconds.
	if bars[0].Timestamp != 1700000000000 {
		t.Errorf("Timestamp = %d, want 1700000000000", bars[0].Timestamp)
	}
	if bars[0].Open != 100 || bars[0].High != 105 || bars[0].Low != 99 || bars[0].Close != 104 {
		t.Errorf("bars[0] OHLC = %v/%v/%v/%v, want 100/105/99/104",
			bars[0].Open, bars[0].High, bars[0].Low, bars[0].Close)
	}
	if bars[2].Volume != 1200000 {
		t.Errorf("bars[2].Volume = %d, want 1200000", bars[2].Volume)
	}
}

func TestYahooFetchHistory_IntervalFollowsPeriod(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	var gotInterval string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotInterval = r.URL.Query().Get("interval")
		w.Write([]byte(`{"chart": {"result": [{"timestamp": [1700000000], "indicators": {"quote": [{"open": [1.0], "high": [1.0], "low": [1.0], "close": [1.0], "volume": [1]}]}}]}}`))
	}))
	defer server.Close()

	service := NewYahooService(server.URL)
	if _, err := service.FetchHistory(context.Background(), "AAPL", models.Period5D); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotInterval != "5m" {
		t.Errorf("interval = %s, want 5m for a 5d period", gotInterval)
	}
}

func TestYahooFetchHistory_SkipsNullRows(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"chart": {
				"result": [
					{
						"timestamp": [1700000000, 1700086400, 1700172800],
						"indicators": {
							"quote": [
								{
									"open":   [100.0, null, 102.0],
									"high":   [105.0, 106.0, 107.0],
									"low":    [99.0, 100.0, 101.0],
									"close":  [104.0, 105.0, 106.0],
									"volume": [1000000, 1100000, null]
								}
							]
						}
					}
				]
			}
		}`))
	}))
	defer server.Close()

	service := NewYahooService(server.URL)
	bars, err := service.FetchHistory(context.Background(), "AAPL", models.Period1Y)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 1 {
		t.Fatalf("got %d bars, want 1 after dropping null rows", len(bars))
	}
	if bars[0].Timestamp != 1700000000000 {
		t.Errorf("surviving bar timestamp = %d, want 1700000000000", bars[0].Timestamp)
	}
}

func TestYahooFetchHistory_EmptyResultIsNotFound(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart": {"result": []}}`))
	}))
	defer server.Close()

	service := NewYahooService(server.URL)
	_, err := service.FetchHistory(context.Background(), "NOSUCH", models.Period1Y)

	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestYahooFetchHistory_MissingSeriesIsBadFormat(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart": {"result": [{"timestamp": [], "indicators": {"quote": []}}]}}`))
	}))
	defer server.Close()

	service := NewYahooService(server.URL)
	_, err := service.FetchHistory(context.Background(), "AAPL", models.Period1Y)

	if !errors.Is(err, ErrBadFormat) {
		t.Errorf("expected bad-format error, got %v", err)
	}
}

func TestYahooFetchFundamentals(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(yahooQuotePayload))
	}))
	defer server.Close()

	service := NewYahooService(server.URL)
	fundamentals, err := service.FetchFundamentals(context.Background(), "AAPL")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fundamentals.Symbol != "AAPL" {
		t.Errorf("Symbol = %v, want AAPL", fundamentals.Symbol)
	}
	if !fundamentals.MarketCap.Equal(decimal.NewFromInt(2850000000000)) {
		t.Errorf("MarketCap = %v, want 2850000000000", fundamentals.MarketCap)
	}
	if fundamentals.PERatio != 28.5 {
		t.Errorf("PERatio = %v, want 28.5", fundamentals.PERatio)
	}
	if !fundamentals.Week52High.Equal(decimal.NewFromFloat(199.62)) {
		t.Errorf("Week52High = %v, want 199.62", fundamentals.Week52High)
	}
	if fundamentals.FetchedAt.IsZero() {
		t.Error("FetchedAt should be set")
	}
}
