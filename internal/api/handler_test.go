package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"finsage/config"
	"finsage/models"
	"finsage/risk"
	"finsage/services"
)

// fakeMarket is a hand-rolled MarketService for handler tests
type fakeMarket struct {
	mu              sync.Mutex
	snapshots       map[string]*models.Snapshot
	records         map[string]models.EnrichedRecord
	bars            map[string][]models.Bar
	funds           map[string]*models.Fundamentals
	enrichErr       error
	historyErr      error
	fundamentalsErr error
	cleared         int
	stats           models.CacheStats
	lastPeriod      models.HistoryPeriod
	batchSymbols    []string
}

var _ MarketService = (*fakeMarket)(nil)

func (f *fakeMarket) GetSnapshot(ctx context.Context, symbol string) *models.Snapshot {
	if snap, ok := f.snapshots[symbol]; ok {
		return snap
	}
	return &models.Snapshot{Symbol: symbol, Price: 100, Source: models.SourceFallback}
}

func (f *fakeMarket) GetHistory(ctx context.Context, symbol string, period models.HistoryPeriod) ([]models.Bar, error) {
	f.mu.Lock()
	f.lastPeriod = period
	f.mu.Unlock()
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.bars[symbol], nil
}

func (f *fakeMarket) GetEnrichedSnapshot(ctx context.Context, symbol string) (models.EnrichedRecord, error) {
	if f.enrichErr != nil {
		return models.EnrichedRecord{}, f.enrichErr
	}
	if rec, ok := f.records[symbol]; ok {
		return rec, nil
	}
	rec := models.EnrichedRecord{}
	rec.Symbol = symbol
	rec.Price = 100
	return rec, nil
}

func (f *fakeMarket) GetMultipleSnapshots(ctx context.Context, symbols []string) []models.EnrichedRecord {
	f.mu.Lock()
	f.batchSymbols = append([]string(nil), symbols...)
	f.mu.Unlock()
	records := make([]models.EnrichedRecord, len(symbols))
	for i, symbol := range symbols {
		rec, _ := f.GetEnrichedSnapshot(ctx, symbol)
		records[i] = rec
	}
	return records
}

func (f *fakeMarket) GetFundamentals(ctx context.Context, symbol string) (*models.Fundamentals, error) {
	if f.fundamentalsErr != nil {
		return nil, f.fundamentalsErr
	}
	if fund, ok := f.funds[symbol]; ok {
		return fund, nil
	}
	return &models.Fundamentals{Symbol: symbol}, nil
}

func (f *fakeMarket) ClearCache() int {
	return f.cleared
}

func (f *fakeMarket) CacheStats() models.CacheStats {
	return f.stats
}

// testConfig returns a test configuration
func testConfig() *config.Config {
	return config.NewTestConfig()
}

// testHandler creates a Handler backed by the fake market
func testHandler(m MarketService) *Handler {
	return NewHandler(m, risk.NewDeterministicScorer(), testConfig())
}

// testRouter creates a Chi router backed by the fake market
func testRouter(m MarketService) http.Handler {
	cfg := testConfig()
	handler := NewHandler(m, risk.NewDeterministicScorer(), cfg)
	return NewRouter(handler, cfg)
}

func floatPtr(v float64) *float64 { return &v }

func TestHandler_Health(t *testing.T) {
	services.SetGlobalRegistry(services.NewCircuitBreakerRegistry(services.DefaultCircuitBreakerConfig))
	router := testRouter(&fakeMarket{})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if status, ok := response["status"].(string); !ok || status != "ok" {
		t.Errorf("expected status ok, got %v", response["status"])
	}
	if _, ok := response["circuit_breakers"]; !ok {
		t.Error("expected circuit_breakers in health response")
	}
}

func TestHandler_GetSnapshot(t *testing.T) {
	t.Run("returns snapshot for any valid symbol", func(t *testing.T) {
		m := &fakeMarket{snapshots: map[string]*models.Snapshot{
			"AAPL": {Symbol: "AAPL", Price: 175.50, Source: models.SourceGoogle},
		}}
		router := testRouter(m)

		req := httptest.NewRequest(http.MethodGet, "/api/snapshot/AAPL", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}

		var snap models.Snapshot
		if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if snap.Symbol != "AAPL" || snap.Price != 175.50 || snap.Source != "google" {
			t.Errorf("unexpected snapshot: %+v", snap)
		}
	})

	t.Run("lowercase symbol is normalized", func(t *testing.T) {
		router := testRouter(&fakeMarket{})

		req := httptest.NewRequest(http.MethodGet, "/api/snapshot/aapl", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}

		var snap models.Snapshot
		if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if snap.Symbol != "AAPL" {
			t.Errorf("expected symbol AAPL, got %s", snap.Symbol)
		}
	})

	t.Run("invalid symbol", func(t *testing.T) {
		router := testRouter(&fakeMarket{})

		req := httptest.NewRequest(http.MethodGet, "/api/snapshot/TOOLONGSYMBOL", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", w.Code)
		}
	})
}

func TestHandler_GetQuote(t *testing.T) {
	t.Run("returns enriched record", func(t *testing.T) {
		rec := models.EnrichedRecord{}
		rec.Symbol = "AAPL"
		rec.Price = 175.50
		rec.Source = models.SourceYahoo
		rec.SMA20 = floatPtr(172.4)
		rec.RSI14 = floatPtr(61.2)
		rec.RiskScore = floatPtr(0.41)

		m := &fakeMarket{records: map[string]models.EnrichedRecord{"AAPL": rec}}
		router := testRouter(m)

		req := httptest.NewRequest(http.MethodGet, "/api/quote/AAPL", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}

		var got models.EnrichedRecord
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if got.Symbol != "AAPL" || got.SMA20 == nil || *got.SMA20 != 172.4 {
			t.Errorf("unexpected record: %+v", got)
		}
		if got.RiskScore == nil || *got.RiskScore != 0.41 {
			t.Errorf("expected risk score 0.41, got %v", got.RiskScore)
		}
	})

	t.Run("warm-up indicators serialize as null", func(t *testing.T) {
		rec := models.EnrichedRecord{}
		rec.Symbol = "NEWCO"
		rec.Price = 10

		m := &fakeMarket{records: map[string]models.EnrichedRecord{"NEWCO": rec}}
		router := testRouter(m)

		req := httptest.NewRequest(http.MethodGet, "/api/quote/NEWCO", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if !strings.Contains(w.Body.String(), `"sma_20":null`) {
			t.Errorf("expected null sma_20 in body, got %s", w.Body.String())
		}
	})

	t.Run("upstream failure returns 502", func(t *testing.T) {
		m := &fakeMarket{enrichErr: services.ErrTransient}
		router := testRouter(m)

		req := httptest.NewRequest(http.MethodGet, "/api/quote/AAPL", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadGateway {
			t.Errorf("expected status 502, got %d", w.Code)
		}
	})

	t.Run("unknown symbol returns 404", func(t *testing.T) {
		m := &fakeMarket{enrichErr: services.ErrNotFound}
		router := testRouter(m)

		req := httptest.NewRequest(http.MethodGet, "/api/quote/NOPE", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", w.Code)
		}
	})
}

func TestHandler_GetQuotes(t *testing.T) {
	t.Run("missing symbols parameter", func(t *testing.T) {
		router := testRouter(&fakeMarket{})

		req := httptest.NewRequest(http.MethodGet, "/api/quotes", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", w.Code)
		}
	})

	t.Run("only separators", func(t *testing.T) {
		router := testRouter(&fakeMarket{})

		req := httptest.NewRequest(http.MethodGet, "/api/quotes?symbols=,,", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", w.Code)
		}
	})

	t.Run("invalid symbol in list", func(t *testing.T) {
		router := testRouter(&fakeMarket{})

		req := httptest.NewRequest(http.MethodGet, "/api/quotes?symbols=AAPL,BAD!STOCK", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", w.Code)
		}
	})

	t.Run("too many symbols", func(t *testing.T) {
		router := testRouter(&fakeMarket{})

		symbols := make([]string, 51)
		for i := range symbols {
			symbols[i] = "S" + string(rune('A'+i%26))
		}
		req := httptest.NewRequest(http.MethodGet, "/api/quotes?symbols="+strings.Join(symbols, ","), nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", w.Code)
		}
	})

	t.Run("returns one record per symbol in order", func(t *testing.T) {
		m := &fakeMarket{}
		router := testRouter(m)

		req := httptest.NewRequest(http.MethodGet, "/api/quotes?symbols=aapl,%20msft%20,GOOGL", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}

		var response struct {
			Quotes []models.EnrichedRecord `json:"quotes"`
			Count  int                     `json:"count"`
		}
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response.Count != 3 {
			t.Fatalf("expected count 3, got %d", response.Count)
		}
		want := []string{"AAPL", "MSFT", "GOOGL"}
		for i, symbol := range want {
			if response.Quotes[i].Symbol != symbol {
				t.Errorf("quote %d: expected %s, got %s", i, symbol, response.Quotes[i].Symbol)
			}
		}
		if len(m.batchSymbols) != 3 || m.batchSymbols[1] != "MSFT" {
			t.Errorf("expected normalized symbols passed to service, got %v", m.batchSymbols)
		}
	})
}

func TestHandler_GetHistory(t *testing.T) {
	bars := []models.Bar{
		{Timestamp: 1000, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100},
		{Timestamp: 2000, Open: 1.5, High: 2.5, Low: 1, Close: 2, Volume: 200},
		{Timestamp: 3000, Open: 2, High: 3, Low: 1.5, Close: 2.5, Volume: 300},
	}

	t.Run("returns bars with period metadata", func(t *testing.T) {
		m := &fakeMarket{bars: map[string][]models.Bar{"AAPL": bars}}
		router := testRouter(m)

		req := httptest.NewRequest(http.MethodGet, "/api/history/AAPL?period=5d", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}

		var response struct {
			Symbol   string       `json:"symbol"`
			Period   string       `json:"period"`
			Interval string       `json:"interval"`
			Bars     []models.Bar `json:"bars"`
			Count    int          `json:"count"`
		}
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response.Symbol != "AAPL" || response.Period != "5d" || response.Interval != "5m" {
			t.Errorf("unexpected metadata: %+v", response)
		}
		if response.Count != 3 || len(response.Bars) != 3 {
			t.Errorf("expected 3 bars, got %d", response.Count)
		}
		if m.lastPeriod != models.Period5D {
			t.Errorf("expected period 5d passed to service, got %s", m.lastPeriod)
		}
	})

	t.Run("defaults to configured period", func(t *testing.T) {
		m := &fakeMarket{bars: map[string][]models.Bar{"AAPL": bars}}
		router := testRouter(m)

		req := httptest.NewRequest(http.MethodGet, "/api/history/AAPL", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		if m.lastPeriod != models.Period1Y {
			t.Errorf("expected default period 1y, got %s", m.lastPeriod)
		}
	})

	t.Run("limit trims to most recent bars", func(t *testing.T) {
		m := &fakeMarket{bars: map[string][]models.Bar{"AAPL": bars}}
		router := testRouter(m)

		req := httptest.NewRequest(http.MethodGet, "/api/history/AAPL?limit=2", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		var response struct {
			Bars []models.Bar `json:"bars"`
		}
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(response.Bars) != 2 {
			t.Fatalf("expected 2 bars, got %d", len(response.Bars))
		}
		if response.Bars[0].Timestamp != 2000 {
			t.Errorf("expected trim to keep the most recent bars, got first timestamp %d", response.Bars[0].Timestamp)
		}
	})

	t.Run("upstream failure returns 502", func(t *testing.T) {
		m := &fakeMarket{historyErr: services.ErrTransient}
		router := testRouter(m)

		req := httptest.NewRequest(http.MethodGet, "/api/history/AAPL", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadGateway {
			t.Errorf("expected status 502, got %d", w.Code)
		}
	})
}

func TestHandler_GetFundamentals(t *testing.T) {
	t.Run("returns fundamentals", func(t *testing.T) {
		m := &fakeMarket{funds: map[string]*models.Fundamentals{
			"AAPL": {Symbol: "AAPL", PERatio: 29.5},
		}}
		router := testRouter(m)

		req := httptest.NewRequest(http.MethodGet, "/api/fundamentals/AAPL", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}

		var fund models.Fundamentals
		if err := json.NewDecoder(w.Body).Decode(&fund); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if fund.Symbol != "AAPL" || fund.PERatio != 29.5 {
			t.Errorf("unexpected fundamentals: %+v", fund)
		}
	})

	t.Run("unknown symbol returns 404", func(t *testing.T) {
		m := &fakeMarket{fundamentalsErr: services.ErrNotFound}
		router := testRouter(m)

		req := httptest.NewRequest(http.MethodGet, "/api/fundamentals/NOPE", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", w.Code)
		}
	})

	t.Run("upstream failure returns 502", func(t *testing.T) {
		m := &fakeMarket{fundamentalsErr: services.ErrTransient}
		router := testRouter(m)

		req := httptest.NewRequest(http.MethodGet, "/api/fundamentals/AAPL", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadGateway {
			t.Errorf("expected status 502, got %d", w.Code)
		}
	})
}

func TestHandler_CalculateIndicators(t *testing.T) {
	t.Run("computes series with explicit periods", func(t *testing.T) {
		router := testRouter(&fakeMarket{})

		body := `{
			"bars": [
				{"timestamp": 1, "open": 1, "high": 1, "low": 1, "close": 1, "volume": 1},
				{"timestamp": 2, "open": 2, "high": 2, "low": 2, "close": 2, "volume": 1},
				{"timestamp": 3, "open": 3, "high": 3, "low": 3, "close": 3, "volume": 1},
				{"timestamp": 4, "open": 4, "high": 4, "low": 4, "close": 4, "volume": 1},
				{"timestamp": 5, "open": 5, "high": 5, "low": 5, "close": 5, "volume": 1}
			],
			"sma_period": 3
		}`
		req := httptest.NewRequest(http.MethodPost, "/api/indicators", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
		}

		var response IndicatorsResponse
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if len(response.SMA) != 5 {
			t.Fatalf("expected 5 SMA values, got %d", len(response.SMA))
		}
		if response.SMA[0] != nil || response.SMA[1] != nil {
			t.Error("expected warm-up positions to be null")
		}
		for i, want := range []float64{2, 3, 4} {
			got := response.SMA[i+2]
			if got == nil || *got != want {
				t.Errorf("SMA[%d]: expected %v, got %v", i+2, want, got)
			}
		}
		// 5 bars with a 14-period RSI stay entirely in warm-up
		for i, v := range response.RSI {
			if v != nil {
				t.Errorf("RSI[%d]: expected null during warm-up, got %v", i, *v)
			}
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		router := testRouter(&fakeMarket{})

		req := httptest.NewRequest(http.MethodPost, "/api/indicators", strings.NewReader("not json"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", w.Code)
		}
	})

	t.Run("empty bars", func(t *testing.T) {
		router := testRouter(&fakeMarket{})

		req := httptest.NewRequest(http.MethodPost, "/api/indicators", strings.NewReader(`{"bars":[]}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", w.Code)
		}
	})
}

func TestHandler_RiskScore(t *testing.T) {
	t.Run("defaults when features omitted", func(t *testing.T) {
		router := testRouter(&fakeMarket{})

		req := httptest.NewRequest(http.MethodPost, "/api/risk-score", strings.NewReader(`{"ticker":"AAPL"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
		}

		var response RiskScoreResponse
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response.Ticker != "AAPL" {
			t.Errorf("expected ticker AAPL, got %s", response.Ticker)
		}
		if response.RiskScore != 0.233 {
			t.Errorf("expected default-feature score 0.233, got %v", response.RiskScore)
		}
		if response.ModelVersion != risk.ModelVersion {
			t.Errorf("expected model version %s, got %s", risk.ModelVersion, response.ModelVersion)
		}
		if response.Timestamp == "" {
			t.Error("expected a timestamp")
		}
		if response.LatencyMS < 0 {
			t.Errorf("expected non-negative latency, got %v", response.LatencyMS)
		}
	})

	t.Run("partial features override defaults", func(t *testing.T) {
		router := testRouter(&fakeMarket{})

		body := `{"ticker":"msft","features":{"rsi":51,"pe":0,"sentiment":0}}`
		req := httptest.NewRequest(http.MethodPost, "/api/risk-score", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}

		var response RiskScoreResponse
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response.Ticker != "MSFT" {
			t.Errorf("expected normalized ticker MSFT, got %s", response.Ticker)
		}
		if response.RiskScore != 0.173 {
			t.Errorf("expected score 0.173, got %v", response.RiskScore)
		}
	})

	t.Run("missing ticker", func(t *testing.T) {
		router := testRouter(&fakeMarket{})

		req := httptest.NewRequest(http.MethodPost, "/api/risk-score", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", w.Code)
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		router := testRouter(&fakeMarket{})

		req := httptest.NewRequest(http.MethodPost, "/api/risk-score", strings.NewReader(`{bad`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", w.Code)
		}
	})
}

func TestHandler_ClearCache(t *testing.T) {
	m := &fakeMarket{cleared: 7}
	router := testRouter(m)

	req := httptest.NewRequest(http.MethodPost, "/api/cache/clear", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var response map[string]int
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response["cleared"] != 7 {
		t.Errorf("expected cleared=7, got %d", response["cleared"])
	}
}

func TestHandler_CacheStats(t *testing.T) {
	m := &fakeMarket{stats: models.CacheStats{
		Size: 2,
		Keys: []string{"history:AAPL:1y", "quote:AAPL"},
	}}
	router := testRouter(m)

	req := httptest.NewRequest(http.MethodGet, "/api/cache/stats", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var stats models.CacheStats
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if stats.Size != 2 || len(stats.Keys) != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestHandler_NotFound(t *testing.T) {
	router := testRouter(&fakeMarket{})

	req := httptest.NewRequest(http.MethodGet, "/api/nonexistent", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestHandler_MethodsNotAllowed(t *testing.T) {
	router := testRouter(&fakeMarket{})

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{"health with DELETE", http.MethodDelete, "/api/health"},
		{"quotes with POST", http.MethodPost, "/api/quotes"},
		{"indicators with GET", http.MethodGet, "/api/indicators"},
		{"cache clear with GET", http.MethodGet, "/api/cache/clear"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != http.StatusMethodNotAllowed {
				t.Errorf("expected status 405, got %d", w.Code)
			}
		})
	}
}

func TestHandler_ParseLimitParam(t *testing.T) {
	tests := []struct {
		name         string
		queryParam   string
		defaultLimit int
		expected     int
	}{
		{"no parameter", "", 50, 50},
		{"valid limit", "limit=25", 50, 25},
		{"invalid limit", "limit=abc", 50, 50},
		{"negative limit", "limit=-10", 50, 50},
		{"zero limit", "limit=0", 50, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := testHandler(&fakeMarket{})

			url := "/api/test"
			if tt.queryParam != "" {
				url += "?" + tt.queryParam
			}

			req := httptest.NewRequest(http.MethodGet, url, nil)
			result := handler.ParseLimitParam(req, tt.defaultLimit)

			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestHandler_ValidateSymbol(t *testing.T) {
	handler := testHandler(&fakeMarket{})

	tests := []struct {
		name      string
		symbol    string
		wantError bool
	}{
		{"valid simple symbol", "AAPL", false},
		{"valid with number", "BRK.B", false},
		{"valid with dash", "BRK-B", false},
		{"valid long symbol", "ABCDEFGHIJ", false},
		{"empty symbol", "", true},
		{"too long", "ABCDEFGHIJK", true},
		{"lowercase", "aapl", true},
		{"special chars", "AAPL!", true},
		{"spaces", "AA PL", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := handler.ValidateSymbol(tt.symbol)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidateSymbol(%s) error = %v, wantError %v", tt.symbol, err, tt.wantError)
			}
		})
	}
}

func TestHandler_CORSHeaders(t *testing.T) {
	router := testRouter(&fakeMarket{})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("missing CORS Allow-Origin header")
	}
}

func TestHandler_OptionsRequest(t *testing.T) {
	router := testRouter(&fakeMarket{})

	req := httptest.NewRequest(http.MethodOptions, "/api/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200 for OPTIONS, got %d", w.Code)
	}
}

func TestHandler_MetricsEndpoint(t *testing.T) {
	router := testRouter(&fakeMarket{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
}
