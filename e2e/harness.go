// Package e2e provides end-to-end testing infrastructure for finsage.
// A TestHarness wires the full pipeline, providers through router,
// against a mock upstream server, so scenarios exercise the same code
// paths production traffic takes.
package e2e

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"finsage/cache"
	"finsage/config"
	"finsage/e2e/mocks"
	"finsage/internal/api"
	"finsage/market"
	"finsage/models"
	"finsage/risk"
	"finsage/services"
)

// TestHarness holds the assembled pipeline and its mock upstream.
type TestHarness struct {
	t          *testing.T
	mockServer *mocks.MockServer
	config     *config.Config

	quotes  *cache.TTLCache
	data    *cache.BoundedCache
	service *market.Service
	router  http.Handler
}

// NewTestHarness creates an unstarted harness. Call Setup before use.
func NewTestHarness(t *testing.T) *TestHarness {
	t.Helper()
	return &TestHarness{t: t}
}

// Setup starts the mock upstream and assembles the pipeline against it.
// Circuit breakers are reset so scenarios cannot trip each other.
func (h *TestHarness) Setup() error {
	h.mockServer = mocks.NewMockServer()

	services.SetGlobalRegistry(services.NewCircuitBreakerRegistry(services.DefaultCircuitBreakerConfig))

	h.config = config.NewTestConfig()
	h.config.Providers.GoogleBaseURL = h.mockServer.URL()
	h.config.Providers.YahooBaseURL = h.mockServer.URL()

	h.quotes = cache.NewTTLCache(h.config.QuoteTTL())
	h.data = cache.NewBoundedCache(h.config.Cache.DataCapacity, h.config.DataTTL())

	google := services.NewGoogleService(h.config.Providers.GoogleBaseURL)
	yahoo := services.NewYahooService(h.config.Providers.YahooBaseURL)
	chain := services.NewSnapshotChain(h.quotes, services.DefaultPrices, google, yahoo)

	scorer := risk.NewDeterministicScorer()
	h.service = market.New(market.Options{
		Snapshots:    chain,
		History:      yahoo,
		Fundamentals: yahoo,
		QuoteCache:   h.quotes,
		DataCache:    h.data,
		Retry: services.RetryConfig{
			MaxRetries:     h.config.Retry.MaxRetries,
			InitialBackoff: 5 * time.Millisecond,
			MaxBackoff:     20 * time.Millisecond,
		},
		Risk:             scorer,
		HistoryPeriod:    models.HistoryPeriod(h.config.Market.HistoryPeriod),
		BatchConcurrency: h.config.Market.BatchConcurrency,
	})

	handler := api.NewHandler(h.service, scorer, h.config)
	h.router = api.NewRouter(handler, h.config)

	return nil
}

// Teardown stops the mock upstream.
func (h *TestHarness) Teardown() {
	if h.mockServer != nil {
		h.mockServer.Close()
	}
}

// Mock returns the mock upstream server for response configuration and
// request assertions.
func (h *TestHarness) Mock() *mocks.MockServer {
	return h.mockServer
}

// Service returns the assembled market service.
func (h *TestHarness) Service() *market.Service {
	return h.service
}

// DoRequest sends a request through the full router and returns the
// recorded response.
func (h *TestHarness) DoRequest(method, path, body string) *httptest.ResponseRecorder {
	h.t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}
