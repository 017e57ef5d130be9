package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"finsage/config"
	"finsage/indicators"
	"finsage/market"
	"finsage/models"
	"finsage/observability"
	"finsage/risk"
	"finsage/services"

	"github.com/go-chi/chi/v5"
)

// MarketService is the pipeline surface the HTTP layer depends on.
type MarketService interface {
	GetSnapshot(ctx context.Context, symbol string) *models.Snapshot
	GetHistory(ctx context.Context, symbol string, period models.HistoryPeriod) ([]models.Bar, error)
	GetEnrichedSnapshot(ctx context.Context, symbol string) (models.EnrichedRecord, error)
	GetMultipleSnapshots(ctx context.Context, symbols []string) []models.EnrichedRecord
	GetFundamentals(ctx context.Context, symbol string) (*models.Fundamentals, error)
	ClearCache() int
	CacheStats() models.CacheStats
}

var _ MarketService = (*market.Service)(nil)

// Handler handles HTTP API requests
type Handler struct {
	market MarketService
	scorer *risk.Scorer
	cfg    *config.Config
}

// NewHandler creates a new Handler
func NewHandler(m MarketService, scorer *risk.Scorer, cfg *config.Config) *Handler {
	return &Handler{market: m, scorer: scorer, cfg: cfg}
}

// HandleHealth returns the health status of the application
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status": "ok",
	}

	// Add circuit breaker status
	cbStatus := services.GetGlobalRegistry().Status()
	status["circuit_breakers"] = cbStatus

	// Check if any breakers are open (degraded state)
	for _, cb := range cbStatus {
		if cb.State == "open" {
			status["status"] = "degraded"
			break
		}
	}

	h.jsonResponse(w, status)
}

// HandleGetSnapshot returns the raw snapshot for a symbol. The fallback
// chain guarantees a snapshot for any valid symbol, so the only client
// error here is a malformed symbol.
func (h *Handler) HandleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	if err := h.ValidateSymbol(symbol); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	snap := h.market.GetSnapshot(r.Context(), symbol)
	h.jsonResponse(w, snap)
}

// HandleGetQuote returns the enriched snapshot for a symbol
func (h *Handler) HandleGetQuote(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	if err := h.ValidateSymbol(symbol); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	rec, err := h.market.GetEnrichedSnapshot(r.Context(), symbol)
	if err != nil {
		h.jsonError(w, err.Error(), h.statusForError(err))
		return
	}

	h.jsonResponse(w, rec)
}

// HandleGetQuotes returns enriched snapshots for a comma-separated symbol
// list. Failed symbols come back as placeholder records, so the response
// always has one entry per requested symbol, in request order.
func (h *Handler) HandleGetQuotes(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("symbols")
	if raw == "" {
		h.jsonError(w, "symbols query parameter is required", http.StatusBadRequest)
		return
	}

	parts := strings.Split(raw, ",")
	symbols := make([]string, 0, len(parts))
	for _, part := range parts {
		symbol := strings.ToUpper(strings.TrimSpace(part))
		if symbol == "" {
			continue
		}
		if err := h.ValidateSymbol(symbol); err != nil {
			h.jsonError(w, fmt.Sprintf("symbol %q: %v", symbol, err), http.StatusBadRequest)
			return
		}
		symbols = append(symbols, symbol)
	}

	if len(symbols) == 0 {
		h.jsonError(w, "no symbols provided", http.StatusBadRequest)
		return
	}
	if len(symbols) > h.cfg.Market.BatchLimit {
		h.jsonError(w, fmt.Sprintf("too many symbols (max %d)", h.cfg.Market.BatchLimit), http.StatusBadRequest)
		return
	}

	records := h.market.GetMultipleSnapshots(r.Context(), symbols)
	h.jsonResponse(w, map[string]interface{}{
		"quotes": records,
		"count":  len(records),
	})
}

// HandleGetHistory returns OHLCV bars for a symbol
func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	if err := h.ValidateSymbol(symbol); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	period := models.HistoryPeriod(r.URL.Query().Get("period"))
	if period == "" {
		period = models.HistoryPeriod(h.cfg.Market.HistoryPeriod)
	}

	bars, err := h.market.GetHistory(r.Context(), symbol, period)
	if err != nil {
		h.jsonError(w, err.Error(), h.statusForError(err))
		return
	}

	// Optional ?limit= trims to the most recent bars
	if limit := h.ParseLimitParam(r, 0); limit > 0 && limit < len(bars) {
		bars = bars[len(bars)-limit:]
	}

	h.jsonResponse(w, map[string]interface{}{
		"symbol":   symbol,
		"period":   period,
		"interval": period.Interval(),
		"bars":     bars,
		"count":    len(bars),
	})
}

// HandleGetFundamentals returns valuation fundamentals for a symbol
func (h *Handler) HandleGetFundamentals(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	if err := h.ValidateSymbol(symbol); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	fundamentals, err := h.market.GetFundamentals(r.Context(), symbol)
	if err != nil {
		h.jsonError(w, err.Error(), h.statusForError(err))
		return
	}

	h.jsonResponse(w, fundamentals)
}

// IndicatorsRequest carries caller-supplied bars for indicator calculation
type IndicatorsRequest struct {
	Bars      []models.Bar `json:"bars"`
	SMAPeriod int          `json:"sma_period"`
	RSIPeriod int          `json:"rsi_period"`
	ATRPeriod int          `json:"atr_period"`
}

// IndicatorsResponse holds indicator series aligned with the input bars.
// Warm-up positions serialize as null.
type IndicatorsResponse struct {
	SMA []*float64 `json:"sma"`
	RSI []*float64 `json:"rsi"`
	ATR []*float64 `json:"atr"`
}

// HandleCalculateIndicators computes indicator series over caller-supplied bars
func (h *Handler) HandleCalculateIndicators(w http.ResponseWriter, r *http.Request) {
	var req IndicatorsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "Invalid JSON request", http.StatusBadRequest)
		return
	}

	if len(req.Bars) == 0 {
		h.jsonError(w, "at least one bar is required", http.StatusBadRequest)
		return
	}

	if req.SMAPeriod <= 0 {
		req.SMAPeriod = 20
	}
	if req.RSIPeriod <= 0 {
		req.RSIPeriod = indicators.DefaultRSIPeriod
	}
	if req.ATRPeriod <= 0 {
		req.ATRPeriod = indicators.DefaultATRPeriod
	}

	result := indicators.CalculateAll(req.Bars, req.SMAPeriod, req.RSIPeriod, req.ATRPeriod)

	h.jsonResponse(w, IndicatorsResponse{
		SMA: jsonSeries(result.SMA),
		RSI: jsonSeries(result.RSI),
		ATR: jsonSeries(result.ATR),
	})
}

// RiskFeatureInput holds optional risk model features; absent fields fall
// back to the model defaults.
type RiskFeatureInput struct {
	RSI       *float64 `json:"rsi"`
	PE        *float64 `json:"pe"`
	PEG       *float64 `json:"peg"`
	Sentiment *float64 `json:"sentiment"`
	ATR       *float64 `json:"atr"`
}

// RiskScoreRequest represents a standalone risk scoring request
type RiskScoreRequest struct {
	Ticker   string            `json:"ticker"`
	Features *RiskFeatureInput `json:"features"`
}

// RiskScoreResponse represents a risk scoring response
type RiskScoreResponse struct {
	Ticker       string  `json:"ticker"`
	RiskScore    float64 `json:"risk_score"`
	ModelVersion string  `json:"model_version"`
	LatencyMS    float64 `json:"latency_ms"`
	Timestamp    string  `json:"timestamp"`
}

// HandleRiskScore scores caller-supplied features without touching providers
func (h *Handler) HandleRiskScore(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req RiskScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "Invalid JSON request", http.StatusBadRequest)
		return
	}

	req.Ticker = strings.ToUpper(strings.TrimSpace(req.Ticker))
	if req.Ticker == "" {
		h.jsonError(w, "ticker is required", http.StatusBadRequest)
		return
	}
	if err := h.ValidateSymbol(req.Ticker); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	in := risk.DefaultInput()
	if f := req.Features; f != nil {
		if f.RSI != nil {
			in.RSI = *f.RSI
		}
		if f.PE != nil {
			in.PE = *f.PE
		}
		if f.PEG != nil {
			in.PEG = *f.PEG
		}
		if f.Sentiment != nil {
			in.Sentiment = *f.Sentiment
		}
		if f.ATR != nil {
			in.ATR = *f.ATR
		}
	}

	score := h.scorer.Score(in)
	observability.GetMetrics().RecordRiskScore(risk.ModelVersion, score)

	h.jsonResponse(w, RiskScoreResponse{
		Ticker:       req.Ticker,
		RiskScore:    score,
		ModelVersion: risk.ModelVersion,
		LatencyMS:    float64(time.Since(start).Microseconds()) / 1000.0,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleClearCache empties both caches and reports how many entries were dropped
func (h *Handler) HandleClearCache(w http.ResponseWriter, r *http.Request) {
	cleared := h.market.ClearCache()
	h.jsonResponse(w, map[string]int{"cleared": cleared})
}

// HandleCacheStats returns current cache contents
func (h *Handler) HandleCacheStats(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, h.market.CacheStats())
}

// Helper functions

// statusForError maps pipeline errors to HTTP status codes. Unknown symbols
// are client errors; anything else was an upstream failure.
func (h *Handler) statusForError(err error) int {
	if errors.Is(err, services.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

// jsonSeries converts warm-up markers to nulls for JSON output
func jsonSeries(series []float64) []*float64 {
	out := make([]*float64, len(series))
	for i := range series {
		if !indicators.IsMarker(series[i]) {
			v := series[i]
			out[i] = &v
		}
	}
	return out
}

// ValidateSymbol validates a stock symbol
func (h *Handler) ValidateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol is required")
	}

	if len(symbol) > 10 {
		return fmt.Errorf("symbol too long (max 10 characters)")
	}

	matched, _ := regexp.MatchString("^[A-Z0-9.-]+$", symbol)
	if !matched {
		return fmt.Errorf("invalid symbol format (alphanumeric, dots, and dashes only)")
	}

	return nil
}

// ParseLimitParam parses the limit query parameter
func (h *Handler) ParseLimitParam(r *http.Request, defaultLimit int) int {
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			return l
		}
	}
	return defaultLimit
}

func (h *Handler) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
