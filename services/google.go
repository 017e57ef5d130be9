package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"finsage/models"
)

// GoogleService fetches snapshots from the Google-style quote endpoint,
// the first tier of the snapshot fallback chain. The endpoint predates
// JSON APIs: it returns a JSONP-era payload with a comment prefix around
// an embedded JSON array, and every numeric field is a display string.
type GoogleService struct {
	httpClient *http.Client
	baseURL    string
}

// NewGoogleService creates a GoogleService. An empty baseURL selects the
// production endpoint; tests point it at a local server.
func NewGoogleService(baseURL string) *GoogleService {
	if baseURL == "" {
		baseURL = "https://finance.google.com/finance"
	}
	return &GoogleService{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
	}
}

// Name identifies the provider in logs, metrics, and errors.
func (s *GoogleService) Name() string {
	return models.SourceGoogle
}

// googleQuote is one entry of the embedded array. All fields arrive as
// display strings: prices with thousands separators, changes with an
// explicit sign, volume and market cap with K/M/B/T suffixes.
type googleQuote struct {
	Symbol        string `json:"t"`
	LastPrice     string `json:"l"`
	Change        string `json:"c"`
	ChangePercent string `json:"cp"`
	Volume        string `json:"vo"`
	MarketCap     string `json:"mc"`
	PERatio       string `json:"pe"`
	EPS           string `json:"eps"`
	High52W       string `json:"hi"`
	Low52W        string `json:"lo"`
}

// FetchSnapshot retrieves a quote for one symbol. Failures are classified
// so the fallback chain and retry wrapper can tell transient network
// trouble from a payload this parser no longer understands.
func (s *GoogleService) FetchSnapshot(ctx context.Context, symbol string) (*models.Snapshot, error) {
	return WithCircuitBreaker(ctx, BreakerGoogle, func() (*models.Snapshot, error) {
		reqURL := fmt.Sprintf("%s/info?client=ig&q=%s", s.baseURL, url.QueryEscape(symbol))

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, NewProviderError(s.Name(), symbol, fmt.Errorf("failed to create request: %w", err))
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return nil, NewProviderError(s.Name(), symbol, fmt.Errorf("%w: %v", ErrTransient, err))
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, NewProviderError(s.Name(), symbol, classifyStatus(resp.StatusCode))
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, NewProviderError(s.Name(), symbol, fmt.Errorf("%w: %v", ErrTransient, err))
		}

		quotes, err := parseGoogleQuotes(body)
		if err != nil {
			return nil, NewProviderError(s.Name(), symbol, err)
		}
		if len(quotes) == 0 {
			return nil, NewProviderError(s.Name(), symbol, fmt.Errorf("%w: empty quote array", ErrNotFound))
		}

		return s.toSnapshot(symbol, quotes[0])
	})
}

// parseGoogleQuotes strips the comment prefix and decodes the embedded
// JSON array. The payload is not valid JSON as a whole, so the array is
// located by its outermost brackets.
func parseGoogleQuotes(body []byte) ([]googleQuote, error) {
	start := bytes.IndexByte(body, '[')
	end := bytes.LastIndexByte(body, ']')
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON array in payload", ErrBadFormat)
	}

	var quotes []googleQuote
	if err := json.Unmarshal(body[start:end+1], &quotes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	return quotes, nil
}

func (s *GoogleService) toSnapshot(symbol string, q googleQuote) (*models.Snapshot, error) {
	price, err := parseDisplayNumber(q.LastPrice)
	if err != nil {
		return nil, NewProviderError(s.Name(), symbol, fmt.Errorf("%w: price %q: %v", ErrBadFormat, q.LastPrice, err))
	}

	snap := &models.Snapshot{
		Symbol:        symbol,
		Price:         price,
		Change:        optDisplayNumber(q.Change),
		ChangePercent: optDisplayNumber(q.ChangePercent),
		Volume:        int64(optDisplayNumber(q.Volume)),
		MarketCap:     optDisplayNumber(q.MarketCap),
		PERatio:       optDisplayNumber(q.PERatio),
		EPS:           optDisplayNumber(q.EPS),
		High52W:       optDisplayNumber(q.High52W),
		Low52W:        optDisplayNumber(q.Low52W),
		Source:        models.SourceGoogle,
		FetchedAt:     time.Now().UTC(),
	}
	return snap, nil
}

var displaySuffixes = map[byte]float64{
	'K': 1e3,
	'M': 1e6,
	'B': 1e9,
	'T': 1e12,
}

// parseDisplayNumber converts a display string like "1,234.56", "+12.34",
// or "4.5B" to a float64.
func parseDisplayNumber(raw string) (float64, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimPrefix(cleaned, "+")
	if cleaned == "" {
		return 0, fmt.Errorf("empty value")
	}

	multiplier := 1.0
	if m, ok := displaySuffixes[cleaned[len(cleaned)-1]]; ok {
		multiplier = m
		cleaned = cleaned[:len(cleaned)-1]
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, err
	}
	return v * multiplier, nil
}

// optDisplayNumber parses best-effort; optional fields the upstream omits
// or garbles read as zero rather than failing the whole quote.
func optDisplayNumber(raw string) float64 {
	if raw == "" {
		return 0
	}
	v, err := parseDisplayNumber(raw)
	if err != nil {
		return 0
	}
	return v
}
