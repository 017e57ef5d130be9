package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"finsage/models"
)

// YahooService talks to the Yahoo-style finance API. It is the second
// snapshot tier and the only provider of history bars and fundamentals.
type YahooService struct {
	httpClient *http.Client
	baseURL    string
}

// NewYahooService creates a YahooService. An empty baseURL selects the
// production endpoint; tests point it at a local server.
func NewYahooService(baseURL string) *YahooService {
	if baseURL == "" {
		baseURL = "https://query1.finance.yahoo.com"
	}
	return &YahooService{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
	}
}

// Name identifies the provider in logs, metrics, and errors.
func (s *YahooService) Name() string {
	return models.SourceYahoo
}

type yahooQuoteResponse struct {
	QuoteResponse struct {
		Result []yahooQuote `json:"result"`
	} `json:"quoteResponse"`
}

type yahooQuote struct {
	Symbol                     string  `json:"symbol"`
	RegularMarketPrice         float64 `json:"regularMarketPrice"`
	RegularMarketChange        float64 `json:"regularMarketChange"`
	RegularMarketChangePercent float64 `json:"regularMarketChangePercent"`
	RegularMarketVolume        int64   `json:"regularMarketVolume"`
	MarketCap                  float64 `json:"marketCap"`
	TrailingPE                 float64 `json:"trailingPE"`
	EPSTrailingTwelveMonths    float64 `json:"epsTrailingTwelveMonths"`
	FiftyTwoWeekHigh           float64 `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow            float64 `json:"fiftyTwoWeekLow"`
}

// yahooChartResponse mirrors the chart endpoint. OHLCV arrays decode into
// pointer slices because the upstream emits null for halted or partial
// rows; a nil component marks the whole row as unusable.
type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
	} `json:"chart"`
}

// FetchSnapshot retrieves a quote for one symbol.
func (s *YahooService) FetchSnapshot(ctx context.Context, symbol string) (*models.Snapshot, error) {
	return WithCircuitBreaker(ctx, BreakerYahoo, func() (*models.Snapshot, error) {
		q, err := s.fetchQuote(ctx, symbol)
		if err != nil {
			return nil, err
		}

		return &models.Snapshot{
			Symbol:        symbol,
			Price:         q.RegularMarketPrice,
			Change:        q.RegularMarketChange,
			ChangePercent: q.RegularMarketChangePercent,
			Volume:        q.RegularMarketVolume,
			MarketCap:     q.MarketCap,
			PERatio:       q.TrailingPE,
			EPS:           q.EPSTrailingTwelveMonths,
			High52W:       q.FiftyTwoWeekHigh,
			Low52W:        q.FiftyTwoWeekLow,
			Source:        models.SourceYahoo,
			FetchedAt:     time.Now().UTC(),
		}, nil
	})
}

// FetchHistory retrieves OHLCV bars for the given period. The candle
// interval is fixed by the period; rows with any missing component are
// skipped rather than zero-filled.
func (s *YahooService) FetchHistory(ctx context.Context, symbol string, period models.HistoryPeriod) ([]models.Bar, error) {
	return WithCircuitBreaker(ctx, BreakerYahoo, func() ([]models.Bar, error) {
		reqURL := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=%s",
			s.baseURL, url.PathEscape(symbol), url.QueryEscape(string(period)), period.Interval())

		var chartResp yahooChartResponse
		if err := s.getJSON(ctx, symbol, reqURL, &chartResp); err != nil {
			return nil, err
		}

		if len(chartResp.Chart.Result) == 0 {
			return nil, NewProviderError(s.Name(), symbol, fmt.Errorf("%w: empty chart result", ErrNotFound))
		}

		result := chartResp.Chart.Result[0]
		if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
			return nil, NewProviderError(s.Name(), symbol, fmt.Errorf("%w: chart result missing series", ErrBadFormat))
		}

		quote := result.Indicators.Quote[0]
		bars := make([]models.Bar, 0, len(result.Timestamp))
		for i, ts := range result.Timestamp {
			if i >= len(quote.Open) || i >= len(quote.High) || i >= len(quote.Low) ||
				i >= len(quote.Close) || i >= len(quote.Volume) {
				break
			}
			if quote.Open[i] == nil || quote.High[i] == nil || quote.Low[i] == nil ||
				quote.Close[i] == nil || quote.Volume[i] == nil {
				continue
			}
			bars = append(bars, models.Bar{
				Timestamp: ts * 1000,
				Open:      *quote.Open[i],
				High:      *quote.High[i],
				Low:       *quote.Low[i],
				Close:     *quote.Close[i],
				Volume:    *quote.Volume[i],
			})
		}
		return bars, nil
	})
}

// FetchFundamentals retrieves valuation figures for one symbol. It reads
// the same quote endpoint as FetchSnapshot but keeps monetary amounts as
// decimals.
func (s *YahooService) FetchFundamentals(ctx context.Context, symbol string) (*models.Fundamentals, error) {
	return WithCircuitBreaker(ctx, BreakerYahoo, func() (*models.Fundamentals, error) {
		q, err := s.fetchQuote(ctx, symbol)
		if err != nil {
			return nil, err
		}

		return &models.Fundamentals{
			Symbol:     symbol,
			MarketCap:  decimal.NewFromFloat(q.MarketCap),
			PERatio:    q.TrailingPE,
			EPS:        decimal.NewFromFloat(q.EPSTrailingTwelveMonths),
			Week52High: decimal.NewFromFloat(q.FiftyTwoWeekHigh),
			Week52Low:  decimal.NewFromFloat(q.FiftyTwoWeekLow),
			FetchedAt:  time.Now().UTC(),
		}, nil
	})
}

func (s *YahooService) fetchQuote(ctx context.Context, symbol string) (*yahooQuote, error) {
	reqURL := fmt.Sprintf("%s/v7/finance/quote?symbols=%s", s.baseURL, url.QueryEscape(symbol))

	var quoteResp yahooQuoteResponse
	if err := s.getJSON(ctx, symbol, reqURL, &quoteResp); err != nil {
		return nil, err
	}

	if len(quoteResp.QuoteResponse.Result) == 0 {
		return nil, NewProviderError(s.Name(), symbol, fmt.Errorf("%w: empty quote result", ErrNotFound))
	}
	return &quoteResp.QuoteResponse.Result[0], nil
}

func (s *YahooService) getJSON(ctx context.Context, symbol, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return NewProviderError(s.Name(), symbol, fmt.Errorf("failed to create request: %w", err))
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return NewProviderError(s.Name(), symbol, fmt.Errorf("%w: %v", ErrTransient, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return NewProviderError(s.Name(), symbol, classifyStatus(resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewProviderError(s.Name(), symbol, fmt.Errorf("%w: %v", ErrBadFormat, err))
	}
	return nil
}
