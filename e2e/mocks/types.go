package mocks

// GoogleQuote is one entry of the JSONP quote payload. Every field is a
// display string, matching the live endpoint.
type GoogleQuote struct {
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

// YahooQuote mirrors one result row of the v7 quote endpoint.
type YahooQuote struct {
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

// ChartBar is one OHLCV row served by the mock chart endpoint. Timestamp
// is in epoch seconds, as the live chart API reports it.
type ChartBar struct {
	Timestamp int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

type yahooQuoteEnvelope struct {
	QuoteResponse struct {
		Result []YahooQuote `json:"result"`
	} `json:"quoteResponse"`
}

type yahooChartEnvelope struct {
	Chart struct {
		Result []yahooChartResult `json:"result"`
	} `json:"chart"`
}

type yahooChartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []yahooChartQuote `json:"quote"`
	} `json:"indicators"`
}

type yahooChartQuote struct {
	Open   []float64 `json:"open"`
	High   []float64 `json:"high"`
	Low    []float64 `json:"low"`
	Close  []float64 `json:"close"`
	Volume []int64   `json:"volume"`
}
