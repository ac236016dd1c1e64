// Package yahoo implements the data source backed by Yahoo Finance's public
// chart API. Minute data is fetched one day at a time and memoized per
// symbol and day, including empty days, so repeated lookups for the same
// session cost one upstream request.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"stockdiff/internal/datasource"
	"stockdiff/internal/metrics"
	"stockdiff/internal/model"
)

const defaultEndpoint = "https://query1.finance.yahoo.com/v8/finance/chart"

// The chart API rejects requests without a browser-looking User-Agent.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// Minute data is tried first; coarser intervals cover symbols where Yahoo
// withholds 1m history.
var chartIntervals = []string{"1m", "5m", "1h"}

// HTTPDoer issues a single HTTP request. *httpx.Client satisfies it.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

//go:generate mockgen -package=yahoo_test -destination=mock_http_doer_test.go -source=yahoo.go HTTPDoer

// Option configures a Source.
type Option func(*Source)

// WithEndpoint overrides the chart API base URL.
func WithEndpoint(endpoint string) Option {
	return func(s *Source) {
		if endpoint != "" {
			s.endpoint = strings.TrimRight(endpoint, "/")
		}
	}
}

// WithBarsCacheTTL sets how long fetched day bars are memoized.
func WithBarsCacheTTL(ttl time.Duration) Option {
	return func(s *Source) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// Source fetches minute bars from the chart endpoint.
type Source struct {
	doer     HTTPDoer
	endpoint string
	cacheTTL time.Duration
	bars     *cache.Cache
}

func New(doer HTTPDoer, opts ...Option) *Source {
	s := &Source{
		doer:     doer,
		endpoint: defaultEndpoint,
		cacheTTL: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.bars = cache.New(s.cacheTTL, 2*s.cacheTTL)
	return s
}

func (s *Source) Name() string { return "yahoo" }

// MinuteBars returns the day's bars, falling back through coarser intervals
// when finer ones come back empty. Fetch failures are logged and swallowed;
// the result is cached either way so a dead vendor is not re-polled per
// lookup.
func (s *Source) MinuteBars(ctx context.Context, symbol string, day time.Time) ([]model.MinuteBar, error) {
	key := fmt.Sprintf("%s_%s_%s", symbol, day.Format("2006-01-02"), day.Location())
	if v, ok := s.bars.Get(key); ok {
		return v.([]model.MinuteBar), nil
	}

	var bars []model.MinuteBar
	for _, interval := range chartIntervals {
		got, err := s.fetchDayBars(ctx, symbol, day, interval)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"symbol":   symbol,
				"interval": interval,
			}).Warn("chart fetch failed")
			continue
		}
		if len(got) > 0 {
			bars = got
			break
		}
	}
	s.bars.SetDefault(key, bars)
	return bars, nil
}

func (s *Source) OfficialOpen(ctx context.Context, symbol string, day time.Time) (*datasource.OpenQuote, error) {
	bars, err := s.MinuteBars(ctx, symbol, day)
	if err != nil || len(bars) == 0 {
		return nil, err
	}
	return &datasource.OpenQuote{Time: bars[0].Timestamp, Price: bars[0].Open}, nil
}

// FirstTrade approximates the first trade with the first bar's open; the
// chart API exposes no trade-level data.
func (s *Source) FirstTrade(ctx context.Context, symbol string, day time.Time) (*datasource.OpenQuote, error) {
	bars, err := s.MinuteBars(ctx, symbol, day)
	if err != nil || len(bars) == 0 {
		return nil, err
	}
	return &datasource.OpenQuote{Time: bars[0].Timestamp, Price: bars[0].Open}, nil
}

// TradingDay reports weekends as closed. An empty weekday is still reported
// as trading: chart data lags for some exchanges, and the price lookups
// surface the missing bars per sample.
func (s *Source) TradingDay(ctx context.Context, symbol string, day time.Time) (model.TradingDayInfo, error) {
	if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return model.TradingDayInfo{Reason: "Weekend"}, nil
	}
	if _, err := s.MinuteBars(ctx, symbol, day); err != nil {
		return model.TradingDayInfo{}, err
	}
	return model.TradingDayInfo{IsTradingDay: true}, nil
}

func (s *Source) Currency(symbol string) string {
	u := strings.ToUpper(symbol)
	switch {
	case strings.HasSuffix(u, ".TW"), strings.HasSuffix(u, ".TWO"):
		return "TWD"
	case strings.HasSuffix(u, ".JP"):
		return "JPY"
	case strings.HasSuffix(u, ".HK"):
		return "HKD"
	case strings.HasSuffix(u, ".L"):
		return "GBP"
	case strings.HasSuffix(u, ".DE"), strings.HasSuffix(u, ".PA"):
		return "EUR"
	}
	return "USD"
}

// Ping fetches a week of daily bars, verifying the chart endpoint is
// reachable and its response parses. Used by the diagnostics handler.
func (s *Source) Ping(ctx context.Context, symbol string) error {
	to := time.Now()
	from := to.AddDate(0, 0, -7)
	_, err := s.fetchChart(ctx, ConvertSymbol(symbol), "1d", from, to)
	return err
}

// ChartURL builds the chart API request URL for one symbol and window.
func ChartURL(endpoint, symbol, interval string, from, to time.Time) string {
	return fmt.Sprintf("%s/%s?interval=%s&period1=%d&period2=%d",
		strings.TrimRight(endpoint, "/"), url.PathEscape(symbol), interval, from.Unix(), to.Unix())
}

// ConvertSymbol maps bare ticker spellings to chart API symbols: digit-only
// tickers are Taiwan listings and get a .TW suffix.
func ConvertSymbol(symbol string) string {
	if strings.Contains(symbol, ".") {
		return symbol
	}
	allDigits := symbol != ""
	for _, r := range symbol {
		if r < '0' || r > '9' {
			allDigits = false
			break
		}
	}
	if allDigits {
		return symbol + ".TW"
	}
	return symbol
}

func (s *Source) fetchDayBars(ctx context.Context, symbol string, day time.Time, interval string) ([]model.MinuteBar, error) {
	y, m, d := day.Date()
	loc := day.Location()
	from := time.Date(y, m, d, 0, 0, 0, 0, loc)
	to := from.AddDate(0, 0, 1)

	res, err := s.fetchChart(ctx, ConvertSymbol(symbol), interval, from, to)
	if err != nil {
		return nil, err
	}
	return parseBars(res, loc)
}

func (s *Source) fetchChart(ctx context.Context, symbol, interval string, from, to time.Time) (*chartResult, error) {
	u := ChartURL(s.endpoint, symbol, interval, from, to)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := s.doer.Do(ctx, req)
	metrics.ProviderRequestDuration.WithLabelValues("yahoo").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chart request returned status %d", resp.StatusCode)
	}

	var payload chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode chart response: %w", err)
	}
	if payload.Chart.Error != nil {
		return nil, fmt.Errorf("chart api error %s: %s", payload.Chart.Error.Code, payload.Chart.Error.Description)
	}
	if len(payload.Chart.Result) == 0 {
		return &chartResult{}, nil
	}
	return &payload.Chart.Result[0], nil
}

// parseBars flattens a chart result, skipping entries with a null timestamp
// or any null OHLC component. Missing volume counts as zero.
func parseBars(res *chartResult, loc *time.Location) ([]model.MinuteBar, error) {
	if len(res.Indicators.Quote) == 0 {
		return nil, nil
	}
	q := res.Indicators.Quote[0]

	bars := make([]model.MinuteBar, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		if ts == nil {
			continue
		}
		if i >= len(q.Open) || i >= len(q.High) || i >= len(q.Low) || i >= len(q.Close) {
			break
		}
		if q.Open[i] == nil || q.High[i] == nil || q.Low[i] == nil || q.Close[i] == nil {
			continue
		}
		var volume int64
		if i < len(q.Volume) && q.Volume[i] != nil {
			volume = *q.Volume[i]
		}
		bars = append(bars, model.MinuteBar{
			Timestamp: time.Unix(*ts, 0).In(loc),
			Open:      decimal.NewFromFloat(*q.Open[i]).Round(4),
			High:      decimal.NewFromFloat(*q.High[i]).Round(4),
			Low:       decimal.NewFromFloat(*q.Low[i]).Round(4),
			Close:     decimal.NewFromFloat(*q.Close[i]).Round(4),
			Volume:    volume,
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	return bars, nil
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta       chartMeta `json:"meta"`
	Timestamp  []*int64  `json:"timestamp"`
	Indicators struct {
		Quote []chartQuote `json:"quote"`
	} `json:"indicators"`
}

type chartMeta struct {
	Currency             string `json:"currency"`
	Symbol               string `json:"symbol"`
	ExchangeTimezoneName string `json:"exchangeTimezoneName"`
}

type chartQuote struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}
