// Package polygon implements the data source backed by Polygon.io. Minute
// aggregates supply the bars and the first-trade approximation; the daily
// open/close endpoint supplies the official opening price. Day bars are
// memoized per symbol and day the same way the yahoo source does.
package polygon

import (
	"context"
	"fmt"
	"strings"
	"time"

	cache "github.com/patrickmn/go-cache"
	polygonrest "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"stockdiff/internal/datasource"
	"stockdiff/internal/metrics"
	"stockdiff/internal/model"
)

// Option configures a Source.
type Option func(*Source)

// WithBarsCacheTTL sets how long fetched day bars are memoized.
func WithBarsCacheTTL(ttl time.Duration) Option {
	return func(s *Source) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// Source fetches market data through the official Polygon REST client.
type Source struct {
	client   *polygonrest.Client
	cacheTTL time.Duration
	bars     *cache.Cache
}

func New(apiKey string, opts ...Option) *Source {
	s := &Source{
		client:   polygonrest.New(apiKey),
		cacheTTL: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.bars = cache.New(s.cacheTTL, 2*s.cacheTTL)
	return s
}

func (s *Source) Name() string { return "polygon" }

// MinuteBars lists the day's 1-minute aggregates, ascending and adjusted.
// Empty days cache as empty so closed sessions cost one upstream request.
func (s *Source) MinuteBars(ctx context.Context, symbol string, day time.Time) ([]model.MinuteBar, error) {
	key := fmt.Sprintf("%s_%s_%s", symbol, day.Format("2006-01-02"), day.Location())
	if v, ok := s.bars.Get(key); ok {
		return v.([]model.MinuteBar), nil
	}

	loc := day.Location()
	y, m, d := day.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, loc)
	to := from.AddDate(0, 0, 1)

	params := models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: 1,
		Timespan:   models.Minute,
		From:       models.Millis(from),
		To:         models.Millis(to),
	}.WithOrder(models.Asc).WithAdjusted(true)

	start := time.Now()
	iter := s.client.ListAggs(ctx, params)
	var bars []model.MinuteBar
	for iter.Next() {
		item := iter.Item()
		bars = append(bars, model.MinuteBar{
			Timestamp: time.Time(item.Timestamp).In(loc),
			Open:      decimal.NewFromFloat(item.Open).Round(4),
			High:      decimal.NewFromFloat(item.High).Round(4),
			Low:       decimal.NewFromFloat(item.Low).Round(4),
			Close:     decimal.NewFromFloat(item.Close).Round(4),
			Volume:    int64(item.Volume),
		})
	}
	metrics.ProviderRequestDuration.WithLabelValues("polygon").Observe(time.Since(start).Seconds())
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list minute aggregates for %s: %w", symbol, err)
	}

	s.bars.SetDefault(key, bars)
	return bars, nil
}

// OfficialOpen reads the exchange-reported open from the daily open/close
// endpoint. The first minute bar supplies the instant; when the daily
// endpoint fails the first bar's open stands in for the figure too.
func (s *Source) OfficialOpen(ctx context.Context, symbol string, day time.Time) (*datasource.OpenQuote, error) {
	bars, err := s.MinuteBars(ctx, symbol, day)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, nil
	}

	quote := &datasource.OpenQuote{Time: bars[0].Timestamp, Price: bars[0].Open}

	params := models.GetDailyOpenCloseAggParams{
		Ticker: symbol,
		Date:   models.Date(day),
	}.WithAdjusted(true)

	start := time.Now()
	res, err := s.client.GetDailyOpenCloseAgg(ctx, params)
	metrics.ProviderRequestDuration.WithLabelValues("polygon").Observe(time.Since(start).Seconds())
	if err != nil {
		log.WithError(err).WithField("symbol", symbol).Warn("daily open/close fetch failed, using first bar")
		return quote, nil
	}
	quote.Price = decimal.NewFromFloat(res.Open).Round(4)
	return quote, nil
}

// FirstTrade approximates the first trade with the first minute bar's open;
// aggregate data carries no trade-level detail.
func (s *Source) FirstTrade(ctx context.Context, symbol string, day time.Time) (*datasource.OpenQuote, error) {
	bars, err := s.MinuteBars(ctx, symbol, day)
	if err != nil || len(bars) == 0 {
		return nil, err
	}
	return &datasource.OpenQuote{Time: bars[0].Timestamp, Price: bars[0].Open}, nil
}

// TradingDay reports weekends as closed, and weekdays with no aggregates as
// closed too: unlike the chart API, Polygon serves history promptly, so an
// empty day means the market did not trade.
func (s *Source) TradingDay(ctx context.Context, symbol string, day time.Time) (model.TradingDayInfo, error) {
	if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return model.TradingDayInfo{Reason: "Weekend"}, nil
	}
	bars, err := s.MinuteBars(ctx, symbol, day)
	if err != nil {
		return model.TradingDayInfo{}, err
	}
	if len(bars) == 0 {
		return model.TradingDayInfo{Reason: "No data available"}, nil
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
	}
	return "USD"
}
