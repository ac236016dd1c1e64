// Package intraday computes the per-symbol price difference between the two
// sampling instants of a trading day, 09:00 and 09:50 local to the query
// timezone. Symbols resolve concurrently under an admission gate; a failure
// in one symbol degrades that symbol only.
package intraday

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"stockdiff/internal/align"
	"stockdiff/internal/datasource"
	"stockdiff/internal/metrics"
	"stockdiff/internal/model"
	"stockdiff/internal/pricecache"
)

// The two sampling minutes are wall-clock 09:00 and 09:50 in the query
// timezone. Part of the wire contract (the t0900/t0950 response fields),
// not configuration.
func sampleInstants(day time.Time) (t0900, t0950 time.Time) {
	y, m, d := day.Date()
	loc := day.Location()
	return time.Date(y, m, d, 9, 0, 0, 0, loc), time.Date(y, m, d, 9, 50, 0, 0, loc)
}

// Option configures a Service.
type Option func(*Service)

// WithTolerance sets the alignment window in minutes for minute-bar lookups.
func WithTolerance(minutes int) Option {
	return func(s *Service) {
		if minutes >= 0 {
			s.tolerance = minutes
		}
	}
}

// WithMaxConcurrent bounds how many symbols resolve at once per request.
func WithMaxConcurrent(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxConcurrent = int64(n)
		}
	}
}

// Service resolves batch diff queries against one data source, memoizing
// resolved price points in a shared TTL cache.
type Service struct {
	source        datasource.DataSource
	cache         *pricecache.Cache
	tolerance     int
	maxConcurrent int64
}

func New(source datasource.DataSource, cache *pricecache.Cache, opts ...Option) *Service {
	s := &Service{
		source:        source,
		cache:         cache,
		tolerance:     2,
		maxConcurrent: 10,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Query resolves every requested symbol and assembles the response in the
// request's symbol order. The request must already be validated; the only
// error returned here is a timezone or date the validator should have
// rejected.
func (s *Service) Query(ctx context.Context, req model.IntradayDiffRequest) (*model.IntradayDiffResponse, error) {
	day, err := req.Day()
	if err != nil {
		return nil, err
	}

	results := make([]model.StockResult, len(req.Symbols))
	warnings := []string{}

	sem := semaphore.NewWeighted(s.maxConcurrent)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for i, symbol := range req.Symbols {
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			metrics.SymbolQueries.Inc()

			currency := s.source.Currency(symbol)
			res, err := s.runSymbol(ctx, sem, symbol, day, req.PriceSource)
			if err != nil {
				metrics.SymbolErrors.WithLabelValues("task").Inc()
				log.WithError(err).WithField("symbol", symbol).Warn("symbol query failed")
				mu.Lock()
				warnings = append(warnings, fmt.Sprintf("query %s failed: %v", symbol, err))
				mu.Unlock()
				res = model.StockResult{
					Symbol:   symbol,
					Currency: currency,
					Notes:    []string{fmt.Sprintf("system error: %v", err)},
				}
			}
			results[i] = res
		}(i, symbol)
	}
	wg.Wait()

	return &model.IntradayDiffResponse{
		Date:        req.Date,
		Timezone:    req.Timezone,
		PriceSource: req.PriceSource,
		Results:     results,
		Warnings:    warnings,
	}, nil
}

// runSymbol acquires an admission slot and resolves one symbol. Panics in
// the resolution path surface as errors here, so a bad provider response
// can never take down sibling symbols.
func (s *Service) runSymbol(ctx context.Context, sem *semaphore.Weighted, symbol string, day time.Time, source model.PriceSource) (res model.StockResult, err error) {
	if err := sem.Acquire(ctx, 1); err != nil {
		return model.StockResult{}, fmt.Errorf("acquire worker slot: %w", err)
	}
	defer sem.Release(1)
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return s.resolveSymbol(ctx, symbol, day, source)
}

func (s *Service) resolveSymbol(ctx context.Context, symbol string, day time.Time, source model.PriceSource) (model.StockResult, error) {
	res := model.StockResult{
		Symbol:   symbol,
		Currency: s.source.Currency(symbol),
		Notes:    []string{},
	}

	info, err := s.source.TradingDay(ctx, symbol, day)
	if err != nil {
		return res, fmt.Errorf("check trading day: %w", err)
	}
	if !info.IsTradingDay {
		reason := info.Reason
		if reason == "" {
			reason = "Non-trading day"
		}
		res.Notes = append(res.Notes, fmt.Sprintf("Non-trading day (%s)", reason))
		return res, nil
	}

	t0900, t0950 := sampleInstants(day)

	switch source {
	case model.SourceOfficialOpen:
		res.T0900 = s.officialOpen(ctx, symbol, day, &res.Notes)
	case model.SourceFirstTrade:
		res.T0900 = s.firstTrade(ctx, symbol, day, &res.Notes)
	default:
		res.T0900 = s.minutePrice(ctx, symbol, day, t0900, &res.Notes)
	}
	res.T0950 = s.minutePrice(ctx, symbol, day, t0950, &res.Notes)

	if res.T0900 != nil && res.T0950 != nil {
		d := res.T0950.Price.Sub(res.T0900.Price).Round(2)
		res.Diff = &d
	}
	return res, nil
}

// officialOpen resolves the exchange-reported opening price. Provider
// errors are contained here as a note; only the note and an absent point
// reach the caller.
func (s *Service) officialOpen(ctx context.Context, symbol string, day time.Time, notes *[]string) *model.PricePoint {
	key := fmt.Sprintf("official_open:%s:%s:%s", symbol, day.Format("2006-01-02"), day.Location())
	if p, ok := s.cache.Get(key); ok {
		metrics.CacheHits.Inc()
		return &p
	}
	metrics.CacheMisses.Inc()

	quote, err := s.source.OfficialOpen(ctx, symbol, day)
	if err != nil {
		metrics.SymbolErrors.WithLabelValues("lookup").Inc()
		*notes = append(*notes, fmt.Sprintf("Failed to get official open price: %v", err))
		return nil
	}
	if quote == nil {
		*notes = append(*notes, "Official open price not available")
		return nil
	}

	point := model.PricePoint{Time: quote.Time, Price: quote.Price, Source: "official_open"}
	s.cache.Set(key, point)
	return &point
}

func (s *Service) firstTrade(ctx context.Context, symbol string, day time.Time, notes *[]string) *model.PricePoint {
	key := fmt.Sprintf("first_trade:%s:%s:%s", symbol, day.Format("2006-01-02"), day.Location())
	if p, ok := s.cache.Get(key); ok {
		metrics.CacheHits.Inc()
		return &p
	}
	metrics.CacheMisses.Inc()

	quote, err := s.source.FirstTrade(ctx, symbol, day)
	if err != nil {
		metrics.SymbolErrors.WithLabelValues("lookup").Inc()
		*notes = append(*notes, fmt.Sprintf("Failed to get first trade price: %v", err))
		return nil
	}
	if quote == nil {
		*notes = append(*notes, "First trade price not available")
		return nil
	}

	point := model.PricePoint{Time: quote.Time, Price: quote.Price, Source: "first_trade"}
	s.cache.Set(key, point)
	return &point
}

// minutePrice resolves the bar opening price at target, within the
// alignment tolerance. The cache key carries the hour and minute so both
// sampling instants of one day cache independently.
func (s *Service) minutePrice(ctx context.Context, symbol string, day time.Time, target time.Time, notes *[]string) *model.PricePoint {
	key := fmt.Sprintf("minute:%s:%s:%s:%d:%d",
		symbol, day.Format("2006-01-02"), day.Location(), target.Hour(), target.Minute())
	if p, ok := s.cache.Get(key); ok {
		metrics.CacheHits.Inc()
		return &p
	}
	metrics.CacheMisses.Inc()

	bars, err := s.source.MinuteBars(ctx, symbol, day)
	if err != nil {
		metrics.SymbolErrors.WithLabelValues("lookup").Inc()
		*notes = append(*notes, fmt.Sprintf("Failed to get minute price: %v", err))
		return nil
	}
	if len(bars) == 0 {
		*notes = append(*notes, fmt.Sprintf("No minute bar data available for %s", target.Format("15:04")))
		return nil
	}

	match, ok := align.Resolve(bars, target, s.tolerance)
	if !ok {
		*notes = append(*notes, fmt.Sprintf("No data found for %s (±%d min tolerance)", target.Format("15:04"), s.tolerance))
		return nil
	}

	label := "minute_bar"
	if match.Offset != 0 {
		label = fmt.Sprintf("minute_bar (aligned %+dmin)", match.Offset)
		*notes = append(*notes, fmt.Sprintf("Used %s data (%+d min alignment)",
			match.Bar.Timestamp.Format("15:04"), match.Offset))
	}

	point := model.PricePoint{Time: match.Bar.Timestamp, Price: match.Bar.Open, Source: label}
	s.cache.Set(key, point)
	return &point
}
