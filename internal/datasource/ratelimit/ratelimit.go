// Package ratelimit decorates a data source with a shared token bucket so
// the service stays under a vendor's request quota. Only the operations
// that reach the vendor wait for a token; Currency is a pure lookup and
// passes through.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"stockdiff/internal/datasource"
	"stockdiff/internal/model"
)

// Source wraps another DataSource behind a rate limiter. All operations of
// one wrapped source share a single bucket.
type Source struct {
	ds  datasource.DataSource
	lim *rate.Limiter
}

// Wrap limits ds to rps requests per second with the given burst. A burst
// below one is raised to one so the limiter can ever admit a call.
func Wrap(ds datasource.DataSource, rps float64, burst int) *Source {
	if burst < 1 {
		burst = 1
	}
	return &Source{ds: ds, lim: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (s *Source) Name() string { return s.ds.Name() }

func (s *Source) MinuteBars(ctx context.Context, symbol string, day time.Time) ([]model.MinuteBar, error) {
	if err := s.lim.Wait(ctx); err != nil {
		return nil, err
	}
	return s.ds.MinuteBars(ctx, symbol, day)
}

func (s *Source) OfficialOpen(ctx context.Context, symbol string, day time.Time) (*datasource.OpenQuote, error) {
	if err := s.lim.Wait(ctx); err != nil {
		return nil, err
	}
	return s.ds.OfficialOpen(ctx, symbol, day)
}

func (s *Source) FirstTrade(ctx context.Context, symbol string, day time.Time) (*datasource.OpenQuote, error) {
	if err := s.lim.Wait(ctx); err != nil {
		return nil, err
	}
	return s.ds.FirstTrade(ctx, symbol, day)
}

func (s *Source) TradingDay(ctx context.Context, symbol string, day time.Time) (model.TradingDayInfo, error) {
	if err := s.lim.Wait(ctx); err != nil {
		return model.TradingDayInfo{}, err
	}
	return s.ds.TradingDay(ctx, symbol, day)
}

func (s *Source) Currency(symbol string) string { return s.ds.Currency(symbol) }
