// Package real reserves the data source slot for the production market
// data vendor. Integration is pending; every data operation reports
// datasource.ErrNotImplemented so a misconfigured deployment fails loudly
// per symbol instead of serving fabricated prices.
package real

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stockdiff/internal/datasource"
	"stockdiff/internal/model"
)

// Source is the placeholder vendor client. The API key is accepted so
// deployments can stage credentials ahead of the integration.
type Source struct {
	apiKey string
}

func New(apiKey string) *Source {
	return &Source{apiKey: apiKey}
}

func (s *Source) Name() string { return "real" }

func (s *Source) MinuteBars(_ context.Context, _ string, _ time.Time) ([]model.MinuteBar, error) {
	return nil, fmt.Errorf("real data source: %w", datasource.ErrNotImplemented)
}

func (s *Source) OfficialOpen(_ context.Context, _ string, _ time.Time) (*datasource.OpenQuote, error) {
	return nil, fmt.Errorf("real data source: %w", datasource.ErrNotImplemented)
}

func (s *Source) FirstTrade(_ context.Context, _ string, _ time.Time) (*datasource.OpenQuote, error) {
	return nil, fmt.Errorf("real data source: %w", datasource.ErrNotImplemented)
}

func (s *Source) TradingDay(_ context.Context, _ string, _ time.Time) (model.TradingDayInfo, error) {
	return model.TradingDayInfo{}, fmt.Errorf("real data source: %w", datasource.ErrNotImplemented)
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
