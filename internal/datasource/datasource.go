// Package datasource defines the market data abstraction the diff service
// reads from, plus the symbol helpers all implementations share.
package datasource

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stockdiff/internal/model"
)

// ErrNotImplemented marks operations of a source that is configured but not
// yet backed by a real vendor.
var ErrNotImplemented = errors.New("data source operation not implemented")

// OpenQuote is a single opening trade observation.
type OpenQuote struct {
	Time  time.Time
	Price decimal.Decimal
}

// DataSource supplies market data one day at a time. The day argument is
// midnight of the requested date in the query timezone; implementations
// derive both the calendar date and the zone from it.
//
// MinuteBars returns the day's bars in ascending time order, empty when the
// market did not trade or the vendor has no data. OfficialOpen and
// FirstTrade return (nil, nil) when the figure is simply unavailable;
// errors are reserved for transport and vendor failures.
type DataSource interface {
	Name() string
	MinuteBars(ctx context.Context, symbol string, day time.Time) ([]model.MinuteBar, error)
	OfficialOpen(ctx context.Context, symbol string, day time.Time) (*OpenQuote, error)
	FirstTrade(ctx context.Context, symbol string, day time.Time) (*OpenQuote, error)
	TradingDay(ctx context.Context, symbol string, day time.Time) (model.TradingDayInfo, error)
	Currency(symbol string) string
}

// ParseExchange infers an exchange code from the symbol suffix. Unsuffixed
// symbols are treated as US listings.
func ParseExchange(symbol string) string {
	s := strings.ToUpper(symbol)
	switch {
	case strings.HasSuffix(s, ".TW"), strings.HasSuffix(s, ".TWO"):
		return "TW"
	case strings.HasSuffix(s, ".US"):
		return "US"
	case strings.HasSuffix(s, ".JP"):
		return "JP"
	}
	return "US"
}
