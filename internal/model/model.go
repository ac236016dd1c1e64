// Package model holds the wire and domain types shared across the service:
// minute bars, price points, per-symbol results, and the request/response
// contract of the diff endpoint.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MaxSymbols caps how many symbols one diff request may carry.
const MaxSymbols = 200

// PriceSource selects which opening price fills the 09:00 slot of a query.
type PriceSource string

const (
	SourceOfficialOpen PriceSource = "official_open"
	SourceFirstTrade   PriceSource = "first_trade"
	SourceMinuteBar    PriceSource = "minute_bar"
)

// Valid reports whether s is one of the three supported sources.
func (s PriceSource) Valid() bool {
	switch s {
	case SourceOfficialOpen, SourceFirstTrade, SourceMinuteBar:
		return true
	}
	return false
}

// MinuteBar is one OHLCV bar keyed by its opening minute.
type MinuteBar struct {
	Timestamp time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    int64
}

// TradingDayInfo reports whether a market traded on a given day. Reason is
// free-form provider text ("Weekend", "Holiday", ...). EarlyClose is kept
// for providers that can report shortened sessions; none do today.
type TradingDayInfo struct {
	IsTradingDay bool
	Reason       string
	EarlyClose   *time.Time
}

// PricePoint is one sampled price with its provenance label. A point is
// present or absent as a whole; when present all fields are set.
type PricePoint struct {
	Time   time.Time       `json:"time"`
	Price  decimal.Decimal `json:"price"`
	Source string          `json:"source"`
}

// StockResult is the per-symbol outcome of a diff query. Absent points and
// diffs marshal as null; Notes always marshals as a list.
type StockResult struct {
	Symbol   string           `json:"symbol"`
	T0900    *PricePoint      `json:"t0900"`
	T0950    *PricePoint      `json:"t0950"`
	Diff     *decimal.Decimal `json:"diff"`
	Currency string           `json:"currency"`
	Notes    []string         `json:"notes"`
}

// IntradayDiffRequest is the body of POST /v1/stocks/intraday-diff.
// Exchange is accepted for forward compatibility and echoed nowhere.
type IntradayDiffRequest struct {
	Symbols     []string    `json:"symbols"`
	Date        string      `json:"date"`
	Exchange    string      `json:"exchange"`
	Timezone    string      `json:"timezone"`
	PriceSource PriceSource `json:"price_source"`
}

// ApplyDefaults fills the optional fields with their documented defaults.
func (r *IntradayDiffRequest) ApplyDefaults() {
	if r.Exchange == "" {
		r.Exchange = "auto"
	}
	if r.Timezone == "" {
		r.Timezone = "Asia/Taipei"
	}
	if r.PriceSource == "" {
		r.PriceSource = SourceMinuteBar
	}
}

// Validate returns one "field: message" string per invalid field. The
// symbol count cap is enforced separately so oversized batches can map to
// a distinct status code.
func (r *IntradayDiffRequest) Validate() []string {
	var errs []string
	if len(r.Symbols) == 0 {
		errs = append(errs, "symbols: must not be empty")
	}
	for i, s := range r.Symbols {
		if strings.TrimSpace(s) == "" {
			errs = append(errs, fmt.Sprintf("symbols[%d]: must not be blank", i))
		}
	}
	if _, err := time.Parse("2006-01-02", r.Date); err != nil {
		errs = append(errs, "date: must be formatted YYYY-MM-DD")
	}
	if _, err := time.LoadLocation(r.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("timezone: unknown timezone %q", r.Timezone))
	}
	if !r.PriceSource.Valid() {
		errs = append(errs, "price_source: must be one of official_open, first_trade, minute_bar")
	}
	return errs
}

// Day resolves the requested date to midnight in the requested timezone.
func (r *IntradayDiffRequest) Day() (time.Time, error) {
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("load timezone: %w", err)
	}
	day, err := time.ParseInLocation("2006-01-02", r.Date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date: %w", err)
	}
	return day, nil
}

// IntradayDiffResponse is the body of a successful diff query. Results keep
// the request's symbol order, one entry per requested symbol.
type IntradayDiffResponse struct {
	Date        string        `json:"date"`
	Timezone    string        `json:"timezone"`
	PriceSource PriceSource   `json:"price_source"`
	Results     []StockResult `json:"results"`
	Warnings    []string      `json:"warnings"`
}
