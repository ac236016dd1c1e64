// Package fixture is the built-in data source used for development and
// tests. It serves a fixed table of symbols and days covering the shapes
// the service has to handle: normal TW and US sessions, holidays and
// weekends, a session with no 09:00 bar, and an early close with no data
// after 09:40. Unknown symbols and dates are treated as trading days with
// no bars, the same answer a lagging live vendor would give.
package fixture

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stockdiff/internal/datasource"
	"stockdiff/internal/model"
)

var (
	taipei  = mustLoc("Asia/Taipei")
	newYork = mustLoc("America/New_York")
)

func mustLoc(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var (
	one        = decimal.NewFromInt(1)
	half       = d("0.5")
	twoAndHalf = d("2.5")
	fifth      = d("0.2")
	nickel     = d("0.05")
)

type quote struct {
	at    time.Time
	price decimal.Decimal
}

type day struct {
	trading      bool
	reason       string
	officialOpen *quote
	firstTrade   *quote
	bars         []model.MinuteBar
}

// Source serves the static table. Safe for concurrent use; the table is
// never mutated after construction.
type Source struct {
	days map[string]map[string]day
}

func New() *Source {
	return &Source{days: map[string]map[string]day{
		"2330.TW": {
			"2025-05-20": {
				trading:      true,
				officialOpen: &quote{at: time.Date(2025, time.May, 20, 9, 0, 0, 0, taipei), price: d("823.0")},
				firstTrade:   &quote{at: time.Date(2025, time.May, 20, 9, 0, 15, 0, taipei), price: d("823.0")},
				bars:         twBars(2025, time.May, 20, d("823.0"), d("829.5")),
			},
			"2025-12-25": {reason: "Holiday"},
			"2026-01-22": {
				trading:      true,
				officialOpen: &quote{at: time.Date(2026, time.January, 22, 9, 0, 0, 0, taipei), price: d("1050.0")},
				firstTrade:   &quote{at: time.Date(2026, time.January, 22, 9, 0, 10, 0, taipei), price: d("1050.0")},
				bars:         twBars(2026, time.January, 22, d("1050.0"), d("1068.0")),
			},
			"2026-01-23": {
				trading:      true,
				officialOpen: &quote{at: time.Date(2026, time.January, 23, 9, 0, 0, 0, taipei), price: d("1065.0")},
				firstTrade:   &quote{at: time.Date(2026, time.January, 23, 9, 0, 8, 0, taipei), price: d("1065.0")},
				bars:         twBars(2026, time.January, 23, d("1065.0"), d("1078.0")),
			},
		},
		"2317.TW": {
			"2026-01-22": {
				trading:      true,
				officialOpen: &quote{at: time.Date(2026, time.January, 22, 9, 0, 0, 0, taipei), price: d("185.0")},
				firstTrade:   &quote{at: time.Date(2026, time.January, 22, 9, 0, 5, 0, taipei), price: d("185.0")},
				bars:         twBars(2026, time.January, 22, d("185.0"), d("188.5")),
			},
			"2026-01-23": {
				trading:      true,
				officialOpen: &quote{at: time.Date(2026, time.January, 23, 9, 0, 0, 0, taipei), price: d("188.0")},
				firstTrade:   &quote{at: time.Date(2026, time.January, 23, 9, 0, 5, 0, taipei), price: d("188.0")},
				bars:         twBars(2026, time.January, 23, d("188.0"), d("192.5")),
			},
		},
		"2356.TW": {
			"2026-01-22": {
				trading:      true,
				officialOpen: &quote{at: time.Date(2026, time.January, 22, 9, 0, 0, 0, taipei), price: d("52.3")},
				firstTrade:   &quote{at: time.Date(2026, time.January, 22, 9, 0, 8, 0, taipei), price: d("52.3")},
				bars:         twBars(2026, time.January, 22, d("52.3"), d("53.8")),
			},
			"2026-01-23": {
				trading:      true,
				officialOpen: &quote{at: time.Date(2026, time.January, 23, 9, 0, 0, 0, taipei), price: d("53.5")},
				firstTrade:   &quote{at: time.Date(2026, time.January, 23, 9, 0, 6, 0, taipei), price: d("53.5")},
				bars:         twBars(2026, time.January, 23, d("53.5"), d("54.8")),
			},
		},
		"AAPL": {
			"2025-05-20": {reason: "Weekend"},
			"2025-05-19": {
				trading:      true,
				officialOpen: &quote{at: time.Date(2025, time.May, 19, 9, 30, 0, 0, taipei), price: d("182.5")},
				firstTrade:   &quote{at: time.Date(2025, time.May, 19, 9, 30, 5, 0, taipei), price: d("182.5")},
				bars:         usBars(2025, time.May, 19, d("182.5"), d("185.2")),
			},
		},
		// Early close: bars stop at 09:40, so the 09:50 sample has nothing
		// within tolerance.
		"2884.TW": {
			"2025-05-20": {
				trading:      true,
				officialOpen: &quote{at: time.Date(2025, time.May, 20, 9, 0, 0, 0, taipei), price: d("25.5")},
				firstTrade:   &quote{at: time.Date(2025, time.May, 20, 9, 0, 10, 0, taipei), price: d("25.5")},
				bars:         earlyCloseBars(2025, time.May, 20, d("25.5")),
			},
		},
		// Data gap: the 09:00 bar is missing, the session starts at 09:01.
		"2412.TW": {
			"2025-05-20": {
				trading:      true,
				officialOpen: &quote{at: time.Date(2025, time.May, 20, 9, 0, 0, 0, taipei), price: d("126.5")},
				firstTrade:   &quote{at: time.Date(2025, time.May, 20, 9, 1, 3, 0, taipei), price: d("126.55")},
				bars:         twBars(2025, time.May, 20, d("126.5"), d("129.0"))[1:],
			},
		},
	}}
}

// twBars builds a TW session, 09:00 through 12:30 Asia/Taipei. The open
// ramps linearly from start at 09:00 to end at 09:50, then wobbles around
// end for the rest of the session.
func twBars(year int, month time.Month, dayNum int, start, end decimal.Decimal) []model.MinuteBar {
	step := end.Sub(start).Div(decimal.NewFromInt(50))
	var bars []model.MinuteBar
	for hour := 9; hour <= 12; hour++ {
		lastMinute := 59
		if hour == 12 {
			lastMinute = 30
		}
		for minute := 0; minute <= lastMinute; minute++ {
			var price decimal.Decimal
			if hour == 9 && minute <= 50 {
				price = start.Add(step.Mul(decimal.NewFromInt(int64(minute))))
			} else {
				price = end.Add(decimal.NewFromInt(int64(minute % 10)).Mul(half)).Sub(twoAndHalf)
			}
			bars = append(bars, model.MinuteBar{
				Timestamp: time.Date(year, month, dayNum, hour, minute, 0, 0, taipei),
				Open:      price,
				High:      price.Add(one),
				Low:       price.Sub(one),
				Close:     price,
				Volume:    int64(1000 + minute*10),
			})
		}
	}
	return bars
}

// usBars builds a US session, 390 minutes from 09:30 America/New_York. The
// open ramps from start to end over the first 20 minutes.
func usBars(year int, month time.Month, dayNum int, start, end decimal.Decimal) []model.MinuteBar {
	step := end.Sub(start).Div(decimal.NewFromInt(20))
	open := time.Date(year, month, dayNum, 9, 30, 0, 0, newYork)
	bars := make([]model.MinuteBar, 0, 390)
	for i := 0; i < 390; i++ {
		var price decimal.Decimal
		if i < 20 {
			price = start.Add(step.Mul(decimal.NewFromInt(int64(i))))
		} else {
			price = end.Add(decimal.NewFromInt(int64(i % 10)).Mul(fifth)).Sub(one)
		}
		bars = append(bars, model.MinuteBar{
			Timestamp: open.Add(time.Duration(i) * time.Minute),
			Open:      price,
			High:      price.Add(half),
			Low:       price.Sub(half),
			Close:     price,
			Volume:    int64(5000 + i*50),
		})
	}
	return bars
}

// earlyCloseBars builds a session that ends at 09:40 Asia/Taipei.
func earlyCloseBars(year int, month time.Month, dayNum int, start decimal.Decimal) []model.MinuteBar {
	bars := make([]model.MinuteBar, 0, 41)
	for minute := 0; minute <= 40; minute++ {
		price := start.Add(decimal.NewFromInt(int64(minute)).Mul(nickel))
		bars = append(bars, model.MinuteBar{
			Timestamp: time.Date(year, month, dayNum, 9, minute, 0, 0, taipei),
			Open:      price,
			High:      price.Add(fifth),
			Low:       price.Sub(fifth),
			Close:     price,
			Volume:    int64(500 + minute*5),
		})
	}
	return bars
}

func (s *Source) lookup(symbol string, at time.Time) (day, bool) {
	byDate, ok := s.days[symbol]
	if !ok {
		return day{}, false
	}
	fx, ok := byDate[at.Format("2006-01-02")]
	return fx, ok
}

func (s *Source) Name() string { return "mock" }

func (s *Source) MinuteBars(_ context.Context, symbol string, dayArg time.Time) ([]model.MinuteBar, error) {
	fx, ok := s.lookup(symbol, dayArg)
	if !ok || !fx.trading {
		return nil, nil
	}
	return fx.bars, nil
}

func (s *Source) OfficialOpen(_ context.Context, symbol string, dayArg time.Time) (*datasource.OpenQuote, error) {
	fx, ok := s.lookup(symbol, dayArg)
	if !ok || !fx.trading || fx.officialOpen == nil {
		return nil, nil
	}
	return &datasource.OpenQuote{
		Time:  fx.officialOpen.at.In(dayArg.Location()),
		Price: fx.officialOpen.price,
	}, nil
}

func (s *Source) FirstTrade(_ context.Context, symbol string, dayArg time.Time) (*datasource.OpenQuote, error) {
	fx, ok := s.lookup(symbol, dayArg)
	if !ok || !fx.trading || fx.firstTrade == nil {
		return nil, nil
	}
	return &datasource.OpenQuote{
		Time:  fx.firstTrade.at.In(dayArg.Location()),
		Price: fx.firstTrade.price,
	}, nil
}

// TradingDay assumes unknown symbols and dates are trading days; only the
// table's explicit closures report otherwise.
func (s *Source) TradingDay(_ context.Context, symbol string, dayArg time.Time) (model.TradingDayInfo, error) {
	fx, ok := s.lookup(symbol, dayArg)
	if !ok {
		return model.TradingDayInfo{IsTradingDay: true}, nil
	}
	return model.TradingDayInfo{IsTradingDay: fx.trading, Reason: fx.reason}, nil
}

func (s *Source) Currency(symbol string) string {
	u := strings.ToUpper(symbol)
	switch {
	case strings.Contains(u, ".TW"), strings.Contains(u, ".TWO"):
		return "TWD"
	case strings.Contains(u, ".JP"):
		return "JPY"
	}
	return "USD"
}
