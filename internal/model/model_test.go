package model_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"stockdiff/internal/model"
)

func validRequest() model.IntradayDiffRequest {
	return model.IntradayDiffRequest{
		Symbols:     []string{"2330.TW", "AAPL"},
		Date:        "2025-05-20",
		Exchange:    "auto",
		Timezone:    "Asia/Taipei",
		PriceSource: model.SourceMinuteBar,
	}
}

func TestApplyDefaults(t *testing.T) {
	req := model.IntradayDiffRequest{Symbols: []string{"AAPL"}, Date: "2025-05-20"}
	req.ApplyDefaults()

	require.Equal(t, "auto", req.Exchange)
	require.Equal(t, "Asia/Taipei", req.Timezone)
	require.Equal(t, model.SourceMinuteBar, req.PriceSource)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*model.IntradayDiffRequest)
		wantErrs []string
	}{
		{"valid", func(r *model.IntradayDiffRequest) {}, nil},
		{
			"empty symbols",
			func(r *model.IntradayDiffRequest) { r.Symbols = nil },
			[]string{"symbols:"},
		},
		{
			"blank symbol",
			func(r *model.IntradayDiffRequest) { r.Symbols = []string{"AAPL", "  "} },
			[]string{"symbols[1]:"},
		},
		{
			"bad date",
			func(r *model.IntradayDiffRequest) { r.Date = "20.05.2025" },
			[]string{"date:"},
		},
		{
			"bad timezone",
			func(r *model.IntradayDiffRequest) { r.Timezone = "Mars/Olympus" },
			[]string{"timezone:"},
		},
		{
			"bad price source",
			func(r *model.IntradayDiffRequest) { r.PriceSource = "vwap" },
			[]string{"price_source:"},
		},
		{
			"multiple failures reported together",
			func(r *model.IntradayDiffRequest) { r.Symbols = nil; r.Date = "bad" },
			[]string{"symbols:", "date:"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req)
			errs := req.Validate()
			require.Len(t, errs, len(tc.wantErrs))
			for i, prefix := range tc.wantErrs {
				require.True(t, strings.HasPrefix(errs[i], prefix), "errs[%d]=%q, want prefix %q", i, errs[i], prefix)
			}
		})
	}
}

func TestDay(t *testing.T) {
	req := validRequest()
	day, err := req.Day()
	require.NoError(t, err)

	require.Equal(t, "Asia/Taipei", day.Location().String())
	require.Equal(t, 2025, day.Year())
	require.Equal(t, time.May, day.Month())
	require.Equal(t, 20, day.Day())
	require.Equal(t, 0, day.Hour())
}

func TestStockResultJSONShape(t *testing.T) {
	decimal.MarshalJSONWithoutQuotes = true

	diff := decimal.RequireFromString("6.50")
	res := model.StockResult{
		Symbol: "2330.TW",
		T0900: &model.PricePoint{
			Time:   time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC),
			Price:  decimal.RequireFromString("823.0"),
			Source: "minute_bar",
		},
		Diff:     &diff,
		Currency: "TWD",
		Notes:    []string{},
	}

	b, err := json.Marshal(res)
	require.NoError(t, err)

	s := string(b)
	require.Contains(t, s, `"t0950":null`, "absent point must marshal as null")
	require.Contains(t, s, `"diff":6.5`, "diff must be a bare number")
	require.Contains(t, s, `"notes":[]`, "empty notes must marshal as a list")
}
