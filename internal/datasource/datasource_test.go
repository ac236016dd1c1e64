package datasource_test

import (
	"testing"

	"stockdiff/internal/datasource"
)

func TestParseExchange(t *testing.T) {
	tests := []struct {
		symbol string
		want   string
	}{
		{"2330.TW", "TW"},
		{"6488.TWO", "TW"},
		{"2330.tw", "TW"},
		{"AAPL.US", "US"},
		{"7203.JP", "JP"},
		{"AAPL", "US"},
		{"0700.HK", "US"},
		{"", "US"},
	}

	for _, tc := range tests {
		if got := datasource.ParseExchange(tc.symbol); got != tc.want {
			t.Errorf("ParseExchange(%q) = %q, want %q", tc.symbol, got, tc.want)
		}
	}
}
