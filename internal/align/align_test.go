package align_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stockdiff/internal/align"
	"stockdiff/internal/model"
)

func bar(t time.Time, price int64) model.MinuteBar {
	p := decimal.NewFromInt(price)
	return model.MinuteBar{Timestamp: t, Open: p, High: p, Low: p, Close: p, Volume: 100}
}

func minuteSet(base time.Time, minutes ...int) []model.MinuteBar {
	bars := make([]model.MinuteBar, 0, len(minutes))
	for _, m := range minutes {
		bars = append(bars, bar(base.Add(time.Duration(m)*time.Minute), int64(100+m)))
	}
	return bars
}

func TestResolve(t *testing.T) {
	base := time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		minutes    []int
		target     time.Time
		tolerance  int
		wantFound  bool
		wantOffset int
	}{
		{"exact match", []int{0, 1, 2}, base, 2, true, 0},
		{"forward one", []int{1, 2}, base, 2, true, 1},
		{"forward two", []int{2}, base, 2, true, 2},
		{"backward one", []int{-1}, base, 2, true, -1},
		{"backward two", []int{-2}, base, 2, true, -2},
		{"forward beats backward at equal distance", []int{-1, 1}, base, 2, true, 1},
		{"farther forward still beats nearer backward", []int{-1, 2}, base, 2, true, 2},
		{"outside tolerance", []int{3}, base, 2, false, 0},
		{"zero tolerance misses neighbors", []int{1}, base, 0, false, 0},
		{"zero tolerance exact still hits", []int{0}, base, 0, true, 0},
		{"empty bars", nil, base, 2, false, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, ok := align.Resolve(minuteSet(base, tc.minutes...), tc.target, tc.tolerance)
			if ok != tc.wantFound {
				t.Fatalf("found=%v, want %v", ok, tc.wantFound)
			}
			if !ok {
				return
			}
			if m.Offset != tc.wantOffset {
				t.Fatalf("offset=%d, want %d", m.Offset, tc.wantOffset)
			}
			wantTime := tc.target.Add(time.Duration(tc.wantOffset) * time.Minute)
			if !m.Bar.Timestamp.Equal(wantTime) {
				t.Fatalf("bar at %v, want %v", m.Bar.Timestamp, wantTime)
			}
		})
	}
}

func TestResolveIgnoresSeconds(t *testing.T) {
	base := time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)
	bars := []model.MinuteBar{bar(base.Add(30*time.Second), 100)}

	m, ok := align.Resolve(bars, base.Add(45*time.Second), 0)
	if !ok {
		t.Fatal("want exact match within the same minute")
	}
	if m.Offset != 0 {
		t.Fatalf("offset=%d, want 0", m.Offset)
	}
}

func TestAt(t *testing.T) {
	base := time.Date(2025, 5, 20, 9, 30, 0, 0, time.UTC)
	bars := minuteSet(base, 0, 1)

	if _, ok := align.At(bars, base.Add(time.Minute)); !ok {
		t.Fatal("want hit at 09:31")
	}
	if _, ok := align.At(bars, base.Add(2*time.Minute)); ok {
		t.Fatal("want miss at 09:32")
	}
}
