// Package align resolves a requested minute to an available bar within a
// bounded window. Later bars are preferred over earlier ones: every forward
// offset is probed before any backward offset.
package align

import (
	"time"

	"stockdiff/internal/model"
)

// Match is a resolved bar. Offset is the signed distance in minutes from
// the requested minute; zero means an exact hit.
type Match struct {
	Bar    model.MinuteBar
	Offset int
}

// At returns the bar whose timestamp falls in the same minute as target.
func At(bars []model.MinuteBar, target time.Time) (model.MinuteBar, bool) {
	want := target.Truncate(time.Minute)
	for _, b := range bars {
		if b.Timestamp.Truncate(time.Minute).Equal(want) {
			return b, true
		}
	}
	return model.MinuteBar{}, false
}

// Resolve finds the bar for target, trying the exact minute, then +1 up to
// +tolerance, then -1 down to -tolerance. A forward match wins even when a
// backward bar sits closer.
func Resolve(bars []model.MinuteBar, target time.Time, tolerance int) (Match, bool) {
	if b, ok := At(bars, target); ok {
		return Match{Bar: b}, true
	}
	for off := 1; off <= tolerance; off++ {
		if b, ok := At(bars, target.Add(time.Duration(off)*time.Minute)); ok {
			return Match{Bar: b, Offset: off}, true
		}
	}
	for off := 1; off <= tolerance; off++ {
		if b, ok := At(bars, target.Add(-time.Duration(off)*time.Minute)); ok {
			return Match{Bar: b, Offset: -off}, true
		}
	}
	return Match{}, false
}
