package server

import (
	"fmt"
	"net/http"
	"time"
)

type diagCheck struct {
	Name       string `json:"name"`
	OK         bool   `json:"ok"`
	Detail     string `json:"detail"`
	DurationMS int64  `json:"duration_ms"`
}

type diagResponse struct {
	Provider string      `json:"provider"`
	Status   string      `json:"status"`
	Checks   []diagCheck `json:"checks"`
}

// handleYahooDiagnostics probes the live chart provider and reports each
// sub-check's outcome. Always 200: the payload carries the verdict.
func (s *Server) handleYahooDiagnostics(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		symbol = "AAPL"
	}
	ctx := r.Context()

	checks := []diagCheck{
		runCheck("chart_reachable", func() (string, error) {
			if err := s.yahoo.Ping(ctx, symbol); err != nil {
				return "", err
			}
			return "daily chart fetched and parsed", nil
		}),
		runCheck("minute_bars", func() (string, error) {
			day := lastWeekday(time.Now().UTC())
			bars, err := s.yahoo.MinuteBars(ctx, symbol, day)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%d bars for %s", len(bars), day.Format("2006-01-02")), nil
		}),
		runCheck("currency", func() (string, error) {
			c := s.yahoo.Currency(symbol)
			if c == "" {
				return "", fmt.Errorf("no currency mapped for %s", symbol)
			}
			return c, nil
		}),
	}

	status := "pass"
	for _, c := range checks {
		if !c.OK {
			status = "fail"
			break
		}
	}
	writeJSON(w, http.StatusOK, diagResponse{Provider: "yahoo", Status: status, Checks: checks})
}

func runCheck(name string, fn func() (string, error)) diagCheck {
	start := time.Now()
	detail, err := fn()
	check := diagCheck{Name: name, OK: err == nil, Detail: detail, DurationMS: time.Since(start).Milliseconds()}
	if err != nil {
		check.Detail = err.Error()
	}
	return check
}

// lastWeekday steps back from now to the most recent weekday before today,
// a date with a completed session on most exchanges.
func lastWeekday(now time.Time) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
		day = day.AddDate(0, 0, -1)
	}
	return day
}
