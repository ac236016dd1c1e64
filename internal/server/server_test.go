package server_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"stockdiff/internal/datasource/fixture"
	"stockdiff/internal/datasource/yahoo"
	"stockdiff/internal/intraday"
	"stockdiff/internal/model"
	"stockdiff/internal/pricecache"
	"stockdiff/internal/server"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	decimal.MarshalJSONWithoutQuotes = true
	svc := intraday.New(fixture.New(), pricecache.New(time.Minute))
	return server.New(svc, yahoo.New(nil), "test").Router()
}

func postDiff(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/stocks/intraday-diff", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestDiffEndToEnd(t *testing.T) {
	router := newTestRouter(t)

	rr := postDiff(t, router, `{
		"symbols": ["2330.TW", "AAPL"],
		"date": "2025-05-20",
		"timezone": "Asia/Taipei",
		"price_source": "minute_bar"
	}`)
	require.Equal(t, http.StatusOK, rr.Code, "body=%s", rr.Body.String())
	require.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	var resp model.IntradayDiffResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	require.Equal(t, "2025-05-20", resp.Date)
	require.Len(t, resp.Results, 2)
	require.Equal(t, "2330.TW", resp.Results[0].Symbol)
	require.Equal(t, "6.5", resp.Results[0].Diff.String())
	require.Equal(t, "TWD", resp.Results[0].Currency)
	require.Nil(t, resp.Results[1].T0900)
	require.Equal(t, "USD", resp.Results[1].Currency)

	// The raw body mirrors the contract shapes.
	s := rr.Body.String()
	require.Contains(t, s, `"t0900":null`)
	require.Contains(t, s, `"warnings":[]`)
}

func TestDiffDefaultsApplied(t *testing.T) {
	router := newTestRouter(t)

	rr := postDiff(t, router, `{"symbols":["2330.TW"],"date":"2025-05-20"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp model.IntradayDiffResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "Asia/Taipei", resp.Timezone)
	require.Equal(t, model.SourceMinuteBar, resp.PriceSource)
}

func TestDiffValidationFailures(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed json", `{"symbols": [`, "body: invalid JSON"},
		{"empty symbols", `{"symbols":[],"date":"2025-05-20"}`, "symbols:"},
		{"blank symbol", `{"symbols":["2330.TW",""],"date":"2025-05-20"}`, "symbols[1]:"},
		{"bad date", `{"symbols":["AAPL"],"date":"05/20/2025"}`, "date:"},
		{"bad timezone", `{"symbols":["AAPL"],"date":"2025-05-20","timezone":"Nowhere/City"}`, "timezone:"},
		{"bad price source", `{"symbols":["AAPL"],"date":"2025-05-20","price_source":"close"}`, "price_source:"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := postDiff(t, router, tc.body)
			require.Equal(t, http.StatusUnprocessableEntity, rr.Code, "body=%s", rr.Body.String())

			var payload struct {
				Detail struct {
					Message string   `json:"message"`
					Errors  []string `json:"errors"`
				} `json:"detail"`
			}
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
			require.Equal(t, "request validation failed", payload.Detail.Message)
			require.NotEmpty(t, payload.Detail.Errors)
			require.Contains(t, payload.Detail.Errors[0], tc.want)
		})
	}
}

func TestDiffTooManySymbols(t *testing.T) {
	router := newTestRouter(t)

	symbols := make([]string, model.MaxSymbols+1)
	for i := range symbols {
		symbols[i] = fmt.Sprintf("SYM%d.TW", i)
	}
	body, err := json.Marshal(map[string]any{"symbols": symbols, "date": "2025-05-20"})
	require.NoError(t, err)

	rr := postDiff(t, router, string(body))
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)

	var payload struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	require.Equal(t, "too many symbols: got 201, limit is 200", payload.Detail)
}

func TestDiffAtSymbolLimitStillServed(t *testing.T) {
	router := newTestRouter(t)

	symbols := make([]string, model.MaxSymbols)
	for i := range symbols {
		symbols[i] = fmt.Sprintf("SYM%d.TW", i)
	}
	body, err := json.Marshal(map[string]any{"symbols": symbols, "date": "2025-05-20"})
	require.NoError(t, err)

	rr := postDiff(t, router, string(body))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp model.IntradayDiffResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Results, model.MaxSymbols)
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"status":"healthy"}`, rr.Body.String())
}

func TestRoot(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var payload struct {
		Service   string            `json:"service"`
		Version   string            `json:"version"`
		Endpoints map[string]string `json:"endpoints"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	require.Equal(t, "stockdiff", payload.Service)
	require.Equal(t, "test", payload.Version)
	require.NotEmpty(t, payload.Endpoints)
}

func TestMetricsExposed(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "stockdiff_")
}

func TestGzipNegotiated(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "gzip", rr.Header().Get("Content-Encoding"))
}

func TestBodyLimit(t *testing.T) {
	router := newTestRouter(t)

	big := bytes.Repeat([]byte("a"), 2<<20)
	rr := postDiff(t, router, `{"symbols":["`+string(big)+`"],"date":"2025-05-20"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code, "oversized body must fail decoding, not crash")
}

func TestMethodNotAllowed(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/stocks/intraday-diff", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
