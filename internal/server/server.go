// Package server wires the HTTP surface: the diff endpoint, health and
// diagnostics, and the middleware chain around them. Handlers never fail a
// whole batch for one bad symbol; only malformed requests are rejected.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"stockdiff/internal/datasource/yahoo"
	"stockdiff/internal/intraday"
	"stockdiff/internal/model"
)

// Server holds the handler dependencies. The yahoo source is kept
// separately from the serving data source so diagnostics can probe the
// live vendor regardless of which source the service runs on.
type Server struct {
	svc     *intraday.Service
	yahoo   *yahoo.Source
	version string
}

func New(svc *intraday.Service, yahooSrc *yahoo.Source, version string) *Server {
	return &Server{svc: svc, yahoo: yahooSrc, version: version}
}

// Router returns the full handler chain.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/v1/stocks/intraday-diff", s.handleDiff).Methods(http.MethodPost)
	r.HandleFunc("/v1/diagnostics/yahoo", s.handleYahooDiagnostics).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return requestLog(jsonHeaders(withGzip(recoverPanic(limitBody(r)))))
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "stockdiff",
		"version": s.version,
		"endpoints": map[string]string{
			"diff":        "POST /v1/stocks/intraday-diff",
			"health":      "GET /health",
			"diagnostics": "GET /v1/diagnostics/yahoo",
			"metrics":     "GET /metrics",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	var req model.IntradayDiffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationErrors(w, []string{"body: invalid JSON"})
		return
	}
	req.ApplyDefaults()

	if errs := req.Validate(); len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}
	// Checked after field validation so an oversized batch of otherwise
	// valid symbols maps to 413, not 422.
	if len(req.Symbols) > model.MaxSymbols {
		writeDetail(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("too many symbols: got %d, limit is %d", len(req.Symbols), model.MaxSymbols))
		return
	}

	resp, err := s.svc.Query(r.Context(), req)
	if err != nil {
		log.WithError(err).Error("diff query failed")
		writeDetail(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		log.WithError(err).Error("encode response")
	}
}

// writeDetail writes the {"detail": ...} error envelope.
func writeDetail(w http.ResponseWriter, status int, detail any) {
	writeJSON(w, status, map[string]any{"detail": detail})
}

func writeValidationErrors(w http.ResponseWriter, errs []string) {
	writeDetail(w, http.StatusUnprocessableEntity, map[string]any{
		"message": "request validation failed",
		"errors":  errs,
	})
}
