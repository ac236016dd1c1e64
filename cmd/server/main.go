// Command server runs the intraday diff HTTP service.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"stockdiff/internal/config"
	"stockdiff/internal/datasource"
	"stockdiff/internal/datasource/fixture"
	"stockdiff/internal/datasource/polygon"
	"stockdiff/internal/datasource/ratelimit"
	"stockdiff/internal/datasource/real"
	"stockdiff/internal/datasource/yahoo"
	"stockdiff/internal/httpx"
	"stockdiff/internal/intraday"
	"stockdiff/internal/pricecache"
	"stockdiff/internal/server"
)

const version = "1.0.0"

func main() {
	// Prices are JSON numbers on the wire, not strings.
	decimal.MarshalJSONWithoutQuotes = true

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	setupLogging(cfg.LogLevel)

	httpClient := httpx.New(time.Duration(cfg.RequestTimeoutSec) * time.Second)

	// The yahoo source is always built: the diagnostics endpoint probes the
	// live vendor even when the service runs on another source.
	yahooSrc := yahoo.New(httpClient,
		yahoo.WithEndpoint(cfg.Yahoo.Endpoint),
		yahoo.WithBarsCacheTTL(time.Duration(cfg.Yahoo.BarsCacheTTLSec)*time.Second),
	)

	src, err := buildSource(cfg, yahooSrc)
	if err != nil {
		log.WithError(err).Fatal("build data source")
	}
	log.WithField("data_source", src.Name()).Info("data source selected")

	cache := pricecache.New(time.Duration(cfg.CacheTTLSeconds) * time.Second)
	svc := intraday.New(src, cache,
		intraday.WithTolerance(cfg.ToleranceMinutes),
		intraday.WithMaxConcurrent(cfg.MaxConcurrentRequests),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.New(svc, yahooSrc, version).Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("shutdown")
	}
}

func setupLogging(level string) {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}

// buildSource picks the configured data source and applies the optional
// rate limit to the live ones.
func buildSource(cfg config.Config, yahooSrc *yahoo.Source) (datasource.DataSource, error) {
	switch cfg.DataSource {
	case "mock":
		return fixture.New(), nil
	case "yahoo":
		if cfg.Yahoo.MaxRPS > 0 {
			return ratelimit.Wrap(yahooSrc, cfg.Yahoo.MaxRPS, cfg.Yahoo.Burst), nil
		}
		return yahooSrc, nil
	case "polygon":
		src := polygon.New(cfg.Polygon.APIKey,
			polygon.WithBarsCacheTTL(time.Duration(cfg.Polygon.BarsCacheTTLSec)*time.Second))
		if cfg.Polygon.MaxRPS > 0 {
			return ratelimit.Wrap(src, cfg.Polygon.MaxRPS, cfg.Polygon.Burst), nil
		}
		return src, nil
	case "real":
		return real.New(cfg.RealAPIKey), nil
	}
	return nil, fmt.Errorf("unknown data source %q", cfg.DataSource)
}
