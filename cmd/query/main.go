// Command query runs one batch diff query from the command line and prints
// the JSON response, bypassing the HTTP layer. Handy for poking a data
// source without standing up the server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"stockdiff/internal/config"
	"stockdiff/internal/datasource"
	"stockdiff/internal/datasource/fixture"
	"stockdiff/internal/datasource/polygon"
	"stockdiff/internal/datasource/real"
	"stockdiff/internal/datasource/yahoo"
	"stockdiff/internal/httpx"
	"stockdiff/internal/intraday"
	"stockdiff/internal/model"
	"stockdiff/internal/pricecache"
)

func main() {
	var (
		symbolsCSV  string
		date        string
		timezone    string
		priceSource string
		sourceName  string
		timeoutSec  int
	)
	flag.StringVar(&symbolsCSV, "symbols", "2330.TW,AAPL", "comma-separated ticker symbols")
	flag.StringVar(&date, "date", time.Now().Format("2006-01-02"), "query date, YYYY-MM-DD")
	flag.StringVar(&timezone, "timezone", "Asia/Taipei", "IANA timezone of the sampling instants")
	flag.StringVar(&priceSource, "price-source", "minute_bar", "official_open | first_trade | minute_bar")
	flag.StringVar(&sourceName, "data-source", "", "mock | yahoo | polygon | real (default from env)")
	flag.IntVar(&timeoutSec, "timeout", 0, "request timeout seconds (default from env)")
	flag.Parse()

	decimal.MarshalJSONWithoutQuotes = true
	log.SetLevel(log.WarnLevel)

	cfg, err := config.Load()
	if err != nil {
		fatalf("config: %v", err)
	}
	if sourceName != "" {
		cfg.DataSource = sourceName
	}
	if timeoutSec > 0 {
		cfg.RequestTimeoutSec = timeoutSec
	}

	req := model.IntradayDiffRequest{
		Symbols:     splitCSV(symbolsCSV),
		Date:        date,
		Timezone:    timezone,
		PriceSource: model.PriceSource(priceSource),
	}
	req.ApplyDefaults()
	if errs := req.Validate(); len(errs) > 0 {
		fatalf("invalid request: %s", strings.Join(errs, "; "))
	}

	src, err := buildSource(cfg)
	if err != nil {
		fatalf("data source: %v", err)
	}

	cache := pricecache.New(time.Duration(cfg.CacheTTLSeconds) * time.Second)
	svc := intraday.New(src, cache,
		intraday.WithTolerance(cfg.ToleranceMinutes),
		intraday.WithMaxConcurrent(cfg.MaxConcurrentRequests),
	)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.RequestTimeoutSec)*time.Second*2)
	defer cancel()

	resp, err := svc.Query(ctx, req)
	if err != nil {
		fatalf("query: %v", err)
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		fatalf("encode: %v", err)
	}
	fmt.Println(string(out))
}

func buildSource(cfg config.Config) (datasource.DataSource, error) {
	switch cfg.DataSource {
	case "mock":
		return fixture.New(), nil
	case "yahoo":
		httpClient := httpx.New(time.Duration(cfg.RequestTimeoutSec) * time.Second)
		return yahoo.New(httpClient,
			yahoo.WithEndpoint(cfg.Yahoo.Endpoint),
			yahoo.WithBarsCacheTTL(time.Duration(cfg.Yahoo.BarsCacheTTLSec)*time.Second),
		), nil
	case "polygon":
		if cfg.Polygon.APIKey == "" {
			return nil, fmt.Errorf("POLYGON_API_KEY not set")
		}
		return polygon.New(cfg.Polygon.APIKey,
			polygon.WithBarsCacheTTL(time.Duration(cfg.Polygon.BarsCacheTTLSec)*time.Second)), nil
	case "real":
		return real.New(cfg.RealAPIKey), nil
	}
	return nil, fmt.Errorf("unknown data source %q", cfg.DataSource)
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
