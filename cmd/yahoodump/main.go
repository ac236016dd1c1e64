// Command yahoodump fetches one raw chart API payload and prints it, either
// verbatim or parsed into bars. Used to inspect what the vendor actually
// returns when the service misbehaves for a symbol.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"stockdiff/internal/datasource/yahoo"
	"stockdiff/internal/httpx"
)

func main() {
	var (
		symbol     string
		date       string
		timezone   string
		interval   string
		endpoint   string
		raw        bool
		timeoutSec int
	)
	flag.StringVar(&symbol, "symbol", "2330.TW", "ticker symbol")
	flag.StringVar(&date, "date", time.Now().Format("2006-01-02"), "session date, YYYY-MM-DD")
	flag.StringVar(&timezone, "timezone", "Asia/Taipei", "IANA timezone of the session")
	flag.StringVar(&interval, "interval", "1m", "chart interval (1m, 5m, 1h, 1d)")
	flag.StringVar(&endpoint, "endpoint", "https://query1.finance.yahoo.com/v8/finance/chart", "chart API base URL")
	flag.BoolVar(&raw, "raw", false, "print the unparsed JSON payload")
	flag.IntVar(&timeoutSec, "timeout", 15, "HTTP timeout seconds")
	flag.Parse()

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		fatalf("timezone: %v", err)
	}
	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		fatalf("date: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSec)*time.Second)
	defer cancel()

	client := httpx.New(time.Duration(timeoutSec) * time.Second)

	if raw {
		dumpRaw(ctx, client, endpoint, symbol, interval, day)
		return
	}

	src := yahoo.New(client, yahoo.WithEndpoint(endpoint))
	bars, err := src.MinuteBars(ctx, symbol, day)
	if err != nil {
		fatalf("fetch bars: %v", err)
	}
	fmt.Printf("%d bars for %s on %s\n", len(bars), symbol, date)
	for _, b := range bars {
		fmt.Printf("%s  O=%s H=%s L=%s C=%s V=%d\n",
			b.Timestamp.Format("15:04"), b.Open, b.High, b.Low, b.Close, b.Volume)
	}
}

func dumpRaw(ctx context.Context, client *httpx.Client, endpoint, symbol, interval string, day time.Time) {
	from := day
	to := day.AddDate(0, 0, 1)
	u := yahoo.ChartURL(endpoint, yahoo.ConvertSymbol(symbol), interval, from, to)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		fatalf("build request: %v", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := client.Do(ctx, req)
	if err != nil {
		fatalf("fetch: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fatalf("read body: %v", err)
	}
	fmt.Fprintf(os.Stderr, "GET %s -> %d\n", u, resp.StatusCode)

	var pretty json.RawMessage = body
	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		// Not JSON; print as-is.
		fmt.Println(string(body))
		return
	}
	fmt.Println(string(out))
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
