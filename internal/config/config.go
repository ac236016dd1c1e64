// Package config loads the service configuration from the environment. A
// .env file in the working directory is read best-effort first, then each
// variable overrides the built-in default.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Yahoo holds the chart API provider settings.
type Yahoo struct {
	Endpoint        string
	BarsCacheTTLSec int
	MaxRPS          float64
	Burst           int
}

// Polygon holds the Polygon.io provider settings. The provider is only
// selectable when APIKey is set.
type Polygon struct {
	APIKey          string
	BarsCacheTTLSec int
	MaxRPS          float64
	Burst           int
}

type Config struct {
	Port              string
	RequestTimeoutSec int

	// DataSource selects the provider: mock, yahoo, polygon, or real.
	DataSource string

	CacheTTLSeconds       int
	MaxConcurrentRequests int
	ToleranceMinutes      int

	LogLevel string

	Yahoo      Yahoo
	Polygon    Polygon
	RealAPIKey string
}

func Default() Config {
	return Config{
		Port:                  "8000",
		RequestTimeoutSec:     15,
		DataSource:            "mock",
		CacheTTLSeconds:       600,
		MaxConcurrentRequests: 10,
		ToleranceMinutes:      2,
		LogLevel:              "info",
		Yahoo: Yahoo{
			BarsCacheTTLSec: 300,
			Burst:           1,
		},
		Polygon: Polygon{
			BarsCacheTTLSec: 300,
			Burst:           1,
		},
	}
}

// Load reads a .env file if one exists, applies environment overrides to
// the defaults, and validates the result.
func Load() (Config, error) {
	_ = godotenv.Load()
	cfg := Default()
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.DataSource {
	case "mock", "yahoo", "polygon", "real":
	default:
		return fmt.Errorf("DATA_SOURCE must be one of mock, yahoo, polygon, real; got %q", c.DataSource)
	}
	if c.DataSource == "polygon" && c.Polygon.APIKey == "" {
		return fmt.Errorf("DATA_SOURCE=polygon requires POLYGON_API_KEY")
	}
	if c.RequestTimeoutSec <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT_SEC must be positive; got %d", c.RequestTimeoutSec)
	}
	if c.CacheTTLSeconds <= 0 {
		return fmt.Errorf("CACHE_TTL_SECONDS must be positive; got %d", c.CacheTTLSeconds)
	}
	if c.MaxConcurrentRequests <= 0 {
		return fmt.Errorf("MAX_CONCURRENT_REQUESTS must be positive; got %d", c.MaxConcurrentRequests)
	}
	if c.ToleranceMinutes < 0 {
		return fmt.Errorf("TIME_ALIGNMENT_TOLERANCE_MINUTES must not be negative; got %d", c.ToleranceMinutes)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	setInt(&cfg.RequestTimeoutSec, "REQUEST_TIMEOUT_SEC")
	if v := os.Getenv("DATA_SOURCE"); v != "" {
		cfg.DataSource = strings.ToLower(v)
	}
	setInt(&cfg.CacheTTLSeconds, "CACHE_TTL_SECONDS")
	setInt(&cfg.MaxConcurrentRequests, "MAX_CONCURRENT_REQUESTS")
	setInt(&cfg.ToleranceMinutes, "TIME_ALIGNMENT_TOLERANCE_MINUTES")
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	if v := os.Getenv("YAHOO_ENDPOINT"); v != "" {
		cfg.Yahoo.Endpoint = v
	}
	setInt(&cfg.Yahoo.BarsCacheTTLSec, "YAHOO_BARS_CACHE_TTL_SEC")
	setFloat(&cfg.Yahoo.MaxRPS, "YAHOO_MAX_RPS")
	setInt(&cfg.Yahoo.Burst, "YAHOO_BURST")

	if v := os.Getenv("POLYGON_API_KEY"); v != "" {
		cfg.Polygon.APIKey = v
	}
	setInt(&cfg.Polygon.BarsCacheTTLSec, "POLYGON_BARS_CACHE_TTL_SEC")
	setFloat(&cfg.Polygon.MaxRPS, "POLYGON_MAX_RPS")
	setInt(&cfg.Polygon.Burst, "POLYGON_BURST")

	if v := os.Getenv("REAL_DATA_API_KEY"); v != "" {
		cfg.RealAPIKey = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		var x int
		if _, err := fmt.Sscanf(v, "%d", &x); err == nil {
			*dst = x
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		var x float64
		if _, err := fmt.Sscanf(v, "%f", &x); err == nil {
			*dst = x
		}
	}
}
