// Package config defines the top-level configuration for the kimchi premium
// scanner and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by KIMCHI_* environment variables.
type Config struct {
	Venues     map[string]VenueConfig `toml:"venues"`
	Scan       ScanConfig             `toml:"scan"`
	Thresholds ThresholdsConfig       `toml:"thresholds"`
	FX         FXConfig               `toml:"fx"`
	Redis      RedisConfig            `toml:"redis"`
	Postgres   PostgresConfig         `toml:"postgres"`
	Notify     NotifyConfig           `toml:"notify"`
	Mode       string                 `toml:"mode"`
	LogLevel   string                 `toml:"log_level"`
}

// VenueConfig holds per-venue fetch parameters. The concurrency cap and
// request pacing are tuned empirically per venue to stay under its
// (undocumented) rate limiter; they are configuration, not constants.
type VenueConfig struct {
	Enabled bool   `toml:"enabled"`
	BaseURL string `toml:"base_url"`
	// FetchConcurrency bounds the orderbook worker pool for this venue.
	FetchConcurrency int `toml:"fetch_concurrency"`
	// RequestsPerSec paces requests within the pool; 0 disables pacing.
	RequestsPerSec float64 `toml:"requests_per_sec"`
	// DenyList names delisted or data-glitch tickers skipped at the
	// symbol-listing stage, before any network fetch.
	DenyList []string `toml:"deny_list"`
	// ExcludeSymbols names assets whose normalized symbol maps to a
	// different underlying instrument on this venue; they are excluded
	// entirely. Asymmetric per venue.
	ExcludeSymbols []string `toml:"exclude_symbols"`
}

// VenuePair names one base x comparison evaluation.
type VenuePair struct {
	Base    string `toml:"base"`
	Compare string `toml:"compare"`
}

// ScanConfig holds cycle-level parameters.
type ScanConfig struct {
	Pairs []VenuePair `toml:"pairs"`
	// ReferenceAsset is the transfer-cost proxy; its cross-venue ask spread
	// taxes every modeled round trip.
	ReferenceAsset string `toml:"reference_asset"`
	// DepthBand is the fractional band around mid inside which book levels
	// count toward depth liquidity.
	DepthBand float64  `toml:"depth_band"`
	Timeout   duration `toml:"timeout"`
	// Interval is the cycle period in loop mode.
	Interval duration `toml:"interval"`
}

// ThresholdsConfig holds the alert trigger gates. All must hold for a row to
// fire.
type ThresholdsConfig struct {
	ProfitPct         float64 `toml:"profit_pct"`
	AbsoluteProfitUSD float64 `toml:"absolute_profit_usd"`
	LiquidityUSD      float64 `toml:"liquidity_usd"`
}

// FXConfig holds the currency-rate provider parameters.
type FXConfig struct {
	URL           string `toml:"url"`
	AccessKey     string `toml:"access_key"`
	LocalCurrency string `toml:"local_currency"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// PostgresConfig holds PostgreSQL connection parameters for the durable
// rate/alert record. Leave DSN and Host empty to run without a store.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// NotifyConfig holds notification channel credentials. Channel selects which
// Telegram chat receives alerts: "production" or "test".
type NotifyConfig struct {
	TelegramToken      string `toml:"telegram_token"`
	TelegramChatID     string `toml:"telegram_chat_id"`
	TelegramTestChatID string `toml:"telegram_test_chat_id"`
	DiscordWebhookURL  string `toml:"discord_webhook_url"`
	Channel            string `toml:"channel"`
	// Events filters which event types are delivered; empty means all.
	Events []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// The venue caps reflect observed public rate limits.
func Defaults() Config {
	return Config{
		Venues: map[string]VenueConfig{
			"upbit": {
				Enabled:          true,
				BaseURL:          "https://api.upbit.com",
				FetchConcurrency: 9,
				RequestsPerSec:   9,
				DenyList:         []string{},
				ExcludeSymbols:   []string{},
			},
			"bithumb": {
				Enabled:          true,
				BaseURL:          "https://api.bithumb.com",
				FetchConcurrency: 4,
				RequestsPerSec:   4,
				DenyList:         []string{},
				ExcludeSymbols:   []string{},
			},
			"binance": {
				Enabled:          true,
				BaseURL:          "https://api.binance.com",
				FetchConcurrency: 16,
				RequestsPerSec:   18,
				DenyList:         []string{"BTG"},
				ExcludeSymbols:   []string{},
			},
		},
		Scan: ScanConfig{
			Pairs: []VenuePair{
				{Base: "upbit", Compare: "binance"},
				{Base: "bithumb", Compare: "binance"},
			},
			ReferenceAsset: "ETH",
			DepthBand:      0.02,
			Timeout:        duration{55 * time.Second},
			Interval:       duration{time.Minute},
		},
		Thresholds: ThresholdsConfig{
			ProfitPct:         5.0,
			AbsoluteProfitUSD: 1000.0,
			LiquidityUSD:      10000.0,
		},
		FX: FXConfig{
			URL:           "https://api.exchangeratesapi.io/v1/latest",
			LocalCurrency: "KRW",
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   10,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Postgres: PostgresConfig{
			Host:          "",
			Port:          5432,
			Database:      "kimchibot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  5,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		Notify: NotifyConfig{
			Channel: "test",
		},
		Mode:     "scan",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"scan":    true,
	"loop":    true,
	"monitor": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validChannels enumerates the accepted values for Notify.Channel.
var validChannels = map[string]bool{
	"production": true,
	"test":       true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: scan, loop, monitor)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Venues
	for name, v := range c.Venues {
		if !v.Enabled {
			continue
		}
		if v.BaseURL == "" {
			errs = append(errs, fmt.Sprintf("venues.%s: base_url must not be empty", name))
		}
		if v.FetchConcurrency < 1 {
			errs = append(errs, fmt.Sprintf("venues.%s: fetch_concurrency must be >= 1", name))
		}
		if v.RequestsPerSec < 0 {
			errs = append(errs, fmt.Sprintf("venues.%s: requests_per_sec must not be negative", name))
		}
	}

	// Scan
	if len(c.Scan.Pairs) == 0 {
		errs = append(errs, "scan: at least one base/compare pair is required")
	}
	for i, p := range c.Scan.Pairs {
		if _, ok := c.Venues[p.Base]; !ok {
			errs = append(errs, fmt.Sprintf("scan.pairs[%d]: unknown base venue %q", i, p.Base))
		}
		if _, ok := c.Venues[p.Compare]; !ok {
			errs = append(errs, fmt.Sprintf("scan.pairs[%d]: unknown compare venue %q", i, p.Compare))
		}
	}
	if c.Scan.ReferenceAsset == "" {
		errs = append(errs, "scan: reference_asset must not be empty")
	}
	if c.Scan.DepthBand <= 0 || c.Scan.DepthBand >= 1 {
		errs = append(errs, fmt.Sprintf("scan: depth_band must be in (0, 1), got %g", c.Scan.DepthBand))
	}
	if c.Scan.Timeout.Duration <= 0 {
		errs = append(errs, "scan: timeout must be > 0")
	}
	if c.Mode == "loop" && c.Scan.Interval.Duration <= 0 {
		errs = append(errs, "scan: interval must be > 0 in loop mode")
	}

	// Thresholds
	if c.Thresholds.ProfitPct <= 0 {
		errs = append(errs, "thresholds: profit_pct must be > 0")
	}
	if c.Thresholds.AbsoluteProfitUSD < 0 {
		errs = append(errs, "thresholds: absolute_profit_usd must not be negative")
	}
	if c.Thresholds.LiquidityUSD < 0 {
		errs = append(errs, "thresholds: liquidity_usd must not be negative")
	}

	// FX
	if c.FX.URL == "" {
		errs = append(errs, "fx: url must not be empty")
	}
	if c.FX.AccessKey == "" {
		errs = append(errs, "fx: access_key must not be empty")
	}
	if c.FX.LocalCurrency == "" {
		errs = append(errs, "fx: local_currency must not be empty")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// Postgres — optional, but when pointed somewhere it must be coherent.
	if strings.TrimSpace(c.Postgres.DSN) != "" || c.Postgres.Host != "" {
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Notify
	if !validChannels[strings.ToLower(c.Notify.Channel)] {
		errs = append(errs, fmt.Sprintf("notify: unknown channel %q (valid: production, test)", c.Notify.Channel))
	}
	if c.Notify.TelegramToken != "" {
		want := c.Notify.TelegramChatID
		if strings.ToLower(c.Notify.Channel) == "test" {
			want = c.Notify.TelegramTestChatID
		}
		if want == "" {
			errs = append(errs, fmt.Sprintf("notify: telegram chat id for channel %q must be set", c.Notify.Channel))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// TelegramChat returns the Telegram chat ID selected by Notify.Channel.
func (c *Config) TelegramChat() string {
	if strings.ToLower(c.Notify.Channel) == "test" {
		return c.Notify.TelegramTestChatID
	}
	return c.Notify.TelegramChatID
}
