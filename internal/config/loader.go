package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies KIMCHI_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known KIMCHI_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── FX ──
	setStr(&cfg.FX.URL, "KIMCHI_FX_URL")
	setStr(&cfg.FX.AccessKey, "KIMCHI_FX_ACCESS_KEY")
	setStr(&cfg.FX.AccessKey, "EXCHANGE_RATE_KEY") // compatibility alias
	setStr(&cfg.FX.LocalCurrency, "KIMCHI_FX_LOCAL_CURRENCY")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "KIMCHI_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "KIMCHI_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "KIMCHI_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "KIMCHI_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "KIMCHI_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "KIMCHI_REDIS_TLS_ENABLED")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "KIMCHI_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "KIMCHI_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "KIMCHI_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "KIMCHI_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "KIMCHI_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "KIMCHI_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "KIMCHI_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "KIMCHI_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "KIMCHI_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "KIMCHI_POSTGRES_RUN_MIGRATIONS")

	// ── Thresholds ──
	setFloat64(&cfg.Thresholds.ProfitPct, "KIMCHI_THRESHOLDS_PROFIT_PCT")
	setFloat64(&cfg.Thresholds.AbsoluteProfitUSD, "KIMCHI_THRESHOLDS_ABSOLUTE_PROFIT_USD")
	setFloat64(&cfg.Thresholds.LiquidityUSD, "KIMCHI_THRESHOLDS_LIQUIDITY_USD")

	// ── Scan ──
	setStr(&cfg.Scan.ReferenceAsset, "KIMCHI_SCAN_REFERENCE_ASSET")
	setFloat64(&cfg.Scan.DepthBand, "KIMCHI_SCAN_DEPTH_BAND")
	setDuration(&cfg.Scan.Timeout, "KIMCHI_SCAN_TIMEOUT")
	setDuration(&cfg.Scan.Interval, "KIMCHI_SCAN_INTERVAL")

	// ── Venues ──
	for name, v := range cfg.Venues {
		prefix := "KIMCHI_VENUES_" + strings.ToUpper(name) + "_"
		setBool(&v.Enabled, prefix+"ENABLED")
		setStr(&v.BaseURL, prefix+"BASE_URL")
		setInt(&v.FetchConcurrency, prefix+"FETCH_CONCURRENCY")
		setFloat64(&v.RequestsPerSec, prefix+"REQUESTS_PER_SEC")
		setStringSlice(&v.DenyList, prefix+"DENY_LIST")
		setStringSlice(&v.ExcludeSymbols, prefix+"EXCLUDE_SYMBOLS")
		cfg.Venues[name] = v
	}

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "KIMCHI_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramToken, "telegram_key") // compatibility alias
	setStr(&cfg.Notify.TelegramChatID, "KIMCHI_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.TelegramTestChatID, "KIMCHI_NOTIFY_TELEGRAM_TEST_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "KIMCHI_NOTIFY_DISCORD_WEBHOOK_URL")
	setStr(&cfg.Notify.Channel, "KIMCHI_NOTIFY_CHANNEL")

	// ── Top-level ──
	setStr(&cfg.Mode, "KIMCHI_MODE")
	setStr(&cfg.LogLevel, "KIMCHI_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
