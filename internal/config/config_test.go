package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.FX.AccessKey = "key"
	return cfg
}

func TestDefaultsValidate(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults with access key should validate: %v", err)
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "bogus"
	cfg.Scan.Pairs = nil
	cfg.Thresholds.ProfitPct = 0
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"unknown mode", "at least one base/compare pair", "profit_pct"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q:\n%v", want, err)
		}
	}
}

func TestValidateUnknownPairVenue(t *testing.T) {
	cfg := validConfig()
	cfg.Scan.Pairs = []VenuePair{{Base: "upbit", Compare: "mexc"}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown compare venue")
	}
}

func TestLoadAppliesTOMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
mode = "loop"

[scan]
timeout = "30s"
interval = "2m"

[thresholds]
profit_pct = 7.5

[venues.upbit]
fetch_concurrency = 5
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("KIMCHI_FX_ACCESS_KEY", "env-key")
	t.Setenv("KIMCHI_THRESHOLDS_LIQUIDITY_USD", "25000")
	t.Setenv("KIMCHI_VENUES_BINANCE_DENY_LIST", "BTG, VEN")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Mode != "loop" {
		t.Errorf("mode = %q, want loop", cfg.Mode)
	}
	if cfg.Scan.Timeout.Duration != 30*time.Second {
		t.Errorf("timeout = %v, want 30s", cfg.Scan.Timeout.Duration)
	}
	if cfg.Scan.Interval.Duration != 2*time.Minute {
		t.Errorf("interval = %v, want 2m", cfg.Scan.Interval.Duration)
	}
	if cfg.Thresholds.ProfitPct != 7.5 {
		t.Errorf("profit_pct = %v, want 7.5", cfg.Thresholds.ProfitPct)
	}
	if cfg.FX.AccessKey != "env-key" {
		t.Errorf("access key = %q, want env override", cfg.FX.AccessKey)
	}
	if cfg.Thresholds.LiquidityUSD != 25000 {
		t.Errorf("liquidity threshold = %v, want 25000", cfg.Thresholds.LiquidityUSD)
	}
	if cfg.Venues["upbit"].FetchConcurrency != 5 {
		t.Errorf("upbit concurrency = %d, want 5", cfg.Venues["upbit"].FetchConcurrency)
	}
	deny := cfg.Venues["binance"].DenyList
	if len(deny) != 2 || deny[0] != "BTG" || deny[1] != "VEN" {
		t.Errorf("binance deny list = %v, want [BTG VEN]", deny)
	}
	// TOML merges on top of defaults; untouched venues keep theirs.
	if cfg.Venues["bithumb"].FetchConcurrency != 4 {
		t.Errorf("bithumb concurrency = %d, want default 4", cfg.Venues["bithumb"].FetchConcurrency)
	}
}

func TestTelegramChatSelection(t *testing.T) {
	cfg := validConfig()
	cfg.Notify.TelegramChatID = "prod"
	cfg.Notify.TelegramTestChatID = "test"

	cfg.Notify.Channel = "production"
	if got := cfg.TelegramChat(); got != "prod" {
		t.Errorf("production chat = %q", got)
	}
	cfg.Notify.Channel = "test"
	if got := cfg.TelegramChat(); got != "test" {
		t.Errorf("test chat = %q", got)
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Notify.TelegramToken = "secret-token"
	cfg.Redis.Password = "hunter2"

	red := RedactedConfig(&cfg)
	if red.Notify.TelegramToken != "***" || red.Redis.Password != "***" || red.FX.AccessKey != "***" {
		t.Error("secrets not redacted")
	}
	if cfg.Notify.TelegramToken != "secret-token" {
		t.Error("original mutated")
	}
	red.Venues["upbit"] = VenueConfig{}
	if !cfg.Venues["upbit"].Enabled {
		t.Error("redacted copy shares venue map with original")
	}
}
