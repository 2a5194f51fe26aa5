package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/kimchibot/internal/cache/redis"
	"github.com/alanyoungcy/kimchibot/internal/config"
	"github.com/alanyoungcy/kimchibot/internal/domain"
	"github.com/alanyoungcy/kimchibot/internal/fetch"
	"github.com/alanyoungcy/kimchibot/internal/fx"
	"github.com/alanyoungcy/kimchibot/internal/notify"
	"github.com/alanyoungcy/kimchibot/internal/scan"
	"github.com/alanyoungcy/kimchibot/internal/spread"
	"github.com/alanyoungcy/kimchibot/internal/store/postgres"
	"github.com/alanyoungcy/kimchibot/internal/venue"
	"github.com/alanyoungcy/kimchibot/internal/venue/binance"
	"github.com/alanyoungcy/kimchibot/internal/venue/bithumb"
	"github.com/alanyoungcy/kimchibot/internal/venue/upbit"
)

// Dependencies bundles everything the application modes need to operate. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Venues   map[string]*scan.Venue
	Rates    fx.Provider
	Notifier *notify.Notifier
	Alerts   domain.AlertStore
	Scanner  *scan.Scanner
}

// hasPostgres reports whether a durable store was configured.
func hasPostgres(cfg *config.Config) bool {
	return cfg.Postgres.DSN != "" || cfg.Postgres.Host != ""
}

// hasRedis reports whether the rate cache is configured.
func hasRedis(cfg *config.Config) bool {
	return cfg.Redis.Addr != ""
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Venue adapters and fetch pools ---
	venues, err := buildVenues(cfg, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	deps.Venues = venues

	// --- PostgreSQL (optional durable rate/alert record) ---
	var rateStore domain.RateStore
	if hasPostgres(cfg) {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		rateStore = postgres.NewRateStore(pool)
		deps.Alerts = postgres.NewAlertStore(pool)
	}

	// --- FX rate chain ---
	apiProvider := fx.NewAPIProvider(cfg.FX.URL, cfg.FX.AccessKey, cfg.FX.LocalCurrency, logger)
	deps.Rates = apiProvider

	if hasRedis(cfg) {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.Rates = fx.NewCachedProvider(
			apiProvider,
			redis.NewRateCache(redisClient),
			redis.NewLockManager(redisClient),
			rateStore,
			logger,
		)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.TelegramChat() != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.TelegramChat()))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Scanner ---
	deps.Scanner = scan.New(scan.Options{
		Venues: venues,
		Pairs:  cfg.Scan.Pairs,
		Evaluator: spread.NewEvaluator(
			spread.Thresholds{
				ProfitPct:         cfg.Thresholds.ProfitPct,
				AbsoluteProfitUSD: cfg.Thresholds.AbsoluteProfitUSD,
				LiquidityUSD:      cfg.Thresholds.LiquidityUSD,
			},
			spread.ReferenceSpreadCost{Asset: cfg.Scan.ReferenceAsset},
			logger,
		),
		Rates:    deps.Rates,
		Notifier: deps.Notifier,
		Alerts:   deps.Alerts,
		Timeout:  cfg.Scan.Timeout.Duration,
		Interval: cfg.Scan.Interval.Duration,
	}, logger)

	return deps, cleanup, nil
}

// buildVenues constructs an adapter and fetch pool for every enabled venue the
// pair list references.
func buildVenues(cfg *config.Config, logger *slog.Logger) (map[string]*scan.Venue, error) {
	venues := make(map[string]*scan.Venue)
	for name, vc := range cfg.Venues {
		if !vc.Enabled {
			continue
		}
		excluder := venue.NewExcluder(vc.DenyList, vc.ExcludeSymbols)

		var adapter venue.Adapter
		var localQuote bool
		switch strings.ToLower(name) {
		case "upbit":
			adapter = upbit.New(vc.BaseURL, cfg.Scan.DepthBand, excluder)
			localQuote = true
		case "bithumb":
			adapter = bithumb.New(vc.BaseURL, cfg.Scan.DepthBand, excluder)
			localQuote = true
		case "binance":
			adapter = binance.New(vc.BaseURL, cfg.Scan.DepthBand, excluder)
		default:
			return nil, fmt.Errorf("wire: unknown venue %q", name)
		}

		venues[strings.ToLower(name)] = &scan.Venue{
			Adapter:    adapter,
			Pool:       fetch.New(adapter, vc.FetchConcurrency, vc.RequestsPerSec, logger),
			LocalQuote: localQuote,
		}
	}

	for _, pair := range cfg.Scan.Pairs {
		for _, name := range []string{pair.Base, pair.Compare} {
			if venues[strings.ToLower(name)] == nil {
				return nil, fmt.Errorf("wire: pair references disabled or unknown venue %q", name)
			}
		}
	}
	return venues, nil
}
