package feed

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/kimchibot/internal/fx"
)

// rateRefreshInterval bounds how often the monitor re-reads the FX rate.
const rateRefreshInterval = 5 * time.Minute

// logStepPct is the premium movement, in percentage points, that promotes an
// update from debug to info logging.
const logStepPct = 0.05

// PremiumMonitor streams the reference asset's price from a won-quoted venue
// and a dollar-quoted venue and logs the instantaneous premium. It is a live
// operator view; it fires no alerts and writes no stores.
type PremiumMonitor struct {
	asset  string
	rates  fx.Provider
	logger *slog.Logger

	mu         sync.Mutex
	krwPrice   float64
	usdPrice   float64
	rate       float64
	lastLogged float64
}

// NewPremiumMonitor watches the given normalized reference asset, e.g. "ETH".
func NewPremiumMonitor(asset string, rates fx.Provider, logger *slog.Logger) *PremiumMonitor {
	return &PremiumMonitor{
		asset:  strings.ToUpper(asset),
		rates:  rates,
		logger: logger.With(slog.String("component", "premium_monitor")),
	}
}

// Run starts both venue feeds and the FX refresher and blocks until ctx is
// cancelled.
func (m *PremiumMonitor) Run(ctx context.Context) error {
	rate, err := m.rates.Rate(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.rate = rate.Rate
	m.mu.Unlock()

	upbit := NewUpbitFeed("", []string{"KRW-" + m.asset}, m.onUpbitTick, m.logger)
	binance := NewBinanceFeed("", []string{m.asset + "USDT"}, m.onBinanceTick, m.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return upbit.Run(gctx) })
	g.Go(func() error { return binance.Run(gctx) })
	g.Go(func() error { return m.refreshRate(gctx) })
	return g.Wait()
}

func (m *PremiumMonitor) refreshRate(ctx context.Context) error {
	ticker := time.NewTicker(rateRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			rate, err := m.rates.Rate(ctx)
			if err != nil {
				m.logger.Warn("rate refresh failed, keeping previous", slog.String("error", err.Error()))
				continue
			}
			m.mu.Lock()
			m.rate = rate.Rate
			m.mu.Unlock()
		}
	}
}

func (m *PremiumMonitor) onUpbitTick(ctx context.Context, tick Tick) {
	m.update(func() { m.krwPrice = tick.Price })
}

func (m *PremiumMonitor) onBinanceTick(ctx context.Context, tick Tick) {
	m.update(func() { m.usdPrice = tick.Price })
}

// update applies the price mutation and logs the premium when both legs and
// the rate are known.
func (m *PremiumMonitor) update(apply func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	apply()
	if m.krwPrice <= 0 || m.usdPrice <= 0 || m.rate <= 0 {
		return
	}

	premiumPct := (m.krwPrice/m.rate/m.usdPrice - 1) * 100
	attrs := []any{
		slog.String("asset", m.asset),
		slog.Float64("premium_pct", premiumPct),
		slog.Float64("krw_price", m.krwPrice),
		slog.Float64("usd_price", m.usdPrice),
		slog.Float64("rate", m.rate),
	}
	if math.Abs(premiumPct-m.lastLogged) >= logStepPct {
		m.lastLogged = premiumPct
		m.logger.Info("premium", attrs...)
		return
	}
	m.logger.Debug("premium", attrs...)
}
