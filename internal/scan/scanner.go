// Package scan orchestrates one detection cycle: fetch books from every
// venue, convert them onto the USD axis, evaluate configured venue pairs and
// deliver alerts.
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/kimchibot/internal/config"
	"github.com/alanyoungcy/kimchibot/internal/domain"
	"github.com/alanyoungcy/kimchibot/internal/fetch"
	"github.com/alanyoungcy/kimchibot/internal/fx"
	"github.com/alanyoungcy/kimchibot/internal/notify"
	"github.com/alanyoungcy/kimchibot/internal/pricetable"
	"github.com/alanyoungcy/kimchibot/internal/spread"
	"github.com/alanyoungcy/kimchibot/internal/venue"
)

// failureNoticeTimeout bounds delivery of the cycle-failure notice, which
// runs outside the cycle's own deadline.
const failureNoticeTimeout = 10 * time.Second

// Venue bundles what the scanner needs per exchange: the adapter for symbol
// normalization, the fetch pool, and whether its books are quoted in the
// local currency and need FX conversion.
type Venue struct {
	Adapter    venue.Adapter
	Pool       *fetch.Pool
	LocalQuote bool
}

// Report summarizes one completed cycle.
type Report struct {
	CycleID     string
	Pairs       int
	Evaluated   int
	Triggered   int
	RateLimited map[string][]string
	Elapsed     time.Duration
}

// Scanner runs detection cycles over the configured venue pairs.
type Scanner struct {
	venues    map[string]*Venue
	pairs     []config.VenuePair
	evaluator *spread.Evaluator
	rates     fx.Provider
	notifier  *notify.Notifier
	alerts    domain.AlertStore
	timeout   time.Duration
	interval  time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// Options carries the scanner's collaborators. Alerts may be nil to run
// without durable alert persistence.
type Options struct {
	Venues    map[string]*Venue
	Pairs     []config.VenuePair
	Evaluator *spread.Evaluator
	Rates     fx.Provider
	Notifier  *notify.Notifier
	Alerts    domain.AlertStore
	Timeout   time.Duration
	Interval  time.Duration
}

func New(opts Options, logger *slog.Logger) *Scanner {
	return &Scanner{
		venues:    opts.Venues,
		pairs:     opts.Pairs,
		evaluator: opts.Evaluator,
		rates:     opts.Rates,
		notifier:  opts.Notifier,
		alerts:    opts.Alerts,
		timeout:   opts.Timeout,
		interval:  opts.Interval,
		logger:    logger.With("component", "scanner"),
		now:       time.Now,
	}
}

// RunCycle executes one full detection cycle under the configured timeout.
// A failed cycle is reported to the operator before the error is returned.
func (s *Scanner) RunCycle(ctx context.Context) (Report, error) {
	start := s.now()
	cycleID := uuid.New().String()
	logger := s.logger.With("cycle_id", cycleID)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	logger.Info("cycle started", "pairs", len(s.pairs))

	report, err := s.runCycle(ctx, cycleID, logger)
	report.CycleID = cycleID
	report.Pairs = len(s.pairs)
	report.Elapsed = s.now().Sub(start)
	if err != nil {
		logger.Error("cycle failed", "error", err)
		// The cycle context is usually already expired here (timeouts are
		// the dominant failure), so the operator notice gets its own
		// deadline detached from the cycle's.
		notifyCtx, notifyCancel := context.WithTimeout(context.WithoutCancel(ctx), failureNoticeTimeout)
		defer notifyCancel()
		if nerr := s.notifier.Notify(notifyCtx, notify.EventCycleFailed, "Scan Failed", FailureMessage(err)); nerr != nil {
			logger.Error("failure notification undelivered", "error", nerr)
		}
		return report, err
	}

	logger.Info("cycle finished",
		"evaluated", report.Evaluated,
		"triggered", report.Triggered,
		"elapsed", report.Elapsed,
	)
	return report, nil
}

func (s *Scanner) runCycle(ctx context.Context, cycleID string, logger *slog.Logger) (Report, error) {
	report := Report{RateLimited: map[string][]string{}}

	divisor := 1.0
	if s.needsFX() {
		rate, err := s.rates.Rate(ctx)
		if err != nil {
			return report, fmt.Errorf("scan: exchange rate: %w", err)
		}
		divisor = rate.Rate
	}

	tables, rateLimited, err := s.fetchTables(ctx, divisor)
	if err != nil {
		return report, err
	}
	report.RateLimited = rateLimited

	triggered := 0
	for _, pair := range s.pairs {
		base, compare := tables[pair.Base], tables[pair.Compare]
		if base == nil || compare == nil {
			return report, fmt.Errorf("scan: pair %s/%s references unfetched venue", pair.Base, pair.Compare)
		}

		results, err := s.evaluator.EvaluatePair(base, compare)
		if err != nil {
			return report, fmt.Errorf("scan: evaluate %s/%s: %w", pair.Base, pair.Compare, err)
		}
		report.Evaluated += len(results)

		for _, r := range results {
			if !r.Triggered {
				continue
			}
			triggered++
			s.deliverAlert(ctx, cycleID, r, logger)
		}
	}
	report.Triggered = triggered

	s.reportRateLimits(ctx, rateLimited, logger)

	if triggered == 0 {
		msg := HeartbeatMessage(len(s.pairs), report.Evaluated)
		if err := s.notifier.Notify(ctx, notify.EventHeartbeat, "Scan Heartbeat", msg); err != nil {
			logger.Warn("heartbeat undelivered", "error", err)
		}
	}
	return report, nil
}

// needsFX reports whether any configured pair touches a local-currency venue.
func (s *Scanner) needsFX() bool {
	for _, pair := range s.pairs {
		for _, name := range []string{pair.Base, pair.Compare} {
			if v := s.venues[name]; v != nil && v.LocalQuote {
				return true
			}
		}
	}
	return false
}

// fetchTables fetches books from every venue named by a configured pair,
// concurrently, and builds the per-venue USD price tables.
func (s *Scanner) fetchTables(ctx context.Context, localDivisor float64) (map[string]*domain.PriceTable, map[string][]string, error) {
	names := s.pairVenues()

	type fetched struct {
		name    string
		table   *domain.PriceTable
		limited []string
	}

	g, gctx := errgroup.WithContext(ctx)
	out := make(chan fetched, len(names))

	for _, name := range names {
		name := name
		v := s.venues[name]
		if v == nil {
			return nil, nil, fmt.Errorf("scan: venue %s not configured", name)
		}
		g.Go(func() error {
			results, err := v.Pool.Run(gctx)
			if err != nil {
				return fmt.Errorf("scan: fetch %s: %w", name, err)
			}
			divisor := 1.0
			if v.LocalQuote {
				divisor = localDivisor
			}
			table, limited, err := pricetable.Build(v.Adapter, results, divisor)
			if err != nil {
				return fmt.Errorf("scan: build table %s: %w", name, err)
			}
			out <- fetched{name: name, table: table, limited: limited}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	close(out)

	tables := make(map[string]*domain.PriceTable, len(names))
	rateLimited := make(map[string][]string)
	for f := range out {
		tables[f.name] = f.table
		if len(f.limited) > 0 {
			rateLimited[f.name] = f.limited
		}
	}
	return tables, rateLimited, nil
}

// pairVenues returns the distinct venue names referenced by the pair list, in
// first-appearance order.
func (s *Scanner) pairVenues() []string {
	seen := make(map[string]bool)
	var names []string
	for _, pair := range s.pairs {
		for _, name := range []string{pair.Base, pair.Compare} {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

// deliverAlert sends the operator notification and records the alert.
// Delivery and persistence failures are logged but do not abort the cycle.
func (s *Scanner) deliverAlert(ctx context.Context, cycleID string, r domain.SpreadResult, logger *slog.Logger) {
	logger.Info("spread triggered",
		"symbol", r.Symbol,
		"base_venue", r.BaseVenue,
		"compare_venue", r.CompareVenue,
		"profit_pct", r.ProfitPct,
		"abs_profit_usd", r.AbsProfitUSD,
	)

	if err := s.notifier.Notify(ctx, notify.EventSpreadAlert, AlertTitle, AlertMessage(r)); err != nil {
		logger.Error("alert undelivered", "symbol", r.Symbol, "error", err)
	}

	if s.alerts == nil {
		return
	}
	alert := domain.Alert{
		ID:           uuid.New().String(),
		CycleID:      cycleID,
		Symbol:       r.Symbol,
		BaseVenue:    r.BaseVenue,
		CompareVenue: r.CompareVenue,
		PctDiff:      r.PctDiff,
		USDDiff:      r.USDDiff,
		ProfitPct:    r.ProfitPct,
		AbsProfitUSD: r.AbsProfitUSD,
		LiquidityUSD: r.BaseLiquidityUSD,
		DetectedAt:   s.now().UTC(),
	}
	if err := s.alerts.Insert(ctx, alert); err != nil {
		logger.Error("alert not persisted", "symbol", r.Symbol, "error", err)
	}
}

// reportRateLimits sends one notice per throttled venue so the operator can
// retune concurrency and pacing.
func (s *Scanner) reportRateLimits(ctx context.Context, rateLimited map[string][]string, logger *slog.Logger) {
	for _, name := range s.pairVenues() {
		symbols := rateLimited[name]
		if len(symbols) == 0 {
			continue
		}
		logger.Warn("venue throttled requests", "venue", name, "count", len(symbols))
		if err := s.notifier.Notify(ctx, notify.EventRateLimit, "Venue Rate Limit", RateLimitMessage(name, symbols)); err != nil {
			logger.Error("rate limit notice undelivered", "venue", name, "error", err)
		}
	}
}

// RunLoop runs cycles on the configured interval until the context ends. A
// failed cycle is reported and the loop keeps going; only context
// cancellation stops it.
func (s *Scanner) RunLoop(ctx context.Context) error {
	if _, err := s.RunCycle(ctx); err != nil && ctx.Err() != nil {
		return ctx.Err()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.RunCycle(ctx); err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
}
