package scan

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alanyoungcy/kimchibot/internal/config"
	"github.com/alanyoungcy/kimchibot/internal/domain"
	"github.com/alanyoungcy/kimchibot/internal/fetch"
	"github.com/alanyoungcy/kimchibot/internal/notify"
	"github.com/alanyoungcy/kimchibot/internal/spread"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeAdapter serves canned orderbook results keyed by venue-native symbol.
type fakeAdapter struct {
	name    string
	marker  string // quote marker stripped by Normalize, e.g. "KRW-"
	books   map[string]domain.BookResult
	symbols []string
}

func (a *fakeAdapter) Name() string { return a.name }

func (a *fakeAdapter) ListSymbols(ctx context.Context) ([]string, error) {
	return a.symbols, nil
}

func (a *fakeAdapter) FetchBook(ctx context.Context, symbol string) domain.BookResult {
	if r, ok := a.books[symbol]; ok {
		return r
	}
	return domain.BookResult{Symbol: symbol, Status: domain.BookNotFound}
}

func (a *fakeAdapter) Normalize(symbol string) string {
	return strings.TrimPrefix(symbol, a.marker)
}

type sentMessage struct {
	event, title, message string
}

// recordingNotifier captures every event without filtering.
type recordingSender struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (s *recordingSender) Send(ctx context.Context, title, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMessage{title: title, message: message})
	return nil
}

func (s *recordingSender) Name() string { return "recording" }

func (s *recordingSender) byTitle(title string) []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sentMessage
	for _, m := range s.sent {
		if m.title == title {
			out = append(out, m)
		}
	}
	return out
}

type stubRates struct {
	rate domain.ExchangeRate
	err  error
}

func (r *stubRates) Rate(ctx context.Context) (domain.ExchangeRate, error) {
	return r.rate, r.err
}

type memAlertStore struct {
	mu     sync.Mutex
	alerts []domain.Alert
}

func (s *memAlertStore) Insert(ctx context.Context, alert domain.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, alert)
	return nil
}

func book(venueName, symbol string, bid, ask, liquidity float64) domain.BookResult {
	return domain.BookResult{
		Symbol: symbol,
		Status: domain.BookOK,
		Snapshot: domain.OrderBookSnapshot{
			Venue:     venueName,
			Symbol:    symbol,
			Bid:       bid,
			Ask:       ask,
			Liquidity: liquidity,
			Time:      time.Now(),
		},
	}
}

// scannerFixture wires a base KRW venue and a comparison USD venue, with an
// ETH reference row on both so the cost model is satisfied. The FX rate is
// 1000 so won amounts divide cleanly.
func scannerFixture(t *testing.T, baseBooks, compBooks map[string]domain.BookResult, thresholds spread.Thresholds, alerts domain.AlertStore) (*Scanner, *recordingSender) {
	t.Helper()

	baseSymbols := make([]string, 0, len(baseBooks))
	for s := range baseBooks {
		baseSymbols = append(baseSymbols, s)
	}
	compSymbols := make([]string, 0, len(compBooks))
	for s := range compBooks {
		compSymbols = append(compSymbols, s)
	}

	base := &fakeAdapter{name: "Upbit", marker: "KRW-", books: baseBooks, symbols: baseSymbols}
	comp := &fakeAdapter{name: "Binance", books: compBooks, symbols: compSymbols}

	sender := &recordingSender{}
	notifier := notify.NewNotifier([]notify.Sender{sender}, nil, discard())

	s := New(Options{
		Venues: map[string]*Venue{
			"upbit":   {Adapter: base, Pool: fetch.New(base, 4, 0, discard()), LocalQuote: true},
			"binance": {Adapter: comp, Pool: fetch.New(comp, 4, 0, discard())},
		},
		Pairs:     []config.VenuePair{{Base: "upbit", Compare: "binance"}},
		Evaluator: spread.NewEvaluator(thresholds, spread.ReferenceSpreadCost{Asset: "ETH"}, discard()),
		Rates:     &stubRates{rate: domain.ExchangeRate{Rate: 1000, Hour: 9, FetchedAt: time.Now()}},
		Notifier:  notifier,
		Alerts:    alerts,
		Timeout:   5 * time.Second,
		Interval:  time.Minute,
	}, discard())
	return s, sender
}

func TestRunCycleTriggersAlert(t *testing.T) {
	// HOT: base bid 110k KRW vs comparison 100 USD at rate 1000 is a 10%
	// premium. ETH rows carry no cross-venue ask spread, so the cost
	// correction is zero and profit_pct stays 10.
	baseBooks := map[string]domain.BookResult{
		"KRW-ETH": book("Upbit", "KRW-ETH", 1_000_000, 1_000_000, 50_000_000),
		"KRW-HOT": book("Upbit", "KRW-HOT", 110_000, 110_500, 100_000_000),
	}
	compBooks := map[string]domain.BookResult{
		"ETH": book("Binance", "ETH", 1000, 1001, 50_000),
		"HOT": book("Binance", "HOT", 100, 100.5, 200_000),
	}
	store := &memAlertStore{}
	s, sender := scannerFixture(t, baseBooks, compBooks,
		spread.Thresholds{ProfitPct: 5, AbsoluteProfitUSD: 1000, LiquidityUSD: 10_000}, store)

	report, err := s.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if report.Triggered != 1 {
		t.Fatalf("triggered = %d, want 1", report.Triggered)
	}

	alerts := sender.byTitle(AlertTitle)
	if len(alerts) != 1 {
		t.Fatalf("alert messages = %d, want 1", len(alerts))
	}
	msg := alerts[0].message
	if !strings.Contains(msg, "HOT - Upbit is higher than Binance by 10.00 %.") {
		t.Errorf("alert message = %q", msg)
	}
	if !strings.Contains(msg, "Upbit Rough USD Liquidity") {
		t.Errorf("alert message lacks liquidity line: %q", msg)
	}

	if len(store.alerts) != 1 {
		t.Fatalf("persisted alerts = %d, want 1", len(store.alerts))
	}
	a := store.alerts[0]
	if a.Symbol != "HOT" || a.CycleID != report.CycleID {
		t.Errorf("persisted alert = %+v", a)
	}

	if hb := sender.byTitle("Scan Heartbeat"); len(hb) != 0 {
		t.Errorf("heartbeat sent alongside alerts: %v", hb)
	}
}

func TestRunCycleHeartbeatWhenNothingTriggers(t *testing.T) {
	baseBooks := map[string]domain.BookResult{
		"KRW-ETH": book("Upbit", "KRW-ETH", 1_000_000, 1_000_000, 50_000_000),
		"KRW-HOT": book("Upbit", "KRW-HOT", 101_000, 101_500, 100_000_000),
	}
	compBooks := map[string]domain.BookResult{
		"ETH": book("Binance", "ETH", 1000, 1001, 50_000),
		"HOT": book("Binance", "HOT", 100, 100.5, 200_000),
	}
	s, sender := scannerFixture(t, baseBooks, compBooks,
		spread.Thresholds{ProfitPct: 5, AbsoluteProfitUSD: 1000, LiquidityUSD: 10_000}, nil)

	report, err := s.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if report.Triggered != 0 {
		t.Fatalf("triggered = %d, want 0", report.Triggered)
	}

	hb := sender.byTitle("Scan Heartbeat")
	if len(hb) != 1 {
		t.Fatalf("heartbeats = %d, want exactly 1", len(hb))
	}
	if alerts := sender.byTitle(AlertTitle); len(alerts) != 0 {
		t.Errorf("unexpected alerts: %v", alerts)
	}
}

func TestRunCycleReportsRateLimitedSymbols(t *testing.T) {
	baseBooks := map[string]domain.BookResult{
		"KRW-ETH": book("Upbit", "KRW-ETH", 1_000_000, 1_000_000, 50_000_000),
		"KRW-XRP": {Symbol: "KRW-XRP", Status: domain.BookRateLimited},
	}
	compBooks := map[string]domain.BookResult{
		"ETH": book("Binance", "ETH", 1000, 1001, 50_000),
	}
	s, sender := scannerFixture(t, baseBooks, compBooks,
		spread.Thresholds{ProfitPct: 5, AbsoluteProfitUSD: 1000, LiquidityUSD: 10_000}, nil)

	report, err := s.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if got := report.RateLimited["upbit"]; len(got) != 1 || got[0] != "KRW-XRP" {
		t.Errorf("rate limited = %v, want [KRW-XRP]", report.RateLimited)
	}

	notices := sender.byTitle("Venue Rate Limit")
	if len(notices) != 1 {
		t.Fatalf("rate limit notices = %d, want 1", len(notices))
	}
	if !strings.Contains(notices[0].message, "KRW-XRP") {
		t.Errorf("notice = %q", notices[0].message)
	}
}

func TestRunCycleFailsWithoutRate(t *testing.T) {
	baseBooks := map[string]domain.BookResult{
		"KRW-ETH": book("Upbit", "KRW-ETH", 1_000_000, 1_000_000, 50_000_000),
	}
	compBooks := map[string]domain.BookResult{
		"ETH": book("Binance", "ETH", 1000, 1001, 50_000),
	}
	s, sender := scannerFixture(t, baseBooks, compBooks, spread.Thresholds{}, nil)
	s.rates = &stubRates{err: errors.New("provider down")}

	_, err := s.RunCycle(context.Background())
	if err == nil {
		t.Fatal("want error when the exchange rate is unavailable")
	}
	failures := sender.byTitle("Scan Failed")
	if len(failures) != 1 {
		t.Errorf("failure notices = %d, want 1", len(failures))
	}
}

// ctxCheckingSender fails like a real HTTP sender would when handed an
// already-expired request context.
type ctxCheckingSender struct {
	mu        sync.Mutex
	delivered []string
}

func (s *ctxCheckingSender) Send(ctx context.Context, title, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delivered = append(s.delivered, title)
	return nil
}

func (s *ctxCheckingSender) Name() string { return "ctx_checking" }

// blockingRates never returns before the cycle context expires.
type blockingRates struct{}

func (blockingRates) Rate(ctx context.Context) (domain.ExchangeRate, error) {
	<-ctx.Done()
	return domain.ExchangeRate{}, ctx.Err()
}

func TestFailureNoticeOutlivesCycleDeadline(t *testing.T) {
	baseBooks := map[string]domain.BookResult{
		"KRW-ETH": book("Upbit", "KRW-ETH", 1_000_000, 1_000_000, 50_000_000),
	}
	compBooks := map[string]domain.BookResult{
		"ETH": book("Binance", "ETH", 1000, 1001, 50_000),
	}
	s, _ := scannerFixture(t, baseBooks, compBooks, spread.Thresholds{}, nil)
	s.timeout = 50 * time.Millisecond
	s.rates = blockingRates{}

	sender := &ctxCheckingSender{}
	s.notifier = notify.NewNotifier([]notify.Sender{sender}, nil, discard())

	_, err := s.RunCycle(context.Background())
	if err == nil {
		t.Fatal("want error from the timed-out cycle")
	}

	sender.mu.Lock()
	delivered := append([]string(nil), sender.delivered...)
	sender.mu.Unlock()
	if len(delivered) != 1 || delivered[0] != "Scan Failed" {
		t.Errorf("delivered = %v, want the failure notice despite the expired cycle context", delivered)
	}
}

func TestRunCycleFailsWithoutReferenceAsset(t *testing.T) {
	baseBooks := map[string]domain.BookResult{
		"KRW-HOT": book("Upbit", "KRW-HOT", 110_000, 110_500, 100_000_000),
	}
	compBooks := map[string]domain.BookResult{
		"HOT": book("Binance", "HOT", 100, 100.5, 200_000),
	}
	s, sender := scannerFixture(t, baseBooks, compBooks, spread.Thresholds{}, nil)

	_, err := s.RunCycle(context.Background())
	if !errors.Is(err, domain.ErrMissingReference) {
		t.Fatalf("err = %v, want ErrMissingReference", err)
	}
	if failures := sender.byTitle("Scan Failed"); len(failures) != 1 {
		t.Errorf("failure notices = %d, want 1", len(failures))
	}
}
