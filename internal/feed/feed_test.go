package feed

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/kimchibot/internal/domain"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var upgrader = websocket.Upgrader{}

// wsServer upgrades one connection, hands it to serve, and keeps the
// connection open until the client goes away.
func wsServer(t *testing.T, serve func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		serve(conn)
		// Hold the connection until the client disconnects.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestUpbitFeedDeliversTicks(t *testing.T) {
	srv := wsServer(t, func(conn *websocket.Conn) {
		// Expect the subscribe array first.
		var sub []json.RawMessage
		if err := conn.ReadJSON(&sub); err != nil {
			t.Errorf("read subscribe: %v", err)
			return
		}
		if len(sub) < 2 {
			t.Errorf("subscribe frames = %d, want at least 2", len(sub))
		}
		conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"type":"ticker","code":"KRW-ETH","trade_price":4100000.0}`))
	})
	defer srv.Close()

	ticks := make(chan Tick, 1)
	f := NewUpbitFeed(wsURL(srv), []string{"KRW-ETH"}, func(ctx context.Context, tick Tick) {
		select {
		case ticks <- tick:
		default:
		}
	}, discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.Run(ctx)

	select {
	case tick := <-ticks:
		if tick.Symbol != "KRW-ETH" || tick.Price != 4100000.0 || tick.Venue != "Upbit" {
			t.Errorf("tick = %+v", tick)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no tick received")
	}
}

func TestBinanceFeedDeliversBestBid(t *testing.T) {
	srv := wsServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"stream":"ethusdt@bookTicker","data":{"s":"ETHUSDT","b":"3050.25","a":"3050.30"}}`))
	})
	defer srv.Close()

	ticks := make(chan Tick, 1)
	f := NewBinanceFeed(wsURL(srv), []string{"ETHUSDT"}, func(ctx context.Context, tick Tick) {
		select {
		case ticks <- tick:
		default:
		}
	}, discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.Run(ctx)

	select {
	case tick := <-ticks:
		if tick.Symbol != "ETHUSDT" || tick.Price != 3050.25 {
			t.Errorf("tick = %+v", tick)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no tick received")
	}
}

type fixedRates struct{ rate float64 }

func (r fixedRates) Rate(ctx context.Context) (domain.ExchangeRate, error) {
	return domain.ExchangeRate{Rate: r.rate, Hour: time.Now().UTC().Hour(), FetchedAt: time.Now()}, nil
}

func TestPremiumMonitorComputesPremium(t *testing.T) {
	m := NewPremiumMonitor("ETH", fixedRates{rate: 1300}, discard())
	m.rate = 1300

	// 4,160,000 KRW at 1300 KRW/USD is 3200 USD against a 3100 USD leg:
	// a premium of about 3.2258%.
	m.onUpbitTick(context.Background(), Tick{Venue: "Upbit", Symbol: "KRW-ETH", Price: 4_160_000})
	m.onBinanceTick(context.Background(), Tick{Venue: "Binance", Symbol: "ETHUSDT", Price: 3100})

	m.mu.Lock()
	logged := m.lastLogged
	m.mu.Unlock()

	want := (4_160_000.0/1300/3100 - 1) * 100
	if math.Abs(logged-want) > 1e-9 {
		t.Errorf("premium = %v, want %v", logged, want)
	}
}
