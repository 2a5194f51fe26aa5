package upbit

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alanyoungcy/kimchibot/internal/domain"
	"github.com/alanyoungcy/kimchibot/internal/venue"
)

func newTestClient(t *testing.T, handler http.Handler, deny ...string) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, 0.02, venue.NewExcluder(deny, nil))
}

func TestListSymbolsFiltersQuoteAndDenyList(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/market/all" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`[
			{"market":"KRW-BTC"},
			{"market":"KRW-ETH"},
			{"market":"BTC-ETH"},
			{"market":"USDT-XRP"},
			{"market":"KRW-BTG"}
		]`))
	}), "BTG")

	symbols, err := c.ListSymbols(context.Background())
	if err != nil {
		t.Fatalf("list symbols: %v", err)
	}
	want := []string{"KRW-BTC", "KRW-ETH"}
	if len(symbols) != len(want) {
		t.Fatalf("symbols = %v, want %v", symbols, want)
	}
	for i := range want {
		if symbols[i] != want[i] {
			t.Errorf("symbols[%d] = %q, want %q", i, symbols[i], want[i])
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	c := New("http://unused", 0.02, venue.NewExcluder(nil, nil))
	if got := c.Normalize("KRW-ETH"); got != "ETH" {
		t.Errorf("Normalize(KRW-ETH) = %q", got)
	}
	if got := c.Normalize("ETH"); got != "ETH" {
		t.Errorf("Normalize(ETH) = %q, normalization must be a no-op on normalized input", got)
	}
}

func TestFetchBookDepthBand(t *testing.T) {
	// Top bid 100, top ask 100 -> mid 100. Only the 100 and 98.5 bid levels
	// are inside the 2% band.
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("markets"); got != "KRW-ETH" {
			t.Errorf("markets param = %q", got)
		}
		w.Write([]byte(`[{"market":"KRW-ETH","orderbook_units":[
			{"bid_price":100,"ask_price":100,"bid_size":1,"ask_size":1},
			{"bid_price":98.5,"ask_price":101,"bid_size":1,"ask_size":1},
			{"bid_price":97,"ask_price":102,"bid_size":2,"ask_size":1},
			{"bid_price":90,"ask_price":103,"bid_size":5,"ask_size":1}
		]}]`))
	}))

	res := c.FetchBook(context.Background(), "KRW-ETH")
	if res.Status != domain.BookOK {
		t.Fatalf("status = %v, want ok", res.Status)
	}
	if res.Snapshot.Bid != 100 || res.Snapshot.Ask != 100 {
		t.Errorf("top of book = %v/%v", res.Snapshot.Bid, res.Snapshot.Ask)
	}
	want := 100.0 + 98.5
	if math.Abs(res.Snapshot.Liquidity-want) > 1e-9 {
		t.Errorf("liquidity = %v, want %v", res.Snapshot.Liquidity, want)
	}
}

func TestFetchBookRateLimited(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "structured payload",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"name":"too_many_requests"}`))
			},
		},
		{
			name: "http 429",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			res := c.FetchBook(context.Background(), "KRW-ETH")
			if res.Status != domain.BookRateLimited {
				t.Errorf("status = %v, want rate_limited", res.Status)
			}
		})
	}
}

func TestFetchBookEmptyBookIsMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty array", `[]`},
		{"no units", `[{"market":"KRW-ETH","orderbook_units":[]}]`},
		{"zero prices", `[{"market":"KRW-ETH","orderbook_units":[{"bid_price":0,"ask_price":0,"bid_size":0,"ask_size":0}]}]`},
		{"garbage", `{"unexpected":"shape"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			res := c.FetchBook(context.Background(), "KRW-ETH")
			if res.Status != domain.BookMalformed {
				t.Errorf("status = %v, want malformed", res.Status)
			}
		})
	}
}
