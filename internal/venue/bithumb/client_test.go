package bithumb

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alanyoungcy/kimchibot/internal/domain"
	"github.com/alanyoungcy/kimchibot/internal/venue"
)

const bulkFixture = `{
	"status": "0000",
	"data": {
		"timestamp": "1700000000000",
		"payment_currency": "KRW",
		"ETH": {
			"bids": [
				{"price": "100", "quantity": "1"},
				{"price": "98.5", "quantity": "1"},
				{"price": "90", "quantity": "4"}
			],
			"asks": [
				{"price": "100", "quantity": "2"}
			]
		},
		"XRP": {
			"bids": [],
			"asks": []
		},
		"BORA": {
			"bids": [{"price": "1", "quantity": "1"}],
			"asks": [{"price": "2", "quantity": "1"}]
		}
	}
}`

func newTestClient(t *testing.T, handler http.Handler, exclude ...string) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, 0.02, venue.NewExcluder(nil, exclude))
}

func TestListSymbolsSkipsMetaAndExcluded(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/public/orderbook/ALL_KRW" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(bulkFixture))
	}), "BORA")

	symbols, err := c.ListSymbols(context.Background())
	if err != nil {
		t.Fatalf("list symbols: %v", err)
	}
	want := []string{"ETH_KRW", "XRP_KRW"}
	if len(symbols) != len(want) {
		t.Fatalf("symbols = %v, want %v", symbols, want)
	}
	for i := range want {
		if symbols[i] != want[i] {
			t.Errorf("symbols[%d] = %q, want %q", i, symbols[i], want[i])
		}
	}
}

func TestFetchBooksBulk(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(bulkFixture))
	}), "BORA")

	results, err := c.FetchBooks(context.Background())
	if err != nil {
		t.Fatalf("fetch books: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2 (BORA excluded, meta keys skipped)", len(results))
	}

	bySymbol := make(map[string]domain.BookResult, len(results))
	for _, r := range results {
		bySymbol[r.Symbol] = r
	}

	eth, ok := bySymbol["ETH_KRW"]
	if !ok || eth.Status != domain.BookOK {
		t.Fatalf("ETH_KRW missing or not ok: %+v", eth)
	}
	// mid = (100+100)/2 = 100; bids 100 and 98.5 are inside the 2% band.
	want := 100.0 + 98.5
	if math.Abs(eth.Snapshot.Liquidity-want) > 1e-9 {
		t.Errorf("ETH liquidity = %v, want %v", eth.Snapshot.Liquidity, want)
	}

	xrp, ok := bySymbol["XRP_KRW"]
	if !ok || xrp.Status != domain.BookMalformed {
		t.Errorf("empty XRP book should be malformed, got %+v", xrp)
	}
}

func TestFetchBooksBadStatus(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"5500","data":{}}`))
	}))
	if _, err := c.FetchBooks(context.Background()); err == nil {
		t.Fatal("expected error for non-0000 status")
	}
}

func TestFetchBookSingle(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/public/orderbook/ETH_KRW" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"status":"0000","data":{
			"bids":[{"price":"200","quantity":"3"}],
			"asks":[{"price":"202","quantity":"1"}]
		}}`))
	}))

	res := c.FetchBook(context.Background(), "ETH_KRW")
	if res.Status != domain.BookOK {
		t.Fatalf("status = %v, want ok", res.Status)
	}
	if res.Snapshot.Bid != 200 || res.Snapshot.Ask != 202 {
		t.Errorf("top of book = %v/%v", res.Snapshot.Bid, res.Snapshot.Ask)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	c := New("http://unused", 0.02, venue.NewExcluder(nil, nil))
	if got := c.Normalize("ETH_KRW"); got != "ETH" {
		t.Errorf("Normalize(ETH_KRW) = %q", got)
	}
	if got := c.Normalize("ETH"); got != "ETH" {
		t.Errorf("Normalize(ETH) = %q, normalization must be a no-op on normalized input", got)
	}
}
