// Package upbit implements the venue adapter for Upbit's public REST API.
// Upbit lists won-denominated markets with a "KRW-" prefix and reports
// orderbooks per market. As a base venue its depth liquidity is measured on
// the bid side: the notional that can be sold into within the band.
package upbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alanyoungcy/kimchibot/internal/domain"
	"github.com/alanyoungcy/kimchibot/internal/venue"
)

const (
	// VenueName is the display name used in tables, alerts, and logs.
	VenueName = "Upbit"

	quotePrefix = "KRW-"
)

// Client is the Upbit public REST client.
type Client struct {
	baseURL    string
	band       float64
	excluder   *venue.Excluder
	httpClient *http.Client
}

// New creates an Upbit adapter.
//
// baseURL is the API root, e.g. "https://api.upbit.com". band is the depth
// band fraction around mid.
func New(baseURL string, band float64, excluder *venue.Excluder) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		band:     band,
		excluder: excluder,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Name returns the venue display name.
func (c *Client) Name() string { return VenueName }

// Normalize strips the KRW- quote prefix. Idempotent.
func (c *Client) Normalize(symbol string) string {
	return strings.TrimPrefix(symbol, quotePrefix)
}

type apiMarket struct {
	Market string `json:"market"`
}

// ListSymbols returns every KRW-quoted market, minus deny-listed and
// excluded assets.
func (c *Client) ListSymbols(ctx context.Context) ([]string, error) {
	body, err := venue.Get(ctx, c.httpClient, c.baseURL+"/v1/market/all?isDetails=false")
	if err != nil {
		return nil, fmt.Errorf("upbit: list markets: %w", err)
	}

	var markets []apiMarket
	if err := json.Unmarshal(body, &markets); err != nil {
		return nil, fmt.Errorf("upbit: decode markets: %w", err)
	}

	symbols := make([]string, 0, len(markets))
	for _, m := range markets {
		if !strings.HasPrefix(m.Market, quotePrefix) {
			continue
		}
		if c.excluder.Excluded(c.Normalize(m.Market)) {
			continue
		}
		symbols = append(symbols, m.Market)
	}
	return symbols, nil
}

type apiOrderbookUnit struct {
	AskPrice float64 `json:"ask_price"`
	BidPrice float64 `json:"bid_price"`
	AskSize  float64 `json:"ask_size"`
	BidSize  float64 `json:"bid_size"`
}

type apiOrderbook struct {
	Market string             `json:"market"`
	Units  []apiOrderbookUnit `json:"orderbook_units"`
}

// apiError is Upbit's structured error payload. Throttled requests come back
// as {"name": "too_many_requests"}, sometimes wrapped in an "error" object.
type apiError struct {
	Name  string `json:"name"`
	Error struct {
		Name json.RawMessage `json:"name"`
	} `json:"error"`
}

func (e apiError) rateLimited() bool {
	return e.Name == "too_many_requests" ||
		strings.Contains(string(e.Error.Name), "too_many_requests")
}

// FetchBook returns the depth-reduced orderbook for one KRW market.
func (c *Client) FetchBook(ctx context.Context, symbol string) domain.BookResult {
	res := domain.BookResult{Symbol: symbol}

	q := url.Values{}
	q.Set("markets", symbol)
	body, err := venue.Get(ctx, c.httpClient, c.baseURL+"/v1/orderbook?"+q.Encode())
	if err != nil {
		res.Status = classifyErr(err)
		return res
	}

	var books []apiOrderbook
	if err := json.Unmarshal(body, &books); err != nil {
		// Not an orderbook array; check for the structured error payload.
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.rateLimited() {
			res.Status = domain.BookRateLimited
		} else {
			res.Status = domain.BookMalformed
		}
		return res
	}
	if len(books) == 0 || len(books[0].Units) == 0 {
		res.Status = domain.BookMalformed
		return res
	}

	top := books[0].Units[0]
	if top.BidPrice <= 0 || top.AskPrice <= 0 {
		res.Status = domain.BookMalformed
		return res
	}

	bids := make([]domain.PriceLevel, 0, len(books[0].Units))
	for _, u := range books[0].Units {
		bids = append(bids, domain.PriceLevel{Price: u.BidPrice, Size: u.BidSize})
	}

	snap := domain.OrderBookSnapshot{
		Venue:  VenueName,
		Symbol: symbol,
		Bid:    top.BidPrice,
		Ask:    top.AskPrice,
		Time:   time.Now(),
	}
	snap.Liquidity = venue.BidBandLiquidity(bids, snap.Mid(), c.band)
	res.Status = domain.BookOK
	res.Snapshot = snap
	return res
}

func classifyErr(err error) domain.BookStatus {
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		return domain.BookRateLimited
	case errors.Is(err, domain.ErrNotFound):
		return domain.BookNotFound
	default:
		return domain.BookMalformed
	}
}

// Compile-time interface check.
var _ venue.Adapter = (*Client)(nil)
