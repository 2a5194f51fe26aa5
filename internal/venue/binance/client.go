// Package binance implements the venue adapter for Binance's public spot
// REST API. Binance lists dollar-stablecoin markets with a "USDT" suffix.
// As a comparison venue its depth liquidity is measured on the ask side: the
// notional that can be bought within the band.
package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/kimchibot/internal/domain"
	"github.com/alanyoungcy/kimchibot/internal/venue"
)

const (
	// VenueName is the display name used in tables, alerts, and logs.
	VenueName = "Binance"

	quoteSuffix = "USDT"

	// depthLimit caps the number of levels requested per book; the 2% band
	// rarely spans more.
	depthLimit = 20
)

// Client is the Binance public REST client.
type Client struct {
	baseURL    string
	band       float64
	excluder   *venue.Excluder
	httpClient *http.Client
}

// New creates a Binance adapter. baseURL is the API root, e.g.
// "https://api.binance.com".
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

// Normalize strips the USDT quote suffix. Idempotent.
func (c *Client) Normalize(symbol string) string {
	return strings.TrimSuffix(symbol, quoteSuffix)
}

type apiTicker struct {
	Symbol string `json:"symbol"`
}

// ListSymbols returns every USDT-quoted market, minus deny-listed and
// excluded assets.
func (c *Client) ListSymbols(ctx context.Context) ([]string, error) {
	body, err := venue.Get(ctx, c.httpClient, c.baseURL+"/api/v3/ticker/price")
	if err != nil {
		return nil, fmt.Errorf("binance: list tickers: %w", err)
	}

	var tickers []apiTicker
	if err := json.Unmarshal(body, &tickers); err != nil {
		return nil, fmt.Errorf("binance: decode tickers: %w", err)
	}

	symbols := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if !strings.HasSuffix(t.Symbol, quoteSuffix) {
			continue
		}
		if c.excluder.Excluded(c.Normalize(t.Symbol)) {
			continue
		}
		symbols = append(symbols, t.Symbol)
	}
	return symbols, nil
}

type apiDepth struct {
	Bids [][2]string `json:"bids"`
	Asks [][2]string `json:"asks"`
}

// apiError is Binance's structured error payload. -1003 is the documented
// "too many requests" code, -1121 the unknown-symbol code.
type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// FetchBook returns the depth-reduced orderbook for one USDT market.
func (c *Client) FetchBook(ctx context.Context, symbol string) domain.BookResult {
	res := domain.BookResult{Symbol: symbol}

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("limit", strconv.Itoa(depthLimit))
	body, err := venue.Get(ctx, c.httpClient, c.baseURL+"/api/v3/depth?"+q.Encode())
	if err != nil {
		res.Status = classifyErr(err)
		return res
	}

	var depth apiDepth
	if err := json.Unmarshal(body, &depth); err != nil || (len(depth.Bids) == 0 && len(depth.Asks) == 0) {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Code != 0 {
			switch apiErr.Code {
			case -1003:
				res.Status = domain.BookRateLimited
			case -1121:
				res.Status = domain.BookNotFound
			default:
				res.Status = domain.BookMalformed
			}
			return res
		}
		res.Status = domain.BookMalformed
		return res
	}
	if len(depth.Bids) == 0 || len(depth.Asks) == 0 {
		res.Status = domain.BookMalformed
		return res
	}

	bids, err := parseLevels(depth.Bids)
	if err != nil {
		res.Status = domain.BookMalformed
		return res
	}
	asks, err := parseLevels(depth.Asks)
	if err != nil {
		res.Status = domain.BookMalformed
		return res
	}

	bestBid, bestAsk := bids[0].Price, asks[0].Price
	if bestBid <= 0 || bestAsk <= 0 {
		res.Status = domain.BookMalformed
		return res
	}

	snap := domain.OrderBookSnapshot{
		Venue:  VenueName,
		Symbol: symbol,
		Bid:    bestBid,
		Ask:    bestAsk,
		Time:   time.Now(),
	}
	snap.Liquidity = venue.AskBandLiquidity(asks, snap.Mid(), c.band)
	res.Status = domain.BookOK
	res.Snapshot = snap
	return res
}

func parseLevels(raw [][2]string) ([]domain.PriceLevel, error) {
	levels := make([]domain.PriceLevel, 0, len(raw))
	for _, entry := range raw {
		price, err := strconv.ParseFloat(entry[0], 64)
		if err != nil {
			return nil, fmt.Errorf("parse price %q: %w", entry[0], err)
		}
		size, err := strconv.ParseFloat(entry[1], 64)
		if err != nil {
			return nil, fmt.Errorf("parse size %q: %w", entry[1], err)
		}
		levels = append(levels, domain.PriceLevel{Price: price, Size: size})
	}
	return levels, nil
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
