// Package bithumb implements the venue adapter for Bithumb's public REST
// API. Bithumb serves every won-denominated orderbook in a single ALL_KRW
// call, so the adapter implements BulkFetcher and the per-venue fan-out is a
// single request. As a base venue its depth liquidity is measured on the bid
// side.
package bithumb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/kimchibot/internal/domain"
	"github.com/alanyoungcy/kimchibot/internal/venue"
)

const (
	// VenueName is the display name used in tables, alerts, and logs.
	VenueName = "Bithumb"

	quoteSuffix = "_KRW"

	statusOK = "0000"
)

// Client is the Bithumb public REST client.
type Client struct {
	baseURL    string
	band       float64
	excluder   *venue.Excluder
	httpClient *http.Client
}

// New creates a Bithumb adapter. baseURL is the API root, e.g.
// "https://api.bithumb.com".
func New(baseURL string, band float64, excluder *venue.Excluder) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		band:     band,
		excluder: excluder,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Name returns the venue display name.
func (c *Client) Name() string { return VenueName }

// Normalize strips the _KRW quote suffix. Idempotent.
func (c *Client) Normalize(symbol string) string {
	return strings.TrimSuffix(symbol, quoteSuffix)
}

// apiLevel is one side entry; Bithumb serializes numbers as strings.
type apiLevel struct {
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
}

type apiBook struct {
	Bids []apiLevel `json:"bids"`
	Asks []apiLevel `json:"asks"`
}

type bulkResponse struct {
	Status string                     `json:"status"`
	Data   map[string]json.RawMessage `json:"data"`
}

type singleResponse struct {
	Status string  `json:"status"`
	Data   apiBook `json:"data"`
}

// metaKeys are non-symbol entries in the ALL_KRW data map.
var metaKeys = map[string]bool{
	"timestamp":        true,
	"payment_currency": true,
}

// ListSymbols lists the won-denominated markets via the bulk endpoint.
// Network-wise this is the same call FetchBooks makes; Bithumb has no
// separate market-listing endpoint for this market.
func (c *Client) ListSymbols(ctx context.Context) ([]string, error) {
	resp, err := c.fetchAll(ctx)
	if err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(resp.Data))
	for key := range resp.Data {
		if metaKeys[key] {
			continue
		}
		if c.excluder.Excluded(key) {
			continue
		}
		symbols = append(symbols, key+quoteSuffix)
	}
	sort.Strings(symbols)
	return symbols, nil
}

// FetchBooks returns every KRW orderbook from the single ALL_KRW call.
// Assets that fail to decode or carry an empty book appear as BookMalformed
// results; deny-listed assets are omitted entirely.
func (c *Client) FetchBooks(ctx context.Context) ([]domain.BookResult, error) {
	resp, err := c.fetchAll(ctx)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(resp.Data))
	for key := range resp.Data {
		if metaKeys[key] || c.excluder.Excluded(key) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	results := make([]domain.BookResult, 0, len(keys))
	for _, key := range keys {
		symbol := key + quoteSuffix
		var book apiBook
		if err := json.Unmarshal(resp.Data[key], &book); err != nil {
			results = append(results, domain.BookResult{Symbol: symbol, Status: domain.BookMalformed})
			continue
		}
		results = append(results, c.toResult(symbol, book))
	}
	return results, nil
}

// FetchBook returns one market's orderbook via the per-symbol endpoint.
func (c *Client) FetchBook(ctx context.Context, symbol string) domain.BookResult {
	res := domain.BookResult{Symbol: symbol}

	body, err := venue.Get(ctx, c.httpClient, c.baseURL+"/public/orderbook/"+symbol)
	if err != nil {
		res.Status = classifyErr(err)
		return res
	}

	var resp singleResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Status != statusOK {
		res.Status = domain.BookMalformed
		return res
	}
	return c.toResult(symbol, resp.Data)
}

func (c *Client) fetchAll(ctx context.Context) (*bulkResponse, error) {
	body, err := venue.Get(ctx, c.httpClient, c.baseURL+"/public/orderbook/ALL_KRW")
	if err != nil {
		return nil, fmt.Errorf("bithumb: fetch ALL_KRW: %w", err)
	}

	var resp bulkResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("bithumb: decode ALL_KRW: %w", err)
	}
	if resp.Status != statusOK {
		return nil, fmt.Errorf("bithumb: ALL_KRW status %s: %w", resp.Status, domain.ErrMalformedResponse)
	}
	return &resp, nil
}

// toResult reduces one decoded book to a snapshot, applying the bid-side
// depth band.
func (c *Client) toResult(symbol string, book apiBook) domain.BookResult {
	res := domain.BookResult{Symbol: symbol}

	if len(book.Bids) == 0 || len(book.Asks) == 0 {
		res.Status = domain.BookMalformed
		return res
	}

	bids, err := parseLevels(book.Bids)
	if err != nil {
		res.Status = domain.BookMalformed
		return res
	}
	bestAsk, err := strconv.ParseFloat(book.Asks[0].Price, 64)
	if err != nil {
		res.Status = domain.BookMalformed
		return res
	}

	bestBid := bids[0].Price
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
	snap.Liquidity = venue.BidBandLiquidity(bids, snap.Mid(), c.band)
	res.Status = domain.BookOK
	res.Snapshot = snap
	return res
}

func parseLevels(raw []apiLevel) ([]domain.PriceLevel, error) {
	levels := make([]domain.PriceLevel, 0, len(raw))
	for _, entry := range raw {
		price, err := strconv.ParseFloat(entry.Price, 64)
		if err != nil {
			return nil, fmt.Errorf("parse price %q: %w", entry.Price, err)
		}
		size, err := strconv.ParseFloat(entry.Quantity, 64)
		if err != nil {
			return nil, fmt.Errorf("parse quantity %q: %w", entry.Quantity, err)
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

// Compile-time interface checks.
var (
	_ venue.Adapter     = (*Client)(nil)
	_ venue.BulkFetcher = (*Client)(nil)
)
