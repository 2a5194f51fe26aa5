package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultBinanceWSURL is Binance's combined-stream websocket endpoint.
const DefaultBinanceWSURL = "wss://stream.binance.com:9443/stream"

// BinanceFeed subscribes to Binance bookTicker streams for the given market
// symbols (e.g. "ETHUSDT") and invokes the handler with the best-bid price on
// every update. It reconnects with exponential backoff on disconnect.
type BinanceFeed struct {
	url     string
	symbols []string
	onTick  TickHandler
	logger  *slog.Logger
}

func NewBinanceFeed(url string, symbols []string, onTick TickHandler, logger *slog.Logger) *BinanceFeed {
	if url == "" {
		url = DefaultBinanceWSURL
	}
	return &BinanceFeed{
		url:     url,
		symbols: symbols,
		onTick:  onTick,
		logger:  logger.With(slog.String("component", "binance_feed")),
	}
}

// Run connects and streams until ctx is cancelled.
func (f *BinanceFeed) Run(ctx context.Context) error {
	if len(f.symbols) == 0 {
		f.logger.Info("no symbols to subscribe, exiting")
		return nil
	}

	delay := reconnectDelay
	for {
		err := f.runConnection(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.logger.Warn("binance ws disconnected, reconnecting",
			slog.String("error", err.Error()),
			slog.Duration("delay", delay),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

// streamURL builds the combined-stream URL, one bookTicker stream per symbol.
func (f *BinanceFeed) streamURL() string {
	streams := make([]string, len(f.symbols))
	for i, s := range f.symbols {
		streams[i] = strings.ToLower(s) + "@bookTicker"
	}
	return f.url + "?streams=" + strings.Join(streams, "/")
}

// binanceEnvelope wraps every combined-stream message.
type binanceEnvelope struct {
	Stream string `json:"stream"`
	Data   struct {
		Symbol   string `json:"s"`
		BidPrice string `json:"b"`
	} `json:"data"`
}

func (f *BinanceFeed) runConnection(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.streamURL(), nil)
	if err != nil {
		return fmt.Errorf("feed: binance connect: %w", err)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		_ = conn.Close()
	}()

	f.logger.Info("binance ws subscribed", slog.Int("symbols", len(f.symbols)))

	// Binance pings the client; gorilla answers pings automatically during
	// ReadMessage, so only the read deadline needs refreshing.
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteMessage(websocket.PongMessage, []byte(appData))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("feed: binance read: %w", err)
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var env binanceEnvelope
		if err := json.Unmarshal(message, &env); err != nil || env.Data.Symbol == "" {
			continue
		}
		price, err := strconv.ParseFloat(env.Data.BidPrice, 64)
		if err != nil || price <= 0 {
			continue
		}
		f.onTick(ctx, Tick{
			Venue:  "Binance",
			Symbol: env.Data.Symbol,
			Price:  price,
			Time:   time.Now().UTC(),
		})
	}
}
