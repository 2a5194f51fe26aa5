package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// DefaultUpbitWSURL is Upbit's public quotation websocket endpoint.
const DefaultUpbitWSURL = "wss://api.upbit.com/websocket/v1"

// UpbitFeed subscribes to Upbit's ticker stream for the given market codes
// (e.g. "KRW-ETH") and invokes the handler on every trade-price update. It
// reconnects with exponential backoff on disconnect.
type UpbitFeed struct {
	url    string
	codes  []string
	onTick TickHandler
	logger *slog.Logger
}

func NewUpbitFeed(url string, codes []string, onTick TickHandler, logger *slog.Logger) *UpbitFeed {
	if url == "" {
		url = DefaultUpbitWSURL
	}
	return &UpbitFeed{
		url:    url,
		codes:  codes,
		onTick: onTick,
		logger: logger.With(slog.String("component", "upbit_feed")),
	}
}

// Run connects and streams until ctx is cancelled.
func (f *UpbitFeed) Run(ctx context.Context) error {
	if len(f.codes) == 0 {
		f.logger.Info("no market codes to subscribe, exiting")
		return nil
	}

	delay := reconnectDelay
	for {
		err := f.runConnection(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.logger.Warn("upbit ws disconnected, reconnecting",
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

// upbitTicker is the subset of Upbit's DEFAULT-format ticker payload we use.
type upbitTicker struct {
	Type       string  `json:"type"`
	Code       string  `json:"code"`
	TradePrice float64 `json:"trade_price"`
}

func (f *UpbitFeed) runConnection(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("feed: upbit connect: %w", err)
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

	// Upbit's subscribe message is a JSON array: a ticket frame, then one
	// frame per requested stream type.
	sub := []any{
		map[string]string{"ticket": uuid.New().String()},
		map[string]any{"type": "ticker", "codes": f.codes},
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("feed: upbit subscribe: %w", err)
	}
	f.logger.Info("upbit ws subscribed", slog.Int("codes", len(f.codes)))

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	go pingLoop(conn, done)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("feed: upbit read: %w", err)
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var tick upbitTicker
		if err := json.Unmarshal(message, &tick); err != nil || tick.Type != "ticker" {
			continue
		}
		f.onTick(ctx, Tick{
			Venue:  "Upbit",
			Symbol: tick.Code,
			Price:  tick.TradePrice,
			Time:   time.Now().UTC(),
		})
	}
}

// pingLoop keeps the connection alive until done is closed or a write fails.
func pingLoop(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
