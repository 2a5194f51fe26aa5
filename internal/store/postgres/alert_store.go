package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/kimchibot/internal/domain"
)

// AlertStore implements domain.AlertStore using PostgreSQL.
type AlertStore struct {
	pool *pgxpool.Pool
}

// NewAlertStore creates a new AlertStore backed by the given connection pool.
func NewAlertStore(pool *pgxpool.Pool) *AlertStore {
	return &AlertStore{pool: pool}
}

// Insert records a fired spread alert.
func (s *AlertStore) Insert(ctx context.Context, alert domain.Alert) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO alerts (
			id, cycle_id, symbol, base_venue, compare_venue,
			pct_diff, usd_diff, profit_pct, abs_profit_usd,
			liquidity_usd, detected_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING`,
		alert.ID, alert.CycleID, alert.Symbol, alert.BaseVenue, alert.CompareVenue,
		alert.PctDiff, alert.USDDiff, alert.ProfitPct, alert.AbsProfitUSD,
		alert.LiquidityUSD, alert.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert alert: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.AlertStore = (*AlertStore)(nil)
