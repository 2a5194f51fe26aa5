package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/kimchibot/internal/domain"
)

// RateStore implements domain.RateStore using PostgreSQL.
type RateStore struct {
	pool *pgxpool.Pool
}

// NewRateStore creates a new RateStore backed by the given connection pool.
func NewRateStore(pool *pgxpool.Pool) *RateStore {
	return &RateStore{pool: pool}
}

// Insert appends a fetched exchange rate to the durable history.
func (s *RateStore) Insert(ctx context.Context, rate domain.ExchangeRate) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO fx_rates (rate, hour, fetched_at)
		VALUES ($1, $2, $3)`,
		rate.Rate, rate.Hour, rate.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert fx rate: %w", err)
	}
	return nil
}

// Latest returns the most recently fetched rate, or domain.ErrNotFound when
// the table is empty.
func (s *RateStore) Latest(ctx context.Context) (domain.ExchangeRate, error) {
	var rate domain.ExchangeRate
	err := s.pool.QueryRow(ctx, `
		SELECT rate, hour, fetched_at
		FROM fx_rates
		ORDER BY fetched_at DESC
		LIMIT 1`,
	).Scan(&rate.Rate, &rate.Hour, &rate.FetchedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ExchangeRate{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.ExchangeRate{}, fmt.Errorf("postgres: latest fx rate: %w", err)
	}
	return rate, nil
}

// Compile-time interface check.
var _ domain.RateStore = (*RateStore)(nil)
