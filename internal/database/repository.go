package database

import (
	"context"
	"fmt"

	"arbwatch/internal/config"
	"arbwatch/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines the standard interface for database operations.
type Repository interface {
	LogOpportunity(ctx context.Context, entry model.JournalEntry) error
	Migrate(ctx context.Context) error
}

// PostgresRepository journals opportunities to PostgreSQL.
type PostgresRepository struct {
	Pool *pgxpool.Pool
}

// NewPostgresRepository connects a pool using cfg.
func NewPostgresRepository(ctx context.Context, cfg config.DatabaseConfig) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresRepository{Pool: pool}, nil
}

const createOpportunitiesSQL = `
CREATE TABLE IF NOT EXISTS arbitrage_opportunities (
	id UUID PRIMARY KEY,
	observed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	pair VARCHAR(32) NOT NULL,
	buy_source VARCHAR(64) NOT NULL,
	buy_price NUMERIC(30, 12) NOT NULL,
	sell_source VARCHAR(64) NOT NULL,
	sell_price NUMERIC(30, 12) NOT NULL,
	spread_percent NUMERIC(20, 8) NOT NULL
)`

// Migrate creates the journal table if needed.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.Pool.Exec(ctx, createOpportunitiesSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// LogOpportunity inserts one journal row.
func (r *PostgresRepository) LogOpportunity(ctx context.Context, e model.JournalEntry) error {
	_, err := r.Pool.Exec(ctx, `
		INSERT INTO arbitrage_opportunities
			(id, observed_at, pair, buy_source, buy_price, sell_source, sell_price, spread_percent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.ObservedAt, e.Pair,
		e.BuySource, e.BuyPrice.String(),
		e.SellSource, e.SellPrice.String(),
		e.SpreadPercent.Round(8).String(),
	)
	if err != nil {
		return fmt.Errorf("insert opportunity: %w", err)
	}
	return nil
}

// Close releases the pool.
func (r *PostgresRepository) Close() {
	r.Pool.Close()
}
