package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tradesync/internal/model"
)

// Store provides Postgres persistence for the price journal.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// PutPricePoints inserts a batch of price points, updating on replays of the
// same token and timestamp.
func (s *Store) PutPricePoints(points []model.PricePoint) error {
	if len(points) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, point := range points {
		batch.Queue(`
			INSERT INTO price_points (
				canister_id, symbol, price_usd_e12, source, observed_at, created_at
			) VALUES ($1, $2, $3, $4, $5, now())
			ON CONFLICT (canister_id, observed_at)
			DO UPDATE SET
				symbol = EXCLUDED.symbol,
				price_usd_e12 = EXCLUDED.price_usd_e12,
				source = EXCLUDED.source
		`,
			point.CanisterID,
			point.Symbol,
			point.PriceUsdE12,
			point.Source.String(),
			point.At,
		)
	}

	br := s.pool.SendBatch(context.Background(), batch)
	defer br.Close()

	for range points {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
