package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/pythmarket/internal/domain"
)

// RedemptionStore implements domain.RedemptionStore using PostgreSQL.
type RedemptionStore struct {
	pool *pgxpool.Pool
}

// NewRedemptionStore creates a new RedemptionStore backed by the given
// connection pool.
func NewRedemptionStore(pool *pgxpool.Pool) *RedemptionStore {
	return &RedemptionStore{pool: pool}
}

var _ domain.RedemptionStore = (*RedemptionStore)(nil)

// Insert appends a settled payout record.
func (s *RedemptionStore) Insert(ctx context.Context, r domain.Redemption) error {
	const query = `
		INSERT INTO redemptions (
			id, market_id, holder, side,
			tokens_burned, payout, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.pool.Exec(ctx, query,
		r.ID, int64(r.MarketID), r.Holder, string(r.Side),
		int64(r.TokensBurned), int64(r.Payout), r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert redemption %s: %w", r.ID, err)
	}
	return nil
}

// ListByMarket returns redemptions for a market, newest first.
func (s *RedemptionStore) ListByMarket(ctx context.Context, marketID uint64, opts domain.ListOpts) ([]domain.Redemption, error) {
	query := `
		SELECT id, market_id, holder, side, tokens_burned, payout, created_at
		FROM redemptions WHERE market_id = $1
		ORDER BY created_at DESC`
	args := []any{int64(marketID)}
	argIdx := 2

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list redemptions for market %d: %w", marketID, err)
	}
	defer rows.Close()

	var redemptions []domain.Redemption
	for rows.Next() {
		var r domain.Redemption
		var side string
		var burned, payout int64
		if err := rows.Scan(
			&r.ID, &r.MarketID, &r.Holder, &side,
			&burned, &payout, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan redemption: %w", err)
		}
		r.Side = domain.Side(side)
		r.TokensBurned = uint64(burned)
		r.Payout = uint64(payout)
		redemptions = append(redemptions, r)
	}
	return redemptions, rows.Err()
}
