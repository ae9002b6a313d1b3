package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/pythmarket/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a new TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

var _ domain.TradeStore = (*TradeStore)(nil)

// Insert appends an executed trade.
func (s *TradeStore) Insert(ctx context.Context, t domain.Trade) error {
	const query = `
		INSERT INTO trades (
			id, market_id, trader, side, direction,
			amount_in, amount_out, fee,
			yes_price_bps, no_price_bps, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11
		)`

	_, err := s.pool.Exec(ctx, query,
		t.ID, int64(t.MarketID), t.Trader, string(t.Side), string(t.Direction),
		int64(t.AmountIn), int64(t.AmountOut), int64(t.Fee),
		int64(t.YesPriceBps), int64(t.NoPriceBps), t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert trade %s: %w", t.ID, err)
	}
	return nil
}

// ListByMarket returns trades for a market, newest first.
func (s *TradeStore) ListByMarket(ctx context.Context, marketID uint64, opts domain.ListOpts) ([]domain.Trade, error) {
	query := `
		SELECT id, market_id, trader, side, direction,
			amount_in, amount_out, fee,
			yes_price_bps, no_price_bps, created_at
		FROM trades WHERE market_id = $1
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
		return nil, fmt.Errorf("postgres: list trades for market %d: %w", marketID, err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var side, direction string
		var in, out, fee, yesBps, noBps int64
		if err := rows.Scan(
			&t.ID, &t.MarketID, &t.Trader, &side, &direction,
			&in, &out, &fee,
			&yesBps, &noBps, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan trade: %w", err)
		}
		t.Side = domain.Side(side)
		t.Direction = domain.TradeDirection(direction)
		t.AmountIn = uint64(in)
		t.AmountOut = uint64(out)
		t.Fee = uint64(fee)
		t.YesPriceBps = uint64(yesBps)
		t.NoPriceBps = uint64(noBps)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}
