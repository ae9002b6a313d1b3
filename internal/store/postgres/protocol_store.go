package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/pythmarket/internal/domain"
)

// ProtocolStore implements domain.ProtocolStore using PostgreSQL. The
// protocol table holds exactly one row with id = 1.
type ProtocolStore struct {
	pool *pgxpool.Pool
}

// NewProtocolStore creates a new ProtocolStore backed by the given connection
// pool.
func NewProtocolStore(pool *pgxpool.Pool) *ProtocolStore {
	return &ProtocolStore{pool: pool}
}

var _ domain.ProtocolStore = (*ProtocolStore)(nil)

const protocolCols = `fee_bps, min_liquidity, paused, fees_accrued, market_count, updated_at`

// Init writes the singleton row if it does not exist yet and returns the
// current state either way. Configured fee and liquidity floor only apply on
// first start; afterwards the stored values win.
func (s *ProtocolStore) Init(ctx context.Context, p domain.Protocol) (domain.Protocol, error) {
	const query = `
		INSERT INTO protocol (id, fee_bps, min_liquidity, paused)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO NOTHING`

	if _, err := s.pool.Exec(ctx, query,
		int64(p.FeeBps), int64(p.MinLiquidity), p.Paused,
	); err != nil {
		return domain.Protocol{}, fmt.Errorf("postgres: init protocol: %w", err)
	}
	return s.Get(ctx)
}

// Get returns the current protocol state.
func (s *ProtocolStore) Get(ctx context.Context) (domain.Protocol, error) {
	var p domain.Protocol
	var feeBps, minLiq, accrued, count int64
	err := s.pool.QueryRow(ctx,
		`SELECT `+protocolCols+` FROM protocol WHERE id = 1`,
	).Scan(&feeBps, &minLiq, &p.Paused, &accrued, &count, &p.UpdatedAt)
	if err != nil {
		return domain.Protocol{}, fmt.Errorf("postgres: get protocol: %w", err)
	}
	p.FeeBps = uint64(feeBps)
	p.MinLiquidity = uint64(minLiq)
	p.FeesAccrued = uint64(accrued)
	p.MarketCount = uint64(count)
	return p, nil
}

// SetPaused flips the protocol-wide pause switch.
func (s *ProtocolStore) SetPaused(ctx context.Context, paused bool) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE protocol SET paused = $1, updated_at = NOW() WHERE id = 1`, paused)
	if err != nil {
		return fmt.Errorf("postgres: set paused=%t: %w", paused, err)
	}
	return nil
}

// SetFeeBps updates the protocol fee.
func (s *ProtocolStore) SetFeeBps(ctx context.Context, feeBps uint64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE protocol SET fee_bps = $1, updated_at = NOW() WHERE id = 1`, int64(feeBps))
	if err != nil {
		return fmt.Errorf("postgres: set fee_bps=%d: %w", feeBps, err)
	}
	return nil
}

// AccrueFees adds amount to the running fee total. The addition happens in
// the database so concurrent trades cannot lose an increment.
func (s *ProtocolStore) AccrueFees(ctx context.Context, amount uint64) error {
	if amount == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE protocol SET fees_accrued = fees_accrued + $1, updated_at = NOW() WHERE id = 1`,
		int64(amount))
	if err != nil {
		return fmt.Errorf("postgres: accrue fees %d: %w", amount, err)
	}
	return nil
}

// IncrementMarketCount bumps the created-market counter.
func (s *ProtocolStore) IncrementMarketCount(ctx context.Context) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE protocol SET market_count = market_count + 1, updated_at = NOW() WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("postgres: increment market count: %w", err)
	}
	return nil
}
