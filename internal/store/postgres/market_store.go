package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/pythmarket/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a new MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

var _ domain.MarketStore = (*MarketStore)(nil)

// Create inserts a new market and returns the database-assigned id. The id
// comes from the insert itself, so concurrent creations never collide.
func (s *MarketStore) Create(ctx context.Context, m domain.Market) (uint64, error) {
	const query = `
		INSERT INTO markets (
			question, creator, end_time,
			reserves, yes_supply, no_supply,
			status, outcome, created_at, updated_at
		) VALUES (
			$1, $2, $3,
			$4, $5, $6,
			$7, $8, $9, $9
		) RETURNING id`

	var id uint64
	err := s.pool.QueryRow(ctx, query,
		m.Question, m.Creator, m.EndTime,
		int64(m.Reserves), int64(m.YesSupply), int64(m.NoSupply),
		string(m.Status), string(m.Outcome), m.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("postgres: create market: %w", err)
	}
	return id, nil
}

// Delete removes a market row. Used only to undo a creation whose ledger
// funding failed.
func (s *MarketStore) Delete(ctx context.Context, id uint64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM markets WHERE id = $1`, int64(id))
	if err != nil {
		return fmt.Errorf("postgres: delete market %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

const marketCols = `id, question, creator, end_time,
	reserves, yes_supply, no_supply,
	status, outcome, created_at, updated_at`

// scanMarket scans a single market row into a domain.Market.
func scanMarket(row pgx.Row) (domain.Market, error) {
	var m domain.Market
	var status, outcome string
	var reserves, yesSup, noSup int64
	err := row.Scan(
		&m.ID, &m.Question, &m.Creator, &m.EndTime,
		&reserves, &yesSup, &noSup,
		&status, &outcome, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return domain.Market{}, err
	}
	m.Reserves = uint64(reserves)
	m.YesSupply = uint64(yesSup)
	m.NoSupply = uint64(noSup)
	m.Status = domain.MarketStatus(status)
	m.Outcome = domain.Outcome(outcome)
	return m, nil
}

// GetByID retrieves a market by its primary key.
func (s *MarketStore) GetByID(ctx context.Context, id uint64) (domain.Market, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets WHERE id = $1`, int64(id))
	m, err := scanMarket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %d: %w", id, err)
	}
	return m, nil
}

// UpdateState persists the mutable fields of a market: pool state, lifecycle
// status and outcome.
func (s *MarketStore) UpdateState(ctx context.Context, m domain.Market) error {
	const query = `
		UPDATE markets SET
			reserves   = $2,
			yes_supply = $3,
			no_supply  = $4,
			status     = $5,
			outcome    = $6,
			updated_at = NOW()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		int64(m.ID),
		int64(m.Reserves), int64(m.YesSupply), int64(m.NoSupply),
		string(m.Status), string(m.Outcome),
	)
	if err != nil {
		return fmt.Errorf("postgres: update market %d: %w", m.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *MarketStore) list(ctx context.Context, where string, opts domain.ListOpts) ([]domain.Market, error) {
	query := `SELECT ` + marketCols + ` FROM markets` + where + ` ORDER BY created_at DESC`
	args := []any{}
	argIdx := 1

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
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	defer rows.Close()

	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		markets = append(markets, m)
	}
	return markets, rows.Err()
}

// ListActive returns markets still open for trading, newest first.
func (s *MarketStore) ListActive(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	return s.list(ctx, ` WHERE status = 'active' AND end_time > NOW()`, opts)
}

// List returns all markets regardless of status, newest first.
func (s *MarketStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	return s.list(ctx, ``, opts)
}

// Count returns the total number of markets.
func (s *MarketStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM markets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count markets: %w", err)
	}
	return n, nil
}
