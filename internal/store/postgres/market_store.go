package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oddsdesk/oddsdesk/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

var _ domain.MarketStore = (*MarketStore)(nil)

// NewMarketStore creates a MarketStore backed by the given pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

const marketUpsert = `
	INSERT INTO markets (
		id, condition_id, question, creator,
		yes_position_id, no_position_id,
		yes_price, no_price, volume_24h,
		resolved, outcome, created_at, updated_at, mirrored_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW()
	)
	ON CONFLICT (id) DO UPDATE SET
		question    = EXCLUDED.question,
		yes_price   = EXCLUDED.yes_price,
		no_price    = EXCLUDED.no_price,
		volume_24h  = EXCLUDED.volume_24h,
		resolved    = EXCLUDED.resolved,
		outcome     = EXCLUDED.outcome,
		updated_at  = EXCLUDED.updated_at,
		mirrored_at = NOW()`

// Upsert inserts or refreshes one market row.
func (s *MarketStore) Upsert(ctx context.Context, m domain.Market) error {
	_, err := s.pool.Exec(ctx, marketUpsert,
		m.ID, m.ConditionID, m.Question, m.Creator,
		m.YesPositionID, m.NoPositionID,
		m.YesPrice, m.NoPrice, m.Volume24h,
		m.Resolved, m.Outcome, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert market %s: %w", m.ID, err)
	}
	return nil
}

// UpsertBatch refreshes many market rows in one batch round trip.
func (s *MarketStore) UpsertBatch(ctx context.Context, markets []domain.Market) error {
	if len(markets) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, m := range markets {
		batch.Queue(marketUpsert,
			m.ID, m.ConditionID, m.Question, m.Creator,
			m.YesPositionID, m.NoPositionID,
			m.YesPrice, m.NoPrice, m.Volume24h,
			m.Resolved, m.Outcome, m.CreatedAt, m.UpdatedAt,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range markets {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("postgres: upsert market batch: %w", err)
		}
	}
	return nil
}

const marketSelectCols = `id, condition_id, question, creator,
	yes_position_id, no_position_id,
	yes_price, no_price, volume_24h,
	resolved, outcome, created_at, updated_at`

func scanMarket(scanner interface{ Scan(dest ...any) error }) (domain.Market, error) {
	var m domain.Market
	err := scanner.Scan(
		&m.ID, &m.ConditionID, &m.Question, &m.Creator,
		&m.YesPositionID, &m.NoPositionID,
		&m.YesPrice, &m.NoPrice, &m.Volume24h,
		&m.Resolved, &m.Outcome, &m.CreatedAt, &m.UpdatedAt,
	)
	return m, err
}

// GetByID retrieves one mirrored market.
func (s *MarketStore) GetByID(ctx context.Context, id string) (domain.Market, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketSelectCols+` FROM markets WHERE id = $1`, id)

	m, err := scanMarket(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Market{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Market{}, fmt.Errorf("postgres: get market %s: %w", id, err)
	}
	return m, nil
}

// List returns mirrored markets, newest first.
func (s *MarketStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	query := `SELECT ` + marketSelectCols + ` FROM markets ORDER BY created_at DESC`
	args := []any{}
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
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

// Count returns the number of mirrored markets.
func (s *MarketStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM markets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count markets: %w", err)
	}
	return n, nil
}
