package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/soltrack/internal/domain"
)

// PnlStore implements domain.PnlStore using PostgreSQL.
type PnlStore struct {
	pool *pgxpool.Pool
}

// NewPnlStore creates a new PnlStore backed by the given connection pool.
func NewPnlStore(pool *pgxpool.Pool) *PnlStore {
	return &PnlStore{pool: pool}
}

const pnlSelectCols = `id, user_id, wallet_address, date, start_balance,
	COALESCE(end_balance, 0), realized_pnl, total_trades, last_trade_id,
	created_at, updated_at`

func scanPnl(row pgx.Row) (domain.DailyPnl, error) {
	var p domain.DailyPnl
	err := row.Scan(
		&p.ID, &p.UserID, &p.WalletAddress, &p.Date, &p.StartBalance,
		&p.EndBalance, &p.RealizedPnl, &p.TotalTrades, &p.LastTradeID,
		&p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

// Get returns the PnL row for the wallet on the given reference-zone day.
func (s *PnlStore) Get(ctx context.Context, wallet string, day time.Time) (domain.DailyPnl, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pnlSelectCols+` FROM pnl_records
		 WHERE wallet_address = $1 AND date = $2`, wallet, day)

	p, err := scanPnl(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DailyPnl{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.DailyPnl{}, fmt.Errorf("postgres: get daily pnl: %w", err)
	}
	return p, nil
}

// Last returns the wallet's most recent PnL row regardless of day.
func (s *PnlStore) Last(ctx context.Context, wallet string) (domain.DailyPnl, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pnlSelectCols+` FROM pnl_records
		 WHERE wallet_address = $1 ORDER BY date DESC LIMIT 1`, wallet)

	p, err := scanPnl(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DailyPnl{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.DailyPnl{}, fmt.Errorf("postgres: last daily pnl: %w", err)
	}
	return p, nil
}

// Insert creates the wallet's PnL row for a new day and returns it with the
// generated row id.
func (s *PnlStore) Insert(ctx context.Context, rec domain.DailyPnl) (domain.DailyPnl, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO pnl_records (
			user_id, wallet_address, date, start_balance, end_balance,
			realized_pnl, total_trades, last_trade_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+pnlSelectCols,
		rec.UserID, rec.WalletAddress, rec.Date, rec.StartBalance,
		rec.EndBalance, rec.RealizedPnl, rec.TotalTrades, rec.LastTradeID,
	)

	saved, err := scanPnl(row)
	if err != nil {
		return domain.DailyPnl{}, fmt.Errorf("postgres: insert daily pnl: %w", err)
	}
	return saved, nil
}

// Update overwrites the mutable fields of the row keyed by (wallet, day).
func (s *PnlStore) Update(ctx context.Context, wallet string, day time.Time, fields domain.DailyPnlUpdate) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE pnl_records SET
			end_balance = $1, realized_pnl = $2, total_trades = $3,
			last_trade_id = $4, updated_at = NOW()
		 WHERE wallet_address = $5 AND date = $6`,
		fields.EndBalance, fields.RealizedPnl, fields.TotalTrades,
		fields.LastTradeID, wallet, day,
	)
	if err != nil {
		return fmt.Errorf("postgres: update daily pnl: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByWallet returns the wallet's PnL history, most recent day first.
func (s *PnlStore) ListByWallet(ctx context.Context, wallet string, limit int) ([]domain.DailyPnl, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pnlSelectCols+` FROM pnl_records
		 WHERE wallet_address = $1 ORDER BY date DESC LIMIT $2`, wallet, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list daily pnl: %w", err)
	}
	defer rows.Close()

	var records []domain.DailyPnl
	for rows.Next() {
		p, err := scanPnl(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan daily pnl: %w", err)
		}
		records = append(records, p)
	}
	return records, rows.Err()
}
