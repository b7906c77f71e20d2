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

// TradeStore implements domain.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a new TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

const tradeSelectCols = `id, signature, wallet_address, user_id, token_a, token_b,
	type, amount_a, amount_b, trade_pnl, platform, tx_fees, timestamp,
	raw_data, created_at`

func scanTrade(row pgx.Row) (domain.Trade, error) {
	var t domain.Trade
	err := row.Scan(
		&t.ID, &t.Signature, &t.WalletAddress, &t.UserID, &t.TokenA, &t.TokenB,
		&t.Type, &t.AmountA, &t.AmountB, &t.TradePnl, &t.Platform, &t.TxFees,
		&t.Timestamp, &t.RawData, &t.CreatedAt,
	)
	return t, err
}

func scanTradeRows(rows pgx.Rows) ([]domain.Trade, error) {
	var trades []domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Upsert inserts the trade keyed by its signature. A conflicting signature
// overwrites every column of the existing row so re-ingesting a transaction
// is idempotent; the row id never changes.
func (s *TradeStore) Upsert(ctx context.Context, t domain.Trade) (domain.Trade, error) {
	const query = `
		INSERT INTO trades (
			signature, wallet_address, user_id, token_a, token_b, type,
			amount_a, amount_b, trade_pnl, platform, tx_fees, timestamp, raw_data
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12, $13
		) ON CONFLICT (signature) DO UPDATE SET
			wallet_address = EXCLUDED.wallet_address,
			user_id        = EXCLUDED.user_id,
			token_a        = EXCLUDED.token_a,
			token_b        = EXCLUDED.token_b,
			type           = EXCLUDED.type,
			amount_a       = EXCLUDED.amount_a,
			amount_b       = EXCLUDED.amount_b,
			trade_pnl      = EXCLUDED.trade_pnl,
			platform       = EXCLUDED.platform,
			tx_fees        = EXCLUDED.tx_fees,
			timestamp      = EXCLUDED.timestamp,
			raw_data       = EXCLUDED.raw_data
		RETURNING ` + tradeSelectCols

	row := s.pool.QueryRow(ctx, query,
		t.Signature, t.WalletAddress, t.UserID, t.TokenA, t.TokenB, t.Type,
		t.AmountA, t.AmountB, t.TradePnl, t.Platform, t.TxFees, t.Timestamp,
		t.RawData,
	)

	saved, err := scanTrade(row)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("postgres: upsert trade %s: %w", t.Signature, err)
	}
	return saved, nil
}

// GetBySignature returns the trade with the given signature, or ErrNotFound.
func (s *TradeStore) GetBySignature(ctx context.Context, signature string) (domain.Trade, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tradeSelectCols+` FROM trades WHERE signature = $1`, signature)

	t, err := scanTrade(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Trade{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Trade{}, fmt.Errorf("postgres: get trade by signature: %w", err)
	}
	return t, nil
}

// GetByID returns the trade with the given row id, or ErrNotFound.
func (s *TradeStore) GetByID(ctx context.Context, id int64) (domain.Trade, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tradeSelectCols+` FROM trades WHERE id = $1`, id)

	t, err := scanTrade(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Trade{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Trade{}, fmt.Errorf("postgres: get trade by id: %w", err)
	}
	return t, nil
}

// Latest returns the wallet's most recent trade by block time.
func (s *TradeStore) Latest(ctx context.Context, wallet string) (domain.Trade, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tradeSelectCols+` FROM trades
		 WHERE wallet_address = $1 ORDER BY timestamp DESC LIMIT 1`, wallet)

	t, err := scanTrade(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Trade{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Trade{}, fmt.Errorf("postgres: latest trade: %w", err)
	}
	return t, nil
}

// LatestSignatures returns up to limit persisted signatures for the wallet,
// newest first.
func (s *TradeStore) LatestSignatures(ctx context.Context, wallet string, limit int) ([]domain.SignatureRef, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT signature, timestamp FROM trades
		 WHERE wallet_address = $1 ORDER BY timestamp DESC LIMIT $2`,
		wallet, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: latest signatures: %w", err)
	}
	defer rows.Close()

	var refs []domain.SignatureRef
	for rows.Next() {
		var ref domain.SignatureRef
		if err := rows.Scan(&ref.Signature, &ref.Timestamp); err != nil {
			return nil, fmt.Errorf("postgres: scan signature: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// ListByWallet returns the wallet's trades newest first with pagination.
func (s *TradeStore) ListByWallet(ctx context.Context, wallet string, limit, offset int) ([]domain.Trade, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tradeSelectCols+` FROM trades
		 WHERE wallet_address = $1 ORDER BY timestamp DESC LIMIT $2 OFFSET $3`,
		wallet, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades by wallet: %w", err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan trades by wallet: %w", err)
	}
	return trades, nil
}

// ListBefore returns all trades with timestamp strictly before the given
// time (for archiving).
func (s *TradeStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Trade, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tradeSelectCols+` FROM trades
		 WHERE timestamp < $1 ORDER BY timestamp ASC`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades before: %w", err)
	}
	defer rows.Close()
	return scanTradeRows(rows)
}

// DeleteBefore deletes all trades with timestamp before the given time.
// Returns the number deleted.
func (s *TradeStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM trades WHERE timestamp < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete trades before: %w", err)
	}
	return tag.RowsAffected(), nil
}
