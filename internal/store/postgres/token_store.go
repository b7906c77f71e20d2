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

// TokenStore implements domain.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *pgxpool.Pool
}

// NewTokenStore creates a new TokenStore backed by the given connection pool.
func NewTokenStore(pool *pgxpool.Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

const tokenSelectCols = `id, address, symbol, name, decimals, verified,
	last_price, last_updated, metadata`

func scanToken(row pgx.Row) (domain.TokenMeta, error) {
	var t domain.TokenMeta
	err := row.Scan(
		&t.ID, &t.Address, &t.Symbol, &t.Name, &t.Decimals, &t.Verified,
		&t.LastPrice, &t.LastUpdated, &t.Metadata,
	)
	return t, err
}

// Get returns the metadata row for a mint, or ErrNotFound.
func (s *TokenStore) Get(ctx context.Context, mint string) (domain.TokenMeta, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tokenSelectCols+` FROM tokens WHERE address = $1`, mint)

	t, err := scanToken(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.TokenMeta{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.TokenMeta{}, fmt.Errorf("postgres: get token %s: %w", mint, err)
	}
	return t, nil
}

// Upsert inserts or refreshes the metadata row keyed by mint address.
func (s *TokenStore) Upsert(ctx context.Context, meta domain.TokenMeta) (domain.TokenMeta, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO tokens (address, symbol, name, decimals, verified, last_price, last_updated, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW(), $7)
		 ON CONFLICT (address) DO UPDATE SET
			symbol = EXCLUDED.symbol,
			name = EXCLUDED.name,
			decimals = COALESCE(EXCLUDED.decimals, tokens.decimals),
			verified = EXCLUDED.verified,
			last_updated = NOW(),
			metadata = COALESCE(EXCLUDED.metadata, tokens.metadata)
		 RETURNING `+tokenSelectCols,
		meta.Address, meta.Symbol, meta.Name, meta.Decimals, meta.Verified,
		meta.LastPrice, meta.Metadata,
	)

	saved, err := scanToken(row)
	if err != nil {
		return domain.TokenMeta{}, fmt.Errorf("postgres: upsert token %s: %w", meta.Address, err)
	}
	return saved, nil
}

// SetPrice updates the last observed USD price for a mint.
func (s *TokenStore) SetPrice(ctx context.Context, mint string, priceUsd float64, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tokens SET last_price = $1, last_updated = $2 WHERE address = $3`,
		priceUsd, at, mint)
	if err != nil {
		return fmt.Errorf("postgres: set token price %s: %w", mint, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListAll returns every metadata row, used to warm the in-memory cache at
// startup.
func (s *TokenStore) ListAll(ctx context.Context) ([]domain.TokenMeta, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+tokenSelectCols+` FROM tokens`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list tokens: %w", err)
	}
	defer rows.Close()

	var tokens []domain.TokenMeta
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}
