package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/soltrack/internal/domain"
)

// UserStore implements domain.UserStore using PostgreSQL.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates a new UserStore backed by the given connection pool.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

const userSelectCols = `id, username, wallet_address, COALESCE(email, ''),
	COALESCE(stream_platform, ''), COALESCE(stream_url, ''), is_live,
	last_active, created_at, updated_at`

func scanUserRows(rows pgx.Rows) ([]domain.User, error) {
	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(
			&u.ID, &u.Username, &u.WalletAddress, &u.Email,
			&u.StreamPlatform, &u.StreamURL, &u.IsLive,
			&u.LastActive, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ListLive returns every user whose wallet is currently monitored.
func (s *UserStore) ListLive(ctx context.Context) ([]domain.User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+userSelectCols+` FROM users WHERE is_live ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list live users: %w", err)
	}
	defer rows.Close()

	users, err := scanUserRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan live users: %w", err)
	}
	return users, nil
}

// ListAll returns every user ordered by last activity, most recent first.
// Users with no recorded activity sort last.
func (s *UserStore) ListAll(ctx context.Context) ([]domain.User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+userSelectCols+` FROM users ORDER BY last_active DESC NULLS LAST, id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list users: %w", err)
	}
	defer rows.Close()

	users, err := scanUserRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan users: %w", err)
	}
	return users, nil
}

// GetByWallet returns the user owning the given wallet address.
func (s *UserStore) GetByWallet(ctx context.Context, wallet string) (domain.User, error) {
	var u domain.User
	err := s.pool.QueryRow(ctx,
		`SELECT `+userSelectCols+` FROM users WHERE wallet_address = $1`, wallet,
	).Scan(
		&u.ID, &u.Username, &u.WalletAddress, &u.Email,
		&u.StreamPlatform, &u.StreamURL, &u.IsLive,
		&u.LastActive, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("postgres: get user by wallet: %w", err)
	}
	return u, nil
}
