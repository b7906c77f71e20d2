package domain

import (
	"context"
	"time"
)

// SignatureRef is a persisted trade signature with its block time, used to
// preload the monitor's dedupe set for newly tracked wallets.
type SignatureRef struct {
	Signature string
	Timestamp time.Time
}

// UserStore reads tracked trader identities.
type UserStore interface {
	ListLive(ctx context.Context) ([]User, error)
	ListAll(ctx context.Context) ([]User, error)
	GetByWallet(ctx context.Context, wallet string) (User, error)
}

// TradeStore persists classified trades keyed by transaction signature.
type TradeStore interface {
	// Upsert inserts the trade or, when the signature already exists,
	// overwrites every column of the existing row. The returned trade
	// carries the stable row id.
	Upsert(ctx context.Context, trade Trade) (Trade, error)
	GetBySignature(ctx context.Context, signature string) (Trade, error)
	GetByID(ctx context.Context, id int64) (Trade, error)
	Latest(ctx context.Context, wallet string) (Trade, error)
	LatestSignatures(ctx context.Context, wallet string, limit int) ([]SignatureRef, error)
	ListByWallet(ctx context.Context, wallet string, limit, offset int) ([]Trade, error)
	ListBefore(ctx context.Context, before time.Time) ([]Trade, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// PnlStore persists per-wallet per-day PnL rows.
type PnlStore interface {
	Get(ctx context.Context, wallet string, day time.Time) (DailyPnl, error)
	// Last returns the most recent row for the wallet regardless of day.
	Last(ctx context.Context, wallet string) (DailyPnl, error)
	Insert(ctx context.Context, row DailyPnl) (DailyPnl, error)
	Update(ctx context.Context, wallet string, day time.Time, fields DailyPnlUpdate) error
	ListByWallet(ctx context.Context, wallet string, limit int) ([]DailyPnl, error)
}

// TokenStore persists token metadata rows.
type TokenStore interface {
	Get(ctx context.Context, mint string) (TokenMeta, error)
	Upsert(ctx context.Context, meta TokenMeta) (TokenMeta, error)
	SetPrice(ctx context.Context, mint string, priceUsd float64, at time.Time) error
	ListAll(ctx context.Context) ([]TokenMeta, error)
}
