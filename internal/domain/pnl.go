package domain

import "time"

// DailyPnl is one row per (wallet, day) summarizing realized profit and loss
// in the reference timezone. StartBalance is seeded once when the row is
// created; EndBalance tracks the wallet's SOL balance after the most recent
// classified swap of the day.
type DailyPnl struct {
	ID            int64
	UserID        *int64
	WalletAddress string
	Date          time.Time
	StartBalance  float64
	EndBalance    float64
	RealizedPnl   float64
	TotalTrades   int
	LastTradeID   *int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DailyPnlUpdate carries the mutable fields of a DailyPnl row for an
// in-place update keyed by (wallet, date).
type DailyPnlUpdate struct {
	EndBalance  float64
	RealizedPnl float64
	TotalTrades int
	LastTradeID *int64
}
