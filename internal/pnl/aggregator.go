// Package pnl owns the per-wallet daily PnL rows. All mutation goes through
// EnsureToday and ApplyTrade, which serialize per wallet so the in-process
// cache and the database row can never diverge.
package pnl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/soltrack/internal/clock"
	"github.com/alanyoungcy/soltrack/internal/domain"
)

// Aggregator maintains one DailyPnl row per (wallet, reference-zone day).
type Aggregator struct {
	store  domain.PnlStore
	bus    domain.EventBus
	clk    clock.Clock
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
	cache map[string]domain.DailyPnl // wallet -> today's row
}

// New creates an Aggregator. bus may be nil when no consumers need PnL
// events (tests).
func New(store domain.PnlStore, bus domain.EventBus, clk clock.Clock, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		store:  store,
		bus:    bus,
		clk:    clk,
		logger: logger.With(slog.String("component", "pnl")),
		locks:  make(map[string]*sync.Mutex),
		cache:  make(map[string]domain.DailyPnl),
	}
}

// walletLock returns the mutex serializing updates for one wallet.
func (a *Aggregator) walletLock(wallet string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	lock, ok := a.locks[wallet]
	if !ok {
		lock = &sync.Mutex{}
		a.locks[wallet] = lock
	}
	return lock
}

func (a *Aggregator) cacheGet(wallet string) (domain.DailyPnl, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	row, ok := a.cache[wallet]
	return row, ok
}

func (a *Aggregator) cacheSet(wallet string, row domain.DailyPnl) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cache[wallet] = row
}

// ensureRow loads or creates today's row for the wallet. The caller must
// hold the wallet lock. currentBalance seeds startBalance only when the
// wallet has no prior row at all.
func (a *Aggregator) ensureRow(ctx context.Context, wallet string, userID *int64, currentBalance float64) (domain.DailyPnl, error) {
	today := clock.DayStart(a.clk.Now())

	if cached, ok := a.cacheGet(wallet); ok && cached.Date.Equal(today) {
		return cached, nil
	}

	row, err := a.store.Get(ctx, wallet, today)
	if err == nil {
		a.cacheSet(wallet, row)
		return row, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.DailyPnl{}, fmt.Errorf("pnl: load row: %w", err)
	}

	startBalance := currentBalance
	prev, err := a.store.Last(ctx, wallet)
	if err == nil {
		startBalance = prev.EndBalance
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.DailyPnl{}, fmt.Errorf("pnl: load previous row: %w", err)
	}

	row, err = a.store.Insert(ctx, domain.DailyPnl{
		UserID:        userID,
		WalletAddress: wallet,
		Date:          today,
		StartBalance:  startBalance,
		EndBalance:    startBalance,
		RealizedPnl:   0,
		TotalTrades:   0,
	})
	if err != nil {
		return domain.DailyPnl{}, fmt.Errorf("pnl: insert row: %w", err)
	}

	a.logger.Info("seeded daily pnl row",
		slog.String("wallet", wallet),
		slog.Time("day", today),
		slog.Float64("start_balance", startBalance),
	)

	a.cacheSet(wallet, row)
	return row, nil
}

// EnsureToday makes sure today's row exists for the wallet and returns it.
func (a *Aggregator) EnsureToday(ctx context.Context, wallet string, userID *int64, currentBalance float64) (domain.DailyPnl, error) {
	lock := a.walletLock(wallet)
	lock.Lock()
	defer lock.Unlock()
	return a.ensureRow(ctx, wallet, userID, currentBalance)
}

// ApplyTrade folds one classified trade into today's row: endBalance tracks
// the post-trade SOL balance, realizedPnl accumulates the trade PnL, and
// totalTrades counts swaps only (tradePnl of zero marks a transfer).
func (a *Aggregator) ApplyTrade(ctx context.Context, wallet string, userID *int64, currentBalance, tradePnl float64, lastTradeID *int64) (domain.DailyPnl, error) {
	lock := a.walletLock(wallet)
	lock.Lock()
	defer lock.Unlock()

	row, err := a.ensureRow(ctx, wallet, userID, currentBalance)
	if err != nil {
		return domain.DailyPnl{}, err
	}

	if tradePnl != 0 {
		row.TotalTrades++
	}
	row.EndBalance = currentBalance
	row.RealizedPnl += tradePnl
	if lastTradeID != nil {
		row.LastTradeID = lastTradeID
	}
	row.UpdatedAt = time.Now()

	err = a.store.Update(ctx, wallet, row.Date, domain.DailyPnlUpdate{
		EndBalance:  row.EndBalance,
		RealizedPnl: row.RealizedPnl,
		TotalTrades: row.TotalTrades,
		LastTradeID: row.LastTradeID,
	})
	if err != nil {
		return domain.DailyPnl{}, fmt.Errorf("pnl: update row: %w", err)
	}

	a.cacheSet(wallet, row)

	if a.bus != nil {
		a.bus.PublishPnl(ctx, domain.PnlEvent{WalletAddress: wallet, Pnl: row})
	}

	return row, nil
}
