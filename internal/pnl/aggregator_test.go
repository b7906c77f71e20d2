package pnl

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/soltrack/internal/clock"
	"github.com/alanyoungcy/soltrack/internal/domain"
	"github.com/alanyoungcy/soltrack/internal/memstore"
)

const wallet = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"

func newAggregator(now time.Time) (*Aggregator, *memstore.PnlStore) {
	store := memstore.NewPnlStore()
	agg := New(store, nil, clock.Fixed{Instant: now}, slog.Default())
	return agg, store
}

func TestFirstTouchSeedsFromCurrentBalance(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, clock.RefZone)
	agg, _ := newAggregator(now)

	row, err := agg.EnsureToday(context.Background(), wallet, nil, 2.5)
	require.NoError(t, err)

	assert.InDelta(t, 2.5, row.StartBalance, 1e-9)
	assert.InDelta(t, 2.5, row.EndBalance, 1e-9)
	assert.Zero(t, row.RealizedPnl)
	assert.Zero(t, row.TotalTrades)
	assert.True(t, row.Date.Equal(clock.DayStart(now)))
}

func TestDayRolloverSeedsFromPreviousEndBalance(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, clock.RefZone)
	agg, store := newAggregator(now)

	yesterday := clock.DayStart(now).AddDate(0, 0, -1)
	_, err := store.Insert(context.Background(), domain.DailyPnl{
		WalletAddress: wallet,
		Date:          yesterday,
		StartBalance:  4.0,
		EndBalance:    5.0,
		RealizedPnl:   1.0,
		TotalTrades:   3,
	})
	require.NoError(t, err)

	row, err := agg.EnsureToday(context.Background(), wallet, nil, 5.0)
	require.NoError(t, err)

	assert.InDelta(t, 5.0, row.StartBalance, 1e-9)
	assert.Zero(t, row.RealizedPnl)
	assert.Zero(t, row.TotalTrades)
}

func TestApplyTradeAccumulates(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, clock.RefZone)
	agg, _ := newAggregator(now)

	// Scenario: buy for 0.1 SOL, then sell for 0.2 SOL.
	row, err := agg.ApplyTrade(context.Background(), wallet, nil, 0.9, -0.1, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, row.TotalTrades)
	assert.InDelta(t, -0.1, row.RealizedPnl, 1e-6)
	assert.InDelta(t, 0.9, row.EndBalance, 1e-9)

	row, err = agg.ApplyTrade(context.Background(), wallet, nil, 1.1, 0.2, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, row.TotalTrades)
	assert.InDelta(t, 0.1, row.RealizedPnl, 1e-6)
	assert.InDelta(t, 1.1, row.EndBalance, 1e-9)
}

func TestTransfersDoNotCountAsTrades(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, clock.RefZone)
	agg, _ := newAggregator(now)

	row, err := agg.ApplyTrade(context.Background(), wallet, nil, 3.0, 0, nil)
	require.NoError(t, err)
	assert.Zero(t, row.TotalTrades)
	assert.Zero(t, row.RealizedPnl)
	assert.InDelta(t, 3.0, row.EndBalance, 1e-9)
}

func TestApplyTradePersists(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, clock.RefZone)
	agg, store := newAggregator(now)

	tradeID := int64(42)
	_, err := agg.ApplyTrade(context.Background(), wallet, nil, 0.9, -0.1, &tradeID)
	require.NoError(t, err)

	saved, err := store.Get(context.Background(), wallet, clock.DayStart(now))
	require.NoError(t, err)
	assert.Equal(t, 1, saved.TotalTrades)
	require.NotNil(t, saved.LastTradeID)
	assert.Equal(t, tradeID, *saved.LastTradeID)
}

func TestPnlEventPublished(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, clock.RefZone)
	store := memstore.NewPnlStore()
	bus := &capturingBus{}
	agg := New(store, bus, clock.Fixed{Instant: now}, slog.Default())

	_, err := agg.ApplyTrade(context.Background(), wallet, nil, 0.9, -0.1, nil)
	require.NoError(t, err)

	require.Len(t, bus.pnls, 1)
	assert.Equal(t, wallet, bus.pnls[0].WalletAddress)
	assert.InDelta(t, -0.1, bus.pnls[0].Pnl.RealizedPnl, 1e-6)
}

type capturingBus struct {
	pnls []domain.PnlEvent
}

func (b *capturingBus) Subscribe(domain.EventHandler)                       {}
func (b *capturingBus) PublishTrade(context.Context, domain.TradeEvent)     {}
func (b *capturingBus) PublishBalance(context.Context, domain.BalanceEvent) {}
func (b *capturingBus) PublishPnl(_ context.Context, ev domain.PnlEvent) {
	b.pnls = append(b.pnls, ev)
}
