package push

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/soltrack/internal/clock"
	"github.com/alanyoungcy/soltrack/internal/domain"
	"github.com/alanyoungcy/soltrack/internal/memstore"
)

const (
	walletOne = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
	walletTwo = "5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1"
	mintOne   = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
)

type mapResolver struct {
	metas map[string]domain.TokenMeta
}

func (r *mapResolver) Get(_ context.Context, mint string) (domain.TokenMeta, error) {
	if m, ok := r.metas[mint]; ok {
		return m, nil
	}
	symbol := domain.FallbackSymbol(mint)
	return domain.TokenMeta{Address: mint, Symbol: symbol, Name: symbol}, nil
}

type snapFixture struct {
	assembler *Assembler
	users     *memstore.UserStore
	trades    *memstore.TradeStore
	pnls      *memstore.PnlStore
	now       time.Time
}

func newSnapFixture() *snapFixture {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, clock.RefZone)
	active := now.Add(-time.Hour)

	users := memstore.NewUserStore(
		domain.User{ID: 1, Username: "trader-one", WalletAddress: walletOne, IsLive: true, LastActive: &active},
		domain.User{ID: 2, Username: "trader-two", WalletAddress: walletTwo, IsLive: true},
	)
	trades := memstore.NewTradeStore()
	pnls := memstore.NewPnlStore()
	resolver := &mapResolver{metas: map[string]domain.TokenMeta{
		domain.NativeMint: {Address: domain.NativeMint, Symbol: "SOL", Name: "Solana"},
		mintOne:           {Address: mintOne, Symbol: "BONK", Name: "Bonk"},
	}}

	return &snapFixture{
		assembler: NewAssembler(users, trades, pnls, resolver, clock.Fixed{Instant: now}),
		users:     users,
		trades:    trades,
		pnls:      pnls,
		now:       now,
	}
}

func TestSnapshotEmptyWallet(t *testing.T) {
	f := newSnapFixture()

	snap, err := f.assembler.Build(context.Background(), walletOne)
	require.NoError(t, err)

	assert.Equal(t, "trader-one", snap.User.Username)
	assert.Nil(t, snap.LastTrade)
	assert.Nil(t, snap.DailyPnl)
	assert.Zero(t, snap.Balance)
}

func TestSnapshotWithTradeAndPnl(t *testing.T) {
	f := newSnapFixture()

	_, err := f.trades.Upsert(context.Background(), domain.Trade{
		Signature:     "sig-1",
		WalletAddress: walletOne,
		Type:          domain.TradeTypeBuy,
		TokenA:        mintOne,
		TokenB:        domain.NativeMint,
		AmountA:       500,
		AmountB:       0.1,
		TradePnl:      -0.1,
		Platform:      "unknown",
		Timestamp:     f.now.Add(-time.Hour),
	})
	require.NoError(t, err)

	_, err = f.pnls.Insert(context.Background(), domain.DailyPnl{
		WalletAddress: walletOne,
		Date:          clock.DayStart(f.now),
		StartBalance:  1.0,
		EndBalance:    0.9,
		RealizedPnl:   -0.1,
		TotalTrades:   1,
	})
	require.NoError(t, err)

	snap, err := f.assembler.Build(context.Background(), walletOne)
	require.NoError(t, err)

	require.NotNil(t, snap.LastTrade)
	assert.Equal(t, "buy", snap.LastTrade.Type)
	assert.Equal(t, "BONK", snap.LastTrade.TokenA.Symbol)
	assert.Equal(t, "SOL", snap.LastTrade.TokenB.Symbol)
	assert.Equal(t, "500", snap.LastTrade.AmountA)
	assert.Equal(t, "0.1", snap.LastTrade.AmountB)
	assert.Equal(t, "-0.1", snap.LastTrade.TradePnl)

	require.NotNil(t, snap.DailyPnl)
	assert.Equal(t, 1, snap.DailyPnl.TotalTrades)
	assert.Equal(t, "-0.1", snap.DailyPnl.RealizedPnl)
	assert.InDelta(t, 0.9, snap.Balance, 1e-9)
}

func TestSnapshotUnknownWallet(t *testing.T) {
	f := newSnapFixture()

	_, err := f.assembler.Build(context.Background(), "UnknownWallet111")
	assert.Error(t, err)
}

func TestBuildAllOrdersByLastActive(t *testing.T) {
	f := newSnapFixture()

	snaps, err := f.assembler.BuildAll(context.Background())
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	// trader-one has lastActive set; trader-two sorts after it.
	assert.Equal(t, "trader-one", snaps[0].User.Username)
	assert.Equal(t, "trader-two", snaps[1].User.Username)
}
