package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/soltrack/internal/domain"
)

const (
	testWallet = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
	testMint   = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
)

func TestClassifyBuy(t *testing.T) {
	trade, ok := classify(tokenDelta{Mint: testMint, Change: 500}, -0.1)
	require.True(t, ok)

	assert.Equal(t, domain.TradeTypeBuy, trade.Type)
	assert.Equal(t, testMint, trade.TokenA)
	assert.Equal(t, domain.NativeMint, trade.TokenB)
	assert.InDelta(t, 500, trade.AmountA, 1e-9)
	assert.InDelta(t, 0.1, trade.AmountB, 1e-9)
	assert.InDelta(t, -0.1, trade.TradePnl, 1e-9)
	assert.Equal(t, "unknown", trade.Platform)
}

func TestClassifySell(t *testing.T) {
	trade, ok := classify(tokenDelta{Mint: testMint, Change: -500}, 0.2)
	require.True(t, ok)

	assert.Equal(t, domain.TradeTypeSell, trade.Type)
	assert.InDelta(t, 500, trade.AmountA, 1e-9)
	assert.InDelta(t, 0.2, trade.AmountB, 1e-9)
	assert.InDelta(t, 0.2, trade.TradePnl, 1e-9)
}

func TestClassifyDeposit(t *testing.T) {
	trade, ok := classify(tokenDelta{Mint: testMint, Change: 100}, 0)
	require.True(t, ok)

	assert.Equal(t, domain.TradeTypeDeposit, trade.Type)
	assert.Equal(t, testMint, trade.TokenA)
	assert.Equal(t, testMint, trade.TokenB)
	assert.InDelta(t, 100, trade.AmountA, 1e-9)
	assert.Zero(t, trade.TradePnl)
	assert.Equal(t, domain.PlatformTransfer, trade.Platform)
}

func TestClassifyWithdrawal(t *testing.T) {
	trade, ok := classify(tokenDelta{Mint: testMint, Change: -100}, 0)
	require.True(t, ok)

	assert.Equal(t, domain.TradeTypeWithdrawal, trade.Type)
	assert.Equal(t, domain.PlatformTransfer, trade.Platform)
	assert.Zero(t, trade.TradePnl)
}

func TestClassifySkipsNativeMint(t *testing.T) {
	_, ok := classify(tokenDelta{Mint: domain.NativeMint, Change: 1}, -0.5)
	assert.False(t, ok)
}

func TestClassifyDustSolIsTransfer(t *testing.T) {
	// SOL movement below the significance threshold has no direction, so a
	// token inflow is a deposit rather than a buy.
	trade, ok := classify(tokenDelta{Mint: testMint, Change: 100}, -5e-7)
	require.True(t, ok)
	assert.Equal(t, domain.TradeTypeDeposit, trade.Type)
}

func TestTokenDeltasPairsByAccountIndex(t *testing.T) {
	tx := &domain.ParsedTx{
		PreTokenBalances: []domain.TxTokenBalance{
			{AccountIndex: 3, Mint: testMint, Owner: testWallet, UIAmount: 200},
		},
		PostTokenBalances: []domain.TxTokenBalance{
			{AccountIndex: 3, Mint: testMint, Owner: testWallet, UIAmount: 700},
		},
	}

	deltas := tokenDeltas(tx, testWallet)
	require.Len(t, deltas, 1)
	assert.Equal(t, testMint, deltas[0].Mint)
	assert.InDelta(t, 500, deltas[0].Change, 1e-9)
}

func TestTokenDeltasIgnoresOtherOwners(t *testing.T) {
	tx := &domain.ParsedTx{
		PostTokenBalances: []domain.TxTokenBalance{
			{AccountIndex: 3, Mint: testMint, Owner: "SomeoneElse", UIAmount: 700},
		},
	}

	assert.Empty(t, tokenDeltas(tx, testWallet))
}

func TestTokenDeltasFullExit(t *testing.T) {
	// Pre balance with no matching post entry means the token account was
	// closed: the whole position left the wallet.
	tx := &domain.ParsedTx{
		PreTokenBalances: []domain.TxTokenBalance{
			{AccountIndex: 4, Mint: testMint, Owner: testWallet, UIAmount: 500},
		},
	}

	deltas := tokenDeltas(tx, testWallet)
	require.Len(t, deltas, 1)
	assert.InDelta(t, -500, deltas[0].Change, 1e-9)
}

func TestTokenDeltasThreshold(t *testing.T) {
	tx := &domain.ParsedTx{
		PostTokenBalances: []domain.TxTokenBalance{
			{AccountIndex: 1, Mint: testMint, Owner: testWallet, UIAmount: 1e-6},
		},
	}
	// Exactly the threshold is dropped.
	assert.Empty(t, tokenDeltas(tx, testWallet))

	tx.PostTokenBalances[0].UIAmount = 1e-6 + 1e-9
	assert.Len(t, tokenDeltas(tx, testWallet), 1)
}

func TestSolChange(t *testing.T) {
	tx := &domain.ParsedTx{
		PreBalances:  []uint64{1_000_000_000, 5},
		PostBalances: []uint64{900_000_000, 5},
	}
	assert.InDelta(t, -0.1, solChange(tx, 0), 1e-9)
	assert.Zero(t, solChange(tx, 5))
}
