package monitor

import (
	"github.com/alanyoungcy/soltrack/internal/domain"
)

// minDelta is the significance threshold for balance movement. Lamport dust
// below it is treated as fees; token deltas at or below it are rounding
// noise from the node's uiAmount conversion.
const minDelta = 1e-6

// tokenDelta is one net SPL balance change for the wallet within a
// transaction.
type tokenDelta struct {
	Mint   string
	Change float64
}

// solChange returns the wallet's lamport delta in SOL for the account at
// index i.
func solChange(tx *domain.ParsedTx, i int) float64 {
	if i < 0 || i >= len(tx.PreBalances) || i >= len(tx.PostBalances) {
		return 0
	}
	return (float64(tx.PostBalances[i]) - float64(tx.PreBalances[i])) / 1e9
}

// tokenDeltas computes the wallet's net token movement: each post balance
// owned by the wallet is paired with the pre balance at the same account
// index, and pre balances with no surviving post entry count as full exits.
// Deltas at or below minDelta are dropped.
func tokenDeltas(tx *domain.ParsedTx, wallet string) []tokenDelta {
	preByIndex := make(map[int]domain.TxTokenBalance)
	for _, b := range tx.PreTokenBalances {
		if b.Owner == wallet {
			preByIndex[b.AccountIndex] = b
		}
	}

	matched := make(map[int]bool)
	var deltas []tokenDelta
	for _, post := range tx.PostTokenBalances {
		if post.Owner != wallet {
			continue
		}

		pre := 0.0
		if p, ok := preByIndex[post.AccountIndex]; ok {
			pre = p.UIAmount
			matched[post.AccountIndex] = true
		}

		change := post.UIAmount - pre
		if abs(change) > minDelta {
			deltas = append(deltas, tokenDelta{Mint: post.Mint, Change: change})
		}
	}

	// Token accounts closed by the transaction: present pre, absent post.
	for idx, pre := range preByIndex {
		if matched[idx] || pre.UIAmount <= 0 {
			continue
		}
		change := -pre.UIAmount
		if abs(change) > minDelta {
			deltas = append(deltas, tokenDelta{Mint: pre.Mint, Change: change})
		}
	}

	return deltas
}

// classify maps one token delta plus the wallet's SOL movement to a trade.
// Buys spend SOL for tokens, sells receive SOL for tokens; anything without
// a matching SOL direction is a plain transfer. The native-wrapped mint is
// skipped entirely: its movement is already accounted for by the lamport
// delta.
func classify(d tokenDelta, sol float64) (domain.Trade, bool) {
	if d.Mint == domain.NativeMint {
		return domain.Trade{}, false
	}

	amountA := abs(d.Change)
	amountSol := abs(sol)

	switch {
	case d.Change > 0 && sol <= -minDelta:
		return domain.Trade{
			Type:     domain.TradeTypeBuy,
			TokenA:   d.Mint,
			TokenB:   domain.NativeMint,
			AmountA:  amountA,
			AmountB:  amountSol,
			TradePnl: -amountSol,
			Platform: "unknown",
		}, true
	case d.Change < 0 && sol >= minDelta:
		return domain.Trade{
			Type:     domain.TradeTypeSell,
			TokenA:   d.Mint,
			TokenB:   domain.NativeMint,
			AmountA:  amountA,
			AmountB:  amountSol,
			TradePnl: amountSol,
			Platform: "unknown",
		}, true
	case d.Change > 0:
		return domain.Trade{
			Type:     domain.TradeTypeDeposit,
			TokenA:   d.Mint,
			TokenB:   d.Mint,
			AmountA:  amountA,
			AmountB:  amountA,
			TradePnl: 0,
			Platform: domain.PlatformTransfer,
		}, true
	default:
		return domain.Trade{
			Type:     domain.TradeTypeWithdrawal,
			TokenA:   d.Mint,
			TokenB:   d.Mint,
			AmountA:  amountA,
			AmountB:  amountA,
			TradePnl: 0,
			Platform: domain.PlatformTransfer,
		}, true
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
