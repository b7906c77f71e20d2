package domain

import (
	"context"
	"time"
)

// TokenHolding is one SPL token position snapshot for a wallet.
type TokenHolding struct {
	Mint     string  `json:"mint"`
	UIAmount float64 `json:"uiAmount"`
}

// TradeEvent is published after a classified trade has been persisted.
type TradeEvent struct {
	WalletAddress string
	Trade         Trade
}

// BalanceEvent is published with the wallet's balances observed while
// processing a transaction.
type BalanceEvent struct {
	WalletAddress string
	SolBalance    float64
	Tokens        []TokenHolding
	Timestamp     time.Time
}

// PnlEvent is published after the daily PnL row for a wallet changed.
type PnlEvent struct {
	WalletAddress string
	Pnl           DailyPnl
}

// EventHandler receives monitor events. Handlers run on their subscriber's
// dispatch goroutine and should not block for long.
type EventHandler interface {
	OnTrade(ctx context.Context, ev TradeEvent)
	OnBalance(ctx context.Context, ev BalanceEvent)
	OnPnl(ctx context.Context, ev PnlEvent)
}

// EventBus is a typed publish/subscribe fabric between the monitor and its
// consumers (push hub, notifier). Ordering is guaranteed per wallet per
// subscriber; nothing is promised across wallets or across subscribers.
type EventBus interface {
	Subscribe(h EventHandler)
	PublishTrade(ctx context.Context, ev TradeEvent)
	PublishBalance(ctx context.Context, ev BalanceEvent)
	PublishPnl(ctx context.Context, ev PnlEvent)
}
