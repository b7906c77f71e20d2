package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/alanyoungcy/soltrack/internal/domain"
)

// TradeAlerter subscribes to monitor events and notifies operators about
// swaps whose SOL leg meets the configured threshold. Transfers and balance
// movement never alert.
type TradeAlerter struct {
	notifier    *Notifier
	minTradeSol float64
}

// NewTradeAlerter creates a TradeAlerter. A non-positive threshold disables
// alerting entirely.
func NewTradeAlerter(notifier *Notifier, minTradeSol float64) *TradeAlerter {
	return &TradeAlerter{notifier: notifier, minTradeSol: minTradeSol}
}

// OnTrade implements domain.EventHandler.
func (a *TradeAlerter) OnTrade(ctx context.Context, ev domain.TradeEvent) {
	if a.minTradeSol <= 0 {
		return
	}
	t := ev.Trade
	if !t.Type.IsSwap() || t.AmountB < a.minTradeSol {
		return
	}

	title := fmt.Sprintf("%s %.4f SOL", strings.ToUpper(string(t.Type)), t.AmountB)
	message := fmt.Sprintf("wallet %s %s %.4f of %s for %.4f SOL\nsignature: %s",
		t.WalletAddress, t.Type, t.AmountA, t.TokenA, t.AmountB, t.Signature)

	_ = a.notifier.Notify(ctx, title, message)
}

// OnBalance implements domain.EventHandler.
func (a *TradeAlerter) OnBalance(context.Context, domain.BalanceEvent) {}

// OnPnl implements domain.EventHandler.
func (a *TradeAlerter) OnPnl(context.Context, domain.PnlEvent) {}
