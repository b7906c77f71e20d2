package push

import (
	"context"
	"errors"
	"fmt"

	"github.com/alanyoungcy/soltrack/internal/clock"
	"github.com/alanyoungcy/soltrack/internal/domain"
)

// TokenResolver resolves display metadata for a mint.
type TokenResolver interface {
	Get(ctx context.Context, mint string) (domain.TokenMeta, error)
}

// Assembler builds denormalized per-wallet snapshots from the stores.
type Assembler struct {
	users  domain.UserStore
	trades domain.TradeStore
	pnls   domain.PnlStore
	tokens TokenResolver
	clk    clock.Clock
}

// NewAssembler creates an Assembler.
func NewAssembler(
	users domain.UserStore,
	trades domain.TradeStore,
	pnls domain.PnlStore,
	tokens TokenResolver,
	clk clock.Clock,
) *Assembler {
	return &Assembler{
		users:  users,
		trades: trades,
		pnls:   pnls,
		tokens: tokens,
		clk:    clk,
	}
}

// tokenView resolves a leg's display metadata, degrading to the synthesized
// fallback symbol when the resolver fails.
func (a *Assembler) tokenView(ctx context.Context, mint string) TokenView {
	meta, err := a.tokens.Get(ctx, mint)
	if err != nil {
		symbol := domain.FallbackSymbol(mint)
		return TokenView{Mint: mint, Symbol: symbol, Name: symbol}
	}
	return TokenView{Mint: mint, Symbol: meta.Symbol, Name: meta.Name}
}

// tradeView converts a trade to its wire form with both legs resolved.
func (a *Assembler) tradeView(ctx context.Context, t domain.Trade) TradeView {
	return TradeView{
		ID:            t.ID,
		Signature:     t.Signature,
		WalletAddress: t.WalletAddress,
		Type:          string(t.Type),
		TokenA:        a.tokenView(ctx, t.TokenA),
		TokenB:        a.tokenView(ctx, t.TokenB),
		AmountA:       formatAmount(t.AmountA),
		AmountB:       formatAmount(t.AmountB),
		TradePnl:      formatAmount(t.TradePnl),
		Platform:      t.Platform,
		Timestamp:     t.Timestamp,
	}
}

// BuildForUser assembles the snapshot for an already loaded user record.
func (a *Assembler) BuildForUser(ctx context.Context, user domain.User) (Snapshot, error) {
	snap := Snapshot{User: userView(user)}
	wallet := user.WalletAddress

	latest, err := a.trades.Latest(ctx, wallet)
	switch {
	case err == nil:
		view := a.tradeView(ctx, latest)
		snap.LastTrade = &view
	case !errors.Is(err, domain.ErrNotFound):
		return Snapshot{}, fmt.Errorf("push: latest trade for %s: %w", wallet, err)
	}

	today := clock.DayStart(a.clk.Now())
	pnlRow, err := a.pnls.Get(ctx, wallet, today)
	switch {
	case err == nil:
		view := pnlView(pnlRow)
		snap.DailyPnl = &view
		snap.Balance = pnlRow.EndBalance
	case !errors.Is(err, domain.ErrNotFound):
		return Snapshot{}, fmt.Errorf("push: daily pnl for %s: %w", wallet, err)
	}

	return snap, nil
}

// Build assembles the snapshot for a wallet address.
func (a *Assembler) Build(ctx context.Context, wallet string) (Snapshot, error) {
	user, err := a.users.GetByWallet(ctx, wallet)
	if err != nil {
		return Snapshot{}, fmt.Errorf("push: user for %s: %w", wallet, err)
	}
	return a.BuildForUser(ctx, user)
}

// BuildAll assembles one snapshot per known user, ordered by last activity
// descending.
func (a *Assembler) BuildAll(ctx context.Context) ([]Snapshot, error) {
	users, err := a.users.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("push: list users: %w", err)
	}

	snaps := make([]Snapshot, 0, len(users))
	for _, u := range users {
		snap, err := a.BuildForUser(ctx, u)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}
