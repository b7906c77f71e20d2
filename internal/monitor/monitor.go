// Package monitor drives the ingestion pipeline: it polls tracked wallets
// for new transaction signatures, classifies each into a trade or transfer,
// persists the result, updates daily PnL, and publishes typed events.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/soltrack/internal/clock"
	"github.com/alanyoungcy/soltrack/internal/domain"
	"github.com/alanyoungcy/soltrack/internal/pnl"
)

// Config holds monitor tuning parameters.
type Config struct {
	// PollInterval is the cycle period.
	PollInterval time.Duration
	// SignatureLimit is how many recent signatures are requested per wallet
	// per cycle.
	SignatureLimit int
	// SeedSignatureLimit is how many persisted signatures are preloaded
	// into the dedupe set when a wallet becomes live.
	SeedSignatureLimit int
}

// walletState tracks one live wallet across cycles.
type walletState struct {
	userID            *int64
	lastSeenSignature string
}

// Monitor polls the chain for tracked wallet activity. One cycle runs at a
// time; wallets within a cycle are processed concurrently but failures are
// isolated per wallet.
type Monitor struct {
	chain  domain.ChainClient
	users  domain.UserStore
	trades domain.TradeStore
	pnl    *pnl.Aggregator
	bus    domain.EventBus
	clk    clock.Clock
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	active map[string]*walletState
	seen   map[string]struct{}
}

// New creates a Monitor.
func New(
	chain domain.ChainClient,
	users domain.UserStore,
	trades domain.TradeStore,
	aggregator *pnl.Aggregator,
	bus domain.EventBus,
	clk clock.Clock,
	cfg Config,
	logger *slog.Logger,
) *Monitor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.SignatureLimit <= 0 {
		cfg.SignatureLimit = 15
	}
	if cfg.SeedSignatureLimit <= 0 {
		cfg.SeedSignatureLimit = 20
	}
	return &Monitor{
		chain:  chain,
		users:  users,
		trades: trades,
		pnl:    aggregator,
		bus:    bus,
		clk:    clk,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "monitor")),
		active: make(map[string]*walletState),
		seen:   make(map[string]struct{}),
	}
}

// Initialize performs the first active-wallet reconciliation so the dedupe
// set is warm before the polling loop starts.
func (m *Monitor) Initialize(ctx context.Context) error {
	return m.reconcileWallets(ctx)
}

// Run executes cycles on the configured period until the context is
// cancelled. A cycle that overruns the period does not queue a second one;
// the next cycle starts after the current returns.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("monitor starting",
		slog.Duration("poll_interval", m.cfg.PollInterval),
	)

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		m.RunCycle(ctx)

		select {
		case <-ctx.Done():
			m.logger.Info("monitor stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunCycle executes a single poll cycle. It never returns an error: every
// failure is logged, and one wallet's failure does not stop the others.
func (m *Monitor) RunCycle(ctx context.Context) {
	if err := m.reconcileWallets(ctx); err != nil {
		m.logger.Error("wallet reconciliation failed", slog.String("error", err.Error()))
		return
	}

	m.mu.Lock()
	wallets := make([]string, 0, len(m.active))
	for w := range m.active {
		wallets = append(wallets, w)
	}
	m.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, wallet := range wallets {
		g.Go(func() error {
			if err := m.pollWallet(gctx, wallet); err != nil {
				m.logger.Error("wallet poll failed",
					slog.String("wallet", wallet),
					slog.String("error", err.Error()),
				)
			}
			// One wallet's failure must not stop the others.
			return nil
		})
	}
	_ = g.Wait()
}

// reconcileWallets syncs the active wallet map with the live user set. A
// newly live wallet gets its recent persisted signatures preloaded into the
// dedupe set; wallets that stopped being live are dropped from the map but
// their seen signatures are kept.
func (m *Monitor) reconcileWallets(ctx context.Context) error {
	live, err := m.users.ListLive(ctx)
	if err != nil {
		return fmt.Errorf("monitor: list live users: %w", err)
	}

	liveSet := make(map[string]domain.User, len(live))
	for _, u := range live {
		liveSet[u.WalletAddress] = u
	}

	m.mu.Lock()
	var added []domain.User
	for wallet, u := range liveSet {
		if _, ok := m.active[wallet]; !ok {
			added = append(added, u)
		}
	}
	for wallet := range m.active {
		if _, ok := liveSet[wallet]; !ok {
			delete(m.active, wallet)
			m.logger.Info("wallet deactivated", slog.String("wallet", wallet))
		}
	}
	m.mu.Unlock()

	for _, u := range added {
		userID := u.ID
		state := &walletState{userID: &userID}

		refs, err := m.trades.LatestSignatures(ctx, u.WalletAddress, m.cfg.SeedSignatureLimit)
		if err != nil {
			m.logger.Error("signature preload failed",
				slog.String("wallet", u.WalletAddress),
				slog.String("error", err.Error()),
			)
		} else if len(refs) > 0 {
			state.lastSeenSignature = refs[0].Signature
			m.mu.Lock()
			for _, ref := range refs {
				m.seen[ref.Signature] = struct{}{}
			}
			m.mu.Unlock()
		}

		m.mu.Lock()
		m.active[u.WalletAddress] = state
		m.mu.Unlock()

		m.logger.Info("wallet activated",
			slog.String("wallet", u.WalletAddress),
			slog.Int("preloaded", len(refs)),
		)
	}

	return nil
}

// pollWallet fetches the wallet's newest signatures and processes unseen
// ones in ascending block-time order.
func (m *Monitor) pollWallet(ctx context.Context, wallet string) error {
	m.mu.Lock()
	state, ok := m.active[wallet]
	m.mu.Unlock()
	if !ok {
		return nil
	}

	sigs, err := m.chain.GetSignaturesForAddress(ctx, wallet, m.cfg.SignatureLimit)
	if err != nil {
		return fmt.Errorf("monitor: get signatures: %w", err)
	}
	if len(sigs) == 0 {
		return nil
	}

	newest := sigs[0].Signature
	m.mu.Lock()
	if newest == state.lastSeenSignature {
		m.mu.Unlock()
		return nil
	}
	state.lastSeenSignature = newest
	m.mu.Unlock()

	// Oldest first so PnL accumulates in chain order. Signatures without a
	// block time sort first and are cache-skipped during processing.
	sort.SliceStable(sigs, func(i, j int) bool {
		a, b := sigs[i].BlockTime, sigs[j].BlockTime
		switch {
		case a == nil:
			return true
		case b == nil:
			return false
		default:
			return a.Before(*b)
		}
	})

	for _, sig := range sigs {
		if err := m.processSignature(ctx, wallet, state, sig); err != nil {
			m.logger.Error("signature processing failed",
				slog.String("wallet", wallet),
				slog.String("signature", sig.Signature),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// markSeen records a signature in the dedupe set.
func (m *Monitor) markSeen(signature string) {
	m.mu.Lock()
	m.seen[signature] = struct{}{}
	m.mu.Unlock()
}

func (m *Monitor) isSeen(signature string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.seen[signature]
	return ok
}

// processSignature runs one signature through the dedupe, window, and
// classification pipeline. RPC and persistence failures leave the signature
// unmarked so it is retried the next time the wallet's signature list is
// processed (a cycle with a new newest signature); everything else marks it
// so a poison signature cannot block the wallet.
func (m *Monitor) processSignature(ctx context.Context, wallet string, state *walletState, sig domain.SignatureInfo) error {
	if m.isSeen(sig.Signature) {
		return nil
	}

	if _, err := m.trades.GetBySignature(ctx, sig.Signature); err == nil {
		m.markSeen(sig.Signature)
		return nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("monitor: signature lookup: %w", err)
	}

	if sig.BlockTime == nil {
		m.markSeen(sig.Signature)
		return nil
	}

	// Only today counts toward today's PnL; older or newer block times are
	// cached away.
	if !clock.SameDay(*sig.BlockTime, m.clk.Now()) {
		m.markSeen(sig.Signature)
		return nil
	}

	tx, err := m.chain.GetParsedTransaction(ctx, sig.Signature)
	if err != nil {
		if errors.Is(err, domain.ErrRPC) {
			return fmt.Errorf("monitor: fetch transaction: %w", err)
		}
		m.markSeen(sig.Signature)
		return fmt.Errorf("monitor: fetch transaction: %w", err)
	}

	// Failed transactions are never persisted, but they still advance the
	// dedupe state.
	if tx.Failed {
		m.markSeen(sig.Signature)
		return nil
	}

	idx := tx.AccountIndexOf(wallet)
	if idx < 0 || idx >= len(tx.PostBalances) {
		m.markSeen(sig.Signature)
		return nil
	}

	sol := solChange(tx, idx)
	deltas := tokenDeltas(tx, wallet)
	if len(deltas) == 0 {
		// Fee-only or nothing the wallet owns moved.
		m.markSeen(sig.Signature)
		return nil
	}

	postSol := float64(tx.PostBalances[idx]) / 1e9

	rawData, err := json.Marshal(tx)
	if err != nil {
		rawData = nil
	}

	processed := false
	for _, d := range deltas {
		trade, ok := classify(d, sol)
		if !ok {
			continue
		}

		trade.Signature = sig.Signature
		trade.WalletAddress = wallet
		trade.UserID = state.userID
		trade.TxFees = float64(tx.FeeLamports) / 1e9
		trade.Timestamp = *sig.BlockTime
		trade.RawData = rawData

		saved, err := m.trades.Upsert(ctx, trade)
		if err != nil {
			// Persistence failures leave the signature unmarked for retry.
			return fmt.Errorf("monitor: upsert trade: %w", err)
		}
		processed = true

		m.bus.PublishTrade(ctx, domain.TradeEvent{WalletAddress: wallet, Trade: saved})

		m.logger.Info("trade classified",
			slog.String("wallet", wallet),
			slog.String("signature", sig.Signature),
			slog.String("type", string(saved.Type)),
			slog.String("token", saved.TokenA),
			slog.Float64("amount", saved.AmountA),
			slog.Float64("pnl", saved.TradePnl),
		)

		if saved.Type.IsSwap() {
			tradeID := saved.ID
			if _, err := m.pnl.ApplyTrade(ctx, wallet, state.userID, postSol, saved.TradePnl, &tradeID); err != nil {
				m.logger.Error("pnl update failed",
					slog.String("wallet", wallet),
					slog.String("signature", sig.Signature),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	if processed {
		m.publishBalance(ctx, wallet, postSol, *sig.BlockTime)
	}

	m.markSeen(sig.Signature)
	return nil
}

// publishBalance emits the wallet's SOL balance and token holdings observed
// after a processed transaction. Holdings are best-effort: an RPC failure
// still publishes the SOL balance.
func (m *Monitor) publishBalance(ctx context.Context, wallet string, solBalance float64, at time.Time) {
	holdings, err := m.chain.GetParsedTokenAccounts(ctx, wallet)
	if err != nil {
		m.logger.Warn("token holdings fetch failed",
			slog.String("wallet", wallet),
			slog.String("error", err.Error()),
		)
		holdings = nil
	}

	m.bus.PublishBalance(ctx, domain.BalanceEvent{
		WalletAddress: wallet,
		SolBalance:    solBalance,
		Tokens:        holdings,
		Timestamp:     at,
	})
}
