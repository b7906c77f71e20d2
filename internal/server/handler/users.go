package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alanyoungcy/soltrack/internal/domain"
)

// UserHandler serves read-only user, trade, and PnL endpoints backed by the
// same stores the push hub reads.
type UserHandler struct {
	users  domain.UserStore
	trades domain.TradeStore
	pnls   domain.PnlStore
	chain  domain.ChainClient
	logger *slog.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(users domain.UserStore, trades domain.TradeStore, pnls domain.PnlStore, chain domain.ChainClient, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		trades: trades,
		pnls:   pnls,
		chain:  chain,
		logger: logger.With(slog.String("handler", "users")),
	}
}

// ListUsers returns every tracked user ordered by last activity.
// GET /api/users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListAll(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list users failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// ListTrades returns a wallet's trades, newest first.
// GET /api/users/{wallet}/trades
func (h *UserHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	wallet := r.PathValue("wallet")
	limit := queryInt(r, "limit", 50, 500)
	offset := queryInt(r, "offset", 0, 0)

	trades, err := h.trades.ListByWallet(r.Context(), wallet, limit, offset)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list trades failed",
			slog.String("wallet", wallet),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list trades")
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

// ListPnl returns a wallet's daily PnL history, most recent day first.
// GET /api/users/{wallet}/pnl
func (h *UserHandler) ListPnl(w http.ResponseWriter, r *http.Request) {
	wallet := r.PathValue("wallet")
	limit := queryInt(r, "limit", 30, 365)

	if _, err := h.users.GetByWallet(r.Context(), wallet); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown wallet")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load wallet")
		return
	}

	records, err := h.pnls.ListByWallet(r.Context(), wallet, limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list pnl failed",
			slog.String("wallet", wallet),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list pnl")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// GetBalance returns the wallet's live on-chain balance in SOL.
// GET /api/users/{wallet}/balance
func (h *UserHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	wallet := r.PathValue("wallet")

	lamports, err := h.chain.GetBalance(r.Context(), wallet)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "balance fetch failed",
			slog.String("wallet", wallet),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to fetch balance")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"walletAddress": wallet,
		"lamports":      lamports,
		"sol":           float64(lamports) / 1e9,
	})
}

// GetTrade returns one trade by its row id.
// GET /api/trades/{id}
func (h *UserHandler) GetTrade(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid trade id")
		return
	}

	trade, err := h.trades.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown trade")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load trade")
		return
	}
	writeJSON(w, http.StatusOK, trade)
}
