package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/soltrack/internal/domain"
	"github.com/alanyoungcy/soltrack/internal/memstore"
)

const wallet = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"

func newTestMux(t *testing.T) (*http.ServeMux, *memstore.TradeStore, *memstore.ChainClient) {
	t.Helper()

	users := memstore.NewUserStore(domain.User{
		ID: 1, Username: "trader-one", WalletAddress: wallet, IsLive: true,
	})
	trades := memstore.NewTradeStore()
	pnls := memstore.NewPnlStore()
	chain := memstore.NewChainClient()

	h := NewUserHandler(users, trades, pnls, chain, slog.Default())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/users", h.ListUsers)
	mux.HandleFunc("GET /api/users/{wallet}/trades", h.ListTrades)
	mux.HandleFunc("GET /api/users/{wallet}/pnl", h.ListPnl)
	mux.HandleFunc("GET /api/users/{wallet}/balance", h.GetBalance)
	mux.HandleFunc("GET /api/trades/{id}", h.GetTrade)
	return mux, trades, chain
}

func doGet(t *testing.T, mux *http.ServeMux, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestListUsers(t *testing.T) {
	mux, _, _ := newTestMux(t)

	rec := doGet(t, mux, "/api/users")
	require.Equal(t, http.StatusOK, rec.Code)

	var users []domain.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users, 1)
	assert.Equal(t, "trader-one", users[0].Username)
}

func TestListTrades(t *testing.T) {
	mux, trades, _ := newTestMux(t)

	_, err := trades.Upsert(t.Context(), domain.Trade{
		Signature:     "sig-1",
		WalletAddress: wallet,
		Type:          domain.TradeTypeBuy,
		TokenA:        "MintA",
		TokenB:        domain.NativeMint,
		Timestamp:     time.Now(),
	})
	require.NoError(t, err)

	rec := doGet(t, mux, "/api/users/"+wallet+"/trades")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []domain.Trade
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "sig-1", got[0].Signature)
}

func TestListPnlUnknownWallet(t *testing.T) {
	mux, _, _ := newTestMux(t)

	rec := doGet(t, mux, "/api/users/UnknownWallet111/pnl")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetBalance(t *testing.T) {
	mux, _, chain := newTestMux(t)
	chain.Balances[wallet] = 2_500_000_000

	rec := doGet(t, mux, "/api/users/"+wallet+"/balance")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Lamports uint64  `json:"lamports"`
		Sol      float64 `json:"sol"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, uint64(2_500_000_000), body.Lamports)
	assert.InDelta(t, 2.5, body.Sol, 1e-9)
}

func TestGetTrade(t *testing.T) {
	mux, trades, _ := newTestMux(t)

	saved, err := trades.Upsert(t.Context(), domain.Trade{
		Signature:     "sig-1",
		WalletAddress: wallet,
		Type:          domain.TradeTypeSell,
		TokenA:        "MintA",
		TokenB:        domain.NativeMint,
		Timestamp:     time.Now(),
	})
	require.NoError(t, err)

	rec := doGet(t, mux, "/api/trades/1")
	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.Trade
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, saved.Signature, got.Signature)

	rec = doGet(t, mux, "/api/trades/999")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
