package push

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/alanyoungcy/soltrack/internal/domain"
)

// Kind identifies a frame on the push channel.
type Kind string

const (
	KindSubscribeWallet   Kind = "SUBSCRIBE_WALLET"
	KindUnsubscribeWallet Kind = "UNSUBSCRIBE_WALLET"
	KindTradeUpdate       Kind = "TRADE_UPDATE"
	KindBalanceUpdate     Kind = "BALANCE_UPDATE"
	KindPnlUpdate         Kind = "PNL_UPDATE"
	KindUsersList         Kind = "USERS_LIST"
	KindUsersUpdate       Kind = "USERS_UPDATE"
	KindError             Kind = "ERROR"
)

// Frame is the JSON envelope for every message in both directions.
type Frame struct {
	Type Kind            `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewFrame marshals payload into a Frame. Marshal failures collapse into an
// ERROR frame so the connection always gets something well-formed.
func NewFrame(kind Kind, payload any) Frame {
	data, err := json.Marshal(payload)
	if err != nil {
		msg, _ := json.Marshal(ErrorPayload{Message: "internal error"})
		return Frame{Type: KindError, Data: msg}
	}
	return Frame{Type: kind, Data: data}
}

// SubscribePayload is the client request body for (un)subscribe frames.
type SubscribePayload struct {
	WalletAddress string `json:"walletAddress"`
}

// AckPayload is the reply body for (un)subscribe frames.
type AckPayload struct {
	WalletAddress string `json:"walletAddress"`
	Success       bool   `json:"success"`
}

// ErrorPayload is the body of ERROR frames.
type ErrorPayload struct {
	Message string `json:"message"`
}

// TokenView is the token metadata attached to a trade leg.
type TokenView struct {
	Mint   string `json:"mint"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// TradeView is the wire form of a trade. Amounts are decimal strings holding
// the shortest form that round-trips the stored float64 (0.1 renders as
// "0.1", 500 as "500").
type TradeView struct {
	ID            int64     `json:"id"`
	Signature     string    `json:"signature"`
	WalletAddress string    `json:"walletAddress"`
	Type          string    `json:"type"`
	TokenA        TokenView `json:"tokenA"`
	TokenB        TokenView `json:"tokenB"`
	AmountA       string    `json:"amountA"`
	AmountB       string    `json:"amountB"`
	TradePnl      string    `json:"tradePnl"`
	Platform      string    `json:"platform"`
	Timestamp     time.Time `json:"timestamp"`
}

// PnlView is the wire form of a daily PnL row.
type PnlView struct {
	WalletAddress string    `json:"walletAddress"`
	Date          time.Time `json:"date"`
	StartBalance  string    `json:"startBalance"`
	EndBalance    string    `json:"endBalance"`
	RealizedPnl   string    `json:"realizedPnl"`
	TotalTrades   int       `json:"totalTrades"`
}

// UserView is the wire form of a tracked user.
type UserView struct {
	ID             int64      `json:"id"`
	Username       string     `json:"username"`
	WalletAddress  string     `json:"walletAddress"`
	StreamPlatform string     `json:"streamPlatform,omitempty"`
	StreamURL      string     `json:"streamUrl,omitempty"`
	IsLive         bool       `json:"isLive"`
	LastActive     *time.Time `json:"lastActive,omitempty"`
}

// Snapshot is the denormalized per-wallet view sent in USERS_LIST and
// USERS_UPDATE frames.
type Snapshot struct {
	User      UserView   `json:"user"`
	LastTrade *TradeView `json:"lastTrade,omitempty"`
	DailyPnl  *PnlView   `json:"dailyPnl,omitempty"`
	Balance   float64    `json:"balance"`
}

// TradeUpdatePayload is the body of TRADE_UPDATE frames.
type TradeUpdatePayload struct {
	WalletAddress string    `json:"walletAddress"`
	Trade         TradeView `json:"trade"`
}

// BalanceUpdatePayload is the body of BALANCE_UPDATE frames.
type BalanceUpdatePayload struct {
	WalletAddress string                `json:"walletAddress"`
	SolBalance    float64               `json:"solBalance"`
	Tokens        []domain.TokenHolding `json:"tokens"`
	Timestamp     time.Time             `json:"timestamp"`
}

// PnlUpdatePayload is the body of PNL_UPDATE frames.
type PnlUpdatePayload struct {
	WalletAddress string  `json:"walletAddress"`
	DailyPnl      PnlView `json:"dailyPnl"`
}

// formatAmount renders a SOL or token amount as a decimal string.
func formatAmount(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func userView(u domain.User) UserView {
	return UserView{
		ID:             u.ID,
		Username:       u.Username,
		WalletAddress:  u.WalletAddress,
		StreamPlatform: u.StreamPlatform,
		StreamURL:      u.StreamURL,
		IsLive:         u.IsLive,
		LastActive:     u.LastActive,
	}
}

func pnlView(p domain.DailyPnl) PnlView {
	return PnlView{
		WalletAddress: p.WalletAddress,
		Date:          p.Date,
		StartBalance:  formatAmount(p.StartBalance),
		EndBalance:    formatAmount(p.EndBalance),
		RealizedPnl:   formatAmount(p.RealizedPnl),
		TotalTrades:   p.TotalTrades,
	}
}
