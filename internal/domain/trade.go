package domain

import "time"

// TradeType classifies a wallet transaction by its balance deltas.
type TradeType string

const (
	TradeTypeBuy        TradeType = "buy"
	TradeTypeSell       TradeType = "sell"
	TradeTypeDeposit    TradeType = "deposit"
	TradeTypeWithdrawal TradeType = "withdrawal"
)

// IsSwap reports whether the trade moved SOL against a token (buy or sell),
// as opposed to a plain transfer.
func (t TradeType) IsSwap() bool {
	return t == TradeTypeBuy || t == TradeTypeSell
}

// PlatformTransfer tags trades classified as deposits or withdrawals.
const PlatformTransfer = "transfer"

// Trade is one classified on-chain event for a tracked wallet. Signature is
// the idempotency key: re-ingesting the same transaction overwrites the
// existing row and keeps its id stable.
//
// For buys and sells TokenB is the native-wrapped mint and AmountB is the
// absolute SOL delta; for transfers TokenA == TokenB and AmountB == AmountA.
type Trade struct {
	ID            int64
	Signature     string
	WalletAddress string
	UserID        *int64
	TokenA        string
	TokenB        string
	Type          TradeType
	AmountA       float64
	AmountB       float64
	TradePnl      float64
	Platform      string
	TxFees        float64
	Timestamp     time.Time
	RawData       []byte
	CreatedAt     time.Time
}
