package domain

import (
	"context"
	"time"
)

// SignatureInfo is one entry from the chain's signature list for an address.
type SignatureInfo struct {
	Signature string
	BlockTime *time.Time
	Err       bool
}

// TxTokenBalance is a pre- or post-transaction SPL token balance, indexed by
// the token account's position in the transaction's account keys.
type TxTokenBalance struct {
	AccountIndex int
	Mint         string
	Owner        string
	UIAmount     float64
}

// ParsedTx is the subset of a confirmed transaction the classifier needs:
// lamport balances and token balances around execution, plus the ordered
// account keys so a wallet can be located by index.
type ParsedTx struct {
	Signature         string
	BlockTime         *time.Time
	Failed            bool
	FeeLamports       uint64
	AccountKeys       []string
	PreBalances       []uint64
	PostBalances      []uint64
	PreTokenBalances  []TxTokenBalance
	PostTokenBalances []TxTokenBalance
}

// AccountIndexOf returns the position of addr in the transaction's account
// keys, or -1 when the address did not participate.
func (tx *ParsedTx) AccountIndexOf(addr string) int {
	for i, key := range tx.AccountKeys {
		if key == addr {
			return i
		}
	}
	return -1
}

// ChainClient is the read-only RPC surface of the blockchain node. Failed
// node requests are wrapped as ErrRPC, which callers treat as transient;
// malformed addresses or signatures are rejected with a plain error, and
// GetParsedTransaction also reports ErrNotFound or ErrParse.
type ChainClient interface {
	// GetBalance returns the lamport balance of an address.
	GetBalance(ctx context.Context, address string) (uint64, error)
	// GetParsedTokenAccounts returns the SPL token positions owned by an
	// address.
	GetParsedTokenAccounts(ctx context.Context, owner string) ([]TokenHolding, error)
	// GetSignaturesForAddress returns up to limit signatures for an address,
	// newest first.
	GetSignaturesForAddress(ctx context.Context, address string, limit int) ([]SignatureInfo, error)
	// GetParsedTransaction fetches and flattens one confirmed transaction.
	// It returns ErrNotFound when the node does not know the signature.
	GetParsedTransaction(ctx context.Context, signature string) (*ParsedTx, error)
}

// TokenMetaSource resolves on-chain metadata for a mint. Implementations
// return ErrNotFound when the chain has no useful registry entry.
type TokenMetaSource interface {
	Lookup(ctx context.Context, mint string) (TokenMeta, error)
}
