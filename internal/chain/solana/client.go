// Package solana implements the domain ChainClient against a Solana JSON-RPC
// node using solana-go.
package solana

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/alanyoungcy/soltrack/internal/domain"
)

// Client is a rate-capped wrapper around the solana-go RPC client. A
// semaphore bounds outstanding requests so a growing wallet set cannot pile
// up unbounded in-flight RPC calls.
type Client struct {
	rpc *rpc.Client
	sem chan struct{}
}

// ClientConfig holds RPC connection parameters.
type ClientConfig struct {
	RPCURL string
	// MaxInflight caps concurrent RPC requests. Zero means 8.
	MaxInflight int
}

// NewClient creates a Client for the given RPC endpoint.
func NewClient(cfg ClientConfig) *Client {
	inflight := cfg.MaxInflight
	if inflight <= 0 {
		inflight = 8
	}
	return &Client{
		rpc: rpc.New(cfg.RPCURL),
		sem: make(chan struct{}, inflight),
	}
}

// acquire blocks until a request slot is free or the context is cancelled.
func (c *Client) acquire(ctx context.Context) (func(), error) {
	select {
	case c.sem <- struct{}{}:
		return func() { <-c.sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetBalance returns the lamport balance of an address.
func (c *Client) GetBalance(ctx context.Context, address string) (uint64, error) {
	pubKey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return 0, fmt.Errorf("solana: invalid address %q: %w", address, err)
	}

	release, err := c.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	result, err := c.rpc.GetBalance(ctx, pubKey, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("solana: get balance %s: %w: %w", address, domain.ErrRPC, err)
	}
	return result.Value, nil
}

// parsedTokenAccount mirrors the jsonParsed layout of an SPL token account.
type parsedTokenAccount struct {
	Parsed struct {
		Info struct {
			Mint        string `json:"mint"`
			Owner       string `json:"owner"`
			TokenAmount struct {
				UIAmount *float64 `json:"uiAmount"`
			} `json:"tokenAmount"`
		} `json:"info"`
	} `json:"parsed"`
}

// GetParsedTokenAccounts returns the SPL token positions owned by an address.
func (c *Client) GetParsedTokenAccounts(ctx context.Context, owner string) ([]domain.TokenHolding, error) {
	pubKey, err := solana.PublicKeyFromBase58(owner)
	if err != nil {
		return nil, fmt.Errorf("solana: invalid owner %q: %w", owner, err)
	}

	release, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	programID := solana.TokenProgramID
	result, err := c.rpc.GetTokenAccountsByOwner(ctx, pubKey,
		&rpc.GetTokenAccountsConfig{ProgramId: &programID},
		&rpc.GetTokenAccountsOpts{
			Commitment: rpc.CommitmentConfirmed,
			Encoding:   solana.EncodingJSONParsed,
		})
	if err != nil {
		return nil, fmt.Errorf("solana: get token accounts %s: %w: %w", owner, domain.ErrRPC, err)
	}

	holdings := make([]domain.TokenHolding, 0, len(result.Value))
	for _, acc := range result.Value {
		if acc.Account.Data == nil {
			continue
		}

		var parsed parsedTokenAccount
		if err := json.Unmarshal(acc.Account.Data.GetRawJSON(), &parsed); err != nil {
			continue
		}
		if parsed.Parsed.Info.TokenAmount.UIAmount == nil {
			continue
		}

		holdings = append(holdings, domain.TokenHolding{
			Mint:     parsed.Parsed.Info.Mint,
			UIAmount: *parsed.Parsed.Info.TokenAmount.UIAmount,
		})
	}
	return holdings, nil
}

// GetSignaturesForAddress returns up to limit signatures for an address,
// newest first as ordered by the node.
func (c *Client) GetSignaturesForAddress(ctx context.Context, address string, limit int) ([]domain.SignatureInfo, error) {
	pubKey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, fmt.Errorf("solana: invalid address %q: %w", address, err)
	}

	release, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	result, err := c.rpc.GetSignaturesForAddressWithOpts(ctx, pubKey,
		&rpc.GetSignaturesForAddressOpts{
			Limit:      &limit,
			Commitment: rpc.CommitmentConfirmed,
		})
	if err != nil {
		return nil, fmt.Errorf("solana: get signatures %s: %w: %w", address, domain.ErrRPC, err)
	}

	infos := make([]domain.SignatureInfo, 0, len(result))
	for _, sig := range result {
		info := domain.SignatureInfo{
			Signature: sig.Signature.String(),
			Err:       sig.Err != nil,
		}
		if sig.BlockTime != nil {
			t := sig.BlockTime.Time()
			info.BlockTime = &t
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// GetParsedTransaction fetches one confirmed transaction and flattens it to
// the classifier's view: lamport balances, token balances, account keys.
func (c *Client) GetParsedTransaction(ctx context.Context, signature string) (*domain.ParsedTx, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, fmt.Errorf("solana: invalid signature %q: %w", signature, err)
	}

	release, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	maxVersion := uint64(0)
	result, err := c.rpc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("solana: get transaction %s: %w: %w", signature, domain.ErrRPC, err)
	}
	if result == nil || result.Meta == nil || result.Transaction == nil {
		return nil, fmt.Errorf("solana: transaction %s: %w", signature, domain.ErrNotFound)
	}

	tx, err := result.Transaction.GetTransaction()
	if err != nil {
		return nil, fmt.Errorf("solana: decode transaction %s: %w: %w", signature, domain.ErrParse, err)
	}

	parsed := &domain.ParsedTx{
		Signature:    signature,
		Failed:       result.Meta.Err != nil,
		FeeLamports:  result.Meta.Fee,
		PreBalances:  result.Meta.PreBalances,
		PostBalances: result.Meta.PostBalances,
	}
	if result.BlockTime != nil {
		t := result.BlockTime.Time()
		parsed.BlockTime = &t
	}

	parsed.AccountKeys = make([]string, 0, len(tx.Message.AccountKeys))
	for _, key := range tx.Message.AccountKeys {
		parsed.AccountKeys = append(parsed.AccountKeys, key.String())
	}

	parsed.PreTokenBalances = convertTokenBalances(result.Meta.PreTokenBalances)
	parsed.PostTokenBalances = convertTokenBalances(result.Meta.PostTokenBalances)

	return parsed, nil
}

func convertTokenBalances(balances []rpc.TokenBalance) []domain.TxTokenBalance {
	out := make([]domain.TxTokenBalance, 0, len(balances))
	for _, b := range balances {
		tb := domain.TxTokenBalance{
			AccountIndex: int(b.AccountIndex),
			Mint:         b.Mint.String(),
		}
		if b.Owner != nil {
			tb.Owner = b.Owner.String()
		}
		if b.UiTokenAmount != nil && b.UiTokenAmount.UiAmount != nil {
			tb.UIAmount = *b.UiTokenAmount.UiAmount
		}
		out = append(out, tb)
	}
	return out
}
