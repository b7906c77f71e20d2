package solana

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/tokenregistry"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/alanyoungcy/soltrack/internal/domain"
)

// RegistrySource resolves token metadata from the on-chain token registry,
// falling back to the mint's supply account for decimals.
type RegistrySource struct {
	rpc *rpc.Client
}

// NewRegistrySource creates a RegistrySource sharing the Client's RPC
// connection.
func NewRegistrySource(c *Client) *RegistrySource {
	return &RegistrySource{rpc: c.rpc}
}

// Lookup returns registry metadata for a mint, or ErrNotFound when the chain
// has no useful entry.
func (s *RegistrySource) Lookup(ctx context.Context, mint string) (domain.TokenMeta, error) {
	pubKey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return domain.TokenMeta{}, fmt.Errorf("solana: invalid mint %q: %w", mint, err)
	}

	entry, err := tokenregistry.GetTokenRegistryEntry(ctx, s.rpc, pubKey)
	if err != nil {
		return domain.TokenMeta{}, fmt.Errorf("solana: registry entry %s: %w", mint, domain.ErrNotFound)
	}

	meta := domain.TokenMeta{
		Address:     mint,
		Symbol:      entry.Symbol.String(),
		Name:        entry.Name.String(),
		LastUpdated: time.Now(),
	}
	if meta.Symbol == "" {
		return domain.TokenMeta{}, fmt.Errorf("solana: registry entry %s has no symbol: %w", mint, domain.ErrNotFound)
	}

	supply, err := s.rpc.GetTokenSupply(ctx, pubKey, rpc.CommitmentConfirmed)
	if err == nil && supply != nil && supply.Value != nil {
		decimals := int(supply.Value.Decimals)
		meta.Decimals = &decimals
	}

	return meta, nil
}
