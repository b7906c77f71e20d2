package memstore

import (
	"context"
	"sync"

	"github.com/alanyoungcy/soltrack/internal/domain"
)

// ChainClient is a scripted in-memory domain.ChainClient.
type ChainClient struct {
	mu sync.RWMutex

	Balances   map[string]uint64
	Holdings   map[string][]domain.TokenHolding
	Signatures map[string][]domain.SignatureInfo
	Txs        map[string]*domain.ParsedTx

	// Err, when set, is returned by every call to simulate an RPC outage.
	Err error
}

// NewChainClient creates an empty scripted chain.
func NewChainClient() *ChainClient {
	return &ChainClient{
		Balances:   make(map[string]uint64),
		Holdings:   make(map[string][]domain.TokenHolding),
		Signatures: make(map[string][]domain.SignatureInfo),
		Txs:        make(map[string]*domain.ParsedTx),
	}
}

// SetSignatures replaces the signature list for an address (newest first).
func (c *ChainClient) SetSignatures(address string, sigs ...domain.SignatureInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Signatures[address] = sigs
}

// AddTx registers a parsed transaction under its signature.
func (c *ChainClient) AddTx(tx *domain.ParsedTx) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Txs[tx.Signature] = tx
}

func (c *ChainClient) GetBalance(_ context.Context, address string) (uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Err != nil {
		return 0, c.Err
	}
	return c.Balances[address], nil
}

func (c *ChainClient) GetParsedTokenAccounts(_ context.Context, owner string) ([]domain.TokenHolding, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Holdings[owner], nil
}

func (c *ChainClient) GetSignaturesForAddress(_ context.Context, address string, limit int) ([]domain.SignatureInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Err != nil {
		return nil, c.Err
	}
	sigs := c.Signatures[address]
	if len(sigs) > limit {
		sigs = sigs[:limit]
	}
	return sigs, nil
}

func (c *ChainClient) GetParsedTransaction(_ context.Context, signature string) (*domain.ParsedTx, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Err != nil {
		return nil, c.Err
	}
	tx, ok := c.Txs[signature]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return tx, nil
}
