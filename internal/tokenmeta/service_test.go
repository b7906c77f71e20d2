package tokenmeta

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/soltrack/internal/domain"
	"github.com/alanyoungcy/soltrack/internal/memstore"
)

type scriptedSource struct {
	metas map[string]domain.TokenMeta
	calls int
}

func (s *scriptedSource) Lookup(_ context.Context, mint string) (domain.TokenMeta, error) {
	s.calls++
	if m, ok := s.metas[mint]; ok {
		return m, nil
	}
	return domain.TokenMeta{}, domain.ErrNotFound
}

func newService(source domain.TokenMetaSource) (*Service, *memstore.TokenStore) {
	store := memstore.NewTokenStore()
	return New(store, source, nil, slog.Default()), store
}

func TestNativeMintIsHardcoded(t *testing.T) {
	svc, _ := newService(nil)

	meta, err := svc.Get(context.Background(), domain.NativeMint)
	require.NoError(t, err)
	assert.Equal(t, "SOL", meta.Symbol)
	require.NotNil(t, meta.Decimals)
	assert.Equal(t, 9, *meta.Decimals)
}

func TestFallbackSymbolForUnknownMint(t *testing.T) {
	svc, store := newService(nil)

	mint := "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
	meta, err := svc.Get(context.Background(), mint)
	require.NoError(t, err)
	assert.Equal(t, "7xK...AsU", meta.Symbol)
	assert.Equal(t, meta.Symbol, meta.Name)

	// The fallback row must be persisted.
	saved, err := store.Get(context.Background(), mint)
	require.NoError(t, err)
	assert.Equal(t, "7xK...AsU", saved.Symbol)
}

func TestChainLookupPersists(t *testing.T) {
	mint := "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	source := &scriptedSource{metas: map[string]domain.TokenMeta{
		mint: {Address: mint, Symbol: "USDC", Name: "USD Coin"},
	}}
	svc, store := newService(source)

	meta, err := svc.Get(context.Background(), mint)
	require.NoError(t, err)
	assert.Equal(t, "USDC", meta.Symbol)

	saved, err := store.Get(context.Background(), mint)
	require.NoError(t, err)
	assert.Equal(t, "USDC", saved.Symbol)
}

func TestSecondLookupHitsCache(t *testing.T) {
	mint := "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	source := &scriptedSource{metas: map[string]domain.TokenMeta{
		mint: {Address: mint, Symbol: "USDC", Name: "USD Coin"},
	}}
	svc, _ := newService(source)

	_, err := svc.Get(context.Background(), mint)
	require.NoError(t, err)
	_, err = svc.Get(context.Background(), mint)
	require.NoError(t, err)

	assert.Equal(t, 1, source.calls)
}

func TestWarmLoadsPersistedRows(t *testing.T) {
	store := memstore.NewTokenStore()
	mint := "4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R"
	_, err := store.Upsert(context.Background(), domain.TokenMeta{
		Address: mint, Symbol: "RAY", Name: "Raydium",
	})
	require.NoError(t, err)

	source := &scriptedSource{}
	svc := New(store, source, nil, slog.Default())
	require.NoError(t, svc.Warm(context.Background()))

	meta, err := svc.Get(context.Background(), mint)
	require.NoError(t, err)
	assert.Equal(t, "RAY", meta.Symbol)
	assert.Equal(t, 0, source.calls)
}

func TestSetPriceRefreshesCache(t *testing.T) {
	mint := "4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R"
	svc, store := newService(nil)
	_, err := store.Upsert(context.Background(), domain.TokenMeta{
		Address: mint, Symbol: "RAY", Name: "Raydium",
	})
	require.NoError(t, err)

	// Pull into cache, then update the price.
	_, err = svc.Get(context.Background(), mint)
	require.NoError(t, err)
	require.NoError(t, svc.SetPrice(context.Background(), mint, 1.25))

	meta, err := svc.Get(context.Background(), mint)
	require.NoError(t, err)
	require.NotNil(t, meta.LastPrice)
	assert.InDelta(t, 1.25, *meta.LastPrice, 1e-9)
}

func TestFallbackSymbolShortMint(t *testing.T) {
	assert.Equal(t, "abcdef", domain.FallbackSymbol("abcdef"))
	assert.Equal(t, "abc...hij", domain.FallbackSymbol("abcdefghij"))
}
