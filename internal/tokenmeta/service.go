// Package tokenmeta resolves token mints to display metadata through a
// read-through cache chain: in-process map, optional Redis, database, chain
// registry. Every deeper hit is written back to the layers above it.
package tokenmeta

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/soltrack/internal/domain"
)

// MetaCache is the optional shared cache layer between the in-process map
// and the database.
type MetaCache interface {
	Get(ctx context.Context, mint string) (domain.TokenMeta, error)
	Set(ctx context.Context, meta domain.TokenMeta) error
}

// Service implements the token metadata lookup chain.
type Service struct {
	mu    sync.RWMutex
	cache map[string]domain.TokenMeta

	store  domain.TokenStore
	source domain.TokenMetaSource
	shared MetaCache // nil when Redis is not configured
	logger *slog.Logger
}

// New creates a Service. source and shared may be nil. Without a source,
// lookups stop at the database and synthesize fallback symbols for unknown
// mints; without shared, the Redis layer is skipped.
func New(store domain.TokenStore, source domain.TokenMetaSource, shared MetaCache, logger *slog.Logger) *Service {
	return &Service{
		cache:  make(map[string]domain.TokenMeta),
		store:  store,
		source: source,
		shared: shared,
		logger: logger.With(slog.String("component", "tokenmeta")),
	}
}

// Warm loads every persisted metadata row into the in-process cache. Called
// once at startup.
func (s *Service) Warm(ctx context.Context) error {
	tokens, err := s.store.ListAll(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	for _, t := range tokens {
		s.cache[t.Address] = t
	}
	s.mu.Unlock()

	s.logger.Info("token cache warmed", slog.Int("tokens", len(tokens)))
	return nil
}

// nativeMeta is the hard-coded row for wrapped SOL.
func nativeMeta() domain.TokenMeta {
	decimals := 9
	return domain.TokenMeta{
		Address:     domain.NativeMint,
		Symbol:      "SOL",
		Name:        "Solana",
		Decimals:    &decimals,
		Verified:    true,
		LastUpdated: time.Now(),
	}
}

// Get resolves metadata for a mint. Unknown mints never fail: a fallback row
// with the synthesized first3...last3 symbol is persisted and returned.
func (s *Service) Get(ctx context.Context, mint string) (domain.TokenMeta, error) {
	if mint == domain.NativeMint {
		meta := nativeMeta()
		s.remember(meta)
		return meta, nil
	}

	s.mu.RLock()
	cached, ok := s.cache[mint]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	if s.shared != nil {
		meta, err := s.shared.Get(ctx, mint)
		if err == nil {
			s.remember(meta)
			return meta, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("shared cache read failed",
				slog.String("mint", mint),
				slog.String("error", err.Error()),
			)
		}
	}

	meta, err := s.store.Get(ctx, mint)
	if err == nil {
		s.remember(meta)
		return meta, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.TokenMeta{}, err
	}

	if s.source != nil {
		meta, err = s.source.Lookup(ctx, mint)
		if err == nil {
			return s.persist(ctx, meta)
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("chain metadata lookup failed",
				slog.String("mint", mint),
				slog.String("error", err.Error()),
			)
		}
	}

	symbol := domain.FallbackSymbol(mint)
	return s.persist(ctx, domain.TokenMeta{
		Address:     mint,
		Symbol:      symbol,
		Name:        symbol,
		LastUpdated: time.Now(),
	})
}

// SetPrice updates the last observed USD price in the database and, when the
// row is cached, refreshes the cached copy.
func (s *Service) SetPrice(ctx context.Context, mint string, priceUsd float64) error {
	now := time.Now()
	if err := s.store.SetPrice(ctx, mint, priceUsd, now); err != nil {
		return err
	}

	s.mu.Lock()
	if cached, ok := s.cache[mint]; ok {
		price := priceUsd
		cached.LastPrice = &price
		cached.LastUpdated = now
		s.cache[mint] = cached
	}
	s.mu.Unlock()
	return nil
}

// persist writes a freshly resolved row to the database and every cache
// layer. Database failures are logged, not fatal: the caller still gets
// usable metadata and the next lookup retries the write.
func (s *Service) persist(ctx context.Context, meta domain.TokenMeta) (domain.TokenMeta, error) {
	saved, err := s.store.Upsert(ctx, meta)
	if err != nil {
		s.logger.Warn("token upsert failed",
			slog.String("mint", meta.Address),
			slog.String("error", err.Error()),
		)
		return meta, nil
	}
	s.remember(saved)
	return saved, nil
}

func (s *Service) remember(meta domain.TokenMeta) {
	s.mu.Lock()
	s.cache[meta.Address] = meta
	s.mu.Unlock()

	if s.shared != nil {
		if err := s.shared.Set(context.Background(), meta); err != nil {
			s.logger.Warn("shared cache write failed",
				slog.String("mint", meta.Address),
				slog.String("error", err.Error()),
			)
		}
	}
}
