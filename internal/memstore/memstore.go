// Package memstore provides in-memory implementations of the domain store
// and chain interfaces. They back the test suites and double as fixtures for
// local development without a database.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/soltrack/internal/domain"
)

// UserStore is an in-memory domain.UserStore.
type UserStore struct {
	mu    sync.RWMutex
	users []domain.User
}

// NewUserStore creates a UserStore seeded with the given users.
func NewUserStore(users ...domain.User) *UserStore {
	return &UserStore{users: users}
}

// SetUsers replaces the user set.
func (s *UserStore) SetUsers(users ...domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = users
}

func (s *UserStore) ListLive(context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var live []domain.User
	for _, u := range s.users {
		if u.IsLive {
			live = append(live, u)
		}
	}
	return live, nil
}

func (s *UserStore) ListAll(context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.User, len(s.users))
	copy(out, s.users)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].LastActive, out[j].LastActive
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
	return out, nil
}

func (s *UserStore) GetByWallet(_ context.Context, wallet string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.WalletAddress == wallet {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

// TradeStore is an in-memory domain.TradeStore keyed by signature.
type TradeStore struct {
	mu     sync.RWMutex
	bySig  map[string]domain.Trade
	nextID int64

	// UpsertErr, when set, is returned by Upsert to simulate persistence
	// failures.
	UpsertErr error
}

// NewTradeStore creates an empty TradeStore.
func NewTradeStore() *TradeStore {
	return &TradeStore{bySig: make(map[string]domain.Trade), nextID: 1}
}

func (s *TradeStore) Upsert(_ context.Context, t domain.Trade) (domain.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.UpsertErr != nil {
		return domain.Trade{}, s.UpsertErr
	}
	if existing, ok := s.bySig[t.Signature]; ok {
		t.ID = existing.ID
		t.CreatedAt = existing.CreatedAt
	} else {
		t.ID = s.nextID
		s.nextID++
		t.CreatedAt = time.Now()
	}
	s.bySig[t.Signature] = t
	return t, nil
}

func (s *TradeStore) GetBySignature(_ context.Context, signature string) (domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.bySig[signature]; ok {
		return t, nil
	}
	return domain.Trade{}, domain.ErrNotFound
}

func (s *TradeStore) GetByID(_ context.Context, id int64) (domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.bySig {
		if t.ID == id {
			return t, nil
		}
	}
	return domain.Trade{}, domain.ErrNotFound
}

func (s *TradeStore) sortedByTime(wallet string) []domain.Trade {
	var trades []domain.Trade
	for _, t := range s.bySig {
		if wallet == "" || t.WalletAddress == wallet {
			trades = append(trades, t)
		}
	}
	sort.Slice(trades, func(i, j int) bool {
		return trades[i].Timestamp.After(trades[j].Timestamp)
	})
	return trades
}

func (s *TradeStore) Latest(_ context.Context, wallet string) (domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	trades := s.sortedByTime(wallet)
	if len(trades) == 0 {
		return domain.Trade{}, domain.ErrNotFound
	}
	return trades[0], nil
}

func (s *TradeStore) LatestSignatures(_ context.Context, wallet string, limit int) ([]domain.SignatureRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	trades := s.sortedByTime(wallet)
	if len(trades) > limit {
		trades = trades[:limit]
	}
	refs := make([]domain.SignatureRef, 0, len(trades))
	for _, t := range trades {
		refs = append(refs, domain.SignatureRef{Signature: t.Signature, Timestamp: t.Timestamp})
	}
	return refs, nil
}

func (s *TradeStore) ListByWallet(_ context.Context, wallet string, limit, offset int) ([]domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	trades := s.sortedByTime(wallet)
	if offset >= len(trades) {
		return nil, nil
	}
	trades = trades[offset:]
	if len(trades) > limit {
		trades = trades[:limit]
	}
	return trades, nil
}

func (s *TradeStore) ListBefore(_ context.Context, before time.Time) ([]domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var trades []domain.Trade
	for _, t := range s.bySig {
		if t.Timestamp.Before(before) {
			trades = append(trades, t)
		}
	}
	sort.Slice(trades, func(i, j int) bool {
		return trades[i].Timestamp.Before(trades[j].Timestamp)
	})
	return trades, nil
}

func (s *TradeStore) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for sig, t := range s.bySig {
		if t.Timestamp.Before(before) {
			delete(s.bySig, sig)
			n++
		}
	}
	return n, nil
}

// Count returns the number of stored trades.
func (s *TradeStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bySig)
}

// PnlStore is an in-memory domain.PnlStore keyed by (wallet, day).
type PnlStore struct {
	mu     sync.RWMutex
	rows   map[string]domain.DailyPnl
	nextID int64
}

// NewPnlStore creates an empty PnlStore.
func NewPnlStore() *PnlStore {
	return &PnlStore{rows: make(map[string]domain.DailyPnl), nextID: 1}
}

func pnlKey(wallet string, day time.Time) string {
	return wallet + "|" + day.UTC().Format(time.RFC3339)
}

func (s *PnlStore) Get(_ context.Context, wallet string, day time.Time) (domain.DailyPnl, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if row, ok := s.rows[pnlKey(wallet, day)]; ok {
		return row, nil
	}
	return domain.DailyPnl{}, domain.ErrNotFound
}

func (s *PnlStore) Last(_ context.Context, wallet string) (domain.DailyPnl, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *domain.DailyPnl
	for _, row := range s.rows {
		if row.WalletAddress != wallet {
			continue
		}
		r := row
		if latest == nil || r.Date.After(latest.Date) {
			latest = &r
		}
	}
	if latest == nil {
		return domain.DailyPnl{}, domain.ErrNotFound
	}
	return *latest, nil
}

func (s *PnlStore) Insert(_ context.Context, rec domain.DailyPnl) (domain.DailyPnl, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = s.nextID
	s.nextID++
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	s.rows[pnlKey(rec.WalletAddress, rec.Date)] = rec
	return rec, nil
}

func (s *PnlStore) Update(_ context.Context, wallet string, day time.Time, fields domain.DailyPnlUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pnlKey(wallet, day)
	row, ok := s.rows[key]
	if !ok {
		return domain.ErrNotFound
	}
	row.EndBalance = fields.EndBalance
	row.RealizedPnl = fields.RealizedPnl
	row.TotalTrades = fields.TotalTrades
	row.LastTradeID = fields.LastTradeID
	row.UpdatedAt = time.Now()
	s.rows[key] = row
	return nil
}

func (s *PnlStore) ListByWallet(_ context.Context, wallet string, limit int) ([]domain.DailyPnl, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var rows []domain.DailyPnl
	for _, row := range s.rows {
		if row.WalletAddress == wallet {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.After(rows[j].Date) })
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// TokenStore is an in-memory domain.TokenStore keyed by mint.
type TokenStore struct {
	mu     sync.RWMutex
	rows   map[string]domain.TokenMeta
	nextID int64
}

// NewTokenStore creates an empty TokenStore.
func NewTokenStore() *TokenStore {
	return &TokenStore{rows: make(map[string]domain.TokenMeta), nextID: 1}
}

func (s *TokenStore) Get(_ context.Context, mint string) (domain.TokenMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.rows[mint]; ok {
		return t, nil
	}
	return domain.TokenMeta{}, domain.ErrNotFound
}

func (s *TokenStore) Upsert(_ context.Context, meta domain.TokenMeta) (domain.TokenMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.rows[meta.Address]; ok {
		meta.ID = existing.ID
	} else {
		meta.ID = s.nextID
		s.nextID++
	}
	s.rows[meta.Address] = meta
	return meta, nil
}

func (s *TokenStore) SetPrice(_ context.Context, mint string, priceUsd float64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[mint]
	if !ok {
		return domain.ErrNotFound
	}
	row.LastPrice = &priceUsd
	row.LastUpdated = at
	s.rows[mint] = row
	return nil
}

func (s *TokenStore) ListAll(context.Context) ([]domain.TokenMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.TokenMeta, 0, len(s.rows))
	for _, t := range s.rows {
		out = append(out, t)
	}
	return out, nil
}
