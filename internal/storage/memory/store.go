// Package memory provides an in-process implementation of storage.Store.
// Transactions are serialized behind a single lock and roll back by restoring
// a snapshot of the journal tables.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/trogers1052/trade-journal/internal/models"
	"github.com/trogers1052/trade-journal/internal/storage"
)

type tradeRow struct {
	seq   int64
	trade *models.Trade
}

// Store is an in-memory storage.Store.
type Store struct {
	mu         sync.RWMutex
	seq        int64
	strategies map[string]*models.Strategy
	trades     map[string]tradeRow
	events     map[string]*models.Event
	premarkets map[string]*models.Premarket
	users      map[string]*models.User // keyed by lower-case email
	now        func() time.Time
}

// Compile-time interface check.
var _ storage.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		strategies: make(map[string]*models.Strategy),
		trades:     make(map[string]tradeRow),
		events:     make(map[string]*models.Event),
		premarkets: make(map[string]*models.Premarket),
		users:      make(map[string]*models.User),
		now:        time.Now,
	}
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
}

// InTx runs fn with exclusive access. Journal tables are restored if fn fails.
// fn must only use the tx it is given.
func (s *Store) InTx(ctx context.Context, fn func(tx storage.JournalTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	strategies := make(map[string]*models.Strategy, len(s.strategies))
	for k, v := range s.strategies {
		strategies[k] = v
	}
	trades := make(map[string]tradeRow, len(s.trades))
	for k, v := range s.trades {
		trades[k] = v
	}
	seq := s.seq

	if err := fn(&tx{s: s}); err != nil {
		s.strategies = strategies
		s.trades = trades
		s.seq = seq
		return err
	}
	return nil
}

// GetStrategy returns a copy of the strategy.
func (s *Store) GetStrategy(_ context.Context, id string) (*models.Strategy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.strategies[id]
	if !ok {
		return nil, notFound("strategy", id)
	}
	return st.Clone(), nil
}

// ListStrategies returns all strategies, newest first.
func (s *Store) ListStrategies(_ context.Context) ([]*models.Strategy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Strategy, 0, len(s.strategies))
	for _, st := range s.strategies {
		out = append(out, st.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// GetTrade returns a copy of the trade.
func (s *Store) GetTrade(_ context.Context, id string) (*models.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.trades[id]
	if !ok {
		return nil, notFound("trade", id)
	}
	return row.trade.Clone(), nil
}

// ListTradesByStrategy returns the strategy's trades in creation order.
func (s *Store) ListTradesByStrategy(_ context.Context, strategyID string) ([]*models.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.tradesWhere(func(t *models.Trade) bool { return t.StrategyID == strategyID }), nil
}

// ListTradesByDateRange returns trades whose entry date is within [start, end].
func (s *Store) ListTradesByDateRange(_ context.Context, start, end time.Time) ([]*models.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.tradesWhere(func(t *models.Trade) bool {
		if t.EntryDate == nil {
			return false
		}
		return !t.EntryDate.Before(start) && !t.EntryDate.After(end)
	}), nil
}

// TradeExistsByExternalID reports whether an imported trade is already stored.
func (s *Store) TradeExistsByExternalID(_ context.Context, externalID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, row := range s.trades {
		if row.trade.ExternalID != "" && row.trade.ExternalID == externalID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) tradesWhere(match func(t *models.Trade) bool) []*models.Trade {
	rows := make([]tradeRow, 0)
	for _, row := range s.trades {
		if match(row.trade) {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	out := make([]*models.Trade, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.trade.Clone())
	}
	return out
}

// CreateEvent stores a new event.
func (s *Store) CreateEvent(_ context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := s.now()
	e.CreatedAt = now
	e.UpdatedAt = now
	c := *e
	s.events[e.ID] = &c
	return nil
}

// GetEvent returns a copy of the event.
func (s *Store) GetEvent(_ context.Context, id string) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[id]
	if !ok {
		return nil, notFound("event", id)
	}
	c := *e
	return &c, nil
}

// ListEvents returns events ordered by date.
func (s *Store) ListEvents(_ context.Context) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Event, 0, len(s.events))
	for _, e := range s.events {
		c := *e
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date.Time) {
			return out[i].ID < out[j].ID
		}
		return out[i].Date.Before(out[j].Date.Time)
	})
	return out, nil
}

// UpdateEvent replaces the event's fields.
func (s *Store) UpdateEvent(_ context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.events[e.ID]
	if !ok {
		return notFound("event", e.ID)
	}
	e.CreatedAt = existing.CreatedAt
	e.UpdatedAt = s.now()
	c := *e
	s.events[e.ID] = &c
	return nil
}

// DeleteEvent removes the event.
func (s *Store) DeleteEvent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return notFound("event", id)
	}
	delete(s.events, id)
	return nil
}

// CreatePremarket stores a new premarket note.
func (s *Store) CreatePremarket(_ context.Context, p *models.Premarket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := s.now()
	p.CreatedAt = now
	p.UpdatedAt = now
	c := *p
	s.premarkets[p.ID] = &c
	return nil
}

// GetPremarket returns a copy of the note.
func (s *Store) GetPremarket(_ context.Context, id string) (*models.Premarket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.premarkets[id]
	if !ok {
		return nil, notFound("premarket", id)
	}
	c := *p
	return &c, nil
}

// ListPremarkets returns notes, newest first.
func (s *Store) ListPremarkets(_ context.Context) ([]*models.Premarket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Premarket, 0, len(s.premarkets))
	for _, p := range s.premarkets {
		c := *p
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// UpdatePremarket replaces the note's fields.
func (s *Store) UpdatePremarket(_ context.Context, p *models.Premarket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.premarkets[p.ID]
	if !ok {
		return notFound("premarket", p.ID)
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = s.now()
	c := *p
	s.premarkets[p.ID] = &c
	return nil
}

// DeletePremarket removes the note.
func (s *Store) DeletePremarket(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.premarkets[id]; !ok {
		return notFound("premarket", id)
	}
	delete(s.premarkets, id)
	return nil
}

// GetUserByEmail looks a user up case-insensitively.
func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[strings.ToLower(email)]
	if !ok {
		return nil, notFound("user", email)
	}
	c := *u
	return &c, nil
}

// UpsertUser creates the user or replaces its password hash.
func (s *Store) UpsertUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(u.Email)
	if existing, ok := s.users[key]; ok {
		u.ID = existing.ID
		u.CreatedAt = existing.CreatedAt
	} else {
		u.ID = uuid.NewString()
		u.CreatedAt = s.now()
	}
	c := *u
	s.users[key] = &c
	return nil
}
