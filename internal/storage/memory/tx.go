package memory

import (
	"context"

	"github.com/google/uuid"
	"github.com/trogers1052/trade-journal/internal/aggregate"
	"github.com/trogers1052/trade-journal/internal/models"
	"github.com/trogers1052/trade-journal/internal/storage"
)

// tx operates on the store's maps while InTx holds the write lock.
type tx struct {
	s *Store
}

func (t *tx) LockStrategy(_ context.Context, id string) (*models.Strategy, error) {
	st, ok := t.s.strategies[id]
	if !ok {
		return nil, notFound("strategy", id)
	}
	return st.Clone(), nil
}

func (t *tx) CreateStrategy(_ context.Context, st *models.Strategy) error {
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	if _, exists := t.s.strategies[st.ID]; exists {
		return storage.ErrDuplicateKey
	}
	now := t.s.now()
	st.CreatedAt = now
	st.UpdatedAt = now
	if st.Trades == nil {
		st.Trades = []string{}
	}
	t.s.strategies[st.ID] = st.Clone()
	return nil
}

func (t *tx) UpdateStrategyDefinition(_ context.Context, st *models.Strategy) error {
	existing, ok := t.s.strategies[st.ID]
	if !ok {
		return notFound("strategy", st.ID)
	}
	updated := existing.Clone()
	updated.Name = st.Name
	updated.EntryRules = append([]string(nil), st.EntryRules...)
	updated.ExitRules = append([]string(nil), st.ExitRules...)
	updated.UpdatedAt = t.s.now()
	t.s.strategies[st.ID] = updated

	*st = *updated.Clone()
	return nil
}

func (t *tx) DeleteStrategy(_ context.Context, id string) error {
	if _, ok := t.s.strategies[id]; !ok {
		return notFound("strategy", id)
	}
	delete(t.s.strategies, id)
	return nil
}

func (t *tx) GetTrade(_ context.Context, id string) (*models.Trade, error) {
	row, ok := t.s.trades[id]
	if !ok {
		return nil, notFound("trade", id)
	}
	return row.trade.Clone(), nil
}

func (t *tx) CreateTrade(_ context.Context, tr *models.Trade) error {
	if tr.ID == "" {
		tr.ID = uuid.NewString()
	}
	if _, exists := t.s.trades[tr.ID]; exists {
		return storage.ErrDuplicateKey
	}
	if tr.ExternalID != "" {
		for _, row := range t.s.trades {
			if row.trade.ExternalID == tr.ExternalID {
				return storage.ErrDuplicateKey
			}
		}
	}
	now := t.s.now()
	tr.CreatedAt = now
	tr.UpdatedAt = now
	t.s.seq++
	t.s.trades[tr.ID] = tradeRow{seq: t.s.seq, trade: tr.Clone()}
	return nil
}

func (t *tx) UpdateTrade(_ context.Context, tr *models.Trade) error {
	row, ok := t.s.trades[tr.ID]
	if !ok {
		return notFound("trade", tr.ID)
	}
	tr.CreatedAt = row.trade.CreatedAt
	tr.UpdatedAt = t.s.now()
	t.s.trades[tr.ID] = tradeRow{seq: row.seq, trade: tr.Clone()}
	return nil
}

func (t *tx) DeleteTrade(_ context.Context, id string) (string, error) {
	row, ok := t.s.trades[id]
	if !ok {
		return "", notFound("trade", id)
	}
	delete(t.s.trades, id)
	return row.trade.StrategyID, nil
}

func (t *tx) DeleteTradesByStrategy(_ context.Context, strategyID string) (int64, error) {
	var n int64
	for id, row := range t.s.trades {
		if row.trade.StrategyID == strategyID {
			delete(t.s.trades, id)
			n++
		}
	}
	return n, nil
}

func (t *tx) TradeResults(_ context.Context, strategyID string) ([]aggregate.TradeResult, error) {
	trades := t.s.tradesWhere(func(tr *models.Trade) bool { return tr.StrategyID == strategyID })
	return aggregate.FromTrades(trades), nil
}

func (t *tx) SaveStrategyStats(_ context.Context, strategyID string, stats aggregate.Stats) error {
	existing, ok := t.s.strategies[strategyID]
	if !ok {
		return notFound("strategy", strategyID)
	}
	updated := existing.Clone()
	stats.ApplyTo(updated)
	updated.UpdatedAt = t.s.now()
	t.s.strategies[strategyID] = updated
	return nil
}
