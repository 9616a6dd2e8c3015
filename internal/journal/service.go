// Package journal runs strategy and trade mutations. Every trade mutation
// and the recomputation of its strategy's aggregate commit together in one
// store transaction, serialized per strategy.
package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/trogers1052/trade-journal/internal/aggregate"
	"github.com/trogers1052/trade-journal/internal/logging"
	"github.com/trogers1052/trade-journal/internal/models"
	"github.com/trogers1052/trade-journal/internal/observability"
	"github.com/trogers1052/trade-journal/internal/storage"
)

// Recompute triggers
const (
	TriggerMutation = "mutation"
	TriggerManual   = "manual"
	TriggerSweep    = "sweep"
)

// Publisher emits journal events after a mutation commits
type Publisher interface {
	Publish(ctx context.Context, event models.JournalEvent) error
}

// Service is the mutation orchestrator for strategies and trades
type Service struct {
	store     storage.JournalStore
	publisher Publisher
	metrics   *observability.Metrics
	locks     *keyedMutex
	now       func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithPublisher sets the event publisher
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithMetrics sets the metrics sink
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a new journal service
func NewService(store storage.JournalStore, opts ...Option) *Service {
	s := &Service{
		store: store,
		locks: newKeyedMutex(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RangeReport is the trades of a date range with their rollup
type RangeReport struct {
	Trades  []*models.Trade `json:"trades"`
	Summary aggregate.Stats `json:"summary"`
}

// CreateStrategy creates a strategy with zeroed statistics
func (s *Service) CreateStrategy(ctx context.Context, in StrategyInput) (strategy *models.Strategy, err error) {
	defer func() { s.metrics.RecordMutation("create_strategy", err) }()

	in, err = in.validate()
	if err != nil {
		return nil, err
	}

	strategy = &models.Strategy{Name: in.Name, EntryRules: in.EntryRules, ExitRules: in.ExitRules}
	err = s.store.InTx(ctx, func(tx storage.JournalTx) error {
		return tx.CreateStrategy(ctx, strategy)
	})
	if err != nil {
		return nil, persistence("create strategy", err)
	}

	s.publish(ctx, models.JournalEvent{
		EventType:  models.EventStrategyCreated,
		StrategyID: strategy.ID,
		Strategy:   strategy,
	})
	return strategy, nil
}

// GetStrategy returns a strategy by ID
func (s *Service) GetStrategy(ctx context.Context, id string) (*models.Strategy, error) {
	strategy, err := s.store.GetStrategy(ctx, id)
	if err != nil {
		return nil, persistence("get strategy", err)
	}
	return strategy, nil
}

// ListStrategies returns every strategy, newest first
func (s *Service) ListStrategies(ctx context.Context) ([]*models.Strategy, error) {
	strategies, err := s.store.ListStrategies(ctx)
	if err != nil {
		return nil, persistence("list strategies", err)
	}
	return strategies, nil
}

// UpdateStrategy replaces the name and rule lists of a strategy
func (s *Service) UpdateStrategy(ctx context.Context, id string, in StrategyInput) (strategy *models.Strategy, err error) {
	defer func() { s.metrics.RecordMutation("update_strategy", err) }()

	in, err = in.validate()
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	err = s.store.InTx(ctx, func(tx storage.JournalTx) error {
		current, err := tx.LockStrategy(ctx, id)
		if err != nil {
			return err
		}
		current.Name = in.Name
		current.EntryRules = in.EntryRules
		current.ExitRules = in.ExitRules
		if err := tx.UpdateStrategyDefinition(ctx, current); err != nil {
			return err
		}
		strategy = current
		return nil
	})
	if err != nil {
		return nil, persistence("update strategy", err)
	}

	s.publish(ctx, models.JournalEvent{
		EventType:  models.EventStrategyUpdated,
		StrategyID: strategy.ID,
		Strategy:   strategy,
	})
	return strategy, nil
}

// DeleteStrategy removes a strategy together with all of its trades
func (s *Service) DeleteStrategy(ctx context.Context, id string) (err error) {
	defer func() { s.metrics.RecordMutation("delete_strategy", err) }()

	unlock := s.locks.Lock(id)
	defer unlock()

	var removed int64
	err = s.store.InTx(ctx, func(tx storage.JournalTx) error {
		if _, err := tx.LockStrategy(ctx, id); err != nil {
			return err
		}
		n, err := tx.DeleteTradesByStrategy(ctx, id)
		if err != nil {
			return err
		}
		removed = n
		return tx.DeleteStrategy(ctx, id)
	})
	if err != nil {
		return persistence("delete strategy", err)
	}

	logging.FromContext(ctx).Info().
		Str("strategy_id", id).
		Int64("trades_removed", removed).
		Msg("Strategy deleted")

	s.publish(ctx, models.JournalEvent{EventType: models.EventStrategyDeleted, StrategyID: id})
	return nil
}

// RecomputeStrategy reruns the aggregator for one strategy
func (s *Service) RecomputeStrategy(ctx context.Context, id string) (*models.Strategy, error) {
	return s.recomputeStrategy(ctx, id, TriggerManual)
}

// RecomputeAll reruns the aggregator for every strategy and returns how many
// were recomputed. A strategy deleted during the sweep is skipped.
func (s *Service) RecomputeAll(ctx context.Context) (int, error) {
	strategies, err := s.store.ListStrategies(ctx)
	if err != nil {
		return 0, persistence("list strategies", err)
	}

	var errs []error
	count := 0
	for _, strategy := range strategies {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		_, err := s.recomputeStrategy(ctx, strategy.ID, TriggerSweep)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("strategy %s: %w", strategy.ID, err))
			continue
		}
		count++
	}
	return count, errors.Join(errs...)
}

func (s *Service) recomputeStrategy(ctx context.Context, id, trigger string) (strategy *models.Strategy, err error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	err = s.store.InTx(ctx, func(tx storage.JournalTx) error {
		current, err := tx.LockStrategy(ctx, id)
		if err != nil {
			return err
		}
		if err := s.recompute(ctx, tx, current, trigger); err != nil {
			return err
		}
		strategy = current
		return nil
	})
	if err != nil {
		return nil, persistence("recompute strategy", err)
	}

	s.publish(ctx, models.JournalEvent{
		EventType:  models.EventStrategyRecomputed,
		StrategyID: strategy.ID,
		Strategy:   strategy,
	})
	return strategy, nil
}

// recompute derives the strategy statistics from its stored trades and saves
// them inside tx. The caller must hold the strategy lock.
func (s *Service) recompute(ctx context.Context, tx storage.JournalTx, strategy *models.Strategy, trigger string) error {
	start := time.Now()

	results, err := tx.TradeResults(ctx, strategy.ID)
	if err != nil {
		return fmt.Errorf("failed to load trade results: %w", err)
	}
	stats := aggregate.Summarize(results)
	if err := tx.SaveStrategyStats(ctx, strategy.ID, stats); err != nil {
		return fmt.Errorf("failed to save strategy stats: %w", err)
	}
	stats.ApplyTo(strategy)
	strategy.UpdatedAt = s.now().UTC()

	s.metrics.RecordRecompute(trigger, time.Since(start))
	logger := logging.WithStrategy(*logging.FromContext(ctx), strategy.ID)
	logger.Debug().
		Str("trigger", trigger).
		Int("number_of_trades", stats.NumberOfTrades).
		Str("net_pnl", stats.NetPnl.String()).
		Msg("Strategy recomputed")
	return nil
}

// CreateTrade adds a trade to a strategy and recomputes the strategy
func (s *Service) CreateTrade(ctx context.Context, strategyID string, in TradeInput) (trade *models.Trade, err error) {
	defer func() { s.metrics.RecordMutation("create_trade", err) }()

	trade, _, err = s.createTrade(ctx, strategyID, in)
	if errors.Is(err, storage.ErrDuplicateKey) {
		return nil, invalid("external_id", "trade %s already exists", in.ExternalID)
	}
	return trade, err
}

func (s *Service) createTrade(ctx context.Context, strategyID string, in TradeInput) (*models.Trade, *models.Strategy, error) {
	if in.StrategyID != "" && in.StrategyID != strategyID {
		return nil, nil, invalid("strategy_id", "does not match the strategy in the path")
	}
	if err := in.validate(); err != nil {
		return nil, nil, err
	}

	unlock := s.locks.Lock(strategyID)
	defer unlock()

	trade := &models.Trade{StrategyID: strategyID, ExternalID: in.ExternalID}
	in.apply(trade)

	var strategy *models.Strategy
	err := s.store.InTx(ctx, func(tx storage.JournalTx) error {
		current, err := tx.LockStrategy(ctx, strategyID)
		if err != nil {
			return err
		}
		if err := checkRules(current, trade, nil); err != nil {
			return err
		}
		if err := tx.CreateTrade(ctx, trade); err != nil {
			return err
		}
		if err := s.recompute(ctx, tx, current, TriggerMutation); err != nil {
			return err
		}
		strategy = current
		return nil
	})
	if err != nil {
		return nil, nil, persistence("create trade", err)
	}

	s.publish(ctx, models.JournalEvent{
		EventType:  models.EventTradeCreated,
		StrategyID: strategyID,
		TradeID:    trade.ID,
		Trade:      trade,
		Strategy:   strategy,
	})
	return trade, strategy, nil
}

// GetTrade returns a trade by ID
func (s *Service) GetTrade(ctx context.Context, id string) (*models.Trade, error) {
	trade, err := s.store.GetTrade(ctx, id)
	if err != nil {
		return nil, persistence("get trade", err)
	}
	return trade, nil
}

// ListTradesByStrategy returns the trades of an existing strategy in creation order
func (s *Service) ListTradesByStrategy(ctx context.Context, strategyID string) ([]*models.Trade, error) {
	if _, err := s.store.GetStrategy(ctx, strategyID); err != nil {
		return nil, persistence("get strategy", err)
	}
	trades, err := s.store.ListTradesByStrategy(ctx, strategyID)
	if err != nil {
		return nil, persistence("list trades", err)
	}
	return trades, nil
}

// ListTradesByDateRange returns trades entered within [start, end] and their rollup
func (s *Service) ListTradesByDateRange(ctx context.Context, start, end models.Date) (*RangeReport, error) {
	if end.Before(start.Time) {
		return nil, invalid("endDate", "must not be before startDate")
	}
	trades, err := s.store.ListTradesByDateRange(ctx, start.Time, end.Time)
	if err != nil {
		return nil, persistence("list trades", err)
	}
	return &RangeReport{
		Trades:  trades,
		Summary: aggregate.Summarize(aggregate.FromTrades(trades)),
	}, nil
}

// UpdateTrade replaces the user fields of a trade and recomputes its strategy.
// The owning strategy cannot be changed.
func (s *Service) UpdateTrade(ctx context.Context, id string, in TradeInput) (trade *models.Trade, err error) {
	defer func() { s.metrics.RecordMutation("update_trade", err) }()

	existing, err := s.store.GetTrade(ctx, id)
	if err != nil {
		return nil, persistence("get trade", err)
	}
	if in.StrategyID != "" && in.StrategyID != existing.StrategyID {
		return nil, invalid("strategy_id", "cannot be changed")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(existing.StrategyID)
	defer unlock()

	var strategy *models.Strategy
	err = s.store.InTx(ctx, func(tx storage.JournalTx) error {
		current, err := tx.LockStrategy(ctx, existing.StrategyID)
		if err != nil {
			return err
		}
		stored, err := tx.GetTrade(ctx, id)
		if err != nil {
			return err
		}
		previous := stored.Clone()
		in.apply(stored)
		if err := checkRules(current, stored, previous); err != nil {
			return err
		}
		if err := tx.UpdateTrade(ctx, stored); err != nil {
			return err
		}
		if err := s.recompute(ctx, tx, current, TriggerMutation); err != nil {
			return err
		}
		trade, strategy = stored, current
		return nil
	})
	if err != nil {
		return nil, persistence("update trade", err)
	}

	s.publish(ctx, models.JournalEvent{
		EventType:  models.EventTradeUpdated,
		StrategyID: strategy.ID,
		TradeID:    trade.ID,
		Trade:      trade,
		Strategy:   strategy,
	})
	return trade, nil
}

// DeleteTrade removes a trade and recomputes its former strategy
func (s *Service) DeleteTrade(ctx context.Context, id string) (err error) {
	defer func() { s.metrics.RecordMutation("delete_trade", err) }()

	existing, err := s.store.GetTrade(ctx, id)
	if err != nil {
		return persistence("get trade", err)
	}

	unlock := s.locks.Lock(existing.StrategyID)
	defer unlock()

	var strategy *models.Strategy
	err = s.store.InTx(ctx, func(tx storage.JournalTx) error {
		current, err := tx.LockStrategy(ctx, existing.StrategyID)
		if err != nil {
			return err
		}
		if _, err := tx.DeleteTrade(ctx, id); err != nil {
			return err
		}
		if err := s.recompute(ctx, tx, current, TriggerMutation); err != nil {
			return err
		}
		strategy = current
		return nil
	})
	if err != nil {
		return persistence("delete trade", err)
	}

	s.publish(ctx, models.JournalEvent{
		EventType:  models.EventTradeDeleted,
		StrategyID: strategy.ID,
		TradeID:    id,
		Strategy:   strategy,
	})
	return nil
}

// PreviewTrade computes the derived fields of an unsaved trade. Incomplete
// input yields zero metrics, never an error.
func (s *Service) PreviewTrade(in TradeInput) Preview {
	trade := &models.Trade{}
	in.apply(trade)

	p := Preview{Day: trade.Day, Duration: trade.Duration}
	p.Capital = trade.Capital
	p.GrossPnl = trade.GrossPnl
	p.NetPnl = trade.NetPnl
	p.PercentPnl = trade.PercentPnl
	p.ROI = trade.ROI
	return p
}

// ImportTrade creates a trade delivered by an upstream feed. Trades are keyed
// by external ID: an already imported trade is skipped and reported as not created.
func (s *Service) ImportTrade(ctx context.Context, in TradeInput) (bool, error) {
	if in.ExternalID == "" {
		return false, invalid("external_id", "is required")
	}
	if in.StrategyID == "" {
		return false, invalid("strategy_id", "is required")
	}

	exists, err := s.store.TradeExistsByExternalID(ctx, in.ExternalID)
	if err != nil {
		s.metrics.RecordImport("error")
		return false, persistence("check imported trade", err)
	}
	if exists {
		s.metrics.RecordImport("duplicate")
		return false, nil
	}

	_, _, err = s.createTrade(ctx, in.StrategyID, in)
	if errors.Is(err, storage.ErrDuplicateKey) {
		s.metrics.RecordImport("duplicate")
		return false, nil
	}
	if err != nil {
		s.metrics.RecordImport("error")
		return false, err
	}
	s.metrics.RecordImport("created")
	return true, nil
}

// publish sends event after commit. Failures are logged and counted only.
func (s *Service) publish(ctx context.Context, event models.JournalEvent) {
	if s.publisher == nil {
		return
	}
	event.Timestamp = s.now().UTC()

	err := s.publisher.Publish(ctx, event)
	s.metrics.RecordPublish(event.EventType, err)
	if err != nil {
		logging.FromContext(ctx).Warn().
			Err(err).
			Str("event_type", event.EventType).
			Str("strategy_id", event.StrategyID).
			Msg("Failed to publish journal event")
	}
}
