// Package storage defines the persistence contracts of the journal.
package storage

import (
	"context"
	"time"

	"github.com/trogers1052/trade-journal/internal/aggregate"
	"github.com/trogers1052/trade-journal/internal/models"
)

// StrategyReader reads strategies outside of a transaction.
type StrategyReader interface {
	GetStrategy(ctx context.Context, id string) (*models.Strategy, error)
	ListStrategies(ctx context.Context) ([]*models.Strategy, error)
}

// TradeReader reads trades outside of a transaction.
type TradeReader interface {
	GetTrade(ctx context.Context, id string) (*models.Trade, error)
	ListTradesByStrategy(ctx context.Context, strategyID string) ([]*models.Trade, error)
	// ListTradesByDateRange returns trades whose entry date lies in [start, end].
	ListTradesByDateRange(ctx context.Context, start, end time.Time) ([]*models.Trade, error)
	TradeExistsByExternalID(ctx context.Context, externalID string) (bool, error)
}

// JournalTx is the unit of work for strategy and trade mutations.
// Every method runs inside the same transaction.
type JournalTx interface {
	// LockStrategy loads the strategy and holds it until the transaction ends.
	LockStrategy(ctx context.Context, id string) (*models.Strategy, error)
	CreateStrategy(ctx context.Context, s *models.Strategy) error
	UpdateStrategyDefinition(ctx context.Context, s *models.Strategy) error
	DeleteStrategy(ctx context.Context, id string) error

	GetTrade(ctx context.Context, id string) (*models.Trade, error)
	CreateTrade(ctx context.Context, t *models.Trade) error
	UpdateTrade(ctx context.Context, t *models.Trade) error
	// DeleteTrade removes the trade and returns the id of its former strategy.
	DeleteTrade(ctx context.Context, id string) (string, error)
	DeleteTradesByStrategy(ctx context.Context, strategyID string) (int64, error)

	// TradeResults returns the net P&L of every trade of the strategy in creation order.
	TradeResults(ctx context.Context, strategyID string) ([]aggregate.TradeResult, error)
	SaveStrategyStats(ctx context.Context, strategyID string, stats aggregate.Stats) error
}

// JournalStore persists strategies and trades.
type JournalStore interface {
	StrategyReader
	TradeReader
	// InTx runs fn in a transaction. The transaction commits when fn returns nil
	// and rolls back otherwise.
	InTx(ctx context.Context, fn func(tx JournalTx) error) error
}

// EventStore persists calendar events.
type EventStore interface {
	CreateEvent(ctx context.Context, e *models.Event) error
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	ListEvents(ctx context.Context) ([]*models.Event, error)
	UpdateEvent(ctx context.Context, e *models.Event) error
	DeleteEvent(ctx context.Context, id string) error
}

// PremarketStore persists premarket notes.
type PremarketStore interface {
	CreatePremarket(ctx context.Context, p *models.Premarket) error
	GetPremarket(ctx context.Context, id string) (*models.Premarket, error)
	ListPremarkets(ctx context.Context) ([]*models.Premarket, error)
	UpdatePremarket(ctx context.Context, p *models.Premarket) error
	DeletePremarket(ctx context.Context, id string) error
}

// UserStore persists the journal login.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpsertUser(ctx context.Context, u *models.User) error
}

// Store is everything the service needs from a backend.
type Store interface {
	JournalStore
	EventStore
	PremarketStore
	UserStore
	Close() error
}
