package models

import "time"

// Journal event types published after a committed mutation
const (
	EventTradeCreated       = "TRADE_CREATED"
	EventTradeUpdated       = "TRADE_UPDATED"
	EventTradeDeleted       = "TRADE_DELETED"
	EventStrategyCreated    = "STRATEGY_CREATED"
	EventStrategyUpdated    = "STRATEGY_UPDATED"
	EventStrategyDeleted    = "STRATEGY_DELETED"
	EventStrategyRecomputed = "STRATEGY_RECOMPUTED"
)

// EventTradeImported is consumed from the import topic
const EventTradeImported = "TRADE_IMPORTED"

// JournalEvent represents a Kafka event for journal changes
type JournalEvent struct {
	EventType  string    `json:"event_type"`
	StrategyID string    `json:"strategy_id"`
	TradeID    string    `json:"trade_id,omitempty"`
	Trade      *Trade    `json:"trade,omitempty"`
	Strategy   *Strategy `json:"strategy,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// TradeImportEvent carries an executed trade from an upstream feed
type TradeImportEvent struct {
	EventType string          `json:"event_type"`
	Source    string          `json:"source"`
	Data      TradeImportData `json:"data"`
}

// TradeImportData is the payload of a TradeImportEvent. Prices are decimal strings.
type TradeImportData struct {
	ExternalID string   `json:"external_id"`
	StrategyID string   `json:"strategy_id"`
	Name       string   `json:"name"`
	Side       string   `json:"side"`
	Entry      string   `json:"entry"`
	Exit       *string  `json:"exit,omitempty"`
	StopLoss   *string  `json:"stop_loss,omitempty"`
	Target     *string  `json:"target,omitempty"`
	Shares     int64    `json:"shares"`
	Charges    string   `json:"charges,omitempty"`
	EntryDate  *string  `json:"entry_date,omitempty"`
	ExitDate   *string  `json:"exit_date,omitempty"`
	Time       string   `json:"time,omitempty"`
	EntryRules []string `json:"entry_rules,omitempty"`
	ExitRules  []string `json:"exit_rules,omitempty"`
}
