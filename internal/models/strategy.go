package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Money fields go over the wire as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Strategy is a named rule set with rollup statistics over its trades.
// WinRate, NetPnl, MaxWin, MaxLoss, NumberOfTrades and Trades are written
// only by the aggregator.
type Strategy struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	EntryRules     []string        `json:"entry_rules"`
	ExitRules      []string        `json:"exit_rules"`
	WinRate        decimal.Decimal `json:"win_rate"`
	NetPnl         decimal.Decimal `json:"net_pnl"`
	MaxWin         decimal.Decimal `json:"max_win"`
	MaxLoss        decimal.Decimal `json:"max_loss"`
	NumberOfTrades int             `json:"number_of_trades"`
	Trades         []string        `json:"trades"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// StrategySummary is the list view of a strategy
type StrategySummary struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	WinRate        decimal.Decimal `json:"win_rate"`
	NetPnl         decimal.Decimal `json:"net_pnl"`
	MaxWin         decimal.Decimal `json:"max_win"`
	MaxLoss        decimal.Decimal `json:"max_loss"`
	NumberOfTrades int             `json:"number_of_trades"`
}

// Summary returns the list view of s
func (s *Strategy) Summary() StrategySummary {
	return StrategySummary{
		ID:             s.ID,
		Name:           s.Name,
		WinRate:        s.WinRate,
		NetPnl:         s.NetPnl,
		MaxWin:         s.MaxWin,
		MaxLoss:        s.MaxLoss,
		NumberOfTrades: s.NumberOfTrades,
	}
}

// Clone returns a deep copy of s
func (s *Strategy) Clone() *Strategy {
	c := *s
	c.EntryRules = append([]string(nil), s.EntryRules...)
	c.ExitRules = append([]string(nil), s.ExitRules...)
	c.Trades = append([]string(nil), s.Trades...)
	return &c
}
