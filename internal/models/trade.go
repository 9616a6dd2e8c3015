package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Trade side constants
const (
	SideLong  = "Long"
	SideShort = "Short"
)

// NormalizeSide maps user input onto SideLong or SideShort.
// Buy is a long position and sell a short one; empty defaults to long.
func NormalizeSide(s string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "long", "buy":
		return SideLong, true
	case "short", "sell":
		return SideShort, true
	default:
		return "", false
	}
}

// Trade is a single journaled position taken under a strategy
type Trade struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	StrategyID  string              `json:"strategy_id"`
	Side        string              `json:"side"`
	Entry       decimal.Decimal     `json:"entry"`
	Exit        decimal.NullDecimal `json:"exit"`
	StopLoss    decimal.NullDecimal `json:"stop_loss"`
	Shares      int64               `json:"shares"`
	Charges     decimal.Decimal     `json:"charges"`
	Target      decimal.NullDecimal `json:"target"`
	EntryDate   *Date               `json:"entry_date,omitempty"`
	ExitDate    *Date               `json:"exit_date,omitempty"`
	Day         string              `json:"day,omitempty"`
	Time        string              `json:"time,omitempty"`
	Duration    string              `json:"duration,omitempty"`
	Screenshots []string            `json:"screenshots"`
	Mistakes    []string            `json:"mistakes"`
	Emojis      []string            `json:"emojis"`
	EntryRules  []string            `json:"entry_rules"`
	ExitRules   []string            `json:"exit_rules"`
	ExternalID  string              `json:"external_id,omitempty"`

	Capital    decimal.Decimal `json:"capital"`
	GrossPnl   decimal.Decimal `json:"gross_pnl"`
	NetPnl     decimal.Decimal `json:"net_pnl"`
	PercentPnl decimal.Decimal `json:"percent_pnl"`
	ROI        decimal.Decimal `json:"roi"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of t
func (t *Trade) Clone() *Trade {
	c := *t
	if t.EntryDate != nil {
		d := *t.EntryDate
		c.EntryDate = &d
	}
	if t.ExitDate != nil {
		d := *t.ExitDate
		c.ExitDate = &d
	}
	c.Screenshots = append([]string(nil), t.Screenshots...)
	c.Mistakes = append([]string(nil), t.Mistakes...)
	c.Emojis = append([]string(nil), t.Emojis...)
	c.EntryRules = append([]string(nil), t.EntryRules...)
	c.ExitRules = append([]string(nil), t.ExitRules...)
	return &c
}
