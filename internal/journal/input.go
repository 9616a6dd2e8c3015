package journal

import (
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/trade-journal/internal/calculator"
	"github.com/trogers1052/trade-journal/internal/models"
)

// Column widths of the bounded text fields
const (
	MaxNameLength       = 255
	MaxTimeLength       = 32
	MaxExternalIDLength = 255
)

// CheckLength rejects value when it is longer than max characters
func CheckLength(field, value string, max int) error {
	if n := utf8.RuneCountInString(value); n > max {
		return invalid(field, "must be at most %d characters, got %d", max, n)
	}
	return nil
}

// StrategyInput holds the user-editable fields of a strategy
type StrategyInput struct {
	Name       string   `json:"name"`
	EntryRules []string `json:"entry_rules"`
	ExitRules  []string `json:"exit_rules"`
}

// TradeInput holds the user-editable fields of a trade. Derived fields
// (day, duration and the P&L metrics) are never read from input.
type TradeInput struct {
	Name        string              `json:"name"`
	StrategyID  string              `json:"strategy_id,omitempty"`
	Side        string              `json:"side"`
	Entry       decimal.NullDecimal `json:"entry"`
	Exit        decimal.NullDecimal `json:"exit"`
	StopLoss    decimal.NullDecimal `json:"stop_loss"`
	Target      decimal.NullDecimal `json:"target"`
	Shares      int64               `json:"shares"`
	Charges     decimal.NullDecimal `json:"charges"`
	EntryDate   *models.Date        `json:"entry_date"`
	ExitDate    *models.Date        `json:"exit_date"`
	Time        string              `json:"time"`
	Screenshots []string            `json:"screenshots"`
	Mistakes    []string            `json:"mistakes"`
	Emojis      []string            `json:"emojis"`
	EntryRules  []string            `json:"entry_rules"`
	ExitRules   []string            `json:"exit_rules"`
	ExternalID  string              `json:"external_id,omitempty"`
}

// Preview is the metrics view of an unsaved trade
type Preview struct {
	calculator.Metrics
	Day      string `json:"day,omitempty"`
	Duration string `json:"duration,omitempty"`
}

func (in StrategyInput) validate() (StrategyInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return in, invalid("name", "is required")
	}
	if err := CheckLength("name", in.Name, MaxNameLength); err != nil {
		return in, err
	}
	in.EntryRules = cleanList(in.EntryRules)
	in.ExitRules = cleanList(in.ExitRules)
	return in, nil
}

func (in TradeInput) validate() error {
	if err := CheckLength("name", strings.TrimSpace(in.Name), MaxNameLength); err != nil {
		return err
	}
	if err := CheckLength("time", strings.TrimSpace(in.Time), MaxTimeLength); err != nil {
		return err
	}
	if err := CheckLength("external_id", in.ExternalID, MaxExternalIDLength); err != nil {
		return err
	}
	if !in.Entry.Valid || !in.Entry.Decimal.IsPositive() {
		return invalid("entry", "must be greater than 0")
	}
	if in.Shares <= 0 {
		return invalid("shares", "must be greater than 0")
	}
	if in.Charges.Valid && in.Charges.Decimal.IsNegative() {
		return invalid("charges", "must not be negative")
	}
	if in.Exit.Valid && in.Exit.Decimal.IsNegative() {
		return invalid("exit", "must not be negative")
	}
	if in.StopLoss.Valid && in.StopLoss.Decimal.IsNegative() {
		return invalid("stop_loss", "must not be negative")
	}
	if _, ok := models.NormalizeSide(in.Side); !ok {
		return invalid("side", "must be Long or Short, got %q", in.Side)
	}
	entryDate, exitDate := dateOrNil(in.EntryDate), dateOrNil(in.ExitDate)
	if entryDate != nil && exitDate != nil && exitDate.Before(entryDate.Time) {
		return invalid("exit_date", "must not be before entry_date")
	}
	return nil
}

// apply copies the input onto t and recomputes every derived field.
// t.StrategyID is left untouched.
func (in TradeInput) apply(t *models.Trade) {
	side, _ := models.NormalizeSide(in.Side)

	t.Name = strings.TrimSpace(in.Name)
	t.Side = side
	t.Entry = in.Entry.Decimal
	t.Exit = in.Exit
	t.StopLoss = in.StopLoss
	t.Target = in.Target
	t.Shares = in.Shares
	t.Charges = decimal.Zero
	if in.Charges.Valid {
		t.Charges = in.Charges.Decimal
	}
	t.EntryDate = dateOrNil(in.EntryDate)
	t.ExitDate = dateOrNil(in.ExitDate)
	t.Time = strings.TrimSpace(in.Time)
	t.Screenshots = cleanList(in.Screenshots)
	t.Mistakes = cleanList(in.Mistakes)
	t.Emojis = cleanList(in.Emojis)
	t.EntryRules = cleanList(in.EntryRules)
	t.ExitRules = cleanList(in.ExitRules)

	calculator.Apply(t)
}

// InputFromTrade returns the editable fields of t, for partial updates
func InputFromTrade(t *models.Trade) TradeInput {
	return TradeInput{
		Name:        t.Name,
		StrategyID:  t.StrategyID,
		Side:        t.Side,
		Entry:       decimal.NewNullDecimal(t.Entry),
		Exit:        t.Exit,
		StopLoss:    t.StopLoss,
		Target:      t.Target,
		Shares:      t.Shares,
		Charges:     decimal.NewNullDecimal(t.Charges),
		EntryDate:   t.EntryDate,
		ExitDate:    t.ExitDate,
		Time:        t.Time,
		Screenshots: t.Screenshots,
		Mistakes:    t.Mistakes,
		Emojis:      t.Emojis,
		EntryRules:  t.EntryRules,
		ExitRules:   t.ExitRules,
		ExternalID:  t.ExternalID,
	}
}

// checkRules rejects trade rules the strategy does not define. Rules the
// trade already carried in previous stay valid after the strategy drops or
// renames them; previous is nil for a new trade.
func checkRules(strategy *models.Strategy, t, previous *models.Trade) error {
	var keptEntry, keptExit []string
	if previous != nil {
		keptEntry, keptExit = previous.EntryRules, previous.ExitRules
	}
	if rule, ok := missing(t.EntryRules, strategy.EntryRules, keptEntry); !ok {
		return invalid("entry_rules", "%q is not an entry rule of strategy %s", rule, strategy.Name)
	}
	if rule, ok := missing(t.ExitRules, strategy.ExitRules, keptExit); !ok {
		return invalid("exit_rules", "%q is not an exit rule of strategy %s", rule, strategy.Name)
	}
	return nil
}

func missing(subset []string, sets ...[]string) (string, bool) {
	allowed := make(map[string]bool)
	for _, set := range sets {
		for _, r := range set {
			allowed[r] = true
		}
	}
	for _, r := range subset {
		if !allowed[r] {
			return r, false
		}
	}
	return "", true
}

func dateOrNil(d *models.Date) *models.Date {
	if d == nil || d.IsZero() {
		return nil
	}
	c := models.NewDate(d.Time)
	return &c
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
