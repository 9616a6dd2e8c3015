// Package calculator derives the financial fields of a trade from its raw
// inputs. All functions are pure; missing inputs produce zero values instead
// of errors so that a half-filled form can still be previewed.
//
// A missing stop loss zeroes only ROI. Capital and the P&L fields are still
// computed from entry, exit, shares and charges.
package calculator

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/trade-journal/internal/models"
)

// Places is the rounding precision of every derived field
const Places = 2

var hundred = decimal.NewFromInt(100)

// Input holds the raw trade fields the metrics depend on
type Input struct {
	Side     string
	Entry    decimal.NullDecimal
	Exit     decimal.NullDecimal
	StopLoss decimal.NullDecimal
	Shares   int64
	Charges  decimal.Decimal
}

// Metrics are the derived financial fields of a trade
type Metrics struct {
	Capital    decimal.Decimal `json:"capital"`
	GrossPnl   decimal.Decimal `json:"gross_pnl"`
	NetPnl     decimal.Decimal `json:"net_pnl"`
	PercentPnl decimal.Decimal `json:"percent_pnl"`
	ROI        decimal.Decimal `json:"roi"`
}

// InputFromTrade extracts the calculator inputs of t
func InputFromTrade(t *models.Trade) Input {
	return Input{
		Side:     t.Side,
		Entry:    decimal.NewNullDecimal(t.Entry),
		Exit:     t.Exit,
		StopLoss: t.StopLoss,
		Shares:   t.Shares,
		Charges:  t.Charges,
	}
}

// Compute returns the metrics for in.
//
// Long positions profit when exit > entry, short positions when exit < entry.
// Without an exit price the position is open: gross P&L and ROI are zero and
// net P&L carries only the charges. Without a stop loss ROI is zero.
func Compute(in Input) Metrics {
	if !in.Entry.Valid || !in.Entry.Decimal.IsPositive() || in.Shares <= 0 {
		return Metrics{}
	}

	entry := in.Entry.Decimal
	shares := decimal.NewFromInt(in.Shares)
	short := isShort(in.Side)

	capital := entry.Mul(shares)

	gross := decimal.Zero
	roi := decimal.Zero
	if in.Exit.Valid {
		move := in.Exit.Decimal.Sub(entry)
		if short {
			move = move.Neg()
		}
		gross = move.Mul(shares)

		if in.StopLoss.Valid {
			risk := entry.Sub(in.StopLoss.Decimal)
			if short {
				risk = risk.Neg()
			}
			if !risk.IsZero() {
				roi = move.Div(risk)
			}
		}
	}

	net := gross.Sub(in.Charges)

	percent := decimal.Zero
	if !capital.IsZero() {
		percent = net.Div(capital).Mul(hundred)
	}

	return Metrics{
		Capital:    capital.Round(Places),
		GrossPnl:   gross.Round(Places),
		NetPnl:     net.Round(Places),
		PercentPnl: percent.Round(Places),
		ROI:        roi.Round(Places),
	}
}

// Apply computes the metrics of t and stores them together with the derived
// day and duration fields.
func Apply(t *models.Trade) {
	m := Compute(InputFromTrade(t))
	t.Capital = m.Capital
	t.GrossPnl = m.GrossPnl
	t.NetPnl = m.NetPnl
	t.PercentPnl = m.PercentPnl
	t.ROI = m.ROI

	t.Day = ""
	if t.EntryDate != nil {
		t.Day = Weekday(t.EntryDate.Time)
	}
	t.Duration = ""
	if t.EntryDate != nil && t.ExitDate != nil {
		t.Duration = HoldingDuration(t.EntryDate.Time, t.ExitDate.Time)
	}
}

// HoldingDuration formats the whole days between entry and exit, rounded up
func HoldingDuration(entry, exit time.Time) string {
	days := int(math.Ceil(math.Abs(exit.Sub(entry).Hours()) / 24))
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

// Weekday returns the English weekday name of t
func Weekday(t time.Time) string {
	return t.Weekday().String()
}

func isShort(side string) bool {
	normalized, ok := models.NormalizeSide(side)
	return ok && normalized == models.SideShort
}
