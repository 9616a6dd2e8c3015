// Package aggregate rolls a strategy's trades up into its summary statistics.
package aggregate

import (
	"github.com/shopspring/decimal"
	"github.com/trogers1052/trade-journal/internal/models"
)

const places = 2

var hundred = decimal.NewFromInt(100)

// TradeResult is the part of a trade the rollup reads
type TradeResult struct {
	TradeID string
	NetPnl  decimal.Decimal
}

// Stats are the derived fields of a strategy.
// NetPnl is the mean per-trade net P&L, not the total.
type Stats struct {
	NumberOfTrades int             `json:"number_of_trades"`
	WinningTrades  int             `json:"winning_trades"`
	WinRate        decimal.Decimal `json:"win_rate"`
	NetPnl         decimal.Decimal `json:"net_pnl"`
	TotalNetPnl    decimal.Decimal `json:"total_net_pnl"`
	MaxWin         decimal.Decimal `json:"max_win"`
	MaxLoss        decimal.Decimal `json:"max_loss"`
	TradeIDs       []string        `json:"-"`
}

// Summarize computes the rollup over results. The output depends only on the
// input slice, so repeated calls over the same trades are identical.
func Summarize(results []TradeResult) Stats {
	stats := Stats{
		NumberOfTrades: len(results),
		TradeIDs:       make([]string, 0, len(results)),
	}
	if len(results) == 0 {
		return stats
	}

	total := decimal.Zero
	maxWin := results[0].NetPnl
	maxLoss := results[0].NetPnl
	for _, r := range results {
		stats.TradeIDs = append(stats.TradeIDs, r.TradeID)
		total = total.Add(r.NetPnl)
		if r.NetPnl.IsPositive() {
			stats.WinningTrades++
		}
		if r.NetPnl.GreaterThan(maxWin) {
			maxWin = r.NetPnl
		}
		if r.NetPnl.LessThan(maxLoss) {
			maxLoss = r.NetPnl
		}
	}

	count := decimal.NewFromInt(int64(len(results)))
	stats.TotalNetPnl = total.Round(places)
	stats.NetPnl = total.Div(count).Round(places)
	stats.WinRate = decimal.NewFromInt(int64(stats.WinningTrades)).Div(count).Mul(hundred).Round(places)
	stats.MaxWin = maxWin
	stats.MaxLoss = maxLoss
	return stats
}

// FromTrades converts trades into rollup input, preserving order
func FromTrades(trades []*models.Trade) []TradeResult {
	results := make([]TradeResult, 0, len(trades))
	for _, t := range trades {
		results = append(results, TradeResult{TradeID: t.ID, NetPnl: t.NetPnl})
	}
	return results
}

// ApplyTo writes the rollup onto s
func (st Stats) ApplyTo(s *models.Strategy) {
	s.NumberOfTrades = st.NumberOfTrades
	s.WinRate = st.WinRate
	s.NetPnl = st.NetPnl
	s.MaxWin = st.MaxWin
	s.MaxLoss = st.MaxLoss
	s.Trades = append([]string(nil), st.TradeIDs...)
}
