package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/trade-journal/internal/aggregate"
	"github.com/trogers1052/trade-journal/internal/models"
	"github.com/trogers1052/trade-journal/internal/storage"
)

func newTestTrade(strategyID string, net string) *models.Trade {
	entryDate := models.NewDate(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC))
	return &models.Trade{
		Name:       "AAPL",
		StrategyID: strategyID,
		Side:       models.SideLong,
		Entry:      decimal.RequireFromString("100"),
		Exit:       decimal.NewNullDecimal(decimal.RequireFromString("110")),
		Shares:     10,
		Charges:    decimal.RequireFromString("5"),
		EntryDate:  &entryDate,
		EntryRules: []string{"breakout"},
		NetPnl:     decimal.RequireFromString(net),
	}
}

func TestStrategies(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)
	ctx := context.Background()

	t.Run("create assigns id and zeroed stats", func(t *testing.T) {
		testDB.TruncateAll(t)

		s := testDB.CreateTestStrategy(t, "Breakout", []string{"breakout"}, []string{"target hit"})
		assert.NotEmpty(t, s.ID)

		got, err := testDB.GetStrategy(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, "Breakout", got.Name)
		assert.Equal(t, []string{"breakout"}, got.EntryRules)
		assert.Equal(t, []string{"target hit"}, got.ExitRules)
		assert.Equal(t, 0, got.NumberOfTrades)
		assert.True(t, got.WinRate.IsZero())
		assert.Empty(t, got.Trades)
	})

	t.Run("get unknown or malformed id is not found", func(t *testing.T) {
		_, err := testDB.GetStrategy(ctx, "00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		_, err = testDB.GetStrategy(ctx, "not-a-uuid")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("list returns newest first", func(t *testing.T) {
		testDB.TruncateAll(t)

		first := testDB.CreateTestStrategy(t, "First", nil, nil)
		time.Sleep(5 * time.Millisecond)
		second := testDB.CreateTestStrategy(t, "Second", nil, nil)

		list, err := testDB.ListStrategies(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, second.ID, list[0].ID)
		assert.Equal(t, first.ID, list[1].ID)
	})

	t.Run("update definition keeps stats", func(t *testing.T) {
		testDB.TruncateAll(t)
		s := testDB.CreateTestStrategy(t, "Old", nil, nil)

		err := testDB.InTx(ctx, func(tx storage.JournalTx) error {
			if err := tx.SaveStrategyStats(ctx, s.ID, aggregate.Stats{
				NumberOfTrades: 1,
				WinRate:        decimal.NewFromInt(100),
				NetPnl:         decimal.NewFromInt(95),
				MaxWin:         decimal.NewFromInt(95),
			}); err != nil {
				return err
			}
			s.Name = "New"
			s.EntryRules = []string{"gap up"}
			return tx.UpdateStrategyDefinition(ctx, s)
		})
		require.NoError(t, err)

		assert.Equal(t, "New", s.Name)
		assert.Equal(t, 1, s.NumberOfTrades)
		assert.True(t, s.NetPnl.Equal(decimal.NewFromInt(95)))
	})

	t.Run("deleting a strategy cascades to its trades", func(t *testing.T) {
		testDB.TruncateAll(t)
		s := testDB.CreateTestStrategy(t, "Doomed", []string{"breakout"}, nil)

		trade := newTestTrade(s.ID, "95")
		err := testDB.InTx(ctx, func(tx storage.JournalTx) error {
			return tx.CreateTrade(ctx, trade)
		})
		require.NoError(t, err)

		err = testDB.InTx(ctx, func(tx storage.JournalTx) error {
			return tx.DeleteStrategy(ctx, s.ID)
		})
		require.NoError(t, err)

		_, err = testDB.GetTrade(ctx, trade.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestTrades(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)
	ctx := context.Background()

	t.Run("create and get round-trips every field", func(t *testing.T) {
		testDB.TruncateAll(t)
		s := testDB.CreateTestStrategy(t, "Breakout", []string{"breakout"}, nil)

		trade := newTestTrade(s.ID, "95")
		trade.StopLoss = decimal.NewNullDecimal(decimal.RequireFromString("95"))
		trade.Mistakes = []string{"late entry"}
		trade.ExternalID = "broker-1"
		err := testDB.InTx(ctx, func(tx storage.JournalTx) error {
			return tx.CreateTrade(ctx, trade)
		})
		require.NoError(t, err)

		got, err := testDB.GetTrade(ctx, trade.ID)
		require.NoError(t, err)
		assert.Equal(t, s.ID, got.StrategyID)
		assert.True(t, got.Entry.Equal(decimal.NewFromInt(100)))
		assert.True(t, got.Exit.Valid)
		assert.True(t, got.Exit.Decimal.Equal(decimal.NewFromInt(110)))
		assert.True(t, got.StopLoss.Valid)
		assert.False(t, got.Target.Valid)
		require.NotNil(t, got.EntryDate)
		assert.Equal(t, "2024-03-04", got.EntryDate.String())
		assert.Nil(t, got.ExitDate)
		assert.Equal(t, []string{"late entry"}, got.Mistakes)
		assert.Equal(t, []string{}, got.Emojis)
		assert.Equal(t, "broker-1", got.ExternalID)
		assert.True(t, got.NetPnl.Equal(decimal.NewFromInt(95)))
	})

	t.Run("duplicate external id is rejected", func(t *testing.T) {
		testDB.TruncateAll(t)
		s := testDB.CreateTestStrategy(t, "Import", nil, nil)

		first := newTestTrade(s.ID, "1")
		first.ExternalID = "dup"
		require.NoError(t, testDB.InTx(ctx, func(tx storage.JournalTx) error {
			return tx.CreateTrade(ctx, first)
		}))

		exists, err := testDB.TradeExistsByExternalID(ctx, "dup")
		require.NoError(t, err)
		assert.True(t, exists)

		second := newTestTrade(s.ID, "1")
		second.ExternalID = "dup"
		err = testDB.InTx(ctx, func(tx storage.JournalTx) error {
			return tx.CreateTrade(ctx, second)
		})
		assert.ErrorIs(t, err, storage.ErrDuplicateKey)
	})

	t.Run("trade results follow creation order", func(t *testing.T) {
		testDB.TruncateAll(t)
		s := testDB.CreateTestStrategy(t, "Order", nil, nil)

		var ids []string
		for _, net := range []string{"100", "-50", "30"} {
			trade := newTestTrade(s.ID, net)
			require.NoError(t, testDB.InTx(ctx, func(tx storage.JournalTx) error {
				return tx.CreateTrade(ctx, trade)
			}))
			ids = append(ids, trade.ID)
			time.Sleep(2 * time.Millisecond)
		}

		var results []aggregate.TradeResult
		require.NoError(t, testDB.InTx(ctx, func(tx storage.JournalTx) error {
			var err error
			results, err = tx.TradeResults(ctx, s.ID)
			return err
		}))

		require.Len(t, results, 3)
		for i, r := range results {
			assert.Equal(t, ids[i], r.TradeID)
		}
		assert.True(t, results[1].NetPnl.Equal(decimal.NewFromInt(-50)))

		listed, err := testDB.ListTradesByStrategy(ctx, s.ID)
		require.NoError(t, err)
		require.Len(t, listed, 3)
		assert.Equal(t, ids[0], listed[0].ID)
	})

	t.Run("stats and trade ids are saved on the strategy", func(t *testing.T) {
		testDB.TruncateAll(t)
		s := testDB.CreateTestStrategy(t, "Stats", nil, nil)
		trade := newTestTrade(s.ID, "95")

		require.NoError(t, testDB.InTx(ctx, func(tx storage.JournalTx) error {
			if err := tx.CreateTrade(ctx, trade); err != nil {
				return err
			}
			results, err := tx.TradeResults(ctx, s.ID)
			if err != nil {
				return err
			}
			return tx.SaveStrategyStats(ctx, s.ID, aggregate.Summarize(results))
		}))

		got, err := testDB.GetStrategy(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.NumberOfTrades)
		assert.Equal(t, []string{trade.ID}, got.Trades)
		assert.True(t, got.WinRate.Equal(decimal.NewFromInt(100)))
	})

	t.Run("update moves a trade and delete reports its strategy", func(t *testing.T) {
		testDB.TruncateAll(t)
		a := testDB.CreateTestStrategy(t, "A", nil, nil)
		b := testDB.CreateTestStrategy(t, "B", nil, nil)
		trade := newTestTrade(a.ID, "10")

		require.NoError(t, testDB.InTx(ctx, func(tx storage.JournalTx) error {
			return tx.CreateTrade(ctx, trade)
		}))
		createdAt := trade.CreatedAt

		trade.StrategyID = b.ID
		trade.Exit = decimal.NullDecimal{}
		require.NoError(t, testDB.InTx(ctx, func(tx storage.JournalTx) error {
			return tx.UpdateTrade(ctx, trade)
		}))
		assert.WithinDuration(t, createdAt, trade.CreatedAt, time.Millisecond)

		got, err := testDB.GetTrade(ctx, trade.ID)
		require.NoError(t, err)
		assert.Equal(t, b.ID, got.StrategyID)
		assert.False(t, got.Exit.Valid)

		var strategyID string
		require.NoError(t, testDB.InTx(ctx, func(tx storage.JournalTx) error {
			var err error
			strategyID, err = tx.DeleteTrade(ctx, trade.ID)
			return err
		}))
		assert.Equal(t, b.ID, strategyID)
	})

	t.Run("date range filters on entry date", func(t *testing.T) {
		testDB.TruncateAll(t)
		s := testDB.CreateTestStrategy(t, "Range", nil, nil)

		for _, day := range []int{1, 15, 28} {
			trade := newTestTrade(s.ID, "1")
			d := models.NewDate(time.Date(2024, 2, day, 0, 0, 0, 0, time.UTC))
			trade.EntryDate = &d
			require.NoError(t, testDB.InTx(ctx, func(tx storage.JournalTx) error {
				return tx.CreateTrade(ctx, trade)
			}))
		}

		trades, err := testDB.ListTradesByDateRange(ctx,
			time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Len(t, trades, 2)
	})

	t.Run("a failed transaction leaves nothing behind", func(t *testing.T) {
		testDB.TruncateAll(t)
		s := testDB.CreateTestStrategy(t, "Rollback", nil, nil)
		trade := newTestTrade(s.ID, "1")

		boom := errors.New("aggregate failed")
		err := testDB.InTx(ctx, func(tx storage.JournalTx) error {
			if err := tx.CreateTrade(ctx, trade); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		trades, err := testDB.ListTradesByStrategy(ctx, s.ID)
		require.NoError(t, err)
		assert.Empty(t, trades)
	})
}
