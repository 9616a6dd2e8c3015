package kafka

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/trade-journal/internal/cache"
	"github.com/trogers1052/trade-journal/internal/journal"
	"github.com/trogers1052/trade-journal/internal/models"
	"github.com/trogers1052/trade-journal/internal/storage/memory"
)

type mockReader struct {
	cfg  kafka.ReaderConfig
	msgs chan kafka.Message

	mu         sync.Mutex
	closeCalls int
}

func newMockReader(topic string, buffer int) *mockReader {
	return &mockReader{
		cfg:  kafka.ReaderConfig{Topic: topic},
		msgs: make(chan kafka.Message, buffer),
	}
}

func (r *mockReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case msg := <-r.msgs:
		return msg, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *mockReader) Close() error {
	r.mu.Lock()
	r.closeCalls++
	r.mu.Unlock()
	return nil
}

func (r *mockReader) Config() kafka.ReaderConfig {
	return r.cfg
}

// signallingImporter forwards to a journal service and signals each call
type signallingImporter struct {
	svc    *journal.Service
	called chan bool
}

func (i *signallingImporter) ImportTrade(ctx context.Context, in journal.TradeInput) (bool, error) {
	created, err := i.svc.ImportTrade(ctx, in)
	i.called <- created
	return created, err
}

func strPtr(s string) *string { return &s }

func importPayload(t *testing.T, strategyID, externalID string) []byte {
	t.Helper()
	payload, err := json.Marshal(models.TradeImportEvent{
		EventType: models.EventTradeImported,
		Source:    "broker",
		Data: models.TradeImportData{
			ExternalID: externalID,
			StrategyID: strategyID,
			Name:       "AAPL",
			Side:       "buy",
			Entry:      "100",
			Exit:       strPtr("110"),
			StopLoss:   strPtr("95"),
			Shares:     10,
			Charges:    "5",
			EntryDate:  strPtr("2024-01-01"),
			ExitDate:   strPtr("2024-01-04"),
		},
	})
	require.NoError(t, err)
	return payload
}

func newImportFixture(t *testing.T) (*journal.Service, *models.Strategy) {
	t.Helper()
	svc := journal.NewService(memory.New())
	strategy, err := svc.CreateStrategy(context.Background(), journal.StrategyInput{Name: "Imported"})
	require.NoError(t, err)
	return svc, strategy
}

func TestConsumer_processMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("imported trade is journaled with computed metrics", func(t *testing.T) {
		svc, strategy := newImportFixture(t)
		consumer := &Consumer{importer: svc, logger: zerolog.Nop()}

		err := consumer.processMessage(ctx, kafka.Message{Value: importPayload(t, strategy.ID, "ord-1")})
		require.NoError(t, err)

		trades, err := svc.ListTradesByStrategy(ctx, strategy.ID)
		require.NoError(t, err)
		require.Len(t, trades, 1)
		assert.Equal(t, models.SideLong, trades[0].Side)
		assert.Equal(t, "ord-1", trades[0].ExternalID)
		assert.Equal(t, "95", trades[0].NetPnl.String())
		assert.Equal(t, "3 days", trades[0].Duration)

		got, err := svc.GetStrategy(ctx, strategy.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.NumberOfTrades)
	})

	t.Run("replayed message is skipped", func(t *testing.T) {
		svc, strategy := newImportFixture(t)
		consumer := &Consumer{importer: svc, logger: zerolog.Nop()}
		msg := kafka.Message{Value: importPayload(t, strategy.ID, "ord-2")}

		require.NoError(t, consumer.processMessage(ctx, msg))
		require.NoError(t, consumer.processMessage(ctx, msg))

		got, err := svc.GetStrategy(ctx, strategy.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.NumberOfTrades)
	})

	t.Run("new import drops cached strategy lists", func(t *testing.T) {
		svc, strategy := newImportFixture(t)
		c := cache.NewMemoryCache()
		consumer := &Consumer{importer: svc, cache: c, logger: zerolog.Nop()}

		tradesKey := cache.StrategyTradesKey(strategy.ID)
		warm := func() {
			require.NoError(t, c.Set(ctx, cache.KeyStrategies, []byte(`{"strategies":[]}`), time.Minute))
			require.NoError(t, c.Set(ctx, tradesKey, []byte(`{"trades":[]}`), time.Minute))
		}
		cached := func(key string) bool {
			_, ok, err := c.Get(ctx, key)
			require.NoError(t, err)
			return ok
		}

		warm()
		msg := kafka.Message{Value: importPayload(t, strategy.ID, "ord-4")}
		require.NoError(t, consumer.processMessage(ctx, msg))
		assert.False(t, cached(cache.KeyStrategies))
		assert.False(t, cached(tradesKey))

		warm()
		require.NoError(t, consumer.processMessage(ctx, msg))
		assert.True(t, cached(cache.KeyStrategies), "replays leave the cache alone")
	})

	t.Run("other event types are ignored", func(t *testing.T) {
		svc, strategy := newImportFixture(t)
		consumer := &Consumer{importer: svc, logger: zerolog.Nop()}

		payload, err := json.Marshal(models.TradeImportEvent{EventType: "POSITIONS_SNAPSHOT"})
		require.NoError(t, err)
		require.NoError(t, consumer.processMessage(ctx, kafka.Message{Value: payload}))

		got, err := svc.GetStrategy(ctx, strategy.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.NumberOfTrades)
	})

	t.Run("malformed payloads are errors", func(t *testing.T) {
		svc, strategy := newImportFixture(t)
		consumer := &Consumer{importer: svc, logger: zerolog.Nop()}

		err := consumer.processMessage(ctx, kafka.Message{Value: []byte("{")})
		assert.Error(t, err)

		var event models.TradeImportEvent
		require.NoError(t, json.Unmarshal(importPayload(t, strategy.ID, "ord-3"), &event))
		event.Data.Entry = "abc"
		payload, err := json.Marshal(event)
		require.NoError(t, err)

		err = consumer.processMessage(ctx, kafka.Message{Value: payload})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid entry")
	})
}

func TestConsumer_Start_consumesAndProcessesMessages(t *testing.T) {
	svc, strategy := newImportFixture(t)
	importer := &signallingImporter{svc: svc, called: make(chan bool, 1)}
	reader := newMockReader("trade-imports", 1)
	consumer := &Consumer{reader: reader, importer: importer, logger: zerolog.Nop()}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- consumer.Start(ctx)
	}()

	reader.msgs <- kafka.Message{Value: importPayload(t, strategy.ID, "ord-9")}

	select {
	case created := <-importer.called:
		assert.True(t, created)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for import to be processed")
	}

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for consumer to shut down")
	}

	reader.mu.Lock()
	assert.Equal(t, 1, reader.closeCalls)
	reader.mu.Unlock()
}

func TestToTradeInput_OptionalFields(t *testing.T) {
	in, err := toTradeInput(models.TradeImportData{
		ExternalID: "x",
		Entry:      "12.5",
		Shares:     3,
	})
	require.NoError(t, err)

	assert.True(t, in.Entry.Valid)
	assert.False(t, in.Exit.Valid)
	assert.False(t, in.Charges.Valid)
	assert.Nil(t, in.EntryDate)

	_, err = toTradeInput(models.TradeImportData{Entry: "1", EntryDate: strPtr("01/02/2024")})
	assert.Error(t, err)
}
