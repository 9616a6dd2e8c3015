package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/trade-journal/internal/cache"
	"github.com/trogers1052/trade-journal/internal/journal"
	"github.com/trogers1052/trade-journal/internal/models"
)

// TradeImporter stores imported trades idempotently
type TradeImporter interface {
	ImportTrade(ctx context.Context, in journal.TradeInput) (bool, error)
}

// messageReader is the subset of *kafka.Reader the consumer uses
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
	Config() kafka.ReaderConfig
}

// Consumer reads TRADE_IMPORTED events and journals them
type Consumer struct {
	reader   messageReader
	importer TradeImporter
	cache    cache.Cache
	logger   zerolog.Logger
}

// NewConsumer creates a new Kafka consumer for trade import events. Cached
// strategy lists in c are dropped after each new import; c may be nil.
func NewConsumer(brokers []string, topic, groupID string, importer TradeImporter, c cache.Cache, logger zerolog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader:   reader,
		importer: importer,
		cache:    c,
		logger:   logger.With().Str("component", "trade_import_consumer").Logger(),
	}
}

// Start consumes messages until ctx is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info().Str("topic", c.reader.Config().Topic).Msg("Starting Kafka consumer")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info().Msg("Kafka consumer shutting down")
				return c.reader.Close()
			}
			c.logger.Error().Err(err).Msg("Error reading message")
			continue
		}

		if err := c.processMessage(ctx, msg); err != nil {
			c.logger.Error().
				Err(err).
				Int("partition", msg.Partition).
				Int64("offset", msg.Offset).
				Msg("Error processing message")
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event models.TradeImportEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal trade import event: %w", err)
	}

	if event.EventType != models.EventTradeImported {
		c.logger.Debug().Str("event_type", event.EventType).Msg("Ignoring event type")
		return nil
	}

	in, err := toTradeInput(event.Data)
	if err != nil {
		return fmt.Errorf("failed to convert imported trade %s: %w", event.Data.ExternalID, err)
	}

	created, err := c.importer.ImportTrade(ctx, in)
	if err != nil {
		return fmt.Errorf("failed to import trade %s: %w", in.ExternalID, err)
	}

	if !created {
		c.logger.Info().
			Str("external_id", in.ExternalID).
			Str("source", event.Source).
			Msg("Trade already imported, skipping")
		return nil
	}

	if c.cache != nil {
		keys := []string{cache.KeyStrategies, cache.StrategyTradesKey(in.StrategyID)}
		if err := c.cache.Delete(ctx, keys...); err != nil {
			c.logger.Warn().Err(err).Strs("keys", keys).Msg("Failed to invalidate cache")
		}
	}

	c.logger.Info().
		Str("external_id", in.ExternalID).
		Str("source", event.Source).
		Str("strategy_id", in.StrategyID).
		Str("side", in.Side).
		Int64("shares", in.Shares).
		Msg("Imported trade")
	return nil
}

// toTradeInput parses the string-encoded prices and dates of an import payload
func toTradeInput(data models.TradeImportData) (journal.TradeInput, error) {
	in := journal.TradeInput{
		ExternalID: data.ExternalID,
		StrategyID: data.StrategyID,
		Name:       data.Name,
		Side:       data.Side,
		Shares:     data.Shares,
		Time:       data.Time,
		EntryRules: data.EntryRules,
		ExitRules:  data.ExitRules,
	}

	entry, err := decimal.NewFromString(data.Entry)
	if err != nil {
		return in, fmt.Errorf("invalid entry %q: %w", data.Entry, err)
	}
	in.Entry = decimal.NewNullDecimal(entry)

	if data.Charges != "" {
		charges, err := decimal.NewFromString(data.Charges)
		if err != nil {
			return in, fmt.Errorf("invalid charges %q: %w", data.Charges, err)
		}
		in.Charges = decimal.NewNullDecimal(charges)
	}

	if in.Exit, err = optionalDecimal("exit", data.Exit); err != nil {
		return in, err
	}
	if in.StopLoss, err = optionalDecimal("stop_loss", data.StopLoss); err != nil {
		return in, err
	}
	if in.Target, err = optionalDecimal("target", data.Target); err != nil {
		return in, err
	}
	if in.EntryDate, err = optionalDate("entry_date", data.EntryDate); err != nil {
		return in, err
	}
	if in.ExitDate, err = optionalDate("exit_date", data.ExitDate); err != nil {
		return in, err
	}
	return in, nil
}

func optionalDecimal(field string, s *string) (decimal.NullDecimal, error) {
	if s == nil || *s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("invalid %s %q: %w", field, *s, err)
	}
	return decimal.NewNullDecimal(d), nil
}

func optionalDate(field string, s *string) (*models.Date, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	d, err := models.ParseDate(*s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", field, err)
	}
	return &d, nil
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
