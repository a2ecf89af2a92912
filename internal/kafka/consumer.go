package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/finfun/internal/models"
)

// EventPortfolioSnapshot is the only event type the consumer acts on
const EventPortfolioSnapshot = "PORTFOLIO_SNAPSHOT"

// PortfolioImporter validates and stores a full set of holdings
type PortfolioImporter interface {
	ImportHoldings(ctx context.Context, holdings []*models.Holding) (*models.Portfolio, error)
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
	Config() kafka.ReaderConfig
}

// Consumer applies portfolio snapshots received from Kafka. Each snapshot
// replaces the stored portfolio.
type Consumer struct {
	reader   messageReader
	importer PortfolioImporter
	logger   zerolog.Logger
}

// NewConsumer creates a new Kafka consumer for portfolio snapshots
func NewConsumer(brokers []string, topic, groupID string, importer PortfolioImporter, logger zerolog.Logger) *Consumer {
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
		logger:   logger.With().Str("component", "kafka_consumer").Logger(),
	}
}

// Start consumes messages until ctx is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info().Str("topic", c.reader.Config().Topic).Msg("starting kafka consumer")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("kafka consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				c.logger.Error().Err(err).Msg("error reading message")
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				c.logger.Error().
					Err(err).
					Int("partition", msg.Partition).
					Int64("offset", msg.Offset).
					Msg("error processing message")
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event models.PortfolioEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal portfolio event: %w", err)
	}

	if event.EventType != EventPortfolioSnapshot {
		c.logger.Debug().Str("event_type", event.EventType).Msg("ignoring event")
		return nil
	}

	holdings, err := convertHoldings(event.Data.Holdings)
	if err != nil {
		return err
	}

	p, err := c.importer.ImportHoldings(ctx, holdings)
	if err != nil {
		return fmt.Errorf("failed to import snapshot from %s: %w", event.Source, err)
	}

	c.logger.Info().
		Str("source", event.Source).
		Str("portfolio_id", p.ID).
		Int("holdings", len(p.Holdings)).
		Msg("applied portfolio snapshot")
	return nil
}

// convertHoldings maps snapshot lines to holdings
func convertHoldings(lines []models.PortfolioEventHolding) ([]*models.Holding, error) {
	holdings := make([]*models.Holding, 0, len(lines))
	for _, l := range lines {
		alloc, err := decimal.NewFromString(strings.TrimSpace(l.AllocationPercentage))
		if err != nil {
			return nil, fmt.Errorf("invalid allocation %q for %s: %w", l.AllocationPercentage, l.Symbol, err)
		}
		holdings = append(holdings, &models.Holding{
			Symbol:               strings.ToUpper(strings.TrimSpace(l.Symbol)),
			AllocationPercentage: alloc,
		})
	}
	return holdings, nil
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
