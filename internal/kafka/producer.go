package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/finfun/internal/models"
)

// EventStockScored is the event type emitted for every scored record
const EventStockScored = "STOCK_SCORED"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer handles publishing score events to Kafka
type Producer struct {
	writer messageWriter
	topic  string
	now    func() time.Time
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
		now:    time.Now,
	}
}

// Topic returns the topic events are written to
func (p *Producer) Topic() string {
	return p.topic
}

// PublishScores publishes one STOCK_SCORED event per record, keyed by symbol.
// All messages go out in a single batch.
func (p *Producer) PublishScores(ctx context.Context, runID string, records []*models.ScoredRecord) error {
	if len(records) == 0 {
		return nil
	}

	ts := p.now().UTC()
	msgs := make([]kafka.Message, 0, len(records))
	for _, r := range records {
		event := models.ScoreEvent{
			EventType: EventStockScored,
			RunID:     runID,
			Symbol:    r.Symbol,
			Score:     r,
			Timestamp: ts,
		}
		msg, err := encode(r.Symbol, event)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	return nil
}

func encode(key string, event models.ScoreEvent) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(key),
		Value: data,
	}, nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
