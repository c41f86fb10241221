package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/patrickoleary/vtkapi-mcp/pkg/config"
	"github.com/segmentio/kafka-go"
)

// Event is one analytics record on the wire. Key selects the partition so
// every event of a kind lands on the same partition and keeps its order.
type Event struct {
	Key   string
	Value any
}

const contentTypeHeader = "content-type"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes batches of events to one topic.
type Producer struct {
	w     messageWriter
	topic string
	log   *slog.Logger
}

// NewProducer returns a synchronous producer for topic. Writes wait for the
// leader's ack only; analytics tolerate the rare loss on leader failover.
func NewProducer(cfg config.KafkaConfig, topic string) *Producer {
	return newProducer(&kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              100,
		BatchTimeout:           10 * time.Millisecond,
		MaxAttempts:            3,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}, topic)
}

func newProducer(w messageWriter, topic string) *Producer {
	return &Producer{
		w:     w,
		topic: topic,
		log:   slog.Default().With("component", "kafka-producer", "topic", topic),
	}
}

// PublishBatch encodes events and writes them in one call. An event that
// cannot be encoded fails the whole batch before anything is sent.
func (p *Producer) PublishBatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	msgs, err := encodeBatch(events)
	if err != nil {
		return err
	}
	start := time.Now()
	if err := p.w.WriteMessages(ctx, msgs...); err != nil {
		p.log.Error("batch write failed", "count", len(msgs), "error", err)
		return fmt.Errorf("writing %d events to %s: %w", len(msgs), p.topic, err)
	}
	p.log.Debug("batch written", "count", len(msgs), "took", time.Since(start))
	return nil
}

// Close flushes buffered messages and releases broker connections.
func (p *Producer) Close() error {
	return p.w.Close()
}

func encodeBatch(events []Event) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, len(events))
	for i, ev := range events {
		value, err := json.Marshal(ev.Value)
		if err != nil {
			return nil, fmt.Errorf("encoding event %d (key %q): %w", i, ev.Key, err)
		}
		msgs[i] = kafka.Message{
			Key:     []byte(ev.Key),
			Value:   value,
			Headers: []kafka.Header{{Key: contentTypeHeader, Value: []byte("application/json")}},
		}
	}
	return msgs, nil
}
