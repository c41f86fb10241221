// Package kafka carries validation analytics events over segmentio/kafka-go.
// The producer serialises events as JSON; the consumer hands raw values to a
// MessageHandler, and DecodeJSON turns them back into typed events.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/patrickoleary/vtkapi-mcp/pkg/config"
	"github.com/segmentio/kafka-go"
)

// MessageHandler processes one message. A returned error is logged and the
// message is still committed; decoding it again would fail the same way.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const (
	minFetchBackoff = 100 * time.Millisecond
	maxFetchBackoff = 5 * time.Second
)

// Consumer feeds one topic, as part of a consumer group, to a handler.
type Consumer struct {
	r       messageReader
	handle  MessageHandler
	log     *slog.Logger
	handled atomic.Int64
}

// NewConsumer joins cfg.ConsumerGroup on topic. A group with no committed
// offset starts at the oldest message, so aggregates include events
// published before the first consumer came up.
func NewConsumer(cfg config.KafkaConfig, topic string, handle MessageHandler) *Consumer {
	return newConsumer(kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          topic,
		GroupID:        cfg.ConsumerGroup,
		MinBytes:       1,
		MaxBytes:       1 << 20,
		MaxWait:        500 * time.Millisecond,
		CommitInterval: time.Second,
		StartOffset:    kafka.FirstOffset,
	}), topic, handle)
}

func newConsumer(r messageReader, topic string, handle MessageHandler) *Consumer {
	return &Consumer{
		r:      r,
		handle: handle,
		log:    slog.Default().With("component", "kafka-consumer", "topic", topic),
	}
}

// Start consumes until ctx is cancelled, then closes the reader. Fetch
// errors back off exponentially up to maxFetchBackoff.
func (c *Consumer) Start(ctx context.Context) error {
	c.log.Info("consumer started")
	defer c.r.Close()

	backoff := minFetchBackoff
	for {
		msg, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info("consumer stopping", "handled", c.handled.Load())
				return nil
			}
			c.log.Error("fetch failed", "error", err, "retry_in", backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil
			}
			backoff = min(backoff*2, maxFetchBackoff)
			continue
		}
		backoff = minFetchBackoff

		if err := c.handle(ctx, msg.Key, msg.Value); err != nil {
			c.log.Warn("skipping message", "partition", msg.Partition, "offset", msg.Offset, "error", err)
		}
		c.handled.Add(1)
		if err := c.r.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.log.Error("commit failed", "partition", msg.Partition, "offset", msg.Offset, "error", err)
		}
	}
}

// Handled is the number of messages passed to the handler so far.
func (c *Consumer) Handled() int64 { return c.handled.Load() }

// Close closes the reader; Start does this itself on cancellation.
func (c *Consumer) Close() error {
	return c.r.Close()
}

// DecodeJSON is a generic helper that unmarshals a Kafka message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}

// Ping dials the first reachable broker, for readiness checks.
func Ping(ctx context.Context, brokers []string) error {
	var lastErr error
	for _, b := range brokers {
		conn, err := kafka.DialContext(ctx, "tcp", b)
		if err != nil {
			lastErr = err
			continue
		}
		return conn.Close()
	}
	if lastErr == nil {
		return fmt.Errorf("no kafka brokers configured")
	}
	return fmt.Errorf("dialing kafka: %w", lastErr)
}
