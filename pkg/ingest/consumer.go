package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

const (
	readerMinBytes       = 10e3
	readerMaxBytes       = 10e6
	readerCommitInterval = time.Second
)

// Event is the upstream envelope published by the social system whenever
// something notification-worthy happens.
type Event struct {
	UserID uuid.UUID `json:"user_id"`
	// Name is the domain event, e.g. "like" or "comment". It maps onto the
	// content builder's event vocabulary.
	Name   string            `json:"event"`
	Params map[string]string `json:"params,omitempty"`
	// Priority optionally overrides the default; empty means normal.
	Priority string `json:"priority,omitempty"`
}

// Handler turns one decoded event into a notification. The engine facade
// provides an adapter for it.
type Handler func(ctx context.Context, event Event) error

// MessageSource abstracts the Kafka reader so tests can feed messages
// directly. *kafka.Reader satisfies it.
type MessageSource interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Config holds the Kafka consumer settings.
type Config struct {
	Brokers []string `env:"INGEST_KAFKA_BROKERS" envDefault:"localhost:9092"`
	Topic   string   `env:"INGEST_KAFKA_TOPIC" envDefault:"notification-events"`
	GroupID string   `env:"INGEST_KAFKA_GROUP" envDefault:"notifykit"`
}

// Consumer reads upstream events from Kafka and hands each one to the
// handler. A message that cannot be decoded or handled is logged and
// skipped; the stream never stalls on one bad event.
type Consumer struct {
	source  MessageSource
	handler Handler
	logger  *slog.Logger

	closeOnce sync.Once
}

// ConsumerOption configures a Consumer.
type ConsumerOption func(*Consumer)

// WithConsumerLogger sets the logger.
func WithConsumerLogger(log *slog.Logger) ConsumerOption {
	return func(c *Consumer) {
		if log != nil {
			c.logger = log
		}
	}
}

// WithSource replaces the Kafka reader, mainly for tests.
func WithSource(src MessageSource) ConsumerOption {
	return func(c *Consumer) {
		if src != nil {
			c.source = src
		}
	}
}

// NewConsumer creates a consumer for the configured topic.
func NewConsumer(cfg Config, handler Handler, opts ...ConsumerOption) (*Consumer, error) {
	if handler == nil {
		return nil, ErrHandlerNil
	}

	c := &Consumer{
		handler: handler,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.source == nil {
		if len(cfg.Brokers) == 0 {
			return nil, ErrNoBrokers
		}
		if cfg.Topic == "" {
			return nil, ErrNoTopic
		}
		c.source = kafka.NewReader(kafka.ReaderConfig{
			Brokers:        cfg.Brokers,
			GroupID:        cfg.GroupID,
			Topic:          cfg.Topic,
			MinBytes:       readerMinBytes,
			MaxBytes:       readerMaxBytes,
			CommitInterval: readerCommitInterval,
			StartOffset:    kafka.LastOffset,
		})
	}

	return c, nil
}

// Start consumes until the context is cancelled, then closes the reader.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.InfoContext(ctx, "ingest consumer started")

	for {
		msg, err := c.source.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.InfoContext(ctx, "ingest consumer stopping")
				return c.Close()
			}
			c.logger.ErrorContext(ctx, "kafka read failed", logger.Error(err))
			continue
		}

		if err := c.process(ctx, msg); err != nil {
			c.logger.ErrorContext(ctx, "ingest event skipped",
				logger.Error(err),
				slog.String("topic", msg.Topic),
				slog.Int64("offset", msg.Offset))
		}
	}
}

// Run adapts Start for errgroup.Go.
func (c *Consumer) Run(ctx context.Context) func() error {
	return func() error {
		return c.Start(ctx)
	}
}

// Close releases the Kafka reader. Safe to call more than once.
func (c *Consumer) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.source.Close()
	})
	return err
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) error {
	event, err := decodeEvent(msg.Value)
	if err != nil {
		return err
	}
	if err := c.handler(ctx, event); err != nil {
		return fmt.Errorf("handle %q event: %w", event.Name, err)
	}
	return nil
}

func decodeEvent(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, errors.Join(ErrMalformedEvent, err)
	}
	if e.UserID == uuid.Nil {
		return Event{}, fmt.Errorf("%w: user_id is required", ErrMalformedEvent)
	}
	if e.Name == "" {
		return Event{}, fmt.Errorf("%w: event is required", ErrMalformedEvent)
	}
	return e, nil
}
