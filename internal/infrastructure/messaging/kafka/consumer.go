package kafka

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/npl-scorer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/npl-scorer/pkg/errors"
)

var (
	ErrAlreadyRunning = errors.New(errors.ErrCodeConflict, "consumer already running")
)

// ConsumerConfig holds configuration for the Consumer.
type ConsumerConfig struct {
	Brokers []string
	GroupID string
	Topic   string
	// FromBeginning starts a new group at the oldest offset.
	FromBeginning bool
}

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// EnvelopeHandler receives one decoded envelope.  Returning an error stops
// the consumer without committing the message.
type EnvelopeHandler func(ctx context.Context, env *EventEnvelope) error

// Consumer reads scoring events back, for the events tail command.
type Consumer struct {
	reader  ReaderInterface
	logger  logging.Logger
	running atomic.Bool
	backoff time.Duration

	consumed atomic.Int64
	skipped  atomic.Int64
}

// NewConsumer creates a group consumer on cfg.Topic.
func NewConsumer(cfg ConsumerConfig, logger logging.Logger) (*Consumer, error) {
	if err := ValidateConsumerConfig(cfg); err != nil {
		return nil, err
	}
	start := kafka.LastOffset
	if cfg.FromBeginning {
		start = kafka.FirstOffset
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		MinBytes:    1,
		MaxBytes:    10 * 1024 * 1024,
		MaxWait:     time.Second,
		StartOffset: start,
	})
	return newConsumer(reader, logger), nil
}

func newConsumer(r ReaderInterface, logger logging.Logger) *Consumer {
	return &Consumer{reader: r, logger: logger, backoff: time.Second}
}

// Run blocks, passing each envelope to handle, until ctx is cancelled or
// handle fails.  Undecodable messages are logged, committed and skipped.
func (c *Consumer) Run(ctx context.Context, handle EnvelopeHandler) error {
	if c.running.Swap(true) {
		return ErrAlreadyRunning
	}
	defer c.running.Store(false)

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("FetchMessage error", logging.Err(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.backoff):
			}
			continue
		}
		c.consumed.Add(1)

		env, err := MessageToEventEnvelope(m)
		if err != nil {
			c.skipped.Add(1)
			c.logger.Warn("Skipping undecodable event",
				logging.Int64("offset", m.Offset),
				logging.Int("partition", m.Partition),
				logging.Err(err))
		} else if err := handle(ctx, env); err != nil {
			return err
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			c.logger.Error("CommitMessages failed", logging.Err(err))
		}
	}
}

// Consumed returns how many messages were fetched.
func (c *Consumer) Consumed() int64 { return c.consumed.Load() }

// Skipped returns how many messages could not be decoded.
func (c *Consumer) Skipped() int64 { return c.skipped.Load() }

func (c *Consumer) Close() error {
	err := c.reader.Close()
	c.logger.Info("Kafka consumer closed", logging.Int64("consumed", c.consumed.Load()))
	return err
}

// ValidateConsumerConfig validates configuration.
func ValidateConsumerConfig(cfg ConsumerConfig) error {
	if len(cfg.Brokers) == 0 {
		return errors.New(errors.ErrCodeValidation, "Brokers required")
	}
	if cfg.GroupID == "" {
		return errors.New(errors.ErrCodeValidation, "GroupID required")
	}
	if cfg.Topic == "" {
		return errors.New(errors.ErrCodeValidation, "Topic required")
	}
	return nil
}
