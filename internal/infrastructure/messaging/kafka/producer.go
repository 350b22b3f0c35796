// Package kafka publishes scoring progress events and reads them back for
// operator tooling.
package kafka

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/npl-scorer/internal/application/scoring"
	"github.com/turtacn/npl-scorer/internal/config"
	"github.com/turtacn/npl-scorer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/npl-scorer/pkg/errors"
)

var (
	ErrProducerClosed = errors.New(errors.ErrCodeEventPublish, "producer closed")
)

// ProducerMetrics holds producer counters.
type ProducerMetrics struct {
	MessagesSent   atomic.Int64
	MessagesFailed atomic.Int64
	BytesSent      atomic.Int64
	LastSentAt     atomic.Value // time.Time
}

// WriterInterface abstracts kafka.Writer for testing.
type WriterInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
	Stats() kafka.WriterStats
}

// Producer writes scoring events to one topic.
type Producer struct {
	writer  WriterInterface
	topic   string
	source  string
	logger  logging.Logger
	closed  atomic.Bool
	metrics *ProducerMetrics
}

var _ scoring.EventPublisher = (*Producer)(nil)

// NewProducer creates a Producer for cfg.Topic.
func NewProducer(cfg config.KafkaConfig, logger logging.Logger) (*Producer, error) {
	if err := ValidateProducerConfig(cfg); err != nil {
		return nil, err
	}

	batchSize := cfg.BatchSize
	if batchSize == 0 {
		batchSize = 100
	}
	batchTimeout := cfg.BatchTimeout
	if batchTimeout == 0 {
		batchTimeout = time.Second
	}

	var compression kafka.Compression
	switch cfg.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "snappy":
		compression = kafka.Snappy
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		MaxAttempts:  4,
		BatchSize:    batchSize,
		BatchTimeout: batchTimeout,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:  compression,
		Transport:    &kafka.Transport{DialTimeout: 10 * time.Second, ClientID: cfg.ClientID},
	}

	return newProducer(writer, cfg.Topic, cfg.ClientID, logger), nil
}

func newProducer(w WriterInterface, topic, source string, logger logging.Logger) *Producer {
	if source == "" {
		source = "npl-scorer"
	}
	return &Producer{
		writer:  w,
		topic:   topic,
		source:  source,
		logger:  logger,
		metrics: &ProducerMetrics{},
	}
}

// Publish implements scoring.EventPublisher.  Messages are keyed by molecule
// id when present and by run id otherwise, so per-molecule events keep
// their order within a partition.
func (p *Producer) Publish(ctx context.Context, ev scoring.Event) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}

	env, err := NewEventEnvelope(ev, p.source)
	if err != nil {
		return err
	}
	msg, err := env.ToMessage()
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.metrics.MessagesFailed.Add(1)
		return errors.Wrap(err, errors.ErrCodeEventPublish, "publish failed")
	}

	p.metrics.MessagesSent.Add(1)
	p.metrics.BytesSent.Add(int64(len(msg.Value)))
	p.metrics.LastSentAt.Store(time.Now())

	p.logger.Debug("Event published",
		logging.String("topic", p.topic),
		logging.String("event_type", string(ev.Type)))
	return nil
}

// GetMetrics returns a metrics snapshot.
func (p *Producer) GetMetrics() ProducerMetrics {
	m := ProducerMetrics{}
	m.MessagesSent.Store(p.metrics.MessagesSent.Load())
	m.MessagesFailed.Store(p.metrics.MessagesFailed.Load())
	m.BytesSent.Store(p.metrics.BytesSent.Load())
	if v := p.metrics.LastSentAt.Load(); v != nil {
		m.LastSentAt.Store(v)
	}
	return m
}

// Close flushes pending messages and closes the writer.
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := p.writer.Close()
	p.logger.Info("Kafka producer closed", logging.Int64("sent", p.metrics.MessagesSent.Load()))
	return err
}

func ValidateProducerConfig(cfg config.KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return errors.New(errors.ErrCodeValidation, "Brokers required")
	}
	if cfg.Topic == "" {
		return errors.New(errors.ErrCodeValidation, "Topic required")
	}
	switch cfg.RequiredAcks {
	case -1, 0, 1:
	default:
		return errors.New(errors.ErrCodeValidation, "RequiredAcks must be -1, 0 or 1")
	}
	return nil
}
