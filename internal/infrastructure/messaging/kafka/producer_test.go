package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/npl-scorer/internal/application/scoring"
	"github.com/turtacn/npl-scorer/internal/config"
	"github.com/turtacn/npl-scorer/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/npl-scorer/pkg/errors"
)

// mockKafkaWriter
type mockKafkaWriter struct {
	writeFunc func(ctx context.Context, msgs ...kafka.Message) error
	closeFunc func() error
	written   []kafka.Message
}

func (m *mockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if m.writeFunc != nil {
		return m.writeFunc(ctx, msgs...)
	}
	m.written = append(m.written, msgs...)
	return nil
}

func (m *mockKafkaWriter) Close() error {
	if m.closeFunc != nil {
		return m.closeFunc()
	}
	return nil
}

func (m *mockKafkaWriter) Stats() kafka.WriterStats { return kafka.WriterStats{} }

func newTestProducer(w WriterInterface) *Producer {
	return newProducer(w, "npl.scoring.events", "test", logging.NewNopLogger())
}

func headerValue(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestValidateProducerConfig(t *testing.T) {
	valid := config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t", RequiredAcks: -1}
	assert.NoError(t, ValidateProducerConfig(valid))

	noBrokers := valid
	noBrokers.Brokers = nil
	assert.Error(t, ValidateProducerConfig(noBrokers))

	noTopic := valid
	noTopic.Topic = ""
	assert.Error(t, ValidateProducerConfig(noTopic))

	badAcks := valid
	badAcks.RequiredAcks = 2
	assert.Error(t, ValidateProducerConfig(badAcks))
}

func TestNewProducer(t *testing.T) {
	p, err := NewProducer(config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t", Compression: "lz4"}, logging.NewNopLogger())
	require.NoError(t, err)
	assert.NoError(t, p.Close())
}

func TestPublish_MoleculeEventKeyedByMolecule(t *testing.T) {
	w := &mockKafkaWriter{}
	p := newTestProducer(w)
	score := 0.42

	err := p.Publish(context.Background(), scoring.Event{
		Type:       scoring.EventMoleculeScored,
		RunID:      "run-1",
		MoleculeID: "m7",
		NPLScore:   &score,
		OccurredAt: time.Now(),
	})
	require.NoError(t, err)
	require.Len(t, w.written, 1)

	msg := w.written[0]
	assert.Equal(t, "m7", string(msg.Key))
	assert.Equal(t, "molecule.scored", headerValue(msg, "event_type"))
	assert.Equal(t, "test", headerValue(msg, "source_service"))

	env, err := MessageToEventEnvelope(msg)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, env.SchemaVersion)
	assert.Equal(t, "run-1", env.RunID)

	ev, err := env.Event()
	require.NoError(t, err)
	assert.Equal(t, "m7", ev.MoleculeID)
	require.NotNil(t, ev.NPLScore)
	assert.InDelta(t, score, *ev.NPLScore, 1e-12)
	m := p.GetMetrics()
	assert.Equal(t, int64(1), m.MessagesSent.Load())
}

func TestPublish_RunEventKeyedByRun(t *testing.T) {
	w := &mockKafkaWriter{}
	p := newTestProducer(w)

	require.NoError(t, p.Publish(context.Background(), scoring.Event{
		Type:    scoring.EventRunCompleted,
		RunID:   "run-9",
		Summary: &scoring.Summary{RunID: "run-9", Scored: 3},
	}))
	require.Len(t, w.written, 1)
	assert.Equal(t, "run-9", string(w.written[0].Key))

	var env EventEnvelope
	require.NoError(t, json.Unmarshal(w.written[0].Value, &env))
	assert.False(t, env.Timestamp.IsZero())
}

func TestPublish_WriteError(t *testing.T) {
	w := &mockKafkaWriter{writeFunc: func(context.Context, ...kafka.Message) error {
		return errors.New("broker down")
	}}
	p := newTestProducer(w)

	err := p.Publish(context.Background(), scoring.Event{Type: scoring.EventBatchCompleted, RunID: "r"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeEventPublish))
	m := p.GetMetrics()
	assert.Equal(t, int64(1), m.MessagesFailed.Load())
}

func TestPublish_AfterClose(t *testing.T) {
	closed := 0
	p := newTestProducer(&mockKafkaWriter{closeFunc: func() error { closed++; return nil }})

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, closed)

	err := p.Publish(context.Background(), scoring.Event{Type: scoring.EventBatchCompleted})
	assert.ErrorIs(t, err, ErrProducerClosed)
}
