package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/npl-scorer/internal/application/scoring"
	"github.com/turtacn/npl-scorer/internal/infrastructure/monitoring/logging"
)

type mockConn struct {
	created    []kafka.TopicConfig
	createErr  error
	partitions map[string][]kafka.Partition
}

func (m *mockConn) CreateTopics(topics ...kafka.TopicConfig) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, topics...)
	return nil
}

func (m *mockConn) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	if len(topics) == 1 {
		if p, ok := m.partitions[topics[0]]; ok {
			return p, nil
		}
	}
	return nil, errors.New("unknown topic")
}

func (m *mockConn) Close() error { return nil }

func TestEnsureTopic_Creates(t *testing.T) {
	conn := &mockConn{}
	m := &TopicManager{conn: conn, logger: logging.NewNopLogger()}

	require.NoError(t, m.EnsureTopic(context.Background(), EventsTopic("npl.scoring.events")))
	require.Len(t, conn.created, 1)
	assert.Equal(t, "npl.scoring.events", conn.created[0].Topic)
	assert.Equal(t, 6, conn.created[0].NumPartitions)
	require.Len(t, conn.created[0].ConfigEntries, 1)
	assert.Equal(t, "retention.ms", conn.created[0].ConfigEntries[0].ConfigName)
}

func TestEnsureTopic_Existing(t *testing.T) {
	conn := &mockConn{partitions: map[string][]kafka.Partition{"t": {{Topic: "t"}}}}
	m := &TopicManager{conn: conn, logger: logging.NewNopLogger()}

	require.NoError(t, m.EnsureTopic(context.Background(), EventsTopic("t")))
	assert.Empty(t, conn.created)
}

func TestEnsureTopic_AlreadyExistsRace(t *testing.T) {
	m := &TopicManager{conn: &mockConn{createErr: kafka.TopicAlreadyExists}, logger: logging.NewNopLogger()}
	assert.NoError(t, m.EnsureTopic(context.Background(), EventsTopic("t")))
}

func TestEnsureTopic_Invalid(t *testing.T) {
	m := &TopicManager{conn: &mockConn{}, logger: logging.NewNopLogger()}
	assert.Error(t, m.EnsureTopic(context.Background(), TopicSpec{}))
	assert.Error(t, m.EnsureTopic(context.Background(), TopicSpec{Name: "t"}))
}

func TestEnvelope_EmptyPayload(t *testing.T) {
	_, err := (&EventEnvelope{}).Event()
	assert.Error(t, err)

	_, err = MessageToEventEnvelope(kafka.Message{})
	assert.Error(t, err)
}

func TestNewEventEnvelope_UsesOccurredAt(t *testing.T) {
	ev := scoring.Event{Type: scoring.EventBatchCompleted, RunID: "r"}
	env, err := NewEventEnvelope(ev, "src")
	require.NoError(t, err)
	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, "batch.completed", env.EventType)
	assert.Equal(t, "src", env.Source)
}
