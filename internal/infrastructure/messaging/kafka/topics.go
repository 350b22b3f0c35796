package kafka

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/turtacn/npl-scorer/internal/application/scoring"
	"github.com/turtacn/npl-scorer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/npl-scorer/pkg/errors"
)

// SchemaVersion of EventEnvelope.
const SchemaVersion = "v1"

// EventEnvelope wraps every published scoring event.
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	SchemaVersion string          `json:"schema_version"`
	RunID         string          `json:"run_id"`
	Payload       json.RawMessage `json:"payload"`

	key string
}

func NewEventEnvelope(ev scoring.Event, source string) (*EventEnvelope, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal event")
	}
	ts := ev.OccurredAt
	if ts.IsZero() {
		ts = time.Now()
	}
	key := ev.MoleculeID
	if key == "" {
		key = ev.RunID
	}
	return &EventEnvelope{
		key:           key,
		EventID:       uuid.NewString(),
		EventType:     string(ev.Type),
		Source:        source,
		Timestamp:     ts.UTC(),
		SchemaVersion: SchemaVersion,
		RunID:         ev.RunID,
		Payload:       data,
	}, nil
}

// Event decodes the payload.
func (e *EventEnvelope) Event() (scoring.Event, error) {
	var ev scoring.Event
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return ev, errors.New(errors.ErrCodeSerialization, "empty event payload")
	}
	if err := json.Unmarshal(e.Payload, &ev); err != nil {
		return ev, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal event")
	}
	return ev, nil
}

// ToMessage encodes the envelope as a Kafka message without a topic; the
// writer supplies it.
func (e *EventEnvelope) ToMessage() (kafka.Message, error) {
	val, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal envelope")
	}
	key := e.key
	if key == "" {
		key = e.RunID
	}
	return kafka.Message{
		Key:   []byte(key),
		Value: val,
		Time:  e.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.EventType)},
			{Key: "source_service", Value: []byte(e.Source)},
			{Key: "schema_version", Value: []byte(e.SchemaVersion)},
		},
	}, nil
}

func MessageToEventEnvelope(msg kafka.Message) (*EventEnvelope, error) {
	if len(msg.Value) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "empty message value")
	}
	var env EventEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal envelope")
	}
	return &env, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// TopicManager
// ─────────────────────────────────────────────────────────────────────────────

// ConnInterface abstracts kafka.Conn for testing.
type ConnInterface interface {
	CreateTopics(topics ...kafka.TopicConfig) error
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	Close() error
}

// TopicSpec describes a topic to create.
type TopicSpec struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
	RetentionMs       int64
}

// EventsTopic returns the default settings for the scoring events topic.
func EventsTopic(name string) TopicSpec {
	return TopicSpec{Name: name, NumPartitions: 6, ReplicationFactor: 1, RetentionMs: 7 * 24 * 3600 * 1000}
}

// TopicManager creates topics at startup.
type TopicManager struct {
	conn   ConnInterface
	logger logging.Logger
}

func NewTopicManager(brokers []string, logger logging.Logger) (*TopicManager, error) {
	if len(brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "brokers required")
	}
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeEventPublish, "failed to dial kafka")
	}
	return &TopicManager{conn: conn, logger: logger}, nil
}

// EnsureTopic creates the topic unless it exists.
func (m *TopicManager) EnsureTopic(ctx context.Context, spec TopicSpec) error {
	if spec.Name == "" {
		return errors.New(errors.ErrCodeValidation, "topic name required")
	}
	if spec.NumPartitions <= 0 || spec.ReplicationFactor <= 0 {
		return errors.New(errors.ErrCodeValidation, "partitions and replication factor must be > 0")
	}
	if exists, _ := m.TopicExists(ctx, spec.Name); exists {
		return nil
	}

	kCfg := kafka.TopicConfig{
		Topic:             spec.Name,
		NumPartitions:     spec.NumPartitions,
		ReplicationFactor: spec.ReplicationFactor,
	}
	if spec.RetentionMs > 0 {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries, kafka.ConfigEntry{
			ConfigName: "retention.ms", ConfigValue: fmt.Sprintf("%d", spec.RetentionMs),
		})
	}

	if err := m.conn.CreateTopics(kCfg); err != nil {
		if stderrors.Is(err, kafka.TopicAlreadyExists) {
			return nil
		}
		return errors.Wrap(err, errors.ErrCodeEventPublish, "failed to create topic "+spec.Name)
	}
	m.logger.Info("Topic created", logging.String("topic", spec.Name))
	return nil
}

func (m *TopicManager) TopicExists(_ context.Context, name string) (bool, error) {
	partitions, err := m.conn.ReadPartitions(name)
	if err != nil {
		return false, nil
	}
	return len(partitions) > 0, nil
}

func (m *TopicManager) Close() error {
	return m.conn.Close()
}
