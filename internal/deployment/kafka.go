package deployment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	kafka "github.com/segmentio/kafka-go"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/chainfleet/internal/placement"
)

// MessageReader is the subset of *kafka.Reader the event source uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// MessageWriter is the subset of *kafka.Writer the provisioner uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaConfig locates the orchestrator topics.
type KafkaConfig struct {
	Brokers []string
	// RequestTopic receives cluster creation requests.
	RequestTopic string
	// EventTopic carries deployment events keyed by session id.
	EventTopic string
	// GroupPrefix prefixes the per-session consumer group.
	GroupPrefix string
}

// EventSource streams the events of one session from Kafka. Events for a
// session share a message key, so they land on one partition in order.
type EventSource struct {
	newReader func(sessionID string) MessageReader
}

// NewEventSource creates a source reading cfg.EventTopic.
func NewEventSource(cfg KafkaConfig) *EventSource {
	return &EventSource{
		newReader: func(sessionID string) MessageReader {
			return kafka.NewReader(kafka.ReaderConfig{
				Brokers:     cfg.Brokers,
				Topic:       cfg.EventTopic,
				GroupID:     cfg.GroupPrefix + sessionID,
				MaxBytes:    10 * 1024 * 1024,
				StartOffset: kafka.FirstOffset,
			})
		},
	}
}

// NewEventSourceFromReader creates a source over readers built by newReader.
func NewEventSourceFromReader(newReader func(sessionID string) MessageReader) *EventSource {
	return &EventSource{newReader: newReader}
}

// Stream returns the ordered updates of sessionID. The channel is closed
// after COMPLETED, after an error update, or when ctx is done.
func (s *EventSource) Stream(ctx context.Context, sessionID string) <-chan Update {
	out := make(chan Update)
	reader := s.newReader(sessionID)
	logger := log.FromContext(ctx).WithValues("session", sessionID)

	go func() {
		defer close(out)
		defer func() {
			if err := reader.Close(); err != nil {
				logger.Error(err, "failed to close event reader")
			}
		}()

		send := func(u Update) bool {
			select {
			case out <- u:
				return true
			case <-ctx.Done():
				return false
			}
		}

		commit := func(msg kafka.Message) {
			if err := reader.CommitMessages(ctx, msg); err != nil {
				logger.Error(err, "failed to commit deployment event", "offset", msg.Offset)
			}
		}

		for {
			msg, err := reader.FetchMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return
				}
				send(Update{Err: fmt.Errorf("failed to read deployment event: %w", err)})
				return
			}

			if string(msg.Key) != sessionID {
				commit(msg)
				continue
			}

			var ev Event
			if err := json.Unmarshal(msg.Value, &ev); err != nil {
				commit(msg)
				send(Update{Err: fmt.Errorf("failed to decode deployment event at offset %d: %w", msg.Offset, err)})
				return
			}

			commit(msg)
			if !send(Update{Event: &ev}) {
				return
			}
			if ev.Type == EventCompleted {
				return
			}
		}
	}()
	return out
}

// ClusterRequest is the message asking the orchestrator for a cluster.
type ClusterRequest struct {
	SessionID string                   `json:"sessionId"`
	Placement *placement.Specification `json:"placement"`
	Model     ModelSpec                `json:"model"`
}

// KafkaProvisioner publishes cluster requests and follows their events.
type KafkaProvisioner struct {
	writer MessageWriter
	topic  string
	events *EventSource
	newID  func() string
}

var _ Provisioner = (*KafkaProvisioner)(nil)

// NewKafkaProvisioner creates a provisioner publishing to topic.
func NewKafkaProvisioner(writer MessageWriter, topic string, events *EventSource) *KafkaProvisioner {
	return &KafkaProvisioner{writer: writer, topic: topic, events: events, newID: uuid.NewString}
}

// NewKafkaWriter creates the writer used for cluster requests.
func NewKafkaWriter(cfg KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
}

// CreateCluster implements Provisioner. The event stream stops when ctx is
// done.
func (p *KafkaProvisioner) CreateCluster(ctx context.Context, spec *placement.Specification, model ModelSpec) (<-chan Update, error) {
	sessionID := p.newID()
	payload, err := json.Marshal(ClusterRequest{SessionID: sessionID, Placement: spec, Model: model})
	if err != nil {
		return nil, fmt.Errorf("failed to encode cluster request: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.topic,
		Key:   []byte(sessionID),
		Value: payload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to publish cluster request: %w", err)
	}
	log.FromContext(ctx).Info("cluster requested", "session", sessionID, "replicas", spec.Size())

	return p.events.Stream(ctx, sessionID), nil
}
