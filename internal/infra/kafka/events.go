package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/zaynrix/trustedvalley-backend/internal/core/domain"
	"github.com/zaynrix/trustedvalley-backend/internal/core/port"
	"github.com/zaynrix/trustedvalley-backend/internal/infra/config"
)

const schemaVersion = "1.0"

const (
	EventUserMigrated       = "trustedvalley.user.migrated"
	EventMigrationCompleted = "trustedvalley.migration.completed"
)

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

var _ port.EventPublisher = (*EventPublisher)(nil)

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	UserID    string           `json:"user_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, key, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}
	if key != "" {
		message.Key = sarama.StringEncoder(key)
	}

	select {
	case p.producer.Producer().Input() <- message:
		p.logger.Debug("event enqueued",
			zap.String("event_type", eventType),
			zap.String("event_id", id),
		)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishUserMigrated publishes trustedvalley.user.migrated events keyed by user id.
func (p *EventPublisher) PublishUserMigrated(ctx context.Context, event domain.UserMigratedEvent) error {
	payload := struct {
		UserID           string    `json:"user_id"`
		Email            string    `json:"email"`
		Role             string    `json:"role"`
		Collection       string    `json:"collection"`
		SourceDocID      string    `json:"source_doc_id"`
		Created          bool      `json:"created"`
		PasswordResetDue bool      `json:"password_reset_due"`
		MigratedAt       time.Time `json:"migrated_at"`
	}{
		UserID:           event.UserID,
		Email:            event.Email,
		Role:             event.Role.String(),
		Collection:       event.Collection,
		SourceDocID:      event.SourceDocID,
		Created:          event.Created,
		PasswordResetDue: event.PasswordResetDue,
		MigratedAt:       event.MigratedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, EventUserMigrated, event.UserID, event.UserID, event.MigratedAt, payload)
}

// PublishMigrationCompleted publishes the run summary keyed by run id.
func (p *EventPublisher) PublishMigrationCompleted(ctx context.Context, event domain.MigrationCompletedEvent) error {
	payload := struct {
		RunID         string    `json:"run_id"`
		MigratedCount int       `json:"migrated_count"`
		ErrorCount    int       `json:"error_count"`
		StartedAt     time.Time `json:"started_at"`
		FinishedAt    time.Time `json:"finished_at"`
		DurationMS    int64     `json:"duration_ms"`
	}{
		RunID:         event.RunID,
		MigratedCount: event.MigratedCount,
		ErrorCount:    event.ErrorCount,
		StartedAt:     event.StartedAt.UTC(),
		FinishedAt:    event.FinishedAt.UTC(),
		DurationMS:    event.FinishedAt.Sub(event.StartedAt).Milliseconds(),
	}

	return p.publish(ctx, event.EventID, EventMigrationCompleted, event.RunID, "", event.FinishedAt, payload)
}
