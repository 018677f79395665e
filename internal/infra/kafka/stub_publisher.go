package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/zaynrix/trustedvalley-backend/internal/core/domain"
	"github.com/zaynrix/trustedvalley-backend/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Used when kafka.enabled is false.
type StubPublisher struct {
	logger *zap.Logger
}

var _ port.EventPublisher = (*StubPublisher)(nil)

func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, fields ...zap.Field) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	base := []zap.Field{
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
	}
	p.logger.Debug("stub event published", append(base, fields...)...)
}

func (p *StubPublisher) PublishUserMigrated(_ context.Context, event domain.UserMigratedEvent) error {
	p.logEvent(EventUserMigrated, event.UserID, event.MigratedAt,
		zap.String("collection", event.Collection),
		zap.String("source_doc_id", event.SourceDocID),
		zap.String("role", event.Role.String()),
		zap.Bool("created", event.Created),
		zap.Bool("password_reset_due", event.PasswordResetDue),
	)
	return nil
}

func (p *StubPublisher) PublishMigrationCompleted(_ context.Context, event domain.MigrationCompletedEvent) error {
	p.logEvent(EventMigrationCompleted, "", event.FinishedAt,
		zap.String("run_id", event.RunID),
		zap.Int("migrated_count", event.MigratedCount),
		zap.Int("error_count", event.ErrorCount),
	)
	return nil
}
