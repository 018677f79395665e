package port

import (
	"context"

	"github.com/zaynrix/trustedvalley-backend/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	PublishUserMigrated(ctx context.Context, event domain.UserMigratedEvent) error
	PublishMigrationCompleted(ctx context.Context, event domain.MigrationCompletedEvent) error
}
