package domain

import "time"

// UserMigratedEvent represents the payload for trustedvalley.user.migrated messages.
type UserMigratedEvent struct {
	EventID          string
	UserID           string
	Email            string
	Role             Role
	Collection       string
	SourceDocID      string
	Created          bool
	PasswordResetDue bool
	MigratedAt       time.Time
}

// MigrationCompletedEvent represents the payload for trustedvalley.migration.completed messages.
type MigrationCompletedEvent struct {
	EventID       string
	RunID         string
	MigratedCount int
	ErrorCount    int
	StartedAt     time.Time
	FinishedAt    time.Time
}
