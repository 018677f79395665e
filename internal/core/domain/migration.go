package domain

import "time"

// Legacy collection names, listed in the order the migration runs them.
const (
	CollectionAdminContent            = "admin_content"
	CollectionStatisticsItems         = "statistics_items"
	CollectionUsers                   = "users"
	CollectionActivities              = "activities"
	CollectionTrustedUsers            = "trusted_users"
	CollectionUntrustedUsers          = "untrusted_users"
	CollectionPaymentPlaceSubmissions = "payment_place_submissions"
	CollectionUserApplications        = "user_applications"
	CollectionAdmins                  = "admins"
)

// MigrationOrder is the fixed pass sequence. Later passes promote users created by earlier ones.
var MigrationOrder = []string{
	CollectionAdminContent,
	CollectionStatisticsItems,
	CollectionUsers,
	CollectionActivities,
	CollectionTrustedUsers,
	CollectionUntrustedUsers,
	CollectionPaymentPlaceSubmissions,
	CollectionUserApplications,
	CollectionAdmins,
}

// SourceRecord is a single read-only document drawn from a legacy collection.
type SourceRecord struct {
	ID   string
	Data map[string]any
}

// UnknownDocID marks conflicts that concern a whole collection rather than one document.
const UnknownDocID = "N/A"

// Conflict is a recorded, non-fatal failure to migrate one source record.
type Conflict struct {
	Collection string `json:"collection"`
	DocID      string `json:"docId"`
	Reason     string `json:"reason"`
}

// OutcomeKind classifies the result of processing one source record.
type OutcomeKind string

const (
	OutcomeCreated  OutcomeKind = "created"
	OutcomeUpdated  OutcomeKind = "updated"
	OutcomeUpserted OutcomeKind = "upserted"
	OutcomeSkipped  OutcomeKind = "skipped"
	OutcomeConflict OutcomeKind = "conflict"
)

// Outcome is the result of processing one source record.
type Outcome struct {
	Kind     OutcomeKind
	UserID   string
	Conflict *Conflict
}

// Succeeded reports whether the record counts toward the migrated total.
func (o Outcome) Succeeded() bool {
	switch o.Kind {
	case OutcomeCreated, OutcomeUpdated, OutcomeUpserted:
		return true
	default:
		return false
	}
}

// Summary aggregates a whole run.
type Summary struct {
	RunID         string     `json:"runId"`
	MigratedCount int        `json:"migratedCount"`
	ErrorCount    int        `json:"errorCount"`
	Errors        []Conflict `json:"errors"`
	StartedAt     time.Time  `json:"startedAt"`
	FinishedAt    time.Time  `json:"finishedAt"`
}

// Record folds one outcome into the summary.
func (s *Summary) Record(o Outcome) {
	switch {
	case o.Succeeded():
		s.MigratedCount++
	case o.Kind == OutcomeConflict && o.Conflict != nil:
		s.AddConflict(*o.Conflict)
	}
}

// AddConflict appends a conflict and bumps the error count.
func (s *Summary) AddConflict(c Conflict) {
	s.ErrorCount++
	s.Errors = append(s.Errors, c)
}

// Failed reports whether any conflict was recorded.
func (s Summary) Failed() bool {
	return s.ErrorCount > 0
}

// LegacyDocument is a schemaless legacy document kept verbatim in a JSONB column.
type LegacyDocument struct {
	ID        string
	Data      map[string]any
	CreatedAt *time.Time
	UpdatedAt *time.Time
}

// StatisticsItem is one entry of the public statistics block on the home page.
type StatisticsItem struct {
	ID          string
	Label       *string
	Description *string
	Value       *string
	OrderIndex  int
	IsActive    bool
	CreatedAt   *time.Time
	UpdatedAt   *time.Time
}

// UntrustedUser is an entry on the public warning list.
type UntrustedUser struct {
	LegacyDocument
	UserID    *string
	UserEmail *string
	AddedAt   *time.Time
}

// PaymentPlaceSubmission is a user-submitted payment location awaiting moderation.
type PaymentPlaceSubmission struct {
	LegacyDocument
	UserID      *string
	PlaceName   *string
	Status      string
	SubmittedAt *time.Time
}
