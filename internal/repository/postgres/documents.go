package postgres

import (
	"context"
	"fmt"
	"strings"

	squirrel "github.com/Masterminds/squirrel"

	"github.com/zaynrix/trustedvalley-backend/internal/core/domain"
	"github.com/zaynrix/trustedvalley-backend/internal/core/port"
)

// DocumentRepository upserts the legacy collections that are copied without identity resolution.
type DocumentRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewDocumentRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewDocumentRepository(exec pgExecutor) *DocumentRepository {
	return &DocumentRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// UpsertAdminContent stores one admin_content document; the data column is replaced on conflict.
func (r *DocumentRepository) UpsertAdminContent(ctx context.Context, doc domain.LegacyDocument) error {
	return r.upsertDocument(ctx, "admin_content", doc, "updated_at = now()")
}

// UpsertActivity stores one activity document.
func (r *DocumentRepository) UpsertActivity(ctx context.Context, doc domain.LegacyDocument) error {
	return r.upsertDocument(ctx, "activities", doc, "updated_at = EXCLUDED.updated_at")
}

// UpsertStatisticsItem stores one statistics item.
func (r *DocumentRepository) UpsertStatisticsItem(ctx context.Context, item domain.StatisticsItem) error {
	stmt, args, err := r.builder.Insert("statistics_items").
		Columns("id", "label", "description", "value", "order_index", "is_active", "created_at", "updated_at").
		Values(
			item.ID,
			optionalString(item.Label),
			optionalString(item.Description),
			optionalString(item.Value),
			item.OrderIndex,
			item.IsActive,
			coalesceNow(item.CreatedAt == nil, optionalTime(item.CreatedAt)),
			coalesceNow(item.UpdatedAt == nil, optionalTime(item.UpdatedAt)),
		).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			label = EXCLUDED.label,
			description = EXCLUDED.description,
			value = EXCLUDED.value,
			order_index = EXCLUDED.order_index,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert statistics item sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("upsert statistics item: %w", err)
	}
	return nil
}

// UpsertUntrustedUser stores one warning-list entry. A missing added_at keeps the stored one.
func (r *DocumentRepository) UpsertUntrustedUser(ctx context.Context, entry domain.UntrustedUser) error {
	data, err := marshalDocument(entry.Data)
	if err != nil {
		return err
	}

	stmt, args, err := r.builder.Insert("untrusted_users").
		Columns("id", "data", "user_id", "user_email", "added_at", "created_at", "updated_at").
		Values(
			entry.ID,
			data,
			optionalString(entry.UserID),
			optionalString(entry.UserEmail),
			coalesceNow(entry.AddedAt == nil, optionalTime(entry.AddedAt)),
			coalesceNow(entry.CreatedAt == nil, optionalTime(entry.CreatedAt)),
			coalesceNow(entry.UpdatedAt == nil, optionalTime(entry.UpdatedAt)),
		).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			data = EXCLUDED.data,
			user_id = EXCLUDED.user_id,
			user_email = EXCLUDED.user_email,
			added_at = COALESCE(?::timestamptz, untrusted_users.added_at),
			updated_at = EXCLUDED.updated_at`, optionalTime(entry.AddedAt)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert untrusted user sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("upsert untrusted user: %w", err)
	}
	return nil
}

// UpsertPaymentPlaceSubmission stores one submission. A missing submitted_at keeps the stored one.
func (r *DocumentRepository) UpsertPaymentPlaceSubmission(ctx context.Context, submission domain.PaymentPlaceSubmission) error {
	data, err := marshalDocument(submission.Data)
	if err != nil {
		return err
	}

	status := strings.TrimSpace(submission.Status)
	if status == "" {
		status = string(domain.UserStatusPending)
	}

	stmt, args, err := r.builder.Insert("payment_place_submissions").
		Columns("id", "data", "user_id", "place_name", "status", "submitted_at", "created_at", "updated_at").
		Values(
			submission.ID,
			data,
			optionalString(submission.UserID),
			optionalString(submission.PlaceName),
			status,
			coalesceNow(submission.SubmittedAt == nil, optionalTime(submission.SubmittedAt)),
			coalesceNow(submission.CreatedAt == nil, optionalTime(submission.CreatedAt)),
			coalesceNow(submission.UpdatedAt == nil, optionalTime(submission.UpdatedAt)),
		).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			data = EXCLUDED.data,
			user_id = EXCLUDED.user_id,
			place_name = EXCLUDED.place_name,
			status = EXCLUDED.status,
			submitted_at = COALESCE(?::timestamptz, payment_place_submissions.submitted_at),
			updated_at = EXCLUDED.updated_at`, optionalTime(submission.SubmittedAt)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert payment place submission sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("upsert payment place submission: %w", err)
	}
	return nil
}

func (r *DocumentRepository) upsertDocument(ctx context.Context, table string, doc domain.LegacyDocument, onConflictUpdatedAt string) error {
	data, err := marshalDocument(doc.Data)
	if err != nil {
		return err
	}

	stmt, args, err := r.builder.Insert(table).
		Columns("id", "data", "created_at", "updated_at").
		Values(
			doc.ID,
			data,
			coalesceNow(doc.CreatedAt == nil, optionalTime(doc.CreatedAt)),
			coalesceNow(doc.UpdatedAt == nil, optionalTime(doc.UpdatedAt)),
		).
		Suffix("ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, " + onConflictUpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert %s sql: %w", table, err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("upsert %s: %w", table, err)
	}
	return nil
}

// coalesceNow renders now() for an absent timestamp and the bound value otherwise.
func coalesceNow(absent bool, value any) any {
	if absent {
		return squirrel.Expr("now()")
	}
	return value
}

var _ port.LegacyDocumentRepository = (*DocumentRepository)(nil)
