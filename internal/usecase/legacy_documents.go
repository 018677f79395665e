package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/zaynrix/trustedvalley-backend/internal/core/domain"
	"github.com/zaynrix/trustedvalley-backend/internal/legacy"
)

// statisticsDocID is the admin_content document whose items live in a subcollection.
const statisticsDocID = "statistics"

var upserted = domain.Outcome{Kind: domain.OutcomeUpserted}

func (o *Orchestrator) document(src sourceView) domain.LegacyDocument {
	return domain.LegacyDocument{
		ID:        src.docID,
		Data:      legacy.DeepCoerceTimestamps(src.data),
		CreatedAt: src.time(legacy.FieldCreatedAt),
		UpdatedAt: src.time(legacy.FieldUpdatedAt),
	}
}

func (o *Orchestrator) upsertAdminContent(ctx context.Context, rec domain.SourceRecord) (domain.Outcome, error) {
	if rec.ID == statisticsDocID {
		return domain.Outcome{Kind: domain.OutcomeSkipped}, nil
	}
	doc := o.document(o.view(domain.CollectionAdminContent, rec))
	if err := o.documents.UpsertAdminContent(ctx, doc); err != nil {
		return domain.Outcome{}, fmt.Errorf("upsert admin content: %w", err)
	}
	return upserted, nil
}

func (o *Orchestrator) upsertStatisticsItem(ctx context.Context, rec domain.SourceRecord) (domain.Outcome, error) {
	src := o.view(domain.CollectionStatisticsItems, rec)

	item := domain.StatisticsItem{
		ID:          rec.ID,
		Label:       src.str(legacy.FieldLabel),
		Description: src.str(legacy.FieldDescription),
		Value:       src.str(legacy.FieldValue),
		IsActive:    true,
		CreatedAt:   src.time(legacy.FieldCreatedAt),
		UpdatedAt:   src.time(legacy.FieldUpdatedAt),
	}
	if n, ok := legacy.ResolveInt(rec.Data, legacy.FieldOrderIndex); ok {
		item.OrderIndex = n
	}
	if active, ok := legacy.ResolveBool(rec.Data, legacy.FieldIsActive); ok {
		item.IsActive = active
	}

	if err := o.documents.UpsertStatisticsItem(ctx, item); err != nil {
		return domain.Outcome{}, fmt.Errorf("upsert statistics item: %w", err)
	}
	return upserted, nil
}

func (o *Orchestrator) upsertActivity(ctx context.Context, rec domain.SourceRecord) (domain.Outcome, error) {
	doc := o.document(o.view(domain.CollectionActivities, rec))
	if err := o.documents.UpsertActivity(ctx, doc); err != nil {
		return domain.Outcome{}, fmt.Errorf("upsert activity: %w", err)
	}
	return upserted, nil
}

func (o *Orchestrator) upsertUntrustedUser(ctx context.Context, rec domain.SourceRecord) (domain.Outcome, error) {
	src := o.view(domain.CollectionUntrustedUsers, rec)

	entry := domain.UntrustedUser{
		LegacyDocument: o.document(src),
		UserID:         src.str(legacy.FieldLegacyID),
		AddedAt:        src.time(legacy.FieldAddedAt),
	}
	if email := src.str(legacy.FieldEmail); email != nil {
		normalized := legacy.NormalizeEmail(*email)
		entry.UserEmail = &normalized
	}

	if err := o.documents.UpsertUntrustedUser(ctx, entry); err != nil {
		return domain.Outcome{}, fmt.Errorf("upsert untrusted user: %w", err)
	}
	return upserted, nil
}

func (o *Orchestrator) upsertPaymentPlaceSubmission(ctx context.Context, rec domain.SourceRecord) (domain.Outcome, error) {
	src := o.view(domain.CollectionPaymentPlaceSubmissions, rec)

	submission := domain.PaymentPlaceSubmission{
		LegacyDocument: o.document(src),
		UserID:         src.str(legacy.FieldLegacyID),
		PlaceName:      src.str(legacy.FieldPlaceName),
		SubmittedAt:    src.time(legacy.FieldSubmittedAt),
	}
	if status, ok := explicitStatus(rec.Data); ok {
		submission.Status = strings.ToLower(string(status))
	}

	if err := o.documents.UpsertPaymentPlaceSubmission(ctx, submission); err != nil {
		return domain.Outcome{}, fmt.Errorf("upsert payment place submission: %w", err)
	}
	return upserted, nil
}
