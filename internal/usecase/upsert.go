package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zaynrix/trustedvalley-backend/internal/core/domain"
	"github.com/zaynrix/trustedvalley-backend/internal/core/port"
	"github.com/zaynrix/trustedvalley-backend/internal/legacy"
	"github.com/zaynrix/trustedvalley-backend/internal/repository"
)

const userIDPrefix = "user_"

var legacyIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,120}$`)

// RecordProcessor migrates one source record and reports the outcome. It never returns an error;
// failures are folded into a conflict outcome.
type RecordProcessor interface {
	ProcessSourceRecord(ctx context.Context, collection string, rec domain.SourceRecord) domain.Outcome
}

// Orchestrator turns legacy source records into canonical users and legacy document rows.
type Orchestrator struct {
	users       port.UserRepository
	documents   port.LegacyDocumentRepository
	resolver    *IdentityResolver
	merger      *ProfileMerger
	credentials port.CredentialIssuer
	events      port.EventPublisher
	logger      *zap.Logger
	now         func() time.Time
}

var _ RecordProcessor = (*Orchestrator)(nil)

// NewOrchestrator constructs an Orchestrator. events may be nil, in which case nothing is published.
func NewOrchestrator(
	users port.UserRepository,
	documents port.LegacyDocumentRepository,
	resolver *IdentityResolver,
	merger *ProfileMerger,
	credentials port.CredentialIssuer,
	events port.EventPublisher,
	log *zap.Logger,
	now func() time.Time,
) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	if resolver == nil {
		resolver = NewIdentityResolver(users, log)
	}
	if merger == nil {
		merger = NewProfileMerger(now)
	}
	return &Orchestrator{
		users:       users,
		documents:   documents,
		resolver:    resolver,
		merger:      merger,
		credentials: credentials,
		events:      events,
		logger:      log,
		now:         now,
	}
}

// ProcessSourceRecord migrates rec from collection.
func (o *Orchestrator) ProcessSourceRecord(ctx context.Context, collection string, rec domain.SourceRecord) domain.Outcome {
	outcome, err := o.process(ctx, collection, rec)
	if err != nil {
		outcome = domain.Outcome{
			Kind: domain.OutcomeConflict,
			Conflict: &domain.Conflict{
				Collection: collection,
				DocID:      rec.ID,
				Reason:     err.Error(),
			},
		}
	}
	o.logOutcome(collection, rec.ID, outcome)
	return outcome
}

func (o *Orchestrator) process(ctx context.Context, collection string, rec domain.SourceRecord) (domain.Outcome, error) {
	if rule, ok := userRules[collection]; ok {
		return o.upsertUser(ctx, collection, rule, rec)
	}

	switch collection {
	case domain.CollectionAdminContent:
		return o.upsertAdminContent(ctx, rec)
	case domain.CollectionStatisticsItems:
		return o.upsertStatisticsItem(ctx, rec)
	case domain.CollectionActivities:
		return o.upsertActivity(ctx, rec)
	case domain.CollectionUntrustedUsers:
		return o.upsertUntrustedUser(ctx, rec)
	case domain.CollectionPaymentPlaceSubmissions:
		return o.upsertPaymentPlaceSubmission(ctx, rec)
	}
	return domain.Outcome{}, fmt.Errorf("%w: %s", ErrUnsupportedCollection, collection)
}

func (o *Orchestrator) logOutcome(collection, docID string, outcome domain.Outcome) {
	fields := []zap.Field{
		zap.String("collection", collection),
		zap.String("doc_id", docID),
		zap.String("user_id", outcome.UserID),
		zap.String("outcome", string(outcome.Kind)),
	}
	if outcome.Kind == domain.OutcomeConflict && outcome.Conflict != nil {
		o.logger.Warn("source record not migrated", append(fields, zap.String("reason", outcome.Conflict.Reason))...)
		return
	}
	o.logger.Info("source record processed", fields...)
}

// sourceView reads one record, logging timestamp anomalies instead of failing on them.
type sourceView struct {
	collection string
	docID      string
	legacyID   string
	data       map[string]any
	logger     *zap.Logger
}

func (o *Orchestrator) view(collection string, rec domain.SourceRecord) sourceView {
	return sourceView{collection: collection, docID: rec.ID, data: rec.Data, logger: o.logger}
}

func (v sourceView) str(f legacy.Field) *string {
	s, ok := legacy.ResolveString(v.data, f)
	if !ok {
		return nil
	}
	return &s
}

func (v sourceView) time(f legacy.Field) *time.Time {
	t, ok, anomaly := legacy.ResolveTime(v.data, f)
	if anomaly != nil {
		v.logger.Warn("unparseable timestamp ignored",
			zap.String("collection", v.collection),
			zap.String("doc_id", v.docID),
			zap.String("field", string(anomaly.Field)),
			zap.String("key", anomaly.Key),
			zap.Any("value", anomaly.Value),
		)
	}
	if !ok {
		return nil
	}
	return &t
}

func (v sourceView) boolean(f legacy.Field) *bool {
	b, ok := legacy.ResolveBool(v.data, f)
	if !ok {
		return nil
	}
	return &b
}

func (o *Orchestrator) upsertUser(ctx context.Context, collection string, rule userRule, rec domain.SourceRecord) (domain.Outcome, error) {
	src := o.view(collection, rec)
	src.legacyID = resolveLegacyID(rule, rec)
	legacyID := src.legacyID

	email := sourceEmail(rule, rec.Data)

	if email == "" && !(rule.idOnlyMatch && legacyID != "") {
		return domain.Outcome{}, ErrMissingEmail
	}

	existing, err := o.resolver.FindExisting(ctx, email, legacyID)
	if err != nil {
		return domain.Outcome{}, err
	}
	if existing != nil {
		return o.updateUser(ctx, collection, rule, src, *existing)
	}
	if email == "" {
		return domain.Outcome{}, ErrMissingEmail
	}

	outcome, err := o.createUser(ctx, collection, rule, src, email, legacyID)
	if err == nil || !errors.Is(err, repository.ErrConflict) {
		return outcome, err
	}

	// Another writer claimed the email or id between resolve and insert.
	existing, ferr := o.resolver.FindExisting(ctx, email, legacyID)
	if ferr != nil || existing == nil {
		return domain.Outcome{}, err
	}
	return o.updateUser(ctx, collection, rule, src, *existing)
}

// sourceEmail resolves the normalised email. Rules with a nested profile read it there first.
func sourceEmail(rule userRule, data map[string]any) string {
	if rule.nestedProfile {
		if nested, ok := legacy.Nested(data, nestedProfileKey); ok {
			if s, ok := legacy.ResolveString(nested, legacy.FieldEmail); ok {
				return legacy.NormalizeEmail(s)
			}
		}
	}
	if s, ok := legacy.ResolveString(data, legacy.FieldEmail); ok {
		return legacy.NormalizeEmail(s)
	}
	return ""
}

func resolveLegacyID(rule userRule, rec domain.SourceRecord) string {
	if id, ok := legacy.ResolveString(rec.Data, legacy.FieldLegacyID); ok {
		return id
	}
	if rule.docIDIsLegacyID {
		return strings.TrimSpace(rec.ID)
	}
	return ""
}

func (o *Orchestrator) createUser(ctx context.Context, collection string, rule userRule, src sourceView, email, legacyID string) (domain.Outcome, error) {
	now := o.now().UTC()

	credential, err := o.credential(src.data)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("issue credential: %w", err)
	}

	fullName := rule.defaultName
	if name, ok := legacy.ResolveString(src.data, legacy.FieldFullName); ok {
		fullName = legacy.NormalizeName(name)
	}
	status := rule.createStatus(src.data)

	createdAt := now
	if t := src.time(legacy.FieldCreatedAt); t != nil {
		createdAt = *t
	}

	incoming := o.incomingProfile(rule, src, email, fullName)
	incoming[profileKeyCreatedAt] = legacy.FormatISO(createdAt)
	incoming[profileKeyJoinedDate] = legacy.FormatISO(createdAt)
	incoming[profileKeyIsActive] = true
	incoming[profileKeyStatus] = string(status)
	if legacyID != "" {
		incoming[profileKeyLegacyID] = legacyID
	}

	user := domain.User{
		ID:                newUserID(legacyID),
		Email:             email,
		FullName:          fullName,
		Role:              rule.role(src.data),
		Status:            status,
		Profile:           o.merger.Merge(nil, incoming, o.mergeOptions(rule, src)),
		PasswordHash:      credential.Hash,
		PasswordAlgo:      credential.Algo,
		MustResetPassword: credential.MustReset,
		CreatedAt:         createdAt,
		UpdatedAt:         now,
	}
	if rule.contact {
		user.Contact = o.contact(src, nil)
	}
	if rule.trust {
		user.Trust = o.trust(src, nil, now)
	}
	if rule.application {
		user.Application = o.application(src)
	}

	if err := o.users.InsertUser(ctx, user); err != nil {
		return domain.Outcome{}, fmt.Errorf("insert user: %w", err)
	}

	o.publishUserMigrated(ctx, collection, src.docID, user.ID, email, user.Role, true, credential.MustReset, now)
	return domain.Outcome{Kind: domain.OutcomeCreated, UserID: user.ID}, nil
}

func (o *Orchestrator) updateUser(ctx context.Context, collection string, rule userRule, src sourceView, existing domain.User) (domain.Outcome, error) {
	now := o.now().UTC()

	fullName := existing.FullName
	if name, ok := legacy.ResolveString(src.data, legacy.FieldFullName); ok {
		fullName = legacy.NormalizeName(name)
	}

	incoming := o.incomingProfile(rule, src, existing.Email, fullName)
	if _, ok := existing.Profile[profileKeyLegacyID]; !ok && src.legacyID != "" {
		incoming[profileKeyLegacyID] = src.legacyID
	}

	patch := domain.UserPatch{
		Profile:   o.merger.Merge(existing.Profile, incoming, o.mergeOptions(rule, src)),
		UpdatedAt: now,
	}

	if strings.TrimSpace(existing.FullName) == "" && strings.TrimSpace(fullName) != "" {
		patch.FullName = &fullName
	}

	role := existing.Role
	if rule.promote {
		if candidate := rule.role(src.data); candidate.Outranks(existing.Role) {
			role = candidate
			patch.Role = &role
		}
	}

	if rule.updateStatus != nil {
		if status, ok := rule.updateStatus(src.data); ok {
			patch.Status = &status
		}
	}

	if rule.contact {
		patch.Contact = o.contact(src, &existing.Contact)
	}
	if rule.trust {
		patch.Trust = o.trust(src, &existing.Trust, now)
	}
	if rule.application {
		patch.Application = o.application(src)
	}

	if err := o.users.UpdateUser(ctx, existing.ID, patch); err != nil {
		return domain.Outcome{}, fmt.Errorf("update user %s: %w", existing.ID, err)
	}

	o.publishUserMigrated(ctx, collection, src.docID, existing.ID, existing.Email, role, false, existing.MustResetPassword, now)
	return domain.Outcome{Kind: domain.OutcomeUpdated, UserID: existing.ID}, nil
}

// incomingProfile builds the normalised profile contribution of one record.
func (o *Orchestrator) incomingProfile(rule userRule, src sourceView, email, fullName string) domain.Profile {
	base := src.data
	if rule.nestedProfile {
		if nested, ok := legacy.Nested(src.data, nestedProfileKey); ok {
			base = nested
		}
	}

	incoming := domain.Profile(legacy.DeepCoerceTimestamps(base))
	if incoming == nil {
		incoming = domain.Profile{}
	}
	incoming[profileKeyEmail] = email
	incoming[profileKeyFullName] = fullName
	incoming[profileKeyDisplayName] = fullName

	for _, field := range rule.markFields {
		incoming[field] = true
	}

	if rule.application {
		if appType := src.str(legacy.FieldApplicationType); appType != nil {
			incoming[profileKeyApplicationType] = *appType
		}
		if status, ok := explicitStatus(src.data); ok {
			incoming[profileKeyApplicationStatus] = string(status)
		}
	}
	return incoming
}

func (o *Orchestrator) mergeOptions(rule userRule, src sourceView) MergeOptions {
	return MergeOptions{
		MarkFields:    rule.markFields,
		ProvenanceKey: rule.provenanceKey,
		Provenance:    src.data,
	}
}

func (o *Orchestrator) credential(data map[string]any) (port.Credential, error) {
	if hash, ok := legacy.ResolveString(data, legacy.FieldPasswordHash); ok {
		if credential, ok := o.credentials.Adopt(hash); ok {
			return credential, nil
		}
	}
	return o.credentials.Placeholder()
}

// contact resolves contact columns. With a stored row only blank columns are filled.
func (o *Orchestrator) contact(src sourceView, stored *domain.ContactDetails) domain.ContactDetails {
	c := domain.ContactDetails{
		PhoneNumber:     src.str(legacy.FieldPhoneNumber),
		AdditionalPhone: src.str(legacy.FieldAdditionalPhone),
		Location:        src.str(legacy.FieldLocation),
		ReferenceNumber: src.str(legacy.FieldReferenceNumber),
	}
	if stored == nil {
		return c
	}
	return domain.ContactDetails{
		PhoneNumber:     fillBlank(stored.PhoneNumber, c.PhoneNumber),
		AdditionalPhone: fillBlank(stored.AdditionalPhone, c.AdditionalPhone),
		Location:        fillBlank(stored.Location, c.Location),
		ReferenceNumber: fillBlank(stored.ReferenceNumber, c.ReferenceNumber),
	}
}

// trust resolves the trust tracking columns. The added-at time falls back to the stored value, then now.
func (o *Orchestrator) trust(src sourceView, stored *domain.TrustTracking, now time.Time) domain.TrustTracking {
	t := domain.TrustTracking{
		AddedAt:                    src.time(legacy.FieldAddedAt),
		MovedToTrustedAt:           src.time(legacy.FieldMovedToTrustedAt),
		ApplicationID:              src.str(legacy.FieldApplicationID),
		ActionBy:                   src.str(legacy.FieldActionBy),
		ActionType:                 src.str(legacy.FieldActionType),
		ActionReason:               src.str(legacy.FieldActionReason),
		LastActionAt:               src.time(legacy.FieldLastActionAt),
		ReviewedBy:                 src.str(legacy.FieldReviewedBy),
		LastModifiedBy:             src.str(legacy.FieldLastModifiedBy),
		LastDocumentSubmissionDate: src.time(legacy.FieldLastDocumentSubmissionDate),
		HasPendingDocumentRequests: src.boolean(legacy.FieldHasPendingDocumentRequests),
	}
	if t.MovedToTrustedAt == nil {
		t.MovedToTrustedAt = t.AddedAt
	}
	if t.AddedAt == nil && (stored == nil || stored.AddedAt == nil) {
		added := now
		t.AddedAt = &added
	}
	return t
}

func (o *Orchestrator) application(src sourceView) domain.ApplicationTracking {
	return domain.ApplicationTracking{
		Type:        src.str(legacy.FieldApplicationType),
		SubmittedAt: src.time(legacy.FieldSubmittedAt),
		ReviewedAt:  src.time(legacy.FieldReviewedAt),
	}
}

func (o *Orchestrator) publishUserMigrated(ctx context.Context, collection, docID, userID, email string, role domain.Role, created, resetDue bool, at time.Time) {
	if o.events == nil {
		return
	}
	event := domain.UserMigratedEvent{
		EventID:          uuid.NewString(),
		UserID:           userID,
		Email:            email,
		Role:             role,
		Collection:       collection,
		SourceDocID:      docID,
		Created:          created,
		PasswordResetDue: resetDue,
		MigratedAt:       at,
	}
	if err := o.events.PublishUserMigrated(ctx, event); err != nil {
		o.logger.Warn("failed to publish user migrated event",
			zap.String("user_id", userID),
			zap.String("collection", collection),
			zap.Error(err),
		)
	}
}

// newUserID derives a canonical id from a safe legacy id, or generates one.
func newUserID(legacyID string) string {
	if legacyIDPattern.MatchString(legacyID) {
		if strings.HasPrefix(legacyID, userIDPrefix) {
			return legacyID
		}
		return userIDPrefix + legacyID
	}
	return userIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func fillBlank(stored, incoming *string) *string {
	if stored != nil && strings.TrimSpace(*stored) != "" {
		return nil
	}
	return incoming
}
