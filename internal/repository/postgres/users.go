package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/zaynrix/trustedvalley-backend/internal/core/domain"
	"github.com/zaynrix/trustedvalley-backend/internal/core/port"
	"github.com/zaynrix/trustedvalley-backend/internal/repository"
)

const (
	usersTable     = "users"
	userIDPrefix   = "user_"
	profileIDMatch = "profile->>'%s' = ?"
)

// Profile keys under which the legacy platform stored its own identifiers.
var legacyProfileIDKeys = []string{"legacyId", "uid", "firebaseUid"}

var userColumns = []string{
	"id",
	"email",
	"full_name",
	"role",
	"status",
	"profile",
	"password_hash",
	"password_algo",
	"must_reset_password",
	"phone_number",
	"additional_phone",
	"location",
	"reference_number",
	"trusted_added_at",
	"moved_to_trusted_at",
	"application_id",
	"action_by",
	"action_type",
	"action_reason",
	"last_action_at",
	"reviewed_by",
	"last_modified_by",
	"last_document_submission_date",
	"has_pending_document_requests",
	"application_type",
	"application_submitted_at",
	"application_reviewed_at",
	"created_at",
	"updated_at",
}

// UserRepository implements port.UserRepository using PostgreSQL.
type UserRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewUserRepository(exec pgExecutor) *UserRepository {
	return &UserRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// QueryByEmail returns users whose email matches case-insensitively.
func (r *UserRepository) QueryByEmail(ctx context.Context, email string) ([]domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}
	stmt, args, err := r.builder.Select(userColumns...).
		From(usersTable).
		Where(squirrel.Expr("lower(email) = ?", email)).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user by email sql: %w", err)
	}
	return r.queryUsers(ctx, stmt, args...)
}

// QueryByID returns users matching the identifier, its user_ prefixed form, or a legacy id kept in the profile.
func (r *UserRepository) QueryByID(ctx context.Context, id string) ([]domain.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}

	ids := []string{id}
	if !strings.HasPrefix(id, userIDPrefix) {
		ids = append(ids, userIDPrefix+id)
	}

	match := squirrel.Or{squirrel.Eq{"id": ids}}
	for _, key := range legacyProfileIDKeys {
		match = append(match, squirrel.Expr(fmt.Sprintf(profileIDMatch, key), id))
	}

	stmt, args, err := r.builder.Select(userColumns...).
		From(usersTable).
		Where(match).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user by id sql: %w", err)
	}
	return r.queryUsers(ctx, stmt, args...)
}

// InsertUser creates a canonical user. A duplicate email surfaces as repository.ErrConflict.
func (r *UserRepository) InsertUser(ctx context.Context, user domain.User) error {
	profile, err := marshalDocument(user.Profile)
	if err != nil {
		return err
	}

	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := user.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	stmt, args, err := r.builder.Insert(usersTable).
		Columns(userColumns...).
		Values(
			user.ID,
			strings.ToLower(strings.TrimSpace(user.Email)),
			user.FullName,
			int16(user.Role),
			string(user.Status),
			profile,
			user.PasswordHash,
			user.PasswordAlgo,
			user.MustResetPassword,
			optionalString(user.Contact.PhoneNumber),
			optionalString(user.Contact.AdditionalPhone),
			optionalString(user.Contact.Location),
			optionalString(user.Contact.ReferenceNumber),
			optionalTime(user.Trust.AddedAt),
			optionalTime(user.Trust.MovedToTrustedAt),
			optionalString(user.Trust.ApplicationID),
			optionalString(user.Trust.ActionBy),
			optionalString(user.Trust.ActionType),
			optionalString(user.Trust.ActionReason),
			optionalTime(user.Trust.LastActionAt),
			optionalString(user.Trust.ReviewedBy),
			optionalString(user.Trust.LastModifiedBy),
			optionalTime(user.Trust.LastDocumentSubmissionDate),
			optionalBool(user.Trust.HasPendingDocumentRequests),
			optionalString(user.Application.Type),
			optionalTime(user.Application.SubmittedAt),
			optionalTime(user.Application.ReviewedAt),
			createdAt.UTC(),
			updatedAt.UTC(),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return classifyWriteError("insert user", err)
	}
	return nil
}

// UpdateUser applies a partial update. Nil patch fields keep the stored value.
func (r *UserRepository) UpdateUser(ctx context.Context, id string, patch domain.UserPatch) error {
	updatedAt := patch.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	query := r.builder.Update(usersTable).Set("updated_at", updatedAt.UTC())

	if patch.FullName != nil {
		query = query.Set("full_name", *patch.FullName)
	}
	if patch.Role != nil {
		query = query.Set("role", int16(*patch.Role))
	}
	if patch.Status != nil {
		query = query.Set("status", string(*patch.Status))
	}
	if patch.Profile != nil {
		profile, err := marshalDocument(patch.Profile)
		if err != nil {
			return err
		}
		query = query.Set("profile", profile)
	}

	query = setString(query, "phone_number", patch.Contact.PhoneNumber)
	query = setString(query, "additional_phone", patch.Contact.AdditionalPhone)
	query = setString(query, "location", patch.Contact.Location)
	query = setString(query, "reference_number", patch.Contact.ReferenceNumber)

	query = setTime(query, "trusted_added_at", patch.Trust.AddedAt)
	query = setTime(query, "moved_to_trusted_at", patch.Trust.MovedToTrustedAt)
	query = setString(query, "application_id", patch.Trust.ApplicationID)
	query = setString(query, "action_by", patch.Trust.ActionBy)
	query = setString(query, "action_type", patch.Trust.ActionType)
	query = setString(query, "action_reason", patch.Trust.ActionReason)
	query = setTime(query, "last_action_at", patch.Trust.LastActionAt)
	query = setString(query, "reviewed_by", patch.Trust.ReviewedBy)
	query = setString(query, "last_modified_by", patch.Trust.LastModifiedBy)
	query = setTime(query, "last_document_submission_date", patch.Trust.LastDocumentSubmissionDate)
	if patch.Trust.HasPendingDocumentRequests != nil {
		query = query.Set("has_pending_document_requests", *patch.Trust.HasPendingDocumentRequests)
	}

	query = setString(query, "application_type", patch.Application.Type)
	query = setTime(query, "application_submitted_at", patch.Application.SubmittedAt)
	query = setTime(query, "application_reviewed_at", patch.Application.ReviewedAt)

	stmt, args, err := query.Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build update user sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return classifyWriteError("update user", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListAdminRoleDrift returns users flagged as administrators in their profile but not by role.
func (r *UserRepository) ListAdminRoleDrift(ctx context.Context) ([]domain.User, error) {
	stmt, args, err := r.builder.Select(userColumns...).
		From(usersTable).
		Where(squirrel.NotEq{"role": int16(domain.RoleAdministrator)}).
		Where(squirrel.Or{
			squirrel.Expr("profile->>'isAdmin' = 'true'"),
			squirrel.Expr("profile->'adminData' IS NOT NULL"),
		}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select admin role drift sql: %w", err)
	}
	return r.queryUsers(ctx, stmt, args...)
}

// Ping checks that the store answers a trivial query.
func (r *UserRepository) Ping(ctx context.Context) error {
	var one int
	if err := r.exec.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

func (r *UserRepository) queryUsers(ctx context.Context, stmt string, args ...any) ([]domain.User, error) {
	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user             domain.User
		role             int16
		status           string
		profile          []byte
		phoneNumber      sql.NullString
		additionalPhone  sql.NullString
		location         sql.NullString
		referenceNumber  sql.NullString
		addedAt          sql.NullTime
		movedToTrusted   sql.NullTime
		applicationID    sql.NullString
		actionBy         sql.NullString
		actionType       sql.NullString
		actionReason     sql.NullString
		lastActionAt     sql.NullTime
		reviewedBy       sql.NullString
		lastModifiedBy   sql.NullString
		lastDocSubmitted sql.NullTime
		pendingDocs      sql.NullBool
		applicationType  sql.NullString
		appSubmittedAt   sql.NullTime
		appReviewedAt    sql.NullTime
	)

	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.FullName,
		&role,
		&status,
		&profile,
		&user.PasswordHash,
		&user.PasswordAlgo,
		&user.MustResetPassword,
		&phoneNumber,
		&additionalPhone,
		&location,
		&referenceNumber,
		&addedAt,
		&movedToTrusted,
		&applicationID,
		&actionBy,
		&actionType,
		&actionReason,
		&lastActionAt,
		&reviewedBy,
		&lastModifiedBy,
		&lastDocSubmitted,
		&pendingDocs,
		&applicationType,
		&appSubmittedAt,
		&appReviewedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}

	user.Role = domain.Role(role)
	user.Status = domain.UserStatus(status)
	user.Profile = domain.Profile{}
	if len(profile) > 0 {
		if err := json.Unmarshal(profile, &user.Profile); err != nil {
			return nil, fmt.Errorf("decode user profile: %w", err)
		}
	}

	user.Contact = domain.ContactDetails{
		PhoneNumber:     nullableStringPtr(phoneNumber),
		AdditionalPhone: nullableStringPtr(additionalPhone),
		Location:        nullableStringPtr(location),
		ReferenceNumber: nullableStringPtr(referenceNumber),
	}
	user.Trust = domain.TrustTracking{
		AddedAt:                    nullableTimePtr(addedAt),
		MovedToTrustedAt:           nullableTimePtr(movedToTrusted),
		ApplicationID:              nullableStringPtr(applicationID),
		ActionBy:                   nullableStringPtr(actionBy),
		ActionType:                 nullableStringPtr(actionType),
		ActionReason:               nullableStringPtr(actionReason),
		LastActionAt:               nullableTimePtr(lastActionAt),
		ReviewedBy:                 nullableStringPtr(reviewedBy),
		LastModifiedBy:             nullableStringPtr(lastModifiedBy),
		LastDocumentSubmissionDate: nullableTimePtr(lastDocSubmitted),
		HasPendingDocumentRequests: nullableBoolPtr(pendingDocs),
	}
	user.Application = domain.ApplicationTracking{
		Type:        nullableStringPtr(applicationType),
		SubmittedAt: nullableTimePtr(appSubmittedAt),
		ReviewedAt:  nullableTimePtr(appReviewedAt),
	}

	return &user, nil
}

func setString(query squirrel.UpdateBuilder, column string, value *string) squirrel.UpdateBuilder {
	if v := optionalString(value); v != nil {
		return query.Set(column, v)
	}
	return query
}

func setTime(query squirrel.UpdateBuilder, column string, value *time.Time) squirrel.UpdateBuilder {
	if v := optionalTime(value); v != nil {
		return query.Set(column, v)
	}
	return query
}

var _ port.UserRepository = (*UserRepository)(nil)
