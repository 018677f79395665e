package port

import (
	"context"

	"github.com/zaynrix/trustedvalley-backend/internal/core/domain"
)

// UserRepository exposes persistence behavior for canonical users.
type UserRepository interface {
	// QueryByEmail matches case-insensitively. Uniqueness means at most one row is expected.
	QueryByEmail(ctx context.Context, email string) ([]domain.User, error)
	// QueryByID matches the identifier, its user_ prefixed form, or a legacy id embedded in the profile.
	QueryByID(ctx context.Context, id string) ([]domain.User, error)
	InsertUser(ctx context.Context, user domain.User) error
	UpdateUser(ctx context.Context, id string, patch domain.UserPatch) error
	// ListAdminRoleDrift returns users whose profile marks them as administrators while their role does not.
	ListAdminRoleDrift(ctx context.Context) ([]domain.User, error)
	Ping(ctx context.Context) error
}

// LegacyDocumentRepository persists the non-user legacy collections keyed by document id.
type LegacyDocumentRepository interface {
	UpsertAdminContent(ctx context.Context, doc domain.LegacyDocument) error
	UpsertStatisticsItem(ctx context.Context, item domain.StatisticsItem) error
	UpsertActivity(ctx context.Context, doc domain.LegacyDocument) error
	UpsertUntrustedUser(ctx context.Context, entry domain.UntrustedUser) error
	UpsertPaymentPlaceSubmission(ctx context.Context, submission domain.PaymentPlaceSubmission) error
}
