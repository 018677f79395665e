package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/zaynrix/trustedvalley-backend/internal/core/domain"
	"github.com/zaynrix/trustedvalley-backend/internal/core/port"
	"github.com/zaynrix/trustedvalley-backend/internal/infra/logger"
)

// IdentityResolver locates the canonical user a legacy record refers to. It never writes.
type IdentityResolver struct {
	users  port.UserRepository
	logger *zap.Logger
}

// NewIdentityResolver constructs an IdentityResolver.
func NewIdentityResolver(users port.UserRepository, log *zap.Logger) *IdentityResolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &IdentityResolver{users: users, logger: log}
}

// FindExisting matches by email first and falls back to the legacy id. It returns nil when no user matches.
func (r *IdentityResolver) FindExisting(ctx context.Context, email, legacyID string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	legacyID = strings.TrimSpace(legacyID)
	if email == "" && legacyID == "" {
		return nil, ErrMissingIdentity
	}

	if email != "" {
		users, err := r.users.QueryByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("query user by email: %w", err)
		}
		if user := r.first(users, zap.String("email", logger.MaskEmail(email))); user != nil {
			return user, nil
		}
	}

	if legacyID == "" {
		return nil, nil
	}

	users, err := r.users.QueryByID(ctx, legacyID)
	if err != nil {
		return nil, fmt.Errorf("query user by id: %w", err)
	}
	return r.first(users, zap.String("legacy_id", legacyID)), nil
}

func (r *IdentityResolver) first(users []domain.User, key zap.Field) *domain.User {
	if len(users) == 0 {
		return nil
	}
	if len(users) > 1 {
		ids := make([]string, 0, len(users))
		for _, u := range users {
			ids = append(ids, u.ID)
		}
		r.logger.Warn("identity resolution returned multiple users", key, zap.Strings("user_ids", ids))
	}
	user := users[0]
	return &user
}
