package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/zaynrix/trustedvalley-backend/internal/core/domain"
	"github.com/zaynrix/trustedvalley-backend/internal/core/port"
	"github.com/zaynrix/trustedvalley-backend/internal/infra/logger"
)

// AdminRoleRepair promotes users whose profile marks them as administrators but whose role lags behind.
type AdminRoleRepair struct {
	users  port.UserRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewAdminRoleRepair constructs an AdminRoleRepair.
func NewAdminRoleRepair(users port.UserRepository, log *zap.Logger, now func() time.Time) *AdminRoleRepair {
	if log == nil {
		log = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &AdminRoleRepair{users: users, logger: log, now: now}
}

// Run returns the number of users promoted. It stops at the first failed update.
func (r *AdminRoleRepair) Run(ctx context.Context) (int, error) {
	drifted, err := r.users.ListAdminRoleDrift(ctx)
	if err != nil {
		return 0, fmt.Errorf("list admin role drift: %w", err)
	}

	role := domain.RoleAdministrator
	fixed := 0
	for _, user := range drifted {
		patch := domain.UserPatch{Role: &role, UpdatedAt: r.now().UTC()}
		if err := r.users.UpdateUser(ctx, user.ID, patch); err != nil {
			return fixed, fmt.Errorf("promote user %s: %w", user.ID, err)
		}
		fixed++
		r.logger.Info("administrator role restored",
			zap.String("user_id", user.ID),
			zap.String("email", logger.MaskEmail(user.Email)),
			zap.String("previous_role", user.Role.String()),
		)
	}
	return fixed, nil
}
