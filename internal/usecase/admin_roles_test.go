package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/zaynrix/trustedvalley-backend/internal/core/domain"
)

func TestAdminRoleRepair_PromotesDriftedUsers(t *testing.T) {
	repo := newMemoryUserRepository(
		domain.User{ID: "user_1", Email: "a@x.com", Role: domain.RoleCommon, Profile: domain.Profile{"isAdmin": true}},
		domain.User{ID: "user_2", Email: "b@x.com", Role: domain.RoleTrusted, Profile: domain.Profile{"adminData": map[string]any{"uid": "b"}}},
		domain.User{ID: "user_3", Email: "admin-looking@x.com", Role: domain.RoleCommon, Profile: domain.Profile{}},
		domain.User{ID: "user_4", Email: "c@x.com", Role: domain.RoleAdministrator, Profile: domain.Profile{"isAdmin": true}},
	)
	repair := NewAdminRoleRepair(repo, zaptest.NewLogger(t), fixedClock(firstRun))

	fixed, err := repair.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, fixed)

	for _, id := range []string{"user_1", "user_2"} {
		user, _ := repo.get(id)
		assert.Equal(t, domain.RoleAdministrator, user.Role, id)
	}
	user, _ := repo.get("user_3")
	assert.Equal(t, domain.RoleCommon, user.Role, "no email heuristics")
	assert.Equal(t, 2, repo.updates)
}

func TestAdminRoleRepair_StopsOnUpdateError(t *testing.T) {
	repo := newMemoryUserRepository(
		domain.User{ID: "user_1", Role: domain.RoleCommon, Profile: domain.Profile{"isAdmin": true}},
		domain.User{ID: "user_2", Role: domain.RoleCommon, Profile: domain.Profile{"isAdmin": true}},
	)
	repo.updateErr = func(id string) error {
		if id == "user_2" {
			return errBoom
		}
		return nil
	}

	fixed, err := NewAdminRoleRepair(repo, nil, nil).Run(context.Background())

	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, fixed)
}
