package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zaynrix/trustedvalley-backend/internal/core/domain"
)

func TestIdentityResolver_EmailMatchWinsOverLegacyID(t *testing.T) {
	repo := newMemoryUserRepository(
		domain.User{ID: "user_by_email", Email: "a@x.com"},
		domain.User{ID: "user_legacy", Email: "other@x.com"},
	)
	resolver := NewIdentityResolver(repo, zaptest.NewLogger(t))

	user, err := resolver.FindExisting(context.Background(), "A@X.com", "legacy")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "user_by_email", user.ID)
}

func TestIdentityResolver_FallsBackToLegacyID(t *testing.T) {
	repo := newMemoryUserRepository(
		domain.User{ID: "user_1", Email: "first@x.com", Profile: domain.Profile{"legacyId": "fb-1"}},
	)
	resolver := NewIdentityResolver(repo, zaptest.NewLogger(t))

	user, err := resolver.FindExisting(context.Background(), "unknown@x.com", "fb-1")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "user_1", user.ID)

	user, err = resolver.FindExisting(context.Background(), "", "1")
	require.NoError(t, err)
	require.NotNil(t, user, "prefixed id must match")
	assert.Equal(t, "user_1", user.ID)
}

func TestIdentityResolver_NoMatch(t *testing.T) {
	resolver := NewIdentityResolver(newMemoryUserRepository(), nil)

	user, err := resolver.FindExisting(context.Background(), "nobody@x.com", "")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestIdentityResolver_RejectsMissingIdentity(t *testing.T) {
	repo := newMemoryUserRepository()
	repo.queryErr = errBoom
	resolver := NewIdentityResolver(repo, nil)

	_, err := resolver.FindExisting(context.Background(), " ", "")
	assert.ErrorIs(t, err, ErrMissingIdentity)
}

func TestIdentityResolver_PropagatesStoreErrors(t *testing.T) {
	repo := newMemoryUserRepository()
	repo.queryErr = errBoom
	resolver := NewIdentityResolver(repo, nil)

	_, err := resolver.FindExisting(context.Background(), "a@x.com", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errBoom))
}

func TestIdentityResolver_MultipleMatchesUseFirstAndWarn(t *testing.T) {
	repo := newMemoryUserRepository(domain.User{ID: "user_a", Email: "dup@x.com"})
	repo.extraByEmail = []domain.User{{ID: "user_b", Email: "DUP@x.com"}}

	core, logs := observer.New(zap.WarnLevel)
	resolver := NewIdentityResolver(repo, zap.New(core))

	user, err := resolver.FindExisting(context.Background(), "dup@x.com", "")
	require.NoError(t, err)
	assert.Equal(t, "user_a", user.ID)

	entries := logs.FilterMessage("identity resolution returned multiple users").All()
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].ContextMap()["email"], "dup@x.com")
}
