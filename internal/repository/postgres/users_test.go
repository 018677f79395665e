package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/zaynrix/trustedvalley-backend/internal/core/domain"
	"github.com/zaynrix/trustedvalley-backend/internal/repository"
)

func userRow(id, email string, role domain.Role, profile string, createdAt time.Time) []any {
	row := make([]any, len(userColumns))
	row[0] = id
	row[1] = email
	row[2] = "Jane Doe"
	row[3] = int16(role)
	row[4] = "active"
	row[5] = []byte(profile)
	row[6] = "argon2id$hash"
	row[7] = domain.PasswordAlgoArgon2id
	row[8] = true
	row[27] = createdAt
	row[28] = createdAt
	return row
}

func TestUserRepository_QueryByEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)
	createdAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	trustedAt := createdAt.Add(time.Hour)

	row := userRow("user_1", "jane@example.com", domain.RoleTrusted, `{"legacyId":"1","isTrusted":true}`, createdAt)
	row[9] = "+49 111"
	row[13] = trustedAt
	row[23] = true

	mock.ExpectQuery(`SELECT .* FROM users WHERE lower\(email\) = \$1 ORDER BY created_at ASC`).
		WithArgs("jane@example.com").
		WillReturnRows(pgxmock.NewRows(userColumns).AddRow(row...))

	users, err := repo.QueryByEmail(context.Background(), "  Jane@Example.com ")
	if err != nil {
		t.Fatalf("QueryByEmail returned error: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected one user, got %d", len(users))
	}

	user := users[0]
	if user.ID != "user_1" || user.Role != domain.RoleTrusted {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.Profile["legacyId"] != "1" || user.Profile["isTrusted"] != true {
		t.Fatalf("unexpected profile: %+v", user.Profile)
	}
	if user.Contact.PhoneNumber == nil || *user.Contact.PhoneNumber != "+49 111" {
		t.Fatalf("expected phone number, got %v", user.Contact.PhoneNumber)
	}
	if user.Contact.Location != nil {
		t.Fatalf("expected nil location, got %v", *user.Contact.Location)
	}
	if user.Trust.AddedAt == nil || !user.Trust.AddedAt.Equal(trustedAt) {
		t.Fatalf("expected trusted_added_at %s, got %v", trustedAt, user.Trust.AddedAt)
	}
	if user.Trust.HasPendingDocumentRequests == nil || !*user.Trust.HasPendingDocumentRequests {
		t.Fatalf("expected pending document flag")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_QueryByEmailBlankSkipsQuery(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	users, err := NewUserRepository(mock).QueryByEmail(context.Background(), "  ")
	if err != nil {
		t.Fatalf("QueryByEmail returned error: %v", err)
	}
	if len(users) != 0 {
		t.Fatalf("expected no users, got %d", len(users))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_QueryByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)
	createdAt := time.Now().UTC()

	mock.ExpectQuery(`SELECT .* FROM users WHERE \(id IN \(\$1,\$2\) OR profile->>'legacyId' = \$3 OR profile->>'uid' = \$4 OR profile->>'firebaseUid' = \$5\)`).
		WithArgs("abc", "user_abc", "abc", "abc", "abc").
		WillReturnRows(pgxmock.NewRows(userColumns).
			AddRow(userRow("user_abc", "a@example.com", domain.RoleCommon, `{}`, createdAt)...).
			AddRow(userRow("user_other", "b@example.com", domain.RoleCommon, `{"uid":"abc"}`, createdAt)...))

	users, err := repo.QueryByID(context.Background(), "abc")
	if err != nil {
		t.Fatalf("QueryByID returned error: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected two users, got %d", len(users))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_InsertUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	location := "Berlin"
	appType := "trusted"

	user := domain.User{
		ID:                "user_1",
		Email:             "Jane@Example.com",
		FullName:          "Jane Doe",
		Role:              domain.RoleCommon,
		Status:            domain.UserStatusActive,
		Profile:           domain.Profile{"legacyId": "1"},
		PasswordHash:      "hash",
		PasswordAlgo:      domain.PasswordAlgoArgon2id,
		MustResetPassword: true,
		Contact:           domain.ContactDetails{Location: &location},
		Application:       domain.ApplicationTracking{Type: &appType, SubmittedAt: &now},
		CreatedAt:         now,
	}

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(
			"user_1",
			"jane@example.com",
			"Jane Doe",
			int16(domain.RoleCommon),
			"active",
			[]byte(`{"legacyId":"1"}`),
			"hash",
			domain.PasswordAlgoArgon2id,
			true,
			nil, nil, "Berlin", nil,
			nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil,
			"trusted", now, nil,
			now, now,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.InsertUser(context.Background(), user); err != nil {
		t.Fatalf("InsertUser returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_InsertUserUniqueViolation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	args := make([]any, len(userColumns))
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(args...).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_lower_key"})

	err = repo.InsertUser(context.Background(), domain.User{ID: "user_1", Email: "a@example.com"})
	if !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_UpdateUserSetsOnlyProvidedFields(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	role := domain.RoleTrusted
	actionBy := "moderator"
	blank := "   "

	patch := domain.UserPatch{
		Role:      &role,
		Contact:   domain.ContactDetails{Location: &blank},
		Trust:     domain.TrustTracking{AddedAt: &now, ActionBy: &actionBy},
		UpdatedAt: now,
	}

	mock.ExpectExec(`UPDATE users SET updated_at = \$1, role = \$2, trusted_added_at = \$3, action_by = \$4 WHERE id = \$5`).
		WithArgs(now, int16(domain.RoleTrusted), now, "moderator", "user_1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.UpdateUser(context.Background(), "user_1", patch); err != nil {
		t.Fatalf("UpdateUser returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_UpdateUserNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectExec(`UPDATE users SET updated_at = \$1 WHERE id = \$2`).
		WithArgs(now, "user_missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = NewUserRepository(mock).UpdateUser(context.Background(), "user_missing", domain.UserPatch{UpdatedAt: now})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserRepository_ListAdminRoleDrift(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT .* FROM users WHERE role <> \$1 AND \(profile->>'isAdmin' = 'true' OR profile->'adminData' IS NOT NULL\)`).
		WithArgs(int16(domain.RoleAdministrator)).
		WillReturnRows(pgxmock.NewRows(userColumns).
			AddRow(userRow("user_9", "admin@example.com", domain.RoleCommon, `{"isAdmin":true}`, time.Now().UTC())...))

	users, err := NewUserRepository(mock).ListAdminRoleDrift(context.Background())
	if err != nil {
		t.Fatalf("ListAdminRoleDrift returned error: %v", err)
	}
	if len(users) != 1 || users[0].ID != "user_9" {
		t.Fatalf("unexpected users: %+v", users)
	}
}

func TestUserRepository_Ping(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT 1`).WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))

	if err := NewUserRepository(mock).Ping(context.Background()); err != nil {
		t.Fatalf("Ping returned error: %v", err)
	}

	mock.ExpectQuery(`SELECT 1`).WillReturnError(errors.New("connection refused"))
	if err := NewUserRepository(mock).Ping(context.Background()); err == nil {
		t.Fatal("expected ping error")
	}
}
