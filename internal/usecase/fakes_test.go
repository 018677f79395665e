package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/zaynrix/trustedvalley-backend/internal/core/domain"
	"github.com/zaynrix/trustedvalley-backend/internal/core/port"
	"github.com/zaynrix/trustedvalley-backend/internal/repository"
)

// memoryUserRepository mimics the postgres store: case-insensitive unique email,
// primary key on id, and partial updates that skip nil fields.
type memoryUserRepository struct {
	mu    sync.Mutex
	users map[string]domain.User
	order []string

	inserts int
	updates int

	insertErr func(domain.User) error
	updateErr func(string) error
	queryErr  error
	pingErr   error

	// duplicates returned by QueryByEmail on top of the stored match
	extraByEmail []domain.User
}

func newMemoryUserRepository(seed ...domain.User) *memoryUserRepository {
	r := &memoryUserRepository{users: make(map[string]domain.User)}
	for _, u := range seed {
		r.users[u.ID] = u
		r.order = append(r.order, u.ID)
	}
	return r
}

func (r *memoryUserRepository) QueryByEmail(_ context.Context, email string) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.queryErr != nil {
		return nil, r.queryErr
	}
	email = strings.ToLower(strings.TrimSpace(email))
	var out []domain.User
	for _, id := range r.order {
		u := r.users[id]
		if strings.ToLower(u.Email) == email {
			out = append(out, u)
		}
	}
	if len(out) > 0 {
		out = append(out, r.extraByEmail...)
	}
	return out, nil
}

func (r *memoryUserRepository) QueryByID(_ context.Context, id string) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.queryErr != nil {
		return nil, r.queryErr
	}
	var out []domain.User
	for _, key := range r.order {
		u := r.users[key]
		switch {
		case u.ID == id, u.ID == userIDPrefix+id:
			out = append(out, u)
		case u.Profile["legacyId"] == id, u.Profile["uid"] == id, u.Profile["firebaseUid"] == id:
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *memoryUserRepository) InsertUser(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		if err := r.insertErr(user); err != nil {
			return err
		}
	}
	if _, ok := r.users[user.ID]; ok {
		return repository.ErrConflict
	}
	for _, u := range r.users {
		if strings.EqualFold(u.Email, user.Email) {
			return repository.ErrConflict
		}
	}
	user.Email = strings.ToLower(user.Email)
	r.users[user.ID] = user
	r.order = append(r.order, user.ID)
	r.inserts++
	return nil
}

func (r *memoryUserRepository) UpdateUser(_ context.Context, id string, patch domain.UserPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		if err := r.updateErr(id); err != nil {
			return err
		}
	}
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.UpdatedAt = patch.UpdatedAt
	if patch.FullName != nil {
		u.FullName = *patch.FullName
	}
	if patch.Role != nil {
		u.Role = *patch.Role
	}
	if patch.Status != nil {
		u.Status = *patch.Status
	}
	if patch.Profile != nil {
		u.Profile = patch.Profile
	}
	setString(&u.Contact.PhoneNumber, patch.Contact.PhoneNumber)
	setString(&u.Contact.AdditionalPhone, patch.Contact.AdditionalPhone)
	setString(&u.Contact.Location, patch.Contact.Location)
	setString(&u.Contact.ReferenceNumber, patch.Contact.ReferenceNumber)
	setTime(&u.Trust.AddedAt, patch.Trust.AddedAt)
	setTime(&u.Trust.MovedToTrustedAt, patch.Trust.MovedToTrustedAt)
	setString(&u.Trust.ActionBy, patch.Trust.ActionBy)
	setString(&u.Application.Type, patch.Application.Type)
	setTime(&u.Application.SubmittedAt, patch.Application.SubmittedAt)
	r.users[id] = u
	r.updates++
	return nil
}

func (r *memoryUserRepository) ListAdminRoleDrift(context.Context) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.User
	for _, id := range r.order {
		u := r.users[id]
		if u.Role == domain.RoleAdministrator {
			continue
		}
		if u.Profile["isAdmin"] == true || u.Profile["adminData"] != nil {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *memoryUserRepository) Ping(context.Context) error {
	return r.pingErr
}

func (r *memoryUserRepository) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

func (r *memoryUserRepository) get(id string) (domain.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	return u, ok
}

func setString(dst **string, v *string) {
	if v != nil && strings.TrimSpace(*v) != "" {
		*dst = v
	}
}

func setTime(dst **time.Time, v *time.Time) {
	if v != nil {
		*dst = v
	}
}

type recordingDocumentRepository struct {
	adminContent []domain.LegacyDocument
	statistics   []domain.StatisticsItem
	activities   []domain.LegacyDocument
	untrusted    []domain.UntrustedUser
	submissions  []domain.PaymentPlaceSubmission
	err          error
}

func (r *recordingDocumentRepository) UpsertAdminContent(_ context.Context, doc domain.LegacyDocument) error {
	if r.err != nil {
		return r.err
	}
	r.adminContent = append(r.adminContent, doc)
	return nil
}

func (r *recordingDocumentRepository) UpsertStatisticsItem(_ context.Context, item domain.StatisticsItem) error {
	if r.err != nil {
		return r.err
	}
	r.statistics = append(r.statistics, item)
	return nil
}

func (r *recordingDocumentRepository) UpsertActivity(_ context.Context, doc domain.LegacyDocument) error {
	if r.err != nil {
		return r.err
	}
	r.activities = append(r.activities, doc)
	return nil
}

func (r *recordingDocumentRepository) UpsertUntrustedUser(_ context.Context, entry domain.UntrustedUser) error {
	if r.err != nil {
		return r.err
	}
	r.untrusted = append(r.untrusted, entry)
	return nil
}

func (r *recordingDocumentRepository) UpsertPaymentPlaceSubmission(_ context.Context, submission domain.PaymentPlaceSubmission) error {
	if r.err != nil {
		return r.err
	}
	r.submissions = append(r.submissions, submission)
	return nil
}

// stubCredentialIssuer adopts hashes prefixed with "$2" and issues counted placeholders.
type stubCredentialIssuer struct {
	issued int
	err    error
}

func (s *stubCredentialIssuer) Placeholder() (port.Credential, error) {
	if s.err != nil {
		return port.Credential{}, s.err
	}
	s.issued++
	return port.Credential{Hash: "argon2id$placeholder", Algo: domain.PasswordAlgoArgon2id, MustReset: true}, nil
}

func (s *stubCredentialIssuer) Adopt(legacyHash string) (port.Credential, bool) {
	if !strings.HasPrefix(legacyHash, "$2") {
		return port.Credential{}, false
	}
	return port.Credential{Hash: legacyHash, Algo: domain.PasswordAlgoBcrypt}, true
}

type recordingPublisher struct {
	migrated  []domain.UserMigratedEvent
	completed []domain.MigrationCompletedEvent
	err       error
}

func (p *recordingPublisher) PublishUserMigrated(_ context.Context, event domain.UserMigratedEvent) error {
	p.migrated = append(p.migrated, event)
	return p.err
}

func (p *recordingPublisher) PublishMigrationCompleted(_ context.Context, event domain.MigrationCompletedEvent) error {
	p.completed = append(p.completed, event)
	return p.err
}

type memorySource struct {
	collections    map[string][]domain.SourceRecord
	subcollections map[string][]domain.SourceRecord
	listErr        map[string]error
	pingErr        error
	listed         []string
}

func (s *memorySource) ListCollection(_ context.Context, name string) ([]domain.SourceRecord, error) {
	s.listed = append(s.listed, name)
	if err := s.listErr[name]; err != nil {
		return nil, err
	}
	records, ok := s.collections[name]
	if !ok {
		return nil, port.ErrCollectionNotFound
	}
	return records, nil
}

func (s *memorySource) GetSubcollection(_ context.Context, parentPath, name string) ([]domain.SourceRecord, error) {
	key := parentPath + "/" + name
	s.listed = append(s.listed, key)
	records, ok := s.subcollections[key]
	if !ok {
		return nil, port.ErrCollectionNotFound
	}
	return records, nil
}

func (s *memorySource) Ping(context.Context) error { return s.pingErr }

func (s *memorySource) Close() error { return nil }

type stubRunLock struct {
	held     bool
	err      error
	released []string
}

func (l *stubRunLock) Acquire(_ context.Context, _ string, _ time.Duration) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *stubRunLock) Release(_ context.Context, owner string) error {
	l.held = false
	l.released = append(l.released, owner)
	return nil
}

type countingMetrics struct {
	records map[string]int
	passes  []string
}

func (m *countingMetrics) ObserveRecord(collection, outcome string) {
	if m.records == nil {
		m.records = make(map[string]int)
	}
	m.records[collection+"/"+outcome]++
}

func (m *countingMetrics) ObservePass(collection string, _ time.Duration) {
	m.passes = append(m.passes, collection)
}

type memorySink struct {
	summaries []domain.Summary
}

func (s *memorySink) Write(_ context.Context, summary domain.Summary) error {
	s.summaries = append(s.summaries, summary)
	return nil
}

var errBoom = errors.New("boom")

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
