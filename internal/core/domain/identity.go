package domain

import "time"

// UserStatus is a free-text lifecycle label. The constants cover the values the platform writes itself.
type UserStatus string

const (
	UserStatusPending UserStatus = "pending"
	UserStatusActive  UserStatus = "active"
)

// Password algorithms recorded alongside the credential hash.
const (
	PasswordAlgoArgon2id = "argon2id"
	PasswordAlgoBcrypt   = "bcrypt"
)

// Profile is the open attribute bag stored as JSONB on the users table.
type Profile map[string]any

// Clone returns a shallow copy of the profile. A nil profile clones to an empty one.
func (p Profile) Clone() Profile {
	out := make(Profile, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// User mirrors the persisted representation in the users table.
type User struct {
	ID                string
	Email             string
	FullName          string
	Role              Role
	Status            UserStatus
	Profile           Profile
	PasswordHash      string
	PasswordAlgo      string
	MustResetPassword bool
	Contact           ContactDetails
	Trust             TrustTracking
	Application       ApplicationTracking
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ContactDetails are the contact columns promoted out of the profile for querying.
type ContactDetails struct {
	PhoneNumber     *string
	AdditionalPhone *string
	Location        *string
	ReferenceNumber *string
}

// TrustTracking captures the moderation trail recorded when a user is moved to the trusted list.
type TrustTracking struct {
	AddedAt                    *time.Time
	MovedToTrustedAt           *time.Time
	ApplicationID              *string
	ActionBy                   *string
	ActionType                 *string
	ActionReason               *string
	LastActionAt               *time.Time
	ReviewedBy                 *string
	LastModifiedBy             *string
	LastDocumentSubmissionDate *time.Time
	HasPendingDocumentRequests *bool
}

// ApplicationTracking captures the membership application columns.
type ApplicationTracking struct {
	Type        *string
	SubmittedAt *time.Time
	ReviewedAt  *time.Time
}

// UserPatch describes a partial update. Nil fields leave the stored value untouched.
type UserPatch struct {
	FullName    *string
	Role        *Role
	Status      *UserStatus
	Profile     Profile
	Contact     ContactDetails
	Trust       TrustTracking
	Application ApplicationTracking
	UpdatedAt   time.Time
}
