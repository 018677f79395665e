package usecase

import (
	"github.com/zaynrix/trustedvalley-backend/internal/core/domain"
	"github.com/zaynrix/trustedvalley-backend/internal/legacy"
)

const (
	profileKeyIsTrusted         = "isTrusted"
	profileKeyIsAdmin           = "isAdmin"
	profileKeyLegacyID          = "legacyId"
	profileKeyApplicationType   = "applicationType"
	profileKeyApplicationStatus = "applicationStatus"
	profileKeyCreatedAt         = "createdAt"
	profileKeyJoinedDate        = "joinedDate"
	profileKeyIsActive          = "isActive"
	profileKeyStatus            = "status"

	nestedProfileKey = "profile"
)

// userRule describes how one legacy collection maps onto canonical users.
type userRule struct {
	provenanceKey string
	markFields    []string
	defaultName   string

	// role is applied on create. On update it is applied only when promote is set and it outranks the stored role.
	role    func(data map[string]any) domain.Role
	promote bool

	// createStatus is applied on create; updateStatus, when set, may override the stored status on update.
	createStatus func(data map[string]any) domain.UserStatus
	updateStatus func(data map[string]any) (domain.UserStatus, bool)

	// docIDIsLegacyID treats the document id as the legacy user id when no explicit id field is present.
	docIDIsLegacyID bool
	// idOnlyMatch lets a record without email match an existing user by legacy id. It never creates.
	idOnlyMatch bool
	// nestedProfile takes the profile, email and role from a nested "profile" map when the record has one.
	nestedProfile bool

	contact     bool
	trust       bool
	application bool
}

var userRules = map[string]userRule{
	domain.CollectionUsers: {
		provenanceKey:   "legacyUserData",
		defaultName:     "",
		role:            profileFirstRole,
		promote:         true,
		createStatus:    sourceStatus,
		docIDIsLegacyID: true,
		nestedProfile:   true,
		contact:         true,
	},
	domain.CollectionTrustedUsers: {
		provenanceKey:   "trustedUserData",
		markFields:      []string{profileKeyIsTrusted},
		defaultName:     "Trusted User",
		role:            fixedRole(domain.RoleTrusted),
		promote:         true,
		createStatus:    fixedStatus(domain.UserStatusActive),
		docIDIsLegacyID: true,
		trust:           true,
	},
	domain.CollectionUserApplications: {
		provenanceKey: "applicationData",
		defaultName:   "User",
		role:          fixedRole(domain.RoleCommon),
		createStatus:  sourceStatus,
		updateStatus:  explicitStatus,
		application:   true,
	},
	domain.CollectionAdmins: {
		provenanceKey:   "adminData",
		markFields:      []string{profileKeyIsAdmin},
		defaultName:     "Admin User",
		role:            fixedRole(domain.RoleAdministrator),
		promote:         true,
		createStatus:    fixedStatus(domain.UserStatusActive),
		docIDIsLegacyID: true,
		idOnlyMatch:     true,
	},
}

func sourceRole(data map[string]any) domain.Role {
	if v, ok := legacy.Resolve(data, legacy.FieldRole); ok {
		return domain.NormalizeRole(v)
	}
	return domain.RoleCommon
}

// profileFirstRole reads the role from the nested profile before the top level.
func profileFirstRole(data map[string]any) domain.Role {
	if nested, ok := legacy.Nested(data, nestedProfileKey); ok {
		if v, ok := legacy.Resolve(nested, legacy.FieldRole); ok {
			return domain.NormalizeRole(v)
		}
	}
	return sourceRole(data)
}

func fixedRole(role domain.Role) func(map[string]any) domain.Role {
	return func(map[string]any) domain.Role { return role }
}

func sourceStatus(data map[string]any) domain.UserStatus {
	if status, ok := explicitStatus(data); ok {
		return status
	}
	return domain.UserStatusPending
}

func explicitStatus(data map[string]any) (domain.UserStatus, bool) {
	if s, ok := legacy.ResolveString(data, legacy.FieldStatus); ok {
		return domain.UserStatus(s), true
	}
	return "", false
}

func fixedStatus(status domain.UserStatus) func(map[string]any) domain.UserStatus {
	return func(map[string]any) domain.UserStatus { return status }
}
