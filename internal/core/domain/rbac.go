package domain

import (
	"math"
	"strings"
)

// Role is the platform's fixed access level. The numeric values are the persisted smallint codes.
type Role int

const (
	RoleAdministrator Role = 0
	RoleTrusted       Role = 1
	RoleCommon        Role = 2
	RoleFlagged       Role = 3
)

var roleLabels = map[string]Role{
	"admin":         RoleAdministrator,
	"administrator": RoleAdministrator,
	"superadmin":    RoleAdministrator,
	"trusted":       RoleTrusted,
	"trusted_user":  RoleTrusted,
	"trusteduser":   RoleTrusted,
	"user":          RoleCommon,
	"common":        RoleCommon,
	"common_user":   RoleCommon,
	"commonuser":    RoleCommon,
	"guest":         RoleCommon,
	"flagged":       RoleFlagged,
	"betrug":        RoleFlagged,
	"betrug_user":   RoleFlagged,
	"betruguser":    RoleFlagged,
	"fraud":         RoleFlagged,
	"fraud_user":    RoleFlagged,
}

// String returns the canonical label.
func (r Role) String() string {
	switch r {
	case RoleAdministrator:
		return "administrator"
	case RoleTrusted:
		return "trusted"
	case RoleCommon:
		return "common"
	case RoleFlagged:
		return "flagged"
	default:
		return "unknown"
	}
}

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	return r >= RoleAdministrator && r <= RoleFlagged
}

// rank orders roles for promotion; higher outranks lower.
func (r Role) rank() int {
	switch r {
	case RoleAdministrator:
		return 3
	case RoleTrusted:
		return 2
	case RoleCommon:
		return 1
	default:
		return 0
	}
}

// Outranks reports whether r is a strictly higher access level than other.
func (r Role) Outranks(other Role) bool {
	return r.rank() > other.rank()
}

// NormalizeRole maps numeric codes and legacy labels onto an enumerated role.
// Anything unrecognised becomes RoleCommon.
func NormalizeRole(v any) Role {
	switch val := v.(type) {
	case Role:
		if val.Valid() {
			return val
		}
	case int:
		return roleFromInt(int64(val))
	case int32:
		return roleFromInt(int64(val))
	case int64:
		return roleFromInt(val)
	case float64:
		if val == math.Trunc(val) {
			return roleFromInt(int64(val))
		}
	case string:
		if role, ok := roleLabels[strings.ToLower(strings.TrimSpace(val))]; ok {
			return role
		}
	}
	return RoleCommon
}

func roleFromInt(n int64) Role {
	if n < int64(RoleAdministrator) || n > int64(RoleFlagged) {
		return RoleCommon
	}
	return Role(n)
}
