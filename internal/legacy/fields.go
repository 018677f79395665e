// Package legacy normalises loosely-typed documents exported from the legacy document store.
//
// Legacy collections spell the same logical attribute in several ways (fullName, displayName,
// name, ...). Every canonical field therefore has a fixed, ordered list of accepted source keys and
// lookups always consult that table, so re-running a migration resolves fields identically.
package legacy

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Field names a canonical logical attribute.
type Field string

const (
	FieldEmail                      Field = "email"
	FieldFullName                   Field = "fullName"
	FieldLegacyID                   Field = "legacyId"
	FieldStatus                     Field = "status"
	FieldRole                       Field = "role"
	FieldPhoneNumber                Field = "phoneNumber"
	FieldAdditionalPhone            Field = "additionalPhone"
	FieldLocation                   Field = "location"
	FieldReferenceNumber            Field = "referenceNumber"
	FieldCreatedAt                  Field = "createdAt"
	FieldUpdatedAt                  Field = "updatedAt"
	FieldAddedAt                    Field = "addedAt"
	FieldMovedToTrustedAt           Field = "movedToTrustedAt"
	FieldSubmittedAt                Field = "submittedAt"
	FieldReviewedAt                 Field = "reviewedAt"
	FieldLastActionAt               Field = "lastActionAt"
	FieldLastDocumentSubmissionDate Field = "lastDocumentSubmissionDate"
	FieldApplicationID              Field = "applicationId"
	FieldApplicationType            Field = "applicationType"
	FieldActionBy                   Field = "actionBy"
	FieldActionType                 Field = "actionType"
	FieldActionReason               Field = "actionReason"
	FieldReviewedBy                 Field = "reviewedBy"
	FieldLastModifiedBy             Field = "lastModifiedBy"
	FieldHasPendingDocumentRequests Field = "hasPendingDocumentRequests"
	FieldPlaceName                  Field = "placeName"
	FieldLabel                      Field = "label"
	FieldDescription                Field = "description"
	FieldValue                      Field = "value"
	FieldOrderIndex                 Field = "orderIndex"
	FieldIsActive                   Field = "isActive"
	FieldPasswordHash               Field = "passwordHash"
)

// variants is the ordered table of accepted source keys. Dotted keys walk nested maps.
var variants = map[Field][]string{
	FieldEmail:                      {"email", "userEmail", "user_email", "profile.email"},
	FieldFullName:                   {"fullName", "displayName", "name", "userName", "profile.fullName", "profile.displayName"},
	FieldLegacyID:                   {"userId", "user_id", "uid"},
	FieldStatus:                     {"status", "state"},
	FieldRole:                       {"role", "profile.role"},
	FieldPhoneNumber:                {"phoneNumber", "phone_number", "profile.phoneNumber"},
	FieldAdditionalPhone:            {"additionalPhone", "additional_phone", "profile.additionalPhone"},
	FieldLocation:                   {"location", "profile.location", "city"},
	FieldReferenceNumber:            {"referenceNumber", "reference_number", "profile.referenceNumber"},
	FieldCreatedAt:                  {"createdAt", "created_at", "profile.createdAt"},
	FieldUpdatedAt:                  {"updatedAt", "updated_at", "profile.updatedAt"},
	FieldAddedAt:                    {"addedAt", "added_at"},
	FieldMovedToTrustedAt:           {"movedToTrustedAt", "moved_to_trusted_at"},
	FieldSubmittedAt:                {"submittedAt", "submitted_at"},
	FieldReviewedAt:                 {"reviewedAt", "reviewed_at"},
	FieldLastActionAt:               {"lastActionAt", "last_action_at"},
	FieldLastDocumentSubmissionDate: {"lastDocumentSubmissionDate", "last_document_submission_date"},
	FieldApplicationID:              {"applicationId", "application_id"},
	FieldApplicationType:            {"applicationType", "application_type", "type"},
	FieldActionBy:                   {"actionBy", "action_by"},
	FieldActionType:                 {"actionType", "action_type"},
	FieldActionReason:               {"actionReason", "action_reason"},
	FieldReviewedBy:                 {"reviewedBy", "reviewed_by"},
	FieldLastModifiedBy:             {"lastModifiedBy", "last_modified_by"},
	FieldHasPendingDocumentRequests: {"hasPendingDocumentRequests", "has_pending_document_requests"},
	FieldPlaceName:                  {"placeName", "place_name", "name"},
	FieldLabel:                      {"label"},
	FieldDescription:                {"description"},
	FieldValue:                      {"value"},
	FieldOrderIndex:                 {"orderIndex", "order_index"},
	FieldIsActive:                   {"isActive", "is_active"},
	FieldPasswordHash:               {"password_hash", "passwordHash"},
}

// Variants returns the ordered source keys accepted for f. Unknown fields accept only their own name.
func Variants(f Field) []string {
	if keys, ok := variants[f]; ok {
		out := make([]string, len(keys))
		copy(out, keys)
		return out
	}
	return []string{string(f)}
}

// Resolve returns the value of the first variant of f that is present and not nil.
func Resolve(data map[string]any, f Field) (any, bool) {
	for _, key := range Variants(f) {
		if v, ok := lookup(data, key); ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// ResolveString returns the first variant that holds a non-blank string. Integral numbers
// are accepted and formatted, which covers numeric legacy identifiers.
func ResolveString(data map[string]any, f Field) (string, bool) {
	for _, key := range Variants(f) {
		v, ok := lookup(data, key)
		if !ok {
			continue
		}
		if s, ok := asString(v); ok {
			return s, true
		}
	}
	return "", false
}

// ResolveBool returns the first variant holding a boolean.
func ResolveBool(data map[string]any, f Field) (bool, bool) {
	for _, key := range Variants(f) {
		if v, ok := lookup(data, key); ok {
			if b, ok := v.(bool); ok {
				return b, true
			}
		}
	}
	return false, false
}

// ResolveInt returns the first variant holding an integral number.
func ResolveInt(data map[string]any, f Field) (int, bool) {
	for _, key := range Variants(f) {
		v, ok := lookup(data, key)
		if !ok {
			continue
		}
		switch n := v.(type) {
		case int:
			return n, true
		case int32:
			return int(n), true
		case int64:
			return int(n), true
		case float64:
			if n == math.Trunc(n) {
				return int(n), true
			}
		}
	}
	return 0, false
}

// Anomaly describes a present value that could not be interpreted.
type Anomaly struct {
	Field Field
	Key   string
	Value any
}

// ResolveTime coerces the first present variant of f into a timestamp. A present value that
// does not parse yields ok=false and a non-nil anomaly; an absent field yields neither.
func ResolveTime(data map[string]any, f Field) (time.Time, bool, *Anomaly) {
	for _, key := range Variants(f) {
		v, ok := lookup(data, key)
		if !ok || v == nil {
			continue
		}
		if t, ok := CoerceTimestamp(v); ok {
			return t, true, nil
		}
		return time.Time{}, false, &Anomaly{Field: f, Key: key, Value: v}
	}
	return time.Time{}, false, nil
}

// Nested returns the map stored under key, if any.
func Nested(data map[string]any, key string) (map[string]any, bool) {
	v, ok := lookup(data, key)
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

func lookup(data map[string]any, key string) (any, bool) {
	if data == nil {
		return nil, false
	}
	if v, ok := data[key]; ok {
		return v, true
	}
	head, rest, found := strings.Cut(key, ".")
	if !found {
		return nil, false
	}
	child, ok := data[head].(map[string]any)
	if !ok {
		return nil, false
	}
	return lookup(child, rest)
}

func asString(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		return s, s != ""
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case float64:
		if val == math.Trunc(val) && !math.IsInf(val, 0) {
			return strconv.FormatInt(int64(val), 10), true
		}
	}
	return "", false
}
