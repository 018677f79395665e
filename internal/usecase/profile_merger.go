package usecase

import (
	"strings"
	"time"

	"github.com/zaynrix/trustedvalley-backend/internal/core/domain"
	"github.com/zaynrix/trustedvalley-backend/internal/legacy"
)

// Profile keys with fixed meaning in the canonical profile document.
const (
	profileKeyEmail       = "email"
	profileKeyFullName    = "fullName"
	profileKeyDisplayName = "displayName"
	profileKeyLastUpdated = "lastUpdated"
	profileKeyUpdatedAt   = "updatedAt"
)

// preservedProfileKeys keep a non-empty existing value over incoming data.
var preservedProfileKeys = []string{profileKeyEmail, profileKeyFullName, profileKeyDisplayName}

// stickyMarkKeys never revert from true, whichever collection is being merged.
var stickyMarkKeys = []string{profileKeyIsTrusted, profileKeyIsAdmin}

// credentialKeys never survive into a profile, at any depth.
var credentialKeys = map[string]struct{}{
	"password":      {},
	"passwordHash":  {},
	"password_hash": {},
}

// MergeOptions tunes a single merge.
type MergeOptions struct {
	// MarkFields are forced true when either side carries them as truthy.
	MarkFields []string
	// ProvenanceKey names the key under which Provenance is embedded. Empty skips embedding.
	ProvenanceKey string
	Provenance    map[string]any
}

// ProfileMerger folds normalised legacy data into a canonical profile document.
type ProfileMerger struct {
	now func() time.Time
}

// NewProfileMerger constructs a merger stamping with now. A nil clock uses time.Now.
func NewProfileMerger(now func() time.Time) *ProfileMerger {
	if now == nil {
		now = time.Now
	}
	return &ProfileMerger{now: now}
}

// Merge overlays incoming on existing. Incoming wins except for preserved identity keys,
// mark fields never revert from true, and the result carries no credential material.
func (m *ProfileMerger) Merge(existing, incoming domain.Profile, opts MergeOptions) domain.Profile {
	out := existing.Clone()
	for k, v := range incoming {
		out[k] = v
	}

	for _, key := range preservedProfileKeys {
		if current, ok := existing[key]; ok && !blank(current) {
			out[key] = current
		}
	}

	for _, field := range opts.MarkFields {
		if truthy(incoming[field]) || truthy(existing[field]) {
			out[field] = true
		}
	}

	for _, key := range stickyMarkKeys {
		if truthy(existing[key]) {
			out[key] = true
		}
	}

	if opts.ProvenanceKey != "" && opts.Provenance != nil {
		out[opts.ProvenanceKey] = legacy.DeepCoerceTimestamps(opts.Provenance)
	}

	stamp := legacy.FormatISO(m.now())
	out[profileKeyLastUpdated] = stamp
	out[profileKeyUpdatedAt] = stamp

	return stripCredentials(legacy.DeepCoerceTimestamps(out))
}

// stripCredentials removes credential keys from maps at any depth, in place.
func stripCredentials(doc map[string]any) domain.Profile {
	for k, v := range doc {
		if _, ok := credentialKeys[k]; ok {
			delete(doc, k)
			continue
		}
		stripValue(v)
	}
	return domain.Profile(doc)
}

func stripValue(v any) {
	switch val := v.(type) {
	case map[string]any:
		stripCredentials(val)
	case domain.Profile:
		stripCredentials(val)
	case []any:
		for _, item := range val {
			stripValue(item)
		}
	}
}

func blank(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	default:
		return false
	}
}

func truthy(v any) bool {
	b, ok := v.(bool)
	return ok && b
}
