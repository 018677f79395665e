package firestore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/zaynrix/trustedvalley-backend/internal/legacy"
)

func TestConvertMapNormalisesValues(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	got := convertMap(map[string]any{
		"createdAt": created,
		"count":     int64(3),
		"profile": map[string]any{
			"role": int64(1),
			"tags": []any{"a", int64(2)},
		},
		"note": nil,
	})

	assert.Equal(t, created, got["createdAt"])
	assert.Equal(t, int64(3), got["count"])
	assert.Equal(t, map[string]any{
		"role": int64(1),
		"tags": []any{"a", int64(2)},
	}, got["profile"])
	assert.Contains(t, got, "note")
	assert.Nil(t, got["note"])
}

func TestConvertMapKeepsLargeIntegersExact(t *testing.T) {
	got := convertMap(map[string]any{"userId": int64(9007199254740993)})

	id, ok := legacy.ResolveString(got, legacy.FieldLegacyID)
	assert.True(t, ok)
	assert.Equal(t, "9007199254740993", id)
}

func TestConvertMapNil(t *testing.T) {
	assert.Equal(t, map[string]any{}, convertMap(nil))
}
