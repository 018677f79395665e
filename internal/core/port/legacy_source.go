package port

import (
	"context"
	"errors"

	"github.com/zaynrix/trustedvalley-backend/internal/core/domain"
)

// ErrCollectionNotFound signals that a whole legacy collection does not exist.
// An existing but empty collection returns no records and a nil error instead.
var ErrCollectionNotFound = errors.New("legacy source: collection not found")

// LegacySource reads documents from the legacy document store.
type LegacySource interface {
	ListCollection(ctx context.Context, name string) ([]domain.SourceRecord, error)
	GetSubcollection(ctx context.Context, parentPath, name string) ([]domain.SourceRecord, error)
	Ping(ctx context.Context) error
	Close() error
}
