package firestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/zaynrix/trustedvalley-backend/internal/core/domain"
	"github.com/zaynrix/trustedvalley-backend/internal/core/port"
	"github.com/zaynrix/trustedvalley-backend/internal/infra/config"
)

const defaultTimeout = 2 * time.Minute

// Source reads legacy collections from Cloud Firestore.
//
// Firestore has no notion of an empty collection: a collection exists only while it holds
// documents. A listing that yields nothing is therefore reported as port.ErrCollectionNotFound.
type Source struct {
	client  *firestore.Client
	timeout time.Duration
	logger  *zap.Logger
}

var _ port.LegacySource = (*Source)(nil)

// NewSource opens a client for cfg.ProjectID. Inline JSON credentials win over a credentials
// file; with neither, application default credentials are used.
func NewSource(ctx context.Context, cfg config.LegacySettings, logger *zap.Logger) (*Source, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProjectID == "" {
		return nil, errors.New("firestore: project id is required")
	}

	var opts []option.ClientOption
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore: create client: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	logger.Info("firestore source initialized",
		zap.String("project_id", cfg.ProjectID),
		zap.Bool("inline_credentials", cfg.CredentialsJSON != ""),
		zap.Duration("timeout", timeout),
	)

	return &Source{client: client, timeout: timeout, logger: logger}, nil
}

func (s *Source) ListCollection(ctx context.Context, name string) ([]domain.SourceRecord, error) {
	return s.list(ctx, name, s.client.Collection(name))
}

func (s *Source) GetSubcollection(ctx context.Context, parentPath, name string) ([]domain.SourceRecord, error) {
	parent := s.client.Doc(parentPath)
	if parent == nil {
		return nil, fmt.Errorf("firestore: invalid document path %q", parentPath)
	}
	return s.list(ctx, parentPath+"/"+name, parent.Collection(name))
}

func (s *Source) list(ctx context.Context, path string, ref *firestore.CollectionRef) ([]domain.SourceRecord, error) {
	if ref == nil {
		return nil, fmt.Errorf("firestore: invalid collection path %q", path)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	it := ref.Documents(ctx)
	defer it.Stop()

	var records []domain.SourceRecord
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return nil, fmt.Errorf("%w: %s", port.ErrCollectionNotFound, path)
			}
			return nil, fmt.Errorf("firestore: list %s: %w", path, err)
		}

		records = append(records, domain.SourceRecord{
			ID:   snap.Ref.ID,
			Data: convertMap(snap.Data()),
		})
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", port.ErrCollectionNotFound, path)
	}

	// Records are ordered by document id.
	sort.SliceStable(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	s.logger.Debug("firestore collection read",
		zap.String("collection", path),
		zap.Int("documents", len(records)),
	)

	return records, nil
}

// Ping lists the root collections once to prove the credentials and project are usable.
func (s *Source) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	it := s.client.Collections(ctx)
	if _, err := it.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("firestore: ping: %w", err)
	}
	return nil
}

func (s *Source) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("firestore: close client: %w", err)
	}
	return nil
}
