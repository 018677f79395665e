// Package dump reads a JSON export of the legacy document store from a local directory.
//
// Layout: one file per collection, <dir>/<collection>.json, and subcollections under the
// parent document path, <dir>/<parent>/<doc>/<name>.json. A file holds either an object keyed
// by document id or an array of objects carrying the id in "id", "_id" or "__id".
package dump

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/zaynrix/trustedvalley-backend/internal/core/domain"
	"github.com/zaynrix/trustedvalley-backend/internal/core/port"
	"github.com/zaynrix/trustedvalley-backend/internal/legacy"
)

var idKeys = []string{"id", "_id", "__id"}

// Source implements port.LegacySource over an fs.FS, normally os.DirFS(dumpDir).
type Source struct {
	fsys   fs.FS
	root   string
	logger *zap.Logger
}

var _ port.LegacySource = (*Source)(nil)

func NewSource(dir string, logger *zap.Logger) *Source {
	return NewSourceFS(os.DirFS(dir), dir, logger)
}

// NewSourceFS reads from fsys; root is only used in logs and errors.
func NewSourceFS(fsys fs.FS, root string, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{fsys: fsys, root: root, logger: logger}
}

func (s *Source) ListCollection(ctx context.Context, name string) ([]domain.SourceRecord, error) {
	return s.read(ctx, name)
}

func (s *Source) GetSubcollection(ctx context.Context, parentPath, name string) ([]domain.SourceRecord, error) {
	return s.read(ctx, strings.Trim(parentPath, "/")+"/"+name)
}

func (s *Source) read(ctx context.Context, path string) ([]domain.SourceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file := path + ".json"
	if !fs.ValidPath(file) {
		return nil, fmt.Errorf("dump: invalid collection path %q", path)
	}

	raw, err := fs.ReadFile(s.fsys, file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", port.ErrCollectionNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("dump: read %s: %w", filepath.Join(s.root, file), err)
	}

	records, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("dump: decode %s: %w", filepath.Join(s.root, file), err)
	}

	s.logger.Debug("dump collection read",
		zap.String("collection", path),
		zap.Int("documents", len(records)),
	)

	return records, nil
}

func decode(raw []byte) ([]domain.SourceRecord, error) {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}

	var records []domain.SourceRecord
	switch docs := payload.(type) {
	case map[string]any:
		for id, v := range docs {
			data, ok := v.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("document %q is not an object", id)
			}
			records = append(records, domain.SourceRecord{ID: id, Data: restoreTimestamps(data)})
		}
	case []any:
		for i, v := range docs {
			data, ok := v.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("document at index %d is not an object", i)
			}
			id, ok := documentID(data)
			if !ok {
				return nil, fmt.Errorf("document at index %d has no id", i)
			}
			records = append(records, domain.SourceRecord{ID: id, Data: restoreTimestamps(data)})
		}
	case nil:
		return nil, nil
	default:
		return nil, errors.New("expected an object or an array of documents")
	}

	sort.SliceStable(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

// documentID takes the id from the first id key and removes it from data.
func documentID(data map[string]any) (string, bool) {
	for _, key := range idKeys {
		if id, ok := data[key].(string); ok && id != "" {
			delete(data, key)
			return id, true
		}
	}
	return "", false
}

// restoreTimestamps turns exported {"_seconds", "_nanoseconds"} wrappers back into native
// timestamps so they classify the same way live documents do.
func restoreTimestamps(data map[string]any) map[string]any {
	for k, v := range data {
		data[k] = restoreValue(v)
	}
	return data
}

func restoreValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		if ts, ok := legacy.TimestampFromMap(val); ok {
			return ts
		}
		return restoreTimestamps(val)
	case []any:
		for i, item := range val {
			val[i] = restoreValue(item)
		}
		return val
	default:
		return v
	}
}

// Ping checks the dump directory is readable.
func (s *Source) Ping(_ context.Context) error {
	if _, err := fs.ReadDir(s.fsys, "."); err != nil {
		return fmt.Errorf("dump: open %s: %w", s.root, err)
	}
	return nil
}

func (s *Source) Close() error { return nil }
