package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/zhada/appraisal-extractor/constants"
	"github.com/zhada/appraisal-extractor/internal/common"
)

// FSStore implements Store on a local directory, mirroring the blob layout.
// Used for local runs and tests when no connection string is configured.
type FSStore struct {
	root   string
	logger *slog.Logger
}

func NewFSStore(root string, logger *slog.Logger) (*FSStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve store dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FSStore{root: abs, logger: logger}, nil
}

func (s *FSStore) ListProcessedKeys(ctx context.Context) (map[string]struct{}, error) {
	keys := make(map[string]struct{})
	dir := filepath.Join(s.root, filepath.FromSlash(constants.BlobFolder))
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return keys, nil
	}
	if err != nil {
		return nil, common.Transient("storage.list", fmt.Errorf("%w: %v", ErrUnavailable, err))
	}
	for _, e := range entries {
		if e.IsDir() {
			keys[e.Name()] = struct{}{}
		}
	}
	return keys, nil
}

func (s *FSStore) PutObject(ctx context.Context, path string, data []byte) error {
	full := filepath.Join(s.root, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return common.Transient("storage.put_object", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return common.Transient("storage.put_object", err)
	}
	s.logger.Debug("storage.fs.put_object", "path", full, "bytes", len(data))
	return nil
}

func (s *FSStore) PutJSON(ctx context.Context, path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return common.Permanent("storage.put_json", err)
	}
	return s.PutObject(ctx, path, b)
}
