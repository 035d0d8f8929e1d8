package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/zhada/appraisal-extractor/constants"
	"github.com/zhada/appraisal-extractor/internal/common"
)

// AzureStore implements Store on an Azure Blob container.
type AzureStore struct {
	client    *azblob.Client
	container string
	logger    *slog.Logger
}

// NewAzureStore connects using a storage-account connection string.
func NewAzureStore(connectionString, container string, logger *slog.Logger) (*AzureStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("connect blob storage: %w", err)
	}
	logger.Info("storage.azure.connected", "container", container)
	return &AzureStore{client: client, container: container, logger: logger}, nil
}

// ListProcessedKeys lists blobs under the processed folder and collects the
// first path segment after the prefix as the loan key.
func (s *AzureStore) ListProcessedKeys(ctx context.Context) (map[string]struct{}, error) {
	start := time.Now()
	prefix := constants.BlobFolder
	keys := make(map[string]struct{})

	pager := s.client.NewListBlobsFlatPager(s.container, &azblob.ListBlobsFlatOptions{
		Prefix: &prefix,
	})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, common.Transient("storage.list", fmt.Errorf("%w: %v", ErrUnavailable, err))
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name == nil {
				continue
			}
			rest := strings.TrimPrefix(*item.Name, prefix)
			if i := strings.IndexByte(rest, '/'); i > 0 {
				keys[rest[:i]] = struct{}{}
			}
		}
	}
	s.logger.Info("storage.azure.list_processed",
		"keys", len(keys),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return keys, nil
}

func (s *AzureStore) PutObject(ctx context.Context, path string, data []byte) error {
	_, err := s.client.UploadBuffer(ctx, s.container, path, data, nil)
	if err != nil {
		return common.Transient("storage.put_object", fmt.Errorf("%w: %v", ErrUnavailable, err))
	}
	s.logger.Debug("storage.azure.put_object", "path", path, "bytes", len(data))
	return nil
}

func (s *AzureStore) PutJSON(ctx context.Context, path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return common.Permanent("storage.put_json", err)
	}
	return s.PutObject(ctx, path, b)
}
