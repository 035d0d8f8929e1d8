package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/zhada/appraisal-extractor/internal/storage"
)

// BlobLedger derives completion from the blob store's processed-key listing:
// a loan key is processed when its result objects exist. MarkProcessed is a
// no-op against the backend because the pipeline's Uploading stage already
// wrote the objects the listing is derived from; only the cache is updated.
type BlobLedger struct {
	cache
	store  storage.Store
	logger *slog.Logger
}

func NewBlobLedger(store storage.Store, logger *slog.Logger) *BlobLedger {
	if logger == nil {
		logger = slog.Default()
	}
	return &BlobLedger{cache: newCache(), store: store, logger: logger}
}

func (l *BlobLedger) Load(ctx context.Context) error {
	keys, err := l.store.ListProcessedKeys(ctx)
	if err != nil {
		return err
	}
	l.replace(keys)
	l.logger.Info("ledger.blob.loaded", "keys", len(keys))
	return nil
}

func (l *BlobLedger) IsProcessed(key string) bool {
	return l.has(key)
}

func (l *BlobLedger) MarkProcessed(ctx context.Context, key string, completedAt time.Time) error {
	l.add(key)
	return nil
}

func (l *BlobLedger) Snapshot() []string {
	return l.snapshot()
}
