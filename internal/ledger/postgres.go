package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zhada/appraisal-extractor/internal/common"
)

// PGLedger keeps completion records in Postgres for deployments where several
// extraction hosts share one ledger.
type PGLedger struct {
	cache
	pool   *pgxpool.Pool
	logger *slog.Logger
}

const pgSchema = `
CREATE TABLE IF NOT EXISTS ledger (
	key          TEXT PRIMARY KEY,
	completed_at TIMESTAMPTZ NOT NULL
);`

// OpenPGLedger creates a pgx pool and ensures the ledger table exists.
func OpenPGLedger(ctx context.Context, dsn string, logger *slog.Logger) (*PGLedger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pc, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, common.Fatalf("ledger.open", "parse postgres dsn: %v", err)
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "appraisal-extractor"

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, common.Fatalf("ledger.open", "connect postgres: %v", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, common.Fatalf("ledger.open", "create ledger table: %v", err)
	}
	logger.Info("ledger.postgres.opened")
	return &PGLedger{cache: newCache(), pool: pool, logger: logger}, nil
}

func (l *PGLedger) Load(ctx context.Context) error {
	rows, err := l.pool.Query(ctx, `SELECT key FROM ledger`)
	if err != nil {
		return common.Transient("ledger.load", err)
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return common.Transient("ledger.load", err)
		}
		keys[k] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return common.Transient("ledger.load", err)
	}
	l.replace(keys)
	l.logger.Info("ledger.postgres.loaded", "keys", len(keys))
	return nil
}

func (l *PGLedger) IsProcessed(key string) bool {
	return l.has(key)
}

func (l *PGLedger) MarkProcessed(ctx context.Context, key string, completedAt time.Time) error {
	_, err := l.pool.Exec(ctx,
		`INSERT INTO ledger (key, completed_at) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET completed_at = EXCLUDED.completed_at`,
		key, completedAt.UTC(),
	)
	if err != nil {
		return common.Transient("ledger.mark", err)
	}
	l.add(key)
	return nil
}

func (l *PGLedger) Snapshot() []string {
	return l.snapshot()
}

// Close releases the underlying pool.
func (l *PGLedger) Close() {
	l.pool.Close()
}
