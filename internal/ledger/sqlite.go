package ledger

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zhada/appraisal-extractor/internal/common"
)

// SQLiteLedger keeps completion records in a local SQLite file, for single
// machine deployments that should survive a process restart without a remote
// store round-trip.
type SQLiteLedger struct {
	cache
	db     *sql.DB
	logger *slog.Logger
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS ledger (
	key          TEXT PRIMARY KEY,
	completed_at TIMESTAMP NOT NULL
);`

// OpenSQLiteLedger opens (creating if needed) the ledger database at path.
// Pass ":memory:" for an ephemeral ledger in tests.
func OpenSQLiteLedger(path string, logger *slog.Logger) (*SQLiteLedger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, common.WrapError(err, "open sqlite ledger")
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, common.WrapError(err, "create ledger table")
	}
	logger.Info("ledger.sqlite.opened", "path", path)
	return &SQLiteLedger{cache: newCache(), db: db, logger: logger}, nil
}

func (l *SQLiteLedger) Load(ctx context.Context) error {
	rows, err := l.db.QueryContext(ctx, `SELECT key FROM ledger`)
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
	l.logger.Info("ledger.sqlite.loaded", "keys", len(keys))
	return nil
}

func (l *SQLiteLedger) IsProcessed(key string) bool {
	return l.has(key)
}

func (l *SQLiteLedger) MarkProcessed(ctx context.Context, key string, completedAt time.Time) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO ledger (key, completed_at) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET completed_at = excluded.completed_at`,
		key, completedAt.UTC(),
	)
	if err != nil {
		return common.Transient("ledger.mark", err)
	}
	l.add(key)
	return nil
}

func (l *SQLiteLedger) Snapshot() []string {
	return l.snapshot()
}

// Close releases the underlying database handle.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}
