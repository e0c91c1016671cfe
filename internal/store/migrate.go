package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/seanmcgrath/stash/internal/errs"
)

// migration is one versioned schema step. Migrations are applied in order
// inside a transaction and recorded in schema_version.
type migration struct {
	version int
	stmts   string
}

var migrations = []migration{
	{
		version: 1,
		stmts: `
		CREATE TABLE IF NOT EXISTS articles (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			summary TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL,
			image_url TEXT NOT NULL DEFAULT '',
			read_time INTEGER NOT NULL DEFAULT 0,
			is_archived INTEGER NOT NULL DEFAULT 0,
			is_favorite INTEGER NOT NULL DEFAULT 0,
			is_read INTEGER NOT NULL DEFAULT 0,
			source_url TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			synced_at TEXT,
			is_modified INTEGER NOT NULL DEFAULT 0,
			deleted_at TEXT
		);

		CREATE TABLE IF NOT EXISTS labels (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			color TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			synced_at TEXT
		);

		CREATE TABLE IF NOT EXISTS article_labels (
			article_id TEXT NOT NULL,
			label_id TEXT NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (article_id, label_id),
			FOREIGN KEY (article_id) REFERENCES articles(id) ON DELETE CASCADE,
			FOREIGN KEY (label_id) REFERENCES labels(id) ON DELETE CASCADE
		);

		CREATE TABLE IF NOT EXISTS sync_metadata (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			entity_type TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			operation TEXT NOT NULL,
			local_timestamp TEXT NOT NULL,
			server_timestamp TEXT,
			sync_status TEXT NOT NULL DEFAULT 'pending',
			conflict_resolution TEXT NOT NULL DEFAULT '',
			retry_count INTEGER NOT NULL DEFAULT 0,
			error_message TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS sync_state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_articles_deleted ON articles(deleted_at);
		CREATE INDEX IF NOT EXISTS idx_articles_modified ON articles(is_modified);
		CREATE INDEX IF NOT EXISTS idx_articles_archived ON articles(is_archived);
		CREATE INDEX IF NOT EXISTS idx_sync_metadata_status ON sync_metadata(sync_status);
		CREATE INDEX IF NOT EXISTS idx_sync_metadata_entity ON sync_metadata(entity_type, entity_id);
		CREATE INDEX IF NOT EXISTS idx_article_labels_label ON article_labels(label_id);
		`,
	},
}

// Migrate applies any schema migrations newer than the recorded version.
// It is idempotent: applied versions are recorded in schema_version and
// skipped on subsequent runs.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL
		)`); err != nil {
		return errs.StorageErr("failed to create schema_version table", err)
	}

	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		err := s.inTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, m.stmts); err != nil {
				return errs.StorageErr("failed to apply migration", err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO schema_version (version, applied_at) VALUES (?, ?)`,
				m.version, formatTime(time.Now())); err != nil {
				return errs.StorageErr("failed to record migration", err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// SchemaVersion returns the highest applied migration version, 0 for a
// fresh database.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := s.conn.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, errs.StorageErr("failed to read schema version", err)
	}
	return version, nil
}
