// Package store provides the durable local mirror of the remote article
// collection, backed by embedded SQLite.
//
// The database runs in embedded mode using the ncruces/go-sqlite3 driver
// with WAL enabled for concurrent reads during writes.
//
// Architecture:
//   - Tables: articles, labels, article_labels, sync_metadata, sync_state,
//     schema_version
//   - Soft delete: tombstoned rows are excluded from normal queries and
//     purged only after the remote acknowledges the deletion
//   - Change queue: every user-initiated mutation appends a sync_metadata
//     row in the same transaction as the entity write
//
// The store is the exclusive owner of persisted entities. The conflict
// engine only ever sees copies; the orchestrator is the sole writer on
// behalf of sync.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/seanmcgrath/stash/internal/errs"
)

// Store wraps the SQLite connection with mirror-specific functionality.
type Store struct {
	conn *sql.DB
	path string
}

// Open creates a database connection at the specified path.
//
// The database is opened in embedded mode with WAL for concurrent reads.
// Migrations are applied and the resulting schema is verified; a partial
// schema fails fast with a STORAGE error instead of operating on it.
//
// The caller must Close() when done.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, errs.StorageErr("failed to open database", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, errs.StorageErr("failed to ping database", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{conn: conn, path: path}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := s.conn.Exec(pragma); err != nil {
			_ = s.Close()
			return nil, errs.StorageErr(fmt.Sprintf("failed to apply %s", pragma), err)
		}
	}

	if err := s.Migrate(context.Background()); err != nil {
		_ = s.Close()
		return nil, err
	}
	if err := s.Verify(context.Background()); err != nil {
		_ = s.Close()
		return nil, err
	}

	return s, nil
}

// RawDB returns the underlying sql.DB connection.
func (s *Store) RawDB() *sql.DB {
	return s.conn
}

// Close closes the database connection after checkpointing the WAL.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}

	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.conn = nil
	return nil
}

// requiredTables and requiredIndexes are what Verify checks for. Operating
// on a schema missing any of these risks silent data loss, so startup
// refuses instead.
var requiredTables = []string{
	"articles", "labels", "article_labels", "sync_metadata", "sync_state", "schema_version",
}

var requiredIndexes = []string{
	"idx_articles_deleted", "idx_articles_modified", "idx_sync_metadata_status",
}

// Verify fails fast with a STORAGE error if expected tables or indexes are
// missing.
func (s *Store) Verify(ctx context.Context) error {
	present := make(map[string]bool)

	rows, err := s.conn.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type IN ('table', 'index')`)
	if err != nil {
		return errs.StorageErr("failed to inspect schema", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return errs.StorageErr("failed to scan schema row", err)
		}
		present[name] = true
	}
	if err := rows.Err(); err != nil {
		return errs.StorageErr("error iterating schema rows", err)
	}

	var missing []string
	for _, table := range requiredTables {
		if !present[table] {
			missing = append(missing, "table "+table)
		}
	}
	for _, index := range requiredIndexes {
		if !present[index] {
			missing = append(missing, "index "+index)
		}
	}
	if len(missing) > 0 {
		return errs.StorageErr(
			fmt.Sprintf("schema verification failed, missing: %s", strings.Join(missing, ", ")), nil)
	}

	return nil
}

// inTx runs fn inside a transaction, rolling back on error.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return errs.StorageErr("failed to begin transaction", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errs.StorageErr("failed to commit transaction", err)
	}
	return nil
}

// classifyWriteErr maps constraint violations to VALIDATION and everything
// else to STORAGE.
func classifyWriteErr(msg string, err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(strings.ToLower(err.Error()), "constraint") {
		return errs.ValidationErr(msg, err)
	}
	return errs.StorageErr(msg, err)
}

// timeToNullString converts a time pointer to a nullable RFC3339 string.
func timeToNullString(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}

// nullStringToTime converts a nullable RFC3339 string to a time pointer.
func nullStringToTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, ns.String)
	if err != nil {
		return nil
	}
	return &t
}

// timeNow is swapped out in tests.
var timeNow = time.Now

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
