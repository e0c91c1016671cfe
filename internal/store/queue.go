package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/seanmcgrath/stash/internal/errs"
	"github.com/seanmcgrath/stash/internal/model"
)

const entryColumns = `id, entity_type, entity_id, operation, local_timestamp,
	server_timestamp, sync_status, conflict_resolution, retry_count, error_message,
	created_at, updated_at`

// Enqueue appends a pending mutation to the change queue outside any entity
// transaction. Entity mutations use enqueueTx so the entity write and its
// queue entry commit together.
func (s *Store) Enqueue(ctx context.Context, entityType model.EntityType, entityID string, op model.Operation, localTS time.Time) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return enqueueTx(ctx, tx, entityType, entityID, op, localTS)
	})
}

// enqueueTx appends a pending change queue entry inside a transaction.
func enqueueTx(ctx context.Context, tx *sql.Tx, entityType model.EntityType, entityID string, op model.Operation, localTS time.Time) error {
	now := formatTime(timeNow())
	_, err := tx.ExecContext(ctx, `
		INSERT INTO sync_metadata (
			entity_type, entity_id, operation, local_timestamp,
			sync_status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(entityType), entityID, string(op), formatTime(localTS),
		string(model.StatusPending), now, now)
	return classifyWriteErr("failed to enqueue change", err)
}

// PendingEntries returns queue entries awaiting upload in creation order,
// oldest first, up to limit (0 = no limit). Entries marked failed are
// excluded; they are only retried via RetryEntry.
func (s *Store) PendingEntries(ctx context.Context, limit int) ([]*model.ChangeEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM sync_metadata
		WHERE sync_status = ? ORDER BY created_at ASC, id ASC`
	args := []any{string(model.StatusPending)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return s.queryEntries(ctx, query, args...)
}

// FailedEntries returns entries that exhausted their retry budget. They stay
// queryable for manual re-trigger.
func (s *Store) FailedEntries(ctx context.Context) ([]*model.ChangeEntry, error) {
	return s.queryEntries(ctx,
		`SELECT `+entryColumns+` FROM sync_metadata
		 WHERE sync_status = ? ORDER BY created_at ASC, id ASC`,
		string(model.StatusFailed))
}

// GetEntry retrieves a single queue entry by ID.
func (s *Store) GetEntry(ctx context.Context, id int64) (*model.ChangeEntry, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM sync_metadata WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("queue entry %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, errs.StorageErr("failed to get queue entry", err)
	}
	return e, nil
}

// MarkSyncing transitions an entry to syncing for the duration of its
// upload attempt.
func (s *Store) MarkSyncing(ctx context.Context, id int64) error {
	_, err := s.conn.ExecContext(ctx,
		`UPDATE sync_metadata SET sync_status = ?, updated_at = ? WHERE id = ?`,
		string(model.StatusSyncing), formatTime(timeNow()), id)
	return classifyWriteErr("failed to mark entry syncing", err)
}

// CompleteEntry marks an entry acknowledged by the remote.
func (s *Store) CompleteEntry(ctx context.Context, id int64, serverTS *time.Time, resolution string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return completeEntryTx(ctx, tx, id, serverTS, resolution)
	})
}

func completeEntryTx(ctx context.Context, tx *sql.Tx, id int64, serverTS *time.Time, resolution string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE sync_metadata
		SET sync_status = ?, server_timestamp = ?, conflict_resolution = ?,
		    error_message = '', updated_at = ?
		WHERE id = ?`,
		string(model.StatusCompleted), timeToNullString(serverTS), resolution,
		formatTime(timeNow()), id)
	return classifyWriteErr("failed to complete queue entry", err)
}

// RecordFailure increments the entry's retry counter and records the error.
// Once the counter exceeds maxRetries the entry flips to failed and stops
// being retried automatically. Returns the entry's new status.
func (s *Store) RecordFailure(ctx context.Context, id int64, cause string, maxRetries int) (model.SyncStatus, error) {
	status := model.StatusPending

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var retries int
		if err := tx.QueryRowContext(ctx,
			`SELECT retry_count FROM sync_metadata WHERE id = ?`, id).Scan(&retries); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("queue entry %d: %w", id, ErrNotFound)
			}
			return errs.StorageErr("failed to read retry count", err)
		}

		retries++
		if retries >= maxRetries {
			status = model.StatusFailed
		}

		_, err := tx.ExecContext(ctx, `
			UPDATE sync_metadata
			SET sync_status = ?, retry_count = ?, error_message = ?, updated_at = ?
			WHERE id = ?`,
			string(status), retries, cause, formatTime(timeNow()), id)
		return classifyWriteErr("failed to record entry failure", err)
	})
	if err != nil {
		return "", err
	}
	return status, nil
}

// RetryEntry is the manual re-trigger for a failed entry: it returns to
// pending with a fresh retry budget.
func (s *Store) RetryEntry(ctx context.Context, id int64) error {
	res, err := s.conn.ExecContext(ctx, `
		UPDATE sync_metadata
		SET sync_status = ?, retry_count = 0, error_message = '', updated_at = ?
		WHERE id = ? AND sync_status = ?`,
		string(model.StatusPending), formatTime(timeNow()), id, string(model.StatusFailed))
	if err != nil {
		return classifyWriteErr("failed to retry queue entry", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errs.StorageErr("failed to read rows affected", err)
	}
	if n == 0 {
		return fmt.Errorf("failed queue entry %d: %w", id, ErrNotFound)
	}
	return nil
}

// ResetSyncing returns any entries stuck in syncing to pending. Called on
// startup to recover from a crash mid-upload.
func (s *Store) ResetSyncing(ctx context.Context) error {
	_, err := s.conn.ExecContext(ctx,
		`UPDATE sync_metadata SET sync_status = ?, updated_at = ? WHERE sync_status = ?`,
		string(model.StatusPending), formatTime(timeNow()), string(model.StatusSyncing))
	return classifyWriteErr("failed to reset syncing entries", err)
}

// PruneCompleted removes acknowledged entries older than the retention
// cutoff. Returns the number of rows pruned.
func (s *Store) PruneCompleted(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.conn.ExecContext(ctx,
		`DELETE FROM sync_metadata WHERE sync_status = ? AND updated_at < ?`,
		string(model.StatusCompleted), formatTime(olderThan))
	if err != nil {
		return 0, errs.StorageErr("failed to prune completed entries", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errs.StorageErr("failed to read rows affected", err)
	}
	return n, nil
}

// QueueCounts returns entry counts by status for the presentation layer.
func (s *Store) QueueCounts(ctx context.Context) (map[model.SyncStatus]int, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT sync_status, COUNT(*) FROM sync_metadata GROUP BY sync_status`)
	if err != nil {
		return nil, errs.StorageErr("failed to count queue entries", err)
	}
	defer rows.Close()

	counts := make(map[model.SyncStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, errs.StorageErr("failed to scan queue count", err)
		}
		parsed, err := model.ParseSyncStatus(status)
		if err != nil {
			return nil, errs.StorageErr("corrupt queue status", err)
		}
		counts[parsed] = n
	}
	if err := rows.Err(); err != nil {
		return nil, errs.StorageErr("error iterating queue counts", err)
	}
	return counts, nil
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]*model.ChangeEntry, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.StorageErr("failed to query queue entries", err)
	}
	defer rows.Close()

	var entries []*model.ChangeEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, errs.StorageErr("failed to scan queue entry", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.StorageErr("error iterating queue entries", err)
	}
	return entries, nil
}

func scanEntry(row rowScanner) (*model.ChangeEntry, error) {
	var e model.ChangeEntry
	var entityType, operation, status string
	var localTS, createdAt, updatedAt string
	var serverTS sql.NullString

	err := row.Scan(
		&e.ID, &entityType, &e.EntityID, &operation, &localTS,
		&serverTS, &status, &e.Resolution, &e.RetryCount, &e.LastError,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if e.EntityType, err = model.ParseEntityType(entityType); err != nil {
		return nil, err
	}
	if e.Operation, err = model.ParseOperation(operation); err != nil {
		return nil, err
	}
	if e.Status, err = model.ParseSyncStatus(status); err != nil {
		return nil, err
	}
	e.LocalTimestamp = parseTime(localTS)
	e.ServerTimestamp = nullStringToTime(serverTS)
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updatedAt)
	return &e, nil
}
