package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/seanmcgrath/stash/internal/errs"
	"github.com/seanmcgrath/stash/internal/model"
)

const labelColumns = `id, name, color, created_at, updated_at, synced_at`

// CreateLabel persists a user-created label and appends the matching create
// entry to the change queue in the same transaction.
func (s *Store) CreateLabel(ctx context.Context, l *model.Label) error {
	if err := l.Validate(); err != nil {
		return errs.ValidationErr("invalid label", err)
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := upsertLabelTx(ctx, tx, l); err != nil {
			return err
		}
		return enqueueTx(ctx, tx, model.EntityLabel, l.ID, model.OpCreate, l.UpdatedAt)
	})
}

// UpsertRemoteLabel writes through a pulled label. Labels are upserted
// before articles during a pull so label links always have a parent.
func (s *Store) UpsertRemoteLabel(ctx context.Context, l *model.Label) error {
	if err := l.Validate(); err != nil {
		return errs.ValidationErr("invalid remote label", err)
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return upsertLabelTx(ctx, tx, l)
	})
}

// GetLabel retrieves a label by ID.
func (s *Store) GetLabel(ctx context.Context, id string) (*model.Label, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+labelColumns+` FROM labels WHERE id = ?`, id)

	l, err := scanLabel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("label %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, errs.StorageErr("failed to get label", err)
	}
	return l, nil
}

// ListLabels retrieves all labels ordered by name.
func (s *Store) ListLabels(ctx context.Context) ([]*model.Label, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+labelColumns+` FROM labels ORDER BY name ASC`)
	if err != nil {
		return nil, errs.StorageErr("failed to list labels", err)
	}
	defer rows.Close()

	var labels []*model.Label
	for rows.Next() {
		l, err := scanLabel(rows)
		if err != nil {
			return nil, errs.StorageErr("failed to scan label", err)
		}
		labels = append(labels, l)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.StorageErr("error iterating labels", err)
	}
	return labels, nil
}

// AssignLabel links a label to an article and queues the assignment. The
// entity ID of the queue entry is "articleID/labelID" so the push phase can
// split it back apart.
func (s *Store) AssignLabel(ctx context.Context, articleID, labelID string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		now := timeNow()
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO article_labels (article_id, label_id, created_at)
			VALUES (?, ?, ?)
			ON CONFLICT(article_id, label_id) DO NOTHING`,
			articleID, labelID, formatTime(now)); err != nil {
			return classifyWriteErr("failed to assign label", err)
		}
		if err := markArticleModifiedTx(ctx, tx, articleID); err != nil {
			return err
		}
		return enqueueTx(ctx, tx, model.EntityArticleLabel, articleID+"/"+labelID, model.OpCreate, now)
	})
}

// RemoveLabel unlinks a label from an article and queues the removal.
func (s *Store) RemoveLabel(ctx context.Context, articleID, labelID string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		now := timeNow()
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM article_labels WHERE article_id = ? AND label_id = ?`,
			articleID, labelID); err != nil {
			return classifyWriteErr("failed to remove label", err)
		}
		if err := markArticleModifiedTx(ctx, tx, articleID); err != nil {
			return err
		}
		return enqueueTx(ctx, tx, model.EntityArticleLabel, articleID+"/"+labelID, model.OpDelete, now)
	})
}

// LabelCount returns the number of labels.
func (s *Store) LabelCount(ctx context.Context) (int, error) {
	var count int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM labels`).Scan(&count); err != nil {
		return 0, errs.StorageErr("failed to count labels", err)
	}
	return count, nil
}

func upsertLabelTx(ctx context.Context, tx *sql.Tx, l *model.Label) error {
	_, err := tx.ExecContext(ctx, `
	INSERT INTO labels (id, name, color, created_at, updated_at, synced_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		color = excluded.color,
		updated_at = excluded.updated_at,
		synced_at = excluded.synced_at`,
		l.ID, l.Name, l.Color,
		formatTime(l.CreatedAt), formatTime(l.UpdatedAt), timeToNullString(l.SyncedAt))
	return classifyWriteErr("failed to upsert label", err)
}

func markArticleModifiedTx(ctx context.Context, tx *sql.Tx, articleID string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE articles SET is_modified = 1, updated_at = ? WHERE id = ?`,
		formatTime(timeNow()), articleID)
	return classifyWriteErr("failed to mark article modified", err)
}

func scanLabel(row rowScanner) (*model.Label, error) {
	var l model.Label
	var createdAt, updatedAt string
	var syncedAt sql.NullString

	if err := row.Scan(&l.ID, &l.Name, &l.Color, &createdAt, &updatedAt, &syncedAt); err != nil {
		return nil, err
	}
	l.CreatedAt = parseTime(createdAt)
	l.UpdatedAt = parseTime(updatedAt)
	l.SyncedAt = nullStringToTime(syncedAt)
	return &l, nil
}
