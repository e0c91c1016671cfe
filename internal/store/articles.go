package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/seanmcgrath/stash/internal/errs"
	"github.com/seanmcgrath/stash/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist or is
// tombstoned and the caller did not ask for tombstones.
var ErrNotFound = errors.New("entity not found")

const articleColumns = `id, title, summary, content, url, image_url, read_time,
	is_archived, is_favorite, is_read, source_url,
	created_at, updated_at, synced_at, is_modified, deleted_at`

// CreateArticle persists a user-created article and appends the matching
// create entry to the change queue in the same transaction.
func (s *Store) CreateArticle(ctx context.Context, a *model.Article) error {
	if err := a.Validate(); err != nil {
		return errs.ValidationErr("invalid article", err)
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := upsertArticleTx(ctx, tx, a); err != nil {
			return err
		}
		if err := replaceArticleLabelsTx(ctx, tx, a.ID, a.Labels, a.CreatedAt); err != nil {
			return err
		}
		return enqueueTx(ctx, tx, model.EntityArticle, a.ID, model.OpCreate, a.UpdatedAt)
	})
}

// UpdateArticle persists a user-edited article and appends the matching
// update entry to the change queue in the same transaction. The caller is
// expected to have bumped updated_at and the dirty flag via Touch.
func (s *Store) UpdateArticle(ctx context.Context, a *model.Article) error {
	if err := a.Validate(); err != nil {
		return errs.ValidationErr("invalid article", err)
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := upsertArticleTx(ctx, tx, a); err != nil {
			return err
		}
		if err := replaceArticleLabelsTx(ctx, tx, a.ID, a.Labels, a.UpdatedAt); err != nil {
			return err
		}
		return enqueueTx(ctx, tx, model.EntityArticle, a.ID, model.OpUpdate, a.UpdatedAt)
	})
}

// SoftDeleteArticle tombstones an article and queues the deletion for
// upload. The row is retained until the remote acknowledges, then purged.
func (s *Store) SoftDeleteArticle(ctx context.Context, id string, now time.Time) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE articles
			SET deleted_at = ?, is_modified = 1, updated_at = ?
			WHERE id = ? AND deleted_at IS NULL`,
			formatTime(now), formatTime(now), id)
		if err != nil {
			return classifyWriteErr("failed to tombstone article", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errs.StorageErr("failed to read rows affected", err)
		}
		if n == 0 {
			return fmt.Errorf("article %s: %w", id, ErrNotFound)
		}
		return enqueueTx(ctx, tx, model.EntityArticle, id, model.OpDelete, now)
	})
}

// GetArticle retrieves a live article by ID. Tombstoned rows are not
// returned; use GetArticleAny when sync needs them.
func (s *Store) GetArticle(ctx context.Context, id string) (*model.Article, error) {
	return s.getArticle(ctx, id, false)
}

// GetArticleAny retrieves an article by ID including tombstoned rows.
func (s *Store) GetArticleAny(ctx context.Context, id string) (*model.Article, error) {
	return s.getArticle(ctx, id, true)
}

func (s *Store) getArticle(ctx context.Context, id string, includeDeleted bool) (*model.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE id = ?`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}

	a, err := scanArticle(s.conn.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("article %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, errs.StorageErr("failed to get article", err)
	}

	a.Labels, err = s.labelIDsForArticle(ctx, id)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListArticlesFilter configures the ListArticles query.
type ListArticlesFilter struct {
	// Archived/Favorite/Read filter by flag when non-nil.
	Archived *bool
	Favorite *bool
	Read     *bool
	// Label filters to articles carrying the given label ID.
	Label string
	// Modified filters to articles with unsynced local changes.
	Modified bool
	// IncludeDeleted also returns tombstoned rows (purge and sync only).
	IncludeDeleted bool
	// Limit restricts the number of results (0 = no limit).
	Limit int
	// Offset skips the first N results.
	Offset int
}

// ListArticles retrieves articles matching the filter, newest first.
// Soft-deleted rows are excluded unless explicitly requested.
func (s *Store) ListArticles(ctx context.Context, filter ListArticlesFilter) ([]*model.Article, error) {
	var conditions []string
	var args []any

	if !filter.IncludeDeleted {
		conditions = append(conditions, "deleted_at IS NULL")
	}
	if filter.Archived != nil {
		conditions = append(conditions, "is_archived = ?")
		args = append(args, boolToInt(*filter.Archived))
	}
	if filter.Favorite != nil {
		conditions = append(conditions, "is_favorite = ?")
		args = append(args, boolToInt(*filter.Favorite))
	}
	if filter.Read != nil {
		conditions = append(conditions, "is_read = ?")
		args = append(args, boolToInt(*filter.Read))
	}
	if filter.Modified {
		conditions = append(conditions, "is_modified = 1")
	}
	if filter.Label != "" {
		conditions = append(conditions, "EXISTS (SELECT 1 FROM article_labels al WHERE al.article_id = articles.id AND al.label_id = ?)")
		args = append(args, filter.Label)
	}

	query := `SELECT ` + articleColumns + ` FROM articles`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY updated_at DESC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.StorageErr("failed to list articles", err)
	}
	defer rows.Close()

	var articles []*model.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, errs.StorageErr("failed to scan article", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.StorageErr("error iterating articles", err)
	}

	for _, a := range articles {
		a.Labels, err = s.labelIDsForArticle(ctx, a.ID)
		if err != nil {
			return nil, err
		}
	}
	return articles, nil
}

// ApplyResolved atomically writes a resolved article and advances its change
// queue entry in one transaction, so a crash can never leave an entity
// marked synced while its queue entry is still pending, or vice versa.
//
// entryID may be 0 when the resolution came from a pull with no pending
// queue entry for the entity.
func (s *Store) ApplyResolved(ctx context.Context, a *model.Article, entryID int64, resolution model.Strategy, serverTS *time.Time) error {
	if err := a.Validate(); err != nil {
		return errs.ValidationErr("invalid resolved article", err)
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := upsertArticleTx(ctx, tx, a); err != nil {
			return err
		}
		if err := replaceArticleLabelsTx(ctx, tx, a.ID, a.Labels, a.UpdatedAt); err != nil {
			return err
		}
		if entryID == 0 {
			return nil
		}
		return completeEntryTx(ctx, tx, entryID, serverTS, string(resolution))
	})
}

// UpsertRemote writes through a pulled article that had no local divergence.
// The caller stamps synced_at and a clean dirty flag before the write.
func (s *Store) UpsertRemote(ctx context.Context, a *model.Article) error {
	if err := a.Validate(); err != nil {
		return errs.ValidationErr("invalid remote article", err)
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := upsertArticleTx(ctx, tx, a); err != nil {
			return err
		}
		return replaceArticleLabelsTx(ctx, tx, a.ID, a.Labels, a.UpdatedAt)
	})
}

// PromoteLocalArticle replaces an offline-created article (local- prefixed
// ID) with the remote-acknowledged copy, carrying the label links over and
// completing the create queue entry, all in one transaction.
func (s *Store) PromoteLocalArticle(ctx context.Context, localID string, promoted *model.Article, entryID int64, serverTS *time.Time) error {
	if err := promoted.Validate(); err != nil {
		return errs.ValidationErr("invalid promoted article", err)
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := upsertArticleTx(ctx, tx, promoted); err != nil {
			return err
		}
		// Move join rows to the new parent before dropping the old row, so
		// foreign keys hold throughout.
		if _, err := tx.ExecContext(ctx,
			`UPDATE OR IGNORE article_labels SET article_id = ? WHERE article_id = ?`,
			promoted.ID, localID); err != nil {
			return classifyWriteErr("failed to move label links", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, localID); err != nil {
			return classifyWriteErr("failed to remove local article row", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE sync_metadata SET entity_id = ?, updated_at = ? WHERE entity_id = ? AND entity_type = ?`,
			promoted.ID, formatTime(time.Now()), localID, string(model.EntityArticle)); err != nil {
			return classifyWriteErr("failed to remap queue entries", err)
		}
		if entryID == 0 {
			return nil
		}
		return completeEntryTx(ctx, tx, entryID, serverTS, "")
	})
}

// MarkDeletionAcked clears the dirty flag on a tombstone once the remote has
// acknowledged the delete, and completes the queue entry. The row becomes
// eligible for the next purge pass.
func (s *Store) MarkDeletionAcked(ctx context.Context, id string, entryID int64, serverTS *time.Time) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE articles SET is_modified = 0 WHERE id = ? AND deleted_at IS NOT NULL`,
			id); err != nil {
			return classifyWriteErr("failed to mark deletion acknowledged", err)
		}
		if entryID == 0 {
			return nil
		}
		return completeEntryTx(ctx, tx, entryID, serverTS, "")
	})
}

// PurgeTombstones removes articles whose deletion the remote has
// acknowledged. Returns the number of rows purged.
func (s *Store) PurgeTombstones(ctx context.Context) (int64, error) {
	res, err := s.conn.ExecContext(ctx,
		`DELETE FROM articles WHERE deleted_at IS NOT NULL AND is_modified = 0`)
	if err != nil {
		return 0, errs.StorageErr("failed to purge tombstones", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errs.StorageErr("failed to read rows affected", err)
	}
	return n, nil
}

// ArticleCount returns the number of live articles.
func (s *Store) ArticleCount(ctx context.Context) (int, error) {
	var count int
	err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM articles WHERE deleted_at IS NULL`).Scan(&count)
	if err != nil {
		return 0, errs.StorageErr("failed to count articles", err)
	}
	return count, nil
}

// upsertArticleTx inserts or updates an article row inside a transaction.
func upsertArticleTx(ctx context.Context, tx *sql.Tx, a *model.Article) error {
	_, err := tx.ExecContext(ctx, `
	INSERT INTO articles (
		id, title, summary, content, url, image_url, read_time,
		is_archived, is_favorite, is_read, source_url,
		created_at, updated_at, synced_at, is_modified, deleted_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		summary = excluded.summary,
		content = excluded.content,
		url = excluded.url,
		image_url = excluded.image_url,
		read_time = excluded.read_time,
		is_archived = excluded.is_archived,
		is_favorite = excluded.is_favorite,
		is_read = excluded.is_read,
		source_url = excluded.source_url,
		updated_at = excluded.updated_at,
		synced_at = excluded.synced_at,
		is_modified = excluded.is_modified,
		deleted_at = excluded.deleted_at`,
		a.ID, a.Title, a.Summary, a.Content, a.URL, a.ImageURL, a.ReadTime,
		boolToInt(a.IsArchived), boolToInt(a.IsFavorite), boolToInt(a.IsRead), a.SourceURL,
		formatTime(a.CreatedAt), formatTime(a.UpdatedAt),
		timeToNullString(a.SyncedAt), boolToInt(a.IsModified), timeToNullString(a.DeletedAt),
	)
	return classifyWriteErr("failed to upsert article", err)
}

// replaceArticleLabelsTx rewrites the article's label links to the ordered
// set given. Links to labels the store does not know yet are skipped rather
// than failing the surrounding transaction; the pull phase upserts labels
// before articles so this only happens for stale remote references.
func replaceArticleLabelsTx(ctx context.Context, tx *sql.Tx, articleID string, labels []string, now time.Time) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM article_labels WHERE article_id = ?`, articleID); err != nil {
		return classifyWriteErr("failed to clear label links", err)
	}
	for i, labelID := range labels {
		// Stagger created_at so the ordered set round-trips.
		ts := now.Add(time.Duration(i) * time.Microsecond)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO article_labels (article_id, label_id, created_at)
			SELECT ?, ?, ? WHERE EXISTS (SELECT 1 FROM labels WHERE id = ?)`,
			articleID, labelID, formatTime(ts), labelID); err != nil {
			return classifyWriteErr("failed to insert label link", err)
		}
	}
	return nil
}

// labelIDsForArticle returns the article's label IDs in link-creation order.
func (s *Store) labelIDsForArticle(ctx context.Context, articleID string) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT label_id FROM article_labels
		WHERE article_id = ?
		ORDER BY created_at ASC, label_id ASC`, articleID)
	if err != nil {
		return nil, errs.StorageErr("failed to query label links", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errs.StorageErr("failed to scan label link", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.StorageErr("error iterating label links", err)
	}
	return ids, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (*model.Article, error) {
	var a model.Article
	var createdAt, updatedAt string
	var syncedAt, deletedAt sql.NullString
	var archived, favorite, read, modified int

	err := row.Scan(
		&a.ID, &a.Title, &a.Summary, &a.Content, &a.URL, &a.ImageURL, &a.ReadTime,
		&archived, &favorite, &read, &a.SourceURL,
		&createdAt, &updatedAt, &syncedAt, &modified, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	a.IsArchived = archived != 0
	a.IsFavorite = favorite != 0
	a.IsRead = read != 0
	a.IsModified = modified != 0
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	a.SyncedAt = nullStringToTime(syncedAt)
	a.DeletedAt = nullStringToTime(deletedAt)
	return &a, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
