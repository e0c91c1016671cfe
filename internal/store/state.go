package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/seanmcgrath/stash/internal/errs"
)

// sync_state keys. The cursor is the marker of the last successfully pulled
// remote change; it advances only on full-cycle success.
const (
	stateCursor       = "cursor"
	stateLastSyncTime = "last_sync_time"
)

// Cursor returns the last successfully pulled remote change marker, empty
// for a never-synced store.
func (s *Store) Cursor(ctx context.Context) (string, error) {
	return s.stateValue(ctx, stateCursor)
}

// SetCursor advances the pull cursor.
func (s *Store) SetCursor(ctx context.Context, cursor string) error {
	return s.setStateValue(ctx, stateCursor, cursor)
}

// LastSyncTime returns when the last cycle completed without a fatal error,
// nil if none has.
func (s *Store) LastSyncTime(ctx context.Context) (*time.Time, error) {
	v, err := s.stateValue(ctx, stateLastSyncTime)
	if err != nil || v == "" {
		return nil, err
	}
	t := parseTime(v)
	if t.IsZero() {
		return nil, errs.StorageErr("corrupt last_sync_time value", nil)
	}
	return &t, nil
}

// SetLastSyncTime records a successful cycle completion.
func (s *Store) SetLastSyncTime(ctx context.Context, t time.Time) error {
	return s.setStateValue(ctx, stateLastSyncTime, formatTime(t))
}

func (s *Store) stateValue(ctx context.Context, key string) (string, error) {
	var value string
	err := s.conn.QueryRowContext(ctx,
		`SELECT value FROM sync_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", errs.StorageErr("failed to read sync state", err)
	}
	return value, nil
}

func (s *Store) setStateValue(ctx context.Context, key, value string) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO sync_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	return classifyWriteErr("failed to write sync state", err)
}
