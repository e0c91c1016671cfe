// Package model provides the data structures synchronized between the local
// mirror and the remote article service.
//
// Every entity carries per-copy timestamps (created_at, updated_at), the
// timestamp of its last successful reconciliation (synced_at), and a dirty
// flag (is_modified) that stays true from the moment of a local mutation
// until a sync cycle reconciles the entity. Deletion is a lifecycle, not a
// flag: an article moves Live -> TombstonedLocally -> TombstonedRemotely and
// is purged from storage only after the remote side has acknowledged the
// deletion.
package model

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocalIDPrefix marks identifiers generated on-device for articles created
// while offline. The orchestrator uses the prefix to recognize entities that
// do not exist on the remote yet and must be pushed as creates.
const LocalIDPrefix = "local-"

// Article is the unit of synchronization.
type Article struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Summary string `json:"summary,omitempty"`
	Content string `json:"content,omitempty"`

	URL       string `json:"url"`
	ImageURL  string `json:"image_url,omitempty"`
	SourceURL string `json:"source_url,omitempty"`

	// ReadTime is the estimated reading time in minutes.
	ReadTime int `json:"read_time"`

	IsArchived bool `json:"is_archived"`
	IsFavorite bool `json:"is_favorite"`
	IsRead     bool `json:"is_read"`

	// Labels is the ordered set of label identifiers attached to this article.
	Labels []string `json:"labels,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	SyncedAt  *time.Time `json:"synced_at,omitempty"`

	// IsModified is true while the local copy has changes the remote has not
	// acknowledged. It is set on every local mutation and cleared only by a
	// successful reconciliation.
	IsModified bool `json:"is_modified"`

	// DeletedAt is the soft-delete tombstone marker. A tombstoned article is
	// excluded from normal queries but retained until the deletion has been
	// propagated and acknowledged remotely.
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// NewLocalID generates an identifier for an article created on-device.
func NewLocalID() string {
	return LocalIDPrefix + uuid.NewString()
}

// IsLocalOnly reports whether the article was created offline and has not
// been created on the remote yet.
func (a *Article) IsLocalOnly() bool {
	return strings.HasPrefix(a.ID, LocalIDPrefix)
}

// Validate checks that the article has valid field values.
func (a *Article) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("id is required")
	}
	if a.Title == "" {
		return fmt.Errorf("title is required")
	}
	if a.URL == "" {
		return fmt.Errorf("url is required")
	}
	if a.ReadTime < 0 {
		return fmt.Errorf("read_time must not be negative (got %d)", a.ReadTime)
	}
	if a.CreatedAt.IsZero() {
		return fmt.Errorf("created_at is required")
	}
	if a.UpdatedAt.IsZero() {
		return fmt.Errorf("updated_at is required")
	}
	return nil
}

// Clone returns a deep copy. The conflict engine only ever operates on
// copies and returns a new resolved copy; it never mutates its inputs.
func (a *Article) Clone() *Article {
	c := *a
	c.Labels = slices.Clone(a.Labels)
	if a.SyncedAt != nil {
		t := *a.SyncedAt
		c.SyncedAt = &t
	}
	if a.DeletedAt != nil {
		t := *a.DeletedAt
		c.DeletedAt = &t
	}
	return &c
}

// Touch marks the article as locally modified, bumping updated_at.
// This must be called on every local mutation so the change queue and the
// dirty flag never disagree.
func (a *Article) Touch(now time.Time) {
	a.UpdatedAt = now
	a.IsModified = true
}

// DeletionState describes where an article is in its deletion lifecycle.
type DeletionState int

const (
	// Live means the article has no tombstone.
	Live DeletionState = iota

	// TombstonedLocally means the article was soft-deleted on-device and the
	// deletion has not been pushed to the remote yet.
	TombstonedLocally

	// TombstonedRemotely means the remote has acknowledged the deletion; the
	// row is retained only until the next purge pass.
	TombstonedRemotely
)

// String returns the lifecycle state name.
func (s DeletionState) String() string {
	switch s {
	case Live:
		return "live"
	case TombstonedLocally:
		return "tombstoned-locally"
	case TombstonedRemotely:
		return "tombstoned-remotely"
	default:
		return fmt.Sprintf("DeletionState(%d)", int(s))
	}
}

// Deletion returns the article's position in the deletion lifecycle.
// A purged article no longer exists as a row, so Purged has no value here.
func (a *Article) Deletion() DeletionState {
	switch {
	case a.DeletedAt == nil:
		return Live
	case a.IsModified:
		return TombstonedLocally
	default:
		return TombstonedRemotely
	}
}
