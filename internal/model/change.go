package model

import (
	"fmt"
	"time"
)

// EntityType identifies which table a change queue entry refers to.
type EntityType string

const (
	EntityArticle      EntityType = "article"
	EntityLabel        EntityType = "label"
	EntityArticleLabel EntityType = "article_label"
)

// ParseEntityType converts a stored string into an EntityType,
// rejecting unrecognized values.
func ParseEntityType(s string) (EntityType, error) {
	switch EntityType(s) {
	case EntityArticle, EntityLabel, EntityArticleLabel:
		return EntityType(s), nil
	default:
		return "", fmt.Errorf("unknown entity type %q", s)
	}
}

// Operation is the kind of pending local mutation awaiting upload.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// ParseOperation converts a stored string into an Operation,
// rejecting unrecognized values.
func ParseOperation(s string) (Operation, error) {
	switch Operation(s) {
	case OpCreate, OpUpdate, OpDelete:
		return Operation(s), nil
	default:
		return "", fmt.Errorf("unknown operation %q", s)
	}
}

// SyncStatus is the lifecycle state of a change queue entry.
//
// pending -> syncing -> completed on remote acknowledgment, or back to
// pending on a retryable failure. Entries that exhaust their retry budget
// become failed and are excluded from automatic drains until manually
// re-triggered.
type SyncStatus string

const (
	StatusPending   SyncStatus = "pending"
	StatusSyncing   SyncStatus = "syncing"
	StatusCompleted SyncStatus = "completed"
	StatusFailed    SyncStatus = "failed"
)

// ParseSyncStatus converts a stored string into a SyncStatus,
// rejecting unrecognized values.
func ParseSyncStatus(s string) (SyncStatus, error) {
	switch SyncStatus(s) {
	case StatusPending, StatusSyncing, StatusCompleted, StatusFailed:
		return SyncStatus(s), nil
	default:
		return "", fmt.Errorf("unknown sync status %q", s)
	}
}

// ChangeEntry is one row of the durable change queue: a single pending local
// mutation (create/update/delete) awaiting upload to the remote.
type ChangeEntry struct {
	ID         int64      `json:"id"`
	EntityType EntityType `json:"entity_type"`
	EntityID   string     `json:"entity_id"`
	Operation  Operation  `json:"operation"`

	// LocalTimestamp is when the mutation happened on-device.
	LocalTimestamp time.Time `json:"local_timestamp"`

	// ServerTimestamp is set once the remote acknowledges the mutation.
	ServerTimestamp *time.Time `json:"server_timestamp,omitempty"`

	Status SyncStatus `json:"status"`

	// Resolution records how a conflict on this entity was adjudicated,
	// if one occurred during upload ("last_write_wins", "manual", ...).
	Resolution string `json:"resolution,omitempty"`

	RetryCount int    `json:"retry_count"`
	LastError  string `json:"last_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks that the entry has valid field values.
func (e *ChangeEntry) Validate() error {
	if _, err := ParseEntityType(string(e.EntityType)); err != nil {
		return err
	}
	if e.EntityID == "" {
		return fmt.Errorf("entity_id is required")
	}
	if _, err := ParseOperation(string(e.Operation)); err != nil {
		return err
	}
	if _, err := ParseSyncStatus(string(e.Status)); err != nil {
		return err
	}
	if e.RetryCount < 0 {
		return fmt.Errorf("retry_count must not be negative (got %d)", e.RetryCount)
	}
	return nil
}
