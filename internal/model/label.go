package model

import (
	"fmt"
	"time"
)

// Label is a user-defined tag with a display color, many-to-many with
// Article via the article_labels join table. Labels carry the same sync
// timestamps as articles and ride the same change queue.
type Label struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	SyncedAt  *time.Time `json:"synced_at,omitempty"`
}

// Validate checks that the label has valid field values.
func (l *Label) Validate() error {
	if l.ID == "" {
		return fmt.Errorf("id is required")
	}
	if l.Name == "" {
		return fmt.Errorf("name is required")
	}
	if l.CreatedAt.IsZero() {
		return fmt.Errorf("created_at is required")
	}
	if l.UpdatedAt.IsZero() {
		return fmt.Errorf("updated_at is required")
	}
	return nil
}

// Clone returns a copy of the label.
func (l *Label) Clone() *Label {
	c := *l
	if l.SyncedAt != nil {
		t := *l.SyncedAt
		c.SyncedAt = &t
	}
	return &c
}
