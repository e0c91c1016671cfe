package syncer

import (
	"time"

	"github.com/seanmcgrath/stash/internal/conflict"
)

// State is the orchestrator's lifecycle state.
//
// The machine runs IDLE -> SYNCING -> {SUCCESS, ERROR} -> IDLE. SUCCESS and
// ERROR are announced to subscribers as the cycle ends and recorded in the
// status snapshot; the resting state between cycles is always IDLE or PAUSED.
type State string

const (
	StateIdle    State = "IDLE"
	StateSyncing State = "SYNCING"
	StateSuccess State = "SUCCESS"
	StateError   State = "ERROR"
	StatePaused  State = "PAUSED"
)

// EventType identifies what a subscriber is being told about.
type EventType string

const (
	// EventState announces a lifecycle transition.
	EventState EventType = "state"

	// EventArticle announces that an article changed during a cycle
	// (pushed, pulled, or resolved).
	EventArticle EventType = "article"

	// EventConflict announces a divergence that needs, or received, a
	// resolution.
	EventConflict EventType = "conflict"

	// EventCycle announces a finished cycle with its statistics.
	EventCycle EventType = "cycle"
)

// Event is one notification to the presentation layer.
type Event struct {
	Type     EventType `json:"type"`
	State    State     `json:"state,omitempty"`
	EntityID string    `json:"entity_id,omitempty"`
	Message  string    `json:"message,omitempty"`
	Time     time.Time `json:"time"`
}

// CycleStats counts what one sync cycle did.
type CycleStats struct {
	Pushed    int `json:"pushed"`
	Pulled    int `json:"pulled"`
	Conflicts int `json:"conflicts"`
	Failed    int `json:"failed"`
	Purged    int `json:"purged"`
}

// PendingConflict is a divergence the engine refused to auto-resolve. It
// stays queued until ResolveManually adjudicates it.
type PendingConflict struct {
	ArticleID string            `json:"article_id"`
	EntryID   int64             `json:"entry_id,omitempty"`
	Records   []conflict.Record `json:"records"`
	Detected  time.Time         `json:"detected"`
}

// Status is a point-in-time snapshot for the presentation layer.
type Status struct {
	State       State              `json:"state"`
	LastSync    *time.Time         `json:"last_sync,omitempty"`
	LastError   string             `json:"last_error,omitempty"`
	LastCycle   CycleStats         `json:"last_cycle"`
	ManualQueue []*PendingConflict `json:"manual_queue,omitempty"`
}
