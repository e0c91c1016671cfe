package conflict

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/seanmcgrath/stash/internal/model"
)

// ErrManualResolution is returned by Resolve when the strategy is Manual:
// the engine never guesses, the caller must supply a resolution out-of-band.
var ErrManualResolution = errors.New("conflict requires manual resolution")

// UnknownStrategyError is returned when Resolve is handed a strategy value
// outside the closed set. This is a configuration error, never retried and
// never silently defaulted.
type UnknownStrategyError struct {
	Strategy model.Strategy
}

func (e *UnknownStrategyError) Error() string {
	return fmt.Sprintf("unknown conflict strategy %q", string(e.Strategy))
}

// Engine resolves conflicts deterministically.
//
// If logger is non-nil, one line is emitted per resolution. It is nil by
// default: resolution runs on the sync hot path.
type Engine struct {
	logger *log.Logger
	now    func() time.Time
}

// New creates a resolution engine. A nil logger disables the logging
// side-channel.
func New(logger *log.Logger) *Engine {
	return &Engine{logger: logger, now: time.Now}
}

// Resolve produces a single authoritative copy from a local and a remote
// copy according to the strategy. The inputs are never mutated; the result
// is a new copy with synced_at stamped to the resolution time.
//
// The dirty flag on the result follows the push-upstream invariant: if the
// local copy wins it stays modified so it is still uploaded, if the remote
// copy wins it is clean.
func (e *Engine) Resolve(local, remote *model.Article, strategy model.Strategy) (*model.Article, error) {
	switch strategy {
	case model.LastWriteWins:
		// Strictly-newer copy wins in full; on an exact tie the remote
		// copy wins. Stable, documented tie-break.
		if local.UpdatedAt.After(remote.UpdatedAt) {
			return e.finish(local, true, strategy), nil
		}
		return e.finish(remote, false, strategy), nil

	case model.LocalWins:
		return e.finish(local, true, strategy), nil

	case model.RemoteWins:
		return e.finish(remote, false, strategy), nil

	case model.Manual:
		return nil, fmt.Errorf("cannot auto-resolve %s: %w", local.ID, ErrManualResolution)

	default:
		return nil, &UnknownStrategyError{Strategy: strategy}
	}
}

// Merge reconciles the two copies field by field.
//
// Without a base this degrades to two-way last-write-wins. With a base it is
// a three-way merge: a field changed on only one side takes that side's
// value, a field changed on neither side keeps the base value, and a field
// changed on both sides (to different values) is broken by last-write-wins
// applied at the whole-record level, so whichever side's updated_at is newer
// supplies that field.
func (e *Engine) Merge(local, remote, base *model.Article) (*model.Article, error) {
	if base == nil {
		return e.Resolve(local, remote, model.LastWriteWins)
	}

	winner := remote
	if local.UpdatedAt.After(remote.UpdatedAt) {
		winner = local
	}

	merged := base.Clone()
	mergeString := func(dst *string, lv, rv, bv, wv string) {
		switch {
		case lv != bv && rv != bv && lv != rv:
			*dst = wv
		case lv != bv:
			*dst = lv
		case rv != bv:
			*dst = rv
		}
	}
	mergeBool := func(dst *bool, lv, rv, bv, wv bool) {
		switch {
		case lv != bv && rv != bv && lv != rv:
			*dst = wv
		case lv != bv:
			*dst = lv
		case rv != bv:
			*dst = rv
		}
	}

	mergeString(&merged.Title, local.Title, remote.Title, base.Title, winner.Title)
	mergeString(&merged.Summary, local.Summary, remote.Summary, base.Summary, winner.Summary)
	mergeString(&merged.Content, local.Content, remote.Content, base.Content, winner.Content)
	mergeString(&merged.URL, local.URL, remote.URL, base.URL, winner.URL)
	mergeString(&merged.ImageURL, local.ImageURL, remote.ImageURL, base.ImageURL, winner.ImageURL)
	mergeString(&merged.SourceURL, local.SourceURL, remote.SourceURL, base.SourceURL, winner.SourceURL)

	mergeBool(&merged.IsArchived, local.IsArchived, remote.IsArchived, base.IsArchived, winner.IsArchived)
	mergeBool(&merged.IsFavorite, local.IsFavorite, remote.IsFavorite, base.IsFavorite, winner.IsFavorite)
	mergeBool(&merged.IsRead, local.IsRead, remote.IsRead, base.IsRead, winner.IsRead)

	switch {
	case local.ReadTime != base.ReadTime && remote.ReadTime != base.ReadTime && local.ReadTime != remote.ReadTime:
		merged.ReadTime = winner.ReadTime
	case local.ReadTime != base.ReadTime:
		merged.ReadTime = local.ReadTime
	case remote.ReadTime != base.ReadTime:
		merged.ReadTime = remote.ReadTime
	}

	localTags := !labelsEqual(local.Labels, base.Labels)
	remoteTags := !labelsEqual(remote.Labels, base.Labels)
	switch {
	case localTags && remoteTags && !labelsEqual(local.Labels, remote.Labels):
		merged.Labels = append([]string(nil), winner.Labels...)
	case localTags:
		merged.Labels = append([]string(nil), local.Labels...)
	case remoteTags:
		merged.Labels = append([]string(nil), remote.Labels...)
	}

	if remote.UpdatedAt.After(local.UpdatedAt) {
		merged.UpdatedAt = remote.UpdatedAt
	} else {
		merged.UpdatedAt = local.UpdatedAt
	}

	now := e.now()
	merged.SyncedAt = &now

	// The merged record is dirty exactly when it still differs from what the
	// remote holds, so surviving local edits get pushed upstream.
	merged.IsModified = len(Detect(merged, remote)) > 0

	if e.logger != nil {
		e.logger.Printf("Merged %s (three-way, %d fields dirty=%v)", merged.ID, len(Detect(local, remote)), merged.IsModified)
	}

	return merged, nil
}

// finish stamps the winning copy with the resolution time and the correct
// dirty flag, leaving the input untouched.
func (e *Engine) finish(winner *model.Article, keepModified bool, strategy model.Strategy) *model.Article {
	resolved := winner.Clone()
	now := e.now()
	resolved.SyncedAt = &now
	resolved.IsModified = keepModified

	if e.logger != nil {
		side := "remote"
		if keepModified {
			side = "local"
		}
		e.logger.Printf("Resolved %s via %s (%s copy won)", resolved.ID, strategy, side)
	}
	return resolved
}
