// Package conflict implements divergence detection and deterministic
// resolution for entities that were modified both locally and remotely.
//
// The engine is pure: it receives copies, returns new resolved copies, and
// never touches storage or the network. That makes every operation in this
// package safe to unit-test without any I/O.
package conflict

import (
	"fmt"
	"slices"

	"github.com/seanmcgrath/stash/internal/model"
)

// Type classifies what kind of field diverged.
type Type string

const (
	// TypeContentModified covers title, summary, and content differences.
	TypeContentModified Type = "content-modified"

	// TypeStatusChanged covers the independent boolean flags
	// (is_read, is_favorite, is_archived).
	TypeStatusChanged Type = "status-changed"

	// TypeTagsUpdated covers label-set differences.
	TypeTagsUpdated Type = "tags-updated"

	// TypeStructural covers identity-adjacent fields (url, source_url,
	// image_url, read_time) that normally never diverge.
	TypeStructural Type = "structural"
)

// Severity grades a conflict for prioritization only: it decides which
// conflicts are auto-resolved versus surfaced, never how they are resolved.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Record describes one diverged field. Records are ephemeral; they are
// produced for the orchestrator and the presentation layer and never
// persisted.
type Record struct {
	Field    string
	Local    any
	Remote   any
	Type     Type
	Severity Severity
}

// Detect compares every synchronized field of the two copies and returns one
// record per difference. Identical copies (after null normalization; a nil
// and an empty label set compare equal) yield an empty slice.
func Detect(local, remote *model.Article) []Record {
	var records []Record

	content := func(field string, lv, rv string) {
		if lv != rv {
			records = append(records, Record{
				Field: field, Local: lv, Remote: rv,
				Type: TypeContentModified, Severity: SeverityMedium,
			})
		}
	}
	status := func(field string, lv, rv bool) {
		if lv != rv {
			records = append(records, Record{
				Field: field, Local: lv, Remote: rv,
				Type: TypeStatusChanged, Severity: SeverityLow,
			})
		}
	}
	structural := func(field string, lv, rv any) {
		if lv != rv {
			records = append(records, Record{
				Field: field, Local: lv, Remote: rv,
				Type: TypeStructural, Severity: SeverityHigh,
			})
		}
	}

	content("title", local.Title, remote.Title)
	content("summary", local.Summary, remote.Summary)
	content("content", local.Content, remote.Content)

	status("is_read", local.IsRead, remote.IsRead)
	status("is_favorite", local.IsFavorite, remote.IsFavorite)
	status("is_archived", local.IsArchived, remote.IsArchived)

	structural("url", local.URL, remote.URL)
	structural("source_url", local.SourceURL, remote.SourceURL)
	structural("image_url", local.ImageURL, remote.ImageURL)
	structural("read_time", local.ReadTime, remote.ReadTime)

	if !labelsEqual(local.Labels, remote.Labels) {
		records = append(records, Record{
			Field: "labels", Local: local.Labels, Remote: remote.Labels,
			Type: TypeTagsUpdated, Severity: SeverityLow,
		})
	}

	return records
}

// labelsEqual treats nil and empty as the same set.
func labelsEqual(a, b []string) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return slices.Equal(a, b)
}

// Describe renders one human-readable sentence per record, driven by the
// conflict type. The output is for display only and must not be parsed.
func Describe(records []Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		switch r.Type {
		case TypeContentModified:
			out = append(out, fmt.Sprintf("The %s was edited on both copies (%q locally, %q remotely).", r.Field, r.Local, r.Remote))
		case TypeStatusChanged:
			out = append(out, fmt.Sprintf("The %s flag differs between the two copies (%v locally, %v remotely).", r.Field, r.Local, r.Remote))
		case TypeTagsUpdated:
			out = append(out, "The labels were changed on both copies.")
		default:
			out = append(out, fmt.Sprintf("The %s differs between the two copies (%v locally, %v remotely).", r.Field, r.Local, r.Remote))
		}
	}
	return out
}
