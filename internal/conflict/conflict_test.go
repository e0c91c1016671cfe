package conflict

import (
	"errors"
	"testing"
	"time"

	"github.com/seanmcgrath/stash/internal/model"
)

var testBase = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

// testArticle builds a fully-populated article updated at the given offset
// from the shared base time.
func testArticle(t *testing.T, title string, updatedOffset time.Duration) *model.Article {
	t.Helper()

	return &model.Article{
		ID:        "art-1",
		Title:     title,
		Summary:   "A summary",
		Content:   "Body text",
		URL:       "https://example.com/a",
		ReadTime:  4,
		Labels:    []string{"lbl-1"},
		CreatedAt: testBase.Add(-24 * time.Hour),
		UpdatedAt: testBase.Add(updatedOffset),
	}
}

// fixedEngine returns an engine whose clock is pinned for deterministic
// synced_at assertions.
func fixedEngine(t *testing.T) (*Engine, time.Time) {
	t.Helper()

	now := testBase.Add(6 * time.Hour)
	e := New(nil)
	e.now = func() time.Time { return now }
	return e, now
}

func TestDetectIdenticalArticles(t *testing.T) {
	a := testArticle(t, "Same", 0)
	b := a.Clone()

	if records := Detect(a, b); len(records) != 0 {
		t.Errorf("expected no conflicts for identical articles, got %d: %+v", len(records), records)
	}

	// Reflexivity: an article never conflicts with itself.
	if records := Detect(a, a); len(records) != 0 {
		t.Errorf("expected no conflicts for Detect(x, x), got %d", len(records))
	}
}

func TestDetectNilAndEmptyLabelsEqual(t *testing.T) {
	a := testArticle(t, "Same", 0)
	a.Labels = nil
	b := a.Clone()
	b.Labels = []string{}

	if records := Detect(a, b); len(records) != 0 {
		t.Errorf("nil and empty label sets should compare equal, got %+v", records)
	}
}

func TestDetectClassification(t *testing.T) {
	local := testArticle(t, "Local title", 0)
	remote := testArticle(t, "Remote title", 0)
	remote.IsFavorite = true
	remote.Labels = []string{"lbl-1", "lbl-2"}
	remote.URL = "https://example.com/moved"

	records := Detect(local, remote)
	if len(records) != 4 {
		t.Fatalf("expected 4 conflicts, got %d: %+v", len(records), records)
	}

	byField := make(map[string]Record)
	for _, r := range records {
		byField[r.Field] = r
	}

	tests := []struct {
		field    string
		typ      Type
		severity Severity
	}{
		{"title", TypeContentModified, SeverityMedium},
		{"is_favorite", TypeStatusChanged, SeverityLow},
		{"labels", TypeTagsUpdated, SeverityLow},
		{"url", TypeStructural, SeverityHigh},
	}
	for _, tt := range tests {
		r, ok := byField[tt.field]
		if !ok {
			t.Errorf("missing conflict record for %s", tt.field)
			continue
		}
		if r.Type != tt.typ {
			t.Errorf("%s: expected type %s, got %s", tt.field, tt.typ, r.Type)
		}
		if r.Severity != tt.severity {
			t.Errorf("%s: expected severity %s, got %s", tt.field, tt.severity, r.Severity)
		}
	}
}

func TestResolveLastWriteWinsLocalNewer(t *testing.T) {
	e, now := fixedEngine(t)

	local := testArticle(t, "Local", 2*time.Hour)
	local.IsModified = true
	remote := testArticle(t, "Remote", 1*time.Hour)

	resolved, err := e.Resolve(local, remote, model.LastWriteWins)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if resolved.Title != "Local" {
		t.Errorf("expected local title to win, got %q", resolved.Title)
	}
	if !resolved.IsModified {
		t.Error("local win must stay modified so it is still pushed upstream")
	}
	if resolved.SyncedAt == nil || !resolved.SyncedAt.Equal(now) {
		t.Errorf("expected synced_at %v, got %v", now, resolved.SyncedAt)
	}

	// Inputs must not be mutated.
	if local.SyncedAt != nil {
		t.Error("Resolve mutated the local input")
	}
}

func TestResolveLastWriteWinsRemoteNewer(t *testing.T) {
	e, _ := fixedEngine(t)

	local := testArticle(t, "Local", 1*time.Hour)
	local.IsModified = true
	remote := testArticle(t, "Remote", 2*time.Hour)

	resolved, err := e.Resolve(local, remote, model.LastWriteWins)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if resolved.Title != "Remote" {
		t.Errorf("expected remote title to win, got %q", resolved.Title)
	}
	if resolved.IsModified {
		t.Error("remote win must clear the dirty flag")
	}
}

func TestResolveLastWriteWinsExactTie(t *testing.T) {
	e, _ := fixedEngine(t)

	local := testArticle(t, "Local", time.Hour)
	remote := testArticle(t, "Remote", time.Hour)

	// The tie-break is stable: remote wins, every time.
	for i := 0; i < 5; i++ {
		resolved, err := e.Resolve(local, remote, model.LastWriteWins)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if resolved.Title != "Remote" {
			t.Fatalf("run %d: expected remote to win exact tie, got %q", i, resolved.Title)
		}
		if resolved.IsModified {
			t.Fatalf("run %d: tie resolution is a remote win and must be clean", i)
		}
	}
}

func TestResolveLocalWins(t *testing.T) {
	e, _ := fixedEngine(t)

	// Remote is newer, but LOCAL_WINS ignores timestamps.
	local := testArticle(t, "Local", time.Hour)
	remote := testArticle(t, "Remote", 2*time.Hour)

	resolved, err := e.Resolve(local, remote, model.LocalWins)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.Title != "Local" {
		t.Errorf("expected local copy, got %q", resolved.Title)
	}
	if !resolved.IsModified {
		t.Error("LOCAL_WINS result still needs upload and must stay modified")
	}
	if resolved.SyncedAt == nil {
		t.Error("resolution must stamp synced_at")
	}
}

func TestResolveRemoteWins(t *testing.T) {
	e, _ := fixedEngine(t)

	local := testArticle(t, "Local", 2*time.Hour)
	remote := testArticle(t, "Remote", time.Hour)

	resolved, err := e.Resolve(local, remote, model.RemoteWins)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.Title != "Remote" {
		t.Errorf("expected remote copy, got %q", resolved.Title)
	}
	if resolved.IsModified {
		t.Error("REMOTE_WINS must clear the dirty flag")
	}
}

func TestResolveManualAlwaysFails(t *testing.T) {
	e, _ := fixedEngine(t)

	local := testArticle(t, "Local", 2*time.Hour)
	remote := testArticle(t, "Remote", time.Hour)

	resolved, err := e.Resolve(local, remote, model.Manual)
	if resolved != nil {
		t.Fatalf("MANUAL must never return a value, got %+v", resolved)
	}
	if !errors.Is(err, ErrManualResolution) {
		t.Errorf("expected ErrManualResolution, got %v", err)
	}
}

func TestResolveUnknownStrategyFails(t *testing.T) {
	e, _ := fixedEngine(t)

	local := testArticle(t, "Local", 2*time.Hour)
	remote := testArticle(t, "Remote", time.Hour)

	resolved, err := e.Resolve(local, remote, model.Strategy("newest_wins"))
	if resolved != nil {
		t.Fatalf("unknown strategy must never return a value, got %+v", resolved)
	}
	var unknownErr *UnknownStrategyError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("expected UnknownStrategyError, got %v", err)
	}
	if unknownErr.Strategy != "newest_wins" {
		t.Errorf("error should carry the rejected strategy, got %q", unknownErr.Strategy)
	}
}

func TestMergeTwoWayWithoutBase(t *testing.T) {
	e, _ := fixedEngine(t)

	local := testArticle(t, "Local", 2*time.Hour)
	remote := testArticle(t, "Remote", time.Hour)

	merged, err := e.Merge(local, remote, nil)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if merged.Title != "Local" {
		t.Errorf("two-way merge should behave as last-write-wins, got %q", merged.Title)
	}
}

func TestMergeThreeWayDisjointChanges(t *testing.T) {
	e, _ := fixedEngine(t)

	base := testArticle(t, "Base", 0)
	local := base.Clone()
	local.Title = "New title"
	local.UpdatedAt = testBase.Add(2 * time.Hour)
	remote := base.Clone()
	remote.IsFavorite = true
	remote.UpdatedAt = testBase.Add(1 * time.Hour)

	merged, err := e.Merge(local, remote, base)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	// Both sides' changes survive simultaneously.
	if merged.Title != "New title" {
		t.Errorf("expected local title change, got %q", merged.Title)
	}
	if !merged.IsFavorite {
		t.Error("expected remote favorite change to survive")
	}

	// Everything else stays equal to base.
	if merged.Summary != base.Summary || merged.Content != base.Content ||
		merged.URL != base.URL || merged.ReadTime != base.ReadTime ||
		merged.IsRead != base.IsRead || merged.IsArchived != base.IsArchived {
		t.Errorf("unchanged fields must keep base values: %+v", merged)
	}
	if !labelsEqual(merged.Labels, base.Labels) {
		t.Errorf("expected base labels, got %v", merged.Labels)
	}
	if merged.SyncedAt == nil {
		t.Error("merge must stamp synced_at")
	}
	if !merged.IsModified {
		t.Error("merged record still differs from remote and must remain dirty")
	}
}

func TestMergeThreeWayBothChangedSameField(t *testing.T) {
	e, _ := fixedEngine(t)

	base := testArticle(t, "Base", 0)
	local := base.Clone()
	local.Title = "Local title"
	local.UpdatedAt = testBase.Add(2 * time.Hour)
	remote := base.Clone()
	remote.Title = "Remote title"
	remote.UpdatedAt = testBase.Add(3 * time.Hour)

	merged, err := e.Merge(local, remote, base)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	// Both diverged from base: whole-record last-write-wins supplies the
	// field, and remote has the newer updated_at.
	if merged.Title != "Remote title" {
		t.Errorf("expected newer side's title, got %q", merged.Title)
	}
	if merged.IsModified {
		t.Error("merge that converges on the remote copy should be clean")
	}
}

func TestMergeThreeWayBothChangedToSameValue(t *testing.T) {
	e, _ := fixedEngine(t)

	base := testArticle(t, "Base", 0)
	local := base.Clone()
	local.IsRead = true
	local.UpdatedAt = testBase.Add(2 * time.Hour)
	remote := base.Clone()
	remote.IsRead = true
	remote.UpdatedAt = testBase.Add(1 * time.Hour)

	merged, err := e.Merge(local, remote, base)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if !merged.IsRead {
		t.Error("convergent change must survive the merge")
	}
}

func TestValidateResolution(t *testing.T) {
	e, now := fixedEngine(t)

	local := testArticle(t, "Local", time.Hour)
	remote := testArticle(t, "Remote", 2*time.Hour)

	t.Run("valid record passes", func(t *testing.T) {
		resolved := testArticle(t, "Resolved", 2*time.Hour)
		result := e.ValidateResolution(local, remote, resolved)
		if !result.Valid {
			t.Errorf("expected valid result, got errors: %v", result.Errors)
		}
	})

	t.Run("collects one error per violated field", func(t *testing.T) {
		resolved := testArticle(t, "", 2*time.Hour)
		resolved.ID = ""
		resolved.URL = ""
		result := e.ValidateResolution(local, remote, resolved)
		if result.Valid {
			t.Fatal("expected invalid result")
		}
		if len(result.Errors) != 3 {
			t.Errorf("expected 3 errors (id, title, url), got %d: %v", len(result.Errors), result.Errors)
		}
	})

	t.Run("rejects future timestamps", func(t *testing.T) {
		resolved := testArticle(t, "Resolved", 0)
		resolved.CreatedAt = now.Add(time.Minute)
		resolved.UpdatedAt = now.Add(2 * time.Minute)
		result := e.ValidateResolution(local, remote, resolved)
		if result.Valid {
			t.Fatal("expected invalid result")
		}
		if len(result.Errors) != 2 {
			t.Errorf("expected 2 errors, got %d: %v", len(result.Errors), result.Errors)
		}
	})

	t.Run("timestamp equal to now is allowed", func(t *testing.T) {
		resolved := testArticle(t, "Resolved", 0)
		resolved.UpdatedAt = now
		result := e.ValidateResolution(local, remote, resolved)
		if !result.Valid {
			t.Errorf("timestamps must be rejected only when strictly after now: %v", result.Errors)
		}
	})
}

func TestDescribe(t *testing.T) {
	local := testArticle(t, "Local title", 0)
	remote := testArticle(t, "Remote title", 0)
	remote.IsRead = true
	remote.Labels = []string{"lbl-2"}

	records := Detect(local, remote)
	lines := Describe(records)
	if len(lines) != len(records) {
		t.Fatalf("expected one sentence per record, got %d for %d records", len(lines), len(records))
	}
	for i, line := range lines {
		if line == "" {
			t.Errorf("description %d is empty", i)
		}
	}
}
