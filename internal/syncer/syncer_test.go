package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/seanmcgrath/stash/internal/errs"
	"github.com/seanmcgrath/stash/internal/model"
	"github.com/seanmcgrath/stash/internal/netstatus"
	"github.com/seanmcgrath/stash/internal/remote"
	"github.com/seanmcgrath/stash/internal/store"
)

// fakeRemote is an in-memory remote.Service for orchestrator tests.
type fakeRemote struct {
	mu       sync.Mutex
	articles map[string]*model.Article
	labels   map[string]*model.Label
	nextID   int

	// pages are returned by ListArticlesSince in order; once drained an
	// empty final page is returned.
	pages []remote.ArticlePage

	// err, when set, fails every call.
	err error

	// deleteErr, when set, fails DeleteArticle only.
	deleteErr error

	// onList runs on each ListArticlesSince call, before the page is
	// returned.
	onList func()

	calls      int
	listCalls  int
	updatedIDs []string
	deletedIDs []string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		articles: make(map[string]*model.Article),
		labels:   make(map[string]*model.Label),
	}
}

func (f *fakeRemote) fail() error {
	f.calls++
	return f.err
}

func (f *fakeRemote) ListArticlesSince(ctx context.Context, cursor string, limit int) (*remote.ArticlePage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.onList != nil {
		f.onList()
	}
	if err := f.fail(); err != nil {
		return nil, err
	}
	if len(f.pages) == 0 {
		return &remote.ArticlePage{}, nil
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	return &page, nil
}

func (f *fakeRemote) GetArticle(ctx context.Context, id string) (*model.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return nil, err
	}
	a, ok := f.articles[id]
	if !ok {
		return nil, errs.ValidationErr(fmt.Sprintf("article %s not found", id), remote.ErrNotFound)
	}
	return a.Clone(), nil
}

func (f *fakeRemote) CreateArticle(ctx context.Context, a *model.Article) (*model.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return nil, err
	}
	f.nextID++
	created := a.Clone()
	created.ID = fmt.Sprintf("srv-%d", f.nextID)
	f.articles[created.ID] = created
	return created.Clone(), nil
}

func (f *fakeRemote) UpdateArticle(ctx context.Context, a *model.Article) (*model.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return nil, err
	}
	f.articles[a.ID] = a.Clone()
	f.updatedIDs = append(f.updatedIDs, a.ID)
	return a.Clone(), nil
}

func (f *fakeRemote) DeleteArticle(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return err
	}
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.articles[id]; !ok {
		return errs.ValidationErr(fmt.Sprintf("article %s not found", id), remote.ErrNotFound)
	}
	delete(f.articles, id)
	f.deletedIDs = append(f.deletedIDs, id)
	return nil
}

func (f *fakeRemote) ListLabels(ctx context.Context) ([]*model.Label, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return nil, err
	}
	var out []*model.Label
	for _, l := range f.labels {
		out = append(out, l.Clone())
	}
	return out, nil
}

func (f *fakeRemote) CreateLabel(ctx context.Context, l *model.Label) (*model.Label, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return nil, err
	}
	f.labels[l.ID] = l.Clone()
	return l.Clone(), nil
}

func (f *fakeRemote) AssignLabel(ctx context.Context, articleID, labelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fail()
}

func (f *fakeRemote) RemoveLabel(ctx context.Context, articleID, labelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fail()
}

func (f *fakeRemote) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeRemote) listCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

var testBase = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestSyncer(t *testing.T, fake *fakeRemote, conn netstatus.Connectivity, opts Options) (*Syncer, *store.Store) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "sync.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	s := New(st, fake, netstatus.Static(conn), opts, log.New(io.Discard, "", 0))
	return s, st
}

// seedSynced plants the same clean article locally and on the fake remote.
func seedSynced(t *testing.T, st *store.Store, fake *fakeRemote, id, title string) {
	t.Helper()

	a := &model.Article{
		ID: id, Title: title, URL: "https://example.com/" + id,
		CreatedAt: testBase, UpdatedAt: testBase,
		SyncedAt: &testBase,
	}
	if err := st.UpsertRemote(context.Background(), a); err != nil {
		t.Fatalf("failed to seed article: %v", err)
	}
	fake.articles[id] = a.Clone()
}

// editLocal applies a local title edit at the given time, queueing an update.
func editLocal(t *testing.T, st *store.Store, id, title string, at time.Time) {
	t.Helper()

	a, err := st.GetArticle(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to get article: %v", err)
	}
	a.Title = title
	a.Touch(at)
	if err := st.UpdateArticle(context.Background(), a); err != nil {
		t.Fatalf("failed to update article: %v", err)
	}
}

func TestOfflineCreateIsPromotedToServerID(t *testing.T) {
	fake := newFakeRemote()
	s, st := newTestSyncer(t, fake, netstatus.Wifi, Options{})
	ctx := context.Background()

	a := &model.Article{
		ID: model.NewLocalID(), Title: "Drafted offline", URL: "https://example.com/draft",
		CreatedAt: testBase, UpdatedAt: testBase, IsModified: true,
	}
	if err := st.CreateArticle(ctx, a); err != nil {
		t.Fatalf("failed to create article: %v", err)
	}

	if err := s.SyncNow(ctx); err != nil {
		t.Fatalf("SyncNow failed: %v", err)
	}

	if _, err := st.GetArticle(ctx, a.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("local-ID row must be gone after promotion, got err=%v", err)
	}
	promoted, err := st.GetArticle(ctx, "srv-1")
	if err != nil {
		t.Fatalf("promoted article missing: %v", err)
	}
	if promoted.IsModified {
		t.Error("promoted article must be clean")
	}
	if promoted.SyncedAt == nil {
		t.Error("promoted article must carry synced_at")
	}

	entry, err := st.GetEntry(ctx, 1)
	if err != nil {
		t.Fatalf("failed to get queue entry: %v", err)
	}
	if entry.Status != model.StatusCompleted {
		t.Errorf("expected completed entry, got %s", entry.Status)
	}
	if entry.EntityID != "srv-1" {
		t.Errorf("entry must be remapped to the server ID, got %s", entry.EntityID)
	}
}

func TestLastWriteWinsLocalNewer(t *testing.T) {
	fake := newFakeRemote()
	s, st := newTestSyncer(t, fake, netstatus.Wifi, Options{Strategy: model.LastWriteWins})
	ctx := context.Background()

	seedSynced(t, st, fake, "art-1", "Original")
	editLocal(t, st, "art-1", "Local", testBase.Add(2*time.Hour))
	fake.articles["art-1"].Title = "Remote"
	fake.articles["art-1"].UpdatedAt = testBase.Add(time.Hour)

	if err := s.SyncNow(ctx); err != nil {
		t.Fatalf("SyncNow failed: %v", err)
	}

	got, err := st.GetArticle(ctx, "art-1")
	if err != nil {
		t.Fatalf("failed to get article: %v", err)
	}
	if got.Title != "Local" {
		t.Errorf("newer local edit must win, got title %q", got.Title)
	}
	if got.IsModified {
		t.Error("article must be clean after the winning copy was uploaded")
	}
	if fake.articles["art-1"].Title != "Local" {
		t.Errorf("winning copy must be pushed upstream, remote has %q", fake.articles["art-1"].Title)
	}

	entry, err := st.GetEntry(ctx, 1)
	if err != nil {
		t.Fatalf("failed to get queue entry: %v", err)
	}
	if entry.Status != model.StatusCompleted {
		t.Errorf("expected completed entry, got %s", entry.Status)
	}
	if entry.Resolution != string(model.LastWriteWins) {
		t.Errorf("expected recorded resolution %q, got %q", model.LastWriteWins, entry.Resolution)
	}
}

func TestLastWriteWinsRemoteNewer(t *testing.T) {
	fake := newFakeRemote()
	s, st := newTestSyncer(t, fake, netstatus.Wifi, Options{Strategy: model.LastWriteWins})
	ctx := context.Background()

	seedSynced(t, st, fake, "art-1", "Original")
	editLocal(t, st, "art-1", "Local", testBase.Add(time.Hour))
	fake.articles["art-1"].Title = "Remote"
	fake.articles["art-1"].UpdatedAt = testBase.Add(2 * time.Hour)

	if err := s.SyncNow(ctx); err != nil {
		t.Fatalf("SyncNow failed: %v", err)
	}

	got, err := st.GetArticle(ctx, "art-1")
	if err != nil {
		t.Fatalf("failed to get article: %v", err)
	}
	if got.Title != "Remote" {
		t.Errorf("newer remote copy must win, got title %q", got.Title)
	}
	if got.IsModified {
		t.Error("article must be clean when the remote copy won")
	}
	if len(fake.updatedIDs) != 0 {
		t.Errorf("nothing should be uploaded when the remote copy won, got updates %v", fake.updatedIDs)
	}
}

func TestRemoteWinsStrategy(t *testing.T) {
	fake := newFakeRemote()
	s, st := newTestSyncer(t, fake, netstatus.Wifi, Options{Strategy: model.RemoteWins})
	ctx := context.Background()

	seedSynced(t, st, fake, "art-1", "Original")
	editLocal(t, st, "art-1", "Local", testBase.Add(2*time.Hour))
	fake.articles["art-1"].Title = "Remote"
	fake.articles["art-1"].UpdatedAt = testBase.Add(time.Hour)

	if err := s.SyncNow(ctx); err != nil {
		t.Fatalf("SyncNow failed: %v", err)
	}

	got, err := st.GetArticle(ctx, "art-1")
	if err != nil {
		t.Fatalf("failed to get article: %v", err)
	}
	if got.Title != "Remote" || got.IsModified {
		t.Errorf("remote copy must win regardless of timestamps, got title=%q modified=%v",
			got.Title, got.IsModified)
	}
}

func TestManualStrategyParksConflict(t *testing.T) {
	fake := newFakeRemote()
	s, st := newTestSyncer(t, fake, netstatus.Wifi, Options{Strategy: model.Manual})
	ctx := context.Background()

	seedSynced(t, st, fake, "art-1", "Original")
	editLocal(t, st, "art-1", "Local", testBase.Add(2*time.Hour))
	fake.articles["art-1"].Title = "Remote"
	fake.articles["art-1"].UpdatedAt = testBase.Add(time.Hour)

	if err := s.SyncNow(ctx); err == nil {
		t.Fatal("a cycle with an unresolvable conflict must not report success")
	}

	status := s.Status()
	if len(status.ManualQueue) != 1 || status.ManualQueue[0].ArticleID != "art-1" {
		t.Fatalf("expected art-1 parked for manual resolution, got %+v", status.ManualQueue)
	}

	entry, err := st.GetEntry(ctx, 1)
	if err != nil {
		t.Fatalf("failed to get queue entry: %v", err)
	}
	if entry.Status != model.StatusFailed {
		t.Errorf("manual conflicts must not be retried automatically, got status %s", entry.Status)
	}

	if err := s.ResolveManually(ctx, "art-1", model.Manual); !errors.Is(err, ErrManualStrategy) {
		t.Errorf("expected ErrManualStrategy, got %v", err)
	}

	if err := s.ResolveManually(ctx, "art-1", model.RemoteWins); err != nil {
		t.Fatalf("ResolveManually failed: %v", err)
	}
	got, err := st.GetArticle(ctx, "art-1")
	if err != nil {
		t.Fatalf("failed to get article: %v", err)
	}
	if got.Title != "Remote" || got.IsModified {
		t.Errorf("manual remote-wins must settle on the remote copy, got title=%q modified=%v",
			got.Title, got.IsModified)
	}
	if len(s.Status().ManualQueue) != 0 {
		t.Error("resolved conflict must leave the manual queue")
	}

	entry, err = st.GetEntry(ctx, 1)
	if err != nil {
		t.Fatalf("failed to get queue entry: %v", err)
	}
	if entry.Status != model.StatusCompleted {
		t.Errorf("expected completed entry after manual resolution, got %s", entry.Status)
	}
}

func TestRetryCeilingAndManualReTrigger(t *testing.T) {
	fake := newFakeRemote()
	s, st := newTestSyncer(t, fake, netstatus.Wifi, Options{MaxRetries: 2})
	ctx := context.Background()

	seedSynced(t, st, fake, "art-1", "Original")
	editLocal(t, st, "art-1", "Local", testBase.Add(time.Hour))
	fake.err = errs.NetworkErr("server down", nil)

	// Two failing cycles exhaust the retry budget.
	for i := 0; i < 2; i++ {
		if err := s.SyncNow(ctx); err == nil {
			t.Fatalf("cycle %d: expected an error while the server is down", i+1)
		}
	}

	failed, err := st.FailedEntries(ctx)
	if err != nil {
		t.Fatalf("failed to list failed entries: %v", err)
	}
	if len(failed) != 1 || failed[0].RetryCount != 2 {
		t.Fatalf("expected one entry with exhausted retries, got %+v", failed)
	}

	// With the entry parked as failed, the next cycle succeeds and skips it.
	fake.err = nil
	if err := s.SyncNow(ctx); err != nil {
		t.Fatalf("cycle after ceiling must succeed: %v", err)
	}
	entry, err := st.GetEntry(ctx, failed[0].ID)
	if err != nil {
		t.Fatalf("failed to get queue entry: %v", err)
	}
	if entry.Status != model.StatusFailed {
		t.Errorf("failed entries must stay out of automatic drains, got %s", entry.Status)
	}

	// Manual re-trigger puts it back through.
	if err := st.RetryEntry(ctx, entry.ID); err != nil {
		t.Fatalf("RetryEntry failed: %v", err)
	}
	if err := s.SyncNow(ctx); err != nil {
		t.Fatalf("SyncNow after re-trigger failed: %v", err)
	}
	entry, err = st.GetEntry(ctx, entry.ID)
	if err != nil {
		t.Fatalf("failed to get queue entry: %v", err)
	}
	if entry.Status != model.StatusCompleted {
		t.Errorf("re-triggered entry must complete, got %s", entry.Status)
	}
}

func TestNetworkGating(t *testing.T) {
	tests := []struct {
		name    string
		conn    netstatus.Connectivity
		opts    Options
		allowed bool
	}{
		{"offline", netstatus.None, Options{}, false},
		{"wifi", netstatus.Wifi, Options{}, true},
		{"cellular allowed", netstatus.Cellular, Options{CellularAllowed: true}, true},
		{"cellular under wifi-only", netstatus.Cellular, Options{WifiOnly: true, CellularAllowed: true}, false},
		{"wifi under wifi-only", netstatus.Wifi, Options{WifiOnly: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeRemote()
			s, _ := newTestSyncer(t, fake, tt.conn, tt.opts)

			// A skip is a successful no-op, never an error.
			if err := s.SyncNow(context.Background()); err != nil {
				t.Fatalf("SyncNow failed: %v", err)
			}
			called := fake.callCount() > 0
			if called != tt.allowed {
				t.Errorf("expected remote contact %v, got %v", tt.allowed, called)
			}
		})
	}
}

func TestPauseResumeIdempotent(t *testing.T) {
	fake := newFakeRemote()
	s, _ := newTestSyncer(t, fake, netstatus.Wifi, Options{})
	ctx := context.Background()

	s.Pause()
	s.Pause()
	if got := s.Status().State; got != StatePaused {
		t.Errorf("expected PAUSED, got %s", got)
	}
	if err := s.SyncNow(ctx); !errors.Is(err, ErrPaused) {
		t.Errorf("expected ErrPaused, got %v", err)
	}
	if fake.callCount() != 0 {
		t.Error("paused orchestrator must not contact the remote")
	}

	s.Resume()
	s.Resume()
	if got := s.Status().State; got != StateIdle {
		t.Errorf("expected IDLE after resume, got %s", got)
	}
	if err := s.SyncNow(ctx); err != nil {
		t.Errorf("SyncNow after resume failed: %v", err)
	}
}

func TestPullWritesThroughAndAdvancesCursor(t *testing.T) {
	fake := newFakeRemote()
	s, st := newTestSyncer(t, fake, netstatus.Wifi, Options{})
	ctx := context.Background()

	pulled := &model.Article{
		ID: "art-9", Title: "From upstream", URL: "https://example.com/art-9",
		CreatedAt: testBase, UpdatedAt: testBase.Add(time.Hour),
	}
	fake.pages = []remote.ArticlePage{{Articles: []*model.Article{pulled}, NextCursor: "cur-1"}}

	if err := s.SyncNow(ctx); err != nil {
		t.Fatalf("SyncNow failed: %v", err)
	}

	got, err := st.GetArticle(ctx, "art-9")
	if err != nil {
		t.Fatalf("pulled article missing: %v", err)
	}
	if got.IsModified || got.SyncedAt == nil {
		t.Errorf("pulled article must be clean and stamped, got modified=%v synced_at=%v",
			got.IsModified, got.SyncedAt)
	}

	cursor, err := st.Cursor(ctx)
	if err != nil {
		t.Fatalf("failed to read cursor: %v", err)
	}
	if cursor != "cur-1" {
		t.Errorf("expected cursor cur-1 after a clean cycle, got %q", cursor)
	}
	last, err := st.LastSyncTime(ctx)
	if err != nil || last == nil {
		t.Errorf("last sync time must be recorded, got %v err=%v", last, err)
	}
}

func TestCursorHeldBackOnFailure(t *testing.T) {
	fake := newFakeRemote()
	s, st := newTestSyncer(t, fake, netstatus.Wifi, Options{})
	ctx := context.Background()

	// One doomed queue entry and one pullable page.
	seedSynced(t, st, fake, "art-1", "Original")
	editLocal(t, st, "art-1", "Local", testBase.Add(time.Hour))
	delete(fake.articles, "art-1")
	fake.err = errs.NetworkErr("flaky", nil)
	fake.pages = []remote.ArticlePage{{NextCursor: "cur-1"}}

	if err := s.SyncNow(ctx); err == nil {
		t.Fatal("expected the cycle to fail")
	}

	cursor, err := st.Cursor(ctx)
	if err != nil {
		t.Fatalf("failed to read cursor: %v", err)
	}
	if cursor != "" {
		t.Errorf("a failed cycle must not advance the cursor, got %q", cursor)
	}
	if last, _ := st.LastSyncTime(ctx); last != nil {
		t.Errorf("a failed cycle must not record a sync time, got %v", last)
	}
}

func TestPullRemoteDeletionPurgesCleanCopy(t *testing.T) {
	fake := newFakeRemote()
	s, st := newTestSyncer(t, fake, netstatus.Wifi, Options{})
	ctx := context.Background()

	seedSynced(t, st, fake, "art-1", "Original")
	deletedAt := testBase.Add(time.Hour)
	tombstone := fake.articles["art-1"].Clone()
	tombstone.UpdatedAt = deletedAt
	tombstone.DeletedAt = &deletedAt
	fake.pages = []remote.ArticlePage{{Articles: []*model.Article{tombstone}}}

	if err := s.SyncNow(ctx); err != nil {
		t.Fatalf("SyncNow failed: %v", err)
	}

	if _, err := st.GetArticleAny(ctx, "art-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("remote deletion of a clean copy must purge the row, got err=%v", err)
	}
	if s.Status().LastCycle.Purged != 1 {
		t.Errorf("expected 1 purged row, got %d", s.Status().LastCycle.Purged)
	}
}

func TestSoftDeletePushIsAckedAndPurged(t *testing.T) {
	fake := newFakeRemote()
	s, st := newTestSyncer(t, fake, netstatus.Wifi, Options{})
	ctx := context.Background()

	seedSynced(t, st, fake, "art-1", "Original")
	if err := st.SoftDeleteArticle(ctx, "art-1", testBase.Add(time.Hour)); err != nil {
		t.Fatalf("failed to soft delete: %v", err)
	}

	if err := s.SyncNow(ctx); err != nil {
		t.Fatalf("SyncNow failed: %v", err)
	}

	if len(fake.deletedIDs) != 1 || fake.deletedIDs[0] != "art-1" {
		t.Errorf("deletion must be propagated, got %v", fake.deletedIDs)
	}
	if _, err := st.GetArticleAny(ctx, "art-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("acknowledged tombstone must be purged, got err=%v", err)
	}
	entry, err := st.GetEntry(ctx, 1)
	if err != nil {
		t.Fatalf("failed to get queue entry: %v", err)
	}
	if entry.Status != model.StatusCompleted {
		t.Errorf("expected completed delete entry, got %s", entry.Status)
	}
}

func TestDeleteOfRemotelyMissingArticleIsAcked(t *testing.T) {
	fake := newFakeRemote()
	s, st := newTestSyncer(t, fake, netstatus.Wifi, Options{})
	ctx := context.Background()

	seedSynced(t, st, fake, "art-1", "Original")
	if err := st.SoftDeleteArticle(ctx, "art-1", testBase.Add(time.Hour)); err != nil {
		t.Fatalf("failed to soft delete: %v", err)
	}
	// The remote already forgot the article.
	delete(fake.articles, "art-1")

	if err := s.SyncNow(ctx); err != nil {
		t.Fatalf("SyncNow failed: %v", err)
	}

	if _, err := st.GetArticleAny(ctx, "art-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("a not-found answer acknowledges the deletion, got err=%v", err)
	}
	entry, err := st.GetEntry(ctx, 1)
	if err != nil {
		t.Fatalf("failed to get queue entry: %v", err)
	}
	if entry.Status != model.StatusCompleted {
		t.Errorf("expected completed delete entry, got %s", entry.Status)
	}
}

func TestDeleteRejectionKeepsTombstone(t *testing.T) {
	fake := newFakeRemote()
	s, st := newTestSyncer(t, fake, netstatus.Wifi, Options{})
	ctx := context.Background()

	seedSynced(t, st, fake, "art-1", "Original")
	if err := st.SoftDeleteArticle(ctx, "art-1", testBase.Add(time.Hour)); err != nil {
		t.Fatalf("failed to soft delete: %v", err)
	}
	// The server refuses the delete without forgetting the article.
	fake.deleteErr = errs.ValidationErr("article is locked", nil)

	if err := s.SyncNow(ctx); err == nil {
		t.Fatal("a rejected deletion must fail the cycle")
	}

	got, err := st.GetArticleAny(ctx, "art-1")
	if err != nil {
		t.Fatalf("rejected deletion must keep the tombstone, got err=%v", err)
	}
	if got.DeletedAt == nil {
		t.Error("tombstone must still carry deleted_at")
	}
	if len(fake.deletedIDs) != 0 {
		t.Errorf("nothing must be recorded as deleted upstream, got %v", fake.deletedIDs)
	}
	entry, err := st.GetEntry(ctx, 1)
	if err != nil {
		t.Fatalf("failed to get queue entry: %v", err)
	}
	if entry.Status != model.StatusFailed {
		t.Errorf("a rejection must park the entry as failed, got %s", entry.Status)
	}
}

func TestCancelAbortsCycleWithoutAdvancingCursor(t *testing.T) {
	fake := newFakeRemote()
	s, st := newTestSyncer(t, fake, netstatus.Wifi, Options{})
	ctx := context.Background()

	a := &model.Article{
		ID: "art-1", Title: "Page one", URL: "https://example.com/art-1",
		CreatedAt: testBase, UpdatedAt: testBase,
	}
	fake.pages = []remote.ArticlePage{
		{Articles: []*model.Article{a}, NextCursor: "cur-1", HasMore: true},
	}
	fake.onList = func() { s.Cancel() }

	var mu sync.Mutex
	var states []State
	s.Subscribe(func(ev Event) {
		if ev.Type != EventState {
			return
		}
		mu.Lock()
		states = append(states, ev.State)
		mu.Unlock()
	})

	err := s.SyncNow(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	cursor, cerr := st.Cursor(ctx)
	if cerr != nil {
		t.Fatalf("failed to read cursor: %v", cerr)
	}
	if cursor != "" {
		t.Errorf("a cancelled cycle must not advance the cursor, got %q", cursor)
	}
	if got := s.Status().State; got != StateIdle {
		t.Errorf("cancelled orchestrator must settle back to IDLE, got %s", got)
	}

	// Cancellation is a user action, not a failure.
	if le := s.Status().LastError; le != "" {
		t.Errorf("cancellation must not be reported as the last error, got %q", le)
	}
	mu.Lock()
	defer mu.Unlock()
	for _, st := range states {
		if st == StateError {
			t.Errorf("cancellation must not pass through ERROR, saw %v", states)
		}
	}
}

// waitForState polls until the orchestrator reports the wanted state.
func waitForState(t *testing.T, s *Syncer, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.Status().State == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %s, still %s", want, s.Status().State)
}

// threePulledPages seeds the fake with three single-article pages.
func threePulledPages(fake *fakeRemote) {
	for i := 1; i <= 3; i++ {
		a := &model.Article{
			ID: fmt.Sprintf("art-%d", i), Title: fmt.Sprintf("Page %d", i),
			URL:       fmt.Sprintf("https://example.com/art-%d", i),
			CreatedAt: testBase, UpdatedAt: testBase,
		}
		fake.pages = append(fake.pages, remote.ArticlePage{
			Articles:   []*model.Article{a},
			NextCursor: fmt.Sprintf("cur-%d", i),
			HasMore:    i < 3,
		})
	}
}

func TestPauseSuspendsInFlightCycle(t *testing.T) {
	fake := newFakeRemote()
	s, st := newTestSyncer(t, fake, netstatus.Wifi, Options{BatchSize: 1})
	ctx := context.Background()

	threePulledPages(fake)
	paused := false
	fake.onList = func() {
		if !paused {
			paused = true
			s.Pause()
		}
	}

	done := make(chan error, 1)
	go func() { done <- s.SyncNow(ctx) }()

	waitForState(t, s, StatePaused)
	time.Sleep(50 * time.Millisecond)
	if got := fake.listCallCount(); got != 1 {
		t.Fatalf("a suspended cycle must stop fetching pages, fetched %d", got)
	}
	if err := s.SyncNow(ctx); !errors.Is(err, ErrPaused) {
		t.Errorf("expected ErrPaused while suspended, got %v", err)
	}

	s.Resume()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("resumed cycle must finish cleanly: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("resumed cycle never finished")
	}

	if got := fake.listCallCount(); got != 3 {
		t.Errorf("resumed cycle must pick up where it stopped, fetched %d pages", got)
	}
	cursor, err := st.Cursor(ctx)
	if err != nil {
		t.Fatalf("failed to read cursor: %v", err)
	}
	if cursor != "cur-3" {
		t.Errorf("expected cursor cur-3 after the full pull, got %q", cursor)
	}
}

func TestCancelWhileSuspendedSettlesIdle(t *testing.T) {
	fake := newFakeRemote()
	s, st := newTestSyncer(t, fake, netstatus.Wifi, Options{BatchSize: 1})
	ctx := context.Background()

	threePulledPages(fake)
	paused := false
	fake.onList = func() {
		if !paused {
			paused = true
			s.Pause()
		}
	}

	done := make(chan error, 1)
	go func() { done <- s.SyncNow(ctx) }()

	waitForState(t, s, StatePaused)
	s.Cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled cycle never unwound")
	}

	status := s.Status()
	if status.State != StateIdle {
		t.Errorf("cancelling a suspended cycle must settle at IDLE, got %s", status.State)
	}
	if status.LastError != "" {
		t.Errorf("cancellation must not be reported as the last error, got %q", status.LastError)
	}
	cursor, err := st.Cursor(ctx)
	if err != nil {
		t.Fatalf("failed to read cursor: %v", err)
	}
	if cursor != "" {
		t.Errorf("discarded progress must not advance the cursor, got %q", cursor)
	}
}

func TestPullFailsWhenPaginationStalls(t *testing.T) {
	fake := newFakeRemote()
	s, st := newTestSyncer(t, fake, netstatus.Wifi, Options{})
	ctx := context.Background()

	a := &model.Article{
		ID: "art-1", Title: "Stuck", URL: "https://example.com/art-1",
		CreatedAt: testBase, UpdatedAt: testBase,
	}
	// More pages promised, but the cursor never moves.
	fake.pages = []remote.ArticlePage{
		{Articles: []*model.Article{a}, NextCursor: "", HasMore: true},
	}

	if err := s.SyncNow(ctx); err == nil {
		t.Fatal("a non-advancing cursor with more pages pending must fail the cycle")
	}
	if got := fake.listCallCount(); got != 1 {
		t.Errorf("the stalled page must not be re-fetched, got %d fetches", got)
	}
	cursor, err := st.Cursor(ctx)
	if err != nil {
		t.Fatalf("failed to read cursor: %v", err)
	}
	if cursor != "" {
		t.Errorf("a failed cycle must not advance the cursor, got %q", cursor)
	}
}

func TestStateTransitionsAreAnnounced(t *testing.T) {
	fake := newFakeRemote()
	s, _ := newTestSyncer(t, fake, netstatus.Wifi, Options{})

	var mu sync.Mutex
	var states []State
	s.Subscribe(func(ev Event) {
		if ev.Type != EventState {
			return
		}
		mu.Lock()
		states = append(states, ev.State)
		mu.Unlock()
	})

	if err := s.SyncNow(context.Background()); err != nil {
		t.Fatalf("SyncNow failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []State{StateSyncing, StateSuccess, StateIdle}
	if len(states) != len(want) {
		t.Fatalf("expected states %v, got %v", want, states)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("expected states %v, got %v", want, states)
		}
	}
}

func TestForegroundTriggerRespectsThreshold(t *testing.T) {
	fake := newFakeRemote()
	s, _ := newTestSyncer(t, fake, netstatus.Wifi, Options{ForegroundThreshold: time.Hour})

	// Fresh last sync: no trigger queued.
	now := time.Now()
	s.mu.Lock()
	s.lastSync = &now
	s.mu.Unlock()
	s.NotifyForeground()
	select {
	case <-s.foreground:
		t.Error("a fresh sync must not queue a foreground trigger")
	default:
	}

	// Stale last sync: trigger queued, and queuing twice coalesces.
	stale := now.Add(-2 * time.Hour)
	s.mu.Lock()
	s.lastSync = &stale
	s.mu.Unlock()
	s.NotifyForeground()
	s.NotifyForeground()
	select {
	case <-s.foreground:
	default:
		t.Error("a stale sync must queue a foreground trigger")
	}
	select {
	case <-s.foreground:
		t.Error("foreground triggers must coalesce")
	default:
	}
}
