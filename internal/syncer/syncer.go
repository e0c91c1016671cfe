// Package syncer orchestrates synchronization between the local store and
// the remote article service.
//
// A cycle runs in two phases: push (drain the change queue in creation
// order) then pull (page through remote changes since the cursor). The
// cursor and last-sync time advance only when the whole cycle completes
// without a failure, so an interrupted cycle replays from the same point.
// Only one cycle runs at a time; a trigger while one is in flight is a
// no-op. Cancellation and pause are cooperative and observed at batch and
// page boundaries, never mid-entity: a paused cycle suspends at the next
// boundary and waits for Resume or Cancel.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/seanmcgrath/stash/internal/conflict"
	"github.com/seanmcgrath/stash/internal/errs"
	"github.com/seanmcgrath/stash/internal/model"
	"github.com/seanmcgrath/stash/internal/netstatus"
	"github.com/seanmcgrath/stash/internal/remote"
	"github.com/seanmcgrath/stash/internal/store"
)

// ErrPaused is returned by SyncNow while the orchestrator is paused.
var ErrPaused = errors.New("sync is paused")

// ErrManualStrategy is returned by ResolveManually when handed the manual
// strategy: the caller must pick a concrete winner.
var ErrManualStrategy = errors.New("manual resolution requires a concrete strategy")

// Options configures a Syncer. Zero values fall back to defaults; see
// DefaultOptions.
type Options struct {
	// Strategy is the automatic conflict resolution policy.
	Strategy model.Strategy

	// BatchSize bounds queue drains and pull pages. Cancellation and pause
	// are observed between batches.
	BatchSize int

	// MaxRetries is how many upload attempts a queue entry gets before it
	// flips to failed and needs a manual re-trigger.
	MaxRetries int

	// WifiOnly restricts cycles to wifi connectivity.
	WifiOnly bool

	// CellularAllowed permits cycles on cellular when WifiOnly is off.
	CellularAllowed bool

	// Interval is the automatic cycle period. Zero or negative means
	// manual-only: the scheduler never fires on its own.
	Interval time.Duration

	// ForegroundThreshold is the staleness beyond which a foreground
	// transition triggers an immediate cycle.
	ForegroundThreshold time.Duration

	// Retention is how long completed queue entries are kept before the
	// end-of-cycle prune removes them.
	Retention time.Duration
}

// DefaultOptions returns the options used when a field is left zero.
func DefaultOptions() Options {
	return Options{
		Strategy:            model.LastWriteWins,
		BatchSize:           50,
		MaxRetries:          5,
		CellularAllowed:     true,
		Interval:            15 * time.Minute,
		ForegroundThreshold: 5 * time.Minute,
		Retention:           7 * 24 * time.Hour,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Strategy == "" {
		o.Strategy = def.Strategy
	}
	if o.BatchSize <= 0 {
		o.BatchSize = def.BatchSize
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = def.MaxRetries
	}
	if o.ForegroundThreshold <= 0 {
		o.ForegroundThreshold = def.ForegroundThreshold
	}
	if o.Retention <= 0 {
		o.Retention = def.Retention
	}
	return o
}

// Syncer is the sync orchestrator.
type Syncer struct {
	store  *store.Store
	remote remote.Service
	engine *conflict.Engine
	net    netstatus.Provider
	logger *log.Logger

	mu       sync.Mutex
	opts     Options
	state    State
	paused   bool
	resume   chan struct{}
	syncing  bool
	cancel   context.CancelFunc
	lastSync *time.Time
	lastErr  string
	lastStat CycleStats
	manual   map[string]*PendingConflict
	subs     []func(Event)

	foreground chan struct{}
	now        func() time.Time
}

// New creates a Syncer. If logger is nil, a default logger writing to stderr
// is used.
func New(st *store.Store, svc remote.Service, net netstatus.Provider, opts Options, logger *log.Logger) *Syncer {
	if logger == nil {
		logger = log.New(os.Stderr, "[syncer] ", log.LstdFlags)
	}
	return &Syncer{
		store:      st,
		remote:     svc,
		engine:     conflict.New(nil),
		net:        net,
		logger:     logger,
		opts:       opts.withDefaults(),
		state:      StateIdle,
		manual:     make(map[string]*PendingConflict),
		foreground: make(chan struct{}, 1),
		now:        time.Now,
	}
}

// Subscribe registers a callback for lifecycle and entity events. Callbacks
// run synchronously on the sync goroutine and must not block.
func (s *Syncer) Subscribe(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// UpdateOptions swaps the configuration. The change takes effect at the next
// cycle; a cycle in flight finishes under the options it started with.
func (s *Syncer) UpdateOptions(opts Options) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts = opts.withDefaults()
}

// Status returns a point-in-time snapshot for the presentation layer.
func (s *Syncer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		State:     s.state,
		LastError: s.lastErr,
		LastCycle: s.lastStat,
	}
	if s.lastSync != nil {
		t := *s.lastSync
		st.LastSync = &t
	}
	for _, pc := range s.manual {
		st.ManualQueue = append(st.ManualQueue, pc)
	}
	return st
}

// Pause stops new cycles from starting and suspends a cycle in flight at
// its next batch or page boundary until Resume or Cancel. Pausing an
// already-paused orchestrator is a no-op.
func (s *Syncer) Pause() {
	s.mu.Lock()
	var evs []Event
	if !s.paused {
		s.paused = true
		s.resume = make(chan struct{})
		evs = s.setStateLocked(StatePaused)
	}
	s.mu.Unlock()
	s.emitAll(evs)
}

// Resume lifts a pause; a suspended cycle picks up where it stopped.
// Resuming a running orchestrator is a no-op.
func (s *Syncer) Resume() {
	s.mu.Lock()
	var evs []Event
	if s.paused {
		s.paused = false
		close(s.resume)
		s.resume = nil
		if s.syncing {
			evs = s.setStateLocked(StateSyncing)
		} else {
			evs = s.setStateLocked(StateIdle)
		}
	}
	s.mu.Unlock()
	s.emitAll(evs)
}

// Cancel aborts the cycle in flight, if any. The cycle stops at the next
// batch or page boundary and its progress is discarded; the cursor does not
// advance and queued mutations stay queued. Cancelling a suspended cycle
// also lifts the pause, so the machine settles at IDLE. Cancelling with no
// cycle in flight is a no-op.
func (s *Syncer) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return
	}
	s.cancel()
	if s.paused {
		s.paused = false
		close(s.resume)
		s.resume = nil
	}
}

// checkpoint is called between batches and pages. It blocks while the
// orchestrator is paused and returns the context error once the cycle is
// cancelled.
func (s *Syncer) checkpoint(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.mu.Lock()
		if !s.paused {
			s.mu.Unlock()
			return nil
		}
		resume := s.resume
		s.mu.Unlock()

		s.logger.Printf("Cycle suspended, waiting for resume")
		select {
		case <-resume:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// NotifyForeground tells the orchestrator the app returned to the
// foreground. A cycle is triggered only if the last successful sync is older
// than the configured threshold.
func (s *Syncer) NotifyForeground() {
	s.mu.Lock()
	last := s.lastSync
	threshold := s.opts.ForegroundThreshold
	s.mu.Unlock()

	if last != nil && s.now().Sub(*last) < threshold {
		return
	}
	select {
	case s.foreground <- struct{}{}:
	default:
	}
}

// SyncNow runs one cycle synchronously. It is the single entry point for
// manual, scheduled, and foreground-triggered syncs.
//
// A call while a cycle is already in flight returns nil without starting a
// second one. A call while paused returns ErrPaused. A skip due to network
// gating is a successful no-op, not an error.
func (s *Syncer) SyncNow(ctx context.Context) error {
	s.mu.Lock()
	if s.paused {
		s.mu.Unlock()
		return ErrPaused
	}
	if s.syncing {
		s.mu.Unlock()
		s.logger.Printf("Sync already in progress, ignoring trigger")
		return nil
	}

	if !s.networkAllowedLocked() {
		s.mu.Unlock()
		s.logger.Printf("Skipping sync: connectivity %s not allowed by policy", s.net.Current())
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	s.syncing = true
	s.cancel = cancel
	opts := s.opts
	evs := s.setStateLocked(StateSyncing)
	s.mu.Unlock()
	s.emitAll(evs)

	stats, err := s.runCycle(ctx, opts)

	s.mu.Lock()
	s.syncing = false
	s.cancel = nil
	s.lastStat = stats
	cancel()

	evs = nil
	switch {
	case errors.Is(err, context.Canceled):
		// A cancelled cycle is discarded, not failed: the machine goes
		// straight back to rest without reporting an error state.
		s.lastErr = ""
	case err != nil:
		s.lastErr = err.Error()
		evs = s.setStateLocked(StateError)
	default:
		s.lastErr = ""
		now := s.now()
		s.lastSync = &now
		evs = s.setStateLocked(StateSuccess)
	}

	// Settle back to the resting state.
	if s.paused {
		evs = append(evs, s.setStateLocked(StatePaused)...)
	} else {
		evs = append(evs, s.setStateLocked(StateIdle)...)
	}
	s.mu.Unlock()
	s.emitAll(evs)

	s.emit(Event{Type: EventCycle, Message: fmt.Sprintf(
		"pushed=%d pulled=%d conflicts=%d failed=%d purged=%d",
		stats.Pushed, stats.Pulled, stats.Conflicts, stats.Failed, stats.Purged)})

	return err
}

// networkAllowedLocked applies the gating policy to current connectivity.
func (s *Syncer) networkAllowedLocked() bool {
	switch s.net.Current() {
	case netstatus.Wifi:
		return true
	case netstatus.Cellular:
		return !s.opts.WifiOnly && s.opts.CellularAllowed
	default:
		return false
	}
}

// runCycle executes one push-then-pull cycle.
func (s *Syncer) runCycle(ctx context.Context, opts Options) (CycleStats, error) {
	var stats CycleStats
	start := s.now()
	s.logger.Printf("Starting sync cycle (strategy=%s batch=%d)", opts.Strategy, opts.BatchSize)

	// Entries stranded in syncing by a crash go back to pending first.
	if err := s.store.ResetSyncing(ctx); err != nil {
		return stats, err
	}

	if err := s.push(ctx, opts, &stats); err != nil {
		return stats, err
	}

	cursor, err := s.pull(ctx, opts, &stats)
	if err != nil {
		return stats, err
	}

	if stats.Failed > 0 {
		// Partial cycles do not advance the cursor; the next cycle replays
		// from the same point.
		return stats, errs.SyncErr(fmt.Sprintf("%d entries failed to sync", stats.Failed), nil)
	}

	if cursor != "" {
		if err := s.store.SetCursor(ctx, cursor); err != nil {
			return stats, err
		}
	}
	if err := s.store.SetLastSyncTime(ctx, s.now()); err != nil {
		return stats, err
	}

	purged, err := s.store.PurgeTombstones(ctx)
	if err != nil {
		return stats, err
	}
	stats.Purged = int(purged)

	if _, err := s.store.PruneCompleted(ctx, s.now().Add(-opts.Retention)); err != nil {
		return stats, err
	}

	s.logger.Printf("Sync cycle complete in %s: pushed=%d pulled=%d conflicts=%d purged=%d",
		s.now().Sub(start).Round(time.Millisecond), stats.Pushed, stats.Pulled, stats.Conflicts, stats.Purged)
	return stats, nil
}

// push drains the change queue as of the cycle start, in creation order,
// with cancellation and pause observed at batch boundaries. Fatal errors
// (authentication, storage) abort the cycle; everything else advances the
// entry's retry counter and the drain continues. A failed entry is not
// re-attempted within the same cycle even if it returned to pending.
func (s *Syncer) push(ctx context.Context, opts Options, stats *CycleStats) error {
	entries, err := s.store.PendingEntries(ctx, 0)
	if err != nil {
		return err
	}

	for i, entry := range entries {
		if i%opts.BatchSize == 0 {
			if err := s.checkpoint(ctx); err != nil {
				return err
			}
		}

		if err := s.store.MarkSyncing(ctx, entry.ID); err != nil {
			return err
		}

		err := s.pushEntry(ctx, opts, entry, stats)
		if err == nil {
			stats.Pushed++
			continue
		}
		if errs.IsFatal(err) {
			return err
		}

		// Non-transient failures do not earn retries.
		budget := opts.MaxRetries
		if !errs.IsRetryable(err) {
			budget = 0
		}
		status, ferr := s.store.RecordFailure(ctx, entry.ID, err.Error(), budget)
		if ferr != nil {
			return ferr
		}
		stats.Failed++
		s.logger.Printf("Entry %d (%s %s %s) failed (now %s): %v",
			entry.ID, entry.Operation, entry.EntityType, entry.EntityID, status, err)
	}
	return nil
}

// pushEntry uploads one queue entry.
func (s *Syncer) pushEntry(ctx context.Context, opts Options, entry *model.ChangeEntry, stats *CycleStats) error {
	switch entry.EntityType {
	case model.EntityArticle:
		return s.pushArticle(ctx, opts, entry, stats)
	case model.EntityLabel:
		return s.pushLabel(ctx, entry)
	case model.EntityArticleLabel:
		return s.pushLabelLink(ctx, entry)
	default:
		return errs.RuntimeErr(fmt.Sprintf("unhandled entity type %q", entry.EntityType), nil)
	}
}

func (s *Syncer) pushArticle(ctx context.Context, opts Options, entry *model.ChangeEntry, stats *CycleStats) error {
	if entry.Operation == model.OpDelete {
		err := s.remote.DeleteArticle(ctx, entry.EntityID)
		if err != nil && !errors.Is(err, remote.ErrNotFound) {
			return err
		}
		// A 404 means the remote already forgot the article; the tombstone
		// is acknowledged either way. Any other rejection keeps it queued.
		return s.store.MarkDeletionAcked(ctx, entry.EntityID, entry.ID, nil)
	}

	local, err := s.store.GetArticleAny(ctx, entry.EntityID)
	if errors.Is(err, store.ErrNotFound) {
		// The entity was purged after this entry was queued. Nothing left
		// to upload.
		return s.store.CompleteEntry(ctx, entry.ID, nil, "")
	}
	if err != nil {
		return err
	}

	if local.IsLocalOnly() {
		created, err := s.remote.CreateArticle(ctx, local)
		if err != nil {
			return err
		}
		promoted := created.Clone()
		promoted.Labels = local.Labels
		now := s.now()
		promoted.SyncedAt = &now
		promoted.IsModified = false
		s.emit(Event{Type: EventArticle, EntityID: promoted.ID, Message: "created"})
		return s.store.PromoteLocalArticle(ctx, local.ID, promoted, entry.ID, &created.UpdatedAt)
	}

	remoteCopy, err := s.remote.GetArticle(ctx, local.ID)
	if errors.Is(err, remote.ErrNotFound) {
		// Known locally under a server ID but gone remotely: recreate.
		remoteCopy = nil
	} else if err != nil {
		return err
	}

	if remoteCopy == nil {
		created, err := s.remote.CreateArticle(ctx, local)
		if err != nil {
			return err
		}
		return s.applyAck(ctx, local, entry.ID, &created.UpdatedAt)
	}

	// The remote copy diverged if it moved past the point we last synced.
	diverged := local.SyncedAt == nil || remoteCopy.UpdatedAt.After(*local.SyncedAt)
	if diverged && len(conflict.Detect(local, remoteCopy)) > 0 {
		stats.Conflicts++
		return s.resolveAndStore(ctx, opts.Strategy, local, remoteCopy, entry.ID)
	}

	updated, err := s.remote.UpdateArticle(ctx, local)
	if err != nil {
		return err
	}
	s.emit(Event{Type: EventArticle, EntityID: local.ID, Message: "updated"})
	return s.applyAck(ctx, local, entry.ID, &updated.UpdatedAt)
}

// applyAck persists the uploaded copy as clean and completes its queue entry.
func (s *Syncer) applyAck(ctx context.Context, a *model.Article, entryID int64, serverTS *time.Time) error {
	acked := a.Clone()
	now := s.now()
	acked.SyncedAt = &now
	acked.IsModified = false
	return s.store.ApplyResolved(ctx, acked, entryID, "", serverTS)
}

// resolveAndStore runs the conflict engine and persists the outcome. If the
// resolved copy still carries local changes they are uploaded in the same
// step so the remote and the store settle together.
func (s *Syncer) resolveAndStore(ctx context.Context, strategy model.Strategy, local, remoteCopy *model.Article, entryID int64) error {
	resolved, err := s.engine.Resolve(local, remoteCopy, strategy)
	if errors.Is(err, conflict.ErrManualResolution) {
		s.queueManual(local, remoteCopy, entryID)
		return err
	}
	if err != nil {
		return err
	}

	serverTS := &remoteCopy.UpdatedAt
	if resolved.IsModified {
		updated, err := s.remote.UpdateArticle(ctx, resolved)
		if err != nil {
			return err
		}
		serverTS = &updated.UpdatedAt
		resolved.IsModified = false
	}

	s.emit(Event{Type: EventConflict, EntityID: local.ID, Message: "resolved via " + string(strategy)})
	return s.store.ApplyResolved(ctx, resolved, entryID, strategy, serverTS)
}

// queueManual parks a divergence for out-of-band adjudication.
func (s *Syncer) queueManual(local, remoteCopy *model.Article, entryID int64) {
	records := conflict.Detect(local, remoteCopy)
	s.mu.Lock()
	s.manual[local.ID] = &PendingConflict{
		ArticleID: local.ID,
		EntryID:   entryID,
		Records:   records,
		Detected:  s.now(),
	}
	s.mu.Unlock()
	s.emit(Event{Type: EventConflict, EntityID: local.ID,
		Message: strings.Join(conflict.Describe(records), "; ")})
}

func (s *Syncer) pushLabel(ctx context.Context, entry *model.ChangeEntry) error {
	l, err := s.store.GetLabel(ctx, entry.EntityID)
	if errors.Is(err, store.ErrNotFound) {
		return s.store.CompleteEntry(ctx, entry.ID, nil, "")
	}
	if err != nil {
		return err
	}

	created, err := s.remote.CreateLabel(ctx, l)
	if err != nil {
		return err
	}

	acked := created.Clone()
	now := s.now()
	acked.SyncedAt = &now
	if err := s.store.UpsertRemoteLabel(ctx, acked); err != nil {
		return err
	}
	return s.store.CompleteEntry(ctx, entry.ID, &created.UpdatedAt, "")
}

func (s *Syncer) pushLabelLink(ctx context.Context, entry *model.ChangeEntry) error {
	articleID, labelID, ok := strings.Cut(entry.EntityID, "/")
	if !ok {
		return errs.RuntimeErr(fmt.Sprintf("malformed label link id %q", entry.EntityID), nil)
	}

	// Links on articles that have not been promoted yet ride along with the
	// article create; uploading them separately would reference an ID the
	// remote has never seen.
	if strings.HasPrefix(articleID, model.LocalIDPrefix) {
		return s.store.CompleteEntry(ctx, entry.ID, nil, "")
	}

	var err error
	switch entry.Operation {
	case model.OpDelete:
		err = s.remote.RemoveLabel(ctx, articleID, labelID)
	default:
		err = s.remote.AssignLabel(ctx, articleID, labelID)
	}
	if err != nil {
		return err
	}
	return s.store.CompleteEntry(ctx, entry.ID, nil, "")
}

// pull pages through remote changes since the persisted cursor and
// reconciles each into the store. It returns the cursor position reached;
// the caller persists it only when the whole cycle succeeded.
func (s *Syncer) pull(ctx context.Context, opts Options, stats *CycleStats) (string, error) {
	// Labels first so article label links always have a parent row.
	labels, err := s.remote.ListLabels(ctx)
	if err != nil {
		return "", err
	}
	now := s.now()
	for _, l := range labels {
		pulled := l.Clone()
		pulled.SyncedAt = &now
		if err := s.store.UpsertRemoteLabel(ctx, pulled); err != nil {
			return "", err
		}
	}

	cursor, err := s.store.Cursor(ctx)
	if err != nil {
		return "", err
	}

	for {
		if err := s.checkpoint(ctx); err != nil {
			return "", err
		}

		page, err := s.remote.ListArticlesSince(ctx, cursor, opts.BatchSize)
		if err != nil {
			return "", err
		}

		for _, remoteCopy := range page.Articles {
			if err := s.applyRemoteArticle(ctx, opts, remoteCopy, stats); err != nil {
				if errs.IsFatal(err) {
					return "", err
				}
				stats.Failed++
				s.logger.Printf("Failed to apply remote article %s: %v", remoteCopy.ID, err)
				continue
			}
			stats.Pulled++
		}

		if !page.HasMore {
			if page.NextCursor != "" {
				cursor = page.NextCursor
			}
			return cursor, nil
		}
		// A server promising more pages must move the cursor, or the loop
		// would fetch the same page forever.
		if page.NextCursor == "" || page.NextCursor == cursor {
			return "", errs.SyncErr(fmt.Sprintf("pagination stalled at cursor %q", cursor), nil)
		}
		cursor = page.NextCursor
	}
}

// applyRemoteArticle reconciles one pulled article with the local copy.
func (s *Syncer) applyRemoteArticle(ctx context.Context, opts Options, remoteCopy *model.Article, stats *CycleStats) error {
	local, err := s.store.GetArticleAny(ctx, remoteCopy.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	// Untouched locally: the remote copy writes through, deletions included.
	if local == nil || !local.IsModified {
		pulled := remoteCopy.Clone()
		now := s.now()
		pulled.SyncedAt = &now
		pulled.IsModified = false
		s.emit(Event{Type: EventArticle, EntityID: pulled.ID, Message: "pulled"})
		return s.store.UpsertRemote(ctx, pulled)
	}

	// Local edits meet a remote change: a genuine conflict.
	stats.Conflicts++
	resolved, err := s.engine.Resolve(local, remoteCopy, opts.Strategy)
	if errors.Is(err, conflict.ErrManualResolution) {
		// Parked for adjudication; the local copy stays as the user left it.
		// Not counted as a cycle failure so the rest of the pull proceeds.
		s.queueManual(local, remoteCopy, 0)
		return nil
	}
	if err != nil {
		return err
	}

	s.emit(Event{Type: EventConflict, EntityID: local.ID, Message: "resolved via " + string(opts.Strategy)})
	return s.store.ApplyResolved(ctx, resolved, 0, opts.Strategy, &remoteCopy.UpdatedAt)
}

// ResolveManually adjudicates a parked conflict with an explicit strategy.
// If the chosen winner still differs from the remote copy it is uploaded
// before the store settles.
func (s *Syncer) ResolveManually(ctx context.Context, articleID string, strategy model.Strategy) error {
	if strategy == model.Manual {
		return ErrManualStrategy
	}

	s.mu.Lock()
	pc, ok := s.manual[articleID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("no pending conflict for article %s", articleID)
	}

	local, err := s.store.GetArticleAny(ctx, articleID)
	if err != nil {
		return err
	}
	remoteCopy, err := s.remote.GetArticle(ctx, articleID)
	if err != nil {
		return err
	}

	if err := s.resolveAndStore(ctx, strategy, local, remoteCopy, pc.EntryID); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.manual, articleID)
	s.mu.Unlock()
	return nil
}

// setStateLocked transitions the machine and returns the event to announce
// once the lock is released. Callers hold s.mu and must emit the returned
// events after unlocking, in order.
func (s *Syncer) setStateLocked(next State) []Event {
	if s.state == next {
		return nil
	}
	s.state = next
	return []Event{{Type: EventState, State: next, Time: s.now()}}
}

// emit notifies subscribers of an event. Never called while holding s.mu.
func (s *Syncer) emit(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = s.now()
	}
	s.mu.Lock()
	subs := s.subs
	s.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}

func (s *Syncer) emitAll(evs []Event) {
	for _, ev := range evs {
		s.emit(ev)
	}
}
