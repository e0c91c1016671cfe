package dashboard

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/seanmcgrath/stash/internal/store"
	"github.com/seanmcgrath/stash/internal/syncer"
)

// StateData describes an orchestrator lifecycle transition.
type StateData struct {
	State string `json:"state"`
}

// ArticleData describes an article change observed during a cycle.
type ArticleData struct {
	ArticleID string `json:"article_id"`
	Action    string `json:"action"` // created, updated, pulled
}

// ConflictData describes a detected or resolved divergence.
type ConflictData struct {
	ArticleID string `json:"article_id"`
	Detail    string `json:"detail"`
}

// CycleData summarizes a finished sync cycle.
type CycleData struct {
	Summary string `json:"summary"`
}

// QueueStatsData carries change-queue and article counts.
type QueueStatsData struct {
	Articles  int            `json:"articles"`
	Labels    int            `json:"labels"`
	ByStatus  map[string]int `json:"by_status"`
	Conflicts int            `json:"pending_conflicts"`
}

// Handler bridges orchestrator events to the WebSocket server. Register it
// with Syncer.Subscribe.
type Handler struct {
	server *Server
	store  *store.Store
	logger *log.Logger
}

// NewHandler creates an event handler connected to a dashboard server. The
// store is used to refresh queue statistics after each cycle; it may be nil,
// in which case stats broadcasts are skipped.
func NewHandler(server *Server, st *store.Store, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{server: server, store: st, logger: logger}
}

// HandleEvent formats one orchestrator event as a dashboard message and
// broadcasts it. It is safe to call from the sync goroutine: Broadcast never
// blocks.
func (h *Handler) HandleEvent(ev syncer.Event) {
	switch ev.Type {
	case syncer.EventState:
		h.send(MessageTypeSyncState, ev.Time, StateData{State: string(ev.State)})

	case syncer.EventArticle:
		h.send(MessageTypeArticle, ev.Time, ArticleData{
			ArticleID: ev.EntityID,
			Action:    ev.Message,
		})

	case syncer.EventConflict:
		h.send(MessageTypeConflict, ev.Time, ConflictData{
			ArticleID: ev.EntityID,
			Detail:    ev.Message,
		})

	case syncer.EventCycle:
		h.send(MessageTypeCycle, ev.Time, CycleData{Summary: ev.Message})
		h.BroadcastStats(context.Background(), 0)
	}
}

// BroadcastStats reads current counts from the store and broadcasts them.
func (h *Handler) BroadcastStats(ctx context.Context, pendingConflicts int) {
	if h.store == nil {
		return
	}

	counts, err := h.store.QueueCounts(ctx)
	if err != nil {
		h.logger.Printf("Failed to read queue counts: %v", err)
		return
	}
	articles, err := h.store.ArticleCount(ctx)
	if err != nil {
		h.logger.Printf("Failed to count articles: %v", err)
		return
	}
	labels, err := h.store.LabelCount(ctx)
	if err != nil {
		h.logger.Printf("Failed to count labels: %v", err)
		return
	}

	byStatus := make(map[string]int, len(counts))
	for status, n := range counts {
		byStatus[string(status)] = n
	}
	h.send(MessageTypeQueueStats, time.Now(), QueueStatsData{
		Articles:  articles,
		Labels:    labels,
		ByStatus:  byStatus,
		Conflicts: pendingConflicts,
	})
}

func (h *Handler) send(typ MessageType, ts time.Time, data any) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Printf("Failed to marshal %s data: %v", typ, err)
		return
	}
	if ts.IsZero() {
		ts = time.Now()
	}
	h.server.Broadcast(Message{Type: typ, Timestamp: ts, Data: dataJSON})
}
