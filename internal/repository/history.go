package repository

import (
	"context"
	"sync"

	"github.com/ingl3585/xgb-model/internal/domain/models"
)

// DecisionHistory keeps the most recent decisions per session in memory
// for the admin API. It is bounded both per session and in the number of
// sessions tracked; the least recently active session is evicted first.
type DecisionHistory struct {
	mu          sync.Mutex
	perSession  map[string][]*models.DecisionEvent
	lastTouch   map[string]uint64
	seq         uint64
	perLimit    int
	maxSessions int
}

// NewDecisionHistory builds a history keeping up to perLimit events for
// up to maxSessions sessions.
func NewDecisionHistory(perLimit, maxSessions int) *DecisionHistory {
	if perLimit <= 0 {
		perLimit = 100
	}
	if maxSessions <= 0 {
		maxSessions = 128
	}
	return &DecisionHistory{
		perSession:  make(map[string][]*models.DecisionEvent),
		lastTouch:   make(map[string]uint64),
		perLimit:    perLimit,
		maxSessions: maxSessions,
	}
}

// Record appends the event to its session's ring.
func (h *DecisionHistory) Record(_ context.Context, event *models.DecisionEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.perSession[event.SessionID]; !ok && len(h.perSession) >= h.maxSessions {
		h.evictOldest()
	}

	events := append(h.perSession[event.SessionID], event)
	if len(events) > h.perLimit {
		events = events[len(events)-h.perLimit:]
	}
	h.perSession[event.SessionID] = events
	h.seq++
	h.lastTouch[event.SessionID] = h.seq
	return nil
}

// Close is a no-op; the history has nothing to release.
func (h *DecisionHistory) Close() error { return nil }

// Recent returns a copy of the session's events, oldest first. A nil
// slice means the session is unknown.
func (h *DecisionHistory) Recent(sessionID string) []*models.DecisionEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	events, ok := h.perSession[sessionID]
	if !ok {
		return nil
	}
	out := make([]*models.DecisionEvent, len(events))
	copy(out, events)
	return out
}

func (h *DecisionHistory) evictOldest() {
	var victim string
	var oldest uint64
	for id, touched := range h.lastTouch {
		if victim == "" || touched < oldest {
			victim = id
			oldest = touched
		}
	}
	if victim != "" {
		delete(h.perSession, victim)
		delete(h.lastTouch, victim)
	}
}
