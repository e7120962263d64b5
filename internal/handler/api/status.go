// Package api exposes the admin endpoints: health, session listing, and
// the live decision websocket.
package api

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ingl3585/xgb-model/internal/domain/models"
	"github.com/ingl3585/xgb-model/internal/server"
	xhttp "github.com/ingl3585/xgb-model/pkg/http"
	"github.com/ingl3585/xgb-model/pkg/logger"
)

// SessionLister reports live sessions; satisfied by the TCP manager.
type SessionLister interface {
	Sessions() []server.SessionInfo
}

// DecisionReader serves a session's recent decisions; satisfied by the
// in-memory decision history.
type DecisionReader interface {
	Recent(sessionID string) []*models.DecisionEvent
}

// StatusHandler serves health and session inspection routes.
type StatusHandler struct {
	log       *logger.Logger
	sessions  SessionLister
	decisions DecisionReader
	hub       *DecisionHub
	started   time.Time
}

// NewStatusHandler builds the handler; hub and decisions may be nil when
// the corresponding surface is disabled.
func NewStatusHandler(log *logger.Logger, sessions SessionLister, decisions DecisionReader, hub *DecisionHub) *StatusHandler {
	return &StatusHandler{
		log:       log,
		sessions:  sessions,
		decisions: decisions,
		hub:       hub,
		started:   time.Now(),
	}
}

// RegisterRoutes mounts the admin routes.
func (h *StatusHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.health)
	e.GET("/api/sessions", h.listSessions)
	if h.decisions != nil {
		e.GET("/api/sessions/:id/decisions", h.listDecisions)
	}
	if h.hub != nil {
		e.GET("/ws/decisions", h.hub.Serve)
	}
}

func (h *StatusHandler) health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(h.started).String(),
	})
}

func (h *StatusHandler) listSessions(c echo.Context) error {
	infos := h.sessions.Sessions()
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"count":    len(infos),
		"sessions": infos,
	})
}

func (h *StatusHandler) listDecisions(c echo.Context) error {
	id := c.Param("id")
	events := h.decisions.Recent(id)
	if events == nil {
		return xhttp.NotFoundResponse(c, "unknown session")
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"session":   id,
		"count":     len(events),
		"decisions": events,
	})
}
