package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/consilio/internal/models"
	"github.com/ternarybob/consilio/internal/services/export"
	"github.com/ternarybob/consilio/internal/services/session"
)

// SessionHandler serves conversation history and transcript exports
type SessionHandler struct {
	sessions *session.Manager
	exporter *export.Exporter
	logger   arbor.ILogger
}

// NewSessionHandler creates a new session handler with dependencies
func NewSessionHandler(sessions *session.Manager, exporter *export.Exporter, logger arbor.ILogger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		exporter: exporter,
		logger:   logger,
	}
}

// SessionRoutes dispatches /api/sessions/{id}/history and
// /api/sessions/{id}/export requests.
func (h *SessionHandler) SessionRoutes(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	sessionID, action := parts[0], parts[1]

	switch action {
	case "history":
		h.historyHandler(w, sessionID)
	case "export":
		h.exportHandler(w, r, sessionID)
	default:
		WriteError(w, http.StatusNotFound, "Not found")
	}
}

func (h *SessionHandler) historyHandler(w http.ResponseWriter, sessionID string) {
	state, err := h.sessions.Get(sessionID)
	if err != nil {
		WriteError(w, http.StatusNotFound, "Session not found")
		return
	}

	WriteJSON(w, http.StatusOK, state)
}

func (h *SessionHandler) exportHandler(w http.ResponseWriter, r *http.Request, sessionID string) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "md"
	}

	switch format {
	case "md", "markdown":
		markdown, err := h.exporter.Markdown(sessionID)
		if err != nil {
			WriteError(w, http.StatusNotFound, "Session not found")
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sessionID+".md"))
		w.Write([]byte(markdown))

	case "pdf":
		data, err := h.exporter.PDF(sessionID)
		if err != nil {
			if errors.Is(err, models.ErrSessionNotFound) {
				WriteError(w, http.StatusNotFound, "Session not found")
				return
			}
			h.logger.Error().Err(err).Str("session_id", sessionID).Msg("Transcript export failed")
			WriteError(w, http.StatusInternalServerError, "Failed to export transcript")
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sessionID+".pdf"))
		w.Write(data)

	default:
		WriteError(w, http.StatusBadRequest, "Unsupported format. Use md or pdf.")
	}
}
