package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/consilio/internal/services/usage"
)

// UsageHandler reports token and cost accounting
type UsageHandler struct {
	accountant *usage.Accountant
	logger     arbor.ILogger
}

// NewUsageHandler creates a new usage handler with dependencies
func NewUsageHandler(accountant *usage.Accountant, logger arbor.ILogger) *UsageHandler {
	return &UsageHandler{
		accountant: accountant,
		logger:     logger,
	}
}

// GetUsageHandler handles GET /api/usage requests. An optional
// session_id query parameter scopes the figures to one session.
func (h *UsageHandler) GetUsageHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	totals := h.accountant.Totals(sessionID)
	records := h.accountant.Records(sessionID)

	response := map[string]interface{}{
		"totals":  totals,
		"records": records,
	}
	if sessionID != "" {
		response["session_id"] = sessionID
	}

	WriteJSON(w, http.StatusOK, response)
}
