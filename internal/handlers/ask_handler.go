package handlers

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/consilio/internal/models"
	"github.com/ternarybob/consilio/internal/services/advisor"
)

// AskHandler handles question-answering HTTP requests
type AskHandler struct {
	advisor *advisor.Advisor
	logger  arbor.ILogger
}

// AskRequest is the POST /api/ask body.
type AskRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Question  string `json:"question"`
}

// NewAskHandler creates a new ask handler with dependencies
func NewAskHandler(advisorService *advisor.Advisor, logger arbor.ILogger) *AskHandler {
	return &AskHandler{
		advisor: advisorService,
		logger:  logger,
	}
}

// AskHandler handles POST /api/ask requests
func (h *AskHandler) AskHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	answer, err := h.advisor.Ask(r.Context(), req.SessionID, req.Question)
	if err != nil {
		h.writeAskError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, answer)
}

// writeAskError maps advisory errors onto HTTP statuses. Provider error
// details stay in the logs; responses carry only user-safe messages.
func (h *AskHandler) writeAskError(w http.ResponseWriter, err error) {
	var limited *models.RateLimitedError
	var invalidArgs *models.InvalidToolArgumentsError

	switch {
	case errors.As(err, &limited):
		retryAfter := int(math.Ceil(limited.RetryAfter.Seconds()))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":              "error",
			"error":               "Rate limit exceeded. Please wait before asking again.",
			"window":              limited.Window,
			"retry_after_seconds": retryAfter,
		})

	case errors.Is(err, models.ErrInvalidInput):
		WriteError(w, http.StatusBadRequest, err.Error())

	case errors.As(err, &invalidArgs):
		WriteError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, models.ErrNoIndexAvailable):
		WriteError(w, http.StatusServiceUnavailable, "Document index is not ready. Try again after ingestion completes.")

	default:
		h.logger.Error().Err(err).Msg("Failed to answer question")
		WriteError(w, http.StatusInternalServerError, "Failed to answer question. Please try again.")
	}
}
