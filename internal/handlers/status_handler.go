package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/consilio/internal/common"
	"github.com/ternarybob/consilio/internal/services/advisor"
	"github.com/ternarybob/consilio/internal/services/index"
	"github.com/ternarybob/consilio/internal/services/usage"
)

// StatusHandler reports application and index status
type StatusHandler struct {
	config     *common.Config
	index      *index.Index
	accountant *usage.Accountant
	advisor    *advisor.Advisor
	startTime  time.Time
	logger     arbor.ILogger
}

// NewStatusHandler creates a new status handler with dependencies
func NewStatusHandler(config *common.Config, idx *index.Index, accountant *usage.Accountant, adv *advisor.Advisor, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		config:     config,
		index:      idx,
		accountant: accountant,
		advisor:    adv,
		startTime:  time.Now(),
		logger:     logger,
	}
}

// GetStatusHandler handles GET /api/status requests
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	indexStatus := "ready"
	if h.index.Len() == 0 {
		indexStatus = "empty"
	}

	totals := h.accountant.Totals("")

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "running",
		"version":     common.GetVersion(),
		"environment": h.config.Environment,
		"uptime":      time.Since(h.startTime).Round(time.Second).String(),
		"index": map[string]interface{}{
			"status":      indexStatus,
			"chunks":      h.index.Len(),
			"dimension":   h.index.Dimension(),
			"fingerprint": shortID(h.index.Fingerprint()),
		},
		"usage":   totals,
		"queries": h.advisor.Metrics(),
	})
}
