package handlers

import (
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/consilio/internal/models"
	"github.com/ternarybob/consilio/internal/services/corpus"
)

// IngestHandler handles corpus ingestion HTTP requests
type IngestHandler struct {
	ingestor *corpus.Ingestor
	logger   arbor.ILogger
}

// NewIngestHandler creates a new ingest handler with dependencies
func NewIngestHandler(ingestor *corpus.Ingestor, logger arbor.ILogger) *IngestHandler {
	return &IngestHandler{
		ingestor: ingestor,
		logger:   logger,
	}
}

// IngestHandler handles POST /api/ingest requests. The force query
// parameter rebuilds even when the corpus fingerprint is unchanged.
func (h *IngestHandler) IngestHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	force := r.URL.Query().Get("force") == "true"

	result, err := h.ingestor.EnsureIndex(r.Context(), force)
	if err != nil {
		var readErr *models.CorpusReadError
		if errors.As(err, &readErr) {
			WriteError(w, http.StatusUnprocessableEntity, "Corpus file could not be read: "+readErr.Path)
			return
		}
		h.logger.Error().Err(err).Msg("Ingestion failed")
		WriteError(w, http.StatusInternalServerError, "Ingestion failed. Check server logs for details.")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "success",
		"rebuilt":     result.Rebuilt,
		"documents":   result.Documents,
		"chunks":      result.Chunks,
		"fingerprint": shortID(result.Fingerprint),
		"elapsed_ms":  result.Elapsed.Milliseconds(),
	})
}

// shortID abbreviates a fingerprint for display.
func shortID(fp string) string {
	if len(fp) > 8 {
		return fp[:8]
	}
	return fp
}
