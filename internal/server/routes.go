package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Advisory
	mux.HandleFunc("/api/ask", s.app.AskHandler.AskHandler) // POST - ask a question

	// API routes - Corpus and index
	mux.HandleFunc("/api/ingest", s.app.IngestHandler.IngestHandler)    // POST - rebuild index (?force=true)
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler) // GET - application and index status

	// API routes - Accounting
	mux.HandleFunc("/api/usage", s.app.UsageHandler.GetUsageHandler) // GET - totals and records (?session_id=)

	// API routes - Sessions
	mux.HandleFunc("/api/sessions/", s.app.SessionHandler.SessionRoutes) // GET /{id}/history, /{id}/export

	return mux
}
