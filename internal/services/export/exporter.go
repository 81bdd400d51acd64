// -----------------------------------------------------------------------
// Package export renders conversation transcripts as markdown or PDF
// -----------------------------------------------------------------------

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/consilio/internal/models"
	"github.com/ternarybob/consilio/internal/services/pdf"
	"github.com/ternarybob/consilio/internal/services/session"
)

// Exporter turns session histories into downloadable transcripts.
type Exporter struct {
	sessions *session.Manager
	pdf      *pdf.Service
	logger   arbor.ILogger
}

func NewExporter(sessions *session.Manager, pdfService *pdf.Service, logger arbor.ILogger) *Exporter {
	return &Exporter{
		sessions: sessions,
		pdf:      pdfService,
		logger:   logger,
	}
}

// Markdown renders the session transcript as question/answer pairs.
func (e *Exporter) Markdown(sessionID string) (string, error) {
	state, err := e.sessions.Get(sessionID)
	if err != nil {
		return "", err
	}

	var content strings.Builder
	content.WriteString("# Conversation Transcript\n\n")
	fmt.Fprintf(&content, "**Session:** %s\n", state.ID)
	fmt.Fprintf(&content, "**Started:** %s\n", state.CreatedAt.Format("January 2, 2006 at 15:04 MST"))
	fmt.Fprintf(&content, "**Messages:** %d\n\n---\n\n", len(state.Turns))

	pair := 1
	var question *models.Turn
	for i := range state.Turns {
		turn := &state.Turns[i]
		switch {
		case turn.Role == "user":
			question = turn
		case turn.Role == "assistant" && question != nil:
			fmt.Fprintf(&content, "## Q%d: %s\n\n", pair, question.Content)
			fmt.Fprintf(&content, "**Asked:** %s\n\n", question.CreatedAt.Format(time.RFC3339))
			fmt.Fprintf(&content, "**Answer:**\n\n%s\n\n", turn.Content)
			if turn.ToolName != "" {
				fmt.Fprintf(&content, "**Tool Used:** %s\n\n", turn.ToolName)
			}
			content.WriteString("---\n\n")
			pair++
			question = nil
		}
	}

	return content.String(), nil
}

// PDF renders the markdown transcript as a PDF document.
func (e *Exporter) PDF(sessionID string) ([]byte, error) {
	markdown, err := e.Markdown(sessionID)
	if err != nil {
		return nil, err
	}

	title := fmt.Sprintf("Conversation Transcript %s", sessionID)
	data, err := e.pdf.ConvertMarkdownToPDF(markdown, title)
	if err != nil {
		return nil, err
	}

	e.logger.Debug().
		Str("session_id", sessionID).
		Int("pdf_size", len(data)).
		Msg("Transcript exported")

	return data, nil
}
