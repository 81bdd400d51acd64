package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/consilio/internal/models"
	"github.com/ternarybob/consilio/internal/services/pdf"
	"github.com/ternarybob/consilio/internal/services/session"
)

func seededExporter(t *testing.T) (*Exporter, string) {
	t.Helper()
	logger := arbor.NewLogger()
	sessions := session.NewManager(logger)

	state := sessions.GetOrCreate("")
	sessions.AppendTurn(state.ID, models.Turn{Role: "user", Content: "How do governor limits work?"})
	sessions.AppendTurn(state.ID, models.Turn{Role: "assistant", Content: "Each transaction gets 100 SOQL queries."})
	sessions.AppendTurn(state.ID, models.Turn{Role: "user", Content: "Review my Apex code"})
	sessions.AppendTurn(state.ID, models.Turn{Role: "assistant", Content: "No critical issues.", ToolName: "Apex Code Reviewer"})

	return NewExporter(sessions, pdf.NewService(logger), logger), state.ID
}

func TestMarkdownTranscript(t *testing.T) {
	exporter, sessionID := seededExporter(t)

	markdown, err := exporter.Markdown(sessionID)
	require.NoError(t, err)

	assert.Contains(t, markdown, "# Conversation Transcript")
	assert.Contains(t, markdown, sessionID)
	assert.Contains(t, markdown, "## Q1: How do governor limits work?")
	assert.Contains(t, markdown, "Each transaction gets 100 SOQL queries.")
	assert.Contains(t, markdown, "## Q2: Review my Apex code")
	assert.Contains(t, markdown, "**Tool Used:** Apex Code Reviewer")
}

func TestMarkdownUnknownSession(t *testing.T) {
	exporter, _ := seededExporter(t)

	_, err := exporter.Markdown("ses_missing")
	assert.Error(t, err)
}

func TestPDFTranscript(t *testing.T) {
	exporter, sessionID := seededExporter(t)

	data, err := exporter.PDF(sessionID)
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.Equal(t, "%PDF", string(data[:4]))
}
