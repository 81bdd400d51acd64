package corpus

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/consilio/internal/common"
	"github.com/ternarybob/consilio/internal/models"
)

func docFixture(text string) *models.Document {
	return &models.Document{
		ID:    "doc_test",
		Title: "Test Document",
		Text:  text,
	}
}

func TestChunkInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  common.ChunkingConfig
	}{
		{"overlap equals max", common.ChunkingConfig{MaxChars: 100, OverlapChars: 100}},
		{"overlap exceeds max", common.ChunkingConfig{MaxChars: 100, OverlapChars: 150}},
		{"zero max", common.ChunkingConfig{MaxChars: 0, OverlapChars: 0}},
		{"negative overlap", common.ChunkingConfig{MaxChars: 100, OverlapChars: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Chunk(docFixture("some text"), tt.cfg)
			require.Error(t, err)

			var cfgErr *models.InvalidChunkConfigError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestChunkShortDocument(t *testing.T) {
	chunks, err := Chunk(docFixture("short"), common.ChunkingConfig{MaxChars: 100, OverlapChars: 20})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Ordinal)
	assert.Equal(t, "doc_test_0000", chunks[0].ID)
}

func TestChunkEmptyDocument(t *testing.T) {
	chunks, err := Chunk(docFixture(""), common.ChunkingConfig{MaxChars: 100, OverlapChars: 20})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkOverlap(t *testing.T) {
	text := strings.Repeat("abcdefghij", 30) // 300 chars
	cfg := common.ChunkingConfig{MaxChars: 100, OverlapChars: 20}

	chunks, err := Chunk(docFixture(text), cfg)
	require.NoError(t, err)
	require.True(t, len(chunks) > 1)

	runes := []rune(text)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Ordinal)
		assert.Equal(t, string(runes[chunk.Start:chunk.End]), chunk.Text)
		assert.LessOrEqual(t, chunk.End-chunk.Start, cfg.MaxChars)

		if i > 0 {
			// Each chunk starts exactly OverlapChars before the previous end
			assert.Equal(t, chunks[i-1].End-cfg.OverlapChars, chunk.Start)
		}
	}

	// Full coverage: last chunk ends at the document end
	assert.Equal(t, len(runes), chunks[len(chunks)-1].End)
}

func TestChunkDeterminism(t *testing.T) {
	text := strings.Repeat("the same document text ", 50)
	cfg := common.ChunkingConfig{MaxChars: 120, OverlapChars: 30}

	first, err := Chunk(docFixture(text), cfg)
	require.NoError(t, err)
	second, err := Chunk(docFixture(text), cfg)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestChunkMultibyteText(t *testing.T) {
	// Rune-based splitting must never cut a multi-byte character
	text := strings.Repeat("héllo wörld ", 40)
	chunks, err := Chunk(docFixture(text), common.ChunkingConfig{MaxChars: 50, OverlapChars: 10})
	require.NoError(t, err)

	for _, chunk := range chunks {
		assert.True(t, strings.HasPrefix(text[0:], chunk.Text) || strings.Contains(text, chunk.Text))
	}
}

func TestChunkPageAndSectionAttribution(t *testing.T) {
	doc := docFixture(strings.Repeat("x", 200))
	doc.Pages = []models.PageText{
		{Number: 1, Offset: 0},
		{Number: 2, Offset: 120},
	}
	doc.Sections = []models.SectionMark{
		{Offset: 0, Title: "Introduction"},
		{Offset: 110, Title: "Details"},
	}

	chunks, err := Chunk(doc, common.ChunkingConfig{MaxChars: 100, OverlapChars: 0})
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, 1, chunks[0].Page)
	assert.Equal(t, "Introduction", chunks[0].Section)
	assert.Equal(t, 1, chunks[1].Page) // starts at 100, page 2 begins at 120
	assert.Equal(t, "Introduction", chunks[1].Section)
}

func TestChunkTopicAnnotation(t *testing.T) {
	doc := docFixture("annotated text")
	doc.Topics = []string{"governor limits", "apex"}

	chunks, err := Chunk(doc, common.ChunkingConfig{MaxChars: 100, OverlapChars: 10})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "governor limits", chunks[0].Topic)
}
