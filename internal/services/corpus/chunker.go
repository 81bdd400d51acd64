package corpus

import (
	"github.com/ternarybob/consilio/internal/common"
	"github.com/ternarybob/consilio/internal/models"
)

// Chunk splits a document's text into fixed-size windows with overlap.
// Splitting is by rune count so multi-byte text never breaks mid-character.
// Every chunk after the first starts OverlapChars before the previous
// chunk's end; output is deterministic for a given document and config.
func Chunk(doc *models.Document, cfg common.ChunkingConfig) ([]models.Chunk, error) {
	if cfg.MaxChars <= 0 || cfg.OverlapChars < 0 || cfg.OverlapChars >= cfg.MaxChars {
		return nil, &models.InvalidChunkConfigError{
			MaxChars:     cfg.MaxChars,
			OverlapChars: cfg.OverlapChars,
		}
	}

	runes := []rune(doc.Text)
	if len(runes) == 0 {
		return nil, nil
	}

	topic := ""
	if len(doc.Topics) > 0 {
		topic = doc.Topics[0]
	}

	var chunks []models.Chunk
	ordinal := 0
	start := 0
	for {
		end := start + cfg.MaxChars
		if end > len(runes) {
			end = len(runes)
		}

		chunks = append(chunks, models.Chunk{
			ID:            common.ChunkID(doc.ID, ordinal),
			DocumentID:    doc.ID,
			DocumentTitle: doc.Title,
			Ordinal:       ordinal,
			Text:          string(runes[start:end]),
			Start:         start,
			End:           end,
			Page:          pageAt(doc, start),
			Section:       sectionAt(doc, start),
			Topic:         topic,
		})
		ordinal++

		if end == len(runes) {
			break
		}
		start = end - cfg.OverlapChars
	}

	return chunks, nil
}

// pageAt returns the 1-based page containing the given rune offset, 0
// when the document has no page information.
func pageAt(doc *models.Document, offset int) int {
	page := 0
	for _, p := range doc.Pages {
		if p.Offset > offset {
			break
		}
		page = p.Number
	}
	return page
}

// sectionAt returns the nearest heading at or before the given offset.
func sectionAt(doc *models.Document, offset int) string {
	section := ""
	for _, s := range doc.Sections {
		if s.Offset > offset {
			break
		}
		section = s.Title
	}
	return section
}
