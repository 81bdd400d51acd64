package models

import "time"

// DocumentFormat identifies how a corpus file's text was extracted.
type DocumentFormat string

const (
	FormatPDF      DocumentFormat = "pdf"
	FormatMarkdown DocumentFormat = "markdown"
	FormatText     DocumentFormat = "text"
)

// PageText is one page of extracted PDF text together with its character
// offset into the assembled document text. Offset lets chunks be
// attributed back to a page without re-parsing the source.
type PageText struct {
	Number int    `json:"number"` // 1-based
	Offset int    `json:"offset"` // rune offset into Document.Text
	Text   string `json:"text"`
}

// SectionMark records a markdown heading and its rune offset, used to
// attribute chunks to the section they fall inside.
type SectionMark struct {
	Offset int    `json:"offset"`
	Title  string `json:"title"`
}

// Document is a normalized corpus file ready for chunking.
type Document struct {
	ID         string         `json:"id"` // doc_{uuid}
	Title      string         `json:"title"`
	SourcePath string         `json:"source_path"`
	Format     DocumentFormat `json:"format"`

	// Text is the full extracted text. For PDFs it is the concatenation
	// of Pages in order.
	Text     string        `json:"text"`
	Pages    []PageText    `json:"pages,omitempty"`
	Sections []SectionMark `json:"sections,omitempty"`

	// Topic metadata resolved from the corpus topic map by filename.
	DocType  string   `json:"doc_type,omitempty"`
	Category string   `json:"category,omitempty"`
	Topics   []string `json:"topics,omitempty"`

	IngestedAt time.Time `json:"ingested_at"`
}

// Chunk is one retrievable unit of a document. Chunks are never split at
// retrieval time: they are packed into context whole or not at all.
type Chunk struct {
	ID            string `json:"id"` // {docID}_{ordinal}
	DocumentID    string `json:"document_id"`
	DocumentTitle string `json:"document_title"`
	Ordinal       int    `json:"ordinal"`
	Text          string `json:"text"`
	Start         int    `json:"start"` // rune offset into the document text
	End           int    `json:"end"`
	Page          int    `json:"page,omitempty"`    // 1-based, 0 when unknown
	Section       string `json:"section,omitempty"` // nearest preceding heading
	Topic         string `json:"topic,omitempty"`
}

// ScoredChunk pairs a chunk with its cosine similarity to a query.
type ScoredChunk struct {
	Chunk      Chunk   `json:"chunk"`
	Similarity float64 `json:"similarity"`
}

// Citation points an answer back at the corpus material it drew from.
type Citation struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	Page       int     `json:"page,omitempty"`
	Section    string  `json:"section,omitempty"`
	Rank       int     `json:"rank"` // 1-based position in the retrieval result
	Similarity float64 `json:"similarity"`
}
