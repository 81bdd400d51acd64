package corpus

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/consilio/internal/common"
	"github.com/ternarybob/consilio/internal/interfaces"
	"github.com/ternarybob/consilio/internal/models"
	"github.com/ternarybob/consilio/internal/services/index"
	"github.com/ternarybob/consilio/internal/services/pdf"
)

// Ingestor owns the corpus-to-index pipeline: fingerprinting, document
// extraction, chunking, embedding, and the staged swap to the live index.
type Ingestor struct {
	config    *common.Config
	logger    arbor.ILogger
	llm       interfaces.LLMService
	extractor *pdf.Extractor
	store     *index.Store
	index     *index.Index

	mu sync.Mutex // serializes rebuilds
}

// IngestResult reports what EnsureIndex did.
type IngestResult struct {
	Fingerprint string        `json:"fingerprint"`
	Rebuilt     bool          `json:"rebuilt"`
	Documents   int           `json:"documents"`
	Chunks      int           `json:"chunks"`
	Elapsed     time.Duration `json:"elapsed"`
}

// NewIngestor creates the ingestion service.
func NewIngestor(config *common.Config, llm interfaces.LLMService, extractor *pdf.Extractor, store *index.Store, idx *index.Index, logger arbor.ILogger) *Ingestor {
	return &Ingestor{
		config:    config,
		logger:    logger,
		llm:       llm,
		extractor: extractor,
		store:     store,
		index:     idx,
	}
}

// EnsureIndex makes the live index match the current corpus. The corpus
// fingerprint gates the expensive work: when it matches the live index
// (or a persisted one) nothing is re-embedded. Force skips the gate and
// always rebuilds. Concurrent calls are serialized; queries keep running
// against the old index until the swap.
func (s *Ingestor) EnsureIndex(ctx context.Context, force bool) (*IngestResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := time.Now()

	paths, err := ListFiles(s.config.Corpus)
	if err != nil {
		return nil, err
	}

	fingerprint, err := Fingerprint(paths, s.config.Chunking, s.config.Embedding.Model, s.config.Embedding.Dimension)
	if err != nil {
		return nil, err
	}

	result := &IngestResult{Fingerprint: fingerprint, Documents: len(paths)}

	if !force {
		if s.index.Fingerprint() == fingerprint {
			result.Chunks = s.index.Len()
			result.Elapsed = time.Since(started)
			s.logger.Debug().Str("fingerprint", fingerprint[:8]).Msg("Live index matches corpus, nothing to do")
			return result, nil
		}

		if snapshot, ok, err := s.store.Load(fingerprint); err != nil {
			return nil, err
		} else if ok {
			s.index.Swap(snapshot)
			result.Chunks = snapshot.Len()
			result.Elapsed = time.Since(started)
			return result, nil
		}
	}

	snapshot, chunks, err := s.rebuild(ctx, paths, fingerprint)
	if err != nil {
		return nil, err
	}

	if err := s.store.Persist(snapshot, s.config.Embedding.Model); err != nil {
		return nil, err
	}
	s.index.Swap(snapshot)

	result.Rebuilt = true
	result.Chunks = chunks
	result.Elapsed = time.Since(started)

	s.logger.Info().
		Int("documents", len(paths)).
		Int("chunks", chunks).
		Str("fingerprint", fingerprint[:8]).
		Dur("elapsed", result.Elapsed).
		Msg("Rebuilt corpus index")

	return result, nil
}

// rebuild extracts, chunks, and embeds the whole corpus into a fresh
// staging snapshot. The live index is untouched until the caller swaps.
func (s *Ingestor) rebuild(ctx context.Context, paths []string, fingerprint string) (*index.Snapshot, int, error) {
	topicMap, err := LoadTopicMap(s.config.Corpus.TopicsFile)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load topic map: %w", err)
	}

	snapshot := index.NewSnapshot(fingerprint, s.config.Embedding.Dimension)
	total := 0

	for _, path := range paths {
		doc, err := s.loadDocument(ctx, path, topicMap)
		if err != nil {
			return nil, 0, err
		}

		chunks, err := Chunk(doc, s.config.Chunking)
		if err != nil {
			return nil, 0, err
		}
		if len(chunks) == 0 {
			s.logger.Warn().Str("path", path).Msg("Corpus file produced no chunks, skipping")
			continue
		}

		if err := s.embedChunks(ctx, snapshot, chunks); err != nil {
			return nil, 0, err
		}
		total += len(chunks)

		s.logger.Debug().
			Str("path", path).
			Int("chunks", len(chunks)).
			Msg("Indexed corpus document")
	}

	return snapshot, total, nil
}

// embedChunks embeds chunk texts in configured batch sizes and adds them
// to the snapshot.
func (s *Ingestor) embedChunks(ctx context.Context, snapshot *index.Snapshot, chunks []models.Chunk) error {
	batchSize := s.config.Embedding.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}

	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Text
		}

		vectors, err := s.llm.EmbedBatch(ctx, texts)
		if err != nil {
			return err
		}
		for i, chunk := range batch {
			if err := snapshot.Add(chunk, vectors[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// loadDocument reads one corpus file into a normalized document with page
// and section markers for chunk attribution.
func (s *Ingestor) loadDocument(ctx context.Context, path string, topicMap map[string]TopicMapping) (*models.Document, error) {
	doc := &models.Document{
		ID:         common.NewDocumentID(),
		Title:      strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		SourcePath: path,
		IngestedAt: time.Now().UTC(),
	}

	if mapping, ok := Lookup(topicMap, path); ok {
		doc.DocType = mapping.Type
		doc.Category = mapping.Category
		doc.Topics = mapping.Topics
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		doc.Format = models.FormatPDF
		pages, err := s.extractor.ExtractPages(ctx, path)
		if err != nil {
			return nil, &models.CorpusReadError{Path: path, Err: err}
		}
		assemblePages(doc, pages)

	case ".md", ".markdown":
		doc.Format = models.FormatMarkdown
		data, err := readFile(path)
		if err != nil {
			return nil, err
		}
		doc.Text = string(data)
		doc.Sections = ExtractSections(data)

	default:
		doc.Format = models.FormatText
		data, err := readFile(path)
		if err != nil {
			return nil, err
		}
		doc.Text = string(data)
	}

	return doc, nil
}

// assemblePages concatenates page texts into the document text and
// records each page's rune offset for chunk attribution.
func assemblePages(doc *models.Document, pages []models.PageText) {
	var builder strings.Builder
	offset := 0
	doc.Pages = make([]models.PageText, 0, len(pages))

	for i, page := range pages {
		if i > 0 {
			builder.WriteString("\n\n")
			offset += 2
		}
		doc.Pages = append(doc.Pages, models.PageText{
			Number: page.Number,
			Offset: offset,
			Text:   page.Text,
		})
		builder.WriteString(page.Text)
		offset += len([]rune(page.Text))
	}

	doc.Text = builder.String()
}
