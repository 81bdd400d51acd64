package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/consilio/internal/common"
	"github.com/ternarybob/consilio/internal/interfaces"
	"github.com/ternarybob/consilio/internal/models"
)

// Planner turns a question into packed context plus citations. Chunks
// are packed whole, highest-similarity first, and packing stops at the
// first chunk that would push the context past the character budget.
// A chunk is never truncated to fit.
type Planner struct {
	config common.RetrievalConfig
	llm    interfaces.LLMService
	index  interfaces.IndexReader
	logger arbor.ILogger
}

// Result is the outcome of one retrieval.
type Result struct {
	Chunks      []models.ScoredChunk
	Citations   []models.Citation
	ContextText string
}

// NewPlanner creates the retrieval planner.
func NewPlanner(config common.RetrievalConfig, llm interfaces.LLMService, index interfaces.IndexReader, logger arbor.ILogger) *Planner {
	return &Planner{
		config: config,
		llm:    llm,
		index:  index,
		logger: logger,
	}
}

// Retrieve embeds the question, queries the live index, and packs the
// results into context. The index is checked before the embedding call so
// an absent index costs nothing.
func (p *Planner) Retrieve(ctx context.Context, question string) (*Result, error) {
	if p.index.Len() == 0 {
		return nil, models.ErrNoIndexAvailable
	}

	vector, err := p.llm.Embed(ctx, question)
	if err != nil {
		return nil, err
	}

	scored, err := p.index.Query(vector, p.config.TopK)
	if err != nil {
		return nil, err
	}

	if p.config.MinSimilarity > 0 {
		kept := scored[:0]
		for _, sc := range scored {
			if sc.Similarity >= p.config.MinSimilarity {
				kept = append(kept, sc)
			}
		}
		scored = kept
	}

	packed := packWholeChunks(scored, p.config.ContextBudgetChars)

	result := &Result{
		Chunks:      packed,
		Citations:   citationsFor(packed),
		ContextText: buildContextText(packed),
	}

	p.logger.Debug().
		Int("retrieved", len(scored)).
		Int("packed", len(packed)).
		Int("context_chars", len([]rune(result.ContextText))).
		Msg("Retrieval complete")

	return result, nil
}

// packWholeChunks keeps chunks in rank order while their cumulative size
// fits the budget. The first chunk that would exceed it stops packing;
// lower-ranked chunks are dropped entirely rather than partially
// included.
func packWholeChunks(scored []models.ScoredChunk, budgetChars int) []models.ScoredChunk {
	var packed []models.ScoredChunk
	used := 0
	for _, sc := range scored {
		size := len([]rune(sc.Chunk.Text))
		if used+size > budgetChars {
			break
		}
		packed = append(packed, sc)
		used += size
	}
	return packed
}

func citationsFor(packed []models.ScoredChunk) []models.Citation {
	citations := make([]models.Citation, 0, len(packed))
	for i, sc := range packed {
		citations = append(citations, models.Citation{
			DocumentID: sc.Chunk.DocumentID,
			Title:      sc.Chunk.DocumentTitle,
			Page:       sc.Chunk.Page,
			Section:    sc.Chunk.Section,
			Rank:       i + 1,
			Similarity: sc.Similarity,
		})
	}
	return citations
}

// buildContextText builds a formatted context string from packed chunks
func buildContextText(packed []models.ScoredChunk) string {
	if len(packed) == 0 {
		return ""
	}

	var parts []string
	parts = append(parts, "RELEVANT CONTEXT:")
	parts = append(parts, "")

	for i, sc := range packed {
		parts = append(parts, fmt.Sprintf("Excerpt %d:", i+1))
		if sc.Chunk.DocumentTitle != "" {
			parts = append(parts, fmt.Sprintf("Source: %s", sc.Chunk.DocumentTitle))
		}
		if sc.Chunk.Section != "" {
			parts = append(parts, fmt.Sprintf("Section: %s", sc.Chunk.Section))
		}
		if sc.Chunk.Page > 0 {
			parts = append(parts, fmt.Sprintf("Page: %d", sc.Chunk.Page))
		}
		parts = append(parts, fmt.Sprintf("Content: %s", sc.Chunk.Text))
		parts = append(parts, "")
	}

	return strings.Join(parts, "\n")
}
