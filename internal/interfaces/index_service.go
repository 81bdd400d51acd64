package interfaces

import (
	"github.com/ternarybob/consilio/internal/models"
)

// IndexReader is the query-side view of the vector index. Readers always
// see a complete, consistent snapshot: an in-progress rebuild is never
// visible.
type IndexReader interface {
	// Query returns the k nearest chunks to the query vector by cosine
	// similarity, in descending similarity order.
	Query(vector []float32, k int) ([]models.ScoredChunk, error)

	// Len returns the number of indexed chunks, 0 when no index is live.
	Len() int

	// Dimension returns the vector dimension of the live index, 0 when
	// no index is live.
	Dimension() int

	// Fingerprint returns the corpus fingerprint the live index was
	// built from, empty when no index is live.
	Fingerprint() string
}
