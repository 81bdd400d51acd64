package index

import (
	"fmt"
	"math"
	"sort"

	"github.com/ternarybob/consilio/internal/models"
)

type entry struct {
	chunk  models.Chunk
	vector []float32
	norm   float64
}

// Snapshot is an immutable in-memory vector index. It is populated during
// a build, then published through Index.Swap; readers never observe a
// partially built snapshot.
type Snapshot struct {
	fingerprint string
	dimension   int
	entries     []entry
	byID        map[string]int
	sealed      bool
}

// NewSnapshot creates an empty snapshot for the given corpus fingerprint
// and vector dimension.
func NewSnapshot(fingerprint string, dimension int) *Snapshot {
	return &Snapshot{
		fingerprint: fingerprint,
		dimension:   dimension,
		byID:        map[string]int{},
	}
}

// Add inserts a chunk and its vector, replacing any previous entry with
// the same chunk ID. Vectors of the wrong dimension are rejected.
func (s *Snapshot) Add(chunk models.Chunk, vector []float32) error {
	if s.sealed {
		return fmt.Errorf("snapshot is sealed")
	}
	if len(vector) != s.dimension {
		return fmt.Errorf("vector dimension mismatch: expected %d, got %d", s.dimension, len(vector))
	}

	e := entry{chunk: chunk, vector: vector, norm: vectorNorm(vector)}
	if i, ok := s.byID[chunk.ID]; ok {
		s.entries[i] = e
		return nil
	}
	s.byID[chunk.ID] = len(s.entries)
	s.entries = append(s.entries, e)
	return nil
}

// Seal marks the snapshot complete. Sealed snapshots reject further Adds,
// which keeps published snapshots immutable.
func (s *Snapshot) Seal() { s.sealed = true }

// Fingerprint returns the corpus fingerprint this snapshot was built from.
func (s *Snapshot) Fingerprint() string { return s.fingerprint }

// Len returns the number of indexed chunks.
func (s *Snapshot) Len() int { return len(s.entries) }

// Dimension returns the vector dimension.
func (s *Snapshot) Dimension() int { return s.dimension }

// Chunks returns all indexed chunks with their vectors, for persistence.
func (s *Snapshot) Chunks(visit func(chunk models.Chunk, vector []float32) error) error {
	for _, e := range s.entries {
		if err := visit(e.chunk, e.vector); err != nil {
			return err
		}
	}
	return nil
}

// Query returns the k nearest chunks by cosine similarity, descending.
// Ties break toward the lexically smaller document and the lower chunk
// ordinal so results are stable across runs. Requesting more results than
// exist returns everything.
func (s *Snapshot) Query(vector []float32, k int) ([]models.ScoredChunk, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", s.dimension, len(vector))
	}
	if k <= 0 {
		return nil, nil
	}

	queryNorm := vectorNorm(vector)

	scored := make([]models.ScoredChunk, 0, len(s.entries))
	for _, e := range s.entries {
		scored = append(scored, models.ScoredChunk{
			Chunk:      e.chunk,
			Similarity: cosine(vector, queryNorm, e.vector, e.norm),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		if scored[i].Chunk.DocumentID != scored[j].Chunk.DocumentID {
			return scored[i].Chunk.DocumentID < scored[j].Chunk.DocumentID
		}
		return scored[i].Chunk.Ordinal < scored[j].Chunk.Ordinal
	})

	if k < len(scored) {
		scored = scored[:k]
	}
	return scored, nil
}

func vectorNorm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosine computes cosine similarity with precomputed norms. A zero vector
// on either side scores 0 rather than dividing by zero.
func cosine(a []float32, aNorm float64, b []float32, bNorm float64) float64 {
	if aNorm == 0 || bNorm == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (aNorm * bNorm)
}
