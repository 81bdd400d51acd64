package index

import (
	"sync/atomic"

	"github.com/ternarybob/consilio/internal/models"
)

// Index publishes the live snapshot to readers. Swap is atomic: queries
// running during a rebuild see either the old snapshot or the new one,
// never a mix, and the old snapshot stays valid for reads already holding
// it.
type Index struct {
	current atomic.Pointer[Snapshot]
}

// New creates an Index with no live snapshot.
func New() *Index {
	return &Index{}
}

// Swap publishes a sealed snapshot as the live index.
func (i *Index) Swap(s *Snapshot) {
	s.Seal()
	i.current.Store(s)
}

// Current returns the live snapshot, nil when none has been published.
func (i *Index) Current() *Snapshot {
	return i.current.Load()
}

// Query runs a similarity query against the live snapshot.
func (i *Index) Query(vector []float32, k int) ([]models.ScoredChunk, error) {
	snap := i.current.Load()
	if snap == nil || snap.Len() == 0 {
		return nil, models.ErrNoIndexAvailable
	}
	return snap.Query(vector, k)
}

// Len returns the number of indexed chunks, 0 when no index is live.
func (i *Index) Len() int {
	if snap := i.current.Load(); snap != nil {
		return snap.Len()
	}
	return 0
}

// Dimension returns the live vector dimension, 0 when no index is live.
func (i *Index) Dimension() int {
	if snap := i.current.Load(); snap != nil {
		return snap.Dimension()
	}
	return 0
}

// Fingerprint returns the corpus fingerprint of the live snapshot.
func (i *Index) Fingerprint() string {
	if snap := i.current.Load(); snap != nil {
		return snap.Fingerprint()
	}
	return ""
}
