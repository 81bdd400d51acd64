package index

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/consilio/internal/models"
)

func chunkFixture(docID string, ordinal int) models.Chunk {
	return models.Chunk{
		ID:         docID + "_" + string(rune('0'+ordinal)),
		DocumentID: docID,
		Ordinal:    ordinal,
		Text:       "chunk text",
	}
}

func TestSnapshotAdd(t *testing.T) {
	t.Run("rejects wrong dimension", func(t *testing.T) {
		snap := NewSnapshot("fp", 3)
		err := snap.Add(chunkFixture("doc_a", 0), []float32{1, 0})
		assert.Error(t, err)
		assert.Equal(t, 0, snap.Len())
	})

	t.Run("replaces by chunk ID", func(t *testing.T) {
		snap := NewSnapshot("fp", 2)
		require.NoError(t, snap.Add(chunkFixture("doc_a", 0), []float32{1, 0}))
		require.NoError(t, snap.Add(chunkFixture("doc_a", 0), []float32{0, 1}))
		assert.Equal(t, 1, snap.Len())
	})

	t.Run("sealed snapshot rejects adds", func(t *testing.T) {
		snap := NewSnapshot("fp", 2)
		snap.Seal()
		assert.Error(t, snap.Add(chunkFixture("doc_a", 0), []float32{1, 0}))
	})
}

func TestSnapshotQuery(t *testing.T) {
	snap := NewSnapshot("fp", 2)
	require.NoError(t, snap.Add(chunkFixture("doc_a", 0), []float32{1, 0}))
	require.NoError(t, snap.Add(chunkFixture("doc_b", 0), []float32{0, 1}))
	require.NoError(t, snap.Add(chunkFixture("doc_c", 0), []float32{0.7, 0.7}))

	t.Run("ranks by cosine similarity descending", func(t *testing.T) {
		results, err := snap.Query([]float32{1, 0}, 3)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, "doc_a", results[0].Chunk.DocumentID)
		assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)
		assert.Equal(t, "doc_c", results[1].Chunk.DocumentID)
		assert.Equal(t, "doc_b", results[2].Chunk.DocumentID)
	})

	t.Run("k larger than index returns everything", func(t *testing.T) {
		results, err := snap.Query([]float32{1, 0}, 100)
		require.NoError(t, err)
		assert.Len(t, results, 3)
	})

	t.Run("rejects wrong query dimension", func(t *testing.T) {
		_, err := snap.Query([]float32{1, 0, 0}, 2)
		assert.Error(t, err)
	})

	t.Run("zero vector scores zero everywhere", func(t *testing.T) {
		results, err := snap.Query([]float32{0, 0}, 3)
		require.NoError(t, err)
		for _, r := range results {
			assert.Equal(t, 0.0, r.Similarity)
		}
	})
}

func TestSnapshotQueryTieBreak(t *testing.T) {
	snap := NewSnapshot("fp", 2)
	// Identical vectors: ties must break toward lower document then ordinal
	require.NoError(t, snap.Add(models.Chunk{ID: "doc_b_1", DocumentID: "doc_b", Ordinal: 1}, []float32{1, 0}))
	require.NoError(t, snap.Add(models.Chunk{ID: "doc_a_2", DocumentID: "doc_a", Ordinal: 2}, []float32{1, 0}))
	require.NoError(t, snap.Add(models.Chunk{ID: "doc_a_1", DocumentID: "doc_a", Ordinal: 1}, []float32{1, 0}))

	results, err := snap.Query([]float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "doc_a_1", results[0].Chunk.ID)
	assert.Equal(t, "doc_a_2", results[1].Chunk.ID)
	assert.Equal(t, "doc_b_1", results[2].Chunk.ID)
}

func TestIndexSwapDuringQueries(t *testing.T) {
	build := func(fingerprint string) *Snapshot {
		snap := NewSnapshot(fingerprint, 2)
		for i := 0; i < 8; i++ {
			chunk := models.Chunk{
				ID:         fmt.Sprintf("%s_%d", fingerprint, i),
				DocumentID: fingerprint,
				Ordinal:    i,
			}
			require.NoError(t, snap.Add(chunk, []float32{1, 0}))
		}
		return snap
	}

	idx := New()
	idx.Swap(build("fp_0"))

	// Readers must never observe chunks from two different snapshots in
	// one result set, no matter how many swaps land mid-flight.
	stop := make(chan struct{})
	mixed := make(chan string, 8)
	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				results, err := idx.Query([]float32{1, 0}, 8)
				if err != nil {
					mixed <- err.Error()
					return
				}
				docID := results[0].Chunk.DocumentID
				for _, scored := range results {
					if scored.Chunk.DocumentID != docID {
						mixed <- docID + " mixed with " + scored.Chunk.DocumentID
						return
					}
				}
			}
		}()
	}

	for i := 1; i <= 50; i++ {
		idx.Swap(build(fmt.Sprintf("fp_%d", i)))
	}
	close(stop)
	wg.Wait()
	close(mixed)

	for msg := range mixed {
		t.Error(msg)
	}
	assert.Equal(t, "fp_50", idx.Fingerprint())
}

func TestIndexSwap(t *testing.T) {
	idx := New()

	t.Run("empty index reports no index available", func(t *testing.T) {
		_, err := idx.Query([]float32{1, 0}, 1)
		assert.ErrorIs(t, err, models.ErrNoIndexAvailable)
		assert.Equal(t, 0, idx.Len())
		assert.Equal(t, "", idx.Fingerprint())
	})

	t.Run("swap publishes new snapshot", func(t *testing.T) {
		snap := NewSnapshot("fp1", 2)
		require.NoError(t, snap.Add(chunkFixture("doc_a", 0), []float32{1, 0}))
		idx.Swap(snap)

		assert.Equal(t, 1, idx.Len())
		assert.Equal(t, "fp1", idx.Fingerprint())
		assert.Equal(t, 2, idx.Dimension())

		results, err := idx.Query([]float32{1, 0}, 1)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})
}
