package index

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/consilio/internal/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	return NewStore(filepath.Join(dir, "index"), filepath.Join(dir, "index.staging"), arbor.NewLogger())
}

func buildSnapshot(t *testing.T, fingerprint string) *Snapshot {
	t.Helper()
	snap := NewSnapshot(fingerprint, 2)
	require.NoError(t, snap.Add(models.Chunk{ID: "doc_a_0000", DocumentID: "doc_a", Ordinal: 0, Text: "alpha"}, []float32{1, 0}))
	require.NoError(t, snap.Add(models.Chunk{ID: "doc_a_0001", DocumentID: "doc_a", Ordinal: 1, Text: "beta"}, []float32{0, 1}))
	return snap
}

func TestStorePersistAndLoad(t *testing.T) {
	store := testStore(t)

	persisted := buildSnapshot(t, "fp1")
	require.NoError(t, store.Persist(persisted, "embed-model"))

	loaded, ok, err := store.Load("fp1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, loaded.Len())
	assert.Equal(t, "fp1", loaded.Fingerprint())
	assert.Equal(t, 2, loaded.Dimension())

	// Loaded snapshot answers queries like the original
	loaded.Seal()
	results, err := loaded.Query([]float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "alpha", results[0].Chunk.Text)
}

func TestStoreLoadMissing(t *testing.T) {
	store := testStore(t)

	loaded, ok, err := store.Load("fp1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, loaded)
}

func TestStoreLoadStaleFingerprint(t *testing.T) {
	store := testStore(t)
	require.NoError(t, store.Persist(buildSnapshot(t, "fp1"), "embed-model"))

	// A different expected fingerprint means the store is stale
	loaded, ok, err := store.Load("fp2")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, loaded)
}

func TestStorePersistReplacesPrevious(t *testing.T) {
	store := testStore(t)
	require.NoError(t, store.Persist(buildSnapshot(t, "fp1"), "embed-model"))

	replacement := NewSnapshot("fp2", 2)
	require.NoError(t, replacement.Add(models.Chunk{ID: "doc_b_0000", DocumentID: "doc_b", Ordinal: 0, Text: "gamma"}, []float32{1, 0}))
	require.NoError(t, store.Persist(replacement, "embed-model"))

	_, ok, err := store.Load("fp1")
	require.NoError(t, err)
	assert.False(t, ok)

	loaded, ok, err := store.Load("fp2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, loaded.Len())
}
