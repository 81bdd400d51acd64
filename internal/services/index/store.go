package index

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/consilio/internal/models"
)

const manifestKey = "manifest"

// ChunkRecord is the persisted form of one indexed chunk.
type ChunkRecord struct {
	ID     string `badgerhold:"key"`
	Chunk  models.Chunk
	Vector []float32
}

// Manifest describes a complete persisted index. It is written last
// during a build: a store without a valid manifest is treated as absent,
// so a crash mid-build can never surface a partial index.
type Manifest struct {
	Fingerprint string
	Dimension   int
	EmbedModel  string
	ChunkCount  int
	BuiltAt     time.Time
}

// Store persists index snapshots through badgerhold. New snapshots are
// built in a staging directory and promoted over the live directory with
// renames, so the live index is replaced atomically.
type Store struct {
	livePath    string
	stagingPath string
	logger      arbor.ILogger
}

// NewStore creates a store rooted at livePath with builds staged at
// stagingPath.
func NewStore(livePath, stagingPath string, logger arbor.ILogger) *Store {
	return &Store{
		livePath:    livePath,
		stagingPath: stagingPath,
		logger:      logger,
	}
}

// Persist writes the snapshot to the staging store and promotes it to the
// live path. The previous live index is removed only after the new one is
// in place.
func (s *Store) Persist(snapshot *Snapshot, embedModel string) error {
	if err := os.RemoveAll(s.stagingPath); err != nil {
		return fmt.Errorf("failed to clear staging directory: %w", err)
	}
	if err := os.MkdirAll(s.stagingPath, 0755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}

	store, err := openStore(s.stagingPath)
	if err != nil {
		return fmt.Errorf("failed to open staging store: %w", err)
	}

	writeErr := snapshot.Chunks(func(chunk models.Chunk, vector []float32) error {
		return store.Upsert(chunk.ID, &ChunkRecord{
			ID:     chunk.ID,
			Chunk:  chunk,
			Vector: vector,
		})
	})
	if writeErr == nil {
		// Manifest goes in last: its presence marks the store complete
		writeErr = store.Upsert(manifestKey, &Manifest{
			Fingerprint: snapshot.Fingerprint(),
			Dimension:   snapshot.Dimension(),
			EmbedModel:  embedModel,
			ChunkCount:  snapshot.Len(),
			BuiltAt:     time.Now().UTC(),
		})
	}
	if closeErr := store.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		os.RemoveAll(s.stagingPath)
		return fmt.Errorf("failed to write staging store: %w", writeErr)
	}

	return s.promote()
}

// promote swaps the staged store into the live path. The old live store
// is parked aside first so a crash between renames leaves either the old
// index recoverable or a clean rebuild, never a half-written live store.
func (s *Store) promote() error {
	oldPath := s.livePath + ".old"
	os.RemoveAll(oldPath)

	if _, err := os.Stat(s.livePath); err == nil {
		if err := os.Rename(s.livePath, oldPath); err != nil {
			return fmt.Errorf("failed to move previous index aside: %w", err)
		}
	}
	if err := os.Rename(s.stagingPath, s.livePath); err != nil {
		// Try to restore the previous index before reporting
		if _, statErr := os.Stat(oldPath); statErr == nil {
			os.Rename(oldPath, s.livePath)
		}
		return fmt.Errorf("failed to promote staged index: %w", err)
	}
	os.RemoveAll(oldPath)

	s.logger.Debug().Str("path", s.livePath).Msg("Promoted staged index")
	return nil
}

// Load reads the live store into a snapshot if its manifest matches the
// expected fingerprint. Returns (nil, false, nil) when the store is
// absent, incomplete, or stale; those cases all mean "rebuild".
func (s *Store) Load(expectedFingerprint string) (*Snapshot, bool, error) {
	if _, err := os.Stat(s.livePath); err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	store, err := openStore(s.livePath)
	if err != nil {
		s.logger.Warn().Str("path", s.livePath).Err(err).Msg("Failed to open persisted index, will rebuild")
		return nil, false, nil
	}
	defer store.Close()

	var manifest Manifest
	if err := store.Get(manifestKey, &manifest); err != nil {
		if err == badgerhold.ErrNotFound {
			s.logger.Warn().Str("path", s.livePath).Msg("Persisted index has no manifest, will rebuild")
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read index manifest: %w", err)
	}

	if manifest.Fingerprint != expectedFingerprint {
		s.logger.Info().
			Str("stored", shortFingerprint(manifest.Fingerprint)).
			Str("expected", shortFingerprint(expectedFingerprint)).
			Msg("Persisted index is stale, will rebuild")
		return nil, false, nil
	}

	var records []ChunkRecord
	if err := store.Find(&records, badgerhold.Where("ID").Ne("")); err != nil {
		return nil, false, fmt.Errorf("failed to read index records: %w", err)
	}
	if len(records) != manifest.ChunkCount {
		s.logger.Warn().
			Int("expected", manifest.ChunkCount).
			Int("found", len(records)).
			Msg("Persisted index record count mismatch, will rebuild")
		return nil, false, nil
	}

	snapshot := NewSnapshot(manifest.Fingerprint, manifest.Dimension)
	for _, record := range records {
		if err := snapshot.Add(record.Chunk, record.Vector); err != nil {
			return nil, false, fmt.Errorf("failed to restore chunk %s: %w", record.ID, err)
		}
	}

	s.logger.Info().
		Int("chunks", snapshot.Len()).
		Str("fingerprint", shortFingerprint(manifest.Fingerprint)).
		Msg("Loaded persisted index")

	return snapshot, true, nil
}

func openStore(path string) (*badgerhold.Store, error) {
	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil // Disable default badger logger to use arbor
	return badgerhold.Open(options)
}

func shortFingerprint(fp string) string {
	if len(fp) > 8 {
		return fp[:8]
	}
	return fp
}

// EnsureDir creates the parent directory for the store paths.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0755)
}
