package corpus

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ternarybob/consilio/internal/common"
	"github.com/ternarybob/consilio/internal/models"
)

// ListFiles returns the corpus files under dir matching the configured
// extensions, sorted by path so downstream hashing is order-independent
// of filesystem iteration.
func ListFiles(cfg common.CorpusConfig) ([]string, error) {
	extensions := make(map[string]bool, len(cfg.Extensions))
	for _, ext := range cfg.Extensions {
		extensions[strings.ToLower(ext)] = true
	}

	var paths []string
	err := filepath.WalkDir(cfg.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return &models.CorpusReadError{Path: path, Err: err}
		}
		if d.IsDir() {
			return nil
		}
		if extensions[strings.ToLower(filepath.Ext(path))] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(paths)
	return paths, nil
}

// Fingerprint computes a deterministic digest over the corpus file
// contents plus every parameter that shapes the index: chunk geometry and
// the embedding model. Any change to either forces a rebuild; anything
// else reuses the existing index.
func Fingerprint(paths []string, chunking common.ChunkingConfig, embedModel string, embedDimension int) (string, error) {
	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Strings(sorted)

	hash := sha256.New()
	for _, path := range sorted {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", &models.CorpusReadError{Path: path, Err: err}
		}
		fileSum := sha256.Sum256(data)
		fmt.Fprintf(hash, "%s\n%s\n", filepath.ToSlash(path), hex.EncodeToString(fileSum[:]))
	}
	fmt.Fprintf(hash, "max_chars=%d overlap_chars=%d model=%s dimension=%d\n",
		chunking.MaxChars, chunking.OverlapChars, embedModel, embedDimension)

	return hex.EncodeToString(hash.Sum(nil)), nil
}
