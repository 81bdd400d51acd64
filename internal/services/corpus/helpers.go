package corpus

import (
	"os"

	"github.com/ternarybob/consilio/internal/models"
)

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &models.CorpusReadError{Path: path, Err: err}
	}
	return data, nil
}
