package corpus

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// TopicMapping annotates a corpus file with its document type, category,
// and the topics it covers. Keys in the topic map are corpus filenames.
type TopicMapping struct {
	Type     string   `yaml:"type"`
	Category string   `yaml:"category"`
	Topics   []string `yaml:"topics"`
}

// LoadTopicMap reads the filename-to-topic mapping from a YAML file. A
// missing file is not an error: documents are simply indexed without
// topic annotations.
func LoadTopicMap(path string) (map[string]TopicMapping, error) {
	if path == "" {
		return map[string]TopicMapping{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]TopicMapping{}, nil
		}
		return nil, err
	}

	mapping := map[string]TopicMapping{}
	if err := yaml.Unmarshal(data, &mapping); err != nil {
		return nil, err
	}
	return mapping, nil
}

// Lookup resolves the mapping for a corpus file path by base filename,
// falling back to a match without the extension.
func Lookup(mapping map[string]TopicMapping, path string) (TopicMapping, bool) {
	base := filepath.Base(path)
	if m, ok := mapping[base]; ok {
		return m, true
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	m, ok := mapping[stem]
	return m, ok
}
