package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfigValidates(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "gemini-embedding-001", cfg.Embedding.Model)
	assert.Equal(t, LLMProviderGemini, cfg.LLM.DefaultProvider)
	assert.Contains(t, cfg.Pricing, cfg.Gemini.Model)
	assert.Contains(t, cfg.Pricing, cfg.Claude.Model)
	assert.Contains(t, cfg.Pricing, cfg.Embedding.Model)
}

func TestLoadFromFilesOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "consilio.toml")
	content := `
environment = "production"

[server]
port = 9090
host = "0.0.0.0"

[chunking]
max_chars = 2000
overlap_chars = 400

[retrieval]
top_k = 8
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 2000, cfg.Chunking.MaxChars)
	assert.Equal(t, 400, cfg.Chunking.OverlapChars)
	assert.Equal(t, 8, cfg.Retrieval.TopK)

	// Untouched sections keep their defaults
	assert.Equal(t, "gemini-3-flash-preview", cfg.Gemini.Model)
	assert.Equal(t, 768, cfg.Embedding.Dimension)
}

func TestLoadFromFilesLaterFileWins(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "base.toml")
	second := filepath.Join(dir, "override.toml")
	require.NoError(t, os.WriteFile(first, []byte("[server]\nport = 9001\nhost = \"localhost\"\n"), 0644))
	require.NoError(t, os.WriteFile(second, []byte("[server]\nport = 9002\nhost = \"localhost\"\n"), 0644))

	cfg, err := LoadFromFiles(first, second)
	require.NoError(t, err)
	assert.Equal(t, 9002, cfg.Server.Port)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("CONSILIO_SERVER_PORT", "7070")
	t.Setenv("CONSILIO_CORPUS_DIR", "/srv/corpus")
	t.Setenv("GEMINI_API_KEY", "env-key")

	cfg, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "/srv/corpus", cfg.Corpus.Dir)
	assert.Equal(t, "env-key", cfg.Gemini.APIKey)
}

func TestPrefixedKeyBeatsBareKey(t *testing.T) {
	t.Setenv("CONSILIO_GEMINI_API_KEY", "prefixed")
	t.Setenv("GEMINI_API_KEY", "bare")

	cfg, err := LoadFromFiles()
	require.NoError(t, err)
	assert.Equal(t, "prefixed", cfg.Gemini.APIKey)
}

func TestValidateRejectsOverlapNotBelowMax(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Chunking.MaxChars = 200
	cfg.Chunking.OverlapChars = 200

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlap_chars")
}

func TestValidateRejectsShortWindowNotBelowLong(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.RateLimit.Short = RateWindow{Count: 10, Duration: "2h"}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate_limit")
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.LLM.DefaultProvider = "openai"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default_provider")
}

func TestChatModelFollowsProvider(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.Equal(t, cfg.Gemini.Model, cfg.ChatModel())

	cfg.LLM.DefaultProvider = LLMProviderClaude
	assert.Equal(t, cfg.Claude.Model, cfg.ChatModel())
}

func TestLoadFromFilesMissingFile(t *testing.T) {
	_, err := LoadFromFiles("/nonexistent/consilio.toml")
	assert.Error(t, err)
}
