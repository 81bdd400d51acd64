package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// LLMProvider identifies which chat provider backs the advisor.
type LLMProvider string

const (
	LLMProviderGemini LLMProvider = "gemini"
	LLMProviderClaude LLMProvider = "claude"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Logging     LoggingConfig   `toml:"logging"`
	Storage     StorageConfig   `toml:"storage"`
	Corpus      CorpusConfig    `toml:"corpus"`
	Chunking    ChunkingConfig  `toml:"chunking"`
	Retrieval   RetrievalConfig `toml:"retrieval"`
	RateLimit   RateLimitConfig `toml:"rate_limit"`
	Validation  InputConfig     `toml:"validation"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Claude      ClaudeConfig    `toml:"claude"`
	Embedding   EmbeddingConfig `toml:"embedding"`
	LLM         LLMConfig       `toml:"llm"`

	// Pricing maps model IDs to per-million-token USD rates. Usage
	// accounting refuses records for models missing from this table.
	Pricing map[string]ModelPricing `toml:"pricing"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gt=0,lte=65535"`
	Host string `toml:"host" validate:"required"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Format string   `toml:"format"` // "json" or "text"
	Output []string `toml:"output"` // "stdout", "file"
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration. The index and
// the usage log live in separate stores under Path so an index rebuild
// never touches accounting data.
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database root directory
	ResetOnStartup bool   `toml:"reset_on_startup"`         // Delete databases on startup for clean test runs
}

// IndexPath returns the directory of the live vector index store.
func (c BadgerConfig) IndexPath() string { return c.Path + "/index" }

// StagingPath returns the directory new indexes are built in before the
// atomic promotion to IndexPath.
func (c BadgerConfig) StagingPath() string { return c.Path + "/index.staging" }

// UsagePath returns the directory of the usage accounting store.
func (c BadgerConfig) UsagePath() string { return c.Path + "/usage" }

// CorpusConfig describes where source documents live and how they are
// annotated.
type CorpusConfig struct {
	Dir        string   `toml:"dir" validate:"required"` // Directory containing corpus files
	Extensions []string `toml:"extensions"`              // File extensions to scan (default: .pdf, .md, .txt)
	TopicsFile string   `toml:"topics_file"`             // YAML file mapping filenames to doc types and topics
	Schedule   string   `toml:"schedule"`                // Cron schedule for staleness checks (empty = disabled)
}

// ChunkingConfig controls how document text is split for indexing.
type ChunkingConfig struct {
	MaxChars     int `toml:"max_chars" validate:"gt=0"`
	OverlapChars int `toml:"overlap_chars" validate:"gte=0"`
}

// RetrievalConfig controls query-time behavior.
type RetrievalConfig struct {
	TopK               int     `toml:"top_k" validate:"gt=0"`
	ContextBudgetChars int     `toml:"context_budget_chars" validate:"gt=0"`
	MinSimilarity      float64 `toml:"min_similarity" validate:"gte=0,lte=1"`
}

// RateWindow is one sliding admission window: at most Count requests in
// any span of Duration.
type RateWindow struct {
	Count    int    `toml:"count" validate:"gt=0"`
	Duration string `toml:"duration" validate:"required"` // e.g. "1m", "1h"
}

// ParseDuration returns the window span.
func (w RateWindow) ParseDuration() (time.Duration, error) {
	return time.ParseDuration(w.Duration)
}

// RateLimitConfig holds the two per-session sliding windows. Short must
// span less time than Long.
type RateLimitConfig struct {
	Short RateWindow `toml:"short"`
	Long  RateWindow `toml:"long"`
}

// InputConfig bounds and screens incoming questions.
type InputConfig struct {
	MaxQuestionChars int `toml:"max_question_chars" validate:"gt=0"`
}

type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"` // Chat model for AI operations
	Timeout     string  `toml:"timeout"`
	RateLimit   string  `toml:"rate_limit"` // Minimum spacing between outbound calls
	Temperature float32 `toml:"temperature"`
}

type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Timeout     string  `toml:"timeout"`
	RateLimit   string  `toml:"rate_limit"`
	Temperature float32 `toml:"temperature"`
}

// EmbeddingConfig controls the embedding model and its retry schedule.
type EmbeddingConfig struct {
	Model          string `toml:"model" validate:"required"`
	Dimension      int    `toml:"dimension" validate:"gt=0"`
	BatchSize      int    `toml:"batch_size" validate:"gt=0"`
	MaxRetries     int    `toml:"max_retries" validate:"gte=0"`
	InitialBackoff string `toml:"initial_backoff"`
	MaxBackoff     string `toml:"max_backoff"`
}

// LLMConfig contains unified configuration for all AI providers
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"` // "gemini" or "claude" (default: "gemini")
}

// ModelPricing holds per-million-token USD rates for one model.
type ModelPricing struct {
	InputPerMillion  float64 `toml:"input_per_million" validate:"gte=0"`
	OutputPerMillion float64 `toml:"output_per_million" validate:"gte=0"`
}

// NewDefaultConfig creates a configuration with default values
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in consilio.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Corpus: CorpusConfig{
			Dir:        "./corpus",
			Extensions: []string{".pdf", ".md", ".txt"},
			TopicsFile: "./corpus/topics.yaml",
			Schedule:   "", // Staleness checks disabled unless scheduled
		},
		Chunking: ChunkingConfig{
			MaxChars:     1000,
			OverlapChars: 200,
		},
		Retrieval: RetrievalConfig{
			TopK:               5,
			ContextBudgetChars: 8000,
			MinSimilarity:      0.0,
		},
		RateLimit: RateLimitConfig{
			Short: RateWindow{Count: 10, Duration: "1m"},
			Long:  RateWindow{Count: 100, Duration: "1h"},
		},
		Validation: InputConfig{
			MaxQuestionChars: 4000,
		},
		Gemini: GeminiConfig{
			APIKey:      "", // User must provide API key (GEMINI_API_KEY or config)
			Model:       "gemini-3-flash-preview",
			Timeout:     "5m",
			RateLimit:   "4s", // Default to 4s (15 RPM) for free tier
			Temperature: 0.7,
		},
		Claude: ClaudeConfig{
			APIKey:      "", // User must provide API key (ANTHROPIC_API_KEY or config)
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   8192,
			Timeout:     "5m",
			RateLimit:   "1s",
			Temperature: 0.7,
		},
		Embedding: EmbeddingConfig{
			Model:          "gemini-embedding-001",
			Dimension:      768,
			BatchSize:      16,
			MaxRetries:     5,
			InitialBackoff: "45s", // Matches the provider quota window reset time
			MaxBackoff:     "90s",
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
		},
		Pricing: map[string]ModelPricing{
			"gemini-3-flash-preview":    {InputPerMillion: 0.50, OutputPerMillion: 3.00},
			"gemini-embedding-001":      {InputPerMillion: 0.15, OutputPerMillion: 0},
			"claude-haiku-3-5-20241022": {InputPerMillion: 0.80, OutputPerMillion: 4.00},
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env. Later files override earlier
// files; environment variables override all files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("CONSILIO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("CONSILIO_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("CONSILIO_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Logging configuration
	if level := os.Getenv("CONSILIO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("CONSILIO_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Storage configuration
	if badgerPath := os.Getenv("CONSILIO_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Corpus configuration
	if dir := os.Getenv("CONSILIO_CORPUS_DIR"); dir != "" {
		config.Corpus.Dir = dir
	}
	if topics := os.Getenv("CONSILIO_TOPICS_FILE"); topics != "" {
		config.Corpus.TopicsFile = topics
	}

	// Provider credentials. Keys are read here and never logged.
	if key := os.Getenv("CONSILIO_GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	} else if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	}
	if key := os.Getenv("CONSILIO_CLAUDE_API_KEY"); key != "" {
		config.Claude.APIKey = key
	} else if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		config.Claude.APIKey = key
	}
	if provider := os.Getenv("CONSILIO_LLM_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}

	if model := os.Getenv("CONSILIO_EMBED_MODEL"); model != "" {
		config.Embedding.Model = model
	}
}

// Validate checks structural constraints plus the cross-field rules the
// tag syntax cannot express. Configuration errors are fatal at startup.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Chunking.OverlapChars >= c.Chunking.MaxChars {
		return fmt.Errorf("invalid configuration: chunking overlap_chars (%d) must be smaller than max_chars (%d)",
			c.Chunking.OverlapChars, c.Chunking.MaxChars)
	}

	shortDur, err := c.RateLimit.Short.ParseDuration()
	if err != nil {
		return fmt.Errorf("invalid configuration: rate_limit.short.duration: %w", err)
	}
	longDur, err := c.RateLimit.Long.ParseDuration()
	if err != nil {
		return fmt.Errorf("invalid configuration: rate_limit.long.duration: %w", err)
	}
	if shortDur >= longDur {
		return fmt.Errorf("invalid configuration: rate_limit.short.duration (%s) must be shorter than rate_limit.long.duration (%s)",
			c.RateLimit.Short.Duration, c.RateLimit.Long.Duration)
	}

	switch c.LLM.DefaultProvider {
	case LLMProviderGemini, LLMProviderClaude:
	default:
		return fmt.Errorf("invalid configuration: llm.default_provider must be %q or %q, got %q",
			LLMProviderGemini, LLMProviderClaude, c.LLM.DefaultProvider)
	}

	return nil
}

// IsProduction returns true when running in production mode
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// ChatModel returns the model ID of the configured default chat provider.
func (c *Config) ChatModel() string {
	if c.LLM.DefaultProvider == LLMProviderClaude {
		return c.Claude.Model
	}
	return c.Gemini.Model
}
