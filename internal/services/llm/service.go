package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/ternarybob/consilio/internal/common"
	"github.com/ternarybob/consilio/internal/interfaces"
	"github.com/ternarybob/consilio/internal/models"
)

// Service implements interfaces.LLMService over the Gemini and Anthropic
// APIs. Embeddings always go through Gemini; chat completions go to the
// configured default provider. Outbound calls are paced with a rate
// limiter per provider and retried on transient failures.
type Service struct {
	config *common.Config
	logger arbor.ILogger

	gemini       *genai.Client
	claude       anthropic.Client
	claudeActive bool

	geminiLimiter *rate.Limiter
	claudeLimiter *rate.Limiter
	retry         *RetryConfig
	geminiTimeout time.Duration
	claudeTimeout time.Duration
}

// NewService creates the provider service. A Gemini API key is always
// required because embeddings run on Gemini; an Anthropic key is required
// only when Claude is the default chat provider.
func NewService(ctx context.Context, config *common.Config, logger arbor.ILogger) (*Service, error) {
	if config.Gemini.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY, CONSILIO_GEMINI_API_KEY, or gemini.api_key in config)")
	}

	geminiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.Gemini.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	geminiTimeout, err := time.ParseDuration(config.Gemini.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid gemini.timeout %q: %w", config.Gemini.Timeout, err)
	}
	geminiSpacing, err := time.ParseDuration(config.Gemini.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid gemini.rate_limit %q: %w", config.Gemini.RateLimit, err)
	}

	retry := &RetryConfig{
		MaxRetries:        config.Embedding.MaxRetries,
		InitialBackoff:    DefaultInitialBackoff,
		MaxBackoff:        DefaultMaxBackoff,
		BackoffMultiplier: DefaultBackoffMultiplier,
	}
	if d, err := time.ParseDuration(config.Embedding.InitialBackoff); err == nil && d > 0 {
		retry.InitialBackoff = d
	}
	if d, err := time.ParseDuration(config.Embedding.MaxBackoff); err == nil && d > 0 {
		retry.MaxBackoff = d
	}

	service := &Service{
		config:        config,
		logger:        logger,
		gemini:        geminiClient,
		geminiLimiter: rate.NewLimiter(rate.Every(geminiSpacing), 1),
		retry:         retry,
		geminiTimeout: geminiTimeout,
	}

	if config.LLM.DefaultProvider == common.LLMProviderClaude {
		if config.Claude.APIKey == "" {
			return nil, fmt.Errorf("Anthropic API key is required for the Claude provider (set ANTHROPIC_API_KEY, CONSILIO_CLAUDE_API_KEY, or claude.api_key in config)")
		}
		claudeTimeout, err := time.ParseDuration(config.Claude.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid claude.timeout %q: %w", config.Claude.Timeout, err)
		}
		claudeSpacing, err := time.ParseDuration(config.Claude.RateLimit)
		if err != nil {
			return nil, fmt.Errorf("invalid claude.rate_limit %q: %w", config.Claude.RateLimit, err)
		}
		service.claude = anthropic.NewClient(option.WithAPIKey(config.Claude.APIKey))
		service.claudeActive = true
		service.claudeTimeout = claudeTimeout
		service.claudeLimiter = rate.NewLimiter(rate.Every(claudeSpacing), 1)
	}

	logger.Debug().
		Str("provider", string(config.LLM.DefaultProvider)).
		Str("chat_model", config.ChatModel()).
		Str("embed_model", config.Embedding.Model).
		Int("embed_dimension", config.Embedding.Dimension).
		Msg("LLM service initialized")

	return service, nil
}

// EmbedModelID returns the model ID used for embeddings.
func (s *Service) EmbedModelID() string { return s.config.Embedding.Model }

// ChatModelID returns the model ID used for chat completions.
func (s *Service) ChatModelID() string { return s.config.ChatModel() }

// Embed generates an embedding vector for a single text.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for a batch of texts in one provider
// call, retrying transient failures with exponential backoff. Credential
// failures are reported immediately without retrying.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("texts cannot be empty")
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
	}

	outputDim := int32(s.config.Embedding.Dimension)
	embedConfig := &genai.EmbedContentConfig{
		OutputDimensionality: &outputDim,
	}

	var result *genai.EmbedContentResponse
	attempts := 0
	err := s.withRetry(ctx, "embed", s.geminiLimiter, s.geminiTimeout, func(callCtx context.Context) error {
		attempts++
		var callErr error
		result, callErr = s.gemini.Models.EmbedContent(callCtx, s.config.Embedding.Model, contents, embedConfig)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	if result == nil || len(result.Embeddings) != len(texts) {
		got := 0
		if result != nil {
			got = len(result.Embeddings)
		}
		return nil, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(texts), got)
	}

	vectors := make([][]float32, len(texts))
	for i, embedding := range result.Embeddings {
		if embedding == nil || len(embedding.Values) != s.config.Embedding.Dimension {
			got := 0
			if embedding != nil {
				got = len(embedding.Values)
			}
			return nil, fmt.Errorf("embedding dimension mismatch: expected %d, got %d", s.config.Embedding.Dimension, got)
		}
		vectors[i] = embedding.Values
	}

	s.logger.Debug().
		Int("texts", len(texts)).
		Int("attempts", attempts).
		Msg("Generated embeddings")

	return vectors, nil
}

// Chat generates a completion from the configured default provider.
func (s *Service) Chat(ctx context.Context, messages []interfaces.Message) (*interfaces.ChatResult, error) {
	if s.claudeActive {
		return s.chatClaude(ctx, messages)
	}
	return s.chatGemini(ctx, messages)
}

func (s *Service) chatGemini(ctx context.Context, messages []interfaces.Message) (*interfaces.ChatResult, error) {
	contents, systemText, err := convertMessagesToGemini(messages)
	if err != nil {
		return nil, err
	}

	genConfig := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(s.config.Gemini.Temperature),
	}
	if systemText != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(systemText, genai.RoleUser)
	}

	var resp *genai.GenerateContentResponse
	err = s.withRetry(ctx, "chat", s.geminiLimiter, s.geminiTimeout, func(callCtx context.Context) error {
		var callErr error
		resp, callErr = s.gemini.Models.GenerateContent(callCtx, s.config.Gemini.Model, contents, genConfig)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	text := extractGeminiText(resp)
	if text == "" {
		return nil, fmt.Errorf("no response generated from Gemini API")
	}

	result := &interfaces.ChatResult{
		Text:    text,
		ModelID: s.config.Gemini.Model,
	}
	if resp.UsageMetadata != nil {
		result.Usage = interfaces.TokenUsage{
			InputTokens:  int64(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int64(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return result, nil
}

func (s *Service) chatClaude(ctx context.Context, messages []interfaces.Message) (*interfaces.ChatResult, error) {
	claudeMessages, systemText, err := convertMessagesToClaude(messages)
	if err != nil {
		return nil, err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.config.Claude.Model),
		MaxTokens: int64(s.config.Claude.MaxTokens),
		Messages:  claudeMessages,
	}
	if s.config.Claude.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(s.config.Claude.Temperature))
	}
	if systemText != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: systemText},
		}
	}

	var resp *anthropic.Message
	err = s.withRetry(ctx, "chat", s.claudeLimiter, s.claudeTimeout, func(callCtx context.Context) error {
		var callErr error
		resp, callErr = s.claude.Messages.New(callCtx, params)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("no response generated from Claude API")
	}

	return &interfaces.ChatResult{
		Text:    text.String(),
		ModelID: s.config.Claude.Model,
		Usage: interfaces.TokenUsage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}, nil
}

// withRetry runs one provider call under pacing, timeout, and the retry
// schedule. Auth failures short-circuit as non-retryable; transient
// failures that outlive the schedule are wrapped so callers can tell the
// two cases apart. Raw provider errors are logged, never returned in
// messages shown to end users.
func (s *Service) withRetry(ctx context.Context, operation string, limiter *rate.Limiter, timeout time.Duration, call func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		callCtx, cancel := context.WithTimeout(ctx, timeout)
		err := call(callCtx)
		cancel()

		if err == nil {
			return nil
		}
		lastErr = err

		if IsAuthError(err) {
			s.logger.Error().
				Str("operation", operation).
				Err(err).
				Msg("Provider rejected credentials")
			return fmt.Errorf("%w: provider rejected credentials", models.ErrEmbeddingUnavailable)
		}

		if attempt == s.retry.MaxRetries {
			break
		}

		var backoff time.Duration
		if IsRateLimitError(err) {
			backoff = s.retry.CalculateBackoff(attempt, ExtractRetryDelay(err))
		} else {
			backoff = s.retry.CalculateBackoff(attempt, 0)
		}

		s.logger.Warn().
			Str("operation", operation).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(err).
			Msg("Provider call failed, retrying")

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return &models.TransientProviderError{
		Operation: operation,
		Attempts:  s.retry.MaxRetries + 1,
		Err:       lastErr,
	}
}

// HealthCheck verifies the provider clients are configured.
func (s *Service) HealthCheck(ctx context.Context) error {
	if s.gemini == nil {
		return fmt.Errorf("Gemini client not initialized")
	}
	if s.config.LLM.DefaultProvider == common.LLMProviderClaude && !s.claudeActive {
		return fmt.Errorf("Claude provider selected but not initialized")
	}
	return nil
}

// Close releases provider resources.
func (s *Service) Close() error {
	return nil
}

func extractGeminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	var text strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				text.WriteString(part.Text)
			}
		}
		if text.Len() > 0 {
			break
		}
	}
	return text.String()
}
