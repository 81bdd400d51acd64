package interfaces

import (
	"context"
)

// Message represents a single message in a chat conversation
type Message struct {
	// Role identifies the message sender: "user", "assistant", or "system"
	Role string

	// Content contains the text content of the message
	Content string
}

// TokenUsage carries the provider-reported token counts for one call.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
}

// ChatResult is the outcome of a successful chat completion, including
// the usage figures accounting needs.
type ChatResult struct {
	Text    string
	ModelID string
	Usage   TokenUsage
}

// LLMService defines the interface for language model operations including
// embeddings generation and chat completions. Implementations may use
// cloud-based APIs (Gemini, Anthropic); the advisor only depends on this
// contract.
type LLMService interface {
	// Embed generates an embedding vector for the given text. The vector
	// length always matches the configured embedding dimension.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for a batch of texts in one call.
	// The result has one vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Chat generates a completion response based on the conversation
	// history. The messages slice should contain the full conversation
	// context including system prompts, user messages, and previous
	// assistant responses.
	Chat(ctx context.Context, messages []Message) (*ChatResult, error)

	// EmbedModelID returns the model ID used for embeddings.
	EmbedModelID() string

	// ChatModelID returns the model ID used for chat completions.
	ChatModelID() string

	// HealthCheck verifies the service is operational and can handle
	// requests.
	HealthCheck(ctx context.Context) error

	// Close releases any resources held by the service.
	Close() error
}
