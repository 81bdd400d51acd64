package models

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for conditions callers branch on with errors.Is.
var (
	// ErrNoIndexAvailable means retrieval was attempted before any index
	// was built or loaded.
	ErrNoIndexAvailable = errors.New("no vector index available")

	// ErrEmbeddingUnavailable means the embedding provider rejected the
	// request for a non-transient reason (bad credentials, revoked key,
	// model not found). Retrying will not help.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrUnknownTool means a tool invocation named a tool that is not
	// registered with the dispatcher.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrInvalidInput means a question failed validation before any
	// retrieval or provider call was made.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSessionNotFound means no conversation exists for the
	// requested session ID.
	ErrSessionNotFound = errors.New("session not found")
)

// CorpusReadError wraps a filesystem failure for a specific corpus file.
// Ingestion treats any unreadable corpus file as fatal rather than
// silently indexing a partial corpus.
type CorpusReadError struct {
	Path string
	Err  error
}

func (e *CorpusReadError) Error() string {
	return fmt.Sprintf("corpus file unreadable: %s: %v", e.Path, e.Err)
}

func (e *CorpusReadError) Unwrap() error { return e.Err }

// InvalidChunkConfigError reports a chunking configuration where the
// overlap is not strictly smaller than the chunk size, which would make
// the chunker loop forever or emit empty windows.
type InvalidChunkConfigError struct {
	MaxChars     int
	OverlapChars int
}

func (e *InvalidChunkConfigError) Error() string {
	return fmt.Sprintf("invalid chunk config: overlap %d must be smaller than chunk size %d", e.OverlapChars, e.MaxChars)
}

// TransientProviderError wraps a provider failure that survived the full
// retry schedule. The original provider error is preserved for logs; the
// message itself stays safe to show to callers.
type TransientProviderError struct {
	Operation string // "embed" or "chat"
	Attempts  int
	Err       error
}

func (e *TransientProviderError) Error() string {
	return fmt.Sprintf("%s call failed after %d attempts", e.Operation, e.Attempts)
}

func (e *TransientProviderError) Unwrap() error { return e.Err }

// UnknownPricingModelError means a usage record was submitted for a model
// that has no entry in the pricing table. Accounting refuses to guess.
type UnknownPricingModelError struct {
	ModelID string
}

func (e *UnknownPricingModelError) Error() string {
	return fmt.Sprintf("no pricing configured for model %q", e.ModelID)
}

// InvalidToolArgumentsError reports a schema violation in a tool call,
// naming the offending field so the caller can correct it.
type InvalidToolArgumentsError struct {
	Tool   string
	Field  string
	Reason string
}

func (e *InvalidToolArgumentsError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid arguments for tool %q: %s", e.Tool, e.Reason)
	}
	return fmt.Sprintf("invalid arguments for tool %q: field %q: %s", e.Tool, e.Field, e.Reason)
}

// ToolExecutionError wraps a failure raised by a tool after its arguments
// validated successfully.
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %q failed: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }

// RateLimitedError is returned when a session has exhausted one of its
// request windows. RetryAfter is the wait until the oldest request in the
// binding window expires.
type RateLimitedError struct {
	SessionID  string
	Window     string // "minute" or "hour" style label of the binding window
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded for session %s (%s window): retry in %s", e.SessionID, e.Window, e.RetryAfter.Round(time.Second))
}
