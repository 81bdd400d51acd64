package llm

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultMaxRetries is the default retry attempt count for provider calls
	DefaultMaxRetries = 5

	// DefaultInitialBackoff matches the provider quota window reset time
	DefaultInitialBackoff = 45 * time.Second

	// DefaultMaxBackoff caps the wait between retries
	DefaultMaxBackoff = 90 * time.Second

	// DefaultBackoffMultiplier is applied to the backoff on each retry
	DefaultBackoffMultiplier = 1.5
)

// RetryConfig controls the retry schedule for transient provider errors.
type RetryConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// NewDefaultRetryConfig returns the standard retry schedule.
func NewDefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:        DefaultMaxRetries,
		InitialBackoff:    DefaultInitialBackoff,
		MaxBackoff:        DefaultMaxBackoff,
		BackoffMultiplier: DefaultBackoffMultiplier,
	}
}

// IsRateLimitError checks if an error is a provider rate limit error.
// Matches 429 status codes and RESOURCE_EXHAUSTED errors.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "RESOURCE_EXHAUSTED") ||
		strings.Contains(errStr, "quota") ||
		strings.Contains(errStr, "rate_limit") ||
		strings.Contains(errStr, "overloaded")
}

// IsAuthError checks if an error is a non-retryable credential or
// permission failure.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "401") ||
		strings.Contains(errStr, "403") ||
		strings.Contains(errStr, "API key") ||
		strings.Contains(errStr, "API_KEY_INVALID") ||
		strings.Contains(errStr, "PERMISSION_DENIED") ||
		strings.Contains(errStr, "authentication")
}

// retryDelayRegex matches "Please retry in Xs" or "retryDelay:Xs" patterns
var retryDelayRegex = regexp.MustCompile(`(?i)(?:Please retry in |retryDelay[:\s]+)(\d+(?:\.\d+)?)\s*s`)

// ExtractRetryDelay parses the provider-suggested retry delay out of an
// error message. Returns 0 when no delay is present.
func ExtractRetryDelay(err error) time.Duration {
	if err == nil {
		return 0
	}

	matches := retryDelayRegex.FindStringSubmatch(err.Error())
	if len(matches) < 2 {
		return 0
	}

	seconds, parseErr := strconv.ParseFloat(matches[1], 64)
	if parseErr != nil {
		return 0
	}

	return time.Duration(seconds * float64(time.Second))
}

// CalculateBackoff returns the wait before the given retry attempt
// (0-based). A provider-suggested delay wins when it exceeds the
// computed exponential backoff.
func (c *RetryConfig) CalculateBackoff(attempt int, suggested time.Duration) time.Duration {
	backoff := time.Duration(float64(c.InitialBackoff) * math.Pow(c.BackoffMultiplier, float64(attempt)))
	if backoff > c.MaxBackoff {
		backoff = c.MaxBackoff
	}
	if suggested > backoff {
		backoff = suggested
	}
	return backoff
}
