package llm

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsRateLimitError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"429 status", errors.New("googleapi: Error 429: quota exceeded"), true},
		{"resource exhausted", errors.New("rpc error: code = ResourceExhausted desc = RESOURCE_EXHAUSTED"), true},
		{"quota message", errors.New("quota exceeded for metric"), true},
		{"anthropic overloaded", errors.New("overloaded_error: Overloaded"), true},
		{"auth failure", errors.New("Error 401: invalid API key"), false},
		{"generic failure", errors.New("connection reset by peer"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRateLimitError(tt.err))
		})
	}
}

func TestIsAuthError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"401", errors.New("Error 401: unauthorized"), true},
		{"403", errors.New("Error 403: forbidden"), true},
		{"invalid key", errors.New("API_KEY_INVALID: check credentials"), true},
		{"permission denied", errors.New("PERMISSION_DENIED"), true},
		{"rate limit", errors.New("Error 429: quota"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsAuthError(tt.err))
		})
	}
}

func TestExtractRetryDelay(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected time.Duration
	}{
		{"nil error", nil, 0},
		{"please retry", errors.New("Error 429: Please retry in 30s"), 30 * time.Second},
		{"retryDelay field", errors.New("retryDelay: 12s"), 12 * time.Second},
		{"fractional seconds", errors.New("Please retry in 2.5s"), 2500 * time.Millisecond},
		{"no delay present", errors.New("quota exceeded"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractRetryDelay(tt.err))
		})
	}
}

func TestCalculateBackoff(t *testing.T) {
	cfg := &RetryConfig{
		InitialBackoff:    10 * time.Second,
		MaxBackoff:        60 * time.Second,
		BackoffMultiplier: 2.0,
	}

	assert.Equal(t, 10*time.Second, cfg.CalculateBackoff(0, 0))
	assert.Equal(t, 20*time.Second, cfg.CalculateBackoff(1, 0))
	assert.Equal(t, 40*time.Second, cfg.CalculateBackoff(2, 0))

	// Capped at MaxBackoff
	assert.Equal(t, 60*time.Second, cfg.CalculateBackoff(5, 0))

	// Provider-suggested delay wins when it exceeds the computed backoff
	assert.Equal(t, 45*time.Second, cfg.CalculateBackoff(0, 45*time.Second))
	assert.Equal(t, 20*time.Second, cfg.CalculateBackoff(1, 5*time.Second))
}
