package models

import "time"

// UsageOperation labels which kind of provider call a usage record covers.
type UsageOperation string

const (
	OperationChat  UsageOperation = "chat"
	OperationEmbed UsageOperation = "embed"
)

// UsageRecord is one append-only accounting entry for a single provider
// call. Records are never mutated after creation; failed calls are
// recorded with zero token counts so the audit trail stays complete.
type UsageRecord struct {
	ID           string         `json:"id"` // use_{uuid}
	Timestamp    time.Time      `json:"timestamp"`
	SessionID    string         `json:"session_id,omitempty"`
	ModelID      string         `json:"model_id"`
	Operation    UsageOperation `json:"operation"`
	InputTokens  int64          `json:"input_tokens"`
	OutputTokens int64          `json:"output_tokens"`
	Cost         float64        `json:"cost"` // USD
	LatencyMS    int64          `json:"latency_ms"`
	Success      bool           `json:"success"`
	ErrorKind    string         `json:"error_kind,omitempty"` // coarse classification, never raw provider text
}

// UsageTotals aggregates usage records. Totals are always recomputed from
// the underlying records rather than kept as running counters.
type UsageTotals struct {
	Calls        int     `json:"calls"`
	Failures     int     `json:"failures"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	Cost         float64 `json:"cost"`
}
