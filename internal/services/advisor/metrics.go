package advisor

import (
	"math"
	"sync"
	"time"
)

// Metrics is a point-in-time view of advisory activity since startup.
type Metrics struct {
	TotalQuestions   int64   `json:"total_questions"`
	TotalErrors      int64   `json:"total_errors"`
	ToolInvocations  int64   `json:"tool_invocations"`
	AverageElapsedMS float64 `json:"average_elapsed_ms"`
	ErrorRatePercent float64 `json:"error_rate_percent"`
}

// metricsTracker accumulates per-question counters. Rejected input never
// reaches the pipeline and is not counted.
type metricsTracker struct {
	mu           sync.Mutex
	answered     int64
	failed       int64
	toolCalls    int64
	totalElapsed time.Duration
}

func (m *metricsTracker) recordAnswer(elapsed time.Duration, usedTool bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answered++
	m.totalElapsed += elapsed
	if usedTool {
		m.toolCalls++
	}
}

func (m *metricsTracker) recordError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed++
}

func (m *metricsTracker) snapshot() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := m.answered + m.failed
	out := Metrics{
		TotalQuestions:  total,
		TotalErrors:     m.failed,
		ToolInvocations: m.toolCalls,
	}
	if m.answered > 0 {
		avg := float64(m.totalElapsed.Milliseconds()) / float64(m.answered)
		out.AverageElapsedMS = math.Round(avg*100) / 100
	}
	if total > 0 {
		out.ErrorRatePercent = math.Round(float64(m.failed)/float64(total)*10000) / 100
	}
	return out
}
