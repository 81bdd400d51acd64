package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/consilio/internal/common"
	"github.com/ternarybob/consilio/internal/models"
)

// Limiter enforces two per-session sliding windows (for example 10
// requests per minute and 100 per hour). Admission is checked before any
// retrieval or provider work is spent on a request. Sessions are fully
// isolated from each other.
//
// Outbound pacing toward the providers is a separate concern handled
// inside the LLM service; this limiter only governs inbound sessions.
type Limiter struct {
	mu       sync.Mutex
	short    window
	long     window
	sessions map[string][]time.Time
	logger   arbor.ILogger
	now      func() time.Time
}

type window struct {
	label    string
	count    int
	duration time.Duration
}

// Decision is the admission outcome for one request.
type Decision struct {
	Allowed    bool
	Window     string        // label of the binding window when denied
	RetryAfter time.Duration // wait until the oldest request in that window expires
}

// NewLimiter builds a limiter from the validated configuration.
func NewLimiter(config common.RateLimitConfig, logger arbor.ILogger) (*Limiter, error) {
	shortDur, err := config.Short.ParseDuration()
	if err != nil {
		return nil, fmt.Errorf("invalid short window duration: %w", err)
	}
	longDur, err := config.Long.ParseDuration()
	if err != nil {
		return nil, fmt.Errorf("invalid long window duration: %w", err)
	}

	return &Limiter{
		short:    window{label: config.Short.Duration, count: config.Short.Count, duration: shortDur},
		long:     window{label: config.Long.Duration, count: config.Long.Count, duration: longDur},
		sessions: map[string][]time.Time{},
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Admit checks both windows for the session and records the request when
// admitted. Denied requests are not recorded and do not consume quota.
func (l *Limiter) Admit(sessionID string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	history := l.prune(sessionID, now)

	decision := l.check(history, now)
	if !decision.Allowed {
		l.logger.Warn().
			Str("session_id", sessionID).
			Str("window", decision.Window).
			Dur("retry_after", decision.RetryAfter).
			Msg("Session rate limited")
		return decision
	}

	l.sessions[sessionID] = append(history, now)
	return decision
}

// Check reports whether the session would be admitted without consuming
// quota.
func (l *Limiter) Check(sessionID string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	return l.check(l.prune(sessionID, now), now)
}

// check evaluates both windows. When both deny, the reported wait is the
// longer one; the session cannot be admitted sooner than both allow.
func (l *Limiter) check(history []time.Time, now time.Time) Decision {
	decision := Decision{Allowed: true}

	for _, w := range []window{l.short, l.long} {
		inWindow := 0
		var oldest time.Time
		for _, ts := range history {
			if now.Sub(ts) < w.duration {
				if inWindow == 0 {
					oldest = ts
				}
				inWindow++
			}
		}
		if inWindow < w.count {
			continue
		}

		retryAfter := oldest.Add(w.duration).Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		if decision.Allowed || retryAfter > decision.RetryAfter {
			decision = Decision{Allowed: false, Window: w.label, RetryAfter: retryAfter}
		}
	}

	return decision
}

// prune drops timestamps older than the long window; they can never bind
// again. Called with the mutex held.
func (l *Limiter) prune(sessionID string, now time.Time) []time.Time {
	history := l.sessions[sessionID]
	cutoff := now.Add(-l.long.duration)

	kept := history[:0]
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) == 0 {
		delete(l.sessions, sessionID)
		return nil
	}
	l.sessions[sessionID] = kept
	return kept
}

// Err converts a denied decision into the typed error handlers map to a
// 429 response.
func (d Decision) Err(sessionID string) error {
	if d.Allowed {
		return nil
	}
	return &models.RateLimitedError{
		SessionID:  sessionID,
		Window:     d.Window,
		RetryAfter: d.RetryAfter,
	}
}
