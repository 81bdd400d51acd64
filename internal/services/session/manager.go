// -----------------------------------------------------------------------
// Package session keeps per-session conversation history in memory
// -----------------------------------------------------------------------

package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/consilio/internal/common"
	"github.com/ternarybob/consilio/internal/models"
)

// Manager tracks conversation sessions. Unknown session IDs create a
// fresh session, so clients can hand back the ID from a previous
// response or start cold with an empty one.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*models.SessionState
	logger   arbor.ILogger
}

func NewManager(logger arbor.ILogger) *Manager {
	return &Manager{
		sessions: map[string]*models.SessionState{},
		logger:   logger,
	}
}

// GetOrCreate returns the session for the given ID, creating it when
// the ID is empty or unknown.
func (m *Manager) GetOrCreate(sessionID string) *models.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sessionID != "" {
		if state, ok := m.sessions[sessionID]; ok {
			return state
		}
	}

	if sessionID == "" {
		sessionID = common.NewSessionID()
	}

	state := &models.SessionState{
		ID:        sessionID,
		CreatedAt: time.Now().UTC(),
	}
	m.sessions[sessionID] = state

	m.logger.Debug().
		Str("session_id", sessionID).
		Msg("Session created")

	return state
}

// AppendTurn records a turn on the session, creating the session if
// needed. Turns appear in the order AppendTurn is called.
func (m *Manager) AppendTurn(sessionID string, turn models.Turn) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[sessionID]
	if !ok || sessionID == "" {
		if sessionID == "" {
			sessionID = common.NewSessionID()
		}
		state = &models.SessionState{
			ID:        sessionID,
			CreatedAt: time.Now().UTC(),
		}
		m.sessions[sessionID] = state
	}

	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	state.Turns = append(state.Turns, turn)
	return sessionID
}

// History returns a copy of the most recent turns, newest last. A
// maxTurns of 0 or less returns the full history.
func (m *Manager) History(sessionID string, maxTurns int) []models.Turn {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[sessionID]
	if !ok {
		return nil
	}

	turns := state.Turns
	if maxTurns > 0 && len(turns) > maxTurns {
		turns = turns[len(turns)-maxTurns:]
	}

	out := make([]models.Turn, len(turns))
	copy(out, turns)
	return out
}

// Get returns a copy of the session state for an existing session.
func (m *Manager) Get(sessionID string) (*models.SessionState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrSessionNotFound, sessionID)
	}

	snapshot := &models.SessionState{
		ID:        state.ID,
		CreatedAt: state.CreatedAt,
		Turns:     make([]models.Turn, len(state.Turns)),
	}
	copy(snapshot.Turns, state.Turns)
	return snapshot, nil
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
