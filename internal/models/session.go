package models

import "time"

// Turn is one entry in a session's conversation history.
type Turn struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	ToolName  string    `json:"tool_name,omitempty"` // set when the answer came from a tool
	CreatedAt time.Time `json:"created_at"`
}

// SessionState holds the per-session conversation history. Rate-limit
// windows and usage counters live in their own services keyed by the
// session ID; this struct only carries what a transcript needs.
type SessionState struct {
	ID        string    `json:"id"` // ses_{uuid}
	CreatedAt time.Time `json:"created_at"`
	Turns     []Turn    `json:"turns"`
}
