package models

import "encoding/json"

// ToolInvocation is a routed request for a specific analysis tool with
// raw, not-yet-validated arguments.
type ToolInvocation struct {
	Tool      string          `json:"tool"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolResult is the outcome of a successful tool execution.
type ToolResult struct {
	Tool   string `json:"tool"`
	Label  string `json:"label"` // human-readable tool name for display
	Report string `json:"report"`
}
