package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/consilio/internal/models"
)

// Tool is one locally executed analysis tool. Tools receive arguments
// already validated against their schema.
type Tool interface {
	Name() string
	Label() string
	Schema() Schema
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// Dispatcher routes validated tool invocations to registered tools.
// Unknown tools, schema violations, and execution failures map onto
// distinct error types so callers can respond appropriately.
type Dispatcher struct {
	tools  map[string]Tool
	order  []string
	logger arbor.ILogger
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(logger arbor.ILogger) *Dispatcher {
	return &Dispatcher{
		tools:  map[string]Tool{},
		logger: logger,
	}
}

// Register adds a tool. Registering a duplicate name replaces the
// previous tool.
func (d *Dispatcher) Register(tool Tool) {
	if _, exists := d.tools[tool.Name()]; !exists {
		d.order = append(d.order, tool.Name())
	}
	d.tools[tool.Name()] = tool
}

// Names returns the registered tool names in registration order.
func (d *Dispatcher) Names() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// Dispatch validates the invocation and runs the tool.
func (d *Dispatcher) Dispatch(ctx context.Context, invocation models.ToolInvocation) (*models.ToolResult, error) {
	tool, ok := d.tools[invocation.Tool]
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownTool, invocation.Tool)
	}

	args, err := tool.Schema().Validate(invocation.Tool, invocation.Arguments)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	report, err := tool.Execute(ctx, args)
	if err != nil {
		d.logger.Warn().
			Str("tool", invocation.Tool).
			Err(err).
			Msg("Tool execution failed")
		return nil, &models.ToolExecutionError{Tool: invocation.Tool, Err: err}
	}

	d.logger.Debug().
		Str("tool", invocation.Tool).
		Dur("elapsed", time.Since(started)).
		Msg("Tool executed")

	return &models.ToolResult{
		Tool:   invocation.Tool,
		Label:  tool.Label(),
		Report: report,
	}, nil
}

// invocationArgs marshals a single-field argument map for routing
// helpers.
func invocationArgs(field, value string) json.RawMessage {
	raw, _ := json.Marshal(map[string]string{field: value})
	return raw
}
