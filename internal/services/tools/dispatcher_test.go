package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/consilio/internal/models"
)

type stubTool struct {
	name   string
	report string
	err    error
}

func (s *stubTool) Name() string  { return s.name }
func (s *stubTool) Label() string { return "Stub Tool" }
func (s *stubTool) Schema() Schema {
	return Schema{Fields: []Field{{Name: "input", Type: FieldString, Required: true}}}
}
func (s *stubTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	return s.report, s.err
}

func TestDispatcherDispatch(t *testing.T) {
	dispatcher := NewDispatcher(arbor.NewLogger())
	dispatcher.Register(&stubTool{name: "echo", report: "echoed"})

	result, err := dispatcher.Dispatch(context.Background(), models.ToolInvocation{
		Tool:      "echo",
		Arguments: json.RawMessage(`{"input":"hello"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "echo", result.Tool)
	assert.Equal(t, "Stub Tool", result.Label)
	assert.Equal(t, "echoed", result.Report)
}

func TestDispatcherUnknownTool(t *testing.T) {
	dispatcher := NewDispatcher(arbor.NewLogger())

	_, err := dispatcher.Dispatch(context.Background(), models.ToolInvocation{Tool: "missing"})
	assert.ErrorIs(t, err, models.ErrUnknownTool)
}

func TestDispatcherValidatesBeforeExecute(t *testing.T) {
	dispatcher := NewDispatcher(arbor.NewLogger())
	dispatcher.Register(&stubTool{name: "echo", report: "never"})

	_, err := dispatcher.Dispatch(context.Background(), models.ToolInvocation{
		Tool:      "echo",
		Arguments: json.RawMessage(`{}`),
	})
	var invalid *models.InvalidToolArgumentsError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "input", invalid.Field)
}

func TestDispatcherWrapsExecutionFailure(t *testing.T) {
	dispatcher := NewDispatcher(arbor.NewLogger())
	dispatcher.Register(&stubTool{name: "broken", err: errors.New("boom")})

	_, err := dispatcher.Dispatch(context.Background(), models.ToolInvocation{
		Tool:      "broken",
		Arguments: json.RawMessage(`{"input":"x"}`),
	})
	var execErr *models.ToolExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "broken", execErr.Tool)
}

func TestDispatcherNamesInRegistrationOrder(t *testing.T) {
	dispatcher := NewDispatcher(arbor.NewLogger())
	dispatcher.Register(&stubTool{name: "b"})
	dispatcher.Register(&stubTool{name: "a"})
	dispatcher.Register(&stubTool{name: "b"}) // replace keeps position

	assert.Equal(t, []string{"b", "a"}, dispatcher.Names())
}
