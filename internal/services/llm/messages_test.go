package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/consilio/internal/interfaces"
)

func TestConvertMessagesToGemini(t *testing.T) {
	t.Run("empty messages", func(t *testing.T) {
		_, _, err := convertMessagesToGemini(nil)
		assert.Error(t, err)
	})

	t.Run("no user message", func(t *testing.T) {
		_, _, err := convertMessagesToGemini([]interfaces.Message{
			{Role: "system", Content: "be helpful"},
		})
		assert.Error(t, err)
	})

	t.Run("system message extracted", func(t *testing.T) {
		contents, system, err := convertMessagesToGemini([]interfaces.Message{
			{Role: "system", Content: "be helpful"},
			{Role: "user", Content: "hello"},
			{Role: "assistant", Content: "hi"},
		})
		require.NoError(t, err)
		assert.Equal(t, "be helpful", system)
		assert.Len(t, contents, 2)
	})
}

func TestConvertMessagesToClaude(t *testing.T) {
	t.Run("empty messages", func(t *testing.T) {
		_, _, err := convertMessagesToClaude(nil)
		assert.Error(t, err)
	})

	t.Run("first system message wins", func(t *testing.T) {
		msgs, system, err := convertMessagesToClaude([]interfaces.Message{
			{Role: "system", Content: "first"},
			{Role: "system", Content: "second"},
			{Role: "user", Content: "hello"},
		})
		require.NoError(t, err)
		assert.Equal(t, "first", system)
		assert.Len(t, msgs, 1)
	})
}
