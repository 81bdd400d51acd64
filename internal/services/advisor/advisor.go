// -----------------------------------------------------------------------
// Package advisor orchestrates one question-answer round trip: rate
// admission, input validation, tool routing or retrieval, chat
// completion, and usage accounting
// -----------------------------------------------------------------------

package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/consilio/internal/interfaces"
	"github.com/ternarybob/consilio/internal/models"
	"github.com/ternarybob/consilio/internal/services/ratelimit"
	"github.com/ternarybob/consilio/internal/services/retrieval"
	"github.com/ternarybob/consilio/internal/services/session"
	"github.com/ternarybob/consilio/internal/services/tools"
	"github.com/ternarybob/consilio/internal/services/usage"
	"github.com/ternarybob/consilio/internal/services/validation"
)

// How many prior turns accompany a question to the chat model.
const maxHistoryTurns = 10

// How many related excerpts accompany a tool report.
const relatedDocsLimit = 2

// Advisor answers questions against the indexed corpus. Tool-pattern
// questions run a local analysis tool instead of the chat model.
type Advisor struct {
	llm        interfaces.LLMService
	planner    *retrieval.Planner
	limiter    *ratelimit.Limiter
	validator  *validation.InputValidationService
	dispatcher *tools.Dispatcher
	sessions   *session.Manager
	accountant *usage.Accountant
	metrics    metricsTracker
	logger     arbor.ILogger
}

// Answer is the result of one advisory round trip.
type Answer struct {
	SessionID string              `json:"session_id"`
	Answer    string              `json:"answer"`
	Citations []models.Citation   `json:"citations,omitempty"`
	ToolUsed  string              `json:"tool_used,omitempty"`
	ModelID   string              `json:"model_id,omitempty"`
	Usage     *models.UsageTotals `json:"-"`
	Elapsed   time.Duration       `json:"-"`
}

// NewAdvisor wires the advisory pipeline.
func NewAdvisor(
	llm interfaces.LLMService,
	planner *retrieval.Planner,
	limiter *ratelimit.Limiter,
	validator *validation.InputValidationService,
	dispatcher *tools.Dispatcher,
	sessions *session.Manager,
	accountant *usage.Accountant,
	logger arbor.ILogger,
) *Advisor {
	return &Advisor{
		llm:        llm,
		planner:    planner,
		limiter:    limiter,
		validator:  validator,
		dispatcher: dispatcher,
		sessions:   sessions,
		accountant: accountant,
		logger:     logger,
	}
}

// Ask answers one question in the given session. An empty sessionID
// starts a new session; the assigned ID comes back on the Answer.
//
// Admission runs before anything else: a rate-limited question costs no
// validation, no embedding, and no provider call.
func (a *Advisor) Ask(ctx context.Context, sessionID, question string) (*Answer, error) {
	started := time.Now()

	state := a.sessions.GetOrCreate(sessionID)

	if decision := a.limiter.Admit(state.ID); !decision.Allowed {
		return nil, decision.Err(state.ID)
	}

	result := a.validator.ValidateQuestion(question)
	if !result.Valid {
		return nil, fmt.Errorf("%w: %s", models.ErrInvalidInput, result.Message)
	}
	trimmed := strings.TrimSpace(question)

	var answer *Answer
	var err error
	if invocation := tools.DetectInvocation(trimmed); invocation != nil {
		answer, err = a.askTool(ctx, state.ID, trimmed, invocation)
	} else {
		answer, err = a.askRetrieval(ctx, state.ID, trimmed)
	}
	if err != nil {
		a.metrics.recordError()
		return nil, err
	}

	a.sessions.AppendTurn(state.ID, models.Turn{Role: "user", Content: trimmed})
	a.sessions.AppendTurn(state.ID, models.Turn{
		Role:     "assistant",
		Content:  answer.Answer,
		ToolName: answer.ToolUsed,
	})

	answer.Elapsed = time.Since(started)
	totals := a.accountant.Totals(state.ID)
	answer.Usage = &totals
	a.metrics.recordAnswer(answer.Elapsed, answer.ToolUsed != "")

	a.logger.Info().
		Str("session_id", state.ID).
		Str("tool", answer.ToolUsed).
		Int("citations", len(answer.Citations)).
		Dur("elapsed", answer.Elapsed).
		Msg("Question answered")

	return answer, nil
}

// Metrics reports question counters and timings since startup.
func (a *Advisor) Metrics() Metrics {
	return a.metrics.snapshot()
}

// askTool runs a local analysis tool and attaches related documentation
// excerpts when the index has any.
func (a *Advisor) askTool(ctx context.Context, sessionID, question string, invocation *models.ToolInvocation) (*Answer, error) {
	toolResult, err := a.dispatcher.Dispatch(ctx, *invocation)
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	fmt.Fprintf(&text, "## %s Results\n\n%s", toolResult.Label, toolResult.Report)

	// Related docs are best effort; tool output stands on its own.
	var citations []models.Citation
	retrieved, err := a.retrieveRecorded(ctx, sessionID, question)
	if err == nil && len(retrieved.Chunks) > 0 {
		text.WriteString("\n\n---\n\n## Related Documentation\n\n")
		for i, scored := range retrieved.Chunks {
			if i >= relatedDocsLimit {
				break
			}
			fmt.Fprintf(&text, "**%d. From %s:**\n%s\n\n", i+1, scored.Chunk.DocumentTitle, excerpt(scored.Chunk.Text, 300))
		}
		citations = retrieved.Citations
	}

	return &Answer{
		SessionID: sessionID,
		Answer:    text.String(),
		Citations: citations,
		ToolUsed:  toolResult.Label,
	}, nil
}

// askRetrieval runs the retrieval-augmented chat path.
func (a *Advisor) askRetrieval(ctx context.Context, sessionID, question string) (*Answer, error) {
	retrieved, err := a.retrieveRecorded(ctx, sessionID, question)
	if err != nil {
		return nil, err
	}

	if len(retrieved.Chunks) == 0 {
		return &Answer{
			SessionID: sessionID,
			Answer: "I couldn't find relevant information in the documentation for your question. " +
				"Please try rephrasing or asking about specific topics like Apex, SOQL, governor limits, security, or integration patterns.",
		}, nil
	}

	messages := a.buildMessages(sessionID, question, retrieved.ContextText)

	chatStarted := time.Now()
	chat, chatErr := a.llm.Chat(ctx, messages)
	a.recordChat(sessionID, chat, chatErr, time.Since(chatStarted))
	if chatErr != nil {
		return nil, chatErr
	}

	return &Answer{
		SessionID: sessionID,
		Answer:    chat.Text,
		Citations: retrieved.Citations,
		ModelID:   chat.ModelID,
	}, nil
}

// retrieveRecorded runs retrieval and accounts for the embedding call.
// An absent index is reported as a zero-result retrieval so callers keep
// their tool output or fall back to the no-context answer.
func (a *Advisor) retrieveRecorded(ctx context.Context, sessionID, question string) (*retrieval.Result, error) {
	embedStarted := time.Now()
	retrieved, err := a.planner.Retrieve(ctx, question)
	if err != nil {
		if errors.Is(err, models.ErrNoIndexAvailable) {
			return &retrieval.Result{}, nil
		}
		a.recordEmbed(sessionID, question, time.Since(embedStarted), err)
		return nil, err
	}

	a.recordEmbed(sessionID, question, time.Since(embedStarted), nil)
	return retrieved, nil
}

// buildMessages assembles the chat request: system prompt, recent
// history, then the context-laden question.
func (a *Advisor) buildMessages(sessionID, question, contextText string) []interfaces.Message {
	messages := []interfaces.Message{{Role: "system", Content: systemPrompt}}

	for _, turn := range a.sessions.History(sessionID, maxHistoryTurns) {
		role := turn.Role
		if role != "user" && role != "assistant" {
			continue
		}
		messages = append(messages, interfaces.Message{Role: role, Content: turn.Content})
	}

	messages = append(messages, interfaces.Message{
		Role:    "user",
		Content: fmt.Sprintf("%s\n\nQuestion: %s", contextText, question),
	})
	return messages
}

const systemPrompt = `You are a Salesforce Architecture & Best Practices Advisor. Use the provided context from official Salesforce documentation to provide expert guidance.

Instructions:
- Provide detailed, actionable advice based on the documentation context
- Include specific examples and code snippets when relevant
- Reference best practices and governor limits when applicable
- Mention security considerations when relevant
- Cite which guide the information comes from
- For architecture decisions, provide pros and cons of different approaches`

func (a *Advisor) recordEmbed(sessionID, question string, latency time.Duration, embedErr error) {
	call := usage.Call{
		SessionID:   sessionID,
		ModelID:     a.llm.EmbedModelID(),
		Operation:   models.OperationEmbed,
		InputTokens: estimateTokens(question),
		Latency:     latency,
		Success:     embedErr == nil,
	}
	if embedErr != nil {
		call.ErrorKind = errorKind(embedErr)
	}
	if _, err := a.accountant.Record(call); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to record embedding usage")
	}
}

func (a *Advisor) recordChat(sessionID string, chat *interfaces.ChatResult, chatErr error, latency time.Duration) {
	call := usage.Call{
		SessionID: sessionID,
		ModelID:   a.llm.ChatModelID(),
		Operation: models.OperationChat,
		Latency:   latency,
		Success:   chatErr == nil,
	}
	if chat != nil {
		call.ModelID = chat.ModelID
		call.InputTokens = chat.Usage.InputTokens
		call.OutputTokens = chat.Usage.OutputTokens
	}
	if chatErr != nil {
		call.ErrorKind = errorKind(chatErr)
	}
	if _, err := a.accountant.Record(call); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to record chat usage")
	}
}

// estimateTokens approximates token counts for calls whose provider
// reports none. Four characters per token is the usual rough ratio.
func estimateTokens(text string) int64 {
	n := int64(utf8.RuneCountInString(text)) / 4
	if n < 1 {
		n = 1
	}
	return n
}

func errorKind(err error) string {
	var transient *models.TransientProviderError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &transient):
		return "transient"
	case errors.Is(err, models.ErrEmbeddingUnavailable):
		return "auth"
	default:
		return "provider"
	}
}

func excerpt(text string, maxRunes int) string {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return string(runes[:maxRunes]) + "..."
}
