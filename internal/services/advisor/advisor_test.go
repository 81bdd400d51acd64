package advisor

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/consilio/internal/common"
	"github.com/ternarybob/consilio/internal/interfaces"
	"github.com/ternarybob/consilio/internal/models"
	"github.com/ternarybob/consilio/internal/services/index"
	"github.com/ternarybob/consilio/internal/services/ratelimit"
	"github.com/ternarybob/consilio/internal/services/retrieval"
	"github.com/ternarybob/consilio/internal/services/session"
	"github.com/ternarybob/consilio/internal/services/tools"
	"github.com/ternarybob/consilio/internal/services/usage"
	"github.com/ternarybob/consilio/internal/services/validation"
)

// stubLLM counts calls and captures the last chat request.
type stubLLM struct {
	vector       []float32
	embedCalls   int
	chatCalls    int
	lastMessages []interfaces.Message
}

func (s *stubLLM) Embed(ctx context.Context, text string) ([]float32, error) {
	s.embedCalls++
	return s.vector, nil
}

func (s *stubLLM) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.vector
	}
	s.embedCalls += len(texts)
	return out, nil
}

func (s *stubLLM) Chat(ctx context.Context, messages []interfaces.Message) (*interfaces.ChatResult, error) {
	s.chatCalls++
	s.lastMessages = messages
	return &interfaces.ChatResult{
		Text:    "stub answer",
		ModelID: "stub-chat",
		Usage:   interfaces.TokenUsage{InputTokens: 100, OutputTokens: 50},
	}, nil
}

func (s *stubLLM) EmbedModelID() string                  { return "stub-embed" }
func (s *stubLLM) ChatModelID() string                   { return "stub-chat" }
func (s *stubLLM) HealthCheck(ctx context.Context) error { return nil }
func (s *stubLLM) Close() error                          { return nil }

type fixture struct {
	advisor    *Advisor
	llm        *stubLLM
	accountant *usage.Accountant
}

func newFixture(t *testing.T, shortCount int, withIndex bool) *fixture {
	t.Helper()
	logger := arbor.NewLogger()

	cfg := common.NewDefaultConfig()
	cfg.RateLimit = common.RateLimitConfig{
		Short: common.RateWindow{Count: shortCount, Duration: "1m"},
		Long:  common.RateWindow{Count: 100, Duration: "1h"},
	}

	llm := &stubLLM{vector: []float32{1, 0}}

	idx := index.New()
	if withIndex {
		snap := index.NewSnapshot("fp", 2)
		require.NoError(t, snap.Add(models.Chunk{
			ID: "doc_a_0000", DocumentID: "doc_a", DocumentTitle: "Apex Guide", Ordinal: 0,
			Text: "Governor limits allow 100 SOQL queries per synchronous transaction.",
		}, []float32{1, 0}))
		require.NoError(t, snap.Add(models.Chunk{
			ID: "doc_b_0000", DocumentID: "doc_b", DocumentTitle: "Security Guide", Ordinal: 0,
			Text: "Sharing rules control record visibility.",
		}, []float32{0, 1}))
		idx.Swap(snap)
	}

	planner := retrieval.NewPlanner(cfg.Retrieval, llm, idx, logger)

	limiter, err := ratelimit.NewLimiter(cfg.RateLimit, logger)
	require.NoError(t, err)

	dispatcher := tools.NewDispatcher(logger)
	dispatcher.Register(tools.NewApexReviewer())
	dispatcher.Register(tools.NewSOQLOptimizer())
	dispatcher.Register(tools.NewLimitsCalculator())

	pricing := map[string]common.ModelPricing{
		"stub-embed": {InputPerMillion: 0.10},
		"stub-chat":  {InputPerMillion: 1.00, OutputPerMillion: 5.00},
	}
	accountant := usage.NewAccountant(pricing, logger)

	adv := NewAdvisor(
		llm,
		planner,
		limiter,
		ratelimitValidator(cfg, logger),
		dispatcher,
		session.NewManager(logger),
		accountant,
		logger,
	)

	return &fixture{advisor: adv, llm: llm, accountant: accountant}
}

func ratelimitValidator(cfg *common.Config, logger arbor.ILogger) *validation.InputValidationService {
	return validation.NewInputValidationService(cfg.Validation, logger)
}

func TestAskRetrievalPath(t *testing.T) {
	f := newFixture(t, 10, true)

	answer, err := f.advisor.Ask(context.Background(), "", "How does record sharing work?")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(answer.SessionID, "ses_"))
	assert.Equal(t, "stub answer", answer.Answer)
	assert.Equal(t, "stub-chat", answer.ModelID)
	assert.Empty(t, answer.ToolUsed)
	assert.NotEmpty(t, answer.Citations)

	// One embed and one chat were accounted for
	records := f.accountant.Records(answer.SessionID)
	require.Len(t, records, 2)
	assert.Equal(t, models.OperationEmbed, records[0].Operation)
	assert.Equal(t, models.OperationChat, records[1].Operation)
	assert.Equal(t, int64(100), records[1].InputTokens)
}

func TestAskAppendsTurns(t *testing.T) {
	f := newFixture(t, 10, true)

	first, err := f.advisor.Ask(context.Background(), "", "How does record sharing work?")
	require.NoError(t, err)

	_, err = f.advisor.Ask(context.Background(), first.SessionID, "How does field-level security work?")
	require.NoError(t, err)

	// Second chat request carries the first exchange as history
	require.Equal(t, 2, f.llm.chatCalls)
	var sawHistory bool
	for _, msg := range f.llm.lastMessages {
		if msg.Role == "assistant" && msg.Content == "stub answer" {
			sawHistory = true
		}
	}
	assert.True(t, sawHistory)
}

func TestAskRateLimited(t *testing.T) {
	f := newFixture(t, 1, true)

	first, err := f.advisor.Ask(context.Background(), "", "How does record sharing work?")
	require.NoError(t, err)
	embedsAfterFirst := f.llm.embedCalls

	_, err = f.advisor.Ask(context.Background(), first.SessionID, "Another question about sharing?")
	var limited *models.RateLimitedError
	require.ErrorAs(t, err, &limited)
	assert.Equal(t, first.SessionID, limited.SessionID)

	// A denied question costs no provider calls
	assert.Equal(t, embedsAfterFirst, f.llm.embedCalls)
	assert.Equal(t, 1, f.llm.chatCalls)
}

func TestAskInvalidInput(t *testing.T) {
	f := newFixture(t, 10, true)

	_, err := f.advisor.Ask(context.Background(), "", "   ")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	assert.Equal(t, 0, f.llm.embedCalls)
}

func TestAskToolPath(t *testing.T) {
	f := newFixture(t, 10, true)

	question := `Review this Apex: public class Handler { void run(List<Account> accs) { for (Account a : accs) { update a; } } }`
	answer, err := f.advisor.Ask(context.Background(), "", question)
	require.NoError(t, err)

	assert.Equal(t, "Apex Code Reviewer", answer.ToolUsed)
	assert.Contains(t, answer.Answer, "APEX CODE REVIEW REPORT")
	assert.Contains(t, answer.Answer, "DML operation in loop")

	// The tool path never calls the chat model
	assert.Equal(t, 0, f.llm.chatCalls)
	// Related documentation still costs one embed
	assert.Equal(t, 1, f.llm.embedCalls)
	assert.Contains(t, answer.Answer, "Related Documentation")
}

func TestAskForwardsQuestionVerbatim(t *testing.T) {
	f := newFixture(t, 10, true)

	question := "Why does a < b && c > d comparison fail in my formula field?"
	answer, err := f.advisor.Ask(context.Background(), "", question)
	require.NoError(t, err)

	// The question reaches the chat model and the conversation history
	// exactly as typed; nothing escapes or rewrites it.
	require.NotEmpty(t, f.llm.lastMessages)
	last := f.llm.lastMessages[len(f.llm.lastMessages)-1]
	assert.Contains(t, last.Content, question)

	state, err := f.advisor.sessions.Get(answer.SessionID)
	require.NoError(t, err)
	require.Len(t, state.Turns, 2)
	assert.Equal(t, question, state.Turns[0].Content)
}

func TestAskRecordsMetrics(t *testing.T) {
	f := newFixture(t, 10, true)

	_, err := f.advisor.Ask(context.Background(), "", "How does record sharing work?")
	require.NoError(t, err)

	apexQuestion := `Review this Apex: public class Handler { void run(List<Account> accs) { for (Account a : accs) { update a; } } }`
	_, err = f.advisor.Ask(context.Background(), "", apexQuestion)
	require.NoError(t, err)

	m := f.advisor.Metrics()
	assert.Equal(t, int64(2), m.TotalQuestions)
	assert.Equal(t, int64(1), m.ToolInvocations)
	assert.Equal(t, int64(0), m.TotalErrors)

	// Rejected input never reaches the pipeline and is not counted
	_, err = f.advisor.Ask(context.Background(), "", "   ")
	require.Error(t, err)
	assert.Equal(t, int64(2), f.advisor.Metrics().TotalQuestions)
}

func TestMetricsTracker(t *testing.T) {
	var tr metricsTracker
	tr.recordAnswer(40*time.Millisecond, true)
	tr.recordAnswer(20*time.Millisecond, false)
	tr.recordError()

	m := tr.snapshot()
	assert.Equal(t, int64(3), m.TotalQuestions)
	assert.Equal(t, int64(1), m.TotalErrors)
	assert.Equal(t, int64(1), m.ToolInvocations)
	assert.Equal(t, 30.0, m.AverageElapsedMS)
	assert.Equal(t, 33.33, m.ErrorRatePercent)
}

func TestAskNoIndexFallback(t *testing.T) {
	f := newFixture(t, 10, false)

	answer, err := f.advisor.Ask(context.Background(), "", "How does record sharing work?")
	require.NoError(t, err)

	assert.Contains(t, answer.Answer, "couldn't find relevant information")
	assert.Equal(t, 0, f.llm.chatCalls)
	assert.Equal(t, 0, f.llm.embedCalls)
}
