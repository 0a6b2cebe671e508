package decision

import (
	"context"
	"errors"
	"log"
	"strings"
	"testing"

	"funnel-canvas-be/pkg/llm"
	"funnel-canvas-be/pkg/rag"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLLM struct {
	response string
	err      error
}

func (s *stubLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return s.response, s.err
}

func (s *stubLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return s.response, s.err
}

func testLogger() *log.Logger {
	return log.New(&strings.Builder{}, "", 0)
}

func retrievalWith(similarities ...float64) *rag.Retrieval {
	r := &rag.Retrieval{RAGSuccess: true, Context: strings.Repeat("funnel knowledge ", 30)}
	for i, s := range similarities {
		r.Chunks = append(r.Chunks, rag.KnowledgeChunk{ID: string(rune('a' + i)), Similarity: s})
	}
	return r
}

func TestHasSufficientKnowledge(t *testing.T) {
	tests := []struct {
		name      string
		retrieval *rag.Retrieval
		want      bool
	}{
		{
			name:      "nil retrieval",
			retrieval: nil,
			want:      false,
		},
		{
			name:      "retrieval failed",
			retrieval: &rag.Retrieval{RAGSuccess: false},
			want:      false,
		},
		{
			name:      "fewer than three chunks",
			retrieval: retrievalWith(0.95, 0.95),
			want:      false,
		},
		{
			name:      "near perfect top match",
			retrieval: retrievalWith(0.92, 0.40, 0.40),
			want:      true,
		},
		{
			name:      "good top backed by good average",
			retrieval: retrievalWith(0.72, 0.62, 0.50),
			want:      true,
		},
		{
			name:      "good top with weak average",
			retrieval: retrievalWith(0.72, 0.20, 0.10),
			want:      false,
		},
		{
			name:      "moderate top backed by depth",
			retrieval: retrievalWith(0.55, 0.52, 0.51, 0.50, 0.50),
			want:      true,
		},
		{
			name:      "moderate top without depth",
			retrieval: retrievalWith(0.55, 0.52, 0.51),
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasSufficientKnowledge(tt.retrieval))
		})
	}
}

func TestHasSufficientKnowledgeShortContext(t *testing.T) {
	r := retrievalWith(0.95, 0.95, 0.95)
	r.Context = "too short"
	assert.False(t, HasSufficientKnowledge(r), "strong matches cannot compensate for a thin context")
}

func TestParseDecision(t *testing.T) {
	tests := []struct {
		name       string
		response   string
		wantAction rag.Action
		wantErr    bool
	}{
		{
			name:       "clean json",
			response:   `{"action": "KNOWLEDGE_ONLY", "reason": "covered"}`,
			wantAction: rag.ActionKnowledgeOnly,
		},
		{
			name:       "json wrapped in prose",
			response:   "Here is my verdict:\n{\"action\": \"WEB_SEARCH\", \"reason\": \"fresh data\", \"search_query\": \"usd krw rate today\"}\nDone.",
			wantAction: rag.ActionWebSearch,
		},
		{
			name:       "truncated json gets repaired",
			response:   `{"action": "CLARIFY", "reason": "ambiguous", "clarification_question": "Which campaign do you mean?"`,
			wantAction: rag.ActionClarify,
		},
		{
			name:       "lowercase action normalized",
			response:   `{"action": "knowledge_summary", "reason": "overview requested"}`,
			wantAction: rag.ActionKnowledgeSummary,
		},
		{
			name:     "unknown action",
			response: `{"action": "DANCE", "reason": "?"}`,
			wantErr:  true,
		},
		{
			name:     "no json at all",
			response: "I cannot decide.",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, err := parseDecision(tt.response)
			if tt.wantErr {
				require.Error(t, err)
				var parseErr *rag.ParseError
				assert.ErrorAs(t, err, &parseErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAction, decision.Action)
		})
	}
}

func TestDecideLLMFailureFallsBackToHeuristic(t *testing.T) {
	engine := NewEngine(&stubLLM{err: errors.New("upstream down")}, testLogger())

	message := "오늘 환율이 어떻게 되나요?"
	decision := engine.Decide(context.Background(), message, nil, &rag.Retrieval{RAGSuccess: false})

	require.NotNil(t, decision)
	assert.Equal(t, rag.ActionWebSearch, decision.Action)
	assert.Equal(t, message, decision.SearchQuery, "fallback searches with the user's own words")
}

func TestDecideMalformedResponseFallsBackToHeuristic(t *testing.T) {
	engine := NewEngine(&stubLLM{response: "sorry, I had trouble with that"}, testLogger())

	decision := engine.Decide(context.Background(), "이 제품의 환불 정책은?", nil, retrievalWith(0.92, 0.80, 0.75))

	require.NotNil(t, decision)
	assert.Equal(t, rag.ActionKnowledgeOnly, decision.Action, "strong retrieval answers from knowledge")
}

func TestDecideInvalidDecisionFallsBackToHeuristic(t *testing.T) {
	// WEB_SEARCH without a query violates the decision invariant.
	engine := NewEngine(&stubLLM{response: `{"action": "WEB_SEARCH", "reason": "fresh"}`}, testLogger())

	decision := engine.Decide(context.Background(), "최신 소식 알려줘", nil, &rag.Retrieval{RAGSuccess: false})

	require.NotNil(t, decision)
	assert.Equal(t, rag.ActionWebSearch, decision.Action)
	assert.NotEmpty(t, decision.SearchQuery)
}

func TestDecideAcceptsValidVerdict(t *testing.T) {
	engine := NewEngine(&stubLLM{response: `{"action": "CONVERSATION_SUMMARY", "reason": "recap requested"}`}, testLogger())

	decision := engine.Decide(context.Background(), "지금까지 얘기한 내용 정리해줘", nil, retrievalWith(0.8, 0.8, 0.8))

	require.NotNil(t, decision)
	assert.Equal(t, rag.ActionConversationSummary, decision.Action)
	require.NoError(t, decision.Validate())
}
