package answer

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

type stubAgentic struct {
	response *llm.AgenticResponse
	err      error
	prompts  []string
}

func (s *stubAgentic) ChatWithSearch(ctx context.Context, history []llm.Message, options ...llm.Option) (*llm.AgenticResponse, error) {
	for _, m := range history {
		s.prompts = append(s.prompts, m.Content)
	}
	return s.response, s.err
}

type stubChat struct {
	response string
	err      error
	called   bool
}

func (s *stubChat) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	s.called = true
	return s.response, s.err
}

func (s *stubChat) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	s.called = true
	return s.response, s.err
}

func testLogger() *log.Logger {
	return log.New(&strings.Builder{}, "", 0)
}

func TestSynthesizePrimarySuccess(t *testing.T) {
	primary := &stubAgentic{response: &llm.AgenticResponse{
		Content:      "1. 환불은 14일 이내 가능합니다.",
		CitationURLs: []string{"https://example.com/refunds"},
	}}
	fallback := &stubChat{response: "unused"}

	s := NewSynthesizer(primary, fallback, DefaultConfig(), testLogger())
	result := s.Synthesize(context.Background(), Request{Message: "환불 정책은?"})

	assert.Equal(t, "1. 환불은 14일 이내 가능합니다.", result.Content)
	assert.False(t, fallback.called, "fallback must not run when primary succeeds")
	require.Len(t, result.WebCitations, 1)
	assert.Equal(t, "https://example.com/refunds", result.WebCitations[0].URL)
	assert.Equal(t, "example.com", result.WebCitations[0].Source)
}

func TestSynthesizePrimaryFailureFallsBack(t *testing.T) {
	primary := &stubAgentic{err: errors.New("timeout")}
	fallback := &stubChat{response: "fallback answer"}

	s := NewSynthesizer(primary, fallback, DefaultConfig(), testLogger())
	result := s.Synthesize(context.Background(), Request{Message: "질문"})

	assert.Equal(t, "fallback answer", result.Content)
	assert.True(t, fallback.called)
	assert.NotEmpty(t, result.Content)
}

func TestSynthesizeBothFailStillAnswers(t *testing.T) {
	primary := &stubAgentic{err: errors.New("down")}
	fallback := &stubChat{err: errors.New("also down")}

	s := NewSynthesizer(primary, fallback, DefaultConfig(), testLogger())
	result := s.Synthesize(context.Background(), Request{Message: "질문"})

	assert.NotEmpty(t, result.Content, "a total outage still yields a structured answer")
}

func TestSynthesizePromptCarriesContexts(t *testing.T) {
	primary := &stubAgentic{response: &llm.AgenticResponse{Content: "ok"}}

	s := NewSynthesizer(primary, &stubChat{}, DefaultConfig(), testLogger())
	s.Synthesize(context.Background(), Request{
		Message:          "질문",
		KnowledgeContext: "KNOWLEDGE-BLOCK",
		WebContext:       "WEB-BLOCK",
		HistoryText:      "HISTORY-BLOCK",
	})

	joined := strings.Join(primary.prompts, "\n")
	assert.Contains(t, joined, "KNOWLEDGE-BLOCK")
	assert.Contains(t, joined, "WEB-BLOCK")
	assert.Contains(t, joined, "HISTORY-BLOCK")
	assert.Contains(t, joined, "Never use markdown")
}

func TestMergeCitationsCap(t *testing.T) {
	var citations []rag.WebCitation
	for i := 0; i < 4; i++ {
		citations = append(citations, rag.WebCitation{URL: "https://a.com/" + string(rune('0'+i))})
	}
	urls := []string{"https://b.com/1", "https://b.com/2", "https://b.com/3"}

	merged := MergeCitations(citations, urls, true)

	assert.Len(t, merged, 5)
	assert.Equal(t, "https://a.com/0", merged[0].URL, "pre-computed citations rank ahead of provider URLs")
}

func TestMergeCitationsDedupe(t *testing.T) {
	citations := []rag.WebCitation{{URL: "https://example.com/page"}}
	urls := []string{"https://example.com/page/", "HTTPS://EXAMPLE.COM/PAGE"}

	deduped := MergeCitations(citations, urls, true)
	assert.Len(t, deduped, 1)

	kept := MergeCitations(citations, urls, false)
	assert.Len(t, kept, 3, "dedupe off keeps the historical duplicate behavior")
}
