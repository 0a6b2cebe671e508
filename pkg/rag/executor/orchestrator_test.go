package executor

import (
	"context"
	"errors"
	"log"
	"strings"
	"testing"

	"funnel-canvas-be/internal/entity"
	"funnel-canvas-be/internal/repository/contract"
	"funnel-canvas-be/internal/repository/specification"
	"funnel-canvas-be/pkg/llm"
	"funnel-canvas-be/pkg/rag"
	"funnel-canvas-be/pkg/rag/answer"
	"funnel-canvas-be/pkg/rag/decision"
	"funnel-canvas-be/pkg/rag/knowledge"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- collaborator stubs ----

type stubEmbedder struct{ err error }

func (s *stubEmbedder) Generate(ctx context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return make([]float32, 1536), nil
}

type stubChunkRepo struct {
	byScope map[string][]*contract.ScoredKnowledgeChunk
}

func (s *stubChunkRepo) Create(ctx context.Context, chunk *entity.KnowledgeChunk) error { return nil }
func (s *stubChunkRepo) CreateBulk(ctx context.Context, chunks []*entity.KnowledgeChunk) error {
	return nil
}
func (s *stubChunkRepo) DeleteByKnowledgeId(ctx context.Context, knowledgeId uuid.UUID) error {
	return nil
}
func (s *stubChunkRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.KnowledgeChunk, error) {
	return nil, nil
}
func (s *stubChunkRepo) SearchSimilarWithScore(ctx context.Context, embedding []float32, scope string, canvasId uuid.UUID, limit int, threshold float64) ([]*contract.ScoredKnowledgeChunk, error) {
	return s.byScope[scope], nil
}

type stubDocRepo struct {
	titles map[uuid.UUID]string
	recent []*entity.KnowledgeDocument
}

func (s *stubDocRepo) Create(ctx context.Context, doc *entity.KnowledgeDocument) error { return nil }
func (s *stubDocRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.KnowledgeDocument, error) {
	return nil, nil
}
func (s *stubDocRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.KnowledgeDocument, error) {
	return nil, nil
}
func (s *stubDocRepo) FindByIds(ctx context.Context, ids []uuid.UUID) ([]*entity.KnowledgeDocument, error) {
	var docs []*entity.KnowledgeDocument
	for _, id := range ids {
		if title, ok := s.titles[id]; ok {
			docs = append(docs, &entity.KnowledgeDocument{Id: id, Title: title})
		}
	}
	return docs, nil
}
func (s *stubDocRepo) FindRecent(ctx context.Context, canvasId uuid.UUID, limit int) ([]*entity.KnowledgeDocument, error) {
	return s.recent, nil
}

type stubUow struct {
	chunks *stubChunkRepo
	docs   *stubDocRepo
}

func (u *stubUow) Begin(ctx context.Context) error { return nil }
func (u *stubUow) Commit() error                   { return nil }
func (u *stubUow) Rollback() error                 { return nil }
func (u *stubUow) KnowledgeDocumentRepository() contract.KnowledgeDocumentRepository {
	return u.docs
}
func (u *stubUow) KnowledgeChunkRepository() contract.KnowledgeChunkRepository { return u.chunks }
func (u *stubUow) ChatSessionRepository() contract.ChatSessionRepository       { return nil }
func (u *stubUow) ChatMessageRepository() contract.ChatMessageRepository       { return nil }
func (u *stubUow) RagUsageRecordRepository() contract.RagUsageRecordRepository { return nil }

type stubDecisionLLM struct {
	response string
	err      error
}

func (s *stubDecisionLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return s.response, s.err
}
func (s *stubDecisionLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return s.response, s.err
}

type stubAgentic struct {
	content string
	urls    []string
	called  bool
}

func (s *stubAgentic) ChatWithSearch(ctx context.Context, history []llm.Message, options ...llm.Option) (*llm.AgenticResponse, error) {
	s.called = true
	return &llm.AgenticResponse{Content: s.content, CitationURLs: s.urls}, nil
}

type stubWebSearch struct {
	results []rag.WebSearchResult
	called  bool
	query   string
}

func (s *stubWebSearch) Search(ctx context.Context, query string, limit int) ([]rag.WebSearchResult, error) {
	s.called = true
	s.query = query
	if limit > 0 && len(s.results) > limit {
		return s.results[:limit], nil
	}
	return s.results, nil
}

// ---- fixtures ----

func testLogger() *log.Logger {
	return log.New(&strings.Builder{}, "", 0)
}

func scoredChunks(docId uuid.UUID, similarities ...float64) []*contract.ScoredKnowledgeChunk {
	var out []*contract.ScoredKnowledgeChunk
	for _, s := range similarities {
		out = append(out, &contract.ScoredKnowledgeChunk{
			Chunk: &entity.KnowledgeChunk{
				Id:          uuid.New(),
				KnowledgeId: docId,
				Text:        strings.Repeat("환불 정책 안내 ", 10),
			},
			Similarity: s,
		})
	}
	return out
}

func newOrchestrator(uow *stubUow, decisionLLM llm.ChatProvider, web *stubWebSearch, agentic *stubAgentic) *Orchestrator {
	logger := testLogger()
	store := knowledge.NewStore(&stubEmbedder{}, logger)
	engine := decision.NewEngine(decisionLLM, logger)
	synth := answer.NewSynthesizer(agentic, nil, answer.DefaultConfig(), logger)
	return NewOrchestrator(store, engine, web, synth, DefaultConfig(), logger)
}

// ---- scenarios ----

func TestExecuteKnowledgeOnly(t *testing.T) {
	docId := uuid.New()
	uow := &stubUow{
		chunks: &stubChunkRepo{byScope: map[string][]*contract.ScoredKnowledgeChunk{
			entity.KnowledgeScopeCanvas: scoredChunks(docId, 0.98, 0.98, 0.97, 0.97, 0.97),
		}},
		docs: &stubDocRepo{titles: map[uuid.UUID]string{docId: "환불 정책"}},
	}
	web := &stubWebSearch{}
	agentic := &stubAgentic{content: "환불은 14일 이내 가능합니다."}
	orch := newOrchestrator(uow,
		&stubDecisionLLM{response: `{"action": "KNOWLEDGE_ONLY", "reason": "covered"}`},
		web, agentic)

	result, err := orch.Execute(context.Background(), uow, uuid.New(), "이 제품의 환불 정책은?", nil)

	require.NoError(t, err)
	assert.Equal(t, "환불은 14일 이내 가능합니다.", result.Content)
	assert.Equal(t, rag.ActionKnowledgeOnly, result.Result.ActionDecision.Action)
	assert.Equal(t, 5, result.Result.RAGUsed.ChunksMatched)
	assert.False(t, result.Result.RAGUsed.WebSearchUsed)
	assert.Empty(t, result.Result.WebContext)
	assert.False(t, web.called, "knowledge-only answers never pay for web search")
	assert.NotEmpty(t, result.Result.KnowledgeCitations)
	assert.Contains(t, result.Result.KnowledgeContext, "환불 정책")
}

func TestExecuteWebSearchOnEmptyKnowledge(t *testing.T) {
	uow := &stubUow{
		chunks: &stubChunkRepo{byScope: map[string][]*contract.ScoredKnowledgeChunk{}},
		docs: &stubDocRepo{recent: []*entity.KnowledgeDocument{
			{Id: uuid.New(), Title: "캠페인 노트", Content: strings.Repeat("퍼널 전략 ", 60)},
		}},
	}
	var results []rag.WebSearchResult
	for i := 0; i < 7; i++ {
		results = append(results, rag.WebSearchResult{Title: "r", URL: "https://news.example.com/" + string(rune('0'+i))})
	}
	web := &stubWebSearch{results: results}
	agentic := &stubAgentic{content: "오늘 환율은 약 1,380원입니다."}

	// A failing judge exercises the heuristic fallback path end to end.
	orch := newOrchestrator(uow, &stubDecisionLLM{err: errors.New("llm down")}, web, agentic)

	message := "오늘 환율이 어떻게 되나요?"
	result, err := orch.Execute(context.Background(), uow, uuid.New(), message, nil)

	require.NoError(t, err)
	assert.Equal(t, rag.ActionWebSearch, result.Result.ActionDecision.Action)
	assert.Equal(t, message, result.Result.ActionDecision.SearchQuery)
	assert.True(t, web.called)
	assert.True(t, result.Result.RAGUsed.WebSearchUsed)
	assert.Equal(t, 0, result.Result.RAGUsed.ChunksMatched)
	assert.LessOrEqual(t, len(result.Result.WebCitations), 5)
	assert.NotContains(t, result.Result.KnowledgeContext, "%",
		"recency fallback context carries no relevance annotations")
}

func TestBuildContextEmbeddingFailureUsesRecencyFallback(t *testing.T) {
	// Chunks exist but are unreachable without a query embedding; the
	// context must come from the recent documents, never stay empty.
	uow := &stubUow{
		chunks: &stubChunkRepo{byScope: map[string][]*contract.ScoredKnowledgeChunk{
			entity.KnowledgeScopeCanvas: scoredChunks(uuid.New(), 0.98, 0.97),
		}},
		docs: &stubDocRepo{recent: []*entity.KnowledgeDocument{
			{Id: uuid.New(), Title: "최근 캠페인 문서", Content: strings.Repeat("런칭 체크리스트 ", 40)},
		}},
	}
	logger := testLogger()
	store := knowledge.NewStore(&stubEmbedder{err: errors.New("quota exhausted")}, logger)
	engine := decision.NewEngine(&stubDecisionLLM{response: `{"action": "KNOWLEDGE_ONLY", "reason": "covered"}`}, logger)
	synth := answer.NewSynthesizer(&stubAgentic{content: "안내드립니다."}, nil, answer.DefaultConfig(), logger)
	orch := NewOrchestrator(store, engine, &stubWebSearch{}, synth, DefaultConfig(), logger)

	result, retrieval := orch.BuildContext(context.Background(), uow, uuid.New(), "환불 정책 알려줘", nil)

	assert.False(t, retrieval.RAGSuccess)
	assert.NotEmpty(t, retrieval.Fallback, "recency fallback documents must be loaded")
	assert.Contains(t, result.KnowledgeContext, "최근 캠페인 문서")
	assert.NotContains(t, result.KnowledgeContext, "%")
	assert.Empty(t, result.KnowledgeCitations, "fallback documents are not citable matches")
}

func TestExecuteClarifySkipsSynthesis(t *testing.T) {
	uow := &stubUow{
		chunks: &stubChunkRepo{byScope: map[string][]*contract.ScoredKnowledgeChunk{}},
		docs:   &stubDocRepo{},
	}
	agentic := &stubAgentic{content: "should not be used"}
	orch := newOrchestrator(uow,
		&stubDecisionLLM{response: `{"action": "CLARIFY", "reason": "ambiguous", "clarification_question": "어떤 캠페인을 말씀하시는 건가요?"}`},
		&stubWebSearch{}, agentic)

	result, err := orch.Execute(context.Background(), uow, uuid.New(), "그거 어떻게 됐어?", nil)

	require.NoError(t, err)
	assert.Equal(t, "어떤 캠페인을 말씀하시는 건가요?", result.Content)
	assert.False(t, agentic.called, "clarification needs no synthesis call")
}

func TestExecuteConversationSummary(t *testing.T) {
	uow := &stubUow{
		chunks: &stubChunkRepo{byScope: map[string][]*contract.ScoredKnowledgeChunk{}},
		docs:   &stubDocRepo{},
	}
	agentic := &stubAgentic{content: "요약: 런칭 일정과 예산을 논의했습니다."}
	orch := newOrchestrator(uow,
		&stubDecisionLLM{response: `{"action": "CONVERSATION_SUMMARY", "reason": "recap"}`},
		&stubWebSearch{}, agentic)

	history := []rag.ConversationTurn{
		{Role: "user", Content: "런칭 일정 잡자"},
		{Role: "assistant", Content: "9월 초가 좋겠습니다"},
	}
	result, err := orch.Execute(context.Background(), uow, uuid.New(), "지금까지 얘기한 내용 정리해줘", history)

	require.NoError(t, err)
	assert.True(t, agentic.called)
	assert.Contains(t, result.Content, "요약")
}

func TestFormatHistory(t *testing.T) {
	history := []rag.ConversationTurn{
		{Role: "user", Content: "첫 질문"},
		{Role: "assistant", Content: "첫 답변"},
	}

	out := FormatHistory(history)

	assert.Equal(t, "user: 첫 질문\nassistant: 첫 답변", out)
	assert.Equal(t, "", FormatHistory(nil))
}
