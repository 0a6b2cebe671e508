// Developer simulation of the answering pipeline. Runs the real
// orchestrator against in-memory stubs so the retrieval, decision and
// synthesis flow can be inspected without a database or any API key.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"funnel-canvas-be/internal/entity"
	"funnel-canvas-be/internal/repository/contract"
	"funnel-canvas-be/internal/repository/specification"
	"funnel-canvas-be/internal/repository/unitofwork"
	"funnel-canvas-be/pkg/llm"
	"funnel-canvas-be/pkg/rag"
	"funnel-canvas-be/pkg/rag/answer"
	"funnel-canvas-be/pkg/rag/decision"
	"funnel-canvas-be/pkg/rag/executor"
	"funnel-canvas-be/pkg/rag/knowledge"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

var (
	userColor   = color.New(color.FgCyan, color.Bold)
	aiColor     = color.New(color.FgGreen)
	metaColor   = color.New(color.FgYellow)
	headerColor = color.New(color.FgMagenta, color.Bold)
)

func main() {
	logger := log.New(os.Stdout, "[SIM] ", log.LstdFlags)

	canvasId := uuid.New()
	docId := uuid.New()

	chunkRepo := &simChunkRepo{
		canvasChunks: []*contract.ScoredKnowledgeChunk{
			scored(docId, 0, "환불 정책: 구매 후 14일 이내에는 전액 환불이 가능합니다.", 0.93),
			scored(docId, 1, "환불 요청은 설정 페이지의 결제 탭에서 접수할 수 있습니다.", 0.88),
			scored(docId, 2, "구독 해지 시 남은 기간에 대해서는 일할 계산으로 환불합니다.", 0.84),
		},
	}
	docRepo := &simDocRepo{titles: map[uuid.UUID]string{docId: "결제 및 환불 가이드"}}
	uow := &simUow{chunks: chunkRepo, docs: docRepo}

	store := knowledge.NewStore(&simEmbedder{}, logger)
	engine := decision.NewEngine(&simDecisionLLM{}, logger)
	synthesizer := answer.NewSynthesizer(&simAgentic{}, &simChat{}, answer.DefaultConfig(), logger)
	orchestrator := executor.NewOrchestrator(store, engine, &simWebSearch{}, synthesizer, executor.DefaultConfig(), logger)

	headerColor.Println("=== Canvas RAG Pipeline Simulation ===")

	turns := []string{
		"이 제품의 환불 정책은?",
		"오늘 환율이 어떻게 되나요?",
	}

	var history []rag.ConversationTurn
	for _, message := range turns {
		fmt.Println()
		userColor.Printf("USER: %s\n", message)

		start := time.Now()
		res, err := orchestrator.Execute(context.Background(), uow, canvasId, message, history)
		if err != nil {
			log.Fatalf("pipeline failed: %v", err)
		}

		aiColor.Printf("AI (%v): %s\n", time.Since(start).Round(time.Millisecond), res.Content)
		metaColor.Printf("  action=%s chunks=%d web=%v knowledge_citations=%d web_citations=%d\n",
			res.Result.ActionDecision.Action,
			res.Result.RAGUsed.ChunksMatched,
			res.Result.RAGUsed.WebSearchUsed,
			len(res.Result.KnowledgeCitations),
			len(res.Result.WebCitations),
		)

		now := time.Now()
		history = append(history,
			rag.ConversationTurn{Role: entity.ChatRoleUser, Content: message, Timestamp: now},
			rag.ConversationTurn{Role: entity.ChatRoleAssistant, Content: res.Content, Timestamp: now},
		)
	}
}

func scored(docId uuid.UUID, index int, text string, similarity float64) *contract.ScoredKnowledgeChunk {
	return &contract.ScoredKnowledgeChunk{
		Chunk: &entity.KnowledgeChunk{
			Id:          uuid.New(),
			KnowledgeId: docId,
			ChunkIndex:  index,
			Text:        text,
			CreatedAt:   time.Now(),
		},
		Similarity: similarity,
	}
}

// simEmbedder returns a fixed vector; retrieval quality is decided by the
// scores seeded into simChunkRepo.
type simEmbedder struct{}

func (e *simEmbedder) Generate(ctx context.Context, text string) ([]float32, error) {
	return make([]float32, 1536), nil
}

// simChunkRepo serves the seeded canvas chunks only for refund questions so
// the second turn exercises the web-search path.
type simChunkRepo struct {
	mu           sync.Mutex
	canvasChunks []*contract.ScoredKnowledgeChunk
	queries      int
}

func (r *simChunkRepo) Create(ctx context.Context, chunk *entity.KnowledgeChunk) error { return nil }
func (r *simChunkRepo) CreateBulk(ctx context.Context, chunks []*entity.KnowledgeChunk) error {
	return nil
}
func (r *simChunkRepo) DeleteByKnowledgeId(ctx context.Context, knowledgeId uuid.UUID) error {
	return nil
}
func (r *simChunkRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.KnowledgeChunk, error) {
	return nil, nil
}

func (r *simChunkRepo) SearchSimilarWithScore(ctx context.Context, embedding []float32, scope string, canvasId uuid.UUID, limit int, threshold float64) ([]*contract.ScoredKnowledgeChunk, error) {
	r.mu.Lock()
	r.queries++
	turnOne := r.queries <= 2
	r.mu.Unlock()

	// Two scope queries per turn; empty results from the third query on.
	if !turnOne || scope != entity.KnowledgeScopeCanvas {
		return nil, nil
	}
	return r.canvasChunks, nil
}

type simDocRepo struct {
	titles map[uuid.UUID]string
}

func (r *simDocRepo) Create(ctx context.Context, doc *entity.KnowledgeDocument) error { return nil }
func (r *simDocRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.KnowledgeDocument, error) {
	return nil, nil
}
func (r *simDocRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.KnowledgeDocument, error) {
	return nil, nil
}

func (r *simDocRepo) FindByIds(ctx context.Context, ids []uuid.UUID) ([]*entity.KnowledgeDocument, error) {
	docs := make([]*entity.KnowledgeDocument, 0, len(ids))
	for _, id := range ids {
		if title, ok := r.titles[id]; ok {
			docs = append(docs, &entity.KnowledgeDocument{Id: id, Title: title})
		}
	}
	return docs, nil
}

func (r *simDocRepo) FindRecent(ctx context.Context, canvasId uuid.UUID, limit int) ([]*entity.KnowledgeDocument, error) {
	return []*entity.KnowledgeDocument{
		{Id: uuid.New(), Title: "온보딩 퍼널 설계 노트", Content: "가입 퍼널의 각 단계별 전환율을 기록한 문서입니다."},
	}, nil
}

type simUow struct {
	chunks *simChunkRepo
	docs   *simDocRepo
}

func (u *simUow) Begin(ctx context.Context) error { return nil }
func (u *simUow) Commit() error                   { return nil }
func (u *simUow) Rollback() error                 { return nil }
func (u *simUow) KnowledgeDocumentRepository() contract.KnowledgeDocumentRepository {
	return u.docs
}
func (u *simUow) KnowledgeChunkRepository() contract.KnowledgeChunkRepository { return u.chunks }
func (u *simUow) ChatSessionRepository() contract.ChatSessionRepository       { return nil }
func (u *simUow) ChatMessageRepository() contract.ChatMessageRepository       { return nil }
func (u *simUow) RagUsageRecordRepository() contract.RagUsageRecordRepository { return nil }

var _ unitofwork.UnitOfWork = (*simUow)(nil)

// simDecisionLLM always fails so the deterministic heuristic drives the
// action choice, which is the interesting path to watch offline.
type simDecisionLLM struct{}

func (s *simDecisionLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return "", fmt.Errorf("simulation runs without a decision model")
}
func (s *simDecisionLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return "", fmt.Errorf("simulation runs without a decision model")
}

type simAgentic struct{}

func (s *simAgentic) ChatWithSearch(ctx context.Context, history []llm.Message, options ...llm.Option) (*llm.AgenticResponse, error) {
	var prompt string
	for _, m := range history {
		if m.Role == "user" {
			prompt = m.Content
		}
	}
	return &llm.AgenticResponse{
		Content:      fmt.Sprintf("(시뮬레이션 답변) 질문 \"%s\" 에 대해 제공된 컨텍스트를 근거로 답변합니다.", prompt),
		CitationURLs: []string{"https://example.com/source"},
	}, nil
}

type simChat struct{}

func (s *simChat) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return "(시뮬레이션 예비 답변)", nil
}
func (s *simChat) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return "(시뮬레이션 예비 답변)", nil
}

type simWebSearch struct{}

func (s *simWebSearch) Search(ctx context.Context, query string, limit int) ([]rag.WebSearchResult, error) {
	return []rag.WebSearchResult{
		{Title: "오늘의 환율 정보", URL: "https://news.example.com/fx", Snippet: "주요 통화 환율 요약.", Source: "news.example.com"},
	}, nil
}
