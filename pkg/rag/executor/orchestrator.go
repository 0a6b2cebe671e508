package executor

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"funnel-canvas-be/internal/repository/unitofwork"
	"funnel-canvas-be/pkg/rag"
	"funnel-canvas-be/pkg/rag/answer"
	"funnel-canvas-be/pkg/rag/citation"
	"funnel-canvas-be/pkg/rag/decision"
	"funnel-canvas-be/pkg/rag/knowledge"
	"funnel-canvas-be/pkg/websearch"

	"github.com/google/uuid"
)

// Config bounds the pipeline's external calls
type Config struct {
	Knowledge       knowledge.Config
	WebSearchLimit  int
	StageTimeout    time.Duration // per external call
	RequestDeadline time.Duration // whole Answer invocation
}

// DefaultConfig returns default orchestration configuration
func DefaultConfig() Config {
	return Config{
		Knowledge:       knowledge.DefaultConfig(),
		WebSearchLimit:  5,
		StageTimeout:    30 * time.Second,
		RequestDeadline: 90 * time.Second,
	}
}

// Orchestrator composes retrieval, decision, web search, synthesis and
// citations into the end-to-end answering flow. Every optional stage
// degrades to zero contribution on failure; the caller always receives a
// structured result.
type Orchestrator struct {
	store          *knowledge.Store
	decisionEngine *decision.Engine
	webSearch      websearch.Provider
	synthesizer    *answer.Synthesizer
	citations      *citation.Builder
	config         Config
	logger         *log.Logger
}

// NewOrchestrator creates a new RAG orchestrator
func NewOrchestrator(
	store *knowledge.Store,
	decisionEngine *decision.Engine,
	webSearch websearch.Provider,
	synthesizer *answer.Synthesizer,
	config Config,
	logger *log.Logger,
) *Orchestrator {
	return &Orchestrator{
		store:          store,
		decisionEngine: decisionEngine,
		webSearch:      webSearch,
		synthesizer:    synthesizer,
		citations:      citation.NewBuilder(),
		config:         config,
		logger:         logger,
	}
}

// Answer is the full pipeline output: the reply text plus the structured
// retrieval result the caller persists and renders.
type Answer struct {
	Content string
	Result  *rag.Result
}

// BuildContext runs retrieval, decision and the conditional web search, and
// assembles the structured result without generating an answer.
func (o *Orchestrator) BuildContext(
	ctx context.Context,
	uow unitofwork.UnitOfWork,
	canvasId uuid.UUID,
	message string,
	history []rag.ConversationTurn,
) (*rag.Result, *rag.Retrieval) {

	retrieval := o.retrieve(ctx, uow, canvasId, message)

	decideCtx, cancel := context.WithTimeout(ctx, o.config.StageTimeout)
	actionDecision := o.decisionEngine.Decide(decideCtx, message, history, retrieval)
	cancel()

	result := &rag.Result{
		KnowledgeContext: retrieval.Context,
		ActionDecision:   actionDecision,
		RAGUsed: rag.Usage{
			ChunksMatched: len(retrieval.Chunks),
		},
	}
	if retrieval.RAGSuccess {
		result.KnowledgeCitations = o.citations.BuildKnowledgeCitations(retrieval.Chunks)
	}

	if actionDecision.Action == rag.ActionWebSearch {
		results := o.searchWeb(ctx, message, actionDecision.SearchQuery)
		if len(results) > 0 {
			result.WebContext = websearch.FormatResults(results)
			result.WebCitations = o.citations.BuildWebCitations(results)
			result.RAGUsed.WebSearchUsed = true
		}
	}

	return result, retrieval
}

// Execute runs the complete pipeline for one message and generates the
// final reply.
func (o *Orchestrator) Execute(
	ctx context.Context,
	uow unitofwork.UnitOfWork,
	canvasId uuid.UUID,
	message string,
	history []rag.ConversationTurn,
) (*Answer, error) {

	ctx, cancel := context.WithTimeout(ctx, o.config.RequestDeadline)
	defer cancel()

	result, _ := o.BuildContext(ctx, uow, canvasId, message, history)
	historyText := FormatHistory(history)

	req := answer.Request{
		Message:          message,
		KnowledgeContext: result.KnowledgeContext,
		WebContext:       result.WebContext,
		HistoryText:      historyText,
		WebCitations:     result.WebCitations,
	}

	switch result.ActionDecision.Action {
	case rag.ActionClarify:
		// A clarification round needs no synthesis, the question is the reply.
		return &Answer{Content: result.ActionDecision.ClarificationQuestion, Result: result}, nil

	case rag.ActionConversationSummary:
		req.SystemHeader = answer.ConversationSummaryHeader()
		req.KnowledgeContext = ""
		req.WebContext = ""

	case rag.ActionKnowledgeSummary:
		req.SystemHeader = answer.KnowledgeSummaryHeader()
		req.WebContext = ""

	case rag.ActionKnowledgeOnly, rag.ActionWebSearch:
		// Standard grounded answering.

	default:
		return nil, fmt.Errorf("unhandled action %q", result.ActionDecision.Action)
	}

	synthCtx, cancelSynth := context.WithTimeout(ctx, o.config.StageTimeout)
	defer cancelSynth()

	synthesis := o.synthesizer.Synthesize(synthCtx, req)
	result.WebCitations = synthesis.WebCitations

	return &Answer{Content: synthesis.Content, Result: result}, nil
}

// retrieve runs the knowledge store stage. Failure is a degraded retrieval,
// never a pipeline abort.
func (o *Orchestrator) retrieve(
	ctx context.Context,
	uow unitofwork.UnitOfWork,
	canvasId uuid.UUID,
	message string,
) *rag.Retrieval {

	stageCtx, cancel := context.WithTimeout(ctx, o.config.StageTimeout)
	defer cancel()

	retrieval, err := o.store.Retrieve(stageCtx, uow, canvasId, message, o.config.Knowledge)
	if err != nil {
		o.logger.Printf("[WARN] Knowledge retrieval failed: %v", rag.NewProviderError("vector-search", err))
		return &rag.Retrieval{RAGSuccess: false}
	}
	return retrieval
}

// searchWeb issues the paid search call, guarded by the heuristic gate.
func (o *Orchestrator) searchWeb(ctx context.Context, message, query string) []rag.WebSearchResult {
	if o.webSearch == nil {
		return nil
	}
	if !websearch.ShouldSearch(query) && !websearch.ShouldSearch(message) {
		o.logger.Printf("[DEBUG] Web search gated off for query %q", query)
		return nil
	}

	stageCtx, cancel := context.WithTimeout(ctx, o.config.StageTimeout)
	defer cancel()

	results, err := o.webSearch.Search(stageCtx, query, o.config.WebSearchLimit)
	if err != nil {
		o.logger.Printf("[WARN] Web search failed: %v", rag.NewProviderError("web-search", err))
		return nil
	}
	return results
}

// FormatHistory renders prior turns as a plain text block for the prompt.
func FormatHistory(history []rag.ConversationTurn) string {
	if len(history) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, turn := range history {
		sb.WriteString(fmt.Sprintf("%s: %s\n", turn.Role, turn.Content))
	}
	return strings.TrimRight(sb.String(), "\n")
}
