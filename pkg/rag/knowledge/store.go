package knowledge

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"funnel-canvas-be/internal/entity"
	"funnel-canvas-be/internal/repository/unitofwork"
	"funnel-canvas-be/pkg/embedding"
	"funnel-canvas-be/pkg/rag"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// Config encapsulates retrieval parameters
type Config struct {
	MinSimilarity   float64 // raw cosine threshold applied per scope
	ScopeLimit      int     // max chunks fetched per scope
	MergedCap       int     // max chunks kept after merging scopes
	SurfacedCap     int     // max chunks composed into the prompt context
	FallbackLimit   int     // recent documents loaded when retrieval is empty
	FallbackExcerpt int     // max excerpt length per fallback document
}

// DefaultConfig returns default retrieval configuration
func DefaultConfig() Config {
	return Config{
		MinSimilarity:   0.70,
		ScopeLimit:      10,
		MergedCap:       20,
		SurfacedCap:     8,
		FallbackLimit:   5,
		FallbackExcerpt: 300,
	}
}

// Store runs scoped vector retrieval over the knowledge base and composes
// the knowledge context block for answer generation.
type Store struct {
	embeddingProvider embedding.EmbeddingProvider
	embedCache        *gocache.Cache
	logger            *log.Logger
}

// NewStore creates a new knowledge store
func NewStore(embeddingProvider embedding.EmbeddingProvider, logger *log.Logger) *Store {
	return &Store{
		embeddingProvider: embeddingProvider,
		embedCache:        gocache.New(10*time.Minute, 15*time.Minute),
		logger:            logger,
	}
}

// Retrieve embeds the query, searches the canvas and global scopes
// concurrently, merges and ranks the results, and composes the context
// block. When nothing clears the similarity threshold it falls back to the
// canvas's most recent documents.
func (s *Store) Retrieve(
	ctx context.Context,
	uow unitofwork.UnitOfWork,
	canvasId uuid.UUID,
	query string,
	config Config,
) (*rag.Retrieval, error) {

	queryEmbedding, err := s.embedQuery(ctx, query)
	if err != nil {
		// An unusable embedding degrades to the recency fallback, the
		// answer must never be left without grounding.
		s.logger.Printf("[WARN] Embedding generation failed: %v", rag.NewProviderError("embedding", err))
		return s.retrieveFallback(ctx, uow, canvasId, config)
	}

	chunkRepo := uow.KnowledgeChunkRepository()

	type scopeResult struct {
		scope  string
		chunks []rag.KnowledgeChunk
		err    error
	}

	scopes := []struct {
		name     string
		canvasId uuid.UUID
	}{
		{entity.KnowledgeScopeCanvas, canvasId},
		{entity.KnowledgeScopeGlobal, uuid.Nil},
	}

	results := make([]scopeResult, len(scopes))
	var wg sync.WaitGroup
	for i, sc := range scopes {
		wg.Add(1)
		go func(i int, scope string, cid uuid.UUID) {
			defer wg.Done()
			scored, err := chunkRepo.SearchSimilarWithScore(
				ctx, queryEmbedding, scope, cid, config.ScopeLimit, config.MinSimilarity,
			)
			if err != nil {
				results[i] = scopeResult{scope: scope, err: err}
				return
			}
			chunks := make([]rag.KnowledgeChunk, len(scored))
			for j, sr := range scored {
				chunks[j] = rag.KnowledgeChunk{
					ID:          sr.Chunk.Id.String(),
					KnowledgeID: sr.Chunk.KnowledgeId.String(),
					Text:        sr.Chunk.Text,
					Similarity:  sr.Similarity,
				}
			}
			results[i] = scopeResult{scope: scope, chunks: chunks}
		}(i, sc.name, sc.canvasId)
	}
	wg.Wait()

	var canvasChunks, globalChunks []rag.KnowledgeChunk
	for _, res := range results {
		if res.err != nil {
			// One failing scope degrades retrieval, it does not abort it.
			s.logger.Printf("[WARN] Vector search failed for scope %s: %v", res.scope, res.err)
			continue
		}
		s.logger.Printf("[DEBUG] Scope %s: %d chunks above threshold", res.scope, len(res.chunks))
		if res.scope == entity.KnowledgeScopeGlobal {
			globalChunks = res.chunks
		} else {
			canvasChunks = res.chunks
		}
	}

	merged := MergeAndRank(canvasChunks, globalChunks, config.MergedCap)

	if len(merged) == 0 {
		return s.retrieveFallback(ctx, uow, canvasId, config)
	}

	if err := s.hydrateTitles(ctx, uow, merged); err != nil {
		s.logger.Printf("[WARN] Failed to hydrate chunk titles: %v", err)
	}

	globalSet := make(map[string]bool, len(globalChunks))
	for _, c := range globalChunks {
		globalSet[c.ID] = true
	}
	var mergedGlobal []rag.KnowledgeChunk
	for _, c := range merged {
		if globalSet[c.ID] {
			mergedGlobal = append(mergedGlobal, c)
		}
	}

	surfaced := merged
	if len(surfaced) > config.SurfacedCap {
		surfaced = surfaced[:config.SurfacedCap]
	}

	return &rag.Retrieval{
		Chunks:       merged,
		GlobalChunks: mergedGlobal,
		RAGSuccess:   true,
		Context:      ComposeContext(surfaced, globalSet),
	}, nil
}

// retrieveFallback loads the canvas's most recent documents so the answer is
// grounded on something instead of nothing.
func (s *Store) retrieveFallback(
	ctx context.Context,
	uow unitofwork.UnitOfWork,
	canvasId uuid.UUID,
	config Config,
) (*rag.Retrieval, error) {

	s.logger.Printf("[DEBUG] No chunks above threshold, falling back to recent documents")

	docs, err := uow.KnowledgeDocumentRepository().FindRecent(ctx, canvasId, config.FallbackLimit)
	if err != nil {
		s.logger.Printf("[WARN] Recency fallback failed: %v", err)
		return &rag.Retrieval{RAGSuccess: false}, nil
	}

	fallback := make([]rag.FallbackDocument, len(docs))
	for i, d := range docs {
		fallback[i] = rag.FallbackDocument{
			ID:      d.Id.String(),
			Title:   d.Title,
			Excerpt: rag.Truncate(d.Content, config.FallbackExcerpt),
		}
	}

	return &rag.Retrieval{
		Fallback:   fallback,
		RAGSuccess: false,
		Context:    ComposeFallbackContext(fallback),
	}, nil
}

func (s *Store) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if cached, found := s.embedCache.Get(query); found {
		return cached.([]float32), nil
	}

	vector, err := s.embeddingProvider.Generate(ctx, query)
	if err != nil {
		return nil, err
	}

	s.embedCache.Set(query, vector, gocache.DefaultExpiration)
	return vector, nil
}

func (s *Store) hydrateTitles(ctx context.Context, uow unitofwork.UnitOfWork, chunks []rag.KnowledgeChunk) error {
	seen := make(map[uuid.UUID]bool)
	var docIds []uuid.UUID
	for _, c := range chunks {
		id, err := uuid.Parse(c.KnowledgeID)
		if err != nil || seen[id] {
			continue
		}
		seen[id] = true
		docIds = append(docIds, id)
	}

	docs, err := uow.KnowledgeDocumentRepository().FindByIds(ctx, docIds)
	if err != nil {
		return err
	}

	titleMap := make(map[string]string, len(docs))
	for _, d := range docs {
		titleMap[d.Id.String()] = d.Title
	}

	for i := range chunks {
		if title, ok := titleMap[chunks[i].KnowledgeID]; ok {
			chunks[i].Title = title
		} else {
			chunks[i].Title = "Untitled Document"
		}
	}
	return nil
}

// MergeAndRank combines chunks from both scopes, orders them by similarity
// descending and caps the result. Ties keep canvas chunks ahead of global
// ones because canvas chunks are appended first and the sort is stable.
func MergeAndRank(canvasChunks, globalChunks []rag.KnowledgeChunk, limit int) []rag.KnowledgeChunk {
	merged := make([]rag.KnowledgeChunk, 0, len(canvasChunks)+len(globalChunks))
	merged = append(merged, canvasChunks...)
	merged = append(merged, globalChunks...)

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Similarity > merged[j].Similarity
	})

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// ComposeContext renders retrieved chunks into the knowledge context block.
// Canvas and global chunks are rendered as separate sections so the model
// can distinguish canvas-specific facts from shared knowledge.
func ComposeContext(chunks []rag.KnowledgeChunk, globalSet map[string]bool) string {
	var canvasPart, globalPart strings.Builder

	for _, c := range chunks {
		target := &canvasPart
		if globalSet[c.ID] {
			target = &globalPart
		}
		target.WriteString(fmt.Sprintf("[%s] (relevance %.0f%%)\n%s\n\n",
			c.Title, rag.SimilarityToPercent(c.Similarity), c.Text))
	}

	var sb strings.Builder
	if canvasPart.Len() > 0 {
		sb.WriteString("=== Canvas Knowledge ===\n\n")
		sb.WriteString(canvasPart.String())
	}
	if globalPart.Len() > 0 {
		sb.WriteString("=== Shared Knowledge ===\n\n")
		sb.WriteString(globalPart.String())
	}
	return strings.TrimRight(sb.String(), "\n")
}

// ComposeFallbackContext renders recency-ranked documents. Fallback excerpts
// carry no similarity score, so no relevance annotation is rendered.
func ComposeFallbackContext(docs []rag.FallbackDocument) string {
	if len(docs) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("=== Recent Canvas Documents ===\n\n")
	for _, d := range docs {
		sb.WriteString(fmt.Sprintf("[%s]\n%s\n\n", d.Title, d.Excerpt))
	}
	return strings.TrimRight(sb.String(), "\n")
}
