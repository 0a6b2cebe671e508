package contract

import (
	"context"

	"funnel-canvas-be/internal/entity"
	"funnel-canvas-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ScoredKnowledgeChunk wraps a KnowledgeChunk with its similarity score
type ScoredKnowledgeChunk struct {
	Chunk      *entity.KnowledgeChunk
	Similarity float64 // raw cosine similarity, -1.0 to 1.0
}

type KnowledgeChunkRepository interface {
	Create(ctx context.Context, chunk *entity.KnowledgeChunk) error
	CreateBulk(ctx context.Context, chunks []*entity.KnowledgeChunk) error
	DeleteByKnowledgeId(ctx context.Context, knowledgeId uuid.UUID) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.KnowledgeChunk, error)
	// SearchSimilarWithScore runs a cosine similarity query over one scope.
	// canvasId is ignored for the global scope.
	SearchSimilarWithScore(ctx context.Context, embedding []float32, scope string, canvasId uuid.UUID, limit int, threshold float64) ([]*ScoredKnowledgeChunk, error)
}
