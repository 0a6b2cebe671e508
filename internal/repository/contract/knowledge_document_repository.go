package contract

import (
	"context"

	"funnel-canvas-be/internal/entity"
	"funnel-canvas-be/internal/repository/specification"

	"github.com/google/uuid"
)

type KnowledgeDocumentRepository interface {
	Create(ctx context.Context, doc *entity.KnowledgeDocument) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.KnowledgeDocument, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.KnowledgeDocument, error)
	FindByIds(ctx context.Context, ids []uuid.UUID) ([]*entity.KnowledgeDocument, error)
	// FindRecent returns the canvas documents ordered newest first.
	FindRecent(ctx context.Context, canvasId uuid.UUID, limit int) ([]*entity.KnowledgeDocument, error)
}
