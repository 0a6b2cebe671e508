package entity

import (
	"time"

	"github.com/google/uuid"
)

// Knowledge scopes. Canvas-scoped documents belong to one funnel canvas;
// global documents are shared across the whole workspace.
const (
	KnowledgeScopeCanvas = "canvas"
	KnowledgeScopeGlobal = "global"
)

// KnowledgeDocument is an ingested source document. The answering pipeline
// only reads it; ingestion and chunking are owned by a separate service.
type KnowledgeDocument struct {
	Id        uuid.UUID
	CanvasId  *uuid.UUID // nil for global-scope documents
	Scope     string
	Title     string
	Content   string
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// KnowledgeChunk is one embedded slice of a KnowledgeDocument.
type KnowledgeChunk struct {
	Id             uuid.UUID
	KnowledgeId    uuid.UUID
	ChunkIndex     int
	Text           string
	EmbeddingValue []float32
	CreatedAt      time.Time
}
