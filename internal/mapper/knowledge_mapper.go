package mapper

import (
	"time"

	"funnel-canvas-be/internal/entity"
	"funnel-canvas-be/internal/model"

	"github.com/pgvector/pgvector-go"
)

type KnowledgeMapper struct{}

func NewKnowledgeMapper() *KnowledgeMapper {
	return &KnowledgeMapper{}
}

func (m *KnowledgeMapper) DocumentToEntity(d *model.KnowledgeDocument) *entity.KnowledgeDocument {
	if d == nil {
		return nil
	}

	var updatedAt *time.Time
	if !d.UpdatedAt.IsZero() {
		t := d.UpdatedAt
		updatedAt = &t
	}

	return &entity.KnowledgeDocument{
		Id:        d.Id,
		CanvasId:  d.CanvasId,
		Scope:     d.Scope,
		Title:     d.Title,
		Content:   d.Content,
		CreatedAt: d.CreatedAt,
		UpdatedAt: updatedAt,
	}
}

func (m *KnowledgeMapper) DocumentToModel(e *entity.KnowledgeDocument) *model.KnowledgeDocument {
	if e == nil {
		return nil
	}

	d := &model.KnowledgeDocument{
		Id:        e.Id,
		CanvasId:  e.CanvasId,
		Scope:     e.Scope,
		Title:     e.Title,
		Content:   e.Content,
		CreatedAt: e.CreatedAt,
	}
	if e.UpdatedAt != nil {
		d.UpdatedAt = *e.UpdatedAt
	}
	return d
}

func (m *KnowledgeMapper) ChunkToEntity(c *model.KnowledgeChunk) *entity.KnowledgeChunk {
	if c == nil {
		return nil
	}

	return &entity.KnowledgeChunk{
		Id:             c.Id,
		KnowledgeId:    c.KnowledgeId,
		ChunkIndex:     c.ChunkIndex,
		Text:           c.Text,
		EmbeddingValue: c.EmbeddingValue.Slice(),
		CreatedAt:      c.CreatedAt,
	}
}

func (m *KnowledgeMapper) ChunkToModel(e *entity.KnowledgeChunk) *model.KnowledgeChunk {
	if e == nil {
		return nil
	}

	return &model.KnowledgeChunk{
		Id:             e.Id,
		KnowledgeId:    e.KnowledgeId,
		ChunkIndex:     e.ChunkIndex,
		Text:           e.Text,
		EmbeddingValue: pgvector.NewVector(e.EmbeddingValue),
		CreatedAt:      e.CreatedAt,
	}
}
