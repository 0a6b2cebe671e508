package implementation

import (
	"context"

	"funnel-canvas-be/internal/entity"
	"funnel-canvas-be/internal/model"
	"funnel-canvas-be/internal/repository/contract"

	"gorm.io/gorm"
)

type RagUsageRecordRepositoryImpl struct {
	db *gorm.DB
}

func NewRagUsageRecordRepository(db *gorm.DB) contract.RagUsageRecordRepository {
	return &RagUsageRecordRepositoryImpl{db: db}
}

func (r *RagUsageRecordRepositoryImpl) Create(ctx context.Context, record *entity.RagUsageRecord) error {
	m := &model.RagUsageRecord{
		Id:            record.Id,
		ChatSessionId: record.ChatSessionId,
		CanvasId:      record.CanvasId,
		Action:        record.Action,
		ChunksMatched: record.ChunksMatched,
		WebSearchUsed: record.WebSearchUsed,
		CreatedAt:     record.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(m).Error
}
