package contract

import (
	"context"

	"funnel-canvas-be/internal/entity"
)

type RagUsageRecordRepository interface {
	Create(ctx context.Context, record *entity.RagUsageRecord) error
}
