package model

import (
	"time"

	"github.com/google/uuid"
)

type RagUsageRecord struct {
	Id            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ChatSessionId uuid.UUID `gorm:"type:uuid;not null;index"`
	CanvasId      uuid.UUID `gorm:"type:uuid;not null;index"`
	Action        string    `gorm:"type:varchar(32)"`
	ChunksMatched int       `gorm:"default:0"`
	WebSearchUsed bool      `gorm:"default:false"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

func (RagUsageRecord) TableName() string {
	return "rag_usage_records"
}
