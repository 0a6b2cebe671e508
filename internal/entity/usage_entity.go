package entity

import (
	"time"

	"github.com/google/uuid"
)

// RagUsageRecord captures what one answered request consumed. Written by the
// usage consumer, read by ops dashboards.
type RagUsageRecord struct {
	Id            uuid.UUID
	ChatSessionId uuid.UUID
	CanvasId      uuid.UUID
	Action        string
	ChunksMatched int
	WebSearchUsed bool
	CreatedAt     time.Time
}
