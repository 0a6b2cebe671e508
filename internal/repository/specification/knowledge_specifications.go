package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ByCanvasID filters rows belonging to one canvas
type ByCanvasID struct {
	CanvasID uuid.UUID
}

func (s ByCanvasID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("canvas_id = ?", s.CanvasID)
}

// ByScope filters knowledge documents by their scope ("canvas" or "global")
type ByScope struct {
	Scope string
}

func (s ByScope) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("scope = ?", s.Scope)
}

// ByChatSessionID filters chat messages by session
type ByChatSessionID struct {
	ChatSessionID uuid.UUID
}

func (s ByChatSessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("chat_session_id = ?", s.ChatSessionID)
}
