package entity

import (
	"time"

	"github.com/google/uuid"
)

// Chat message roles.
const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

type ChatSession struct {
	Id        uuid.UUID
	CanvasId  uuid.UUID
	UserId    uuid.UUID
	Title     string
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// ChatMessage is one persisted turn of a canvas conversation. Citations are
// stored as a JSON payload alongside the message so history rendering needs
// no joins.
type ChatMessage struct {
	Id            uuid.UUID
	ChatSessionId uuid.UUID
	Role          string // "user" or "assistant"
	Content       string
	Citations     []byte // JSON payload, nil for user messages
	CreatedAt     time.Time
}
