package dto

import (
	"time"

	"funnel-canvas-be/pkg/rag"

	"github.com/google/uuid"
)

type CreateSessionRequest struct {
	CanvasId uuid.UUID `json:"canvas_id" validate:"required"`
	Title    string    `json:"title"`
}

type CreateSessionResponse struct {
	Id uuid.UUID `json:"id"`
}

type GetAllSessionsResponse struct {
	Id        uuid.UUID  `json:"id"`
	CanvasId  uuid.UUID  `json:"canvas_id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type SendChatRequest struct {
	ChatSessionId uuid.UUID `json:"chat_session_id" validate:"required"`
	Message       string    `json:"message" validate:"required"`
}

type DeleteSessionRequest struct {
	ChatSessionId uuid.UUID `json:"chat_session_id" validate:"required"`
}

// CitationsDTO is the JSON shape persisted alongside assistant messages and
// returned to the client.
type CitationsDTO struct {
	Knowledge []rag.KnowledgeCitation `json:"knowledge,omitempty"`
	Web       []rag.WebCitation       `json:"web,omitempty"`
}

type UsageDTO struct {
	ChunksMatched int  `json:"chunks_matched"`
	WebSearchUsed bool `json:"web_search_used"`
}

type ChatMessageDTO struct {
	Id        uuid.UUID     `json:"id"`
	Role      string        `json:"role"`
	Content   string        `json:"content"`
	CreatedAt time.Time     `json:"created_at"`
	Citations *CitationsDTO `json:"citations,omitempty"`
}

type SendChatResponse struct {
	ChatSessionId    uuid.UUID       `json:"chat_session_id"`
	ChatSessionTitle string          `json:"chat_session_title"`
	Action           string          `json:"action"`
	Usage            UsageDTO        `json:"usage"`
	Sent             *ChatMessageDTO `json:"sent"`
	Reply            *ChatMessageDTO `json:"reply"`
}

type GetChatHistoryResponse struct {
	Id        uuid.UUID     `json:"id"`
	Role      string        `json:"role"`
	Content   string        `json:"content"`
	CreatedAt time.Time     `json:"created_at"`
	Citations *CitationsDTO `json:"citations,omitempty"`
}

// PublishRagUsageMessage is the payload of the chat.answered topic consumed
// by the usage recorder.
type PublishRagUsageMessage struct {
	ChatSessionId uuid.UUID `json:"chat_session_id"`
	CanvasId      uuid.UUID `json:"canvas_id"`
	Action        string    `json:"action"`
	ChunksMatched int       `json:"chunks_matched"`
	WebSearchUsed bool      `json:"web_search_used"`
}
