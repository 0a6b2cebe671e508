package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "CHAT_ANSWERED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent helps embed common logic if needed,
// strictly creating valid implementations is preferred though.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// NewChatAnsweredEvent is emitted after a usage record is persisted so that
// external consumers (billing, analytics) can react.
func NewChatAnsweredEvent(sessionId, canvasId, action string, chunksMatched int, webSearchUsed bool) Event {
	return BaseEvent{
		Type: "CHAT_ANSWERED",
		Data: map[string]interface{}{
			"chat_session_id": sessionId,
			"canvas_id":       canvasId,
			"action":          action,
			"chunks_matched":  chunksMatched,
			"web_search_used": webSearchUsed,
		},
		OccurredAt: time.Now(),
	}
}
