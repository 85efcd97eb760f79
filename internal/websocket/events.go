package chatws

import (
	"encoding/json"
	"time"

	"github.com/fitcoach-app/CoachChatBack/internal/models"
)

// Wire events. Client-to-server operations answer with a "result"
// frame; server-to-client broadcasts reuse the event names below.
const (
	EventSendMessage      = "send_message"
	EventNewMessage       = "new_message"
	EventMessageRead      = "message_read"
	EventTypingStart      = "typing_start"
	EventTypingStop       = "typing_stop"
	EventJoinConversation = "join_conversation"
	EventMarkAllRead      = "mark_all_read"
	EventResult           = "result"
	EventError            = "error"
)

// Envelope is the inbound frame: an optional correlation id, the event
// name, and the event-specific payload.
type Envelope struct {
	ID    string          `json:"id,omitempty"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outEnvelope struct {
	ID    string `json:"id,omitempty"`
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Result is the per-operation response payload.
type Result struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Message *models.Message `json:"message,omitempty"`
}

type sendMessageRequest struct {
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
}

type typingRequest struct {
	ConversationID string `json:"conversation_id"`
}

type markReadRequest struct {
	MessageID string `json:"message_id"`
}

type joinConversationRequest struct {
	ConversationID string `json:"conversation_id"`
}

type newMessageEvent struct {
	Message        *models.Message `json:"message"`
	ConversationID string          `json:"conversation_id"`
}

type messageReadEvent struct {
	MessageID      string     `json:"message_id"`
	ConversationID string     `json:"conversation_id"`
	ReadAt         *time.Time `json:"read_at"`
	ReadBy         string     `json:"read_by"`
}

type typingEvent struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	UserName       string `json:"user_name,omitempty"`
}

type errorEvent struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}
