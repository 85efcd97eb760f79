package models

import "time"

// Conversation is the durable chat channel backing one assignment. The
// participant pair comes from the assignment row and is fixed for the
// conversation's lifetime, whatever the assignment's later status.
type Conversation struct {
	ID           string    `json:"id"`
	AssignmentID string    `json:"assignment_id"`
	CreatedAt    time.Time `json:"created_at"`

	// Joined assignment fields used by the access guard.
	UserID           string `json:"user_id"`
	CoachID          string `json:"coach_id"`
	AssignmentStatus string `json:"assignment_status"`
}

// IsParticipant reports whether id is either party of the backing
// assignment. Status is deliberately not consulted: ended assignments
// keep their history readable.
func (c *Conversation) IsParticipant(id string) bool {
	return id == c.UserID || id == c.CoachID
}

type ConversationDetail struct {
	Conversation Conversation `json:"conversation"`
	User         UserSummary  `json:"user"`
	Coach        UserSummary  `json:"coach"`
}

type Message struct {
	ID             string       `json:"id"`
	ConversationID string       `json:"conversation_id"`
	SenderID       string       `json:"sender_id"`
	Content        string       `json:"content"`
	SentAt         time.Time    `json:"sent_at"`
	ReadAt         *time.Time   `json:"read_at"`
	Sender         *UserSummary `json:"sender,omitempty"`
}

// MessagePage is a cursor-paginated slice of conversation history,
// newest first.
type MessagePage struct {
	Data []Message   `json:"data"`
	Meta MessageMeta `json:"meta"`
}

type MessageMeta struct {
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor,omitempty"`
}
