package models

import "time"

const (
	AssignmentActive = "ACTIVE"
	AssignmentPaused = "PAUSED"
	AssignmentEnded  = "ENDED"
)

type Assignment struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	CoachID    string    `json:"coach_id"`
	AssignedBy string    `json:"assigned_by,omitempty"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`

	// ConversationID is populated by queries that join the assignment's
	// conversation. Empty when the conversation row does not exist yet.
	ConversationID string `json:"conversation_id,omitempty"`
}
