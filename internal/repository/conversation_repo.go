package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/fitcoach-app/CoachChatBack/internal/models"
)

type ConversationRepository struct {
	db DBTX
}

func NewConversationRepository(db DBTX) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) Create(
	ctx context.Context,
	assignmentID string,
) (*models.Conversation, error) {
	query := `
		INSERT INTO conversations (id, assignment_id)
		VALUES ($1, $2)
		RETURNING id, assignment_id, created_at
	`

	var conversation models.Conversation
	err := r.db.QueryRow(ctx, query, uuid.NewString(), assignmentID).Scan(
		&conversation.ID,
		&conversation.AssignmentID,
		&conversation.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &conversation, nil
}

// GetWithAssignment loads a conversation together with the participant
// pair and status of its backing assignment. This is the single query
// behind the access guard.
func (r *ConversationRepository) GetWithAssignment(
	ctx context.Context,
	conversationID string,
) (*models.Conversation, error) {
	query := `
		SELECT c.id, c.assignment_id, c.created_at, a.user_id, a.coach_id, a.status
		FROM conversations c
		JOIN assignments a ON a.id = c.assignment_id
		WHERE c.id = $1
	`

	var conversation models.Conversation
	err := r.db.QueryRow(ctx, query, conversationID).Scan(
		&conversation.ID,
		&conversation.AssignmentID,
		&conversation.CreatedAt,
		&conversation.UserID,
		&conversation.CoachID,
		&conversation.AssignmentStatus,
	)
	if err != nil {
		return nil, err
	}

	return &conversation, nil
}

func (r *ConversationRepository) GetByAssignment(
	ctx context.Context,
	assignmentID string,
) (*models.Conversation, error) {
	query := `
		SELECT c.id, c.assignment_id, c.created_at, a.user_id, a.coach_id, a.status
		FROM conversations c
		JOIN assignments a ON a.id = c.assignment_id
		WHERE c.assignment_id = $1
	`

	var conversation models.Conversation
	err := r.db.QueryRow(ctx, query, assignmentID).Scan(
		&conversation.ID,
		&conversation.AssignmentID,
		&conversation.CreatedAt,
		&conversation.UserID,
		&conversation.CoachID,
		&conversation.AssignmentStatus,
	)
	if err != nil {
		return nil, err
	}

	return &conversation, nil
}
