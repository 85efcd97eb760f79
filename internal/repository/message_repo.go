package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/fitcoach-app/CoachChatBack/internal/models"
)

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(
	ctx context.Context,
	conversationID string,
	senderID string,
	content string,
) (*models.Message, error) {
	query := `
		INSERT INTO messages (id, conversation_id, sender_id, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, conversation_id, sender_id, content, sent_at, read_at
	`

	var message models.Message
	err := r.db.QueryRow(ctx, query, uuid.NewString(), conversationID, senderID, content).Scan(
		&message.ID,
		&message.ConversationID,
		&message.SenderID,
		&message.Content,
		&message.SentAt,
		&message.ReadAt,
	)
	if err != nil {
		return nil, err
	}

	return &message, nil
}

// GetWithConversation loads a message plus its conversation (with the
// assignment participants joined in), so read-receipt handling can run
// the participant check without a second round trip.
func (r *MessageRepository) GetWithConversation(
	ctx context.Context,
	messageID string,
) (*models.Message, *models.Conversation, error) {
	query := `
		SELECT m.id, m.conversation_id, m.sender_id, m.content, m.sent_at, m.read_at,
		       c.id, c.assignment_id, c.created_at, a.user_id, a.coach_id, a.status
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		JOIN assignments a ON a.id = c.assignment_id
		WHERE m.id = $1
	`

	var message models.Message
	var conversation models.Conversation
	err := r.db.QueryRow(ctx, query, messageID).Scan(
		&message.ID,
		&message.ConversationID,
		&message.SenderID,
		&message.Content,
		&message.SentAt,
		&message.ReadAt,
		&conversation.ID,
		&conversation.AssignmentID,
		&conversation.CreatedAt,
		&conversation.UserID,
		&conversation.CoachID,
		&conversation.AssignmentStatus,
	)
	if err != nil {
		return nil, nil, err
	}

	return &message, &conversation, nil
}

// MarkRead sets read_at if and only if it is still unset. Returns
// pgx.ErrNoRows when the message is missing or already read, so the
// first reader wins and the timestamp is never overwritten.
func (r *MessageRepository) MarkRead(ctx context.Context, messageID string) (*models.Message, error) {
	query := `
		UPDATE messages
		SET read_at = NOW()
		WHERE id = $1 AND read_at IS NULL
		RETURNING id, conversation_id, sender_id, content, sent_at, read_at
	`

	var message models.Message
	err := r.db.QueryRow(ctx, query, messageID).Scan(
		&message.ID,
		&message.ConversationID,
		&message.SenderID,
		&message.Content,
		&message.SentAt,
		&message.ReadAt,
	)
	if err != nil {
		return nil, err
	}

	return &message, nil
}

func (r *MessageRepository) MarkConversationRead(
	ctx context.Context,
	conversationID string,
	readerID string,
) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE messages
		SET read_at = NOW()
		WHERE conversation_id = $1
		  AND sender_id <> $2
		  AND read_at IS NULL
	`, conversationID, readerID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListBefore returns up to limit messages of a conversation, newest
// first, with the sender's minimal profile joined in. A non-empty
// cursor restricts the page to messages strictly older than the cursor
// message.
func (r *MessageRepository) ListBefore(
	ctx context.Context,
	conversationID string,
	limit int,
	cursor string,
) ([]models.Message, error) {
	query := `
		SELECT m.id, m.conversation_id, m.sender_id, m.content, m.sent_at, m.read_at,
		       u.id, u.name
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.conversation_id = $1
		  AND ($2 = ''
		       OR (m.sent_at, m.id) < (SELECT sent_at, id FROM messages WHERE id = $2))
		ORDER BY m.sent_at DESC, m.id DESC
		LIMIT $3
	`

	rows, err := r.db.Query(ctx, query, conversationID, cursor, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var message models.Message
		var sender models.UserSummary
		if err := rows.Scan(
			&message.ID,
			&message.ConversationID,
			&message.SenderID,
			&message.Content,
			&message.SentAt,
			&message.ReadAt,
			&sender.ID,
			&sender.Name,
		); err != nil {
			return nil, err
		}
		message.Sender = &sender
		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

// CountUnreadForUser counts unread messages addressed to the user
// across all conversations of their ACTIVE assignments.
func (r *MessageRepository) CountUnreadForUser(ctx context.Context, userID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		JOIN assignments a ON a.id = c.assignment_id
		WHERE (a.user_id = $1 OR a.coach_id = $1)
		  AND a.status = 'ACTIVE'
		  AND m.sender_id <> $1
		  AND m.read_at IS NULL
	`

	var count int
	if err := r.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
