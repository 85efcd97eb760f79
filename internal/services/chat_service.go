package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/fitcoach-app/CoachChatBack/internal/models"
)

// MaxMessageLength is the upper bound on message content, in runes.
const MaxMessageLength = 5000

// RoomID derives the broadcast room identifier for a conversation.
// Rooms are pure addressing keys over live connections, never stored.
func RoomID(conversationID string) string {
	return "conversation:" + conversationID
}

type userReader interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

type conversationReader interface {
	GetWithAssignment(ctx context.Context, conversationID string) (*models.Conversation, error)
}

type assignmentLister interface {
	ListActiveForParticipant(ctx context.Context, participantID string) ([]models.Assignment, error)
}

type messageStore interface {
	Create(ctx context.Context, conversationID, senderID, content string) (*models.Message, error)
	GetWithConversation(ctx context.Context, messageID string) (*models.Message, *models.Conversation, error)
	MarkRead(ctx context.Context, messageID string) (*models.Message, error)
	MarkConversationRead(ctx context.Context, conversationID, readerID string) (int64, error)
	ListBefore(ctx context.Context, conversationID string, limit int, cursor string) ([]models.Message, error)
	CountUnreadForUser(ctx context.Context, userID string) (int, error)
}

type ChatService struct {
	conversations conversationReader
	assignments   assignmentLister
	messages      messageStore
	users         userReader
	log           zerolog.Logger
}

func NewChatService(
	conversations conversationReader,
	assignments assignmentLister,
	messages messageStore,
	users userReader,
	log zerolog.Logger,
) *ChatService {
	return &ChatService{
		conversations: conversations,
		assignments:   assignments,
		messages:      messages,
		users:         users,
		log:           log,
	}
}

// VerifyConversationAccess loads the conversation and checks that the
// actor is one of the two assignment parties. Participation is
// status-independent: an ended assignment still grants access, so chat
// history stays readable after a reassignment. Side-effect free, and
// re-run on every operation rather than cached, because the backing
// assignment can change between calls.
func (s *ChatService) VerifyConversationAccess(
	ctx context.Context,
	conversationID string,
	actorID string,
) (*models.Conversation, error) {
	conversation, err := s.conversations.GetWithAssignment(ctx, conversationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}

	if !conversation.IsParticipant(actorID) {
		return nil, ErrForbidden
	}

	return conversation, nil
}

// RoomsForUser resolves the rooms a freshly connected user must join:
// one per ACTIVE assignment involving them. Assignments without a
// conversation are skipped; that is a data gap for the persistence
// layer to close, not a connect failure.
func (s *ChatService) RoomsForUser(ctx context.Context, userID string) ([]string, error) {
	assignments, err := s.assignments.ListActiveForParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}

	rooms := make([]string, 0, len(assignments))
	for _, assignment := range assignments {
		if assignment.ConversationID == "" {
			s.log.Warn().
				Str("assignment_id", assignment.ID).
				Msg("active assignment has no conversation")
			continue
		}
		rooms = append(rooms, RoomID(assignment.ConversationID))
	}

	return rooms, nil
}

func (s *ChatService) SendMessage(
	ctx context.Context,
	conversationID string,
	senderID string,
	content string,
) (*models.Message, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" || utf8.RuneCountInString(trimmed) > MaxMessageLength {
		return nil, ErrInvalidInput
	}

	if _, err := s.VerifyConversationAccess(ctx, conversationID, senderID); err != nil {
		return nil, err
	}

	message, err := s.messages.Create(ctx, conversationID, senderID, trimmed)
	if err != nil {
		return nil, err
	}

	sender, err := s.users.GetByID(ctx, senderID)
	if err != nil {
		return nil, err
	}
	summary := sender.Summary()
	message.Sender = &summary

	return message, nil
}

// MarkMessageRead records a read receipt. The returned bool reports
// whether this call performed the transition: false for the sender
// reading their own message and for an already-read message, both of
// which return the message unchanged.
func (s *ChatService) MarkMessageRead(
	ctx context.Context,
	messageID string,
	readerID string,
) (*models.Message, bool, error) {
	message, conversation, err := s.messages.GetWithConversation(ctx, messageID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, ErrMessageNotFound
		}
		return nil, false, err
	}

	if !conversation.IsParticipant(readerID) {
		return nil, false, ErrForbidden
	}

	if message.SenderID == readerID {
		return message, false, nil
	}
	if message.ReadAt != nil {
		return message, false, nil
	}

	updated, err := s.messages.MarkRead(ctx, messageID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost the race against a concurrent reader; the receipt
			// already exists, report the no-op.
			message, _, err = s.messages.GetWithConversation(ctx, messageID)
			if err != nil {
				return nil, false, err
			}
			return message, false, nil
		}
		return nil, false, err
	}

	return updated, true, nil
}

// MarkAllRead bulk-sets read receipts on every unread message in the
// conversation authored by someone other than the reader. Unlike the
// single-message path it emits no broadcast.
func (s *ChatService) MarkAllRead(ctx context.Context, conversationID, readerID string) error {
	if _, err := s.VerifyConversationAccess(ctx, conversationID, readerID); err != nil {
		return err
	}

	updated, err := s.messages.MarkConversationRead(ctx, conversationID, readerID)
	if err != nil {
		return err
	}

	s.log.Debug().
		Str("conversation_id", conversationID).
		Str("reader_id", readerID).
		Int64("updated", updated).
		Msg("marked conversation read")
	return nil
}

// GetConversation returns a conversation with both participant
// profiles, for the REST detail endpoint.
func (s *ChatService) GetConversation(
	ctx context.Context,
	conversationID string,
	actorID string,
) (*models.ConversationDetail, error) {
	conversation, err := s.VerifyConversationAccess(ctx, conversationID, actorID)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, conversation.UserID)
	if err != nil {
		return nil, err
	}
	coach, err := s.users.GetByID(ctx, conversation.CoachID)
	if err != nil {
		return nil, err
	}

	return &models.ConversationDetail{
		Conversation: *conversation,
		User:         models.UserSummary{ID: user.ID, Name: user.Name, Email: user.Email},
		Coach:        models.UserSummary{ID: coach.ID, Name: coach.Name, Email: coach.Email},
	}, nil
}

// GetMessages returns a page of history, newest first, with a
// before-id cursor. One extra row is fetched to compute has_more.
func (s *ChatService) GetMessages(
	ctx context.Context,
	conversationID string,
	actorID string,
	take int,
	cursor string,
) (*models.MessagePage, error) {
	if take <= 0 {
		return nil, ErrInvalidInput
	}

	if _, err := s.VerifyConversationAccess(ctx, conversationID, actorID); err != nil {
		return nil, err
	}

	messages, err := s.messages.ListBefore(ctx, conversationID, take+1, cursor)
	if err != nil {
		return nil, err
	}

	hasMore := len(messages) > take
	if hasMore {
		messages = messages[:take]
	}

	meta := models.MessageMeta{HasMore: hasMore}
	if hasMore && len(messages) > 0 {
		meta.NextCursor = messages[len(messages)-1].ID
	}

	return &models.MessagePage{Data: messages, Meta: meta}, nil
}

// UnreadCount counts unread messages addressed to the user across all
// of their ACTIVE conversations.
func (s *ChatService) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.messages.CountUnreadForUser(ctx, userID)
}
