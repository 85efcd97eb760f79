package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/fitcoach-app/CoachChatBack/internal/models"
	"github.com/fitcoach-app/CoachChatBack/internal/repository"
)

var (
	chatTestDBOnce sync.Once
	chatTestDBPool *pgxpool.Pool
	chatTestDBErr  error
)

func TestAssignmentReassignmentFlow(t *testing.T) {
	ctx := context.Background()
	pool := chatIntegrationPool(t)

	userID := createChatAccount(t, ctx, pool, models.RoleUser)
	firstCoachID := createChatAccount(t, ctx, pool, models.RoleCoach)
	secondCoachID := createChatAccount(t, ctx, pool, models.RoleCoach)
	t.Cleanup(func() { cleanupChatAccounts(t, ctx, pool, userID, firstCoachID, secondCoachID) })

	service := NewAssignmentService(pool, repository.NewUserRepository(pool), repository.NewAssignmentRepository(pool))

	first, firstConv, err := service.CreateAssignment(ctx, userID, firstCoachID, "")
	if err != nil {
		t.Fatalf("CreateAssignment: %v", err)
	}
	if first.Status != models.AssignmentActive {
		t.Fatalf("expected ACTIVE assignment, got %q", first.Status)
	}

	loadedConv, err := repository.NewConversationRepository(pool).GetByAssignment(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetByAssignment: %v", err)
	}
	if loadedConv.ID != firstConv.ID || loadedConv.UserID != userID || loadedConv.CoachID != firstCoachID {
		t.Fatalf("unexpected conversation: %+v", loadedConv)
	}

	// Reassigning ends the previous assignment and creates a fresh
	// conversation in the same transaction.
	second, secondConv, err := service.CreateAssignment(ctx, userID, secondCoachID, "")
	if err != nil {
		t.Fatalf("reassign CreateAssignment: %v", err)
	}
	if secondConv.ID == firstConv.ID {
		t.Fatal("reassignment reused the previous conversation")
	}

	ended, err := repository.NewAssignmentRepository(pool).GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if ended.Status != models.AssignmentEnded {
		t.Fatalf("expected first assignment ENDED, got %q", ended.Status)
	}

	if _, _, err := service.CreateAssignment(ctx, userID, secondCoachID, ""); err != ErrConflict {
		t.Fatalf("expected ErrConflict for duplicate active pair, got %v", err)
	}

	if _, err := service.EndAssignment(ctx, second.ID); err != nil {
		t.Fatalf("EndAssignment: %v", err)
	}
}

func TestChatFlowAgainstDatabase(t *testing.T) {
	ctx := context.Background()
	pool := chatIntegrationPool(t)

	userID := createChatAccount(t, ctx, pool, models.RoleUser)
	coachID := createChatAccount(t, ctx, pool, models.RoleCoach)
	t.Cleanup(func() { cleanupChatAccounts(t, ctx, pool, userID, coachID) })

	assignmentService := NewAssignmentService(pool, repository.NewUserRepository(pool), repository.NewAssignmentRepository(pool))
	_, conversation, err := assignmentService.CreateAssignment(ctx, userID, coachID, "")
	if err != nil {
		t.Fatalf("CreateAssignment: %v", err)
	}

	chat := NewChatService(
		repository.NewConversationRepository(pool),
		repository.NewAssignmentRepository(pool),
		repository.NewMessageRepository(pool),
		repository.NewUserRepository(pool),
		zerolog.Nop(),
	)

	message, err := chat.SendMessage(ctx, conversation.ID, userID, "  let's plan the week  ")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if message.Content != "let's plan the week" {
		t.Fatalf("content not trimmed: %q", message.Content)
	}
	if message.Sender == nil || message.Sender.ID != userID {
		t.Fatalf("sender summary missing: %+v", message.Sender)
	}

	count, err := chat.UnreadCount(ctx, coachID)
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 unread for coach, got %d", count)
	}

	read, updated, err := chat.MarkMessageRead(ctx, message.ID, coachID)
	if err != nil {
		t.Fatalf("MarkMessageRead: %v", err)
	}
	if !updated || read.ReadAt == nil {
		t.Fatalf("expected read transition, got updated=%v read_at=%v", updated, read.ReadAt)
	}

	if _, updated, err = chat.MarkMessageRead(ctx, message.ID, coachID); err != nil || updated {
		t.Fatalf("expected idempotent repeat, got updated=%v err=%v", updated, err)
	}

	if count, err = chat.UnreadCount(ctx, coachID); err != nil || count != 0 {
		t.Fatalf("expected 0 unread after read, got %d (err=%v)", count, err)
	}

	for i := 0; i < 3; i++ {
		if _, err := chat.SendMessage(ctx, conversation.ID, coachID, fmt.Sprintf("note %d", i)); err != nil {
			t.Fatalf("SendMessage %d: %v", i, err)
		}
	}

	page, err := chat.GetMessages(ctx, conversation.ID, userID, 2, "")
	if err != nil {
		t.Fatalf("GetMessages: %v", err)
	}
	if len(page.Data) != 2 || !page.Meta.HasMore || page.Meta.NextCursor == "" {
		t.Fatalf("unexpected first page: %+v", page.Meta)
	}

	rest, err := chat.GetMessages(ctx, conversation.ID, userID, 10, page.Meta.NextCursor)
	if err != nil {
		t.Fatalf("GetMessages rest: %v", err)
	}
	if len(rest.Data) != 2 || rest.Meta.HasMore {
		t.Fatalf("unexpected second page: %d messages, meta %+v", len(rest.Data), rest.Meta)
	}

	if err := chat.MarkAllRead(ctx, conversation.ID, userID); err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	if count, err = chat.UnreadCount(ctx, userID); err != nil || count != 0 {
		t.Fatalf("expected 0 unread after mark-all, got %d (err=%v)", count, err)
	}
}

func chatIntegrationPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	chatTestDBOnce.Do(func() {
		_ = godotenv.Load(".env")
		_ = godotenv.Load(filepath.Join("..", "..", ".env"))

		dbURL := os.Getenv("DB_URL")
		if dbURL == "" {
			chatTestDBErr = fmt.Errorf("DB_URL is not set")
			return
		}

		cfg, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			chatTestDBErr = err
			return
		}

		chatTestDBPool, chatTestDBErr = pgxpool.NewWithConfig(context.Background(), cfg)
		if chatTestDBErr != nil {
			return
		}
		chatTestDBErr = chatTestDBPool.Ping(context.Background())
	})

	if chatTestDBErr != nil {
		t.Skipf("skipping integration test: %v", chatTestDBErr)
	}
	return chatTestDBPool
}

func createChatAccount(t *testing.T, ctx context.Context, pool *pgxpool.Pool, role string) string {
	t.Helper()

	users := repository.NewUserRepository(pool)
	user := &models.User{
		Email: fmt.Sprintf("chat-test-%s-%d@example.com", role, time.Now().UnixNano()),
		Name:  "Chat Test " + role,
		Role:  role,
	}
	if err := users.Create(ctx, user); err != nil {
		t.Fatalf("Create(%s): %v", role, err)
	}

	loaded, err := users.GetByEmail(ctx, user.Email)
	if err != nil || loaded.ID != user.ID {
		t.Fatalf("GetByEmail(%s): %v", user.Email, err)
	}
	return user.ID
}

func cleanupChatAccounts(t *testing.T, ctx context.Context, pool *pgxpool.Pool, userIDs ...string) {
	t.Helper()

	if len(userIDs) == 0 {
		return
	}

	if _, err := pool.Exec(ctx, `
		DELETE FROM messages WHERE conversation_id IN (
			SELECT c.id FROM conversations c
			JOIN assignments a ON a.id = c.assignment_id
			WHERE a.user_id = ANY($1) OR a.coach_id = ANY($1)
		)`, userIDs); err != nil {
		t.Fatalf("cleanup messages: %v", err)
	}
	if _, err := pool.Exec(ctx, `
		DELETE FROM conversations WHERE assignment_id IN (
			SELECT id FROM assignments WHERE user_id = ANY($1) OR coach_id = ANY($1)
		)`, userIDs); err != nil {
		t.Fatalf("cleanup conversations: %v", err)
	}
	if _, err := pool.Exec(ctx, "DELETE FROM assignments WHERE user_id = ANY($1) OR coach_id = ANY($1)", userIDs); err != nil {
		t.Fatalf("cleanup assignments: %v", err)
	}
	if _, err := pool.Exec(ctx, "DELETE FROM users WHERE id = ANY($1)", userIDs); err != nil {
		t.Fatalf("cleanup users: %v", err)
	}
}
