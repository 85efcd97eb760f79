package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/fitcoach-app/CoachChatBack/internal/models"
	"github.com/fitcoach-app/CoachChatBack/internal/services"
	chatws "github.com/fitcoach-app/CoachChatBack/internal/websocket"
)

const (
	defaultMessageTake = 50
	maxMessageTake     = 100
)

type chatApplicationService interface {
	GetConversation(ctx context.Context, conversationID, actorID string) (*models.ConversationDetail, error)
	GetMessages(ctx context.Context, conversationID, actorID string, take int, cursor string) (*models.MessagePage, error)
	MarkAllRead(ctx context.Context, conversationID, readerID string) error
	UnreadCount(ctx context.Context, userID string) (int, error)
}

type sessionVerifier interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

type ChatHandler struct {
	service  chatApplicationService
	verifier sessionVerifier
	gateway  *chatws.Gateway
}

func NewChatHandler(
	service chatApplicationService,
	verifier sessionVerifier,
	gateway *chatws.Gateway,
) *ChatHandler {
	return &ChatHandler{
		service:  service,
		verifier: verifier,
		gateway:  gateway,
	}
}

func (h *ChatHandler) GetConversation(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	detail, err := h.service.GetConversation(c.Context(), c.Params("id"), userID)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(detail)
}

func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	take := parsePositiveInt(c.Query("take"), defaultMessageTake)
	if take > maxMessageTake {
		take = maxMessageTake
	}

	page, err := h.service.GetMessages(c.Context(), c.Params("id"), userID, take, c.Query("cursor"))
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(page)
}

func (h *ChatHandler) MarkAllRead(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	if err := h.service.MarkAllRead(c.Context(), c.Params("id"), userID); err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}

func (h *ChatHandler) GetUnreadCount(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	count, err := h.service.UnreadCount(c.Context(), userID)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{"count": count})
}

// WebSocketAuth authenticates the handshake before the upgrade. The
// credential comes from the dedicated token query field, falling back
// to the Authorization header. A failure here means the socket never
// opens.
func (h *ChatHandler) WebSocketAuth(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{"error": "WebSocket upgrade required"})
	}

	user, err := h.verifier.Authenticate(c.Context(), extractToken(c))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingCredential),
			errors.Is(err, services.ErrInvalidCredential),
			errors.Is(err, services.ErrUnknownUser):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Authentication failed"})
		}
	}

	c.Locals("chat_user", user)
	return c.Next()
}

func (h *ChatHandler) HandleWebSocket(conn *websocket.Conn) {
	user, _ := conn.Locals("chat_user").(*models.User)
	if user == nil {
		_ = conn.Close()
		return
	}
	h.gateway.HandleConnection(conn, user)
}

func extractToken(c *fiber.Ctx) string {
	token := strings.TrimSpace(c.Query("token"))
	if token != "" {
		return token
	}

	authHeader := strings.TrimSpace(c.Get("Authorization"))
	parts := strings.Split(authHeader, " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

func parsePositiveInt(value string, fallback int) int {
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func mapChatError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	case errors.Is(err, services.ErrConversationNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Conversation not found"})
	case errors.Is(err, services.ErrMessageNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Message not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process chat request"})
	}
}
