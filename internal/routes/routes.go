package routes

import (
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/fitcoach-app/CoachChatBack/internal/config"
	"github.com/fitcoach-app/CoachChatBack/internal/handlers"
	"github.com/fitcoach-app/CoachChatBack/internal/middleware"
	"github.com/fitcoach-app/CoachChatBack/internal/repository"
	"github.com/fitcoach-app/CoachChatBack/internal/services"
	chatws "github.com/fitcoach-app/CoachChatBack/internal/websocket"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool, log zerolog.Logger) {
	userRepo := repository.NewUserRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	chatService := services.NewChatService(conversationRepo, assignmentRepo, messageRepo, userRepo, log)
	verifier := services.NewSessionVerifier(userRepo, cfg.JWTSecret)

	hub := chatws.NewHub()
	gateway := chatws.NewGateway(hub, chatService, log)
	chatHandler := handlers.NewChatHandler(chatService, verifier, gateway)

	api := app.Group("/api/v1", middleware.AuthRequired(cfg.JWTSecret))

	chat := api.Group("/chat")
	chat.Get("/conversations/:id", chatHandler.GetConversation)
	chat.Get("/conversations/:id/messages", chatHandler.GetMessages)
	chat.Post("/conversations/:id/read", chatHandler.MarkAllRead)
	chat.Get("/unread", chatHandler.GetUnreadCount)

	app.Use("/ws/chat", chatHandler.WebSocketAuth)
	app.Get("/ws/chat", websocket.New(chatHandler.HandleWebSocket))
}
