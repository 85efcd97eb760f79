package chatws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/rs/zerolog"

	"github.com/fitcoach-app/CoachChatBack/internal/models"
	"github.com/fitcoach-app/CoachChatBack/internal/services"
)

// ChatOps is the slice of the chat service the gateway drives.
type ChatOps interface {
	RoomsForUser(ctx context.Context, userID string) ([]string, error)
	VerifyConversationAccess(ctx context.Context, conversationID, actorID string) (*models.Conversation, error)
	SendMessage(ctx context.Context, conversationID, senderID, content string) (*models.Message, error)
	MarkMessageRead(ctx context.Context, messageID, readerID string) (*models.Message, bool, error)
	MarkAllRead(ctx context.Context, conversationID, readerID string) error
}

// Gateway runs the per-connection protocol: register with the hub,
// join the caller's rooms, then serve operations until the transport
// closes. Authentication already happened before the upgrade, so every
// connection reaching HandleConnection carries a verified user.
type Gateway struct {
	hub  *Hub
	chat ChatOps
	log  zerolog.Logger
}

func NewGateway(hub *Hub, chat ChatOps, log zerolog.Logger) *Gateway {
	return &Gateway{hub: hub, chat: chat, log: log}
}

// HandleConnection is the connection lifecycle. Registration and room
// joining complete before the read loop starts, so no client operation
// can be observed before the connection is fully ACTIVE. Unregistering
// on the way out releases the registry entry and every room
// membership in one step.
func (g *Gateway) HandleConnection(conn *websocket.Conn, user *models.User) {
	client := NewClient(g.hub, conn, user)

	g.hub.Register(client)
	defer func() {
		g.hub.Unregister(client)
		_ = conn.Close()
		g.log.Info().Str("user_id", user.ID).Msg("client disconnected")
	}()

	ctx := context.Background()
	rooms, err := g.chat.RoomsForUser(ctx, user.ID)
	if err != nil {
		g.log.Error().Err(err).Str("user_id", user.ID).Msg("resolving rooms failed")
		return
	}
	for _, roomID := range rooms {
		g.hub.JoinRoom(client, roomID)
	}
	g.log.Info().
		Str("user_id", user.ID).
		Int("rooms", len(rooms)).
		Msg("client connected")

	go client.WritePump()
	g.readLoop(ctx, client)
}

func (g *Gateway) readLoop(ctx context.Context, client *Client) {
	conn := client.conn
	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		if !client.limiter.Allow() {
			g.sendError(client, "rate limit exceeded", 429)
			continue
		}

		var env Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			g.sendError(client, "invalid payload", 400)
			continue
		}

		g.dispatch(ctx, client, &env)
	}
}

// dispatch routes one frame. Operation failures answer the caller and
// leave the connection usable; only transport errors end it.
func (g *Gateway) dispatch(ctx context.Context, client *Client, env *Envelope) {
	defer func() {
		if r := recover(); r != nil {
			g.log.Error().Interface("panic", r).Str("event", env.Event).Msg("handler panicked")
			g.sendError(client, "internal server error", 500)
		}
	}()

	switch env.Event {
	case EventSendMessage:
		g.handleSendMessage(ctx, client, env)
	case EventTypingStart:
		g.handleTyping(client, env, true)
	case EventTypingStop:
		g.handleTyping(client, env, false)
	case EventMessageRead:
		g.handleMessageRead(ctx, client, env)
	case EventMarkAllRead:
		g.handleMarkAllRead(ctx, client, env)
	case EventJoinConversation:
		g.handleJoinConversation(ctx, client, env)
	default:
		g.sendResult(client, env.ID, Result{Success: false, Error: "unsupported event"})
	}
}

func (g *Gateway) handleSendMessage(ctx context.Context, client *Client, env *Envelope) {
	var req sendMessageRequest
	if err := json.Unmarshal(env.Data, &req); err != nil || req.ConversationID == "" {
		g.sendResult(client, env.ID, Result{Success: false, Error: "invalid payload"})
		return
	}

	message, err := g.chat.SendMessage(ctx, req.ConversationID, client.user.ID, req.Content)
	if err != nil {
		g.failOperation(client, env, err, "failed to send message")
		return
	}

	g.broadcastEvent(services.RoomID(message.ConversationID), EventNewMessage, newMessageEvent{
		Message:        message,
		ConversationID: message.ConversationID,
	})
	g.sendResult(client, env.ID, Result{Success: true, Message: message})
}

// handleTyping relays the indicator to everyone else in the room. No
// access check and no stored state: a client gone mid-typing leaves
// nothing to clean up.
func (g *Gateway) handleTyping(client *Client, env *Envelope, start bool) {
	var req typingRequest
	if err := json.Unmarshal(env.Data, &req); err != nil || req.ConversationID == "" {
		g.sendResult(client, env.ID, Result{Success: false, Error: "invalid payload"})
		return
	}

	event := typingEvent{
		ConversationID: req.ConversationID,
		UserID:         client.user.ID,
	}
	name := EventTypingStop
	if start {
		event.UserName = client.user.Name
		name = EventTypingStart
	}

	payload, err := json.Marshal(outEnvelope{Event: name, Data: event})
	if err != nil {
		g.log.Error().Err(err).Msg("encode typing event")
		return
	}
	g.hub.BroadcastExcept(services.RoomID(req.ConversationID), client.user.ID, payload)
	g.sendResult(client, env.ID, Result{Success: true})
}

func (g *Gateway) handleMessageRead(ctx context.Context, client *Client, env *Envelope) {
	var req markReadRequest
	if err := json.Unmarshal(env.Data, &req); err != nil || req.MessageID == "" {
		g.sendResult(client, env.ID, Result{Success: false, Error: "invalid payload"})
		return
	}

	message, updated, err := g.chat.MarkMessageRead(ctx, req.MessageID, client.user.ID)
	if err != nil {
		g.failOperation(client, env, err, "failed to mark as read")
		return
	}

	if updated {
		g.broadcastEvent(services.RoomID(message.ConversationID), EventMessageRead, messageReadEvent{
			MessageID:      message.ID,
			ConversationID: message.ConversationID,
			ReadAt:         message.ReadAt,
			ReadBy:         client.user.ID,
		})
	}
	g.sendResult(client, env.ID, Result{Success: true})
}

func (g *Gateway) handleMarkAllRead(ctx context.Context, client *Client, env *Envelope) {
	var req typingRequest
	if err := json.Unmarshal(env.Data, &req); err != nil || req.ConversationID == "" {
		g.sendResult(client, env.ID, Result{Success: false, Error: "invalid payload"})
		return
	}

	if err := g.chat.MarkAllRead(ctx, req.ConversationID, client.user.ID); err != nil {
		g.failOperation(client, env, err, "failed to mark conversation read")
		return
	}
	g.sendResult(client, env.ID, Result{Success: true})
}

// handleJoinConversation is the one join path that revalidates access
// instead of trusting the room snapshot from connect time: the client
// may have been reassigned since.
func (g *Gateway) handleJoinConversation(ctx context.Context, client *Client, env *Envelope) {
	var req joinConversationRequest
	if err := json.Unmarshal(env.Data, &req); err != nil || req.ConversationID == "" {
		g.sendResult(client, env.ID, Result{Success: false, Error: "invalid payload"})
		return
	}

	if _, err := g.chat.VerifyConversationAccess(ctx, req.ConversationID, client.user.ID); err != nil {
		g.failOperation(client, env, err, "failed to join conversation")
		return
	}

	g.hub.JoinRoom(client, services.RoomID(req.ConversationID))
	g.log.Info().
		Str("user_id", client.user.ID).
		Str("conversation_id", req.ConversationID).
		Msg("joined conversation")
	g.sendResult(client, env.ID, Result{Success: true})
}

// failOperation answers the caller with the operation error. Expected
// domain errors travel as-is; anything else is logged and surfaced
// through the generic error event as well.
func (g *Gateway) failOperation(client *Client, env *Envelope, err error, fallback string) {
	if isDomainError(err) {
		g.sendResult(client, env.ID, Result{Success: false, Error: err.Error()})
		return
	}

	g.log.Error().Err(err).Str("event", env.Event).Msg("chat operation failed")
	g.sendResult(client, env.ID, Result{Success: false, Error: fallback})
	g.sendError(client, fallback, 500)
}

func isDomainError(err error) bool {
	return errors.Is(err, services.ErrForbidden) ||
		errors.Is(err, services.ErrInvalidInput) ||
		errors.Is(err, services.ErrConversationNotFound) ||
		errors.Is(err, services.ErrMessageNotFound)
}

func (g *Gateway) broadcastEvent(roomID string, event string, data any) {
	payload, err := json.Marshal(outEnvelope{Event: event, Data: data})
	if err != nil {
		g.log.Error().Err(err).Str("event", event).Msg("encode broadcast")
		return
	}
	g.hub.Broadcast(roomID, payload)
}

func (g *Gateway) sendResult(client *Client, id string, result Result) {
	payload, err := json.Marshal(outEnvelope{ID: id, Event: EventResult, Data: result})
	if err != nil {
		g.log.Error().Err(err).Msg("encode result")
		return
	}
	g.hub.Send(client, payload)
}

func (g *Gateway) sendError(client *Client, message string, status int) {
	payload, err := json.Marshal(outEnvelope{Event: EventError, Data: errorEvent{Message: message, Status: status}})
	if err != nil {
		g.log.Error().Err(err).Msg("encode error event")
		return
	}
	g.hub.Send(client, payload)
}
