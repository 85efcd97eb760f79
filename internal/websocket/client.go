package chatws

import (
	"time"

	websocket "github.com/gofiber/contrib/websocket"
	"golang.org/x/time/rate"

	"github.com/fitcoach-app/CoachChatBack/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameSize   = 32 * 1024
	sendBufferSize = 32

	// Inbound frame rate per connection.
	inboundRate  = 10
	inboundBurst = 20
)

// Client is one live transport connection, post-authentication. It is
// ephemeral: it exists for the socket's lifetime and is never
// persisted.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	user    *models.User
	send    chan []byte
	limiter *rate.Limiter

	// rooms and closed are guarded by hub.mu.
	rooms  map[string]struct{}
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn, user *models.User) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		user:    user,
		send:    make(chan []byte, sendBufferSize),
		limiter: rate.NewLimiter(rate.Limit(inboundRate), inboundBurst),
		rooms:   make(map[string]struct{}),
	}
}

func (c *Client) User() *models.User {
	return c.user
}

// WritePump drains the send channel onto the socket and keeps the
// connection alive with pings. Runs in its own goroutine; exits when
// the send channel is closed by the hub or the peer goes away.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
