// Package websocket pushes access-control events to the live sessions of affected users.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"backoffice/internal/logger"
	"backoffice/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

// Authenticator verifies the token a websocket client connects with
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (*middleware.Principal, error)
}

// Message is the JSON frame sent to clients
type Message struct {
	Event   string    `json:"event"`
	Payload any       `json:"payload,omitempty"`
	SentAt  time.Time `json:"sent_at"`
}

// Client represents a single connected WebSocket client
type Client struct {
	hub    *Hub
	userID uuid.UUID
	conn   *websocket.Conn
	send   chan []byte
}

type delivery struct {
	userIDs []uuid.UUID
	frame   []byte
}

// Hub tracks connected clients per user and delivers events to them
type Hub struct {
	upgrader   websocket.Upgrader
	auth       Authenticator
	log        logrus.FieldLogger
	clients    map[uuid.UUID]map[*Client]struct{}
	mu         sync.RWMutex
	register   chan *Client
	unregister chan *Client
	deliver    chan delivery
}

// NewHub builds a hub; allowedOrigins empty accepts any origin
func NewHub(auth Authenticator, allowedOrigins []string, log logrus.FieldLogger) *Hub {
	if log == nil {
		log = logger.Discard()
	}
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if len(origins) == 0 || origin == "" {
					return true
				}
				_, ok := origins[origin]
				return ok
			},
		},
		auth:       auth,
		log:        log,
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan delivery, 64),
	}
}

// Run dispatches registrations and deliveries until ctx is done, then closes every client
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, set := range h.clients {
				for c := range set {
					close(c.send)
				}
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return
		case c := <-h.register:
			h.mu.Lock()
			if h.clients[c.userID] == nil {
				h.clients[c.userID] = make(map[*Client]struct{})
			}
			h.clients[c.userID][c] = struct{}{}
			h.mu.Unlock()
			h.log.WithField("user_id", c.userID).Debug("websocket client connected")
		case c := <-h.unregister:
			h.drop(c)
		case d := <-h.deliver:
			h.mu.Lock()
			for _, id := range d.userIDs {
				for c := range h.clients[id] {
					select {
					case c.send <- d.frame:
					default:
						// slow consumer is disconnected
						h.removeLocked(c)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) drop(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	set, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
	h.log.WithField("user_id", c.userID).Debug("websocket client disconnected")
}

// Connected returns the number of live connections for userID
func (h *Hub) Connected(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// NotifyUsers queues event for every live connection of userIDs. It never blocks the caller;
// when the queue is full the event is dropped and logged.
func (h *Hub) NotifyUsers(userIDs []uuid.UUID, event string, payload any) {
	if len(userIDs) == 0 {
		return
	}
	frame, err := json.Marshal(Message{Event: event, Payload: payload, SentAt: time.Now().UTC()})
	if err != nil {
		h.log.WithError(err).WithField("event", event).Error("failed to encode websocket event")
		return
	}
	ids := append([]uuid.UUID(nil), userIDs...)
	select {
	case h.deliver <- delivery{userIDs: ids, frame: frame}:
	default:
		h.log.WithField("event", event).WithField("users", len(ids)).Warn("websocket queue full, event dropped")
	}
}

// writePump handles writing messages from the Hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
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

// readPump only watches for close and pong frames; clients never send commands
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-ctx.Done():
		}
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.WithError(err).Debug("websocket read failed")
			}
			return
		}
	}
}

// Serve upgrades an authenticated request. The token comes from the "token" query parameter,
// since browsers cannot set headers on a websocket handshake, or from the usual cookie/header.
func (h *Hub) Serve(ctx context.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.Query("token")
		if raw == "" {
			raw = middleware.BearerToken(c)
		}
		if raw == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		p, err := h.auth.Authenticate(c.Request.Context(), raw)
		if err != nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.WithContext(h.log, c.Request.Context()).WithError(err).Warn("websocket upgrade failed")
			return
		}
		client := &Client{hub: h, userID: p.User.ID, conn: conn, send: make(chan []byte, sendBuffer)}
		select {
		case h.register <- client:
		case <-ctx.Done():
			_ = conn.Close()
			return
		}

		go client.writePump()
		go client.readPump(ctx)
	}
}
