package handlers

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/lifevault/backend/internal/config"
	"github.com/lifevault/backend/internal/events"
	"github.com/lifevault/backend/internal/middleware"
	"go.uber.org/zap"
)

// WSHub relays account events to the websocket connections of the user each
// event belongs to.
type WSHub struct {
	subscriber  events.Subscriber
	log         *zap.Logger
	mu          sync.RWMutex
	connections map[uuid.UUID][]*websocket.Conn
}

func NewWSHub(subscriber events.Subscriber, log *zap.Logger) *WSHub {
	return &WSHub{
		subscriber:  subscriber,
		log:         log,
		connections: make(map[uuid.UUID][]*websocket.Conn),
	}
}

func (h *WSHub) Start(ctx context.Context) error {
	return h.subscriber.Subscribe(ctx, events.ChannelAccount, h.SendToUser)
}

func (h *WSHub) SendToUser(event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conn := range h.connections[event.UserID] {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.Debug("ws write failed", zap.String("user_id", event.UserID.String()), zap.Error(err))
		}
	}
}

// WSUpgradeMiddleware authenticates the upgrade request with ?token=<jwt>
// (browsers cannot set headers on websocket requests) or the session cookie.
func WSUpgradeMiddleware(resolver middleware.SessionResolver, cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		ctx := c.UserContext()
		var userID uuid.UUID
		if tokenStr := c.Query("token"); tokenStr != "" {
			sess, err := middleware.ResolveBearer(ctx, resolver, cfg.JWTSecret, tokenStr)
			if err != nil {
				return fiber.ErrUnauthorized
			}
			userID = sess.UserID
		} else if cookie := c.Cookies(cfg.SessionCookieName); cookie != "" {
			sess, err := resolver.Resolve(ctx, cookie)
			if err != nil {
				return fiber.ErrUnauthorized
			}
			userID = sess.UserID
		} else {
			return fiber.ErrUnauthorized
		}

		c.Locals(middleware.CtxUserID, userID)
		return c.Next()
	}
}

func (h *WSHub) HandleWS(conn *websocket.Conn) {
	userID, _ := conn.Locals(middleware.CtxUserID).(uuid.UUID)
	if userID == uuid.Nil {
		conn.Close()
		return
	}

	h.mu.Lock()
	h.connections[userID] = append(h.connections[userID], conn)
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		conns := h.connections[userID]
		for i, c := range conns {
			if c == conn {
				h.connections[userID] = append(conns[:i], conns[i+1:]...)
				break
			}
		}
		if len(h.connections[userID]) == 0 {
			delete(h.connections, userID)
		}
		h.mu.Unlock()
		conn.Close()
	}()

	// Clients only listen; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
