package handlers

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/crowdbounty/backend/internal/auth"
	"github.com/crowdbounty/backend/internal/config"
	"github.com/crowdbounty/backend/internal/events"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// WSHub fans bounty events out to live sockets. Sockets opened with a session
// token also receive the events addressed to their wallet.
type WSHub struct {
	cfg        *config.Config
	subscriber events.Subscriber
	log        *zap.Logger

	mu          sync.RWMutex
	connections map[string][]messageWriter // by wallet address, "" for anonymous
}

func NewWSHub(cfg *config.Config, subscriber events.Subscriber, log *zap.Logger) *WSHub {
	return &WSHub{
		cfg:         cfg,
		subscriber:  subscriber,
		log:         log,
		connections: make(map[string][]messageWriter),
	}
}

func (h *WSHub) Start(ctx context.Context) error {
	return h.subscriber.Subscribe(ctx, events.StreamBounty, h.dispatch)
}

func (h *WSHub) dispatch(event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Warn("ws event marshal failed", zap.String("type", event.Type), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if recipient := event.Recipient(); recipient != "" {
		for _, conn := range h.connections[recipient] {
			_ = conn.WriteMessage(websocket.TextMessage, data)
		}
		return
	}
	for _, conns := range h.connections {
		for _, conn := range conns {
			_ = conn.WriteMessage(websocket.TextMessage, data)
		}
	}
}

func (h *WSHub) register(address string, conn messageWriter) {
	h.mu.Lock()
	h.connections[address] = append(h.connections[address], conn)
	h.mu.Unlock()
}

func (h *WSHub) unregister(address string, conn messageWriter) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.connections[address]
	for i, c := range conns {
		if c == conn {
			h.connections[address] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.connections[address]) == 0 {
		delete(h.connections, address)
	}
}

// WSUpgradeMiddleware checks for websocket upgrade
func WSUpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

func (h *WSHub) HandleWS(conn *websocket.Conn) {
	var address string
	if tokenStr := conn.Query("token"); tokenStr != "" {
		claims, err := auth.ParseJWT(h.cfg.JWTSecret, tokenStr)
		if err != nil {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"invalid token","code":"unauthorized"}`))
			conn.Close()
			return
		}
		address = claims.Address
	}

	h.register(address, conn)
	defer func() {
		h.unregister(address, conn)
		conn.Close()
	}()

	// Read loop (keep alive / pings)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
