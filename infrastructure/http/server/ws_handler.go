package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"quick-chat/auth"
	"quick-chat/contract"
	"quick-chat/domain/chat"
	"quick-chat/domain/event"
	"quick-chat/sink"
)

// WsHandler owns the websocket side of the transport: one long-lived
// connection per authenticated user carrying online-set-changed and
// new-message events outward. The client never sends application frames;
// reads only serve to detect the close.
type WsHandler struct {
	log        *slog.Logger
	broker     contract.IBroker
	bufferSize int
}

func NewWsHandler(log *slog.Logger, broker contract.IBroker, bufferSize int) *WsHandler {
	return &WsHandler{log: log, broker: broker, bufferSize: bufferSize}
}

// Upgrade gates the route so only genuine websocket upgrade requests reach
// the connection handler.
func (h *WsHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handle runs for the lifetime of one connection. Registration and the
// presence broadcast happen through the broker; the deferred close path runs
// on every exit, so duplicate deregister signals are expected and safe.
func (h *WsHandler) Handle(conn *websocket.Conn) {
	userID, ok := conn.Locals(auth.UserIDKey).(string)
	if !ok || userID == "" {
		_ = conn.Close()
		return
	}
	identity := chat.UserID(userID)

	ctx := context.Background()
	wsSink := sink.NewWsSink(h.log, h.bufferSize)

	h.broker.OnConnectionOpened(ctx, identity, wsSink)
	defer func() {
		wsSink.Close()
		h.broker.OnConnectionClosed(ctx, identity)
	}()

	done := make(chan struct{})
	go h.writeLoop(conn, wsSink, done)

	// Block on reads until the peer goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	close(done)
}

// writeLoop drains the sink into the socket. Each event is one framed JSON
// envelope, so a push racing a close either lands whole or fails whole.
func (h *WsHandler) writeLoop(conn *websocket.Conn, wsSink *sink.WsSink, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case evt := <-wsSink.Events():
			data, err := json.Marshal(event.Wrap(evt))
			if err != nil {
				h.log.Error("Failed to encode event", "kind", evt.Kind(), "error", err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.log.Debug("Write failed, connection presumed closed", "error", err)
				return
			}
		}
	}
}
