// internal/handler/websocket_handler.go
package handler

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"led-service/internal/model"
	"led-service/internal/rpc"
	"led-service/internal/utils"
)

const (
	pongWait     = 60 * time.Second
	pingPeriod   = 54 * time.Second
	writeWait    = 10 * time.Second
	maxFrameSize = 64 * 1024
)

// WebSocketHandler serves JSON-RPC over WebSocket and pushes LED events
// to every connected client as ledEvent notifications.
type WebSocketHandler struct {
	upgrader    websocket.Upgrader
	connections *ConnectionManager
	dispatcher  *rpc.Dispatcher
	eventBus    *EventBus
	events      <-chan *model.LedEvent
	pumps       sync.WaitGroup
	logger      *utils.ServiceLogger
}

// NewWebSocketHandler creates a new WebSocket handler.
// An empty allowedOrigins list accepts any origin.
func NewWebSocketHandler(
	dispatcher *rpc.Dispatcher,
	eventBus *EventBus,
	allowedOrigins []string,
	logger *zap.Logger,
) *WebSocketHandler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, origin)
		},
	}

	return &WebSocketHandler{
		upgrader:    upgrader,
		connections: NewConnectionManager(),
		dispatcher:  dispatcher,
		eventBus:    eventBus,
		events:      eventBus.Subscribe(),
		logger:      utils.NewServiceLogger(logger, "websocket-handler"),
	}
}

// RegisterRoutes registers WebSocket routes
func (h *WebSocketHandler) RegisterRoutes(router gin.IRoutes) {
	router.GET("/ws", h.HandleConnection)
}

// Run forwards bus events to clients until ctx is done
func (h *WebSocketHandler) Run(ctx context.Context) {
	defer h.eventBus.Unsubscribe(h.events)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-h.events:
			if !ok {
				return
			}

			message, err := rpc.NewNotification(rpc.MethodLedEvent, event)
			if err != nil {
				h.logger.Error("Failed to encode event notification", zap.Error(err))
				continue
			}

			if dropped := h.connections.Broadcast(message); dropped > 0 {
				h.logger.Warn("Client send channel full during broadcast",
					zap.Int("dropped", dropped),
					zap.String("event_type", string(event.EventType)),
				)
			}
		}
	}
}

// HandleConnection upgrades the request and starts the client pumps
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	client := &Client{
		ID:          uuid.New().String(),
		Connection:  conn,
		Send:        make(chan []byte, 256),
		UserAgent:   c.Request.UserAgent(),
		RemoteAddr:  c.Request.RemoteAddr,
		ConnectedAt: time.Now(),
	}

	h.connections.Register(client)
	h.logger.Info("WebSocket client connected",
		zap.String("client_id", client.ID),
		zap.String("remote_addr", client.RemoteAddr),
	)

	h.pumps.Add(2)
	go h.handleClientRead(client)
	go h.handleClientWrite(client)
}

// Shutdown closes every client connection and waits for their pumps to exit
func (h *WebSocketHandler) Shutdown(ctx context.Context) error {
	h.connections.CloseAll()

	done := make(chan struct{})
	go func() {
		h.pumps.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// handleClientRead dispatches every inbound frame as a JSON-RPC request.
// Calls run concurrently; responses are queued as they complete.
func (h *WebSocketHandler) handleClientRead(client *Client) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls sync.WaitGroup

	defer func() {
		defer h.pumps.Done()
		cancel()
		calls.Wait()
		h.connections.Unregister(client)
		client.Connection.Close()
		h.logger.Info("WebSocket client disconnected", zap.String("client_id", client.ID))
	}()

	client.Connection.SetReadLimit(maxFrameSize)
	client.Connection.SetReadDeadline(time.Now().Add(pongWait))
	client.Connection.SetPongHandler(func(string) error {
		client.Connection.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, messageBytes, err := client.Connection.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket read error",
					zap.Error(err),
					zap.String("client_id", client.ID),
				)
			}
			return
		}

		calls.Add(1)
		go func(message []byte) {
			defer calls.Done()

			response := h.dispatcher.HandleMessage(ctx, message)
			if response == nil {
				return
			}
			if !h.connections.Send(client, response) {
				h.logger.Warn("Dropping RPC response",
					zap.String("client_id", client.ID),
				)
			}
		}(messageBytes)
	}
}

// handleClientWrite handles writing messages to WebSocket client
func (h *WebSocketHandler) handleClientWrite(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Connection.Close()
		h.pumps.Done()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Connection.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Connection.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.Connection.WriteMessage(websocket.TextMessage, message); err != nil {
				h.logger.Error("WebSocket write error",
					zap.Error(err),
					zap.String("client_id", client.ID),
				)
				return
			}

		case <-ticker.C:
			client.Connection.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// GetConnectionStats returns connection statistics
func (h *WebSocketHandler) GetConnectionStats() *ConnectionStats {
	return h.connections.GetStats()
}
