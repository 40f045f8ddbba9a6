package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/pdpcds-server/internal/domain"
)

const streamSendBuffer = 64

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins; tighten in production.
	},
}

// streamClient is one connected WebSocket subscriber.
type streamClient struct {
	send chan []byte
}

// StreamHub fans feedback events out to connected WebSocket clients.
// It implements domain.FeedbackPublisher: a submit never blocks on a
// subscriber, and a client whose buffer stays full just misses events.
type StreamHub struct {
	logger *logrus.Logger

	mu      sync.RWMutex
	clients map[*streamClient]struct{}
}

// NewStreamHub creates an empty hub ready to accept subscribers.
func NewStreamHub(logger *logrus.Logger) *StreamHub {
	return &StreamHub{
		logger:  logger,
		clients: make(map[*streamClient]struct{}),
	}
}

// PublishFeedback broadcasts one event to every connected client using
// non-blocking sends.
func (h *StreamHub) PublishFeedback(event domain.FeedbackEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.WithError(err).Warn("Dropping feedback event that failed to marshal")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			// Client buffer full; skip to avoid blocking.
		}
	}
}

// ClientCount returns the number of connected subscribers.
func (h *StreamHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every subscriber. Used during server shutdown.
func (h *StreamHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

func (h *StreamHub) register(client *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = struct{}{}
}

func (h *StreamHub) unregister(client *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
}

// ServeStream upgrades the request to a WebSocket connection and
// streams feedback events until the peer goes away.
func (h *StreamHub) ServeStream(c *gin.Context) {
	conn, err := streamUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	client := &streamClient{send: make(chan []byte, streamSendBuffer)}
	h.register(client)

	h.logger.WithField("clients", h.ClientCount()).Debug("Stream subscriber connected")

	go h.writePump(client, conn)
	h.readPump(client, conn)
}

// readPump drains inbound frames until the connection errors. The
// stream is one-way; client messages are discarded.
func (h *StreamHub) readPump(client *streamClient, conn *websocket.Conn) {
	defer func() {
		h.unregister(client)
		conn.Close()
		h.logger.WithField("clients", h.ClientCount()).Debug("Stream subscriber disconnected")
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump forwards buffered events to the connection. A write error
// ends the pump; readPump then observes the closed connection and
// unregisters the client.
func (h *StreamHub) writePump(client *streamClient, conn *websocket.Conn) {
	defer conn.Close()

	for message := range client.send {
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}

	// Hub closed the channel during shutdown; say goodbye properly.
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
}
