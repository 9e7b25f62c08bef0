package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"tradeblocks/internal/observability"
)

// Progress event types.
const (
	EventParse      = "parse"
	EventSimulation = "simulation"
)

// ProgressEvent is pushed to every websocket subscriber.
type ProgressEvent struct {
	Type       string  `json:"type"`
	DatasetKey string  `json:"datasetKey,omitempty"`
	File       string  `json:"file,omitempty"` // "trades" or "daily_log" for parse events
	Fraction   float64 `json:"fraction"`
	Done       int     `json:"done,omitempty"`
	Total      int     `json:"total,omitempty"`
}

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub fans progress events out to websocket subscribers.
// Run is the only writer to the connections.
type Hub struct {
	mu        sync.RWMutex
	clients   map[*websocket.Conn]struct{}
	closed    bool // set once Run has stopped; guarded by mu
	broadcast chan []byte
	logger    *zap.Logger
}

// NewHub creates a hub. Call Run to start delivering events.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:   make(map[*websocket.Conn]struct{}),
		broadcast: make(chan []byte, 256),
		logger:    logger,
	}
}

// Run delivers events until ctx is done, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			h.closed = true
			for conn := range h.clients {
				conn.Close()
				delete(h.clients, conn)
			}
			h.mu.Unlock()
			observability.DefaultMetrics.ProgressSubscribers.Set(0)
			return

		case message := <-h.broadcast:
			h.mu.RLock()
			var failed []*websocket.Conn
			for conn := range h.clients {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					failed = append(failed, conn)
				}
			}
			h.mu.RUnlock()
			for _, conn := range failed {
				h.remove(conn)
			}
		}
	}
}

// Publish queues an event. Events are dropped when the queue is full.
func (h *Hub) Publish(e ProgressEvent) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.logger.Debug("progress event dropped", zap.String("type", e.Type))
	}
}

// Subscribers returns the number of connected clients.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// add registers conn. It reports false once the hub has stopped.
func (h *Hub) add(conn *websocket.Conn) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.clients[conn] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	observability.DefaultMetrics.ProgressSubscribers.Set(float64(n))
	return true
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
	n := len(h.clients)
	h.mu.Unlock()
	observability.DefaultMetrics.ProgressSubscribers.Set(float64(n))
}

// ServeWS upgrades the request and keeps the subscription until the client goes away.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	if !h.add(conn) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	// Drain client frames; a read error means the client disconnected.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.remove(conn)
			return
		}
	}
}
