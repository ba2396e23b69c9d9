package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"pantry/internal/models"
	"pantry/internal/storage"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Event is one message on the change feed.
type Event struct {
	Type string    `json:"type"`
	Time time.Time `json:"time"`
	Data any       `json:"data,omitempty"`
}

// Hub fans ledger changes out to websocket clients. Slow clients lose messages
// instead of blocking the ledger.
type Hub struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	closed  bool
	logger  *zap.Logger
}

type wsClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

var _ storage.Observer = (*Hub)(nil)

// NewHub creates a hub with no clients
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[*wsClient]struct{}),
		logger:  logger.With(zap.String("component", "events")),
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and streams events until the client leaves.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade connection", zap.Error(err))
		return
	}

	client := &wsClient{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.register(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()

	h.sendTo(client, Event{Type: "connected", Time: time.Now()})
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) register(c *wsClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) broadcast(e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		h.logger.Error("failed to marshal event", zap.String("type", e.Type), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("event buffer full, dropping message", zap.String("type", e.Type))
		}
	}
}

func (h *Hub) sendTo(c *wsClient, e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// BatchRegistered implements storage.Observer.
func (h *Hub) BatchRegistered(item models.InventoryItem, merged bool) {
	h.broadcast(Event{
		Type: "batch_registered",
		Time: time.Now(),
		Data: gin.H{"batch": newBatchView(item), "merged": merged},
	})
}

// StockWithdrawn implements storage.Observer.
func (h *Hub) StockWithdrawn(w storage.Withdrawal) {
	h.broadcast(Event{Type: "stock_withdrawn", Time: time.Now(), Data: newWithdrawalView(w)})
}

// BatchesExpired implements storage.Observer.
func (h *Hub) BatchesExpired(items []models.InventoryItem) {
	h.broadcast(Event{Type: "batches_expired", Time: time.Now(), Data: newBatchViews(items)})
}

// BatchesPurged implements storage.Observer.
func (h *Hub) BatchesPurged(items []models.InventoryItem) {
	h.broadcast(Event{Type: "batches_purged", Time: time.Now(), Data: newBatchViews(items)})
}

// readPump only watches for pongs and the close frame; clients never send commands.
func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("websocket closed", zap.Error(err))
			}
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
