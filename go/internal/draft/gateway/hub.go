package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mumu-bot/teamdraft/go/internal/draft/events"
)

// Config holds websocket connection tuning.
type Config struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

func DefaultConfig() Config {
	return Config{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// Hub fans draft UI events out to websocket spectators, pooled per channel.
// It implements the presenter port so it can sit behind the fan-out
// presenter alongside the NATS publisher.
type Hub struct {
	connections map[int64]map[*connection]bool
	mu          sync.RWMutex

	upgrader    websocket.Upgrader
	config      Config
	broadcastCh chan broadcast
}

type connection struct {
	id        string
	channelID int64
	conn      *websocket.Conn
	send      chan []byte
	hub       *Hub

	// mu guards closed so a broadcast never hits a send channel that
	// unregister already closed.
	mu     sync.Mutex
	closed bool
}

// trySend queues data for the write pump. It reports false when the buffer is
// full; a closed connection swallows the message.
func (c *connection) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *connection) markClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

type broadcast struct {
	channelID int64
	envelope  *events.Envelope
}

func NewHub(config Config) *Hub {
	return &Hub{
		connections: make(map[int64]map[*connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan broadcast, 1000),
	}
}

// Start processes broadcasts until the context is cancelled.
func (h *Hub) Start(ctx context.Context) {
	log.Info().Msg("gateway hub started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("gateway hub shutting down")
			return
		case b := <-h.broadcastCh:
			h.handleBroadcast(b)
		}
	}
}

// Upgrade promotes an HTTP request to a websocket subscribed to one channel's
// draft events.
func (h *Hub) Upgrade(w http.ResponseWriter, r *http.Request, channelID int64) error {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("upgrade connection: %w", err)
	}
	c := &connection{
		id:        uuid.NewString(),
		channelID: channelID,
		conn:      ws,
		send:      make(chan []byte, 256),
		hub:       h,
	}
	h.register(c)
	go c.writePump()
	go c.readPump()

	log.Info().
		Str("connection_id", c.id).
		Int64("channel_id", channelID).
		Msg("websocket connection established")
	return nil
}

func (h *Hub) register(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.connections[c.channelID] == nil {
		h.connections[c.channelID] = make(map[*connection]bool)
	}
	h.connections[c.channelID][c] = true
}

func (h *Hub) unregister(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.connections[c.channelID]
	if !ok {
		return
	}
	if _, ok := conns[c]; !ok {
		return
	}
	delete(conns, c)
	c.markClosed()
	if len(conns) == 0 {
		delete(h.connections, c.channelID)
	}
	log.Debug().
		Str("connection_id", c.id).
		Int64("channel_id", c.channelID).
		Msg("connection unregistered")
}

func (h *Hub) enqueue(channelID int64, env *events.Envelope) error {
	select {
	case h.broadcastCh <- broadcast{channelID: channelID, envelope: env}:
		return nil
	default:
		log.Warn().Int64("channel_id", channelID).Msg("broadcast channel full, dropping message")
		return nil
	}
}

func (h *Hub) handleBroadcast(b broadcast) {
	h.mu.RLock()
	var targets []*connection
	for c := range h.connections[b.channelID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	data, err := json.Marshal(b.envelope)
	if err != nil {
		log.Error().Err(err).Msg("marshal broadcast envelope")
		return
	}
	for _, c := range targets {
		if !c.trySend(data) {
			log.Warn().Str("connection_id", c.id).Msg("send buffer full, closing connection")
			h.unregister(c)
			c.conn.Close()
		}
	}
}

// Stats reports active connection counts for the health endpoint.
func (h *Hub) Stats() map[string]any {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, conns := range h.connections {
		total += len(conns)
	}
	return map[string]any{
		"total_connections": total,
		"active_channels":   len(h.connections),
	}
}

func (c *connection) writePump() {
	ticker := time.NewTicker(c.hub.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.hub.unregister(c)
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Str("connection_id", c.id).Msg("websocket write failed")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *connection) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(c.hub.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
		return nil
	})
	for {
		// Spectator connections are read-only; incoming frames only reset the
		// deadline.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("connection_id", c.id).Msg("unexpected websocket close")
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
	}
}
