package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/klefe6/almanac/internal/config"
	"github.com/klefe6/almanac/internal/infrastructure"
)

// Event types originated by the hub itself. Services that push through
// the hub (warmup, cache admin) name their own events.
const (
	EventServerShutdown = "server:shutdown"
	EventCacheCleared   = "cache:cleared"
)

// Envelope is the wire format for every server push.
type Envelope struct {
	Type    string    `json:"type"`
	Payload any       `json:"payload,omitempty"`
	TS      time.Time `json:"ts"`
}

// Hub maintains the set of connected clients and fans broadcasts out to
// them. Each broadcast is marshaled once, not once per client.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	// mu guards clients and running
	mu      sync.RWMutex
	running bool

	quit chan struct{}
	done chan struct{}

	cfg     config.WebSocketConfig
	metrics *infrastructure.BusinessMetrics
	logger  *slog.Logger
}

// NewHub creates a hub. Zero values in cfg fall back to built-in
// defaults so tests can pass an empty config.
func NewHub(cfg config.WebSocketConfig, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 64
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = 60 * time.Second
	}
	if cfg.PingPeriod <= 0 || cfg.PingPeriod >= cfg.PongWait {
		cfg.PingPeriod = cfg.PongWait * 9 / 10
	}

	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		cfg:        cfg,
		metrics:    metrics,
		logger:     logger.With(slog.String("component", "websocket.hub")),
	}
}

// Start launches the hub loop. Calling Start on a running hub is a
// no-op.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.run()
}

func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			// Flush anything still queued (the shutdown notice among
			// it) before dropping the clients.
			for {
				select {
				case message := <-h.broadcast:
					h.fanOut(message)
				default:
					h.drain()
					return
				}
			}

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()

			infrastructure.RecordWebSocketConnectionChange(context.Background(), h.metrics, 1)
			h.logger.Info("client connected",
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr),
				slog.Int("clients", count))

		case client := <-h.unregister:
			h.drop(client, "connection closed")

		case message := <-h.broadcast:
			h.fanOut(message)
		}
	}
}

// fanOut queues message on every client. A client whose send buffer is
// full gets dropped rather than stalling everyone behind it.
func (h *Hub) fanOut(message []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.send <- message:
		default:
			h.drop(client, "send buffer full")
		}
	}
}

// drop removes the client and closes its send channel; the write pump
// exits when the channel closes. Dropping an already removed client is
// a no-op.
func (h *Hub) drop(client *Client, reason string) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	count := len(h.clients)
	h.mu.Unlock()

	infrastructure.RecordWebSocketConnectionChange(context.Background(), h.metrics, -1)
	h.logger.Info("client disconnected",
		slog.String("client_id", client.id),
		slog.String("reason", reason),
		slog.Duration("connected_for", time.Since(client.connectedAt)),
		slog.Int("clients", count))
}

// Broadcast wraps payload in an envelope and queues it for every
// connected client. A full queue drops the message instead of blocking
// the caller.
func (h *Hub) Broadcast(event string, payload any) {
	message, err := json.Marshal(Envelope{
		Type:    event,
		Payload: payload,
		TS:      time.Now().UTC(),
	})
	if err != nil {
		h.logger.Warn("broadcast payload not marshalable",
			slog.String("event", event),
			slog.String("error", err.Error()))
		return
	}

	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("broadcast queue full, dropping message",
			slog.String("event", event))
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop announces the shutdown to connected clients, then stops the loop
// and disconnects everyone. It returns once the loop has exited. Safe
// to call more than once.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	h.Broadcast(EventServerShutdown, nil)
	close(h.quit)
	<-h.done
}

// drain disconnects every remaining client.
func (h *Hub) drain() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		h.drop(client, "server shutdown")
	}
}
