// Package websocket pushes scan progress to browser clients.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"liciel/internal/config"
	"liciel/internal/infrastructure"
)

// Message types.
const (
	TypeConnection   = "connection"
	TypeScanStarted  = "scan:started"
	TypeScanProgress = "scan:progress"
	TypeScanComplete = "scan:complete"
	TypeScanFailed   = "scan:failed"
)

// broadcastQueue bounds the messages waiting for the hub loop. Messages
// beyond it are dropped and counted.
const broadcastQueue = 256

// Message is the envelope of every message sent to clients.
type Message struct {
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	TraceID   string    `json:"trace_id,omitempty"`
}

// ScanProgress is the data of a TypeScanProgress message.
type ScanProgress struct {
	ScanID  string  `json:"scan_id"`
	Scanned int     `json:"scanned"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
}

// HubMetrics is a snapshot of the hub counters.
type HubMetrics struct {
	ActiveClients    int   `json:"active_clients"`
	TotalConnections int64 `json:"total_connections"`
	MessagesSent     int64 `json:"messages_sent"`
	Dropped          int64 `json:"dropped"`
}

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu               sync.RWMutex
	totalConnections int64
	messagesSent     int64
	dropped          int64

	pingPeriod time.Duration
	pongWait   time.Duration
	logger     *slog.Logger

	quit     chan struct{}
	done     chan struct{}
	running  bool
	stopOnce sync.Once
}

// NewHub creates a hub. Zero timings in cfg fall back to the defaults.
func NewHub(cfg config.WebSocketConfig, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = config.WebSocketPongWait
	}
	if cfg.PingPeriod <= 0 || cfg.PingPeriod >= cfg.PongWait {
		cfg.PingPeriod = cfg.PongWait * 9 / 10
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastQueue),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		pingPeriod: cfg.PingPeriod,
		pongWait:   cfg.PongWait,
		logger:     infrastructure.WithComponent(logger, "websocket.hub"),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start runs the hub loop in a goroutine.
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

// Stop ends the hub loop and disconnects every client. It is safe to
// call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.quit)

		h.mu.RLock()
		running := h.running
		h.mu.RUnlock()
		if running {
			<-h.done
		}

		h.mu.Lock()
		defer h.mu.Unlock()
		for client := range h.clients {
			close(client.send)
			delete(h.clients, client)
		}
		h.logger.Info("Hub stopped")
	})
}

func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.totalConnections++
			count := len(h.clients)
			h.mu.Unlock()

			ctx := client.context()
			h.logger.InfoContext(ctx, "Client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			if data, err := h.encode(TypeConnection, map[string]string{
				"status":    "connected",
				"client_id": client.id,
			}, client.traceID); err == nil {
				select {
				case client.send <- data:
				default:
					h.logger.WarnContext(ctx, "Failed to send connection message - client buffer full",
						slog.String("client_id", client.id))
				}
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()

			h.logger.InfoContext(client.context(), "Client unregistered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.Duration("connection_duration", time.Since(client.connectedAt)))

		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

// deliver sends message to every client. A client whose buffer is full
// is disconnected.
func (h *Hub) deliver(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	failed := 0
	for client := range h.clients {
		select {
		case client.send <- message:
			h.messagesSent++
		default:
			failed++
			close(client.send)
			delete(h.clients, client)
			h.logger.WarnContext(client.context(), "Client send buffer full, disconnecting",
				slog.String("client_id", client.id))
		}
	}

	h.logger.Debug("Broadcast delivered",
		slog.Int("client_count", len(h.clients)),
		slog.Int("failed", failed),
		slog.Int("message_size", len(message)))
}

// Broadcast queues a message for every client. It never blocks: when the
// queue is full or the hub is stopped the message is dropped.
func (h *Hub) Broadcast(msgType string, data any) {
	h.BroadcastWithTrace(msgType, data, "")
}

// BroadcastWithTrace is Broadcast with a trace id on the envelope.
func (h *Hub) BroadcastWithTrace(msgType string, data any, traceID string) {
	message, err := h.encode(msgType, data, traceID)
	if err != nil {
		return
	}

	select {
	case <-h.quit:
		return
	default:
	}

	select {
	case h.broadcast <- message:
	default:
		h.mu.Lock()
		h.dropped++
		h.mu.Unlock()
	}
}

// BroadcastScanProgress sends a TypeScanProgress message.
func (h *Hub) BroadcastScanProgress(scanID string, scanned, total int) {
	p := ScanProgress{ScanID: scanID, Scanned: scanned, Total: total}
	if total > 0 {
		p.Percent = float64(scanned) * 100 / float64(total)
	}
	h.Broadcast(TypeScanProgress, p)
}

func (h *Hub) encode(msgType string, data any, traceID string) ([]byte, error) {
	message, err := json.Marshal(Message{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().UTC(),
		TraceID:   traceID,
	})
	if err != nil {
		h.logger.Error("Error marshaling message",
			slog.String("message_type", msgType),
			slog.String("error", err.Error()))
	}
	return message, err
}

// Register adds a client. After Stop the client is dropped.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
		close(client.send)
	}
}

// Unregister removes a client.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Metrics returns the hub counters.
func (h *Hub) Metrics() HubMetrics {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return HubMetrics{
		ActiveClients:    len(h.clients),
		TotalConnections: h.totalConnections,
		MessagesSent:     h.messagesSent,
		Dropped:          h.dropped,
	}
}

func (c *Client) context() context.Context {
	ctx := context.Background()
	if c.traceID != "" {
		ctx = infrastructure.WithTraceID(ctx, c.traceID)
	}
	return ctx
}
