package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"pblboard/api/internal/logger"
)

const (
	outboundBuffer    = 16
	heartbeatInterval = 15 * time.Second
)

// Client is one connected event stream.
type Client struct {
	ID       uuid.UUID
	UserID   string
	Room     string
	Outbound chan Message
	done     chan struct{}
	once     sync.Once
}

// Hub tracks which clients listen to which room.
type Hub struct {
	mu        sync.RWMutex
	log       *logger.Logger
	rooms     map[string]map[*Client]struct{}
	heartbeat time.Duration
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:       logger.OrNop(log).With("component", "Hub"),
		rooms:     make(map[string]map[*Client]struct{}),
		heartbeat: heartbeatInterval,
	}
}

// Join registers a new client for room.
func (h *Hub) Join(room, userID string) *Client {
	c := &Client{
		ID:       uuid.New(),
		UserID:   userID,
		Room:     strings.TrimSpace(room),
		Outbound: make(chan Message, outboundBuffer),
		done:     make(chan struct{}),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.rooms[c.Room]
	if !ok {
		clients = make(map[*Client]struct{})
		h.rooms[c.Room] = clients
	}
	clients[c] = struct{}{}
	h.log.Debug("client joined room", "client_id", c.ID, "room", c.Room)
	return c
}

// Leave unregisters c and stops its stream. Safe to call more than once.
func (h *Hub) Leave(c *Client) {
	c.once.Do(func() {
		h.mu.Lock()
		if clients, ok := h.rooms[c.Room]; ok {
			delete(clients, c)
			if len(clients) == 0 {
				delete(h.rooms, c.Room)
			}
		}
		h.mu.Unlock()
		close(c.done)
	})
}

func (h *Hub) ClientCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Broadcast queues msg for every client in msg.Room. Slow clients drop
// messages instead of blocking the sender.
func (h *Hub) Broadcast(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[msg.Room] {
		select {
		case c.Outbound <- msg:
		default:
			h.log.Warn("dropping room message; outbound buffer full", "client_id", c.ID, "room", msg.Room)
		}
	}
}

// Serve streams c's messages as server-sent events until the request ends.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, c *Client) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "event: ready\ndata: {\"clientId\":%q}\n\n", c.ID.String())
	flusher.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()
	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-heartbeat.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case msg := <-c.Outbound:
			raw, err := json.Marshal(msg)
			if err != nil {
				h.log.Warn("marshal room message", "error", err)
				continue
			}
			_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, raw)
			flusher.Flush()
		}
	}
}
