// Package realtime pushes progress updates to a learner's open WebSocket
// connections.
package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/p-n-ai/pai-lingo/internal/progress"
)

// EventStatsUpdated carries a learner's profile after an award.
const EventStatsUpdated = "stats.updated"

const (
	outboundBuffer = 16
	writeTimeout   = 5 * time.Second
	pingInterval   = 30 * time.Second
)

// Message is the JSON frame sent to clients.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type client struct {
	id        string
	learnerID string
	outbound  chan Message
}

// Hub fans messages out to every connection of a learner. A slow client
// drops messages rather than blocking the publisher.
type Hub struct {
	mu            sync.RWMutex
	subscriptions map[string]map[*client]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subscriptions: make(map[string]map[*client]struct{})}
}

// Publish sends the profile to the learner's connections.
func (h *Hub) Publish(learnerID string, p progress.Profile) {
	h.Broadcast(learnerID, Message{Event: EventStatsUpdated, Data: p})
}

// Broadcast sends msg to every connection of the learner.
func (h *Hub) Broadcast(learnerID string, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.subscriptions[learnerID] {
		select {
		case c.outbound <- msg:
		default:
			slog.Warn("dropping realtime message; outbound buffer full", "learner_id", learnerID, "client_id", c.id)
		}
	}
}

// Subscribers returns the number of open connections for the learner.
func (h *Hub) Subscribers(learnerID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscriptions[learnerID])
}

func (h *Hub) subscribe(learnerID string) *client {
	c := &client{
		id:        uuid.NewString(),
		learnerID: learnerID,
		outbound:  make(chan Message, outboundBuffer),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.subscriptions[learnerID]
	if !ok {
		clients = make(map[*client]struct{})
		h.subscriptions[learnerID] = clients
	}
	clients[c] = struct{}{}
	slog.Debug("realtime client subscribed", "learner_id", learnerID, "client_id", c.id)
	return c
}

func (h *Hub) unsubscribe(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.subscriptions[c.learnerID]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.subscriptions, c.learnerID)
		}
	}
	slog.Debug("realtime client unsubscribed", "learner_id", c.learnerID, "client_id", c.id)
}

// Serve upgrades the request and streams the learner's messages until the
// client goes away. Initial messages are written before any broadcast.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, learnerID string, initial ...Message) {
	// Server timeouts would otherwise survive the hijack and cut long-lived sockets.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "learner_id", learnerID, "error", err)
		return
	}
	defer conn.CloseNow()

	c := h.subscribe(learnerID)
	defer h.unsubscribe(c)

	// Clients only listen; CloseRead handles control frames and cancels ctx
	// when the peer closes.
	ctx := conn.CloseRead(r.Context())

	for _, msg := range initial {
		if err := write(ctx, conn, msg); err != nil {
			return
		}
	}

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				slog.Debug("realtime ping failed", "learner_id", learnerID, "error", err)
				return
			}
		case msg := <-c.outbound:
			if err := write(ctx, conn, msg); err != nil {
				slog.Debug("realtime write failed", "learner_id", learnerID, "error", err)
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}
