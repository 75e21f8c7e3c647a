// Package hub fans task events out to every live client connection.
package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/St1cky1/task-tracker/internal/entity"
)

// Conn is one live push channel. Send must be safe to call concurrently with Close.
type Conn interface {
	Send(ctx context.Context, payload []byte) error
	Close() error
}

type Hub struct {
	mu      sync.Mutex
	clients map[string]map[Conn]struct{}
	owners  map[Conn]string

	queue       chan entity.Event
	sendTimeout time.Duration
	logger      zerolog.Logger
}

func New(logger zerolog.Logger, queueSize int, sendTimeout time.Duration) *Hub {
	return &Hub{
		clients:     make(map[string]map[Conn]struct{}),
		owners:      make(map[Conn]string),
		queue:       make(chan entity.Event, queueSize),
		sendTimeout: sendTimeout,
		logger:      logger.With().Str("component", "hub").Logger(),
	}
}

// Connect registers conn under clientID. A connection already registered under another id is moved.
func (h *Hub) Connect(conn Conn, clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if prev, ok := h.owners[conn]; ok {
		h.removeLocked(conn, prev)
	}
	set, ok := h.clients[clientID]
	if !ok {
		set = make(map[Conn]struct{})
		h.clients[clientID] = set
	}
	set[conn] = struct{}{}
	h.owners[conn] = clientID

	h.logger.Debug().
		Str("client_id", clientID).
		Int("client_connections", len(set)).
		Msg("connection registered")
}

// Disconnect removes a single connection; the client id goes away with its last connection.
func (h *Hub) Disconnect(conn Conn, clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.removeLocked(conn, clientID) {
		h.logger.Debug().Str("client_id", clientID).Msg("connection removed")
	}
}

func (h *Hub) removeLocked(conn Conn, clientID string) bool {
	set, ok := h.clients[clientID]
	if !ok {
		return false
	}
	if _, ok := set[conn]; !ok {
		return false
	}
	delete(set, conn)
	delete(h.owners, conn)
	if len(set) == 0 {
		delete(h.clients, clientID)
	}
	return true
}

type target struct {
	conn     Conn
	clientID string
}

func (h *Hub) snapshot() []target {
	h.mu.Lock()
	defer h.mu.Unlock()

	targets := make([]target, 0, len(h.owners))
	for conn, clientID := range h.owners {
		targets = append(targets, target{conn: conn, clientID: clientID})
	}
	return targets
}

// Broadcast delivers event to every connection and returns how many sends succeeded.
// Connections whose send fails are evicted and closed. Nothing is retried.
func (h *Hub) Broadcast(ctx context.Context, event entity.Event) int {
	targets := h.snapshot()
	if len(targets) == 0 {
		return 0
	}

	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("event", string(event.Type)).Msg("failed to encode event")
		return 0
	}

	var (
		wg        sync.WaitGroup
		failedMu  sync.Mutex
		failed    []target
		delivered int
	)
	for _, t := range targets {
		wg.Add(1)
		go func(t target) {
			defer wg.Done()

			sendCtx, cancel := context.WithTimeout(ctx, h.sendTimeout)
			defer cancel()

			err := t.conn.Send(sendCtx, payload)

			failedMu.Lock()
			defer failedMu.Unlock()
			if err != nil {
				h.logger.Warn().Err(err).Str("client_id", t.clientID).Msg("send failed, evicting connection")
				failed = append(failed, t)
				return
			}
			delivered++
		}(t)
	}
	wg.Wait()

	for _, t := range failed {
		h.evict(t)
	}
	return delivered
}

func (h *Hub) evict(t target) {
	h.mu.Lock()
	removed := h.removeLocked(t.conn, t.clientID)
	h.mu.Unlock()

	if removed {
		_ = t.conn.Close()
	}
}

// Publish queues event for Run without blocking. It reports false when the queue is full.
func (h *Hub) Publish(event entity.Event) bool {
	select {
	case h.queue <- event:
		return true
	default:
		h.logger.Warn().Str("event", string(event.Type)).Msg("event queue full, dropping event")
		return false
	}
}

// Run broadcasts queued events until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	h.logger.Info().Msg("hub started")
	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Msg("hub stopped")
			return nil
		case event := <-h.queue:
			n := h.Broadcast(ctx, event)
			h.logger.Debug().
				Str("event", string(event.Type)).
				Int("delivered", n).
				Msg("event broadcast")
		}
	}
}

func (h *Hub) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.owners)
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// CloseAll closes and forgets every connection.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := make([]Conn, 0, len(h.owners))
	for conn := range h.owners {
		conns = append(conns, conn)
	}
	h.clients = make(map[string]map[Conn]struct{})
	h.owners = make(map[Conn]string)
	h.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
}
