package ws

import (
	"context"
	"errors"
	"sync"

	"github.com/Temutjin2k/ride-hail-client/pkg/logger"
	wrap "github.com/Temutjin2k/ride-hail-client/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-hail-client/pkg/metrics"
)

var (
	ErrEmptyConn      = errors.New("connection is empty")
	ErrConnIsNotFound = errors.New("connection not found")
)

// ConnectionHub keeps one active websocket connection per entity.
type ConnectionHub struct {
	service string
	clients map[string]*Conn
	l       logger.Logger
	mu      sync.Mutex
}

func NewConnHub(service string, l logger.Logger) *ConnectionHub {
	return &ConnectionHub{
		service: service,
		clients: make(map[string]*Conn),
		l:       l,
	}
}

// Add registers newConn. An existing connection of the same entity is closed.
func (h *ConnectionHub) Add(newConn *Conn) error {
	if newConn == nil {
		return ErrEmptyConn
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := wrap.WithAction(context.Background(), "add_ws_connection")

	if existing, ok := h.clients[newConn.entityID]; ok {
		h.l.Warn(ctx, "replacing existing connection", "entity_id", existing.entityID)
		if err := existing.Close(); err != nil {
			h.l.Warn(ctx, "failed to close existing conn", "entity_id", existing.entityID, "err", err.Error())
		}
	} else {
		metrics.WebSocketConnectionsGauge.WithLabelValues(h.service).Inc()
	}

	h.clients[newConn.entityID] = newConn
	return nil
}

// Remove closes and forgets conn if it is still the registered one for its entity.
func (h *ConnectionHub) Remove(conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.clients[conn.entityID]; ok && current == conn {
		delete(h.clients, conn.entityID)
		metrics.WebSocketConnectionsGauge.WithLabelValues(h.service).Dec()
	}
	_ = conn.Close()
}

// Delete closes the connection of entityID.
func (h *ConnectionHub) Delete(entityID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := wrap.WithAction(context.Background(), "ws_connection_delete")

	conn, ok := h.clients[entityID]
	if !ok {
		h.l.Warn(ctx, "delete called for unknown entity", "entity_id", entityID)
		return ErrConnIsNotFound
	}

	if err := conn.Close(); err != nil {
		h.l.Warn(ctx, "failed to close conn", "entity_id", conn.entityID, "err", err.Error())
	}

	delete(h.clients, entityID)
	metrics.WebSocketConnectionsGauge.WithLabelValues(h.service).Dec()

	return nil
}

// SendTo sends msg to the entity, ErrConnIsNotFound when it is not connected.
func (h *ConnectionHub) SendTo(id string, msg any) error {
	conn, err := h.GetConn(id)
	if err != nil {
		return err
	}
	return conn.Send(msg)
}

// Close closes every connection.
func (h *ConnectionHub) Close() {
	ctx := wrap.WithAction(context.Background(), "hub_close")

	h.mu.Lock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	h.mu.Unlock()

	for _, id := range ids {
		_ = h.Delete(id)
	}

	h.l.Info(ctx, "all websocket connections closed gracefully")
}

func (h *ConnectionHub) GetConn(id string) (*Conn, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn, ok := h.clients[id]
	if !ok {
		return nil, ErrConnIsNotFound
	}
	return conn, nil
}

func (h *ConnectionHub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
