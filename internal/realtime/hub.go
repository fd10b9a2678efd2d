package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat, in seconds.
	PingInterval = 30
	PongWait     = 60

	// AdminRoom receives booking activity for staff dashboards.
	AdminRoom = "admin:bookings"
)

// Publisher publishes room events to other instances.
type Publisher interface {
	PublishRoomEvent(ctx context.Context, room, event string, payload []byte) error
}

// Subscriber delivers room events published by any instance, this one included.
type Subscriber interface {
	SubscribeRoom(room string, handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub maintains room -> set of connections and broadcasts messages.
// With Redis configured, events are published once and every instance,
// this one included, delivers them from its subscription.
type Hub struct {
	rooms  map[string]map[string]*Client
	subs   map[string]*roomSub
	mu     sync.RWMutex
	logger *zap.Logger
	pub    Publisher
	sub    Subscriber
}

// roomSub is the subscription of one room. cancel stays nil while
// SubscribeRoom is in flight.
type roomSub struct {
	cancel func()
}

// NewHub creates a new WebSocket hub. pub and sub may be nil for a single instance.
func NewHub(logger *zap.Logger, pub Publisher, sub Subscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:  make(map[string]map[string]*Client),
		subs:   make(map[string]*roomSub),
		logger: logger,
		pub:    pub,
		sub:    sub,
	}
}

// Register adds a client to its room, subscribing the room on first join.
// The subscribe round-trip runs without holding the hub lock.
func (h *Hub) Register(c *Client) {
	var rs *roomSub
	h.mu.Lock()
	if h.rooms[c.Room] == nil {
		h.rooms[c.Room] = make(map[string]*Client)
	}
	h.rooms[c.Room][c.ID] = c
	if _, ok := h.subs[c.Room]; !ok && h.sub != nil {
		rs = &roomSub{}
		h.subs[c.Room] = rs
	}
	h.mu.Unlock()
	h.logger.Debug("client joined room", zap.String("client_id", c.ID), zap.String("room", c.Room))

	if rs != nil {
		h.subscribe(c.Room, rs)
	}
}

func (h *Hub) subscribe(room string, rs *roomSub) {
	cancel, err := h.sub.SubscribeRoom(room, func(event string, payload []byte) {
		h.Broadcast(room, event, json.RawMessage(payload))
	})

	h.mu.Lock()
	current := h.subs[room] == rs
	switch {
	case err != nil:
		if current {
			delete(h.subs, room)
		}
	case current:
		rs.cancel = cancel
		cancel = nil
	}
	h.mu.Unlock()

	if err != nil {
		h.logger.Warn("room subscribe failed", zap.String("room", room), zap.Error(err))
		return
	}
	// the room emptied while subscribing
	if cancel != nil {
		cancel()
	}
}

// Unregister removes a client and closes its send buffer, cancelling the
// room subscription when the room empties.
func (h *Hub) Unregister(c *Client) {
	var cancel func()
	h.mu.Lock()
	if m, ok := h.rooms[c.Room]; ok {
		if _, joined := m[c.ID]; joined {
			delete(m, c.ID)
			close(c.send)
		}
		if len(m) == 0 {
			delete(h.rooms, c.Room)
			if rs, ok := h.subs[c.Room]; ok {
				cancel = rs.cancel
				delete(h.subs, c.Room)
			}
		}
	}
	h.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	h.logger.Debug("client left room", zap.String("client_id", c.ID), zap.String("room", c.Room))
}

// Broadcast sends a message to local clients of room. Slow clients with a
// full buffer miss the message.
func (h *Hub) Broadcast(room, event string, payload interface{}) {
	data, err := encode(payload)
	if err != nil {
		h.logger.Warn("broadcast encode failed", zap.String("event", event), zap.Error(err))
		return
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[room] {
		select {
		case c.send <- msg:
		default:
			h.logger.Debug("client buffer full", zap.String("client_id", c.ID))
		}
	}
}

// Publish delivers an event to room on every instance. Without a publisher it
// falls back to a local broadcast.
func (h *Hub) Publish(ctx context.Context, room, event string, payload interface{}) error {
	data, err := encode(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}
	if h.pub != nil {
		return h.pub.PublishRoomEvent(ctx, room, event, data)
	}
	h.Broadcast(room, event, json.RawMessage(data))
	return nil
}

// RoomSize returns the number of local clients in room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func encode(payload interface{}) ([]byte, error) {
	switch v := payload.(type) {
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	default:
		return json.Marshal(payload)
	}
}
