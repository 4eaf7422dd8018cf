// Package ws is the realtime transport: a hub of websocket connections
// grouped into session rooms. It implements the engine's emitter interface
// and does delivery only; audiences and ordering are decided upstream.
package ws

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/quickpick/api/internal/event"
)

type envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// client wraps a connection with a write mutex; gorilla allows only one
// concurrent writer per connection.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(name string, data interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(envelope{Event: name, Data: data})
}

type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*client
	rooms    map[string]map[string]bool
	memberOf map[string]string
}

func NewHub() *Hub {
	return &Hub{
		clients:  make(map[string]*client),
		rooms:    make(map[string]map[string]bool),
		memberOf: make(map[string]string),
	}
}

// Register adds a freshly upgraded connection under its connection id.
func (h *Hub) Register(connID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[connID] = &client{conn: conn}
	log.Printf("ws: connection %s registered (total: %d)", connID, len(h.clients))
}

// Unregister drops the connection and any room membership it still has.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.unbindLocked(connID)
	if c, ok := h.clients[connID]; ok {
		c.conn.Close()
		delete(h.clients, connID)
	}
	log.Printf("ws: connection %s unregistered", connID)
}

// RoomOf reports the session room the connection is bound to, if any.
func (h *Hub) RoomOf(connID string) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.memberOf[connID]
}

func (h *Hub) Bind(connID, code string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.unbindLocked(connID)
	if h.rooms[code] == nil {
		h.rooms[code] = make(map[string]bool)
	}
	h.rooms[code][connID] = true
	h.memberOf[connID] = code
}

func (h *Hub) Unbind(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unbindLocked(connID)
}

func (h *Hub) unbindLocked(connID string) {
	code, ok := h.memberOf[connID]
	if !ok {
		return
	}
	delete(h.memberOf, connID)
	if room, ok := h.rooms[code]; ok {
		delete(room, connID)
		if len(room) == 0 {
			delete(h.rooms, code)
		}
	}
}

func (h *Hub) ToConnection(connID string, ev event.Event) {
	h.mu.RLock()
	c := h.clients[connID]
	h.mu.RUnlock()

	if c == nil {
		return
	}
	if err := c.send(ev.EventName(), ev); err != nil {
		log.Printf("ws: write to %s: %v", connID, err)
	}
}

func (h *Hub) ToRoomExcept(code, exceptConnID string, ev event.Event) {
	h.broadcast(code, exceptConnID, ev)
}

func (h *Hub) ToRoom(code string, ev event.Event) {
	h.broadcast(code, "", ev)
}

func (h *Hub) broadcast(code, exceptConnID string, ev event.Event) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.rooms[code]))
	for connID := range h.rooms[code] {
		if connID == exceptConnID {
			continue
		}
		if c, ok := h.clients[connID]; ok {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.send(ev.EventName(), ev); err != nil {
			log.Printf("ws: broadcast %s to room %s: %v", ev.EventName(), code, err)
		}
	}
}

// Error delivers a transport-level failure envelope to one connection. The
// UI maps the machine code to localized text.
func (h *Hub) Error(connID, code, message string) {
	h.mu.RLock()
	c := h.clients[connID]
	h.mu.RUnlock()

	if c == nil {
		return
	}
	if err := c.send("error", map[string]string{"code": code, "message": message}); err != nil {
		log.Printf("ws: error write to %s: %v", connID, err)
	}
}
