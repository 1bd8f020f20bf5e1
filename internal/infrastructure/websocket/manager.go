package websocket

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Client represents one live WebSocket connection. A client may be joined to
// any number of conversation rooms at once.
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte
}

// room holds the subscriber set of one conversation id. Each room carries its
// own lock so delivery to different conversations never blocks on a shared
// one; holding mu across the whole fan-out of an event gives every member the
// same relative event order.
type room struct {
	mu      sync.Mutex
	members map[*Client]bool
}

// Manager maps conversation ids to the sets of currently subscribed clients
// and owns client lifecycle. Events are only handed to it after the
// corresponding store write committed, so everything it broadcasts
// corresponds to a persisted fact.
type Manager struct {
	mu          sync.RWMutex
	rooms       map[string]*room
	memberships map[*Client]map[string]bool

	chat ChatService
}

func NewManager() *Manager {
	return &Manager{
		rooms:       make(map[string]*room),
		memberships: make(map[*Client]map[string]bool),
	}
}

// SetChatService wires the persistence-side service the inbound event
// handlers call. Set once at startup, before any client connects.
func (m *Manager) SetChatService(chat ChatService) {
	m.chat = chat
}

// RegisterClient makes the client eligible for room membership. It is
// synchronous: once it returns, a JoinRoom for this client succeeds. The
// connection handler must call it before starting the read pump, otherwise
// an immediate joinConversation can race the registration and be dropped.
func (m *Manager) RegisterClient(client *Client) {
	m.mu.Lock()
	m.memberships[client] = make(map[string]bool)
	m.mu.Unlock()
	log.Printf("Client connected: %s", client.UserID)
}

// JoinRoom adds client to the room's subscriber set. Joining twice is a
// no-op.
func (m *Manager) JoinRoom(client *Client, conversationID string) {
	m.mu.Lock()
	membership, ok := m.memberships[client]
	if !ok {
		// Disconnected while the join was in flight.
		m.mu.Unlock()
		return
	}
	membership[conversationID] = true

	rm, ok := m.rooms[conversationID]
	if !ok {
		rm = &room{members: make(map[*Client]bool)}
		m.rooms[conversationID] = rm
	}
	rm.mu.Lock()
	rm.members[client] = true
	rm.mu.Unlock()
	m.mu.Unlock()
}

// LeaveRoom removes the membership. Safe to call when the client never
// joined.
func (m *Manager) LeaveRoom(client *Client, conversationID string) {
	m.mu.Lock()
	if membership, ok := m.memberships[client]; ok {
		delete(membership, conversationID)
	}
	rm := m.rooms[conversationID]
	if rm != nil {
		rm.mu.Lock()
		delete(rm.members, client)
		if len(rm.members) == 0 {
			delete(m.rooms, conversationID)
		}
		rm.mu.Unlock()
	}
	m.mu.Unlock()
}

// RemoveClient drops the client from every room it joined and closes its
// send channel. No further broadcasts target it afterwards.
func (m *Manager) RemoveClient(client *Client) {
	m.mu.Lock()
	membership, ok := m.memberships[client]
	if !ok {
		m.mu.Unlock()
		return
	}
	for conversationID := range membership {
		if rm := m.rooms[conversationID]; rm != nil {
			rm.mu.Lock()
			delete(rm.members, client)
			if len(rm.members) == 0 {
				delete(m.rooms, conversationID)
			}
			rm.mu.Unlock()
		}
	}
	delete(m.memberships, client)
	m.mu.Unlock()

	close(client.Send)
}

// BroadcastToRoom delivers payload to every client currently joined to the
// conversation's room and to no one else. A client whose send buffer is full
// misses the event instead of stalling the room.
func (m *Manager) BroadcastToRoom(conversationID string, payload []byte) {
	m.mu.RLock()
	rm := m.rooms[conversationID]
	m.mu.RUnlock()
	if rm == nil {
		return
	}

	rm.mu.Lock()
	for client := range rm.members {
		select {
		case client.Send <- payload:
		default:
			log.Printf("WebSocket: dropping event for slow client %s in room %s", client.UserID, conversationID)
		}
	}
	rm.mu.Unlock()
}

// RoomSize reports the current subscriber count of a room.
func (m *Manager) RoomSize(conversationID string) int {
	m.mu.RLock()
	rm := m.rooms[conversationID]
	m.mu.RUnlock()
	if rm == nil {
		return 0
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return len(rm.members)
}

// ReadPump reads events from the connection until it drops, dispatching each
// one through the manager. On exit the client is removed directly; RemoveClient
// is idempotent and mutex-guarded, so teardown needs no coordinator goroutine
// and cannot block at shutdown.
func (c *Client) ReadPump(m *Manager) {
	defer func() {
		m.RemoveClient(c)
		c.Conn.Close()
		log.Printf("Client disconnected: %s", c.UserID)
	}()

	for {
		_, payload, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error for %s: %v", c.UserID, err)
			}
			break
		}

		m.HandleClientMessage(c, payload)
	}
}

// WritePump drains the send channel onto the connection.
func (c *Client) WritePump() {
	defer c.Conn.Close()

	for {
		payload, ok := <-c.Send
		if !ok {
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}

		if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("WebSocket write error for %s: %v", c.UserID, err)
			return
		}
	}
}
