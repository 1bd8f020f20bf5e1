package websocket

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(userID string) *Client {
	return &Client{
		UserID: userID,
		Send:   make(chan []byte, 16),
	}
}

func newTestManager(clients ...*Client) *Manager {
	m := NewManager()
	for _, c := range clients {
		m.RegisterClient(c)
	}
	return m
}

// Replays the connection handler's sequence: register, then join on another
// goroutine right away, as the read pump does with a joinConversation that
// arrives immediately after the upgrade. Registration is synchronous, so the
// join must never be dropped.
func TestJoinImmediatelyAfterRegister(t *testing.T) {
	m := NewManager()

	for i := 0; i < 200; i++ {
		client := newTestClient("u1")
		m.RegisterClient(client)

		joined := make(chan struct{})
		go func() {
			m.JoinRoom(client, "conv-1")
			close(joined)
		}()
		<-joined

		require.Equal(t, 1, m.RoomSize("conv-1"), "join dropped on connect %d", i)

		m.BroadcastToRoom("conv-1", []byte("hello"))
		require.Len(t, drain(client), 1, "broadcast missed on connect %d", i)

		m.RemoveClient(client)
	}
}

// Disconnect teardown is a direct mutex-guarded call with no coordinator
// goroutine behind it, so any number of clients can drop at once — including
// at process shutdown — without anything left to block on.
func TestConcurrentDisconnectsComplete(t *testing.T) {
	m := NewManager()

	const clients = 50
	all := make([]*Client, clients)
	for i := range all {
		all[i] = newTestClient(fmt.Sprintf("u%d", i))
		m.RegisterClient(all[i])
		m.JoinRoom(all[i], "conv-1")
	}
	require.Equal(t, clients, m.RoomSize("conv-1"))

	var wg sync.WaitGroup
	for _, c := range all {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			m.RemoveClient(c)
		}(c)
	}
	wg.Wait()

	assert.Equal(t, 0, m.RoomSize("conv-1"))
	for _, c := range all {
		_, open := <-c.Send
		assert.False(t, open)
	}
}

func drain(c *Client) [][]byte {
	var payloads [][]byte
	for {
		select {
		case p := <-c.Send:
			payloads = append(payloads, p)
		default:
			return payloads
		}
	}
}

func TestJoinRoomIdempotent(t *testing.T) {
	client := newTestClient("u1")
	m := newTestManager(client)

	m.JoinRoom(client, "conv-1")
	m.JoinRoom(client, "conv-1")

	assert.Equal(t, 1, m.RoomSize("conv-1"))
}

func TestClientMayJoinMultipleRooms(t *testing.T) {
	client := newTestClient("u1")
	m := newTestManager(client)

	m.JoinRoom(client, "conv-1")
	m.JoinRoom(client, "conv-2")

	m.BroadcastToRoom("conv-1", []byte("a"))
	m.BroadcastToRoom("conv-2", []byte("b"))

	assert.Len(t, drain(client), 2)
}

func TestBroadcastRoomIsolation(t *testing.T) {
	clientA := newTestClient("uA")
	clientB := newTestClient("uB")
	m := newTestManager(clientA, clientB)

	m.JoinRoom(clientA, "conv-A")
	m.JoinRoom(clientB, "conv-B")

	m.BroadcastToRoom("conv-A", []byte("only-for-A"))

	assert.Len(t, drain(clientA), 1)
	assert.Empty(t, drain(clientB))
}

func TestBroadcastOrderingPerRoom(t *testing.T) {
	clientA := newTestClient("uA")
	clientB := newTestClient("uB")
	m := newTestManager(clientA, clientB)

	m.JoinRoom(clientA, "conv-1")
	m.JoinRoom(clientB, "conv-1")

	events := [][]byte{[]byte("e1"), []byte("e2"), []byte("e3"), []byte("e4")}
	for _, e := range events {
		m.BroadcastToRoom("conv-1", e)
	}

	for _, client := range []*Client{clientA, clientB} {
		received := drain(client)
		require.Len(t, received, len(events))
		for i, e := range events {
			assert.Equal(t, e, received[i])
		}
	}
}

func TestLeaveRoomStopsDelivery(t *testing.T) {
	client := newTestClient("u1")
	m := newTestManager(client)

	m.JoinRoom(client, "conv-1")
	m.LeaveRoom(client, "conv-1")

	m.BroadcastToRoom("conv-1", []byte("late"))

	assert.Empty(t, drain(client))
	assert.Equal(t, 0, m.RoomSize("conv-1"))
}

func TestLeaveRoomNeverJoinedIsSafe(t *testing.T) {
	client := newTestClient("u1")
	m := newTestManager(client)

	assert.NotPanics(t, func() {
		m.LeaveRoom(client, "conv-unknown")
	})
}

func TestRemoveClientLeavesAllRooms(t *testing.T) {
	client := newTestClient("u1")
	other := newTestClient("u2")
	m := newTestManager(client, other)

	m.JoinRoom(client, "conv-1")
	m.JoinRoom(client, "conv-2")
	m.JoinRoom(other, "conv-1")

	m.RemoveClient(client)

	assert.Equal(t, 1, m.RoomSize("conv-1"))
	assert.Equal(t, 0, m.RoomSize("conv-2"))

	// Send channel is closed so the write pump shuts down.
	_, open := <-client.Send
	assert.False(t, open)

	// The surviving member still receives broadcasts.
	m.BroadcastToRoom("conv-1", []byte("still-alive"))
	assert.Len(t, drain(other), 1)
}

func TestRemoveClientTwiceIsSafe(t *testing.T) {
	client := newTestClient("u1")
	m := newTestManager(client)

	m.RemoveClient(client)
	assert.NotPanics(t, func() {
		m.RemoveClient(client)
	})
}

func TestJoinAfterDisconnectIsIgnored(t *testing.T) {
	client := newTestClient("u1")
	m := newTestManager(client)

	m.RemoveClient(client)
	m.JoinRoom(client, "conv-1")

	assert.Equal(t, 0, m.RoomSize("conv-1"))
}

func TestBroadcastToEmptyRoom(t *testing.T) {
	m := newTestManager()

	assert.NotPanics(t, func() {
		m.BroadcastToRoom("conv-none", []byte("void"))
	})
}

func TestSlowClientDoesNotBlockRoom(t *testing.T) {
	slow := &Client{UserID: "slow", Send: make(chan []byte)} // no buffer, never read
	fast := newTestClient("fast")
	m := newTestManager(slow, fast)

	m.JoinRoom(slow, "conv-1")
	m.JoinRoom(fast, "conv-1")

	m.BroadcastToRoom("conv-1", []byte("payload"))

	assert.Len(t, drain(fast), 1)
}

func decodeEvent(t *testing.T, payload []byte) Event {
	t.Helper()
	var event Event
	require.NoError(t, json.Unmarshal(payload, &event))
	return event
}
