package websocket

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"guestdesk/internal/domain/entity"
)

// Wire event types. Inbound events come from connected clients; outbound
// events are broadcast to rooms or sent back to the originating client.
const (
	EventPing              = "ping"
	EventPong              = "pong"
	EventJoinConversation  = "joinConversation"
	EventLeaveConversation = "leaveConversation"
	EventSendMessage       = "sendMessage"
	EventSendMessageAck    = "sendMessageAck"
	EventMarkAsRead        = "markAsRead"
	EventReceiveMessage    = "receiveMessage"
	EventMessageRead       = "messageRead"
	EventError             = "error"
)

type Event struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

type JoinConversationData struct {
	ConversationID string `json:"conversation_id"`
}

type SendMessageData struct {
	TempID         string `json:"temp_id,omitempty"`
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
	Timestamp      string `json:"timestamp,omitempty"`
}

type SendMessageAckData struct {
	Success        bool   `json:"success"`
	TempID         string `json:"temp_id,omitempty"`
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

type MarkAsReadData struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
}

type MessageReadData struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	ReaderID       string `json:"reader_id"`
}

// ChatService is the persistence-side collaborator the inbound handlers call.
// Implemented by the conversation use case; broadcasting after a successful
// write happens there, so a network-visible event always corresponds to a
// durable one.
type ChatService interface {
	SaveIncomingMessage(ctx context.Context, conversationID, senderID, content string, timestamp time.Time) (*entity.Message, error)
	MarkMessageAsRead(ctx context.Context, conversationID, messageID, readerID string)
}

// HandleClientMessage dispatches one inbound client event.
func (m *Manager) HandleClientMessage(client *Client, payload []byte) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		log.Printf("WebSocket: failed to unmarshal event from client %s: %v", client.UserID, err)
		m.sendErrorToClient(client, "Invalid event format")
		return
	}

	switch event.Type {
	case EventPing:
		m.handlePing(client)

	case EventJoinConversation:
		m.handleJoinConversation(client, event.Data)

	case EventLeaveConversation:
		m.handleLeaveConversation(client, event.Data)

	case EventSendMessage:
		m.handleSendMessage(client, event.Data)

	case EventMarkAsRead:
		m.handleMarkAsRead(client, event.Data)

	default:
		log.Printf("WebSocket: unknown event type %q from client %s", event.Type, client.UserID)
		m.sendErrorToClient(client, "Unknown event type")
	}
}

func (m *Manager) handlePing(client *Client) {
	m.sendToClient(client, Event{
		Type:      EventPong,
		Data:      map[string]string{"status": "alive"},
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func (m *Manager) handleJoinConversation(client *Client, data interface{}) {
	var joinData JoinConversationData
	if err := decodeEventData(data, &joinData); err != nil || joinData.ConversationID == "" {
		m.sendErrorToClient(client, "Missing conversation_id")
		return
	}

	m.JoinRoom(client, joinData.ConversationID)
	log.Printf("WebSocket: client %s joined conversation %s", client.UserID, joinData.ConversationID)
}

func (m *Manager) handleLeaveConversation(client *Client, data interface{}) {
	var leaveData JoinConversationData
	if err := decodeEventData(data, &leaveData); err != nil || leaveData.ConversationID == "" {
		m.sendErrorToClient(client, "Missing conversation_id")
		return
	}

	m.LeaveRoom(client, leaveData.ConversationID)
	log.Printf("WebSocket: client %s left conversation %s", client.UserID, leaveData.ConversationID)
}

// handleSendMessage persists the message through the chat service and only
// then acknowledges. The ack reflects the persisted outcome: a failed append
// means a failure ack and no broadcast to the room.
func (m *Manager) handleSendMessage(client *Client, data interface{}) {
	var sendData SendMessageData
	if err := decodeEventData(data, &sendData); err != nil {
		m.sendErrorToClient(client, "Invalid sendMessage data")
		return
	}
	if sendData.ConversationID == "" || sendData.Content == "" {
		m.sendErrorToClient(client, "Missing required fields")
		return
	}

	timestamp := time.Now()
	if sendData.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339, sendData.Timestamp); err == nil {
			timestamp = parsed
		}
	}

	msg, err := m.chat.SaveIncomingMessage(context.Background(), sendData.ConversationID, client.UserID, sendData.Content, timestamp)

	ack := SendMessageAckData{
		TempID:         sendData.TempID,
		ConversationID: sendData.ConversationID,
	}
	if err != nil {
		log.Printf("WebSocket: failed to persist message from %s to conversation %s: %v", client.UserID, sendData.ConversationID, err)
		ack.Error = "Failed to send message"
	} else {
		ack.Success = true
		ack.MessageID = msg.MessageID
	}

	m.sendToClient(client, Event{
		Type:      EventSendMessageAck,
		Data:      ack,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// handleMarkAsRead is fire-and-forget: the sender gets no acknowledgment and
// the messageRead broadcast goes out even when the store reported a no-op.
func (m *Manager) handleMarkAsRead(client *Client, data interface{}) {
	var readData MarkAsReadData
	if err := decodeEventData(data, &readData); err != nil {
		m.sendErrorToClient(client, "Invalid markAsRead data")
		return
	}
	if readData.ConversationID == "" || readData.MessageID == "" {
		m.sendErrorToClient(client, "Missing required fields")
		return
	}

	m.chat.MarkMessageAsRead(context.Background(), readData.ConversationID, readData.MessageID, client.UserID)
}

func (m *Manager) sendToClient(client *Client, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("WebSocket: failed to marshal event for client %s: %v", client.UserID, err)
		return
	}

	select {
	case client.Send <- payload:
	default:
		// Client gone or hopelessly slow; the ack path is simply dropped.
		log.Printf("WebSocket: dropping %s event for client %s", event.Type, client.UserID)
	}
}

func (m *Manager) sendErrorToClient(client *Client, message string) {
	m.sendToClient(client, Event{
		Type:      EventError,
		Data:      map[string]string{"error": message},
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func decodeEventData(data interface{}, out interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
