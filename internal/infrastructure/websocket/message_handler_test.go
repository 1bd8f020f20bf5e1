package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guestdesk/internal/domain/entity"
)

type fakeChatService struct {
	mu         sync.Mutex
	saveErr    error
	saved      []entity.Message
	readCalls  []MarkAsReadData
	lastSender string
}

func (f *fakeChatService) SaveIncomingMessage(ctx context.Context, conversationID, senderID, content string, timestamp time.Time) (*entity.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	msg := entity.Message{
		MessageID: "m-1",
		SenderID:  senderID,
		Content:   content,
		Timestamp: timestamp,
		Status:    entity.MessageStatusSent,
	}
	f.saved = append(f.saved, msg)
	f.lastSender = senderID
	return &msg, nil
}

func (f *fakeChatService) MarkMessageAsRead(ctx context.Context, conversationID, messageID, readerID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readCalls = append(f.readCalls, MarkAsReadData{ConversationID: conversationID, MessageID: messageID})
}

func encodeEvent(t *testing.T, eventType string, data interface{}) []byte {
	t.Helper()
	payload, err := json.Marshal(Event{Type: eventType, Data: data, Timestamp: time.Now().Format(time.RFC3339)})
	require.NoError(t, err)
	return payload
}

func TestHandleJoinConversation(t *testing.T) {
	client := newTestClient("u1")
	m := newTestManager(client)
	m.SetChatService(&fakeChatService{})

	m.HandleClientMessage(client, encodeEvent(t, EventJoinConversation, JoinConversationData{ConversationID: "conv-1"}))

	assert.Equal(t, 1, m.RoomSize("conv-1"))
	assert.Empty(t, drain(client))
}

func TestHandleSendMessageAcksPersistedOutcome(t *testing.T) {
	client := newTestClient("u1")
	m := newTestManager(client)
	chat := &fakeChatService{}
	m.SetChatService(chat)

	m.HandleClientMessage(client, encodeEvent(t, EventSendMessage, SendMessageData{
		TempID:         "tmp-1",
		ConversationID: "conv-1",
		Content:        "hello",
	}))

	payloads := drain(client)
	require.Len(t, payloads, 1)
	event := decodeEvent(t, payloads[0])
	assert.Equal(t, EventSendMessageAck, event.Type)

	var ack SendMessageAckData
	require.NoError(t, json.Unmarshal(mustMarshal(t, event.Data), &ack))
	assert.True(t, ack.Success)
	assert.Equal(t, "tmp-1", ack.TempID)
	assert.Equal(t, "m-1", ack.MessageID)

	// The authenticated connection identity is the sender, not the payload.
	assert.Equal(t, "u1", chat.lastSender)
}

func TestHandleSendMessageFailureAcksFailure(t *testing.T) {
	client := newTestClient("u1")
	m := newTestManager(client)
	m.SetChatService(&fakeChatService{saveErr: errors.New("storage down")})

	m.HandleClientMessage(client, encodeEvent(t, EventSendMessage, SendMessageData{
		ConversationID: "conv-1",
		Content:        "hello",
	}))

	payloads := drain(client)
	require.Len(t, payloads, 1)
	event := decodeEvent(t, payloads[0])
	assert.Equal(t, EventSendMessageAck, event.Type)

	var ack SendMessageAckData
	require.NoError(t, json.Unmarshal(mustMarshal(t, event.Data), &ack))
	assert.False(t, ack.Success)
	assert.NotEmpty(t, ack.Error)
	assert.Empty(t, ack.MessageID)
}

func TestHandleSendMessageMissingFields(t *testing.T) {
	client := newTestClient("u1")
	m := newTestManager(client)
	chat := &fakeChatService{}
	m.SetChatService(chat)

	m.HandleClientMessage(client, encodeEvent(t, EventSendMessage, SendMessageData{ConversationID: "conv-1"}))

	payloads := drain(client)
	require.Len(t, payloads, 1)
	assert.Equal(t, EventError, decodeEvent(t, payloads[0]).Type)
	assert.Empty(t, chat.saved)
}

func TestHandleMarkAsReadIsFireAndForget(t *testing.T) {
	client := newTestClient("u1")
	m := newTestManager(client)
	chat := &fakeChatService{}
	m.SetChatService(chat)

	m.HandleClientMessage(client, encodeEvent(t, EventMarkAsRead, MarkAsReadData{
		ConversationID: "conv-1",
		MessageID:      "m-9",
	}))

	require.Len(t, chat.readCalls, 1)
	assert.Equal(t, "m-9", chat.readCalls[0].MessageID)
	// No acknowledgment back to the reader.
	assert.Empty(t, drain(client))
}

func TestHandlePing(t *testing.T) {
	client := newTestClient("u1")
	m := newTestManager(client)

	m.HandleClientMessage(client, encodeEvent(t, EventPing, nil))

	payloads := drain(client)
	require.Len(t, payloads, 1)
	assert.Equal(t, EventPong, decodeEvent(t, payloads[0]).Type)
}

func TestHandleUnknownEventType(t *testing.T) {
	client := newTestClient("u1")
	m := newTestManager(client)

	m.HandleClientMessage(client, encodeEvent(t, "presence", nil))

	payloads := drain(client)
	require.Len(t, payloads, 1)
	assert.Equal(t, EventError, decodeEvent(t, payloads[0]).Type)
}

func TestHandleMalformedPayload(t *testing.T) {
	client := newTestClient("u1")
	m := newTestManager(client)

	m.HandleClientMessage(client, []byte("{not json"))

	payloads := drain(client)
	require.Len(t, payloads, 1)
	assert.Equal(t, EventError, decodeEvent(t, payloads[0]).Type)
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}
