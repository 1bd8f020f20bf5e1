package usecase

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"

	"guestdesk/internal/domain/entity"
	"guestdesk/internal/domain/repository"
	"guestdesk/internal/domain/service"
	"guestdesk/internal/infrastructure/ratelimit"
	ws "guestdesk/internal/infrastructure/websocket"
	"guestdesk/pkg/errors"
)

// closingNoteContent is the fixed system message appended when a
// conversation is resolved.
const closingNoteContent = "conversation closed"

// Broadcaster delivers an already-encoded event to every session joined to a
// conversation's room. Satisfied by the websocket manager.
type Broadcaster interface {
	BroadcastToRoom(conversationID string, payload []byte)
}

// BookingService is the external read-only booking lookup, used purely for
// display enrichment.
type BookingService interface {
	GetBooking(ctx context.Context, bookingID string) (*entity.Booking, error)
}

type ConversationUseCase struct {
	convRepo         repository.ConversationRepository
	bookings         BookingService
	broadcaster      Broadcaster
	rateLimiter      *ratelimit.RateLimiter
	defaultSupportID string
}

func NewConversationUseCase(
	convRepo repository.ConversationRepository,
	bookings BookingService,
	broadcaster Broadcaster,
	defaultSupportID string,
) *ConversationUseCase {
	rateLimiter := ratelimit.NewRateLimiter()
	rateLimiter.StartCleanupRoutine()

	return &ConversationUseCase{
		convRepo:         convRepo,
		bookings:         bookings,
		broadcaster:      broadcaster,
		rateLimiter:      rateLimiter,
		defaultSupportID: defaultSupportID,
	}
}

type CreateConversationInput struct {
	BookingReference string
	UserID           string
	InitiatedBy      string
	SupportAgentID   string
}

type ConversationResponse struct {
	*entity.Conversation
	Booking *entity.Booking `json:"booking,omitempty"`
}

// CreateConversation resolves the deterministic conversation id and creates
// the conversation if it does not exist yet. Calling it again with the same
// inputs returns the stored conversation untouched.
func (uc *ConversationUseCase) CreateConversation(ctx context.Context, input CreateConversationInput) (*ConversationResponse, error) {
	if input.UserID == "" {
		return nil, errors.BadRequest("userId is required", nil)
	}
	if input.InitiatedBy != entity.InitiatedByGuest && input.InitiatedBy != entity.InitiatedBySupport {
		return nil, errors.BadRequest("initiatedBy must be guest or support", nil)
	}

	allowed, waitTime := uc.rateLimiter.Allow(input.UserID, "create_conversation")
	if !allowed {
		log.Printf("CreateConversation Rate Limited: user %s must wait %v", input.UserID, waitTime)
		return nil, errors.TooManyRequests("Rate limit exceeded. Please wait before creating another conversation", waitTime)
	}

	supportID := uc.defaultSupportID
	if input.InitiatedBy == entity.InitiatedBySupport && input.SupportAgentID != "" {
		supportID = input.SupportAgentID
	}

	id := service.ResolveConversationID(input.BookingReference, input.UserID, input.InitiatedBy, input.SupportAgentID, uc.defaultSupportID)

	conv, err := uc.convRepo.CreateIfAbsent(ctx, &entity.Conversation{
		ID:               id,
		Participants:     []string{input.UserID, supportID},
		Messages:         []entity.Message{},
		BookingReference: input.BookingReference,
	})
	if err != nil {
		log.Printf("CreateConversation Error: failed to create conversation %s: %v", id, err)
		return nil, err
	}

	return &ConversationResponse{
		Conversation: conv,
		Booking:      uc.lookupBooking(ctx, conv.BookingReference),
	}, nil
}

func (uc *ConversationUseCase) ListConversations(ctx context.Context, userID string, includeMessages bool) ([]*entity.Conversation, error) {
	if userID == "" {
		return nil, errors.BadRequest("userId is required", nil)
	}

	return uc.convRepo.ListByParticipant(ctx, userID, includeMessages)
}

func (uc *ConversationUseCase) GetConversation(ctx context.Context, id string) (*ConversationResponse, error) {
	if id == "" {
		return nil, errors.BadRequest("conversationId is required", nil)
	}

	conv, err := uc.convRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return &ConversationResponse{
		Conversation: conv,
		Booking:      uc.lookupBooking(ctx, conv.BookingReference),
	}, nil
}

// UpdateConversationStatus applies a workflow transition. Resolving appends
// the closing system note in the same storage operation as the status write;
// the note is broadcast to the room only after that write committed.
func (uc *ConversationUseCase) UpdateConversationStatus(ctx context.Context, id, status, openedBy, avatarURL string) error {
	if id == "" {
		return errors.BadRequest("conversationId is required", nil)
	}
	switch status {
	case entity.StatusOpen, entity.StatusInProgress, entity.StatusResolved:
	default:
		return errors.BadRequest("status must be open, in-progress or resolved", nil)
	}

	closingNote := ""
	if status == entity.StatusResolved {
		closingNote = closingNoteContent
	}

	closingMsg, err := uc.convRepo.UpdateStatus(ctx, id, status, openedBy, avatarURL, closingNote)
	if err != nil {
		log.Printf("UpdateConversationStatus Error: conversation %s to %s: %v", id, status, err)
		return err
	}

	if closingMsg != nil {
		uc.broadcastEvent(id, ws.EventReceiveMessage, closingMsg)
	}

	return nil
}

// SendSystemMessage appends a platform-authored message and broadcasts it.
func (uc *ConversationUseCase) SendSystemMessage(ctx context.Context, id, content string) (*entity.Message, error) {
	if id == "" {
		return nil, errors.BadRequest("conversationId is required", nil)
	}
	if content == "" {
		return nil, errors.BadRequest("content is required", nil)
	}

	msg := &entity.Message{
		MessageID: uuid.New().String(),
		SenderID:  entity.SystemSenderID,
		Content:   content,
		Timestamp: time.Now(),
		Read:      false,
		Status:    entity.MessageStatusSent,
		System:    true,
	}

	if err := uc.convRepo.AppendMessage(ctx, id, msg); err != nil {
		log.Printf("SendSystemMessage Error: conversation %s: %v", id, err)
		return nil, err
	}

	uc.broadcastEvent(id, ws.EventReceiveMessage, msg)

	return msg, nil
}

// SaveIncomingMessage is the send path for live connections. The append is
// durable before anything is broadcast; a failed append means no broadcast
// and the error propagates into the sender's acknowledgment. A send against
// a conversation that was never provisioned creates it on the fly with
// inferred participants rather than silently dropping the message.
func (uc *ConversationUseCase) SaveIncomingMessage(ctx context.Context, conversationID, senderID, content string, timestamp time.Time) (*entity.Message, error) {
	if conversationID == "" {
		return nil, errors.BadRequest("conversationId is required", nil)
	}
	if senderID == "" {
		return nil, errors.BadRequest("senderId is required", nil)
	}
	if content == "" {
		return nil, errors.BadRequest("content is required", nil)
	}

	allowed, waitTime := uc.rateLimiter.Allow(senderID, "send_message")
	if !allowed {
		log.Printf("SaveIncomingMessage Rate Limited: user %s must wait %v", senderID, waitTime)
		return nil, errors.TooManyRequests("Rate limit exceeded. Please wait before sending another message", waitTime)
	}

	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	msg := &entity.Message{
		MessageID: uuid.New().String(),
		SenderID:  senderID,
		Content:   content,
		Timestamp: timestamp,
		Read:      false,
		Status:    entity.MessageStatusSent,
		System:    false,
	}

	err := uc.convRepo.AppendMessage(ctx, conversationID, msg)
	if errors.Is(err, "NOT_FOUND") {
		// Recovery path: the session sent before the conversation row was
		// provisioned through the HTTP endpoint.
		if _, createErr := uc.convRepo.CreateIfAbsent(ctx, &entity.Conversation{
			ID:           conversationID,
			Participants: []string{senderID, uc.defaultSupportID},
			Messages:     []entity.Message{},
		}); createErr != nil {
			log.Printf("SaveIncomingMessage Error: failed to provision conversation %s: %v", conversationID, createErr)
			return nil, createErr
		}
		err = uc.convRepo.AppendMessage(ctx, conversationID, msg)
	}
	if err != nil {
		log.Printf("SaveIncomingMessage Error: conversation %s: %v", conversationID, err)
		return nil, err
	}

	uc.broadcastEvent(conversationID, ws.EventReceiveMessage, msg)

	return msg, nil
}

// MarkMessageAsRead is best-effort and fire-and-forget: a missing message is
// a store-level no-op, and the messageRead broadcast goes out regardless so
// other participants can reconcile their own views.
func (uc *ConversationUseCase) MarkMessageAsRead(ctx context.Context, conversationID, messageID, readerID string) {
	if conversationID == "" || messageID == "" {
		return
	}

	found, err := uc.convRepo.MarkMessageRead(ctx, conversationID, messageID)
	if err != nil {
		log.Printf("MarkMessageAsRead Error: message %s in conversation %s: %v", messageID, conversationID, err)
		return
	}
	if !found {
		log.Printf("MarkMessageAsRead: message %s not found in conversation %s (late or duplicate receipt)", messageID, conversationID)
	}

	uc.broadcastEvent(conversationID, ws.EventMessageRead, ws.MessageReadData{
		ConversationID: conversationID,
		MessageID:      messageID,
		ReaderID:       readerID,
	})
}

func (uc *ConversationUseCase) lookupBooking(ctx context.Context, bookingRef string) *entity.Booking {
	if bookingRef == "" || uc.bookings == nil {
		return nil
	}

	booking, err := uc.bookings.GetBooking(ctx, bookingRef)
	if err != nil {
		// Enrichment only; a failed lookup never gates conversation logic.
		log.Printf("Booking lookup failed for %s: %v", bookingRef, err)
		return nil
	}
	return booking
}

func (uc *ConversationUseCase) broadcastEvent(conversationID, eventType string, data interface{}) {
	payload, err := json.Marshal(ws.Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	if err != nil {
		log.Printf("Failed to marshal %s event for conversation %s: %v", eventType, conversationID, err)
		return
	}

	uc.broadcaster.BroadcastToRoom(conversationID, payload)
}
