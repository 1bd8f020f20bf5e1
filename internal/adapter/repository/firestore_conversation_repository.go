package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"guestdesk/internal/domain/entity"
	"guestdesk/internal/domain/repository"
	"guestdesk/pkg/errors"
	"guestdesk/pkg/logger"
)

const conversationsCollection = "conversations"

type firestoreConversationRepository struct {
	client *firestore.Client
}

func NewFirestoreConversationRepository(client *firestore.Client) repository.ConversationRepository {
	return &firestoreConversationRepository{
		client: client,
	}
}

// CreateIfAbsent relies on Firestore's Create, which fails with AlreadyExists
// when the document is present. That is the atomic conditional insert the
// creation contract needs: under racing first-callers exactly one Create
// wins and the losers re-read the winning document. Never read-then-insert.
func (r *firestoreConversationRepository) CreateIfAbsent(ctx context.Context, conv *entity.Conversation) (*entity.Conversation, error) {
	now := time.Now()
	conv.CreatedAt = now
	conv.UpdatedAt = now
	conv.Status = entity.StatusOpen
	if conv.Messages == nil {
		conv.Messages = []entity.Message{}
	}

	docRef := r.client.Collection(conversationsCollection).Doc(conv.ID)
	_, err := docRef.Create(ctx, conv)
	if err == nil {
		return conv, nil
	}

	if status.Code(err) == codes.AlreadyExists {
		return r.GetByID(ctx, conv.ID)
	}

	return nil, mapStorageError("Failed to create conversation", err)
}

func (r *firestoreConversationRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	doc, err := r.client.Collection(conversationsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Conversation", nil)
		}
		return nil, mapStorageError("Failed to get conversation", err)
	}

	var conv entity.Conversation
	if err := doc.DataTo(&conv); err != nil {
		return nil, errors.Internal("Failed to parse conversation data", err)
	}

	return &conv, nil
}

func (r *firestoreConversationRepository) ListByParticipant(ctx context.Context, userID string, includeMessages bool) ([]*entity.Conversation, error) {
	query := r.client.Collection(conversationsCollection).
		Where("participants", "array-contains", userID).
		OrderBy("updatedAt", firestore.Desc)

	if !includeMessages {
		query = query.Select("id", "participants", "bookingReference", "status", "openedBy", "avatarUrl", "createdAt", "updatedAt")
	}

	iter := query.Documents(ctx)
	var conversations []*entity.Conversation

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Error("Firestore error while listing conversations for user %s: %v", userID, err)
			return nil, mapStorageError("Failed to list conversations", err)
		}

		var conv entity.Conversation
		if err := doc.DataTo(&conv); err != nil {
			logger.Error("Error parsing conversation data for user %s: %v", userID, err)
			continue // skip bad data instead of failing the whole list
		}
		conversations = append(conversations, &conv)
	}

	return conversations, nil
}

// AppendMessage uses ArrayUnion so the push onto messages and the updatedAt
// refresh land in one atomic update. Conflicting appends to the same
// conversation are serialized by the storage layer, not by application locks.
func (r *firestoreConversationRepository) AppendMessage(ctx context.Context, id string, msg *entity.Message) error {
	if msg.MessageID == "" {
		msg.MessageID = uuid.New().String()
	}

	docRef := r.client.Collection(conversationsCollection).Doc(id)
	_, err := docRef.Update(ctx, []firestore.Update{
		{Path: "messages", Value: firestore.ArrayUnion(*msg)},
		{Path: "updatedAt", Value: time.Now()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Conversation", nil)
		}
		return mapStorageError("Failed to append message", err)
	}

	return nil
}

// MarkMessageRead flips the read flag of one message inside the embedded
// message array. Firestore cannot address an array element by a nested field
// in a plain update, so this runs as a transaction: read, mutate the matching
// element, write the array back. The transaction retries on contention, which
// keeps the election of the element atomic.
func (r *firestoreConversationRepository) MarkMessageRead(ctx context.Context, id, messageID string) (bool, error) {
	docRef := r.client.Collection(conversationsCollection).Doc(id)
	found := false

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(docRef)
		if err != nil {
			return err
		}

		var conv entity.Conversation
		if err := doc.DataTo(&conv); err != nil {
			return err
		}

		found = false
		for i := range conv.Messages {
			if conv.Messages[i].MessageID == messageID {
				found = true
				if conv.Messages[i].Read {
					return nil // already read, nothing to write
				}
				conv.Messages[i].Read = true
				break
			}
		}
		if !found {
			return nil
		}

		return tx.Update(docRef, []firestore.Update{
			{Path: "messages", Value: conv.Messages},
			{Path: "updatedAt", Value: time.Now()},
		})
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			// Late or duplicate read receipt against a missing conversation
			// must not fail the caller.
			logger.Warn("MarkMessageRead: conversation %s not found for message %s", id, messageID)
			return false, nil
		}
		return false, mapStorageError("Failed to update message read status", err)
	}

	return found, nil
}

// UpdateStatus applies the status transition and, when resolving, the closing
// system message in one transaction. The closing note never appears without
// the status change taking effect, and vice versa.
func (r *firestoreConversationRepository) UpdateStatus(ctx context.Context, id, newStatus, openedBy, avatarURL, closingNote string) (*entity.Message, error) {
	docRef := r.client.Collection(conversationsCollection).Doc(id)
	var closingMsg *entity.Message

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(docRef)
		if err != nil {
			return err
		}

		var conv entity.Conversation
		if err := doc.DataTo(&conv); err != nil {
			return err
		}

		updates := []firestore.Update{
			{Path: "status", Value: newStatus},
			{Path: "updatedAt", Value: time.Now()},
		}
		if newStatus == entity.StatusInProgress && openedBy != "" {
			updates = append(updates, firestore.Update{Path: "openedBy", Value: openedBy})
		}
		if avatarURL != "" {
			updates = append(updates, firestore.Update{Path: "avatarUrl", Value: avatarURL})
		}
		closingMsg = nil
		if newStatus == entity.StatusResolved && closingNote != "" {
			sender := openedBy
			if sender == "" {
				sender = entity.SystemSenderID
			}
			closing := entity.Message{
				MessageID: uuid.New().String(),
				SenderID:  sender,
				Content:   closingNote,
				Timestamp: time.Now(),
				Read:      false,
				Status:    entity.MessageStatusSent,
				System:    true,
			}
			closingMsg = &closing
			updates = append(updates, firestore.Update{Path: "messages", Value: append(conv.Messages, closing)})
		}

		return tx.Update(docRef, updates)
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Conversation", nil)
		}
		return nil, mapStorageError("Failed to update conversation status", err)
	}

	return closingMsg, nil
}

// mapStorageError separates retryable connectivity/timeout failures from
// everything else. Retry policy belongs to the caller.
func mapStorageError(message string, err error) error {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return errors.StorageUnavailable(message, err)
	default:
		return errors.Internal(message, err)
	}
}
