package repository

import (
	"context"

	"guestdesk/internal/domain/entity"
)

type ConversationRepository interface {
	// CreateIfAbsent persists conv only if no conversation with conv.ID
	// exists, using an atomic conditional insert at the storage layer. When
	// the id is already taken it returns the stored conversation unchanged;
	// racing first-callers all observe the single winning document.
	CreateIfAbsent(ctx context.Context, conv *entity.Conversation) (*entity.Conversation, error)

	GetByID(ctx context.Context, id string) (*entity.Conversation, error)

	// ListByParticipant returns every conversation userID takes part in.
	// With includeMessages false the message bodies are projected away for
	// list views.
	ListByParticipant(ctx context.Context, userID string, includeMessages bool) ([]*entity.Conversation, error)

	// AppendMessage atomically pushes msg onto the conversation's message
	// sequence and refreshes updatedAt.
	AppendMessage(ctx context.Context, id string, msg *entity.Message) error

	// MarkMessageRead sets read=true on the matching message. A missing
	// message is a no-op, reported as (false, nil) rather than an error.
	MarkMessageRead(ctx context.Context, id, messageID string) (bool, error)

	// UpdateStatus writes the status transition. For in-progress it records
	// openedBy; for resolved it additionally appends closingNote as a system
	// message in the same atomic operation as the status write. The appended
	// closing message, if any, is returned so callers can broadcast it.
	UpdateStatus(ctx context.Context, id, status, openedBy, avatarURL, closingNote string) (*entity.Message, error)
}
