package entity

import "time"

// Conversation status workflow values. The workflow is not strictly
// one-directional: a resolved conversation may be reopened.
const (
	StatusOpen       = "open"
	StatusInProgress = "in-progress"
	StatusResolved   = "resolved"
)

const (
	InitiatedByGuest   = "guest"
	InitiatedBySupport = "support"
)

type Conversation struct {
	ID               string    `json:"id" firestore:"id"`
	Participants     []string  `json:"participants" firestore:"participants"` // {initiator, responder}, fixed at creation
	Messages         []Message `json:"messages" firestore:"messages"`
	BookingReference string    `json:"booking_reference,omitempty" firestore:"bookingReference,omitempty"`
	Status           string    `json:"status" firestore:"status"`
	OpenedBy         string    `json:"opened_by,omitempty" firestore:"openedBy,omitempty"` // agent who moved it to in-progress
	AvatarURL        string    `json:"avatar_url,omitempty" firestore:"avatarUrl,omitempty"`
	CreatedAt        time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt        time.Time `json:"updated_at" firestore:"updatedAt"`
}
