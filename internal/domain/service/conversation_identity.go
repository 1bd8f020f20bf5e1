package service

import (
	"fmt"
	"strings"
)

// bookingRefReplacer strips path-separator characters from booking
// references. Conversation ids double as storage document keys, and document
// keys must not contain separator-reserved characters.
var bookingRefReplacer = strings.NewReplacer("/", "_", "\\", "_")

// NormalizeBookingReference rewrites a booking reference into a form that is
// safe to embed in a document key. Two distinct references that normalize to
// the same string collide; callers must keep references unique after
// normalization.
func NormalizeBookingReference(ref string) string {
	return bookingRefReplacer.Replace(ref)
}

// ResolveConversationID derives the stable conversation id for a logical
// guest/support conversation. It is pure: the same inputs always produce the
// same id, and it never touches storage.
//
// The support-side identity is the explicit agent id when a support-initiated
// request names one, otherwise the configured default support identity.
// Guest-initiated conversations tied to a booking are keyed by the normalized
// booking reference; everything else falls back to a user-scoped key.
func ResolveConversationID(bookingRef, userID, initiatedBy, supportAgentID, defaultSupportID string) string {
	supportID := defaultSupportID
	if initiatedBy == "support" && supportAgentID != "" {
		supportID = supportAgentID
	}

	if initiatedBy == "guest" && bookingRef != "" {
		return fmt.Sprintf("%s-%s-%s", NormalizeBookingReference(bookingRef), userID, supportID)
	}

	return fmt.Sprintf("conversation-%s-%s", userID, supportID)
}
