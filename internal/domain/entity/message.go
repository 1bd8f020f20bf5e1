package entity

import "time"

// SystemSenderID is the reserved sender identity for messages generated by
// the platform itself (status changes, closing notes).
const SystemSenderID = "system"

// MessageStatusSent is the only delivery state in use; the field exists so
// future delivery states do not require a schema change.
const MessageStatusSent = "sent"

type Message struct {
	MessageID string    `json:"message_id" firestore:"messageId"`
	SenderID  string    `json:"sender_id" firestore:"senderId"`
	Content   string    `json:"content" firestore:"content"`
	Timestamp time.Time `json:"timestamp" firestore:"timestamp"` // caller-supplied, never renumbered by the server
	Read      bool      `json:"read" firestore:"read"`
	Status    string    `json:"status" firestore:"status"`
	System    bool      `json:"system" firestore:"system"`
}
