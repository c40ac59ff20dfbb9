// Package chat contains the core concepts of the direct-messaging domain.
// Messages are immutable once persisted; only the Seen flag may transition,
// and only from false to true.
package chat

import (
	"time"

	"github.com/google/uuid"
)

// UserID is an opaque stable identifier supplied by the auth layer.
type UserID string

// Message is a persisted two-party message.
// The JSON field names are the canonical wire and storage schema:
// senderId is the single spelling used everywhere.
type Message struct {
	ID         uuid.UUID `json:"id"`
	SenderID   UserID    `json:"senderId"`
	ReceiverID UserID    `json:"receiverId"`
	Text       string    `json:"text,omitempty"`
	ImageRef   string    `json:"imageRef,omitempty"`
	Lang       string    `json:"lang,omitempty"`
	Seen       bool      `json:"seen"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ConversationKey returns the storage key fragment shared by both directions
// of a two-party conversation. The pair is ordered so that (a,b) and (b,a)
// map to the same conversation.
func ConversationKey(a, b UserID) string {
	if b < a {
		a, b = b, a
	}
	return string(a) + "|" + string(b)
}
