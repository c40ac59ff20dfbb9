// Package event defines the events pushed outward to connected clients.
package event

import (
	"quick-chat/domain/chat"
)

// Kind discriminates event payloads on the wire.
type Kind string

const (
	KindNewMessage       Kind = "new-message"
	KindOnlineSetChanged Kind = "online-set-changed"
)

type DomainEvent interface {
	Kind() Kind
}

// NewMessage carries a freshly persisted message to its recipient.
type NewMessage struct {
	Message chat.Message `json:"message"`
}

func (NewMessage) Kind() Kind { return KindNewMessage }

// OnlineSetChanged carries the full presence snapshot.
// Presence changes are fanned out to every live connection because the UI
// renders a global online-user list.
type OnlineSetChanged struct {
	Online []chat.UserID `json:"online"`
}

func (OnlineSetChanged) Kind() Kind { return KindOnlineSetChanged }

// Envelope is the JSON frame written to the websocket.
type Envelope struct {
	Kind    Kind        `json:"kind"`
	Payload DomainEvent `json:"payload"`
}

func Wrap(e DomainEvent) Envelope {
	return Envelope{Kind: e.Kind(), Payload: e}
}
