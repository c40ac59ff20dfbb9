package chat

// SendMessageCommand carries a message sending intent from the transport
// layer down to the chat service. Image is the raw data-URL payload as sent
// by the client; the media collaborator turns it into an opaque ref.
type SendMessageCommand struct {
	SenderID   UserID
	ReceiverID UserID
	Text       string
	Image      string
}

// DeliveryOutcome reports what happened to the real-time push of a freshly
// persisted message.
type DeliveryOutcome int

const (
	// Buffered means the recipient had no live connection; the message stays
	// in the store and will surface on the next conversation fetch.
	Buffered DeliveryOutcome = iota
	// Delivered means the message was pushed to the recipient's connection.
	Delivered
)

func (o DeliveryOutcome) String() string {
	if o == Delivered {
		return "delivered"
	}
	return "buffered"
}
