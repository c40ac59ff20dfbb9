//go:generate go run go.uber.org/mock/mockgen -source=index.go -destination=../mocks/mock_index.go -package=mocks

// Package search maintains a Bluge full-text index over message text so a
// user can search their own conversations.
package search

import (
	"context"
	"log/slog"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"

	"quick-chat/domain/chat"
)

type IMessageIndex interface {
	Index(msg chat.Message) error
	Search(ctx context.Context, viewer chat.UserID, query string, limit int) ([]Hit, error)
}

type MessageIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewMessageIndex(writer *bluge.Writer, log *slog.Logger) *MessageIndex {
	return &MessageIndex{writer: writer, log: log}
}

// Hit is one search result, reconstructed from stored fields only; the
// authoritative record stays in the message store.
type Hit struct {
	MessageID  uuid.UUID   `json:"messageId"`
	SenderID   chat.UserID `json:"senderId"`
	ReceiverID chat.UserID `json:"receiverId"`
	Text       string      `json:"text"`
}

// Index upserts one message. Both participants are indexed under the same
// keyword field so a single term query scopes results to conversations the
// viewer takes part in.
func (i *MessageIndex) Index(msg chat.Message) error {
	if msg.Text == "" {
		return nil
	}
	doc := bluge.NewDocument(msg.ID.String()).
		AddField(bluge.NewTextField("text", msg.Text).StoreValue()).
		AddField(bluge.NewKeywordField("senderId", string(msg.SenderID)).StoreValue()).
		AddField(bluge.NewKeywordField("receiverId", string(msg.ReceiverID)).StoreValue()).
		AddField(bluge.NewKeywordField("participant", string(msg.SenderID))).
		AddField(bluge.NewKeywordField("participant", string(msg.ReceiverID))).
		AddField(bluge.NewDateTimeField("createdAt", msg.CreatedAt))

	return i.writer.Update(doc.ID(), doc)
}

// Search returns up to limit messages matching query within the viewer's
// own conversations.
func (i *MessageIndex) Search(ctx context.Context, viewer chat.UserID, query string, limit int) ([]Hit, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			i.log.Error("Failed to close index reader", "error", err)
		}
	}()

	q := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(query).SetField("text")).
		AddMust(bluge.NewTermQuery(string(viewer)).SetField("participant"))

	iter, err := reader.Search(ctx, bluge.NewTopNSearch(limit, q))
	if err != nil {
		return nil, err
	}

	var hits []Hit
	for {
		match, err := iter.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}

		var hit Hit
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				if id, err := uuid.Parse(string(value)); err == nil {
					hit.MessageID = id
				}
			case "text":
				hit.Text = string(value)
			case "senderId":
				hit.SenderID = chat.UserID(value)
			case "receiverId":
				hit.ReceiverID = chat.UserID(value)
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
