//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"quick-chat/domain/chat"
	apperrors "quick-chat/errors"
)

type IMessageRepository interface {
	Insert(sender, receiver chat.UserID, text, imageRef, lang string) (chat.Message, error)
	GetConversation(a, b chat.UserID) ([]chat.Message, error)
	UnseenCounts(viewer chat.UserID) (map[chat.UserID]int, error)
	MarkConversationSeen(viewer, peer chat.UserID) (int, error)
	MarkSeen(id uuid.UUID) error
	FindByID(id uuid.UUID) (chat.Message, error)
}

// MessageRepository persists messages in BadgerDB.
//
// Key families:
//
//	msg:{convKey}:{timestamp_padded}:{uuid}                  -> JSON message
//	mid:{uuid}                                               -> primary key
//	unseen:{receiverId}:{senderId}:{timestamp_padded}:{uuid} -> primary key
//
// The 19-digit zero-padded UnixNano timestamp makes a prefix scan return
// messages in chronological order, with the UUID as a collision
// disconnector if two messages land on the same nanosecond. The unseen
// index rows are written and cleared in the same transaction as the message
// row itself, so an unseen count derived from them is always consistent
// with the store; no running counter is ever persisted.
type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// Insert assigns the id and creation timestamp and persists the message
// together with its id and unseen index rows in a single transaction.
func (m MessageRepository) Insert(sender, receiver chat.UserID, text, imageRef, lang string) (chat.Message, error) {
	message := chat.Message{
		ID:         uuid.New(),
		SenderID:   sender,
		ReceiverID: receiver,
		Text:       text,
		ImageRef:   imageRef,
		Lang:       lang,
		Seen:       false,
		CreatedAt:  time.Now().UTC(),
	}

	data, err := json.Marshal(message)
	if err != nil {
		return chat.Message{}, fmt.Errorf("marshal failed: %w", err)
	}

	primary := primaryKey(message)
	err = m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(primary, data); err != nil {
			return err
		}
		if err := txn.Set(idKey(message.ID), primary); err != nil {
			return err
		}
		return txn.Set(unseenKey(message), primary)
	})
	if err != nil {
		return chat.Message{}, err
	}
	return message, nil
}

// GetConversation returns both directions of the conversation between a and b
// in chronological order. When a message limit is configured, only the most
// recent messages are returned.
func (m MessageRepository) GetConversation(a, b chat.UserID) ([]chat.Message, error) {
	prefix := []byte(fmt.Sprintf("msg:%s:", chat.ConversationKey(a, b)))

	var messages []chat.Message
	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Seek past the newest possible timestamp, then walk backwards so the
		// configured limit keeps the most recent messages.
		seekKey := append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(messages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *m.limitMessages))
				break
			}
			var message chat.Message
			err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &message)
			})
			if err != nil {
				return err
			}
			messages = append(messages, message)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Reverse into chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// UnseenCounts derives, per peer, the number of peer-authored messages the
// viewer has not yet seen. The result is recomputed from the index on every
// call; peers with zero unseen messages have no entry.
func (m MessageRepository) UnseenCounts(viewer chat.UserID) (map[chat.UserID]int, error) {
	prefix := []byte(fmt.Sprintf("unseen:%s:", viewer))

	counts := make(map[chat.UserID]int)
	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			parts := strings.Split(string(it.Item().Key()), ":")
			if len(parts) != 5 {
				continue
			}
			counts[chat.UserID(parts[2])]++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// MarkConversationSeen flips every unseen message from peer to viewer to
// seen and clears the matching index rows. Calling it again is a no-op
// because the predicate set is empty after the first call. It returns the
// number of messages updated.
func (m MessageRepository) MarkConversationSeen(viewer, peer chat.UserID) (int, error) {
	prefix := []byte(fmt.Sprintf("unseen:%s:%s:", viewer, peer))

	updated := 0
	err := m.db.Update(func(txn *badger.Txn) error {
		// Collect first: mutating entries while iterating over them is not
		// supported by the transaction iterator.
		type pending struct {
			indexKey   []byte
			primaryKey []byte
		}
		var rows []pending

		it := txn.NewIterator(badger.DefaultIteratorOptions)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			indexKey := item.KeyCopy(nil)
			primary, err := item.ValueCopy(nil)
			if err != nil {
				it.Close()
				return err
			}
			rows = append(rows, pending{indexKey: indexKey, primaryKey: primary})
		}
		it.Close()

		for _, row := range rows {
			if err := m.markSeenByPrimary(txn, row.primaryKey); err != nil {
				return err
			}
			if err := txn.Delete(row.indexKey); err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// MarkSeen flips a single message to seen by id. Marking an already seen
// message is a no-op; an unknown id reports ErrMessageNotFound and the
// caller decides how to surface it.
func (m MessageRepository) MarkSeen(id uuid.UUID) error {
	return m.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(idKey(id))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return apperrors.ErrMessageNotFound
			}
			return err
		}
		primary, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}

		message, err := m.loadByPrimary(txn, primary)
		if err != nil {
			return err
		}
		if message.Seen {
			return nil
		}
		if err := m.markSeenByPrimary(txn, primary); err != nil {
			return err
		}
		return txn.Delete(unseenKey(message))
	})
}

func (m MessageRepository) FindByID(id uuid.UUID) (chat.Message, error) {
	var message chat.Message
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(idKey(id))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return apperrors.ErrMessageNotFound
			}
			return err
		}
		primary, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		message, err = m.loadByPrimary(txn, primary)
		return err
	})
	return message, err
}

func (m MessageRepository) loadByPrimary(txn *badger.Txn, primary []byte) (chat.Message, error) {
	item, err := txn.Get(primary)
	if err != nil {
		return chat.Message{}, err
	}
	var message chat.Message
	err = item.Value(func(value []byte) error {
		return json.Unmarshal(value, &message)
	})
	return message, err
}

func (m MessageRepository) markSeenByPrimary(txn *badger.Txn, primary []byte) error {
	message, err := m.loadByPrimary(txn, primary)
	if err != nil {
		return err
	}
	message.Seen = true
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return txn.Set(primary, data)
}

func primaryKey(message chat.Message) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s",
		chat.ConversationKey(message.SenderID, message.ReceiverID),
		message.CreatedAt.UnixNano(),
		message.ID,
	))
}

func idKey(id uuid.UUID) []byte {
	return []byte("mid:" + id.String())
}

func unseenKey(message chat.Message) []byte {
	return []byte(fmt.Sprintf("unseen:%s:%s:%019d:%s",
		message.ReceiverID,
		message.SenderID,
		message.CreatedAt.UnixNano(),
		message.ID,
	))
}
