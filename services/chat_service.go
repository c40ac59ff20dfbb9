//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"quick-chat/contract"
	"quick-chat/domain/chat"
	apperrors "quick-chat/errors"
	"quick-chat/media"
	"quick-chat/moderation"
	"quick-chat/observability"
	"quick-chat/repositories"
	"quick-chat/search"
)

type IChatService interface {
	SendMessage(ctx context.Context, cmd chat.SendMessageCommand) (chat.Message, chat.DeliveryOutcome, error)
	GetConversation(viewer, peer chat.UserID) ([]chat.Message, error)
	UnseenCounts(viewer chat.UserID) (map[chat.UserID]int, error)
	MarkMessageSeen(id uuid.UUID) error
	SidebarUsers(viewer chat.UserID) ([]SidebarUser, error)
	SearchMessages(ctx context.Context, viewer chat.UserID, query string, limit int) ([]search.Hit, error)
}

// ChatService owns the message lifecycle: moderation, persistence, search
// indexing, and the real-time delivery attempt. Presence transitions go
// straight from the transport to the broker; the service never tracks
// connections itself.
type ChatService struct {
	log        *slog.Logger
	messages   repositories.IMessageRepository
	users      repositories.IUserRepository
	broker     contract.IBroker
	moderator  *moderation.Moderator
	index      search.IMessageIndex
	media      media.IStore
	monitoring *observability.MonitoringManager
}

func NewChatService(
	log *slog.Logger,
	messages repositories.IMessageRepository,
	users repositories.IUserRepository,
	broker contract.IBroker,
	moderator *moderation.Moderator,
	index search.IMessageIndex,
	mediaStore media.IStore,
	monitoring *observability.MonitoringManager,
) *ChatService {
	return &ChatService{
		log:        log,
		messages:   messages,
		users:      users,
		broker:     broker,
		moderator:  moderator,
		index:      index,
		media:      mediaStore,
		monitoring: monitoring,
	}
}

// SendMessage persists the message first, then attempts the real-time push.
// A Buffered outcome is not an error: the message is durable and surfaces on
// the recipient's next conversation fetch or unseen-count query.
func (s *ChatService) SendMessage(ctx context.Context, cmd chat.SendMessageCommand) (chat.Message, chat.DeliveryOutcome, error) {
	if cmd.Text == "" && cmd.Image == "" {
		return chat.Message{}, chat.Buffered, apperrors.ErrEmptyMessage
	}

	text := cmd.Text
	lang := ""
	if text != "" {
		censored, masked := s.moderator.Censor(text)
		if masked > 0 {
			s.log.Info("Message text masked", "sender_id", cmd.SenderID, "spans", masked)
		}
		text = censored
		lang = moderation.DetectLang(text)
	}

	imageRef := ""
	if cmd.Image != "" {
		ref, err := s.media.SaveDataURL(cmd.Image)
		if err != nil {
			return chat.Message{}, chat.Buffered, err
		}
		imageRef = ref
	}

	message, err := s.messages.Insert(cmd.SenderID, cmd.ReceiverID, text, imageRef, lang)
	if err != nil {
		return chat.Message{}, chat.Buffered, err
	}
	s.monitoring.IncrMessagesSaved()

	// Search indexing is best-effort: a degraded index never blocks a send.
	if err := s.index.Index(message); err != nil {
		s.log.Error("Failed to index message", "message_id", message.ID, "error", err)
	}

	outcome := s.broker.Deliver(ctx, message)
	return message, outcome, nil
}

// GetConversation returns the full history between viewer and peer and
// bulk-marks the peer's prior messages as seen, mirroring the "open
// conversation" action.
func (s *ChatService) GetConversation(viewer, peer chat.UserID) ([]chat.Message, error) {
	messages, err := s.messages.GetConversation(viewer, peer)
	if err != nil {
		return nil, err
	}

	updated, err := s.messages.MarkConversationSeen(viewer, peer)
	if err != nil {
		return nil, err
	}
	if updated > 0 {
		s.log.Debug("Conversation marked seen", "viewer_id", viewer, "peer_id", peer, "updated", updated)
	}
	return messages, nil
}

func (s *ChatService) UnseenCounts(viewer chat.UserID) (map[chat.UserID]int, error) {
	return s.messages.UnseenCounts(viewer)
}

func (s *ChatService) MarkMessageSeen(id uuid.UUID) error {
	return s.messages.MarkSeen(id)
}

// SidebarUser pairs a visible account with the number of its messages the
// viewer has not yet seen.
type SidebarUser struct {
	ID        chat.UserID `json:"id"`
	Email     string      `json:"email"`
	FullName  string      `json:"fullName"`
	Bio       string      `json:"bio,omitempty"`
	AvatarRef string      `json:"avatarRef,omitempty"`
	Unseen    int         `json:"unseen"`
}

// SidebarUsers lists every other account together with per-peer unseen
// counts, recomputed from the store on each call.
func (s *ChatService) SidebarUsers(viewer chat.UserID) ([]SidebarUser, error) {
	users, err := s.users.ListUsersExcept(viewer)
	if err != nil {
		return nil, err
	}

	counts, err := s.messages.UnseenCounts(viewer)
	if err != nil {
		return nil, err
	}

	return lo.Map(users, func(u repositories.User, _ int) SidebarUser {
		return SidebarUser{
			ID:        u.ID,
			Email:     u.Email,
			FullName:  u.FullName,
			Bio:       u.Bio,
			AvatarRef: u.AvatarRef,
			Unseen:    counts[u.ID],
		}
	}), nil
}

func (s *ChatService) SearchMessages(ctx context.Context, viewer chat.UserID, query string, limit int) ([]search.Hit, error) {
	return s.index.Search(ctx, viewer, query, limit)
}
