package server

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"quick-chat/domain/chat"
	apperrors "quick-chat/errors"
	"quick-chat/media"
	"quick-chat/services"
)

type MessageHandler struct {
	log         *slog.Logger
	chatService services.IChatService
	media       media.IStore
	searchLimit int
}

func NewMessageHandler(log *slog.Logger, chatService services.IChatService,
	mediaStore media.IStore, searchLimit int) *MessageHandler {
	return &MessageHandler{log: log, chatService: chatService, media: mediaStore, searchLimit: searchLimit}
}

// Users returns every other account plus per-peer unseen counts for the
// sidebar.
func (h *MessageHandler) Users(c *fiber.Ctx) error {
	users, err := h.chatService.SidebarUsers(viewerID(c))
	if err != nil {
		return apperrors.MapToHTTPError(err)
	}
	return c.JSON(fiber.Map{"success": true, "users": users})
}

// Conversation returns the history with the peer in the path and marks the
// peer's prior messages seen as a side effect of opening the conversation.
func (h *MessageHandler) Conversation(c *fiber.Ctx) error {
	peer := chat.UserID(c.Params("id"))
	if peer == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing peer id")
	}

	messages, err := h.chatService.GetConversation(viewerID(c), peer)
	if err != nil {
		return apperrors.MapToHTTPError(err)
	}
	return c.JSON(fiber.Map{"success": true, "messages": messages})
}

type sendBody struct {
	Text  string `json:"text"`
	Image string `json:"image"`
}

// Send persists a message to the peer in the path and reports whether the
// real-time push reached a live connection or the message was buffered.
func (h *MessageHandler) Send(c *fiber.Ctx) error {
	receiver := chat.UserID(c.Params("id"))
	if receiver == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing receiver id")
	}

	var body sendBody
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}

	message, outcome, err := h.chatService.SendMessage(c.UserContext(), chat.SendMessageCommand{
		SenderID:   viewerID(c),
		ReceiverID: receiver,
		Text:       body.Text,
		Image:      body.Image,
	})
	if err != nil {
		return apperrors.MapToHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": message,
		"outcome": outcome.String(),
	})
}

// MarkSeen flips one message to seen by id.
func (h *MessageHandler) MarkSeen(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid message id")
	}

	if err := h.chatService.MarkMessageSeen(id); err != nil {
		return apperrors.MapToHTTPError(err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// Search runs a full-text query scoped to the viewer's conversations.
func (h *MessageHandler) Search(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing query")
	}

	hits, err := h.chatService.SearchMessages(c.UserContext(), viewerID(c), query, h.searchLimit)
	if err != nil {
		return apperrors.MapToHTTPError(err)
	}
	return c.JSON(fiber.Map{"success": true, "hits": hits})
}

// Media serves a stored image by ref.
func (h *MessageHandler) Media(c *fiber.Ctx) error {
	path, err := h.media.Open(c.Params("ref"))
	if err != nil {
		return apperrors.MapToHTTPError(err)
	}
	return c.SendFile(path)
}
