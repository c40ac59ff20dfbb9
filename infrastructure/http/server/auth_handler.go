package server

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"quick-chat/auth"
	"quick-chat/domain/chat"
	apperrors "quick-chat/errors"
	"quick-chat/repositories"
	"quick-chat/services"
)

type AuthHandler struct {
	log         *slog.Logger
	authService services.IAuthService
}

func NewAuthHandler(log *slog.Logger, authService services.IAuthService) *AuthHandler {
	return &AuthHandler{log: log, authService: authService}
}

type signupBody struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Bio      string `json:"bio"`
}

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateProfileBody struct {
	FullName string `json:"fullName"`
	Bio      string `json:"bio"`
	Avatar   string `json:"avatar"`
}

// userResponse is the account shape sent to clients; the password hash never
// leaves the service boundary.
type userResponse struct {
	ID        chat.UserID `json:"id"`
	Email     string      `json:"email"`
	FullName  string      `json:"fullName"`
	Bio       string      `json:"bio,omitempty"`
	AvatarRef string      `json:"avatarRef,omitempty"`
}

func toUserResponse(u repositories.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Bio:       u.Bio,
		AvatarRef: u.AvatarRef,
	}
}

func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var body signupBody
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}

	user, token, err := h.authService.Signup(body.FullName, body.Email, body.Password, body.Bio)
	if err != nil {
		return apperrors.MapToHTTPError(err)
	}

	h.log.Info("User signed up", "user_id", user.ID)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"user":    toUserResponse(user),
		"token":   token,
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var body loginBody
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}

	user, token, err := h.authService.Login(body.Email, body.Password)
	if err != nil {
		return apperrors.MapToHTTPError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    toUserResponse(user),
		"token":   token,
	})
}

// Check returns the account behind the presented token, used by the client
// on boot to restore a session.
func (h *AuthHandler) Check(c *fiber.Ctx) error {
	user, err := h.authService.CurrentUser(viewerID(c))
	if err != nil {
		return apperrors.MapToHTTPError(err)
	}
	return c.JSON(fiber.Map{"success": true, "user": toUserResponse(user)})
}

func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	var body updateProfileBody
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}

	user, err := h.authService.UpdateProfile(viewerID(c), body.FullName, body.Bio, body.Avatar)
	if err != nil {
		return apperrors.MapToHTTPError(err)
	}
	return c.JSON(fiber.Map{"success": true, "user": toUserResponse(user)})
}

// viewerID reads the authenticated identity installed by the auth middleware.
func viewerID(c *fiber.Ctx) chat.UserID {
	id, _ := c.Locals(auth.UserIDKey).(string)
	return chat.UserID(id)
}
