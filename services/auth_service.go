//go:generate go run go.uber.org/mock/mockgen -source=auth_service.go -destination=../mocks/mock_auth_service.go -package=mocks
package services

import (
	"fmt"
	"time"

	"quick-chat/auth"
	"quick-chat/domain/chat"
	apperrors "quick-chat/errors"
	"quick-chat/media"
	"quick-chat/repositories"
)

type IAuthService interface {
	Signup(fullName, email, password, bio string) (repositories.User, Token, error)
	Login(email, password string) (repositories.User, Token, error)
	CurrentUser(id chat.UserID) (repositories.User, error)
	UpdateProfile(id chat.UserID, fullName, bio, avatarDataURL string) (repositories.User, error)
}

type AuthService struct {
	users         repositories.IUserRepository
	media         media.IStore
	tokenDuration time.Duration
}

type Token string

func NewAuthService(users repositories.IUserRepository, mediaStore media.IStore,
	tokenDuration time.Duration) IAuthService {
	return &AuthService{users: users, media: mediaStore, tokenDuration: tokenDuration}
}

func (s *AuthService) Signup(fullName, email, password, bio string) (repositories.User, Token, error) {
	valReq := auth.SignupRequest{
		FullName: fullName,
		Email:    email,
		Password: password,
	}

	// Business rules first: no expensive cryptographic work for a request
	// that would be rejected anyway.
	if err := auth.ValidateSignup(valReq); err != nil {
		return repositories.User{}, "", fmt.Errorf("%w: %v", apperrors.ErrInvalidPassword, err)
	}

	// Hash in the service layer so the repository never sees plain passwords.
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return repositories.User{}, "", fmt.Errorf("hashing failed: %w", err)
	}

	user, err := s.users.CreateUser(email, hashedPassword, fullName, bio)
	if err != nil {
		return repositories.User{}, "", err // propagates ErrUserAlreadyExists
	}

	token, err := auth.GenerateToken(string(user.ID), s.tokenDuration)
	if err != nil {
		return repositories.User{}, "", apperrors.ErrTokenGeneration
	}
	return user, Token(token), nil
}

func (s *AuthService) Login(email, password string) (repositories.User, Token, error) {
	if err := auth.ValidateLogin(auth.LoginRequest{Email: email, Password: password}); err != nil {
		return repositories.User{}, "", apperrors.ErrInvalidCredentials
	}

	user, err := s.users.GetUserByEmail(email)
	if err != nil {
		// Generic error to prevent user enumeration attacks
		return repositories.User{}, "", apperrors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return repositories.User{}, "", apperrors.ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(string(user.ID), s.tokenDuration)
	if err != nil {
		return repositories.User{}, "", apperrors.ErrTokenGeneration
	}
	return user, Token(token), nil
}

func (s *AuthService) CurrentUser(id chat.UserID) (repositories.User, error) {
	return s.users.GetUserByID(id)
}

// UpdateProfile saves a new avatar when one is provided and rewrites the
// mutable profile fields.
func (s *AuthService) UpdateProfile(id chat.UserID, fullName, bio, avatarDataURL string) (repositories.User, error) {
	avatarRef := ""
	if avatarDataURL != "" {
		ref, err := s.media.SaveDataURL(avatarDataURL)
		if err != nil {
			return repositories.User{}, err
		}
		avatarRef = ref
	}
	return s.users.UpdateProfile(id, fullName, bio, avatarRef)
}
