package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"quick-chat/auth"
	"quick-chat/domain/chat"
	apperrors "quick-chat/errors"
	"quick-chat/mocks"
	"quick-chat/repositories"
	"quick-chat/services"
)

func TestAuthService_Signup(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockIUserRepository(ctrl)
	mockMedia := mocks.NewMockIStore(ctrl)
	svc := services.NewAuthService(mockRepo, mockMedia, 24*time.Hour)

	t.Run("should sign up successfully when input is valid", func(t *testing.T) {
		req := require.New(t)
		email := "test@example.com"
		password := "ComplexPass123!" // Must satisfy the complexity rules
		createdUser := repositories.User{ID: "user-uuid", Email: email, FullName: "Alice Example"}

		// Expect CreateUser to be called with a hashed password (not the plain one)
		mockRepo.EXPECT().
			CreateUser(email, gomock.Not(password), "Alice Example", "").
			Return(createdUser, nil).
			Times(1)

		user, token, err := svc.Signup("Alice Example", email, password, "")

		req.NoError(err)
		req.NotEmpty(token)
		req.Equal(createdUser.ID, user.ID)

		claims, err := auth.ValidateToken(string(token))
		req.NoError(err)
		req.Equal(string(createdUser.ID), claims.UserID)
	})

	t.Run("should fail when password complexity is not met", func(t *testing.T) {
		req := require.New(t)

		// Repository should NEVER be called
		mockRepo.EXPECT().CreateUser(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		_, token, err := svc.Signup("Alice Example", "test@example.com", "simple", "")

		req.Error(err)
		req.ErrorIs(err, apperrors.ErrInvalidPassword)
		req.Empty(token)
	})

	t.Run("should fail when user already exists in repository", func(t *testing.T) {
		req := require.New(t)
		email := "duplicate@example.com"

		mockRepo.EXPECT().
			CreateUser(email, gomock.Any(), gomock.Any(), gomock.Any()).
			Return(repositories.User{}, apperrors.ErrUserAlreadyExists).
			Times(1)

		_, _, err := svc.Signup("Alice Example", email, "ComplexPass123!", "")

		req.ErrorIs(err, apperrors.ErrUserAlreadyExists)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockIUserRepository(ctrl)
	mockMedia := mocks.NewMockIStore(ctrl)
	svc := services.NewAuthService(mockRepo, mockMedia, 24*time.Hour)

	t.Run("should login successfully with correct credentials", func(t *testing.T) {
		req := require.New(t)
		email := "user@example.com"
		password := "Secret123456!"

		hashedPassword, _ := auth.HashPassword(password)
		storedUser := repositories.User{
			ID:           "uuid-123",
			Email:        email,
			PasswordHash: hashedPassword,
		}

		mockRepo.EXPECT().
			GetUserByEmail(email).
			Return(storedUser, nil).
			Times(1)

		user, token, err := svc.Login(email, password)

		req.NoError(err)
		req.NotEmpty(token)
		req.Equal(storedUser.ID, user.ID)

		claims, err := auth.ValidateToken(string(token))
		req.NoError(err)
		req.Equal(string(storedUser.ID), claims.UserID)
	})

	t.Run("should return invalid credentials on wrong password", func(t *testing.T) {
		req := require.New(t)
		email := "user@example.com"

		hashedPassword, _ := auth.HashPassword("CorrectPassword123!")
		storedUser := repositories.User{
			Email:        email,
			PasswordHash: hashedPassword,
		}

		mockRepo.EXPECT().
			GetUserByEmail(email).
			Return(storedUser, nil).
			Times(1)

		_, _, err := svc.Login(email, "WrongPassword123!")

		req.ErrorIs(err, apperrors.ErrInvalidCredentials)
	})

	t.Run("should not reveal whether the account exists", func(t *testing.T) {
		req := require.New(t)

		mockRepo.EXPECT().
			GetUserByEmail("ghost@example.com").
			Return(repositories.User{}, apperrors.ErrUserNotFound).
			Times(1)

		_, _, err := svc.Login("ghost@example.com", "AnyPassword123!")

		// Generic error instead of ErrUserNotFound to prevent enumeration
		req.ErrorIs(err, apperrors.ErrInvalidCredentials)
	})
}

func TestAuthService_UpdateProfile(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockIUserRepository(ctrl)
	mockMedia := mocks.NewMockIStore(ctrl)
	svc := services.NewAuthService(mockRepo, mockMedia, 24*time.Hour)

	t.Run("should store the avatar and pass its ref through", func(t *testing.T) {
		req := require.New(t)
		id := chat.UserID("uuid-123")
		dataURL := "data:image/png;base64,AAAA"

		mockMedia.EXPECT().SaveDataURL(dataURL).Return("avatar-ref.png", nil).Times(1)
		mockRepo.EXPECT().
			UpdateProfile(id, "New Name", "new bio", "avatar-ref.png").
			Return(repositories.User{ID: id, AvatarRef: "avatar-ref.png"}, nil).
			Times(1)

		user, err := svc.UpdateProfile(id, "New Name", "new bio", dataURL)
		req.NoError(err)
		req.Equal("avatar-ref.png", user.AvatarRef)
	})

	t.Run("should keep the previous avatar when none is sent", func(t *testing.T) {
		req := require.New(t)
		id := chat.UserID("uuid-123")

		mockMedia.EXPECT().SaveDataURL(gomock.Any()).Times(0)
		mockRepo.EXPECT().
			UpdateProfile(id, "New Name", "new bio", "").
			Return(repositories.User{ID: id}, nil).
			Times(1)

		_, err := svc.UpdateProfile(id, "New Name", "new bio", "")
		req.NoError(err)
	})
}
