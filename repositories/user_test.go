package repositories

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	apperrors "quick-chat/errors"
)

func Test_Create_And_Fetch_User(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repository := NewUserRepository(db)

	created, err := repository.CreateUser("alice@example.com", "$argon2id$hash", "Alice Example", "hi there")
	req.NoError(err)
	req.NotEmpty(created.ID)
	req.False(created.CreatedAt.IsZero())

	byEmail, err := repository.GetUserByEmail("alice@example.com")
	req.NoError(err)
	req.Equal(created, byEmail)

	byID, err := repository.GetUserByID(created.ID)
	req.NoError(err)
	req.Equal(created, byID)
}

func Test_Create_User_Duplicate_Email(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repository := NewUserRepository(db)

	_, err := repository.CreateUser("alice@example.com", "hash", "Alice", "")
	req.NoError(err)

	_, err = repository.CreateUser("alice@example.com", "other-hash", "Imposter", "")
	req.ErrorIs(err, apperrors.ErrUserAlreadyExists)
}

func Test_Get_Unknown_User(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repository := NewUserRepository(db)

	_, err := repository.GetUserByEmail("nobody@example.com")
	req.ErrorIs(err, apperrors.ErrUserNotFound)

	_, err = repository.GetUserByID("no-such-id")
	req.ErrorIs(err, apperrors.ErrUserNotFound)
}

func Test_List_Users_Except_Viewer(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repository := NewUserRepository(db)

	alice, err := repository.CreateUser("alice@example.com", "hash", "Alice", "")
	req.NoError(err)
	_, err = repository.CreateUser("bob@example.com", "hash", "Bob", "")
	req.NoError(err)
	_, err = repository.CreateUser("clara@example.com", "hash", "Clara", "")
	req.NoError(err)

	users, err := repository.ListUsersExcept(alice.ID)
	req.NoError(err)
	req.Len(users, 2)

	emails := lo.Map(users, func(u User, _ int) string { return u.Email })
	req.ElementsMatch([]string{"bob@example.com", "clara@example.com"}, emails)
}

func Test_Update_Profile(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repository := NewUserRepository(db)

	created, err := repository.CreateUser("alice@example.com", "hash", "Alice", "old bio")
	req.NoError(err)

	updated, err := repository.UpdateProfile(created.ID, "Alice Renamed", "", "avatar-1.png")
	req.NoError(err)
	req.Equal("Alice Renamed", updated.FullName)
	req.Equal("avatar-1.png", updated.AvatarRef)
	// Empty fields keep their previous value
	req.Equal("old bio", updated.Bio)

	fetched, err := repository.GetUserByID(created.ID)
	req.NoError(err)
	req.Equal(updated, fetched)

	_, err = repository.UpdateProfile("no-such-id", "Nobody", "", "")
	req.ErrorIs(err, apperrors.ErrUserNotFound)
}
