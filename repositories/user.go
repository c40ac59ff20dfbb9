//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"quick-chat/domain/chat"
	apperrors "quick-chat/errors"
)

type IUserRepository interface {
	CreateUser(email, hashedPassword, fullName, bio string) (User, error)
	GetUserByEmail(email string) (User, error)
	GetUserByID(id chat.UserID) (User, error)
	ListUsersExcept(id chat.UserID) ([]User, error)
	UpdateProfile(id chat.UserID, fullName, bio, avatarRef string) (User, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) IUserRepository {
	return &UserRepository{db: db}
}

// User is the stored account record. PasswordHash never leaves the
// repository/service boundary; handlers map User to a response shape
// without it.
type User struct {
	ID           chat.UserID `json:"id"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"passwordHash"`
	FullName     string      `json:"fullName"`
	Bio          string      `json:"bio,omitempty"`
	AvatarRef    string      `json:"avatarRef,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// CreateUser persists a new account keyed by email, with a uid index for
// id lookups. The email key doubles as the uniqueness check.
func (u UserRepository) CreateUser(email, hashedPassword, fullName, bio string) (User, error) {
	user := User{
		ID:           chat.UserID(uuid.NewString()),
		Email:        email,
		PasswordHash: hashedPassword,
		FullName:     fullName,
		Bio:          bio,
		CreatedAt:    time.Now().UTC(),
	}

	data, err := json.Marshal(user)
	if err != nil {
		return User{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		key := emailKey(email)
		if _, err := txn.Get(key); err == nil {
			return apperrors.ErrUserAlreadyExists
		}
		if err := txn.Set(key, data); err != nil {
			return err
		}
		return txn.Set(uidKey(user.ID), []byte(email))
	})
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (u UserRepository) GetUserByEmail(email string) (User, error) {
	var user User
	err := u.db.View(func(txn *badger.Txn) error {
		return loadUser(txn, emailKey(email), &user)
	})
	return user, err
}

func (u UserRepository) GetUserByID(id chat.UserID) (User, error) {
	var user User
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(uidKey(id))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return apperrors.ErrUserNotFound
			}
			return err
		}
		email, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return loadUser(txn, emailKey(string(email)), &user)
	})
	return user, err
}

// ListUsersExcept returns every account except the given one, for the
// sidebar user list.
func (u UserRepository) ListUsersExcept(id chat.UserID) ([]User, error) {
	prefix := []byte("user:")

	var users []User
	err := u.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var user User
			err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &user)
			})
			if err != nil {
				return err
			}
			if user.ID == id {
				continue
			}
			users = append(users, user)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateProfile rewrites the mutable profile fields. Empty arguments leave
// the current value untouched.
func (u UserRepository) UpdateProfile(id chat.UserID, fullName, bio, avatarRef string) (User, error) {
	var user User
	err := u.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(uidKey(id))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return apperrors.ErrUserNotFound
			}
			return err
		}
		email, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := loadUser(txn, emailKey(string(email)), &user); err != nil {
			return err
		}

		if fullName != "" {
			user.FullName = fullName
		}
		if bio != "" {
			user.Bio = bio
		}
		if avatarRef != "" {
			user.AvatarRef = avatarRef
		}

		data, err := json.Marshal(user)
		if err != nil {
			return err
		}
		return txn.Set(emailKey(user.Email), data)
	})
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func loadUser(txn *badger.Txn, key []byte, user *User) error {
	item, err := txn.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return apperrors.ErrUserNotFound
		}
		return err
	}
	return item.Value(func(value []byte) error {
		return json.Unmarshal(value, user)
	})
}

func emailKey(email string) []byte {
	return []byte("user:" + email)
}

func uidKey(id chat.UserID) []byte {
	return []byte("uid:" + string(id))
}
