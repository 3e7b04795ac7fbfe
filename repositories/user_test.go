package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newAccount(email string) domain.Account {
	return domain.Account{
		ID:           uuid.New(),
		Email:        email,
		DisplayName:  "Alice",
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		Roles:        []string{"user"},
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestUserRepository_Create_And_Get(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openDB(t))
	account := newAccount("alice@example.com")

	req.NoError(repository.CreateUser(account))

	byEmail, err := repository.GetUserByEmail("Alice@Example.com")
	req.NoError(err)
	req.Equal(account, byEmail)

	byID, err := repository.GetUserByID(account.ID)
	req.NoError(err)
	req.Equal(account, byID)
}

func TestUserRepository_Email_Is_Unique(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openDB(t))
	req.NoError(repository.CreateUser(newAccount("bob@example.com")))

	err := repository.CreateUser(newAccount("BOB@example.com"))

	req.ErrorIs(err, errors.ErrUserAlreadyExists)
}

func TestUserRepository_Unknown_User(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openDB(t))

	_, err := repository.GetUserByEmail("nobody@example.com")
	req.ErrorIs(err, errors.ErrUserNotFound)

	_, err = repository.GetUserByID(uuid.New())
	req.ErrorIs(err, errors.ErrUserNotFound)
}

func TestUserRepository_MissingUsers(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openDB(t))
	known := newAccount("carol@example.com")
	req.NoError(repository.CreateUser(known))
	unknown := uuid.New()

	missing, err := repository.MissingUsers([]uuid.UUID{known.ID, unknown})

	req.NoError(err)
	req.Equal([]uuid.UUID{unknown}, missing)
}
