//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	stderrors "errors"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IUserRepository interface {
	CreateUser(account domain.Account) error
	GetUserByEmail(email string) (domain.Account, error)
	GetUserByID(id uuid.UUID) (domain.Account, error)
	MissingUsers(ids []uuid.UUID) ([]uuid.UUID, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) IUserRepository {
	return &UserRepository{db: db}
}

// diskUser is the stored form of an account.
type diskUser struct {
	ID           string   `json:"id"`
	Email        string   `json:"email"`
	DisplayName  string   `json:"displayName"`
	PasswordHash string   `json:"passwordHash"`
	Roles        []string `json:"roles"`
	CreatedAt    int64    `json:"createdAt"`
}

func userKey(id uuid.UUID) []byte { return []byte("user:id:" + id.String()) }

// emailKey is case-insensitive so that two accounts never share an address.
func emailKey(email string) []byte {
	return []byte("user:email:" + strings.ToLower(strings.TrimSpace(email)))
}

// CreateUser stores the account and its email index in a single transaction.
func (u UserRepository) CreateUser(account domain.Account) error {
	return u.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(emailKey(account.Email)); err == nil {
			return errors.ErrUserAlreadyExists
		} else if !stderrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(emailKey(account.Email), []byte(account.ID.String())); err != nil {
			return err
		}
		return setJSON(txn, userKey(account.ID), fromAccount(account))
	})
}

// GetUserByEmail resolves the email index, then the account.
func (u UserRepository) GetUserByEmail(email string) (domain.Account, error) {
	var user diskUser
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(emailKey(email))
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		id, err := uuid.ParseBytes(raw)
		if err != nil {
			return err
		}
		return getJSON(txn, userKey(id), &user)
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Account{}, errors.ErrUserNotFound
	}
	if err != nil {
		return domain.Account{}, err
	}
	return toAccount(user)
}

func (u UserRepository) GetUserByID(id uuid.UUID) (domain.Account, error) {
	var user diskUser
	err := u.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, userKey(id), &user)
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Account{}, errors.ErrUserNotFound
	}
	if err != nil {
		return domain.Account{}, err
	}
	return toAccount(user)
}

// MissingUsers returns the ids that match no account, in input order.
func (u UserRepository) MissingUsers(ids []uuid.UUID) ([]uuid.UUID, error) {
	var missing []uuid.UUID
	err := u.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			_, err := txn.Get(userKey(id))
			if stderrors.Is(err, badger.ErrKeyNotFound) {
				missing = append(missing, id)
				continue
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	return missing, err
}

func fromAccount(a domain.Account) diskUser {
	return diskUser{
		ID:           a.ID.String(),
		Email:        a.Email,
		DisplayName:  a.DisplayName,
		PasswordHash: a.PasswordHash,
		Roles:        a.Roles,
		CreatedAt:    a.CreatedAt.UnixNano(),
	}
}

func toAccount(u diskUser) (domain.Account, error) {
	id, err := uuid.Parse(u.ID)
	if err != nil {
		return domain.Account{}, err
	}
	return domain.Account{
		ID:           id,
		Email:        u.Email,
		DisplayName:  u.DisplayName,
		PasswordHash: u.PasswordHash,
		Roles:        u.Roles,
		CreatedAt:    time.Unix(0, u.CreatedAt).UTC(),
	}, nil
}
