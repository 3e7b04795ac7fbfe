//go:generate go run go.uber.org/mock/mockgen -source=chat.go -destination=../mocks/mock_chat_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IChatRepository interface {
	CreateChat(chat domain.Chat) error
	GetChat(id uuid.UUID) (domain.Chat, error)
	AddMember(chatID, userID uuid.UUID) (domain.Chat, error)
}

type ChatRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewChatRepository(db *badger.DB, log *slog.Logger) IChatRepository {
	return &ChatRepository{db: db, log: log}
}

// diskChat is the JSON form stored under chatKey.
// Identifiers are kept as strings and times as unix nanoseconds.
type diskChat struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	OwnerID   string   `json:"ownerId"`
	Members   []string `json:"members"`
	CreatedAt int64    `json:"createdAt"`
}

func chatKey(id uuid.UUID) []byte { return []byte("chat:" + id.String()) }

func (c ChatRepository) CreateChat(chat domain.Chat) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, chatKey(chat.ID), fromChat(chat))
	})
}

func (c ChatRepository) GetChat(id uuid.UUID) (domain.Chat, error) {
	var chat diskChat
	err := c.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, chatKey(id), &chat)
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Chat{}, errors.ErrChatNotFound
	}
	if err != nil {
		return domain.Chat{}, err
	}
	return toChat(chat)
}

// AddMember appends userID to the member list and returns the updated chat.
// Concurrent additions to the same chat are serialized by badger's conflict
// detection and retried.
func (c ChatRepository) AddMember(chatID, userID uuid.UUID) (domain.Chat, error) {
	var updated diskChat
	err := update(c.db, c.log, func(txn *badger.Txn) error {
		// Reset on every attempt, a retried transaction starts from a fresh read
		updated = diskChat{}
		if err := getJSON(txn, chatKey(chatID), &updated); err != nil {
			return err
		}
		if lo.Contains(updated.Members, userID.String()) {
			return errors.ErrAlreadyChatMember
		}
		updated.Members = append(updated.Members, userID.String())
		return setJSON(txn, chatKey(chatID), updated)
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Chat{}, errors.ErrChatNotFound
	}
	if err != nil {
		return domain.Chat{}, err
	}
	return toChat(updated)
}

func fromChat(chat domain.Chat) diskChat {
	return diskChat{
		ID:        chat.ID.String(),
		Name:      chat.Name,
		OwnerID:   chat.OwnerID.String(),
		Members:   lo.Map(chat.Members, func(id uuid.UUID, _ int) string { return id.String() }),
		CreatedAt: chat.CreatedAt.UnixNano(),
	}
}

func toChat(chat diskChat) (domain.Chat, error) {
	id, err := uuid.Parse(chat.ID)
	if err != nil {
		return domain.Chat{}, err
	}
	ownerID, err := uuid.Parse(chat.OwnerID)
	if err != nil {
		return domain.Chat{}, err
	}
	members := make([]uuid.UUID, 0, len(chat.Members))
	for _, m := range chat.Members {
		memberID, err := uuid.Parse(m)
		if err != nil {
			return domain.Chat{}, err
		}
		members = append(members, memberID)
	}
	return domain.Chat{
		ID:        id,
		Name:      chat.Name,
		OwnerID:   ownerID,
		Members:   members,
		CreatedAt: time.Unix(0, chat.CreatedAt).UTC(),
	}, nil
}
