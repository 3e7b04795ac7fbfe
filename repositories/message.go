//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"bytes"
	"chat-relay/domain"
	"chat-relay/errors"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	defaultLimitMessages = 50
	sequenceBandwidth    = 100
	cursorDigits         = 19
)

type IMessageRepository interface {
	StoreMessage(message domain.Message) (domain.Message, error)
	GetMessages(chatID uuid.UUID, cursor *string, limit int) ([]domain.Message, *string, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	sequence      *badger.Sequence
	limitMessages int
}

// NewMessageRepository leases message ids from a badger sequence. Close must
// be called before the database is closed to give unused ids back.
func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) (*MessageRepository, error) {
	sequence, err := db.GetSequence([]byte("seq:message"), sequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("message sequence: %w", err)
	}
	limit := defaultLimitMessages
	if limitMessages != nil && *limitMessages > 0 {
		limit = *limitMessages
	}
	return &MessageRepository{db: db, log: log, sequence: sequence, limitMessages: limit}, nil
}

func (m *MessageRepository) Close() error {
	return m.sequence.Release()
}

type diskMessage struct {
	ID        int64    `json:"id"`
	ChatID    string   `json:"chatId"`
	SenderID  string   `json:"senderId"`
	Text      string   `json:"text"`
	Mentions  []string `json:"mentions,omitempty"`
	CreatedAt int64    `json:"createdAt"`
}

func messagePrefix(chatID uuid.UUID) []byte {
	return []byte("msg:" + chatID.String() + ":")
}

// messageKey is formatted as "msg:{chat_id}:{id_padded}". The 19-digit zero
// padding keeps the lexicographical order of keys equal to the id order.
func messageKey(chatID uuid.UUID, id domain.MessageID) []byte {
	return fmt.Appendf(messagePrefix(chatID), "%0*d", cursorDigits, id)
}

// StoreMessage allocates the next id and persists the message.
func (m *MessageRepository) StoreMessage(message domain.Message) (domain.Message, error) {
	next, err := m.sequence.Next()
	if err != nil {
		return domain.Message{}, fmt.Errorf("message id allocation: %w", err)
	}
	// Sequences start at zero, ids start at one.
	message.ID = domain.MessageID(next + 1)

	err = m.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, messageKey(message.ChatID, message.ID), fromMessage(message))
	})
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// GetMessages returns up to limit messages older than cursor, newest first.
// The returned cursor is nil when there is nothing older.
func (m *MessageRepository) GetMessages(chatID uuid.UUID, cursor *string, limit int) ([]domain.Message, *string, error) {
	if limit <= 0 || limit > m.limitMessages {
		limit = m.limitMessages
	}
	prefix := messagePrefix(chatID)

	var seekKey []byte
	switch cursor {
	case nil:
		seekKey = append(bytes.Clone(prefix), bytes.Repeat([]byte("9"), cursorDigits)...)
	default:
		if len(*cursor) != cursorDigits {
			return nil, nil, errors.ErrInvalidCursor
		}
		if _, err := strconv.ParseUint(*cursor, 10, 64); err != nil {
			return nil, nil, errors.ErrInvalidCursor
		}
		seekKey = append(bytes.Clone(prefix), []byte(*cursor)...)
	}

	var stored []diskMessage
	var nextCursor *string
	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		it.Seek(seekKey)
		// The cursor message itself was already served
		if cursor != nil && it.ValidForPrefix(prefix) && bytes.Equal(it.Item().Key(), seekKey) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if len(stored) == limit {
				last := string(messageKey(chatID, domain.MessageID(stored[len(stored)-1].ID))[len(prefix):])
				nextCursor = &last
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", limit))
				break
			}
			var dm diskMessage
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &dm)
			}); err != nil {
				return err
			}
			stored = append(stored, dm)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	messages := make([]domain.Message, 0, len(stored))
	for _, dm := range stored {
		message, err := toMessage(dm)
		if err != nil {
			return nil, nil, err
		}
		messages = append(messages, message)
	}
	return messages, nextCursor, nil
}

func fromMessage(message domain.Message) diskMessage {
	return diskMessage{
		ID:        int64(message.ID),
		ChatID:    message.ChatID.String(),
		SenderID:  message.SenderID.String(),
		Text:      message.Text,
		Mentions:  lo.Map(message.Mentions, func(id uuid.UUID, _ int) string { return id.String() }),
		CreatedAt: message.CreatedAt.UnixNano(),
	}
}

func toMessage(dm diskMessage) (domain.Message, error) {
	chatID, err := uuid.Parse(dm.ChatID)
	if err != nil {
		return domain.Message{}, err
	}
	senderID, err := uuid.Parse(dm.SenderID)
	if err != nil {
		return domain.Message{}, err
	}
	var mentions []uuid.UUID
	for _, raw := range dm.Mentions {
		id, err := uuid.Parse(raw)
		if err != nil {
			return domain.Message{}, err
		}
		mentions = append(mentions, id)
	}
	return domain.Message{
		ID:        domain.MessageID(dm.ID),
		ChatID:    chatID,
		SenderID:  senderID,
		Text:      dm.Text,
		Mentions:  mentions,
		CreatedAt: time.Unix(0, dm.CreatedAt).UTC(),
	}, nil
}
