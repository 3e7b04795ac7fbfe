package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *badger.DB {
	db, err := OpenBadger(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newMessageRepository(t *testing.T, db *badger.DB, limit *int) *MessageRepository {
	repository, err := NewMessageRepository(db, logs.GetLoggerFromLevel(slog.LevelDebug), limit)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repository.Close() })
	return repository
}

func Test_Record_Multiple_Message(t *testing.T) {
	req := require.New(t)
	repository := newMessageRepository(t, openDB(t), nil)
	chatID := uuid.New()
	content := "this message will self destruct in 5 seconds"
	at := time.Now().UTC()

	// Given three messages stored one minute apart
	var stored []domain.Message
	for i, author := range []uuid.UUID{uuid.New(), uuid.New(), uuid.New()} {
		message, err := repository.StoreMessage(domain.Message{
			ChatID:    chatID,
			SenderID:  author,
			Text:      content,
			CreatedAt: at.Add(time.Duration(i) * time.Minute),
		})
		req.NoError(err)
		stored = append(stored, message)
	}

	// Then ids are allocated in increasing order
	req.Less(stored[0].ID, stored[1].ID)
	req.Less(stored[1].ID, stored[2].ID)

	// When the chat history is fetched
	fetched, cursor, err := repository.GetMessages(chatID, nil, 0)

	// Then every message comes back, newest first
	req.NoError(err)
	req.Nil(cursor)
	req.Equal([]domain.Message{stored[2], stored[1], stored[0]}, fetched)
}

func Test_Record_Multiple_Message_And_Paginate(t *testing.T) {
	req := require.New(t)
	limit := 2
	repository := newMessageRepository(t, openDB(t), &limit)
	chatID := uuid.New()
	otherChat := uuid.New()

	var ids []domain.MessageID
	for range 5 {
		message, err := repository.StoreMessage(domain.Message{ChatID: chatID, SenderID: uuid.New(), Text: "hi", CreatedAt: time.Now().UTC()})
		req.NoError(err)
		ids = append(ids, message.ID)
		_, err = repository.StoreMessage(domain.Message{ChatID: otherChat, SenderID: uuid.New(), Text: "noise", CreatedAt: time.Now().UTC()})
		req.NoError(err)
	}

	// First page
	page, cursor, err := repository.GetMessages(chatID, nil, 10)
	req.NoError(err)
	req.Len(page, limit)
	req.Equal([]domain.MessageID{ids[4], ids[3]}, pageIDs(page))
	req.NotNil(cursor)

	// Second page
	page, cursor, err = repository.GetMessages(chatID, cursor, 2)
	req.NoError(err)
	req.Equal([]domain.MessageID{ids[2], ids[1]}, pageIDs(page))
	req.NotNil(cursor)

	// Last page
	page, cursor, err = repository.GetMessages(chatID, cursor, 2)
	req.NoError(err)
	req.Equal([]domain.MessageID{ids[0]}, pageIDs(page))
	req.Nil(cursor)
}

func Test_GetMessages_Rejects_Malformed_Cursor(t *testing.T) {
	repository := newMessageRepository(t, openDB(t), nil)

	_, _, err := repository.GetMessages(uuid.New(), lo.ToPtr("abc"), 10)

	require.ErrorIs(t, err, errors.ErrInvalidCursor)
}

func Test_GetMessages_Unknown_Chat_Is_Empty(t *testing.T) {
	req := require.New(t)
	repository := newMessageRepository(t, openDB(t), nil)

	page, cursor, err := repository.GetMessages(uuid.New(), nil, 10)

	req.NoError(err)
	req.Empty(page)
	req.Nil(cursor)
}

func pageIDs(messages []domain.Message) []domain.MessageID {
	return lo.Map(messages, func(m domain.Message, _ int) domain.MessageID { return m.ID })
}
