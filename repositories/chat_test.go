package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestChatRepository_Create_And_Get(t *testing.T) {
	req := require.New(t)
	repository := NewChatRepository(openDB(t), logs.GetLoggerFromLevel(slog.LevelDebug))
	owner := uuid.New()
	chat := domain.Chat{
		ID:        uuid.New(),
		Name:      "general",
		OwnerID:   owner,
		Members:   []uuid.UUID{owner},
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	req.NoError(repository.CreateChat(chat))
	fetched, err := repository.GetChat(chat.ID)

	req.NoError(err)
	req.Equal(chat, fetched)

	_, err = repository.GetChat(uuid.New())
	req.ErrorIs(err, errors.ErrChatNotFound)
}

func TestChatRepository_AddMember(t *testing.T) {
	req := require.New(t)
	repository := NewChatRepository(openDB(t), logs.GetLoggerFromLevel(slog.LevelDebug))
	owner, guest := uuid.New(), uuid.New()
	chatID := uuid.New()
	req.NoError(repository.CreateChat(domain.Chat{ID: chatID, Name: "ops", OwnerID: owner, Members: []uuid.UUID{owner}}))

	chat, err := repository.AddMember(chatID, guest)
	req.NoError(err)
	req.Equal([]uuid.UUID{owner, guest}, chat.Members)

	_, err = repository.AddMember(chatID, guest)
	req.ErrorIs(err, errors.ErrAlreadyChatMember)

	_, err = repository.AddMember(uuid.New(), guest)
	req.ErrorIs(err, errors.ErrChatNotFound)
}

func TestChatRepository_Concurrent_AddMember_Keeps_Everyone(t *testing.T) {
	req := require.New(t)
	repository := NewChatRepository(openDB(t), logs.GetLoggerFromLevel(slog.LevelDebug))
	owner := uuid.New()
	chatID := uuid.New()
	req.NoError(repository.CreateChat(domain.Chat{ID: chatID, Name: "busy", OwnerID: owner, Members: []uuid.UUID{owner}}))

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = repository.AddMember(chatID, uuid.New())
		}()
	}
	wg.Wait()

	chat, err := repository.GetChat(chatID)
	req.NoError(err)
	req.Len(chat.Members, 3)
}
