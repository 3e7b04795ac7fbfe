package services

import (
	"chat-relay/domain"
	"chat-relay/domain/chat"
	"chat-relay/domain/event"
	"chat-relay/mocks"
	"chat-relay/pipeline"
	"chat-relay/runtime"
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"
)

type received struct {
	connID  domain.ConnectionID
	name    string
	payload any
}

func TestCreateMessage_Reaches_Every_Open_Connection(t *testing.T) {
	defer goleak.VerifyNone(t)
	req := require.New(t)
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	users := mocks.NewMockIUserRepository(ctrl)
	chats := mocks.NewMockIChatRepository(ctrl)
	messages := mocks.NewMockIMessageRepository(ctrl)
	refresh := mocks.NewMockIRefreshRepository(ctrl)
	transport := mocks.NewMockTransport(ctrl)

	registry := runtime.NewRegistry(8)
	notifier := runtime.NewNotifier(log, registry, transport, runtime.WithDeliveryTimeout(200*time.Millisecond))
	dispatcher := runtime.NewDispatcher(log, time.Second)
	dispatcher.Register(event.MessageSentType, event.NewGroupNotificationHandler(log, notifier))
	dispatcher.Register(event.UserMentionedType, event.NewGroupNotificationHandler(log, notifier))

	p := pipeline.New(log)
	accounts := NewAccountService(log, users, refresh, nil, time.Hour, dispatcher)
	chatService := NewChatService(log, users, chats, messages, registry, dispatcher)
	req.NoError(Register(p, pipeline.NewValidate(), accounts, chatService, 1000))
	req.NoError(p.Seal())

	// Given alice with one tab and bob with two, all of them opening the chat
	alice, bob := uuid.New(), uuid.New()
	c := domain.Chat{ID: uuid.New(), Name: "team", OwnerID: alice, Members: []uuid.UUID{alice, bob}}
	chats.EXPECT().GetChat(c.ID).Return(c, nil).AnyTimes()

	aliceTab, bobTab, bobPhone := domain.ConnectionID("alice-tab"), domain.ConnectionID("bob-tab"), domain.ConnectionID("bob-phone")
	registry.Connect(aliceTab, alice)
	registry.Connect(bobTab, bob)
	registry.Connect(bobPhone, bob)
	for conn, user := range map[domain.ConnectionID]uuid.UUID{aliceTab: alice, bobTab: bob, bobPhone: bob} {
		result := pipeline.Send[domain.Unit](context.Background(), p, chat.OpenChat{ChatID: c.ID, UserID: user, ConnectionID: conn})
		req.True(result.IsOk())
	}

	// And bob's phone failing every delivery
	var mu sync.Mutex
	var got []received
	transport.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, connID domain.ConnectionID, name string, payload any) error {
			if connID == bobPhone {
				return stderrors.New("socket reset")
			}
			mu.Lock()
			defer mu.Unlock()
			got = append(got, received{connID, name, payload})
			return nil
		}).AnyTimes()

	var stored domain.Message
	messages.EXPECT().StoreMessage(gomock.Any()).DoAndReturn(func(m domain.Message) (domain.Message, error) {
		m.ID = 1
		stored = m
		return m, nil
	})

	// When alice posts a message mentioning bob
	result := pipeline.Send[domain.MessageID](context.Background(), p, chat.CreateMessage{
		ChatID:   c.ID,
		SenderID: alice,
		Text:     "standup in 5",
		Mentions: []uuid.UUID{bob},
	})

	// Then the caller gets the message id
	id, ok := result.Value()
	req.True(ok)
	req.Equal(domain.MessageID(1), id)

	// And once in-flight deliveries drain, every healthy connection was reached
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	req.NoError(notifier.Close(ctx))

	// With the stored message as payload
	sent := event.MessageSent{ChatID: c.ID, MessageID: 1, SenderID: alice, Text: "standup in 5", CreatedAt: stored.CreatedAt}
	mentioned := event.UserMentioned{ChatID: c.ID, MessageID: 1, UserID: bob, ByUserID: alice}
	req.False(stored.CreatedAt.IsZero())

	mu.Lock()
	defer mu.Unlock()
	req.ElementsMatch([]received{
		{aliceTab, string(event.MessageSentType), sent},
		{bobTab, string(event.MessageSentType), sent},
		{bobTab, string(event.UserMentionedType), mentioned},
	}, got)
}
