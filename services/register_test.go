package services

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/domain/account"
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"chat-relay/pipeline"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// newSealedPipeline wires services whose collaborators are mocks without
// expectations: any call reaching a handler fails the test.
func newSealedPipeline(t *testing.T, maxContentLength int) *pipeline.Pipeline {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	af := newAccountFixture(t)
	cf := newChatFixture(t)
	p := pipeline.New(log)
	require.NoError(t, Register(p, pipeline.NewValidate(), af.service, cf.service, maxContentLength))
	require.NoError(t, p.Seal())
	return p
}

func TestRegister_Binds_Every_Request(t *testing.T) {
	p := newSealedPipeline(t, 100)

	err := p.Require(
		account.RegisterAccount{}, account.Login{}, account.RefreshSession{}, account.Logout{},
		chat.CreateChat{}, chat.AddMember{}, chat.OpenChat{}, chat.CloseChat{},
		chat.CreateMessage{}, chat.ListMessages{},
	)

	require.NoError(t, err)
}

func TestRegister_Weak_Password_Is_Reported_Without_Echo(t *testing.T) {
	req := require.New(t)
	p := newSealedPipeline(t, 100)

	// When a password long enough but without digits or symbols is submitted
	result := pipeline.Send[uuid.UUID](context.Background(), p, account.RegisterAccount{
		Email:       "alice@example.com",
		DisplayName: "Alice",
		Password:    "onlylowercaseletters",
	})

	// Then it is refused with a dedicated code and the value is never echoed
	details, failed := result.Errors()
	req.True(failed)
	req.Len(details, 1)
	req.Equal(errors.CodeWeakPassword, details[0].Code())
	req.Equal("password", details[0].FieldName())
	req.Nil(details[0].AttemptedValue())
}

func TestRegister_CreateMessage_Aggregates_Every_Rule(t *testing.T) {
	req := require.New(t)
	p := newSealedPipeline(t, 5)

	// Given a message without chat, blank and longer than the limit
	result := pipeline.Send[domain.MessageID](context.Background(), p, chat.CreateMessage{
		SenderID: uuid.New(),
		Text:     strings.Repeat(" ", 8),
	})

	// Then every broken rule is reported, in registration order
	details, failed := result.Errors()
	req.True(failed)
	codes := make([]errors.Code, 0, len(details))
	for _, d := range details {
		codes = append(codes, d.Code())
	}
	req.Equal([]errors.Code{errors.CodeRequiredField, errors.CodeInvalidValue, errors.CodeTooLong}, codes)
}

func TestRegister_CreateMessage_Empty_Text(t *testing.T) {
	req := require.New(t)
	p := newSealedPipeline(t, 100)

	// When an otherwise valid message carries no text
	result := pipeline.Send[domain.MessageID](context.Background(), p, chat.CreateMessage{ChatID: uuid.New(), SenderID: uuid.New(), Text: ""})

	// Then exactly one required field error is reported and nothing is stored
	details, failed := result.Errors()
	req.True(failed)
	req.Len(details, 1)
	req.Equal(errors.CodeRequiredField, details[0].Code())
	req.Equal("text", details[0].FieldName())
}

func TestRegister_Text_Length_Counts_Characters(t *testing.T) {
	p := newSealedPipeline(t, 3)

	result := pipeline.Send[domain.MessageID](context.Background(), p, chat.CreateMessage{ChatID: uuid.New(), SenderID: uuid.New(), Text: "ééééé"})

	details, failed := result.Errors()
	require.True(t, failed)
	require.Equal(t, errors.CodeTooLong, details[0].Code())
	require.Equal(t, 3, details[0].Metadata()["Max"])
}

func TestRegister_ListMessages_Limit_Bounds(t *testing.T) {
	p := newSealedPipeline(t, 100)

	result := pipeline.Send[domain.MessagePage](context.Background(), p, chat.ListMessages{ChatID: uuid.New(), UserID: uuid.New(), Limit: 500})

	details, failed := result.Errors()
	require.True(t, failed)
	require.Equal(t, errors.CodeInvalidValue, details[0].Code())
	require.Equal(t, "limit", details[0].FieldName())
}

func TestRegister_Login_Reaches_Handler_When_Valid(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	af := newAccountFixture(t)
	cf := newChatFixture(t)
	p := pipeline.New(log)
	req.NoError(Register(p, pipeline.NewValidate(), af.service, cf.service, 100))
	req.NoError(p.Seal())

	password := "Str0ng!Passw0rd"
	hash, err := auth.HashPassword(password)
	req.NoError(err)
	acc := domain.Account{ID: uuid.New(), Email: "alice@example.com", PasswordHash: hash}
	af.users.EXPECT().GetUserByEmail(acc.Email).Return(acc, nil)
	af.refresh.EXPECT().SaveGrant(gomock.Any()).Return(nil)
	af.dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any())

	result := pipeline.Send[domain.Session](context.Background(), p, account.Login{Email: acc.Email, Password: password})

	session, ok := result.Value()
	req.True(ok)
	req.Equal(acc.ID, session.UserID)
	req.WithinDuration(time.Now().Add(time.Minute), session.ExpiresAt, 5*time.Second)
}
