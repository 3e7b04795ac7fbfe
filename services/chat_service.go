package services

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/chat"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/repositories"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type ChatService struct {
	log        *slog.Logger
	users      repositories.IUserRepository
	chats      repositories.IChatRepository
	messages   repositories.IMessageRepository
	registry   contract.IRegistry
	dispatcher contract.IDispatcher
	now        func() time.Time
}

func NewChatService(
	log *slog.Logger,
	users repositories.IUserRepository,
	chats repositories.IChatRepository,
	messages repositories.IMessageRepository,
	registry contract.IRegistry,
	dispatcher contract.IDispatcher,
) *ChatService {
	return &ChatService{
		log:        log,
		users:      users,
		chats:      chats,
		messages:   messages,
		registry:   registry,
		dispatcher: dispatcher,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CreateChat stores a chat whose members are the owner plus every requested member.
// Each member is told through its own user group.
func (s *ChatService) CreateChat(ctx context.Context, cmd chat.CreateChat) (domain.Result[uuid.UUID], error) {
	members := lo.Uniq(append([]uuid.UUID{cmd.OwnerID}, cmd.MemberIDs...))
	missing, err := s.users.MissingUsers(members)
	if err != nil {
		return domain.Result[uuid.UUID]{}, err
	}
	if len(missing) > 0 {
		return domain.Fail[uuid.UUID](lo.Map(missing, func(id uuid.UUID, _ int) errors.ErrorDetail {
			field := "memberIds"
			if id == cmd.OwnerID {
				field = "ownerId"
			}
			return userNotFound(id).WithField(field).WithAttemptedValue(id.String())
		})...), nil
	}

	c := domain.Chat{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(cmd.Name),
		OwnerID:   cmd.OwnerID,
		Members:   members,
		CreatedAt: s.now(),
	}
	if err := s.chats.CreateChat(c); err != nil {
		return domain.Result[uuid.UUID]{}, err
	}

	for _, member := range c.Members {
		s.dispatcher.Dispatch(ctx, event.NewChatCreated(c, member))
	}
	s.log.Info("Chat created", "chat_id", c.ID, "members", len(c.Members))
	return domain.Ok(c.ID), nil
}

// AddMember lets an existing member bring another user into the chat.
func (s *ChatService) AddMember(ctx context.Context, cmd chat.AddMember) (domain.Result[domain.Unit], error) {
	c, detail, err := s.memberChat(cmd.ChatID, cmd.ActorID)
	if err != nil || detail != nil {
		return unitFailure(detail, err)
	}

	if _, err := s.users.GetUserByID(cmd.UserID); err != nil {
		if stderrors.Is(err, errors.ErrUserNotFound) {
			return domain.Fail[domain.Unit](userNotFound(cmd.UserID).WithField("userId").WithAttemptedValue(cmd.UserID.String())), nil
		}
		return domain.Result[domain.Unit]{}, err
	}

	updated, err := s.chats.AddMember(c.ID, cmd.UserID)
	if err != nil {
		if stderrors.Is(err, errors.ErrAlreadyChatMember) {
			return domain.Fail[domain.Unit](errors.Field(errors.CodeAlreadyChatMember, "userId",
				"user is already a member of this chat", cmd.UserID.String())), nil
		}
		if stderrors.Is(err, errors.ErrChatNotFound) {
			return domain.Fail[domain.Unit](chatNotFound(cmd.ChatID)), nil
		}
		return domain.Result[domain.Unit]{}, err
	}

	now := s.now()
	s.dispatcher.Dispatch(ctx, event.NewMemberAdded(updated.ID, cmd.UserID, cmd.ActorID, now))
	s.dispatcher.Dispatch(ctx, event.NewChatCreated(updated, cmd.UserID))
	return domain.Ok(domain.Unit{}), nil
}

// OpenChat subscribes the caller's connection to the chat group.
func (s *ChatService) OpenChat(_ context.Context, cmd chat.OpenChat) (domain.Result[domain.Unit], error) {
	c, detail, err := s.memberChat(cmd.ChatID, cmd.UserID)
	if err != nil || detail != nil {
		return unitFailure(detail, err)
	}

	conn, ok := s.registry.Lookup(cmd.ConnectionID)
	if !ok || conn.UserID != cmd.UserID {
		return domain.Fail[domain.Unit](connectionNotFound(cmd.ConnectionID)), nil
	}
	if err := s.registry.Join(cmd.ConnectionID, c.Group()); err != nil {
		if stderrors.Is(err, errors.ErrConnectionNotFound) {
			return domain.Fail[domain.Unit](connectionNotFound(cmd.ConnectionID)), nil
		}
		return domain.Result[domain.Unit]{}, err
	}
	return domain.Ok(domain.Unit{}), nil
}

// CloseChat is idempotent: leaving a chat that was never opened succeeds.
func (s *ChatService) CloseChat(_ context.Context, cmd chat.CloseChat) (domain.Result[domain.Unit], error) {
	if err := s.registry.Leave(cmd.ConnectionID, domain.ChatGroup(cmd.ChatID)); err != nil {
		if stderrors.Is(err, errors.ErrConnectionNotFound) {
			return domain.Fail[domain.Unit](connectionNotFound(cmd.ConnectionID)), nil
		}
		return domain.Result[domain.Unit]{}, err
	}
	return domain.Ok(domain.Unit{}), nil
}

// CreateMessage stores the message then notifies the chat group and every mentioned member.
func (s *ChatService) CreateMessage(ctx context.Context, cmd chat.CreateMessage) (domain.Result[domain.MessageID], error) {
	c, detail, err := s.memberChat(cmd.ChatID, cmd.SenderID)
	if err != nil {
		return domain.Result[domain.MessageID]{}, err
	}
	if detail != nil {
		return domain.Fail[domain.MessageID](*detail), nil
	}

	mentions := lo.Uniq(cmd.Mentions)
	strangers := lo.Filter(mentions, func(id uuid.UUID, _ int) bool { return !c.HasMember(id) })
	if len(strangers) > 0 {
		return domain.Fail[domain.MessageID](lo.Map(strangers, func(id uuid.UUID, _ int) errors.ErrorDetail {
			return errors.Field(errors.CodeNotChatMember, "mentions", "mentioned user is not a member of this chat", id.String())
		})...), nil
	}

	stored, err := s.messages.StoreMessage(domain.Message{
		ChatID:    c.ID,
		SenderID:  cmd.SenderID,
		Text:      cmd.Text,
		Mentions:  mentions,
		CreatedAt: s.now(),
	})
	if err != nil {
		return domain.Result[domain.MessageID]{}, err
	}

	s.dispatcher.Dispatch(ctx, event.NewMessageSent(stored))
	for _, mentioned := range stored.Mentions {
		if mentioned == stored.SenderID {
			continue
		}
		s.dispatcher.Dispatch(ctx, event.NewUserMentioned(stored, mentioned))
	}
	return domain.Ok(stored.ID), nil
}

func (s *ChatService) ListMessages(_ context.Context, cmd chat.ListMessages) (domain.Result[domain.MessagePage], error) {
	_, detail, err := s.memberChat(cmd.ChatID, cmd.UserID)
	if err != nil {
		return domain.Result[domain.MessagePage]{}, err
	}
	if detail != nil {
		return domain.Fail[domain.MessagePage](*detail), nil
	}

	messages, next, err := s.messages.GetMessages(cmd.ChatID, cmd.Cursor, cmd.Limit)
	if err != nil {
		if stderrors.Is(err, errors.ErrInvalidCursor) {
			return domain.Fail[domain.MessagePage](errors.Field(errors.CodeInvalidFormat, "cursor",
				"cursor is not a valid pagination cursor", lo.FromPtr(cmd.Cursor))), nil
		}
		return domain.Result[domain.MessagePage]{}, err
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return domain.Ok(domain.MessagePage{Messages: messages, NextCursor: next}), nil
}

// memberChat loads a chat and checks that userID belongs to it.
// A business failure is returned as a detail, anything else as an error.
func (s *ChatService) memberChat(chatID, userID uuid.UUID) (domain.Chat, *errors.ErrorDetail, error) {
	c, err := s.chats.GetChat(chatID)
	if err != nil {
		if stderrors.Is(err, errors.ErrChatNotFound) {
			return domain.Chat{}, lo.ToPtr(chatNotFound(chatID)), nil
		}
		return domain.Chat{}, nil, fmt.Errorf("loading chat %s: %w", chatID, err)
	}
	if !c.HasMember(userID) {
		return domain.Chat{}, lo.ToPtr(errors.New(errors.CodeNotChatMember, "user is not a member of this chat").
			WithMetadata("ChatId", chatID.String()).
			WithMetadata("UserId", userID.String())), nil
	}
	return c, nil, nil
}

func unitFailure(detail *errors.ErrorDetail, err error) (domain.Result[domain.Unit], error) {
	if err != nil {
		return domain.Result[domain.Unit]{}, err
	}
	return domain.Fail[domain.Unit](*detail), nil
}

func chatNotFound(chatID uuid.UUID) errors.ErrorDetail {
	return errors.New(errors.CodeChatNotFound, "chat not found").
		WithField("chatId").
		WithAttemptedValue(chatID.String())
}

func userNotFound(userID uuid.UUID) errors.ErrorDetail {
	return errors.New(errors.CodeUserNotFound, "user not found").WithMetadata("UserId", userID.String())
}

func connectionNotFound(connID domain.ConnectionID) errors.ErrorDetail {
	return errors.Field(errors.CodeConnectionNotFound, "connectionId", "connection is not open", string(connID))
}
