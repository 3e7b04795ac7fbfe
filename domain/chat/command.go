package chat

import (
	"chat-relay/domain"

	"github.com/google/uuid"
)

type CreateChat struct {
	domain.Returns[uuid.UUID]
	OwnerID   uuid.UUID   `json:"ownerId" validate:"required"`
	Name      string      `json:"name" validate:"required,max=100"`
	MemberIDs []uuid.UUID `json:"memberIds" validate:"max=256"`
}

type AddMember struct {
	domain.Returns[domain.Unit]
	ChatID  uuid.UUID `json:"chatId" validate:"required"`
	ActorID uuid.UUID `json:"actorId" validate:"required"`
	UserID  uuid.UUID `json:"userId" validate:"required"`
}

// OpenChat subscribes one live connection to the chat's notification group.
type OpenChat struct {
	domain.Returns[domain.Unit]
	ChatID       uuid.UUID           `json:"chatId" validate:"required"`
	UserID       uuid.UUID           `json:"userId" validate:"required"`
	ConnectionID domain.ConnectionID `json:"connectionId" validate:"required"`
}

type CloseChat struct {
	domain.Returns[domain.Unit]
	ChatID       uuid.UUID           `json:"chatId" validate:"required"`
	ConnectionID domain.ConnectionID `json:"connectionId" validate:"required"`
}

type CreateMessage struct {
	domain.Returns[domain.MessageID]
	ChatID   uuid.UUID   `json:"chatId" validate:"required"`
	SenderID uuid.UUID   `json:"senderId" validate:"required"`
	Text     string      `json:"text" validate:"required"`
	Mentions []uuid.UUID `json:"mentions" validate:"max=50"`
}

type ListMessages struct {
	domain.Returns[domain.MessagePage]
	ChatID uuid.UUID `json:"chatId" validate:"required"`
	UserID uuid.UUID `json:"userId" validate:"required"`
	Cursor *string   `json:"cursor"`
	Limit  int       `json:"limit" validate:"omitempty,min=1,max=100"`
}
