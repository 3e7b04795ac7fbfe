package event

import (
	"chat-relay/domain"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	MessageSentType   Type = "MessageSent"
	UserMentionedType Type = "UserMentioned"
	ChatCreatedType   Type = "ChatCreated"
	MemberAddedType   Type = "MemberAdded"
	UserLoggedInType  Type = "UserLoggedIn"
	UserLoggedOutType Type = "UserLoggedOut"
)

// Event is emitted by a handler right after a successful state change.
// It is dispatched once and never persisted.
type Event struct {
	Type        Type
	Payload     any
	TargetGroup domain.GroupID // empty when the event has no fan-out target
	At          time.Time
}

func (e Event) HasTarget() bool { return e.TargetGroup != "" }

type MessageSent struct {
	ChatID    uuid.UUID        `json:"chatId"`
	MessageID domain.MessageID `json:"messageId"`
	SenderID  uuid.UUID        `json:"senderId"`
	Text      string           `json:"text"`
	CreatedAt time.Time        `json:"createdAt"`
}

type UserMentioned struct {
	ChatID    uuid.UUID        `json:"chatId"`
	MessageID domain.MessageID `json:"messageId"`
	UserID    uuid.UUID        `json:"userId"`
	ByUserID  uuid.UUID        `json:"byUserId"`
}

type ChatCreated struct {
	ChatID  uuid.UUID `json:"chatId"`
	Name    string    `json:"name"`
	OwnerID uuid.UUID `json:"ownerId"`
}

type MemberAdded struct {
	ChatID  uuid.UUID `json:"chatId"`
	UserID  uuid.UUID `json:"userId"`
	AddedBy uuid.UUID `json:"addedBy"`
}

type UserLoggedIn struct {
	UserID uuid.UUID `json:"userId"`
}

type UserLoggedOut struct {
	UserID uuid.UUID `json:"userId"`
}

func NewMessageSent(m domain.Message) Event {
	return Event{
		Type: MessageSentType,
		Payload: MessageSent{
			ChatID:    m.ChatID,
			MessageID: m.ID,
			SenderID:  m.SenderID,
			Text:      m.Text,
			CreatedAt: m.CreatedAt,
		},
		TargetGroup: domain.ChatGroup(m.ChatID),
		At:          m.CreatedAt,
	}
}

func NewUserMentioned(m domain.Message, userID uuid.UUID) Event {
	return Event{
		Type: UserMentionedType,
		Payload: UserMentioned{
			ChatID:    m.ChatID,
			MessageID: m.ID,
			UserID:    userID,
			ByUserID:  m.SenderID,
		},
		TargetGroup: domain.UserGroup(userID),
		At:          m.CreatedAt,
	}
}

// NewChatCreated targets one member's personal group; callers emit one per member.
func NewChatCreated(c domain.Chat, memberID uuid.UUID) Event {
	return Event{
		Type:        ChatCreatedType,
		Payload:     ChatCreated{ChatID: c.ID, Name: c.Name, OwnerID: c.OwnerID},
		TargetGroup: domain.UserGroup(memberID),
		At:          c.CreatedAt,
	}
}

func NewMemberAdded(chatID, userID, addedBy uuid.UUID, at time.Time) Event {
	return Event{
		Type:        MemberAddedType,
		Payload:     MemberAdded{ChatID: chatID, UserID: userID, AddedBy: addedBy},
		TargetGroup: domain.ChatGroup(chatID),
		At:          at,
	}
}

func NewUserLoggedIn(userID uuid.UUID, at time.Time) Event {
	return Event{Type: UserLoggedInType, Payload: UserLoggedIn{UserID: userID}, At: at}
}

// NewUserLoggedOut is pushed to the user's own group so other open sessions can react.
func NewUserLoggedOut(userID uuid.UUID, at time.Time) Event {
	return Event{
		Type:        UserLoggedOutType,
		Payload:     UserLoggedOut{UserID: userID},
		TargetGroup: domain.UserGroup(userID),
		At:          at,
	}
}
