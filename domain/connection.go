package domain

import (
	"github.com/google/uuid"
)

// ConnectionID identifies one live client connection.
type ConnectionID string

// GroupID names an ephemeral set of connections interested in one resource.
type GroupID string

func ChatGroup(chatID uuid.UUID) GroupID {
	return GroupID("chat:" + chatID.String())
}

func UserGroup(userID uuid.UUID) GroupID {
	return GroupID("user:" + userID.String())
}

// Connection is a point-in-time view of a registered connection.
type Connection struct {
	ID     ConnectionID
	UserID uuid.UUID
	Groups []GroupID
}
