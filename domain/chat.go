// Package domain contains core concepts of the chat system.
// No runtime, network, or storage logic should be added here.
package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

type Chat struct {
	ID        uuid.UUID
	Name      string
	OwnerID   uuid.UUID
	Members   []uuid.UUID
	CreatedAt time.Time
}

func (c Chat) HasMember(userID uuid.UUID) bool {
	return slices.Contains(c.Members, userID)
}

// Group is the notification group of every connection that opened the chat.
func (c Chat) Group() GroupID {
	return ChatGroup(c.ID)
}
