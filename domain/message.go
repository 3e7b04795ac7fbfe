// Package domain contains core concepts of the chat system.
// This file defines Message entities. Messages are immutable once stored.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// MessageID is allocated by storage, monotonically increasing per deployment.
type MessageID int64

// Message represents an immutable chat message.
type Message struct {
	ID        MessageID   `json:"id"`
	ChatID    uuid.UUID   `json:"chatId"`
	SenderID  uuid.UUID   `json:"senderId"`
	Text      string      `json:"text"`
	Mentions  []uuid.UUID `json:"mentions,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

// MessagePage is one slice of a chat history, newest first.
type MessagePage struct {
	Messages   []Message `json:"messages"`
	NextCursor *string   `json:"nextCursor,omitempty"`
}
