package domain

import (
	"time"

	"github.com/google/uuid"
)

type Account struct {
	ID           uuid.UUID
	Email        string
	DisplayName  string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
}

// Session is handed back on login and refresh.
type Session struct {
	UserID       uuid.UUID `json:"userId"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// RefreshGrant is the server-side record behind a refresh token.
type RefreshGrant struct {
	Token     string
	UserID    uuid.UUID
	ExpiresAt time.Time
}

func (g RefreshGrant) Expired(now time.Time) bool {
	return !now.Before(g.ExpiresAt)
}
