package account

import (
	"chat-relay/domain"

	"github.com/google/uuid"
)

type RegisterAccount struct {
	domain.Returns[uuid.UUID]
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"displayName" validate:"required,max=64"`
	Password    string `json:"password" validate:"required,min=12,max=72,complexpassword"`
}

type Login struct {
	domain.Returns[domain.Session]
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshSession struct {
	domain.Returns[domain.Session]
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// Logout ends the session of UserID. RefreshToken is optional and, when
// present, must have been issued to UserID.
type Logout struct {
	domain.Returns[domain.Unit]
	UserID       uuid.UUID `json:"userId" validate:"required"`
	RefreshToken string    `json:"refreshToken"`
}
