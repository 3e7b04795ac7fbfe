package event

import (
	"chat-relay/errors"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PresenceHandler keeps track of who is logged in and when they were last seen.
type PresenceHandler struct {
	log      *slog.Logger
	mu       sync.RWMutex
	sessions map[uuid.UUID]int
	lastSeen map[uuid.UUID]time.Time
}

func NewPresenceHandler(log *slog.Logger) *PresenceHandler {
	return &PresenceHandler{
		log:      log,
		sessions: make(map[uuid.UUID]int),
		lastSeen: make(map[uuid.UUID]time.Time),
	}
}

func (h *PresenceHandler) Handle(_ context.Context, evt Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch evt.Type {
	case UserLoggedInType:
		payload, ok := evt.Payload.(UserLoggedIn)
		if !ok {
			return errors.ErrInvalidPayload
		}
		h.sessions[payload.UserID]++
		h.lastSeen[payload.UserID] = evt.At
	case UserLoggedOutType:
		payload, ok := evt.Payload.(UserLoggedOut)
		if !ok {
			return errors.ErrInvalidPayload
		}
		if h.sessions[payload.UserID] <= 1 {
			delete(h.sessions, payload.UserID)
		} else {
			h.sessions[payload.UserID]--
		}
		h.lastSeen[payload.UserID] = evt.At
		h.log.Debug("User logged out", "user_id", payload.UserID)
	}
	return nil
}

func (h *PresenceHandler) Online(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sessions[userID] > 0
}

func (h *PresenceHandler) LastSeen(userID uuid.UUID) (time.Time, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	at, ok := h.lastSeen[userID]
	return at, ok
}
