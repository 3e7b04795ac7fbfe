package event

import (
	"chat-relay/errors"
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// CounterHandler counts dispatched events per type.
// It is registered for every event type and rejects mistyped payloads.
type CounterHandler struct {
	log     *slog.Logger
	counter *prometheus.CounterVec
}

func NewCounterHandler(log *slog.Logger, counter *prometheus.CounterVec) *CounterHandler {
	return &CounterHandler{log: log, counter: counter}
}

func (h *CounterHandler) Handle(_ context.Context, evt Event) error {
	if !payloadMatches(evt) {
		h.log.Error(errors.ErrInvalidPayload.Error(), "event", evt.Type)
		return errors.ErrInvalidPayload
	}
	h.counter.WithLabelValues(string(evt.Type)).Inc()
	return nil
}

func payloadMatches(evt Event) bool {
	var ok bool
	switch evt.Type {
	case MessageSentType:
		_, ok = evt.Payload.(MessageSent)
	case UserMentionedType:
		_, ok = evt.Payload.(UserMentioned)
	case ChatCreatedType:
		_, ok = evt.Payload.(ChatCreated)
	case MemberAddedType:
		_, ok = evt.Payload.(MemberAdded)
	case UserLoggedInType:
		_, ok = evt.Payload.(UserLoggedIn)
	case UserLoggedOutType:
		_, ok = evt.Payload.(UserLoggedOut)
	}
	return ok
}

// AllTypes lists the closed set of event types.
func AllTypes() []Type {
	return []Type{
		MessageSentType,
		UserMentionedType,
		ChatCreatedType,
		MemberAddedType,
		UserLoggedInType,
		UserLoggedOutType,
	}
}
