package event

import (
	"chat-relay/domain"
	"context"
	"log/slog"
)

// Publisher pushes a named payload to every live member of a group.
type Publisher interface {
	Publish(group domain.GroupID, name string, payload any)
}

// GroupNotificationHandler forwards targeted events to the connections of their group.
type GroupNotificationHandler struct {
	log       *slog.Logger
	publisher Publisher
}

func NewGroupNotificationHandler(log *slog.Logger, publisher Publisher) *GroupNotificationHandler {
	return &GroupNotificationHandler{log: log, publisher: publisher}
}

func (h *GroupNotificationHandler) Handle(ctx context.Context, evt Event) error {
	if !evt.HasTarget() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	h.publisher.Publish(evt.TargetGroup, string(evt.Type), evt.Payload)
	h.log.Debug("Event published", "event", evt.Type, "group", evt.TargetGroup)
	return nil
}
