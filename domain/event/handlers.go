package event

import "context"

// Handler reacts to one dispatched event. Every handler registered for a type
// runs independently; a returned error is logged by the dispatcher and goes no further.
type Handler interface {
	Handle(ctx context.Context, evt Event) error
}

type HandlerFunc func(ctx context.Context, evt Event) error

func (f HandlerFunc) Handle(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}
