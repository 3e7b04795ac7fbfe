package runtime

import (
	"chat-relay/domain/event"
	"chat-relay/observability"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const defaultEventHandlerTimeout = 2 * time.Second

// Dispatcher hands every domain event to the handlers registered for its type.
//
// Each handler runs in its own goroutine with its own timeout and is detached
// from the cancellation of the request that emitted the event. A handler error,
// panic or timeout is logged and counted, never returned: the request that
// produced the event has already succeeded.
type Dispatcher struct {
	log      *slog.Logger
	timeout  time.Duration
	mu       sync.RWMutex
	handlers map[event.Type][]event.Handler
}

func NewDispatcher(log *slog.Logger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultEventHandlerTimeout
	}
	return &Dispatcher{
		log:      log,
		timeout:  timeout,
		handlers: make(map[event.Type][]event.Handler),
	}
}

func (d *Dispatcher) Register(t event.Type, handler event.Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[t] = append(d.handlers[t], handler)
}

// Dispatch returns once every handler finished or the handler timeout elapsed,
// whichever comes first.
func (d *Dispatcher) Dispatch(ctx context.Context, evt event.Event) {
	d.mu.RLock()
	handlers := d.handlers[evt.Type]
	d.mu.RUnlock()

	observability.EventsDispatchedTotal.WithLabelValues(string(evt.Type)).Inc()
	if len(handlers) == 0 {
		d.log.Debug("No handler for event", "event", evt.Type)
		return
	}

	detached := context.WithoutCancel(ctx)
	var wg sync.WaitGroup
	for _, h := range handlers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.run(detached, h, evt)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(d.timeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		d.log.Warn("Event handlers still running after timeout", "event", evt.Type, "timeout", d.timeout)
	}
}

func (d *Dispatcher) run(ctx context.Context, h event.Handler, evt event.Event) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			d.fail(evt, h, "panic", fmt.Errorf("%v", r))
		}
	}()

	err := h.Handle(ctx, evt)
	switch {
	case err == nil:
	case stderrors.Is(err, context.DeadlineExceeded):
		d.fail(evt, h, "timeout", err)
	default:
		d.fail(evt, h, "error", err)
	}
}

func (d *Dispatcher) fail(evt event.Event, h event.Handler, reason string, err error) {
	d.log.Error("Event handler failed",
		"event", evt.Type,
		"handler", fmt.Sprintf("%T", h),
		"reason", reason,
		"error", err,
	)
	observability.EventHandlerFailuresTotal.WithLabelValues(string(evt.Type), reason).Inc()
}
