package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/observability"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

const (
	defaultDeliveryTimeout         = 5 * time.Second
	defaultMaxConcurrentDeliveries = 1024
)

// Notifier fans a named event out to every connection of a group.
//
// Publish never blocks the caller: the group is snapshotted and each member is
// served by its own delivery with its own timeout. Delivery is best effort.
// No retry, no ordering across connections, and a failure is only logged.
type Notifier struct {
	log       *slog.Logger
	registry  contract.IRegistry
	transport contract.Transport
	timeout   time.Duration
	sem       *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

type NotifierOption func(*Notifier)

func WithDeliveryTimeout(d time.Duration) NotifierOption {
	return func(n *Notifier) {
		if d > 0 {
			n.timeout = d
		}
	}
}

// WithMaxConcurrentDeliveries bounds the number of Transport.Send calls in flight.
func WithMaxConcurrentDeliveries(limit int) NotifierOption {
	return func(n *Notifier) {
		if limit > 0 {
			n.sem = semaphore.NewWeighted(int64(limit))
		}
	}
}

func NewNotifier(log *slog.Logger, registry contract.IRegistry, transport contract.Transport, opts ...NotifierOption) *Notifier {
	ctx, cancel := context.WithCancel(context.Background())
	n := &Notifier{
		log:       log,
		registry:  registry,
		transport: transport,
		timeout:   defaultDeliveryTimeout,
		sem:       semaphore.NewWeighted(defaultMaxConcurrentDeliveries),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Publish returns as soon as every delivery is scheduled.
// Members joining the group afterwards do not receive the event.
func (n *Notifier) Publish(group domain.GroupID, eventName string, payload any) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		n.log.Debug("Notifier closed, event dropped", "event", eventName, "group", group)
		observability.IncDelivery(eventName, observability.OutcomeDropped)
		return
	}

	members := n.registry.MembersOf(group)
	if len(members) == 0 {
		return
	}

	n.wg.Add(len(members))
	for _, connID := range members {
		go n.deliver(connID, eventName, payload)
	}
}

func (n *Notifier) deliver(connID domain.ConnectionID, eventName string, payload any) {
	defer n.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			n.log.Error("Delivery panic recovered", "connection_id", connID, "event", eventName, "panic", fmt.Sprint(r))
			observability.IncDelivery(eventName, observability.OutcomeFailed)
		}
	}()

	ctx, cancel := context.WithTimeout(n.ctx, n.timeout)
	defer cancel()

	if err := n.sem.Acquire(ctx, 1); err != nil {
		n.log.Warn("Delivery not scheduled in time", "connection_id", connID, "event", eventName, "error", err)
		observability.IncDelivery(eventName, observability.OutcomeDropped)
		return
	}
	defer n.sem.Release(1)

	err := n.transport.Send(ctx, connID, eventName, payload)
	switch {
	case err == nil:
		observability.IncDelivery(eventName, observability.OutcomeDelivered)
	case stderrors.Is(err, errors.ErrConnectionGone):
		n.log.Debug("Connection gone before delivery", "connection_id", connID, "event", eventName)
		observability.IncDelivery(eventName, observability.OutcomeGone)
	case stderrors.Is(err, context.DeadlineExceeded):
		n.log.Warn("Delivery timed out", "connection_id", connID, "event", eventName, "timeout", n.timeout)
		observability.IncDelivery(eventName, observability.OutcomeTimeout)
	default:
		n.log.Warn("Delivery failed", "connection_id", connID, "event", eventName, "error", err)
		observability.IncDelivery(eventName, observability.OutcomeFailed)
	}
}

// Close stops accepting events and waits for in-flight deliveries.
// When ctx expires first, pending deliveries are cancelled.
func (n *Notifier) Close(ctx context.Context) error {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		n.cancel()
		return nil
	case <-ctx.Done():
		n.cancel()
		<-done
		return ctx.Err()
	}
}
