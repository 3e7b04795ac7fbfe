// Package pipeline routes every command and query to its single handler.
//
// A request first goes through the configured behaviors (logging, metrics,
// timeouts), then through every validator registered for its type. Validation
// errors are aggregated into one failed Result and the handler is never called.
// Otherwise the handler runs and its Result is returned verbatim. Handler
// errors and panics never escape: they become a single INTERNAL_ERROR detail.
//
// Registration happens at startup only. Seal freezes the registries; Send
// refuses to run before that.
package pipeline

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
)

// HandlerFunc performs the business logic of one request type.
// A non-nil error is an unexpected fault, except when it wraps an
// errors.ErrorDetail, which is reported to the caller as a business failure.
type HandlerFunc[Req any, Resp any] func(ctx context.Context, req Req) (domain.Result[Resp], error)

// ValidatorFunc checks one aspect of a request. It must not mutate the
// request and must be safe for concurrent use.
type ValidatorFunc[Req any] func(req Req) []errors.ErrorDetail

type erasedValidator func(req any) []errors.ErrorDetail

type entry struct {
	name       string
	invoke     Next
	fail       func([]errors.ErrorDetail) Outcome
	validators []erasedValidator
	chain      Next
}

type Pipeline struct {
	log                   *slog.Logger
	mu                    sync.RWMutex
	sealed                atomic.Bool
	entries               map[reflect.Type]*entry
	validators            map[reflect.Type][]erasedValidator
	behaviors             []Behavior
	validationConcurrency int
}

type Option func(*Pipeline)

// WithBehaviors appends behaviors, outermost first.
func WithBehaviors(behaviors ...Behavior) Option {
	return func(p *Pipeline) {
		p.behaviors = append(p.behaviors, behaviors...)
	}
}

// WithValidationConcurrency bounds the number of validators of one request
// running at the same time. Zero or less means no bound.
func WithValidationConcurrency(n int) Option {
	return func(p *Pipeline) {
		p.validationConcurrency = n
	}
}

func New(log *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		log:        log,
		entries:    make(map[reflect.Type]*entry),
		validators: make(map[reflect.Type][]erasedValidator),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Register binds the single handler of a request type.
// It fails on a duplicate registration or after Seal.
func Register[Req domain.Request[Resp], Resp any](p *Pipeline, handler HandlerFunc[Req, Resp]) error {
	key := reflect.TypeFor[Req]()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sealed.Load() {
		return fmt.Errorf("%w: cannot register %s", errors.ErrPipelineSealed, key)
	}
	if _, exists := p.entries[key]; exists {
		return fmt.Errorf("%w: %s", errors.ErrDuplicateHandler, key)
	}

	name := requestName(key)
	p.entries[key] = &entry{
		name: name,
		fail: func(details []errors.ErrorDetail) Outcome {
			return domain.Fail[Resp](details...)
		},
		invoke: func(ctx context.Context, call Call) Outcome {
			result, err := handler(ctx, call.Request.(Req))
			if err == nil {
				return result
			}
			var detail errors.ErrorDetail
			if stderrors.As(err, &detail) {
				return domain.Fail[Resp](detail)
			}
			p.log.ErrorContext(ctx, "Handler failed", "request", name, "error", err)
			return domain.Fail[Resp](errors.Internal())
		},
	}
	return nil
}

// RegisterValidator adds a validator for a request type. Several validators
// may be registered for the same type; all of them run on every request.
func RegisterValidator[Req any](p *Pipeline, validator ValidatorFunc[Req]) error {
	key := reflect.TypeFor[Req]()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sealed.Load() {
		return fmt.Errorf("%w: cannot add validator for %s", errors.ErrPipelineSealed, key)
	}
	p.validators[key] = append(p.validators[key], func(req any) []errors.ErrorDetail {
		return validator(req.(Req))
	})
	return nil
}

// Seal checks the registries and builds every behavior chain. A validator
// registered for a type without handler is a configuration error.
// Seal is idempotent.
func (p *Pipeline) Seal() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sealed.Load() {
		return nil
	}

	var errs []error
	for key := range p.validators {
		if _, ok := p.entries[key]; !ok {
			errs = append(errs, fmt.Errorf("%w: %s has validators", errors.ErrMissingHandler, key))
		}
	}
	if len(errs) > 0 {
		return stderrors.Join(errs...)
	}

	for key, e := range p.entries {
		e.validators = p.validators[key]
		e.chain = p.compose(e)
	}
	p.sealed.Store(true)
	p.log.Info(fmt.Sprintf("Pipeline sealed with %d handlers", len(p.entries)))
	return nil
}

// Require fails when one of the given request values has no registered handler.
// Transports call it at construction time for every request they emit.
func (p *Pipeline) Require(requests ...any) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var errs []error
	for _, r := range requests {
		key := reflect.TypeOf(r)
		if _, ok := p.entries[key]; !ok {
			errs = append(errs, fmt.Errorf("%w: %v", errors.ErrMissingHandler, key))
		}
	}
	return stderrors.Join(errs...)
}

// Send runs a request through the pipeline. It always returns a Result.
func Send[Resp any](ctx context.Context, p *Pipeline, req domain.Request[Resp]) (result domain.Result[Resp]) {
	key := reflect.TypeOf(req)
	e, ok := p.lookup(key)
	if !ok {
		p.log.ErrorContext(ctx, "No handler registered", "request", fmt.Sprint(key), "sealed", p.sealed.Load())
		return domain.Fail[Resp](errors.New(errors.CodeHandlerNotRegistered, "request type is not supported"))
	}

	defer func() {
		if r := recover(); r != nil {
			p.log.ErrorContext(ctx, "Pipeline panic", "request", e.name, "panic", r)
			result = domain.Fail[Resp](errors.Internal())
		}
	}()

	outcome := e.chain(ctx, Call{Name: e.name, Request: req, fail: e.fail})
	typed, ok := outcome.(domain.Result[Resp])
	if !ok {
		p.log.ErrorContext(ctx, "Unexpected outcome type", "request", e.name, "type", fmt.Sprintf("%T", outcome))
		return domain.Fail[Resp](errors.Internal())
	}
	return typed
}

func (p *Pipeline) lookup(key reflect.Type) (*entry, bool) {
	if key == nil || !p.sealed.Load() {
		return nil, false
	}
	e, ok := p.entries[key]
	return e, ok
}

// compose wraps the handler, innermost first: cancellation check and handler,
// validation, panic recovery, then the configured behaviors.
func (p *Pipeline) compose(e *entry) Next {
	next := p.invoking(e)
	next = p.validating(e, next)
	next = chain(recovery(p.log), next)
	for i := len(p.behaviors) - 1; i >= 0; i-- {
		next = chain(p.behaviors[i], next)
	}
	return next
}

func (p *Pipeline) invoking(e *entry) Next {
	return func(ctx context.Context, call Call) Outcome {
		if err := ctx.Err(); err != nil {
			return call.Fail(cancelled(err))
		}
		return e.invoke(ctx, call)
	}
}

func chain(b Behavior, next Next) Next {
	return func(ctx context.Context, call Call) Outcome {
		return b(ctx, call, next)
	}
}

func requestName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

func cancelled(err error) errors.ErrorDetail {
	return errors.New(errors.CodeRequestCancelled, "request was cancelled before processing").
		WithMetadata("cause", err.Error())
}
