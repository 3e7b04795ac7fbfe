package pipeline

import (
	"chat-relay/errors"
	"chat-relay/observability"
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"
)

// Outcome is the type-erased view behaviors have of a domain.Result.
type Outcome interface {
	IsOk() bool
	Errors() ([]errors.ErrorDetail, bool)
}

// Call is one request travelling through the behaviors.
type Call struct {
	Name    string
	Request any
	fail    func([]errors.ErrorDetail) Outcome
}

// Fail builds a failed outcome of the request's response type.
func (c Call) Fail(details ...errors.ErrorDetail) Outcome {
	return c.fail(details)
}

type Next func(ctx context.Context, call Call) Outcome

// Behavior wraps the rest of the pipeline. It either calls next or
// short-circuits with call.Fail.
type Behavior func(ctx context.Context, call Call, next Next) Outcome

// Logging logs every completed request with its duration and outcome.
func Logging(log *slog.Logger) Behavior {
	return func(ctx context.Context, call Call, next Next) Outcome {
		start := time.Now()
		outcome := next(ctx, call)
		elapsed := time.Since(start)

		if outcome.IsOk() {
			log.DebugContext(ctx, "Request completed", "request", call.Name, "duration", elapsed)
			return outcome
		}
		details, _ := outcome.Errors()
		log.InfoContext(ctx, "Request failed",
			"request", call.Name,
			"duration", elapsed,
			"codes", codes(details),
		)
		return outcome
	}
}

// Metrics records request counts and durations in prometheus.
func Metrics() Behavior {
	return func(ctx context.Context, call Call, next Next) Outcome {
		start := time.Now()
		outcome := next(ctx, call)
		observability.RequestDuration.WithLabelValues(call.Name).Observe(time.Since(start).Seconds())
		observability.RequestsTotal.WithLabelValues(call.Name, classify(outcome)).Inc()
		return outcome
	}
}

// Timeout bounds the time a request may spend in the rest of the pipeline,
// handler included. Handlers are expected to honour ctx.
func Timeout(d time.Duration) Behavior {
	return func(ctx context.Context, call Call, next Next) Outcome {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return next(ctx, call)
	}
}

func recovery(log *slog.Logger) Behavior {
	return func(ctx context.Context, call Call, next Next) (outcome Outcome) {
		defer func() {
			if r := recover(); r != nil {
				log.ErrorContext(ctx, "Handler panic recovered",
					"request", call.Name,
					"panic", fmt.Sprint(r),
					"stack", string(debug.Stack()),
				)
				outcome = call.Fail(errors.Internal())
			}
		}()
		return next(ctx, call)
	}
}

func classify(outcome Outcome) string {
	if outcome.IsOk() {
		return observability.OutcomeOK
	}
	details, _ := outcome.Errors()
	validation := true
	for _, d := range details {
		switch d.Code() {
		case errors.CodeInternal:
			return observability.OutcomeInternal
		case errors.CodeRequestCancelled:
			return observability.OutcomeCancelled
		}
		if d.FieldName() == "" {
			validation = false
		}
	}
	if validation {
		return observability.OutcomeValidationFailed
	}
	return observability.OutcomeFailed
}

func codes(details []errors.ErrorDetail) []string {
	res := make([]string, 0, len(details))
	for _, d := range details {
		res = append(res, string(d.Code()))
	}
	return res
}
