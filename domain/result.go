package domain

import (
	"chat-relay/errors"
	"encoding/json"
	"slices"
)

// Result is the outcome of every request: either a value or a non-empty
// list of ErrorDetail, never both.
type Result[T any] struct {
	ok    bool
	value T
	errs  []errors.ErrorDetail
}

// Ok wraps a successful value.
func Ok[T any](value T) Result[T] {
	return Result[T]{ok: true, value: value}
}

// Fail builds a failed Result. It panics when no detail is given.
func Fail[T any](details ...errors.ErrorDetail) Result[T] {
	if len(details) == 0 {
		panic("domain: Fail requires at least one ErrorDetail")
	}
	return Result[T]{errs: slices.Clone(details)}
}

func (r Result[T]) IsOk() bool { return r.ok }

// Value returns the value and true on success, the zero value and false otherwise.
func (r Result[T]) Value() (T, bool) {
	if !r.ok {
		var zero T
		return zero, false
	}
	return r.value, true
}

// Errors returns the failure details and true on failure.
// A zero Result, which was never built through Ok or Fail, reports an internal error.
func (r Result[T]) Errors() ([]errors.ErrorDetail, bool) {
	if r.ok {
		return nil, false
	}
	if len(r.errs) == 0 {
		return []errors.ErrorDetail{errors.Internal()}, true
	}
	return slices.Clone(r.errs), true
}

// Match calls exactly one of the two functions.
func (r Result[T]) Match(onOk func(T), onFail func([]errors.ErrorDetail)) {
	if r.ok {
		onOk(r.value)
		return
	}
	errs, _ := r.Errors()
	onFail(errs)
}

// Map transforms a successful value and forwards a failure as is.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	if !r.ok {
		errs, _ := r.Errors()
		return Result[U]{errs: errs}
	}
	return Ok(fn(r.value))
}

type wireResult[T any] struct {
	OK     bool                 `json:"ok"`
	Value  *T                   `json:"value,omitempty"`
	Errors []errors.ErrorDetail `json:"errors,omitempty"`
}

func (r Result[T]) MarshalJSON() ([]byte, error) {
	if r.ok {
		return json.Marshal(wireResult[T]{OK: true, Value: &r.value})
	}
	errs, _ := r.Errors()
	return json.Marshal(wireResult[T]{Errors: errs})
}
