package errors

import (
	"encoding/json"
	"fmt"
	"maps"
)

// ErrorDetail is a single structured failure reported to the caller.
// It is immutable: every With* method returns a modified copy.
type ErrorDetail struct {
	code           Code
	message        string
	field          string
	attemptedValue any
	metadata       map[string]any
}

// New builds an ErrorDetail. It panics when code is not part of the catalogue.
func New(code Code, message string) ErrorDetail {
	if !code.Valid() {
		panic(fmt.Sprintf("errors: unknown error code %q", code))
	}
	return ErrorDetail{code: code, message: message}
}

// Field builds a validation ErrorDetail for a request field.
func Field(code Code, field, message string, attempted any) ErrorDetail {
	return New(code, message).WithField(field).WithAttemptedValue(attempted)
}

// Required reports a missing mandatory field.
func Required(field string) ErrorDetail {
	return New(CodeRequiredField, fmt.Sprintf("%s is required", field)).WithField(field)
}

// Internal is the only detail handed to clients for unexpected faults.
func Internal() ErrorDetail {
	return New(CodeInternal, "an internal error occurred")
}

func (e ErrorDetail) Code() Code          { return e.code }
func (e ErrorDetail) Message() string     { return e.message }
func (e ErrorDetail) FieldName() string   { return e.field }
func (e ErrorDetail) AttemptedValue() any { return e.attemptedValue }

// Metadata returns a copy of the extension map.
func (e ErrorDetail) Metadata() map[string]any {
	return maps.Clone(e.metadata)
}

func (e ErrorDetail) WithField(field string) ErrorDetail {
	e.field = field
	return e
}

func (e ErrorDetail) WithAttemptedValue(v any) ErrorDetail {
	e.attemptedValue = v
	return e
}

func (e ErrorDetail) WithMetadata(key string, value any) ErrorDetail {
	md := make(map[string]any, len(e.metadata)+1)
	maps.Copy(md, e.metadata)
	md[key] = value
	e.metadata = md
	return e
}

// Error lets services return an ErrorDetail through plain error values.
func (e ErrorDetail) Error() string {
	if e.field != "" {
		return fmt.Sprintf("[%s] %s: %s", e.code, e.field, e.message)
	}
	return fmt.Sprintf("[%s] %s", e.code, e.message)
}

type wireDetail struct {
	Code           Code   `json:"code"`
	Message        string `json:"message"`
	Field          string `json:"field,omitempty"`
	AttemptedValue any    `json:"attemptedValue,omitempty"`
}

func (e ErrorDetail) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireDetail{
		Code:           e.code,
		Message:        e.message,
		Field:          e.field,
		AttemptedValue: e.attemptedValue,
	})
}

func (e *ErrorDetail) UnmarshalJSON(data []byte) error {
	var w wireDetail
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if !w.Code.Valid() {
		return fmt.Errorf("unknown error code %q", w.Code)
	}
	*e = ErrorDetail{code: w.Code, message: w.Message, field: w.Field, attemptedValue: w.AttemptedValue}
	return nil
}
