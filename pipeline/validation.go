package pipeline

import (
	"chat-relay/errors"
	"context"
	stderrors "errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// validating runs every validator of the request concurrently and
// short-circuits with the aggregated details when any of them fails.
func (p *Pipeline) validating(e *entry, next Next) Next {
	if len(e.validators) == 0 {
		return next
	}
	return func(ctx context.Context, call Call) Outcome {
		details, err := p.runValidators(e.validators, call.Request)
		if err != nil {
			p.log.ErrorContext(ctx, "Validator failed", "request", call.Name, "error", err)
			return call.Fail(errors.Internal())
		}
		if len(details) > 0 {
			return call.Fail(details...)
		}
		return next(ctx, call)
	}
}

// runValidators keeps details in registration order whatever the scheduling.
func (p *Pipeline) runValidators(validators []erasedValidator, req any) ([]errors.ErrorDetail, error) {
	if len(validators) == 1 {
		return safeValidate(validators[0], req)
	}

	results := make([][]errors.ErrorDetail, len(validators))
	var g errgroup.Group
	if p.validationConcurrency > 0 {
		g.SetLimit(p.validationConcurrency)
	}
	for i, v := range validators {
		g.Go(func() error {
			details, err := safeValidate(v, req)
			results[i] = details
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return slices.Concat(results...), nil
}

func safeValidate(v erasedValidator, req any) (details []errors.ErrorDetail, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("validator panic: %v", r)
		}
	}()
	return v(req), nil
}

// NewValidate returns a validator reporting fields under their JSON name.
func NewValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)
	return v
}

func jsonName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "-" || name == "" {
		return field.Name
	}
	return name
}

type structConfig struct {
	codes    map[string]errors.Code
	redacted map[string]struct{}
}

type StructOption func(*structConfig)

// TagCode maps a custom validation tag to an error code.
func TagCode(tag string, code errors.Code) StructOption {
	return func(c *structConfig) {
		c.codes[tag] = code
	}
}

// Redact keeps the attempted value of the given fields out of the details.
func Redact(fields ...string) StructOption {
	return func(c *structConfig) {
		for _, f := range fields {
			c.redacted[f] = struct{}{}
		}
	}
}

// StructValidator checks the `validate` tags of a request struct and turns
// every failing field into an ErrorDetail.
func StructValidator[Req any](v *validator.Validate, opts ...StructOption) ValidatorFunc[Req] {
	cfg := structConfig{
		codes:    make(map[string]errors.Code),
		redacted: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(req Req) []errors.ErrorDetail {
		err := v.Struct(req)
		if err == nil {
			return nil
		}
		var fieldErrs validator.ValidationErrors
		if !stderrors.As(err, &fieldErrs) {
			return []errors.ErrorDetail{errors.New(errors.CodeInvalidValue, err.Error())}
		}
		return lo.Map(fieldErrs, func(fe validator.FieldError, _ int) errors.ErrorDetail {
			return cfg.detail(fe)
		})
	}
}

func (c structConfig) detail(fe validator.FieldError) errors.ErrorDetail {
	field := fe.Field()
	if fe.Tag() == "required" {
		return errors.Required(field)
	}

	var attempted any
	if _, hidden := c.redacted[field]; !hidden {
		attempted = fe.Value()
	}

	if code, ok := c.codes[fe.Tag()]; ok {
		return errors.Field(code, field, fmt.Sprintf("%s does not satisfy %s", field, fe.Tag()), attempted)
	}

	unit := "elements"
	if fe.Kind() == reflect.String {
		unit = "characters"
	}
	sized := fe.Kind() == reflect.String || fe.Kind() == reflect.Slice || fe.Kind() == reflect.Map
	switch fe.Tag() {
	case "email", "uuid", "uuid4", "url", "e164":
		return errors.Field(errors.CodeInvalidFormat, field, fmt.Sprintf("%s must be a valid %s", field, fe.Tag()), attempted)
	case "min", "gte":
		if sized {
			return errors.Field(errors.CodeTooShort, field, fmt.Sprintf("%s must contain at least %s %s", field, fe.Param(), unit), attempted)
		}
		return errors.Field(errors.CodeInvalidValue, field, fmt.Sprintf("%s must be at least %s", field, fe.Param()), attempted)
	case "max", "lte":
		if sized {
			return errors.Field(errors.CodeTooLong, field, fmt.Sprintf("%s must contain at most %s %s", field, fe.Param(), unit), attempted)
		}
		return errors.Field(errors.CodeInvalidValue, field, fmt.Sprintf("%s must be at most %s", field, fe.Param()), attempted)
	default:
		return errors.Field(errors.CodeInvalidValue, field, fmt.Sprintf("%s is invalid", field), attempted)
	}
}
