package publisher

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError lists every field of a row that failed validation, keyed
// by column header or record field name.
type ValidationError struct {
	Fields map[string]string
}

// Error implements the error interface with a stable, sorted message.
func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	messages := make([]string, 0, len(keys))
	for _, k := range keys {
		messages = append(messages, e.Fields[k])
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

func newValidationError(err error) *ValidationError {
	out := &ValidationError{Fields: map[string]string{}}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		out.Fields["row"] = err.Error()
		return out
	}
	for _, fe := range errs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			out.Fields[field] = fmt.Sprintf("%s is required", field)
		case "http_url":
			out.Fields[field] = fmt.Sprintf("%s must be an absolute http(s) URL", field)
		case "numeric":
			out.Fields[field] = fmt.Sprintf("%s must be a number", field)
		case "number":
			out.Fields[field] = fmt.Sprintf("%s must be an integer", field)
		case "oneof":
			out.Fields[field] = fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
		case "gt":
			out.Fields[field] = fmt.Sprintf("%s must be greater than %s", field, fe.Param())
		default:
			out.Fields[field] = fmt.Sprintf("%s failed %s validation", field, fe.Tag())
		}
	}
	return out
}
