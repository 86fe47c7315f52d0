package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation signals malformed caller input: blank query, bad tool arguments, unknown tool.
	ErrValidation = errors.New("validation failed")
	// ErrExternalService signals a failure of the search engine or a model provider.
	ErrExternalService = errors.New("external service error")
	// ErrRecursionLimit signals that the agent loop ran out of iterations.
	ErrRecursionLimit = errors.New("recursion limit reached")
	// ErrBudgetExceeded signals an exhausted provider token budget.
	ErrBudgetExceeded = errors.New("token budget exceeded")
)

// ExternalServiceError carries the failing dependency and, when known, its HTTP status.
type ExternalServiceError struct {
	Service string
	Status  int
	Detail  string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	msg := e.Service + ": " + ErrExternalService.Error()
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *ExternalServiceError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrExternalService}
	}
	return []error{ErrExternalService, e.Err}
}

// NewExternalServiceError wraps err as a failure of service.
func NewExternalServiceError(service string, err error) error {
	return &ExternalServiceError{Service: service, Err: err}
}

// AsExternal returns err unchanged when it already carries a known sentinel,
// otherwise it wraps it as a failure of service.
func AsExternal(service string, err error) error {
	if errors.Is(err, ErrExternalService) || errors.Is(err, ErrValidation) || errors.Is(err, ErrBudgetExceeded) {
		return err
	}
	return NewExternalServiceError(service, err)
}

// RecursionLimitError wraps ErrRecursionLimit with the configured bound.
type RecursionLimitError struct {
	Limit int
}

func (e *RecursionLimitError) Error() string {
	return fmt.Sprintf("%s: no final answer after %d iterations", ErrRecursionLimit.Error(), e.Limit)
}

func (e *RecursionLimitError) Unwrap() error { return ErrRecursionLimit }

// NewValidationError formats a validation failure.
func NewValidationError(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}
