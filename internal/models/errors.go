package models

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("duplicate")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrValidation        = errors.New("validation failed")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrRateLimited        = errors.New("rate limited")
	ErrMailDelivery       = errors.New("mail delivery failed")
)

// ValidationError carries a message that is safe to show to the client.
type ValidationError struct {
	Msg string
}

func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Msg: msg}
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError names the missing entity ("package", "return request", ...).
type NotFoundError struct {
	Entity string
}

func NotFound(entity string) *NotFoundError { return &NotFoundError{Entity: entity} }

func (e *NotFoundError) Error() string { return e.Entity + " not found" }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// TransitionError reports a rejected status change. Reason, when set, is
// shown to the client as is.
type TransitionError struct {
	Entity string
	From   string
	To     string
	Reason string
}

func (e *TransitionError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return e.Entity + ": cannot move from " + quote(e.From) + " to " + quote(e.To)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

func quote(s string) string { return "\"" + s + "\"" }
