package model

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed or missing input. It is fixed by correcting the input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ConflictError means the ledger changed underneath the caller, usually because the slot was
// taken after availability was read. Callers re-resolve availability.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// AuthorizationError means the actor may not perform the action.
type AuthorizationError struct {
	Action string
	Role   Role
	Reason string
}

func (e *AuthorizationError) Error() string {
	msg := fmt.Sprintf("role %q may not %s", e.Role, e.Action)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// NotFoundError names the kind and id of a missing entity.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %q not found", e.Kind, e.ID) }

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

func IsAuthorization(err error) bool {
	var target *AuthorizationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// ErrorKind names the category of a typed error for transports; "" for anything else.
func ErrorKind(err error) string {
	switch {
	case IsValidation(err):
		return "validation"
	case IsConflict(err):
		return "conflict"
	case IsAuthorization(err):
		return "authorization"
	case IsNotFound(err):
		return "not_found"
	default:
		return ""
	}
}

// Ledger sentinels. Storage backends wrap these; the lifecycle turns them into ConflictError.
var (
	ErrSlotTaken   = errors.New("slot already booked")
	ErrStaleStatus = errors.New("appointment status changed concurrently")
	// ErrDuplicateRequest means an appointment with the same requester and idempotency key exists.
	ErrDuplicateRequest = errors.New("duplicate appointment request")
)
