package domain

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrNotFound             = errors.New("not found")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrConflict             = errors.New("conflict")
	ErrValidation           = errors.New("validation failed")
	ErrForbidden            = errors.New("forbidden")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrRender               = errors.New("ticket render failed")
	ErrDelivery             = errors.New("ticket delivery failed")
	ErrSerializationFailure = errors.New("serialization failure")
)

// ValidationError is a persistence-level rejection of a single field.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// DuplicateBookingError is returned when the user already holds a confirmed
// booking for the item.
type DuplicateBookingError struct {
	Type ItemType
}

func (e *DuplicateBookingError) Error() string {
	return fmt.Sprintf("you already booked this %s", e.Type)
}

func (e *DuplicateBookingError) Is(target error) bool {
	return target == ErrConflict
}

// statusError carries a caller-facing message while matching a sentinel.
type statusError struct {
	msg  string
	kind error
}

func (e *statusError) Error() string { return e.msg }

func (e *statusError) Is(target error) bool { return target == e.kind }

func InvalidRequestf(format string, args ...any) error {
	return &statusError{msg: fmt.Sprintf(format, args...), kind: ErrInvalidRequest}
}

func NotFoundf(format string, args ...any) error {
	return &statusError{msg: fmt.Sprintf(format, args...), kind: ErrNotFound}
}

func InvalidAmountf(format string, args ...any) error {
	return &statusError{msg: fmt.Sprintf(format, args...), kind: ErrInvalidAmount}
}

func Forbiddenf(format string, args ...any) error {
	return &statusError{msg: fmt.Sprintf(format, args...), kind: ErrForbidden}
}

// causeError tags an underlying failure with a sentinel kind.
type causeError struct {
	msg   string
	kind  error
	cause error
}

func (e *causeError) Error() string { return e.msg + ": " + e.cause.Error() }

func (e *causeError) Unwrap() error { return e.cause }

func (e *causeError) Is(target error) bool { return target == e.kind }

func RenderError(cause error, msg string) error {
	return &causeError{msg: msg, kind: ErrRender, cause: cause}
}

func DeliveryError(cause error, msg string) error {
	return &causeError{msg: msg, kind: ErrDelivery, cause: cause}
}
