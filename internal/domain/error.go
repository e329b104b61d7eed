package domain

import (
	"errors"
	"fmt"
)

// Cart error codes.
const (
	EINTERNAL    = "internal"         // unexpected failure, details hidden from users
	EINVALID     = "invalid"          // malformed input, never retried
	EUNAVAILABLE = "unavailable"      // storage unreachable or timed out
	EMERGE       = "merge_incomplete" // guest cart not folded into the user cart
)

// Error is a cart error with a machine-readable code.
type Error struct {
	Code string

	// Message is safe to show to users.
	Message string

	// Op is the failing operation, e.g. "cartRepository.UpsertItem".
	Op string

	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Op != "" {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code, so errors.Is(err, ErrInvalidItem)
// holds for every invalid-item error regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrInvalidItem        = &Error{Code: EINVALID, Message: "invalid cart item"}
	ErrStorageUnavailable = &Error{Code: EUNAVAILABLE, Message: "cart storage unavailable"}
	ErrMergeIncomplete    = &Error{Code: EMERGE, Message: "guest cart merge incomplete"}
)

func InvalidItem(op, message string) error {
	return &Error{Code: EINVALID, Op: op, Message: message}
}

func StorageUnavailable(op string, err error) error {
	return &Error{Code: EUNAVAILABLE, Op: op, Message: ErrStorageUnavailable.Message, Err: err}
}

func MergeIncomplete(op string, err error) error {
	return &Error{Code: EMERGE, Op: op, Message: ErrMergeIncomplete.Message, Err: err}
}

// ErrorCode returns EINTERNAL for errors that are not *Error.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return EINTERNAL
}

func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) && e.Code != EINTERNAL {
		return e.Message
	}

	return "An internal error occurred. Please try again later."
}
