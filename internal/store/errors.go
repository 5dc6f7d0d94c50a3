package store

import (
	"fmt"
	"net/http"
)

// Error is a domain error with an HTTP status code.
type Error struct {
	Code    int    // HTTP status code
	Message string // User-facing message
	Err     error  // Underlying error (optional)
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes sentinel matching work through errors.Is even after WithCause
// or WithMessage produced a derived copy.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// HTTPCode returns the HTTP status code associated with this error.
func (e *Error) HTTPCode() int { return e.Code }

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// Generic sentinel errors.
var (
	ErrNotFound = &Error{
		Code:    http.StatusNotFound,
		Message: "resource not found",
	}

	ErrAlreadyExists = &Error{
		Code:    http.StatusConflict,
		Message: "resource already exists",
	}

	ErrInvalidInput = &Error{
		Code:    http.StatusBadRequest,
		Message: "invalid input",
	}
)

// Domain sentinel errors. These are the terminal outcomes the engagement
// and tag operations surface to callers; the excluded HTTP layer maps them
// to responses via HTTPCode.
var (
	// ErrPostNotFound: the referenced post does not exist.
	ErrPostNotFound = &Error{
		Code:    http.StatusNotFound,
		Message: "post not found",
	}

	// ErrAlreadyLiked: a ledger row for (post, member) already exists.
	// Duplicate likes are rejected, never double-counted.
	ErrAlreadyLiked = &Error{
		Code:    http.StatusConflict,
		Message: "post already liked by this member",
	}

	// ErrLikeNotFound: unlike with no matching ledger row.
	ErrLikeNotFound = &Error{
		Code:    http.StatusNotFound,
		Message: "like not found",
	}

	// ErrTagExists: unique-name violation on tag creation. Callers that
	// find-or-create recover by re-reading; it is never surfaced outside
	// the store layer.
	ErrTagExists = &Error{
		Code:    http.StatusConflict,
		Message: "tag already exists",
	}

	// ErrTagNotFound: the referenced tag does not exist.
	ErrTagNotFound = &Error{
		Code:    http.StatusNotFound,
		Message: "tag not found",
	}
)
