// Package fault defines the typed domain errors shared by services, workers
// and handlers.  Each error carries a Kind mapping to a stable HTTP status at
// the edge; handlers never inspect error strings.  Errors wrap an optional
// cause so repositories can surface driver errors without losing the kind.
package fault

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a domain failure.  The zero value is KindInternal so an
// unclassified error never leaks a misleading status.
type Kind int

const (
	KindInternal         Kind = iota // unexpected failure, including corruption
	KindNotFound                     // entity missing or soft-deleted
	KindValidation                   // shape or range violation
	KindInvalidState                 // operation not allowed in current lifecycle state
	KindUnauthorized                 // missing principal where one is required
	KindForbidden                    // principal is not owner and not admin
	KindSeatsUnavailable             // at least one requested seat was not available
	KindConcurrency                  // optimistic version token mismatch
	KindNotApproved                  // parent cinema is not approved
)

// String returns the problem-details title for the kind.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "Not Found"
	case KindValidation:
		return "Validation Failed"
	case KindInvalidState:
		return "Invalid State"
	case KindUnauthorized:
		return "Unauthorized"
	case KindForbidden:
		return "Forbidden"
	case KindSeatsUnavailable:
		return "Seats Unavailable"
	case KindConcurrency:
		return "Concurrency Conflict"
	case KindNotApproved:
		return "Cinema Not Approved"
	default:
		return "Internal Server Error"
	}
}

// HTTPStatus maps the kind to its edge status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindInvalidState:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindSeatsUnavailable, KindConcurrency, KindNotApproved:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified domain error with an optional wrapped cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *Error) Unwrap() error { return e.Err }

// New builds an error of the given kind.
func New(kind Kind, msg string) error { return &Error{Kind: kind, Msg: msg} }

// Newf builds an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies an existing error.  A nil cause returns nil.
func Wrap(kind Kind, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// NotFound builds a KindNotFound error for the named entity.
func NotFound(entity string) error { return Newf(KindNotFound, "%s not found", entity) }

// Validation builds a KindValidation error.
func Validation(msg string) error { return New(KindValidation, msg) }

// Validationf builds a formatted KindValidation error.
func Validationf(format string, args ...any) error { return Newf(KindValidation, format, args...) }

// InvalidState builds a KindInvalidState error.
func InvalidState(msg string) error { return New(KindInvalidState, msg) }

// Unauthorized builds a KindUnauthorized error.
func Unauthorized(msg string) error { return New(KindUnauthorized, msg) }

// Forbidden builds a KindForbidden error.
func Forbidden(msg string) error { return New(KindForbidden, msg) }

// SeatsUnavailable builds a KindSeatsUnavailable error.
func SeatsUnavailable(msg string) error { return New(KindSeatsUnavailable, msg) }

// Concurrency builds a KindConcurrency error.
func Concurrency(msg string) error { return New(KindConcurrency, msg) }

// NotApproved builds a KindNotApproved error.
func NotApproved(msg string) error { return New(KindNotApproved, msg) }

// Internal classifies an unexpected error.
func Internal(msg string, err error) error { return &Error{Kind: KindInternal, Msg: msg, Err: err} }

// KindOf extracts the kind from an error chain.  Unclassified errors report
// KindInternal.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindInternal
}

// IsKind reports whether the error chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == kind
}
