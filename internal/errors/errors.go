package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error so callers can branch without matching messages.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindAlreadyExists
	KindUnauthorized
	KindForbidden
	KindValidation
	KindInvalidTransition
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindAlreadyExists:
		return "already_exists"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindValidation:
		return "validation"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is a domain error carrying its Kind and a stable machine-readable code.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same code, so a sentinel still matches
// after With added detail.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Kind == t.Kind
}

// New creates a domain error.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// With returns a copy of e whose message carries extra detail.
func (e *Error) With(format string, args ...interface{}) *Error {
	return &Error{
		Kind:    e.Kind,
		Code:    e.Code,
		Message: e.Message + ": " + fmt.Sprintf(format, args...),
		Err:     e.Err,
	}
}

// Service wraps an unexpected failure, typically from persistence.
func Service(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return &Error{Kind: KindInternal, Code: "SERVICE_ERROR", Message: op, Err: err}
}

// KindOf reports the Kind of err. Errors that are not domain errors are internal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// IsNotFound reports whether err is a not-found error of any entity.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

var (
	// ErrUserNotFound is returned when a username does not exist.
	ErrUserNotFound = New(KindNotFound, "USER_NOT_FOUND", "user not found")
	// ErrUserAlreadyExists is returned when registering a taken username.
	ErrUserAlreadyExists = New(KindAlreadyExists, "USER_ALREADY_EXISTS", "user already exists")
	// ErrInvalidCredentials is returned when username or password is incorrect.
	ErrInvalidCredentials = New(KindUnauthorized, "INVALID_CREDENTIALS", "invalid username or password")
	// ErrInvalidToken is returned when a bearer token cannot be trusted.
	ErrInvalidToken = New(KindUnauthorized, "INVALID_TOKEN", "invalid or expired token")
	// ErrForbidden is returned when the caller's role or ownership does not allow the operation.
	ErrForbidden = New(KindForbidden, "FORBIDDEN", "operation not permitted for caller")

	ErrRequestNotFound = New(KindNotFound, "REQUEST_NOT_FOUND", "request not found")
	// ErrRequestLocked is returned when a request can no longer be edited or removed.
	ErrRequestLocked = New(KindConflict, "REQUEST_LOCKED", "request can no longer be modified")

	ErrTrackingNotFound      = New(KindNotFound, "TRACKING_NOT_FOUND", "tracking not found")
	ErrTrackingAlreadyExists = New(KindAlreadyExists, "TRACKING_ALREADY_EXISTS", "tracking already exists for request")
	// ErrInvalidTransition is returned when a status change is not an edge of the workflow.
	ErrInvalidTransition = New(KindInvalidTransition, "INVALID_TRANSITION", "invalid status transition")
	// ErrConcurrentUpdate is returned when a tracking record changed underneath the caller.
	ErrConcurrentUpdate = New(KindConflict, "CONCURRENT_UPDATE", "tracking was modified concurrently, reload and retry")

	ErrPaymentNotFound      = New(KindNotFound, "PAYMENT_NOT_FOUND", "payment details not found")
	ErrPaymentAlreadyExists = New(KindAlreadyExists, "PAYMENT_ALREADY_EXISTS", "payment already recorded for request")
	ErrRequestNotApproved   = New(KindInvalidTransition, "REQUEST_NOT_APPROVED", "request must be approved before payment")
	ErrAmountMismatch       = New(KindValidation, "AMOUNT_MISMATCH", "payment amount must equal the requested amount")

	ErrProfileNotFound      = New(KindNotFound, "PROFILE_NOT_FOUND", "user profile not found")
	ErrProfileAlreadyExists = New(KindAlreadyExists, "PROFILE_ALREADY_EXISTS", "user profile already exists")

	// ErrInvalidAmount is returned when amount is not strictly positive.
	ErrInvalidAmount   = New(KindValidation, "INVALID_AMOUNT", "amount must be greater than zero")
	ErrInvalidStatus   = New(KindValidation, "INVALID_STATUS", "unknown tracking status")
	ErrInvalidRole     = New(KindValidation, "INVALID_ROLE", "role must be Employee or HR")
	ErrDocumentMissing = New(KindValidation, "DOCUMENT_REQUIRED", "a supporting document is required")
	ErrInvalidDocument = New(KindValidation, "INVALID_DOCUMENT", "unsupported or oversized document")
	ErrInvalidBank     = New(KindValidation, "INVALID_BANK_DETAILS", "invalid bank account or routing code")
	ErrValidation      = New(KindValidation, "VALIDATION_ERROR", "invalid input")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors. Internal errors never leak their cause.
func MapErrorToHTTP(err error) *HTTPError {
	var de *Error
	if !errors.As(err, &de) || de.Kind == KindInternal {
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}

	status := http.StatusInternalServerError
	switch de.Kind {
	case KindNotFound:
		status = http.StatusNotFound
	case KindAlreadyExists, KindConflict:
		status = http.StatusConflict
	case KindUnauthorized:
		status = http.StatusUnauthorized
	case KindForbidden:
		status = http.StatusForbidden
	case KindValidation:
		status = http.StatusBadRequest
	case KindInvalidTransition:
		status = http.StatusUnprocessableEntity
	}
	return NewHTTPError(status, de.Message, de.Code)
}
