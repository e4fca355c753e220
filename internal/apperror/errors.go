package apperror

import (
	"errors"
	"net/http"
	"strings"
)

var (
	ErrAuthenticationRequired  = errors.New("authentication required")
	ErrAuthorizationDenied     = errors.New("authorization denied")
	ErrValidationFailed        = errors.New("validation failed")
	ErrUniquenessConflict      = errors.New("uniqueness conflict")
	ErrMandatoryFieldViolation = errors.New("mandatory field violation")
	ErrConnectionUnavailable   = errors.New("connection unavailable")
	ErrStorage                 = errors.New("storage error")

	ErrNotFound        = errors.New("record not found")
	ErrUnknownEntity   = errors.New("unknown entity")
	ErrSnapshotMissing = errors.New("no loaded snapshot for this table")
)

// Error is the structured failure returned by services. Kind is one of the
// sentinels above so callers can branch with errors.Is.
type Error struct {
	Kind    error
	Message string
	Fields  []string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.Error()
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind error, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// MissingFields builds the ValidationFailed error listing the offending labels.
func MissingFields(labels []string) *Error {
	return &Error{
		Kind:    ErrValidationFailed,
		Message: "Champs obligatoires manquants : " + strings.Join(labels, ", "),
		Fields:  labels,
	}
}

// Fields returns the field labels attached to err, if any.
func Fields(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}

// HTTPStatus maps an error kind to the status code handlers respond with.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrAuthenticationRequired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAuthorizationDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrValidationFailed), errors.Is(err, ErrMandatoryFieldViolation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUniquenessConflict), errors.Is(err, ErrSnapshotMissing):
		return http.StatusConflict
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUnknownEntity):
		return http.StatusNotFound
	case errors.Is(err, ErrConnectionUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
