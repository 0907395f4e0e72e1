package core

import (
	"net/http"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific form field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError is an application-level validation failure (e.g. password mismatch).
// Err is the message shown above the form, Fields the per-field messages.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// FieldMessages returns the field errors keyed by field name.
func (err ValidationError) FieldMessages() map[string]string {
	msgs := make(map[string]string, len(err.Fields))
	for _, fErr := range err.Fields {
		msgs[fErr.Field] = fErr.Error
	}
	return msgs
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}

// ErrMalformedResponse is returned when a backend response body cannot be decoded.
var ErrMalformedResponse = errors.New("malformed response from server")

// APIError is a non-success response of the backend API.
// Message comes from the body's `message` or `detail` field, or a per-endpoint default.
type APIError struct {
	StatusCode int
	Message    string
}

func (err *APIError) Error() string {
	return err.Message
}

func (err *APIError) Unauthorized() bool {
	return err.StatusCode == http.StatusUnauthorized
}

// IsUnauthorized reports whether the backend rejected the session token (missing, expired or revoked).
func IsUnauthorized(err error) bool {
	apiErr, ok := errors.Cause(err).(*APIError)
	return ok && apiErr.Unauthorized()
}
