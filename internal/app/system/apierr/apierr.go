// Package apierr defines the error taxonomy shared by the stores and the
// HTTP handlers, and the single place where an error becomes a status code.
//
// Stores return one of the sentinel kinds below, usually wrapped with detail:
//
//	return nil, fmt.Errorf("%w: %q", apierr.ErrInvalidIdentifier, id)
//
// Handlers call Write, which maps the kind with errors.Is and renders the
// envelope {"statusCode": <code>, "ERROR": <message>}.
package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error kinds.
var (
	ErrInvalidIdentifier  = errors.New("invalid identifier")
	ErrUnauthorized       = errors.New("Unauthorized")
	ErrNotFound           = errors.New("not found")
	ErrFilterSyntax       = errors.New("invalid filter")
	ErrValidation         = errors.New("validation failed")
	ErrResolution         = errors.New("invalid tenant or collection")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateEmail     = errors.New("a user with this email already exists")
	ErrTooManyAttempts    = errors.New("too many failed login attempts")
)

// Validationf returns ErrValidation wrapped with a formatted detail.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Envelope is the JSON body written for every error response.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Error      string `json:"ERROR"`
}

// Status maps err to an HTTP status code.
// Unknown errors are internal failures.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrTooManyAttempts):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrInvalidIdentifier),
		errors.Is(err, ErrFilterSyntax),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrResolution),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrDuplicateEmail):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Kind returns a short label for err's taxonomy kind, "internal" for
// anything outside the taxonomy and "" for nil.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.label
		}
	}
	return "internal"
}

var kinds = []struct {
	err   error
	label string
}{
	{ErrInvalidIdentifier, "invalid_identifier"},
	{ErrUnauthorized, "unauthorized"},
	{ErrNotFound, "not_found"},
	{ErrFilterSyntax, "filter_syntax"},
	{ErrValidation, "validation"},
	{ErrResolution, "resolution"},
	{ErrInvalidCredentials, "invalid_credentials"},
	{ErrDuplicateEmail, "duplicate_email"},
	{ErrTooManyAttempts, "too_many_attempts"},
}

// IsClientError reports whether err belongs to the taxonomy (as opposed to
// an unexpected storage or encoding failure).
func IsClientError(err error) bool {
	return err != nil && Status(err) != http.StatusInternalServerError
}

// Write renders err as the error envelope with its mapped status.
func Write(w http.ResponseWriter, err error) {
	WriteStatus(w, Status(err), err.Error())
}

// WriteStatus renders the envelope with an explicit status and message.
func WriteStatus(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{StatusCode: status, Error: msg})
}
