// Package apperror defines the structured error kinds the clinic core
// reports to callers. Every business-rule failure carries a machine
// code and a human-readable message; validation failures additionally
// carry per-field messages.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type Kind string

const (
	KindValidation     Kind = "validation"
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindNotFound       Kind = "not_found"
	KindConflict       Kind = "conflict"
	KindExpired        Kind = "expired"
	KindImmutable      Kind = "immutable"
	KindInternal       Kind = "internal"
)

// Error is the single error type crossing the service boundary.
type Error struct {
	Kind    Kind                `json:"kind"`
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  map[string][]string `json:"fields,omitempty"`

	// status overrides the default HTTP status for the kind. Used by
	// the immutability rules, which map to 405 for notes and 403 for
	// reports.
	status int
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	parts := make([]string, 0, len(e.Fields))
	for f, msgs := range e.Fields {
		parts = append(parts, f+": "+strings.Join(msgs, "; "))
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(parts, ", "))
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Code: resource + "_not_found", Message: resource + " not found"}
}

func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

func Expired(code, message string) *Error {
	return &Error{Kind: KindExpired, Code: code, Message: message}
}

func Authentication(code, message string) *Error {
	return &Error{Kind: KindAuthentication, Code: code, Message: message}
}

func Authorization(message string) *Error {
	return &Error{Kind: KindAuthorization, Code: "forbidden", Message: message}
}

// Immutable builds an edit-refused error with an explicit HTTP status.
func Immutable(code, message string, status int) *Error {
	return &Error{Kind: KindImmutable, Code: code, Message: message, status: status}
}

// Status returns the HTTP status for the error.
func (e *Error) Status() int {
	if e.status != 0 {
		return e.status
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindExpired:
		return http.StatusGone
	case KindImmutable:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// As unwraps err into an *Error if it is one.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf reports the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// NonFieldKey collects validation messages not attributable to a
// single field, matching the shape the original API exposed.
const NonFieldKey = "non_field_errors"

// Validation accumulates field-scoped rule violations so that every
// applicable failure is reported in one response.
type Validation struct {
	fields map[string][]string
}

func NewValidation() *Validation {
	return &Validation{fields: make(map[string][]string)}
}

// Add records a violation for field. An empty field name files the
// message under NonFieldKey.
func (v *Validation) Add(field, message string) {
	if field == "" {
		field = NonFieldKey
	}
	v.fields[field] = append(v.fields[field], message)
}

func (v *Validation) Empty() bool { return len(v.fields) == 0 }

// Err returns the collected violations as an *Error, or nil when no
// violation was recorded.
func (v *Validation) Err() error {
	if v.Empty() {
		return nil
	}
	return &Error{
		Kind:    KindValidation,
		Code:    "invalid_input",
		Message: "validation failed",
		Fields:  v.fields,
	}
}
