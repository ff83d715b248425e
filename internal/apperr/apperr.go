package apperr

import (
  "errors"
  "fmt"
  "net/http"
)

// Kind classifies a failure so the handler layer can translate it to a
// response envelope and status code without inspecting error strings.
type Kind int

const (
  Unknown Kind = iota
  Validation
  NotFound
  LimitExceeded
  Timeout
  BackendFailure
  ComparisonFailed
  Auth
  Duplicate
)

func (k Kind) String() string {
  switch k {
  case Validation:
    return "validation"
  case NotFound:
    return "not_found"
  case LimitExceeded:
    return "limit_exceeded"
  case Timeout:
    return "timeout"
  case BackendFailure:
    return "backend_failure"
  case ComparisonFailed:
    return "comparison_failed"
  case Auth:
    return "auth"
  case Duplicate:
    return "duplicate"
  default:
    return "unknown"
  }
}

type Error struct {
  Kind    Kind
  Message string
  // Fields lists every violated field for validation failures.
  Fields  []string
  Err     error
}

func (e *Error) Error() string {
  if e.Err != nil {
    return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
  }
  return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
  return e.Err
}

func New(kind Kind, message string) *Error {
  return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
  return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, message string, err error) *Error {
  return &Error{Kind: kind, Message: message, Err: err}
}

func NewValidation(message string, fields ...string) *Error {
  return &Error{Kind: Validation, Message: message, Fields: fields}
}

// KindOf reports the Kind of err, or Unknown when err is not an
// *Error anywhere in its chain.
func KindOf(err error) Kind {
  var ae *Error
  if errors.As(err, &ae) {
    return ae.Kind
  }
  return Unknown
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
  return KindOf(err) == kind
}

// UserMessage returns the user-facing message of err, falling back to
// a generic one for errors outside the taxonomy.
func UserMessage(err error) string {
  var ae *Error
  if errors.As(err, &ae) {
    return ae.Message
  }
  return "Internal server error"
}

// HTTPStatus maps a Kind to the status code the response envelope uses.
func HTTPStatus(err error) int {
  switch KindOf(err) {
  case Validation, LimitExceeded, Duplicate:
    return http.StatusBadRequest
  case Auth:
    return http.StatusUnauthorized
  case NotFound:
    return http.StatusNotFound
  case Timeout:
    return http.StatusRequestTimeout
  default:
    return http.StatusInternalServerError
  }
}
