package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// Kind classifies a failed request.
type Kind int

const (
	KindNetwork Kind = iota + 1
	KindNotFound
	KindValidation
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindNotFound:
		return "not found"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	}
	return "unknown"
}

var (
	// ErrNetwork matches failures where no response was received.
	ErrNetwork = errors.New("network error")
	// ErrNotFound matches 404 responses.
	ErrNotFound = errors.New("not found")
)

// ValidationError is a 4xx response other than 404.
type ValidationError struct {
	Status  int
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ServerError is a 5xx response.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string { return e.Message }

// APIError is returned by every Client operation. Match it with errors.Is
// against ErrNetwork/ErrNotFound or errors.As against *ValidationError and
// *ServerError.
type APIError struct {
	Kind    Kind
	Status  int
	Message string
	Op      string

	kindErr error
	cause   error
}

func (e *APIError) Error() string {
	if e.Op == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *APIError) Unwrap() []error {
	var errs []error
	if e.kindErr != nil {
		errs = append(errs, e.kindErr)
	}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

// Message returns the user-facing message for err.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// IsUnauthorized reports whether err is a 401 response.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

func networkError(op string, cause error) *APIError {
	return &APIError{
		Kind:    KindNetwork,
		Message: "could not reach the bookstore service",
		Op:      op,
		kindErr: ErrNetwork,
		cause:   cause,
	}
}

// statusError classifies a non-2xx response.
func statusError(op string, status int, body []byte) *APIError {
	msg := errorMessage(status, body)
	e := &APIError{Status: status, Message: msg, Op: op}
	switch {
	case status == http.StatusNotFound:
		e.Kind, e.kindErr = KindNotFound, ErrNotFound
	case status >= 400 && status < 500:
		e.Kind, e.kindErr = KindValidation, &ValidationError{Status: status, Message: msg}
	default:
		e.Kind, e.kindErr = KindServer, &ServerError{Status: status, Message: msg}
	}
	return e
}

// errorMessage pulls "error", then "message", out of a JSON body, falling
// back to the status text.
func errorMessage(status int, body []byte) string {
	if gjson.ValidBytes(body) {
		for _, path := range []string{"error", "message"} {
			if v := gjson.GetBytes(body, path); v.Type == gjson.String && strings.TrimSpace(v.Str) != "" {
				return v.Str
			}
		}
	}
	if t := http.StatusText(status); t != "" {
		return t
	}
	return fmt.Sprintf("unexpected status %d", status)
}
