package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrTimeout matches any TransportError caused by the request time bound.
var ErrTimeout = errors.New("request timed out")

// TransportError reports a request that produced no response.
type TransportError struct {
	Method  string
	Path    string
	Err     error
	timeout bool
}

func (e *TransportError) Error() string {
	if e.timeout {
		return fmt.Sprintf("%s %s: timeout: %v", e.Method, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

// Unwrap returns underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports ErrTimeout for timed out requests.
func (e *TransportError) Is(target error) bool {
	return target == ErrTimeout && e.timeout
}

// Timeout reports whether the time bound was exceeded.
func (e *TransportError) Timeout() bool {
	return e.timeout
}

// ServiceError reports a response with a non-2xx status. Truncated is set
// when the error body could not be read to the end; Body then holds the part
// that arrived.
type ServiceError struct {
	Status    int
	Detail    string
	Body      []byte
	Truncated bool
}

func (e *ServiceError) Error() string {
	msg := fmt.Sprintf("service returned %d", e.Status)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Truncated {
		msg += " (body truncated)"
	}
	return msg
}

func newServiceError(status int, body []byte) *ServiceError {
	return &ServiceError{
		Status: status,
		Detail: extractDetail(body),
		Body:   body,
	}
}

// extractDetail pulls a human-readable message out of an error body. The
// service answers {"detail": "..."} for handled errors and a list of field
// errors for validation failures.
func extractDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Detail) > 0 {
		var s string
		if json.Unmarshal(payload.Detail, &s) == nil {
			return s
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if json.Unmarshal(payload.Detail, &items) == nil {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			return strings.Join(msgs, "; ")
		}
	}
	return strings.TrimSpace(string(body))
}

// StatusOf returns the service status carried by err, or 0.
func StatusOf(err error) int {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}

// IsUnauthorized reports whether the service rejected the credentials.
func IsUnauthorized(err error) bool {
	return StatusOf(err) == http.StatusUnauthorized
}

// IsNotFound reports a 404 from the service.
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}

// Message renders err for display: the service detail when there is one.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var se *ServiceError
	if errors.As(err, &se) && se.Detail != "" {
		return se.Detail
	}
	var te *TransportError
	if errors.As(err, &te) && te.Timeout() {
		return "request timed out"
	}
	return err.Error()
}
