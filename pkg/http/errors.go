package http

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents application-level error with HTTP status.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error.
func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Field:   field,
		Status:  status,
	}
}

// WithParam sets a single error param.
func (e *AppError) WithParam(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = make(map[string]interface{})
	}
	e.Params[key] = value
	return e
}

// WithError wraps an underlying error.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// NotFoundError creates a 404 error.
func NotFoundError(message string) *AppError {
	return NewAppError("ERR_NOT_FOUND", "", message, http.StatusNotFound)
}

// BadRequestError creates a 400 error.
func BadRequestError(message string) *AppError {
	return NewAppError("ERR_BAD_REQUEST", "", message, http.StatusBadRequest)
}

// BadRequestErrorf creates a 400 error with formatting.
func BadRequestErrorf(format string, a ...interface{}) *AppError {
	return BadRequestError(fmt.Sprintf(format, a...))
}

// UnauthorizedError creates a 401 error.
func UnauthorizedError(message string) *AppError {
	return NewAppError("ERR_UNAUTHORIZED", "", message, http.StatusUnauthorized)
}

// InternalError creates a 500 error.
func InternalError(message string) *AppError {
	return NewAppError("ERR_INTERNAL", "", message, http.StatusInternalServerError)
}

// ToAppError maps client-side failures onto the dashboard's error shape:
// service statuses pass through, a timed out request is 504 and any other
// transport failure is 502.
func ToAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var se *ServiceError
	if errors.As(err, &se) {
		code := "ERR_SERVICE"
		switch se.Status {
		case http.StatusUnauthorized:
			code = "ERR_UNAUTHORIZED"
		case http.StatusNotFound:
			code = "ERR_NOT_FOUND"
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			code = "ERR_BAD_REQUEST"
		}
		return NewAppError(code, "", Message(err), se.Status).WithError(err)
	}

	var te *TransportError
	if errors.As(err, &te) {
		if te.Timeout() {
			return NewAppError("ERR_TIMEOUT", "", Message(err), http.StatusGatewayTimeout).WithError(err)
		}
		return NewAppError("ERR_UNAVAILABLE", "", "data service unreachable", http.StatusBadGateway).WithError(err)
	}

	return InternalError("Something went wrong").WithError(err)
}
