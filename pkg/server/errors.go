package server

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusCoder is implemented by errors that carry an HTTP status.
type StatusCoder interface {
	StatusCode() int
}

// HTTPError is an error with an HTTP status.
type HTTPError struct {
	Status  int
	Message string
	Err     error
}

// Error returns the error message.
func (e *HTTPError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *HTTPError) Unwrap() error {
	return e.Err
}

// StatusCode implements StatusCoder.
func (e *HTTPError) StatusCode() int {
	return e.Status
}

// NewHTTPError creates an HTTPError.
func NewHTTPError(status int, message string) *HTTPError {
	return &HTTPError{Status: status, Message: message}
}

// NotFound creates a 404 error.
func NotFound(message string) *HTTPError {
	return NewHTTPError(http.StatusNotFound, message)
}

// InternalError wraps err as a 500 error.
func InternalError(err error) *HTTPError {
	return &HTTPError{Status: http.StatusInternalServerError, Err: err}
}

// StatusOf returns the status carried by err, or 500.
func StatusOf(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}
