package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrClassNotFound      = errors.New("class not found")
	ErrMethodNotFound     = errors.New("method not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnknownTool        = errors.New("unknown tool")
	ErrIndexUnavailable   = errors.New("api index unavailable")
	ErrSourceNotFound     = errors.New("index source not found")
	ErrInternal           = errors.New("internal error")
	ErrTimeout            = errors.New("operation timed out")
	ErrServiceUnavailable = errors.New("service unavailable")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// InvalidInputf is shorthand for a 400 AppError wrapping ErrInvalidInput.
func InvalidInputf(format string, args ...any) *AppError {
	return Newf(ErrInvalidInput, http.StatusBadRequest, format, args...)
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrClassNotFound), errors.Is(err, ErrMethodNotFound), errors.Is(err, ErrUnknownTool):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrIndexUnavailable), errors.Is(err, ErrServiceUnavailable), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-facing message of err: the AppError message
// when present, the error text otherwise.
func Message(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
