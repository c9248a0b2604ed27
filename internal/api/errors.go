package api

import (
	"errors"
	"fmt"

	"github.com/lumen-social/lumen/internal/service"
	"github.com/lumen-social/lumen/internal/storage"
	"github.com/lumen-social/lumen/internal/toggle"
)

// Standard JSON-RPC error codes
const (
	ErrParseError     = -32700
	ErrInvalidRequest = -32600
	ErrMethodNotFound = -32601
	ErrInvalidParams  = -32602
	ErrInternalError  = -32603
)

// Application error codes
const (
	ErrServerError  = -32000
	ErrUnauthorized = -32001
	ErrForbidden    = -32003
	ErrNotFound     = -32004
)

// Error represents an API error
type Error struct {
	Code    int
	Message string
	Data    interface{}
	Err     error
}

// NewError creates a new API error whose data is the cause's message
func NewError(code int, message string, err error) *Error {
	e := &Error{Code: code, Message: message, Err: err}
	if err != nil {
		e.Data = err.Error()
	}
	return e
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// FromError maps a handler error onto a JSON-RPC error. Gateway failures stay
// server errors whatever their kind; Data carries a message fit for display.
func FromError(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	code, message := ErrServerError, "Server error"
	switch {
	case errors.Is(err, toggle.ErrNoActor):
		code, message = ErrUnauthorized, "authentication required"
	case errors.Is(err, toggle.ErrSelfTarget),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, storage.ErrTooLarge),
		errors.Is(err, storage.ErrUnsupportedType):
		code, message = ErrInvalidParams, "Invalid params"
	case errors.Is(err, service.ErrForbidden):
		code, message = ErrForbidden, "forbidden"
	case errors.Is(err, service.ErrNotFound):
		code, message = ErrNotFound, "not found"
	}
	return &Error{Code: code, Message: message, Data: service.UserMessage(err), Err: err}
}
