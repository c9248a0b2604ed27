package service

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/lumen-social/lumen/internal/db"
	"github.com/lumen-social/lumen/internal/storage"
	"github.com/lumen-social/lumen/internal/toggle"
)

var (
	// ErrInvalidInput wraps validation failures
	ErrInvalidInput = errors.New("invalid input")
	// ErrForbidden is returned when the actor may not perform the operation
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned when the addressed resource does not exist
	ErrNotFound = errors.New("not found")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func invalidStruct(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return invalid("%s failed %q", fe.Field(), fe.Tag())
	}
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}

// Message is an error rendered for end users
type Message struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// UserMessage maps an error onto a message fit for display
func UserMessage(err error) Message {
	if err == nil {
		return Message{Message: "An unexpected error occurred."}
	}

	switch {
	case errors.Is(err, toggle.ErrNoActor):
		return Message{Message: "Sign in to continue."}
	case errors.Is(err, toggle.ErrSelfTarget):
		return Message{Message: "You cannot do that to yourself."}
	case errors.Is(err, toggle.ErrInFlight):
		return Message{Message: "Still working on your last request."}
	case errors.Is(err, ErrForbidden):
		return Message{Code: db.CodeInsufficientPriv, Message: "You do not have permission to perform this action."}
	case errors.Is(err, ErrNotFound):
		return Message{Code: db.CodeNoRows, Message: "The requested resource was not found."}
	case errors.Is(err, ErrInvalidInput):
		return Message{Message: err.Error()}
	case errors.Is(err, storage.ErrTooLarge), errors.Is(err, storage.ErrUnsupportedType):
		return Message{Message: err.Error()}
	case errors.Is(err, storage.ErrDisabled):
		return Message{Message: "Uploads are not available right now."}
	}

	var te *toggle.Error
	if errors.As(err, &te) {
		switch te.Kind {
		case toggle.KindConflict:
			return Message{Code: te.Code, Message: "That already exists. Try something else."}
		case toggle.KindPermission:
			return Message{Code: te.Code, Message: "You do not have permission to perform this action."}
		case toggle.KindNotFound:
			return Message{Code: te.Code, Message: "The requested resource was not found."}
		case toggle.KindUnavailable:
			return Message{Code: te.Code, Message: "Network or server error. Try again."}
		}
		return Message{Code: te.Code, Message: "Network or server error."}
	}
	return Message{Message: "Network or server error."}
}
