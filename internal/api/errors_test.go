package api

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lumen-social/lumen/internal/service"
	"github.com/lumen-social/lumen/internal/storage"
	"github.com/lumen-social/lumen/internal/toggle"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"no actor", toggle.ErrNoActor, ErrUnauthorized},
		{"self target", toggle.ErrSelfTarget, ErrInvalidParams},
		{"invalid input", fmt.Errorf("%w: limit", service.ErrInvalidInput), ErrInvalidParams},
		{"too large", storage.ErrTooLarge, ErrInvalidParams},
		{"unsupported type", storage.ErrUnsupportedType, ErrInvalidParams},
		{"forbidden", service.ErrForbidden, ErrForbidden},
		{"not found", service.ErrNotFound, ErrNotFound},
		{"gateway conflict", toggle.NewError(toggle.KindConflict, "23505", "insert", errors.New("duplicate")), ErrServerError},
		{"gateway permission", toggle.NewError(toggle.KindPermission, "42501", "insert", errors.New("denied")), ErrServerError},
		{"unknown", errors.New("boom"), ErrServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := FromError(tt.err)
			assert.Equal(t, tt.code, apiErr.Code)
			assert.Equal(t, service.UserMessage(tt.err), apiErr.Data)
			assert.ErrorIs(t, apiErr, tt.err)
		})
	}
}

func TestFromErrorKeepsAPIErrors(t *testing.T) {
	orig := NewError(ErrInvalidRequest, "Invalid Request", errors.New("bad"))
	assert.Same(t, orig, FromError(fmt.Errorf("wrapped: %w", orig)))
	assert.Equal(t, "bad", orig.Data)
}
