package services

import (
	"errors"
	"fmt"

	"github.com/devnovate/blog/models"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("not authorized")
	ErrUnauthorized      = errors.New("authentication required")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrValidation        = errors.New("validation failed")

	ErrPostNotFound    = fmt.Errorf("blog %w", ErrNotFound)
	ErrCommentNotFound = fmt.Errorf("comment %w", ErrNotFound)
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// TransitionError reports a moderation action attempted from a state that does not allow it.
type TransitionError struct {
	Action Action
	From   models.Status
}

func (e *TransitionError) Error() string {
	switch e.Action {
	case ActionEdit:
		return fmt.Sprintf("cannot edit a blog that is %s", e.From)
	default:
		return fmt.Sprintf("cannot %s a blog that is %s", e.Action, e.From)
	}
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }
