package entity

import (
	"errors"
	"fmt"
)

var (
	ErrForbidden       = errors.New("forbidden: access denied")
	ErrTaskNotFound    = errors.New("task not found")
	ErrCommentNotFound = errors.New("comment not found")
	ErrFileNotFound    = errors.New("file not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidTaskData = errors.New("invalid task data")
)

// ValidationError describes rejected input. errors.Is(err, ErrInvalidTaskData) holds for every instance.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidTaskData
}

// IsNotFound reports whether err is any of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTaskNotFound) ||
		errors.Is(err, ErrCommentNotFound) ||
		errors.Is(err, ErrFileNotFound) ||
		errors.Is(err, ErrUserNotFound)
}
